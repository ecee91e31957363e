package command

import (
	"strings"
	"testing"
	"time"
)

// fakeMathState implements MathState for tests.
type fakeMathState struct {
	result float64
	set    bool
}

func (s *fakeMathState) LastResult() (float64, bool) { return s.result, s.set }
func (s *fakeMathState) SetLastResult(v float64)     { s.result = v; s.set = true }

func newTestProcessor() *Processor {
	p := NewProcessor(nil)
	p.now = func() time.Time {
		return time.Date(2025, time.March, 14, 15, 4, 0, 0, time.UTC)
	}
	return p
}

func TestProcessGreeting(t *testing.T) {
	p := newTestProcessor()

	resp, handled := p.Process("hello", nil)
	if !handled {
		t.Fatal("greeting should be handled")
	}
	if !strings.Contains(resp.Response, "Ballsy") {
		t.Errorf("response = %q, want introduction", resp.Response)
	}
}

func TestProcessEmpty(t *testing.T) {
	p := newTestProcessor()

	resp, handled := p.Process("", nil)
	if !handled {
		t.Fatal("empty command should be handled")
	}
	if !strings.Contains(resp.Response, "repeat") {
		t.Errorf("response = %q, want re-prompt", resp.Response)
	}
}

func TestProcessFarewell(t *testing.T) {
	p := newTestProcessor()

	resp, handled := p.Process("goodbye ballsy", nil)
	if !handled || resp.Action != ActionExit {
		t.Errorf("action = %q, want exit", resp.Action)
	}
}

func TestProcessMath(t *testing.T) {
	p := newTestProcessor()
	state := &fakeMathState{}

	resp, handled := p.Process("what's 5 + 10", state)
	if !handled {
		t.Fatal("math should be handled")
	}
	if resp.Response != "15" {
		t.Errorf("response = %q, want 15", resp.Response)
	}

	// continuation chains onto the previous result
	resp, handled = p.Process("+ 6", state)
	if !handled {
		t.Fatal("continuation should be handled")
	}
	if resp.Response != "21" {
		t.Errorf("response = %q, want 21", resp.Response)
	}
}

func TestProcessMathContinuationWithoutResult(t *testing.T) {
	p := newTestProcessor()

	if _, handled := p.Process("+ 6", &fakeMathState{}); handled {
		t.Error("continuation without prior result should go to the model")
	}
}

func TestProcessMathDivisionByZero(t *testing.T) {
	p := newTestProcessor()

	resp, handled := p.Process("10 / 0", &fakeMathState{})
	if !handled {
		t.Fatal("division by zero should be handled")
	}
	if !strings.Contains(resp.Response, "divide by zero") {
		t.Errorf("response = %q, want division by zero sentence", resp.Response)
	}
}

func TestProcessBareNumberNotHandled(t *testing.T) {
	p := newTestProcessor()

	if _, handled := p.Process("42", &fakeMathState{}); handled {
		t.Error("a bare number should go to the model")
	}
}

func TestProcessSiteSearches(t *testing.T) {
	p := newTestProcessor()

	tests := []struct {
		cmd     string
		wantURL string
	}{
		{"play lofi beats on youtube", "https://www.youtube.com/results?search_query=lofi+beats"},
		{"listen to miles davis on spotify", "https://open.spotify.com/search/miles%20davis"},
		{"watch dark on netflix", "https://www.netflix.com/search?q=dark"},
		{"buy headphones on amazon", "https://www.amazon.com/s?k=headphones"},
		{"search gophers on twitter", "https://twitter.com/search?q=gophers"},
	}

	for _, tt := range tests {
		resp, handled := p.Process(tt.cmd, nil)
		if !handled {
			t.Errorf("Process(%q) not handled", tt.cmd)
			continue
		}
		if resp.Action != ActionOpenURL {
			t.Errorf("Process(%q) action = %q, want open_url", tt.cmd, resp.Action)
		}
		if resp.Data["url"] != tt.wantURL {
			t.Errorf("Process(%q) url = %q, want %q", tt.cmd, resp.Data["url"], tt.wantURL)
		}
	}
}

func TestProcessInstagram(t *testing.T) {
	p := newTestProcessor()

	resp, handled := p.Process("open natgeo on instagram", nil)
	if !handled {
		t.Fatal("instagram username should be handled")
	}
	if resp.Data["url"] != "https://www.instagram.com/natgeo" {
		t.Errorf("username url = %q", resp.Data["url"])
	}

	resp, handled = p.Process("find street photography on instagram", nil)
	if !handled {
		t.Fatal("instagram search should be handled")
	}
	if resp.Data["url"] != "https://www.instagram.com/explore/tags/streetphotography" {
		t.Errorf("hashtag url = %q", resp.Data["url"])
	}
}

func TestProcessDirections(t *testing.T) {
	p := newTestProcessor()

	resp, handled := p.Process("directions to central park from brooklyn", nil)
	if !handled {
		t.Fatal("directions should be handled")
	}
	want := "https://www.google.com/maps/dir/brooklyn/central+park"
	if resp.Data["url"] != want {
		t.Errorf("url = %q, want %q", resp.Data["url"], want)
	}

	resp, _ = p.Process("directions to the airport", nil)
	if resp.Data["url"] != "https://www.google.com/maps/dir//the+airport" {
		t.Errorf("url = %q", resp.Data["url"])
	}
}

func TestProcessNews(t *testing.T) {
	p := newTestProcessor()

	resp, handled := p.Process("news about climate change", nil)
	if !handled {
		t.Fatal("news should be handled")
	}
	if resp.Data["url"] != "https://news.google.com/search?q=climate+change" {
		t.Errorf("url = %q", resp.Data["url"])
	}
}

func TestProcessEmail(t *testing.T) {
	p := newTestProcessor()

	resp, handled := p.Process("check email on outlook", nil)
	if !handled {
		t.Fatal("email should be handled")
	}
	if resp.Data["url"] != "https://outlook.live.com" {
		t.Errorf("url = %q, want outlook", resp.Data["url"])
	}
}

func TestProcessStreaming(t *testing.T) {
	p := newTestProcessor()

	resp, handled := p.Process("open hbo max", nil)
	if !handled {
		t.Fatal("streaming should be handled")
	}
	if resp.Data["url"] != "https://www.hbomax.com" {
		t.Errorf("url = %q", resp.Data["url"])
	}
	if resp.Response != "Opening Hbo Max" {
		t.Errorf("response = %q, want Opening Hbo Max", resp.Response)
	}
}

func TestProcessOpenSite(t *testing.T) {
	p := newTestProcessor()

	resp, handled := p.Process("open github", nil)
	if !handled || resp.Data["url"] != "https://github.com" {
		t.Errorf("url = %q, want github", resp.Data["url"])
	}

	// longest key wins
	resp, _ = p.Process("open google maps", nil)
	if resp.Data["url"] != "https://maps.google.com" {
		t.Errorf("url = %q, want maps", resp.Data["url"])
	}
}

func TestProcessOpenOnGoogle(t *testing.T) {
	p := newTestProcessor()

	resp, handled := p.Process("open best pizza near me on google", nil)
	if !handled {
		t.Fatal("google search should be handled")
	}
	if resp.Data["url"] != "https://www.google.com/search?q=best+pizza+near+me" {
		t.Errorf("url = %q", resp.Data["url"])
	}
}

func TestProcessOpenUnknownApp(t *testing.T) {
	p := newTestProcessor()

	resp, handled := p.Process("open calculator", nil)
	if !handled || resp.Action != ActionOpenApp {
		t.Fatalf("action = %q, want open_app", resp.Action)
	}
	if resp.Data["app_name"] != "Calculator" {
		t.Errorf("app_name = %q, want Calculator", resp.Data["app_name"])
	}
}

func TestProcessTimeAndDate(t *testing.T) {
	p := newTestProcessor()

	resp, handled := p.Process("what time is it", nil)
	if !handled {
		t.Fatal("time should be handled")
	}
	if resp.Response != "It's 03:04 PM" {
		t.Errorf("response = %q", resp.Response)
	}

	resp, handled = p.Process("what's today's date", nil)
	if !handled {
		t.Fatal("date should be handled")
	}
	if resp.Response != "Today is March 14, 2025" {
		t.Errorf("response = %q", resp.Response)
	}
}

func TestProcessUnknownGoesToModel(t *testing.T) {
	p := newTestProcessor()

	if _, handled := p.Process("recommend a good science fiction book", nil); handled {
		t.Error("free-form question should go to the model")
	}
}

func TestParseInfoQuery(t *testing.T) {
	tests := []struct {
		cmd        string
		wantSubj   string
		wantPerson bool
		wantOK     bool
	}{
		{"who is Ada Lovelace", "ada lovelace", true, true},
		{"what is photosynthesis", "photosynthesis", false, true},
		{"tell me about the roman empire", "the roman empire", false, true},
		{"who's marie curie", "marie curie", true, true},
		{"turn off the lights", "", false, false},
		{"what is", "", false, false},
	}

	for _, tt := range tests {
		subj, person, ok := ParseInfoQuery(tt.cmd)
		if ok != tt.wantOK || subj != tt.wantSubj || person != tt.wantPerson {
			t.Errorf("ParseInfoQuery(%q) = (%q, %v, %v), want (%q, %v, %v)",
				tt.cmd, subj, person, ok, tt.wantSubj, tt.wantPerson, tt.wantOK)
		}
	}
}
