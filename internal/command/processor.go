// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     command
// Description: Rule-based classification of transcribed voice commands
// License:     MIT
// ============================================================================

package command

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
)

// Actions a response can carry for the front end to execute.
const (
	ActionOpenURL = "open_url"
	ActionOpenApp = "open_app"
	ActionSearch  = "search"
	ActionExit    = "exit"
)

// Response is the outcome of classifying a command. Response holds a
// speakable sentence; Action and Data tell the front end what to do.
type Response struct {
	Response string            `json:"response"`
	Action   string            `json:"action,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}

// MathState tracks the last numeric result so continuations like "+ 6"
// can chain onto it. Implemented by the session layer.
type MathState interface {
	LastResult() (float64, bool)
	SetLastResult(float64)
}

var (
	reMathFull   = regexp.MustCompile(`^(?i)(?:what'?s\s*)?([\d\s+\-*/]+)$`)
	reMathCont   = regexp.MustCompile(`^\s*[+\-*/]\s*\d+`)
	reFarewell   = regexp.MustCompile(`\b(bye|goodbye|exit|stop|quit)\b`)
	reOpen       = regexp.MustCompile(`open\s+(.+?)(?:\s+on\s+google)?$`)
	reDirections = regexp.MustCompile(`directions to\s+(.+?)(?:\s+from\s+(.+))?$`)
	reOnMaps     = regexp.MustCompile(`(?:find|search|locate|show)?\s*(.+?)\s+on\s+(?:maps|google maps)`)
	reNews       = regexp.MustCompile(`(?:news about|latest news on)\s+(.+)`)
)

// siteSearch describes a "<query> on <site>" pattern.
type siteSearch struct {
	trigger string
	re      *regexp.Regexp
	url     func(query string) string
	speak   string
}

var siteSearches = []siteSearch{
	{
		trigger: "on youtube",
		re:      regexp.MustCompile(`(?:open|search|play|watch)?\s*(.+?)\s+on\s+youtube`),
		url: func(q string) string {
			return "https://www.youtube.com/results?search_query=" + plusEscape(q)
		},
		speak: "Opening %s on YouTube",
	},
	{
		trigger: "on spotify",
		re:      regexp.MustCompile(`(?:open|search|play|listen to)?\s*(.+?)\s+on\s+spotify`),
		url: func(q string) string {
			return "https://open.spotify.com/search/" + pctEscape(q)
		},
		speak: "Opening %s on Spotify",
	},
	{
		trigger: "on netflix",
		re:      regexp.MustCompile(`(?:open|search|play|watch)?\s*(.+?)\s+on\s+netflix`),
		url: func(q string) string {
			return "https://www.netflix.com/search?q=" + pctEscape(q)
		},
		speak: "Opening %s on Netflix",
	},
	{
		trigger: "on amazon",
		re:      regexp.MustCompile(`(?:open|search|find|buy)?\s*(.+?)\s+on\s+amazon`),
		url: func(q string) string {
			return "https://www.amazon.com/s?k=" + plusEscape(q)
		},
		speak: "Opening %s on Amazon",
	},
	{
		trigger: "on facebook",
		re:      regexp.MustCompile(`(?:open|search|find)?\s*(.+?)\s+on\s+facebook`),
		url: func(q string) string {
			return "https://www.facebook.com/search/top/?q=" + pctEscape(q)
		},
		speak: "Opening %s on Facebook",
	},
}

var reTwitter = regexp.MustCompile(`(?:open|search|find)?\s*(.+?)\s+on\s+(?:twitter|x)`)
var reInstagram = regexp.MustCompile(`(?:open|search|find)?\s*(.+?)\s+on\s+instagram`)

func plusEscape(q string) string {
	return strings.ReplaceAll(q, " ", "+")
}

func pctEscape(q string) string {
	return strings.ReplaceAll(q, " ", "%20")
}

// titleCase uppercases the first letter of each word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

// Processor classifies transcribed commands against the rule set, in a
// fixed order. Anything it cannot handle goes to the language model.
type Processor struct {
	catalog *Catalog
	now     func() time.Time

	// catalog keys sorted longest first so "google maps" beats "google"
	siteKeys      []string
	streamingKeys []string
}

// NewProcessor creates a Processor over the given catalog. A nil catalog
// uses the built-in defaults.
func NewProcessor(catalog *Catalog) *Processor {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	p := &Processor{catalog: catalog, now: time.Now}
	p.siteKeys = sortedByLength(catalog.Sites)
	p.streamingKeys = sortedByLength(catalog.Streaming)
	return p
}

func sortedByLength(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// Process classifies cmd and returns the response when a rule matched.
// handled=false means the command needs the language model.
func (p *Processor) Process(cmd string, state MathState) (*Response, bool) {
	cmd = strings.TrimSpace(cmd)
	lower := strings.ToLower(cmd)

	if cmd == "" {
		return &Response{Response: "I didn't catch that. Could you please repeat?"}, true
	}

	// Greetings
	if lower == "hello" || lower == "hi" || lower == "hey" {
		return &Response{Response: "Hi there! I'm Ballsy, your voice assistant. How can I help?"}, true
	}

	// Name questions
	if containsAny(lower, "what's your name", "who are you", "what are you called") {
		return &Response{Response: "I'm Ballsy, your personal voice assistant!"}, true
	}

	// How are you
	if containsAny(lower, "how are you", "how's it going", "what's up") {
		return &Response{Response: "I'm doing great! Ready to help you with anything you need!"}, true
	}

	// Exit commands
	if reFarewell.MatchString(lower) {
		return &Response{Response: "Goodbye! Take care!", Action: ActionExit}, true
	}

	// Math expressions and continuations
	if resp, ok := p.handleMath(cmd, state); ok {
		return resp, true
	}

	// "<query> on <site>" searches
	if resp, ok := p.handleSiteSearch(lower); ok {
		return resp, true
	}

	// Maps and directions
	if resp, ok := p.handleMaps(lower); ok {
		return resp, true
	}

	// News searches
	if containsAny(lower, "news about", "latest news on") {
		if m := reNews.FindStringSubmatch(lower); m != nil {
			topic := strings.TrimSpace(m[1])
			return &Response{
				Response: fmt.Sprintf("Here's the latest news about %s", topic),
				Action:   ActionOpenURL,
				Data: map[string]string{
					"url":         "https://news.google.com/search?q=" + plusEscape(topic),
					"description": fmt.Sprintf("News about %s", topic),
				},
			}, true
		}
	}

	// Email
	if strings.Contains(lower, "open email") || strings.Contains(lower, "check email") {
		url := p.catalog.Email["gmail"]
		for provider, providerURL := range p.catalog.Email {
			if strings.Contains(lower, provider) {
				url = providerURL
				break
			}
		}
		return &Response{
			Response: "Opening your email",
			Action:   ActionOpenURL,
			Data:     map[string]string{"url": url, "description": "Email"},
		}, true
	}

	// Streaming services
	for _, service := range p.streamingKeys {
		if strings.Contains(lower, "open "+service) {
			return &Response{
				Response: fmt.Sprintf("Opening %s", titleCase(service)),
				Action:   ActionOpenURL,
				Data: map[string]string{
					"url":         p.catalog.Streaming[service],
					"description": titleCase(service),
				},
			}, true
		}
	}

	// Open commands for websites and apps
	if strings.Contains(lower, "open") {
		if resp, ok := p.handleOpen(lower); ok {
			return resp, true
		}
	}

	// Time
	if strings.Contains(lower, "time") && containsAny(lower, "what", "current", "right now") {
		return &Response{Response: fmt.Sprintf("It's %s", p.now().Format("03:04 PM"))}, true
	}

	// Date
	if strings.Contains(lower, "date") && containsAny(lower, "what", "today", "current") {
		return &Response{Response: fmt.Sprintf("Today is %s", p.now().Format("January 02, 2006"))}, true
	}

	return nil, false
}

func containsAny(s string, phrases ...string) bool {
	for _, phrase := range phrases {
		if strings.Contains(s, phrase) {
			return true
		}
	}
	return false
}

// handleMath evaluates full expressions and continuations on the last
// result. A continuation with no prior result is left to the language
// model.
func (p *Processor) handleMath(cmd string, state MathState) (*Response, bool) {
	if reMathCont.MatchString(cmd) {
		if state != nil {
			if last, ok := state.LastResult(); ok {
				expr := FormatNumber(last) + " " + cmd
				return p.evaluate(expr, state)
			}
		}
		return nil, false
	}

	if m := reMathFull.FindStringSubmatch(cmd); m != nil {
		expr := strings.TrimSpace(m[1])
		// a bare number is not a calculation
		if !strings.ContainsAny(expr, "+-*/") {
			return nil, false
		}
		return p.evaluate(expr, state)
	}

	return nil, false
}

func (p *Processor) evaluate(expr string, state MathState) (*Response, bool) {
	result, err := Evaluate(expr)
	if err == ErrDivisionByZero {
		return &Response{Response: "I can't divide by zero."}, true
	}
	if err != nil {
		return nil, false
	}
	if state != nil {
		state.SetLastResult(result)
	}
	return &Response{Response: FormatNumber(result)}, true
}

func (p *Processor) handleSiteSearch(lower string) (*Response, bool) {
	for _, site := range siteSearches {
		if !strings.Contains(lower, site.trigger) {
			continue
		}
		m := site.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		query := strings.TrimSpace(m[1])
		return &Response{
			Response: fmt.Sprintf(site.speak, query),
			Action:   ActionOpenURL,
			Data: map[string]string{
				"url":         site.url(query),
				"description": strings.TrimPrefix(fmt.Sprintf(site.speak, query), "Opening "),
			},
		}, true
	}

	// Twitter / X
	if containsAny(lower, "on twitter", "on x") {
		if m := reTwitter.FindStringSubmatch(lower); m != nil {
			query := strings.TrimSpace(m[1])
			return &Response{
				Response: fmt.Sprintf("Opening %s on Twitter", query),
				Action:   ActionOpenURL,
				Data: map[string]string{
					"url":         "https://twitter.com/search?q=" + pctEscape(query),
					"description": fmt.Sprintf("%s on Twitter", query),
				},
			}, true
		}
	}

	// Instagram distinguishes usernames from hashtag searches
	if strings.Contains(lower, "on instagram") {
		if m := reInstagram.FindStringSubmatch(lower); m != nil {
			query := strings.TrimSpace(m[1])
			if !strings.Contains(query, " ") {
				return &Response{
					Response: fmt.Sprintf("Opening %s's Instagram", query),
					Action:   ActionOpenURL,
					Data: map[string]string{
						"url":         "https://www.instagram.com/" + query,
						"description": fmt.Sprintf("%s's Instagram", query),
					},
				}, true
			}
			return &Response{
				Response: fmt.Sprintf("Opening #%s on Instagram", query),
				Action:   ActionOpenURL,
				Data: map[string]string{
					"url":         "https://www.instagram.com/explore/tags/" + strings.ReplaceAll(query, " ", ""),
					"description": fmt.Sprintf("#%s on Instagram", query),
				},
			}, true
		}
	}

	return nil, false
}

func (p *Processor) handleMaps(lower string) (*Response, bool) {
	if !containsAny(lower, "on maps", "on google maps", "directions to") {
		return nil, false
	}

	if strings.Contains(lower, "directions to") {
		m := reDirections.FindStringSubmatch(lower)
		if m == nil {
			return nil, false
		}
		destination := strings.TrimSpace(m[1])
		origin := strings.TrimSpace(m[2])
		if origin != "" {
			return &Response{
				Response: fmt.Sprintf("Getting directions from %s to %s", origin, destination),
				Action:   ActionOpenURL,
				Data: map[string]string{
					"url":         fmt.Sprintf("https://www.google.com/maps/dir/%s/%s", plusEscape(origin), plusEscape(destination)),
					"description": fmt.Sprintf("Directions from %s to %s", origin, destination),
				},
			}, true
		}
		return &Response{
			Response: fmt.Sprintf("Getting directions to %s", destination),
			Action:   ActionOpenURL,
			Data: map[string]string{
				"url":         "https://www.google.com/maps/dir//" + plusEscape(destination),
				"description": fmt.Sprintf("Directions to %s", destination),
			},
		}, true
	}

	if m := reOnMaps.FindStringSubmatch(lower); m != nil {
		location := strings.TrimSpace(m[1])
		return &Response{
			Response: fmt.Sprintf("Showing %s on Maps", location),
			Action:   ActionOpenURL,
			Data: map[string]string{
				"url":         "https://www.google.com/maps/search/" + plusEscape(location),
				"description": fmt.Sprintf("%s on Maps", location),
			},
		}, true
	}

	return nil, false
}

func (p *Processor) handleOpen(lower string) (*Response, bool) {
	m := reOpen.FindStringSubmatch(lower)
	if m == nil {
		return nil, false
	}
	target := strings.TrimSpace(m[1])

	if strings.Contains(lower, " on google") {
		return &Response{
			Response: fmt.Sprintf("Searching for %s on Google", target),
			Action:   ActionOpenURL,
			Data: map[string]string{
				"url":         "https://www.google.com/search?q=" + plusEscape(target),
				"description": fmt.Sprintf("%s on Google", target),
			},
		}, true
	}

	for _, site := range p.siteKeys {
		if strings.Contains(target, site) {
			return &Response{
				Response: fmt.Sprintf("Opening %s", titleCase(site)),
				Action:   ActionOpenURL,
				Data: map[string]string{
					"url":         p.catalog.Sites[site],
					"description": titleCase(site),
				},
			}, true
		}
	}

	// Not a known site, hand it to the front end as an app name
	return &Response{
		Response: fmt.Sprintf("Opening %s", target),
		Action:   ActionOpenApp,
		Data:     map[string]string{"app_name": titleCase(target)},
	}, true
}

// infoPhrases introduce an informational question the language model
// should answer.
var infoPhrases = []string{"who is", "who's", "what is", "what's", "tell me about"}

// ParseInfoQuery extracts the subject of an informational question such
// as "who is Ada Lovelace" or "tell me about photosynthesis". person
// reports whether the question asks about a person.
func ParseInfoQuery(cmd string) (subject string, person bool, ok bool) {
	lower := strings.ToLower(strings.TrimSpace(cmd))
	if !containsAny(lower, infoPhrases...) {
		return "", false, false
	}

	person = containsAny(lower, "who is", "who's")

	subject = lower
	for _, phrase := range infoPhrases {
		subject = strings.ReplaceAll(subject, phrase, "")
	}
	subject = strings.TrimSpace(subject)

	return subject, person, subject != ""
}
