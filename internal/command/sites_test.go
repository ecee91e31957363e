package command

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSitesFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadCatalogEmptyDir(t *testing.T) {
	cat, err := LoadCatalog("")
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if cat.Sites["youtube"] != "https://youtube.com" {
		t.Errorf("youtube = %q, want built-in default", cat.Sites["youtube"])
	}
}

func TestLoadCatalogOverlay(t *testing.T) {
	dir := t.TempDir()
	writeSitesFile(t, dir, "custom.yaml", `
sites:
  youtube: "https://yt.example.com"
  intranet: "https://wiki.example.com"
streaming:
  hbo max: "https://max.example.com"
email:
  proton: "https://mail.proton.me"
`)

	cat, err := LoadCatalog(dir)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	if cat.Sites["youtube"] != "https://yt.example.com" {
		t.Errorf("youtube = %q, overlay must override the built-in", cat.Sites["youtube"])
	}
	if cat.Sites["intranet"] != "https://wiki.example.com" {
		t.Errorf("intranet = %q, overlay must add new entries", cat.Sites["intranet"])
	}
	if cat.Sites["google"] != "https://google.com" {
		t.Errorf("google = %q, untouched built-ins must survive", cat.Sites["google"])
	}
	if cat.Streaming["hbo max"] != "https://max.example.com" {
		t.Errorf("hbo max = %q, want overlay value", cat.Streaming["hbo max"])
	}
	if cat.Email["proton"] != "https://mail.proton.me" {
		t.Errorf("proton = %q, want overlay value", cat.Email["proton"])
	}
}

func TestLoadCatalogLaterFileWins(t *testing.T) {
	dir := t.TempDir()
	writeSitesFile(t, dir, "a.yaml", "sites:\n  youtube: \"https://first.example.com\"\n")
	writeSitesFile(t, dir, "b.yaml", "sites:\n  youtube: \"https://second.example.com\"\n")

	cat, err := LoadCatalog(dir)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	if cat.Sites["youtube"] != "https://second.example.com" {
		t.Errorf("youtube = %q, lexically later file must win", cat.Sites["youtube"])
	}
}

func TestLoadCatalogMissingDir(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("LoadCatalog() error = nil, want missing-directory error")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %v, want sites directory not found", err)
	}
}

func TestLoadCatalogMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeSitesFile(t, dir, "bad.yaml", "sites: [not: a: map\n")

	_, err := LoadCatalog(dir)
	if err == nil {
		t.Fatal("LoadCatalog() error = nil, want parse error")
	}
	if !strings.Contains(err.Error(), "bad.yaml") {
		t.Errorf("error = %v, want the offending file named", err)
	}
}

func TestProcessorUsesOverlayCatalog(t *testing.T) {
	dir := t.TempDir()
	writeSitesFile(t, dir, "custom.yaml", "sites:\n  intranet: \"https://wiki.example.com\"\n")

	cat, err := LoadCatalog(dir)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}

	p := NewProcessor(cat)
	resp, handled := p.Process("open intranet", &fakeMathState{})
	if !handled {
		t.Fatal("Process(open intranet) not handled")
	}
	if resp.Action != ActionOpenURL || resp.Data["url"] != "https://wiki.example.com" {
		t.Errorf("resp = %+v, want open_url to the overlay entry", resp)
	}
}
