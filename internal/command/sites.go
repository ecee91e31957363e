// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     command
// Description: Site catalog for open and search commands
// License:     MIT
// ============================================================================

package command

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Catalog maps spoken site names to URLs for open commands.
type Catalog struct {
	// Sites handles "open <site>"
	Sites map[string]string
	// Streaming handles "open <service>" for streaming platforms
	Streaming map[string]string
	// Email handles "open email <provider>"
	Email map[string]string
}

// DefaultCatalog returns the built-in site catalog.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Sites: map[string]string{
			"youtube":       "https://youtube.com",
			"google":        "https://google.com",
			"gmail":         "https://mail.google.com",
			"spotify":       "https://open.spotify.com",
			"netflix":       "https://netflix.com",
			"amazon":        "https://amazon.com",
			"facebook":      "https://facebook.com",
			"instagram":     "https://instagram.com",
			"twitter":       "https://twitter.com",
			"x":             "https://twitter.com",
			"linkedin":      "https://linkedin.com",
			"reddit":        "https://reddit.com",
			"twitch":        "https://twitch.tv",
			"disney plus":   "https://disneyplus.com",
			"disney+":       "https://disneyplus.com",
			"hulu":          "https://hulu.com",
			"github":        "https://github.com",
			"stackoverflow": "https://stackoverflow.com",
			"pinterest":     "https://pinterest.com",
			"maps":          "https://maps.google.com",
			"google maps":   "https://maps.google.com",
		},
		Streaming: map[string]string{
			"netflix":      "https://www.netflix.com",
			"hulu":         "https://www.hulu.com",
			"disney plus":  "https://www.disneyplus.com",
			"disney+":      "https://www.disneyplus.com",
			"prime video":  "https://www.amazon.com/Prime-Video",
			"amazon prime": "https://www.amazon.com/Prime-Video",
			"hbo":          "https://www.hbomax.com",
			"hbo max":      "https://www.hbomax.com",
			"peacock":      "https://www.peacocktv.com",
			"paramount":    "https://www.paramountplus.com",
			"paramount+":   "https://www.paramountplus.com",
			"apple tv":     "https://tv.apple.com",
			"apple tv+":    "https://tv.apple.com",
		},
		Email: map[string]string{
			"gmail":   "https://mail.google.com",
			"outlook": "https://outlook.live.com",
			"yahoo":   "https://mail.yahoo.com",
		},
	}
}

// catalogFile is the YAML overlay format for a single catalog file.
type catalogFile struct {
	Sites     map[string]string `yaml:"sites"`
	Streaming map[string]string `yaml:"streaming"`
	Email     map[string]string `yaml:"email"`
}

// LoadCatalog returns the default catalog merged with YAML overlay files
// from dir. Overlay entries win over built-ins. An empty dir returns the
// defaults unchanged.
func LoadCatalog(dir string) (*Catalog, error) {
	cat := DefaultCatalog()
	if dir == "" {
		return cat, nil
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("sites directory not found: %s", dir)
	}

	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to scan sites directory: %w", err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}

		for name, url := range file.Sites {
			cat.Sites[name] = url
		}
		for name, url := range file.Streaming {
			cat.Streaming[name] = url
		}
		for name, url := range file.Email {
			cat.Email[name] = url
		}
	}

	return cat, nil
}
