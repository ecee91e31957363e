// ============================================================================
// Ballsy - Voice Assistant Backend
// ============================================================================
//
// Package:     version
// Description: Central version management for the backend components
// License:     MIT
// ============================================================================

package version

// Version constants for the Ballsy backend
const (
	// Application version
	App = "1.0.0"

	// Component versions
	Server    = "1.0.0"
	Assistant = "1.0.0"
	Store     = "1.0.0"
)

// ComponentVersion returns the version for a given component name
func ComponentVersion(name string) string {
	switch name {
	case "server":
		return Server
	case "assistant":
		return Assistant
	case "store":
		return Store
	default:
		return App
	}
}
