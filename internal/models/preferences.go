package models

import "strings"

// Theme is the color scheme preference
type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

// ParseTheme normalizes a theme name; unknown values yield ThemeSystem
func ParseTheme(s string) (Theme, bool) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeSystem:
		return ThemeSystem, true
	case ThemeLight:
		return ThemeLight, true
	case ThemeDark:
		return ThemeDark, true
	}
	return ThemeSystem, false
}

// Persisted preference keys
const (
	KeyTheme      = "theme"
	KeyRegion     = "region"
	KeyLanguage   = "lang"
	KeyTypeFilter = "type_filter"
)

// Preferences are the per-client settings persisted across sessions
type Preferences struct {
	Region     string `json:"region"`
	Language   string `json:"language"`
	TypeFilter string `json:"type_filter"`
	Theme      Theme  `json:"theme"`
	// ResolvedTheme is light or dark; system is resolved when the theme is applied
	ResolvedTheme Theme `json:"resolved_theme"`
}

// DefaultPreferences returns preferences for a client with nothing saved
func DefaultPreferences(region, language string) Preferences {
	if region == "" {
		region = DefaultRegion
	}
	if language == "" {
		language = "en"
	}
	return Preferences{
		Region:        region,
		Language:      language,
		TypeFilter:    FilterAll,
		Theme:         ThemeSystem,
		ResolvedTheme: ThemeLight,
	}
}
