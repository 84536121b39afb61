package preferences

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/terra-clan/compare-engine/internal/i18n"
	"github.com/terra-clan/compare-engine/internal/models"
	"github.com/terra-clan/compare-engine/internal/region"
	"github.com/terra-clan/compare-engine/internal/storage"
)

// ErrInvalidPreference is returned for values outside a preference's domain
var ErrInvalidPreference = errors.New("invalid preference value")

// Service loads and persists client preferences
type Service struct {
	store         storage.Store
	bundle        *i18n.Bundle
	defaultRegion string
}

// NewService creates a preference service over store
func NewService(store storage.Store, bundle *i18n.Bundle, defaultRegion string) *Service {
	if code, ok := region.Normalize(defaultRegion); ok {
		defaultRegion = code
	} else {
		defaultRegion = models.DefaultRegion
	}
	return &Service{store: store, bundle: bundle, defaultRegion: defaultRegion}
}

// Loaded is the result of reading a client's saved preferences
type Loaded struct {
	Prefs models.Preferences
	// RegionSaved is false on a first run; the caller then detects the
	// region and asks the client to confirm it
	RegionSaved bool
}

// Load reads the client's saved preferences. Missing or invalid values fall
// back to defaults: the Accept-Language match for the language and the
// colorHint for a system theme. A store failure yields defaults plus the error.
func (s *Service) Load(ctx context.Context, clientID, acceptLanguage, colorHint string) (Loaded, error) {
	out := Loaded{
		Prefs: models.DefaultPreferences(s.defaultRegion, s.bundle.Resolve(acceptLanguage)),
	}
	out.Prefs.ResolvedTheme = ResolveTheme(models.ThemeSystem, colorHint)

	saved, err := s.store.GetAll(ctx, clientID)
	if err != nil {
		return out, fmt.Errorf("failed to load preferences: %w", err)
	}

	if v, ok := saved[models.KeyRegion]; ok {
		if code, valid := region.Normalize(v); valid {
			out.Prefs.Region = code
			out.RegionSaved = true
		}
	}
	if v, ok := saved[models.KeyLanguage]; ok && s.bundle.IsSupported(v) {
		out.Prefs.Language = v
	}
	if v, ok := saved[models.KeyTypeFilter]; ok && v != "" {
		out.Prefs.TypeFilter = v
	}
	if v, ok := saved[models.KeyTheme]; ok {
		if theme, valid := models.ParseTheme(v); valid {
			out.Prefs.Theme = theme
			out.Prefs.ResolvedTheme = ResolveTheme(theme, colorHint)
		}
	}

	return out, nil
}

// ResolveTheme maps a theme mode to light or dark. System follows the
// client's color-scheme hint at call time only.
func ResolveTheme(mode models.Theme, colorHint string) models.Theme {
	switch mode {
	case models.ThemeLight, models.ThemeDark:
		return mode
	}
	hint := strings.ToLower(strings.Trim(strings.TrimSpace(colorHint), `"`))
	if hint == string(models.ThemeDark) {
		return models.ThemeDark
	}
	return models.ThemeLight
}

// ApplyTheme sets and persists the theme, resolving system mode with colorHint
func (s *Service) ApplyTheme(ctx context.Context, clientID string, p *models.Preferences, mode, colorHint string) error {
	theme, ok := models.ParseTheme(mode)
	if !ok {
		return fmt.Errorf("%w: theme %q", ErrInvalidPreference, mode)
	}
	p.Theme = theme
	p.ResolvedTheme = ResolveTheme(theme, colorHint)
	return s.persist(ctx, clientID, models.KeyTheme, string(theme))
}

// SetRegion validates, sets and persists the region
func (s *Service) SetRegion(ctx context.Context, clientID string, p *models.Preferences, code string) error {
	normalized, ok := region.Normalize(code)
	if !ok {
		return fmt.Errorf("%w: region %q", ErrInvalidPreference, code)
	}
	p.Region = normalized
	return s.persist(ctx, clientID, models.KeyRegion, normalized)
}

// SetLanguage sets and persists a supported language
func (s *Service) SetLanguage(ctx context.Context, clientID string, p *models.Preferences, lang string) error {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if !s.bundle.IsSupported(lang) {
		return fmt.Errorf("%w: language %q", ErrInvalidPreference, lang)
	}
	p.Language = lang
	return s.persist(ctx, clientID, models.KeyLanguage, lang)
}

// SetTypeFilter persists the type filter. Callers check the filter against
// the catalog's types first.
func (s *Service) SetTypeFilter(ctx context.Context, clientID string, p *models.Preferences, filter string) error {
	if filter == "" {
		filter = models.FilterAll
	}
	p.TypeFilter = filter
	return s.persist(ctx, clientID, models.KeyTypeFilter, filter)
}

// persist writes one key. The in-memory preference is already updated, so
// a failed write only loses durability.
func (s *Service) persist(ctx context.Context, clientID, key, value string) error {
	if err := s.store.SetItem(ctx, clientID, key, value); err != nil {
		slog.Warn("failed to persist preference",
			"client_id", clientID,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to persist %s: %w", key, err)
	}
	return nil
}
