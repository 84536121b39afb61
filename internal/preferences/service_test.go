package preferences

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/terra-clan/compare-engine/internal/i18n"
	"github.com/terra-clan/compare-engine/internal/models"
	"github.com/terra-clan/compare-engine/internal/storage"
)

func newService(t *testing.T, store storage.Store) *Service {
	t.Helper()
	bundle, err := i18n.LoadEmbedded("en", nil)
	require.NoError(t, err)
	return NewService(store, bundle, "us")
}

func TestLoadFirstRun(t *testing.T) {
	t.Parallel()

	s := newService(t, storage.NewMemoryStore())
	loaded, err := s.Load(context.Background(), "c1", "de-DE,de;q=0.9", `"dark"`)
	require.NoError(t, err)

	require.False(t, loaded.RegionSaved)
	require.Equal(t, "US", loaded.Prefs.Region)
	require.Equal(t, "de", loaded.Prefs.Language)
	require.Equal(t, models.FilterAll, loaded.Prefs.TypeFilter)
	require.Equal(t, models.ThemeSystem, loaded.Prefs.Theme)
	require.Equal(t, models.ThemeDark, loaded.Prefs.ResolvedTheme)
}

func TestSettersPersist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	s := newService(t, store)

	loaded, err := s.Load(ctx, "c1", "", "")
	require.NoError(t, err)
	p := loaded.Prefs

	require.NoError(t, s.SetRegion(ctx, "c1", &p, "de"))
	require.NoError(t, s.SetLanguage(ctx, "c1", &p, "FR"))
	require.NoError(t, s.SetTypeFilter(ctx, "c1", &p, "headphone"))
	require.NoError(t, s.ApplyTheme(ctx, "c1", &p, "dark", ""))

	saved, err := store.GetAll(ctx, "c1")
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		models.KeyRegion:     "DE",
		models.KeyLanguage:   "fr",
		models.KeyTypeFilter: "headphone",
		models.KeyTheme:      "dark",
	}, saved)

	again, err := s.Load(ctx, "c1", "en", "light")
	require.NoError(t, err)
	require.True(t, again.RegionSaved)
	require.Equal(t, p, again.Prefs)
}

func TestSettersRejectInvalidValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	s := newService(t, store)
	p := models.DefaultPreferences("US", "en")

	require.ErrorIs(t, s.SetRegion(ctx, "c1", &p, "Narnia"), ErrInvalidPreference)
	require.ErrorIs(t, s.SetLanguage(ctx, "c1", &p, "ja"), ErrInvalidPreference)
	require.ErrorIs(t, s.ApplyTheme(ctx, "c1", &p, "sepia", ""), ErrInvalidPreference)
	require.Equal(t, models.DefaultPreferences("US", "en"), p)

	saved, err := store.GetAll(ctx, "c1")
	require.NoError(t, err)
	require.Empty(t, saved)
}

func TestSystemThemeResolvedAtApplyTime(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newService(t, storage.NewMemoryStore())
	p := models.DefaultPreferences("US", "en")

	require.NoError(t, s.ApplyTheme(ctx, "c1", &p, "system", "dark"))
	require.Equal(t, models.ThemeDark, p.ResolvedTheme)

	// a later hint change is not tracked until the theme is applied again
	require.Equal(t, models.ThemeDark, p.ResolvedTheme)
	require.NoError(t, s.ApplyTheme(ctx, "c1", &p, "system", "light"))
	require.Equal(t, models.ThemeLight, p.ResolvedTheme)

	require.Equal(t, models.ThemeLight, ResolveTheme(models.ThemeLight, "dark"))
	require.Equal(t, models.ThemeLight, ResolveTheme(models.ThemeSystem, ""))
}

func TestLoadIgnoresCorruptValues(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.SetItem(ctx, "c1", models.KeyRegion, "??"))
	require.NoError(t, store.SetItem(ctx, "c1", models.KeyLanguage, "klingon"))
	require.NoError(t, store.SetItem(ctx, "c1", models.KeyTheme, "neon"))

	loaded, err := newService(t, store).Load(ctx, "c1", "fr", "")
	require.NoError(t, err)
	require.False(t, loaded.RegionSaved)
	require.Equal(t, "US", loaded.Prefs.Region)
	require.Equal(t, "fr", loaded.Prefs.Language)
	require.Equal(t, models.ThemeSystem, loaded.Prefs.Theme)
}

type failingStore struct{ storage.Store }

func (failingStore) GetAll(context.Context, string) (map[string]string, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) SetItem(context.Context, string, string, string) error {
	return errors.New("connection refused")
}

func TestStoreFailureKeepsInMemoryChange(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newService(t, failingStore{})

	loaded, err := s.Load(ctx, "c1", "", "")
	require.Error(t, err)
	require.Equal(t, "US", loaded.Prefs.Region)

	p := loaded.Prefs
	err = s.SetRegion(ctx, "c1", &p, "DE")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidPreference)
	require.Equal(t, "DE", p.Region)
}
