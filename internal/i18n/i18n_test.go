package i18n

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestResolveHonorsQValues(t *testing.T) {
	b, err := LoadEmbedded("en", []string{"en", "de", "fr"})
	require.NoError(t, err)

	require.Equal(t, "de", b.Resolve("en;q=0.8, de;q=0.9"))
	require.Equal(t, "fr", b.Resolve("fr-CA,en;q=0.5"))
	require.Equal(t, "en", b.Resolve("ja"))
	require.Equal(t, "en", b.Resolve(""))
}

func TestTranslateFallsBack(t *testing.T) {
	b, err := LoadEmbedded("en", nil)
	require.NoError(t, err)

	fr := b.For("fr")
	require.Equal(t, "fr", fr.Lang)
	require.Equal(t, "Fermer", fr.T("picker.close"))
	// key missing from fr.json falls back to English
	require.Equal(t, "Price score", fr.T("datatable.price_score"))
	require.Equal(t, "no.such.key", fr.T("no.such.key"))
	require.Equal(t, "default", fr.TOr("no.such.key", "default"))

	require.Equal(t, "en", b.For("xx").Lang)
}

func TestLoadRequiresFallback(t *testing.T) {
	fsys := fstest.MapFS{
		"de.json": {Data: []byte(`{"a": "b"}`)},
	}
	_, err := Load(fsys, "en", []string{"en", "de"})
	require.Error(t, err)

	fsys["en.json"] = &fstest.MapFile{Data: []byte(`{"a": "c"}`)}
	b, err := Load(fsys, "en", []string{"en", "de", "it"})
	require.NoError(t, err)
	require.Equal(t, []string{"en", "de"}, b.Supported())
	require.False(t, b.IsSupported("it"))
}

func TestRegionName(t *testing.T) {
	b, err := LoadEmbedded("en", nil)
	require.NoError(t, err)

	require.Equal(t, "Germany", b.For("en").RegionName("DE"))
	require.Equal(t, "Deutschland", b.For("de").RegionName("DE"))
	require.Equal(t, "??", b.For("en").RegionName("??"))
}

func TestLanguageName(t *testing.T) {
	require.Equal(t, "Deutsch", LanguageName("de"))
	require.Equal(t, "français", LanguageName("fr"))
	require.Equal(t, "!!", LanguageName("!!"))
}
