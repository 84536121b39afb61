package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/compare-engine/internal/api"
	"github.com/terra-clan/compare-engine/internal/catalog"
	"github.com/terra-clan/compare-engine/internal/config"
	"github.com/terra-clan/compare-engine/internal/health"
	"github.com/terra-clan/compare-engine/internal/i18n"
	"github.com/terra-clan/compare-engine/internal/models"
	"github.com/terra-clan/compare-engine/internal/preferences"
	"github.com/terra-clan/compare-engine/internal/render"
	"github.com/terra-clan/compare-engine/internal/session"
	"github.com/terra-clan/compare-engine/internal/storage"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	bundle, err := i18n.LoadEmbedded("en", nil)
	require.NoError(t, err)
	renderer, err := render.NewRenderer()
	require.NoError(t, err)

	cat := catalog.New([]*models.Product{
		{ID: 1, Name: "Sony WF-1000XM5", Type: models.TypeEarbud, Scores: map[string]float64{"price": 6.5}},
		{ID: 2, Name: "Sony WH-1000XM5", Type: models.TypeHeadphone, Scores: map[string]float64{"price": 5.5}},
	})
	manager := session.NewManager(cat, preferences.NewService(storage.NewMemoryStore(), bundle, "US"), bundle, nil, time.Minute)
	t.Cleanup(manager.Close)

	srv := httptest.NewServer(api.NewServer(config.ServerConfig{}, manager, renderer, health.NewRegistry(time.Second)).Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestClientRoundTrip(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	ctx := context.Background()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)
	require.NoError(t, c.Health(ctx))

	cat, err := c.Catalog(ctx, CatalogOptions{Type: "headphone"})
	require.NoError(t, err)
	require.Equal(t, 1, cat.Total)
	require.Equal(t, 2, cat.Products[0].ID)

	snap, err := c.Choose(ctx, 0, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), snap.Seq)
	require.Equal(t, 1, snap.Page.Comparison.Cards[0].ProductID)
	require.NotEmpty(t, c.ClientID())

	_, err = c.Choose(ctx, 1, 1)
	require.True(t, IsCode(err, "already_selected"))

	var apiErr *APIError
	_, err = c.Choose(ctx, 1, 99)
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusNotFound, apiErr.Status)

	snap, err = c.Remove(ctx, 0)
	require.NoError(t, err)
	require.True(t, snap.Page.Comparison.Cards[0].Placeholder)
}

func TestClientIDResumesState(t *testing.T) {
	t.Parallel()

	srv := newServer(t)
	ctx := context.Background()
	id := uuid.NewString()

	first, err := NewClient(srv.URL, WithClientID(id), WithTimeout(5*time.Second))
	require.NoError(t, err)
	_, err = first.Choose(ctx, 0, 2)
	require.NoError(t, err)

	second, err := NewClient(srv.URL, WithClientID(id))
	require.NoError(t, err)
	state, err := second.State(ctx)
	require.NoError(t, err)
	require.Equal(t, id, second.ClientID())
	require.Equal(t, 2, state.Page.Comparison.Cards[0].ProductID)

	other, err := NewClient(srv.URL, WithHTTPClient(&http.Client{}))
	require.NoError(t, err)
	state, err = other.State(ctx)
	require.NoError(t, err)
	require.True(t, state.Page.Comparison.Cards[0].Placeholder)
}
