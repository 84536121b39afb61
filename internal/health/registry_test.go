package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/terra-clan/compare-engine/internal/storage"
)

func TestCheckAll(t *testing.T) {
	t.Parallel()

	r := NewRegistry(time.Second)
	r.Register("store", Ping(storage.NewMemoryStore()))
	r.Register("catalog", CheckerFunc(func(context.Context) error { return ErrCatalogNotLoaded }))
	require.Equal(t, []string{"catalog", "store"}, r.List())

	results := r.CheckAll(context.Background())
	require.NoError(t, results["store"])
	require.ErrorIs(t, results["catalog"], ErrCatalogNotLoaded)
	require.False(t, Healthy(results))

	r.Unregister("catalog")
	require.True(t, Healthy(r.CheckAll(context.Background())))
}

func TestCheckTimeout(t *testing.T) {
	t.Parallel()

	r := NewRegistry(20 * time.Millisecond)
	r.Register("slow", CheckerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	results := r.CheckAll(context.Background())
	require.True(t, errors.Is(results["slow"], context.DeadlineExceeded))
}
