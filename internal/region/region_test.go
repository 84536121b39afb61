package region

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/terra-clan/compare-engine/internal/config"
)

const publicIP = "203.0.113.7"

func newTestResolver(t *testing.T, handler http.HandlerFunc, timeout time.Duration) *Resolver {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewResolver(config.RegionConfig{
		LookupURL:     srv.URL + "/json/{ip}?fields=countryCode",
		Timeout:       timeout,
		PerMinute:     60000,
		DefaultRegion: "US",
	})
}

func TestResolveSuccess(t *testing.T) {
	t.Parallel()

	paths := make(chan string, 1)
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		paths <- req.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"countryCode":"de"}`))
	}, time.Second)

	require.Equal(t, "DE", r.Resolve(context.Background(), publicIP))
	require.Equal(t, "/json/"+publicIP, <-paths)
}

func TestResolveFallsBack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "quota", http.StatusTooManyRequests)
			},
			wantErr: ErrBadStatus,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"countryCode":`))
			},
		},
		{
			name: "missing field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"status":"fail"}`))
			},
			wantErr: ErrMissingRegion,
		},
		{
			name: "invalid code",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"countryCode":"Germany"}`))
			},
			wantErr: ErrInvalidRegion,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newTestResolver(t, tt.handler, time.Second)
			_, err := r.Lookup(context.Background(), publicIP)
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			require.Equal(t, "US", r.Resolve(context.Background(), publicIP))
		})
	}
}

func TestResolveTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		select {
		case <-release:
		case <-req.Context().Done():
		}
	}, 50*time.Millisecond)
	defer close(release)

	start := time.Now()
	require.Equal(t, "US", r.Resolve(context.Background(), publicIP))
	require.Less(t, time.Since(start), 2*time.Second)
}

func TestResolveSkipsPrivateAddresses(t *testing.T) {
	t.Parallel()

	r := newTestResolver(t, func(w http.ResponseWriter, req *http.Request) {
		t.Errorf("unexpected lookup for %s", req.URL.Path)
	}, time.Second)

	for _, ip := range []string{"127.0.0.1", "10.1.2.3", "::1", "not-an-ip"} {
		_, err := r.Lookup(context.Background(), ip)
		require.ErrorIs(t, err, ErrNotRoutable, ip)
	}
}

func TestResolveUnreachable(t *testing.T) {
	t.Parallel()

	r := NewResolver(config.RegionConfig{
		LookupURL:     "http://127.0.0.1:1/json/{ip}",
		Timeout:       200 * time.Millisecond,
		PerMinute:     60000,
		DefaultRegion: "gb",
	})
	require.Equal(t, "GB", r.Fallback())
	require.Equal(t, "GB", r.Resolve(context.Background(), publicIP))
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]string{"us": "US", " de ": "DE", "FR": "FR"} {
		got, ok := Normalize(in)
		require.True(t, ok, in)
		require.Equal(t, want, got)
	}
	for _, in := range []string{"", "USA", "1A", "ZZ", strings.Repeat("x", 3)} {
		_, ok := Normalize(in)
		require.False(t, ok, in)
	}
}
