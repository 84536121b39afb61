package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/terra-clan/compare-engine/internal/catalog"
	"github.com/terra-clan/compare-engine/internal/compare"
	"github.com/terra-clan/compare-engine/internal/i18n"
	"github.com/terra-clan/compare-engine/internal/preferences"
)

// ErrCatalogUnavailable is returned for every session when the catalog
// failed to load at startup
var ErrCatalogUnavailable = errors.New("catalog unavailable")

// ErrInvalidClient is returned when no client id is given
var ErrInvalidClient = errors.New("client id is required")

// RegionResolver detects a client's region; it never fails
type RegionResolver interface {
	Resolve(ctx context.Context, clientIP string) string
}

// Client identifies the browser behind a request
type Client struct {
	ID             string
	IP             string
	AcceptLanguage string
	ColorHint      string
}

// Manager owns the per-client sessions
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	catalog *catalog.Catalog
	prefs   *preferences.Service
	bundle  *i18n.Bundle
	regions RegionResolver
	ttl     time.Duration
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a session manager. A nil catalog means the catalog
// could not be loaded; a nil resolver disables region detection.
func NewManager(cat *catalog.Catalog, prefs *preferences.Service, bundle *i18n.Bundle, regions RegionResolver, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sessions: make(map[string]*Session),
		catalog:  cat,
		prefs:    prefs,
		bundle:   bundle,
		regions:  regions,
		ttl:      ttl,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Catalog returns the loaded catalog, or nil when unavailable
func (m *Manager) Catalog() *catalog.Catalog {
	return m.catalog
}

// Bundle returns the translation bundle
func (m *Manager) Bundle() *i18n.Bundle {
	return m.bundle
}

// Get returns the client's session, creating it on first sight. A new
// session loads the saved preferences; without a saved region it starts on
// the default region and detects the real one in the background.
func (m *Manager) Get(ctx context.Context, c Client) (*Session, error) {
	if m.catalog == nil {
		return nil, ErrCatalogUnavailable
	}
	if c.ID == "" {
		return nil, ErrInvalidClient
	}

	m.mu.RLock()
	s, ok := m.sessions[c.ID]
	m.mu.RUnlock()
	if ok {
		s.touch(m.now())
		return s, nil
	}

	loaded, err := m.prefs.Load(ctx, c.ID, c.AcceptLanguage, c.ColorHint)
	if err != nil {
		slog.Warn("using default preferences", "client_id", c.ID, "error", err)
	}

	s = &Session{
		id:          c.ID,
		manager:     m,
		state:       compare.NewState(),
		prefs:       loaded.Prefs,
		regionSaved: loaded.RegionSaved,
		lastSeen:    m.now(),
		subscribers: make(map[chan Snapshot]struct{}),
	}
	if m.catalog.HasType(loaded.Prefs.TypeFilter) {
		s.state.ApplyTypeFilter(loaded.Prefs.TypeFilter)
	} else {
		s.prefs.TypeFilter = s.state.TypeFilter()
	}

	m.mu.Lock()
	if existing, ok := m.sessions[c.ID]; ok {
		// lost a race with a concurrent first request
		m.mu.Unlock()
		existing.touch(m.now())
		return existing, nil
	}
	m.sessions[c.ID] = s
	m.mu.Unlock()

	slog.Info("session created",
		"client_id", c.ID,
		"region", s.prefs.Region,
		"region_saved", s.regionSaved,
		"lang", s.prefs.Language,
	)

	if !s.regionSaved && m.regions != nil {
		m.detectRegion(s, c.IP)
	}
	return s, nil
}

// detectRegion resolves the client's region off the request path and
// overlays it onto the session once known
func (m *Manager) detectRegion(s *Session, ip string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		code := m.regions.Resolve(m.ctx, ip)
		if m.ctx.Err() != nil {
			return
		}
		s.overlayRegion(code)
	}()
}

// Lookup returns an existing session without creating one
func (m *Manager) Lookup(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Expire removes sessions idle for longer than the TTL. Sessions with live
// subscribers are kept. It returns the removed client ids, sorted.
func (m *Manager) Expire(ctx context.Context) ([]string, error) {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []string
	for id, s := range m.sessions {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		if s.idleSince(cutoff) {
			delete(m.sessions, id)
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	return expired, nil
}

// Wait blocks until in-flight region lookups finish
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close stops background lookups and waits for them
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}
