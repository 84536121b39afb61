package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/terra-clan/compare-engine/internal/compare"
	"github.com/terra-clan/compare-engine/internal/models"
	"github.com/terra-clan/compare-engine/internal/preferences"
	"github.com/terra-clan/compare-engine/internal/render"
)

// subscriberBuffer is how many snapshots a slow subscriber may lag behind
// before frames are dropped
const subscriberBuffer = 4

// Snapshot is one full set of views pushed to live subscribers. Seq grows
// with every change so clients can discard stale frames.
type Snapshot struct {
	Seq  uint64      `json:"seq"`
	Page render.Page `json:"page"`
}

// Session is the application state of one client. All access goes through
// its mutex, so actions of one client run one at a time.
type Session struct {
	id      string
	manager *Manager

	mu            sync.Mutex
	state         *compare.State
	prefs         models.Preferences
	metric        string
	tableSearch   string
	regionSaved   bool
	pendingRegion string
	seq           uint64
	// charts holds the exact item slices behind the last rendered charts
	charts      map[string][]*models.Product
	lastSeen    time.Time
	subscribers map[chan Snapshot]struct{}
}

// ID returns the client id
func (s *Session) ID() string {
	return s.id
}

// Preferences returns a copy of the current preferences
func (s *Session) Preferences() models.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// Metric returns the active ranking metric; empty means the default
func (s *Session) Metric() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metric
}

// Page renders every view for the current state
func (s *Session) Page() render.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page()
}

// Snapshot renders the current state with its sequence number
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Seq: s.seq, Page: s.page()}
}

// page builds the views and keeps the chart slices for click resolution.
// Callers hold s.mu.
func (s *Session) page() render.Page {
	cat := s.manager.catalog
	page := render.BuildPage(render.PageInput{
		Products:      cat.All(),
		Types:         cat.Types(),
		Metrics:       cat.Metrics(),
		Regions:       cat.Regions(),
		Languages:     s.manager.bundle.Supported(),
		State:         s.state,
		Prefs:         s.prefs,
		Metric:        s.metric,
		TableSearch:   s.tableSearch,
		PendingRegion: s.pendingRegion,
		Loc:           s.manager.bundle.For(s.prefs.Language),
	})
	s.charts = map[string][]*models.Product{
		ChartRanking: page.Ranking.Items,
		ChartValue:   page.Value.Items,
	}
	return page
}

// Apply runs one action. On success every view is re-rendered, pushed to
// live subscribers and returned. A rejected action leaves the state as it
// was.
func (s *Session) Apply(ctx context.Context, a Action) (Snapshot, error) {
	if err := a.Validate(); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastSeen = s.manager.now()
	if err := s.apply(ctx, a); err != nil {
		slog.Debug("action rejected",
			"client_id", s.id,
			"action", a.Type,
			"error", err,
		)
		return Snapshot{}, err
	}

	s.seq++
	snap := Snapshot{Seq: s.seq, Page: s.page()}
	s.publish(snap)
	return snap, nil
}

func (s *Session) apply(ctx context.Context, a Action) error {
	cat := s.manager.catalog
	prefs := s.manager.prefs

	switch a.Type {
	case ActionOpenSlot:
		return s.state.OpenSlot(a.Slot)

	case ActionClosePicker:
		s.state.Picker.Close()

	case ActionSearch:
		return s.state.Picker.SetSearch(a.Value)

	case ActionChoose:
		return s.state.Choose(cat, a.ProductID, a.Slot)

	case ActionRemove:
		// out-of-range removal is a no-op, not an error
		s.state.Remove(a.Slot)

	case ActionSetFilter:
		filter := a.Value
		if filter == "" {
			filter = models.FilterAll
		}
		if !cat.HasType(filter) {
			return fmt.Errorf("%w: type %q", preferences.ErrInvalidPreference, filter)
		}
		s.state.ApplyTypeFilter(filter)
		return durable(prefs.SetTypeFilter(ctx, s.id, &s.prefs, filter))

	case ActionSetMetric:
		for _, m := range cat.Metrics() {
			if m == a.Value {
				s.metric = a.Value
				return nil
			}
		}
		return fmt.Errorf("%w: metric %q", preferences.ErrInvalidPreference, a.Value)

	case ActionSetRegion, ActionConfirmRegion:
		code := a.Value
		if code == "" {
			code = s.prefs.Region
		}
		if err := durable(prefs.SetRegion(ctx, s.id, &s.prefs, code)); err != nil {
			return err
		}
		s.regionSaved = true
		s.pendingRegion = ""

	case ActionSetLanguage:
		return durable(prefs.SetLanguage(ctx, s.id, &s.prefs, a.Value))

	case ActionSetTheme:
		return durable(prefs.ApplyTheme(ctx, s.id, &s.prefs, a.Value, a.ColorHint))

	case ActionOpenQuickView:
		return s.state.OpenQuickView(cat, a.ProductID)

	case ActionCloseQuickView:
		s.state.QuickView.Close()

	case ActionChartClick:
		items, ok := s.charts[a.Chart]
		if !ok {
			s.page()
			items = s.charts[a.Chart]
		}
		if a.Index >= len(items) {
			return fmt.Errorf("%w: %d", ErrInvalidChartIndex, a.Index)
		}
		return s.state.OpenQuickView(cat, items[a.Index].ID)

	case ActionTableSearch:
		s.tableSearch = a.Value

	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
	return nil
}

// durable drops storage failures: the preference already changed in memory
// and the failure was logged by the preference service
func durable(err error) error {
	if err == nil || errors.Is(err, preferences.ErrInvalidPreference) {
		return err
	}
	return nil
}

// overlayRegion applies a detected region unless the client picked one
// meanwhile, and raises the one-time confirmation prompt
func (s *Session) overlayRegion(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.regionSaved {
		return
	}
	s.prefs.Region = code
	s.pendingRegion = code
	s.seq++
	s.publish(Snapshot{Seq: s.seq, Page: s.page()})

	slog.Info("region detected", "client_id", s.id, "region", code)
}

// Subscribe registers a live listener. The returned cancel func must be
// called when the listener goes away.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.lastSeen = s.manager.now()
			s.mu.Unlock()
			close(ch)
		})
	}
}

// publish fans a snapshot out without blocking. Callers hold s.mu.
func (s *Session) publish(snap Snapshot) {
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			slog.Debug("dropping snapshot for slow subscriber", "client_id", s.id, "seq", snap.Seq)
		}
	}
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers) == 0 && s.lastSeen.Before(cutoff)
}
