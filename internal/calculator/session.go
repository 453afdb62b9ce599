package calculator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrStoreFull       = errors.New("session limit reached")
)

// Session is one calculator: a model, its dispatcher and tracker. All calls
// are serialized so the model only ever sees one proposal at a time.
type Session struct {
	ID string

	mu         sync.Mutex
	model      *Model
	dispatcher *Dispatcher
	tracker    *Tracker
	lastUsed   time.Time
}

func newSession(id string, logger *zap.Logger, now time.Time) *Session {
	tracker := NewTracker(nil)
	model := NewModel(tracker, WithLogger(logger.With(zap.String("session_id", id))))

	return &Session{
		ID:         id,
		model:      model,
		dispatcher: NewDispatcher(model),
		tracker:    tracker,
		lastUsed:   now,
	}
}

// Next dispatches p and returns the resulting state.
func (s *Session) Next(p Proposal) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastUsed = time.Now()
	err := s.dispatcher.Next(p)
	return s.model.Data(), err
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model.Data()
}

func (s *Session) History() History {
	return s.tracker.History()
}

func (s *Session) Subscribe() (<-chan Representation, func()) {
	return s.tracker.Subscribe()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// StoreOptions configures a Store.
type StoreOptions struct {
	MaxSessions int
	TTL         time.Duration
	Logger      *zap.Logger
}

// Store holds the live sessions keyed by ID.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	max      int
	ttl      time.Duration
	logger   *zap.Logger
}

func NewStore(opts StoreOptions) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		sessions: make(map[string]*Session),
		max:      opts.MaxSessions,
		ttl:      opts.TTL,
		logger:   logger,
	}
}

// Create starts a new session in the cleared state.
func (st *Store) Create() (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.max > 0 && len(st.sessions) >= st.max {
		return nil, ErrStoreFull
	}

	s := newSession(uuid.New().String(), st.logger, time.Now())
	st.sessions[s.ID] = s
	return s, nil
}

func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(st.sessions, id)
	return nil
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed. A zero TTL keeps sessions forever.
func (st *Store) Sweep(now time.Time) int {
	if st.ttl <= 0 {
		return 0
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, s := range st.sessions {
		if now.Sub(s.idleSince()) > st.ttl {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := st.Sweep(now); n > 0 {
				st.logger.Info("expired idle sessions",
					zap.Int("removed", n),
					zap.Int("active", st.Len()),
				)
			}
		}
	}
}

// Collector exposes the number of live sessions to Prometheus.
func (st *Store) Collector() prometheus.Collector {
	return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "calculator_active_sessions",
		Help: "Number of live calculator sessions.",
	}, func() float64 {
		return float64(st.Len())
	})
}
