// Package autosave runs the draft-persistence sessions behind the design
// studio. Each open editing session owns a strategy (immediate, debounce,
// interval, manual), an optimistic-concurrency conflict check against the
// design row's version, and bounded retry on write failure.
package autosave

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vendora/backend/internal/designs"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/metrics"
	"github.com/vendora/backend/internal/models"
	"go.uber.org/zap"
)

// Strategy selects when queued changes are written to the database
type Strategy string

const (
	// StrategyImmediate saves on every queued change
	StrategyImmediate Strategy = "immediate"
	// StrategyDebounce saves after a quiet period following the last change
	StrategyDebounce Strategy = "debounce"
	// StrategyInterval saves on a fixed timer when dirty
	StrategyInterval Strategy = "interval"
	// StrategyManual saves only on explicit SaveNow calls
	StrategyManual Strategy = "manual"
)

// ValidStrategy reports whether s names a known save strategy
func ValidStrategy(s Strategy) bool {
	switch s {
	case StrategyImmediate, StrategyDebounce, StrategyInterval, StrategyManual:
		return true
	}
	return false
}

// Outcome classifies how a save attempt ended
type Outcome string

const (
	// OutcomeSaved means the draft was written and the version bumped
	OutcomeSaved Outcome = "saved"
	// OutcomeUnchanged means nothing needed writing (clean session, or the
	// remote row advanced with an identical layout)
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeConflict means a concurrent edit was detected and nothing was written
	OutcomeConflict Outcome = "conflict"
	// OutcomeFailed means every write attempt errored; the session stays dirty
	OutcomeFailed Outcome = "failed"
)

// Conflict reports a concurrent edit: the remote row moved past the
// session's baseline and the layouts differ
type Conflict struct {
	DesignID        string                `json:"design_id"`
	LocalVersion    int64                 `json:"local_version"`
	RemoteVersion   int64                 `json:"remote_version"`
	RemoteUpdatedAt time.Time             `json:"remote_updated_at"`
	Changes         []designs.BlockChange `json:"changes"`
}

// SaveResult describes one completed save cycle
type SaveResult struct {
	SessionID string    `json:"session_id"`
	DesignID  string    `json:"design_id"`
	StoreID   string    `json:"store_id"`
	Strategy  Strategy  `json:"strategy"`
	Outcome   Outcome   `json:"outcome"`
	Version   int64     `json:"version"`
	Attempts  int       `json:"attempts"`
	Conflict  *Conflict `json:"conflict,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
	Err       error     `json:"-"`
}

// RemoteState is the design row's persisted state read by the conflict check
type RemoteState struct {
	Version   int64
	UpdatedAt time.Time
	Blocks    models.BlockList
}

// DesignStore abstracts the design row reads and guarded writes the
// manager needs. The production implementation is GormStore.
type DesignStore interface {
	// ReadState returns the row's current version, timestamp, and blocks
	ReadState(ctx context.Context, designID string) (*RemoteState, error)
	// Save writes blocks if the row still holds expectedVersion, returning
	// the new version. Returns ErrVersionMismatch when the guard fails.
	Save(ctx context.Context, designID string, blocks models.BlockList, expectedVersion int64) (int64, error)
}

// ErrVersionMismatch is returned by DesignStore.Save when the row's version
// no longer matches the session's baseline
var ErrVersionMismatch = errors.New("design version changed since last read")

// ErrSessionClosed is returned when queueing changes into a closed session
var ErrSessionClosed = errors.New("autosave session closed")

// ErrSessionNotFound is returned when a session ID is unknown
var ErrSessionNotFound = errors.New("autosave session not found")

// ErrManagerClosed is returned when opening sessions on a closed manager
var ErrManagerClosed = errors.New("autosave manager closed")

// Config tunes one session's save behavior. Zero values fall back to defaults.
type Config struct {
	Strategy      Strategy
	DebounceDelay time.Duration // default 2s
	Interval      time.Duration // default 30s
	MaxAttempts   int           // default 3
	RetryBase     time.Duration // default 500ms, doubled per attempt
}

const (
	defaultDebounceDelay = 2 * time.Second
	defaultInterval      = 30 * time.Second
	defaultMaxAttempts   = 3
	defaultRetryBase     = 500 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if !ValidStrategy(c.Strategy) {
		c.Strategy = StrategyDebounce
	}
	if c.DebounceDelay <= 0 {
		c.DebounceDelay = defaultDebounceDelay
	}
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryBase <= 0 {
		c.RetryBase = defaultRetryBase
	}
	return c
}

// Manager owns all open autosave sessions
type Manager struct {
	store DesignStore

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	// Callback for save results (protected by callbackMux to prevent data races)
	callbackMux sync.RWMutex
	onResult    func(SaveResult)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates an autosave manager over the given design store
func NewManager(store DesignStore) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:    store,
		sessions: make(map[string]*Session),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetResultCallback registers a function invoked after every save cycle.
// Used to push save/conflict events onto the realtime channel.
func (m *Manager) SetResultCallback(callback func(SaveResult)) {
	m.callbackMux.Lock()
	defer m.callbackMux.Unlock()
	m.onResult = callback
}

// Open starts a new editing session for a design. baselineVersion is the
// version the editor loaded; the first save conflicts if the row moved past it.
func (m *Manager) Open(designID, storeID, userID string, baselineVersion int64, cfg Config) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	s := &Session{
		ID:       uuid.New().String(),
		DesignID: designID,
		StoreID:  storeID,
		UserID:   userID,

		cfg:             cfg.withDefaults(),
		lastSeenVersion: baselineVersion,
		done:            make(chan struct{}),
		manager:         m,
	}

	if s.cfg.Strategy == StrategyInterval {
		s.wg.Add(1)
		go s.intervalLoop()
	}

	m.sessions[s.ID] = s

	logger.Log.Debug("Autosave session opened",
		zap.String("session_id", s.ID),
		zap.String("design_id", designID),
		zap.String("strategy", string(s.cfg.Strategy)))

	return s, nil
}

// Get looks up an open session by ID
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

// SessionCount returns how many sessions are currently open
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseSession flushes and tears down one session. The returned result is
// the flush outcome, nil when the session had nothing to save.
func (m *Manager) CloseSession(ctx context.Context, sessionID string) (*SaveResult, error) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	return s.Close(ctx)
}

// Close flushes and tears down every open session, then stops the manager
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var firstErr error
	for _, s := range sessions {
		if _, err := s.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	m.cancel()
	return firstErr
}

// report records metrics and delivers the result callback
func (m *Manager) report(result SaveResult) {
	app := metrics.App()
	app.DesignSavesTotal.WithLabelValues(string(result.Strategy), string(result.Outcome)).Inc()
	if result.Outcome == OutcomeConflict {
		app.DesignSaveConflicts.WithLabelValues(string(result.Strategy)).Inc()
	}
	if result.Attempts > 1 {
		app.DesignSaveRetries.WithLabelValues(strconv.Itoa(result.Attempts)).Inc()
	}
	metrics.GetManager().Autosave.RecordSave(metrics.SaveMetric{
		Strategy: string(result.Strategy),
		Outcome:  string(result.Outcome),
		Attempts: result.Attempts,
	})

	switch result.Outcome {
	case OutcomeConflict:
		logger.Log.Warn("Autosave detected concurrent edit",
			zap.String("design_id", result.DesignID),
			zap.Int64("local_version", result.Conflict.LocalVersion),
			zap.Int64("remote_version", result.Conflict.RemoteVersion),
			zap.Int("changed_blocks", len(result.Conflict.Changes)))
	case OutcomeFailed:
		logger.Log.Error("Autosave exhausted retries",
			zap.String("design_id", result.DesignID),
			zap.Int("attempts", result.Attempts),
			zap.Error(result.Err))
	}

	m.callbackMux.RLock()
	callback := m.onResult
	m.callbackMux.RUnlock()
	if callback != nil {
		callback(result)
	}
}
