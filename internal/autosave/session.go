package autosave

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/vendora/backend/internal/designs"
	"github.com/vendora/backend/internal/models"
)

// Session is one open design-editing session. All methods are safe for
// concurrent use; saves are serialized so at most one write is in flight.
type Session struct {
	ID       string
	DesignID string
	StoreID  string
	UserID   string

	cfg Config

	mu              sync.Mutex
	blocks          models.BlockList
	dirty           bool
	lastSeenVersion int64
	lastSavedAt     time.Time
	closed          bool
	debounce        *time.Timer

	// saveMu serializes save cycles
	saveMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup

	manager *Manager
}

// Strategy returns the session's save strategy
func (s *Session) Strategy() Strategy {
	return s.cfg.Strategy
}

// Dirty reports whether queued changes are waiting to be written
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Version returns the design version this session last saw
func (s *Session) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeenVersion
}

// Queue records the latest draft layout and schedules a save per the
// session's strategy. The newest payload always wins; intermediate
// layouts queued between saves are never written.
func (s *Session) Queue(blocks models.BlockList) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}

	s.blocks = cloneBlocks(blocks)
	s.dirty = true

	switch s.cfg.Strategy {
	case StrategyImmediate:
		s.mu.Unlock()
		s.saveAsync()
		return nil

	case StrategyDebounce:
		// Reset on every change so the save fires only after a quiet period
		if s.debounce == nil {
			s.debounce = time.AfterFunc(s.cfg.DebounceDelay, s.saveAsync)
		} else {
			s.debounce.Reset(s.cfg.DebounceDelay)
		}
		s.mu.Unlock()
		return nil

	default:
		// interval and manual strategies save on their own schedule
		s.mu.Unlock()
		return nil
	}
}

// SaveNow runs a save cycle synchronously regardless of strategy.
// Returns an unchanged result when the session has nothing to write.
func (s *Session) SaveNow(ctx context.Context) (*SaveResult, error) {
	result := s.runSave(ctx)
	if result == nil {
		s.mu.Lock()
		version := s.lastSeenVersion
		s.mu.Unlock()
		return &SaveResult{
			SessionID: s.ID,
			DesignID:  s.DesignID,
			StoreID:   s.StoreID,
			Strategy:  s.cfg.Strategy,
			Outcome:   OutcomeUnchanged,
			Version:   version,
		}, nil
	}
	if result.Outcome == OutcomeFailed {
		return result, result.Err
	}
	return result, nil
}

// Rebase advances the session's baseline after the editor has reloaded the
// remote layout, so the next save writes over the version it acknowledged
func (s *Session) Rebase(version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeenVersion = version
}

// Close flushes any dirty draft, stops timers, and waits for in-flight
// work. Safe to call more than once.
func (s *Session) Close(ctx context.Context) (*SaveResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, nil
	}
	s.closed = true
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.mu.Unlock()

	close(s.done)

	// Flush persists a dirty draft even under the manual strategy
	result := s.runSave(ctx)

	s.wg.Wait()

	if result != nil && result.Outcome == OutcomeFailed {
		return result, result.Err
	}
	return result, nil
}

// saveAsync starts a save cycle in the background. No-op once the session
// is closing; Close's flush covers the remaining payload.
func (s *Session) saveAsync() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		s.runSave(context.Background())
	}()
}

// intervalLoop fires the interval strategy's timer until the session closes
func (s *Session) intervalLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runSave(context.Background())
		case <-s.done:
			return
		}
	}
}

// runSave executes one full save cycle: claim the dirty payload, check for
// concurrent edits, write with retries, and report the outcome. Returns nil
// when the session was clean.
func (s *Session) runSave(ctx context.Context) *SaveResult {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	blocks := cloneBlocks(s.blocks)
	baseline := s.lastSeenVersion
	// Claim the payload; a Queue arriving mid-save re-marks the session
	// dirty and the next cycle picks it up
	s.dirty = false
	s.mu.Unlock()

	result := s.attemptSave(ctx, blocks, baseline)

	s.mu.Lock()
	switch result.Outcome {
	case OutcomeSaved, OutcomeUnchanged:
		s.lastSeenVersion = result.Version
		s.lastSavedAt = result.SavedAt
	case OutcomeConflict, OutcomeFailed:
		s.dirty = true
	}
	s.mu.Unlock()

	s.manager.report(*result)
	return result
}

// attemptSave performs the conflict check and guarded write with bounded
// exponential backoff on failures. Conflicts are never retried.
func (s *Session) attemptSave(ctx context.Context, blocks models.BlockList, baseline int64) *SaveResult {
	result := &SaveResult{
		SessionID: s.ID,
		DesignID:  s.DesignID,
		StoreID:   s.StoreID,
		Strategy:  s.cfg.Strategy,
	}

	for attempt := 1; ; attempt++ {
		result.Attempts = attempt

		remote, err := s.manager.store.ReadState(ctx, s.DesignID)
		if err != nil {
			if s.retryWait(ctx, result, attempt) {
				continue
			}
			result.Outcome = OutcomeFailed
			if result.Err == nil {
				result.Err = err
			}
			return result
		}

		// Another session moved the row past our baseline
		if remote.Version != baseline {
			return s.resolveConflict(result, blocks, baseline, remote)
		}

		newVersion, err := s.manager.store.Save(ctx, s.DesignID, blocks, baseline)
		if err != nil {
			if errors.Is(err, ErrVersionMismatch) {
				// Lost the race between check and write; re-read for the report
				remote, readErr := s.manager.store.ReadState(ctx, s.DesignID)
				if readErr != nil {
					result.Outcome = OutcomeFailed
					result.Err = readErr
					return result
				}
				return s.resolveConflict(result, blocks, baseline, remote)
			}
			if s.retryWait(ctx, result, attempt) {
				continue
			}
			result.Outcome = OutcomeFailed
			if result.Err == nil {
				result.Err = err
			}
			return result
		}

		result.Outcome = OutcomeSaved
		result.Version = newVersion
		result.SavedAt = time.Now()
		return result
	}
}

// resolveConflict diffs the session payload against the remote layout.
// An identical layout means the other writer saved the same thing, so the
// session just advances; otherwise the diff is reported and nothing is written.
func (s *Session) resolveConflict(result *SaveResult, blocks models.BlockList, baseline int64, remote *RemoteState) *SaveResult {
	changes := designs.Diff(blocks, remote.Blocks)
	if len(changes) == 0 {
		result.Outcome = OutcomeUnchanged
		result.Version = remote.Version
		result.SavedAt = time.Now()
		return result
	}

	result.Outcome = OutcomeConflict
	result.Version = remote.Version
	result.Conflict = &Conflict{
		DesignID:        s.DesignID,
		LocalVersion:    baseline,
		RemoteVersion:   remote.Version,
		RemoteUpdatedAt: remote.UpdatedAt,
		Changes:         changes,
	}
	return result
}

// retryWait sleeps the backoff delay before the next attempt. Returns false
// when attempts are exhausted or the context/manager shut down.
func (s *Session) retryWait(ctx context.Context, result *SaveResult, attempt int) bool {
	if attempt >= s.cfg.MaxAttempts {
		return false
	}

	// 500ms, 1s, 2s, ... doubling per attempt
	delay := s.cfg.RetryBase << (attempt - 1)

	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		result.Err = ctx.Err()
		return false
	case <-s.manager.ctx.Done():
		result.Err = s.manager.ctx.Err()
		return false
	}
}

// cloneBlocks copies a layout so queued payloads never alias caller slices
func cloneBlocks(blocks models.BlockList) models.BlockList {
	cloned := make(models.BlockList, len(blocks))
	copy(cloned, blocks)
	for i := range cloned {
		if cloned[i].Config.ProductIDs != nil {
			cloned[i].Config.ProductIDs = slices.Clone(cloned[i].Config.ProductIDs)
		}
	}
	return cloned
}
