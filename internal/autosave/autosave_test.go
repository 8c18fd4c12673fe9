package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vendora/backend/internal/logger"
	"github.com/vendora/backend/internal/models"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	logger.Log = zap.NewNop()
	goleak.VerifyTestMain(m)
}

// fakeStore is an in-memory DesignStore with injectable failures
type fakeStore struct {
	mu      sync.Mutex
	designs map[string]*RemoteState

	// failRemaining > 0 fails that many saves; -1 fails every save
	failRemaining int
	failErr       error

	readErr   error
	saveCalls int
}

func newFakeStore(designID string, version int64, blocks models.BlockList) *fakeStore {
	return &fakeStore{
		designs: map[string]*RemoteState{
			designID: {Version: version, UpdatedAt: time.Now(), Blocks: blocks},
		},
	}
}

func (f *fakeStore) ReadState(ctx context.Context, designID string) (*RemoteState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.readErr != nil {
		return nil, f.readErr
	}

	state, ok := f.designs[designID]
	if !ok {
		return nil, errors.New("design not found")
	}
	return &RemoteState{Version: state.Version, UpdatedAt: state.UpdatedAt, Blocks: cloneBlocks(state.Blocks)}, nil
}

func (f *fakeStore) Save(ctx context.Context, designID string, blocks models.BlockList, expectedVersion int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saveCalls++

	if f.failRemaining != 0 {
		if f.failRemaining > 0 {
			f.failRemaining--
		}
		return 0, f.failErr
	}

	state, ok := f.designs[designID]
	if !ok {
		return 0, errors.New("design not found")
	}
	if state.Version != expectedVersion {
		return 0, ErrVersionMismatch
	}

	state.Blocks = cloneBlocks(blocks)
	state.Version++
	state.UpdatedAt = time.Now()
	return state.Version, nil
}

// bump simulates another session writing the row
func (f *fakeStore) bump(designID string, version int64, blocks models.BlockList) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.designs[designID] = &RemoteState{Version: version, UpdatedAt: time.Now(), Blocks: cloneBlocks(blocks)}
}

func (f *fakeStore) savedBlocks(designID string) models.BlockList {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cloneBlocks(f.designs[designID].Blocks)
}

func (f *fakeStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveCalls
}

func layout(markdown string) models.BlockList {
	return models.BlockList{
		{ID: "block-1", Kind: models.BlockText, Position: 0, Config: models.BlockConfig{Markdown: markdown}},
	}
}

func openSession(t *testing.T, store *fakeStore, cfg Config) (*Manager, *Session, chan SaveResult) {
	t.Helper()

	m := NewManager(store)
	results := make(chan SaveResult, 16)
	m.SetResultCallback(func(r SaveResult) { results <- r })

	s, err := m.Open("design-1", "store-1", "user-1", 0, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, m.Close(context.Background()))
	})

	return m, s, results
}

func waitResult(t *testing.T, results <-chan SaveResult) SaveResult {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for save result")
		return SaveResult{}
	}
}

func assertNoResult(t *testing.T, results <-chan SaveResult, within time.Duration) {
	t.Helper()
	select {
	case r := <-results:
		t.Fatalf("unexpected save result: %+v", r)
	case <-time.After(within):
	}
}

// TestImmediateStrategy verifies every queued change triggers a save
func TestImmediateStrategy(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))
	_, s, results := openSession(t, store, Config{Strategy: StrategyImmediate})

	require.NoError(t, s.Queue(layout("first edit")))
	r := waitResult(t, results)
	assert.Equal(t, OutcomeSaved, r.Outcome)
	assert.Equal(t, int64(1), r.Version)

	require.NoError(t, s.Queue(layout("second edit")))
	r = waitResult(t, results)
	assert.Equal(t, OutcomeSaved, r.Outcome)
	assert.Equal(t, int64(2), r.Version)

	saved := store.savedBlocks("design-1")
	require.Len(t, saved, 1)
	assert.Equal(t, "second edit", saved[0].Config.Markdown)
	assert.False(t, s.Dirty())
}

// TestDebounceCoalescesChanges verifies rapid edits produce one save with
// the latest payload
func TestDebounceCoalescesChanges(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))
	_, s, results := openSession(t, store, Config{
		Strategy:      StrategyDebounce,
		DebounceDelay: 100 * time.Millisecond,
	})

	require.NoError(t, s.Queue(layout("draft 1")))
	require.NoError(t, s.Queue(layout("draft 2")))
	require.NoError(t, s.Queue(layout("draft 3")))

	r := waitResult(t, results)
	assert.Equal(t, OutcomeSaved, r.Outcome)
	assert.Equal(t, int64(1), r.Version)

	// Only the last payload was written, in a single save
	assert.Equal(t, 1, store.callCount())
	saved := store.savedBlocks("design-1")
	assert.Equal(t, "draft 3", saved[0].Config.Markdown)

	assertNoResult(t, results, 250*time.Millisecond)
}

// TestDebounceTimerResets verifies the quiet period restarts on each change
func TestDebounceTimerResets(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))
	_, s, results := openSession(t, store, Config{
		Strategy:      StrategyDebounce,
		DebounceDelay: 150 * time.Millisecond,
	})

	require.NoError(t, s.Queue(layout("edit 1")))
	time.Sleep(75 * time.Millisecond)
	// Second change before the delay elapses resets the timer
	require.NoError(t, s.Queue(layout("edit 2")))
	assertNoResult(t, results, 100*time.Millisecond)

	r := waitResult(t, results)
	assert.Equal(t, OutcomeSaved, r.Outcome)
	assert.Equal(t, 1, store.callCount())
}

// TestIntervalStrategy verifies the timer saves only when dirty
func TestIntervalStrategy(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))
	_, s, results := openSession(t, store, Config{
		Strategy: StrategyInterval,
		Interval: 100 * time.Millisecond,
	})

	require.NoError(t, s.Queue(layout("interval edit")))

	r := waitResult(t, results)
	assert.Equal(t, OutcomeSaved, r.Outcome)
	assert.Equal(t, 1, store.callCount())

	// Clean ticks write nothing and bump no version
	assertNoResult(t, results, 300*time.Millisecond)
	assert.Equal(t, 1, store.callCount())
	assert.Equal(t, int64(1), s.Version())
}

// TestManualStrategy verifies saves only happen on SaveNow
func TestManualStrategy(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))
	_, s, results := openSession(t, store, Config{Strategy: StrategyManual})

	require.NoError(t, s.Queue(layout("manual edit")))
	assertNoResult(t, results, 200*time.Millisecond)
	assert.True(t, s.Dirty())

	r, err := s.SaveNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, r.Outcome)
	assert.Equal(t, int64(1), r.Version)
	assert.False(t, s.Dirty())

	// Callback fires for explicit saves too
	cb := waitResult(t, results)
	assert.Equal(t, OutcomeSaved, cb.Outcome)
}

// TestSaveNowOnCleanSession verifies a clean save request writes nothing
func TestSaveNowOnCleanSession(t *testing.T) {
	store := newFakeStore("design-1", 3, layout("original"))

	m := NewManager(store)
	t.Cleanup(func() { require.NoError(t, m.Close(context.Background())) })

	s, err := m.Open("design-1", "store-1", "user-1", 3, Config{Strategy: StrategyManual})
	require.NoError(t, err)

	r, err := s.SaveNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, r.Outcome)
	assert.Equal(t, int64(3), r.Version)
	assert.Equal(t, 0, store.callCount())
}

// TestConflictDetection verifies a concurrent edit blocks the write and
// produces a field diff
func TestConflictDetection(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))
	_, s, _ := openSession(t, store, Config{Strategy: StrategyManual})

	// Another session writes the row twice
	remote := models.BlockList{
		{ID: "block-1", Kind: models.BlockText, Position: 0, Config: models.BlockConfig{Markdown: "their text"}},
		{ID: "block-2", Kind: models.BlockDivider, Position: 1},
	}
	store.bump("design-1", 2, remote)

	require.NoError(t, s.Queue(layout("my text")))

	r, err := s.SaveNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeConflict, r.Outcome)
	require.NotNil(t, r.Conflict)
	assert.Equal(t, int64(0), r.Conflict.LocalVersion)
	assert.Equal(t, int64(2), r.Conflict.RemoteVersion)
	assert.False(t, r.Conflict.RemoteUpdatedAt.IsZero())

	// block-1 differs, block-2 exists only remotely
	require.Len(t, r.Conflict.Changes, 2)

	// Nothing was written and the draft stays dirty
	assert.Equal(t, 0, store.callCount())
	assert.True(t, s.Dirty())
	saved := store.savedBlocks("design-1")
	assert.Equal(t, "their text", saved[0].Config.Markdown)
}

// TestRebaseAfterConflict verifies an acknowledged reload lets the next save win
func TestRebaseAfterConflict(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))
	_, s, _ := openSession(t, store, Config{Strategy: StrategyManual})

	store.bump("design-1", 2, layout("their text"))

	require.NoError(t, s.Queue(layout("merged text")))
	r, err := s.SaveNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, OutcomeConflict, r.Outcome)

	// Editor reloads version 2, merges, and tries again
	s.Rebase(2)
	r, err = s.SaveNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, r.Outcome)
	assert.Equal(t, int64(3), r.Version)

	saved := store.savedBlocks("design-1")
	assert.Equal(t, "merged text", saved[0].Config.Markdown)
}

// TestConflictWithIdenticalLayout verifies a remote bump carrying the same
// blocks is treated as already saved
func TestConflictWithIdenticalLayout(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))
	_, s, _ := openSession(t, store, Config{Strategy: StrategyManual})

	// Another session saved exactly what we were about to write
	store.bump("design-1", 5, layout("same text"))

	require.NoError(t, s.Queue(layout("same text")))

	r, err := s.SaveNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, r.Outcome)
	assert.Equal(t, int64(5), r.Version)
	assert.Nil(t, r.Conflict)

	// Session advanced without writing
	assert.Equal(t, 0, store.callCount())
	assert.False(t, s.Dirty())
	assert.Equal(t, int64(5), s.Version())
}

// TestRetryAfterTransientFailure verifies backoff recovers from one-off errors
func TestRetryAfterTransientFailure(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))
	store.failRemaining = 1
	store.failErr = errors.New("connection reset")

	_, s, _ := openSession(t, store, Config{
		Strategy:  StrategyManual,
		RetryBase: 5 * time.Millisecond,
	})

	require.NoError(t, s.Queue(layout("retried edit")))

	r, err := s.SaveNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, r.Outcome)
	assert.Equal(t, 2, r.Attempts)
}

// TestRetryExhaustion verifies the draft stays dirty after all attempts
// fail and a later SaveNow can still succeed
func TestRetryExhaustion(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))
	store.failRemaining = -1
	store.failErr = errors.New("database unavailable")

	_, s, _ := openSession(t, store, Config{
		Strategy:    StrategyManual,
		MaxAttempts: 3,
		RetryBase:   5 * time.Millisecond,
	})

	require.NoError(t, s.Queue(layout("stubborn edit")))

	r, err := s.SaveNow(context.Background())
	require.Error(t, err)
	assert.Equal(t, OutcomeFailed, r.Outcome)
	assert.Equal(t, 3, r.Attempts)
	assert.True(t, s.Dirty())
	assert.Equal(t, 3, store.callCount())

	// Database recovers; the manual retry drains the dirty draft
	store.mu.Lock()
	store.failRemaining = 0
	store.mu.Unlock()

	r, err = s.SaveNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, r.Outcome)
	assert.False(t, s.Dirty())
}

// TestVersionMismatchRace verifies a guard failure between check and write
// still yields a conflict report
func TestVersionMismatchRace(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))
	_, s, _ := openSession(t, store, Config{Strategy: StrategyManual})

	// Force the guarded write to lose even though the pre-check passed
	store.failRemaining = 1
	store.failErr = ErrVersionMismatch

	require.NoError(t, s.Queue(layout("racing edit")))

	// The re-read sees the original version with differing blocks
	r, err := s.SaveNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeConflict, r.Outcome)
	require.NotNil(t, r.Conflict)
	assert.True(t, s.Dirty())
}

// TestFlushOnClose verifies closing a session persists the dirty draft
// under every strategy including manual
func TestFlushOnClose(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))

	m := NewManager(store)
	s, err := m.Open("design-1", "store-1", "user-1", 0, Config{Strategy: StrategyManual})
	require.NoError(t, err)

	require.NoError(t, s.Queue(layout("unsaved draft")))

	r, err := m.CloseSession(context.Background(), s.ID)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, OutcomeSaved, r.Outcome)

	saved := store.savedBlocks("design-1")
	assert.Equal(t, "unsaved draft", saved[0].Config.Markdown)

	// Session is gone from the manager and rejects further changes
	_, found := m.Get(s.ID)
	assert.False(t, found)
	assert.ErrorIs(t, s.Queue(layout("too late")), ErrSessionClosed)

	require.NoError(t, m.Close(context.Background()))
}

// TestCloseCleanSession verifies closing without changes writes nothing
func TestCloseCleanSession(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))

	m := NewManager(store)
	s, err := m.Open("design-1", "store-1", "user-1", 0, Config{Strategy: StrategyDebounce})
	require.NoError(t, err)

	r, err := m.CloseSession(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Nil(t, r)
	assert.Equal(t, 0, store.callCount())

	require.NoError(t, m.Close(context.Background()))
}

// TestManagerClose verifies shutdown flushes every open session and stops
// all timers without leaking goroutines
func TestManagerClose(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))
	store.designs["design-2"] = &RemoteState{Version: 0, UpdatedAt: time.Now(), Blocks: layout("other")}

	m := NewManager(store)

	s1, err := m.Open("design-1", "store-1", "user-1", 0, Config{
		Strategy: StrategyInterval,
		Interval: time.Hour, // never fires; flush must still save
	})
	require.NoError(t, err)

	s2, err := m.Open("design-2", "store-2", "user-2", 0, Config{
		Strategy:      StrategyDebounce,
		DebounceDelay: time.Hour,
	})
	require.NoError(t, err)

	require.NoError(t, s1.Queue(layout("interval draft")))
	require.NoError(t, s2.Queue(layout("debounce draft")))
	assert.Equal(t, 2, m.SessionCount())

	require.NoError(t, m.Close(context.Background()))
	assert.Equal(t, 0, m.SessionCount())

	assert.Equal(t, "interval draft", store.savedBlocks("design-1")[0].Config.Markdown)
	assert.Equal(t, "debounce draft", store.savedBlocks("design-2")[0].Config.Markdown)

	// A closed manager rejects new sessions
	_, err = m.Open("design-1", "store-1", "user-1", 0, Config{})
	assert.ErrorIs(t, err, ErrManagerClosed)
}

// TestUnknownSession verifies closing a session ID that was never opened fails
func TestUnknownSession(t *testing.T) {
	m := NewManager(newFakeStore("design-1", 0, layout("original")))
	t.Cleanup(func() { require.NoError(t, m.Close(context.Background())) })

	_, err := m.CloseSession(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// TestConcurrentQueues verifies parallel edits never corrupt session state
func TestConcurrentQueues(t *testing.T) {
	store := newFakeStore("design-1", 0, layout("original"))
	_, s, _ := openSession(t, store, Config{Strategy: StrategyImmediate})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Queue(layout("concurrent edit"))
		}()
	}
	wg.Wait()

	// Drain to a final save; the session settles clean
	r, err := s.SaveNow(context.Background())
	require.NoError(t, err)
	assert.Contains(t, []Outcome{OutcomeSaved, OutcomeUnchanged}, r.Outcome)
}
