package drag

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pattamap/server/internal/clock"
	"github.com/pattamap/server/internal/commit"
	"github.com/pattamap/server/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// 3×3 zone drawn into a 300×300 box offset from the container origin, so (0,0) is off-grid.
var zoneCfg = grid.Config{MaxRows: 3, MaxCols: 3, StartX: 50, EndX: 350, StartY: 50, EndY: 350}

func center(p grid.Position) Pointer {
	o := zoneCfg.CellOrigin(p)
	return Pointer{X: o.X + 50, Y: o.Y + 50}
}

type toasts struct {
	mu      sync.Mutex
	success []string
	errors  []string
}

func (t *toasts) Success(msg string) { t.mu.Lock(); t.success = append(t.success, msg); t.mu.Unlock() }
func (t *toasts) Error(msg string)   { t.mu.Lock(); t.errors = append(t.errors, msg); t.mu.Unlock() }

func (t *toasts) counts() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.success), len(t.errors)
}

type buzz struct {
	mu       sync.Mutex
	patterns [][]time.Duration
}

func (b *buzz) Vibrate(p []time.Duration) { b.mu.Lock(); b.patterns = append(b.patterns, p); b.mu.Unlock() }

type call struct {
	entity   string
	target   grid.Position
	conflict string
}

type fakeCommitter struct {
	mu    sync.Mutex
	calls []call
	fn    func(ctx context.Context) (bool, error)
}

func (f *fakeCommitter) Commit(ctx context.Context, e grid.Entity, target grid.Position, conflict *grid.Entity) (bool, error) {
	c := call{entity: e.ID, target: target}
	if conflict != nil {
		c.conflict = conflict.ID
	}
	f.mu.Lock()
	f.calls = append(f.calls, c)
	fn := f.fn
	f.mu.Unlock()
	if fn == nil {
		return true, nil
	}
	return fn(ctx)
}

func (f *fakeCommitter) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type harness struct {
	coord  *Coordinator
	board  *grid.Board
	lock   *grid.Lock
	clock  *clock.Manual
	toasts *toasts
	buzz   *buzz
}

func newHarness(t *testing.T, committer func(*grid.Board, *grid.Lock, clock.Clock) Committer, opts ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		board: grid.NewBoard([]grid.Entity{
			{ID: "A", Pos: grid.Position{Row: 1, Col: 1}, Display: grid.Display{Name: "Alpha"}},
			{ID: "B", Pos: grid.Position{Row: 2, Col: 2}, Display: grid.Display{Name: "Bravo"}},
		}),
		lock:   &grid.Lock{},
		clock:  clock.NewManual(time.Date(2026, 10, 19, 22, 0, 0, 0, time.UTC)),
		toasts: &toasts{},
		buzz:   &buzz{},
	}
	o := Options{
		Zone:     "soi6",
		Config:   zoneCfg,
		Clock:    h.clock,
		Notifier: h.toasts,
		Haptics:  h.buzz,
	}
	for _, fn := range opts {
		fn(&o)
	}
	h.coord = NewCoordinator(o, h.board, h.lock, committer(h.board, h.lock, h.clock), zap.NewNop())
	h.coord.SetCanEdit(true)
	t.Cleanup(h.coord.Teardown)
	return h
}

func withFake(f *fakeCommitter) func(*grid.Board, *grid.Lock, clock.Clock) Committer {
	return func(*grid.Board, *grid.Lock, clock.Clock) Committer { return f }
}

// withServer wires a real commit.Client against an httptest server.
func withServer(t *testing.T, handler http.HandlerFunc) func(*grid.Board, *grid.Lock, clock.Clock) Committer {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return func(b *grid.Board, l *grid.Lock, clk clock.Clock) Committer {
		return commit.New(commit.Options{BaseURL: srv.URL, Zone: "soi6", Clock: clk}, zoneCfg, b, l, nil)
	}
}

// dragTo starts a pointer drag on id, moves to target and lets the throttle fire.
func (h *harness) dragTo(t *testing.T, id string, from, to grid.Position) {
	t.Helper()
	require.True(t, h.coord.Start(id, center(from)))
	h.coord.Move(center(to))
	h.clock.Advance(DefaultThrottle)
}

func (h *harness) effective(id string) grid.Position {
	p, _ := h.board.Effective(id)
	return p
}

func TestStartGuards(t *testing.T) {
	f := &fakeCommitter{}
	h := newHarness(t, withFake(f))

	h.coord.SetCanEdit(false)
	assert.False(t, h.coord.Start("A", center(grid.Position{Row: 1, Col: 1})), "edit mode off")
	h.coord.SetCanEdit(true)

	h.coord.SetLoading(true)
	assert.False(t, h.coord.Start("A", center(grid.Position{Row: 1, Col: 1})), "loading")
	h.coord.SetLoading(false)

	assert.False(t, h.coord.Start("missing", center(grid.Position{Row: 1, Col: 1})), "unknown entity")
	assert.False(t, h.coord.Start("A", Touch{}), "no coordinates")
	assert.Equal(t, StateIdle, h.coord.Snapshot().State)

	require.True(t, h.coord.Start("A", center(grid.Position{Row: 1, Col: 1})))
	assert.False(t, h.coord.Start("B", center(grid.Position{Row: 2, Col: 2})), "single drag")
	assert.False(t, h.coord.Start("B", Touch{Touches: []grid.Point{{X: 200, Y: 200}}}), "second modality")

	s := h.coord.Snapshot()
	assert.Equal(t, "A", s.DraggedID)
	assert.Equal(t, ModalityPointer, s.Modality)
	assert.Equal(t, ActionBlocked, s.Action, "no drag-over cell yet")
	assert.Nil(t, s.DragOver)
	assert.Len(t, h.buzz.patterns, 1)
}

func TestStartWhileLockedIsNoop(t *testing.T) {
	h := newHarness(t, withFake(&fakeCommitter{}))
	h.lock.LockUntil(h.clock.Now().Add(500 * time.Millisecond))

	assert.False(t, h.coord.Start("A", center(grid.Position{Row: 1, Col: 1})))
	assert.False(t, h.coord.Snapshot().Dragging())

	h.clock.Advance(500 * time.Millisecond)
	assert.True(t, h.coord.Start("A", center(grid.Position{Row: 1, Col: 1})))
}

func TestMoveThrottlesRecomputation(t *testing.T) {
	h := newHarness(t, withFake(&fakeCommitter{}))
	require.True(t, h.coord.Start("A", center(grid.Position{Row: 1, Col: 1})))

	h.coord.Move(Pointer{X: 120, Y: 120})
	h.coord.Move(Pointer{X: 210, Y: 120})
	h.coord.Move(center(grid.Position{Row: 1, Col: 3}))

	s := h.coord.Snapshot()
	assert.Equal(t, grid.Point{X: 300, Y: 100}, s.Pointer, "ghost follows every event")
	assert.Nil(t, s.DragOver, "recompute waits for the throttle window")
	assert.Equal(t, 1, h.clock.Pending(), "one timer per window")

	h.clock.Advance(DefaultThrottle)
	s = h.coord.Snapshot()
	require.NotNil(t, s.DragOver)
	assert.Equal(t, grid.Position{Row: 1, Col: 3}, *s.DragOver, "uses the latest pointer")
	assert.Equal(t, ActionMove, s.Action)

	h.coord.Move(center(grid.Position{Row: 2, Col: 2}))
	h.clock.Advance(DefaultThrottle)
	assert.Equal(t, ActionSwap, h.coord.Snapshot().Action)

	h.coord.Move(Pointer{X: 10, Y: 10})
	h.clock.Advance(DefaultThrottle)
	s = h.coord.Snapshot()
	assert.Nil(t, s.DragOver)
	assert.Equal(t, ActionBlocked, s.Action)
}

func TestCancelStopsPendingThrottle(t *testing.T) {
	h := newHarness(t, withFake(&fakeCommitter{}))
	require.True(t, h.coord.Start("A", center(grid.Position{Row: 1, Col: 1})))
	h.coord.Move(center(grid.Position{Row: 3, Col: 3}))
	require.Equal(t, 1, h.clock.Pending())

	h.coord.Cancel()
	assert.Equal(t, 0, h.clock.Pending())
	assert.Equal(t, Session{}, h.coord.Snapshot())

	h.clock.Advance(time.Second)
	assert.Equal(t, Session{}, h.coord.Snapshot())
}

func TestDropOnOwnCellIsSilentCancel(t *testing.T) {
	f := &fakeCommitter{}
	h := newHarness(t, withFake(f))
	h.dragTo(t, "A", grid.Position{Row: 1, Col: 1}, grid.Position{Row: 1, Col: 1})
	assert.Equal(t, ActionBlocked, h.coord.Snapshot().Action)

	out := h.coord.Drop(context.Background(), center(grid.Position{Row: 1, Col: 1}))
	assert.Equal(t, OutcomeCancelled, out)
	assert.Empty(t, f.Calls())
	assert.Equal(t, grid.Position{Row: 1, Col: 1}, h.effective("A"))
	assert.Equal(t, grid.Position{Row: 2, Col: 2}, h.effective("B"))
	s, e := h.toasts.counts()
	assert.Zero(t, s+e)
	assert.Equal(t, StateIdle, h.coord.Snapshot().State)
}

func TestDropOnFreeCellMoves(t *testing.T) {
	var requests int
	h := newHarness(t, withServer(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	}))
	h.dragTo(t, "A", grid.Position{Row: 1, Col: 1}, grid.Position{Row: 3, Col: 1})
	assert.Equal(t, ActionMove, h.coord.Snapshot().Action)

	out := h.coord.Drop(context.Background(), center(grid.Position{Row: 3, Col: 1}))
	require.Equal(t, OutcomeCommitted, out)
	assert.Equal(t, 1, requests)
	assert.Equal(t, 1, h.board.Overlay().Len(), "single optimistic update")

	assert.Equal(t, grid.Position{Row: 3, Col: 1}, h.effective("A"))
	assert.Equal(t, grid.Position{Row: 2, Col: 2}, h.effective("B"))
	s, e := h.toasts.counts()
	assert.Equal(t, 1, s)
	assert.Zero(t, e)

	// Post-commit cooldown blocks the next drag for the lock window.
	assert.False(t, h.coord.Start("B", center(grid.Position{Row: 2, Col: 2})))
	h.clock.Advance(commit.DefaultLockWindow)
	assert.True(t, h.coord.Start("B", center(grid.Position{Row: 2, Col: 2})))
}

func TestSwapScenario(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := newHarness(t, withServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		h.dragTo(t, "A", grid.Position{Row: 1, Col: 1}, grid.Position{Row: 2, Col: 2})
		assert.Equal(t, ActionSwap, h.coord.Snapshot().Action)

		out := h.coord.Drop(context.Background(), center(grid.Position{Row: 2, Col: 2}))
		require.Equal(t, OutcomeCommitted, out)
		assert.Equal(t, grid.Position{Row: 2, Col: 2}, h.effective("A"))
		assert.Equal(t, grid.Position{Row: 1, Col: 1}, h.effective("B"))
		assert.Equal(t, []string{"Swapped Alpha with Bravo"}, h.toasts.success)
	})

	t.Run("failure", func(t *testing.T) {
		h := newHarness(t, withServer(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		}))
		h.dragTo(t, "A", grid.Position{Row: 1, Col: 1}, grid.Position{Row: 2, Col: 2})

		out := h.coord.Drop(context.Background(), center(grid.Position{Row: 2, Col: 2}))
		require.Equal(t, OutcomeFailed, out)
		assert.Equal(t, grid.Position{Row: 1, Col: 1}, h.effective("A"))
		assert.Equal(t, grid.Position{Row: 2, Col: 2}, h.effective("B"))
		assert.Equal(t, 0, h.board.Overlay().Len())

		s, e := h.toasts.counts()
		assert.Zero(t, s)
		assert.Equal(t, 1, e, "error toast fires exactly once")
		assert.Equal(t, (&commit.Error{Kind: commit.KindServer}).UserMessage(), h.toasts.errors[0])
		assert.False(t, h.lock.Locked(h.clock.Now()))
	})
}

type sentMove struct {
	ID         string `json:"establishmentId"`
	Row        int    `json:"grid_row"`
	Col        int    `json:"grid_col"`
	SwapWithID string `json:"swap_with_id"`
}

// Once the lock lifts, a second drag before any refresh works from the committed
// positions, not the stale list.
func TestRedragBeforeRefreshUsesCommittedPosition(t *testing.T) {
	var (
		moves []sentMove
		fail  bool
	)
	server := func(w http.ResponseWriter, r *http.Request) {
		var m sentMove
		require.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		moves = append(moves, m)
		if fail {
			http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
	commitFirst := func(t *testing.T, h *harness) {
		t.Helper()
		h.dragTo(t, "A", grid.Position{Row: 1, Col: 1}, grid.Position{Row: 3, Col: 1})
		require.Equal(t, OutcomeCommitted, h.coord.Drop(context.Background(), center(grid.Position{Row: 3, Col: 1})))
		h.clock.Advance(commit.DefaultLockWindow)
	}

	t.Run("back to the old cell", func(t *testing.T) {
		moves, fail = nil, false
		h := newHarness(t, withServer(t, server))
		commitFirst(t, h)

		h.dragTo(t, "A", grid.Position{Row: 3, Col: 1}, grid.Position{Row: 1, Col: 1})
		assert.Equal(t, ActionMove, h.coord.Snapshot().Action)
		out := h.coord.Drop(context.Background(), center(grid.Position{Row: 1, Col: 1}))
		require.Equal(t, OutcomeCommitted, out)
		require.Len(t, moves, 2)
		assert.Equal(t, sentMove{ID: "A", Row: 1, Col: 1}, moves[1])
		assert.Equal(t, grid.Position{Row: 1, Col: 1}, h.effective("A"))
	})

	t.Run("swap hands the committed cell to the partner", func(t *testing.T) {
		moves, fail = nil, false
		h := newHarness(t, withServer(t, server))
		commitFirst(t, h)

		h.dragTo(t, "A", grid.Position{Row: 3, Col: 1}, grid.Position{Row: 2, Col: 2})
		assert.Equal(t, ActionSwap, h.coord.Snapshot().Action)
		out := h.coord.Drop(context.Background(), center(grid.Position{Row: 2, Col: 2}))
		require.Equal(t, OutcomeCommitted, out)
		require.Len(t, moves, 2)
		assert.Equal(t, "B", moves[1].SwapWithID)
		assert.Equal(t, grid.Position{Row: 2, Col: 2}, h.effective("A"))
		assert.Equal(t, grid.Position{Row: 3, Col: 1}, h.effective("B"))
	})

	t.Run("failed follow-up keeps the committed cell", func(t *testing.T) {
		moves, fail = nil, false
		h := newHarness(t, withServer(t, server))
		commitFirst(t, h)

		fail = true
		h.dragTo(t, "A", grid.Position{Row: 3, Col: 1}, grid.Position{Row: 2, Col: 2})
		out := h.coord.Drop(context.Background(), center(grid.Position{Row: 2, Col: 2}))
		require.Equal(t, OutcomeFailed, out)
		assert.Equal(t, grid.Position{Row: 3, Col: 1}, h.effective("A"))
		assert.Equal(t, grid.Position{Row: 2, Col: 2}, h.effective("B"))
	})
}

func TestDropOutOfBoundsIsBlocked(t *testing.T) {
	f := &fakeCommitter{}
	h := newHarness(t, withFake(f))
	h.dragTo(t, "A", grid.Position{Row: 1, Col: 1}, grid.Position{Row: 2, Col: 1})

	h.coord.Move(Pointer{X: 0, Y: 0})
	h.clock.Advance(DefaultThrottle)
	assert.Equal(t, ActionBlocked, h.coord.Snapshot().Action)

	out := h.coord.Drop(context.Background(), Pointer{X: 0, Y: 0})
	assert.Equal(t, OutcomeCancelled, out)
	assert.Empty(t, f.Calls())
	s, e := h.toasts.counts()
	assert.Zero(t, s+e)
}

func TestDropRevalidatesOccupancy(t *testing.T) {
	f := &fakeCommitter{}
	h := newHarness(t, withFake(f))
	h.dragTo(t, "A", grid.Position{Row: 1, Col: 1}, grid.Position{Row: 3, Col: 3})
	require.Equal(t, ActionMove, h.coord.Snapshot().Action)

	// B lands on (3,3) after the last throttled computation.
	ov := h.board.Overlay()
	ov.Apply(ov.NextRequest(), map[string]grid.Position{"B": {Row: 3, Col: 3}})
	require.Equal(t, ActionMove, h.coord.Snapshot().Action, "drag-over state is stale")

	out := h.coord.Drop(context.Background(), center(grid.Position{Row: 3, Col: 3}))
	require.Equal(t, OutcomeCommitted, out)
	assert.Equal(t, []call{{entity: "A", target: grid.Position{Row: 3, Col: 3}, conflict: "B"}}, f.Calls())
}

func TestDropWithoutCoordinatesUsesLastDragOver(t *testing.T) {
	f := &fakeCommitter{}
	h := newHarness(t, withFake(f))
	start := center(grid.Position{Row: 1, Col: 1})
	require.True(t, h.coord.Start("A", Touch{Touches: []grid.Point{{X: start.X, Y: start.Y}}}))

	// Pointer events are ignored during a touch drag.
	h.coord.Move(center(grid.Position{Row: 3, Col: 3}))
	assert.Equal(t, 0, h.clock.Pending())

	to := center(grid.Position{Row: 1, Col: 2})
	h.coord.Move(Touch{Touches: []grid.Point{{X: to.X, Y: to.Y}}})
	h.clock.Advance(DefaultThrottle)

	out := h.coord.Drop(context.Background(), Touch{})
	require.Equal(t, OutcomeCommitted, out)
	assert.Equal(t, []call{{entity: "A", target: grid.Position{Row: 1, Col: 2}}}, f.Calls())
}

func TestTouchEndUsesChangedTouches(t *testing.T) {
	f := &fakeCommitter{}
	h := newHarness(t, withFake(f))
	start := center(grid.Position{Row: 1, Col: 1})
	require.True(t, h.coord.Start("A", Touch{Touches: []grid.Point{{X: start.X, Y: start.Y}}}))

	end := center(grid.Position{Row: 3, Col: 2})
	out := h.coord.Drop(context.Background(), Touch{ChangedTouches: []grid.Point{{X: end.X, Y: end.Y}}})
	require.Equal(t, OutcomeCommitted, out)
	assert.Equal(t, []call{{entity: "A", target: grid.Position{Row: 3, Col: 2}}}, f.Calls())
}

func TestEditRevokedMidDrag(t *testing.T) {
	f := &fakeCommitter{}
	h := newHarness(t, withFake(f))
	h.dragTo(t, "A", grid.Position{Row: 1, Col: 1}, grid.Position{Row: 3, Col: 3})
	before := h.coord.Snapshot()

	h.coord.SetCanEdit(false)
	h.coord.Move(center(grid.Position{Row: 2, Col: 1}))
	assert.Equal(t, before.Pointer, h.coord.Snapshot().Pointer)

	assert.Equal(t, OutcomeIgnored, h.coord.Drop(context.Background(), center(grid.Position{Row: 3, Col: 3})))
	assert.Empty(t, f.Calls())

	h.coord.End()
	assert.Equal(t, StateIdle, h.coord.Snapshot().State)
}

func TestSetEntitiesCancelsVanishedDrag(t *testing.T) {
	h := newHarness(t, withFake(&fakeCommitter{}))
	h.dragTo(t, "A", grid.Position{Row: 1, Col: 1}, grid.Position{Row: 3, Col: 3})

	h.coord.SetEntities([]grid.Entity{{ID: "B", Pos: grid.Position{Row: 2, Col: 2}}})
	assert.Equal(t, StateIdle, h.coord.Snapshot().State)
	assert.Len(t, h.coord.Entities(), 1)
}

func TestCommitErrorToast(t *testing.T) {
	f := &fakeCommitter{fn: func(context.Context) (bool, error) {
		return false, &commit.Error{Kind: commit.KindConstraint, Status: http.StatusConflict}
	}}
	h := newHarness(t, withFake(f))
	h.dragTo(t, "A", grid.Position{Row: 1, Col: 1}, grid.Position{Row: 1, Col: 2})

	out := h.coord.Drop(context.Background(), center(grid.Position{Row: 1, Col: 2}))
	assert.Equal(t, OutcomeFailed, out)
	assert.Equal(t, []string{(&commit.Error{Kind: commit.KindConstraint}).UserMessage()}, h.toasts.errors)

	f.fn = func(context.Context) (bool, error) { return false, errors.New("opaque") }
	h.dragTo(t, "A", grid.Position{Row: 1, Col: 1}, grid.Position{Row: 1, Col: 2})
	h.coord.Drop(context.Background(), center(grid.Position{Row: 1, Col: 2}))
	assert.Equal(t, msgGeneric, h.toasts.errors[1])
}

func TestWatchdogResetsHungCommit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	core, logs := observer.New(zap.WarnLevel)
	release := make(chan struct{})
	f := &fakeCommitter{fn: func(context.Context) (bool, error) {
		// Ignores its context entirely, like a request that never settles.
		<-release
		return true, nil
	}}

	board := grid.NewBoard([]grid.Entity{
		{ID: "A", Pos: grid.Position{Row: 1, Col: 1}},
		{ID: "B", Pos: grid.Position{Row: 2, Col: 2}},
	})
	clk := clock.NewManual(time.Now())
	tst := &toasts{}
	coord := NewCoordinator(Options{
		Zone:     "soi6",
		Config:   zoneCfg,
		Clock:    clk,
		Watchdog: 30 * time.Millisecond,
		Notifier: tst,
	}, board, &grid.Lock{}, f, zap.New(core))
	coord.SetCanEdit(true)

	require.True(t, coord.Start("A", center(grid.Position{Row: 1, Col: 1})))
	// Pretend the committer applied its optimistic swap before hanging.
	ov := board.Overlay()
	ov.Apply(ov.NextRequest(), map[string]grid.Position{"A": {Row: 2, Col: 2}, "B": {Row: 1, Col: 1}})

	// A now sits on (2,2) and B on (1,1): dropping on (1,1) is a swap with B.
	began := time.Now()
	out := coord.Drop(context.Background(), center(grid.Position{Row: 1, Col: 1}))
	assert.Equal(t, OutcomeTimedOut, out)
	assert.GreaterOrEqual(t, time.Since(began), 30*time.Millisecond)

	assert.Equal(t, Session{}, coord.Snapshot())
	assert.Equal(t, 1, logs.FilterMessage("drop watchdog expired, session reset").Len())
	assert.Equal(t, 0, ov.Len(), "abandoned optimistic entries are discarded")
	assert.Equal(t, []string{msgTimeout}, tst.errors)

	// The late response changes nothing.
	close(release)
	coord.Teardown()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, []string{msgTimeout}, tst.errors)
	assert.Empty(t, tst.success)
}

func TestTeardownAbortsInflightCommit(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	started := make(chan struct{})
	f := &fakeCommitter{fn: func(ctx context.Context) (bool, error) {
		close(started)
		<-ctx.Done()
		return false, ctx.Err()
	}}
	board := grid.NewBoard([]grid.Entity{{ID: "A", Pos: grid.Position{Row: 1, Col: 1}}})
	tst := &toasts{}
	coord := NewCoordinator(Options{Config: zoneCfg, Clock: clock.NewManual(time.Now()), Notifier: tst},
		board, &grid.Lock{}, f, nil)
	coord.SetCanEdit(true)
	require.True(t, coord.Start("A", center(grid.Position{Row: 1, Col: 1})))

	result := make(chan Outcome, 1)
	go func() { result <- coord.Drop(context.Background(), center(grid.Position{Row: 2, Col: 3})) }()
	<-started
	assert.Equal(t, StateCommitting, coord.Snapshot().State)
	assert.False(t, coord.Start("A", center(grid.Position{Row: 1, Col: 1})), "no drag while committing")

	coord.Teardown()
	select {
	case out := <-result:
		assert.Equal(t, OutcomeCancelled, out)
	case <-time.After(2 * time.Second):
		t.Fatal("drop did not return after teardown")
	}
	s, e := tst.counts()
	assert.Zero(t, s+e)
}

func TestDefaults(t *testing.T) {
	c := NewCoordinator(Options{}, grid.NewBoard(nil), &grid.Lock{}, &fakeCommitter{}, nil)
	defer c.Teardown()
	assert.Equal(t, 10*time.Second, c.watchdog)
	assert.Equal(t, 16*time.Millisecond, c.throttleWindow)
}
