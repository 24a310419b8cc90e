package drag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pattamap/server/internal/clock"
	"github.com/pattamap/server/internal/grid"
	"go.uber.org/zap"
)

const (
	// DefaultThrottle bounds drag-over recomputation to about one frame.
	DefaultThrottle = 16 * time.Millisecond
	// DefaultWatchdog is the hard limit on a drop's commit before the session is force-reset.
	DefaultWatchdog = 10 * time.Second
)

// Options configures a Coordinator.
type Options struct {
	Zone     string
	Config   grid.Config
	Throttle time.Duration
	Watchdog time.Duration
	Clock    clock.Clock
	Notifier Notifier
	Haptics  Haptics
}

// Coordinator owns the drag session for one zone view. It is created when the view
// mounts and torn down when it unmounts. All methods are safe for concurrent use; the
// throttle timer and the commit goroutine re-enter through the same mutex.
type Coordinator struct {
	mu      sync.Mutex
	sess    Session
	gen     uint64 // bumped on every reset; stale timers and commits compare against it
	canEdit bool
	loading bool
	closed  bool

	throttle clock.Timer

	zone      string
	cfg       grid.Config
	board     *grid.Board
	lock      *grid.Lock
	committer Committer

	throttleWindow time.Duration
	watchdog       time.Duration
	clock          clock.Clock
	notify         Notifier
	haptics        Haptics
	log            *zap.Logger

	life     context.Context
	shutdown context.CancelFunc
}

func NewCoordinator(opts Options, board *grid.Board, lock *grid.Lock, committer Committer, log *zap.Logger) *Coordinator {
	c := &Coordinator{
		zone:           opts.Zone,
		cfg:            opts.Config,
		board:          board,
		lock:           lock,
		committer:      committer,
		throttleWindow: opts.Throttle,
		watchdog:       opts.Watchdog,
		clock:          opts.Clock,
		notify:         opts.Notifier,
		haptics:        opts.Haptics,
		log:            log,
	}
	if c.throttleWindow <= 0 {
		c.throttleWindow = DefaultThrottle
	}
	if c.watchdog <= 0 {
		c.watchdog = DefaultWatchdog
	}
	if c.clock == nil {
		c.clock = clock.Real{}
	}
	if c.notify == nil {
		c.notify = nopNotifier{}
	}
	if c.haptics == nil {
		c.haptics = nopHaptics{}
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.life, c.shutdown = context.WithCancel(context.Background())
	return c
}

// SetCanEdit grants or revokes edit mode. Revoking mid-drag makes further Move and
// Drop calls no-ops until the host cancels or ends the drag.
func (c *Coordinator) SetCanEdit(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.canEdit = v
}

// SetLoading blocks new drags while the host is fetching data.
func (c *Coordinator) SetLoading(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = v
}

// SetEntities installs a fresh authoritative list. A drag whose entity disappeared is cancelled.
func (c *Coordinator) SetEntities(entities []grid.Entity) {
	c.board.Replace(entities)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess.State != StateDragging {
		return
	}
	if _, ok := c.board.Entity(c.sess.DraggedID); !ok {
		c.resetLocked()
		return
	}
	c.recomputeLocked()
}

// Entities returns the working set with optimistic positions applied.
func (c *Coordinator) Entities() []grid.Entity {
	return c.board.Entities()
}

// Snapshot returns a copy of the current session for rendering.
func (c *Coordinator) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess.clone()
}

// Start begins dragging entity id. It returns false, changing nothing, when edit mode
// is off, data is loading, the post-commit lock is open, another drag is active or the
// entity is unknown. The host suppresses the event's default behaviour on false.
func (c *Coordinator) Start(id string, in Input) bool {
	c.mu.Lock()
	if !c.canStartLocked(id, in) {
		c.mu.Unlock()
		return false
	}
	p, _ := PointOf(in)
	c.sess = Session{
		State:     StateDragging,
		DraggedID: id,
		Action:    ActionBlocked,
		Pointer:   p,
		Modality:  ModalityOf(in),
	}
	c.mu.Unlock()

	c.haptics.Vibrate(patternStart)
	return true
}

func (c *Coordinator) canStartLocked(id string, in Input) bool {
	if c.closed || !c.canEdit || c.loading {
		return false
	}
	if c.sess.State != StateIdle {
		return false
	}
	if c.lock.Locked(c.clock.Now()) {
		return false
	}
	if _, ok := PointOf(in); !ok {
		return false
	}
	_, ok := c.board.Entity(id)
	return ok
}

// Move tracks the pointer. The ghost position updates on every call; the drag-over
// cell and action are recomputed at most once per throttle window.
func (c *Coordinator) Move(in Input) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.acceptsLocked(in) {
		return
	}
	p, ok := PointOf(in)
	if !ok {
		return
	}
	c.sess.Pointer = p
	if c.throttle != nil {
		return
	}
	gen := c.gen
	c.throttle = c.clock.AfterFunc(c.throttleWindow, func() { c.onThrottle(gen) })
}

func (c *Coordinator) onThrottle(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.sess.State != StateDragging {
		return
	}
	c.throttle = nil
	c.recomputeLocked()
}

// acceptsLocked guards Move and Drop: an active drag, edit mode still granted, and
// the same input modality that started it.
func (c *Coordinator) acceptsLocked(in Input) bool {
	return !c.closed &&
		c.canEdit &&
		c.sess.State == StateDragging &&
		ModalityOf(in) == c.sess.Modality
}

func (c *Coordinator) recomputeLocked() {
	if cell, ok := c.cfg.CellAt(c.sess.Pointer); ok {
		c.sess.DragOver = &cell
	} else {
		c.sess.DragOver = nil
	}
	c.sess.Action = c.resolveLocked()
}

func (c *Coordinator) resolveLocked() Action {
	target := c.sess.DragOver
	if target == nil || !c.cfg.Contains(*target) {
		return ActionBlocked
	}
	if !c.canEdit || c.lock.Locked(c.clock.Now()) {
		return ActionBlocked
	}
	own, ok := c.board.Effective(c.sess.DraggedID)
	if !ok || own == *target {
		return ActionBlocked
	}
	if occ, ok := c.board.EntityAt(*target); ok && occ.ID != c.sess.DraggedID {
		return ActionSwap
	}
	return ActionMove
}

// Drop ends the drag over the cell under in and commits the result. Occupancy is
// re-resolved against the latest board state here rather than trusting the last
// throttled drag-over computation. The commit runs under the watchdog; Drop blocks
// until it resolves or the watchdog fires, so UI hosts call it off their event loop.
func (c *Coordinator) Drop(ctx context.Context, in Input) Outcome {
	c.mu.Lock()
	if !c.acceptsLocked(in) {
		c.mu.Unlock()
		return OutcomeIgnored
	}
	c.stopThrottleLocked()
	if p, ok := PointOf(in); ok {
		c.sess.Pointer = p
		c.recomputeLocked()
	} else {
		c.sess.Action = c.resolveLocked()
	}

	if c.sess.DragOver == nil || c.sess.Action == ActionBlocked {
		c.resetLocked()
		c.mu.Unlock()
		return OutcomeCancelled
	}
	mover, ok := c.board.Entity(c.sess.DraggedID)
	if !ok {
		c.resetLocked()
		c.mu.Unlock()
		return OutcomeCancelled
	}
	target := *c.sess.DragOver
	var conflict *grid.Entity
	if c.sess.Action == ActionSwap {
		if occ, ok := c.board.EntityAt(target); ok {
			conflict = &occ
		}
	}
	c.sess.State = StateCommitting
	gen := c.gen
	c.mu.Unlock()

	return c.commit(ctx, gen, mover, target, conflict)
}

type commitResult struct {
	ok  bool
	err error
}

func (c *Coordinator) commit(ctx context.Context, gen uint64, mover grid.Entity, target grid.Position, conflict *grid.Entity) Outcome {
	wctx, cancel := context.WithTimeout(ctx, c.watchdog)
	defer cancel()
	stop := context.AfterFunc(c.life, cancel)
	defer stop()

	done := make(chan commitResult, 1)
	go func() {
		ok, err := c.committer.Commit(wctx, mover, target, conflict)
		done <- commitResult{ok: ok, err: err}
	}()

	select {
	case r := <-done:
		if r.ok || wctx.Err() == nil {
			return c.finish(gen, mover, target, conflict, r)
		}
		return c.abandon(gen, mover, conflict, wctx)
	case <-wctx.Done():
		return c.abandon(gen, mover, conflict, wctx)
	}
}

func (c *Coordinator) finish(gen uint64, mover grid.Entity, target grid.Position, conflict *grid.Entity, r commitResult) Outcome {
	c.mu.Lock()
	current := gen == c.gen
	if current {
		c.resetLocked()
	}
	c.mu.Unlock()

	switch {
	case r.ok:
		if current {
			c.notify.Success(successMessage(mover, target, conflict))
			c.haptics.Vibrate(patternSuccess)
		}
		return OutcomeCommitted
	case r.err == nil:
		return OutcomeCancelled
	default:
		c.log.Info("drop commit failed",
			zap.String("zone", c.zone),
			zap.String("establishment", mover.ID),
			zap.Stringer("target", target),
			zap.Error(r.err))
		if current {
			c.notify.Error(userMessage(r.err))
			c.haptics.Vibrate(patternFailure)
		}
		return OutcomeFailed
	}
}

// abandon resets the session when the commit did not settle in time or the view was
// torn down. Optimistic entries are discarded so the board matches the last
// authoritative state; a late response is ignored.
func (c *Coordinator) abandon(gen uint64, mover grid.Entity, conflict *grid.Entity, wctx context.Context) Outcome {
	ids := []string{mover.ID}
	if conflict != nil {
		ids = append(ids, conflict.ID)
	}
	c.board.Overlay().Discard(ids...)

	c.mu.Lock()
	current := gen == c.gen
	if current {
		c.resetLocked()
	}
	closed := c.closed
	c.mu.Unlock()

	if !errors.Is(wctx.Err(), context.DeadlineExceeded) || closed {
		return OutcomeCancelled
	}
	c.log.Warn("drop watchdog expired, session reset",
		zap.String("zone", c.zone),
		zap.String("establishment", mover.ID),
		zap.Duration("timeout", c.watchdog))
	if current {
		c.notify.Error(msgTimeout)
		c.haptics.Vibrate(patternFailure)
	}
	return OutcomeTimedOut
}

// Cancel resets the session unconditionally.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// End is the drag-end notification; identical to Cancel.
func (c *Coordinator) End() { c.Cancel() }

// Teardown cancels everything and rejects further input. In-flight commits are aborted.
func (c *Coordinator) Teardown() {
	c.mu.Lock()
	c.closed = true
	c.resetLocked()
	c.mu.Unlock()
	c.shutdown()
}

func (c *Coordinator) resetLocked() {
	c.stopThrottleLocked()
	c.gen++
	c.sess = Session{}
}

func (c *Coordinator) stopThrottleLocked() {
	if c.throttle != nil {
		c.throttle.Stop()
		c.throttle = nil
	}
}

func successMessage(mover grid.Entity, target grid.Position, conflict *grid.Entity) string {
	name := mover.Display.Name
	if name == "" {
		name = mover.ID
	}
	if conflict != nil {
		other := conflict.Display.Name
		if other == "" {
			other = conflict.ID
		}
		return fmt.Sprintf("Swapped %s with %s", name, other)
	}
	return fmt.Sprintf("Moved %s to %s", name, target)
}
