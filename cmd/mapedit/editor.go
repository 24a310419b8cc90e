package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/pattamap/server/internal/commit"
	"github.com/pattamap/server/internal/config"
	"github.com/pattamap/server/internal/core/event"
	"github.com/pattamap/server/internal/core/system"
	"github.com/pattamap/server/internal/data"
	"github.com/pattamap/server/internal/drag"
	"github.com/pattamap/server/internal/grid"
	"go.uber.org/zap"
)

const (
	frameInterval = 16 * time.Millisecond
	toastDuration = 3 * time.Second
	fetchTimeout  = 10 * time.Second
)

// editor is the zone view. Everything except the fetch and drop goroutines runs on
// the frame loop; those goroutines report back through the bus.
type editor struct {
	screen tcell.Screen
	log    *zap.Logger
	bus    *event.Bus
	zone   data.ZoneInfo

	board  *grid.Board
	lock   *grid.Lock
	client *commit.Client
	coord  *drag.Coordinator
	opts   drag.Options
	lay    layout
	player *pulsePlayer
	frames *system.Runner

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	pressed       bool
	resizePending bool
	identity      string
	canEdit       bool
	toast         event.Toast
	toastUntil    time.Time
}

func newEditor(screen tcell.Screen, cfg config.EditorConfig, zone data.ZoneInfo, log *zap.Logger) *editor {
	bus := event.NewBus()
	board := grid.NewBoard(nil)
	lock := &grid.Lock{}
	w, h := screen.Size()
	gcfg := gridFor(zone, w, h)

	e := &editor{
		screen: screen,
		log:    log,
		bus:    bus,
		zone:   zone,
		board:  board,
		lock:   lock,
		client: commit.New(commit.Options{
			BaseURL:    cfg.BaseURL,
			Zone:       zone.ID,
			Token:      cfg.Token,
			LockWindow: cfg.LockWindow,
		}, gcfg, board, lock, log),
		opts: drag.Options{
			Zone:     zone.ID,
			Throttle: cfg.Throttle,
			Watchdog: cfg.Watchdog,
			Notifier: busNotifier{bus: bus},
			Haptics:  busHaptics{bus: bus},
		},
		player: newPulsePlayer(cfg.Sound, screen, log),
		frames: system.NewRunner(),
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	event.Subscribe(bus, e.onToast)
	event.Subscribe(bus, func(p event.Pulse) { e.player.Play(p.Pattern) })
	event.Subscribe(bus, e.onDropSettled)
	event.Subscribe(bus, e.onEntitiesLoaded)
	event.Subscribe(bus, e.onIdentity)

	e.frames.Register(system.Func{At: system.PhaseEvents, Fn: func(time.Duration) {
		bus.SwapBuffers()
		bus.DispatchAll()
	}})
	e.frames.Register(system.Func{At: system.PhaseUpdate, Fn: func(time.Duration) {
		if e.resizePending && e.coord.Snapshot().State == drag.StateIdle {
			e.mount(e.screen.Size())
		}
	}})
	e.frames.Register(system.Func{At: system.PhaseRender, Fn: func(time.Duration) { e.draw() }})

	e.mount(w, h)
	return e
}

// mount (re)creates the coordinator for the current terminal size. The grid config
// is fixed for a coordinator's lifetime, so a resize is an unmount and a mount.
func (e *editor) mount(w, h int) {
	if e.coord != nil {
		e.coord.Teardown()
	}
	opts := e.opts
	opts.Config = gridFor(e.zone, w, h)
	e.lay = newLayout(opts.Config, w, h)
	e.coord = drag.NewCoordinator(opts, e.board, e.lock, e.client, e.log)
	e.coord.SetCanEdit(e.canEdit)
	e.pressed = false
	e.resizePending = false
}

func (e *editor) run() {
	e.fetchIdentity()
	e.refresh()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := e.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			if !e.handle(ev) {
				return
			}
		case now := <-ticker.C:
			e.frames.TickAt(now)
		}
	}
}

// close tears the view down. In-flight commits are aborted and awaited.
func (e *editor) close() {
	e.coord.Teardown()
	e.cancel()
	e.wg.Wait()
	e.player.Close()
	e.screen.Fini()
}

func (e *editor) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyCtrlC,
			ev.Key() == tcell.KeyRune && ev.Rune() == 'q':
			return false
		case ev.Key() == tcell.KeyEscape:
			e.coord.Cancel()
			e.pressed = false
		case ev.Key() == tcell.KeyRune && ev.Rune() == 'r':
			e.refresh()
		}
	case *tcell.EventMouse:
		e.handleMouse(ev)
	case *tcell.EventResize:
		e.screen.Sync()
		e.resizePending = true
	}
	return true
}

func (e *editor) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	pt := pointAt(x, y)
	in := drag.Pointer{X: pt.X, Y: pt.Y}
	down := ev.Buttons()&tcell.Button1 != 0

	switch {
	case down && !e.pressed:
		e.pressed = true
		if e.resizePending {
			return
		}
		pos, ok := e.lay.cfg.CellAt(pt)
		if !ok {
			return
		}
		if ent, ok := e.board.EntityAt(pos); ok {
			e.coord.Start(ent.ID, in)
		}
	case down:
		e.coord.Move(in)
	case e.pressed:
		e.pressed = false
		sess := e.coord.Snapshot()
		if !sess.Dragging() {
			return
		}
		coord, id := e.coord, sess.DraggedID
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			out := coord.Drop(e.ctx, in)
			event.Emit(e.bus, event.DropSettled{EntityID: id, Outcome: out.String()})
		}()
	}
}

func (e *editor) refresh() {
	e.coord.SetLoading(true)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(e.ctx, fetchTimeout)
		defer cancel()
		entities, err := e.client.List(ctx)
		event.Emit(e.bus, event.EntitiesLoaded{Zone: e.zone.ID, Entities: entities, Err: err})
	}()
}

func (e *editor) fetchIdentity() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(e.ctx, fetchTimeout)
		defer cancel()
		id, err := e.client.Me(ctx)
		event.Emit(e.bus, event.IdentityResolved{Name: id.Name, CanEdit: id.CanEdit, Err: err})
	}()
}

func (e *editor) onToast(t event.Toast) {
	e.toast = t
	e.toastUntil = time.Now().Add(toastDuration)
}

func (e *editor) onDropSettled(d event.DropSettled) {
	e.log.Debug("drop settled", zap.String("establishment", d.EntityID), zap.String("outcome", d.Outcome))
	if d.Outcome != drag.OutcomeIgnored.String() {
		e.refresh()
	}
}

func (e *editor) onEntitiesLoaded(l event.EntitiesLoaded) {
	e.coord.SetLoading(false)
	if l.Err != nil {
		e.log.Warn("establishment refresh failed", zap.String("zone", l.Zone), zap.Error(l.Err))
		e.onToast(event.Toast{Level: event.ToastError, Text: "Could not load establishments."})
		return
	}
	e.coord.SetEntities(l.Entities)
}

func (e *editor) onIdentity(id event.IdentityResolved) {
	if id.Err != nil {
		e.log.Warn("identity lookup failed", zap.Error(id.Err))
	}
	e.identity = id.Name
	e.canEdit = id.CanEdit
	e.coord.SetCanEdit(id.CanEdit)
}

// ── Rendering ─────────────────────────────────────────────────────

var (
	styleHeader  = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)
	styleCellA   = tcell.StyleDefault.Background(tcell.ColorNavy)
	styleCellB   = tcell.StyleDefault.Background(tcell.ColorBlack)
	styleMove    = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorGreen)
	styleSwap    = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorOlive)
	styleBlocked = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorMaroon)
	styleGhost   = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorYellow).Bold(true)
	styleOK      = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleErr     = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleHint    = tcell.StyleDefault.Foreground(tcell.ColorGray)
)

func (e *editor) draw() {
	e.screen.Clear()
	w, h := e.screen.Size()
	sess := e.coord.Snapshot()

	mode := "view only"
	if e.canEdit {
		mode = "editing"
	}
	who := e.identity
	if who == "" {
		who = "anonymous"
	}
	e.fillRow(0, w, styleHeader)
	e.drawText(1, 0, w-2, fmt.Sprintf("PattaMap · %s · %s (%s) · %s", e.zone.Name, who, mode, sess.State), styleHeader)

	for pos, r := range e.lay.rects {
		style := styleCellA
		if (pos.Row+pos.Col)%2 == 0 {
			style = styleCellB
		}
		if sess.Dragging() && sess.DragOver != nil && *sess.DragOver == pos {
			switch sess.Action {
			case drag.ActionMove:
				style = styleMove
			case drag.ActionSwap:
				style = styleSwap
			default:
				style = styleBlocked
			}
		}
		e.fillRect(r, style)
	}

	for _, ent := range e.coord.Entities() {
		r, ok := e.lay.rects[ent.Pos]
		if !ok {
			continue
		}
		_, _, style, _ := e.screen.GetContent(r.x0, r.y0)
		if ent.ID == sess.DraggedID {
			style = style.Foreground(tcell.ColorGray)
		}
		e.drawText(r.x0, r.y0+(r.y1-r.y0)/2, r.width(), label(ent), style)
	}

	if sess.State != drag.StateIdle {
		if ent, ok := e.board.Entity(sess.DraggedID); ok {
			e.drawText(int(sess.Pointer.X), int(sess.Pointer.Y), w-int(sess.Pointer.X), "["+label(ent)+"]", styleGhost)
		}
	}

	switch {
	case time.Now().Before(e.toastUntil):
		style := styleOK
		if e.toast.Level == event.ToastError {
			style = styleErr
		}
		e.drawText(1, h-1, w-2, e.toast.Text, style)
	case sess.State == drag.StateCommitting:
		e.drawText(1, h-1, w-2, "Saving…", styleHint)
	default:
		e.drawText(1, h-1, w-2, "drag to move or swap · r refresh · esc cancel · q quit", styleHint)
	}
	e.screen.Show()
}

func label(ent grid.Entity) string {
	if ent.Display.Name != "" {
		return ent.Display.Name
	}
	return ent.ID
}

func (e *editor) fillRow(y, w int, style tcell.Style) {
	for x := 0; x < w; x++ {
		e.screen.SetContent(x, y, ' ', nil, style)
	}
}

func (e *editor) fillRect(r rect, style tcell.Style) {
	for y := r.y0; y <= r.y1; y++ {
		for x := r.x0; x <= r.x1; x++ {
			e.screen.SetContent(x, y, ' ', nil, style)
		}
	}
}

func (e *editor) drawText(x, y, limit int, s string, style tcell.Style) {
	for _, g := range fitLabel(s, limit) {
		e.screen.SetContent(x, y, g.r, g.comb, style)
		x += g.width
	}
}
