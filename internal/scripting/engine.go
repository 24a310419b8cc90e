package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding the placement rules.
// LState is not goroutine-safe, so calls are serialised by mu.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads the scripts under scriptsDir/placement.
// A missing directory leaves the engine empty, which permits every placement.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(filepath.Join(scriptsDir, "placement")); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load placement scripts: %w", err)
	}
	return e, nil
}

// NewEngineFromString loads a single chunk. Used by tools and tests.
func NewEngineFromString(src string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	if err := vm.DoString(src); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	return &Engine{vm: vm, log: log}, nil
}

func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// PlacementContext is what can_place sees.
type PlacementContext struct {
	Zone    string
	Type    string
	ID      string
	Row     int
	Col     int
	MaxRows int
	MaxCols int
}

// CanPlace calls the Lua can_place function. It returns (true, "") when no rule is
// defined. A script error rejects the placement.
func (e *Engine) CanPlace(ctx PlacementContext) (bool, string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("can_place")
	if fn == lua.LNil {
		return true, ""
	}

	t := e.vm.NewTable()
	t.RawSetString("zone", lua.LString(ctx.Zone))
	t.RawSetString("type", lua.LString(ctx.Type))
	t.RawSetString("id", lua.LString(ctx.ID))
	t.RawSetString("row", lua.LNumber(ctx.Row))
	t.RawSetString("col", lua.LNumber(ctx.Col))
	t.RawSetString("max_rows", lua.LNumber(ctx.MaxRows))
	t.RawSetString("max_cols", lua.LNumber(ctx.MaxCols))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    2,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua can_place error",
			zap.String("zone", ctx.Zone),
			zap.String("establishment", ctx.ID),
			zap.Error(err))
		return false, "placement rules unavailable"
	}

	reason := e.vm.Get(-1)
	allowed := e.vm.Get(-2)
	e.vm.Pop(2)

	if lua.LVAsBool(allowed) {
		return true, ""
	}
	msg := ""
	if reason != lua.LNil {
		msg = lua.LVAsString(reason)
	}
	if msg == "" {
		msg = "placement not allowed"
	}
	return false, msg
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}
