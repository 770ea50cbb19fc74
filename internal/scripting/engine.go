package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/quadforge/engine/internal/core/ecs"
	"github.com/quadforge/engine/internal/scene"
)

// ErrUnknownScript is returned by NewBehaviour for names no script registered.
var ErrUnknownScript = errors.New("unknown script")

// ScriptError wraps a Lua runtime error raised inside a behaviour hook.
// Hooks panic with it; the frame that ran the hook unwinds.
type ScriptError struct {
	Script string
	Hook   string
	Err    error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("lua %s.%s: %v", e.Script, e.Hook, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }

// Engine wraps a single gopher-lua VM shared by every Lua behaviour.
// Single-goroutine access only (frame loop).
type Engine struct {
	vm      *lua.LState
	log     *zap.Logger
	classes map[string]*lua.LTable

	// registry of the behaviour whose hook is running; engine.* calls use it
	reg    *ecs.Registry
	script string
}

// NewEngine creates a Lua engine and loads every script in scriptsDir.
// A missing directory yields an engine with no scripts.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{
		vm:      vm,
		log:     log,
		classes: make(map[string]*lua.LTable),
	}
	vm.SetGlobal("behaviour", vm.NewFunction(e.luaRegister))
	vm.SetGlobal("engine", e.apiTable())

	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	log.Info("lua scripts loaded", zap.String("dir", scriptsDir), zap.Int("behaviours", len(e.classes)))
	return e, nil
}

func (e *Engine) Close() { e.vm.Close() }

// loadDir loads all .lua files in a directory, in name order.
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

// LoadString runs a chunk of Lua source, typically one that registers
// behaviours.
func (e *Engine) LoadString(src string) error {
	if err := e.vm.DoString(src); err != nil {
		return fmt.Errorf("load lua chunk: %w", err)
	}
	return nil
}

// Behaviours returns the registered behaviour names, sorted.
func (e *Engine) Behaviours() []string {
	names := make([]string, 0, len(e.classes))
	for name := range e.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewBehaviour instantiates the behaviour registered under name. The
// result is a *LuaBehaviour.
func (e *Engine) NewBehaviour(name string) (scene.Behaviour, error) {
	class, ok := e.classes[name]
	if !ok {
		return nil, fmt.Errorf("behaviour %q: %w", name, ErrUnknownScript)
	}
	self := e.vm.NewTable()
	mt := e.vm.NewTable()
	mt.RawSetString("__index", class)
	e.vm.SetMetatable(self, mt)
	return &LuaBehaviour{eng: e, name: name, self: self}, nil
}

// luaRegister implements behaviour(name, class).
func (e *Engine) luaRegister(L *lua.LState) int {
	name := L.CheckString(1)
	class := L.CheckTable(2)
	if _, dup := e.classes[name]; dup {
		e.log.Warn("lua behaviour redefined", zap.String("name", name))
	}
	e.classes[name] = class
	return 0
}

// enter makes reg and script current for engine.* calls and returns a func
// restoring the previous ones.
func (e *Engine) enter(reg *ecs.Registry, script string) func() {
	prevReg, prevScript := e.reg, e.script
	e.reg, e.script = reg, script
	return func() { e.reg, e.script = prevReg, prevScript }
}
