package system

import (
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/quadforge/engine/internal/core/ecs"
	"github.com/quadforge/engine/internal/core/event"
)

// ErrAlreadyRegistered is returned when a system of the same type is registered twice.
var ErrAlreadyRegistered = errors.New("system already registered")

// Runner executes systems in phase order for each lifecycle step of a frame.
type Runner struct {
	systems []System
	sorted  bool
	reg     *ecs.Registry
	bus     *event.Bus
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
	}
}

// Register adds s, binding it to the current scene if one is bound already.
// Only one system per concrete type may be registered.
func (r *Runner) Register(s System) error {
	t := reflect.TypeOf(s)
	for _, existing := range r.systems {
		if reflect.TypeOf(existing) == t {
			return fmt.Errorf("register %s: %w", t, ErrAlreadyRegistered)
		}
	}
	if r.reg != nil {
		s.Bind(r.reg, r.bus)
	}
	r.systems = append(r.systems, s)
	r.sorted = false
	return nil
}

// Unregister removes the system of the same concrete type as s.
func (r *Runner) Unregister(s System) bool {
	t := reflect.TypeOf(s)
	for i, existing := range r.systems {
		if reflect.TypeOf(existing) == t {
			r.systems = append(r.systems[:i], r.systems[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the registered system of type T.
func Find[T System](r *Runner) (T, bool) {
	for _, s := range r.systems {
		if t, ok := s.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

func (r *Runner) Len() int { return len(r.systems) }

// Bind points every system at a new scene's registry and bus.
func (r *Runner) Bind(reg *ecs.Registry, bus *event.Bus) {
	r.reg = reg
	r.bus = bus
	for _, s := range r.systems {
		s.Bind(reg, bus)
	}
}

// Init runs for paused systems too, so they are ready when resumed.
func (r *Runner) Init() {
	r.ensureSorted()
	for _, s := range r.systems {
		s.Init()
	}
}

func (r *Runner) FixedUpdate(dt float32) {
	r.each(func(s System) { s.FixedUpdate(dt) })
}

func (r *Runner) Update(dt float32) {
	r.each(func(s System) { s.Update(dt) })
}

func (r *Runner) Render(alpha float32) {
	r.each(func(s System) { s.Render(alpha) })
}

func (r *Runner) UIRender() {
	r.each(func(s System) { s.UIRender() })
}

func (r *Runner) LateUpdate(dt float32) {
	r.each(func(s System) { s.LateUpdate(dt) })
}

// each runs fn over unpaused systems in phase order.
func (r *Runner) each(fn func(System)) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Paused() {
			continue
		}
		fn(s)
	}
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
