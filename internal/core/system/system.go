package system

import (
	"github.com/quadforge/engine/internal/core/ecs"
	"github.com/quadforge/engine/internal/core/event"
)

// Phase defines execution ordering within each lifecycle step of a frame.
type Phase int

const (
	PhaseScript      Phase = iota // 0: user behaviours
	PhasePhysics                  // 1: integration + collision resolution
	PhasePostPhysics              // 2: reactions to resolved state
	PhaseRender                   // 3: debug drawing, read-only
	PhaseCleanup                  // 4: destroy queued entities
)

// System is the interface every engine system implements. Every lifecycle
// method runs on the frame goroutine; dt is in seconds.
type System interface {
	Phase() Phase
	// Bind points the system at the current scene's registry and bus.
	Bind(reg *ecs.Registry, bus *event.Bus)
	Init()
	FixedUpdate(dt float32)
	Update(dt float32)
	Render(alpha float32)
	UIRender()
	LateUpdate(dt float32)
	Paused() bool
}

// Base provides no-op lifecycle hooks, scene binding and pausing. Systems
// embed it and override what they need.
type Base struct {
	reg    *ecs.Registry
	bus    *event.Bus
	paused bool
}

func (b *Base) Bind(reg *ecs.Registry, bus *event.Bus) {
	b.reg = reg
	b.bus = bus
}

func (b *Base) Registry() *ecs.Registry { return b.reg }
func (b *Base) Bus() *event.Bus         { return b.bus }
func (b *Base) Pause()                  { b.paused = true }
func (b *Base) Resume()                 { b.paused = false }
func (b *Base) Paused() bool            { return b.paused }

func (b *Base) Init()               {}
func (b *Base) FixedUpdate(float32) {}
func (b *Base) Update(float32)      {}
func (b *Base) Render(float32)      {}
func (b *Base) UIRender()           {}
func (b *Base) LateUpdate(float32)  {}
