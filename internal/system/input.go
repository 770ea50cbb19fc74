package system

import (
	"slices"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/quadforge/engine/internal/core/ecs"
	coresys "github.com/quadforge/engine/internal/core/system"
	"github.com/quadforge/engine/internal/physics"
	"github.com/quadforge/engine/internal/scene"
)

// InputSystem drains terminal events queued by the polling goroutine and
// maps them to engine actions on the frame goroutine. Phase 0 (Script);
// register it before the BehaviourSystem so actions land in the same frame.
//
//	F9          toggle the debug view
//	arrows      pan the debug view
//	Tab         move focus to the next scripted entity and center on it
//	Enter       submit to the focused entity
//	mouse       hover the scripted entity under the cursor
//	q, Esc      quit
type InputSystem struct {
	coresys.Base
	events     <-chan tcell.Event
	maxPerTick int
	view       *DebugView       // optional
	scripts    *BehaviourSystem // optional
	quit       func()
	focus      ecs.EntityID
	hover      ecs.EntityID
	log        *zap.Logger
}

func NewInputSystem(
	events <-chan tcell.Event,
	maxPerTick int,
	view *DebugView,
	scripts *BehaviourSystem,
	quit func(),
	log *zap.Logger,
) *InputSystem {
	if maxPerTick <= 0 {
		maxPerTick = 64
	}
	return &InputSystem{
		events:     events,
		maxPerTick: maxPerTick,
		view:       view,
		scripts:    scripts,
		quit:       quit,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseScript }

// Focus returns the entity receiving Enter, or ecs.Null.
func (s *InputSystem) Focus() ecs.EntityID { return s.focus }

// Hover returns the entity under the mouse cursor, or ecs.Null.
func (s *InputSystem) Hover() ecs.EntityID { return s.hover }

func (s *InputSystem) Init() {
	s.focus = ecs.Null
	s.hover = ecs.Null
}

func (s *InputSystem) Update(float32) {
	for i := 0; i < s.maxPerTick; i++ {
		select {
		case ev := <-s.events:
			s.handle(ev)
		default:
			return
		}
	}
}

func (s *InputSystem) handle(ev tcell.Event) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		s.handleKey(ev)
	case *tcell.EventMouse:
		s.hoverAt(ev.Position())
	case *tcell.EventResize:
		if s.view != nil {
			s.view.screen.Sync()
		}
	}
}

func (s *InputSystem) handleKey(ev *tcell.EventKey) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		s.requestQuit()
	case tcell.KeyRune:
		if ev.Rune() == 'q' {
			s.requestQuit()
		}
	case tcell.KeyF9:
		s.toggleView()
	case tcell.KeyUp:
		s.pan(0, 1)
	case tcell.KeyDown:
		s.pan(0, -1)
	case tcell.KeyLeft:
		s.pan(-1, 0)
	case tcell.KeyRight:
		s.pan(1, 0)
	case tcell.KeyTab:
		s.cycleFocus()
	case tcell.KeyEnter:
		if s.scripts != nil && !s.focus.IsZero() {
			s.scripts.Send(s.focus, ActionSubmit)
		}
	}
}

func (s *InputSystem) requestQuit() {
	if s.quit != nil {
		s.quit()
	}
}

func (s *InputSystem) toggleView() {
	if s.view == nil {
		return
	}
	if s.view.Paused() {
		s.view.Resume()
	} else {
		s.view.Pause()
	}
	s.log.Debug("debug view toggled", zap.Bool("paused", s.view.Paused()))
}

func (s *InputSystem) pan(dx, dy int) {
	if s.view != nil {
		s.view.Pan(dx, dy)
	}
}

// cycleFocus moves focus to the scripted entity with the next higher id,
// wrapping around.
func (s *InputSystem) cycleFocus() {
	reg := s.Registry()
	if reg == nil || s.scripts == nil {
		return
	}
	ids := ecs.With[scene.Behaviour](reg)
	if len(ids) == 0 {
		return
	}
	slices.Sort(ids)

	next := ids[0]
	for _, id := range ids {
		if id > s.focus {
			next = id
			break
		}
	}
	if next == s.focus {
		return
	}
	s.scripts.Send(s.focus, ActionFocusExit)
	s.focus = next
	s.scripts.Send(s.focus, ActionFocusEnter)
	if t, ok := ecs.TryGetComponent[*scene.Transform](reg, next); ok && s.view != nil {
		pos, _, _ := t.World()
		s.view.LookAt(pos)
	}
	s.log.Debug("focus", zap.Stringer("entity", s.focus))
}

// hoverAt moves hover to the lowest scripted entity whose collider covers
// the terminal cell (x, y), sending HoverExit and HoverEnter on change.
func (s *InputSystem) hoverAt(x, y int) {
	reg := s.Registry()
	if reg == nil || s.view == nil || s.scripts == nil {
		return
	}
	half := s.view.cellUnits / 2
	cell := physics.AABB{Center: s.view.ToWorld(x, y), HalfSize: mgl32.Vec2{half, half}}

	ids := ecs.With3[scene.Behaviour, *scene.Transform, *physics.BoxCollider](reg)
	slices.Sort(ids)
	under := ecs.Null
	for _, id := range ids {
		t := ecs.GetComponent[*scene.Transform](reg, id)
		c := ecs.GetComponent[*physics.BoxCollider](reg, id)
		if worldBounds(t, c, 1).Intersects(cell, 0) {
			under = id
			break
		}
	}
	if under == s.hover {
		return
	}
	s.scripts.Send(s.hover, ActionHoverExit)
	s.hover = under
	s.scripts.Send(s.hover, ActionHoverEnter)
}
