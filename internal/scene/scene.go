package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/quadforge/engine/internal/core/ecs"
	"github.com/quadforge/engine/internal/core/event"
	"github.com/quadforge/engine/internal/physics"
)

// Primitive selects a prefab layout for CreateEntity.
type Primitive uint8

const (
	PrimitiveEmpty Primitive = iota
	PrimitiveQuad            // Transform + Rigidbody + BoxCollider
)

// DefaultQuadSize is the collider size given to quad primitives.
var DefaultQuadSize = mgl32.Vec2{50, 50}

// Hooks are optional scene-level callbacks invoked by the frame driver
// alongside the systems. Nil hooks are skipped.
type Hooks struct {
	OnEnter       func(*Scene)
	OnExit        func(*Scene)
	OnFixedUpdate func(s *Scene, dt float32)
	OnUpdate      func(s *Scene, dt float32)
}

// Scene owns one registry and one event bus. Only the current scene
// receives ticks; switching scenes clears the old registry.
type Scene struct {
	name  string
	reg   *ecs.Registry
	bus   *event.Bus
	log   *zap.Logger
	Hooks Hooks
}

func New(name string, capacity int, log *zap.Logger) *Scene {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("scene", name))
	return &Scene{
		name: name,
		reg:  ecs.NewRegistry(capacity, log),
		bus:  event.NewBus(),
		log:  log,
	}
}

func (s *Scene) Name() string            { return s.name }
func (s *Scene) Registry() *ecs.Registry { return s.reg }
func (s *Scene) Bus() *event.Bus         { return s.bus }
func (s *Scene) Log() *zap.Logger        { return s.log }

// CreateEntity creates an entity laid out as the given primitive.
func (s *Scene) CreateEntity(kind Primitive) (ecs.Entity, error) {
	id, err := s.reg.CreateEntity()
	if err != nil {
		return ecs.Entity{}, fmt.Errorf("scene %s: %w", s.name, err)
	}

	switch kind {
	case PrimitiveQuad:
		ecs.AddComponent(s.reg, id, NewTransform(mgl32.Vec2{}))
		ecs.AddComponent(s.reg, id, physics.NewRigidbody())
		ecs.AddComponent(s.reg, id, physics.NewBoxCollider(DefaultQuadSize))
	case PrimitiveEmpty:
	default:
		s.log.Warn("unknown primitive, created empty entity", zap.Uint8("kind", uint8(kind)))
	}
	return ecs.NewEntity(id, s.reg), nil
}

// CreateQuad creates a quad primitive at pos with a collider of size.
func (s *Scene) CreateQuad(pos, size mgl32.Vec2) (ecs.Entity, error) {
	e, err := s.CreateEntity(PrimitiveQuad)
	if err != nil {
		return e, err
	}
	t := ecs.GetComponent[*Transform](s.reg, e.ID())
	t.Position, t.LastPosition = pos, pos
	ecs.GetComponent[*physics.BoxCollider](s.reg, e.ID()).Size = size
	return e, nil
}

func (s *Scene) DestroyEntity(id ecs.EntityID) { s.reg.DestroyEntity(id) }

// Enter runs the OnEnter hook and announces the scene on its bus.
func (s *Scene) Enter() {
	if s.Hooks.OnEnter != nil {
		s.Hooks.OnEnter(s)
	}
	event.Publish(s.bus, event.SceneLoaded{Name: s.name})
}

// Exit runs the OnExit hook, announces the unload and clears the registry.
func (s *Scene) Exit() {
	if s.Hooks.OnExit != nil {
		s.Hooks.OnExit(s)
	}
	event.Publish(s.bus, event.SceneUnloaded{Name: s.name})
	s.reg.LogStats()
	s.reg.Clear()
}
