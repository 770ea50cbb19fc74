package data

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/quadforge/engine/internal/core/ecs"
	"github.com/quadforge/engine/internal/physics"
	"github.com/quadforge/engine/internal/scene"
)

// SceneFile is the YAML layout of a scene under scene.dir.
type SceneFile struct {
	Name     string        `yaml:"name"`
	Entities []EntityEntry `yaml:"entities"`
}

// EntityEntry describes one entity. An entity gets a Transform always,
// a Rigidbody and BoxCollider only when those blocks are present.
type EntityEntry struct {
	Name      string          `yaml:"name"`
	Tags      []string        `yaml:"tags"`
	Parent    string          `yaml:"parent"` // name of another entry
	Transform TransformEntry  `yaml:"transform"`
	Rigidbody *RigidbodyEntry `yaml:"rigidbody"`
	Collider  *ColliderEntry  `yaml:"collider"`
	Scripts   []string        `yaml:"scripts"`
}

type TransformEntry struct {
	Position [2]float32 `yaml:"position"`
	Scale    [2]float32 `yaml:"scale"`    // zero means (1,1)
	Rotation float32    `yaml:"rotation"` // degrees
}

// RigidbodyEntry fields left out keep the NewRigidbody defaults.
type RigidbodyEntry struct {
	Mass        *float32   `yaml:"mass"`
	Restitution *float32   `yaml:"restitution"`
	Friction    *float32   `yaml:"friction"`
	Gravity     *bool      `yaml:"gravity"`
	Velocity    [2]float32 `yaml:"velocity"`
	Kinematic   bool       `yaml:"kinematic"`
	FreezeX     bool       `yaml:"freeze_x"`
	FreezeY     bool       `yaml:"freeze_y"`
	Bounceable  bool       `yaml:"bounceable"`
}

type ColliderEntry struct {
	Offset  [2]float32 `yaml:"offset"`
	Size    [2]float32 `yaml:"size"` // zero means scene.DefaultQuadSize
	Trigger bool       `yaml:"trigger"`
}

// ScriptFactory builds a behaviour from a registered script name.
type ScriptFactory interface {
	NewBehaviour(name string) (scene.Behaviour, error)
}

// LoadScene loads and validates a scene file.
func LoadScene(path string) (*SceneFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene: %w", err)
	}
	var f SceneFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse scene %s: %w", path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("scene %s: %w", path, err)
	}
	return &f, nil
}

// Validate checks names, parent references and physical values.
func (f *SceneFile) Validate() error {
	var errs []error
	names := make(map[string]bool, len(f.Entities))
	for i, e := range f.Entities {
		if e.Name == "" {
			continue
		}
		if names[e.Name] {
			errs = append(errs, fmt.Errorf("entity %d: duplicate name %q", i, e.Name))
		}
		names[e.Name] = true
	}
	for i, e := range f.Entities {
		if e.Parent != "" {
			if !names[e.Parent] {
				errs = append(errs, fmt.Errorf("entity %d: unknown parent %q", i, e.Parent))
			} else if e.Parent == e.Name {
				errs = append(errs, fmt.Errorf("entity %d: parent of itself", i))
			}
		}
		if rb := e.Rigidbody; rb != nil {
			if rb.Mass != nil && *rb.Mass < 0 {
				errs = append(errs, fmt.Errorf("entity %d: negative mass", i))
			}
			if rb.Friction != nil && *rb.Friction < 0 {
				errs = append(errs, fmt.Errorf("entity %d: negative friction", i))
			}
		}
		if c := e.Collider; c != nil && (c.Size[0] < 0 || c.Size[1] < 0) {
			errs = append(errs, fmt.Errorf("entity %d: negative collider size", i))
		}
	}
	return errors.Join(errs...)
}

// Spawn creates every entity of f in s and returns the named ones.
// Scripts are attached last, once the hierarchy is in place; scripts may be
// nil when no entry names a script.
func Spawn(s *scene.Scene, f *SceneFile, scripts ScriptFactory) (map[string]ecs.EntityID, error) {
	reg := s.Registry()
	ids := make([]ecs.EntityID, len(f.Entities))
	named := make(map[string]ecs.EntityID, len(f.Entities))

	for i := range f.Entities {
		e := &f.Entities[i]
		ent, err := s.CreateEntity(scene.PrimitiveEmpty)
		if err != nil {
			return named, fmt.Errorf("spawn %q: %w", e.Name, err)
		}
		ids[i] = ent.ID()
		if e.Name != "" {
			named[e.Name] = ent.ID()
		}
		for _, tag := range e.Tags {
			ent.AddTag(tag)
		}
		addComponents(reg, ent.ID(), e)
	}

	for i, e := range f.Entities {
		if e.Parent == "" {
			continue
		}
		parent, ok := named[e.Parent]
		if !ok {
			return named, fmt.Errorf("spawn %q: unknown parent %q", e.Name, e.Parent)
		}
		if err := ecs.SetParent(reg, ids[i], parent); err != nil {
			return named, fmt.Errorf("spawn %q: %w", e.Name, err)
		}
	}

	for i, e := range f.Entities {
		for _, name := range e.Scripts {
			if scripts == nil {
				return named, fmt.Errorf("spawn %q: script %q without a script factory", e.Name, name)
			}
			b, err := scripts.NewBehaviour(name)
			if err != nil {
				return named, fmt.Errorf("spawn %q: %w", e.Name, err)
			}
			scene.AddBehaviour(reg, ids[i], b)
		}
	}

	s.Log().Debug("scene spawned",
		zap.Int("entities", len(ids)),
		zap.Int("named", len(named)),
	)
	return named, nil
}

func addComponents(reg *ecs.Registry, id ecs.EntityID, e *EntityEntry) {
	t := scene.NewTransform(mgl32.Vec2(e.Transform.Position))
	if e.Transform.Scale != [2]float32{} {
		t.Scale = mgl32.Vec2(e.Transform.Scale)
	}
	t.SetRotation(mgl32.DegToRad(e.Transform.Rotation))
	ecs.AddComponent(reg, id, t)

	if e.Rigidbody != nil {
		ecs.AddComponent(reg, id, newRigidbody(e.Rigidbody))
	}
	if e.Collider != nil {
		size := mgl32.Vec2(e.Collider.Size)
		if size == (mgl32.Vec2{}) {
			size = scene.DefaultQuadSize
		}
		c := physics.NewBoxCollider(size)
		c.Offset = mgl32.Vec2(e.Collider.Offset)
		c.IsTrigger = e.Collider.Trigger
		ecs.AddComponent(reg, id, c)
	}
}

func newRigidbody(e *RigidbodyEntry) *physics.Rigidbody {
	rb := physics.NewRigidbody()
	if e.Mass != nil {
		rb.Mass = *e.Mass
	}
	if e.Restitution != nil {
		rb.Restitution = *e.Restitution
	}
	if e.Friction != nil {
		rb.Friction = *e.Friction
	}
	if e.Gravity != nil {
		rb.AffectedByGravity = *e.Gravity
	}
	rb.Velocity = mgl32.Vec2(e.Velocity)
	rb.Kinematic = e.Kinematic
	rb.FreezeX = e.FreezeX
	rb.FreezeY = e.FreezeY
	rb.Bounceable = e.Bounceable
	return rb
}
