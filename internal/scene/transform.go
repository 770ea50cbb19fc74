package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/quadforge/engine/internal/core/ecs"
)

// Transform places an entity in the scene. Position, Scale and Rotation are
// relative to the parent transform when the entity has one.
type Transform struct {
	ecs.Base
	Position     mgl32.Vec2
	LastPosition mgl32.Vec2 // position before the last Translate, for interpolation
	Scale        mgl32.Vec2
	Rotation     float32 // radians around Z
}

func NewTransform(pos mgl32.Vec2) *Transform {
	return &Transform{
		Position:     pos,
		LastPosition: pos,
		Scale:        mgl32.Vec2{1, 1},
	}
}

// Translate moves the transform by offset and remembers the old position.
func (t *Transform) Translate(offset mgl32.Vec2) {
	t.LastPosition = t.Position
	t.Position = t.Position.Add(offset)
}

func (t *Transform) Rotate(radians float32)      { t.Rotation += radians }
func (t *Transform) SetRotation(radians float32) { t.Rotation = radians }
func (t *Transform) IsRotated() bool             { return t.Rotation != 0 }

// Interpolated blends LastPosition toward Position by alpha in [0,1].
func (t *Transform) Interpolated(alpha float32) mgl32.Vec2 {
	return t.LastPosition.Add(t.Position.Sub(t.LastPosition).Mul(alpha))
}

// World returns the transform composed with every ancestor transform.
// Ancestors without a Transform are treated as identity.
func (t *Transform) World() (pos, scale mgl32.Vec2, rotation float32) {
	pos, scale, rotation = t.Position, t.Scale, t.Rotation
	r := t.Registry()
	if r == nil {
		return pos, scale, rotation
	}

	id := t.EntityID()
	for {
		parent, ok := ecs.ParentOf(r, id)
		if !ok {
			return pos, scale, rotation
		}
		id = parent
		pt, ok := ecs.TryGetComponent[*Transform](r, parent)
		if !ok {
			continue
		}
		local := mgl32.Vec2{pos[0] * pt.Scale[0], pos[1] * pt.Scale[1]}
		if pt.Rotation != 0 {
			local = mgl32.Rotate2D(pt.Rotation).Mul2x1(local)
		}
		pos = pt.Position.Add(local)
		scale = mgl32.Vec2{scale[0] * pt.Scale[0], scale[1] * pt.Scale[1]}
		rotation += pt.Rotation
	}
}
