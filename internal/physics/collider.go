package physics

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/quadforge/engine/internal/core/ecs"
)

// ContactRecord tracks an ongoing contact with another entity.
type ContactRecord struct {
	Other            ecs.EntityID
	Duration         float32 // seconds spent touching
	Idle             float32 // seconds since the last touch, drives expiry
	Trigger          bool
	UpdatedThisFrame bool
}

// BoxCollider is an axis-aligned hitbox, independent of any render size.
// Offset and Size are in local units, scaled by the owning transform.
type BoxCollider struct {
	ecs.Base
	Offset    mgl32.Vec2
	Size      mgl32.Vec2
	IsTrigger bool

	// Bounds is refreshed from the transform once per tick and follows
	// positional corrections during resolution.
	Bounds AABB

	Collisions map[ecs.EntityID]*ContactRecord
	Triggers   map[ecs.EntityID]*ContactRecord
}

func NewBoxCollider(size mgl32.Vec2) *BoxCollider {
	return &BoxCollider{
		Size:       size,
		Collisions: make(map[ecs.EntityID]*ContactRecord),
		Triggers:   make(map[ecs.EntityID]*ContactRecord),
	}
}

// Refresh recomputes Bounds for a transform at pos with the given scale and
// rotation.
func (c *BoxCollider) Refresh(pos, scale mgl32.Vec2, rotation float32) {
	offset := mgl32.Vec2{c.Offset[0] * scale[0], c.Offset[1] * scale[1]}
	if rotation != 0 {
		offset = mgl32.Rotate2D(rotation).Mul2x1(offset)
	}
	size := mgl32.Vec2{c.Size[0] * scale[0], c.Size[1] * scale[1]}
	c.Bounds = NewAABB(pos.Add(offset), size, rotation)
}

// Records returns the contact map for solid or trigger contacts, creating
// it on first use.
func (c *BoxCollider) Records(trigger bool) map[ecs.EntityID]*ContactRecord {
	if trigger {
		if c.Triggers == nil {
			c.Triggers = make(map[ecs.EntityID]*ContactRecord)
		}
		return c.Triggers
	}
	if c.Collisions == nil {
		c.Collisions = make(map[ecs.EntityID]*ContactRecord)
	}
	return c.Collisions
}

func (c *BoxCollider) HasCollisions() bool { return len(c.Collisions) > 0 }
func (c *BoxCollider) HasTriggers() bool   { return len(c.Triggers) > 0 }
