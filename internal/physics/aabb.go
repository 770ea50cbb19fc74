package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// AABB is an axis-aligned bounding box stored as center and half extents.
type AABB struct {
	Center   mgl32.Vec2
	HalfSize mgl32.Vec2
}

// NewAABB bounds a box of the given size centered on pos and rotated by
// rotation radians around Z. A rotated box yields the AABB of its corners.
func NewAABB(pos, size mgl32.Vec2, rotation float32) AABB {
	half := mgl32.Vec2{abs32(size[0]) * 0.5, abs32(size[1]) * 0.5}
	if rotation == 0 {
		return AABB{Center: pos, HalfSize: half}
	}

	rot := mgl32.Rotate2D(rotation)
	corners := [4]mgl32.Vec2{
		{-half[0], -half[1]},
		{half[0], -half[1]},
		{half[0], half[1]},
		{-half[0], half[1]},
	}
	lo := mgl32.Vec2{math.MaxFloat32, math.MaxFloat32}
	hi := mgl32.Vec2{-math.MaxFloat32, -math.MaxFloat32}
	for _, c := range corners {
		p := rot.Mul2x1(c)
		lo = mgl32.Vec2{min(lo[0], p[0]), min(lo[1], p[1])}
		hi = mgl32.Vec2{max(hi[0], p[0]), max(hi[1], p[1])}
	}
	return AABB{
		Center:   pos.Add(lo.Add(hi).Mul(0.5)),
		HalfSize: hi.Sub(lo).Mul(0.5),
	}
}

func (b AABB) Min() mgl32.Vec2 { return b.Center.Sub(b.HalfSize) }
func (b AABB) Max() mgl32.Vec2 { return b.Center.Add(b.HalfSize) }

// Intersects reports strict overlap, with the boxes grown by margin.
func (b AABB) Intersects(o AABB, margin float32) bool {
	bMin, bMax := b.Min(), b.Max()
	oMin, oMax := o.Min(), o.Max()
	return bMax[0]+margin > oMin[0] && bMin[0]-margin < oMax[0] &&
		bMax[1]+margin > oMin[1] && bMin[1]-margin < oMax[1]
}

// Translate returns the box moved by d.
func (b AABB) Translate(d mgl32.Vec2) AABB {
	return AABB{Center: b.Center.Add(d), HalfSize: b.HalfSize}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func finite32(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
