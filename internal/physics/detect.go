package physics

import "github.com/go-gl/mathgl/mgl32"

// CollisionEpsilon is the overlap both axes must exceed to count as contact.
const CollisionEpsilon float32 = 1e-4

// Manifold is the result of a pairwise overlap test. Normal points from the
// first box toward the second; moving the second box by Normal*Penetration
// (or the first by the opposite) separates them.
type Manifold struct {
	Colliding   bool
	Normal      mgl32.Vec2
	Penetration float32
}

// Flip returns the manifold as seen from the other body.
func (m Manifold) Flip() Manifold {
	return Manifold{Colliding: m.Colliding, Normal: m.Normal.Mul(-1), Penetration: m.Penetration}
}

// CheckAABBCollision tests a against b. The separating axis is the one with
// the smaller overlap; the normal is signed toward b. When the centers
// coincide on that axis the sign follows the other axis, then the half-size
// difference, so swapping a and b always flips the normal. Identical boxes
// get the positive axis in both orders.
func CheckAABBCollision(a, b AABB) Manifold {
	delta := b.Center.Sub(a.Center)
	grow := b.HalfSize.Sub(a.HalfSize)
	overlapX := a.HalfSize[0] + b.HalfSize[0] - abs32(delta[0])
	overlapY := a.HalfSize[1] + b.HalfSize[1] - abs32(delta[1])
	if overlapX <= CollisionEpsilon || overlapY <= CollisionEpsilon {
		return Manifold{}
	}

	if overlapX < overlapY {
		n := sign(delta[0], delta[1], grow[0], grow[1])
		return Manifold{Colliding: true, Normal: mgl32.Vec2{n, 0}, Penetration: overlapX}
	}
	n := sign(delta[1], delta[0], grow[1], grow[0])
	return Manifold{Colliding: true, Normal: mgl32.Vec2{0, n}, Penetration: overlapY}
}

// sign returns the sign of the first non-zero value, +1 if all are zero.
func sign(vs ...float32) float32 {
	for _, v := range vs {
		switch {
		case v < 0:
			return -1
		case v > 0:
			return 1
		}
	}
	return 1
}
