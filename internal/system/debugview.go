package system

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/quadforge/engine/internal/core/ecs"
	coresys "github.com/quadforge/engine/internal/core/system"
	"github.com/quadforge/engine/internal/physics"
	"github.com/quadforge/engine/internal/scene"
)

var (
	styleIdle     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleContact  = tcell.StyleDefault.Foreground(tcell.ColorRed)
	styleTrigger  = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleSleeping = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleVelocity = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorWhite).Reverse(true)
)

const maxRayCells = 8

// DebugView draws collider boxes and velocity rays on a terminal screen.
// It only reads physics state. Phase 3 (Render).
//
// Colors: red boxes have solid contacts, yellow ones trigger contacts only,
// blue ones are asleep and green ones are idle.
type DebugView struct {
	coresys.Base
	screen    tcell.Screen
	cellUnits float32 // world units per terminal cell
	origin    mgl32.Vec2
	phys      *PhysicsSystem // optional, feeds the status line
	drawn     int
}

func NewDebugView(screen tcell.Screen, cellUnits float32, phys *PhysicsSystem) *DebugView {
	if cellUnits <= 0 {
		cellUnits = 1
	}
	return &DebugView{screen: screen, cellUnits: cellUnits, phys: phys}
}

func (v *DebugView) Phase() coresys.Phase { return coresys.PhaseRender }

// LookAt centers the view on a world position.
func (v *DebugView) LookAt(p mgl32.Vec2) { v.origin = p }

// Drawn returns the number of boxes drawn by the last Render; boxes outside
// the screen are skipped.
func (v *DebugView) Drawn() int { return v.drawn }

// Pan moves the view by a number of cells.
func (v *DebugView) Pan(dx, dy int) {
	v.origin = v.origin.Add(mgl32.Vec2{float32(dx) * v.cellUnits, float32(dy) * v.cellUnits})
}

func (v *DebugView) Render(alpha float32) {
	reg := v.Registry()
	if reg == nil {
		return
	}
	v.screen.Clear()
	visible := v.Visible()
	v.drawn = 0

	ecs.Each2(reg, func(id ecs.EntityID, t *scene.Transform, c *physics.BoxCollider) {
		box := worldBounds(t, c, alpha)
		if !box.Intersects(visible, v.cellUnits) {
			return
		}
		v.drawn++

		rb, hasBody := ecs.TryGetComponent[*physics.Rigidbody](reg, id)
		style := styleIdle
		switch {
		case c.HasCollisions():
			style = styleContact
		case c.HasTriggers():
			style = styleTrigger
		case hasBody && rb.Sleeping:
			style = styleSleeping
		}
		v.drawBox(box, style)
		if hasBody {
			v.drawRay(box.Center, rb.Velocity)
		}
	})

	if v.phys != nil {
		st := v.phys.Stats()
		v.drawText(0, 0, fmt.Sprintf(" bodies %d  pairs %d  contacts %d  iter %d/%d  drawn %d  %s ",
			st.Bodies, st.Pairs, st.Contacts, st.Iterations, st.Cap, v.drawn, st.Cost), styleStatus)
	}
	v.screen.Show()
}

// ToScreen maps a world position to a terminal cell. World Y grows upward.
func (v *DebugView) ToScreen(p mgl32.Vec2) (x, y int) {
	w, h := v.screen.Size()
	x = w/2 + int(math.Floor(float64((p[0]-v.origin[0])/v.cellUnits)))
	y = h/2 - int(math.Floor(float64((p[1]-v.origin[1])/v.cellUnits)))
	return x, y
}

// ToWorld maps a terminal cell to the world position of its center.
func (v *DebugView) ToWorld(x, y int) mgl32.Vec2 {
	w, h := v.screen.Size()
	return mgl32.Vec2{
		v.origin[0] + (float32(x-w/2)+0.5)*v.cellUnits,
		v.origin[1] + (float32(h/2-y)+0.5)*v.cellUnits,
	}
}

// Visible returns the world area covered by the screen.
func (v *DebugView) Visible() physics.AABB {
	w, h := v.screen.Size()
	return physics.AABB{
		Center:   v.origin,
		HalfSize: mgl32.Vec2{float32(w) * v.cellUnits / 2, float32(h) * v.cellUnits / 2},
	}
}

// worldBounds is the collider box in world space, shifted to the
// interpolated position.
func worldBounds(t *scene.Transform, c *physics.BoxCollider, alpha float32) physics.AABB {
	pos, scale, rot := t.World()
	pos = pos.Add(t.Interpolated(alpha).Sub(t.Position))
	offset := mgl32.Vec2{c.Offset[0] * scale[0], c.Offset[1] * scale[1]}
	size := mgl32.Vec2{c.Size[0] * scale[0], c.Size[1] * scale[1]}
	return physics.NewAABB(pos.Add(offset), size, rot)
}

func (v *DebugView) drawBox(b physics.AABB, style tcell.Style) {
	lo, hi := b.Min(), b.Max()
	x0, y0 := v.ToScreen(mgl32.Vec2{lo[0], hi[1]})
	x1, y1 := v.ToScreen(mgl32.Vec2{hi[0], lo[1]})
	if x0 == x1 && y0 == y1 {
		v.screen.SetContent(x0, y0, '■', nil, style)
		return
	}
	for x := x0; x <= x1; x++ {
		v.screen.SetContent(x, y0, '-', nil, style)
		v.screen.SetContent(x, y1, '-', nil, style)
	}
	for y := y0; y <= y1; y++ {
		v.screen.SetContent(x0, y, '|', nil, style)
		v.screen.SetContent(x1, y, '|', nil, style)
	}
	for _, c := range [][2]int{{x0, y0}, {x1, y0}, {x0, y1}, {x1, y1}} {
		v.screen.SetContent(c[0], c[1], '+', nil, style)
	}
}

// drawRay draws one dot per cell along the velocity direction, one cell per
// meter per second, capped at maxRayCells.
func (v *DebugView) drawRay(from, vel mgl32.Vec2) {
	speed := vel.Len()
	if speed < 1 {
		return
	}
	dir := vel.Mul(1 / speed)
	n := min(int(speed), maxRayCells)
	for i := 1; i <= n; i++ {
		x, y := v.ToScreen(from.Add(dir.Mul(float32(i) * v.cellUnits)))
		v.screen.SetContent(x, y, '·', nil, styleVelocity)
	}
}

func (v *DebugView) drawText(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
