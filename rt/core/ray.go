package core

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Ray is a world or local space ray. Dir does not need to be normalized;
// the parametric distance t is measured in units of Dir.
type Ray struct {
	Pos mgl64.Vec3
	Dir mgl64.Vec3
}

func NewRay(pos, dir mgl64.Vec3) Ray {
	return Ray{Pos: pos, Dir: dir}
}

// At evaluates the ray at parameter t.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Pos.Add(r.Dir.Mul(t))
}

// Transform moves the ray through m. The origin is transformed as a point
// and the direction as a direction, so translation only affects Pos.
func (r Ray) Transform(m mgl64.Mat4) Ray {
	return Ray{
		Pos: mgl64.TransformCoordinate(r.Pos, m),
		Dir: mgl64.TransformNormal(r.Dir, m),
	}
}

// Interval is a parametric range of a ray known to be inside a volume,
// with the step length recommended for marching through it.
type Interval struct {
	T0         float64
	T1         float64
	StepLength float64
}

func (i Interval) Length() float64 {
	return i.T1 - i.T0
}

// NumSteps is the number of marching steps needed to cover the interval.
func (i Interval) NumSteps() int {
	if i.StepLength <= 0 || i.T1 <= i.T0 {
		return 0
	}
	return int((i.T1-i.T0)/i.StepLength + 0.5)
}
