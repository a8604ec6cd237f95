package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Plane is the set of points p with Normal.Dot(p) == Distance.
type Plane struct {
	Normal   mgl64.Vec3
	Distance float64
}

// NewPlaneFromPoints builds the plane through three points. The normal is
// (b-a) x (c-a), normalized.
func NewPlaneFromPoints(a, b, c mgl64.Vec3) Plane {
	n := b.Sub(a).Cross(c.Sub(a))
	if l := n.Len(); l > 0 {
		n = n.Mul(1.0 / l)
	}
	return Plane{Normal: n, Distance: n.Dot(a)}
}

// SignedDistance is positive on the side the normal points to.
func (p Plane) SignedDistance(point mgl64.Vec3) float64 {
	return p.Normal.Dot(point) - p.Distance
}

func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Mul(-1), Distance: -p.Distance}
}

// IntersectT returns the ray parameter where r crosses the plane. Rays
// parallel to the plane never intersect it.
func (p Plane) IntersectT(r Ray) (float64, bool) {
	d := p.Normal.Dot(r.Dir)
	if math.Abs(d) < rayEpsilon {
		return 0, false
	}
	return (p.Distance - p.Normal.Dot(r.Pos)) / d, true
}
