package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const rayEpsilon = 2.220446049250313e-16 * 10.0

// BBox is an axis aligned box. An empty box has Min > Max on every axis.
type BBox struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// ZeroOne is the canonical local space box [0,1]^3.
func ZeroOne() BBox {
	return BBox{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}
}

func EmptyBBox() BBox {
	inf := math.Inf(1)
	return BBox{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

func (b BBox) IsEmpty() bool {
	return b.Min.X() > b.Max.X() || b.Min.Y() > b.Max.Y() || b.Min.Z() > b.Max.Z()
}

func (b BBox) Size() mgl64.Vec3 {
	return b.Max.Sub(b.Min)
}

func (b BBox) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Extend grows the box to contain p.
func (b BBox) Extend(p mgl64.Vec3) BBox {
	return BBox{
		Min: mgl64.Vec3{math.Min(b.Min.X(), p.X()), math.Min(b.Min.Y(), p.Y()), math.Min(b.Min.Z(), p.Z())},
		Max: mgl64.Vec3{math.Max(b.Max.X(), p.X()), math.Max(b.Max.Y(), p.Y()), math.Max(b.Max.Z(), p.Z())},
	}
}

func (b BBox) Union(o BBox) BBox {
	if o.IsEmpty() {
		return b
	}
	return b.Extend(o.Min).Extend(o.Max)
}

func (b BBox) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Corners returns the eight corners of the box. Corner i has its x, y and
// z coordinates taken from Max when bit 0, 1 and 2 of i are set.
func (b BBox) Corners() [8]mgl64.Vec3 {
	var c [8]mgl64.Vec3
	for i := 0; i < 8; i++ {
		for dim := 0; dim < 3; dim++ {
			if i&(1<<dim) != 0 {
				c[i][dim] = b.Max[dim]
			} else {
				c[i][dim] = b.Min[dim]
			}
		}
	}
	return c
}

// IntersectRay runs a slab test of r against the box. When the origin is
// inside the box t0 is 0. Boxes entirely behind the origin are misses.
func (b BBox) IntersectRay(r Ray) (t0, t1 float64, hit bool) {
	tNear := -math.MaxFloat64
	tFar := math.MaxFloat64
	if b.Contains(r.Pos) {
		tNear = 0
	}
	for dim := 0; dim < 3; dim++ {
		if math.Abs(r.Dir[dim]) < rayEpsilon {
			// Parallel to the slab
			if r.Pos[dim] < b.Min[dim] || r.Pos[dim] > b.Max[dim] {
				return 0, 0, false
			}
			continue
		}
		inv := 1.0 / r.Dir[dim]
		ta := (b.Min[dim] - r.Pos[dim]) * inv
		tb := (b.Max[dim] - r.Pos[dim]) * inv
		if ta > tb {
			ta, tb = tb, ta
		}
		tNear = math.Max(tNear, ta)
		tFar = math.Min(tFar, tb)
		if tNear > tFar || tFar < 0 {
			return 0, 0, false
		}
	}
	return tNear, tFar, true
}
