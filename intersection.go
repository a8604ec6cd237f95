package pvr

import (
	"math"

	"github.com/gekko3d/pvr/rt/core"
	"github.com/gekko3d/pvr/rt/field"
	"github.com/go-gl/mathgl/mgl64"
)

// IntersectionHandler finds the parts of a world space ray that are inside
// a mapped volume.
type IntersectionHandler interface {
	Intersect(ray core.Ray, time float64) []core.Interval
}

// voxelInterval sizes the step so that one sample is taken per voxel of
// travel between the near and far points. A zero length span is a miss.
func voxelInterval(t0, t1 float64, vsNear, vsFar mgl64.Vec3) []core.Interval {
	numSamples := vsFar.Sub(vsNear).Len()
	if !(numSamples > 0) {
		return nil
	}
	return []core.Interval{{T0: t0, T1: t1, StepLength: (t1 - t0) / numSamples}}
}

// UniformMappingIntersection intersects rays with a volume whose local
// space is an affine transform of world space.
type UniformMappingIntersection struct {
	worldToLocal mgl64.Mat4
	worldToVoxel mgl64.Mat4
}

func NewUniformMappingIntersection(m *field.MatrixMapping) *UniformMappingIntersection {
	return &UniformMappingIntersection{
		worldToLocal: m.WorldToLocalMatrix(),
		worldToVoxel: m.WorldToVoxelMatrix(),
	}
}

func (u *UniformMappingIntersection) Intersect(ray core.Ray, time float64) []core.Interval {
	lsRay := ray.Transform(u.worldToLocal)
	t0, t1, hit := core.ZeroOne().IntersectRay(lsRay)
	if !hit {
		return nil
	}
	// The parameter is shared between spaces since the transform is affine.
	vsNear := mgl64.TransformCoordinate(ray.At(t0), u.worldToVoxel)
	vsFar := mgl64.TransformCoordinate(ray.At(t1), u.worldToVoxel)
	return voxelInterval(t0, t1, vsNear, vsFar)
}

// FrustumMappingIntersection intersects rays with the six planes bounding
// a frustum mapped volume.
type FrustumMappingIntersection struct {
	mapping *field.FrustumMapping
	planes  [6]core.Plane
}

// Corner index bits are x, y, z from least significant.
var frustumFaces = [6][3]int{
	{4, 0, 6}, // left
	{1, 5, 3}, // right
	{4, 5, 0}, // bottom
	{2, 3, 6}, // top
	{0, 1, 2}, // near
	{5, 4, 7}, // far
}

func NewFrustumMappingIntersection(m *field.FrustumMapping) *FrustumMappingIntersection {
	f := &FrustumMappingIntersection{mapping: m}
	var wsCorners [8]mgl64.Vec3
	for i, c := range core.ZeroOne().Corners() {
		wsCorners[i] = m.LocalToWorld(c)
	}
	center := m.LocalToWorld(mgl64.Vec3{0.5, 0.5, 0.5})
	for i, face := range frustumFaces {
		p := core.NewPlaneFromPoints(wsCorners[face[0]], wsCorners[face[1]], wsCorners[face[2]])
		// Normals point out of the frustum.
		if p.SignedDistance(center) > 0 {
			p = p.Flip()
		}
		f.planes[i] = p
	}
	return f
}

func (f *FrustumMappingIntersection) Planes() [6]core.Plane { return f.planes }

func (f *FrustumMappingIntersection) Intersect(ray core.Ray, time float64) []core.Interval {
	t0 := math.Inf(-1)
	t1 := math.Inf(1)
	for _, p := range f.planes {
		t, ok := p.IntersectT(ray)
		if !ok {
			continue
		}
		if ray.Dir.Dot(p.Normal) > 0 {
			t1 = math.Min(t1, t)
		} else {
			t0 = math.Max(t0, t)
		}
	}
	if !(t0 < t1) || t1 <= 0 {
		return nil
	}
	t0 = math.Max(t0, 0)
	vsNear := f.mapping.WorldToVoxel(ray.At(t0))
	vsFar := f.mapping.WorldToVoxel(ray.At(t1))
	return voxelInterval(t0, t1, vsNear, vsFar)
}
