package field

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrEmptyWindow       = errors.New("empty data window")
	ErrDegenerateMapping = errors.New("degenerate mapping")
)

type MappingKind int

const (
	MatrixMappingKind MappingKind = iota
	FrustumMappingKind
)

func (k MappingKind) String() string {
	switch k {
	case MatrixMappingKind:
		return "matrix"
	case FrustumMappingKind:
		return "frustum"
	}
	return fmt.Sprintf("MappingKind(%d)", int(k))
}

// Mapping relates world space, the unit cube local space of a volume and
// the voxel space of its buffer. The set of implementations is closed:
// *MatrixMapping and *FrustumMapping. Mappings are immutable.
type Mapping interface {
	Kind() MappingKind
	// Extents is the data window voxel space is laid out over.
	Extents() DataWindow
	WorldToLocal(ws mgl64.Vec3) mgl64.Vec3
	LocalToWorld(ls mgl64.Vec3) mgl64.Vec3
	WorldToVoxel(ws mgl64.Vec3) mgl64.Vec3
	VoxelToWorld(vs mgl64.Vec3) mgl64.Vec3
	LocalToVoxel(ls mgl64.Vec3) mgl64.Vec3
	VoxelToLocal(vs mgl64.Vec3) mgl64.Vec3

	mapping()
}

// Voxel space is local space scaled by the extents' size and offset by
// their minimum.
func localToVoxel(ext DataWindow, ls mgl64.Vec3) mgl64.Vec3 {
	s := ext.Size()
	return mgl64.Vec3{
		ls[0]*float64(s[0]) + float64(ext.Min[0]),
		ls[1]*float64(s[1]) + float64(ext.Min[1]),
		ls[2]*float64(s[2]) + float64(ext.Min[2]),
	}
}

func voxelToLocal(ext DataWindow, vs mgl64.Vec3) mgl64.Vec3 {
	s := ext.Size()
	return mgl64.Vec3{
		(vs[0] - float64(ext.Min[0])) / float64(s[0]),
		(vs[1] - float64(ext.Min[1])) / float64(s[1]),
		(vs[2] - float64(ext.Min[2])) / float64(s[2]),
	}
}

func localToVoxelMatrix(ext DataWindow) mgl64.Mat4 {
	s := ext.Size()
	return mgl64.Translate3D(float64(ext.Min[0]), float64(ext.Min[1]), float64(ext.Min[2])).
		Mul4(mgl64.Scale3D(float64(s[0]), float64(s[1]), float64(s[2])))
}

//----------------------------------------------------------------------------
// MatrixMapping

// MatrixMapping is a uniform mapping: local space is an affine transform of
// world space.
type MatrixMapping struct {
	extents      DataWindow
	localToWorld mgl64.Mat4
	worldToLocal mgl64.Mat4
	localToVoxel mgl64.Mat4
	worldToVoxel mgl64.Mat4
	voxelToWorld mgl64.Mat4
}

func NewMatrixMapping(localToWorld mgl64.Mat4, extents DataWindow) (*MatrixMapping, error) {
	if extents.Empty() {
		return nil, fmt.Errorf("%w: %v", ErrEmptyWindow, extents)
	}
	if det := localToWorld.Det(); mgl64.FloatEqual(det, 0) || math.IsNaN(det) {
		return nil, fmt.Errorf("%w: local to world matrix is singular", ErrDegenerateMapping)
	}
	m := &MatrixMapping{
		extents:      extents,
		localToWorld: localToWorld,
		worldToLocal: localToWorld.Inv(),
		localToVoxel: localToVoxelMatrix(extents),
	}
	m.worldToVoxel = m.localToVoxel.Mul4(m.worldToLocal)
	m.voxelToWorld = m.worldToVoxel.Inv()
	return m, nil
}

func (m *MatrixMapping) mapping()            {}
func (m *MatrixMapping) Kind() MappingKind   { return MatrixMappingKind }
func (m *MatrixMapping) Extents() DataWindow { return m.extents }

func (m *MatrixMapping) LocalToWorldMatrix() mgl64.Mat4 { return m.localToWorld }
func (m *MatrixMapping) WorldToLocalMatrix() mgl64.Mat4 { return m.worldToLocal }
func (m *MatrixMapping) WorldToVoxelMatrix() mgl64.Mat4 { return m.worldToVoxel }

func (m *MatrixMapping) WorldToLocal(ws mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(ws, m.worldToLocal)
}

func (m *MatrixMapping) LocalToWorld(ls mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(ls, m.localToWorld)
}

func (m *MatrixMapping) WorldToVoxel(ws mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(ws, m.worldToVoxel)
}

func (m *MatrixMapping) VoxelToWorld(vs mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(vs, m.voxelToWorld)
}

func (m *MatrixMapping) LocalToVoxel(ls mgl64.Vec3) mgl64.Vec3 {
	return localToVoxel(m.extents, ls)
}

func (m *MatrixMapping) VoxelToLocal(vs mgl64.Vec3) mgl64.Vec3 {
	return voxelToLocal(m.extents, vs)
}

//----------------------------------------------------------------------------
// FrustumMapping

// FrustumMapping lays local space out over a camera frustum. Local x and y
// are screen coordinates in [0,1], local z runs linearly in camera depth
// from the near plane (0) to the far plane (1). The camera looks down its
// -Z axis.
type FrustumMapping struct {
	extents       DataWindow
	cameraToWorld mgl64.Mat4
	worldToCamera mgl64.Mat4
	fovY          float64
	aspect        float64
	near          float64
	far           float64
	tanX, tanY    float64
}

func NewFrustumMapping(cameraToWorld mgl64.Mat4, fovY, aspect, near, far float64, extents DataWindow) (*FrustumMapping, error) {
	if extents.Empty() {
		return nil, fmt.Errorf("%w: %v", ErrEmptyWindow, extents)
	}
	switch {
	case !(fovY > 0 && fovY < math.Pi):
		return nil, fmt.Errorf("%w: field of view %v", ErrDegenerateMapping, fovY)
	case !(aspect > 0):
		return nil, fmt.Errorf("%w: aspect ratio %v", ErrDegenerateMapping, aspect)
	case !(near > 0 && far > near):
		return nil, fmt.Errorf("%w: clip planes %v, %v", ErrDegenerateMapping, near, far)
	}
	if det := cameraToWorld.Det(); mgl64.FloatEqual(det, 0) || math.IsNaN(det) {
		return nil, fmt.Errorf("%w: camera to world matrix is singular", ErrDegenerateMapping)
	}
	tanY := math.Tan(fovY / 2)
	return &FrustumMapping{
		extents:       extents,
		cameraToWorld: cameraToWorld,
		worldToCamera: cameraToWorld.Inv(),
		fovY:          fovY,
		aspect:        aspect,
		near:          near,
		far:           far,
		tanX:          tanY * aspect,
		tanY:          tanY,
	}, nil
}

func (m *FrustumMapping) mapping()            {}
func (m *FrustumMapping) Kind() MappingKind   { return FrustumMappingKind }
func (m *FrustumMapping) Extents() DataWindow { return m.extents }

func (m *FrustumMapping) CameraToWorld() mgl64.Mat4 { return m.cameraToWorld }
func (m *FrustumMapping) FovY() float64             { return m.fovY }
func (m *FrustumMapping) Aspect() float64           { return m.aspect }
func (m *FrustumMapping) Near() float64             { return m.near }
func (m *FrustumMapping) Far() float64              { return m.far }

func (m *FrustumMapping) LocalToWorld(ls mgl64.Vec3) mgl64.Vec3 {
	depth := m.near + ls.Z()*(m.far-m.near)
	cs := mgl64.Vec3{
		(2*ls.X() - 1) * m.tanX * depth,
		(2*ls.Y() - 1) * m.tanY * depth,
		-depth,
	}
	return mgl64.TransformCoordinate(cs, m.cameraToWorld)
}

// WorldToLocal returns NaN components for points in the camera plane.
func (m *FrustumMapping) WorldToLocal(ws mgl64.Vec3) mgl64.Vec3 {
	cs := mgl64.TransformCoordinate(ws, m.worldToCamera)
	depth := -cs.Z()
	if depth == 0 {
		nan := math.NaN()
		return mgl64.Vec3{nan, nan, nan}
	}
	return mgl64.Vec3{
		(cs.X()/(depth*m.tanX) + 1) * 0.5,
		(cs.Y()/(depth*m.tanY) + 1) * 0.5,
		(depth - m.near) / (m.far - m.near),
	}
}

func (m *FrustumMapping) WorldToVoxel(ws mgl64.Vec3) mgl64.Vec3 {
	return localToVoxel(m.extents, m.WorldToLocal(ws))
}

func (m *FrustumMapping) VoxelToWorld(vs mgl64.Vec3) mgl64.Vec3 {
	return m.LocalToWorld(voxelToLocal(m.extents, vs))
}

func (m *FrustumMapping) LocalToVoxel(ls mgl64.Vec3) mgl64.Vec3 {
	return localToVoxel(m.extents, ls)
}

func (m *FrustumMapping) VoxelToLocal(vs mgl64.Vec3) mgl64.Vec3 {
	return voxelToLocal(m.extents, vs)
}
