// Package modeler voxelizes signed distance primitives into dense buffers.
package modeler

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/gekko3d/pvr/rt/core"
	"github.com/gekko3d/pvr/rt/field"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"
)

type MappingType int

const (
	MatrixMappingType MappingType = iota
	FrustumMappingType
)

const DefaultAttribute = "density"

var (
	ErrMissingCamera = errors.New("frustum mapping needs a camera")
	ErrMissingInput  = errors.New("modeler has no inputs")
	ErrMissingBuffer = errors.New("modeler has no buffer")
	ErrResolution    = errors.New("invalid resolution")
)

// Input is a primitive to voxelize. Each voxel it covers gets Color added,
// scaled by how much of the voxel is inside the surface.
type Input struct {
	SDF   sdf.SDF3
	Color mgl32.Vec3
}

type resolutionMode int

const (
	explicitResolution resolutionMode = iota
	longestResolution
	voxelSizeResolution
)

// Modeler builds a voxel buffer from a set of inputs. UpdateBounds fits the
// buffer to the inputs added so far, Execute rasterizes the inputs and
// clears them so more can be added to the same buffer.
type Modeler struct {
	mode       resolutionMode
	resolution [3]int
	longest    int
	voxelSize  mgl64.Vec3
	mapping    MappingType
	camera     *core.Camera
	attribute  string
	inputs     []Input
	buffer     *field.DenseBuffer
}

func New() *Modeler {
	return &Modeler{
		mode:       explicitResolution,
		resolution: [3]int{32, 32, 32},
		mapping:    MatrixMappingType,
		attribute:  DefaultAttribute,
	}
}

// Clone returns a modeler with the same settings writing into the same
// buffer. Inputs are not copied.
func (m *Modeler) Clone() *Modeler {
	c := *m
	c.inputs = nil
	return &c
}

func (m *Modeler) SetResolution(x, y, z int) {
	m.mode = explicitResolution
	m.resolution = [3]int{x, y, z}
}

// SetResolutionLongest sets the number of voxels along the longest edge of
// the bounds. The other edges get as many voxels as keep them cubic.
func (m *Modeler) SetResolutionLongest(res int) {
	m.mode = longestResolution
	m.longest = res
}

func (m *Modeler) SetVoxelSize(size mgl64.Vec3) {
	m.mode = voxelSizeResolution
	m.voxelSize = size
}

func (m *Modeler) SetMapping(t MappingType) { m.mapping = t }

func (m *Modeler) SetCamera(cam *core.Camera) { m.camera = cam }

func (m *Modeler) SetAttribute(name string) { m.attribute = name }

func (m *Modeler) AddInput(in Input) {
	m.inputs = append(m.inputs, in)
}

func (m *Modeler) Buffer() *field.DenseBuffer { return m.buffer }

// Bounds is the world space union of the inputs' bounding boxes.
func (m *Modeler) Bounds() core.BBox {
	b := core.EmptyBBox()
	for _, in := range m.inputs {
		bb := in.SDF.BoundingBox()
		b = b.Union(core.BBox{
			Min: mgl64.Vec3{bb.Min.X, bb.Min.Y, bb.Min.Z},
			Max: mgl64.Vec3{bb.Max.X, bb.Max.Y, bb.Max.Z},
		})
	}
	return b
}

// UpdateBounds allocates a new, empty buffer whose mapping encloses the
// current inputs.
func (m *Modeler) UpdateBounds() error {
	if len(m.inputs) == 0 {
		return ErrMissingInput
	}
	bounds := m.Bounds()

	var (
		mapping field.Mapping
		err     error
	)
	switch m.mapping {
	case MatrixMappingType:
		mapping, err = m.matrixMapping(bounds)
	case FrustumMappingType:
		mapping, err = m.frustumMapping(bounds)
	default:
		err = fmt.Errorf("unknown mapping type %d", m.mapping)
	}
	if err != nil {
		return err
	}

	buf, err := field.NewDenseBuffer(mapping.Extents(), m.attribute)
	if err != nil {
		return err
	}
	if err := buf.SetMapping(mapping); err != nil {
		return err
	}
	m.buffer = buf
	return nil
}

func (m *Modeler) matrixMapping(bounds core.BBox) (*field.MatrixMapping, error) {
	res, err := m.boxResolution(bounds.Size())
	if err != nil {
		return nil, err
	}
	l2w := core.BoxToWorld(bounds).ObjectToWorld()
	return field.NewMatrixMapping(l2w, field.NewDataWindow(res[0], res[1], res[2]))
}

// frustumMapping fits the camera's depth range to the bounds. The screen
// extent of the camera is kept as is.
func (m *Modeler) frustumMapping(bounds core.BBox) (*field.FrustumMapping, error) {
	if m.camera == nil {
		return nil, ErrMissingCamera
	}
	near, far := math.Inf(1), math.Inf(-1)
	for _, c := range bounds.Corners() {
		d := m.camera.Depth(c)
		near = math.Min(near, d)
		far = math.Max(far, d)
	}
	near = math.Max(near, m.camera.Near)
	if !(far > near) {
		return nil, fmt.Errorf("%w: bounds are behind the camera", field.ErrDegenerateMapping)
	}

	var res [3]int
	switch m.mode {
	case explicitResolution:
		res = m.resolution
	case longestResolution:
		res = [3]int{m.longest, m.longest, m.longest}
		if m.camera.Aspect >= 1 {
			res[1] = int(math.Ceil(float64(m.longest) / m.camera.Aspect))
		} else {
			res[0] = int(math.Ceil(float64(m.longest) * m.camera.Aspect))
		}
	case voxelSizeResolution:
		// Size the screen axes by the far plane, where voxels are largest.
		h := 2 * far * math.Tan(m.camera.FovY/2)
		size := mgl64.Vec3{h * m.camera.Aspect, h, far - near}
		var err error
		if res, err = m.boxResolution(size); err != nil {
			return nil, err
		}
	}
	if err := checkResolution(res); err != nil {
		return nil, err
	}
	return field.NewFrustumMapping(m.camera.CameraToWorld(), m.camera.FovY, m.camera.Aspect,
		near, far, field.NewDataWindow(res[0], res[1], res[2]))
}

func (m *Modeler) boxResolution(size mgl64.Vec3) ([3]int, error) {
	var res [3]int
	switch m.mode {
	case explicitResolution:
		res = m.resolution
	case longestResolution:
		if m.longest <= 0 {
			return res, fmt.Errorf("%w: %d", ErrResolution, m.longest)
		}
		longest := math.Max(size.X(), math.Max(size.Y(), size.Z()))
		vs := longest / float64(m.longest)
		for i := range res {
			res[i] = max(1, int(math.Ceil(size[i]/vs-1e-9)))
		}
	case voxelSizeResolution:
		for i := range res {
			if !(m.voxelSize[i] > 0) {
				return res, fmt.Errorf("%w: voxel size %v", ErrResolution, m.voxelSize)
			}
			res[i] = max(1, int(math.Ceil(size[i]/m.voxelSize[i]-1e-9)))
		}
	}
	return res, checkResolution(res)
}

func checkResolution(res [3]int) error {
	if res[0] <= 0 || res[1] <= 0 || res[2] <= 0 {
		return fmt.Errorf("%w: %v", ErrResolution, res)
	}
	return nil
}

// Execute adds all inputs to the buffer, allocating it first if needed,
// and then clears the inputs.
func (m *Modeler) Execute() error {
	if m.buffer == nil {
		if err := m.UpdateBounds(); err != nil {
			return err
		}
	}
	w := m.buffer.DataWindow()
	mapping := m.buffer.Mapping()
	inputs := m.inputs

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := w.Min[2]; k <= w.Max[2]; k++ {
		g.Go(func() error {
			for j := w.Min[1]; j <= w.Max[1]; j++ {
				for i := w.Min[0]; i <= w.Max[0]; i++ {
					vsP := mgl64.Vec3{float64(i) + 0.5, float64(j) + 0.5, float64(k) + 0.5}
					wsP := mapping.VoxelToWorld(vsP)
					size := voxelSize(mapping, vsP, wsP)
					value := m.buffer.Value(i, j, k)
					for _, in := range inputs {
						c := Coverage(in.SDF.Evaluate(v3.Vec{X: wsP.X(), Y: wsP.Y(), Z: wsP.Z()}), size)
						value = value.Add(in.Color.Mul(float32(c)))
					}
					m.buffer.SetValue(i, j, k, value)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	m.inputs = nil
	return nil
}

// Coverage approximates the fraction of a voxel of the given size inside
// a surface at signed distance d from the voxel center.
func Coverage(d, size float64) float64 {
	return mgl64.Clamp(0.5-d/size, 0, 1)
}

// voxelSize is the smallest world space edge of the voxel around vsP.
func voxelSize(m field.Mapping, vsP, wsP mgl64.Vec3) float64 {
	size := math.Inf(1)
	for axis := 0; axis < 3; axis++ {
		n := vsP
		n[axis] += 1
		size = math.Min(size, m.VoxelToWorld(n).Sub(wsP).Len())
	}
	return size
}

func (m *Modeler) SaveBuffer(path string) error {
	if m.buffer == nil {
		return ErrMissingBuffer
	}
	return field.WriteLayers(path, m.buffer)
}
