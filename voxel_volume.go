package pvr

import (
	"fmt"

	"github.com/gekko3d/pvr/rt/core"
	"github.com/gekko3d/pvr/rt/field"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

type VolumeId string

// SampleState is the context of a single Sample call.
type SampleState struct {
	WsP   mgl64.Vec3
	WsRay core.Ray
	Time  float64
}

// RenderState is the context of a single Intersect call.
type RenderState struct {
	WsRay core.Ray
	Time  float64
}

// Volume is what a renderer needs from anything it ray marches.
type Volume interface {
	AttributeNames() []string
	Sample(state SampleState, attr *VolumeAttr) mgl32.Vec3
	Intersect(state RenderState) []core.Interval
}

// LayerReader opens a field file and returns its vector layers.
type LayerReader interface {
	ReadVectorLayers(name string) ([]field.Layer, error)
}

type VolumeOption func(*VoxelVolume)

func WithLogger(l Logger) VolumeOption {
	return func(v *VoxelVolume) {
		if l != nil {
			v.logger = l
		}
	}
}

func WithLayerReader(r LayerReader) VolumeOption {
	return func(v *VoxelVolume) {
		if r != nil {
			v.reader = r
		}
	}
}

// VoxelVolume is a volume backed by a single dense voxel buffer.
//
// Load, SetBuffer and UpdateIntersectionHandler must not run concurrently
// with Sample or Intersect. Once set up, any number of goroutines may
// sample and intersect the volume.
type VoxelVolume struct {
	id      VolumeId
	logger  Logger
	reader  LayerReader
	buffer  *field.DenseBuffer
	handler IntersectionHandler
}

var _ Volume = (*VoxelVolume)(nil)

func NewVoxelVolume(opts ...VolumeOption) *VoxelVolume {
	v := &VoxelVolume{
		id:     VolumeId(uuid.NewString()),
		logger: NewNopLogger(),
		reader: field.FileReader{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *VoxelVolume) ID() VolumeId { return v.id }

func (v *VoxelVolume) Buffer() *field.DenseBuffer { return v.buffer }

// Load reads the first dense layer of the named field file. Problems with
// the file are logged and leave the volume as it was.
func (v *VoxelVolume) Load(name string) {
	v.logger.Infof("Loading voxel buffer: %s", name)

	layers, err := v.reader.ReadVectorLayers(name)
	if err != nil {
		v.logger.Warnf("Couldn't load %s: %v", name, err)
		return
	}
	if len(layers) == 0 {
		v.logger.Warnf("No <float> fields could be loaded from %s", name)
		return
	}

	var dense *field.DenseBuffer
	for _, l := range layers {
		switch l := l.(type) {
		case *field.DenseBuffer:
			dense = l
		case *field.InvalidLayer:
			v.logger.Warnf("Skipping layer %s in %s: %v", l.Name(), name, l.Err)
		default:
			v.logger.Debugf("volume %s: skipping layer %q with encoding %q", v.id, l.Name(), l.Encoding())
		}
		if dense != nil {
			break
		}
	}
	if dense == nil {
		v.logger.Warnf("No dense field in: %s", name)
		return
	}

	prevBuffer, prevHandler := v.buffer, v.handler
	v.buffer = dense
	if err := v.UpdateIntersectionHandler(); err != nil {
		v.logger.Warnf("Couldn't use %s: %v", name, err)
		v.buffer, v.handler = prevBuffer, prevHandler
		return
	}
	w := dense.DataWindow()
	v.logger.Debugf("volume %s: loaded %q attribute %q window %v-%v",
		v.id, dense.Name(), dense.Attribute(), w.Min, w.Max)
}

// SetBuffer replaces the active buffer and rebuilds the intersection
// handler. On error the volume keeps its previous buffer.
func (v *VoxelVolume) SetBuffer(buf *field.DenseBuffer) error {
	if buf == nil {
		return ErrMissingBuffer
	}
	if buf.Mapping() == nil {
		return ErrMissingMapping
	}
	prevBuffer, prevHandler := v.buffer, v.handler
	v.buffer = buf
	if err := v.UpdateIntersectionHandler(); err != nil {
		v.buffer, v.handler = prevBuffer, prevHandler
		return err
	}
	return nil
}

// UpdateIntersectionHandler picks the intersection algorithm matching the
// buffer's mapping.
func (v *VoxelVolume) UpdateIntersectionHandler() error {
	if v.buffer == nil {
		return ErrMissingBuffer
	}
	switch m := v.buffer.Mapping().(type) {
	case nil:
		return ErrMissingMapping
	case *field.MatrixMapping:
		v.handler = NewUniformMappingIntersection(m)
	case *field.FrustumMapping:
		v.handler = NewFrustumMappingIntersection(m)
	default:
		v.handler = nil
		return fmt.Errorf("%w: %T", ErrUnsupportedMapping, m)
	}
	return nil
}

func (v *VoxelVolume) AttributeNames() []string {
	if v.buffer == nil {
		return nil
	}
	return []string{v.buffer.Attribute()}
}

// Intersect returns the parts of the ray inside the volume. An empty
// volume is never hit.
func (v *VoxelVolume) Intersect(state RenderState) []core.Interval {
	if v.buffer == nil {
		return nil
	}
	if v.handler == nil {
		panic("missing intersection handler")
	}
	return v.handler.Intersect(state.WsRay, state.Time)
}

// Sample reconstructs the field at state.WsP with trilinear filtering.
// Positions outside the data window and attributes the volume doesn't
// carry sample as zero. A nil attr samples the buffer's own attribute.
func (v *VoxelVolume) Sample(state SampleState, attr *VolumeAttr) mgl32.Vec3 {
	return v.SampleFiltered(state, attr, field.LinearInterp{})
}

// SampleFiltered is Sample with a caller chosen filter. A nil attr samples
// whatever attribute the buffer holds.
func (v *VoxelVolume) SampleFiltered(state SampleState, attr *VolumeAttr, interp field.Interpolator) mgl32.Vec3 {
	if v.buffer == nil {
		return mgl32.Vec3{}
	}
	if attr != nil && attr.resolve(v.buffer.Attribute(), 0) == IndexInvalid {
		return mgl32.Vec3{}
	}
	vsP := v.buffer.Mapping().WorldToVoxel(state.WsP)
	if !v.buffer.DataWindow().ContainsPoint(vsP) {
		return mgl32.Vec3{}
	}
	return interp.Sample(v.buffer, vsP)
}

// Bounds is the world space bounding box of the volume.
func (v *VoxelVolume) Bounds() core.BBox {
	if v.buffer == nil || v.buffer.Mapping() == nil {
		return core.EmptyBBox()
	}
	b := core.EmptyBBox()
	for _, c := range core.ZeroOne().Corners() {
		b = b.Extend(v.buffer.Mapping().LocalToWorld(c))
	}
	return b
}
