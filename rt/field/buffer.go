package field

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

const EncodingDense = "dense"

var ErrMappingSet = errors.New("buffer already has a mapping")

// Layer is anything a field file can hold. Only *DenseBuffer can back a
// volume; other encodings come back as *OpaqueLayer.
type Layer interface {
	Name() string
	Attribute() string
	Encoding() string
}

// OpaqueLayer is a layer whose encoding this package doesn't decode.
type OpaqueLayer struct {
	LayerName     string
	AttributeName string
	LayerEncoding string
}

func (l *OpaqueLayer) Name() string      { return l.LayerName }
func (l *OpaqueLayer) Attribute() string { return l.AttributeName }
func (l *OpaqueLayer) Encoding() string  { return l.LayerEncoding }

const EncodingInvalid = "invalid"

// InvalidLayer stands in for a layer of a field file that couldn't be
// decoded. Err says why.
type InvalidLayer struct {
	LayerName string
	Err       error
}

func (l *InvalidLayer) Name() string      { return l.LayerName }
func (l *InvalidLayer) Attribute() string { return "" }
func (l *InvalidLayer) Encoding() string  { return EncodingInvalid }

// DenseBuffer is a dense 3D array of vector samples covering a data
// window, x varying fastest.
type DenseBuffer struct {
	name      string
	attribute string
	window    DataWindow
	mapping   Mapping
	data      []mgl32.Vec3
}

func NewDenseBuffer(window DataWindow, attribute string) (*DenseBuffer, error) {
	if window.Empty() {
		return nil, fmt.Errorf("%w: %v", ErrEmptyWindow, window)
	}
	n, ok := window.CheckedNumVoxels()
	if !ok {
		return nil, fmt.Errorf("data window %v is too large", window)
	}
	return &DenseBuffer{
		name:      attribute,
		attribute: attribute,
		window:    window,
		data:      make([]mgl32.Vec3, n),
	}, nil
}

func (b *DenseBuffer) Name() string           { return b.name }
func (b *DenseBuffer) Attribute() string      { return b.attribute }
func (b *DenseBuffer) Encoding() string       { return EncodingDense }
func (b *DenseBuffer) DataWindow() DataWindow { return b.window }
func (b *DenseBuffer) Mapping() Mapping       { return b.mapping }

func (b *DenseBuffer) SetName(name string) {
	b.name = name
}

// SetMapping attaches m to the buffer. The mapping's extents must match
// the buffer's data window. Once attached the mapping can't be replaced;
// build a new buffer instead.
func (b *DenseBuffer) SetMapping(m Mapping) error {
	if b.mapping != nil {
		if m == b.mapping {
			return nil
		}
		return ErrMappingSet
	}
	if m != nil && m.Extents() != b.window {
		return fmt.Errorf("mapping extents %v don't match data window %v", m.Extents(), b.window)
	}
	b.mapping = m
	return nil
}

func (b *DenseBuffer) index(i, j, k int) int {
	s := b.window.Size()
	return (i - b.window.Min[0]) + s[0]*((j-b.window.Min[1])+s[1]*(k-b.window.Min[2]))
}

// Value reads voxel (i,j,k). The index must be inside the data window.
func (b *DenseBuffer) Value(i, j, k int) mgl32.Vec3 {
	return b.data[b.index(i, j, k)]
}

func (b *DenseBuffer) SetValue(i, j, k int, v mgl32.Vec3) {
	b.data[b.index(i, j, k)] = v
}

func (b *DenseBuffer) Fill(v mgl32.Vec3) {
	for i := range b.data {
		b.data[i] = v
	}
}

// Data exposes the backing store, x fastest.
func (b *DenseBuffer) Data() []mgl32.Vec3 {
	return b.data
}
