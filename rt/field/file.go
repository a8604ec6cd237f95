package field

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/robert-malhotra/go-hdf5/hdf5"
)

// Field files are HDF5 files with one dataset per layer at the root. The
// dataset holds nx*ny*nz*3 float32 values, x fastest, and describes itself
// through these attributes.
const (
	attrAttribute     = "attribute"
	attrEncoding      = "encoding"
	attrDataWindow    = "data_window"
	attrMapping       = "mapping"
	attrLocalToWorld  = "local_to_world"
	attrCameraToWorld = "camera_to_world"
	attrFovY          = "fov_y"
	attrAspect        = "aspect"
	attrNear          = "near"
	attrFar           = "far"
)

var ErrBadLayer = errors.New("malformed field layer")

// FileReader reads the vector layers of field files from disk.
type FileReader struct{}

func (FileReader) ReadVectorLayers(path string) ([]Layer, error) {
	return ReadVectorLayers(path)
}

// ReadVectorLayers returns every layer in the file, in file order. Dense
// layers are fully decoded, any other encoding comes back as *OpaqueLayer
// and layers that can't be decoded as *InvalidLayer. Only problems with
// the file itself are returned as errors.
func ReadVectorLayers(path string) ([]Layer, error) {
	f, err := hdf5.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	names, err := f.Root().Members()
	if err != nil {
		return nil, fmt.Errorf("listing layers in %s: %w", path, err)
	}

	var layers []Layer
	for _, name := range names {
		ds, err := f.Root().OpenDataset(name)
		if err != nil {
			if errors.Is(err, hdf5.ErrNotDataset) {
				continue
			}
			layers = append(layers, &InvalidLayer{LayerName: name, Err: fmt.Errorf("opening layer: %w", err)})
			continue
		}
		layer, err := readLayer(ds)
		if err != nil {
			layers = append(layers, &InvalidLayer{LayerName: name, Err: err})
			continue
		}
		layers = append(layers, layer)
	}
	return layers, nil
}

func readLayer(ds *hdf5.Dataset) (Layer, error) {
	attribute, err := stringAttr(ds, attrAttribute)
	if err != nil {
		return nil, err
	}
	encoding, err := stringAttr(ds, attrEncoding)
	if err != nil {
		return nil, err
	}
	if encoding != EncodingDense {
		return &OpaqueLayer{LayerName: ds.Name(), AttributeName: attribute, LayerEncoding: encoding}, nil
	}

	dw, err := int64sAttr(ds, attrDataWindow, 6)
	if err != nil {
		return nil, err
	}
	window := DataWindow{
		Min: [3]int{int(dw[0]), int(dw[1]), int(dw[2])},
		Max: [3]int{int(dw[3]), int(dw[4]), int(dw[5])},
	}

	// The stored samples bound the allocation, not the window.
	raw, err := ds.ReadFloat32()
	if err != nil {
		return nil, fmt.Errorf("reading samples: %w", err)
	}
	n, ok := window.CheckedNumVoxels()
	if !ok || len(raw)%3 != 0 || len(raw)/3 != n {
		return nil, fmt.Errorf("%w: %d values for data window %v", ErrBadLayer, len(raw), window)
	}

	mapping, err := readMapping(ds, window)
	if err != nil {
		return nil, err
	}
	buf, err := NewDenseBuffer(window, attribute)
	if err != nil {
		return nil, err
	}
	buf.SetName(ds.Name())
	if err := buf.SetMapping(mapping); err != nil {
		return nil, err
	}
	data := buf.Data()
	for i := range data {
		data[i] = mgl32.Vec3{raw[3*i], raw[3*i+1], raw[3*i+2]}
	}
	return buf, nil
}

func readMapping(ds *hdf5.Dataset, window DataWindow) (Mapping, error) {
	kind, err := stringAttr(ds, attrMapping)
	if err != nil {
		return nil, err
	}
	switch kind {
	case MatrixMappingKind.String():
		m, err := matrixAttr(ds, attrLocalToWorld)
		if err != nil {
			return nil, err
		}
		return NewMatrixMapping(m, window)
	case FrustumMappingKind.String():
		m, err := matrixAttr(ds, attrCameraToWorld)
		if err != nil {
			return nil, err
		}
		var params [4]float64
		for i, name := range []string{attrFovY, attrAspect, attrNear, attrFar} {
			if params[i], err = floatAttr(ds, name); err != nil {
				return nil, err
			}
		}
		return NewFrustumMapping(m, params[0], params[1], params[2], params[3], window)
	}
	return nil, fmt.Errorf("%w: unknown mapping %q", ErrBadLayer, kind)
}

func stringAttr(ds *hdf5.Dataset, name string) (string, error) {
	a := ds.Attr(name)
	if a == nil {
		return "", fmt.Errorf("%w: missing attribute %q", ErrBadLayer, name)
	}
	return a.ReadScalarString()
}

func floatAttr(ds *hdf5.Dataset, name string) (float64, error) {
	a := ds.Attr(name)
	if a == nil {
		return 0, fmt.Errorf("%w: missing attribute %q", ErrBadLayer, name)
	}
	return a.ReadScalarFloat64()
}

func int64sAttr(ds *hdf5.Dataset, name string, n int) ([]int64, error) {
	a := ds.Attr(name)
	if a == nil {
		return nil, fmt.Errorf("%w: missing attribute %q", ErrBadLayer, name)
	}
	vals, err := a.ReadInt64()
	if err != nil {
		return nil, err
	}
	if len(vals) != n {
		return nil, fmt.Errorf("%w: attribute %q has %d values, want %d", ErrBadLayer, name, len(vals), n)
	}
	return vals, nil
}

func matrixAttr(ds *hdf5.Dataset, name string) (mgl64.Mat4, error) {
	a := ds.Attr(name)
	if a == nil {
		return mgl64.Mat4{}, fmt.Errorf("%w: missing attribute %q", ErrBadLayer, name)
	}
	vals, err := a.ReadFloat64()
	if err != nil {
		return mgl64.Mat4{}, err
	}
	if len(vals) != 16 {
		return mgl64.Mat4{}, fmt.Errorf("%w: attribute %q has %d values, want 16", ErrBadLayer, name, len(vals))
	}
	var m mgl64.Mat4
	copy(m[:], vals)
	return m, nil
}

// WriteLayers creates path and writes the given layers to it. Dense
// buffers must carry a mapping. Opaque layers are written as placeholders
// with their encoding and no sample data.
func WriteLayers(path string, layers ...Layer) (err error) {
	f, err := hdf5.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()

	root := f.Root()
	for _, layer := range layers {
		switch l := layer.(type) {
		case *DenseBuffer:
			opts, err := denseOptions(l)
			if err != nil {
				return fmt.Errorf("layer %q: %w", l.Name(), err)
			}
			raw := make([]float32, 0, 3*len(l.Data()))
			for _, v := range l.Data() {
				raw = append(raw, v[0], v[1], v[2])
			}
			if _, err := root.CreateDataset(l.Name(), raw, opts...); err != nil {
				return fmt.Errorf("writing layer %q: %w", l.Name(), err)
			}
		case *InvalidLayer:
			return fmt.Errorf("layer %q can't be written: %w", l.Name(), l.Err)
		default:
			_, err := root.CreateDataset(layer.Name(), []float32{0},
				hdf5.WithAttribute(attrAttribute, layer.Attribute()),
				hdf5.WithAttribute(attrEncoding, layer.Encoding()))
			if err != nil {
				return fmt.Errorf("writing layer %q: %w", layer.Name(), err)
			}
		}
	}
	return nil
}

func denseOptions(b *DenseBuffer) ([]hdf5.DatasetOption, error) {
	w := b.DataWindow()
	opts := []hdf5.DatasetOption{
		hdf5.WithAttribute(attrAttribute, b.Attribute()),
		hdf5.WithAttribute(attrEncoding, EncodingDense),
		hdf5.WithAttribute(attrDataWindow, []int64{
			int64(w.Min[0]), int64(w.Min[1]), int64(w.Min[2]),
			int64(w.Max[0]), int64(w.Max[1]), int64(w.Max[2]),
		}),
	}
	switch m := b.Mapping().(type) {
	case *MatrixMapping:
		l2w := m.LocalToWorldMatrix()
		opts = append(opts,
			hdf5.WithAttribute(attrMapping, MatrixMappingKind.String()),
			hdf5.WithAttribute(attrLocalToWorld, l2w[:]))
	case *FrustumMapping:
		c2w := m.CameraToWorld()
		opts = append(opts,
			hdf5.WithAttribute(attrMapping, FrustumMappingKind.String()),
			hdf5.WithAttribute(attrCameraToWorld, c2w[:]),
			hdf5.WithAttribute(attrFovY, m.FovY()),
			hdf5.WithAttribute(attrAspect, m.Aspect()),
			hdf5.WithAttribute(attrNear, m.Near()),
			hdf5.WithAttribute(attrFar, m.Far()))
	case nil:
		return nil, errors.New("buffer has no mapping")
	default:
		return nil, fmt.Errorf("can't write mapping of kind %v", m.Kind())
	}
	return opts, nil
}
