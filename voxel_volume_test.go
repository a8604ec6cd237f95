package pvr

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gekko3d/pvr/rt/core"
	"github.com/gekko3d/pvr/rt/field"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/robert-malhotra/go-hdf5/hdf5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
}

func (l *recordingLogger) DebugEnabled() bool                { return false }
func (l *recordingLogger) SetDebug(enabled bool)             {}
func (l *recordingLogger) Debugf(format string, args ...any) {}
func (l *recordingLogger) Errorf(format string, args ...any) {}

func (l *recordingLogger) Infof(format string, args ...any) {
	l.mu.Lock()
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *recordingLogger) Warnf(format string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

type fakeReader struct {
	layers []field.Layer
	err    error
}

func (r fakeReader) ReadVectorLayers(name string) ([]field.Layer, error) {
	return r.layers, r.err
}

// customMapping is a mapping the volume has no intersection algorithm for.
type customMapping struct {
	*field.MatrixMapping
}

var testColor = mgl32.Vec3{0.25, 0.5, 2}

func constantBuffer(t *testing.T, c mgl32.Vec3) *field.DenseBuffer {
	t.Helper()
	buf, err := field.NewDenseBuffer(field.NewDataWindow(4, 4, 4), "Cd")
	require.NoError(t, err)
	buf.Fill(c)
	require.NoError(t, buf.SetMapping(identityMapping(t, 4)))
	return buf
}

func rampVolume(t *testing.T) *VoxelVolume {
	t.Helper()
	buf, err := field.NewDenseBuffer(field.NewDataWindow(4, 4, 4), "Cd")
	require.NoError(t, err)
	for k := 0; k < 4; k++ {
		for j := 0; j < 4; j++ {
			for i := 0; i < 4; i++ {
				buf.SetValue(i, j, k, mgl32.Vec3{float32(i + 1), float32(j + 1), float32(k + 1)})
			}
		}
	}
	require.NoError(t, buf.SetMapping(identityMapping(t, 4)))
	vol := NewVoxelVolume()
	require.NoError(t, vol.SetBuffer(buf))
	return vol
}

func TestVoxelVolumeEndToEnd(t *testing.T) {
	vol := NewVoxelVolume()
	require.NoError(t, vol.SetBuffer(constantBuffer(t, testColor)))

	ray := core.NewRay(mgl64.Vec3{0.5, 0.5, -5}, mgl64.Vec3{0, 0, 1})
	intervals := vol.Intersect(RenderState{WsRay: ray})
	require.Len(t, intervals, 1)
	assert.InDelta(t, 5.0, intervals[0].T0, 1e-9)
	assert.InDelta(t, 6.0, intervals[0].T1, 1e-9)

	attr := NewVolumeAttr("Cd")
	for _, wsP := range []mgl64.Vec3{{0.5, 0.5, 0.5}, {0.1, 0.2, 0.7}, {0, 0, 0}, {0.75, 0.75, 0.75}, {0.3, 0.01, 0.6}} {
		got := vol.Sample(SampleState{WsP: wsP, WsRay: ray}, attr)
		assert.Equal(t, testColor, got, "sample at %v", wsP)
	}
	assert.Equal(t, 0, attr.Index())

	// March along the ray like a renderer would.
	iv := intervals[0]
	for i := 0; i < iv.NumSteps(); i++ {
		wsP := ray.At(iv.T0 + float64(i)*iv.StepLength)
		assert.Equal(t, testColor, vol.Sample(SampleState{WsP: wsP}, attr))
	}
}

func TestVoxelVolumeSampleBounds(t *testing.T) {
	vol := rampVolume(t)
	attr := NewVolumeAttr("Cd")

	// Voxel space is world space scaled by four.
	tests := []struct {
		name string
		vsP  mgl64.Vec3
		zero bool
	}{
		{"min corner", mgl64.Vec3{0, 0, 0}, false},
		{"max corner", mgl64.Vec3{3, 3, 3}, false},
		{"voxel center", mgl64.Vec3{2.5, 1.5, 0.5}, false},
		{"below x", mgl64.Vec3{-1, 1, 1}, true},
		{"below z", mgl64.Vec3{1, 1, -1}, true},
		{"above x", mgl64.Vec3{4, 1, 1}, true},
		{"above y", mgl64.Vec3{1, 4, 1}, true},
		{"just above z", mgl64.Vec3{1, 1, 3.01}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := vol.Sample(SampleState{WsP: tt.vsP.Mul(0.25)}, attr)
			if tt.zero {
				assert.Equal(t, mgl32.Vec3{}, got)
			} else {
				assert.NotEqual(t, mgl32.Vec3{}, got)
			}
		})
	}

	got := vol.Sample(SampleState{WsP: mgl64.Vec3{2.5, 1.5, 0.5}.Mul(0.25)}, attr)
	assert.Equal(t, mgl32.Vec3{3, 2, 1}, got)
}

func TestVoxelVolumeInvalidAttribute(t *testing.T) {
	vol := rampVolume(t)
	attr := NewVolumeAttr("density")
	assert.Equal(t, IndexNotSet, attr.Index())

	state := SampleState{WsP: mgl64.Vec3{0.5, 0.5, 0.5}}
	assert.Equal(t, mgl32.Vec3{}, vol.Sample(state, attr))
	assert.Equal(t, IndexInvalid, attr.Index())

	// Once invalid the handle stays invalid, even against a volume that
	// does carry the name.
	other := NewVoxelVolume()
	buf := constantBuffer(t, testColor)
	buf2, err := field.NewDenseBuffer(buf.DataWindow(), "density")
	require.NoError(t, err)
	buf2.Fill(testColor)
	require.NoError(t, buf2.SetMapping(buf.Mapping()))
	require.NoError(t, other.SetBuffer(buf2))

	for i := 0; i < 3; i++ {
		assert.Equal(t, mgl32.Vec3{}, other.Sample(state, attr))
		assert.Equal(t, IndexInvalid, attr.Index())
	}
	assert.Equal(t, testColor, other.Sample(state, NewVolumeAttr("density")))
}

func TestVoxelVolumeSampleFiltered(t *testing.T) {
	vol := NewVoxelVolume()
	require.NoError(t, vol.SetBuffer(constantBuffer(t, testColor)))
	attr := NewVolumeAttr("Cd")

	got := vol.SampleFiltered(SampleState{WsP: mgl64.Vec3{0.4, 0.3, 0.2}}, attr, field.NewGaussianInterp())
	assert.True(t, got.ApproxEqualThreshold(testColor, 1e-5), "got %v", got)

	outside := vol.SampleFiltered(SampleState{WsP: mgl64.Vec3{2, 0, 0}}, attr, field.NewGaussianInterp())
	assert.Equal(t, mgl32.Vec3{}, outside)
}

func TestVoxelVolumeEmpty(t *testing.T) {
	vol := NewVoxelVolume()
	ray := core.NewRay(mgl64.Vec3{0.5, 0.5, -5}, mgl64.Vec3{0, 0, 1})

	assert.Empty(t, vol.AttributeNames())
	assert.Nil(t, vol.Intersect(RenderState{WsRay: ray}))
	assert.Equal(t, mgl32.Vec3{}, vol.Sample(SampleState{WsP: mgl64.Vec3{0.5, 0.5, 0.5}}, NewVolumeAttr("Cd")))
	assert.True(t, vol.Bounds().IsEmpty())
	assert.NotEmpty(t, vol.ID())
	assert.NotEqual(t, vol.ID(), NewVoxelVolume().ID())
}

func TestVoxelVolumeConfigErrors(t *testing.T) {
	vol := NewVoxelVolume()
	assert.ErrorIs(t, vol.UpdateIntersectionHandler(), ErrMissingBuffer)
	assert.ErrorIs(t, vol.SetBuffer(nil), ErrMissingBuffer)

	noMapping, err := field.NewDenseBuffer(field.NewDataWindow(2, 2, 2), "Cd")
	require.NoError(t, err)
	assert.ErrorIs(t, vol.SetBuffer(noMapping), ErrMissingMapping)
	assert.Nil(t, vol.Buffer())

	vol.buffer = noMapping
	assert.ErrorIs(t, vol.UpdateIntersectionHandler(), ErrMissingMapping)
	vol.buffer = nil

	good := constantBuffer(t, testColor)
	require.NoError(t, vol.SetBuffer(good))

	custom, err := field.NewDenseBuffer(field.NewDataWindow(4, 4, 4), "Cd")
	require.NoError(t, err)
	require.NoError(t, custom.SetMapping(customMapping{identityMapping(t, 4)}))
	err = vol.SetBuffer(custom)
	assert.ErrorIs(t, err, ErrUnsupportedMapping)
	assert.Contains(t, err.Error(), "customMapping")

	// The failed call leaves the previous buffer in place.
	assert.Same(t, good, vol.Buffer())
	assert.Len(t, vol.Intersect(RenderState{WsRay: core.NewRay(mgl64.Vec3{0.5, 0.5, -5}, mgl64.Vec3{0, 0, 1})}), 1)
}

func TestVoxelVolumeMissingHandlerPanics(t *testing.T) {
	vol := NewVoxelVolume()
	vol.buffer = constantBuffer(t, testColor)
	assert.PanicsWithValue(t, "missing intersection handler", func() {
		vol.Intersect(RenderState{})
	})
}

func TestVoxelVolumeFrustum(t *testing.T) {
	m := testFrustum(t)
	buf, err := field.NewDenseBuffer(m.Extents(), "Cd")
	require.NoError(t, err)
	buf.Fill(testColor)
	require.NoError(t, buf.SetMapping(m))

	vol := NewVoxelVolume()
	require.NoError(t, vol.SetBuffer(buf))
	_, ok := vol.handler.(*FrustumMappingIntersection)
	assert.True(t, ok)

	intervals := vol.Intersect(RenderState{WsRay: core.NewRay(mgl64.Vec3{0, 0, 5}, mgl64.Vec3{0, 0, -1})})
	require.Len(t, intervals, 1)
	assert.InDelta(t, 6.0, intervals[0].T0, 1e-9)

	attr := NewVolumeAttr("Cd")
	assert.Equal(t, testColor, vol.Sample(SampleState{WsP: mgl64.Vec3{0.1, -0.2, -2}}, attr))
	assert.Equal(t, mgl32.Vec3{}, vol.Sample(SampleState{WsP: mgl64.Vec3{0, 0, -4}}, attr))
	assert.Equal(t, mgl32.Vec3{}, vol.Sample(SampleState{WsP: mgl64.Vec3{0, 0, 0}}, attr))

	b := vol.Bounds()
	assert.InDelta(t, -3.0, b.Min.X(), 1e-9)
	assert.InDelta(t, 3.0, b.Max.Y(), 1e-9)
	assert.InDelta(t, -3.0, b.Min.Z(), 1e-9)
	assert.InDelta(t, -1.0, b.Max.Z(), 1e-9)
}

func TestVoxelVolumeConcurrentSample(t *testing.T) {
	vol := NewVoxelVolume()
	require.NoError(t, vol.SetBuffer(constantBuffer(t, testColor)))
	attr := NewVolumeAttr("Cd")

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				wsP := mgl64.Vec3{float64(i%7) / 10, float64(g) / 10, 0.5}
				assert.Equal(t, testColor, vol.Sample(SampleState{WsP: wsP}, attr))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, attr.Index())
}

func TestVoxelVolumeLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smoke.h5")
	buf := constantBuffer(t, testColor)
	buf.SetName("smoke")
	sparse := &field.OpaqueLayer{LayerName: "a_sparse", AttributeName: "density", LayerEncoding: "sparse"}
	require.NoError(t, field.WriteLayers(path, sparse, buf))

	log := &recordingLogger{}
	vol := NewVoxelVolume(WithLogger(log))
	vol.Load(path)

	assert.Empty(t, log.warns)
	require.Len(t, log.infos, 1)
	assert.Contains(t, log.infos[0], "Loading voxel buffer")
	assert.Equal(t, []string{"Cd"}, vol.AttributeNames())

	intervals := vol.Intersect(RenderState{WsRay: core.NewRay(mgl64.Vec3{0.5, 0.5, -5}, mgl64.Vec3{0, 0, 1})})
	require.Len(t, intervals, 1)
	assert.Equal(t, testColor, vol.Sample(SampleState{WsP: mgl64.Vec3{0.5, 0.5, 0.5}}, NewVolumeAttr("Cd")))
}

// writeCorruptField writes a dense layer whose data window claims far more
// voxels than the file stores.
func writeCorruptField(t *testing.T, path string) {
	t.Helper()
	f, err := hdf5.Create(path)
	require.NoError(t, err)
	ident := mgl64.Ident4()
	_, err = f.Root().CreateDataset("density", []float32{1, 2, 3},
		hdf5.WithAttribute("attribute", "density"),
		hdf5.WithAttribute("encoding", field.EncodingDense),
		hdf5.WithAttribute("data_window", []int64{0, 0, 0, 2e6, 2e6, 2e6}),
		hdf5.WithAttribute("mapping", field.MatrixMappingKind.String()),
		hdf5.WithAttribute("local_to_world", ident[:]))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestVoxelVolumeLoadSoftFailures(t *testing.T) {
	dir := t.TempDir()
	opaqueOnly := filepath.Join(dir, "sparse.h5")
	require.NoError(t, field.WriteLayers(opaqueOnly,
		&field.OpaqueLayer{LayerName: "density", AttributeName: "density", LayerEncoding: "sparse"}))
	corrupt := filepath.Join(dir, "corrupt.h5")
	writeCorruptField(t, corrupt)

	unsupported, err := field.NewDenseBuffer(field.NewDataWindow(4, 4, 4), "Cd")
	require.NoError(t, err)
	require.NoError(t, unsupported.SetMapping(customMapping{identityMapping(t, 4)}))

	tests := []struct {
		name   string
		reader LayerReader
		file   string
		warn   string
	}{
		{"missing file", nil, filepath.Join(dir, "missing.h5"), "Couldn't load"},
		{"opaque layers only", nil, opaqueOnly, "No dense field"},
		{"no layers", fakeReader{}, "empty.h5", "No <float> fields"},
		{"reader error", fakeReader{err: errors.New("boom")}, "broken.h5", "boom"},
		{"unsupported mapping", fakeReader{layers: []field.Layer{unsupported}}, "custom.h5", "unsupported mapping"},
		{"corrupt data window", nil, corrupt, "malformed field layer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, prev := range []*field.DenseBuffer{nil, constantBuffer(t, testColor)} {
				log := &recordingLogger{}
				vol := NewVoxelVolume(WithLogger(log), WithLayerReader(tt.reader))
				if prev != nil {
					require.NoError(t, vol.SetBuffer(prev))
				}

				vol.Load(tt.file)

				require.NotEmpty(t, log.warns)
				assert.Contains(t, strings.Join(log.warns, "\n"), tt.warn)
				assert.Same(t, prev, vol.Buffer())

				ray := core.NewRay(mgl64.Vec3{0.5, 0.5, -5}, mgl64.Vec3{0, 0, 1})
				if prev == nil {
					assert.Empty(t, vol.Intersect(RenderState{WsRay: ray}))
					assert.Empty(t, vol.AttributeNames())
				} else {
					assert.Len(t, vol.Intersect(RenderState{WsRay: ray}), 1)
				}
			}
		})
	}
}

func TestVoxelVolumeLoadSkipsInvalidLayers(t *testing.T) {
	good := constantBuffer(t, testColor)
	bad := &field.InvalidLayer{LayerName: "broken", Err: field.ErrBadLayer}

	log := &recordingLogger{}
	vol := NewVoxelVolume(WithLogger(log), WithLayerReader(fakeReader{layers: []field.Layer{bad, good}}))
	vol.Load("mixed.h5")

	require.Len(t, log.warns, 1)
	assert.Contains(t, log.warns[0], "broken")
	assert.Same(t, good, vol.Buffer())
}

func TestVoxelVolumeNilAttr(t *testing.T) {
	vol := NewVoxelVolume()
	require.NoError(t, vol.SetBuffer(constantBuffer(t, testColor)))
	state := SampleState{WsP: mgl64.Vec3{0.5, 0.5, 0.5}}

	assert.Equal(t, testColor, vol.Sample(state, nil))
	assert.Equal(t, mgl32.Vec3{}, vol.Sample(SampleState{WsP: mgl64.Vec3{2, 2, 2}}, nil))
	assert.Equal(t, mgl32.Vec3{}, NewVoxelVolume().Sample(state, nil))
}

func TestVoxelVolumeGaussianZeroValue(t *testing.T) {
	vol := rampVolume(t)
	attr := NewVolumeAttr("Cd")

	for _, wsP := range []mgl64.Vec3{{0.25, 0.25, 0.25}, {0.4, 0.1, 0.7}} {
		got := vol.SampleFiltered(SampleState{WsP: wsP}, attr, field.GaussianInterp{})
		want := vol.SampleFiltered(SampleState{WsP: wsP}, attr, field.NewGaussianInterp())
		assert.Equal(t, want, got, "at %v", wsP)
	}
}
