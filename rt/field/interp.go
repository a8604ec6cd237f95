package field

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-gl/mathgl/mgl64"
)

// Field is the read access a reconstruction filter needs.
type Field interface {
	DataWindow() DataWindow
	Value(i, j, k int) mgl32.Vec3
}

// Interpolator reconstructs a continuous field value at a voxel space
// position. Voxel centers sit at half integer coordinates. Reads are
// clamped to the data window.
type Interpolator interface {
	Sample(f Field, vsP mgl64.Vec3) mgl32.Vec3
}

// LinearInterp is trilinear interpolation between the eight nearest voxel
// centers.
type LinearInterp struct{}

func (LinearInterp) Sample(f Field, vsP mgl64.Vec3) mgl32.Vec3 {
	p := vsP.Sub(mgl64.Vec3{0.5, 0.5, 0.5})

	// Lower left and upper right corners
	c1 := [3]int{int(math.Floor(p[0])), int(math.Floor(p[1])), int(math.Floor(p[2]))}
	c2 := [3]int{c1[0] + 1, c1[1] + 1, c1[2] + 1}

	// Weights of c1 and c2
	var f1, f2 [3]float64
	for dim := 0; dim < 3; dim++ {
		f1[dim] = float64(c2[dim]) - p[dim]
		f2[dim] = 1 - f1[dim]
	}

	w := f.DataWindow()
	c1[0], c1[1], c1[2] = w.Clamp(c1[0], c1[1], c1[2])
	c2[0], c2[1], c2[2] = w.Clamp(c2[0], c2[1], c2[2])

	lerpZ := func(i, j int) mgl64.Vec3 {
		return vec64(f.Value(i, j, c1[2])).Mul(f1[2]).Add(vec64(f.Value(i, j, c2[2])).Mul(f2[2]))
	}
	lerpY := func(i int) mgl64.Vec3 {
		return lerpZ(i, c1[1]).Mul(f1[1]).Add(lerpZ(i, c2[1]).Mul(f2[1]))
	}
	return vec32(lerpY(c1[0]).Mul(f1[0]).Add(lerpY(c2[0]).Mul(f2[0])))
}

func vec64(v mgl32.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

func vec32(v mgl64.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
}

const (
	DefaultGaussianAlpha = 2.0
	DefaultGaussianWidth = 2.0
	// MinGaussianWidth keeps at least the nearest voxel center inside the
	// kernel window wherever the filter is evaluated.
	MinGaussianWidth = 1.0
)

// GaussianInterp reconstructs with a 4x4x4 windowed Gaussian. The kernel
// is offset by its value at Width so it reaches zero at the window edge.
// Zero or negative fields mean the defaults, and Width is raised to
// MinGaussianWidth, so the zero value is usable.
type GaussianInterp struct {
	Alpha float64
	Width float64
}

func NewGaussianInterp() GaussianInterp {
	return GaussianInterp{Alpha: DefaultGaussianAlpha, Width: DefaultGaussianWidth}
}

func (g GaussianInterp) params() (alpha, width float64) {
	alpha, width = g.Alpha, g.Width
	if !(alpha > 0) {
		alpha = DefaultGaussianAlpha
	}
	if !(width > 0) {
		width = DefaultGaussianWidth
	}
	return alpha, math.Max(width, MinGaussianWidth)
}

func gaussian(alpha, x, edge float64) float64 {
	return math.Max(0, math.Exp(-alpha*x*x)-edge)
}

func (g GaussianInterp) Sample(f Field, vsP mgl64.Vec3) mgl32.Vec3 {
	// Nothing to reconstruct below the first voxel center. Don't shift the
	// coordinate itself, we want sample locations.
	cp := mgl64.Vec3{math.Max(0.5, vsP[0]), math.Max(0.5, vsP[1]), math.Max(0.5, vsP[2])}
	p := cp.Sub(mgl64.Vec3{0.5, 0.5, 0.5})

	w := f.DataWindow()
	alpha, width := g.params()
	edge := math.Exp(-alpha * width * width)

	// Lower left corner of the 4x4x4 neighborhood
	c := [3]int{int(math.Floor(p[0])) - 1, int(math.Floor(p[1])) - 1, int(math.Floor(p[2])) - 1}

	var wx, wy, wz [4]float64
	for n := 0; n < 4; n++ {
		wx[n] = gaussian(alpha, float64(c[0]+n)+0.5-cp[0], edge)
		wy[n] = gaussian(alpha, float64(c[1]+n)+0.5-cp[1], edge)
		wz[n] = gaussian(alpha, float64(c[2]+n)+0.5-cp[2], edge)
	}

	var value mgl64.Vec3
	normalization := 0.0
	for k := 0; k < 4; k++ {
		for j := 0; j < 4; j++ {
			for i := 0; i < 4; i++ {
				weight := wx[i] * wy[j] * wz[k]
				if weight == 0 {
					continue
				}
				ic, jc, kc := w.Clamp(c[0]+i, c[1]+j, c[2]+k)
				value = value.Add(vec64(f.Value(ic, jc, kc)).Mul(weight))
				normalization += weight
			}
		}
	}

	if normalization == 0 {
		// Every tap underflowed, a very sharp kernel. Use the nearest voxel.
		return f.Value(w.Clamp(int(math.Floor(cp[0])), int(math.Floor(cp[1])), int(math.Floor(cp[2]))))
	}
	return vec32(value.Mul(1 / normalization))
}
