package field

import (
	"math"
	"math/bits"

	"github.com/go-gl/mathgl/mgl64"
)

// MaxWindowCoord bounds the voxel coordinates a buffer can be allocated
// over.
const MaxWindowCoord = 1 << 30

// DataWindow is the inclusive range of valid voxel indices of a buffer.
type DataWindow struct {
	Min [3]int
	Max [3]int
}

// NewDataWindow returns the window [0, res-1] on each axis.
func NewDataWindow(nx, ny, nz int) DataWindow {
	return DataWindow{Max: [3]int{nx - 1, ny - 1, nz - 1}}
}

func (w DataWindow) Empty() bool {
	return w.Min[0] > w.Max[0] || w.Min[1] > w.Max[1] || w.Min[2] > w.Max[2]
}

// Size is the number of voxels along each axis.
func (w DataWindow) Size() [3]int {
	if w.Empty() {
		return [3]int{}
	}
	return [3]int{w.Max[0] - w.Min[0] + 1, w.Max[1] - w.Min[1] + 1, w.Max[2] - w.Min[2] + 1}
}

func (w DataWindow) NumVoxels() int {
	s := w.Size()
	return s[0] * s[1] * s[2]
}

// CheckedNumVoxels is NumVoxels for windows that come from outside the
// program. It reports false for empty windows, coordinates beyond
// MaxWindowCoord and counts that don't fit in an int.
func (w DataWindow) CheckedNumVoxels() (int, bool) {
	if w.Empty() {
		return 0, false
	}
	total := uint64(1)
	for dim := 0; dim < 3; dim++ {
		if w.Min[dim] < -MaxWindowCoord || w.Max[dim] > MaxWindowCoord {
			return 0, false
		}
		hi, lo := bits.Mul64(total, uint64(w.Max[dim]-w.Min[dim]+1))
		if hi != 0 || lo > math.MaxInt {
			return 0, false
		}
		total = lo
	}
	return int(total), true
}

func (w DataWindow) Contains(i, j, k int) bool {
	return i >= w.Min[0] && i <= w.Max[0] &&
		j >= w.Min[1] && j <= w.Max[1] &&
		k >= w.Min[2] && k <= w.Max[2]
}

// ContainsPoint checks a continuous voxel space position against the
// discrete bounds. Both ends are inclusive; NaN is never inside.
func (w DataWindow) ContainsPoint(vsP mgl64.Vec3) bool {
	for dim := 0; dim < 3; dim++ {
		if !(vsP[dim] >= float64(w.Min[dim]) && vsP[dim] <= float64(w.Max[dim])) {
			return false
		}
	}
	return true
}

// Clamp moves an index onto the nearest voxel inside the window.
func (w DataWindow) Clamp(i, j, k int) (int, int, int) {
	return clampInt(i, w.Min[0], w.Max[0]),
		clampInt(j, w.Min[1], w.Max[1]),
		clampInt(k, w.Min[2], w.Max[2])
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
