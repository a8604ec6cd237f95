package core

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrVecAssign is returned when a list of numbers can't be assigned to a
// vector because it is too short.
var ErrVecAssign = errors.New("error assigning values to vector")

// AssignVec3 copies the first three values of vals into a Vec3. Extra
// values are ignored.
func AssignVec3(vals []float64) (mgl64.Vec3, error) {
	switch len(vals) {
	case 0:
		return mgl64.Vec3{}, fmt.Errorf("%w: no elements in list", ErrVecAssign)
	case 1:
		return mgl64.Vec3{}, fmt.Errorf("%w: only one element in list", ErrVecAssign)
	case 2:
		return mgl64.Vec3{}, fmt.Errorf("%w: only two elements in list", ErrVecAssign)
	}
	return mgl64.Vec3{vals[0], vals[1], vals[2]}, nil
}

// AssignVec3i is AssignVec3 for integer triples such as resolutions.
func AssignVec3i(vals []int) ([3]int, error) {
	switch len(vals) {
	case 0:
		return [3]int{}, fmt.Errorf("%w: no elements in list", ErrVecAssign)
	case 1:
		return [3]int{}, fmt.Errorf("%w: only one element in list", ErrVecAssign)
	case 2:
		return [3]int{}, fmt.Errorf("%w: only two elements in list", ErrVecAssign)
	}
	return [3]int{vals[0], vals[1], vals[2]}, nil
}
