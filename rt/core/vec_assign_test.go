package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignVec3(t *testing.T) {
	v, err := AssignVec3([]float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, v)

	for _, in := range [][]float64{nil, {1}, {1, 2}} {
		_, err := AssignVec3(in)
		assert.ErrorIs(t, err, ErrVecAssign)
	}

	_, err = AssignVec3([]float64{1, 2})
	assert.ErrorContains(t, err, "only two elements")
}

func TestAssignVec3i(t *testing.T) {
	v, err := AssignVec3i([]int{8, 16, 32})
	require.NoError(t, err)
	assert.Equal(t, [3]int{8, 16, 32}, v)

	_, err = AssignVec3i([]int{8})
	assert.ErrorIs(t, err, ErrVecAssign)
	assert.ErrorContains(t, err, "only one element")
}
