package pvr

import "errors"

// Configuration errors. These are returned from setup calls and mean the
// volume was used incorrectly, unlike missing files which are only logged.
var (
	ErrMissingBuffer      = errors.New("voxel volume has no buffer")
	ErrMissingMapping     = errors.New("voxel buffer has no mapping")
	ErrUnsupportedMapping = errors.New("unsupported mapping type")
)
