package pvr

import "sync/atomic"

const (
	IndexNotSet  = -1
	IndexInvalid = -2
)

// VolumeAttr is a named attribute a caller wants to sample. The index is
// resolved against a volume on first use and cached from then on.
type VolumeAttr struct {
	name  string
	index atomic.Int32
}

func NewVolumeAttr(name string) *VolumeAttr {
	a := &VolumeAttr{name: name}
	a.index.Store(IndexNotSet)
	return a
}

func (a *VolumeAttr) Name() string { return a.name }

func (a *VolumeAttr) Index() int { return int(a.index.Load()) }

// resolve binds the attribute to index if its name matches the volume's
// attribute. Concurrent callers compute the same result, so the store is
// safe to race.
func (a *VolumeAttr) resolve(volumeAttr string, index int) int {
	if idx := a.index.Load(); idx != IndexNotSet {
		return int(idx)
	}
	idx := int32(IndexInvalid)
	if a.name == volumeAttr {
		idx = int32(index)
	}
	a.index.Store(idx)
	return int(idx)
}
