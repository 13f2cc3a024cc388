package mmr

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// MutableMmr is a merkle mountain range together with a bitmap of
// deleted leaf indices. Its root commits to both.
type MutableMmr struct {
	mmr     *MerkleMountainRange
	deleted *roaring.Bitmap
}

// NewMutable returns a MutableMmr continuing from the given pruned hash
// set and deletion bitmap. The bitmap is cloned.
func NewMutable(existing *externalapi.PrunedHashSet, deleted *roaring.Bitmap) *MutableMmr {
	deletedClone := roaring.New()
	if deleted != nil {
		deletedClone = deleted.Clone()
	}
	return &MutableMmr{mmr: New(existing), deleted: deletedClone}
}

// Push appends the given leaf hash and returns its leaf index
func (m *MutableMmr) Push(leafHash *externalapi.DomainHash) uint64 {
	return m.mmr.Push(leafHash)
}

// LeafCount returns the number of leaves, deleted ones included
func (m *MutableMmr) LeafCount() uint64 {
	return m.mmr.LeafCount()
}

// Delete marks the leaf with the given index as deleted
func (m *MutableMmr) Delete(leafIndex uint64) error {
	if leafIndex >= m.mmr.LeafCount() {
		return errors.Errorf("cannot delete leaf %d of an MMR with %d leaves", leafIndex, m.mmr.LeafCount())
	}
	if leafIndex > uint64(^uint32(0)) {
		return errors.Errorf("leaf index %d does not fit the deletion bitmap", leafIndex)
	}
	m.deleted.Add(uint32(leafIndex))
	return nil
}

// ApplyDiff marks every leaf in diff as deleted
func (m *MutableMmr) ApplyDiff(diff *roaring.Bitmap) error {
	if diff.IsEmpty() {
		return nil
	}
	if uint64(diff.Maximum()) >= m.mmr.LeafCount() {
		return errors.Errorf("deletion diff references leaf %d of an MMR with %d leaves",
			diff.Maximum(), m.mmr.LeafCount())
	}
	m.deleted.Or(diff)
	return nil
}

// Deleted returns a copy of the deletion bitmap
func (m *MutableMmr) Deleted() *roaring.Bitmap {
	return m.deleted.Clone()
}

// MmrRoot returns the root of the underlying MMR, ignoring deletions
func (m *MutableMmr) MmrRoot() externalapi.DomainHash {
	return m.mmr.Root()
}

// Root returns the deletion-aware root
func (m *MutableMmr) Root() externalapi.DomainHash {
	mmrRoot := m.mmr.Root()
	return mutableRoot(&mmrRoot, m.deleted)
}

// PrunedHashSet compacts the underlying MMR into its peaks
func (m *MutableMmr) PrunedHashSet() *externalapi.PrunedHashSet {
	return m.mmr.PrunedHashSet()
}
