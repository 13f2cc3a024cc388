package mmr

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/utils/hashes"
)

func hashParent(left, right *externalapi.DomainHash) externalapi.DomainHash {
	writer := hashes.NewMmrNodeHashWriter()
	writer.WriteHash(left)
	writer.WriteHash(right)
	return *writer.Finalize()
}

func bagPeaks(nodeCount uint64, peaks []externalapi.DomainHash) externalapi.DomainHash {
	writer := hashes.NewMmrRootHashWriter()
	writer.WriteUint64(nodeCount)
	for i := range peaks {
		writer.WriteHash(&peaks[i])
	}
	return *writer.Finalize()
}

// DeletedHash returns the canonical hash of a deletion bitmap: its
// cardinality followed by the deleted leaf indices in ascending order.
// It does not depend on the bitmap's internal container layout.
func DeletedHash(deleted *roaring.Bitmap) externalapi.DomainHash {
	writer := hashes.NewDeletedBitmapHashWriter()
	if deleted == nil {
		writer.WriteUint64(0)
		return *writer.Finalize()
	}
	writer.WriteUint64(deleted.GetCardinality())
	iterator := deleted.Iterator()
	for iterator.HasNext() {
		writer.WriteUint64(uint64(iterator.Next()))
	}
	return *writer.Finalize()
}

func mutableRoot(mmrRoot *externalapi.DomainHash, deleted *roaring.Bitmap) externalapi.DomainHash {
	deletedHash := DeletedHash(deleted)
	writer := hashes.NewMutableMmrRootHashWriter()
	writer.WriteHash(mmrRoot)
	writer.WriteHash(&deletedHash)
	return *writer.Finalize()
}

// LegacyRoot turns a plain MMR root into the deletion-aware format with
// nothing deleted. Kernel and range proof roots are committed to in
// headers in this format.
func LegacyRoot(root *externalapi.DomainHash) externalapi.DomainHash {
	return mutableRoot(root, roaring.New())
}
