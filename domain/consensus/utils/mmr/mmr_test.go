package mmr

import (
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/utils/hashes"
)

func leafHash(i uint64) *externalapi.DomainHash {
	writer := hashes.NewKernelHashWriter()
	writer.WriteUint64(i)
	return writer.Finalize()
}

func TestPeakPositions(t *testing.T) {
	tests := []struct {
		nodeCount     uint64
		expectedPeaks []uint64
		expectedError bool
	}{
		{nodeCount: 0, expectedPeaks: []uint64{}},
		{nodeCount: 1, expectedPeaks: []uint64{0}},
		{nodeCount: 2, expectedError: true},
		{nodeCount: 3, expectedPeaks: []uint64{2}},
		{nodeCount: 4, expectedPeaks: []uint64{2, 3}},
		{nodeCount: 5, expectedError: true},
		{nodeCount: 7, expectedPeaks: []uint64{6}},
		{nodeCount: 8, expectedPeaks: []uint64{6, 7}},
		{nodeCount: 10, expectedPeaks: []uint64{6, 9}},
		{nodeCount: 11, expectedPeaks: []uint64{6, 9, 10}},
		{nodeCount: 19, expectedPeaks: []uint64{14, 17, 18}},
	}
	for _, test := range tests {
		peaks, err := PeakPositions(test.nodeCount)
		if test.expectedError {
			if err == nil {
				t.Fatalf("TestPeakPositions: expected an error for node count %d", test.nodeCount)
			}
			continue
		}
		if err != nil {
			t.Fatalf("TestPeakPositions: unexpected error for node count %d: %s", test.nodeCount, err)
		}
		if len(peaks) != len(test.expectedPeaks) {
			t.Fatalf("TestPeakPositions: node count %d: expected peaks %v, got %v",
				test.nodeCount, test.expectedPeaks, peaks)
		}
		for i := range peaks {
			if peaks[i] != test.expectedPeaks[i] {
				t.Fatalf("TestPeakPositions: node count %d: expected peaks %v, got %v",
					test.nodeCount, test.expectedPeaks, peaks)
			}
		}
	}
}

func TestLeafAndNodeCounts(t *testing.T) {
	mmr := New(nil)
	for i := uint64(0); i < 100; i++ {
		if position := LeafIndexToPosition(i); position != mmr.Size() {
			t.Fatalf("TestLeafAndNodeCounts: leaf %d: expected position %d, got %d", i, mmr.Size(), position)
		}
		leafIndex := mmr.Push(leafHash(i))
		if leafIndex != i {
			t.Fatalf("TestLeafAndNodeCounts: expected leaf index %d, got %d", i, leafIndex)
		}
		if mmr.LeafCount() != i+1 {
			t.Fatalf("TestLeafAndNodeCounts: expected %d leaves, got %d", i+1, mmr.LeafCount())
		}
		if NodeCountFromLeafCount(i+1) != mmr.Size() {
			t.Fatalf("TestLeafAndNodeCounts: expected node count %d for %d leaves, got %d",
				mmr.Size(), i+1, NodeCountFromLeafCount(i+1))
		}
	}
}

func TestEmptyRoot(t *testing.T) {
	emptyRoot := New(nil).Root()
	prunedRoot := New(&externalapi.PrunedHashSet{}).Root()
	if !emptyRoot.Equal(&prunedRoot) {
		t.Fatalf("TestEmptyRoot: empty MMRs have different roots")
	}
	if emptyRoot.IsZero() {
		t.Fatalf("TestEmptyRoot: empty root is the zero hash")
	}
	mmr := New(nil)
	mmr.Push(leafHash(0))
	root := mmr.Root()
	if root.Equal(&emptyRoot) {
		t.Fatalf("TestEmptyRoot: pushing a leaf didn't change the root")
	}
}

// TestPruneRoundTrip checks that compacting an MMR at any point and
// continuing from the compacted state gives the same roots as never
// compacting it.
func TestPruneRoundTrip(t *testing.T) {
	const leafCount = 40
	full := New(nil)
	expectedRoots := make([]externalapi.DomainHash, leafCount)
	for i := uint64(0); i < leafCount; i++ {
		full.Push(leafHash(i))
		expectedRoots[i] = full.Root()
	}

	for pruneAt := uint64(0); pruneAt <= leafCount; pruneAt++ {
		mmr := New(nil)
		for i := uint64(0); i < pruneAt; i++ {
			mmr.Push(leafHash(i))
		}
		prunedHashSet := mmr.PrunedHashSet()
		err := ValidatePrunedHashSet(prunedHashSet)
		if err != nil {
			t.Fatalf("TestPruneRoundTrip: invalid pruned hash set at %d: %+v", pruneAt, err)
		}
		if pruneAt > 0 {
			root := New(prunedHashSet).Root()
			if !root.Equal(&expectedRoots[pruneAt-1]) {
				t.Fatalf("TestPruneRoundTrip: pruning at %d changed the root", pruneAt)
			}
		}

		resumed := New(prunedHashSet)
		for i := pruneAt; i < leafCount; i++ {
			leafIndex := resumed.Push(leafHash(i))
			if leafIndex != i {
				t.Fatalf("TestPruneRoundTrip: expected leaf index %d, got %d", i, leafIndex)
			}
			root := resumed.Root()
			if !root.Equal(&expectedRoots[i]) {
				t.Fatalf("TestPruneRoundTrip: root after leaf %d differs when pruned at %d", i, pruneAt)
			}
		}
	}
}

func TestValidatePrunedHashSet(t *testing.T) {
	mmr := New(nil)
	for i := uint64(0); i < 11; i++ {
		mmr.Push(leafHash(i))
	}

	badLeafCount := mmr.PrunedHashSet()
	badLeafCount.LeafCount++
	badPosition := mmr.PrunedHashSet()
	badPosition.PeakPositions[0]++
	missingHash := mmr.PrunedHashSet()
	missingHash.PeakHashes = missingHash.PeakHashes[1:]
	badNodeCount := mmr.PrunedHashSet()
	badNodeCount.NodeCount++

	for name, set := range map[string]*externalapi.PrunedHashSet{
		"badLeafCount": badLeafCount,
		"badPosition":  badPosition,
		"missingHash":  missingHash,
		"badNodeCount": badNodeCount,
	} {
		if ValidatePrunedHashSet(set) == nil {
			t.Fatalf("TestValidatePrunedHashSet: %s: expected an error", name)
		}
	}
}

func TestProof(t *testing.T) {
	mmr := New(nil)
	for i := uint64(0); i < 23; i++ {
		mmr.Push(leafHash(i))
	}
	root := mmr.Root()
	for i := uint64(0); i < 23; i++ {
		proof, err := mmr.Proof(i)
		if err != nil {
			t.Fatalf("TestProof: Proof(%d): %+v", i, err)
		}
		err = VerifyProof(&root, proof, i, leafHash(i))
		if err != nil {
			t.Fatalf("TestProof: VerifyProof(%d): %+v", i, err)
		}
		err = VerifyProof(&root, proof, i, leafHash(i+1))
		if err == nil {
			t.Fatalf("TestProof: proof of leaf %d verified with the wrong leaf hash", i)
		}
	}

	pruned := New(mmr.PrunedHashSet())
	_, err := pruned.Proof(0)
	if err == nil {
		t.Fatalf("TestProof: expected an error for a proof of a pruned leaf")
	}

	// Leaves appended after compaction are provable up to their peak
	pruned.Push(leafHash(23))
	prunedRoot := pruned.Root()
	proof, err := pruned.Proof(23)
	if err != nil {
		t.Fatalf("TestProof: Proof(23): %+v", err)
	}
	err = VerifyProof(&prunedRoot, proof, 23, leafHash(23))
	if err != nil {
		t.Fatalf("TestProof: VerifyProof(23): %+v", err)
	}
}

func TestMutableMmr(t *testing.T) {
	mutable := NewMutable(nil, nil)
	for i := uint64(0); i < 10; i++ {
		mutable.Push(leafHash(i))
	}
	mmrRoot := mutable.MmrRoot()
	legacyRoot := LegacyRoot(&mmrRoot)
	rootBeforeDeletion := mutable.Root()
	if !legacyRoot.Equal(&rootBeforeDeletion) {
		t.Fatalf("TestMutableMmr: legacy root differs from the root of a mutable MMR with nothing deleted")
	}
	if legacyRoot.Equal(&mmrRoot) {
		t.Fatalf("TestMutableMmr: legacy root equals the plain root")
	}

	err := mutable.Delete(10)
	if err == nil {
		t.Fatalf("TestMutableMmr: expected an error deleting a leaf that doesn't exist")
	}
	err = mutable.Delete(3)
	if err != nil {
		t.Fatalf("TestMutableMmr: Delete: %+v", err)
	}
	rootAfterDeletion := mutable.Root()
	if rootAfterDeletion.Equal(&rootBeforeDeletion) {
		t.Fatalf("TestMutableMmr: deletion didn't change the root")
	}
	mmrRootAfterDeletion := mutable.MmrRoot()
	if !mmrRootAfterDeletion.Equal(&mmrRoot) {
		t.Fatalf("TestMutableMmr: deletion changed the plain MMR root")
	}

	// Deleting through a diff gives the same root as deleting one by one
	other := NewMutable(nil, nil)
	for i := uint64(0); i < 10; i++ {
		other.Push(leafHash(i))
	}
	err = other.ApplyDiff(roaring.BitmapOf(3))
	if err != nil {
		t.Fatalf("TestMutableMmr: ApplyDiff: %+v", err)
	}
	otherRoot := other.Root()
	if !otherRoot.Equal(&rootAfterDeletion) {
		t.Fatalf("TestMutableMmr: ApplyDiff root differs from Delete root")
	}
	err = other.ApplyDiff(roaring.BitmapOf(10))
	if err == nil {
		t.Fatalf("TestMutableMmr: expected an error applying a diff beyond the leaf count")
	}

	// Resuming from the compacted state keeps the deletions
	resumed := NewMutable(mutable.PrunedHashSet(), mutable.Deleted())
	resumedRoot := resumed.Root()
	if !resumedRoot.Equal(&rootAfterDeletion) {
		t.Fatalf("TestMutableMmr: resumed mutable MMR has a different root")
	}
}

// TestMonotonicDeletion checks that deleting never unsets previously
// deleted leaves and that every new deletion changes the root.
func TestMonotonicDeletion(t *testing.T) {
	mutable := NewMutable(nil, nil)
	for i := uint64(0); i < 32; i++ {
		mutable.Push(leafHash(i))
	}
	seenRoots := map[externalapi.DomainHash]struct{}{mutable.Root(): {}}
	for _, leafIndex := range []uint64{5, 17, 0, 31, 6} {
		before := mutable.Deleted()
		err := mutable.Delete(leafIndex)
		if err != nil {
			t.Fatalf("TestMonotonicDeletion: Delete(%d): %+v", leafIndex, err)
		}
		after := mutable.Deleted()
		if before.AndCardinality(after) != before.GetCardinality() {
			t.Fatalf("TestMonotonicDeletion: deleting %d removed earlier deletions", leafIndex)
		}
		root := mutable.Root()
		if _, ok := seenRoots[root]; ok {
			t.Fatalf("TestMonotonicDeletion: deleting %d gave an already seen root", leafIndex)
		}
		seenRoots[root] = struct{}{}
	}
}

func TestDeletedHashIsCanonical(t *testing.T) {
	ascending := roaring.New()
	for i := uint32(0); i < 5000; i++ {
		ascending.Add(i)
	}
	descending := roaring.New()
	for i := uint32(5000); i > 0; i-- {
		descending.Add(i - 1)
	}
	descending.RunOptimize()

	ascendingHash := DeletedHash(ascending)
	descendingHash := DeletedHash(descending)
	if !ascendingHash.Equal(&descendingHash) {
		t.Fatalf("TestDeletedHashIsCanonical: equal bitmaps hash differently")
	}
	nilHash := DeletedHash(nil)
	emptyHash := DeletedHash(roaring.New())
	if !nilHash.Equal(&emptyHash) {
		t.Fatalf("TestDeletedHashIsCanonical: nil and empty bitmaps hash differently")
	}
}
