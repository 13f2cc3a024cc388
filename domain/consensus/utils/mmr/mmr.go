package mmr

import (
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// ErrPrunedNode is returned when an operation needs a node that was
// compacted away into a pruned hash set
var ErrPrunedNode = errors.New("node is pruned")

// MerkleMountainRange is an append-only merkle mountain range. It may
// be seeded from a pruned hash set, in which case only the peaks of the
// seed are known and everything appended afterwards is kept in full.
type MerkleMountainRange struct {
	baseNodeCount uint64
	baseLeafCount uint64
	basePeaks     map[uint64]externalapi.DomainHash
	appended      []externalapi.DomainHash
}

// New returns a merkle mountain range continuing from the given pruned
// hash set. A nil set yields an empty MMR.
func New(existing *externalapi.PrunedHashSet) *MerkleMountainRange {
	mmr := &MerkleMountainRange{
		basePeaks: make(map[uint64]externalapi.DomainHash),
	}
	if existing == nil {
		return mmr
	}
	mmr.baseNodeCount = existing.NodeCount
	mmr.baseLeafCount = existing.LeafCount
	for i, position := range existing.PeakPositions {
		mmr.basePeaks[position] = existing.PeakHashes[i]
	}
	return mmr
}

// Size returns the number of nodes in the MMR
func (mmr *MerkleMountainRange) Size() uint64 {
	return mmr.baseNodeCount + uint64(len(mmr.appended))
}

// LeafCount returns the number of leaves in the MMR
func (mmr *MerkleMountainRange) LeafCount() uint64 {
	// Size is always a valid node count
	leafCount, _ := LeafCountFromNodeCount(mmr.Size())
	return leafCount
}

func (mmr *MerkleMountainRange) get(position uint64) (*externalapi.DomainHash, error) {
	if position >= mmr.Size() {
		return nil, errors.Errorf("position %d is out of range of an MMR of size %d", position, mmr.Size())
	}
	if position >= mmr.baseNodeCount {
		return &mmr.appended[position-mmr.baseNodeCount], nil
	}
	hash, ok := mmr.basePeaks[position]
	if !ok {
		return nil, errors.Wrapf(ErrPrunedNode, "position %d", position)
	}
	return &hash, nil
}

// Push appends the given leaf hash and returns its leaf index
func (mmr *MerkleMountainRange) Push(leafHash *externalapi.DomainHash) uint64 {
	leafIndex := mmr.LeafCount()
	position := mmr.Size()
	mmr.appended = append(mmr.appended, *leafHash)

	height := uint64(0)
	for nodeHeight(position+1) > height {
		leftPosition := position + 1 - (uint64(1) << (height + 1))
		// The left sibling is either appended or a peak of the base, and
		// peaks are never pruned
		left, err := mmr.get(leftPosition)
		if err != nil {
			panic(errors.Wrapf(err, "corrupt MMR: missing left sibling at %d", leftPosition))
		}
		right := mmr.appended[position-mmr.baseNodeCount]
		parent := hashParent(left, &right)
		mmr.appended = append(mmr.appended, parent)
		position++
		height++
	}
	return leafIndex
}

func (mmr *MerkleMountainRange) peaks() ([]uint64, []externalapi.DomainHash) {
	positions, err := PeakPositions(mmr.Size())
	if err != nil {
		panic(errors.Wrapf(err, "corrupt MMR"))
	}
	peakHashes := make([]externalapi.DomainHash, len(positions))
	for i, position := range positions {
		hash, err := mmr.get(position)
		if err != nil {
			panic(errors.Wrapf(err, "corrupt MMR: missing peak at %d", position))
		}
		peakHashes[i] = *hash
	}
	return positions, peakHashes
}

// Root returns the root of the MMR: the node count bagged together
// with every peak hash
func (mmr *MerkleMountainRange) Root() externalapi.DomainHash {
	_, peakHashes := mmr.peaks()
	return bagPeaks(mmr.Size(), peakHashes)
}

// PrunedHashSet compacts the MMR into its peaks. Seeding a new MMR
// with the result gives the same root and the same future roots.
func (mmr *MerkleMountainRange) PrunedHashSet() *externalapi.PrunedHashSet {
	positions, peakHashes := mmr.peaks()
	return &externalapi.PrunedHashSet{
		NodeCount:     mmr.Size(),
		LeafCount:     mmr.LeafCount(),
		PeakPositions: positions,
		PeakHashes:    peakHashes,
	}
}

// ValidatePrunedHashSet checks that the given set is internally consistent
func ValidatePrunedHashSet(set *externalapi.PrunedHashSet) error {
	positions, err := PeakPositions(set.NodeCount)
	if err != nil {
		return err
	}
	if len(positions) != len(set.PeakPositions) || len(positions) != len(set.PeakHashes) {
		return errors.Errorf("pruned hash set with node count %d should have %d peaks but has %d positions and %d hashes",
			set.NodeCount, len(positions), len(set.PeakPositions), len(set.PeakHashes))
	}
	for i, position := range positions {
		if set.PeakPositions[i] != position {
			return errors.Errorf("unexpected peak position %d at index %d, expected %d",
				set.PeakPositions[i], i, position)
		}
	}
	leafCount, err := LeafCountFromNodeCount(set.NodeCount)
	if err != nil {
		return err
	}
	if leafCount != set.LeafCount {
		return errors.Errorf("pruned hash set with node count %d should have %d leaves but has %d",
			set.NodeCount, leafCount, set.LeafCount)
	}
	return nil
}
