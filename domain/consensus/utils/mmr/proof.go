package mmr

import (
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// MerkleProof proves that a leaf is included in an MMR of a given size
type MerkleProof struct {
	MmrSize uint64
	Path    []externalapi.DomainHash
	Peaks   []externalapi.DomainHash
}

// Proof builds an inclusion proof for the leaf with the given index.
// Every node on the path to the leaf's peak must be unpruned.
func (mmr *MerkleMountainRange) Proof(leafIndex uint64) (*MerkleProof, error) {
	if leafIndex >= mmr.LeafCount() {
		return nil, errors.Errorf("leaf index %d is out of range of an MMR with %d leaves",
			leafIndex, mmr.LeafCount())
	}
	peakPositions, peakHashes := mmr.peaks()
	isPeak := make(map[uint64]struct{}, len(peakPositions))
	for _, peak := range peakPositions {
		isPeak[peak] = struct{}{}
	}

	position := LeafIndexToPosition(leafIndex)
	if _, err := mmr.get(position); err != nil {
		return nil, err
	}
	path := make([]externalapi.DomainHash, 0)
	height := uint64(0)
	for {
		if _, ok := isPeak[position]; ok {
			break
		}
		siblingPosition, parentPosition := family(position, height)
		sibling, err := mmr.get(siblingPosition)
		if err != nil {
			return nil, err
		}
		path = append(path, *sibling)
		position = parentPosition
		height++
	}
	return &MerkleProof{MmrSize: mmr.Size(), Path: path, Peaks: peakHashes}, nil
}

func family(position uint64, height uint64) (sibling uint64, parent uint64) {
	offset := uint64(1) << (height + 1)
	if nodeHeight(position+1) > height {
		return position + 1 - offset, position + 1
	}
	return position + offset - 1, position + offset
}

// VerifyProof checks that leafHash is the leaf at leafIndex of the MMR with the given root
func VerifyProof(root *externalapi.DomainHash, proof *MerkleProof, leafIndex uint64,
	leafHash *externalapi.DomainHash) error {

	peakPositions, err := PeakPositions(proof.MmrSize)
	if err != nil {
		return err
	}
	if len(peakPositions) != len(proof.Peaks) {
		return errors.Errorf("proof has %d peaks, expected %d", len(proof.Peaks), len(peakPositions))
	}
	bagged := bagPeaks(proof.MmrSize, proof.Peaks)
	if !bagged.Equal(root) {
		return errors.Errorf("proof peaks do not bag to root %s", root)
	}

	position := LeafIndexToPosition(leafIndex)
	hash := *leafHash
	for height, sibling := range proof.Path {
		siblingPosition, parentPosition := family(position, uint64(height))
		if siblingPosition < position {
			hash = hashParent(&sibling, &hash)
		} else {
			hash = hashParent(&hash, &sibling)
		}
		position = parentPosition
	}

	for i, peak := range peakPositions {
		if peak == position {
			if !proof.Peaks[i].Equal(&hash) {
				return errors.Errorf("leaf %d does not hash up to its peak", leafIndex)
			}
			return nil
		}
	}
	return errors.Errorf("leaf %d does not lead to a peak of an MMR of size %d", leafIndex, proof.MmrSize)
}
