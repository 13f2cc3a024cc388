package mmr

import (
	"math/bits"

	"github.com/pkg/errors"
)

// Positions are zero-based and follow post-order: every parent is
// appended right after its right child.

func isAllOnes(n uint64) bool {
	return n != 0 && n&(n+1) == 0
}

// nodeHeight returns the height of the node at pos, leaves being at
// height 0
func nodeHeight(pos uint64) uint64 {
	oneBased := pos + 1
	for !isAllOnes(oneBased) {
		oneBased = oneBased - (uint64(1) << (bits.Len64(oneBased) - 1)) + 1
	}
	return uint64(bits.Len64(oneBased) - 1)
}

// LeafIndexToPosition returns the node position of the leaf with the given index
func LeafIndexToPosition(leafIndex uint64) uint64 {
	return 2*leafIndex - uint64(bits.OnesCount64(leafIndex))
}

// NodeCountFromLeafCount returns the number of nodes of an MMR holding leafCount leaves
func NodeCountFromLeafCount(leafCount uint64) uint64 {
	return 2*leafCount - uint64(bits.OnesCount64(leafCount))
}

// PeakPositions returns the positions of the peaks of an MMR with the
// given node count, left to right
func PeakPositions(nodeCount uint64) ([]uint64, error) {
	if nodeCount == 0 {
		return []uint64{}, nil
	}
	peakSize := (uint64(1) << bits.Len64(nodeCount)) - 1
	for peakSize > nodeCount {
		peakSize >>= 1
	}

	peaks := make([]uint64, 0, bits.Len64(nodeCount))
	offset := uint64(0)
	remaining := nodeCount
	for peakSize != 0 {
		if peakSize <= remaining {
			offset += peakSize
			peaks = append(peaks, offset-1)
			remaining -= peakSize
		}
		peakSize >>= 1
	}
	if remaining != 0 {
		return nil, errors.Errorf("%d is not a valid MMR node count", nodeCount)
	}
	return peaks, nil
}

// LeafCountFromNodeCount returns the number of leaves of an MMR with the given node count
func LeafCountFromNodeCount(nodeCount uint64) (uint64, error) {
	peaks, err := PeakPositions(nodeCount)
	if err != nil {
		return 0, err
	}
	leafCount := uint64(0)
	for _, peak := range peaks {
		leafCount += uint64(1) << nodeHeight(peak)
	}
	return leafCount, nil
}
