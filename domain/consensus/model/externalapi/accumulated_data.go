package externalapi

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/holiman/uint256"
)

// PrunedHashSet is the compacted state of a merkle mountain range: the
// node count together with the positions and hashes of its peaks. It
// holds everything needed to compute the root and to keep appending.
type PrunedHashSet struct {
	NodeCount     uint64
	LeafCount     uint64
	PeakPositions []uint64
	PeakHashes    []DomainHash
}

// Clone returns a clone of PrunedHashSet
func (set *PrunedHashSet) Clone() *PrunedHashSet {
	if set == nil {
		return nil
	}
	positions := make([]uint64, len(set.PeakPositions))
	copy(positions, set.PeakPositions)
	hashes := make([]DomainHash, len(set.PeakHashes))
	copy(hashes, set.PeakHashes)
	return &PrunedHashSet{
		NodeCount:     set.NodeCount,
		LeafCount:     set.LeafCount,
		PeakPositions: positions,
		PeakHashes:    hashes,
	}
}

// BlockHeaderAccumulatedData is the state derived from a header and all
// of its ancestors
type BlockHeaderAccumulatedData struct {
	Hash                        DomainHash
	TotalKernelOffset           Scalar
	AccumulatedMoneroDifficulty *uint256.Int
	AccumulatedSha3Difficulty   *uint256.Int
	TotalAccumulatedDifficulty  *uint256.Int
	AchievedDifficulty          uint64
	TargetDifficulty            uint64
}

// BlockAccumulatedData is the prunable ledger snapshot at a block: the
// three MMR states after absorbing the block, the outputs spent as of
// the block and the running commitment sums.
type BlockAccumulatedData struct {
	Kernels        *PrunedHashSet
	Outputs        *PrunedHashSet
	RangeProofs    *PrunedHashSet
	Deleted        *roaring.Bitmap
	TotalKernelSum Commitment
	TotalUtxoSum   Commitment
}

// PrunedHashSet returns the pruned hash set of the given tree
func (data *BlockAccumulatedData) PrunedHashSet(tree MmrTree) *PrunedHashSet {
	switch tree {
	case MmrTreeKernel:
		return data.Kernels
	case MmrTreeUtxo:
		return data.Outputs
	case MmrTreeRangeProof:
		return data.RangeProofs
	}
	return nil
}

// Clone returns a deep clone of BlockAccumulatedData
func (data *BlockAccumulatedData) Clone() *BlockAccumulatedData {
	deleted := roaring.New()
	if data.Deleted != nil {
		deleted = data.Deleted.Clone()
	}
	return &BlockAccumulatedData{
		Kernels:        data.Kernels.Clone(),
		Outputs:        data.Outputs.Clone(),
		RangeProofs:    data.RangeProofs.Clone(),
		Deleted:        deleted,
		TotalKernelSum: data.TotalKernelSum,
		TotalUtxoSum:   data.TotalUtxoSum,
	}
}

// ChainHeader is a header together with its accumulated data
type ChainHeader struct {
	Header          *BlockHeader
	AccumulatedData *BlockHeaderAccumulatedData
}

// Height returns the height of the header
func (chainHeader *ChainHeader) Height() uint64 {
	return chainHeader.Header.Height
}

// Hash returns the stored header hash
func (chainHeader *ChainHeader) Hash() *DomainHash {
	return &chainHeader.AccumulatedData.Hash
}

// ChainBlock is a full block together with its header accumulated data
type ChainBlock struct {
	AccumulatedData *BlockHeaderAccumulatedData
	Block           *Block
}

// Height returns the height of the block
func (chainBlock *ChainBlock) Height() uint64 {
	return chainBlock.Block.Header.Height
}

// Hash returns the stored block hash
func (chainBlock *ChainBlock) Hash() *DomainHash {
	return &chainBlock.AccumulatedData.Hash
}

// ToChainHeader drops the block body
func (chainBlock *ChainBlock) ToChainHeader() *ChainHeader {
	return &ChainHeader{Header: chainBlock.Block.Header, AccumulatedData: chainBlock.AccumulatedData}
}
