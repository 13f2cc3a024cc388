package externalapi

import (
	"fmt"

	"github.com/holiman/uint256"
)

// ChainMetadata is the summary of the local chain state
type ChainMetadata struct {
	BestBlock             DomainHash
	ChainHeight           uint64
	AccumulatedWork       *uint256.Int
	EffectivePrunedHeight uint64
}

// Clone returns a clone of ChainMetadata
func (metadata *ChainMetadata) Clone() *ChainMetadata {
	accumulatedWork := new(uint256.Int)
	if metadata.AccumulatedWork != nil {
		accumulatedWork.Set(metadata.AccumulatedWork)
	}
	return &ChainMetadata{
		BestBlock:             metadata.BestBlock,
		ChainHeight:           metadata.ChainHeight,
		AccumulatedWork:       accumulatedWork,
		EffectivePrunedHeight: metadata.EffectivePrunedHeight,
	}
}

func (metadata *ChainMetadata) String() string {
	return fmt.Sprintf("height: %d, best block: %s, pruned height: %d, accumulated work: %s",
		metadata.ChainHeight, metadata.BestBlock, metadata.EffectivePrunedHeight, metadata.AccumulatedWork.ToBig())
}
