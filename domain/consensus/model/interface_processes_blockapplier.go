package model

import "github.com/mwnode/basenode/domain/consensus/model/externalapi"

// BlockApplier appends a validated block to the tip of the chain
type BlockApplier interface {
	ApplyBlock(block *externalapi.Block, achievedDifficulty uint64, targetDifficulty uint64) (*externalapi.ChainBlock, error)
}
