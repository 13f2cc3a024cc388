package model

import "github.com/mwnode/basenode/domain/consensus/model/externalapi"

// MmrCalculator replays a block on top of its parent's accumulated
// data. It returns the roots the block's header has to commit to along
// with the accumulated data of the block once applied.
type MmrCalculator interface {
	CalculateMmrRoots(block *externalapi.Block) (*MmrRoots, *externalapi.BlockAccumulatedData, error)
}
