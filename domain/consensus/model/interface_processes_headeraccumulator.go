package model

import "github.com/mwnode/basenode/domain/consensus/model/externalapi"

// HeaderAccumulator derives the accumulated data of a header from the
// accumulated data of its parent
type HeaderAccumulator interface {
	BuildAccumulatedData(parent *externalapi.ChainHeader, header *externalapi.BlockHeader,
		achievedDifficulty uint64, targetDifficulty uint64) (*externalapi.BlockHeaderAccumulatedData, error)
}
