package model

import (
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
)

// BlockValidator exposes a set of validation classes, after which
// it's possible to determine whether a block is valid
type BlockValidator interface {
	Validate(block *externalapi.Block) error
}
