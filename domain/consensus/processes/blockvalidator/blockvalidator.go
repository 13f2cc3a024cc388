package blockvalidator

import (
	"github.com/mwnode/basenode/domain/consensus/model"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/utils/consensushashing"
	"github.com/mwnode/basenode/domain/dagconfig"
	"github.com/mwnode/basenode/infrastructure/logger"
)

// blockValidator exposes a set of validation classes, after which
// it's possible to determine whether either a block is valid
type blockValidator struct {
	params *dagconfig.Params

	transactionValidator model.TransactionValidator
	mmrCalculator        model.MmrCalculator
}

// New instantiates a new BlockValidator
func New(params *dagconfig.Params,
	transactionValidator model.TransactionValidator,
	mmrCalculator model.MmrCalculator) model.BlockValidator {

	return &blockValidator{
		params:               params,
		transactionValidator: transactionValidator,
		mmrCalculator:        mmrCalculator,
	}
}

// Validate runs every consensus rule against block, in order, and
// returns the first violation
func (v *blockValidator) Validate(block *externalapi.Block) error {
	onEnd := logger.LogAndMeasureExecutionTime(log, "Validate")
	defer onEnd()

	err := v.validate(block)
	if err != nil {
		log.Warnf("Block %s at height %d failed validation: %s",
			consensushashing.BlockHash(block), block.Header.Height, err)
		return err
	}
	log.Debugf("Block %s at height %d is valid", consensushashing.BlockHash(block), block.Header.Height)
	return nil
}

func (v *blockValidator) validate(block *externalapi.Block) error {
	err := v.checkBlockWeight(block)
	if err != nil {
		return err
	}

	err = v.checkBodyInContext(block)
	if err != nil {
		return err
	}

	err = v.checkCoinbase(block)
	if err != nil {
		return err
	}

	err = v.checkAccountingBalance(block)
	if err != nil {
		return err
	}

	err = v.transactionValidator.CheckKernelSignatures(&block.Body)
	if err != nil {
		return err
	}

	return v.checkMmrRoots(block)
}
