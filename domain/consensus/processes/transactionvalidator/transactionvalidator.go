package transactionvalidator

import (
	"github.com/mwnode/basenode/domain/chainstorage"
	"github.com/mwnode/basenode/domain/consensus/model"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/ruleerrors"
	"github.com/mwnode/basenode/domain/consensus/utils/weight"
	"github.com/mwnode/basenode/domain/dagconfig"
	"github.com/pkg/errors"
)

// transactionValidator exposes a set of validation classes, after which
// it's possible to determine whether either a transaction is valid
type transactionValidator struct {
	backend chainstorage.BlockchainBackend
	params  *dagconfig.Params
}

// New instantiates a new TransactionValidator
func New(backend chainstorage.BlockchainBackend, params *dagconfig.Params) model.TransactionValidator {
	return &transactionValidator{
		backend: backend,
		params:  params,
	}
}

// ValidateTransaction validates a transaction for inclusion in the
// block following tipHeight
func (v *transactionValidator) ValidateTransaction(transaction *externalapi.Transaction, tipHeight uint64) error {
	body := &transaction.Body
	height := tipHeight + 1

	err := v.checkNoCoinbase(body)
	if err != nil {
		return err
	}

	bodyWeight := weight.BodyWeight(body)
	maxWeight := v.params.ConsensusConstants(height).MaxBlockWeight
	if bodyWeight > maxWeight {
		return errors.Wrapf(ruleerrors.ErrBlockTooLarge, "transaction weight %d exceeds the maximum of %d",
			bodyWeight, maxWeight)
	}

	err = v.CheckSortingAndDuplicates(body)
	if err != nil {
		return err
	}
	err = v.CheckCutThrough(body)
	if err != nil {
		return err
	}
	err = v.CheckKernelSum(body, &transaction.Offset, 0)
	if err != nil {
		return err
	}
	err = v.CheckScriptOffset(body, &transaction.ScriptOffset)
	if err != nil {
		return err
	}
	err = v.CheckKernelSignatures(body)
	if err != nil {
		return err
	}

	err = v.CheckInputMaturity(body, height)
	if err != nil {
		return err
	}
	err = v.CheckKernelLockHeights(body, height)
	if err != nil {
		return err
	}
	err = v.CheckInputsAreUtxos(body)
	if err != nil {
		return err
	}
	return v.CheckNotDuplicateTxos(body)
}

func (v *transactionValidator) checkNoCoinbase(body *externalapi.AggregateBody) error {
	for _, kernel := range body.Kernels {
		if kernel.IsCoinbase() {
			return errors.Wrapf(ruleerrors.ErrCoinbaseInTransaction, "kernel %s", kernel.Excess)
		}
	}
	for _, output := range body.Outputs {
		if output.Features.IsCoinbase() {
			return errors.Wrapf(ruleerrors.ErrCoinbaseInTransaction, "output %s", output.Commitment)
		}
	}
	return nil
}
