package transactionvalidator

import (
	"bytes"

	"github.com/mwnode/basenode/domain/chainstorage"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

// CheckInputMaturity makes sure no input is spent before its maturity height
func (v *transactionValidator) CheckInputMaturity(body *externalapi.AggregateBody, height uint64) error {
	for _, input := range body.Inputs {
		if input.Features.Maturity > height {
			return errors.Wrapf(ruleerrors.ErrInputMaturity, "input %s matures at height %d, "+
				"it can't be spent at height %d", input.Commitment, input.Features.Maturity, height)
		}
	}
	return nil
}

// CheckKernelLockHeights makes sure no kernel is included before its lock height
func (v *transactionValidator) CheckKernelLockHeights(body *externalapi.AggregateBody, height uint64) error {
	for _, kernel := range body.Kernels {
		if kernel.LockHeight > height {
			return errors.Wrapf(ruleerrors.ErrInvalidKernelLockHeight, "kernel %s is locked until height %d, "+
				"it can't be included at height %d", kernel.Excess, kernel.LockHeight, height)
		}
	}
	return nil
}

// CheckInputsAreUtxos makes sure every input spends an unspent output
// of the chain carrying the same features
func (v *transactionValidator) CheckInputsAreUtxos(body *externalapi.AggregateBody) error {
	for _, input := range body.Inputs {
		entry, err := v.backend.FetchUnspentOutput(&input.Commitment)
		if err != nil {
			if errors.Is(err, chainstorage.ErrOutputSpent) {
				return errors.Wrapf(ruleerrors.ErrInputSpent, "input %s", input.Commitment)
			}
			if chainstorage.IsNotFoundError(err) {
				return errors.Wrapf(ruleerrors.ErrUnknownInput, "input %s", input.Commitment)
			}
			return err
		}
		if !featuresEqual(&input.Features, &entry.Output.Features) {
			return errors.Wrapf(ruleerrors.ErrInputFeaturesMismatch, "input %s", input.Commitment)
		}
	}
	return nil
}

func featuresEqual(a, b *externalapi.OutputFeatures) bool {
	return a.Flags == b.Flags && a.Maturity == b.Maturity && bytes.Equal(a.Metadata, b.Metadata)
}

// CheckNotDuplicateTxos makes sure no output commitment of body was
// ever seen by the chain
func (v *transactionValidator) CheckNotDuplicateTxos(body *externalapi.AggregateBody) error {
	for _, output := range body.Outputs {
		leafIndex, err := v.backend.FetchOutputPosition(&output.Commitment)
		if err == nil {
			return errors.Wrapf(ruleerrors.ErrDuplicateTxo, "output %s is already at output MMR leaf %d",
				output.Commitment, leafIndex)
		}
		if !chainstorage.IsNotFoundError(err) {
			return err
		}
	}
	return nil
}
