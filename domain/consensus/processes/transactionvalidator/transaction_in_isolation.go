package transactionvalidator

import (
	"bytes"
	"runtime"

	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/ruleerrors"
	"github.com/mwnode/basenode/domain/consensus/utils/commitment"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// CheckSortingAndDuplicates makes sure inputs and outputs are strictly
// ascending by commitment and kernels strictly ascending by excess
func (v *transactionValidator) CheckSortingAndDuplicates(body *externalapi.AggregateBody) error {
	for i := 1; i < len(body.Inputs); i++ {
		if bytes.Compare(body.Inputs[i-1].Commitment[:], body.Inputs[i].Commitment[:]) >= 0 {
			return errors.Wrapf(ruleerrors.ErrUnsortedOrDuplicateInputs, "input %d (%s) isn't above input %d",
				i, body.Inputs[i].Commitment, i-1)
		}
	}
	for i := 1; i < len(body.Outputs); i++ {
		if bytes.Compare(body.Outputs[i-1].Commitment[:], body.Outputs[i].Commitment[:]) >= 0 {
			return errors.Wrapf(ruleerrors.ErrUnsortedOrDuplicateOutputs, "output %d (%s) isn't above output %d",
				i, body.Outputs[i].Commitment, i-1)
		}
	}
	for i := 1; i < len(body.Kernels); i++ {
		if bytes.Compare(body.Kernels[i-1].Excess[:], body.Kernels[i].Excess[:]) >= 0 {
			return errors.Wrapf(ruleerrors.ErrUnsortedOrDuplicateKernels, "kernel %d (%s) isn't above kernel %d",
				i, body.Kernels[i].Excess, i-1)
		}
	}
	return nil
}

// CheckCutThrough makes sure no output of body is spent by one of its inputs
func (v *transactionValidator) CheckCutThrough(body *externalapi.AggregateBody) error {
	spent := make(map[externalapi.Commitment]struct{}, len(body.Inputs))
	for _, input := range body.Inputs {
		spent[input.Commitment] = struct{}{}
	}
	for _, output := range body.Outputs {
		if _, ok := spent[output.Commitment]; ok {
			return errors.Wrapf(ruleerrors.ErrNoCutThrough, "output %s is also spent", output.Commitment)
		}
	}
	return nil
}

// CheckKernelSum checks that
// Σoutputs - Σinputs + fees·H == Σexcess + offset·G + totalCoinbase·H
// totalCoinbase is zero for transactions and the block reward plus the
// fees for blocks.
func (v *transactionValidator) CheckKernelSum(body *externalapi.AggregateBody, offset *externalapi.Scalar,
	totalCoinbase uint64) error {

	outputs := make([]externalapi.Commitment, len(body.Outputs))
	for i, output := range body.Outputs {
		outputs[i] = output.Commitment
	}
	inputs := make([]externalapi.Commitment, len(body.Inputs))
	for i, input := range body.Inputs {
		inputs[i] = input.Commitment
	}
	excesses := make([]externalapi.Commitment, len(body.Kernels))
	for i, kernel := range body.Kernels {
		excesses[i] = kernel.Excess
	}

	outputSum, err := commitment.Sum(outputs...)
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrInvalidCommitment, "outputs: %s", err)
	}
	inputSum, err := commitment.Sum(inputs...)
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrInvalidCommitment, "inputs: %s", err)
	}
	excessSum, err := commitment.Sum(excesses...)
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrInvalidCommitment, "kernel excesses: %s", err)
	}
	offsetPoint, err := commitment.BlindingPoint(offset)
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrKernelSumMismatch, "offset: %s", err)
	}

	left := outputSum.Sub(inputSum).Add(commitment.ValuePoint(body.TotalFees()))
	right := excessSum.Add(offsetPoint).Add(commitment.ValuePoint(totalCoinbase))
	if !left.Equal(right) {
		return errors.Wrapf(ruleerrors.ErrKernelSumMismatch, "commitments sum to %s, kernels to %s",
			left.Serialize(), right.Serialize())
	}
	return nil
}

// CheckScriptOffset checks that
// ΣinputScriptKeys - ΣoutputSenderOffsetKeys == scriptOffset·G
func (v *transactionValidator) CheckScriptOffset(body *externalapi.AggregateBody,
	scriptOffset *externalapi.Scalar) error {

	scriptKeys := make([]externalapi.Commitment, len(body.Inputs))
	for i, input := range body.Inputs {
		scriptKeys[i] = input.ScriptPublicKey
	}
	senderOffsetKeys := make([]externalapi.Commitment, len(body.Outputs))
	for i, output := range body.Outputs {
		senderOffsetKeys[i] = output.SenderOffsetPublicKey
	}

	scriptKeySum, err := commitment.Sum(scriptKeys...)
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrInvalidCommitment, "script keys: %s", err)
	}
	senderOffsetKeySum, err := commitment.Sum(senderOffsetKeys...)
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrInvalidCommitment, "sender offset keys: %s", err)
	}
	offsetPoint, err := commitment.BlindingPoint(scriptOffset)
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrScriptOffsetMismatch, "script offset: %s", err)
	}
	if !scriptKeySum.Sub(senderOffsetKeySum).Equal(offsetPoint) {
		return errors.Wrapf(ruleerrors.ErrScriptOffsetMismatch, "script offset %s", scriptOffset)
	}
	return nil
}

// CheckKernelSignatures verifies the excess signature of every kernel,
// spreading the work over all CPUs
func (v *transactionValidator) CheckKernelSignatures(body *externalapi.AggregateBody) error {
	group := errgroup.Group{}
	group.SetLimit(runtime.NumCPU())
	for i, kernel := range body.Kernels {
		i, kernel := i, kernel
		group.Go(func() error {
			err := commitment.VerifyKernelSignature(kernel)
			if err != nil {
				return errors.Wrapf(ruleerrors.ErrInvalidKernelSignature, "kernel %d: %s", i, err)
			}
			return nil
		})
	}
	return group.Wait()
}
