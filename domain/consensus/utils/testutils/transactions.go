package testutils

import (
	"crypto/rand"

	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/utils/commitment"
	"github.com/pkg/errors"
)

// OwnedOutput is an output together with the secrets needed to spend it
type OwnedOutput struct {
	Output          *externalapi.TransactionOutput
	Value           uint64
	Blinding        externalapi.Scalar
	ScriptKey       externalapi.Scalar
	SenderOffsetKey externalapi.Scalar
}

// Input returns an input spending the output
func (o *OwnedOutput) Input() (*externalapi.TransactionInput, error) {
	scriptPublicKey, err := commitment.PublicKeyFromScalar(&o.ScriptKey)
	if err != nil {
		return nil, err
	}
	return &externalapi.TransactionInput{
		Features:        o.Output.Features.Clone(),
		Commitment:      o.Output.Commitment,
		ScriptPublicKey: scriptPublicKey,
	}, nil
}

func newOwnedOutput(value uint64, features externalapi.OutputFeatures) (*OwnedOutput, error) {
	blinding, err := commitment.RandomScalar()
	if err != nil {
		return nil, err
	}
	scriptKey, err := commitment.RandomScalar()
	if err != nil {
		return nil, err
	}
	senderOffsetKey, err := commitment.RandomScalar()
	if err != nil {
		return nil, err
	}
	outputCommitment, err := commitment.Commit(value, &blinding)
	if err != nil {
		return nil, err
	}
	senderOffsetPublicKey, err := commitment.PublicKeyFromScalar(&senderOffsetKey)
	if err != nil {
		return nil, err
	}
	rangeProof := make([]byte, 32)
	_, err = rand.Read(rangeProof)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &OwnedOutput{
		Output: &externalapi.TransactionOutput{
			Features:              features,
			Commitment:            outputCommitment,
			RangeProof:            rangeProof,
			SenderOffsetPublicKey: senderOffsetPublicKey,
		},
		Value:           value,
		Blinding:        blinding,
		ScriptKey:       scriptKey,
		SenderOffsetKey: senderOffsetKey,
	}, nil
}

// subtractScalars returns minuend - Σsubtrahends
func subtractScalars(minuend externalapi.Scalar, subtrahends ...externalapi.Scalar) (externalapi.Scalar, error) {
	terms := []externalapi.Scalar{minuend}
	for i := range subtrahends {
		negated, err := commitment.NegateScalar(&subtrahends[i])
		if err != nil {
			return externalapi.Scalar{}, err
		}
		terms = append(terms, negated)
	}
	return commitment.AddScalars(terms...)
}

func newKernel(excessKey *externalapi.Scalar, features externalapi.KernelFeatures, fee uint64,
	lockHeight uint64) (*externalapi.TransactionKernel, error) {

	excess, err := commitment.PublicKeyFromScalar(excessKey)
	if err != nil {
		return nil, err
	}
	signature, err := commitment.SignKernel(excessKey, features, fee, lockHeight)
	if err != nil {
		return nil, err
	}
	return &externalapi.TransactionKernel{
		Features:   features,
		Fee:        fee,
		LockHeight: lockHeight,
		Excess:     excess,
		ExcessSig:  signature,
	}, nil
}

// NewTransaction builds a balanced, signed and sorted transaction
// spending inputs into outputs of the given values. The inputs have to
// add up to the outputs plus the fee.
func NewTransaction(inputs []*OwnedOutput, outputValues []uint64, fee uint64,
	lockHeight uint64) (*externalapi.Transaction, []*OwnedOutput, error) {

	inputTotal := uint64(0)
	for _, input := range inputs {
		inputTotal += input.Value
	}
	outputTotal := fee
	for _, value := range outputValues {
		outputTotal += value
	}
	if inputTotal != outputTotal {
		return nil, nil, errors.Errorf("inputs add up to %d while outputs and fee add up to %d",
			inputTotal, outputTotal)
	}

	transaction := &externalapi.Transaction{}
	var inputBlindings, inputScriptKeys []externalapi.Scalar
	for _, owned := range inputs {
		input, err := owned.Input()
		if err != nil {
			return nil, nil, err
		}
		transaction.Body.Inputs = append(transaction.Body.Inputs, input)
		inputBlindings = append(inputBlindings, owned.Blinding)
		inputScriptKeys = append(inputScriptKeys, owned.ScriptKey)
	}

	outputs := make([]*OwnedOutput, 0, len(outputValues))
	var outputBlindings, senderOffsetKeys []externalapi.Scalar
	for _, value := range outputValues {
		owned, err := newOwnedOutput(value, externalapi.OutputFeatures{})
		if err != nil {
			return nil, nil, err
		}
		outputs = append(outputs, owned)
		transaction.Body.Outputs = append(transaction.Body.Outputs, owned.Output)
		outputBlindings = append(outputBlindings, owned.Blinding)
		senderOffsetKeys = append(senderOffsetKeys, owned.SenderOffsetKey)
	}

	offset, err := commitment.RandomScalar()
	if err != nil {
		return nil, nil, err
	}
	outputBlindingSum, err := commitment.AddScalars(outputBlindings...)
	if err != nil {
		return nil, nil, err
	}
	excessKey, err := subtractScalars(outputBlindingSum, append(inputBlindings, offset)...)
	if err != nil {
		return nil, nil, err
	}
	kernel, err := newKernel(&excessKey, 0, fee, lockHeight)
	if err != nil {
		return nil, nil, err
	}
	transaction.Body.Kernels = []*externalapi.TransactionKernel{kernel}

	inputScriptKeySum, err := commitment.AddScalars(inputScriptKeys...)
	if err != nil {
		return nil, nil, err
	}
	scriptOffset, err := subtractScalars(inputScriptKeySum, senderOffsetKeys...)
	if err != nil {
		return nil, nil, err
	}

	transaction.Offset = offset
	transaction.ScriptOffset = scriptOffset
	transaction.Body.Sort()
	return transaction, outputs, nil
}

// NewCoinbase builds a coinbase output of the given value locked until
// maturity, along with its kernel
func NewCoinbase(value uint64, maturity uint64) (*OwnedOutput, *externalapi.TransactionKernel, error) {
	owned, err := newOwnedOutput(value, externalapi.OutputFeatures{
		Flags:    externalapi.OutputFlagCoinbase,
		Maturity: maturity,
	})
	if err != nil {
		return nil, nil, err
	}
	kernel, err := newKernel(&owned.Blinding, externalapi.KernelFeatureCoinbase, 0, 0)
	if err != nil {
		return nil, nil, err
	}
	return owned, kernel, nil
}
