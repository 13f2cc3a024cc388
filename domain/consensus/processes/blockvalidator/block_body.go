package blockvalidator

import (
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/ruleerrors"
	"github.com/mwnode/basenode/domain/consensus/utils/commitment"
	"github.com/mwnode/basenode/domain/consensus/utils/weight"
	"github.com/pkg/errors"
)

func (v *blockValidator) checkBlockWeight(block *externalapi.Block) error {
	// The genesis block may exceed the weight of regular blocks
	if block.Header.Height == 0 {
		return nil
	}
	bodyWeight := weight.BodyWeight(&block.Body)
	maxWeight := v.params.ConsensusConstants(block.Header.Height).MaxBlockWeight
	if bodyWeight > maxWeight {
		return errors.Wrapf(ruleerrors.ErrBlockTooLarge, "block weight %d exceeds the maximum of %d",
			bodyWeight, maxWeight)
	}
	return nil
}

func (v *blockValidator) checkBodyInContext(block *externalapi.Block) error {
	body := &block.Body
	height := block.Header.Height

	err := v.transactionValidator.CheckSortingAndDuplicates(body)
	if err != nil {
		return err
	}
	err = v.transactionValidator.CheckInputMaturity(body, height)
	if err != nil {
		return err
	}
	err = v.transactionValidator.CheckKernelLockHeights(body, height)
	if err != nil {
		return err
	}
	err = v.transactionValidator.CheckCutThrough(body)
	if err != nil {
		return err
	}
	err = v.transactionValidator.CheckInputsAreUtxos(body)
	if err != nil {
		return err
	}
	return v.transactionValidator.CheckNotDuplicateTxos(body)
}

func (v *blockValidator) totalCoinbase(block *externalapi.Block) uint64 {
	return v.params.BlockReward(block.Header.Height) + block.Body.TotalFees()
}

func hasCoinbaseOutput(block *externalapi.Block) bool {
	for _, output := range block.Body.Outputs {
		if output.Features.IsCoinbase() {
			return true
		}
	}
	return false
}

func (v *blockValidator) checkCoinbase(block *externalapi.Block) error {
	height := block.Header.Height
	totalCoinbase := v.totalCoinbase(block)

	var coinbaseExcesses []externalapi.Commitment
	for _, kernel := range block.Body.Kernels {
		if kernel.IsCoinbase() {
			coinbaseExcesses = append(coinbaseExcesses, kernel.Excess)
		}
	}
	if len(coinbaseExcesses) == 0 {
		// The genesis block mints nothing, so it needs no coinbase
		if height == 0 && totalCoinbase == 0 && !hasCoinbaseOutput(block) {
			return nil
		}
		return errors.Wrapf(ruleerrors.ErrNoCoinbase, "block has no coinbase kernel")
	}
	if len(coinbaseExcesses) > 1 {
		return errors.Wrapf(ruleerrors.ErrMoreThanOneCoinbase, "block has %d coinbase kernels", len(coinbaseExcesses))
	}

	minMaturity := height + v.params.ConsensusConstants(height).CoinbaseLockHeight
	var coinbaseOutputs []externalapi.Commitment
	for _, output := range block.Body.Outputs {
		if !output.Features.IsCoinbase() {
			continue
		}
		if output.Features.Maturity < minMaturity {
			return errors.Wrapf(ruleerrors.ErrInvalidCoinbaseMaturity, "coinbase output %s matures at "+
				"height %d, it has to be locked until height %d", output.Commitment, output.Features.Maturity, minMaturity)
		}
		coinbaseOutputs = append(coinbaseOutputs, output.Commitment)
	}
	if len(coinbaseOutputs) == 0 {
		return errors.Wrapf(ruleerrors.ErrNoCoinbase, "block has no coinbase output")
	}

	outputSum, err := commitment.Sum(coinbaseOutputs...)
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrInvalidCommitment, "coinbase outputs: %s", err)
	}
	excessSum, err := commitment.Sum(coinbaseExcesses...)
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrInvalidCommitment, "coinbase kernel: %s", err)
	}
	if !outputSum.Sub(excessSum).Equal(commitment.ValuePoint(totalCoinbase)) {
		return errors.Wrapf(ruleerrors.ErrInvalidCoinbase, "coinbase doesn't commit to %d", totalCoinbase)
	}
	return nil
}

func (v *blockValidator) checkAccountingBalance(block *externalapi.Block) error {
	err := v.transactionValidator.CheckKernelSum(&block.Body, &block.Header.TotalKernelOffset, v.totalCoinbase(block))
	if err != nil {
		return err
	}
	return v.transactionValidator.CheckScriptOffset(&block.Body, &block.Header.TotalScriptOffset)
}
