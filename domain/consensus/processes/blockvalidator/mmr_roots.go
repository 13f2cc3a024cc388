package blockvalidator

import (
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

func (v *blockValidator) checkMmrRoots(block *externalapi.Block) error {
	header := block.Header
	if !header.WitnessMr.IsZero() {
		return errors.Wrapf(ruleerrors.ErrInvalidWitnessMr, "witness root %s is reserved and must be zero",
			header.WitnessMr)
	}

	roots, _, err := v.mmrCalculator.CalculateMmrRoots(block)
	if err != nil {
		return err
	}

	if !header.InputMr.Equal(&roots.InputMr) {
		log.Warnf("Input root %s of block at height %d doesn't match the calculated %s",
			header.InputMr, header.Height, roots.InputMr)
		return ruleerrors.NewErrMismatchedMmrRoots(externalapi.MmrTreeInput)
	}
	if !header.KernelMr.Equal(&roots.KernelMr) {
		log.Warnf("Kernel root %s of block at height %d doesn't match the calculated %s",
			header.KernelMr, header.Height, roots.KernelMr)
		return ruleerrors.NewErrMismatchedMmrRoots(externalapi.MmrTreeKernel)
	}
	if header.KernelMmrSize != roots.KernelMmrSize {
		return ruleerrors.NewErrMismatchedMmrSize(externalapi.MmrTreeKernel, roots.KernelMmrSize, header.KernelMmrSize)
	}
	if !header.OutputMr.Equal(&roots.OutputMr) {
		log.Warnf("Output root %s of block at height %d doesn't match the calculated %s",
			header.OutputMr, header.Height, roots.OutputMr)
		return ruleerrors.NewErrMismatchedMmrRoots(externalapi.MmrTreeUtxo)
	}
	if header.OutputMmrSize != roots.OutputMmrSize {
		return ruleerrors.NewErrMismatchedMmrSize(externalapi.MmrTreeUtxo, roots.OutputMmrSize, header.OutputMmrSize)
	}
	if !header.RangeProofMr.Equal(&roots.RangeProofMr) {
		log.Warnf("Range proof root %s of block at height %d doesn't match the calculated %s",
			header.RangeProofMr, header.Height, roots.RangeProofMr)
		return ruleerrors.NewErrMismatchedMmrRoots(externalapi.MmrTreeRangeProof)
	}
	return nil
}
