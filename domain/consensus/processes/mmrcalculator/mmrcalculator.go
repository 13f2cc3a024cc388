package mmrcalculator

import (
	"github.com/mwnode/basenode/domain/chainstorage"
	"github.com/mwnode/basenode/domain/consensus/model"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/ruleerrors"
	"github.com/mwnode/basenode/domain/consensus/utils/commitment"
	"github.com/mwnode/basenode/domain/consensus/utils/consensushashing"
	"github.com/mwnode/basenode/domain/consensus/utils/mmr"
	"github.com/pkg/errors"
)

type mmrCalculator struct {
	backend chainstorage.BlockchainBackend
}

// New instantiates a new MmrCalculator
func New(backend chainstorage.BlockchainBackend) model.MmrCalculator {
	return &mmrCalculator{backend: backend}
}

// KernelMr returns the header root of a kernel MMR
func KernelMr(kernelMmr *mmr.MerkleMountainRange) externalapi.DomainHash {
	root := kernelMmr.Root()
	return mmr.LegacyRoot(&root)
}

// RangeProofMr returns the header root of a range proof MMR
func RangeProofMr(rangeProofMmr *mmr.MerkleMountainRange) externalapi.DomainHash {
	root := rangeProofMmr.Root()
	return mmr.LegacyRoot(&root)
}

// OutputMr returns the header root of an output MMR
func OutputMr(outputMmr *mmr.MutableMmr) externalapi.DomainHash {
	return outputMmr.Root()
}

// CalculateMmrRoots replays block on the accumulated data of its parent
func (c *mmrCalculator) CalculateMmrRoots(block *externalapi.Block) (
	*model.MmrRoots, *externalapi.BlockAccumulatedData, error) {

	parentData, err := c.backend.FetchBlockAccumulatedData(&block.Header.PrevHash)
	if err != nil {
		if chainstorage.IsNotFoundError(err) {
			return nil, nil, errors.Wrapf(ruleerrors.ErrUnknownParent, "no accumulated data for parent %s",
				block.Header.PrevHash)
		}
		return nil, nil, err
	}

	body := &block.Body
	kernelMmr := mmr.New(parentData.Kernels)
	for _, kernel := range body.Kernels {
		kernelMmr.Push(consensushashing.KernelHash(kernel))
	}

	outputMmr := mmr.NewMutable(parentData.Outputs, parentData.Deleted)
	rangeProofMmr := mmr.New(parentData.RangeProofs)
	for _, output := range body.Outputs {
		outputMmr.Push(consensushashing.OutputHash(output))
		rangeProofMmr.Push(consensushashing.RangeProofHash(output.RangeProof))
	}

	inputMmr := mmr.New(nil)
	for _, input := range body.Inputs {
		inputMmr.Push(consensushashing.InputHash(input))

		leafIndex, err := c.backend.FetchOutputPosition(&input.Commitment)
		if err != nil {
			if chainstorage.IsNotFoundError(err) {
				return nil, nil, errors.Wrapf(ruleerrors.ErrUnknownInput, "input %s", input.Commitment)
			}
			return nil, nil, err
		}
		err = outputMmr.Delete(leafIndex)
		if err != nil {
			return nil, nil, err
		}
	}

	totalKernelSum, totalUtxoSum, err := commitmentSums(parentData, body)
	if err != nil {
		return nil, nil, err
	}

	roots := &model.MmrRoots{
		KernelMr:      KernelMr(kernelMmr),
		KernelMmrSize: kernelMmr.LeafCount(),
		OutputMr:      OutputMr(outputMmr),
		OutputMmrSize: outputMmr.LeafCount(),
		RangeProofMr:  RangeProofMr(rangeProofMmr),
		InputMr:       inputMmr.Root(),
		WitnessMr:     externalapi.ZeroHash,
	}
	accumulatedData := &externalapi.BlockAccumulatedData{
		Kernels:        kernelMmr.PrunedHashSet(),
		Outputs:        outputMmr.PrunedHashSet(),
		RangeProofs:    rangeProofMmr.PrunedHashSet(),
		Deleted:        outputMmr.Deleted(),
		TotalKernelSum: totalKernelSum,
		TotalUtxoSum:   totalUtxoSum,
	}
	return roots, accumulatedData, nil
}

func commitmentSums(parentData *externalapi.BlockAccumulatedData, body *externalapi.AggregateBody) (
	totalKernelSum externalapi.Commitment, totalUtxoSum externalapi.Commitment, err error) {

	kernelSum, err := commitment.Sum(parentData.TotalKernelSum)
	if err != nil {
		return externalapi.Commitment{}, externalapi.Commitment{}, err
	}
	for _, kernel := range body.Kernels {
		excess, err := commitment.ParsePoint(&kernel.Excess)
		if err != nil {
			return externalapi.Commitment{}, externalapi.Commitment{},
				errors.Wrapf(ruleerrors.ErrInvalidCommitment, "kernel excess %s: %s", kernel.Excess, err)
		}
		kernelSum = kernelSum.Add(excess)
	}

	utxoSum, err := commitment.Sum(parentData.TotalUtxoSum)
	if err != nil {
		return externalapi.Commitment{}, externalapi.Commitment{}, err
	}
	for _, output := range body.Outputs {
		point, err := commitment.ParsePoint(&output.Commitment)
		if err != nil {
			return externalapi.Commitment{}, externalapi.Commitment{},
				errors.Wrapf(ruleerrors.ErrInvalidCommitment, "output %s: %s", output.Commitment, err)
		}
		utxoSum = utxoSum.Add(point)
	}
	for _, input := range body.Inputs {
		point, err := commitment.ParsePoint(&input.Commitment)
		if err != nil {
			return externalapi.Commitment{}, externalapi.Commitment{},
				errors.Wrapf(ruleerrors.ErrInvalidCommitment, "input %s: %s", input.Commitment, err)
		}
		utxoSum = utxoSum.Sub(point)
	}
	return kernelSum.Serialize(), utxoSum.Serialize(), nil
}
