package horizonsync

import (
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/ruleerrors"
	"github.com/mwnode/basenode/domain/consensus/utils/commitment"
	"github.com/pkg/errors"
)

const utxoSumBatchSize = 1000

// calculateUtxoSum adds up the commitments of every output that is
// unspent at the horizon
func (s *Synchronizer) calculateUtxoSum(horizonData *externalapi.BlockAccumulatedData) (*commitment.Point, error) {
	utxoSum := &commitment.Point{}
	size := s.horizonHeader.Header.OutputMmrSize
	for start := uint64(0); start < size; start += utxoSumBatchSize {
		end := start + utxoSumBatchSize
		if end > size {
			end = size
		}
		entries, err := s.backend.FetchOutputsByMmrPosition(start, end)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			isSpent := entry.LeafIndex <= uint64(^uint32(0)) && horizonData.Deleted.Contains(uint32(entry.LeafIndex))
			if isSpent || entry.IsPruned() {
				continue
			}
			point, err := commitment.ParsePoint(&entry.Output.Commitment)
			if err != nil {
				return nil, errors.Wrapf(ruleerrors.ErrInvalidCommitment, "output %d: %s", entry.LeafIndex, err)
			}
			utxoSum = utxoSum.Add(point)
		}
	}
	return utxoSum, nil
}

// checkChainBalance verifies that the unspent outputs at the horizon
// commit to the kernel excesses plus the total kernel offset and the
// coins emitted up to the horizon
func (s *Synchronizer) checkChainBalance(utxoSum *commitment.Point, kernelSum *externalapi.Commitment) error {
	kernelPoint, err := commitment.ParsePoint(kernelSum)
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrInvalidCommitment, "kernel sum: %s", err)
	}
	offsetPoint, err := commitment.BlindingPoint(&s.horizonHeader.AccumulatedData.TotalKernelOffset)
	if err != nil {
		return errors.Wrapf(ruleerrors.ErrChainBalanceMismatch, "total kernel offset: %s", err)
	}
	height := s.horizonHeader.Height()
	emission := s.params.TotalEmission(height)

	expected := kernelPoint.Add(offsetPoint).Add(commitment.ValuePoint(emission))
	if !utxoSum.Equal(expected) {
		return errors.Wrapf(ruleerrors.ErrChainBalanceMismatch,
			"unspent outputs at height %d sum to %s, expected %s for an emission of %d",
			height, utxoSum.Serialize(), expected.Serialize(), emission)
	}
	return nil
}
