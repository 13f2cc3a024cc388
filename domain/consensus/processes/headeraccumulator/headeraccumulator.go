package headeraccumulator

import (
	"github.com/holiman/uint256"
	"github.com/mwnode/basenode/domain/consensus/model"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/ruleerrors"
	"github.com/mwnode/basenode/domain/consensus/utils/commitment"
	"github.com/mwnode/basenode/domain/consensus/utils/consensushashing"
	"github.com/mwnode/basenode/domain/dagconfig"
	"github.com/pkg/errors"
)

type headerAccumulator struct {
	params *dagconfig.Params
}

// New instantiates a new HeaderAccumulator
func New(params *dagconfig.Params) model.HeaderAccumulator {
	return &headerAccumulator{params: params}
}

// BuildAccumulatedData adds the achieved difficulty of header to the
// running difficulty of its algorithm and the header's kernel offset to
// the running kernel offset of its parent
func (h *headerAccumulator) BuildAccumulatedData(parent *externalapi.ChainHeader, header *externalapi.BlockHeader,
	achievedDifficulty uint64, targetDifficulty uint64) (*externalapi.BlockHeaderAccumulatedData, error) {

	if !header.PrevHash.Equal(parent.Hash()) {
		return nil, errors.Wrapf(ruleerrors.ErrUnknownParent, "header at height %d builds on %s, not on %s",
			header.Height, header.PrevHash, parent.Hash())
	}
	if header.Height != parent.Height()+1 {
		return nil, errors.Wrapf(ruleerrors.ErrWrongHeight, "header at height %d builds on height %d",
			header.Height, parent.Height())
	}

	minDifficulty := h.params.MinDifficulty(header.Pow.Algorithm)
	if targetDifficulty < minDifficulty {
		targetDifficulty = minDifficulty
	}
	if achievedDifficulty < targetDifficulty {
		return nil, errors.Wrapf(ruleerrors.ErrPowTooLow, "%s difficulty achieved by header at height %d "+
			"is %d, below the target %d", header.Pow.Algorithm, header.Height, achievedDifficulty, targetDifficulty)
	}

	parentData := parent.AccumulatedData
	moneroDifficulty := new(uint256.Int).Set(parentData.AccumulatedMoneroDifficulty)
	sha3Difficulty := new(uint256.Int).Set(parentData.AccumulatedSha3Difficulty)
	achieved := uint256.NewInt(achievedDifficulty)
	switch header.Pow.Algorithm {
	case externalapi.PowAlgorithmMonero:
		moneroDifficulty.Add(moneroDifficulty, achieved)
	case externalapi.PowAlgorithmSha3:
		sha3Difficulty.Add(sha3Difficulty, achieved)
	default:
		return nil, errors.Errorf("unknown proof of work algorithm %d", header.Pow.Algorithm)
	}

	totalDifficulty, overflow := new(uint256.Int).MulOverflow(moneroDifficulty, sha3Difficulty)
	if overflow {
		return nil, errors.Errorf("total accumulated difficulty overflows at height %d", header.Height)
	}
	if totalDifficulty.Lt(parentData.TotalAccumulatedDifficulty) {
		return nil, errors.Wrapf(ruleerrors.ErrAccumulatedDifficultyDecreased,
			"total accumulated difficulty at height %d is %s, below %s", header.Height,
			totalDifficulty.ToBig(), parentData.TotalAccumulatedDifficulty.ToBig())
	}

	totalKernelOffset, err := commitment.AddScalars(parentData.TotalKernelOffset, header.TotalKernelOffset)
	if err != nil {
		return nil, errors.Wrapf(err, "kernel offset of header at height %d", header.Height)
	}

	return &externalapi.BlockHeaderAccumulatedData{
		Hash:                        *consensushashing.HeaderHash(header),
		TotalKernelOffset:           totalKernelOffset,
		AccumulatedMoneroDifficulty: moneroDifficulty,
		AccumulatedSha3Difficulty:   sha3Difficulty,
		TotalAccumulatedDifficulty:  totalDifficulty,
		AchievedDifficulty:          achievedDifficulty,
		TargetDifficulty:            targetDifficulty,
	}, nil
}
