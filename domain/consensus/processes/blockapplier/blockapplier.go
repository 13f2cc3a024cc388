package blockapplier

import (
	"github.com/mwnode/basenode/domain/chainstorage"
	"github.com/mwnode/basenode/domain/consensus/model"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/ruleerrors"
	"github.com/mwnode/basenode/infrastructure/logger"
	"github.com/pkg/errors"
)

type blockApplier struct {
	backend           chainstorage.BlockchainBackend
	headerAccumulator model.HeaderAccumulator
	mmrCalculator     model.MmrCalculator
}

// New instantiates a new BlockApplier
func New(backend chainstorage.BlockchainBackend,
	headerAccumulator model.HeaderAccumulator,
	mmrCalculator model.MmrCalculator) model.BlockApplier {

	return &blockApplier{
		backend:           backend,
		headerAccumulator: headerAccumulator,
		mmrCalculator:     mmrCalculator,
	}
}

// ApplyBlock appends block to the tip of the chain. The block is
// expected to have passed validation.
func (a *blockApplier) ApplyBlock(block *externalapi.Block, achievedDifficulty uint64,
	targetDifficulty uint64) (*externalapi.ChainBlock, error) {

	onEnd := logger.LogAndMeasureExecutionTime(log, "ApplyBlock")
	defer onEnd()

	tip, err := a.backend.FetchTipHeader()
	if err != nil {
		return nil, err
	}
	if !block.Header.PrevHash.Equal(tip.Hash()) {
		return nil, errors.Wrapf(ruleerrors.ErrUnknownParent, "block at height %d builds on %s "+
			"while the tip is %s", block.Header.Height, block.Header.PrevHash, tip.Hash())
	}

	headerAccumulatedData, err := a.headerAccumulator.BuildAccumulatedData(
		tip, block.Header, achievedDifficulty, targetDifficulty)
	if err != nil {
		return nil, err
	}
	_, blockAccumulatedData, err := a.mmrCalculator.CalculateMmrRoots(block)
	if err != nil {
		return nil, err
	}

	chainBlock := &externalapi.ChainBlock{
		AccumulatedData: headerAccumulatedData,
		Block:           block,
	}
	err = a.commitBlock(chainBlock, blockAccumulatedData)
	if err != nil {
		return nil, err
	}

	log.Infof("Applied block %s at height %d (%d inputs, %d outputs, %d kernels)", chainBlock.Hash(),
		chainBlock.Height(), len(block.Body.Inputs), len(block.Body.Outputs), len(block.Body.Kernels))
	return chainBlock, nil
}

func (a *blockApplier) commitBlock(chainBlock *externalapi.ChainBlock,
	blockAccumulatedData *externalapi.BlockAccumulatedData) error {

	tx, err := a.backend.WriteTransaction()
	if err != nil {
		return err
	}
	defer tx.RollbackUnlessClosed()

	hash := chainBlock.Hash()
	block := chainBlock.Block
	err = tx.InsertChainHeader(chainBlock.ToChainHeader())
	if err != nil {
		return err
	}
	for _, kernel := range block.Body.Kernels {
		_, err := tx.InsertKernel(kernel, hash)
		if err != nil {
			return err
		}
	}
	for _, output := range block.Body.Outputs {
		_, err := tx.InsertOutput(output, hash, block.Header.Height)
		if err != nil {
			return err
		}
	}
	err = tx.SetBlockAccumulatedData(hash, blockAccumulatedData)
	if err != nil {
		return err
	}

	metadata, err := a.backend.FetchChainMetadata()
	if err != nil {
		return err
	}
	err = tx.SetChainMetadata(&externalapi.ChainMetadata{
		BestBlock:             *hash,
		ChainHeight:           block.Header.Height,
		AccumulatedWork:       chainBlock.AccumulatedData.TotalAccumulatedDifficulty,
		EffectivePrunedHeight: metadata.EffectivePrunedHeight,
	})
	if err != nil {
		return err
	}
	return tx.Commit()
}
