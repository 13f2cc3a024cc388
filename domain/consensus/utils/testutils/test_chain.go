package testutils

import (
	"testing"

	"github.com/mwnode/basenode/domain/chainstorage/ldbstore"
	"github.com/mwnode/basenode/domain/consensus/model"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/processes/blockapplier"
	"github.com/mwnode/basenode/domain/consensus/processes/blockvalidator"
	"github.com/mwnode/basenode/domain/consensus/processes/headeraccumulator"
	"github.com/mwnode/basenode/domain/consensus/processes/mmrcalculator"
	"github.com/mwnode/basenode/domain/consensus/processes/transactionvalidator"
	"github.com/mwnode/basenode/domain/consensus/utils/commitment"
	"github.com/mwnode/basenode/domain/dagconfig"
	"github.com/mwnode/basenode/infrastructure/db/database"
	"github.com/mwnode/basenode/infrastructure/db/database/ldb"
	"github.com/pkg/errors"
)

const blockInterval = 120

// TestChain is a chain store on a temporary database together with
// the processes that validate and extend it
type TestChain struct {
	Params *dagconfig.Params
	DB     database.Database
	Store  *ldbstore.ChainStore

	HeaderAccumulator    model.HeaderAccumulator
	MmrCalculator        model.MmrCalculator
	TransactionValidator model.TransactionValidator
	BlockValidator       model.BlockValidator
	BlockApplier         model.BlockApplier
}

// NewTestChain opens a chain holding only the genesis block of params
func NewTestChain(t *testing.T, params *dagconfig.Params, testName string) (tc *TestChain, teardownFunc func()) {
	db, err := ldb.NewLevelDB(t.TempDir(), 8)
	if err != nil {
		t.Fatalf("%s: NewLevelDB: %+v", testName, err)
	}
	store, err := ldbstore.New(db, params)
	if err != nil {
		t.Fatalf("%s: ldbstore.New: %+v", testName, err)
	}

	headerAccumulator := headeraccumulator.New(params)
	mmrCalculator := mmrcalculator.New(store)
	transactionValidator := transactionvalidator.New(store, params)
	tc = &TestChain{
		Params:               params,
		DB:                   db,
		Store:                store,
		HeaderAccumulator:    headerAccumulator,
		MmrCalculator:        mmrCalculator,
		TransactionValidator: transactionValidator,
		BlockValidator:       blockvalidator.New(params, transactionValidator, mmrCalculator),
		BlockApplier:         blockapplier.New(store, headerAccumulator, mmrCalculator),
	}
	return tc, func() {
		err := db.Close()
		if err != nil {
			t.Fatalf("%s: Close: %+v", testName, err)
		}
	}
}

// BuildBlock builds a valid block on top of the tip holding the given
// transactions and a coinbase paying the reward plus the fees. It
// returns the block along with the coinbase output.
func (tc *TestChain) BuildBlock(transactions ...*externalapi.Transaction) (
	*externalapi.Block, *OwnedOutput, error) {

	tip, err := tc.Store.FetchTipHeader()
	if err != nil {
		return nil, nil, err
	}
	height := tip.Height() + 1

	block := &externalapi.Block{
		Header: &externalapi.BlockHeader{
			Version:          1,
			Height:           height,
			PrevHash:         *tip.Hash(),
			TimestampSeconds: tip.Header.TimestampSeconds + blockInterval,
			Pow:              externalapi.ProofOfWork{Algorithm: externalapi.PowAlgorithmSha3},
		},
	}
	var offsets, scriptOffsets []externalapi.Scalar
	for _, transaction := range transactions {
		block.Body.Inputs = append(block.Body.Inputs, transaction.Body.Inputs...)
		block.Body.Outputs = append(block.Body.Outputs, transaction.Body.Outputs...)
		block.Body.Kernels = append(block.Body.Kernels, transaction.Body.Kernels...)
		offsets = append(offsets, transaction.Offset)
		scriptOffsets = append(scriptOffsets, transaction.ScriptOffset)
	}

	coinbaseValue := tc.Params.BlockReward(height) + block.Body.TotalFees()
	maturity := height + tc.Params.ConsensusConstants(height).CoinbaseLockHeight
	coinbase, coinbaseKernel, err := NewCoinbase(coinbaseValue, maturity)
	if err != nil {
		return nil, nil, err
	}
	block.Body.Outputs = append(block.Body.Outputs, coinbase.Output)
	block.Body.Kernels = append(block.Body.Kernels, coinbaseKernel)

	block.Header.TotalKernelOffset, err = commitment.AddScalars(offsets...)
	if err != nil {
		return nil, nil, err
	}
	scriptOffsetSum, err := commitment.AddScalars(scriptOffsets...)
	if err != nil {
		return nil, nil, err
	}
	block.Header.TotalScriptOffset, err = subtractScalars(scriptOffsetSum, coinbase.SenderOffsetKey)
	if err != nil {
		return nil, nil, err
	}

	err = tc.SealBlock(block)
	if err != nil {
		return nil, nil, err
	}
	return block, coinbase, nil
}

// SealBlock sorts the body of block and sets the MMR roots of its
// header to the ones it replays to
func (tc *TestChain) SealBlock(block *externalapi.Block) error {
	block.Body.Sort()
	roots, _, err := tc.MmrCalculator.CalculateMmrRoots(block)
	if err != nil {
		return err
	}
	roots.ApplyTo(block.Header)
	return nil
}

// AddBlock validates block and applies it with the minimal difficulty
// of its proof of work algorithm
func (tc *TestChain) AddBlock(block *externalapi.Block) (*externalapi.ChainBlock, error) {
	err := tc.BlockValidator.Validate(block)
	if err != nil {
		return nil, err
	}
	difficulty := tc.Params.MinDifficulty(block.Header.Pow.Algorithm)
	return tc.BlockApplier.ApplyBlock(block, difficulty, difficulty)
}

// MineBlocks adds blockCount blocks holding nothing but their coinbase.
// It returns the coinbase outputs.
func (tc *TestChain) MineBlocks(blockCount int) ([]*OwnedOutput, error) {
	coinbases := make([]*OwnedOutput, 0, blockCount)
	for i := 0; i < blockCount; i++ {
		block, coinbase, err := tc.BuildBlock()
		if err != nil {
			return nil, err
		}
		_, err = tc.AddBlock(block)
		if err != nil {
			return nil, err
		}
		coinbases = append(coinbases, coinbase)
	}
	return coinbases, nil
}

// MineUntilMature adds empty blocks until output can be spent in the
// next block
func (tc *TestChain) MineUntilMature(output *OwnedOutput) error {
	tip, err := tc.Store.FetchTipHeader()
	if err != nil {
		return err
	}
	if output.Output.Features.Maturity <= tip.Height()+1 {
		return nil
	}
	_, err = tc.MineBlocks(int(output.Output.Features.Maturity - tip.Height() - 1))
	return err
}

// SpendOutput adds a block holding a transaction that spends output into
// new outputs of the given values. The fee is whatever the values leave
// of the output's value.
func (tc *TestChain) SpendOutput(output *OwnedOutput, outputValues []uint64) (
	*externalapi.ChainBlock, []*OwnedOutput, error) {

	total := uint64(0)
	for _, value := range outputValues {
		total += value
	}
	if total > output.Value {
		return nil, nil, errors.Errorf("cannot spend %d out of an output of %d", total, output.Value)
	}
	err := tc.MineUntilMature(output)
	if err != nil {
		return nil, nil, err
	}
	transaction, outputs, err := NewTransaction([]*OwnedOutput{output}, outputValues, output.Value-total, 0)
	if err != nil {
		return nil, nil, err
	}
	block, _, err := tc.BuildBlock(transaction)
	if err != nil {
		return nil, nil, err
	}
	chainBlock, err := tc.AddBlock(block)
	if err != nil {
		return nil, nil, err
	}
	return chainBlock, outputs, nil
}

// MineChainWithSpend mines a block, spends its coinbase as soon as it
// matures and then mines trailingBlocks more blocks. It returns the spent
// coinbase along with the outputs of the spending transaction.
func (tc *TestChain) MineChainWithSpend(trailingBlocks int) (*OwnedOutput, []*OwnedOutput, error) {
	coinbases, err := tc.MineBlocks(1)
	if err != nil {
		return nil, nil, err
	}
	spent := coinbases[0]
	_, outputs, err := tc.SpendOutput(spent, []uint64{spent.Value / 2, spent.Value/2 - 10})
	if err != nil {
		return nil, nil, err
	}
	_, err = tc.MineBlocks(trailingBlocks)
	if err != nil {
		return nil, nil, err
	}
	return spent, outputs, nil
}
