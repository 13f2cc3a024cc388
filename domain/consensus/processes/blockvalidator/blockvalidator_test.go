package blockvalidator_test

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/ruleerrors"
	"github.com/mwnode/basenode/domain/consensus/utils/commitment"
	"github.com/mwnode/basenode/domain/consensus/utils/testutils"
	"github.com/mwnode/basenode/domain/dagconfig"
	"github.com/pkg/errors"
)

// prepareChainWithSpendableOutput mines blockCount blocks and returns
// the coinbase of the first one, which is spendable in the next block
func prepareChainWithSpendableOutput(t *testing.T, testName string, blockCount int) (
	tc *testutils.TestChain, spendable *testutils.OwnedOutput, teardown func()) {

	tc, teardown = testutils.NewTestChain(t, &dagconfig.SimnetParams, testName)
	coinbases, err := tc.MineBlocks(blockCount)
	if err != nil {
		teardown()
		t.Fatalf("%s: MineBlocks: %+v", testName, err)
	}
	err = tc.MineUntilMature(coinbases[0])
	if err != nil {
		teardown()
		t.Fatalf("%s: MineUntilMature: %+v", testName, err)
	}
	return tc, coinbases[0], teardown
}

func buildBlockSpending(t *testing.T, testName string, tc *testutils.TestChain,
	spendable *testutils.OwnedOutput, fee uint64) (*externalapi.Block, *externalapi.Transaction) {

	half := (spendable.Value - fee) / 2
	transaction, _, err := testutils.NewTransaction([]*testutils.OwnedOutput{spendable},
		[]uint64{half, spendable.Value - fee - half}, fee, 0)
	if err != nil {
		t.Fatalf("%s: NewTransaction: %+v", testName, err)
	}
	block, _, err := tc.BuildBlock(transaction)
	if err != nil {
		t.Fatalf("%s: BuildBlock: %+v", testName, err)
	}
	return block, transaction
}

func TestValidateValidBlocks(t *testing.T) {
	testutils.ForAllNets(t, func(t *testing.T, params *dagconfig.Params) {
		tc, teardown := testutils.NewTestChain(t, params, "TestValidateValidBlocks")
		defer teardown()

		for i := 0; i < 3; i++ {
			block, _, err := tc.BuildBlock()
			if err != nil {
				t.Fatalf("TestValidateValidBlocks: BuildBlock: %+v", err)
			}
			err = tc.BlockValidator.Validate(block)
			if err != nil {
				t.Fatalf("TestValidateValidBlocks: block at height %d is invalid: %+v\n%s",
					block.Header.Height, err, spew.Sdump(block.Header))
			}
			_, err = tc.AddBlock(block)
			if err != nil {
				t.Fatalf("TestValidateValidBlocks: AddBlock: %+v", err)
			}
		}
	})
}

func TestValidateBlockWithTransaction(t *testing.T) {
	tc, spendable, teardown := prepareChainWithSpendableOutput(t, "TestValidateBlockWithTransaction", 1)
	defer teardown()

	block, _ := buildBlockSpending(t, "TestValidateBlockWithTransaction", tc, spendable, 10)
	_, err := tc.AddBlock(block)
	if err != nil {
		t.Fatalf("TestValidateBlockWithTransaction: AddBlock: %+v", err)
	}

	// The same output can't be spent twice
	doubleSpend, _ := buildBlockSpending(t, "TestValidateBlockWithTransaction", tc, spendable, 20)
	err = tc.BlockValidator.Validate(doubleSpend)
	if !errors.Is(err, ruleerrors.ErrInputSpent) {
		t.Fatalf("TestValidateBlockWithTransaction: expected ErrInputSpent, got %v", err)
	}
}

// TestNoCutThrough builds a block at height 10 in which an output is
// also spent by an input of the same block
func TestNoCutThrough(t *testing.T) {
	tc, spendable, teardown := prepareChainWithSpendableOutput(t, "TestNoCutThrough", 9)
	defer teardown()

	tip, err := tc.Store.FetchTipHeader()
	if err != nil {
		t.Fatalf("TestNoCutThrough: FetchTipHeader: %+v", err)
	}
	if tip.Height() != 9 {
		t.Fatalf("TestNoCutThrough: expected the tip at height 9, got %d", tip.Height())
	}

	block, transaction := buildBlockSpending(t, "TestNoCutThrough", tc, spendable, 5)
	if block.Header.Height != 10 {
		t.Fatalf("TestNoCutThrough: expected a block at height 10, got %d", block.Header.Height)
	}
	block.Body.Inputs = append(block.Body.Inputs, &externalapi.TransactionInput{
		Commitment: transaction.Body.Outputs[0].Commitment,
	})
	block.Body.Sort()

	err = tc.BlockValidator.Validate(block)
	if !errors.Is(err, ruleerrors.ErrNoCutThrough) {
		t.Fatalf("TestNoCutThrough: expected ErrNoCutThrough, got %v", err)
	}
}

func TestTamperedKernelSignature(t *testing.T) {
	tc, spendable, teardown := prepareChainWithSpendableOutput(t, "TestTamperedKernelSignature", 1)
	defer teardown()

	block, transaction := buildBlockSpending(t, "TestTamperedKernelSignature", tc, spendable, 5)
	transaction.Body.Kernels[0].ExcessSig[0] ^= 0x01

	err := tc.BlockValidator.Validate(block)
	if !errors.Is(err, ruleerrors.ErrInvalidKernelSignature) {
		t.Fatalf("TestTamperedKernelSignature: expected ErrInvalidKernelSignature, got %v", err)
	}
}

func TestBlockBodyRules(t *testing.T) {
	tests := []struct {
		name          string
		tamper        func(t *testing.T, tc *testutils.TestChain, block *externalapi.Block, onChain *testutils.OwnedOutput)
		expectedError error
	}{
		{
			name: "too heavy",
			tamper: func(t *testing.T, tc *testutils.TestChain, block *externalapi.Block, _ *testutils.OwnedOutput) {
				for i := 0; i < 2000; i++ {
					output := &externalapi.TransactionOutput{}
					output.Commitment[1] = byte(i >> 8)
					output.Commitment[2] = byte(i)
					block.Body.Outputs = append(block.Body.Outputs, output)
				}
			},
			expectedError: ruleerrors.ErrBlockTooLarge,
		},
		{
			name: "duplicate outputs",
			tamper: func(t *testing.T, tc *testutils.TestChain, block *externalapi.Block, _ *testutils.OwnedOutput) {
				block.Body.Outputs = append(block.Body.Outputs, block.Body.Outputs[0].Clone())
			},
			expectedError: ruleerrors.ErrUnsortedOrDuplicateOutputs,
		},
		{
			name: "unknown input",
			tamper: func(t *testing.T, tc *testutils.TestChain, block *externalapi.Block, _ *testutils.OwnedOutput) {
				unknown, _, err := testutils.NewCoinbase(5, 0)
				if err != nil {
					t.Fatalf("NewCoinbase: %+v", err)
				}
				input, err := unknown.Input()
				if err != nil {
					t.Fatalf("Input: %+v", err)
				}
				block.Body.Inputs = append(block.Body.Inputs, input)
				block.Body.Sort()
			},
			expectedError: ruleerrors.ErrUnknownInput,
		},
		{
			name: "input features mismatch",
			tamper: func(t *testing.T, tc *testutils.TestChain, block *externalapi.Block, onChain *testutils.OwnedOutput) {
				input, err := onChain.Input()
				if err != nil {
					t.Fatalf("Input: %+v", err)
				}
				input.Features.Maturity = 0
				block.Body.Inputs = append(block.Body.Inputs, input)
				block.Body.Sort()
			},
			expectedError: ruleerrors.ErrInputFeaturesMismatch,
		},
		{
			name: "duplicate txo",
			tamper: func(t *testing.T, tc *testutils.TestChain, block *externalapi.Block, onChain *testutils.OwnedOutput) {
				block.Body.Outputs = append(block.Body.Outputs, onChain.Output.Clone())
				block.Body.Sort()
			},
			expectedError: ruleerrors.ErrDuplicateTxo,
		},
		{
			name: "immature input",
			tamper: func(t *testing.T, tc *testutils.TestChain, block *externalapi.Block, onChain *testutils.OwnedOutput) {
				input, err := onChain.Input()
				if err != nil {
					t.Fatalf("Input: %+v", err)
				}
				input.Features.Maturity = block.Header.Height + 1
				block.Body.Inputs = append(block.Body.Inputs, input)
				block.Body.Sort()
			},
			expectedError: ruleerrors.ErrInputMaturity,
		},
		{
			name: "two coinbases",
			tamper: func(t *testing.T, tc *testutils.TestChain, block *externalapi.Block, _ *testutils.OwnedOutput) {
				coinbase, kernel, err := testutils.NewCoinbase(1, block.Header.Height+100)
				if err != nil {
					t.Fatalf("NewCoinbase: %+v", err)
				}
				block.Body.Outputs = append(block.Body.Outputs, coinbase.Output)
				block.Body.Kernels = append(block.Body.Kernels, kernel)
				block.Body.Sort()
			},
			expectedError: ruleerrors.ErrMoreThanOneCoinbase,
		},
		{
			name: "no coinbase",
			tamper: func(t *testing.T, tc *testutils.TestChain, block *externalapi.Block, _ *testutils.OwnedOutput) {
				block.Body.Outputs = nil
				block.Body.Kernels = nil
			},
			expectedError: ruleerrors.ErrNoCoinbase,
		},
		{
			name: "immature coinbase",
			tamper: func(t *testing.T, tc *testutils.TestChain, block *externalapi.Block, _ *testutils.OwnedOutput) {
				block.Body.Outputs[0].Features.Maturity = block.Header.Height
			},
			expectedError: ruleerrors.ErrInvalidCoinbaseMaturity,
		},
		{
			name: "coinbase too large",
			tamper: func(t *testing.T, tc *testutils.TestChain, block *externalapi.Block, _ *testutils.OwnedOutput) {
				height := block.Header.Height
				coinbase, kernel, err := testutils.NewCoinbase(tc.Params.BlockReward(height)+1,
					height+tc.Params.ConsensusConstants(height).CoinbaseLockHeight)
				if err != nil {
					t.Fatalf("NewCoinbase: %+v", err)
				}
				block.Body.Outputs = []*externalapi.TransactionOutput{coinbase.Output}
				block.Body.Kernels = []*externalapi.TransactionKernel{kernel}
			},
			expectedError: ruleerrors.ErrInvalidCoinbase,
		},
		{
			name: "wrong kernel offset",
			tamper: func(t *testing.T, tc *testutils.TestChain, block *externalapi.Block, _ *testutils.OwnedOutput) {
				offset, err := commitment.RandomScalar()
				if err != nil {
					t.Fatalf("RandomScalar: %+v", err)
				}
				block.Header.TotalKernelOffset = offset
			},
			expectedError: ruleerrors.ErrKernelSumMismatch,
		},
		{
			name: "wrong script offset",
			tamper: func(t *testing.T, tc *testutils.TestChain, block *externalapi.Block, _ *testutils.OwnedOutput) {
				offset, err := commitment.RandomScalar()
				if err != nil {
					t.Fatalf("RandomScalar: %+v", err)
				}
				block.Header.TotalScriptOffset = offset
			},
			expectedError: ruleerrors.ErrScriptOffsetMismatch,
		},
		{
			name: "non-zero witness root",
			tamper: func(t *testing.T, tc *testutils.TestChain, block *externalapi.Block, _ *testutils.OwnedOutput) {
				block.Header.WitnessMr = block.Header.KernelMr
			},
			expectedError: ruleerrors.ErrInvalidWitnessMr,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tc, onChain, teardown := prepareChainWithSpendableOutput(t, "TestBlockBodyRules", 1)
			defer teardown()

			block, _, err := tc.BuildBlock()
			if err != nil {
				t.Fatalf("TestBlockBodyRules: BuildBlock: %+v", err)
			}
			test.tamper(t, tc, block, onChain)
			err = tc.BlockValidator.Validate(block)
			if !errors.Is(err, test.expectedError) {
				t.Fatalf("TestBlockBodyRules: %s: expected %v, got %v", test.name, test.expectedError, err)
			}
		})
	}
}

func TestMmrRootMismatches(t *testing.T) {
	tests := []struct {
		name         string
		tamper       func(header *externalapi.BlockHeader)
		expectedTree externalapi.MmrTree
		expectedSize *ruleerrors.ErrMismatchedMmrSize
	}{
		{
			name:         "kernel root",
			tamper:       func(header *externalapi.BlockHeader) { header.KernelMr = header.InputMr },
			expectedTree: externalapi.MmrTreeKernel,
		},
		{
			name:         "output root",
			tamper:       func(header *externalapi.BlockHeader) { header.OutputMr = header.InputMr },
			expectedTree: externalapi.MmrTreeUtxo,
		},
		{
			name:         "range proof root",
			tamper:       func(header *externalapi.BlockHeader) { header.RangeProofMr = header.InputMr },
			expectedTree: externalapi.MmrTreeRangeProof,
		},
		{
			name:         "input root",
			tamper:       func(header *externalapi.BlockHeader) { header.InputMr = header.KernelMr },
			expectedTree: externalapi.MmrTreeInput,
		},
		{
			name:   "kernel size",
			tamper: func(header *externalapi.BlockHeader) { header.KernelMmrSize-- },
			expectedSize: &ruleerrors.ErrMismatchedMmrSize{
				Tree: externalapi.MmrTreeKernel, Expected: 3, Actual: 2,
			},
		},
		{
			name:   "output size",
			tamper: func(header *externalapi.BlockHeader) { header.OutputMmrSize += 5 },
			expectedSize: &ruleerrors.ErrMismatchedMmrSize{
				Tree: externalapi.MmrTreeUtxo, Expected: 3, Actual: 8,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tc, teardown := testutils.NewTestChain(t, &dagconfig.SimnetParams, "TestMmrRootMismatches")
			defer teardown()
			_, err := tc.MineBlocks(2)
			if err != nil {
				t.Fatalf("TestMmrRootMismatches: MineBlocks: %+v", err)
			}
			block, _, err := tc.BuildBlock()
			if err != nil {
				t.Fatalf("TestMmrRootMismatches: BuildBlock: %+v", err)
			}
			test.tamper(block.Header)
			err = tc.BlockValidator.Validate(block)

			if test.expectedSize != nil {
				var sizeErr ruleerrors.ErrMismatchedMmrSize
				if !errors.As(err, &sizeErr) {
					t.Fatalf("TestMmrRootMismatches: %s: expected ErrMismatchedMmrSize, got %v", test.name, err)
				}
				if sizeErr != *test.expectedSize {
					t.Fatalf("TestMmrRootMismatches: %s: expected %+v, got %+v", test.name, *test.expectedSize, sizeErr)
				}
				return
			}
			var rootsErr ruleerrors.ErrMismatchedMmrRoots
			if !errors.As(err, &rootsErr) {
				t.Fatalf("TestMmrRootMismatches: %s: expected ErrMismatchedMmrRoots, got %v", test.name, err)
			}
			if rootsErr.Tree != test.expectedTree {
				t.Fatalf("TestMmrRootMismatches: %s: expected a mismatch of the %s tree, got %s",
					test.name, test.expectedTree, rootsErr.Tree)
			}
		})
	}
}
