package mmrcalculator_test

import (
	"testing"

	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/processes/mmrcalculator"
	"github.com/mwnode/basenode/domain/consensus/ruleerrors"
	"github.com/mwnode/basenode/domain/consensus/utils/commitment"
	"github.com/mwnode/basenode/domain/consensus/utils/mmr"
	"github.com/mwnode/basenode/domain/consensus/utils/testutils"
	"github.com/mwnode/basenode/domain/dagconfig"
	"github.com/pkg/errors"
)

func TestAccumulatedDataRebuildsHeaderRoots(t *testing.T) {
	tc, teardown := testutils.NewTestChain(t, &dagconfig.SimnetParams, "TestAccumulatedDataRebuildsHeaderRoots")
	defer teardown()

	_, err := tc.MineBlocks(4)
	if err != nil {
		t.Fatalf("TestAccumulatedDataRebuildsHeaderRoots: MineBlocks: %+v", err)
	}

	for height := uint64(0); height <= 4; height++ {
		chainHeader, err := tc.Store.FetchChainHeader(height)
		if err != nil {
			t.Fatalf("TestAccumulatedDataRebuildsHeaderRoots: FetchChainHeader: %+v", err)
		}
		data, err := tc.Store.FetchBlockAccumulatedData(chainHeader.Hash())
		if err != nil {
			t.Fatalf("TestAccumulatedDataRebuildsHeaderRoots: FetchBlockAccumulatedData: %+v", err)
		}
		header := chainHeader.Header

		kernelMr := mmrcalculator.KernelMr(mmr.New(data.Kernels))
		if !kernelMr.Equal(&header.KernelMr) {
			t.Fatalf("TestAccumulatedDataRebuildsHeaderRoots: kernel root mismatch at height %d", height)
		}
		outputMr := mmrcalculator.OutputMr(mmr.NewMutable(data.Outputs, data.Deleted))
		if !outputMr.Equal(&header.OutputMr) {
			t.Fatalf("TestAccumulatedDataRebuildsHeaderRoots: output root mismatch at height %d", height)
		}
		rangeProofMr := mmrcalculator.RangeProofMr(mmr.New(data.RangeProofs))
		if !rangeProofMr.Equal(&header.RangeProofMr) {
			t.Fatalf("TestAccumulatedDataRebuildsHeaderRoots: range proof root mismatch at height %d", height)
		}
		if data.Kernels.LeafCount != header.KernelMmrSize {
			t.Fatalf("TestAccumulatedDataRebuildsHeaderRoots: expected %d kernels at height %d, got %d",
				header.KernelMmrSize, height, data.Kernels.LeafCount)
		}
		if data.Outputs.LeafCount != header.OutputMmrSize {
			t.Fatalf("TestAccumulatedDataRebuildsHeaderRoots: expected %d outputs at height %d, got %d",
				header.OutputMmrSize, height, data.Outputs.LeafCount)
		}
	}
}

func TestDeletionIsMonotonic(t *testing.T) {
	tc, teardown := testutils.NewTestChain(t, &dagconfig.SimnetParams, "TestDeletionIsMonotonic")
	defer teardown()

	coinbases, err := tc.MineBlocks(1)
	if err != nil {
		t.Fatalf("TestDeletionIsMonotonic: MineBlocks: %+v", err)
	}
	spendable := coinbases[0]
	err = tc.MineUntilMature(spendable)
	if err != nil {
		t.Fatalf("TestDeletionIsMonotonic: MineUntilMature: %+v", err)
	}
	leafIndex, err := tc.Store.FetchOutputPosition(&spendable.Output.Commitment)
	if err != nil {
		t.Fatalf("TestDeletionIsMonotonic: FetchOutputPosition: %+v", err)
	}

	transaction, _, err := testutils.NewTransaction([]*testutils.OwnedOutput{spendable},
		[]uint64{spendable.Value - 1}, 1, 0)
	if err != nil {
		t.Fatalf("TestDeletionIsMonotonic: NewTransaction: %+v", err)
	}
	block, _, err := tc.BuildBlock(transaction)
	if err != nil {
		t.Fatalf("TestDeletionIsMonotonic: BuildBlock: %+v", err)
	}
	spendingBlock, err := tc.AddBlock(block)
	if err != nil {
		t.Fatalf("TestDeletionIsMonotonic: AddBlock: %+v", err)
	}
	_, err = tc.MineBlocks(2)
	if err != nil {
		t.Fatalf("TestDeletionIsMonotonic: MineBlocks: %+v", err)
	}

	tip, err := tc.Store.FetchTipHeader()
	if err != nil {
		t.Fatalf("TestDeletionIsMonotonic: FetchTipHeader: %+v", err)
	}
	for height := uint64(1); height <= tip.Height(); height++ {
		chainHeader, err := tc.Store.FetchChainHeader(height)
		if err != nil {
			t.Fatalf("TestDeletionIsMonotonic: FetchChainHeader: %+v", err)
		}
		data, err := tc.Store.FetchBlockAccumulatedData(chainHeader.Hash())
		if err != nil {
			t.Fatalf("TestDeletionIsMonotonic: FetchBlockAccumulatedData: %+v", err)
		}
		expectDeleted := height >= spendingBlock.Height()
		if data.Deleted.Contains(uint32(leafIndex)) != expectDeleted {
			t.Fatalf("TestDeletionIsMonotonic: at height %d expected the spent leaf deleted: %t",
				height, expectDeleted)
		}
	}
}

func TestKernelSumAccumulates(t *testing.T) {
	tc, teardown := testutils.NewTestChain(t, &dagconfig.SimnetParams, "TestKernelSumAccumulates")
	defer teardown()

	_, err := tc.MineBlocks(3)
	if err != nil {
		t.Fatalf("TestKernelSumAccumulates: MineBlocks: %+v", err)
	}
	tip, err := tc.Store.FetchTipHeader()
	if err != nil {
		t.Fatalf("TestKernelSumAccumulates: FetchTipHeader: %+v", err)
	}
	data, err := tc.Store.FetchBlockAccumulatedData(tip.Hash())
	if err != nil {
		t.Fatalf("TestKernelSumAccumulates: FetchBlockAccumulatedData: %+v", err)
	}
	kernels, err := tc.Store.FetchKernelsByMmrPosition(0, tip.Header.KernelMmrSize)
	if err != nil {
		t.Fatalf("TestKernelSumAccumulates: FetchKernelsByMmrPosition: %+v", err)
	}
	excesses := make([]externalapi.Commitment, len(kernels))
	for i, entry := range kernels {
		excesses[i] = entry.Kernel.Excess
	}
	expected, err := commitment.Sum(excesses...)
	if err != nil {
		t.Fatalf("TestKernelSumAccumulates: Sum: %+v", err)
	}
	if expected.Serialize() != data.TotalKernelSum {
		t.Fatalf("TestKernelSumAccumulates: expected kernel sum %s, got %s",
			expected.Serialize(), data.TotalKernelSum)
	}
}

func TestCalculateMmrRootsErrors(t *testing.T) {
	tc, teardown := testutils.NewTestChain(t, &dagconfig.SimnetParams, "TestCalculateMmrRootsErrors")
	defer teardown()

	block, _, err := tc.BuildBlock()
	if err != nil {
		t.Fatalf("TestCalculateMmrRootsErrors: BuildBlock: %+v", err)
	}
	orphan := &externalapi.Block{Header: block.Header.Clone(), Body: block.Body}
	orphan.Header.PrevHash = block.Header.KernelMr
	_, _, err = tc.MmrCalculator.CalculateMmrRoots(orphan)
	if !errors.Is(err, ruleerrors.ErrUnknownParent) {
		t.Fatalf("TestCalculateMmrRootsErrors: expected ErrUnknownParent, got %v", err)
	}

	unknown, _, err := testutils.NewCoinbase(10, 0)
	if err != nil {
		t.Fatalf("TestCalculateMmrRootsErrors: NewCoinbase: %+v", err)
	}
	transaction, _, err := testutils.NewTransaction([]*testutils.OwnedOutput{unknown}, []uint64{10}, 0, 0)
	if err != nil {
		t.Fatalf("TestCalculateMmrRootsErrors: NewTransaction: %+v", err)
	}
	_, _, err = tc.BuildBlock(transaction)
	if !errors.Is(err, ruleerrors.ErrUnknownInput) {
		t.Fatalf("TestCalculateMmrRootsErrors: expected ErrUnknownInput, got %v", err)
	}
}
