package headeraccumulator

import (
	"testing"

	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/ruleerrors"
	"github.com/mwnode/basenode/domain/consensus/utils/consensushashing"
	"github.com/mwnode/basenode/domain/dagconfig"
	"github.com/pkg/errors"
)

func childHeader(parent *externalapi.ChainHeader, algorithm externalapi.PowAlgorithm) *externalapi.BlockHeader {
	return &externalapi.BlockHeader{
		Height:   parent.Height() + 1,
		PrevHash: *parent.Hash(),
		Pow:      externalapi.ProofOfWork{Algorithm: algorithm},
	}
}

func TestBuildAccumulatedData(t *testing.T) {
	params := &dagconfig.SimnetParams
	accumulator := New(params)
	genesis := params.GenesisChainHeader()

	header := childHeader(genesis, externalapi.PowAlgorithmSha3)
	data, err := accumulator.BuildAccumulatedData(genesis, header, 5, 3)
	if err != nil {
		t.Fatalf("TestBuildAccumulatedData: BuildAccumulatedData: %+v", err)
	}
	if data.AccumulatedSha3Difficulty.Uint64() != 6 || data.AccumulatedMoneroDifficulty.Uint64() != 1 {
		t.Fatalf("TestBuildAccumulatedData: unexpected per algorithm difficulties %d/%d",
			data.AccumulatedMoneroDifficulty.Uint64(), data.AccumulatedSha3Difficulty.Uint64())
	}
	if data.TotalAccumulatedDifficulty.Uint64() != 6 {
		t.Fatalf("TestBuildAccumulatedData: expected total difficulty 6, got %d", data.TotalAccumulatedDifficulty.Uint64())
	}
	if !data.Hash.Equal(consensushashing.HeaderHash(header)) {
		t.Fatalf("TestBuildAccumulatedData: unexpected hash %s", data.Hash)
	}

	child := &externalapi.ChainHeader{Header: header, AccumulatedData: data}
	grandchild := childHeader(child, externalapi.PowAlgorithmMonero)
	grandchildData, err := accumulator.BuildAccumulatedData(child, grandchild, 4, 4)
	if err != nil {
		t.Fatalf("TestBuildAccumulatedData: BuildAccumulatedData: %+v", err)
	}
	if grandchildData.TotalAccumulatedDifficulty.Uint64() != 30 {
		t.Fatalf("TestBuildAccumulatedData: expected total difficulty 30, got %d",
			grandchildData.TotalAccumulatedDifficulty.Uint64())
	}
	if grandchildData.TotalAccumulatedDifficulty.Lt(data.TotalAccumulatedDifficulty) {
		t.Fatalf("TestBuildAccumulatedData: total accumulated difficulty decreased")
	}
}

func TestBuildAccumulatedDataErrors(t *testing.T) {
	params := &dagconfig.SimnetParams
	accumulator := New(params)
	genesis := params.GenesisChainHeader()

	lowPow := childHeader(genesis, externalapi.PowAlgorithmSha3)
	_, err := accumulator.BuildAccumulatedData(genesis, lowPow, 2, 3)
	if !errors.Is(err, ruleerrors.ErrPowTooLow) {
		t.Fatalf("TestBuildAccumulatedDataErrors: expected ErrPowTooLow, got %v", err)
	}

	wrongHeight := childHeader(genesis, externalapi.PowAlgorithmSha3)
	wrongHeight.Height = 5
	_, err = accumulator.BuildAccumulatedData(genesis, wrongHeight, 3, 3)
	if !errors.Is(err, ruleerrors.ErrWrongHeight) {
		t.Fatalf("TestBuildAccumulatedDataErrors: expected ErrWrongHeight, got %v", err)
	}

	orphan := childHeader(genesis, externalapi.PowAlgorithmSha3)
	orphan.PrevHash = externalapi.ZeroHash
	_, err = accumulator.BuildAccumulatedData(genesis, orphan, 3, 3)
	if !errors.Is(err, ruleerrors.ErrUnknownParent) {
		t.Fatalf("TestBuildAccumulatedDataErrors: expected ErrUnknownParent, got %v", err)
	}
}
