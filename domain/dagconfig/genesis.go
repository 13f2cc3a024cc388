package dagconfig

import (
	"github.com/holiman/uint256"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/utils/consensushashing"
	"github.com/mwnode/basenode/domain/consensus/utils/mmr"
)

var genesisBlock = newGenesisBlock()

var genesisHash = consensushashing.BlockHash(genesisBlock)

// newGenesisBlock builds the empty genesis block. Its roots are the
// roots of empty trees, so the first real block replays onto empty
// accumulated data.
func newGenesisBlock() *externalapi.Block {
	emptyRoot := mmr.New(nil).Root()
	mutableEmptyRoot := mmr.NewMutable(nil, nil).Root()
	return &externalapi.Block{
		Header: &externalapi.BlockHeader{
			Version:          1,
			Height:           0,
			PrevHash:         externalapi.ZeroHash,
			TimestampSeconds: 1_640_995_200,
			KernelMr:         mmr.LegacyRoot(&emptyRoot),
			OutputMr:         mutableEmptyRoot,
			RangeProofMr:     mmr.LegacyRoot(&emptyRoot),
			InputMr:          emptyRoot,
			WitnessMr:        externalapi.ZeroHash,
		},
	}
}

// GenesisAccumulatedData returns the accumulated data of the genesis block
func GenesisAccumulatedData() *externalapi.BlockAccumulatedData {
	empty := mmr.New(nil).PrunedHashSet()
	return &externalapi.BlockAccumulatedData{
		Kernels:     empty.Clone(),
		Outputs:     empty.Clone(),
		RangeProofs: empty.Clone(),
		Deleted:     mmr.NewMutable(nil, nil).Deleted(),
	}
}

// GenesisChainHeader returns the genesis header together with its
// accumulated data. Every accumulated difficulty starts at 1 so that
// their product is meaningful.
func (p *Params) GenesisChainHeader() *externalapi.ChainHeader {
	return &externalapi.ChainHeader{
		Header: p.GenesisBlock.Header.Clone(),
		AccumulatedData: &externalapi.BlockHeaderAccumulatedData{
			Hash:                        *p.GenesisHash,
			AccumulatedMoneroDifficulty: uint256.NewInt(1),
			AccumulatedSha3Difficulty:   uint256.NewInt(1),
			TotalAccumulatedDifficulty:  uint256.NewInt(1),
		},
	}
}
