package chainstorage

import (
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// FetchSyncStartHeader returns the first header whose leaves of the
// given tree are not all covered by an MMR holding leafCount leaves.
// When leafCount ends exactly at a header, the following header is
// returned even if it adds no leaves, since it may still delete some.
func FetchSyncStartHeader(backend BlockchainBackend, tree externalapi.MmrTree,
	leafCount uint64) (*externalapi.ChainHeader, error) {

	var found *externalapi.ChainHeader
	var err error
	switch {
	case leafCount == 0:
		found, err = backend.FetchChainHeader(0)
	case tree == externalapi.MmrTreeKernel:
		found, err = backend.FetchHeaderContainingKernelMmr(leafCount - 1)
	case tree == externalapi.MmrTreeUtxo:
		found, err = backend.FetchHeaderContainingUtxoMmr(leafCount - 1)
	default:
		return nil, errors.Errorf("%s MMR isn't synced by header", tree)
	}
	if err != nil {
		return nil, err
	}

	if leafCountOf(tree, found.Header) == leafCount {
		return backend.FetchChainHeader(found.Height() + 1)
	}
	return found, nil
}

func leafCountOf(tree externalapi.MmrTree, header *externalapi.BlockHeader) uint64 {
	if tree == externalapi.MmrTreeKernel {
		return header.KernelMmrSize
	}
	return header.OutputMmrSize
}
