package chainstorage

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
)

// KernelEntry is a kernel as stored in the kernel MMR
type KernelEntry struct {
	Kernel     *externalapi.TransactionKernel
	HeaderHash externalapi.DomainHash
	LeafIndex  uint64
}

// OutputEntry is an output as stored in the output MMR. Output is nil
// for outputs that were only ever received pruned.
type OutputEntry struct {
	Output         *externalapi.TransactionOutput
	Hash           externalapi.DomainHash
	RangeProofHash externalapi.DomainHash
	HeaderHash     externalapi.DomainHash
	MinedHeight    uint64
	LeafIndex      uint64
}

// IsPruned returns whether only the hashes of the output are known
func (entry *OutputEntry) IsPruned() bool {
	return entry.Output == nil
}

// BlockchainBackend is the capability interface the validation and
// sync core requires from a backing store
type BlockchainBackend interface {
	FetchHeader(height uint64) (*externalapi.BlockHeader, error)
	FetchChainHeader(height uint64) (*externalapi.ChainHeader, error)
	FetchHeaderByHash(hash *externalapi.DomainHash) (*externalapi.ChainHeader, error)
	// FetchHeaderContainingKernelMmr returns the lowest header whose
	// kernel MMR holds the leaf with the given index
	FetchHeaderContainingKernelMmr(leafIndex uint64) (*externalapi.ChainHeader, error)
	// FetchHeaderContainingUtxoMmr returns the lowest header whose
	// output MMR holds the leaf with the given index
	FetchHeaderContainingUtxoMmr(leafIndex uint64) (*externalapi.ChainHeader, error)
	FetchTipHeader() (*externalapi.ChainHeader, error)
	FetchBlockAccumulatedData(hash *externalapi.DomainHash) (*externalapi.BlockAccumulatedData, error)
	// FetchMmrSize returns the leaf count of the given tree
	FetchMmrSize(tree externalapi.MmrTree) (uint64, error)
	FetchChainMetadata() (*externalapi.ChainMetadata, error)
	FetchKernelsByMmrPosition(start uint64, end uint64) ([]*KernelEntry, error)
	FetchOutputsByMmrPosition(start uint64, end uint64) ([]*OutputEntry, error)
	// FetchUnspentOutput returns ErrValueNotFound for unknown outputs and
	// ErrOutputSpent for outputs spent at the tip
	FetchUnspentOutput(commitment *externalapi.Commitment) (*OutputEntry, error)
	FetchOutputPosition(commitment *externalapi.Commitment) (uint64, error)

	WriteTransaction() (WriteTransaction, error)

	HorizonSyncBegin() error
	HorizonSyncRollback() error
	HorizonSyncCommit() error
	IsHorizonSyncInProgress() bool

	// Fingerprint returns an order-independent hash of every record in
	// the store
	Fingerprint() (*externalapi.DomainHash, error)
}

// WriteTransaction is the sole mutation path into the store. Its
// changes become visible atomically on Commit.
type WriteTransaction interface {
	InsertChainHeader(chainHeader *externalapi.ChainHeader) error
	InsertKernel(kernel *externalapi.TransactionKernel, headerHash *externalapi.DomainHash) (uint64, error)
	InsertOutput(output *externalapi.TransactionOutput, headerHash *externalapi.DomainHash,
		minedHeight uint64) (uint64, error)
	SetBlockAccumulatedData(headerHash *externalapi.DomainHash, data *externalapi.BlockAccumulatedData) error

	InsertKernelViaHorizonSync(kernel *externalapi.TransactionKernel, headerHash *externalapi.DomainHash,
		leafIndex uint64) error
	InsertOutputViaHorizonSync(output *externalapi.TransactionOutput, headerHash *externalapi.DomainHash,
		minedHeight uint64, leafIndex uint64) error
	InsertPrunedOutputViaHorizonSync(outputHash *externalapi.DomainHash, rangeProofHash *externalapi.DomainHash,
		headerHash *externalapi.DomainHash, minedHeight uint64, leafIndex uint64) error
	UpdatePrunedHashSet(tree externalapi.MmrTree, headerHash *externalapi.DomainHash,
		prunedHashSet *externalapi.PrunedHashSet) error
	UpdateDeleted(headerHash *externalapi.DomainHash, deleted *roaring.Bitmap) error
	UpdateKernelSum(headerHash *externalapi.DomainHash, kernelSum *externalapi.Commitment) error
	UpdateUtxoSum(headerHash *externalapi.DomainHash, utxoSum *externalapi.Commitment) error
	SetChainMetadata(metadata *externalapi.ChainMetadata) error

	Commit() error
	Rollback() error
	RollbackUnlessClosed() error
}
