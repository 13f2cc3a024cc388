package ldbstore

import (
	"encoding/binary"
	"sync"

	"github.com/holiman/uint256"
	"github.com/mwnode/basenode/domain/chainstorage"
	"github.com/mwnode/basenode/domain/consensus/database/serialization"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/dagconfig"
	"github.com/mwnode/basenode/infrastructure/db/database"
	"github.com/pkg/errors"
)

// ChainStore is a chainstorage.BlockchainBackend on top of a generic
// key/value database
type ChainStore struct {
	db database.Database

	horizonSyncLock       sync.Mutex
	horizonSyncInProgress bool
}

// New returns a ChainStore over db. An empty database is initialized
// with the genesis block of the given network.
func New(db database.Database, params *dagconfig.Params) (*ChainStore, error) {
	store := &ChainStore{db: db}

	horizonSyncInProgress, err := db.Has(horizonSyncMarkerKey)
	if err != nil {
		return nil, err
	}
	if horizonSyncInProgress {
		log.Warnf("Found an unfinished horizon sync. It should be rolled back")
	}
	store.horizonSyncInProgress = horizonSyncInProgress

	hasGenesis, err := db.Has(headerKey(0))
	if err != nil {
		return nil, err
	}
	if !hasGenesis {
		err := store.initGenesis(params)
		if err != nil {
			return nil, err
		}
	}
	return store, nil
}

func (s *ChainStore) initGenesis(params *dagconfig.Params) error {
	log.Infof("Initializing the chain store with genesis %s", params.GenesisHash)
	genesis := params.GenesisChainHeader()
	tx, err := s.WriteTransaction()
	if err != nil {
		return err
	}
	defer tx.RollbackUnlessClosed()

	err = tx.InsertChainHeader(genesis)
	if err != nil {
		return err
	}
	err = tx.SetBlockAccumulatedData(genesis.Hash(), dagconfig.GenesisAccumulatedData())
	if err != nil {
		return err
	}
	err = tx.SetChainMetadata(&externalapi.ChainMetadata{
		BestBlock:             *genesis.Hash(),
		ChainHeight:           0,
		AccumulatedWork:       genesis.AccumulatedData.TotalAccumulatedDifficulty,
		EffectivePrunedHeight: 0,
	})
	if err != nil {
		return err
	}
	return tx.Commit()
}

func get(accessor database.DataAccessor, key *database.Key) ([]byte, error) {
	data, err := accessor.Get(key)
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, errors.Wrapf(chainstorage.ErrValueNotFound, "key %s", key)
		}
		return nil, err
	}
	return data, nil
}

func getUint64(accessor database.DataAccessor, key *database.Key) (uint64, error) {
	data, err := get(accessor, key)
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, errors.Errorf("corrupt uint64 value of %d bytes at %s", len(data), key.Bytes())
	}
	return binary.BigEndian.Uint64(data), nil
}

// getMetadata returns the payload of a versioned metadata entry
func getMetadata(accessor database.DataAccessor, name string) ([]byte, error) {
	data, err := get(accessor, metadataKey(name))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 || data[0] != metadataVersion {
		return nil, errors.Errorf("metadata %s has an unknown version", name)
	}
	return data[1:], nil
}

func uint256FromBytes(data []byte) *uint256.Int {
	return new(uint256.Int).SetBytes(data)
}

func fetchChainHeader(accessor database.DataAccessor, height uint64) (*externalapi.ChainHeader, error) {
	data, err := get(accessor, headerKey(height))
	if err != nil {
		return nil, err
	}
	return serialization.DeserializeChainHeader(data)
}

// FetchChainHeader returns the header at height with its accumulated data
func (s *ChainStore) FetchChainHeader(height uint64) (*externalapi.ChainHeader, error) {
	return fetchChainHeader(s.db, height)
}

// FetchHeader returns the header at height
func (s *ChainStore) FetchHeader(height uint64) (*externalapi.BlockHeader, error) {
	chainHeader, err := s.FetchChainHeader(height)
	if err != nil {
		return nil, err
	}
	return chainHeader.Header, nil
}

// FetchHeaderByHash returns the header with the given hash
func (s *ChainStore) FetchHeaderByHash(hash *externalapi.DomainHash) (*externalapi.ChainHeader, error) {
	height, err := getUint64(s.db, headerHashKey(hash))
	if err != nil {
		return nil, err
	}
	return s.FetchChainHeader(height)
}

func (s *ChainStore) headerTipHeight() (uint64, error) {
	data, err := getMetadata(s.db, metadataKeyHeaderTipHeight)
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, errors.Errorf("corrupt header tip height")
	}
	return binary.BigEndian.Uint64(data), nil
}

// FetchTipHeader returns the highest stored header
func (s *ChainStore) FetchTipHeader() (*externalapi.ChainHeader, error) {
	tipHeight, err := s.headerTipHeight()
	if err != nil {
		return nil, err
	}
	return s.FetchChainHeader(tipHeight)
}

// fetchHeaderContaining returns the lowest header whose MMR size, as
// read by mmrSize, is greater than leafIndex
func (s *ChainStore) fetchHeaderContaining(leafIndex uint64,
	mmrSize func(header *externalapi.BlockHeader) uint64) (*externalapi.ChainHeader, error) {

	tipHeight, err := s.headerTipHeight()
	if err != nil {
		return nil, err
	}
	tip, err := s.FetchChainHeader(tipHeight)
	if err != nil {
		return nil, err
	}
	if mmrSize(tip.Header) <= leafIndex {
		return nil, errors.Wrapf(chainstorage.ErrValueNotFound,
			"no header contains MMR leaf %d, the tip holds %d leaves", leafIndex, mmrSize(tip.Header))
	}

	low, high := uint64(0), tipHeight
	found := tip
	for low < high {
		middle := low + (high-low)/2
		header, err := s.FetchChainHeader(middle)
		if err != nil {
			return nil, err
		}
		if mmrSize(header.Header) > leafIndex {
			high = middle
			found = header
		} else {
			low = middle + 1
		}
	}
	return found, nil
}

// FetchHeaderContainingKernelMmr returns the lowest header whose kernel
// MMR holds the leaf with the given index
func (s *ChainStore) FetchHeaderContainingKernelMmr(leafIndex uint64) (*externalapi.ChainHeader, error) {
	return s.fetchHeaderContaining(leafIndex, func(header *externalapi.BlockHeader) uint64 {
		return header.KernelMmrSize
	})
}

// FetchHeaderContainingUtxoMmr returns the lowest header whose output
// MMR holds the leaf with the given index
func (s *ChainStore) FetchHeaderContainingUtxoMmr(leafIndex uint64) (*externalapi.ChainHeader, error) {
	return s.fetchHeaderContaining(leafIndex, func(header *externalapi.BlockHeader) uint64 {
		return header.OutputMmrSize
	})
}

func fetchBlockAccumulatedData(accessor database.DataAccessor,
	hash *externalapi.DomainHash) (*externalapi.BlockAccumulatedData, error) {

	data, err := get(accessor, blockAccumulatedKey(hash))
	if err != nil {
		return nil, err
	}
	return serialization.DeserializeBlockAccumulatedData(data)
}

// FetchBlockAccumulatedData returns the accumulated data of the block with the given hash
func (s *ChainStore) FetchBlockAccumulatedData(hash *externalapi.DomainHash) (*externalapi.BlockAccumulatedData, error) {
	return fetchBlockAccumulatedData(s.db, hash)
}

func fetchMmrSize(accessor database.DataAccessor, tree externalapi.MmrTree) (uint64, error) {
	size, err := getUint64(accessor, mmrSizeKey(tree))
	if errors.Is(err, chainstorage.ErrValueNotFound) {
		return 0, nil
	}
	return size, err
}

// FetchMmrSize returns the leaf count of the given tree
func (s *ChainStore) FetchMmrSize(tree externalapi.MmrTree) (uint64, error) {
	if tree != externalapi.MmrTreeKernel && tree != externalapi.MmrTreeUtxo {
		return 0, errors.Errorf("the size of the %s MMR isn't tracked", tree)
	}
	return fetchMmrSize(s.db, tree)
}

// FetchChainMetadata returns the chain metadata
func (s *ChainStore) FetchChainMetadata() (*externalapi.ChainMetadata, error) {
	bestBlockBytes, err := getMetadata(s.db, metadataKeyBestBlock)
	if err != nil {
		return nil, err
	}
	bestBlock, err := externalapi.NewDomainHashFromByteSlice(bestBlockBytes)
	if err != nil {
		return nil, err
	}
	chainHeightBytes, err := getMetadata(s.db, metadataKeyChainHeight)
	if err != nil {
		return nil, err
	}
	prunedHeightBytes, err := getMetadata(s.db, metadataKeyEffectivePrunedHeight)
	if err != nil {
		return nil, err
	}
	if len(chainHeightBytes) != 8 || len(prunedHeightBytes) != 8 {
		return nil, errors.Errorf("corrupt chain metadata heights")
	}
	accumulatedWorkBytes, err := getMetadata(s.db, metadataKeyAccumulatedWork)
	if err != nil {
		return nil, err
	}
	if len(accumulatedWorkBytes) > 32 {
		return nil, errors.Errorf("corrupt accumulated work")
	}
	return &externalapi.ChainMetadata{
		BestBlock:             *bestBlock,
		ChainHeight:           binary.BigEndian.Uint64(chainHeightBytes),
		AccumulatedWork:       uint256FromBytes(accumulatedWorkBytes),
		EffectivePrunedHeight: binary.BigEndian.Uint64(prunedHeightBytes),
	}, nil
}

// FetchKernelsByMmrPosition returns the kernels with leaf indices in [start, end)
func (s *ChainStore) FetchKernelsByMmrPosition(start uint64, end uint64) ([]*chainstorage.KernelEntry, error) {
	if end < start {
		return nil, errors.Errorf("invalid kernel range [%d, %d)", start, end)
	}
	entries := make([]*chainstorage.KernelEntry, 0, end-start)
	for leafIndex := start; leafIndex < end; leafIndex++ {
		data, err := get(s.db, kernelKey(leafIndex))
		if err != nil {
			return nil, err
		}
		entry, err := deserializeKernelEntry(data, leafIndex)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// FetchOutputsByMmrPosition returns the outputs with leaf indices in [start, end)
func (s *ChainStore) FetchOutputsByMmrPosition(start uint64, end uint64) ([]*chainstorage.OutputEntry, error) {
	if end < start {
		return nil, errors.Errorf("invalid output range [%d, %d)", start, end)
	}
	entries := make([]*chainstorage.OutputEntry, 0, end-start)
	for leafIndex := start; leafIndex < end; leafIndex++ {
		entry, err := s.fetchOutputEntry(leafIndex)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *ChainStore) fetchOutputEntry(leafIndex uint64) (*chainstorage.OutputEntry, error) {
	data, err := get(s.db, outputKey(leafIndex))
	if err != nil {
		return nil, err
	}
	return deserializeOutputEntry(data, leafIndex)
}

// FetchOutputPosition returns the leaf index of the output with the given commitment
func (s *ChainStore) FetchOutputPosition(commitment *externalapi.Commitment) (uint64, error) {
	return getUint64(s.db, outputIndexKey(commitment))
}

// FetchUnspentOutput returns the output with the given commitment if
// it is unspent at the tip of the chain
func (s *ChainStore) FetchUnspentOutput(commitment *externalapi.Commitment) (*chainstorage.OutputEntry, error) {
	leafIndex, err := s.FetchOutputPosition(commitment)
	if err != nil {
		return nil, err
	}
	entry, err := s.fetchOutputEntry(leafIndex)
	if err != nil {
		return nil, err
	}
	if entry.IsPruned() {
		return nil, errors.Wrapf(chainstorage.ErrOutputSpent, "output %s is pruned", commitment)
	}

	metadata, err := s.FetchChainMetadata()
	if err != nil {
		return nil, err
	}
	tipData, err := s.FetchBlockAccumulatedData(&metadata.BestBlock)
	if err != nil {
		return nil, err
	}
	if leafIndex <= uint64(^uint32(0)) && tipData.Deleted.Contains(uint32(leafIndex)) {
		return nil, errors.Wrapf(chainstorage.ErrOutputSpent, "output %s", commitment)
	}
	return entry, nil
}

// IsHorizonSyncInProgress returns whether a horizon sync scope is open
func (s *ChainStore) IsHorizonSyncInProgress() bool {
	s.horizonSyncLock.Lock()
	defer s.horizonSyncLock.Unlock()
	return s.horizonSyncInProgress
}

// WriteTransaction begins a new write transaction
func (s *ChainStore) WriteTransaction() (chainstorage.WriteTransaction, error) {
	dbTx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	return &writeTransaction{
		dbTx:      dbTx,
		journaled: s.IsHorizonSyncInProgress(),
	}, nil
}

var _ chainstorage.BlockchainBackend = (*ChainStore)(nil)
