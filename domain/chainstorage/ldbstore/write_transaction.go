package ldbstore

import (
	"encoding/binary"

	"github.com/RoaringBitmap/roaring"
	"github.com/mwnode/basenode/domain/chainstorage"
	"github.com/mwnode/basenode/domain/consensus/database/serialization"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/utils/consensushashing"
	"github.com/mwnode/basenode/infrastructure/db/database"
	"github.com/pkg/errors"
)

const (
	journalFlagAbsent  = 0
	journalFlagPresent = 1
)

// writeTransaction stages every operation in a single database
// transaction. While a horizon sync is in progress, the value every key
// had before its first modification is journaled in the same
// transaction so the whole sync can be undone.
type writeTransaction struct {
	dbTx      database.Transaction
	journaled bool
}

func (tx *writeTransaction) journal(key *database.Key) error {
	if !tx.journaled {
		return nil
	}
	entryKey := journalKey(key)
	alreadyJournaled, err := tx.dbTx.Has(entryKey)
	if err != nil {
		return err
	}
	if alreadyJournaled {
		return nil
	}
	previous, err := tx.dbTx.Get(key)
	if err != nil {
		if !database.IsNotFoundError(err) {
			return err
		}
		return tx.dbTx.Put(entryKey, []byte{journalFlagAbsent})
	}
	entry := make([]byte, 1+len(previous))
	entry[0] = journalFlagPresent
	copy(entry[1:], previous)
	return tx.dbTx.Put(entryKey, entry)
}

func (tx *writeTransaction) put(key *database.Key, value []byte) error {
	err := tx.journal(key)
	if err != nil {
		return err
	}
	return tx.dbTx.Put(key, value)
}

func (tx *writeTransaction) putMetadata(name string, payload []byte) error {
	value := make([]byte, 1+len(payload))
	value[0] = metadataVersion
	copy(value[1:], payload)
	return tx.put(metadataKey(name), value)
}

func (tx *writeTransaction) InsertChainHeader(chainHeader *externalapi.ChainHeader) error {
	height := chainHeader.Height()
	err := tx.put(headerKey(height), serialization.SerializeChainHeader(chainHeader))
	if err != nil {
		return err
	}
	err = tx.put(headerHashKey(chainHeader.Hash()), uint64Bytes(height))
	if err != nil {
		return err
	}

	tipHeightBytes, err := getMetadata(tx.dbTx, metadataKeyHeaderTipHeight)
	if err != nil && !errors.Is(err, chainstorage.ErrValueNotFound) {
		return err
	}
	if err == nil && len(tipHeightBytes) == 8 && height <= binary.BigEndian.Uint64(tipHeightBytes) {
		return nil
	}
	return tx.putMetadata(metadataKeyHeaderTipHeight, uint64Bytes(height))
}

func (tx *writeTransaction) nextLeafIndex(tree externalapi.MmrTree) (uint64, error) {
	return fetchMmrSize(tx.dbTx, tree)
}

func (tx *writeTransaction) checkLeafIndex(tree externalapi.MmrTree, leafIndex uint64) error {
	expected, err := tx.nextLeafIndex(tree)
	if err != nil {
		return err
	}
	if leafIndex != expected {
		return errors.Wrapf(chainstorage.ErrUnexpectedLeafIndex,
			"%s MMR expects leaf %d but got leaf %d", tree, expected, leafIndex)
	}
	return nil
}

func (tx *writeTransaction) insertKernelAt(kernel *externalapi.TransactionKernel,
	headerHash *externalapi.DomainHash, leafIndex uint64) error {

	entry := &chainstorage.KernelEntry{Kernel: kernel, HeaderHash: *headerHash, LeafIndex: leafIndex}
	err := tx.put(kernelKey(leafIndex), serializeKernelEntry(entry))
	if err != nil {
		return err
	}
	return tx.put(mmrSizeKey(externalapi.MmrTreeKernel), uint64Bytes(leafIndex+1))
}

func (tx *writeTransaction) InsertKernel(kernel *externalapi.TransactionKernel,
	headerHash *externalapi.DomainHash) (uint64, error) {

	leafIndex, err := tx.nextLeafIndex(externalapi.MmrTreeKernel)
	if err != nil {
		return 0, err
	}
	return leafIndex, tx.insertKernelAt(kernel, headerHash, leafIndex)
}

func (tx *writeTransaction) InsertKernelViaHorizonSync(kernel *externalapi.TransactionKernel,
	headerHash *externalapi.DomainHash, leafIndex uint64) error {

	err := tx.checkLeafIndex(externalapi.MmrTreeKernel, leafIndex)
	if err != nil {
		return err
	}
	return tx.insertKernelAt(kernel, headerHash, leafIndex)
}

func (tx *writeTransaction) insertOutputEntry(entry *chainstorage.OutputEntry) error {
	err := tx.put(outputKey(entry.LeafIndex), serializeOutputEntry(entry))
	if err != nil {
		return err
	}
	if entry.Output != nil {
		err = tx.put(outputIndexKey(&entry.Output.Commitment), uint64Bytes(entry.LeafIndex))
		if err != nil {
			return err
		}
	}
	return tx.put(mmrSizeKey(externalapi.MmrTreeUtxo), uint64Bytes(entry.LeafIndex+1))
}

func newOutputEntry(output *externalapi.TransactionOutput, headerHash *externalapi.DomainHash,
	minedHeight uint64, leafIndex uint64) *chainstorage.OutputEntry {

	return &chainstorage.OutputEntry{
		Output:         output,
		Hash:           *consensushashing.OutputHash(output),
		RangeProofHash: *consensushashing.RangeProofHash(output.RangeProof),
		HeaderHash:     *headerHash,
		MinedHeight:    minedHeight,
		LeafIndex:      leafIndex,
	}
}

func (tx *writeTransaction) InsertOutput(output *externalapi.TransactionOutput,
	headerHash *externalapi.DomainHash, minedHeight uint64) (uint64, error) {

	leafIndex, err := tx.nextLeafIndex(externalapi.MmrTreeUtxo)
	if err != nil {
		return 0, err
	}
	return leafIndex, tx.insertOutputEntry(newOutputEntry(output, headerHash, minedHeight, leafIndex))
}

func (tx *writeTransaction) InsertOutputViaHorizonSync(output *externalapi.TransactionOutput,
	headerHash *externalapi.DomainHash, minedHeight uint64, leafIndex uint64) error {

	err := tx.checkLeafIndex(externalapi.MmrTreeUtxo, leafIndex)
	if err != nil {
		return err
	}
	return tx.insertOutputEntry(newOutputEntry(output, headerHash, minedHeight, leafIndex))
}

func (tx *writeTransaction) InsertPrunedOutputViaHorizonSync(outputHash *externalapi.DomainHash,
	rangeProofHash *externalapi.DomainHash, headerHash *externalapi.DomainHash,
	minedHeight uint64, leafIndex uint64) error {

	err := tx.checkLeafIndex(externalapi.MmrTreeUtxo, leafIndex)
	if err != nil {
		return err
	}
	return tx.insertOutputEntry(&chainstorage.OutputEntry{
		Hash:           *outputHash,
		RangeProofHash: *rangeProofHash,
		HeaderHash:     *headerHash,
		MinedHeight:    minedHeight,
		LeafIndex:      leafIndex,
	})
}

func (tx *writeTransaction) SetBlockAccumulatedData(headerHash *externalapi.DomainHash,
	data *externalapi.BlockAccumulatedData) error {

	serialized, err := serialization.SerializeBlockAccumulatedData(data)
	if err != nil {
		return err
	}
	return tx.put(blockAccumulatedKey(headerHash), serialized)
}

// updateBlockAccumulatedData applies update to the accumulated data of
// the given block. Missing data starts out empty.
func (tx *writeTransaction) updateBlockAccumulatedData(headerHash *externalapi.DomainHash,
	update func(data *externalapi.BlockAccumulatedData)) error {

	data, err := fetchBlockAccumulatedData(tx.dbTx, headerHash)
	if err != nil {
		if !errors.Is(err, chainstorage.ErrValueNotFound) {
			return err
		}
		data = &externalapi.BlockAccumulatedData{
			Kernels:     &externalapi.PrunedHashSet{},
			Outputs:     &externalapi.PrunedHashSet{},
			RangeProofs: &externalapi.PrunedHashSet{},
			Deleted:     roaring.New(),
		}
	}
	update(data)
	return tx.SetBlockAccumulatedData(headerHash, data)
}

func (tx *writeTransaction) UpdatePrunedHashSet(tree externalapi.MmrTree, headerHash *externalapi.DomainHash,
	prunedHashSet *externalapi.PrunedHashSet) error {

	if tree != externalapi.MmrTreeKernel && tree != externalapi.MmrTreeUtxo && tree != externalapi.MmrTreeRangeProof {
		return errors.Errorf("%s MMR has no pruned hash set", tree)
	}
	return tx.updateBlockAccumulatedData(headerHash, func(data *externalapi.BlockAccumulatedData) {
		switch tree {
		case externalapi.MmrTreeKernel:
			data.Kernels = prunedHashSet.Clone()
		case externalapi.MmrTreeUtxo:
			data.Outputs = prunedHashSet.Clone()
		case externalapi.MmrTreeRangeProof:
			data.RangeProofs = prunedHashSet.Clone()
		}
	})
}

func (tx *writeTransaction) UpdateDeleted(headerHash *externalapi.DomainHash, deleted *roaring.Bitmap) error {
	return tx.updateBlockAccumulatedData(headerHash, func(data *externalapi.BlockAccumulatedData) {
		data.Deleted = deleted.Clone()
	})
}

func (tx *writeTransaction) UpdateKernelSum(headerHash *externalapi.DomainHash,
	kernelSum *externalapi.Commitment) error {

	return tx.updateBlockAccumulatedData(headerHash, func(data *externalapi.BlockAccumulatedData) {
		data.TotalKernelSum = *kernelSum
	})
}

func (tx *writeTransaction) SetChainMetadata(metadata *externalapi.ChainMetadata) error {
	err := tx.putMetadata(metadataKeyBestBlock, metadata.BestBlock.ByteSlice())
	if err != nil {
		return err
	}
	err = tx.putMetadata(metadataKeyChainHeight, uint64Bytes(metadata.ChainHeight))
	if err != nil {
		return err
	}
	accumulatedWork := metadata.AccumulatedWork.Bytes32()
	err = tx.putMetadata(metadataKeyAccumulatedWork, accumulatedWork[:])
	if err != nil {
		return err
	}
	return tx.putMetadata(metadataKeyEffectivePrunedHeight, uint64Bytes(metadata.EffectivePrunedHeight))
}

func (tx *writeTransaction) Commit() error {
	return tx.dbTx.Commit()
}

func (tx *writeTransaction) Rollback() error {
	return tx.dbTx.Rollback()
}

func (tx *writeTransaction) RollbackUnlessClosed() error {
	return tx.dbTx.RollbackUnlessClosed()
}

func (tx *writeTransaction) UpdateUtxoSum(headerHash *externalapi.DomainHash,
	utxoSum *externalapi.Commitment) error {

	return tx.updateBlockAccumulatedData(headerHash, func(data *externalapi.BlockAccumulatedData) {
		data.TotalUtxoSum = *utxoSum
	})
}
