package ldbstore

import (
	"github.com/mwnode/basenode/domain/chainstorage"
	"github.com/mwnode/basenode/domain/consensus/database/serialization"
)

const (
	kernelEntryFieldKernel = iota + 1
	kernelEntryFieldHeaderHash
)

const (
	outputEntryFieldOutput = iota + 1
	outputEntryFieldHash
	outputEntryFieldRangeProofHash
	outputEntryFieldHeaderHash
	outputEntryFieldMinedHeight
)

func serializeKernelEntry(entry *chainstorage.KernelEntry) []byte {
	w := serialization.NewRecordWriter()
	w.Message(kernelEntryFieldKernel, serialization.KernelToRecord(entry.Kernel))
	w.Hash(kernelEntryFieldHeaderHash, &entry.HeaderHash)
	return w.Serialize()
}

func deserializeKernelEntry(data []byte, leafIndex uint64) (*chainstorage.KernelEntry, error) {
	record, err := serialization.ParseRecord(data)
	if err != nil {
		return nil, err
	}
	kernelRecord, err := record.Message(kernelEntryFieldKernel)
	if err != nil {
		return nil, err
	}
	kernel, err := serialization.RecordToKernel(kernelRecord)
	if err != nil {
		return nil, err
	}
	headerHash, err := record.Hash(kernelEntryFieldHeaderHash)
	if err != nil {
		return nil, err
	}
	return &chainstorage.KernelEntry{Kernel: kernel, HeaderHash: *headerHash, LeafIndex: leafIndex}, nil
}

func serializeOutputEntry(entry *chainstorage.OutputEntry) []byte {
	w := serialization.NewRecordWriter()
	if entry.Output != nil {
		w.Message(outputEntryFieldOutput, serialization.OutputToRecord(entry.Output))
	}
	w.Hash(outputEntryFieldHash, &entry.Hash)
	w.Hash(outputEntryFieldRangeProofHash, &entry.RangeProofHash)
	w.Hash(outputEntryFieldHeaderHash, &entry.HeaderHash)
	w.Uint64(outputEntryFieldMinedHeight, entry.MinedHeight)
	return w.Serialize()
}

func deserializeOutputEntry(data []byte, leafIndex uint64) (*chainstorage.OutputEntry, error) {
	record, err := serialization.ParseRecord(data)
	if err != nil {
		return nil, err
	}
	entry := &chainstorage.OutputEntry{
		MinedHeight: record.Uint64(outputEntryFieldMinedHeight),
		LeafIndex:   leafIndex,
	}
	if record.Has(outputEntryFieldOutput) {
		outputRecord, err := record.Message(outputEntryFieldOutput)
		if err != nil {
			return nil, err
		}
		entry.Output, err = serialization.RecordToOutput(outputRecord)
		if err != nil {
			return nil, err
		}
	}
	hash, err := record.Hash(outputEntryFieldHash)
	if err != nil {
		return nil, err
	}
	rangeProofHash, err := record.Hash(outputEntryFieldRangeProofHash)
	if err != nil {
		return nil, err
	}
	headerHash, err := record.Hash(outputEntryFieldHeaderHash)
	if err != nil {
		return nil, err
	}
	entry.Hash, entry.RangeProofHash, entry.HeaderHash = *hash, *rangeProofHash, *headerHash
	return entry, nil
}
