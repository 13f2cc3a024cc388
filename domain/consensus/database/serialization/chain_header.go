package serialization

import (
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

const (
	chainHeaderFieldHeader = iota + 1
	chainHeaderFieldAccumulatedData
)

const (
	chainMetadataFieldBestBlock = iota + 1
	chainMetadataFieldChainHeight
	chainMetadataFieldAccumulatedWork
	chainMetadataFieldEffectivePrunedHeight
)

// SerializeChainHeader serializes a ChainHeader
func SerializeChainHeader(chainHeader *externalapi.ChainHeader) []byte {
	w := NewRecordWriter()
	w.Message(chainHeaderFieldHeader, BlockHeaderToRecord(chainHeader.Header))
	w.Message(chainHeaderFieldAccumulatedData, BlockHeaderAccumulatedDataToRecord(chainHeader.AccumulatedData))
	return w.Serialize()
}

// DeserializeChainHeader deserializes a ChainHeader
func DeserializeChainHeader(data []byte) (*externalapi.ChainHeader, error) {
	record, err := ParseRecord(data)
	if err != nil {
		return nil, err
	}
	if !record.Has(chainHeaderFieldHeader) || !record.Has(chainHeaderFieldAccumulatedData) {
		return nil, errors.Wrapf(ErrMalformed, "incomplete chain header")
	}
	header, err := decodeWith(record.Bytes(chainHeaderFieldHeader), RecordToBlockHeader)
	if err != nil {
		return nil, err
	}
	accumulatedData, err := decodeWith(record.Bytes(chainHeaderFieldAccumulatedData),
		RecordToBlockHeaderAccumulatedData)
	if err != nil {
		return nil, err
	}
	return &externalapi.ChainHeader{Header: header, AccumulatedData: accumulatedData}, nil
}

// SerializeChainMetadata serializes a ChainMetadata
func SerializeChainMetadata(metadata *externalapi.ChainMetadata) []byte {
	w := NewRecordWriter()
	w.Hash(chainMetadataFieldBestBlock, &metadata.BestBlock)
	w.Uint64(chainMetadataFieldChainHeight, metadata.ChainHeight)
	writeUint256(w, chainMetadataFieldAccumulatedWork, metadata.AccumulatedWork)
	w.Uint64(chainMetadataFieldEffectivePrunedHeight, metadata.EffectivePrunedHeight)
	return w.Serialize()
}

// DeserializeChainMetadata deserializes a ChainMetadata
func DeserializeChainMetadata(data []byte) (*externalapi.ChainMetadata, error) {
	record, err := ParseRecord(data)
	if err != nil {
		return nil, err
	}
	bestBlock, err := record.Hash(chainMetadataFieldBestBlock)
	if err != nil {
		return nil, err
	}
	accumulatedWork, err := readUint256(record, chainMetadataFieldAccumulatedWork)
	if err != nil {
		return nil, err
	}
	return &externalapi.ChainMetadata{
		BestBlock:             *bestBlock,
		ChainHeight:           record.Uint64(chainMetadataFieldChainHeight),
		AccumulatedWork:       accumulatedWork,
		EffectivePrunedHeight: record.Uint64(chainMetadataFieldEffectivePrunedHeight),
	}, nil
}
