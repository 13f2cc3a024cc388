package serialization

import (
	"math"

	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

const (
	headerFieldVersion = iota + 1
	headerFieldHeight
	headerFieldPrevHash
	headerFieldTimestamp
	headerFieldKernelMr
	headerFieldOutputMr
	headerFieldRangeProofMr
	headerFieldInputMr
	headerFieldWitnessMr
	headerFieldKernelMmrSize
	headerFieldOutputMmrSize
	headerFieldTotalKernelOffset
	headerFieldTotalScriptOffset
	headerFieldPowAlgorithm
	headerFieldPowNonce
	headerFieldPowData
)

// BlockHeaderToRecord encodes a BlockHeader
func BlockHeaderToRecord(header *externalapi.BlockHeader) *RecordWriter {
	w := NewRecordWriter()
	w.Uint64(headerFieldVersion, uint64(header.Version))
	w.Uint64(headerFieldHeight, header.Height)
	w.Hash(headerFieldPrevHash, &header.PrevHash)
	w.Uint64(headerFieldTimestamp, uint64(header.TimestampSeconds))
	w.Hash(headerFieldKernelMr, &header.KernelMr)
	w.Hash(headerFieldOutputMr, &header.OutputMr)
	w.Hash(headerFieldRangeProofMr, &header.RangeProofMr)
	w.Hash(headerFieldInputMr, &header.InputMr)
	w.Hash(headerFieldWitnessMr, &header.WitnessMr)
	w.Uint64(headerFieldKernelMmrSize, header.KernelMmrSize)
	w.Uint64(headerFieldOutputMmrSize, header.OutputMmrSize)
	w.Bytes(headerFieldTotalKernelOffset, header.TotalKernelOffset[:])
	w.Bytes(headerFieldTotalScriptOffset, header.TotalScriptOffset[:])
	w.Uint64(headerFieldPowAlgorithm, uint64(header.Pow.Algorithm))
	w.Uint64(headerFieldPowNonce, header.Pow.Nonce)
	w.Bytes(headerFieldPowData, header.Pow.Data)
	return w
}

// RecordToBlockHeader decodes a BlockHeader
func RecordToBlockHeader(record *Record) (*externalapi.BlockHeader, error) {
	version := record.Uint64(headerFieldVersion)
	if version > math.MaxUint16 {
		return nil, errors.Wrapf(ErrMalformed, "invalid header version %d - bigger than uint16", version)
	}
	powAlgorithm := record.Uint64(headerFieldPowAlgorithm)
	if powAlgorithm > uint64(externalapi.PowAlgorithmSha3) {
		return nil, errors.Wrapf(ErrMalformed, "unknown proof of work algorithm %d", powAlgorithm)
	}

	header := &externalapi.BlockHeader{
		Version:          uint16(version),
		Height:           record.Uint64(headerFieldHeight),
		TimestampSeconds: int64(record.Uint64(headerFieldTimestamp)),
		KernelMmrSize:    record.Uint64(headerFieldKernelMmrSize),
		OutputMmrSize:    record.Uint64(headerFieldOutputMmrSize),
		Pow: externalapi.ProofOfWork{
			Algorithm: externalapi.PowAlgorithm(powAlgorithm),
			Nonce:     record.Uint64(headerFieldPowNonce),
			Data:      record.Bytes(headerFieldPowData),
		},
	}
	hashFields := []struct {
		number int
		dst    *externalapi.DomainHash
	}{
		{headerFieldPrevHash, &header.PrevHash},
		{headerFieldKernelMr, &header.KernelMr},
		{headerFieldOutputMr, &header.OutputMr},
		{headerFieldRangeProofMr, &header.RangeProofMr},
		{headerFieldInputMr, &header.InputMr},
		{headerFieldWitnessMr, &header.WitnessMr},
	}
	for _, field := range hashFields {
		hash, err := record.Hash(protoNumber(field.number))
		if err != nil {
			return nil, err
		}
		*field.dst = *hash
	}
	err := record.Fixed(headerFieldTotalKernelOffset, header.TotalKernelOffset[:])
	if err != nil {
		return nil, err
	}
	err = record.Fixed(headerFieldTotalScriptOffset, header.TotalScriptOffset[:])
	if err != nil {
		return nil, err
	}
	return header, nil
}

// SerializeBlockHeader serializes a BlockHeader
func SerializeBlockHeader(header *externalapi.BlockHeader) []byte {
	return BlockHeaderToRecord(header).Serialize()
}

// DeserializeBlockHeader deserializes a BlockHeader
func DeserializeBlockHeader(data []byte) (*externalapi.BlockHeader, error) {
	record, err := ParseRecord(data)
	if err != nil {
		return nil, err
	}
	return RecordToBlockHeader(record)
}
