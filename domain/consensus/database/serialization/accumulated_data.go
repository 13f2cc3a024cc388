package serialization

import (
	"github.com/RoaringBitmap/roaring"
	"github.com/holiman/uint256"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/utils/mmr"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	prunedHashSetFieldNodeCount = iota + 1
	prunedHashSetFieldLeafCount
	prunedHashSetFieldPeakPositions
	prunedHashSetFieldPeakHashes
)

const (
	blockAccumulatedDataFieldKernels = iota + 1
	blockAccumulatedDataFieldOutputs
	blockAccumulatedDataFieldRangeProofs
	blockAccumulatedDataFieldDeleted
	blockAccumulatedDataFieldTotalKernelSum
	blockAccumulatedDataFieldTotalUtxoSum
)

const (
	headerAccumulatedDataFieldHash = iota + 1
	headerAccumulatedDataFieldTotalKernelOffset
	headerAccumulatedDataFieldMoneroDifficulty
	headerAccumulatedDataFieldSha3Difficulty
	headerAccumulatedDataFieldTotalDifficulty
	headerAccumulatedDataFieldAchievedDifficulty
	headerAccumulatedDataFieldTargetDifficulty
)

// PrunedHashSetToRecord encodes a PrunedHashSet
func PrunedHashSetToRecord(set *externalapi.PrunedHashSet) *RecordWriter {
	w := NewRecordWriter()
	w.Uint64(prunedHashSetFieldNodeCount, set.NodeCount)
	w.Uint64(prunedHashSetFieldLeafCount, set.LeafCount)
	var packedPositions []byte
	for _, position := range set.PeakPositions {
		packedPositions = protowire.AppendVarint(packedPositions, position)
	}
	w.Bytes(prunedHashSetFieldPeakPositions, packedPositions)
	for i := range set.PeakHashes {
		w.RepeatedBytes(prunedHashSetFieldPeakHashes, set.PeakHashes[i].ByteSlice())
	}
	return w
}

// RecordToPrunedHashSet decodes a PrunedHashSet and checks it is consistent
func RecordToPrunedHashSet(record *Record) (*externalapi.PrunedHashSet, error) {
	set := &externalapi.PrunedHashSet{
		NodeCount:     record.Uint64(prunedHashSetFieldNodeCount),
		LeafCount:     record.Uint64(prunedHashSetFieldLeafCount),
		PeakPositions: []uint64{},
		PeakHashes:    []externalapi.DomainHash{},
	}
	packedPositions := record.Bytes(prunedHashSetFieldPeakPositions)
	for len(packedPositions) > 0 {
		position, n := protowire.ConsumeVarint(packedPositions)
		if n < 0 {
			return nil, errors.Wrapf(ErrMalformed, "peak positions: %s", protowire.ParseError(n))
		}
		set.PeakPositions = append(set.PeakPositions, position)
		packedPositions = packedPositions[n:]
	}
	for _, hashBytes := range record.RepeatedBytes(prunedHashSetFieldPeakHashes) {
		hash, err := externalapi.NewDomainHashFromByteSlice(hashBytes)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformed, "peak hash: %s", err)
		}
		set.PeakHashes = append(set.PeakHashes, *hash)
	}
	err := mmr.ValidatePrunedHashSet(set)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "%s", err)
	}
	return set, nil
}

// SerializePrunedHashSet serializes a PrunedHashSet
func SerializePrunedHashSet(set *externalapi.PrunedHashSet) []byte {
	return PrunedHashSetToRecord(set).Serialize()
}

// DeserializePrunedHashSet deserializes a PrunedHashSet
func DeserializePrunedHashSet(data []byte) (*externalapi.PrunedHashSet, error) {
	return decodeWith(data, RecordToPrunedHashSet)
}

// SerializeDeletedBitmap serializes a deletion bitmap in the portable
// roaring format
func SerializeDeletedBitmap(deleted *roaring.Bitmap) ([]byte, error) {
	if deleted == nil {
		deleted = roaring.New()
	}
	data, err := deleted.ToBytes()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// DeserializeDeletedBitmap deserializes a deletion bitmap
func DeserializeDeletedBitmap(data []byte) (*roaring.Bitmap, error) {
	deleted := roaring.New()
	if len(data) == 0 {
		return deleted, nil
	}
	err := deleted.UnmarshalBinary(data)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformed, "deleted bitmap: %s", err)
	}
	return deleted, nil
}

// BlockAccumulatedDataToRecord encodes a BlockAccumulatedData
func BlockAccumulatedDataToRecord(data *externalapi.BlockAccumulatedData) (*RecordWriter, error) {
	deleted, err := SerializeDeletedBitmap(data.Deleted)
	if err != nil {
		return nil, err
	}
	w := NewRecordWriter()
	w.Message(blockAccumulatedDataFieldKernels, PrunedHashSetToRecord(data.Kernels))
	w.Message(blockAccumulatedDataFieldOutputs, PrunedHashSetToRecord(data.Outputs))
	w.Message(blockAccumulatedDataFieldRangeProofs, PrunedHashSetToRecord(data.RangeProofs))
	w.RepeatedBytes(blockAccumulatedDataFieldDeleted, deleted)
	w.Bytes(blockAccumulatedDataFieldTotalKernelSum, data.TotalKernelSum[:])
	w.Bytes(blockAccumulatedDataFieldTotalUtxoSum, data.TotalUtxoSum[:])
	return w, nil
}

// RecordToBlockAccumulatedData decodes a BlockAccumulatedData
func RecordToBlockAccumulatedData(record *Record) (*externalapi.BlockAccumulatedData, error) {
	data := &externalapi.BlockAccumulatedData{}
	setFields := []struct {
		number int
		dst    **externalapi.PrunedHashSet
	}{
		{blockAccumulatedDataFieldKernels, &data.Kernels},
		{blockAccumulatedDataFieldOutputs, &data.Outputs},
		{blockAccumulatedDataFieldRangeProofs, &data.RangeProofs},
	}
	for _, field := range setFields {
		set, err := decodeWith(record.Bytes(protoNumber(field.number)), RecordToPrunedHashSet)
		if err != nil {
			return nil, err
		}
		*field.dst = set
	}
	deleted, err := DeserializeDeletedBitmap(record.Bytes(blockAccumulatedDataFieldDeleted))
	if err != nil {
		return nil, err
	}
	data.Deleted = deleted
	err = record.Fixed(blockAccumulatedDataFieldTotalKernelSum, data.TotalKernelSum[:])
	if err != nil {
		return nil, err
	}
	err = record.Fixed(blockAccumulatedDataFieldTotalUtxoSum, data.TotalUtxoSum[:])
	if err != nil {
		return nil, err
	}
	return data, nil
}

// SerializeBlockAccumulatedData serializes a BlockAccumulatedData
func SerializeBlockAccumulatedData(data *externalapi.BlockAccumulatedData) ([]byte, error) {
	w, err := BlockAccumulatedDataToRecord(data)
	if err != nil {
		return nil, err
	}
	return w.Serialize(), nil
}

// DeserializeBlockAccumulatedData deserializes a BlockAccumulatedData
func DeserializeBlockAccumulatedData(data []byte) (*externalapi.BlockAccumulatedData, error) {
	return decodeWith(data, RecordToBlockAccumulatedData)
}

func writeUint256(w *RecordWriter, number protowire.Number, value *uint256.Int) {
	if value == nil {
		return
	}
	bytes := value.Bytes32()
	w.Bytes(number, bytes[:])
}

func readUint256(record *Record, number protowire.Number) (*uint256.Int, error) {
	value := record.Bytes(number)
	if len(value) > 32 {
		return nil, errors.Wrapf(ErrMalformed, "field %d: %d bytes don't fit a uint256", number, len(value))
	}
	return new(uint256.Int).SetBytes(value), nil
}

// BlockHeaderAccumulatedDataToRecord encodes a BlockHeaderAccumulatedData
func BlockHeaderAccumulatedDataToRecord(data *externalapi.BlockHeaderAccumulatedData) *RecordWriter {
	w := NewRecordWriter()
	w.Hash(headerAccumulatedDataFieldHash, &data.Hash)
	w.Bytes(headerAccumulatedDataFieldTotalKernelOffset, data.TotalKernelOffset[:])
	writeUint256(w, headerAccumulatedDataFieldMoneroDifficulty, data.AccumulatedMoneroDifficulty)
	writeUint256(w, headerAccumulatedDataFieldSha3Difficulty, data.AccumulatedSha3Difficulty)
	writeUint256(w, headerAccumulatedDataFieldTotalDifficulty, data.TotalAccumulatedDifficulty)
	w.Uint64(headerAccumulatedDataFieldAchievedDifficulty, data.AchievedDifficulty)
	w.Uint64(headerAccumulatedDataFieldTargetDifficulty, data.TargetDifficulty)
	return w
}

// RecordToBlockHeaderAccumulatedData decodes a BlockHeaderAccumulatedData
func RecordToBlockHeaderAccumulatedData(record *Record) (*externalapi.BlockHeaderAccumulatedData, error) {
	hash, err := record.Hash(headerAccumulatedDataFieldHash)
	if err != nil {
		return nil, err
	}
	data := &externalapi.BlockHeaderAccumulatedData{
		Hash:               *hash,
		AchievedDifficulty: record.Uint64(headerAccumulatedDataFieldAchievedDifficulty),
		TargetDifficulty:   record.Uint64(headerAccumulatedDataFieldTargetDifficulty),
	}
	err = record.Fixed(headerAccumulatedDataFieldTotalKernelOffset, data.TotalKernelOffset[:])
	if err != nil {
		return nil, err
	}
	data.AccumulatedMoneroDifficulty, err = readUint256(record, headerAccumulatedDataFieldMoneroDifficulty)
	if err != nil {
		return nil, err
	}
	data.AccumulatedSha3Difficulty, err = readUint256(record, headerAccumulatedDataFieldSha3Difficulty)
	if err != nil {
		return nil, err
	}
	data.TotalAccumulatedDifficulty, err = readUint256(record, headerAccumulatedDataFieldTotalDifficulty)
	if err != nil {
		return nil, err
	}
	return data, nil
}
