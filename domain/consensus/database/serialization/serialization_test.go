package serialization

import (
	"reflect"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/davecgh/go-spew/spew"
	"github.com/holiman/uint256"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/utils/mmr"
	"github.com/pkg/errors"
)

func testHash(b byte) externalapi.DomainHash {
	var array [externalapi.DomainHashSize]byte
	for i := range array {
		array[i] = b
	}
	return *externalapi.NewDomainHashFromByteArray(&array)
}

func TestBlockSerialization(t *testing.T) {
	block := &externalapi.Block{
		Header: &externalapi.BlockHeader{
			Version:           1,
			Height:            10,
			PrevHash:          testHash(1),
			TimestampSeconds:  1_700_000_000,
			KernelMr:          testHash(2),
			OutputMr:          testHash(3),
			RangeProofMr:      testHash(4),
			InputMr:           testHash(5),
			KernelMmrSize:     12,
			OutputMmrSize:     30,
			TotalKernelOffset: externalapi.Scalar{7, 7, 7},
			Pow:               externalapi.ProofOfWork{Algorithm: externalapi.PowAlgorithmSha3, Nonce: 99, Data: []byte{1, 2}},
		},
		Body: externalapi.AggregateBody{
			Inputs: []*externalapi.TransactionInput{{
				Features:        externalapi.OutputFeatures{Maturity: 3, Metadata: []byte{9}},
				Commitment:      externalapi.Commitment{0x02, 1},
				ScriptPublicKey: externalapi.PublicKey{0x03, 2},
			}},
			Outputs: []*externalapi.TransactionOutput{{
				Features:              externalapi.OutputFeatures{Flags: externalapi.OutputFlagCoinbase, Maturity: 20, Metadata: []byte{8}},
				Commitment:            externalapi.Commitment{0x02, 3},
				RangeProof:            []byte{4, 5, 6},
				SenderOffsetPublicKey: externalapi.PublicKey{0x02, 4},
			}},
			Kernels: []*externalapi.TransactionKernel{{
				Features:   externalapi.KernelFeatureCoinbase,
				Fee:        0,
				LockHeight: 10,
				Excess:     externalapi.Commitment{0x03, 5},
				ExcessSig:  externalapi.Signature{6},
			}},
		},
	}

	deserialized, err := DeserializeBlock(SerializeBlock(block))
	if err != nil {
		t.Fatalf("TestBlockSerialization: DeserializeBlock: %+v", err)
	}
	if !reflect.DeepEqual(block, deserialized) {
		t.Fatalf("TestBlockSerialization: expected %s, got %s", spew.Sdump(block), spew.Sdump(deserialized))
	}
}

func TestBlockAccumulatedDataSerialization(t *testing.T) {
	mutable := mmr.NewMutable(nil, nil)
	for i := byte(0); i < 9; i++ {
		hash := testHash(i)
		mutable.Push(&hash)
	}
	err := mutable.Delete(4)
	if err != nil {
		t.Fatalf("TestBlockAccumulatedDataSerialization: Delete: %+v", err)
	}
	data := &externalapi.BlockAccumulatedData{
		Kernels:        mmr.New(nil).PrunedHashSet(),
		Outputs:        mutable.PrunedHashSet(),
		RangeProofs:    mutable.PrunedHashSet(),
		Deleted:        mutable.Deleted(),
		TotalKernelSum: externalapi.Commitment{0x02, 9},
	}
	serialized, err := SerializeBlockAccumulatedData(data)
	if err != nil {
		t.Fatalf("TestBlockAccumulatedDataSerialization: SerializeBlockAccumulatedData: %+v", err)
	}
	deserialized, err := DeserializeBlockAccumulatedData(serialized)
	if err != nil {
		t.Fatalf("TestBlockAccumulatedDataSerialization: DeserializeBlockAccumulatedData: %+v", err)
	}
	if !deserialized.Deleted.Equals(data.Deleted) {
		t.Fatalf("TestBlockAccumulatedDataSerialization: deleted bitmaps differ")
	}
	deserialized.Deleted, data.Deleted = nil, nil
	if !reflect.DeepEqual(data, deserialized) {
		t.Fatalf("TestBlockAccumulatedDataSerialization: expected %s, got %s", spew.Sdump(data), spew.Sdump(deserialized))
	}
}

func TestChainHeaderSerialization(t *testing.T) {
	chainHeader := &externalapi.ChainHeader{
		Header: &externalapi.BlockHeader{Version: 1, Height: 3, PrevHash: testHash(9), Pow: externalapi.ProofOfWork{Data: []byte{1}}},
		AccumulatedData: &externalapi.BlockHeaderAccumulatedData{
			Hash:                        testHash(8),
			AccumulatedMoneroDifficulty: uint256.NewInt(5),
			AccumulatedSha3Difficulty:   uint256.NewInt(7),
			TotalAccumulatedDifficulty:  uint256.NewInt(35),
			AchievedDifficulty:          3,
			TargetDifficulty:            2,
		},
	}
	deserialized, err := DeserializeChainHeader(SerializeChainHeader(chainHeader))
	if err != nil {
		t.Fatalf("TestChainHeaderSerialization: DeserializeChainHeader: %+v", err)
	}
	if !deserialized.AccumulatedData.TotalAccumulatedDifficulty.Eq(uint256.NewInt(35)) {
		t.Fatalf("TestChainHeaderSerialization: unexpected total difficulty %s",
			deserialized.AccumulatedData.TotalAccumulatedDifficulty.ToBig())
	}
	if !deserialized.Hash().Equal(chainHeader.Hash()) || deserialized.Height() != 3 {
		t.Fatalf("TestChainHeaderSerialization: unexpected chain header %s", spew.Sdump(deserialized))
	}
}

func TestMalformedRecords(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "truncated varint", data: []byte{0x08, 0xff}},
		{name: "truncated bytes", data: []byte{0x12, 0x05, 0x01}},
	}
	for _, test := range tests {
		_, err := DeserializeKernel(test.data)
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("TestMalformedRecords: %s: expected ErrMalformed, got %v", test.name, err)
		}
	}

	w := NewRecordWriter()
	w.Bytes(kernelFieldExcess, []byte{1, 2, 3})
	_, err := DeserializeKernel(w.Serialize())
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("TestMalformedRecords: short excess: expected ErrMalformed, got %v", err)
	}

	w = NewRecordWriter()
	w.Uint64(prunedHashSetFieldNodeCount, 2)
	_, err = DeserializePrunedHashSet(w.Serialize())
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("TestMalformedRecords: invalid pruned hash set: expected ErrMalformed, got %v", err)
	}

	_, err = DeserializeDeletedBitmap([]byte{1, 2, 3})
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("TestMalformedRecords: invalid bitmap: expected ErrMalformed, got %v", err)
	}
	empty, err := DeserializeDeletedBitmap(nil)
	if err != nil || !empty.Equals(roaring.New()) {
		t.Fatalf("TestMalformedRecords: empty bitmap: %v", err)
	}
}
