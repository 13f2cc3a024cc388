package syncrpc

import (
	"github.com/mwnode/basenode/app/appmessage"
	"github.com/mwnode/basenode/app/protocol/protocolerrors"
	"github.com/mwnode/basenode/domain/consensus/database/serialization"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
)

const (
	kernelsRequestFieldStart = iota + 1
	kernelsRequestFieldEnd
)

const (
	kernelsResponseFieldKernels = iota + 1
)

const (
	utxosRequestFieldStart = iota + 1
	utxosRequestFieldEndHeaderHash
)

const (
	utxosResponseFieldUtxos = iota + 1
	utxosResponseFieldDeletedBitmaps
)

const (
	syncUtxoFieldOutput = iota + 1
	syncUtxoFieldPrunedHash
	syncUtxoFieldPrunedRangeProofHash
)

func encodeSyncKernelsRequest(request *appmessage.MsgSyncKernelsRequest) []byte {
	w := serialization.NewRecordWriter()
	w.Uint64(kernelsRequestFieldStart, request.Start)
	w.Uint64(kernelsRequestFieldEnd, request.End)
	return w.Serialize()
}

func decodeSyncKernelsRequest(data []byte) (*appmessage.MsgSyncKernelsRequest, error) {
	record, err := serialization.ParseRecord(data)
	if err != nil {
		return nil, err
	}
	return appmessage.NewMsgSyncKernelsRequest(
		record.Uint64(kernelsRequestFieldStart), record.Uint64(kernelsRequestFieldEnd)), nil
}

func encodeSyncKernelsResponse(response *appmessage.MsgSyncKernelsResponse) []byte {
	w := serialization.NewRecordWriter()
	for _, kernel := range response.Kernels {
		w.Message(kernelsResponseFieldKernels, serialization.KernelToRecord(kernel))
	}
	return w.Serialize()
}

func decodeSyncKernelsResponse(data []byte) (*appmessage.MsgSyncKernelsResponse, error) {
	record, err := serialization.ParseRecord(data)
	if err != nil {
		return nil, protocolerrors.Wrapf(true, protocolerrors.ErrConversion, "kernels response: %s", err)
	}
	kernelsData := record.RepeatedBytes(kernelsResponseFieldKernels)
	kernels := make([]*externalapi.TransactionKernel, 0, len(kernelsData))
	for i, kernelData := range kernelsData {
		kernel, err := serialization.DeserializeKernel(kernelData)
		if err != nil {
			return nil, protocolerrors.Wrapf(true, protocolerrors.ErrConversion, "kernel %d: %s", i, err)
		}
		kernels = append(kernels, kernel)
	}
	return appmessage.NewMsgSyncKernelsResponse(kernels), nil
}

func encodeSyncUtxosRequest(request *appmessage.MsgSyncUtxosRequest) []byte {
	w := serialization.NewRecordWriter()
	w.Uint64(utxosRequestFieldStart, request.Start)
	if request.EndHeaderHash != nil {
		w.Hash(utxosRequestFieldEndHeaderHash, request.EndHeaderHash)
	}
	return w.Serialize()
}

func decodeSyncUtxosRequest(data []byte) (*appmessage.MsgSyncUtxosRequest, error) {
	record, err := serialization.ParseRecord(data)
	if err != nil {
		return nil, err
	}
	endHeaderHash, err := record.Hash(utxosRequestFieldEndHeaderHash)
	if err != nil {
		return nil, err
	}
	return appmessage.NewMsgSyncUtxosRequest(record.Uint64(utxosRequestFieldStart), endHeaderHash), nil
}

func encodeSyncUtxo(utxo *appmessage.SyncUtxo) *serialization.RecordWriter {
	w := serialization.NewRecordWriter()
	if utxo.Output != nil {
		w.Message(syncUtxoFieldOutput, serialization.OutputToRecord(utxo.Output))
	}
	if utxo.PrunedHash != nil {
		w.RepeatedBytes(syncUtxoFieldPrunedHash, utxo.PrunedHash.ByteSlice())
	}
	if utxo.PrunedRangeProofHash != nil {
		w.RepeatedBytes(syncUtxoFieldPrunedRangeProofHash, utxo.PrunedRangeProofHash.ByteSlice())
	}
	return w
}

// decodeSyncUtxo keeps absent fields nil so that the receiver can tell
// full outputs from pruned ones
func decodeSyncUtxo(data []byte) (*appmessage.SyncUtxo, error) {
	record, err := serialization.ParseRecord(data)
	if err != nil {
		return nil, err
	}
	utxo := &appmessage.SyncUtxo{}
	if record.Has(syncUtxoFieldOutput) {
		utxo.Output, err = serialization.DeserializeOutput(record.Bytes(syncUtxoFieldOutput))
		if err != nil {
			return nil, err
		}
	}
	if record.Has(syncUtxoFieldPrunedHash) {
		utxo.PrunedHash, err = externalapi.NewDomainHashFromByteSlice(record.Bytes(syncUtxoFieldPrunedHash))
		if err != nil {
			return nil, err
		}
	}
	if record.Has(syncUtxoFieldPrunedRangeProofHash) {
		utxo.PrunedRangeProofHash, err = externalapi.NewDomainHashFromByteSlice(
			record.Bytes(syncUtxoFieldPrunedRangeProofHash))
		if err != nil {
			return nil, err
		}
	}
	return utxo, nil
}

func encodeSyncUtxosResponse(response *appmessage.MsgSyncUtxosResponse) []byte {
	w := serialization.NewRecordWriter()
	for _, utxo := range response.Utxos {
		w.Message(utxosResponseFieldUtxos, encodeSyncUtxo(utxo))
	}
	for _, deletedBitmap := range response.DeletedBitmaps {
		w.RepeatedBytes(utxosResponseFieldDeletedBitmaps, deletedBitmap)
	}
	return w.Serialize()
}

func decodeSyncUtxosResponse(data []byte) (*appmessage.MsgSyncUtxosResponse, error) {
	record, err := serialization.ParseRecord(data)
	if err != nil {
		return nil, protocolerrors.Wrapf(true, protocolerrors.ErrConversion, "utxos response: %s", err)
	}
	utxosData := record.RepeatedBytes(utxosResponseFieldUtxos)
	utxos := make([]*appmessage.SyncUtxo, 0, len(utxosData))
	for i, utxoData := range utxosData {
		utxo, err := decodeSyncUtxo(utxoData)
		if err != nil {
			return nil, protocolerrors.Wrapf(true, protocolerrors.ErrConversion, "utxo %d: %s", i, err)
		}
		utxos = append(utxos, utxo)
	}
	return appmessage.NewMsgSyncUtxosResponse(utxos, record.RepeatedBytes(utxosResponseFieldDeletedBitmaps)), nil
}
