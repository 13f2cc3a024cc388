package appmessage

import (
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
)

// MsgSyncUtxosRequest requests the outputs from output MMR leaf index
// Start up to the header with hash EndHeaderHash
type MsgSyncUtxosRequest struct {
	baseMessage
	Start         uint64
	EndHeaderHash *externalapi.DomainHash
}

// Command returns the protocol command string for the message
func (msg *MsgSyncUtxosRequest) Command() MessageCommand {
	return CmdSyncUtxosRequest
}

// NewMsgSyncUtxosRequest returns a new MsgSyncUtxosRequest.
func NewMsgSyncUtxosRequest(start uint64, endHeaderHash *externalapi.DomainHash) *MsgSyncUtxosRequest {
	return &MsgSyncUtxosRequest{
		Start:         start,
		EndHeaderHash: endHeaderHash,
	}
}

// SyncUtxo is either a full unspent output, or the hashes of an output
// that is spent as of the end header
type SyncUtxo struct {
	Output               *externalapi.TransactionOutput
	PrunedHash           *externalapi.DomainHash
	PrunedRangeProofHash *externalapi.DomainHash
}

// IsPruned returns whether the utxo carries hashes only
func (utxo *SyncUtxo) IsPruned() bool {
	return utxo.Output == nil
}

// MsgSyncUtxosResponse carries the outputs added by one header,
// together with the serialized bitmap of the output MMR leaves that
// header marks as deleted
type MsgSyncUtxosResponse struct {
	baseMessage
	Utxos          []*SyncUtxo
	DeletedBitmaps [][]byte
}

// Command returns the protocol command string for the message
func (msg *MsgSyncUtxosResponse) Command() MessageCommand {
	return CmdSyncUtxosResponse
}

// NewMsgSyncUtxosResponse returns a new MsgSyncUtxosResponse.
func NewMsgSyncUtxosResponse(utxos []*SyncUtxo, deletedBitmaps [][]byte) *MsgSyncUtxosResponse {
	return &MsgSyncUtxosResponse{
		Utxos:          utxos,
		DeletedBitmaps: deletedBitmaps,
	}
}
