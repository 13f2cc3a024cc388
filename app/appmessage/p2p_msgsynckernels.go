package appmessage

import (
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
)

// MsgSyncKernelsRequest requests the kernels at kernel MMR leaf
// indices [Start, End)
type MsgSyncKernelsRequest struct {
	baseMessage
	Start uint64
	End   uint64
}

// Command returns the protocol command string for the message
func (msg *MsgSyncKernelsRequest) Command() MessageCommand {
	return CmdSyncKernelsRequest
}

// NewMsgSyncKernelsRequest returns a new MsgSyncKernelsRequest.
func NewMsgSyncKernelsRequest(start uint64, end uint64) *MsgSyncKernelsRequest {
	return &MsgSyncKernelsRequest{
		Start: start,
		End:   end,
	}
}

// MsgSyncKernelsResponse is one chunk of a kernel stream. Kernels are
// ordered by leaf index.
type MsgSyncKernelsResponse struct {
	baseMessage
	Kernels []*externalapi.TransactionKernel
}

// Command returns the protocol command string for the message
func (msg *MsgSyncKernelsResponse) Command() MessageCommand {
	return CmdSyncKernelsResponse
}

// NewMsgSyncKernelsResponse returns a new MsgSyncKernelsResponse.
func NewMsgSyncKernelsResponse(kernels []*externalapi.TransactionKernel) *MsgSyncKernelsResponse {
	return &MsgSyncKernelsResponse{
		Kernels: kernels,
	}
}
