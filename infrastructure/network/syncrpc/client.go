package syncrpc

import (
	"context"

	"github.com/mwnode/basenode/app/appmessage"
)

// KernelStream yields the chunks of a kernel sync. Recv returns io.EOF
// once the peer finished sending.
type KernelStream interface {
	Recv() (*appmessage.MsgSyncKernelsResponse, error)
}

// UtxoStream yields one response per header of an output sync. Recv
// returns io.EOF once the peer finished sending.
type UtxoStream interface {
	Recv() (*appmessage.MsgSyncUtxosResponse, error)
}

// SyncClient is the client side of the horizon sync RPCs. Streams are
// bound to the context they were opened with.
type SyncClient interface {
	SyncKernels(ctx context.Context, request *appmessage.MsgSyncKernelsRequest) (KernelStream, error)
	SyncUtxos(ctx context.Context, request *appmessage.MsgSyncUtxosRequest) (UtxoStream, error)
}
