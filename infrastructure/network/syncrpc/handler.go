package syncrpc

import (
	"context"

	"github.com/RoaringBitmap/roaring"
	"github.com/mwnode/basenode/app/appmessage"
	"github.com/mwnode/basenode/domain/chainstorage"
	"github.com/mwnode/basenode/domain/consensus/database/serialization"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/infrastructure/logger"
	"github.com/pkg/errors"
)

// maxKernelsPerMessage is the number of kernels sent in a single chunk
// of a kernel stream
const maxKernelsPerMessage = 1000

// ErrInvalidRequest is returned when a sync request can't be served
// from the local chain
var ErrInvalidRequest = errors.New("invalid sync request")

// Handler serves the horizon sync RPCs from a chain store
type Handler struct {
	backend chainstorage.BlockchainBackend
}

// NewHandler returns a Handler serving from backend
func NewHandler(backend chainstorage.BlockchainBackend) *Handler {
	return &Handler{backend: backend}
}

// HandleSyncKernels passes the kernels requested by request to send, in
// leaf order and in chunks of at most maxKernelsPerMessage
func (h *Handler) HandleSyncKernels(ctx context.Context, request *appmessage.MsgSyncKernelsRequest,
	send func(response *appmessage.MsgSyncKernelsResponse) error) error {

	onEnd := logger.LogAndMeasureExecutionTime(log, "HandleSyncKernels")
	defer onEnd()

	if request.Start > request.End {
		return errors.Wrapf(ErrInvalidRequest, "kernel range [%d, %d) is reversed", request.Start, request.End)
	}
	kernelMmrSize, err := h.backend.FetchMmrSize(externalapi.MmrTreeKernel)
	if err != nil {
		return err
	}
	if request.End > kernelMmrSize {
		return errors.Wrapf(ErrInvalidRequest, "kernel range [%d, %d) exceeds the %d known kernels",
			request.Start, request.End, kernelMmrSize)
	}
	log.Debugf("Sending kernels [%d, %d)", request.Start, request.End)

	for chunkStart := request.Start; chunkStart < request.End; chunkStart += maxKernelsPerMessage {
		err := ctx.Err()
		if err != nil {
			return errors.WithStack(err)
		}

		chunkEnd := chunkStart + maxKernelsPerMessage
		if chunkEnd > request.End {
			chunkEnd = request.End
		}
		entries, err := h.backend.FetchKernelsByMmrPosition(chunkStart, chunkEnd)
		if err != nil {
			return err
		}
		kernels := make([]*externalapi.TransactionKernel, len(entries))
		for i, entry := range entries {
			kernels[i] = entry.Kernel
		}
		err = send(appmessage.NewMsgSyncKernelsResponse(kernels))
		if err != nil {
			return err
		}
	}
	return nil
}

// HandleSyncUtxos passes one response per header to send, from the
// first header not covered by an output MMR of request.Start leaves up
// to the requested end header. Outputs spent as of the end header are
// sent as hashes only.
func (h *Handler) HandleSyncUtxos(ctx context.Context, request *appmessage.MsgSyncUtxosRequest,
	send func(response *appmessage.MsgSyncUtxosResponse) error) error {

	onEnd := logger.LogAndMeasureExecutionTime(log, "HandleSyncUtxos")
	defer onEnd()

	if request.EndHeaderHash == nil {
		return errors.Wrapf(ErrInvalidRequest, "missing end header hash")
	}
	endHeader, err := h.backend.FetchHeaderByHash(request.EndHeaderHash)
	if err != nil {
		if chainstorage.IsNotFoundError(err) {
			return errors.Wrapf(ErrInvalidRequest, "unknown end header %s", request.EndHeaderHash)
		}
		return err
	}
	if request.Start > endHeader.Header.OutputMmrSize {
		return errors.Wrapf(ErrInvalidRequest, "start %d is past the %d outputs of end header %s",
			request.Start, endHeader.Header.OutputMmrSize, request.EndHeaderHash)
	}
	endData, err := h.backend.FetchBlockAccumulatedData(endHeader.Hash())
	if err != nil {
		if chainstorage.IsNotFoundError(err) {
			return errors.Wrapf(ErrInvalidRequest, "no block data for end header %s", request.EndHeaderHash)
		}
		return err
	}

	startHeader, err := chainstorage.FetchSyncStartHeader(h.backend, externalapi.MmrTreeUtxo, request.Start)
	if err != nil && !chainstorage.IsNotFoundError(err) {
		return err
	}
	if err != nil || startHeader.Height() > endHeader.Height() {
		log.Debugf("Nothing to send for outputs from %d", request.Start)
		return nil
	}
	log.Debugf("Sending outputs from %d, headers %d to %d",
		request.Start, startHeader.Height(), endHeader.Height())

	previousDeleted := roaring.New()
	previousOutputMmrSize := uint64(0)
	if startHeader.Height() > 0 {
		previousHeader, err := h.backend.FetchChainHeader(startHeader.Height() - 1)
		if err != nil {
			return err
		}
		previousData, err := h.backend.FetchBlockAccumulatedData(previousHeader.Hash())
		if err != nil {
			return err
		}
		previousDeleted = previousData.Deleted
		previousOutputMmrSize = previousHeader.Header.OutputMmrSize
	}

	position := request.Start
	for height := startHeader.Height(); height <= endHeader.Height(); height++ {
		err := ctx.Err()
		if err != nil {
			return errors.WithStack(err)
		}

		chainHeader, err := h.backend.FetchChainHeader(height)
		if err != nil {
			return err
		}
		data, err := h.backend.FetchBlockAccumulatedData(chainHeader.Hash())
		if err != nil {
			return err
		}
		if position < previousOutputMmrSize {
			position = previousOutputMmrSize
		}
		entries, err := h.backend.FetchOutputsByMmrPosition(position, chainHeader.Header.OutputMmrSize)
		if err != nil {
			return err
		}

		utxos := make([]*appmessage.SyncUtxo, len(entries))
		for i, entry := range entries {
			utxos[i] = syncUtxoFromEntry(entry, endData.Deleted)
		}
		deletedDiff := roaring.AndNot(data.Deleted, previousDeleted)
		serializedDiff, err := serialization.SerializeDeletedBitmap(deletedDiff)
		if err != nil {
			return err
		}
		err = send(appmessage.NewMsgSyncUtxosResponse(utxos, [][]byte{serializedDiff}))
		if err != nil {
			return err
		}

		position = chainHeader.Header.OutputMmrSize
		previousOutputMmrSize = chainHeader.Header.OutputMmrSize
		previousDeleted = data.Deleted
	}
	return nil
}

func syncUtxoFromEntry(entry *chainstorage.OutputEntry, spent *roaring.Bitmap) *appmessage.SyncUtxo {
	isSpent := entry.LeafIndex <= uint64(^uint32(0)) && spent.Contains(uint32(entry.LeafIndex))
	if entry.IsPruned() || isSpent {
		hash := entry.Hash
		rangeProofHash := entry.RangeProofHash
		return &appmessage.SyncUtxo{
			PrunedHash:           &hash,
			PrunedRangeProofHash: &rangeProofHash,
		}
	}
	return &appmessage.SyncUtxo{Output: entry.Output.Clone()}
}
