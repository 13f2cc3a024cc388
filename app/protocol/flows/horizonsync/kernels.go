package horizonsync

import (
	"context"
	"io"

	"github.com/mwnode/basenode/app/appmessage"
	"github.com/mwnode/basenode/app/protocol/protocolerrors"
	"github.com/mwnode/basenode/app/protocol/syncpeers"
	"github.com/mwnode/basenode/domain/chainstorage"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/processes/mmrcalculator"
	"github.com/mwnode/basenode/domain/consensus/ruleerrors"
	"github.com/mwnode/basenode/domain/consensus/utils/commitment"
	"github.com/mwnode/basenode/domain/consensus/utils/consensushashing"
	"github.com/mwnode/basenode/domain/consensus/utils/mmr"
	"github.com/pkg/errors"
)

// kernelSync is the progress of a kernel download. current is the
// header the next kernel belongs to, or nil once the horizon header
// was committed.
type kernelSync struct {
	*Synchronizer
	txn       chainstorage.WriteTransaction
	current   *externalapi.ChainHeader
	kernelMmr *mmr.MerkleMountainRange
	kernelSum *commitment.Point
}

func (s *Synchronizer) syncKernels(ctx context.Context, peer *syncpeers.SyncPeer) error {
	local, err := s.backend.FetchMmrSize(externalapi.MmrTreeKernel)
	if err != nil {
		return err
	}
	remote := s.horizonHeader.Header.KernelMmrSize
	if local >= remote {
		log.Debugf("Already have %d of %d kernels", local, remote)
		return nil
	}
	log.Infof("Syncing kernels %d to %d", local, remote)

	current, err := chainstorage.FetchSyncStartHeader(s.backend, externalapi.MmrTreeKernel, local)
	if err != nil {
		return err
	}
	previousData, err := s.accumulatedDataBefore(current)
	if err != nil {
		return err
	}
	kernelMmr := mmr.New(previousData.Kernels)
	if kernelMmr.LeafCount() != local {
		return errors.Errorf("kernel MMR at height %d holds %d kernels but the store holds %d",
			current.Height()-1, kernelMmr.LeafCount(), local)
	}
	kernelSum, err := commitment.Sum(previousData.TotalKernelSum)
	if err != nil {
		return err
	}

	txn, err := s.backend.WriteTransaction()
	if err != nil {
		return err
	}
	ks := &kernelSync{
		Synchronizer: s,
		txn:          txn,
		current:      current,
		kernelMmr:    kernelMmr,
		kernelSum:    kernelSum,
	}
	defer func() {
		if ks.txn != nil {
			ks.txn.RollbackUnlessClosed()
		}
	}()

	err = ks.completeHeadersWithoutKernels(ctx)
	if err != nil {
		return err
	}
	if ks.current == nil {
		return nil
	}

	client, err := s.connect(ctx, peer)
	if err != nil {
		return err
	}
	stream, err := client.SyncKernels(ctx, appmessage.NewMsgSyncKernelsRequest(local, remote))
	if err != nil {
		return err
	}
	for ks.current != nil {
		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return protocolerrors.Wrapf(true, protocolerrors.ErrEmptyResponse,
					"kernel stream ended at kernel %d of %d", ks.kernelMmr.LeafCount(), remote)
			}
			return err
		}
		if len(response.Kernels) == 0 {
			return protocolerrors.Wrapf(true, protocolerrors.ErrEmptyResponse, "received an empty kernel chunk")
		}

		for _, kernel := range response.Kernels {
			if ks.current == nil {
				return protocolerrors.Wrapf(true, protocolerrors.ErrIncorrectResponse,
					"received more than the %d requested kernels", remote-local)
			}
			err := ks.absorbKernel(ctx, kernel)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func checkKernelResponse(kernel *externalapi.TransactionKernel) error {
	err := commitment.VerifyKernelSignature(kernel)
	if err != nil {
		return protocolerrors.Wrapf(true, protocolerrors.ErrInvalidKernelSignature, "%s", err)
	}
	return nil
}

func (ks *kernelSync) absorbKernel(ctx context.Context, kernel *externalapi.TransactionKernel) error {
	err := checkKernelResponse(kernel)
	if err != nil {
		return err
	}
	excess, err := commitment.ParsePoint(&kernel.Excess)
	if err != nil {
		return protocolerrors.Wrapf(true, protocolerrors.ErrIncorrectResponse, "kernel excess: %s", err)
	}

	err = ks.txn.InsertKernelViaHorizonSync(kernel, ks.current.Hash(), ks.kernelMmr.LeafCount())
	if err != nil {
		return err
	}
	ks.kernelMmr.Push(consensushashing.KernelHash(kernel))
	ks.kernelSum = ks.kernelSum.Add(excess)
	ks.metrics.kernelsSynced.Inc()

	if ks.kernelMmr.LeafCount() < ks.current.Header.KernelMmrSize {
		return nil
	}
	err = ks.completeHeader(ctx)
	if err != nil {
		return err
	}
	return ks.completeHeadersWithoutKernels(ctx)
}

func (ks *kernelSync) completeHeadersWithoutKernels(ctx context.Context) error {
	for ks.current != nil && ks.current.Header.KernelMmrSize <= ks.kernelMmr.LeafCount() {
		err := ks.completeHeader(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

// completeHeader checks the kernel root of the current header, commits
// everything absorbed for it and moves on to the next header
func (ks *kernelSync) completeHeader(ctx context.Context) error {
	header := ks.current
	if ks.kernelMmr.LeafCount() != header.Header.KernelMmrSize {
		return ruleerrors.NewErrMismatchedMmrSize(externalapi.MmrTreeKernel,
			ks.kernelMmr.LeafCount(), header.Header.KernelMmrSize)
	}
	root := mmrcalculator.KernelMr(ks.kernelMmr)
	if !root.Equal(&header.Header.KernelMr) {
		return ruleerrors.NewErrInvalidMmrRoot(externalapi.MmrTreeKernel, header.Height())
	}

	err := ks.txn.UpdatePrunedHashSet(externalapi.MmrTreeKernel, header.Hash(), ks.kernelMmr.PrunedHashSet())
	if err != nil {
		return err
	}
	kernelSum := ks.kernelSum.Serialize()
	err = ks.txn.UpdateKernelSum(header.Hash(), &kernelSum)
	if err != nil {
		return err
	}
	err = ctx.Err()
	if err != nil {
		return errors.WithStack(err)
	}
	err = ks.txn.Commit()
	if err != nil {
		return err
	}
	log.Debugf("Committed %d kernels up to height %d", header.Header.KernelMmrSize, header.Height())

	ks.txn = nil
	ks.current, err = ks.nextHeader(header)
	if err != nil {
		return err
	}
	if ks.current == nil {
		return nil
	}
	ks.txn, err = ks.backend.WriteTransaction()
	return err
}
