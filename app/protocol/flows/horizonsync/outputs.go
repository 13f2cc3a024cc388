package horizonsync

import (
	"context"
	"io"

	"github.com/mwnode/basenode/app/appmessage"
	"github.com/mwnode/basenode/app/protocol/protocolerrors"
	"github.com/mwnode/basenode/app/protocol/syncpeers"
	"github.com/mwnode/basenode/domain/chainstorage"
	"github.com/mwnode/basenode/domain/consensus/database/serialization"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/processes/mmrcalculator"
	"github.com/mwnode/basenode/domain/consensus/ruleerrors"
	"github.com/mwnode/basenode/domain/consensus/utils/commitment"
	"github.com/mwnode/basenode/domain/consensus/utils/consensushashing"
	"github.com/mwnode/basenode/domain/consensus/utils/mmr"
	"github.com/pkg/errors"
)

// utxoSync is the progress of an output download. Each response of
// the stream covers exactly the header in current.
type utxoSync struct {
	*Synchronizer
	txn           chainstorage.WriteTransaction
	current       *externalapi.ChainHeader
	outputMmr     *mmr.MutableMmr
	rangeProofMmr *mmr.MerkleMountainRange
}

func (s *Synchronizer) isOutputSyncComplete(local uint64) (bool, error) {
	remote := s.horizonHeader.Header.OutputMmrSize
	if local < remote {
		return false, nil
	}
	horizonData, err := s.backend.FetchBlockAccumulatedData(s.horizonHeader.Hash())
	if err != nil {
		if chainstorage.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}
	return horizonData.Outputs != nil && horizonData.Outputs.LeafCount == remote, nil
}

func (s *Synchronizer) syncOutputs(ctx context.Context, peer *syncpeers.SyncPeer) error {
	local, err := s.backend.FetchMmrSize(externalapi.MmrTreeUtxo)
	if err != nil {
		return err
	}
	remote := s.horizonHeader.Header.OutputMmrSize
	isComplete, err := s.isOutputSyncComplete(local)
	if err != nil {
		return err
	}
	if isComplete {
		log.Debugf("Already have %d of %d outputs", local, remote)
		return nil
	}

	current, err := chainstorage.FetchSyncStartHeader(s.backend, externalapi.MmrTreeUtxo, local)
	if err != nil && !chainstorage.IsNotFoundError(err) {
		return err
	}
	if err != nil || current.Height() > s.horizonHeader.Height() {
		log.Debugf("Outputs up to the horizon are already synced")
		return nil
	}
	log.Infof("Syncing outputs %d to %d, headers %d to %d",
		local, remote, current.Height(), s.horizonHeader.Height())

	previousData, err := s.accumulatedDataBefore(current)
	if err != nil {
		return err
	}
	outputMmr := mmr.NewMutable(previousData.Outputs, previousData.Deleted)
	if outputMmr.LeafCount() != local {
		return errors.Errorf("output MMR at height %d holds %d outputs but the store holds %d",
			current.Height()-1, outputMmr.LeafCount(), local)
	}
	rangeProofMmr := mmr.New(previousData.RangeProofs)
	if rangeProofMmr.LeafCount() != local {
		return errors.Errorf("range proof MMR at height %d holds %d range proofs but the store holds %d outputs",
			current.Height()-1, rangeProofMmr.LeafCount(), local)
	}

	txn, err := s.backend.WriteTransaction()
	if err != nil {
		return err
	}
	us := &utxoSync{
		Synchronizer:  s,
		txn:           txn,
		current:       current,
		outputMmr:     outputMmr,
		rangeProofMmr: rangeProofMmr,
	}
	defer func() {
		if us.txn != nil {
			us.txn.RollbackUnlessClosed()
		}
	}()

	client, err := s.connect(ctx, peer)
	if err != nil {
		return err
	}
	stream, err := client.SyncUtxos(ctx, appmessage.NewMsgSyncUtxosRequest(local, s.horizonHeader.Hash()))
	if err != nil {
		return err
	}
	for us.current != nil {
		response, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return protocolerrors.Wrapf(true, protocolerrors.ErrEmptyResponse,
					"output stream ended before height %d", us.current.Height())
			}
			return err
		}
		err = us.absorbResponse(ctx, response)
		if err != nil {
			return err
		}
	}
	return nil
}

func (us *utxoSync) absorbResponse(ctx context.Context, response *appmessage.MsgSyncUtxosResponse) error {
	header := us.current
	expected := header.Header.OutputMmrSize - us.outputMmr.LeafCount()
	if uint64(len(response.Utxos)) != expected {
		return protocolerrors.Wrapf(true, protocolerrors.ErrIncorrectResponse,
			"expected %d outputs for height %d but got %d", expected, header.Height(), len(response.Utxos))
	}
	if len(response.DeletedBitmaps) != 1 {
		return protocolerrors.Wrapf(true, protocolerrors.ErrIncorrectResponse,
			"expected a single deleted bitmap for height %d but got %d", header.Height(), len(response.DeletedBitmaps))
	}

	seenCommitments := make(map[externalapi.Commitment]struct{}, len(response.Utxos))
	for _, utxo := range response.Utxos {
		err := us.absorbUtxo(utxo, seenCommitments)
		if err != nil {
			return err
		}
	}

	deletedDiff, err := serialization.DeserializeDeletedBitmap(response.DeletedBitmaps[0])
	if err != nil {
		return protocolerrors.Wrapf(true, protocolerrors.ErrConversion, "deleted bitmap of height %d: %s",
			header.Height(), err)
	}
	err = us.outputMmr.ApplyDiff(deletedDiff)
	if err != nil {
		return protocolerrors.Wrapf(true, protocolerrors.ErrIncorrectResponse, "height %d: %s", header.Height(), err)
	}

	return us.completeHeader(ctx)
}

func (us *utxoSync) absorbUtxo(utxo *appmessage.SyncUtxo, seenCommitments map[externalapi.Commitment]struct{}) error {
	header := us.current
	leafIndex := us.outputMmr.LeafCount()

	switch {
	case utxo.Output != nil && utxo.PrunedHash == nil && utxo.PrunedRangeProofHash == nil:
		output := utxo.Output
		_, err := commitment.ParsePoint(&output.Commitment)
		if err != nil {
			return protocolerrors.Wrapf(true, protocolerrors.ErrIncorrectResponse, "output %d: %s", leafIndex, err)
		}
		if _, ok := seenCommitments[output.Commitment]; ok {
			return protocolerrors.Wrapf(true, protocolerrors.ErrIncorrectResponse,
				"output %d duplicates commitment %s", leafIndex, output.Commitment)
		}
		_, err = us.backend.FetchOutputPosition(&output.Commitment)
		if err == nil {
			return protocolerrors.Wrapf(true, protocolerrors.ErrIncorrectResponse,
				"output %d has the known commitment %s", leafIndex, output.Commitment)
		}
		if !chainstorage.IsNotFoundError(err) {
			return err
		}
		seenCommitments[output.Commitment] = struct{}{}

		err = us.txn.InsertOutputViaHorizonSync(output, header.Hash(), header.Height(), leafIndex)
		if err != nil {
			return err
		}
		us.outputMmr.Push(consensushashing.OutputHash(output))
		us.rangeProofMmr.Push(consensushashing.RangeProofHash(output.RangeProof))

	case utxo.Output == nil && utxo.PrunedHash != nil && utxo.PrunedRangeProofHash != nil:
		err := us.txn.InsertPrunedOutputViaHorizonSync(utxo.PrunedHash, utxo.PrunedRangeProofHash,
			header.Hash(), header.Height(), leafIndex)
		if err != nil {
			return err
		}
		us.outputMmr.Push(utxo.PrunedHash)
		us.rangeProofMmr.Push(utxo.PrunedRangeProofHash)

	default:
		return protocolerrors.Wrapf(true, protocolerrors.ErrIncorrectResponse,
			"output %d is neither a full output nor a pruned one", leafIndex)
	}

	us.metrics.outputsSynced.Inc()
	return nil
}

// completeHeader checks the output and range proof roots of the current
// header, commits everything absorbed for it and moves on to the next
// header
func (us *utxoSync) completeHeader(ctx context.Context) error {
	header := us.current
	outputRoot := mmrcalculator.OutputMr(us.outputMmr)
	if !outputRoot.Equal(&header.Header.OutputMr) {
		return ruleerrors.NewErrInvalidMmrRoot(externalapi.MmrTreeUtxo, header.Height())
	}
	rangeProofRoot := mmrcalculator.RangeProofMr(us.rangeProofMmr)
	if !rangeProofRoot.Equal(&header.Header.RangeProofMr) {
		return ruleerrors.NewErrInvalidMmrRoot(externalapi.MmrTreeRangeProof, header.Height())
	}

	err := us.txn.UpdatePrunedHashSet(externalapi.MmrTreeUtxo, header.Hash(), us.outputMmr.PrunedHashSet())
	if err != nil {
		return err
	}
	err = us.txn.UpdatePrunedHashSet(externalapi.MmrTreeRangeProof, header.Hash(), us.rangeProofMmr.PrunedHashSet())
	if err != nil {
		return err
	}
	err = us.txn.UpdateDeleted(header.Hash(), us.outputMmr.Deleted())
	if err != nil {
		return err
	}
	err = ctx.Err()
	if err != nil {
		return errors.WithStack(err)
	}
	err = us.txn.Commit()
	if err != nil {
		return err
	}
	log.Debugf("Committed %d outputs up to height %d", header.Header.OutputMmrSize, header.Height())

	us.txn = nil
	us.current, err = us.nextHeader(header)
	if err != nil {
		return err
	}
	if us.current == nil {
		return nil
	}
	us.txn, err = us.backend.WriteTransaction()
	return err
}
