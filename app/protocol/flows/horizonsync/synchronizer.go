package horizonsync

import (
	"context"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/holiman/uint256"
	"github.com/mwnode/basenode/app/protocol/protocolerrors"
	"github.com/mwnode/basenode/app/protocol/syncpeers"
	"github.com/mwnode/basenode/domain/chainstorage"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/dagconfig"
	"github.com/mwnode/basenode/infrastructure/logger"
	"github.com/mwnode/basenode/infrastructure/network/syncrpc"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrMaxSyncAttemptsReached is returned when every sync peer failed or
// was banned before a phase completed
var ErrMaxSyncAttemptsReached = errors.New("maximum horizon sync attempts reached")

// Synchronizer downloads the prunable chain state up to a horizon header
// from sync peers. Every write it makes is undone if the session doesn't
// commit.
type Synchronizer struct {
	params        *dagconfig.Params
	backend       chainstorage.BlockchainBackend
	horizonHeader *externalapi.ChainHeader
	syncPeers     *syncpeers.SyncPeers
	policy        *syncpeers.Policy
	connectivity  syncpeers.Connectivity
	rpcDeadline   time.Duration
	metrics       *metrics

	stateLock sync.RWMutex
	state     State
}

// New returns a Synchronizer syncing backend up to horizonHeader from
// peers. The header itself must already be in backend. Metrics are
// registered on registerer unless it's nil.
func New(params *dagconfig.Params, backend chainstorage.BlockchainBackend, horizonHeader *externalapi.ChainHeader,
	peers *syncpeers.SyncPeers, policy *syncpeers.Policy, connectivity syncpeers.Connectivity,
	rpcDeadline time.Duration, registerer prometheus.Registerer) (*Synchronizer, error) {

	m, err := newMetrics(registerer)
	if err != nil {
		return nil, err
	}
	return &Synchronizer{
		params:        params,
		backend:       backend,
		horizonHeader: horizonHeader,
		syncPeers:     peers,
		policy:        policy,
		connectivity:  connectivity,
		rpcDeadline:   rpcDeadline,
		metrics:       m,
		state:         StateIdle,
	}, nil
}

// State returns the current state of the session
func (s *Synchronizer) State() State {
	s.stateLock.RLock()
	defer s.stateLock.RUnlock()
	return s.state
}

func (s *Synchronizer) setState(state State) {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()
	log.Debugf("Horizon sync state %s -> %s", s.state, state)
	s.state = state
}

// Synchronize runs the session to completion. Any error leaves the store
// as it was before the call.
func (s *Synchronizer) Synchronize(ctx context.Context) error {
	onEnd := logger.LogAndMeasureExecutionTime(log, "Synchronize")
	defer onEnd()

	log.Infof("Starting horizon sync to height %d (%s) with %d candidate peers",
		s.horizonHeader.Height(), s.horizonHeader.Hash(), s.syncPeers.Len())

	s.setState(StatePreparing)
	err := s.backend.HorizonSyncBegin()
	if err != nil {
		return err
	}

	err = s.synchronize(ctx)
	if err != nil {
		log.Warnf("Horizon sync failed: %s", err)
		rollbackErr := s.backend.HorizonSyncRollback()
		if rollbackErr != nil {
			return errors.Wrapf(rollbackErr, "failed rolling back after %s", err)
		}
		s.metrics.rollbacks.Inc()
		s.setState(StateRolledBack)
		return err
	}

	s.setState(StateCommitted)
	log.Infof("Horizon sync to height %d completed", s.horizonHeader.Height())
	return nil
}

func (s *Synchronizer) synchronize(ctx context.Context) error {
	s.setState(StateSyncingKernels)
	err := s.runPhase(ctx, "kernels", s.syncKernels)
	if err != nil {
		return err
	}

	s.setState(StateSyncingOutputs)
	err = s.runPhase(ctx, "outputs", s.syncOutputs)
	if err != nil {
		return err
	}

	s.setState(StateFinalizing)
	err = s.finalize(ctx)
	if err != nil {
		return err
	}
	return s.backend.HorizonSyncCommit()
}

// runPhase runs phase against sync peers until it succeeds. Peers that
// misbehave are banned and peers that fail are excluded, each time
// resuming from what the store holds.
func (s *Synchronizer) runPhase(ctx context.Context, name string,
	phase func(ctx context.Context, peer *syncpeers.SyncPeer) error) error {

	onEnd := logger.LogAndMeasureExecutionTime(log, "horizon sync "+name)
	defer onEnd()

	for {
		err := ctx.Err()
		if err != nil {
			return errors.WithStack(err)
		}

		if !s.policy.RandomSyncPeerWithChain {
			s.syncPeers.SortByLatency()
		}
		peer, err := syncpeers.SelectSyncPeer(s.policy, s.syncPeers)
		if err != nil {
			if errors.Is(err, syncpeers.ErrNoSyncPeers) {
				return errors.Wrapf(ErrMaxSyncAttemptsReached, "syncing %s", name)
			}
			return err
		}

		log.Debugf("Syncing %s from %s", name, peer)
		err = s.attempt(ctx, peer, phase)
		if err == nil {
			return nil
		}

		protocolErr := &protocolerrors.ProtocolError{}
		if !errors.As(err, &protocolErr) || ctx.Err() != nil {
			return err
		}
		if protocolErr.ShouldBan {
			s.metrics.peersBanned.Inc()
			err = syncpeers.BanSyncPeer(ctx, s.connectivity, s.syncPeers, peer,
				s.banDuration(protocolErr), protocolErr.Error())
		} else {
			log.Infof("Failed syncing %s from %s: %s", name, peer, protocolErr)
			err = syncpeers.ExcludeSyncPeer(s.syncPeers, peer)
		}
		if err != nil {
			if errors.Is(err, syncpeers.ErrNoSyncPeers) {
				return errors.Wrapf(ErrMaxSyncAttemptsReached, "syncing %s: last error: %s", name, protocolErr)
			}
			return err
		}
	}
}

// banDuration returns how long to ban a peer for protocolErr. Invalid
// kernel signatures can't be sent by accident, so they get the long ban.
func (s *Synchronizer) banDuration(protocolErr *protocolerrors.ProtocolError) time.Duration {
	if errors.Is(protocolErr, protocolerrors.ErrInvalidKernelSignature) {
		return s.policy.PeerBanDuration
	}
	return s.policy.ShortTermPeerBanDuration
}

func (s *Synchronizer) attempt(ctx context.Context, peer *syncpeers.SyncPeer,
	phase func(ctx context.Context, peer *syncpeers.SyncPeer) error) error {

	rpcCtx, cancel := context.WithTimeout(ctx, s.rpcDeadline)
	defer cancel()

	err := phase(rpcCtx, peer)
	if err != nil && ctx.Err() == nil && errors.Is(rpcCtx.Err(), context.DeadlineExceeded) {
		return protocolerrors.Wrapf(false, err, "%s exceeded the RPC deadline of %s", peer, s.rpcDeadline)
	}
	return err
}

// connect opens an RPC session with peer. Failing to connect is the
// peer's fault but not a reason to ban it.
func (s *Synchronizer) connect(ctx context.Context, peer *syncpeers.SyncPeer) (syncrpc.SyncClient, error) {
	client, err := peer.ConnectRPC(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, protocolerrors.Wrapf(false, err, "connecting to %s", peer)
	}
	return client, nil
}

func (s *Synchronizer) finalize(ctx context.Context) error {
	err := ctx.Err()
	if err != nil {
		return errors.WithStack(err)
	}

	horizonHash := s.horizonHeader.Hash()
	horizonData, err := s.backend.FetchBlockAccumulatedData(horizonHash)
	if err != nil {
		return err
	}
	utxoSum, err := s.calculateUtxoSum(horizonData)
	if err != nil {
		return err
	}
	err = s.checkChainBalance(utxoSum, &horizonData.TotalKernelSum)
	if err != nil {
		return err
	}

	accumulatedWork := new(uint256.Int)
	if s.horizonHeader.AccumulatedData.TotalAccumulatedDifficulty != nil {
		accumulatedWork.Set(s.horizonHeader.AccumulatedData.TotalAccumulatedDifficulty)
	}
	metadata := &externalapi.ChainMetadata{
		BestBlock:             *horizonHash,
		ChainHeight:           s.horizonHeader.Height(),
		AccumulatedWork:       accumulatedWork,
		EffectivePrunedHeight: s.horizonHeader.Height(),
	}

	txn, err := s.backend.WriteTransaction()
	if err != nil {
		return err
	}
	defer txn.RollbackUnlessClosed()

	serializedUtxoSum := utxoSum.Serialize()
	err = txn.UpdateUtxoSum(horizonHash, &serializedUtxoSum)
	if err != nil {
		return err
	}
	err = txn.SetChainMetadata(metadata)
	if err != nil {
		return err
	}
	return txn.Commit()
}

// accumulatedDataBefore returns the block accumulated data of the parent
// of header. The parent of the genesis block is empty.
func (s *Synchronizer) accumulatedDataBefore(header *externalapi.ChainHeader) (
	*externalapi.BlockAccumulatedData, error) {

	if header.Height() == 0 {
		return &externalapi.BlockAccumulatedData{Deleted: roaring.New()}, nil
	}
	previous, err := s.backend.FetchChainHeader(header.Height() - 1)
	if err != nil {
		return nil, err
	}
	data, err := s.backend.FetchBlockAccumulatedData(previous.Hash())
	if err != nil {
		return nil, errors.Wrapf(err, "no accumulated data to resume from at height %d", previous.Height())
	}
	return data, nil
}

func (s *Synchronizer) nextHeader(current *externalapi.ChainHeader) (*externalapi.ChainHeader, error) {
	if current.Height() >= s.horizonHeader.Height() {
		return nil, nil
	}
	return s.backend.FetchChainHeader(current.Height() + 1)
}
