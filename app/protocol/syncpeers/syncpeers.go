package syncpeers

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/infrastructure/network/netadapter/id"
	"github.com/mwnode/basenode/infrastructure/network/syncrpc"
	"github.com/pkg/errors"
)

// ErrNoSyncPeers is returned when every sync peer has been excluded
var ErrNoSyncPeers = errors.New("no sync peers left")

// Policy controls how sync peers are picked and punished
type Policy struct {
	RandomSyncPeerWithChain  bool
	PeerBanDuration          time.Duration
	ShortTermPeerBanDuration time.Duration
}

// Connectivity bans misbehaving nodes
type Connectivity interface {
	BanPeerUntil(ctx context.Context, nodeID *id.ID, duration time.Duration, reason string) error
}

// PeerConnection opens sync RPC sessions with a node
type PeerConnection interface {
	ConnectRPC(ctx context.Context) (syncrpc.SyncClient, error)
	// LastRequestLatency returns false if no request completed yet
	LastRequestLatency() (time.Duration, bool)
}

// SyncPeer is a node we may sync from, along with the chain it claims
// to have
type SyncPeer struct {
	id            *id.ID
	chainMetadata *externalapi.ChainMetadata
	connection    PeerConnection
}

// NewSyncPeer returns a new SyncPeer
func NewSyncPeer(nodeID *id.ID, chainMetadata *externalapi.ChainMetadata, connection PeerConnection) *SyncPeer {
	return &SyncPeer{
		id:            nodeID,
		chainMetadata: chainMetadata,
		connection:    connection,
	}
}

// ID returns the node ID of the peer
func (peer *SyncPeer) ID() *id.ID {
	return peer.id
}

// ChainMetadata returns the chain metadata the peer claimed
func (peer *SyncPeer) ChainMetadata() *externalapi.ChainMetadata {
	return peer.chainMetadata
}

// ConnectRPC opens a sync RPC session with the peer
func (peer *SyncPeer) ConnectRPC(ctx context.Context) (syncrpc.SyncClient, error) {
	return peer.connection.ConnectRPC(ctx)
}

// LastRequestLatency returns the latency of the last request made to the peer
func (peer *SyncPeer) LastRequestLatency() (time.Duration, bool) {
	return peer.connection.LastRequestLatency()
}

func (peer *SyncPeer) String() string {
	return fmt.Sprintf("%s (height %d)", peer.id, peer.chainMetadata.ChainHeight)
}

// SyncPeers are the candidates of a sync session. It only ever shrinks.
type SyncPeers struct {
	peers []*SyncPeer
}

// NewSyncPeers returns SyncPeers holding peers
func NewSyncPeers(peers ...*SyncPeer) *SyncPeers {
	peersCopy := make([]*SyncPeer, len(peers))
	copy(peersCopy, peers)
	return &SyncPeers{peers: peersCopy}
}

// Len returns the number of candidates left
func (sp *SyncPeers) Len() int {
	return len(sp.peers)
}

// Peers returns the candidates left
func (sp *SyncPeers) Peers() []*SyncPeer {
	peersCopy := make([]*SyncPeer, len(sp.peers))
	copy(peersCopy, sp.peers)
	return peersCopy
}

// SortByLatency orders the candidates by the latency of their last
// request. Peers with no measurement come last.
func (sp *SyncPeers) SortByLatency() {
	sort.SliceStable(sp.peers, func(i, j int) bool {
		latencyI, okI := sp.peers[i].LastRequestLatency()
		latencyJ, okJ := sp.peers[j].LastRequestLatency()
		if okI != okJ {
			return okI
		}
		return latencyI < latencyJ
	})
}

// SelectSyncPeer picks the peer to sync from: a uniformly random one
// if the policy asks for it, and the first one otherwise
func SelectSyncPeer(policy *Policy, peers *SyncPeers) (*SyncPeer, error) {
	if peers.Len() == 0 {
		return nil, errors.WithStack(ErrNoSyncPeers)
	}
	if policy.RandomSyncPeerWithChain {
		return peers.peers[rand.Intn(peers.Len())], nil
	}
	return peers.peers[0], nil
}

// ExcludeSyncPeer removes peer from the candidates. It returns
// ErrNoSyncPeers if no candidate is left.
func ExcludeSyncPeer(peers *SyncPeers, peer *SyncPeer) error {
	for i, candidate := range peers.peers {
		if candidate.id.Equal(peer.id) {
			peers.peers = append(peers.peers[:i], peers.peers[i+1:]...)
			log.Debugf("Excluded sync peer %s, %d left", peer, peers.Len())
			break
		}
	}
	if peers.Len() == 0 {
		return errors.WithStack(ErrNoSyncPeers)
	}
	return nil
}

// BanSyncPeer bans peer for duration and excludes it from the candidates
func BanSyncPeer(ctx context.Context, connectivity Connectivity, peers *SyncPeers, peer *SyncPeer,
	duration time.Duration, reason string) error {

	log.Warnf("Banning sync peer %s for %s: %s", peer, duration, reason)
	err := connectivity.BanPeerUntil(ctx, peer.id, duration, reason)
	if err != nil {
		return err
	}
	return ExcludeSyncPeer(peers, peer)
}
