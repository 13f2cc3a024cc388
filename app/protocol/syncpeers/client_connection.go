package syncpeers

import (
	"context"
	"sync"
	"time"

	"github.com/mwnode/basenode/app/appmessage"
	"github.com/mwnode/basenode/infrastructure/network/syncrpc"
)

// ClientConnection is a PeerConnection over an already established
// SyncClient. The latency it reports is the time the last stream took
// to deliver its first response.
type ClientConnection struct {
	client syncrpc.SyncClient

	latencyLock sync.Mutex
	latency     time.Duration
	hasLatency  bool
}

// NewClientConnection returns a ClientConnection over client
func NewClientConnection(client syncrpc.SyncClient) *ClientConnection {
	return &ClientConnection{client: client}
}

// ConnectRPC returns a client measuring the latency of the underlying one
func (c *ClientConnection) ConnectRPC(ctx context.Context) (syncrpc.SyncClient, error) {
	return &latencyClient{connection: c}, nil
}

// LastRequestLatency returns the latency of the last stream
func (c *ClientConnection) LastRequestLatency() (time.Duration, bool) {
	c.latencyLock.Lock()
	defer c.latencyLock.Unlock()
	return c.latency, c.hasLatency
}

func (c *ClientConnection) recordLatency(start time.Time) {
	c.latencyLock.Lock()
	defer c.latencyLock.Unlock()
	c.latency = time.Since(start)
	c.hasLatency = true
}

type latencyClient struct {
	connection *ClientConnection
}

func (c *latencyClient) SyncKernels(ctx context.Context,
	request *appmessage.MsgSyncKernelsRequest) (syncrpc.KernelStream, error) {

	start := time.Now()
	stream, err := c.connection.client.SyncKernels(ctx, request)
	if err != nil {
		return nil, err
	}
	return &latencyKernelStream{stream: stream, connection: c.connection, start: start}, nil
}

func (c *latencyClient) SyncUtxos(ctx context.Context,
	request *appmessage.MsgSyncUtxosRequest) (syncrpc.UtxoStream, error) {

	start := time.Now()
	stream, err := c.connection.client.SyncUtxos(ctx, request)
	if err != nil {
		return nil, err
	}
	return &latencyUtxoStream{stream: stream, connection: c.connection, start: start}, nil
}

type latencyKernelStream struct {
	stream     syncrpc.KernelStream
	connection *ClientConnection
	start      time.Time
	measured   bool
}

func (s *latencyKernelStream) Recv() (*appmessage.MsgSyncKernelsResponse, error) {
	response, err := s.stream.Recv()
	if err == nil && !s.measured {
		s.connection.recordLatency(s.start)
		s.measured = true
	}
	return response, err
}

type latencyUtxoStream struct {
	stream     syncrpc.UtxoStream
	connection *ClientConnection
	start      time.Time
	measured   bool
}

func (s *latencyUtxoStream) Recv() (*appmessage.MsgSyncUtxosResponse, error) {
	response, err := s.stream.Recv()
	if err == nil && !s.measured {
		s.connection.recordLatency(s.start)
		s.measured = true
	}
	return response, err
}
