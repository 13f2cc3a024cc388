package syncrpc

import (
	"context"
	"io"
	"time"

	"github.com/mwnode/basenode/app/appmessage"
	"github.com/mwnode/basenode/app/protocol/protocolerrors"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	syncKernelsMethod = "/" + serviceName + "/SyncKernels"
	syncUtxosMethod   = "/" + serviceName + "/SyncUtxos"
)

// GRPCClient is a SyncClient talking to a remote Server
type GRPCClient struct {
	connection *grpc.ClientConn
}

// Connect dials the sync server at address
func Connect(ctx context.Context, address string) (*GRPCClient, error) {
	const dialTimeout = 30 * time.Second
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	connection, err := grpc.DialContext(dialCtx, address, grpc.WithInsecure(), grpc.WithBlock(),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(appmessage.MaxMessagePayload)))
	if err != nil {
		return nil, errors.Wrapf(err, "error connecting to %s", address)
	}
	return NewGRPCClient(connection), nil
}

// NewGRPCClient returns a GRPCClient over an established connection
func NewGRPCClient(connection *grpc.ClientConn) *GRPCClient {
	return &GRPCClient{connection: connection}
}

// Close closes the underlying connection
func (c *GRPCClient) Close() error {
	return c.connection.Close()
}

func (c *GRPCClient) openStream(ctx context.Context, streamDesc *grpc.StreamDesc, method string,
	request []byte) (grpc.ClientStream, error) {

	stream, err := c.connection.NewStream(ctx, streamDesc, method)
	if err != nil {
		return nil, protocolerrors.Wrapf(false, err, "error opening %s", method)
	}
	err = stream.SendMsg(wrapperspb.Bytes(request))
	if err != nil {
		return nil, protocolerrors.Wrapf(false, err, "error sending the %s request", method)
	}
	err = stream.CloseSend()
	if err != nil {
		return nil, protocolerrors.Wrapf(false, err, "error closing the %s request", method)
	}
	return stream, nil
}

// SyncKernels requests the kernels in the range of request
func (c *GRPCClient) SyncKernels(ctx context.Context,
	request *appmessage.MsgSyncKernelsRequest) (KernelStream, error) {

	stream, err := c.openStream(ctx, &serviceDesc.Streams[0], syncKernelsMethod, encodeSyncKernelsRequest(request))
	if err != nil {
		return nil, err
	}
	return &grpcKernelStream{stream: stream}, nil
}

// SyncUtxos requests the outputs in the range of request
func (c *GRPCClient) SyncUtxos(ctx context.Context,
	request *appmessage.MsgSyncUtxosRequest) (UtxoStream, error) {

	stream, err := c.openStream(ctx, &serviceDesc.Streams[1], syncUtxosMethod, encodeSyncUtxosRequest(request))
	if err != nil {
		return nil, err
	}
	return &grpcUtxoStream{stream: stream}, nil
}

func receiveBytes(stream grpc.ClientStream) ([]byte, error) {
	message := &wrapperspb.BytesValue{}
	err := stream.RecvMsg(message)
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, protocolerrors.Wrapf(false, err, "error receiving from the sync stream")
	}
	return message.GetValue(), nil
}

type grpcKernelStream struct {
	stream grpc.ClientStream
}

func (s *grpcKernelStream) Recv() (*appmessage.MsgSyncKernelsResponse, error) {
	data, err := receiveBytes(s.stream)
	if err != nil {
		return nil, err
	}
	response, err := decodeSyncKernelsResponse(data)
	if err != nil {
		return nil, err
	}
	response.SetReceivedAt(time.Now())
	return response, nil
}

type grpcUtxoStream struct {
	stream grpc.ClientStream
}

func (s *grpcUtxoStream) Recv() (*appmessage.MsgSyncUtxosResponse, error) {
	data, err := receiveBytes(s.stream)
	if err != nil {
		return nil, err
	}
	response, err := decodeSyncUtxosResponse(data)
	if err != nil {
		return nil, err
	}
	response.SetReceivedAt(time.Now())
	return response, nil
}
