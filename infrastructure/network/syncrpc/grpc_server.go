package syncrpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/mwnode/basenode/app/appmessage"
	"github.com/mwnode/basenode/util/panics"
	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const serviceName = "basenode.BaseNodeSync"

type syncRPCServer interface {
	HandleSyncKernels(ctx context.Context, request *appmessage.MsgSyncKernelsRequest,
		send func(response *appmessage.MsgSyncKernelsResponse) error) error
	HandleSyncUtxos(ctx context.Context, request *appmessage.MsgSyncUtxosRequest,
		send func(response *appmessage.MsgSyncUtxosResponse) error) error
}

// Every message of the service is a BytesValue carrying an encoded
// sync message, so the default proto codec is used as is
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*syncRPCServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "SyncKernels",
			Handler:       syncKernelsHandler,
			ServerStreams: true,
		},
		{
			StreamName:    "SyncUtxos",
			Handler:       syncUtxosHandler,
			ServerStreams: true,
		},
	},
	Metadata: "basenode/sync.proto",
}

func syncKernelsHandler(srv interface{}, stream grpc.ServerStream) error {
	requestMessage := &wrapperspb.BytesValue{}
	err := stream.RecvMsg(requestMessage)
	if err != nil {
		return err
	}
	request, err := decodeSyncKernelsRequest(requestMessage.GetValue())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed kernels request: %s", err)
	}
	request.SetReceivedAt(time.Now())

	err = srv.(syncRPCServer).HandleSyncKernels(stream.Context(), request,
		func(response *appmessage.MsgSyncKernelsResponse) error {
			return stream.SendMsg(wrapperspb.Bytes(encodeSyncKernelsResponse(response)))
		})
	return toStatusError(err)
}

func syncUtxosHandler(srv interface{}, stream grpc.ServerStream) error {
	requestMessage := &wrapperspb.BytesValue{}
	err := stream.RecvMsg(requestMessage)
	if err != nil {
		return err
	}
	request, err := decodeSyncUtxosRequest(requestMessage.GetValue())
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed utxos request: %s", err)
	}
	request.SetReceivedAt(time.Now())

	err = srv.(syncRPCServer).HandleSyncUtxos(stream.Context(), request,
		func(response *appmessage.MsgSyncUtxosResponse) error {
			return stream.SendMsg(wrapperspb.Bytes(encodeSyncUtxosResponse(response)))
		})
	return toStatusError(err)
}

func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	log.Errorf("Failed serving a sync request: %+v", err)
	return status.Error(codes.Internal, err.Error())
}

// Server serves the horizon sync RPCs over gRPC
type Server struct {
	listeningAddresses []string
	server             *grpc.Server
}

// NewServer creates a gRPC server serving the requests with handler
func NewServer(handler *Handler, listeningAddresses []string) *Server {
	log.Debugf("Created new sync gRPC server with maxMessageSize %d", appmessage.MaxMessagePayload)
	server := grpc.NewServer(
		grpc.MaxRecvMsgSize(appmessage.MaxMessagePayload),
		grpc.MaxSendMsgSize(appmessage.MaxMessagePayload))
	server.RegisterService(&serviceDesc, handler)
	return &Server{
		server:             server,
		listeningAddresses: listeningAddresses,
	}
}

// Start listens on all the listening addresses of the server
func (s *Server) Start() error {
	for _, listenAddress := range s.listeningAddresses {
		err := s.listenOn(listenAddress)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) listenOn(listenAddr string) error {
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return errors.Wrapf(err, "sync server error listening on %s", listenAddr)
	}
	s.Serve(listener)
	log.Infof("Sync server listening on %s", listenAddr)
	return nil
}

// Serve accepts connections on listener in the background
func (s *Server) Serve(listener net.Listener) {
	spawn("syncrpc.Server.Serve", func() {
		err := s.server.Serve(listener)
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			panics.Exit(log, fmt.Sprintf("error serving sync requests on %s: %+v", listener.Addr(), err))
		}
	})
}

// Stop gracefully stops the server, forcing it to stop if it takes too long
func (s *Server) Stop() error {
	const stopTimeout = 2 * time.Second

	stopChan := make(chan interface{})
	spawn("syncrpc.Server.Stop", func() {
		s.server.GracefulStop()
		close(stopChan)
	})

	select {
	case <-stopChan:
	case <-time.After(stopTimeout):
		log.Warnf("Could not gracefully stop the sync server: timed out after %s", stopTimeout)
		s.server.Stop()
	}
	return nil
}
