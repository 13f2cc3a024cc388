package syncrpc

import (
	"context"
	"io"
	"time"

	"github.com/mwnode/basenode/app/appmessage"
	"github.com/pkg/errors"
)

// LocalClient is a SyncClient served in-process by a Handler
type LocalClient struct {
	handler *Handler
}

// NewLocalClient returns a LocalClient served by handler
func NewLocalClient(handler *Handler) *LocalClient {
	return &LocalClient{handler: handler}
}

// SyncKernels requests the kernels in the range of request
func (c *LocalClient) SyncKernels(ctx context.Context,
	request *appmessage.MsgSyncKernelsRequest) (KernelStream, error) {

	stream := newLocalStream[*appmessage.MsgSyncKernelsResponse](ctx)
	spawn("LocalClient.SyncKernels", func() {
		stream.close(c.handler.HandleSyncKernels(ctx, request, stream.send))
	})
	return stream, nil
}

// SyncUtxos requests the outputs in the range of request
func (c *LocalClient) SyncUtxos(ctx context.Context,
	request *appmessage.MsgSyncUtxosRequest) (UtxoStream, error) {

	stream := newLocalStream[*appmessage.MsgSyncUtxosResponse](ctx)
	spawn("LocalClient.SyncUtxos", func() {
		stream.close(c.handler.HandleSyncUtxos(ctx, request, stream.send))
	})
	return stream, nil
}

// localStream hands the responses of a handler running in its own
// goroutine to the receiving side. err is written before responses is
// closed and read only after.
type localStream[T appmessage.Message] struct {
	ctx       context.Context
	responses chan T
	err       error
}

func newLocalStream[T appmessage.Message](ctx context.Context) *localStream[T] {
	return &localStream[T]{
		ctx:       ctx,
		responses: make(chan T),
	}
}

func (s *localStream[T]) send(response T) error {
	select {
	case s.responses <- response:
		return nil
	case <-s.ctx.Done():
		return errors.WithStack(s.ctx.Err())
	}
}

func (s *localStream[T]) close(err error) {
	s.err = err
	close(s.responses)
}

func (s *localStream[T]) Recv() (T, error) {
	var zero T
	err := s.ctx.Err()
	if err != nil {
		return zero, errors.WithStack(err)
	}
	select {
	case response, ok := <-s.responses:
		if !ok {
			if s.err != nil {
				return zero, s.err
			}
			return zero, io.EOF
		}
		response.SetReceivedAt(time.Now())
		return response, nil
	case <-s.ctx.Done():
		return zero, errors.WithStack(s.ctx.Err())
	}
}
