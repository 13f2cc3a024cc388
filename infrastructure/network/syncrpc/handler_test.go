package syncrpc_test

import (
	"context"
	"io"
	"testing"

	"github.com/mwnode/basenode/app/appmessage"
	"github.com/mwnode/basenode/domain/consensus/database/serialization"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/mwnode/basenode/domain/consensus/utils/consensushashing"
	"github.com/mwnode/basenode/domain/consensus/utils/testutils"
	"github.com/mwnode/basenode/domain/dagconfig"
	"github.com/mwnode/basenode/infrastructure/network/syncrpc"
	"github.com/pkg/errors"
)

// prepareServingChain returns a chain of 5 blocks whose third block
// spends the coinbase of the first
func prepareServingChain(t *testing.T, testName string) (tc *testutils.TestChain,
	spent *testutils.OwnedOutput, teardown func()) {

	tc, teardown = testutils.NewTestChain(t, &dagconfig.SimnetParams, testName)
	spent, _, err := tc.MineChainWithSpend(2)
	if err != nil {
		teardown()
		t.Fatalf("%s: MineChainWithSpend: %+v", testName, err)
	}
	return tc, spent, teardown
}

func collectKernels(t *testing.T, testName string, stream syncrpc.KernelStream) (
	[]*externalapi.TransactionKernel, int) {

	var kernels []*externalapi.TransactionKernel
	chunks := 0
	for {
		response, err := stream.Recv()
		if err == io.EOF {
			return kernels, chunks
		}
		if err != nil {
			t.Fatalf("%s: Recv: %+v", testName, err)
		}
		kernels = append(kernels, response.Kernels...)
		chunks++
	}
}

func collectUtxos(t *testing.T, testName string, stream syncrpc.UtxoStream) []*appmessage.MsgSyncUtxosResponse {
	var responses []*appmessage.MsgSyncUtxosResponse
	for {
		response, err := stream.Recv()
		if err == io.EOF {
			return responses
		}
		if err != nil {
			t.Fatalf("%s: Recv: %+v", testName, err)
		}
		responses = append(responses, response)
	}
}

func TestHandleSyncKernels(t *testing.T) {
	tc, _, teardown := prepareServingChain(t, "TestHandleSyncKernels")
	defer teardown()

	client := syncrpc.NewLocalClient(syncrpc.NewHandler(tc.Store))
	kernelMmrSize, err := tc.Store.FetchMmrSize(externalapi.MmrTreeKernel)
	if err != nil {
		t.Fatalf("TestHandleSyncKernels: FetchMmrSize: %+v", err)
	}

	for _, start := range []uint64{0, 2, kernelMmrSize} {
		stream, err := client.SyncKernels(context.Background(),
			appmessage.NewMsgSyncKernelsRequest(start, kernelMmrSize))
		if err != nil {
			t.Fatalf("TestHandleSyncKernels: SyncKernels: %+v", err)
		}
		kernels, _ := collectKernels(t, "TestHandleSyncKernels", stream)
		if uint64(len(kernels)) != kernelMmrSize-start {
			t.Fatalf("TestHandleSyncKernels: expected %d kernels from %d, got %d",
				kernelMmrSize-start, start, len(kernels))
		}
		entries, err := tc.Store.FetchKernelsByMmrPosition(start, kernelMmrSize)
		if err != nil {
			t.Fatalf("TestHandleSyncKernels: FetchKernelsByMmrPosition: %+v", err)
		}
		for i, kernel := range kernels {
			if !consensushashing.KernelHash(kernel).Equal(consensushashing.KernelHash(entries[i].Kernel)) {
				t.Fatalf("TestHandleSyncKernels: kernel %d isn't the stored kernel", start+uint64(i))
			}
		}
	}

	invalidRequests := []*appmessage.MsgSyncKernelsRequest{
		appmessage.NewMsgSyncKernelsRequest(2, 1),
		appmessage.NewMsgSyncKernelsRequest(0, kernelMmrSize+1),
	}
	for _, request := range invalidRequests {
		stream, err := client.SyncKernels(context.Background(), request)
		if err != nil {
			t.Fatalf("TestHandleSyncKernels: SyncKernels: %+v", err)
		}
		_, err = stream.Recv()
		if !errors.Is(err, syncrpc.ErrInvalidRequest) {
			t.Fatalf("TestHandleSyncKernels: expected ErrInvalidRequest for [%d, %d), got %v",
				request.Start, request.End, err)
		}
	}
}

func TestHandleSyncUtxos(t *testing.T) {
	tc, spent, teardown := prepareServingChain(t, "TestHandleSyncUtxos")
	defer teardown()

	client := syncrpc.NewLocalClient(syncrpc.NewHandler(tc.Store))
	tip, err := tc.Store.FetchTipHeader()
	if err != nil {
		t.Fatalf("TestHandleSyncUtxos: FetchTipHeader: %+v", err)
	}
	spentLeafIndex, err := tc.Store.FetchOutputPosition(&spent.Output.Commitment)
	if err != nil {
		t.Fatalf("TestHandleSyncUtxos: FetchOutputPosition: %+v", err)
	}

	stream, err := client.SyncUtxos(context.Background(), appmessage.NewMsgSyncUtxosRequest(0, tip.Hash()))
	if err != nil {
		t.Fatalf("TestHandleSyncUtxos: SyncUtxos: %+v", err)
	}
	responses := collectUtxos(t, "TestHandleSyncUtxos", stream)
	if uint64(len(responses)) != tip.Height() {
		t.Fatalf("TestHandleSyncUtxos: expected a response per header above genesis, got %d", len(responses))
	}

	position := uint64(0)
	spendingHeights := 0
	for i, response := range responses {
		header, err := tc.Store.FetchHeader(uint64(i + 1))
		if err != nil {
			t.Fatalf("TestHandleSyncUtxos: FetchHeader: %+v", err)
		}
		if uint64(len(response.Utxos)) != header.OutputMmrSize-position {
			t.Fatalf("TestHandleSyncUtxos: expected %d outputs at height %d, got %d",
				header.OutputMmrSize-position, header.Height, len(response.Utxos))
		}
		if len(response.DeletedBitmaps) != 1 {
			t.Fatalf("TestHandleSyncUtxos: expected a single bitmap at height %d, got %d",
				header.Height, len(response.DeletedBitmaps))
		}
		diff, err := serialization.DeserializeDeletedBitmap(response.DeletedBitmaps[0])
		if err != nil {
			t.Fatalf("TestHandleSyncUtxos: DeserializeDeletedBitmap: %+v", err)
		}
		if !diff.IsEmpty() {
			spendingHeights++
			if diff.GetCardinality() != 1 || !diff.Contains(uint32(spentLeafIndex)) {
				t.Fatalf("TestHandleSyncUtxos: unexpected deletions %s at height %d", diff, header.Height)
			}
		}

		for _, utxo := range response.Utxos {
			if position == spentLeafIndex {
				if !utxo.IsPruned() || !utxo.PrunedHash.Equal(consensushashing.OutputHash(spent.Output)) {
					t.Fatalf("TestHandleSyncUtxos: expected the spent output to be pruned")
				}
			} else if utxo.IsPruned() || utxo.PrunedHash != nil {
				t.Fatalf("TestHandleSyncUtxos: expected the unspent output %d to be sent in full", position)
			}
			position++
		}
	}
	if spendingHeights != 1 {
		t.Fatalf("TestHandleSyncUtxos: expected deletions at a single height, got %d", spendingHeights)
	}

	// Starting at the end of the second header resumes at the third
	secondHeader, err := tc.Store.FetchHeader(2)
	if err != nil {
		t.Fatalf("TestHandleSyncUtxos: FetchHeader: %+v", err)
	}
	stream, err = client.SyncUtxos(context.Background(),
		appmessage.NewMsgSyncUtxosRequest(secondHeader.OutputMmrSize, tip.Hash()))
	if err != nil {
		t.Fatalf("TestHandleSyncUtxos: SyncUtxos: %+v", err)
	}
	resumed := collectUtxos(t, "TestHandleSyncUtxos", stream)
	if uint64(len(resumed)) != tip.Height()-2 {
		t.Fatalf("TestHandleSyncUtxos: expected %d responses when resuming, got %d", tip.Height()-2, len(resumed))
	}

	stream, err = client.SyncUtxos(context.Background(),
		appmessage.NewMsgSyncUtxosRequest(tip.Header.OutputMmrSize, tip.Hash()))
	if err != nil {
		t.Fatalf("TestHandleSyncUtxos: SyncUtxos: %+v", err)
	}
	if len(collectUtxos(t, "TestHandleSyncUtxos", stream)) != 0 {
		t.Fatalf("TestHandleSyncUtxos: expected no responses for a synced request")
	}

	unknownHash := *externalapi.NewDomainHashFromByteArray(&[externalapi.DomainHashSize]byte{0x12})
	invalidRequests := []*appmessage.MsgSyncUtxosRequest{
		appmessage.NewMsgSyncUtxosRequest(0, &unknownHash),
		appmessage.NewMsgSyncUtxosRequest(tip.Header.OutputMmrSize+1, tip.Hash()),
		appmessage.NewMsgSyncUtxosRequest(0, nil),
	}
	for _, request := range invalidRequests {
		stream, err := client.SyncUtxos(context.Background(), request)
		if err != nil {
			t.Fatalf("TestHandleSyncUtxos: SyncUtxos: %+v", err)
		}
		_, err = stream.Recv()
		if !errors.Is(err, syncrpc.ErrInvalidRequest) {
			t.Fatalf("TestHandleSyncUtxos: expected ErrInvalidRequest, got %v", err)
		}
	}
}

func TestLocalClientCancellation(t *testing.T) {
	tc, _, teardown := prepareServingChain(t, "TestLocalClientCancellation")
	defer teardown()

	client := syncrpc.NewLocalClient(syncrpc.NewHandler(tc.Store))
	tip, err := tc.Store.FetchTipHeader()
	if err != nil {
		t.Fatalf("TestLocalClientCancellation: FetchTipHeader: %+v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := client.SyncUtxos(ctx, appmessage.NewMsgSyncUtxosRequest(0, tip.Hash()))
	if err != nil {
		t.Fatalf("TestLocalClientCancellation: SyncUtxos: %+v", err)
	}
	_, err = stream.Recv()
	if err != nil {
		t.Fatalf("TestLocalClientCancellation: Recv: %+v", err)
	}
	cancel()
	for {
		_, err = stream.Recv()
		if err != nil {
			break
		}
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("TestLocalClientCancellation: expected context.Canceled, got %v", err)
	}
}
