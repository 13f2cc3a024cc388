package syncrpc

import (
	"testing"

	"github.com/mwnode/basenode/app/appmessage"
	"github.com/mwnode/basenode/app/protocol/protocolerrors"
	"github.com/mwnode/basenode/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

func TestSyncUtxosResponseKeepsPrunedState(t *testing.T) {
	prunedHash := externalapi.NewDomainHashFromByteArray(&[externalapi.DomainHashSize]byte{1})
	prunedRangeProofHash := externalapi.NewDomainHashFromByteArray(&[externalapi.DomainHashSize]byte{2})
	output := &externalapi.TransactionOutput{
		Commitment: externalapi.Commitment{0x02, 3},
		RangeProof: []byte{4, 5, 6},
	}
	response := appmessage.NewMsgSyncUtxosResponse([]*appmessage.SyncUtxo{
		{Output: output},
		{PrunedHash: prunedHash, PrunedRangeProofHash: prunedRangeProofHash},
	}, [][]byte{{7}, {}})

	decoded, err := decodeSyncUtxosResponse(encodeSyncUtxosResponse(response))
	if err != nil {
		t.Fatalf("TestSyncUtxosResponseKeepsPrunedState: decodeSyncUtxosResponse: %+v", err)
	}
	if len(decoded.Utxos) != 2 || len(decoded.DeletedBitmaps) != 2 {
		t.Fatalf("TestSyncUtxosResponseKeepsPrunedState: unexpected response %+v", decoded)
	}
	full := decoded.Utxos[0]
	if full.IsPruned() || full.PrunedHash != nil || full.PrunedRangeProofHash != nil {
		t.Fatalf("TestSyncUtxosResponseKeepsPrunedState: the full output came back as %+v", full)
	}
	if full.Output.Commitment != output.Commitment || string(full.Output.RangeProof) != string(output.RangeProof) {
		t.Fatalf("TestSyncUtxosResponseKeepsPrunedState: the full output changed")
	}
	pruned := decoded.Utxos[1]
	if !pruned.IsPruned() || !pruned.PrunedHash.Equal(prunedHash) ||
		!pruned.PrunedRangeProofHash.Equal(prunedRangeProofHash) {
		t.Fatalf("TestSyncUtxosResponseKeepsPrunedState: the pruned output came back as %+v", pruned)
	}
	if len(decoded.DeletedBitmaps[1]) != 0 {
		t.Fatalf("TestSyncUtxosResponseKeepsPrunedState: the empty bitmap wasn't kept empty")
	}
}

func TestMalformedResponsesShouldBan(t *testing.T) {
	malformed := []byte{0x0a, 0x05, 0x01}

	_, err := decodeSyncKernelsResponse(malformed)
	if !errors.Is(err, protocolerrors.ErrConversion) || !protocolerrors.ShouldBan(err) {
		t.Fatalf("TestMalformedResponsesShouldBan: expected a banning ErrConversion, got %v", err)
	}
	_, err = decodeSyncUtxosResponse(malformed)
	if !errors.Is(err, protocolerrors.ErrConversion) || !protocolerrors.ShouldBan(err) {
		t.Fatalf("TestMalformedResponsesShouldBan: expected a banning ErrConversion, got %v", err)
	}

	// A kernel whose excess has the wrong length
	badKernel := []byte{0x0a, 0x04, 0x22, 0x02, 0x01, 0x02}
	_, err = decodeSyncKernelsResponse(badKernel)
	if !errors.Is(err, protocolerrors.ErrConversion) {
		t.Fatalf("TestMalformedResponsesShouldBan: expected ErrConversion for a bad kernel, got %v", err)
	}
}
