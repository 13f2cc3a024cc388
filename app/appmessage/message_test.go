package appmessage

import (
	"testing"
	"time"
)

func TestMessageCommands(t *testing.T) {
	tests := []struct {
		message  Message
		expected string
	}{
		{NewMsgSyncKernelsRequest(0, 5), "SyncKernelsRequest [code 0]"},
		{NewMsgSyncKernelsResponse(nil), "SyncKernelsResponse [code 1]"},
		{NewMsgSyncUtxosRequest(3, nil), "SyncUtxosRequest [code 2]"},
		{NewMsgSyncUtxosResponse(nil, nil), "SyncUtxosResponse [code 3]"},
	}
	for _, test := range tests {
		if test.message.Command().String() != test.expected {
			t.Fatalf("TestMessageCommands: expected %s, got %s", test.expected, test.message.Command())
		}
	}

	if MessageCommand(100).String() != "unknown command [code 100]" {
		t.Fatalf("TestMessageCommands: unexpected string for an unknown command: %s", MessageCommand(100))
	}

	message := NewMsgSyncKernelsRequest(1, 2)
	receivedAt := time.Unix(1_600_000_000, 0)
	message.SetReceivedAt(receivedAt)
	if !message.ReceivedAt().Equal(receivedAt) {
		t.Fatalf("TestMessageCommands: ReceivedAt wasn't set")
	}

	if !(&SyncUtxo{}).IsPruned() {
		t.Fatalf("TestMessageCommands: a utxo without an output should be pruned")
	}
}
