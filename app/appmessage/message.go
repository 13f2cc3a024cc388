package appmessage

import (
	"fmt"
	"time"
)

// MaxMessagePayload is the maximum bytes a message can be regardless of other
// individual limits imposed by messages themselves.
const MaxMessagePayload = 1024 * 1024 * 32 // 32MB

// MessageCommand is a number in the header of a message that represents its type.
type MessageCommand uint32

func (cmd MessageCommand) String() string {
	cmdString, ok := ProtocolMessageCommandToString[cmd]
	if !ok {
		cmdString = "unknown command"
	}
	return fmt.Sprintf("%s [code %d]", cmdString, uint8(cmd))
}

// Commands used in sync message headers which describe the type of message.
const (
	CmdSyncKernelsRequest MessageCommand = iota
	CmdSyncKernelsResponse
	CmdSyncUtxosRequest
	CmdSyncUtxosResponse
)

// ProtocolMessageCommandToString maps all MessageCommands to their string representation
var ProtocolMessageCommandToString = map[MessageCommand]string{
	CmdSyncKernelsRequest:  "SyncKernelsRequest",
	CmdSyncKernelsResponse: "SyncKernelsResponse",
	CmdSyncUtxosRequest:    "SyncUtxosRequest",
	CmdSyncUtxosResponse:   "SyncUtxosResponse",
}

// Message is an interface that describes a sync message. A type that
// implements Message has complete control over the representation of its data
// and may therefore contain additional or fewer fields than those which
// are used directly in the protocol encoded message.
type Message interface {
	Command() MessageCommand
	ReceivedAt() time.Time
	SetReceivedAt(receivedAt time.Time)
}

type baseMessage struct {
	receivedAt time.Time
}

func (b *baseMessage) ReceivedAt() time.Time {
	return b.receivedAt
}

func (b *baseMessage) SetReceivedAt(receivedAt time.Time) {
	b.receivedAt = receivedAt
}
