// Package wire defines the messages exchanged between the server and its
// subscribers and their framing.
//
// Every message travels on its own unidirectional stream as a single frame:
//
//	kind        u8
//	compression u8
//	length      u32, big-endian
//	payload     length bytes, compressed serialized message
//
// The stream ends right after the payload.
package wire

import (
	"fmt"

	"github.com/ridge/geyser/event"
	"github.com/ridge/geyser/filter"
)

// MessageKind is the frame tag identifying the message variant
type MessageKind uint8

// Message kinds
const (
	KindAccount     = MessageKind(event.KindAccount)
	KindSlot        = MessageKind(event.KindSlot)
	KindBlockMeta   = MessageKind(event.KindBlockMeta)
	KindTransaction = MessageKind(event.KindTransaction)
	KindFilters     MessageKind = 5
)

func (k MessageKind) String() string {
	if k == KindFilters {
		return "filters"
	}
	return event.Kind(k).String()
}

// Message is a closed set of variants: AccountMsg, SlotMsg, BlockMetaMsg,
// TransactionMsg (server to client) and FiltersMsg (client to server)
type Message interface {
	Kind() MessageKind
	isMessage()
}

// EventMessage is a Message carrying an event
type EventMessage interface {
	Message
	Event() event.Event
}

// AccountMsg carries an account update
type AccountMsg struct{ event.AccountUpdate }

// SlotMsg carries a slot status change
type SlotMsg struct{ event.SlotUpdate }

// BlockMetaMsg carries block metadata
type BlockMetaMsg struct{ event.BlockMeta }

// TransactionMsg carries a transaction
type TransactionMsg struct{ event.Transaction }

// FiltersMsg replaces the subscription of the sending client
type FiltersMsg struct {
	Filters []filter.Filter
}

// Kind implements Message
func (AccountMsg) Kind() MessageKind { return KindAccount }

// Kind implements Message
func (SlotMsg) Kind() MessageKind { return KindSlot }

// Kind implements Message
func (BlockMetaMsg) Kind() MessageKind { return KindBlockMeta }

// Kind implements Message
func (TransactionMsg) Kind() MessageKind { return KindTransaction }

// Kind implements Message
func (FiltersMsg) Kind() MessageKind { return KindFilters }

func (AccountMsg) isMessage()     {}
func (SlotMsg) isMessage()        {}
func (BlockMetaMsg) isMessage()   {}
func (TransactionMsg) isMessage() {}
func (FiltersMsg) isMessage()     {}

// Event implements EventMessage
func (m AccountMsg) Event() event.Event { return m.AccountUpdate }

// Event implements EventMessage
func (m SlotMsg) Event() event.Event { return m.SlotUpdate }

// Event implements EventMessage
func (m BlockMetaMsg) Event() event.Event { return m.BlockMeta }

// Event implements EventMessage
func (m TransactionMsg) Event() event.Event { return m.Transaction }

// FromEvent wraps an event into the corresponding message
func FromEvent(e event.Event) EventMessage {
	switch e := e.(type) {
	case event.AccountUpdate:
		return AccountMsg{e}
	case event.SlotUpdate:
		return SlotMsg{e}
	case event.BlockMeta:
		return BlockMetaMsg{e}
	case event.Transaction:
		return TransactionMsg{e}
	default:
		panic(fmt.Sprintf("unexpected event type %T", e))
	}
}
