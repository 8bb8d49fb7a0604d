// Package event describes the state changes streamed from a validator to
// subscribers.
//
// An Event is one of four variants: AccountUpdate, SlotUpdate, BlockMeta and
// Transaction. The set is closed: only types declared in this package
// implement Event, so a type switch over the four variants is exhaustive.
//
// Delivery gives no ordering guarantee across events. Receivers resolve the
// authoritative state of an account by its WriteVersion (see AccountState)
// and of a slot by its commitment level (see SlotState), never by arrival
// order.
package event

import (
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Kind identifies the variant of an Event
type Kind uint8

// Kind values
const (
	KindAccount Kind = iota + 1
	KindSlot
	KindBlockMeta
	KindTransaction
)

func (k Kind) String() string {
	switch k {
	case KindAccount:
		return "account"
	case KindSlot:
		return "slot"
	case KindBlockMeta:
		return "blockmeta"
	case KindTransaction:
		return "transaction"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Event is a state change notification
type Event interface {
	zapcore.ObjectMarshaler
	Kind() Kind
	isEvent()
}

// Account is the state of an account after a write
type Account struct {
	Lamports   uint64
	Data       []byte
	Owner      Pubkey
	Executable bool
	RentEpoch  uint64
}

// AccountUpdate reports a write to an account.
//
// WriteVersion grows monotonically over a validator session. For a given
// Pubkey, only the update with the highest WriteVersion is authoritative.
type AccountUpdate struct {
	Pubkey       Pubkey
	Account      Account
	WriteVersion uint64
	Slot         uint64
}

// CommitmentLevel tells how irreversible the state of a slot is
type CommitmentLevel uint8

// CommitmentLevel values, in order of increasing finality
const (
	Processed CommitmentLevel = iota
	Confirmed
	Finalized
)

func (c CommitmentLevel) String() string {
	switch c {
	case Processed:
		return "processed"
	case Confirmed:
		return "confirmed"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("commitment(%d)", uint8(c))
	}
}

// Valid reports whether c is one of the declared levels
func (c CommitmentLevel) Valid() bool {
	return c <= Finalized
}

// ParseCommitmentLevel parses the textual form of a commitment level
func ParseCommitmentLevel(s string) (CommitmentLevel, error) {
	switch s {
	case "processed":
		return Processed, nil
	case "confirmed":
		return Confirmed, nil
	case "finalized":
		return Finalized, nil
	default:
		return 0, fmt.Errorf("unknown commitment level %q", s)
	}
}

// SlotUpdate announces a slot reaching a commitment level. A slot may be
// announced again as its commitment advances, never regressing.
type SlotUpdate struct {
	Slot       uint64
	Parent     uint64
	Commitment CommitmentLevel
}

// RewardType is the reason a reward was paid
type RewardType uint8

// RewardType values
const (
	RewardUnknown RewardType = iota
	RewardFee
	RewardRent
	RewardStaking
	RewardVoting
)

// Reward is a balance change paid out in a block
type Reward struct {
	Pubkey      string
	Lamports    int64
	PostBalance uint64
	RewardType  RewardType
	Commission  *uint8
}

// BlockMeta summarizes a completed slot. It is emitted once per slot and
// never changes afterwards.
type BlockMeta struct {
	Slot                     uint64
	ParentSlot               uint64
	Blockhash                string
	ParentBlockhash          string
	Rewards                  []Reward
	BlockHeight              *uint64
	ExecutedTransactionCount uint64
	EntriesCount             uint64
}

// TransactionMeta is the execution status of a transaction
type TransactionMeta struct {
	Err                  string
	Fee                  uint64
	PreBalances          []uint64
	PostBalances         []uint64
	ComputeUnitsConsumed *uint64
	LogMessages          []string
}

// Transaction reports an executed transaction. It is emitted at most once
// per Signature.
type Transaction struct {
	Slot        uint64
	Signature   Signature
	IsVote      bool
	Index       uint64
	AccountKeys []Pubkey
	Message     []byte // opaque serialized transaction message
	Meta        TransactionMeta
}

// Kind implements Event
func (AccountUpdate) Kind() Kind { return KindAccount }

// Kind implements Event
func (SlotUpdate) Kind() Kind { return KindSlot }

// Kind implements Event
func (BlockMeta) Kind() Kind { return KindBlockMeta }

// Kind implements Event
func (Transaction) Kind() Kind { return KindTransaction }

func (AccountUpdate) isEvent() {}
func (SlotUpdate) isEvent()    {}
func (BlockMeta) isEvent()     {}
func (Transaction) isEvent()   {}

// NewAccountUpdate builds an AccountUpdate from the fields reported by the
// host. The data slice is retained, not copied.
func NewAccountUpdate(pubkey, owner Pubkey, lamports uint64, data []byte, executable bool, rentEpoch, writeVersion, slot uint64) AccountUpdate {
	return AccountUpdate{
		Pubkey: pubkey,
		Account: Account{
			Lamports:   lamports,
			Data:       data,
			Owner:      owner,
			Executable: executable,
			RentEpoch:  rentEpoch,
		},
		WriteVersion: writeVersion,
		Slot:         slot,
	}
}

// NewSlotUpdate builds a SlotUpdate
func NewSlotUpdate(slot, parent uint64, commitment CommitmentLevel) SlotUpdate {
	return SlotUpdate{Slot: slot, Parent: parent, Commitment: commitment}
}

// Slot returns the slot an event belongs to
func Slot(e Event) uint64 {
	switch e := e.(type) {
	case AccountUpdate:
		return e.Slot
	case SlotUpdate:
		return e.Slot
	case BlockMeta:
		return e.Slot
	case Transaction:
		return e.Slot
	default:
		panic(fmt.Sprintf("unexpected event type %T", e))
	}
}
