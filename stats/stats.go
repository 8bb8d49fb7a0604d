// Package stats keeps process-wide diagnostic counters.
//
// Counters are read with Take, which resets them, so that every read reports
// the activity since the previous one. Nothing in the delivery path depends
// on them.
package stats

import (
	"github.com/ridge/geyser/event"
	"go.uber.org/atomic"
	"go.uber.org/zap/zapcore"
)

// Counters are notification counters by event kind, plus the last slot seen
// for each kind
type Counters struct {
	bytes        atomic.Uint64
	accounts     atomic.Uint64
	slots        atomic.Uint64
	blockMeta    atomic.Uint64
	transactions atomic.Uint64

	accountSlot     atomic.Uint64
	slotSlot        atomic.Uint64
	blockMetaSlot   atomic.Uint64
	transactionSlot atomic.Uint64
}

// Global collects the counters of the whole process
var Global = &Counters{}

// Record accounts for an event of the given encoded size
func (c *Counters) Record(e event.Event, size int) {
	c.bytes.Add(uint64(size))
	slot := event.Slot(e)
	switch e.Kind() {
	case event.KindAccount:
		c.accounts.Inc()
		c.accountSlot.Store(slot)
	case event.KindSlot:
		c.slots.Inc()
		c.slotSlot.Store(slot)
	case event.KindBlockMeta:
		c.blockMeta.Inc()
		c.blockMetaSlot.Store(slot)
	case event.KindTransaction:
		c.transactions.Inc()
		c.transactionSlot.Store(slot)
	}
}

// Snapshot is the value of counters at the time of Take
type Snapshot struct {
	Bytes        uint64
	Accounts     uint64
	Slots        uint64
	BlockMeta    uint64
	Transactions uint64

	AccountSlot     uint64
	SlotSlot        uint64
	BlockMetaSlot   uint64
	TransactionSlot uint64
}

// Take returns the counters and resets them. Last seen slots are not reset.
func (c *Counters) Take() Snapshot {
	return Snapshot{
		Bytes:        c.bytes.Swap(0),
		Accounts:     c.accounts.Swap(0),
		Slots:        c.slots.Swap(0),
		BlockMeta:    c.blockMeta.Swap(0),
		Transactions: c.transactions.Swap(0),

		AccountSlot:     c.accountSlot.Load(),
		SlotSlot:        c.slotSlot.Load(),
		BlockMetaSlot:   c.blockMetaSlot.Load(),
		TransactionSlot: c.transactionSlot.Load(),
	}
}

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of Snapshot with zap.Object
func (s Snapshot) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddUint64("bytes", s.Bytes)
	e.AddUint64("accounts", s.Accounts)
	e.AddUint64("slots", s.Slots)
	e.AddUint64("blockMeta", s.BlockMeta)
	e.AddUint64("transactions", s.Transactions)
	e.AddUint64("accountSlot", s.AccountSlot)
	e.AddUint64("slotSlot", s.SlotSlot)
	e.AddUint64("blockMetaSlot", s.BlockMetaSlot)
	e.AddUint64("transactionSlot", s.TransactionSlot)
	return nil
}
