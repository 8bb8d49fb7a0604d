package stats

import (
	"testing"

	"github.com/ridge/geyser/event"
	"github.com/stretchr/testify/require"
)

func TestTakeResets(t *testing.T) {
	c := &Counters{}
	c.Record(event.NewAccountUpdate(event.Pubkey{1}, event.Pubkey{}, 1, nil, false, 0, 1, 10), 100)
	c.Record(event.NewAccountUpdate(event.Pubkey{2}, event.Pubkey{}, 1, nil, false, 0, 1, 11), 100)
	c.Record(event.NewSlotUpdate(12, 11, event.Processed), 10)
	c.Record(event.BlockMeta{Slot: 11}, 50)
	c.Record(event.Transaction{Slot: 12}, 70)

	require.Equal(t, Snapshot{
		Bytes:           330,
		Accounts:        2,
		Slots:           1,
		BlockMeta:       1,
		Transactions:    1,
		AccountSlot:     11,
		SlotSlot:        12,
		BlockMetaSlot:   11,
		TransactionSlot: 12,
	}, c.Take())

	require.Equal(t, Snapshot{
		AccountSlot:     11,
		SlotSlot:        12,
		BlockMetaSlot:   11,
		TransactionSlot: 12,
	}, c.Take())
}
