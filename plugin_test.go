package geyser

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ridge/geyser/client"
	"github.com/ridge/geyser/event"
	"github.com/ridge/geyser/filter"
	"github.com/ridge/geyser/identity"
	"github.com/ridge/geyser/metrics"
	"github.com/ridge/geyser/queue"
	"github.com/ridge/geyser/server"
	"github.com/ridge/geyser/test"
	"github.com/ridge/geyser/tnet"
	"github.com/ridge/geyser/wire"
	"github.com/ridge/must/v2"
	"github.com/ridge/parallel"
	"github.com/stretchr/testify/require"
)

func transaction(sig byte, slot uint64) event.Transaction {
	return event.Transaction{Slot: slot, Signature: event.Signature{sig}, AccountKeys: []event.Pubkey{{sig}}}
}

func TestNotifyTransactionDeduplicates(t *testing.T) {
	p, err := New(server.Config{MaxMessagesInQueue: 10})
	require.NoError(t, err)

	require.True(t, p.NotifyTransaction(transaction(1, 10)))
	require.False(t, p.NotifyTransaction(transaction(1, 11)))
	require.True(t, p.NotifyTransaction(transaction(2, 11)))
	require.Equal(t, uint64(2), p.queue.Stats().Published)
}

func TestPublishOutcome(t *testing.T) {
	m := metrics.NewPrometheus()
	p, err := New(server.Config{MaxMessagesInQueue: 1, Metrics: m})
	require.NoError(t, err)

	require.Equal(t, queue.Enqueued, p.Publish(event.NewSlotUpdate(1, 0, event.Processed)))
	require.Equal(t, queue.DroppedOldest, p.Publish(event.NewSlotUpdate(2, 1, event.Processed)))
	expected := `
# HELP geyser_queue_publish_total the number of events published into the ingest queue, by outcome
# TYPE geyser_queue_publish_total counter
geyser_queue_publish_total{outcome="droppedOldest"} 1
geyser_queue_publish_total{outcome="enqueued"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "geyser_queue_publish_total"))
}

func TestPluginDelivers(t *testing.T) {
	conn := tnet.ListenUDPOnRandomPort()
	group := test.GroupWithTimeout(t, 30*time.Second)

	p, err := New(server.Config{Conn: conn})
	require.NoError(t, err)
	ctx, stop := context.WithCancel(group.Context())
	t.Cleanup(stop)
	group.Spawn("plugin", parallel.Continue, func(context.Context) error {
		err := p.Run(ctx)
		_ = conn.Close()
		if !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	c, err := client.Connect(group.Context(), conn.LocalAddr().String(), must.OK1(identity.Generate()), client.Config{})
	require.NoError(t, err)
	messages := make(chan wire.Message, 10)
	group.Spawn("client", parallel.Continue, func(ctx context.Context) error {
		_ = c.Run(ctx, messages)
		return nil
	})
	require.NoError(t, c.Subscribe(group.Context(), []filter.Filter{filter.TransactionFilter{}}))
	require.Eventually(t, func() bool {
		connections := p.Server().Status().Connections
		return len(connections) == 1 && connections[0].Filters == 1
	}, 5*time.Second, 5*time.Millisecond)

	tx := transaction(7, 100)
	require.True(t, p.NotifyTransaction(tx))
	require.False(t, p.NotifyTransaction(tx))
	test.AssertForefrontEvents[wire.Message](t, messages, wire.TransactionMsg{Transaction: tx})
	time.Sleep(100 * time.Millisecond)
	test.AssertNoMoreEvents[wire.Message](t, messages)

	stop()
	require.Eventually(t, func() bool {
		return p.Publish(event.NewSlotUpdate(1, 0, event.Processed)) == queue.Rejected
	}, 5*time.Second, 5*time.Millisecond)
}
