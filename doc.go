// Package geyser streams validator state changes to subscribers over QUIC.
//
// A Plugin sits between the validator, which reports account writes, slot
// status changes, block metadata and transactions as they happen, and any
// number of remote subscribers. Notifications never block the validator:
// they are published into a bounded queue that coalesces account updates
// under pressure and drops the oldest events when full.
//
// Subscribers connect with the client package, send a set of filters and
// receive every matching event as one message per QUIC stream.
//
// # Example
//
//	plugin, err := geyser.New(server.Config{
//	    Address: "0.0.0.0:10800",
//	    CompressionParameters: server.CompressionParameters{
//	        CompressionType: compression.Lz4Fast(8),
//	    },
//	})
//	if err != nil {
//	    return err
//	}
//	spawn("geyser", parallel.Fail, plugin.Run)
//
//	// from the validator callbacks
//	plugin.NotifySlot(event.NewSlotUpdate(slot, parent, event.Processed))
//
// # Delivery guarantees
//
// Delivery is best effort. Events missed while a subscriber is disconnected
// are not replayed. Events are not ordered across streams, so subscribers
// resolve account state by write version (event.AccountState) and slot
// state by commitment (event.SlotState).
//
// A subscriber that cannot keep up is disconnected once its stream budget is
// exhausted; other subscribers are not affected.
package geyser
