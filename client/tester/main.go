// Command tester subscribes to a geyser server and reports the notification
// rate every second.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/ridge/geyser/client"
	"github.com/ridge/geyser/compression"
	"github.com/ridge/geyser/event"
	"github.com/ridge/geyser/filter"
	"github.com/ridge/geyser/identity"
	"github.com/ridge/geyser/run"
	"github.com/ridge/geyser/server"
	"github.com/ridge/geyser/stats"
	"github.com/ridge/geyser/tlog"
	"github.com/ridge/geyser/wire"
	"github.com/ridge/parallel"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// sampleConfig is the server configuration the tester is meant to run against
func sampleConfig() server.Config {
	return server.Config{
		Address: "127.0.0.1:10800",
		QUICParameters: server.QUICParameters{
			MaxNumberOfStreamsPerClient: 1024,
			RecieveWindowSize:           1_000_000,
			ConnectionTimeout:           600,
		},
		CompressionParameters: server.CompressionParameters{
			CompressionType: compression.Lz4Fast(8),
		},
		NumberOfRetries: 100,
	}
}

func main() {
	var url string
	var interval time.Duration
	pflag.StringVar(&url, "url", "127.0.0.1:10800", "geyser server address")
	pflag.DurationVar(&interval, "interval", time.Second, "report interval")
	pflag.Parse()

	run.Tool(func(ctx context.Context) error {
		config, err := json.Marshal(map[string]any{"libpath": "temp", "quic_plugin": sampleConfig()})
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, string(config))

		id, err := identity.Generate()
		if err != nil {
			return err
		}
		counters := &stats.Counters{}
		c, err := client.Connect(ctx, url, id, client.Config{Stats: counters})
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.Subscribe(ctx, []filter.Filter{
			filter.Owner(event.Pubkey{}),
			filter.SlotFilter{},
			filter.BlockMetaFilter{},
		}); err != nil {
			return err
		}

		return parallel.Run(ctx, func(ctx context.Context, spawn parallel.SpawnFn) error {
			sink := make(chan wire.Message, 1024)
			spawn("client", parallel.Fail, func(ctx context.Context) error {
				return c.Run(ctx, sink)
			})
			spawn("drain", parallel.Fail, func(ctx context.Context) error {
				for {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-sink:
					}
				}
			})
			spawn("report", parallel.Fail, func(ctx context.Context) error {
				return report(ctx, counters, interval)
			})
			return nil
		})
	})
}

func report(ctx context.Context, counters *stats.Counters, interval time.Duration) error {
	logger := tlog.Get(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			logger.Info("Notifications received", zap.Object("stats", counters.Take()))
		}
	}
}
