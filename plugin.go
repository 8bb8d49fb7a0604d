package geyser

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ridge/geyser/event"
	"github.com/ridge/geyser/metrics"
	"github.com/ridge/geyser/queue"
	"github.com/ridge/geyser/server"
	"github.com/ridge/geyser/tlog"
	"go.uber.org/zap"
)

// signatureCacheSize is the number of recent transaction signatures
// remembered to suppress duplicate notifications
const signatureCacheSize = 1 << 16

// Plugin receives notifications from the validator and serves them to
// subscribers
type Plugin struct {
	queue      *queue.Queue
	server     *server.Server
	metrics    metrics.Collector
	signatures *lru.Cache[event.Signature, struct{}]
}

// New creates a plugin. Nothing is served until Run is called, but
// notifications are queued from the start.
func New(config server.Config) (*Plugin, error) {
	config = config.WithDefaults()
	q := queue.New(config.MaxMessagesInQueue, queue.WithLengthObserver(config.Metrics.QueueLength))
	srv, err := server.New(config, q)
	if err != nil {
		return nil, err
	}
	signatures, err := lru.New[event.Signature, struct{}](signatureCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create signature cache: %w", err)
	}
	return &Plugin{
		queue:      q,
		server:     srv,
		metrics:    config.Metrics,
		signatures: signatures,
	}, nil
}

// Run serves subscribers until the context is closed. Notifications
// published afterwards are rejected.
func (p *Plugin) Run(ctx context.Context) error {
	defer func() {
		p.queue.Close()
		tlog.Get(ctx).Info("Geyser plugin stopped", zap.Object("queue", p.queue.Stats()))
	}()
	return p.server.Run(ctx)
}

// Server returns the underlying server
func (p *Plugin) Server() *server.Server {
	return p.server
}

// Publish queues an event for delivery without blocking
func (p *Plugin) Publish(e event.Event) queue.Outcome {
	outcome := p.queue.Publish(e)
	p.metrics.QueueOutcome(outcome.String())
	return outcome
}

// NotifyAccount reports an account write
func (p *Plugin) NotifyAccount(u event.AccountUpdate) {
	p.Publish(u)
}

// NotifySlot reports a slot status change
func (p *Plugin) NotifySlot(u event.SlotUpdate) {
	p.Publish(u)
}

// NotifyBlockMeta reports the metadata of a produced block
func (p *Plugin) NotifyBlockMeta(m event.BlockMeta) {
	p.Publish(m)
}

// NotifyTransaction reports a processed transaction. A signature already
// reported recently is ignored; the return value tells whether the
// transaction was published.
func (p *Plugin) NotifyTransaction(t event.Transaction) bool {
	if seen, _ := p.signatures.ContainsOrAdd(t.Signature, struct{}{}); seen {
		return false
	}
	p.Publish(t)
	return true
}
