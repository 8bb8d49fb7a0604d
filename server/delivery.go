package server

import (
	"context"
	"fmt"

	"github.com/ridge/geyser/retry"
	"github.com/ridge/geyser/stats"
	"github.com/ridge/geyser/tnet"
	"github.com/ridge/geyser/wire"
	"go.uber.org/zap"
)

// deliver writes the message on a fresh stream, retrying on a new stream
// while the failure is transient. Giving up drops the connection.
func (s *session) deliver(ctx context.Context, o outgoing) {
	attempts := 0
	err := retry.Do(ctx, s.server.config.DeliveryRetry(), func() error {
		attempts++
		if attempts > 1 {
			s.server.config.Metrics.DeliveryRetried()
		}
		return tnet.MaybeRetriableError(s.write(ctx, o.frame))
	})
	switch {
	case err == nil:
		kind := o.event.Kind().String()
		s.sent.Record(o.event, len(o.frame))
		stats.Global.Record(o.event, len(o.frame))
		s.messagesSent.Inc()
		s.bytesSent.Add(uint64(len(o.frame)))
		s.server.config.Metrics.MessageSent(kind, len(o.frame))
		if ce := s.logger.Check(zap.DebugLevel, "Message delivered"); ce != nil {
			ce.Write(zap.String("kind", kind), zap.Int("size", len(o.frame)), zap.Int("attempts", attempts))
		}
	case ctx.Err() != nil, tnet.IsConnectionGone(err):
		// the session is ending and the message goes with it
	default:
		s.fail(wire.CloseDeliveryFailed, fmt.Errorf("failed to deliver %s message after %d attempts: %w", o.event.Kind(), attempts, err))
	}
}

// write sends one frame on its own unidirectional stream
func (s *session) write(ctx context.Context, frame []byte) error {
	stream, err := s.conn.OpenUniStreamSync(ctx)
	if err != nil {
		return err
	}
	if _, err := stream.Write(frame); err != nil {
		stream.CancelWrite(0)
		return err
	}
	return stream.Close()
}
