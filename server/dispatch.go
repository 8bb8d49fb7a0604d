package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/ridge/geyser/event"
	"github.com/ridge/geyser/queue"
	"github.com/ridge/geyser/tlog"
	"github.com/ridge/geyser/wire"
	"go.uber.org/zap"
)

// dispatch fans events out of the ingest queue. Each event is encoded at
// most once, and only if some session wants it.
func (s *Server) dispatch(ctx context.Context) error {
	logger := tlog.Get(ctx)
	var targets []*session
	for {
		e, err := s.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) {
				logger.Info("Ingest queue closed")
				<-ctx.Done()
				return ctx.Err()
			}
			return err
		}

		targets = s.matching(e, targets[:0])
		if len(targets) == 0 {
			continue
		}
		frame, err := wire.EncodeEvent(e, s.codec)
		if err != nil {
			// a subscriber must not silently miss an event it asked for
			err = fmt.Errorf("failed to encode %s event: %w", e.Kind(), err)
			logger.Error("Dropping subscribers of an event that cannot be encoded", zap.Object("event", e), zap.Int("subscribers", len(targets)), zap.Error(err))
			s.config.Metrics.EncodingFailed(e.Kind().String())
			for _, sess := range targets {
				sess.fail(wire.CloseDeliveryFailed, err)
			}
			continue
		}
		for _, sess := range targets {
			sess.enqueue(outgoing{event: e, frame: frame})
		}
	}
}

func (s *Server) matching(e event.Event, res []*session) []*session {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.sessions {
		if sess.matches(e) {
			res = append(res, sess)
		}
	}
	return res
}
