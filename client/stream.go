package client

import (
	"context"

	"github.com/ridge/geyser/wire"
	"github.com/ridge/parallel"
)

const streamBuffer = 1024

// Stream is a pull-style sequence of the messages of a client
type Stream struct {
	group    *parallel.Group
	messages chan wire.Message
	done     chan struct{}
	err      error
}

// Stream starts receiving messages from the server. It takes the place of
// Run, so neither may be called afterwards.
func (c *Client) Stream(ctx context.Context) *Stream {
	s := &Stream{
		group:    parallel.NewGroup(ctx),
		messages: make(chan wire.Message, streamBuffer),
		done:     make(chan struct{}),
	}
	s.group.Spawn("run", parallel.Exit, func(ctx context.Context) error {
		defer close(s.done)
		s.err = c.Run(ctx, s.messages)
		return nil
	})
	return s
}

// Next returns the next message. Once the connection is over, messages
// received before the end are returned first, then the terminal error of Run
// forever.
func (s *Stream) Next(ctx context.Context) (wire.Message, error) {
	select {
	case msg := <-s.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
	}
	select {
	case msg := <-s.messages:
		return msg, nil
	default:
		return nil, s.err
	}
}

// Close stops receiving and waits for the receiver to exit
func (s *Stream) Close() {
	s.group.Exit(nil)
	_ = s.group.Wait()
}
