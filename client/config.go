package client

import (
	"time"

	"github.com/quic-go/quic-go"
	"github.com/ridge/geyser/defaults"
	"github.com/ridge/geyser/event"
	"github.com/ridge/geyser/retry"
	"github.com/ridge/geyser/stats"
)

// Config is the configuration of a subscriber connection
type Config struct {
	// MaxStreams is the number of concurrent streams the server may open
	MaxStreams int
	// ReceiveWindowSize is the transport receive window
	ReceiveWindowSize uint64
	// IdleTimeout closes a silent connection
	IdleTimeout time.Duration
	// HandshakeTimeout bounds a single connection attempt
	HandshakeTimeout time.Duration
	// MaxPayloadSize bounds a single message, before and after decompression
	MaxPayloadSize int
	// Dial is the retry policy of Connect
	Dial retry.Config
	// ServerPubkey, if set, pins the identity of the server
	ServerPubkey *event.Pubkey
	// Stats, if set, counts received notifications
	Stats *stats.Counters
}

var defaultDialRetry = retry.ExpConfig{
	Min:         100 * time.Millisecond,
	Max:         5 * time.Second,
	Scale:       2,
	MaxAttempts: 5,
}

// WithDefaults returns the config with zero fields replaced by defaults
func (c Config) WithDefaults() Config {
	if c.MaxStreams == 0 {
		c.MaxStreams = defaults.MaxStreams
	}
	if c.ReceiveWindowSize == 0 {
		c.ReceiveWindowSize = defaults.ReceiveWindowSize
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = defaults.ConnectionTimeout
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 5 * time.Second
	}
	if c.MaxPayloadSize == 0 {
		c.MaxPayloadSize = defaults.MaxPayloadSize
	}
	if c.Dial == nil {
		c.Dial = defaultDialRetry
	}
	return c
}

func (c Config) quicConfig() *quic.Config {
	return &quic.Config{
		HandshakeIdleTimeout:           c.HandshakeTimeout,
		MaxIdleTimeout:                 c.IdleTimeout,
		KeepAlivePeriod:                c.IdleTimeout / 2,
		InitialStreamReceiveWindow:     c.ReceiveWindowSize,
		MaxStreamReceiveWindow:         c.ReceiveWindowSize,
		InitialConnectionReceiveWindow: c.ReceiveWindowSize,
		MaxConnectionReceiveWindow:     c.ReceiveWindowSize,
		MaxIncomingStreams:             -1,
		MaxIncomingUniStreams:          int64(c.MaxStreams),
	}
}
