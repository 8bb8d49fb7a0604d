package server

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/ridge/geyser/admission"
	"github.com/ridge/geyser/compression"
	"github.com/ridge/geyser/defaults"
	"github.com/ridge/geyser/identity"
	"github.com/ridge/geyser/metrics"
	"github.com/ridge/geyser/retry"
)

const (
	defaultAddress         = "0.0.0.0:10800"
	defaultDeferralGrace   = 30 * time.Second
	defaultStreamOpenRate  = 250_000 // streams per second per connection
	defaultStreamOpenBurst = 1024
	maxFilterStreams       = 16
)

// QUICParameters are the transport parameters of the server
type QUICParameters struct {
	MaxNumberOfStreamsPerClient int    `json:"max_number_of_streams_per_client"`
	RecieveWindowSize           uint64 `json:"recieve_window_size"`
	// ConnectionTimeout is the idle timeout, in seconds
	ConnectionTimeout      uint64 `json:"connection_timeout"`
	MaxNumberOfConnections int    `json:"max_number_of_connections,omitempty"`
	// MaxAckDelay is in milliseconds
	MaxAckDelay  uint64 `json:"max_ack_delay,omitempty"`
	AckExponent  uint64 `json:"ack_exponent,omitempty"`
	EnablePacing *bool  `json:"enable_pacing,omitempty"`
	UseBBR       bool   `json:"use_bbr,omitempty"`
	// StreamOpenRate limits stream openings per second per connection when
	// pacing is enabled
	StreamOpenRate int `json:"stream_open_rate,omitempty"`
	// SocketBufferSize sets the kernel UDP buffers; 0 keeps the system default
	SocketBufferSize int `json:"socket_buffer_size,omitempty"`
}

// CompressionParameters select the codec applied to every outgoing message
type CompressionParameters struct {
	CompressionType compression.Config `json:"compression_type"`
}

// Config is the configuration of the server
type Config struct {
	Address               string                `json:"address"`
	QUICParameters        QUICParameters        `json:"quic_parameters"`
	CompressionParameters CompressionParameters `json:"compression_parameters"`
	NumberOfRetries       int                   `json:"number_of_retries"`

	// MaxMessagesInQueue is the capacity of the ingest queue
	MaxMessagesInQueue int `json:"max_messages_in_queue,omitempty"`
	// DeferralGrace bounds how long a message may wait for stream capacity
	// before its connection is dropped as overloaded
	DeferralGrace time.Duration `json:"deferral_grace,omitempty"`
	// MetricsAddress is the TCP address of the /metrics and /status
	// endpoints; empty disables them
	MetricsAddress string `json:"metrics_address,omitempty"`

	// Conn, if set, is used instead of listening on Address. It must
	// outlive Server.Run, which does not close it.
	Conn net.PacketConn `json:"-"`
	// Identity is the TLS identity; a random one is generated if nil
	Identity *identity.Keypair `json:"-"`
	// Metrics receives operational counters; metrics.Noop if nil
	Metrics metrics.Collector `json:"-"`
}

// WithDefaults returns the config with zero fields replaced by defaults
func (c Config) WithDefaults() Config {
	if c.Address == "" {
		c.Address = defaultAddress
	}
	q := &c.QUICParameters
	if q.MaxNumberOfStreamsPerClient == 0 {
		q.MaxNumberOfStreamsPerClient = defaults.MaxStreams
	}
	if q.RecieveWindowSize == 0 {
		q.RecieveWindowSize = defaults.ReceiveWindowSize
	}
	if q.ConnectionTimeout == 0 {
		q.ConnectionTimeout = uint64(defaults.ConnectionTimeout / time.Second)
	}
	if q.MaxNumberOfConnections == 0 {
		q.MaxNumberOfConnections = defaults.MaxConnections
	}
	if q.MaxAckDelay == 0 {
		q.MaxAckDelay = uint64(defaults.MaxAckDelay / time.Millisecond)
	}
	if q.AckExponent == 0 {
		q.AckExponent = defaults.AckExponent
	}
	if q.EnablePacing == nil {
		pacing := defaults.EnablePacing
		q.EnablePacing = &pacing
	}
	if q.StreamOpenRate == 0 {
		q.StreamOpenRate = defaultStreamOpenRate
	}
	if c.NumberOfRetries == 0 {
		c.NumberOfRetries = defaults.NumberOfRetries
	}
	if c.MaxMessagesInQueue == 0 {
		c.MaxMessagesInQueue = defaults.MaxMessagesInQueue
	}
	if c.DeferralGrace == 0 {
		c.DeferralGrace = defaultDeferralGrace
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop{}
	}
	return c
}

// Validate checks the config. It expects defaults to be applied.
func (c Config) Validate() error {
	if c.Conn == nil {
		if _, err := net.ResolveUDPAddr("udp", c.Address); err != nil {
			return fmt.Errorf("invalid address %q: %w", c.Address, err)
		}
	}
	q := c.QUICParameters
	if q.MaxNumberOfConnections < 0 {
		return fmt.Errorf("negative connection limit %d", q.MaxNumberOfConnections)
	}
	if q.ConnectionTimeout == 0 {
		return errors.New("connection timeout must be positive")
	}
	if q.AckExponent > 20 {
		return fmt.Errorf("ack exponent %d is above 20", q.AckExponent)
	}
	if q.StreamOpenRate < 0 {
		return fmt.Errorf("negative stream open rate %d", q.StreamOpenRate)
	}
	if c.NumberOfRetries < 0 {
		return fmt.Errorf("negative number of retries %d", c.NumberOfRetries)
	}
	if c.MaxMessagesInQueue < 0 {
		return fmt.Errorf("negative queue capacity %d", c.MaxMessagesInQueue)
	}
	if _, err := compression.New(c.CompressionParameters.CompressionType); err != nil {
		return err
	}
	return c.Admission().Validate()
}

// Admission returns the configuration of per-connection stream budgets
func (c Config) Admission() admission.Config {
	return admission.Config{
		MaxStreams:    c.QUICParameters.MaxNumberOfStreamsPerClient,
		DeferralGrace: c.DeferralGrace,
	}.WithDefaults()
}

// DeliveryRetry is the retry policy of a single message: the first attempt
// plus NumberOfRetries retries, each on a fresh stream
func (c Config) DeliveryRetry() retry.Config {
	return retry.FixedConfig{MaxAttempts: c.NumberOfRetries + 1}
}

// QUICConfig maps the parameters onto the transport configuration.
//
// Ack delay, ack exponent, pacing and congestion control are not
// configurable in quic-go and are only reported.
func (c Config) QUICConfig() *quic.Config {
	q := c.QUICParameters
	return &quic.Config{
		MaxIdleTimeout:                 time.Duration(q.ConnectionTimeout) * time.Second,
		InitialStreamReceiveWindow:     q.RecieveWindowSize,
		MaxStreamReceiveWindow:         q.RecieveWindowSize,
		InitialConnectionReceiveWindow: q.RecieveWindowSize,
		MaxConnectionReceiveWindow:     q.RecieveWindowSize,
		MaxIncomingStreams:             -1, // no bidirectional streams
		MaxIncomingUniStreams:          maxFilterStreams,
	}
}

func (c Config) pacing() bool {
	return c.QUICParameters.EnablePacing != nil && *c.QUICParameters.EnablePacing && c.QUICParameters.StreamOpenRate > 0
}
