// Package defaults holds the protocol constants shared by the server and the
// client.
package defaults

import "time"

const (
	// MaxStreams is the default cap on concurrently open streams per client
	MaxStreams = 512 * 1024

	// MaxMessagesInQueue is the default capacity of the ingest queue
	MaxMessagesInQueue = 1024 * 1024

	// MaxAllowedPartialResponses is the number of in-flight streams at which
	// new deliveries are deferred
	MaxAllowedPartialResponses = MaxStreams * 3 / 4

	// ReceiveWindowSize is the default transport receive window (24 MiB)
	ReceiveWindowSize = 24 * 1024 * 1024

	// ConnectionTimeout is the default idle timeout
	ConnectionTimeout = 10 * time.Second

	// MaxConnections is the default limit of concurrent connections to a server
	MaxConnections = 10

	// MaxAckDelay is the default maximum ACK delay
	MaxAckDelay = 25 * time.Millisecond

	// AckExponent is the default ACK delay exponent
	AckExponent = 3

	// MaxDatagramSize is the maximum UDP payload the protocol is tuned for
	MaxDatagramSize = 1350

	// EnablePacing turns stream-open pacing on by default
	EnablePacing = true

	// UseBBR selects BBR congestion control; off by default
	UseBBR = false

	// IncrementalPriority marks streams as incremental by default
	IncrementalPriority = true

	// NumberOfRetries is the default number of attempts to deliver a message
	// over a fresh stream
	NumberOfRetries = 100

	// MaxPayloadSize bounds the size of a single framed message, before and
	// after decompression
	MaxPayloadSize = 64 * 1024 * 1024
)

// ALPN is the application-layer protocol identifier negotiated over TLS
const ALPN = "geyser"
