package client

import (
	"testing"
	"time"

	"github.com/ridge/geyser/defaults"
	"github.com/stretchr/testify/require"
)

func TestConfigDefaults(t *testing.T) {
	c := Config{MaxStreams: 16}.WithDefaults()
	require.Equal(t, 16, c.MaxStreams)
	require.Equal(t, defaults.ConnectionTimeout, c.IdleTimeout)
	require.Equal(t, defaults.MaxPayloadSize, c.MaxPayloadSize)
	require.Equal(t, defaultDialRetry, c.Dial)

	q := c.quicConfig()
	require.Equal(t, int64(16), q.MaxIncomingUniStreams)
	require.Equal(t, int64(-1), q.MaxIncomingStreams)
	require.Equal(t, defaults.ConnectionTimeout/2, q.KeepAlivePeriod)
	require.Equal(t, 5*time.Second, q.HandshakeIdleTimeout)
}
