package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExpDelays(t *testing.T) {
	delays := ExpConfig{Min: time.Minute, Max: 5 * time.Minute, Scale: 2, MaxAttempts: 6}.Delays()
	for _, expected := range []time.Duration{0, time.Minute, 2 * time.Minute, 4 * time.Minute, 5 * time.Minute, 5 * time.Minute} {
		d, ok := delays()
		assert.True(t, ok)
		assert.Equal(t, expected, d)
	}
	_, ok := delays()
	assert.False(t, ok)
}
