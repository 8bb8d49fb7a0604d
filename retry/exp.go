package retry

import "time"

// ExpConfig configures exponential backoff
type ExpConfig struct {
	Min   time.Duration
	Max   time.Duration
	Scale float64
	// MaxAttempts is the maximum number of attempts taken; 0 = unlimited
	MaxAttempts int
}

// DefaultExpConfig is the backoff used to reconnect to a server
var DefaultExpConfig = ExpConfig{
	Min:   100 * time.Millisecond,
	Max:   10 * time.Second,
	Scale: 2.0,
}

// Delays implements interface Config. The first attempt is immediate.
func (ec ExpConfig) Delays() DelayFn {
	next := ec.Min
	attempts := 0
	return func() (time.Duration, bool) {
		attempts++
		switch {
		case attempts == 1:
			return 0, true
		case ec.MaxAttempts != 0 && attempts > ec.MaxAttempts:
			return 0, false
		}
		delay := next
		next = time.Duration(float64(next) * ec.Scale)
		if next > ec.Max {
			next = ec.Max
		}
		return delay, true
	}
}
