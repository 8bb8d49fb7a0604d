package queue

import "go.uber.org/zap/zapcore"

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of Stats with zap.Object
func (s Stats) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddUint64("published", s.Published)
	e.AddUint64("superseded", s.Superseded)
	e.AddUint64("stale", s.Stale)
	e.AddUint64("dropped", s.Dropped)
	return nil
}
