package wire

import (
	"github.com/ridge/must/v2"
	"go.uber.org/zap/zapcore"
)

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of Header with zap.Object
func (h Header) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddString("kind", h.Kind.String())
	e.AddString("compression", h.Compression.String())
	e.AddUint32("length", h.Length)
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of FiltersMsg with zap.Object
func (m FiltersMsg) MarshalLogObject(e zapcore.ObjectEncoder) error {
	counts := map[string]int{}
	for _, f := range m.Filters {
		counts[f.Target().String()]++
	}
	for target, n := range counts {
		e.AddInt(target, n)
	}
	return nil
}

// MarshalLogObject implements zapcore.ObjectMarshaler to allow logging of ErrClosed with zap.Object
func (err ErrClosed) MarshalLogObject(e zapcore.ObjectEncoder) error {
	e.AddString("code", err.Code.String())
	e.AddBool("remote", err.Remote)
	if err.Reason != "" {
		e.AddString("reason", err.Reason)
	}
	return nil
}

// LogMessage returns a zapcore.ObjectMarshaler describing any message
func LogMessage(msg Message) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(e zapcore.ObjectEncoder) error {
		e.AddString("kind", msg.Kind().String())
		if m, ok := msg.(zapcore.ObjectMarshaler); ok {
			must.OK(m.MarshalLogObject(e))
		}
		return nil
	})
}
