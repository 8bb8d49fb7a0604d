package event

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v4"
)

// Serialize returns the canonical binary encoding of an event. The same
// encoding is the uncompressed payload of a wire frame.
func Serialize(e Event) ([]byte, error) {
	switch e.(type) {
	case AccountUpdate, SlotUpdate, BlockMeta, Transaction:
	default:
		return nil, fmt.Errorf("cannot serialize %T", e)
	}
	b, err := msgpack.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s event: %w", e.Kind(), err)
	}
	return b, nil
}

// Deserialize decodes an event of the given kind produced by Serialize
func Deserialize(kind Kind, data []byte) (Event, error) {
	switch kind {
	case KindAccount:
		return unmarshal[AccountUpdate](kind, data)
	case KindSlot:
		return unmarshal[SlotUpdate](kind, data)
	case KindBlockMeta:
		return unmarshal[BlockMeta](kind, data)
	case KindTransaction:
		return unmarshal[Transaction](kind, data)
	default:
		return nil, fmt.Errorf("cannot deserialize unknown event %s", kind)
	}
}

func unmarshal[T Event](kind Kind, data []byte) (Event, error) {
	var e T
	if err := msgpack.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to deserialize %s event: %w", kind, err)
	}
	return e, nil
}
