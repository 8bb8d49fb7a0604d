package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ridge/geyser/compression"
	"github.com/ridge/geyser/event"
)

// HeaderSize is the length of the frame header
const HeaderSize = 6

// Header is the fixed-size frame prefix
type Header struct {
	Kind        MessageKind
	Compression compression.Type
	Length      uint32
}

func (h Header) put(b []byte) {
	b[0] = byte(h.Kind)
	b[1] = byte(h.Compression)
	binary.BigEndian.PutUint32(b[2:HeaderSize], h.Length)
}

func parseHeader(b []byte) Header {
	return Header{
		Kind:        MessageKind(b[0]),
		Compression: compression.Type(b[1]),
		Length:      binary.BigEndian.Uint32(b[2:HeaderSize]),
	}
}

// Frame builds a frame around an already compressed payload
func Frame(kind MessageKind, codec compression.Type, payload []byte) []byte {
	res := make([]byte, HeaderSize+len(payload))
	Header{Kind: kind, Compression: codec, Length: uint32(len(payload))}.put(res)
	copy(res[HeaderSize:], payload)
	return res
}

// Serialize returns the uncompressed payload of a message
func Serialize(msg Message) ([]byte, error) {
	switch msg := msg.(type) {
	case FiltersMsg:
		return encodeFilters(msg)
	case EventMessage:
		return event.Serialize(msg.Event())
	default:
		panic(fmt.Sprintf("unexpected message type %T", msg))
	}
}

// Encode serializes, compresses and frames a message
func Encode(msg Message, codec compression.Codec) ([]byte, error) {
	payload, err := Serialize(msg)
	if err != nil {
		return nil, err
	}
	compressed, err := codec.Compress(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to compress %s message: %w", msg.Kind(), err)
	}
	return Frame(msg.Kind(), codec.Type(), compressed), nil
}

// EncodeEvent is a shorthand for Encode(FromEvent(e), codec)
func EncodeEvent(e event.Event, codec compression.Codec) ([]byte, error) {
	return Encode(FromEvent(e), codec)
}

// Decode reads exactly one frame from r and expects r to end right after it.
//
// limit bounds both the payload length announced by the header and the size
// of the decompressed payload. Any violation results in *ErrProtocol; read
// errors of the underlying stream are returned as is.
func Decode(r io.Reader, limit int) (Message, error) {
	var hb [HeaderSize]byte
	if _, err := io.ReadFull(r, hb[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, protocolError(err, "truncated header")
		}
		return nil, err
	}
	h := parseHeader(hb[:])
	if err := h.validate(limit); err != nil {
		return nil, err
	}

	payload := make([]byte, h.Length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, protocolError(err, "truncated %s payload: expected %d bytes", h.Kind, h.Length)
		}
		return nil, err
	}

	var extra [1]byte
	switch n, err := io.ReadFull(r, extra[:]); {
	case n != 0:
		return nil, protocolError(nil, "trailing bytes after %s frame", h.Kind)
	case err != nil && !errors.Is(err, io.EOF):
		return nil, err
	}

	return decodePayload(h, payload, limit)
}

// Parse decodes a frame held in memory, with the same checks as Decode
func Parse(frame []byte, limit int) (Message, error) {
	if len(frame) < HeaderSize {
		return nil, protocolError(nil, "truncated header")
	}
	h := parseHeader(frame)
	if err := h.validate(limit); err != nil {
		return nil, err
	}
	if rest := len(frame) - HeaderSize; rest != int(h.Length) {
		return nil, protocolError(nil, "%s payload length mismatch: header says %d, frame has %d", h.Kind, h.Length, rest)
	}
	return decodePayload(h, frame[HeaderSize:], limit)
}

func (h Header) validate(limit int) error {
	switch h.Kind {
	case KindAccount, KindSlot, KindBlockMeta, KindTransaction, KindFilters:
	default:
		return protocolError(nil, "unknown message kind %d", uint8(h.Kind))
	}
	if int64(h.Length) > int64(limit) {
		return protocolError(nil, "%s payload of %d bytes exceeds limit of %d", h.Kind, h.Length, limit)
	}
	return nil
}

func decodePayload(h Header, payload []byte, limit int) (Message, error) {
	raw, err := compression.Decompress(h.Compression, payload, limit)
	if err != nil {
		return nil, protocolError(err, "invalid %s payload", h.Kind)
	}
	if h.Kind == KindFilters {
		msg, err := decodeFilters(raw)
		if err != nil {
			return nil, protocolError(err, "invalid filters payload")
		}
		return msg, nil
	}
	e, err := event.Deserialize(event.Kind(h.Kind), raw)
	if err != nil {
		return nil, protocolError(err, "invalid %s payload", h.Kind)
	}
	return FromEvent(e), nil
}
