// Package compression implements the payload codecs negotiated per frame.
//
// The sender picks a codec from its configuration and tags every frame with
// the codec type; the receiver selects the decompressor from the tag.
package compression

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type identifies a codec on the wire
type Type uint8

// Codec types
const (
	None Type = iota
	LZ4
	Zstd
	Snappy
)

var typeNames = map[Type]string{
	None:   "None",
	LZ4:    "Lz4Fast",
	Zstd:   "Zstd",
	Snappy: "Snappy",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%d)", t)
}

// ErrUnknownType is returned for codec tags this package does not implement
var ErrUnknownType = errors.New("unknown compression type")

// ErrTooLarge is returned when the decompressed payload exceeds the limit
var ErrTooLarge = errors.New("decompressed payload too large")

// Config selects the sender codec.
//
// The JSON form is either the bare codec name ("None", "Snappy") or an object
// mapping the codec name to its level ({"Lz4Fast": 8}, {"Zstd": 3}).
type Config struct {
	Type  Type
	Level int
}

// Lz4Fast returns the LZ4 configuration with the given acceleration
func Lz4Fast(acceleration int) Config {
	return Config{Type: LZ4, Level: acceleration}
}

// ZstdLevel returns the Zstandard configuration with the given level
func ZstdLevel(level int) Config {
	return Config{Type: Zstd, Level: level}
}

// Default is the configuration used when none is given
var Default = Lz4Fast(8)

// MarshalJSON implements json.Marshaler
func (c Config) MarshalJSON() ([]byte, error) {
	switch c.Type {
	case None, Snappy:
		return json.Marshal(c.Type.String())
	case LZ4, Zstd:
		return json.Marshal(map[string]int{c.Type.String(): c.Level})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, c.Type)
	}
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Config) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		t, err := parseType(name)
		if err != nil {
			return err
		}
		if t == LZ4 || t == Zstd {
			return fmt.Errorf("compression type %s requires a level", name)
		}
		*c = Config{Type: t}
		return nil
	}

	var levels map[string]int
	if err := json.Unmarshal(data, &levels); err != nil {
		return fmt.Errorf("invalid compression config %s: %w", data, err)
	}
	if len(levels) != 1 {
		return fmt.Errorf("invalid compression config %s: expected exactly one codec", data)
	}
	for name, level := range levels {
		t, err := parseType(name)
		if err != nil {
			return err
		}
		*c = Config{Type: t, Level: level}
	}
	return nil
}

func parseType(name string) (Type, error) {
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownType, name)
}
