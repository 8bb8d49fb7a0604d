package event

import (
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Pubkey is an ed25519 public key identifying an account or a program
type Pubkey [32]byte

// Signature is an ed25519 signature identifying a transaction
type Signature [64]byte

// ParsePubkey decodes a base58-encoded public key
func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	return pk, decodeBase58(pk[:], s)
}

// MustParsePubkey is ParsePubkey that panics on a malformed key
func MustParsePubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

// ParseSignature decodes a base58-encoded signature
func ParseSignature(s string) (Signature, error) {
	var sig Signature
	return sig, decodeBase58(sig[:], s)
}

func decodeBase58(dst []byte, s string) error {
	b, err := base58.Decode(s)
	if err != nil {
		return fmt.Errorf("invalid base58 %q: %w", s, err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("invalid base58 %q: expected %d bytes, got %d", s, len(dst), len(b))
	}
	copy(dst, b)
	return nil
}

func (pk Pubkey) String() string {
	return base58.Encode(pk[:])
}

// IsZero reports whether the key is all zeros (the system program)
func (pk Pubkey) IsZero() bool {
	return pk == Pubkey{}
}

// MarshalText implements encoding.TextMarshaler
func (pk Pubkey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (pk *Pubkey) UnmarshalText(text []byte) error {
	return decodeBase58(pk[:], string(text))
}

// MarshalBinary implements encoding.BinaryMarshaler
func (pk Pubkey) MarshalBinary() ([]byte, error) {
	return pk[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler
func (pk *Pubkey) UnmarshalBinary(data []byte) error {
	if len(data) != len(pk) {
		return errors.New("invalid pubkey length")
	}
	copy(pk[:], data)
	return nil
}

func (sig Signature) String() string {
	return base58.Encode(sig[:])
}

// MarshalText implements encoding.TextMarshaler
func (sig Signature) MarshalText() ([]byte, error) {
	return []byte(sig.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (sig *Signature) UnmarshalText(text []byte) error {
	return decodeBase58(sig[:], string(text))
}

// MarshalBinary implements encoding.BinaryMarshaler
func (sig Signature) MarshalBinary() ([]byte, error) {
	return sig[:], nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler
func (sig *Signature) UnmarshalBinary(data []byte) error {
	if len(data) != len(sig) {
		return errors.New("invalid signature length")
	}
	copy(sig[:], data)
	return nil
}
