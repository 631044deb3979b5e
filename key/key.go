// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package key implements the opaque key values consumed by the ciphers.
package key

import (
	"encoding/hex"
	"fmt"

	"github.com/loongarch64/afnix-sub002/internal/api"
)

// Type is the key type tag.
type Type uint8

const (
	// Symmetric is a block or stream cipher key.
	Symmetric Type = iota

	// MAC is a message authentication key.
	MAC
)

func (t Type) String() string {
	switch t {
	case Symmetric:
		return "symmetric"
	case MAC:
		return "mac"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// ErrKey is the error returned when a key is malformed.
var ErrKey = api.ErrKey

// Key is an immutable typed byte sequence.  The zero value is an empty
// symmetric key.
type Key struct {
	kind Type
	data []byte
}

// New creates a key of the given type, copying b.
func New(kind Type, b []byte) *Key {
	return &Key{
		kind: kind,
		data: append([]byte{}, b...),
	}
}

// FromHex creates a key of the given type from a hex string.
func FromHex(kind Type, s string) (*Key, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("key: bad hex encoding: %w", ErrKey)
	}

	return &Key{kind: kind, data: b}, nil
}

// Type returns the key type.
func (k *Key) Type() Type {
	return k.kind
}

// Size returns the key size in bytes.
func (k *Key) Size() int {
	return len(k.data)
}

// Bits returns the key size in bits.
func (k *Key) Bits() int {
	return len(k.data) * 8
}

// Byte returns the key byte at index i.  It panics if i is out of range,
// like a slice index.
func (k *Key) Byte(i int) byte {
	return k.data[i]
}

// Bytes returns a copy of the key material.
func (k *Key) Bytes() []byte {
	return append([]byte{}, k.data...)
}

// Check returns ErrKey if the key is not of the wanted type.
func (k *Key) Check(kind Type) error {
	if k == nil {
		return fmt.Errorf("key: nil key: %w", ErrKey)
	}
	if k.kind != kind {
		return fmt.Errorf("key: %v key, want %v: %w", k.kind, kind, ErrKey)
	}

	return nil
}
