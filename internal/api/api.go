// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package api provides the abstract interfaces shared by the block
// transforms, chaining modes and GCM implementations.
package api

import (
	"crypto/cipher"
	"errors"
)

const (
	// BlockSize is the GCM block size in bytes.
	BlockSize = 16

	// NonceSize is the standard GCM nonce size in bytes.
	NonceSize = 12

	// TagSize is the full GCM tag size in bytes.
	TagSize = 16

	// MaxBytes bounds a GCM plaintext so the 32 bit counter never wraps
	// back onto J0.
	MaxBytes = ((1 << 32) - 2) * BlockSize

	// MaxAADBytes bounds GCM additional data to 2^64-1 bits.
	MaxAADBytes = (1 << 61) - 1
)

var (
	// ErrKey is the error returned when a key has an unsupported size or
	// type.
	ErrKey = errors.New("afnix: invalid key")

	// ErrMode is the error returned when a mode, block size or algorithm
	// combination is incompatible, or a call is made in the wrong state.
	ErrMode = errors.New("afnix: invalid mode")

	// ErrPadding is the error returned when padding is corrupt on decode,
	// or when unpadded input does not end on a block boundary.
	ErrPadding = errors.New("afnix: invalid padding")

	// ErrAuthentication is the error returned when the message
	// authentication fails.
	ErrAuthentication = errors.New("afnix: message authentication failure")

	// ErrField is the error returned on a degenerate Galois field operand.
	ErrField = errors.New("afnix: invalid field operand")

	// ErrCipher is the error returned when a cipher is used before a key
	// has been bound.
	ErrCipher = errors.New("afnix: cipher is not keyed")

	// ErrOversized is the error returned when the plaintext, ciphertext
	// and or additional data are beyond the maximum allowed.
	ErrOversized = errors.New("afnix: data is over limit")

	// ErrInvalidNonceSize is the error returned/paniced when the nonce
	// size is invalid.
	ErrInvalidNonceSize = errors.New("afnix: invalid nonce size")
)

// Transform is a keyed, fixed-size invertible block function.  It is
// method compatible with crypto/cipher.Block.
type Transform interface {
	// BlockSize returns the transform's block size in bytes.
	BlockSize() int

	// Encrypt encrypts the first block in src into dst.
	Encrypt(dst, src []byte)

	// Decrypt decrypts the first block in src into dst.
	Decrypt(dst, src []byte)
}

// Factory is a Transform factory.
type Factory interface {
	// Name returns the name of the implementation.
	Name() string

	// BlockSize returns the block size of the constructed transforms.
	BlockSize() int

	// ValidKeySize returns true iff a key of n bytes is accepted.
	ValidKeySize(n int) bool

	// New constructs a new keyed instance.
	New(key []byte) (Transform, error)
}

// AEADFactory is implemented by factories that can build a complete
// AES-GCM instance faster than GCM over their block transform.  The
// instance uses NonceSize byte nonces and TagSize byte tags.
type AEADFactory interface {
	Factory

	// NewAEAD constructs a new keyed AES-GCM instance.
	NewAEAD(key []byte) (cipher.AEAD, error)
}

// Multiplier multiplies GF(2^128) elements by a fixed hash key H, in the
// GCM bit order.
type Multiplier interface {
	// Mul sets y to y*H.
	Mul(y *[BlockSize]byte)

	// Reset attempts to clear the instance of sensitive data.
	Reset()
}

// MultiplierFactory is a Multiplier factory.
type MultiplierFactory interface {
	// Name returns the name of the implementation.
	Name() string

	// New constructs a Multiplier for the hash key h.
	New(h *[BlockSize]byte) Multiplier
}
