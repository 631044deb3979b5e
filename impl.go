// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package afnix implements block cipher chaining modes and the AES-GCM
// AEAD, on the fastest AES implementation available.
package afnix

import (
	"crypto/cipher"
	"errors"

	"github.com/loongarch64/afnix-sub002/block"
	"github.com/loongarch64/afnix-sub002/gcm"
	"github.com/loongarch64/afnix-sub002/internal/api"
	"github.com/loongarch64/afnix-sub002/internal/hardware"
	"github.com/loongarch64/afnix-sub002/key"
)

const (
	// NonceSize is the AES-GCM nonce size in bytes.
	NonceSize = gcm.NonceSize

	// TagSize is the AES-GCM authentication tag size in bytes.
	TagSize = gcm.TagSize
)

var (
	// ErrNoImplementations is the error returned when there are no working
	// implementations.
	ErrNoImplementations = errors.New("afnix: no working implementations")

	// ErrKey is the error returned when the key size is invalid.
	ErrKey = api.ErrKey

	// ErrMode is the error returned on an incompatible mode or a call in
	// the wrong state.
	ErrMode = api.ErrMode

	// ErrPadding is the error returned on corrupt padding.
	ErrPadding = api.ErrPadding

	// ErrField is the error returned on a degenerate Galois field operand.
	ErrField = api.ErrField

	// ErrCipher is the error returned when a cipher is used unkeyed.
	ErrCipher = api.ErrCipher

	// ErrInvalidNonceSize is the error returned/paniced when the nonce size
	// is invalid.
	ErrInvalidNonceSize = gcm.ErrInvalidNonceSize

	// ErrOpen is the error returned when the message authentication fails
	// durring an Open call.
	ErrOpen = api.ErrAuthentication

	// ErrOversized is the error returned/paniced when the plaintext,
	// ciphertext and or additional data are beyond the maximum allowed.
	ErrOversized = api.ErrOversized

	chosenFactory      api.Factory
	supportedFactories = []api.Factory{block.Generic}
)

// New creates a new AES-GCM instance with the provided 128, 192 or 256 bit
// key.  Factories with a native AES-GCM are used whole, otherwise GCM runs
// over the factory's AES transform.
func New(k []byte) (cipher.AEAD, error) {
	if f, ok := chosenFactory.(api.AEADFactory); ok {
		if !f.ValidKeySize(len(k)) {
			return nil, ErrKey
		}
		return f.NewAEAD(k)
	}

	t, err := newTransform(k)
	if err != nil {
		return nil, err
	}

	return gcm.NewAEAD(t)
}

// NewStream creates a new streaming AES-GCM instance keyed with k.
func NewStream(k *key.Key, opts ...gcm.Option) (*gcm.Mode, error) {
	if err := k.Check(key.Symmetric); err != nil {
		return nil, err
	}
	t, err := newTransform(k.Bytes())
	if err != nil {
		return nil, err
	}

	return gcm.NewWithTransform(t, opts...)
}

func newTransform(k []byte) (api.Transform, error) {
	if chosenFactory == nil {
		return nil, ErrNoImplementations
	}
	if !chosenFactory.ValidKeySize(len(k)) {
		return nil, ErrKey
	}

	return chosenFactory.New(k)
}

func init() {
	if hardware.Factory != nil {
		supportedFactories = append([]api.Factory{hardware.Factory}, supportedFactories...)
	}

	if len(supportedFactories) > 0 {
		chosenFactory = supportedFactories[0]
	}
}
