// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

package gcm

import (
	"crypto/cipher"
	"crypto/subtle"
	"sync"

	"gitlab.com/yawning/slice.git"

	"github.com/loongarch64/afnix-sub002/internal/api"
)

// ErrInvalidNonceSize is the error returned/paniced when the nonce size
// is invalid.
var ErrInvalidNonceSize = api.ErrInvalidNonceSize

// AEAD is a one-shot GCM instance.  It holds no per message state and is
// safe for concurrent use.  After Reset, Seal panics and Open fails with
// ErrCipher.
type AEAD struct {
	mu sync.RWMutex

	t api.Transform
	m api.Multiplier

	nonceSize int
	tagSize   int
}

var _ cipher.AEAD = (*AEAD)(nil)

// NewAEAD creates a GCM AEAD keyed by t.
func NewAEAD(t api.Transform, opts ...Option) (*AEAD, error) {
	if err := checkBlockSize(t.BlockSize()); err != nil {
		return nil, err
	}
	cfg, mf, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return &AEAD{
		t:         t,
		m:         mf.New(hashKey(t)),
		nonceSize: cfg.nonceSize,
		tagSize:   cfg.tagSize,
	}, nil
}

func (a *AEAD) NonceSize() int {
	return a.nonceSize
}

func (a *AEAD) Overhead() int {
	return a.tagSize
}

func (a *AEAD) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.t == nil {
		panic(ErrCipher)
	}
	if len(nonce) != a.nonceSize {
		panic(ErrInvalidNonceSize)
	}
	if err := checkLimits(uint64(len(plaintext)), uint64(len(additionalData))); err != nil {
		panic(err)
	}

	var s session
	s.init(a.t, a.m)
	s.deriveCounter(nonce)
	s.authenticate(additionalData)

	ret, out := slice.ForAppend(dst, len(plaintext)+a.tagSize)
	s.crypt(out[:len(plaintext)], plaintext, true)
	tag := s.tag()
	copy(out[len(plaintext):], tag[:a.tagSize])

	return ret
}

func (a *AEAD) Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.t == nil {
		return nil, ErrCipher
	}
	if len(nonce) != a.nonceSize {
		return nil, ErrInvalidNonceSize
	}
	if len(ciphertext) < a.tagSize {
		return nil, ErrAuthentication
	}
	ctLen := len(ciphertext) - a.tagSize
	if err := checkLimits(uint64(ctLen), uint64(len(additionalData))); err != nil {
		return nil, err
	}

	var s session
	s.init(a.t, a.m)
	s.deriveCounter(nonce)
	s.authenticate(additionalData)

	tag := ciphertext[ctLen:]
	ret, out := slice.ForAppend(dst, ctLen)
	s.crypt(out, ciphertext[:ctLen], false)
	expected := s.tag()

	if subtle.ConstantTimeCompare(expected[:a.tagSize], tag) != 1 {
		// The plaintext was written before the tag was checked, so it
		// is scrubbed rather than released.
		for i := range out {
			out[i] = 0
		}
		return nil, ErrAuthentication
	}

	return ret, nil
}

// Reset attempts to clear the instance of sensitive data.  The instance
// is unusable afterwards.
func (a *AEAD) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.m != nil {
		a.m.Reset()
	}
	a.t, a.m = nil, nil
}

func checkLimits(textLen, aadLen uint64) error {
	if textLen > maxBytes || aadLen > maxAADBytes {
		return ErrOversized
	}

	return nil
}
