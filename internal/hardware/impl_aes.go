// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

//go:build !noasm
// +build !noasm

package hardware

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"sync"

	"golang.org/x/sys/cpu"

	"github.com/loongarch64/afnix-sub002/internal/api"
)

// aesniFactory builds AES transforms, and whole AES-GCM instances on the
// assembly GCM of crypto/cipher, which pairs the AES round instructions
// with a carry-less multiply GHASH.  It is only registered when the CPU
// has both.
type aesniFactory struct{}

func (f *aesniFactory) Name() string {
	return "aesni"
}

func (f *aesniFactory) BlockSize() int {
	return aes.BlockSize
}

func (f *aesniFactory) ValidKeySize(n int) bool {
	return n == 16 || n == 24 || n == 32
}

func (f *aesniFactory) newCipher(key []byte) (cipher.Block, error) {
	if !f.ValidKeySize(len(key)) {
		return nil, fmt.Errorf("aesni: %d byte key: %w", len(key), api.ErrKey)
	}

	blk, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aesni: %v: %w", err, api.ErrKey)
	}

	return blk, nil
}

// New constructs a new keyed instance.
func (f *aesniFactory) New(key []byte) (api.Transform, error) {
	return f.newCipher(key)
}

// NewAEAD constructs a new keyed AES-GCM instance.
func (f *aesniFactory) NewAEAD(key []byte) (cipher.AEAD, error) {
	blk, err := f.newCipher(key)
	if err != nil {
		return nil, err
	}
	inner, err := cipher.NewGCM(blk)
	if err != nil {
		return nil, fmt.Errorf("aesni: %v: %w", err, api.ErrMode)
	}

	return &aesniInstance{
		inner: inner,
	}, nil
}

type aesniInstance struct {
	mu    sync.RWMutex
	inner cipher.AEAD
}

func (inst *aesniInstance) NonceSize() int {
	return api.NonceSize
}

func (inst *aesniInstance) Overhead() int {
	return api.TagSize
}

func (inst *aesniInstance) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	inst.mu.RLock()
	defer inst.mu.RUnlock()

	if inst.inner == nil {
		panic(api.ErrCipher)
	}
	if len(nonce) != api.NonceSize {
		panic(api.ErrInvalidNonceSize)
	}
	if uint64(len(plaintext)) > api.MaxBytes || uint64(len(additionalData)) > api.MaxAADBytes {
		panic(api.ErrOversized)
	}

	return inst.inner.Seal(dst, nonce, plaintext, additionalData)
}

func (inst *aesniInstance) Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	inst.mu.RLock()
	defer inst.mu.RUnlock()

	if inst.inner == nil {
		return nil, api.ErrCipher
	}
	if len(nonce) != api.NonceSize {
		return nil, api.ErrInvalidNonceSize
	}
	if len(ciphertext) < api.TagSize {
		return nil, api.ErrAuthentication
	}
	if uint64(len(ciphertext)-api.TagSize) > api.MaxBytes || uint64(len(additionalData)) > api.MaxAADBytes {
		return nil, api.ErrOversized
	}

	ret, err := inst.inner.Open(dst, nonce, ciphertext, additionalData)
	if err != nil {
		return nil, api.ErrAuthentication
	}

	return ret, nil
}

// Reset drops the key schedule.  The instance is unusable afterwards.
func (inst *aesniInstance) Reset() {
	inst.mu.Lock()
	defer inst.mu.Unlock()

	inst.inner = nil
}

func init() {
	switch {
	case cpu.X86.HasAES && cpu.X86.HasPCLMULQDQ,
		cpu.ARM64.HasAES && cpu.ARM64.HasPMULL,
		cpu.S390X.HasAES && cpu.S390X.HasAESGCM:
		Factory = &aesniFactory{}
	}
}
