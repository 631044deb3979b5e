// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package hasher provides streaming message digests and HMAC signers for
// the protocol layers built on the ciphers.
package hasher

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"io"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"

	"github.com/loongarch64/afnix-sub002/internal/api"
	"github.com/loongarch64/afnix-sub002/key"
)

var (
	// ErrMode is the error returned for an unknown algorithm.
	ErrMode = api.ErrMode

	// ErrKey is the error returned for a bad HMAC key.
	ErrKey = api.ErrKey
)

var algorithms = map[string]func() hash.Hash{
	"md4":         md4.New,
	"md5":         md5.New,
	"sha1":        sha1.New,
	"sha224":      sha256.New224,
	"sha256":      sha256.New,
	"sha384":      sha512.New384,
	"sha512":      sha512.New,
	"sha512/256":  sha512.New512_256,
	"sha3-224":    sha3.New224,
	"sha3-256":    sha3.New256,
	"sha3-384":    sha3.New384,
	"sha3-512":    sha3.New512,
	"ripemd160":   ripemd160.New,
	"blake2b-256": newBlake2b256,
	"blake2b-512": newBlake2b512,
}

func newBlake2b256() hash.Hash {
	h, _ := blake2b.New256(nil)
	return h
}

func newBlake2b512() hash.Hash {
	h, _ := blake2b.New512(nil)
	return h
}

// Names returns the sorted names of the supported algorithms.
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for n := range algorithms {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}

// Hasher is a streaming digest.  Process absorbs data, Finish completes
// the digest and readies the instance for the next message, and Digest
// returns the last finished digest.  A Hasher is safe for concurrent use.
type Hasher struct {
	mu sync.RWMutex

	name   string
	h      hash.Hash
	digest []byte
}

// New creates a Hasher for the named algorithm.
func New(name string) (*Hasher, error) {
	fn, ok := algorithms[name]
	if !ok {
		return nil, fmt.Errorf("hasher: unknown algorithm %q: %w", name, ErrMode)
	}

	return &Hasher{
		name: name,
		h:    fn(),
	}, nil
}

// NewHMAC creates a keyed HMAC signer over the named algorithm.  The key
// must be a MAC key.
func NewHMAC(name string, k *key.Key) (*Hasher, error) {
	fn, ok := algorithms[name]
	if !ok {
		return nil, fmt.Errorf("hasher: unknown algorithm %q: %w", name, ErrMode)
	}
	if err := k.Check(key.MAC); err != nil {
		return nil, err
	}
	log.Debugf("Keyed hmac-%s (%d bit key)", name, k.Bits())

	return &Hasher{
		name: "hmac-" + name,
		h:    hmac.New(fn, k.Bytes()),
	}, nil
}

// Name returns the algorithm name.
func (h *Hasher) Name() string {
	return h.name
}

// Size returns the digest size in bytes.
func (h *Hasher) Size() int {
	return h.h.Size()
}

// BlockSize returns the underlying block size in bytes.
func (h *Hasher) BlockSize() int {
	return h.h.BlockSize()
}

// Process absorbs p.
func (h *Hasher) Process(p []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	_, _ = h.h.Write(p)
}

// Finish completes the digest of everything processed since the last
// Finish or Reset, and returns it.
func (h *Hasher) Finish() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.digest = h.h.Sum(h.digest[:0])
	h.h.Reset()

	return append([]byte{}, h.digest...)
}

// Digest returns the last finished digest, or nil if there is none.
func (h *Hasher) Digest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.digest == nil {
		return nil
	}

	return append([]byte{}, h.digest...)
}

// Reset discards any processed data and the last digest.
func (h *Hasher) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.h.Reset()
	h.digest = nil
}

// Derive expands secret into an n byte key of the given type with HKDF
// (RFC 5869) over the named hash.
func Derive(name string, secret *key.Key, salt, info []byte, kind key.Type, n int) (*key.Key, error) {
	fn, ok := algorithms[name]
	if !ok {
		return nil, fmt.Errorf("hasher: unknown algorithm %q: %w", name, ErrMode)
	}
	if secret == nil {
		return nil, fmt.Errorf("hasher: nil secret: %w", ErrKey)
	}
	if n <= 0 || n > 255*fn().Size() {
		return nil, fmt.Errorf("hasher: %d byte hkdf-%s output: %w", n, name, ErrKey)
	}

	out := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(fn, secret.Bytes(), salt, info), out); err != nil {
		return nil, fmt.Errorf("hasher: hkdf-%s: %v: %w", name, err, ErrKey)
	}
	k := key.New(kind, out)
	for i := range out {
		out[i] = 0
	}

	return k, nil
}
