// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package gcm implements the Galois/Counter Mode of NIST SP 800-38D over
// any 128 bit block transform, both as a streaming state machine and as a
// crypto/cipher.AEAD.
package gcm

import (
	"crypto/subtle"
	"fmt"
	"sync"

	"gitlab.com/yawning/slice.git"

	"github.com/loongarch64/afnix-sub002/internal/api"
	"github.com/loongarch64/afnix-sub002/key"
)

const (
	// TagSize is the default authentication tag size in bytes.
	TagSize = api.TagSize

	// MinimumTagSize is the smallest accepted tag size in bytes.
	MinimumTagSize = 12

	// NonceSize is the standard (fast path) IV size in bytes.
	NonceSize = standardNonceSize
)

var (
	// ErrMode is the error returned when the transform is not a 128 bit
	// block cipher, or a call is made in the wrong state.
	ErrMode = api.ErrMode

	// ErrCipher is the error returned when the mode is used unkeyed.
	ErrCipher = api.ErrCipher

	// ErrAuthentication is the error returned when the tag does not
	// match.
	ErrAuthentication = api.ErrAuthentication

	// ErrOversized is the error returned when the plaintext, ciphertext
	// and or additional data are beyond the maximum allowed.
	ErrOversized = api.ErrOversized
)

type state int

const (
	stateUnkeyed state = iota
	stateConfigured
	stateStreaming
	stateFinished
)

func (s state) String() string {
	switch s {
	case stateUnkeyed:
		return "unkeyed"
	case stateConfigured:
		return "configured"
	case stateStreaming:
		return "streaming"
	case stateFinished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type direction int

const (
	dirNone direction = iota
	dirEncode
	dirDecode
)

type config struct {
	tagSize    int
	nonceSize  int
	multiplier string
}

// Option is a construction option.
type Option func(*config)

// WithTagSize sets the tag size, which must be between 12 and 16 bytes.
func WithTagSize(n int) Option {
	return func(c *config) {
		c.tagSize = n
	}
}

// WithNonceSize sets the nonce size accepted by the AEAD.  It has no
// effect on the streaming Mode, which accepts any non-empty IV.
func WithNonceSize(n int) Option {
	return func(c *config) {
		c.nonceSize = n
	}
}

// WithMultiplier selects the GHASH multiplier implementation by name.
func WithMultiplier(name string) Option {
	return func(c *config) {
		c.multiplier = name
	}
}

func newConfig(opts []Option) (*config, api.MultiplierFactory, error) {
	cfg := &config{
		tagSize:    TagSize,
		nonceSize:  NonceSize,
		multiplier: supportedMultipliers[0].Name(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.tagSize < MinimumTagSize || cfg.tagSize > TagSize {
		return nil, nil, fmt.Errorf("gcm: %d byte tag: %w", cfg.tagSize, ErrMode)
	}
	if cfg.nonceSize <= 0 {
		return nil, nil, fmt.Errorf("gcm: %d byte nonce: %w", cfg.nonceSize, ErrMode)
	}
	mf, err := lookupMultiplier(cfg.multiplier)
	if err != nil {
		return nil, nil, err
	}

	return cfg, mf, nil
}

func checkBlockSize(n int) error {
	if n != blockSize {
		return fmt.Errorf("gcm: %d byte block transform: %w", n, ErrMode)
	}
	return nil
}

// hashKey returns H, the encryption of the all zero block.
func hashKey(t api.Transform) *[blockSize]byte {
	var h [blockSize]byte
	t.Encrypt(h[:], h[:])
	return &h
}

// Mode is a streaming GCM instance.  The IV and additional data may be set
// at any time before the first Encode or Decode, and are folded into the
// state on first use.  A Mode is safe for concurrent use, but calls that
// advance the state are serialized.
type Mode struct {
	mu sync.RWMutex

	factory api.Factory
	mf      api.MultiplierFactory
	tagSize int

	t api.Transform
	m api.Multiplier

	iv  []byte
	aad []byte

	st    state
	dir   direction
	sess  session
	plain []byte
}

// New creates an unkeyed Mode over transforms built by factory.
func New(factory api.Factory, opts ...Option) (*Mode, error) {
	if err := checkBlockSize(factory.BlockSize()); err != nil {
		return nil, err
	}
	cfg, mf, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Mode{
		factory: factory,
		mf:      mf,
		tagSize: cfg.tagSize,
	}, nil
}

// NewWithTransform creates a Mode keyed by an existing transform.  Such a
// Mode can not be re-keyed with SetKey.
func NewWithTransform(t api.Transform, opts ...Option) (*Mode, error) {
	if err := checkBlockSize(t.BlockSize()); err != nil {
		return nil, err
	}
	cfg, mf, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	m := &Mode{
		mf:      mf,
		tagSize: cfg.tagSize,
	}
	m.bind(t)

	return m, nil
}

func (m *Mode) bind(t api.Transform) {
	if m.m != nil {
		m.m.Reset()
	}
	m.t = t
	m.m = m.mf.New(hashKey(t))
	m.clear()
}

// SetKey binds a new key, recomputing H and returning the session to the
// configured state.
func (m *Mode) SetKey(k *key.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.factory == nil {
		return fmt.Errorf("gcm: mode has no transform factory: %w", ErrMode)
	}
	if err := k.Check(key.Symmetric); err != nil {
		return err
	}
	t, err := m.factory.New(k.Bytes())
	if err != nil {
		return err
	}
	m.bind(t)
	log.Debugf("Keyed GCM over %s (%d bit key)", m.factory.Name(), k.Bits())

	return nil
}

// SetIV sets the IV.  A 12 byte IV is used directly as the counter
// prefix, any other length is hashed.
func (m *Mode) SetIV(iv []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(iv) == 0 {
		return fmt.Errorf("gcm: empty iv: %w", ErrMode)
	}
	if m.st >= stateStreaming {
		return fmt.Errorf("gcm: iv set while %v: %w", m.st, ErrMode)
	}
	m.iv = append(m.iv[:0], iv...)

	return nil
}

// SetAuth sets the additional authenticated data.
func (m *Mode) SetAuth(aad []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.st >= stateStreaming {
		return fmt.Errorf("gcm: additional data set while %v: %w", m.st, ErrMode)
	}
	m.aad = append(m.aad[:0], aad...)

	return nil
}

// preset moves a configured session to streaming, deriving J0 and hashing
// the additional data.
func (m *Mode) preset(dir direction) error {
	switch m.st {
	case stateUnkeyed:
		return ErrCipher
	case stateConfigured:
		if m.iv == nil {
			return fmt.Errorf("gcm: iv not set: %w", ErrMode)
		}
		if err := checkLimits(0, uint64(len(m.aad))); err != nil {
			return err
		}
		m.sess.init(m.t, m.m)
		m.sess.deriveCounter(m.iv)
		m.sess.authenticate(m.aad)
		m.st = stateStreaming
		m.dir = dir
		log.Tracef("GCM preset: %d byte iv, %d byte aad", len(m.iv), len(m.aad))
	case stateStreaming:
		if m.dir != dir {
			return fmt.Errorf("gcm: encode and decode mixed in one message: %w", ErrMode)
		}
	case stateFinished:
		return fmt.Errorf("gcm: message already finished: %w", ErrMode)
	}

	return nil
}

func (m *Mode) checkLimit(n int) error {
	if m.sess.ctLen+uint64(n) > maxBytes {
		return ErrOversized
	}
	return nil
}

// Encode encrypts src, appending the ciphertext to dst.  The ciphertext is
// always exactly as long as src.
func (m *Mode) Encode(dst, src []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.preset(dirEncode); err != nil {
		return nil, err
	}
	if err := m.checkLimit(len(src)); err != nil {
		return nil, err
	}

	ret, out := slice.ForAppend(dst, len(src))
	m.sess.crypt(out, src, true)

	return ret, nil
}

// Decode absorbs ciphertext.  The recovered plaintext is held back and
// only released by a successful Verify.
func (m *Mode) Decode(src []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.preset(dirDecode); err != nil {
		return err
	}
	if err := m.checkLimit(len(src)); err != nil {
		return err
	}

	var out []byte
	m.plain, out = slice.ForAppend(m.plain, len(src))
	m.sess.crypt(out, src, false)

	return nil
}

// Finish completes an encoded message and returns the tag.
func (m *Mode) Finish() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dir == dirDecode {
		return nil, fmt.Errorf("gcm: Finish on a decoded message, use Verify: %w", ErrMode)
	}
	if err := m.preset(dirEncode); err != nil {
		return nil, err
	}

	tag := m.sess.tag()
	m.st = stateFinished

	return append([]byte{}, tag[:m.tagSize]...), nil
}

// Verify completes a decoded message, compares tag against the computed
// one and returns the plaintext iff they match.
func (m *Mode) Verify(tag []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dir == dirEncode {
		return nil, fmt.Errorf("gcm: Verify on an encoded message, use Finish: %w", ErrMode)
	}
	if err := m.preset(dirDecode); err != nil {
		return nil, err
	}

	expected := m.sess.tag()
	m.st = stateFinished

	plain := m.plain
	m.plain = nil
	if subtle.ConstantTimeCompare(expected[:m.tagSize], tag) != 1 {
		for i := range plain {
			plain[i] = 0
		}
		log.Debugf("GCM tag mismatch over %d byte message", len(plain))
		return nil, ErrAuthentication
	}
	if plain == nil {
		plain = []byte{}
	}

	return plain, nil
}

func (m *Mode) clear() {
	for i := range m.plain {
		m.plain[i] = 0
	}
	m.plain = nil
	m.sess.wipe()
	m.dir = dirNone
	if m.t != nil {
		m.st = stateConfigured
	} else {
		m.st = stateUnkeyed
	}
}

// Clear returns the mode to the keyed, configured state, keeping the IV
// and additional data.
func (m *Mode) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clear()
}

// Reset returns the mode to the unkeyed state, dropping the key, IV and
// additional data.  A Mode created by NewWithTransform must be discarded
// after Reset.
func (m *Mode) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.m != nil {
		m.m.Reset()
	}
	m.t, m.m = nil, nil
	for i := range m.iv {
		m.iv[i] = 0
	}
	for i := range m.aad {
		m.aad[i] = 0
	}
	m.iv, m.aad = nil, nil
	m.clear()
	m.sess = session{}
}

// TagSize returns the tag size in bytes.
func (m *Mode) TagSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.tagSize
}

// BlockSize returns the block size in bytes.
func (m *Mode) BlockSize() int {
	return blockSize
}

// Keyed returns true iff a key is bound.
func (m *Mode) Keyed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.st != stateUnkeyed
}
