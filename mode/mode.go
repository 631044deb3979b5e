// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package mode implements the streaming block chaining and padding driver:
// ECB, CBC, explicit IV CBC, CFB and OFB over any block transform.
package mode

import (
	"fmt"
	"strings"
	"sync"

	"gitlab.com/yawning/slice.git"

	"github.com/loongarch64/afnix-sub002/internal/api"
	"github.com/loongarch64/afnix-sub002/key"
)

var (
	// ErrKey is the error returned when the key is rejected by the
	// transform.
	ErrKey = api.ErrKey

	// ErrMode is the error returned on a bad IV, an unknown mode, or a
	// call made in the wrong state.
	ErrMode = api.ErrMode

	// ErrPadding is the error returned when a stream can not be padded or
	// unpadded.
	ErrPadding = api.ErrPadding

	// ErrCipher is the error returned when the driver is used unkeyed.
	ErrCipher = api.ErrCipher
)

// Chaining is the block chaining mode.
type Chaining int

const (
	// ECB encrypts each block independently.
	ECB Chaining = iota

	// CBC chains each plaintext block with the previous ciphertext block.
	CBC

	// ExplicitCBC is CBC with the IV carried in the stream, as in TLS 1.1
	// and later records.  The encoder emits the IV as the first output
	// block, and the decoder takes the first input block as the IV.
	ExplicitCBC

	// CFB is full block cipher feedback.
	CFB

	// OFB is output feedback.
	OFB
)

func (c Chaining) String() string {
	switch c {
	case ECB:
		return "ecb"
	case CBC:
		return "cbc"
	case ExplicitCBC:
		return "explicit-cbc"
	case CFB:
		return "cfb"
	case OFB:
		return "ofb"
	default:
		return fmt.Sprintf("Chaining(%d)", int(c))
	}
}

// ParseChaining returns the chaining mode named s, as printed by String.
func ParseChaining(s string) (Chaining, error) {
	for _, v := range []Chaining{ECB, CBC, ExplicitCBC, CFB, OFB} {
		if strings.EqualFold(s, v.String()) {
			return v, nil
		}
	}

	return ECB, fmt.Errorf("mode: unknown chaining mode %q: %w", s, ErrMode)
}

// isStream returns true iff the mode only uses the forward transform and
// can end on a partial block.
func (c Chaining) isStream() bool {
	return c == CFB || c == OFB
}

type direction int

const (
	dirNone direction = iota
	dirEncode
	dirDecode
)

// Cipher is a streaming block chaining driver.  It buffers input until a
// full block is available, and pads or unpads the stream on Finish.  The
// direction of a stream is fixed by its first Encode or Decode.  A Cipher
// is safe for concurrent use, but calls that advance the stream are
// serialized.
type Cipher struct {
	mu sync.RWMutex

	factory   api.Factory
	t         api.Transform
	blockSize int

	chaining Chaining
	padding  Padding
	iv       []byte

	reg      []byte
	pending  []byte
	npending int
	scratch  []byte

	dir    direction
	seeded bool
}

// New creates an unkeyed CBC driver with NIST padding over transforms
// built by factory.
func New(factory api.Factory) *Cipher {
	bs := factory.BlockSize()
	return &Cipher{
		factory:   factory,
		blockSize: bs,
		chaining:  CBC,
		padding:   PadNIST,
		reg:       make([]byte, bs),
		pending:   make([]byte, bs),
		scratch:   make([]byte, bs),
	}
}

// NewWithKey creates a driver keyed with k.
func NewWithKey(factory api.Factory, k *key.Key) (*Cipher, error) {
	c := New(factory)
	if err := c.SetKey(k); err != nil {
		return nil, err
	}

	return c, nil
}

// SetKey binds a new key and resets the chaining state to the IV.
func (c *Cipher) SetKey(k *key.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := k.Check(key.Symmetric); err != nil {
		return err
	}
	t, err := c.factory.New(k.Bytes())
	if err != nil {
		return err
	}
	c.t = t
	c.clear()
	log.Debugf("Keyed %s/%v/%v (%d bit key)", c.factory.Name(), c.chaining,
		c.padding, k.Bits())

	return nil
}

// SetMode selects the chaining mode.  It fails with ErrMode while a stream
// is in progress.
func (c *Cipher) SetMode(chaining Chaining) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if chaining < ECB || chaining > OFB {
		return fmt.Errorf("mode: invalid chaining mode %v: %w", chaining, ErrMode)
	}
	if c.dir != dirNone {
		return fmt.Errorf("mode: chaining changed mid stream: %w", ErrMode)
	}
	c.chaining = chaining

	return nil
}

// SetPadding selects the padding.  It fails with ErrMode while a stream is
// in progress.
func (c *Cipher) SetPadding(padding Padding) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if padding < PadNone || padding > PadNIST {
		return fmt.Errorf("mode: invalid padding %v: %w", padding, ErrMode)
	}
	if c.dir != dirNone {
		return fmt.Errorf("mode: padding changed mid stream: %w", ErrMode)
	}
	c.padding = padding

	return nil
}

// SetIV sets the chaining seed, which must be exactly one block.  ECB
// ignores it.  A nil iv restores the all zero seed.
func (c *Cipher) SetIV(iv []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if iv != nil && len(iv) != c.blockSize {
		return fmt.Errorf("mode: %d byte iv for a %d byte block: %w", len(iv), c.blockSize, ErrMode)
	}
	if c.dir != dirNone {
		return fmt.Errorf("mode: iv set mid stream: %w", ErrMode)
	}
	if iv == nil {
		c.iv = nil
	} else {
		c.iv = append(c.iv[:0], iv...)
	}
	c.clear()

	return nil
}

// BlockSize returns the block size in bytes.
func (c *Cipher) BlockSize() int {
	return c.blockSize
}

// Mode returns the chaining mode.
func (c *Cipher) Mode() Chaining {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.chaining
}

// Padding returns the padding.
func (c *Cipher) Padding() Padding {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.padding
}

// Keyed returns true iff a key is bound.
func (c *Cipher) Keyed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.t != nil
}

// Waist returns the number of bytes a whole encoded stream of n input
// bytes produces.  Destination buffers must be sized with Waist, not n.
func (c *Cipher) Waist(n int) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.waist(n)
}

func (c *Cipher) waist(n int) int {
	sz := n
	if c.padding != PadNone {
		sz = (n/c.blockSize + 1) * c.blockSize
	}
	if c.chaining == ExplicitCBC {
		sz += c.blockSize
	}

	return sz
}

func (c *Cipher) begin(dir direction) error {
	if c.t == nil {
		return ErrCipher
	}
	switch c.dir {
	case dirNone:
		c.dir = dir
	case dir:
	default:
		return fmt.Errorf("mode: encode and decode mixed in one stream: %w", ErrMode)
	}

	return nil
}

// Encode encrypts src, appending every completed block to dst.  Bytes that
// do not fill a block are buffered until the next call or Finish.  dst and
// src must not overlap.
func (c *Cipher) Encode(dst, src []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.begin(dirEncode); err != nil {
		return nil, err
	}

	return c.encode(dst, src), nil
}

// Decode decrypts src, appending every completed block to dst.  When the
// stream is padded the final block is held back for Finish.  dst and src
// must not overlap.
func (c *Cipher) Decode(dst, src []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.begin(dirDecode); err != nil {
		return nil, err
	}

	return c.decode(dst, src), nil
}

// Finish ends the stream: an encoded stream is padded and flushed, a
// decoded stream is unpadded.  The driver is then ready for the next
// stream, starting again from the IV.  A Finish with no preceding Encode
// or Decode ends an empty encoded stream.
func (c *Cipher) Finish(dst []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.t == nil {
		return nil, ErrCipher
	}
	if c.dir == dirNone {
		c.dir = dirEncode
	}

	return c.finish(dst)
}

// EncodeAll encrypts src as one complete stream, discarding any stream in
// progress.
func (c *Cipher) EncodeAll(dst, src []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clear()
	if err := c.begin(dirEncode); err != nil {
		return nil, err
	}

	return c.finish(c.encode(dst, src))
}

// DecodeAll decrypts src as one complete stream, discarding any stream in
// progress.
func (c *Cipher) DecodeAll(dst, src []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clear()
	if err := c.begin(dirDecode); err != nil {
		return nil, err
	}

	return c.finish(c.decode(dst, src))
}

// Clear abandons any stream in progress, keeping the key, mode, padding
// and IV.
func (c *Cipher) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clear()
}

// Reset returns the driver to the unkeyed state and drops the IV.  The
// mode and padding are kept.
func (c *Cipher) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.t = nil
	for i := range c.iv {
		c.iv[i] = 0
	}
	c.iv = nil
	c.clear()
}

func (c *Cipher) clear() {
	if c.iv != nil {
		copy(c.reg, c.iv)
	} else {
		for i := range c.reg {
			c.reg[i] = 0
		}
	}
	for i := range c.pending {
		c.pending[i] = 0
		c.scratch[i] = 0
	}
	c.npending = 0
	c.dir = dirNone
	c.seeded = false
}

// emitIV writes the explicit IV block ahead of the first ciphertext block.
func (c *Cipher) emitIV(dst []byte) []byte {
	if c.chaining != ExplicitCBC || c.seeded {
		return dst
	}
	ret, out := slice.ForAppend(dst, c.blockSize)
	copy(out, c.reg)
	c.seeded = true

	return ret
}

func (c *Cipher) encode(dst, src []byte) []byte {
	dst = c.emitIV(dst)

	bs := c.blockSize
	ret, out := slice.ForAppend(dst, (c.npending+len(src))/bs*bs)
	for {
		n := copy(c.pending[c.npending:], src)
		c.npending += n
		src = src[n:]
		if c.npending < bs {
			break
		}
		c.encryptBlock(out[:bs], c.pending)
		out = out[bs:]
		c.npending = 0
	}

	return ret
}

func (c *Cipher) decode(dst, src []byte) []byte {
	holdBack := c.padding != PadNone

	bs := c.blockSize
	ret, out := slice.ForAppend(dst, (c.npending+len(src))/bs*bs)
	written := 0
	for {
		n := copy(c.pending[c.npending:], src)
		c.npending += n
		src = src[n:]
		if c.npending < bs {
			break
		}
		switch {
		case c.chaining == ExplicitCBC && !c.seeded:
			copy(c.reg, c.pending)
			c.seeded = true
		case holdBack && len(src) == 0:
			return ret[:len(dst)+written]
		default:
			c.decryptBlock(out[written:written+bs], c.pending)
			written += bs
		}
		c.npending = 0
	}

	return ret[:len(dst)+written]
}

func (c *Cipher) finish(dst []byte) ([]byte, error) {
	defer c.clear()

	if c.dir == dirDecode {
		return c.finishDecode(dst)
	}

	return c.finishEncode(dst)
}

func (c *Cipher) finishEncode(dst []byte) ([]byte, error) {
	dst = c.emitIV(dst)

	if c.padding == PadNone {
		if c.npending == 0 {
			return dst, nil
		}
		if !c.chaining.isStream() {
			return nil, fmt.Errorf("mode: %d trailing bytes in unpadded %v: %w", c.npending, c.chaining, ErrPadding)
		}
		ret, out := slice.ForAppend(dst, c.npending)
		c.streamTail(out, c.pending[:c.npending])
		return ret, nil
	}

	padBlock(c.pending, c.npending, c.padding)
	ret, out := slice.ForAppend(dst, c.blockSize)
	c.encryptBlock(out, c.pending)

	return ret, nil
}

func (c *Cipher) finishDecode(dst []byte) ([]byte, error) {
	if c.chaining == ExplicitCBC && !c.seeded {
		return nil, fmt.Errorf("mode: stream ends before the explicit iv: %w", ErrPadding)
	}

	if c.padding == PadNone {
		if c.npending == 0 {
			return dst, nil
		}
		if !c.chaining.isStream() {
			return nil, fmt.Errorf("mode: %d trailing bytes in unpadded %v: %w", c.npending, c.chaining, ErrPadding)
		}
		ret, out := slice.ForAppend(dst, c.npending)
		c.streamTail(out, c.pending[:c.npending])
		return ret, nil
	}

	if c.npending != c.blockSize {
		return nil, fmt.Errorf("mode: %v stream is not block aligned: %w", c.padding, ErrPadding)
	}
	last := make([]byte, c.blockSize)
	c.decryptBlock(last, c.pending)
	n, err := unpadBlock(last, c.padding)
	if err != nil {
		log.Debugf("Rejected %v padding on %v stream", c.padding, c.chaining)
		return nil, err
	}
	ret, out := slice.ForAppend(dst, n)
	copy(out, last)

	return ret, nil
}

func (c *Cipher) encryptBlock(dst, src []byte) {
	switch c.chaining {
	case ECB:
		c.t.Encrypt(dst, src)
	case CBC, ExplicitCBC:
		xorBytes(c.scratch, src, c.reg)
		c.t.Encrypt(dst, c.scratch)
		copy(c.reg, dst)
	case CFB:
		c.t.Encrypt(c.scratch, c.reg)
		xorBytes(dst, src, c.scratch)
		copy(c.reg, dst)
	case OFB:
		c.t.Encrypt(c.reg, c.reg)
		xorBytes(dst, src, c.reg)
	}
}

func (c *Cipher) decryptBlock(dst, src []byte) {
	switch c.chaining {
	case ECB:
		c.t.Decrypt(dst, src)
	case CBC, ExplicitCBC:
		c.t.Decrypt(c.scratch, src)
		xorBytes(dst, c.scratch, c.reg)
		copy(c.reg, src)
	case CFB:
		c.t.Encrypt(c.scratch, c.reg)
		copy(c.reg, src)
		xorBytes(dst, src, c.scratch)
	case OFB:
		c.t.Encrypt(c.reg, c.reg)
		xorBytes(dst, src, c.reg)
	}
}

// streamTail handles the final partial block of a CFB or OFB stream, which
// is the same in both directions.
func (c *Cipher) streamTail(dst, src []byte) {
	if c.chaining == OFB {
		c.t.Encrypt(c.reg, c.reg)
		xorBytes(dst, src, c.reg)
		return
	}
	c.t.Encrypt(c.scratch, c.reg)
	xorBytes(dst, src, c.scratch)
}

func xorBytes(dst, a, b []byte) {
	for i := range dst {
		dst[i] = a[i] ^ b[i]
	}
}
