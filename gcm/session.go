// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

package gcm

import (
	"encoding/binary"

	"github.com/loongarch64/afnix-sub002/internal/api"
)

const (
	blockSize         = api.BlockSize
	standardNonceSize = api.NonceSize

	maxBytes    = api.MaxBytes
	maxAADBytes = api.MaxAADBytes
)

// session is the per message GCM state: counters, the GHASH accumulator
// and the keystream/GHASH carry for data that does not end on a block
// boundary.
type session struct {
	t api.Transform
	m api.Multiplier

	j0      [blockSize]byte
	counter [blockSize]byte
	y       [blockSize]byte

	keystream [blockSize]byte
	ksUsed    int

	partial    [blockSize]byte
	partialLen int

	aadLen uint64
	ctLen  uint64
}

func (s *session) init(t api.Transform, m api.Multiplier) {
	*s = session{
		t:      t,
		m:      m,
		ksUsed: blockSize,
	}
}

func (s *session) wipe() {
	t, m := s.t, s.m
	s.init(t, m)
}

// deriveCounter computes J0 from the IV, per NIST SP 800-38D section 7.1.
func (s *session) deriveCounter(iv []byte) {
	if len(iv) == standardNonceSize {
		copy(s.j0[:], iv)
		s.j0[blockSize-1] = 1
	} else {
		var y [blockSize]byte
		s.update(&y, iv)

		var lens [blockSize]byte
		binary.BigEndian.PutUint64(lens[8:], uint64(len(iv))*8)
		xorBlock(&y, &lens)
		s.m.Mul(&y)
		s.j0 = y
	}
	s.counter = s.j0
	s.ksUsed = blockSize
}

// authenticate folds the additional data into GHASH.  It must be called
// once, before any ciphertext.
func (s *session) authenticate(aad []byte) {
	s.update(&s.y, aad)
	s.aadLen = uint64(len(aad))
}

// update extends y with data, zero padding the final partial block.
func (s *session) update(y *[blockSize]byte, data []byte) {
	var blk [blockSize]byte
	for len(data) > 0 {
		n := copy(blk[:], data)
		for i := n; i < blockSize; i++ {
			blk[i] = 0
		}
		xorBlock(y, &blk)
		s.m.Mul(y)
		data = data[n:]
	}
}

// crypt runs the counter mode over in, writing to out, and folds the
// ciphertext into GHASH.  in and out may overlap exactly.
func (s *session) crypt(out, in []byte, encrypt bool) {
	s.ctLen += uint64(len(in))

	for len(in) > 0 {
		// Whole blocks, when both carries are empty.
		if s.ksUsed == blockSize && s.partialLen == 0 && len(in) >= blockSize {
			var blk [blockSize]byte
			s.nextKeystream()
			for i := 0; i < blockSize; i++ {
				c := in[i] ^ s.keystream[i]
				if encrypt {
					blk[i] = c
				} else {
					blk[i] = in[i]
				}
				out[i] = c
			}
			s.ksUsed = blockSize
			xorBlock(&s.y, &blk)
			s.m.Mul(&s.y)

			in, out = in[blockSize:], out[blockSize:]
			continue
		}

		if s.ksUsed == blockSize {
			s.nextKeystream()
		}
		b := in[0]
		c := b ^ s.keystream[s.ksUsed]
		s.ksUsed++
		out[0] = c
		if encrypt {
			s.absorbByte(c)
		} else {
			s.absorbByte(b)
		}

		in, out = in[1:], out[1:]
	}
}

func (s *session) nextKeystream() {
	gcmInc32(&s.counter)
	s.t.Encrypt(s.keystream[:], s.counter[:])
	s.ksUsed = 0
}

func (s *session) absorbByte(b byte) {
	s.partial[s.partialLen] = b
	s.partialLen++
	if s.partialLen == blockSize {
		xorBlock(&s.y, &s.partial)
		s.m.Mul(&s.y)
		s.partialLen = 0
	}
}

// tag finishes GHASH with the length block and masks it with E(K, J0).
func (s *session) tag() [blockSize]byte {
	if s.partialLen > 0 {
		for i := s.partialLen; i < blockSize; i++ {
			s.partial[i] = 0
		}
		xorBlock(&s.y, &s.partial)
		s.m.Mul(&s.y)
		s.partialLen = 0
	}

	var lens [blockSize]byte
	binary.BigEndian.PutUint64(lens[:8], s.aadLen*8)
	binary.BigEndian.PutUint64(lens[8:], s.ctLen*8)
	xorBlock(&s.y, &lens)
	s.m.Mul(&s.y)

	var mask [blockSize]byte
	s.t.Encrypt(mask[:], s.j0[:])
	xorBlock(&mask, &s.y)

	return mask
}

// gcmInc32 treats the final four bytes of counterBlock as a big-endian value
// and increments it, wrapping modulo 2^32.
func gcmInc32(counterBlock *[blockSize]byte) {
	ctr := counterBlock[len(counterBlock)-4:]
	binary.BigEndian.PutUint32(ctr, binary.BigEndian.Uint32(ctr)+1)
}

func xorBlock(dst, src *[blockSize]byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}
