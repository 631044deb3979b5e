// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

package gcm

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/loongarch64/afnix-sub002/gf"
	"github.com/loongarch64/afnix-sub002/internal/api"
)

var supportedMultipliers = []api.MultiplierFactory{
	&tableFactory{},
	&fieldFactory{},
}

// Multipliers returns the names of the GHASH multiplier implementations,
// preferred first.
func Multipliers() []string {
	names := make([]string, 0, len(supportedMultipliers))
	for _, v := range supportedMultipliers {
		names = append(names, v.Name())
	}

	return names
}

func lookupMultiplier(name string) (api.MultiplierFactory, error) {
	for _, v := range supportedMultipliers {
		if v.Name() == name {
			return v, nil
		}
	}

	return nil, fmt.Errorf("gcm: unknown multiplier %q: %w", name, ErrMode)
}

// fieldElement represents a value in GF(2^128), with the bits stored in
// big endian order, so the coefficient of x^0 is low >> 63 and the
// coefficient of x^127 is high & 1.
type fieldElement struct {
	low, high uint64
}

type tableFactory struct{}

func (f *tableFactory) Name() string {
	return "table"
}

func (f *tableFactory) New(h *[api.BlockSize]byte) api.Multiplier {
	var m tableMultiplier

	// The 16 multiples of H are stored at bit reversed indexes, since the
	// lookups use 4 bit nibbles of an element in GCM bit order.
	x := fieldElement{
		binary.BigEndian.Uint64(h[:8]),
		binary.BigEndian.Uint64(h[8:]),
	}
	m.productTable[reverseBits(1)] = x
	for i := 2; i < 16; i += 2 {
		m.productTable[reverseBits(i)] = gcmDouble(&m.productTable[reverseBits(i/2)])
		m.productTable[reverseBits(i+1)] = gcmAdd(&m.productTable[reverseBits(i)], &x)
	}

	return &m
}

type tableMultiplier struct {
	productTable [16]fieldElement
}

func (m *tableMultiplier) Reset() {
	for i := range m.productTable {
		m.productTable[i] = fieldElement{}
	}
}

var gcmReductionTable = []uint16{
	0x0000, 0x1c20, 0x3840, 0x2460, 0x7080, 0x6ca0, 0x48c0, 0x54e0,
	0xe100, 0xfd20, 0xd940, 0xc560, 0x9180, 0x8da0, 0xa9c0, 0xb5e0,
}

func (m *tableMultiplier) Mul(block *[api.BlockSize]byte) {
	y := fieldElement{
		binary.BigEndian.Uint64(block[:8]),
		binary.BigEndian.Uint64(block[8:]),
	}

	var z fieldElement
	for i := 0; i < 2; i++ {
		word := y.high
		if i == 1 {
			word = y.low
		}

		// Multiply z by 16 and add in one of the precomputed multiples
		// of H, a nibble at a time.
		for j := 0; j < 64; j += 4 {
			msw := z.high & 0xf
			z.high >>= 4
			z.high |= z.low << 60
			z.low >>= 4
			z.low ^= uint64(gcmReductionTable[msw]) << 48

			t := &m.productTable[word&0xf]
			z.low ^= t.low
			z.high ^= t.high
			word >>= 4
		}
	}

	binary.BigEndian.PutUint64(block[:8], z.low)
	binary.BigEndian.PutUint64(block[8:], z.high)
}

// reverseBits reverses the order of the bits of 4-bit number in i.
func reverseBits(i int) int {
	i = ((i << 2) & 0xc) | ((i >> 2) & 0x3)
	i = ((i << 1) & 0xa) | ((i >> 1) & 0x5)
	return i
}

func gcmAdd(x, y *fieldElement) fieldElement {
	return fieldElement{x.low ^ y.low, x.high ^ y.high}
}

// gcmDouble returns x multiplied by the polynomial x.  Because of the bit
// order this is a right shift, reduced by 1+x+x^2+x^7+x^128 when the x^127 term falls off.
func gcmDouble(x *fieldElement) (double fieldElement) {
	msbSet := x.high&1 == 1

	double.high = x.high >> 1
	double.high |= x.low << 63
	double.low = x.low >> 1

	if msbSet {
		double.low ^= 0xe100000000000000
	}

	return
}

// fieldFactory builds multipliers on the generic Galois field engine.  It
// is far slower than the table, and exists as the reference.
type fieldFactory struct{}

func (f *fieldFactory) Name() string {
	return "field"
}

func (f *fieldFactory) New(h *[api.BlockSize]byte) api.Multiplier {
	return &fieldMultiplier{
		f: gf.GCM(),
		h: new(big.Int).SetBytes(h[:]),
	}
}

type fieldMultiplier struct {
	f *gf.Field
	h *big.Int
}

func (m *fieldMultiplier) Reset() {
	m.h.SetInt64(0)
}

func (m *fieldMultiplier) Mul(block *[api.BlockSize]byte) {
	y := m.f.GMM(new(big.Int).SetBytes(block[:]), m.h)
	y.FillBytes(block[:])
}
