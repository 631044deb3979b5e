// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package gf implements arithmetic over GF(2^n), with elements and the
// field polynomial represented as non-negative big integers whose bits are
// the polynomial coefficients.
package gf

import (
	"fmt"
	"math/big"

	"github.com/loongarch64/afnix-sub002/internal/api"
)

// ErrField is the error returned on a degenerate field operand.
var ErrField = api.ErrField

var (
	zero = new(big.Int)
	one  = big.NewInt(1)

	// gcmPoly is x^128 + x^7 + x^2 + x + 1.
	gcmPoly = new(big.Int).Or(new(big.Int).Lsh(one, 128), big.NewInt(0x87))

	// aesPoly is x^8 + x^4 + x^3 + x + 1.
	aesPoly = big.NewInt(0x11b)
)

// Field is GF(2^n) defined by a reduction polynomial of degree n.  A Field
// is immutable and safe for concurrent use.
type Field struct {
	poly *big.Int
	deg  int

	// r is the reduction constant for the reflected representation used
	// by GMM: poly without the x^n term, bit reversed over n bits.
	r *big.Int
}

// New returns the field defined by poly.  A nil or zero polynomial yields
// a degenerate field where no reduction is performed.  The constant
// polynomial 1 reduces every element to zero.
func New(poly *big.Int) *Field {
	f := &Field{
		poly: new(big.Int),
		deg:  -1,
		r:    new(big.Int),
	}
	if poly == nil || poly.Sign() <= 0 {
		return f
	}

	f.poly.Set(poly)
	f.deg = poly.BitLen() - 1
	low := new(big.Int).SetBit(new(big.Int).Set(poly), f.deg, 0)
	f.r = reverse(low, f.deg)

	return f
}

// NewFromHex returns the field defined by the hex encoded polynomial.
func NewFromHex(s string) (*Field, error) {
	poly, ok := new(big.Int).SetString(s, 16)
	if !ok || poly.Sign() < 0 {
		return nil, fmt.Errorf("gf: bad polynomial %q: %w", s, ErrField)
	}
	if poly.Cmp(one) == 0 {
		return nil, fmt.Errorf("gf: degree 0 polynomial: %w", ErrField)
	}

	return New(poly), nil
}

// GCM returns GF(2^128) as used by GHASH.
func GCM() *Field {
	return New(gcmPoly)
}

// AES returns GF(2^8) as used by the AES S-box and MixColumns.
func AES() *Field {
	return New(aesPoly)
}

// Degree returns n, or -1 for the degenerate field.
func (f *Field) Degree() int {
	return f.deg
}

// Polynomial returns a copy of the field polynomial.
func (f *Field) Polynomial() *big.Int {
	return new(big.Int).Set(f.poly)
}

func (f *Field) degenerate() bool {
	return f.deg < 0
}

// Mod returns x reduced modulo the field polynomial.
func (f *Field) Mod(x *big.Int) *big.Int {
	z := new(big.Int).Abs(x)
	if f.degenerate() {
		return z
	}

	return polyMod(z, f.poly)
}

// Add returns x + y.
func (f *Field) Add(x, y *big.Int) *big.Int {
	z := new(big.Int).Xor(new(big.Int).Abs(x), new(big.Int).Abs(y))
	return f.Mod(z)
}

// Mul returns x * y, by shift and add with the shifted copy of x reduced
// each time it reaches degree n.
func (f *Field) Mul(x, y *big.Int) *big.Int {
	if f.degenerate() {
		return clmul(new(big.Int).Abs(x), new(big.Int).Abs(y))
	}

	a, b := f.Mod(x), f.Mod(y)
	z := new(big.Int)
	for i := 0; i < b.BitLen(); i++ {
		if b.Bit(i) == 1 {
			z.Xor(z, a)
		}
		a.Lsh(a, 1)
		if a.Bit(f.deg) == 1 {
			a.Xor(a, f.poly)
		}
	}

	return z
}

// GMM returns x * y in the bit reflected representation of NIST SP
// 800-38D, where bit n-1 of an element holds the coefficient of x^0.  For
// GCM this is the GHASH block multiplication with elements read as
// big-endian integers.
//
// GMM(x, y) == Reverse(Mul(Reverse(x), Reverse(y))).
func (f *Field) GMM(x, y *big.Int) *big.Int {
	if f.degenerate() {
		return clmul(new(big.Int).Abs(x), new(big.Int).Abs(y))
	}

	n := f.deg
	xx, v := f.truncate(x), f.truncate(y)
	z := new(big.Int)
	for i := n - 1; i >= 0; i-- {
		if xx.Bit(i) == 1 {
			z.Xor(z, v)
		}
		lsb := v.Bit(0)
		v.Rsh(v, 1)
		if lsb == 1 {
			v.Xor(v, f.r)
		}
	}

	return z
}

// Inv returns the multiplicative inverse of x.
func (f *Field) Inv(x *big.Int) (*big.Int, error) {
	if f.degenerate() {
		return nil, fmt.Errorf("gf: inverse without a field polynomial: %w", ErrField)
	}

	a := f.Mod(x)
	if a.Sign() == 0 {
		return nil, fmt.Errorf("gf: inverse of zero: %w", ErrField)
	}

	// Extended Euclid over GF(2)[x], tracking only the coefficient of a.
	r0, r1 := new(big.Int).Set(f.poly), a
	t0, t1 := new(big.Int), big.NewInt(1)
	for r1.Sign() != 0 {
		q, r := polyDivMod(r0, r1)
		r0, r1 = r1, r
		t0, t1 = t1, new(big.Int).Xor(t0, clmul(q, t1))
	}
	if r0.Cmp(one) != 0 {
		return nil, fmt.Errorf("gf: %x is not invertible: %w", a, ErrField)
	}

	return f.Mod(t0), nil
}

// Div returns x / y.
func (f *Field) Div(x, y *big.Int) (*big.Int, error) {
	yi, err := f.Inv(y)
	if err != nil {
		return nil, err
	}

	return f.Mul(x, yi), nil
}

// Reverse returns x with its low n bits in reverse order.
func (f *Field) Reverse(x *big.Int) *big.Int {
	if f.degenerate() {
		return new(big.Int).Abs(x)
	}

	return reverse(f.truncate(x), f.deg)
}

// Element returns the element encoded big-endian in b.
func (f *Field) Element(b []byte) *big.Int {
	return f.Mod(new(big.Int).SetBytes(b))
}

// Bytes returns x as a big-endian byte string sized to the field.
func (f *Field) Bytes(x *big.Int) []byte {
	z := f.Mod(x)
	if f.degenerate() {
		return z.Bytes()
	}

	return z.FillBytes(make([]byte, (f.deg+7)/8))
}

// truncate returns a copy of x with only the low n bits kept.
func (f *Field) truncate(x *big.Int) *big.Int {
	mask := new(big.Int).Sub(new(big.Int).Lsh(one, uint(f.deg)), one)
	return mask.And(mask, new(big.Int).Abs(x))
}

func reverse(x *big.Int, n int) *big.Int {
	z := new(big.Int)
	for i := 0; i < n; i++ {
		if x.Bit(i) == 1 {
			z.SetBit(z, n-1-i, 1)
		}
	}

	return z
}

// clmul is the carry-less product of x and y.
func clmul(x, y *big.Int) *big.Int {
	z := new(big.Int)
	if x.Sign() == 0 || y.Sign() == 0 {
		return z
	}

	a := new(big.Int).Set(x)
	for i := 0; i < y.BitLen(); i++ {
		if y.Bit(i) == 1 {
			z.Xor(z, a)
		}
		a.Lsh(a, 1)
	}

	return z
}

func polyMod(x, m *big.Int) *big.Int {
	_, r := polyDivMod(x, m)
	return r
}

// polyDivMod is GF(2)[x] long division, with subtraction as XOR.
func polyDivMod(x, m *big.Int) (*big.Int, *big.Int) {
	q, r := new(big.Int), new(big.Int).Set(x)
	if m.Cmp(zero) == 0 {
		return q, r
	}

	dm := m.BitLen()
	t := new(big.Int)
	for r.BitLen() >= dm {
		shift := r.BitLen() - dm
		q.SetBit(q, shift, 1)
		r.Xor(r, t.Lsh(m, uint(shift)))
	}

	return q, r
}
