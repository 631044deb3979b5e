// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

package mode

import (
	"fmt"
	"strings"
)

// Padding is the block padding scheme applied when a stream is finished.
type Padding int

const (
	// PadNone adds no padding.  ECB and CBC then require block aligned
	// input.
	PadNone Padding = iota

	// PadBit is ISO/IEC 7816-4 bit padding: 0x80 followed by zeros.
	PadBit

	// PadX923 is ANSI X9.23 padding: zeros followed by the pad length.
	PadX923

	// PadNIST is the NIST SP 800-38A (PKCS#7) padding: every pad byte
	// holds the pad length.
	PadNIST
)

func (p Padding) String() string {
	switch p {
	case PadNone:
		return "none"
	case PadBit:
		return "bit"
	case PadX923:
		return "x923"
	case PadNIST:
		return "nist"
	default:
		return fmt.Sprintf("Padding(%d)", int(p))
	}
}

// ParsePadding returns the padding named s, as printed by String.  "pkcs7"
// is accepted as an alias of "nist".
func ParsePadding(s string) (Padding, error) {
	switch strings.ToLower(s) {
	case "none":
		return PadNone, nil
	case "bit":
		return PadBit, nil
	case "x923":
		return PadX923, nil
	case "nist", "pkcs7":
		return PadNIST, nil
	default:
		return PadNone, fmt.Errorf("mode: unknown padding %q: %w", s, ErrMode)
	}
}

// padBlock fills blk[n:] with padding.  The pad is never empty, so an
// aligned message gains a full block.
func padBlock(blk []byte, n int, p Padding) {
	padLen := len(blk) - n
	switch p {
	case PadBit:
		blk[n] = 0x80
		for i := n + 1; i < len(blk); i++ {
			blk[i] = 0
		}
	case PadX923:
		for i := n; i < len(blk)-1; i++ {
			blk[i] = 0
		}
		blk[len(blk)-1] = byte(padLen)
	case PadNIST:
		for i := n; i < len(blk); i++ {
			blk[i] = byte(padLen)
		}
	}
}

// unpadBlock returns the number of data bytes in the final block blk.
func unpadBlock(blk []byte, p Padding) (int, error) {
	bs := len(blk)
	switch p {
	case PadBit:
		i := bs - 1
		for i >= 0 && blk[i] == 0 {
			i--
		}
		if i >= 0 && blk[i] == 0x80 {
			return i, nil
		}
	case PadX923, PadNIST:
		padLen := int(blk[bs-1])
		if padLen == 0 || padLen > bs {
			break
		}
		want := byte(0)
		if p == PadNIST {
			want = byte(padLen)
		}
		for i := bs - padLen; i < bs-1; i++ {
			if blk[i] != want {
				return 0, fmt.Errorf("mode: malformed %v padding: %w", p, ErrPadding)
			}
		}
		return bs - padLen, nil
	default:
		return bs, nil
	}

	return 0, fmt.Errorf("mode: malformed %v padding: %w", p, ErrPadding)
}
