// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package suite maps negotiated TLS cipher suite codes to the block
// transform, chaining mode and hash that implement them.
package suite

import (
	"crypto/cipher"
	"fmt"
	"sort"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/loongarch64/afnix-sub002/block"
	"github.com/loongarch64/afnix-sub002/gcm"
	"github.com/loongarch64/afnix-sub002/hasher"
	"github.com/loongarch64/afnix-sub002/internal/api"
	"github.com/loongarch64/afnix-sub002/key"
	"github.com/loongarch64/afnix-sub002/mode"
)

var (
	// ErrMode is the error returned for an unknown suite, or when the
	// suite does not support the requested construction.
	ErrMode = api.ErrMode

	// ErrKey is the error returned when the key does not fit the suite.
	ErrKey = api.ErrKey
)

// Suite is a TLS cipher suite.
type Suite struct {
	Code    uint16
	Name    string
	Cipher  string
	KeySize int
	AEAD    bool
	Hash    string
}

func (s *Suite) String() string {
	return fmt.Sprintf("%s (0x%04X)", s.Name, s.Code)
}

// chacha20 is the stream cipher of the RFC 7905 suites, which has no block
// transform and is sealed directly by chacha20poly1305.
const chacha20 = "chacha20"

// The CBC suites use explicit IVs as from TLS 1.1, and leave the record
// padding to the record layer.
var suites = map[uint16]*Suite{
	0x000A: {0x000A, "TLS_RSA_WITH_3DES_EDE_CBC_SHA", "3des", 24, false, "sha1"},
	0x002F: {0x002F, "TLS_RSA_WITH_AES_128_CBC_SHA", "aes", 16, false, "sha1"},
	0x0035: {0x0035, "TLS_RSA_WITH_AES_256_CBC_SHA", "aes", 32, false, "sha1"},
	0x003C: {0x003C, "TLS_RSA_WITH_AES_128_CBC_SHA256", "aes", 16, false, "sha256"},
	0x003D: {0x003D, "TLS_RSA_WITH_AES_256_CBC_SHA256", "aes", 32, false, "sha256"},
	0x009C: {0x009C, "TLS_RSA_WITH_AES_128_GCM_SHA256", "aes", 16, true, "sha256"},
	0x009D: {0x009D, "TLS_RSA_WITH_AES_256_GCM_SHA384", "aes", 32, true, "sha384"},
	0xC02F: {0xC02F, "TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256", "aes", 16, true, "sha256"},
	0xC030: {0xC030, "TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384", "aes", 32, true, "sha384"},
	0xCCA8: {0xCCA8, "TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256", chacha20, chacha20poly1305.KeySize, true, "sha256"},
}

// Lookup returns a copy of the suite with the given code.
func Lookup(code uint16) (*Suite, error) {
	s, ok := suites[code]
	if !ok {
		return nil, fmt.Errorf("suite: unsupported suite 0x%04X: %w", code, ErrMode)
	}
	cp := *s

	return &cp, nil
}

// Suites returns a copy of every supported suite, ordered by code.
func Suites() []*Suite {
	ret := make([]*Suite, 0, len(suites))
	for _, s := range suites {
		cp := *s
		ret = append(ret, &cp)
	}
	sort.Slice(ret, func(i, j int) bool {
		return ret[i].Code < ret[j].Code
	})

	return ret
}

func (s *Suite) checkKey(k *key.Key) error {
	if err := k.Check(key.Symmetric); err != nil {
		return err
	}
	if k.Size() != s.KeySize {
		return fmt.Errorf("suite: %d bit key for %s: %w", k.Bits(), s.Name, ErrKey)
	}

	return nil
}

// NewCipher returns the record cipher of a CBC suite.
func (s *Suite) NewCipher(k *key.Key) (*mode.Cipher, error) {
	if s.AEAD {
		return nil, fmt.Errorf("suite: %s is an AEAD suite: %w", s.Name, ErrMode)
	}
	if err := s.checkKey(k); err != nil {
		return nil, err
	}
	factory, err := block.Lookup(s.Cipher)
	if err != nil {
		return nil, err
	}

	c, err := mode.NewWithKey(factory, k)
	if err != nil {
		return nil, err
	}
	if err = c.SetMode(mode.ExplicitCBC); err != nil {
		return nil, err
	}
	if err = c.SetPadding(mode.PadNone); err != nil {
		return nil, err
	}
	log.Debugf("Record cipher for %v", s)

	return c, nil
}

// NewAEAD returns the record AEAD of a GCM or ChaCha20-Poly1305 suite.
func (s *Suite) NewAEAD(k *key.Key) (cipher.AEAD, error) {
	if !s.AEAD {
		return nil, fmt.Errorf("suite: %s is not an AEAD suite: %w", s.Name, ErrMode)
	}
	if err := s.checkKey(k); err != nil {
		return nil, err
	}

	var (
		aead cipher.AEAD
		err  error
	)
	if s.Cipher == chacha20 {
		aead, err = chacha20poly1305.New(k.Bytes())
	} else {
		var t block.Transform
		if t, err = block.New(s.Cipher, k); err != nil {
			return nil, err
		}
		aead, err = gcm.NewAEAD(t)
	}
	if err != nil {
		return nil, err
	}
	log.Debugf("Record AEAD for %v", s)

	return aead, nil
}

// NewHasher returns the suite's hash, the record MAC hash of a CBC suite
// or the PRF hash of a GCM suite.
func (s *Suite) NewHasher() (*hasher.Hasher, error) {
	return hasher.New(s.Hash)
}

// NewMAC returns the record HMAC of a CBC suite.
func (s *Suite) NewMAC(k *key.Key) (*hasher.Hasher, error) {
	if s.AEAD {
		return nil, fmt.Errorf("suite: %s has no record mac: %w", s.Name, ErrMode)
	}

	return hasher.NewHMAC(s.Hash, k)
}
