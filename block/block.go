// Copryright (C) 2019 Yawning Angel
//
// This work is licensed under the Creative Commons Attribution-NonCommercial-
// NoDerivatives 4.0 International License. To view a copy of this license,
// visit http://creativecommons.org/licenses/by-nc-nd/4.0/ or send a letter to
// Creative Commons, PO Box 1866, Mountain View, CA 94042, USA.

// Package block provides the registry of block transforms the chaining
// modes and GCM are built on.
package block

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
	"golang.org/x/crypto/tea"
	"golang.org/x/crypto/twofish"
	"golang.org/x/crypto/xtea"

	"github.com/loongarch64/afnix-sub002/internal/api"
	"github.com/loongarch64/afnix-sub002/internal/hardware"
	"github.com/loongarch64/afnix-sub002/key"
)

// Transform is a keyed block transform.
type Transform = api.Transform

// Factory is a Transform factory.
type Factory = api.Factory

var (
	// ErrKey is the error returned when the key size is invalid.
	ErrKey = api.ErrKey

	// ErrMode is the error returned when the algorithm is unknown.
	ErrMode = api.ErrMode

	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

type genericFactory struct {
	name      string
	blockSize int
	keySizes  func(int) bool
	newFn     func([]byte) (cipher.Block, error)
}

func (f *genericFactory) Name() string {
	return f.name
}

func (f *genericFactory) BlockSize() int {
	return f.blockSize
}

func (f *genericFactory) ValidKeySize(n int) bool {
	return f.keySizes(n)
}

func (f *genericFactory) New(k []byte) (Transform, error) {
	if !f.keySizes(len(k)) {
		return nil, fmt.Errorf("%s: %d bit key: %w", f.name, len(k)*8, ErrKey)
	}

	blk, err := f.newFn(k)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", f.name, err, ErrKey)
	}

	return blk, nil
}

func exactly(sizes ...int) func(int) bool {
	return func(n int) bool {
		for _, v := range sizes {
			if n == v {
				return true
			}
		}
		return false
	}
}

func between(lo, hi int) func(int) bool {
	return func(n int) bool {
		return n >= lo && n <= hi
	}
}

// Register adds a factory to the registry, replacing any factory with the
// same name.  It is safe to call concurrently with Lookup and New.
func Register(f Factory) {
	register(f.Name(), f)
}

func register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	factories[name] = f
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	factoriesMu.RLock()
	f, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("block: unknown algorithm %q: %w", name, ErrMode)
	}

	return f, nil
}

// Names returns the sorted names of the registered factories.
func Names() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}

// New constructs a keyed transform of the named algorithm.
func New(name string, k *key.Key) (Transform, error) {
	f, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if err = k.Check(key.Symmetric); err != nil {
		return nil, err
	}

	t, err := f.New(k.Bytes())
	if err != nil {
		return nil, err
	}
	log.Debugf("Keyed %s (%d bit key, %d byte block)", f.Name(), k.Bits(),
		t.BlockSize())

	return t, nil
}

// Generic is the portable AES factory.
var Generic Factory = &genericFactory{
	name:      "aes-generic",
	blockSize: aes.BlockSize,
	keySizes:  exactly(16, 24, 32),
	newFn:     aes.NewCipher,
}

// AES returns the preferred AES factory.
func AES() Factory {
	if hardware.Factory != nil {
		return hardware.Factory
	}

	return Generic
}

func init() {
	Register(Generic)
	if hardware.Factory != nil {
		Register(hardware.Factory)
	}

	aesFactory := AES()
	register("aes", &genericFactory{
		name:      "aes",
		blockSize: aesFactory.BlockSize(),
		keySizes:  aesFactory.ValidKeySize,
		newFn: func(k []byte) (cipher.Block, error) {
			return aesFactory.New(k)
		},
	})

	for _, f := range []*genericFactory{
		{"des", des.BlockSize, exactly(8), des.NewCipher},
		{"3des", des.BlockSize, exactly(24), des.NewTripleDESCipher},
		{"twofish", twofish.BlockSize, exactly(16, 24, 32), func(k []byte) (cipher.Block, error) {
			return twofish.NewCipher(k)
		}},
		{"blowfish", blowfish.BlockSize, between(1, 56), func(k []byte) (cipher.Block, error) {
			return blowfish.NewCipher(k)
		}},
		{"cast5", cast5.BlockSize, exactly(cast5.KeySize), func(k []byte) (cipher.Block, error) {
			return cast5.NewCipher(k)
		}},
		{"xtea", xtea.BlockSize, exactly(16), func(k []byte) (cipher.Block, error) {
			return xtea.NewCipher(k)
		}},
		{"tea", tea.BlockSize, exactly(tea.KeySize), tea.NewCipher},
	} {
		Register(f)
	}
}
