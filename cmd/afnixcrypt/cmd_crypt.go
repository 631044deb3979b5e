package main

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/loongarch64/afnix-sub002/block"
	"github.com/loongarch64/afnix-sub002/gcm"
	"github.com/loongarch64/afnix-sub002/key"
	"github.com/loongarch64/afnix-sub002/mode"
)

const chunkSize = 4096

type cryptCommand struct {
	Cipher  string `long:"cipher" description:"Block cipher name, see the list command" default:"aes"`
	Mode    string `long:"mode" description:"Chaining mode" choice:"ecb" choice:"cbc" choice:"explicit-cbc" choice:"cfb" choice:"ofb" choice:"gcm" default:"cbc"`
	Padding string `long:"padding" description:"Padding, ignored by gcm" choice:"none" choice:"bit" choice:"x923" choice:"nist" default:"nist"`
	Key     string `long:"key" short:"k" description:"Hex encoded key" required:"true"`
	IV      string `long:"iv" description:"Hex encoded IV, the all zero block if unset"`
	AAD     string `long:"aad" description:"Hex encoded additional authenticated data (gcm only)"`
	In      string `long:"in" short:"i" description:"Input file, stdin if unset"`
	Out     string `long:"out" short:"o" description:"Output file, stdout if unset"`

	decrypt bool
}

func newCryptCommand(decrypt bool) *cryptCommand {
	return &cryptCommand{
		decrypt: decrypt,
	}
}

func (x *cryptCommand) Register(parser *flags.Parser) error {
	name, short, long := "encrypt", "Encrypt a stream",
		"Read plaintext from --in (or stdin), encrypt it with the "+
			"selected cipher and chaining mode, and write the "+
			"ciphertext to --out (or stdout); gcm appends the tag"
	if x.decrypt {
		name, short, long = "decrypt", "Decrypt a stream",
			"Read ciphertext from --in (or stdin), decrypt it with "+
				"the selected cipher and chaining mode, and write "+
				"the plaintext to --out (or stdout); gcm expects the "+
				"tag at the end and writes nothing unless it matches"
	}

	_, err := parser.AddCommand(name, short, long, x)
	return err
}

func (x *cryptCommand) Execute(_ []string) error {
	setupLogging()

	k, err := key.FromHex(key.Symmetric, x.Key)
	if err != nil {
		return err
	}
	var iv, aad []byte
	if x.IV != "" {
		if iv, err = hex.DecodeString(x.IV); err != nil {
			return fmt.Errorf("invalid --iv: %v", err)
		}
	}
	if x.AAD != "" {
		if aad, err = hex.DecodeString(x.AAD); err != nil {
			return fmt.Errorf("invalid --aad: %v", err)
		}
	}

	factory, err := block.Lookup(x.Cipher)
	if err != nil {
		return err
	}

	in, out, err := x.openFiles()
	if err != nil {
		return err
	}
	defer in.Close()
	defer out.Close()

	w := bufio.NewWriter(out)
	if x.Mode == "gcm" {
		err = x.runGCM(factory, k, iv, aad, in, w)
	} else {
		err = x.runChaining(factory, k, iv, in, w)
	}
	if err != nil {
		return err
	}

	return w.Flush()
}

func (x *cryptCommand) openFiles() (io.ReadCloser, io.WriteCloser, error) {
	in, out := io.ReadCloser(os.Stdin), io.WriteCloser(os.Stdout)
	if x.In != "" {
		f, err := os.Open(x.In)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open input: %v", err)
		}
		in = f
	}
	if x.Out != "" {
		f, err := os.Create(x.Out)
		if err != nil {
			_ = in.Close()
			return nil, nil, fmt.Errorf("cannot create output: %v", err)
		}
		out = f
	}

	return in, out, nil
}

func (x *cryptCommand) runChaining(factory block.Factory, k *key.Key, iv []byte,
	in io.Reader, w io.Writer) error {

	chaining, err := mode.ParseChaining(x.Mode)
	if err != nil {
		return err
	}
	padding, err := mode.ParsePadding(x.Padding)
	if err != nil {
		return err
	}

	c, err := mode.NewWithKey(factory, k)
	if err != nil {
		return err
	}
	if err = c.SetMode(chaining); err != nil {
		return err
	}
	if err = c.SetPadding(padding); err != nil {
		return err
	}
	if err = c.SetIV(iv); err != nil {
		return err
	}
	log.Debugf("Running %s/%v/%v, decrypt=%v", factory.Name(), chaining,
		padding, x.decrypt)

	process := c.Encode
	if x.decrypt {
		process = c.Decode
	}

	buf := make([]byte, chunkSize)
	var dst []byte
	for {
		n, rerr := in.Read(buf)
		if n > 0 {
			if dst, err = process(dst[:0], buf[:n]); err != nil {
				return err
			}
			if _, err = w.Write(dst); err != nil {
				return err
			}
		}
		if errors.Is(rerr, io.EOF) {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	if dst, err = c.Finish(dst[:0]); err != nil {
		return err
	}
	_, err = w.Write(dst)

	return err
}

func (x *cryptCommand) runGCM(factory block.Factory, k *key.Key, iv, aad []byte,
	in io.Reader, w io.Writer) error {

	m, err := gcm.New(factory)
	if err != nil {
		return err
	}
	if err = m.SetKey(k); err != nil {
		return err
	}
	if iv == nil {
		iv = make([]byte, gcm.NonceSize)
	}
	if err = m.SetIV(iv); err != nil {
		return err
	}
	if err = m.SetAuth(aad); err != nil {
		return err
	}

	if !x.decrypt {
		buf := make([]byte, chunkSize)
		var dst []byte
		for {
			n, rerr := in.Read(buf)
			if n > 0 {
				if dst, err = m.Encode(dst[:0], buf[:n]); err != nil {
					return err
				}
				if _, err = w.Write(dst); err != nil {
					return err
				}
			}
			if errors.Is(rerr, io.EOF) {
				break
			}
			if rerr != nil {
				return rerr
			}
		}
		tag, err := m.Finish()
		if err != nil {
			return err
		}
		_, err = w.Write(tag)
		return err
	}

	sealed, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	if len(sealed) < m.TagSize() {
		return gcm.ErrAuthentication
	}
	split := len(sealed) - m.TagSize()
	if err = m.Decode(sealed[:split]); err != nil {
		return err
	}
	plain, err := m.Verify(sealed[split:])
	if err != nil {
		return err
	}
	_, err = w.Write(plain)

	return err
}
