package main

import (
	"fmt"

	"github.com/jessevdk/go-flags"

	"github.com/loongarch64/afnix-sub002/block"
	"github.com/loongarch64/afnix-sub002/gcm"
	"github.com/loongarch64/afnix-sub002/hasher"
	"github.com/loongarch64/afnix-sub002/suite"
)

type listCommand struct {
	Suites bool `long:"suites" description:"Only list the TLS cipher suites"`
}

func newListCommand() *listCommand {
	return &listCommand{}
}

func (x *listCommand) Register(parser *flags.Parser) error {
	_, err := parser.AddCommand(
		"list",
		"List the supported algorithms",
		"Print the block ciphers, GHASH multipliers, hashes and TLS "+
			"cipher suites this build supports",
		x,
	)
	return err
}

func (x *listCommand) Execute(_ []string) error {
	setupLogging()

	if !x.Suites {
		fmt.Println("Block ciphers:")
		for _, name := range block.Names() {
			f, err := block.Lookup(name)
			if err != nil {
				return err
			}
			fmt.Printf("  %-12s %d bit block\n", name, f.BlockSize()*8)
		}
		fmt.Println("GHASH multipliers:")
		for _, name := range gcm.Multipliers() {
			fmt.Printf("  %s\n", name)
		}
		fmt.Println("Hashes:")
		for _, name := range hasher.Names() {
			fmt.Printf("  %s\n", name)
		}
	}

	fmt.Println("TLS cipher suites:")
	for _, s := range suite.Suites() {
		fmt.Printf("  0x%04X %s\n", s.Code, s.Name)
	}

	return nil
}
