package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog/v2"
	"github.com/jessevdk/go-flags"

	afnix "github.com/loongarch64/afnix-sub002"
)

type globalOptions struct {
	DebugLevel string `long:"debuglevel" description:"Logging level" choice:"trace" choice:"debug" choice:"info" choice:"warn" choice:"error" choice:"off" default:"info"`
}

const subsystem = "ACRY"

type subCommand interface {
	Register(parser *flags.Parser) error
}

var (
	globalOpts = &globalOptions{}

	log = btclog.Disabled
)

// setupLogging installs console loggers at the requested level, one for
// this command and one tagged with the library's subsystem.
func setupLogging() {
	level, _ := btclog.LevelFromString(globalOpts.DebugLevel)
	handler := btclog.NewDefaultHandler(os.Stderr)

	log = btclog.NewSLogger(handler.SubSystem(subsystem))
	log.SetLevel(level)

	libLog := btclog.NewSLogger(handler.SubSystem(afnix.Subsystem))
	libLog.SetLevel(level)
	afnix.UseLogger(libLog)
}

func main() {
	parser := flags.NewParser(globalOpts, flags.Default)

	commands := []subCommand{
		newCryptCommand(false),
		newCryptCommand(true),
		newListCommand(),
	}
	for _, command := range commands {
		if err := command.Register(parser); err != nil {
			_, _ = fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}

	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}
}
