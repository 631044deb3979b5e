package afnix

import (
	"github.com/btcsuite/btclog/v2"

	"github.com/loongarch64/afnix-sub002/block"
	"github.com/loongarch64/afnix-sub002/gcm"
	"github.com/loongarch64/afnix-sub002/hasher"
	"github.com/loongarch64/afnix-sub002/mode"
	"github.com/loongarch64/afnix-sub002/suite"
)

// Subsystem is the logging subsystem tag of the library.
const Subsystem = "AFNX"

// UseLogger sets the logger of every package in the library.
func UseLogger(logger btclog.Logger) {
	block.UseLogger(logger)
	mode.UseLogger(logger)
	gcm.UseLogger(logger)
	hasher.UseLogger(logger)
	suite.UseLogger(logger)
}
