// Package hardware provides hardware accelerated implementations.
package hardware

import "github.com/loongarch64/afnix-sub002/internal/api"

// Factory is a factory that will construct hardware backed AES block
// transforms if supported.
var Factory api.Factory
