// Package hints supplies platform- and transport-dependent default
// configuration for endpoint construction. The only hint injected today
// is the receive software buffer size: on the network transport it must
// be sized before the transport exists, because it is independent of
// frame size and frame count. Hardware-direct transports size their own
// buffers, so they get no default.
package hints

import (
	"runtime"
	"strconv"

	"github.com/sdr-control/sdrc/internal/periph"
)

// RecvBuffSizeKey is the recognized receive-buffer-size hint key.
const RecvBuffSizeKey = "recv_buff_size"

// Platform is the host operating-system family, resolved once at
// startup. Keeping it an explicit value (rather than a build-time
// branch) keeps the per-platform behavior visible and testable on any
// host.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
	PlatformMacOS   Platform = "darwin"
	PlatformBSD     Platform = "bsd"
	PlatformOther   Platform = "other"
)

// Default receive software buffer sizes per platform family. Linux and
// Windows take roughly half a second of buffering at max rate; macOS
// and the BSDs error on large socket-buffer resizes, so they are
// capped low.
var defaultRecvBuffSize = map[Platform]int{
	PlatformLinux:   0x2000000,
	PlatformWindows: 0x2000000,
	PlatformMacOS:   0x100000,
	PlatformBSD:     0x100000,
}

// DetectPlatform maps runtime.GOOS onto a Platform family.
func DetectPlatform() Platform {
	switch runtime.GOOS {
	case "linux":
		return PlatformLinux
	case "windows":
		return PlatformWindows
	case "darwin":
		return PlatformMacOS
	case "freebsd", "netbsd", "openbsd", "dragonfly":
		return PlatformBSD
	default:
		return PlatformOther
	}
}

// Provider hands out transport configuration for endpoint construction.
// Neither accessor fails: an out-of-range motherboard index yields an
// empty map.
type Provider struct {
	platform Platform
	mbs      []*periph.Motherboard
}

// NewProvider builds a provider for the given platform family.
func NewProvider(platform Platform, mbs []*periph.Motherboard) *Provider {
	return &Provider{platform: platform, mbs: mbs}
}

// RxHints returns a copy of the motherboard's stored receive
// configuration, injecting the platform's default receive buffer size
// when the caller did not specify one and the transport is not
// hardware-direct. The hint only pre-sizes socket buffering; it has no
// effect after the transport is constructed.
func (p *Provider) RxHints(mbIndex int) map[string]string {
	if mbIndex < 0 || mbIndex >= len(p.mbs) {
		return map[string]string{}
	}
	mb := p.mbs[mbIndex]
	out := copyArgs(mb.RecvArgs)
	if _, ok := out[RecvBuffSizeKey]; !ok && mb.XportPath != periph.PathNIRIO {
		if size, ok := defaultRecvBuffSize[p.platform]; ok {
			out[RecvBuffSizeKey] = strconv.Itoa(size)
		}
	}
	return out
}

// TxHints returns a copy of the motherboard's stored send
// configuration, unmodified.
func (p *Provider) TxHints(mbIndex int) map[string]string {
	if mbIndex < 0 || mbIndex >= len(p.mbs) {
		return map[string]string{}
	}
	return copyArgs(p.mbs[mbIndex].SendArgs)
}

func copyArgs(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
