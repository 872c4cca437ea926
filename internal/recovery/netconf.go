package recovery

import (
	"net"
	"time"

	"github.com/go-logr/logr"

	"github.com/openfota/bootcore/internal/bootloader/core"
	"github.com/openfota/bootcore/internal/pkg/metrics"
)

// macPrefix is the WIZnet OUI; the remaining three octets come from the
// device's factory-unique identifier, so every unit gets a stable,
// collision-free address without any provisioning step.
var macPrefix = []byte{0x00, 0x08, 0xDC}

// DeriveMAC builds the device MAC from the unique board identifier.
func DeriveMAC(id [8]byte) net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	copy(mac, macPrefix)
	copy(mac[3:], id[5:8])
	return mac
}

// StaticFallback is the address plan applied when DHCP is exhausted. It is
// intentionally hardcoded: a recovery operator must be able to find the
// device at a known address on a dead network.
func StaticFallback() core.NetConfig {
	return core.NetConfig{
		IP:      net.IPv4(192, 168, 0, 100).To4(),
		Mask:    net.CIDRMask(24, 32),
		Gateway: net.IPv4(192, 168, 0, 1).To4(),
		DNS:     net.IPv4(8, 8, 8, 8).To4(),
	}
}

// BringUp derives and assigns the MAC, runs the bounded DHCP budget and
// falls back to the static plan on exhaustion. It always returns the
// configuration read back from the device, never a guess. DHCP failure is
// recovered locally and is not an error.
func BringUp(dev core.NetDevice, id [8]byte, policy core.RetryPolicy, log logr.Logger) core.NetConfig {
	mac := DeriveMAC(id)
	dev.SetHardwareAddr(mac)
	log.Info("network bring-up", "mac", mac.String())

	leased := false
	for attempt := 0; attempt < policy.Attempts && !leased; attempt++ {
		dev.DHCPStart()
		for poll := 0; poll < policy.Polls; poll++ {
			if dev.DHCPPoll() == core.LeaseBound {
				leased = true
				break
			}
			time.Sleep(policy.Interval)
		}
		dev.DHCPStop()

		if leased {
			metrics.DHCPAttemptsTotal.WithLabelValues("leased").Inc()
		} else {
			metrics.DHCPAttemptsTotal.WithLabelValues("timeout").Inc()
			log.Info("dhcp attempt timed out", "attempt", attempt+1, "of", policy.Attempts)
		}
	}

	if !leased {
		log.Info("dhcp exhausted, applying static fallback")
		dev.ApplyStatic(StaticFallback())
	}

	cfg := dev.Current()
	log.Info("network up", "ip", cfg.IP.String(), "dhcp", cfg.DHCP)
	return cfg
}
