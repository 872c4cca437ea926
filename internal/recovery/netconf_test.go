package recovery

import (
	"net"
	"testing"

	"github.com/go-logr/logr"

	"github.com/openfota/bootcore/internal/bootloader/core"
	"github.com/openfota/bootcore/internal/hal"
)

func TestDeriveMAC(t *testing.T) {
	id := [8]byte{0xE6, 0x60, 0x58, 0x38, 0x83, 0x35, 0x97, 0x1C}
	mac := DeriveMAC(id)

	want := net.HardwareAddr{0x00, 0x08, 0xDC, id[5], id[6], id[7]}
	if mac.String() != want.String() {
		t.Fatalf("DeriveMAC = %s, want %s", mac, want)
	}

	// Same board, same address.
	if DeriveMAC(id).String() != mac.String() {
		t.Errorf("MAC derivation is not stable")
	}
}

func TestBringUpLeasesViaDHCP(t *testing.T) {
	dev := &hal.Loopback{
		Leases: []core.LeaseState{core.LeaseNone, core.LeaseNone, core.LeaseBound},
	}
	policy := core.RetryPolicy{Attempts: 5, Polls: 20}

	cfg := BringUp(dev, [8]byte{}, policy, logr.Discard())

	if !cfg.DHCP {
		t.Errorf("configuration not marked as leased")
	}
	if cfg.IP == nil {
		t.Errorf("no address after successful lease")
	}
	if cfg.MAC == nil {
		t.Errorf("hardware address not assigned before DHCP")
	}
}

func TestBringUpFallsBackToStatic(t *testing.T) {
	dev := &hal.Loopback{} // never leases
	policy := core.RetryPolicy{Attempts: 2, Polls: 3}

	cfg := BringUp(dev, [8]byte{}, policy, logr.Discard())

	want := StaticFallback()
	if cfg.DHCP {
		t.Errorf("fallback configuration marked as leased")
	}
	if !cfg.IP.Equal(want.IP) {
		t.Errorf("fallback IP = %s, want %s", cfg.IP, want.IP)
	}
	if !cfg.Gateway.Equal(want.Gateway) {
		t.Errorf("fallback gateway = %s, want %s", cfg.Gateway, want.Gateway)
	}
	if ones, _ := cfg.Mask.Size(); ones != 24 {
		t.Errorf("fallback mask = %s, want /24", cfg.Mask)
	}
	if !cfg.DNS.Equal(want.DNS) {
		t.Errorf("fallback DNS = %s, want %s", cfg.DNS, want.DNS)
	}
}
