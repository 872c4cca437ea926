package bootloader

import (
	"bytes"
	"context"
	"testing"

	"github.com/go-logr/logr"

	"github.com/openfota/bootcore/internal/bootloader/core"
	"github.com/openfota/bootcore/internal/hal"
)

func testLayout() core.Layout {
	return core.Layout{
		DownloadStart: 0x1000,
		AppStart:      0x5000,
		SwapCapacity:  0x4000,
		SectorSize:    0x1000,
		AlignUnit:     256,
		AppVector:     0x5100,
	}
}

type fixture struct {
	layout core.Layout
	flash  *hal.MemFlash
	store  *hal.RecordingStore
	target *hal.MockTarget
	boot   *Bootloader
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()

	layout := testLayout()
	f := &fixture{
		layout: layout,
		flash:  hal.NewMemFlash(layout.DownloadStart, layout.SwapCapacity*2, layout.SectorSize),
		store:  &hal.RecordingStore{},
		target: &hal.MockTarget{},
	}

	cfg := Config{
		Layout: layout,
		Flash:  f.flash,
		Store:  f.store,
		Target: f.target,
		Log:    logr.Discard(),
	}
	if mutate != nil {
		mutate(&cfg)
	}

	boot, err := cfg.NewBootloader()
	if err != nil {
		t.Fatalf("NewBootloader: %v", err)
	}
	f.boot = boot
	return f
}

func (f *fixture) seedSlots(t *testing.T) (download, app []byte) {
	t.Helper()
	download = bytes.Repeat([]byte{0xD0, 0xD1, 0xD2, 0xD3}, int(f.layout.SwapCapacity/4))
	app = bytes.Repeat([]byte{0xA0, 0xA1, 0xA2, 0xA3}, int(f.layout.SwapCapacity/4))
	if err := f.flash.Load(f.layout.DownloadStart, download); err != nil {
		t.Fatalf("seed download slot: %v", err)
	}
	if err := f.flash.Load(f.layout.AppStart, app); err != nil {
		t.Fatalf("seed app slot: %v", err)
	}
	return download, app
}

func assertCalls(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("store calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("store calls = %v, want %v", got, want)
		}
	}
}

func TestBootDecisionStoreSequences(t *testing.T) {
	tests := []struct {
		name      string
		rollback  bool
		staged    bool
		wantCalls []string
	}{
		{
			name: "cold boot commits",
			wantCalls: []string{
				"query-should-rollback",
				"query-has-firmware-to-swap",
				"commit",
				"mark-no-new-firmware",
				"mark-slot-invalid",
			},
		},
		{
			name:   "staged firmware installs and arms rollback",
			staged: true,
			wantCalls: []string{
				"query-should-rollback",
				"query-has-firmware-to-swap",
				"query-swap-size",
				"mark-has-new-firmware",
				"mark-not-after-rollback",
				"mark-should-rollback",
				"mark-slot-invalid",
			},
		},
		{
			name:     "uncertified image rolls back",
			rollback: true,
			wantCalls: []string{
				"query-should-rollback",
				"query-swap-size",
				"commit",
				"mark-no-new-firmware",
				"mark-after-rollback",
				"mark-slot-invalid",
			},
		},
		{
			// Rollback outranks a pending swap: the staged slot is ignored
			// until the armed rollback has run.
			name:     "rollback wins over staged firmware",
			rollback: true,
			staged:   true,
			wantCalls: []string{
				"query-should-rollback",
				"query-swap-size",
				"commit",
				"mark-no-new-firmware",
				"mark-after-rollback",
				"mark-slot-invalid",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			f.seedSlots(t)
			f.store.Rollback = tt.rollback
			f.store.FirmwareToSwap = tt.staged

			if err := f.boot.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}
			assertCalls(t, f.store.Calls, tt.wantCalls)

			if f.target.JumpedTo != f.layout.AppVector {
				t.Errorf("jumped to %#x, want %#x", f.target.JumpedTo, f.layout.AppVector)
			}
		})
	}
}

func TestBootInstallSwapsStagedImage(t *testing.T) {
	f := newFixture(t, nil)
	download, app := f.seedSlots(t)
	f.store.FirmwareToSwap = true
	f.store.ConfSwapSize = 2 * f.layout.SectorSize

	if err := f.boot.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	n := 2 * f.layout.SectorSize
	if !bytes.Equal(f.flash.Bytes(f.layout.AppStart, n), download[:n]) {
		t.Errorf("app slot does not hold staged image prefix")
	}
	if !bytes.Equal(f.flash.Bytes(f.layout.AppStart+n, f.layout.SwapCapacity-n), app[n:]) {
		t.Errorf("app slot tail modified beyond swap size")
	}

	if !f.store.Rollback {
		t.Errorf("default rollback not armed after install")
	}
	if !f.store.AfterUpdate {
		t.Errorf("after-update marker not set")
	}
	if f.store.AfterRollback {
		t.Errorf("after-rollback marker set on install path")
	}
	if f.store.FirmwareToSwap {
		t.Errorf("staged flag survived the boot cycle")
	}
}

// An installed image that never certifies itself is reverted on the next
// power-on, and the reverted state is fully committed.
func TestUncommittedInstallRollsBackNextBoot(t *testing.T) {
	f := newFixture(t, nil)
	download, app := f.seedSlots(t)
	f.store.FirmwareToSwap = true

	if err := f.boot.Run(context.Background()); err != nil {
		t.Fatalf("first boot: %v", err)
	}
	if !f.store.Rollback {
		t.Fatalf("first boot did not arm the rollback")
	}

	// Second power-on, same persisted state, no Commit in between.
	cfg := Config{Layout: f.layout, Flash: f.flash, Store: f.store, Target: &hal.MockTarget{}, Log: logr.Discard()}
	boot, err := cfg.NewBootloader()
	if err != nil {
		t.Fatalf("NewBootloader: %v", err)
	}
	if err := boot.Run(context.Background()); err != nil {
		t.Fatalf("second boot: %v", err)
	}

	if !bytes.Equal(f.flash.Bytes(f.layout.AppStart, f.layout.SwapCapacity), app) {
		t.Errorf("app slot not restored after rollback")
	}
	if !bytes.Equal(f.flash.Bytes(f.layout.DownloadStart, f.layout.SwapCapacity), download) {
		t.Errorf("download slot not restored after rollback")
	}
	if f.store.Rollback {
		t.Errorf("rollback flag still armed after rollback ran")
	}
	if !f.store.AfterRollback {
		t.Errorf("after-rollback marker not set")
	}
}

func TestHandoffOrdering(t *testing.T) {
	f := newFixture(t, nil)
	f.seedSlots(t)

	if err := f.boot.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{"irq-mask", "periph-reset", "jump"}
	got := f.target.Events
	if len(got) != len(want) {
		t.Fatalf("target events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("target events = %v, want %v", got, want)
		}
	}
}

func TestRecoveryTriggers(t *testing.T) {
	tests := []struct {
		name          string
		trigger       Trigger
		button        bool
		afterUpdate   bool
		afterRollback bool
		wantRecovery  bool
	}{
		{name: "button held", trigger: TriggerButton, button: true, wantRecovery: true},
		{name: "button released", trigger: TriggerButton, wantRecovery: false},
		{name: "after update", trigger: TriggerAfterUpdate, afterUpdate: true, wantRecovery: true},
		{name: "after rollback", trigger: TriggerAfterRollback, afterRollback: true, wantRecovery: true},
		{name: "combined triggers", trigger: TriggerButton | TriggerAfterUpdate, afterUpdate: true, wantRecovery: true},
		{name: "flag without trigger bit", trigger: TriggerButton, afterUpdate: true, wantRecovery: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// One scripted connection asking for a reboot ends recovery
			// deterministically.
			dev := &hal.Loopback{
				Leases: []core.LeaseState{core.LeaseBound},
				Conns:  []hal.Conn{{Chunks: [][]byte{[]byte("GET /reboot HTTP/1.1\r\n\r\n")}}},
			}

			f := newFixture(t, nil)
			f.seedSlots(t)
			cfg := Config{
				Layout:         f.layout,
				Flash:          f.flash,
				Store:          f.store,
				Target:         f.target,
				Net:            dev,
				Verifier:       hal.NewSlotVerifier(f.flash, f.layout),
				Trigger:        tt.trigger,
				ConnWait:       core.WaitPolicy{Polls: 3},
				UploadIdleWait: core.WaitPolicy{Polls: 3},
				Log:            logr.Discard(),
			}
			boot, err := cfg.NewBootloader()
			if err != nil {
				t.Fatalf("NewBootloader: %v", err)
			}

			f.target.Recovery = tt.button
			f.store.AfterUpdate = tt.afterUpdate
			f.store.AfterRollback = tt.afterRollback

			if err := boot.Run(context.Background()); err != nil {
				t.Fatalf("Run: %v", err)
			}

			if tt.wantRecovery {
				if f.target.ResetCount != 1 {
					t.Errorf("recovery reboot did not fire, resets=%d", f.target.ResetCount)
				}
				if f.target.JumpedTo != 0 {
					t.Errorf("recovery path jumped to %#x", f.target.JumpedTo)
				}
			} else {
				if f.target.JumpedTo != f.layout.AppVector {
					t.Errorf("normal path did not boot the app")
				}
				if f.target.ResetCount != 0 {
					t.Errorf("normal path hit the watchdog")
				}
			}
		})
	}
}

func TestNewBootloaderValidation(t *testing.T) {
	bad := testLayout()
	bad.SwapCapacity = bad.SectorSize + 1 // not a sector multiple
	if _, err := (Config{Layout: bad, Flash: hal.NewMemFlash(0x1000, 0x1000, 0x1000), Store: &hal.RecordingStore{}, Target: &hal.MockTarget{}, Log: logr.Discard()}).NewBootloader(); err == nil {
		t.Errorf("invalid layout accepted")
	}

	if _, err := (Config{Layout: testLayout(), Log: logr.Discard()}).NewBootloader(); err == nil {
		t.Errorf("missing ports accepted")
	}

	// A net device without a verifier (or the reverse) is a wiring mistake,
	// not a no-network build.
	half := Config{
		Layout: testLayout(),
		Flash:  hal.NewMemFlash(0x1000, 0x8000, 0x1000),
		Store:  &hal.RecordingStore{},
		Target: &hal.MockTarget{},
		Net:    &hal.Loopback{},
		Log:    logr.Discard(),
	}
	if _, err := half.NewBootloader(); err == nil {
		t.Errorf("net device without verifier accepted")
	}
}

// A build without recovery hardware still boots when a trigger condition
// holds; the trigger is traced and the normal decision runs.
func TestFiredTriggerWithoutRecoveryHardwareBootsNormally(t *testing.T) {
	f := newFixture(t, nil)
	f.seedSlots(t)
	f.target.Recovery = true // button held, nothing wired to serve it

	if err := f.boot.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if f.target.JumpedTo != f.layout.AppVector {
		t.Errorf("jumped to %#x, want %#x", f.target.JumpedTo, f.layout.AppVector)
	}
	if f.target.ResetCount != 0 {
		t.Errorf("watchdog fired on the no-recovery path")
	}
}
