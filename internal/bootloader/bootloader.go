// Package bootloader is the run-once boot orchestrator: it reads the
// persisted update flags, optionally enters network recovery, decides
// between install, rollback and plain commit, and hands control to the
// application image. Every path ends in the non-returning handoff.
package bootloader

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/openfota/bootcore/internal/bootloader/core"
	"github.com/openfota/bootcore/internal/bootloader/swap"
	"github.com/openfota/bootcore/internal/recovery"
)

// Trigger selects which conditions drop the device into recovery mode
// before the boot decision runs.
type Trigger uint8

const (
	// TriggerButton enters recovery when the operator holds the recovery
	// button at power-on.
	TriggerButton Trigger = 1 << iota

	// TriggerAfterUpdate enters recovery when the previous boot installed
	// new firmware.
	TriggerAfterUpdate

	// TriggerAfterRollback enters recovery when the previous boot rolled
	// back, i.e. an update already failed once.
	TriggerAfterRollback
)

// InstallMode picks what happens after a verified upload. Both modes are
// deployment configurations of the same design.
type InstallMode int

const (
	// InstallImmediate swaps the uploaded image in and boots it right away.
	InstallImmediate InstallMode = iota

	// InstallDeferred leaves the verified image staged and reboots; the
	// next boot takes the regular install path, default rollback included.
	InstallDeferred
)

// Bootloader sequences one boot cycle. It is not reusable: Run is called
// exactly once per power-on.
type Bootloader struct {
	layout  core.Layout
	store   core.StatusStore
	target  core.Target
	trigger Trigger

	engine  *swap.Engine
	handoff *Handoff
	server  *recovery.Server

	log logr.Logger
}

// Run executes the boot cycle. On real targets it never returns: every
// path ends in a vector jump or a watchdog reset. Under the mock target it
// returns nil once the handoff has been recorded, which is what lets the
// whole cycle be tested in-process.
func (b *Bootloader) Run(ctx context.Context) error {
	b.log.Info("boot core starting")

	if b.enterRecovery() {
		if b.server != nil {
			b.log.Info("entering recovery mode")
			if err := b.server.Run(ctx); err != nil {
				return fmt.Errorf("recovery server: %w", err)
			}
			// Recovery ends in an install handoff or a watchdog reset, so
			// the regular decision below is unreachable after it.
			return nil
		}
		// A no-network build cannot serve recovery; the fired trigger is
		// still worth a trace before the normal decision runs.
		b.log.Info("recovery trigger fired without a wired transport, booting normally")
	}

	state := resolveState(b.store)
	m := b.newDecisionMachine(state)
	if err := m.Event(ctx, eventFor(state)); isRealError(err) {
		return fmt.Errorf("boot decision from %s: %w", state, err)
	}

	// Whatever was decided, the staging slot is no longer trustworthy.
	b.store.MarkSlotInvalid()

	b.handoff.Boot(b.layout.AppVector)
	return nil
}

func (b *Bootloader) enterRecovery() bool {
	if b.trigger&TriggerButton != 0 && b.target.RecoveryRequested() {
		return true
	}
	if b.trigger&TriggerAfterUpdate != 0 && b.store.IsAfterUpdate() {
		return true
	}
	if b.trigger&TriggerAfterRollback != 0 && b.store.IsAfterRollback() {
		return true
	}
	return false
}

// installImmediate is the recovery install path for InstallImmediate: the
// verified image is swapped in, certified and booted without another power
// cycle. The download slot ends up invalid, holding the previous app image.
func (b *Bootloader) installImmediate(length uint32) {
	b.log.Info("installing uploaded firmware", "bytes", length)

	b.engine.Swap(b.store.SwapSize())
	b.store.Commit()
	b.store.MarkNoNewFirmware()
	b.store.MarkNotAfterRollback()
	b.store.MarkSlotInvalid()
	b.handoff.Boot(b.layout.AppVector)
}

// installDeferred reboots with the verified image still staged; the next
// boot installs it through the regular swap path and arms the default
// rollback for it.
func (b *Bootloader) installDeferred(length uint32) {
	b.log.Info("uploaded firmware staged for next boot", "bytes", length)
	b.target.WatchdogReset()
}
