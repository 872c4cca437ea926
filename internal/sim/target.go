package sim

import (
	"github.com/go-logr/logr"

	"github.com/openfota/bootcore/internal/bootloader/core"
)

// Target is the simulator's hardware port. Control transfers that never
// return on real silicon are reduced to log lines and recorded state so a
// boot cycle can be observed end to end from a shell.
type Target struct {
	ID       [8]byte
	Recovery bool

	JumpedTo uint32
	Resets   int

	log logr.Logger
}

var _ core.Target = (*Target)(nil)

func NewTarget(id [8]byte, recovery bool, log logr.Logger) *Target {
	return &Target{ID: id, Recovery: recovery, log: log.WithName("target")}
}

func (t *Target) UniqueID() [8]byte { return t.ID }

func (t *Target) RecoveryRequested() bool { return t.Recovery }

func (t *Target) SaveAndDisableInterrupts() uint32 {
	t.log.V(1).Info("interrupts disabled")
	return 1
}

func (t *Target) RestoreInterrupts(state uint32) {
	t.log.V(1).Info("interrupts restored")
}

func (t *Target) MaskInterrupts() {
	t.log.V(1).Info("interrupts masked")
}

func (t *Target) ResetPeripherals() {
	t.log.V(1).Info("peripherals reset")
}

func (t *Target) JumpToVector(addr uint32) {
	t.JumpedTo = addr
	t.log.Info("control transferred to application", "vector", addr)
}

func (t *Target) WatchdogReset() {
	t.Resets++
	t.log.Info("watchdog reset requested")
}
