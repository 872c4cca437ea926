package hal

import (
	"sync/atomic"

	"github.com/openfota/bootcore/internal/bootloader/core"
)

// MockTarget records the hardware calls the boot core makes so tests can
// assert ordering. Jump and reset record instead of transferring control;
// the never-returns contract only binds real targets.
type MockTarget struct {
	ID       [8]byte
	Recovery bool

	Events     []string
	JumpedTo   uint32
	ResetCount int

	irqDepth atomic.Int32
}

var _ core.Target = (*MockTarget)(nil)

func (t *MockTarget) UniqueID() [8]byte { return t.ID }

func (t *MockTarget) RecoveryRequested() bool { return t.Recovery }

func (t *MockTarget) SaveAndDisableInterrupts() uint32 {
	t.irqDepth.Add(1)
	t.Events = append(t.Events, "irq-save")
	return 1
}

func (t *MockTarget) RestoreInterrupts(state uint32) {
	t.irqDepth.Add(-1)
	t.Events = append(t.Events, "irq-restore")
}

func (t *MockTarget) MaskInterrupts() {
	t.Events = append(t.Events, "irq-mask")
}

func (t *MockTarget) ResetPeripherals() {
	t.Events = append(t.Events, "periph-reset")
}

func (t *MockTarget) JumpToVector(addr uint32) {
	t.JumpedTo = addr
	t.Events = append(t.Events, "jump")
}

func (t *MockTarget) WatchdogReset() {
	t.ResetCount++
	t.Events = append(t.Events, "watchdog-reset")
}

// InterruptsMasked reports whether a save/disable is currently unbalanced.
func (t *MockTarget) InterruptsMasked() bool {
	return t.irqDepth.Load() > 0
}
