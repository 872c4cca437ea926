package bootloader

import (
	"github.com/go-logr/logr"

	"github.com/openfota/bootcore/internal/bootloader/core"
)

// Handoff performs the final, non-retryable transfer of control to an
// installed image. On real targets Boot never returns; a corrupt vector
// table at the target address is a silent lockup, not a reported error.
type Handoff struct {
	target core.Target
	log    logr.Logger
}

func NewHandoff(target core.Target, log logr.Logger) *Handoff {
	return &Handoff{target: target, log: log.WithName("handoff")}
}

// Boot masks all interrupt sources, resets the peripherals the new image
// must not inherit live, and jumps to the vector table at addr. The three
// steps are ordered and none of them can be undone.
func (h *Handoff) Boot(addr uint32) {
	h.log.Info("handing off to application", "vector", addr)

	h.target.MaskInterrupts()
	h.target.ResetPeripherals()
	h.target.JumpToVector(addr)
}
