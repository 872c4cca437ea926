// Package swap implements the sector-wise exchange of the download and
// application slots. The exchange is its own inverse: running it twice with
// no intervening writes restores the original contents of both slots.
package swap

import (
	"github.com/go-logr/logr"

	"github.com/openfota/bootcore/internal/bootloader/core"
	"github.com/openfota/bootcore/internal/pkg/metrics"
)

// Engine exchanges slot contents under flash erase/program constraints.
type Engine struct {
	flash  core.Flash
	target core.Target
	layout core.Layout
	log    logr.Logger
}

func NewEngine(flash core.Flash, target core.Target, layout core.Layout, log logr.Logger) *Engine {
	return &Engine{
		flash:  flash,
		target: target,
		layout: layout,
		log:    log.WithName("swap"),
	}
}

// Swap exchanges the first requested bytes of the two slots sector by
// sector and returns the clamped size actually covered. A requested size of
// zero, or one past the configured capacity, swaps the full capacity; any
// remainder below one sector is never swapped.
//
// Interrupts stay masked for the whole multi-sector loop: no preemption may
// observe a half-swapped flash state, and flash operation timing stays
// deterministic. Flash driver failures are logged and not surfaced.
func (e *Engine) Swap(requested uint32) uint32 {
	iterations := e.layout.ClampSwapSize(requested) / e.layout.SectorSize
	size := iterations * e.layout.SectorSize

	e.log.Info("swapping slots", "bytes", size, "sectors", iterations)

	downloadBuf := make([]byte, e.layout.SectorSize)
	appBuf := make([]byte, e.layout.SectorSize)

	state := e.target.SaveAndDisableInterrupts()
	for i := uint32(0); i < iterations; i++ {
		offset := i * e.layout.SectorSize
		downloadAddr := e.layout.DownloadStart + offset
		appAddr := e.layout.AppStart + offset

		// Both sectors are staged in RAM before the first erase, bounding
		// what a power loss can cost to one reconstructible sector pair.
		e.check(e.flash.Read(downloadAddr, downloadBuf))
		e.check(e.flash.Read(appAddr, appBuf))

		e.check(e.flash.Erase(appAddr, e.layout.SectorSize))
		e.check(e.flash.Erase(downloadAddr, e.layout.SectorSize))

		e.check(e.flash.Program(appAddr, downloadBuf))
		e.check(e.flash.Program(downloadAddr, appBuf))

		metrics.SwapSectorsTotal.Inc()
	}
	e.target.RestoreInterrupts(state)

	return size
}

// check logs a flash driver error and moves on. The swap path has no
// recovery action for a failed erase or program; the digest check at upload
// time is the only content validation this core performs.
func (e *Engine) check(err error) {
	if err != nil {
		e.log.Error(err, "flash operation failed")
	}
}
