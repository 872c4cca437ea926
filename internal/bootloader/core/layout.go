package core

import "fmt"

// Layout is the fixed flash geometry of the two firmware slots. All values
// are compile-time configuration; nothing here changes at runtime.
type Layout struct {
	// DownloadStart is the base address of the download (staging) slot.
	DownloadStart uint32

	// AppStart is the base address of the application (running) slot.
	AppStart uint32

	// SwapCapacity is the size of each slot in bytes.
	SwapCapacity uint32

	// SectorSize is the flash erase granularity.
	SectorSize uint32

	// AlignUnit is the minimum contiguous write granularity accepted by
	// Program.
	AlignUnit uint32

	// AppVector is the address of the application's vector table, the
	// handoff jump target.
	AppVector uint32
}

// Validate checks the geometry invariants the swap and upload paths rely on.
func (l Layout) Validate() error {
	if l.SectorSize == 0 {
		return fmt.Errorf("sector size must not be zero")
	}
	if l.AlignUnit == 0 || l.SectorSize%l.AlignUnit != 0 {
		return fmt.Errorf("alignment unit %d must divide sector size %d", l.AlignUnit, l.SectorSize)
	}
	if l.SwapCapacity == 0 || l.SwapCapacity%l.SectorSize != 0 {
		return fmt.Errorf("swap capacity %d must be a non-zero multiple of sector size %d", l.SwapCapacity, l.SectorSize)
	}
	if l.DownloadStart < l.AppStart && l.DownloadStart+l.SwapCapacity > l.AppStart {
		return fmt.Errorf("download slot overlaps application slot")
	}
	if l.AppStart < l.DownloadStart && l.AppStart+l.SwapCapacity > l.DownloadStart {
		return fmt.Errorf("application slot overlaps download slot")
	}
	return nil
}

// ClampSwapSize applies the swap-size rule: zero or oversized requests fall
// back to the full capacity.
func (l Layout) ClampSwapSize(requested uint32) uint32 {
	if requested == 0 || requested > l.SwapCapacity {
		return l.SwapCapacity
	}
	return requested
}
