package hal

import "github.com/openfota/bootcore/internal/bootloader/core"

// RecordingStore is an in-memory StatusStore that captures every call in
// order. The boot decision tests assert the exact store-call sequence.
type RecordingStore struct {
	Rollback       bool
	FirmwareToSwap bool
	AfterUpdate    bool
	AfterRollback  bool
	ConfSwapSize   uint32

	SlotValid  bool
	SlotLength uint32

	Calls []string
}

var _ core.StatusStore = (*RecordingStore)(nil)

func (s *RecordingStore) record(name string) { s.Calls = append(s.Calls, name) }

func (s *RecordingStore) ShouldRollback() bool {
	s.record("query-should-rollback")
	return s.Rollback
}

func (s *RecordingStore) HasFirmwareToSwap() bool {
	s.record("query-has-firmware-to-swap")
	return s.FirmwareToSwap
}

func (s *RecordingStore) IsAfterUpdate() bool {
	s.record("query-after-update")
	return s.AfterUpdate
}

func (s *RecordingStore) IsAfterRollback() bool {
	s.record("query-after-rollback")
	return s.AfterRollback
}

func (s *RecordingStore) SwapSize() uint32 {
	s.record("query-swap-size")
	return s.ConfSwapSize
}

// MarkHasNewFirmware and MarkNoNewFirmware drive the after-update marker
// the freshly booted application queries to know it must self-certify.
func (s *RecordingStore) MarkHasNewFirmware() {
	s.record("mark-has-new-firmware")
	s.AfterUpdate = true
}

func (s *RecordingStore) MarkNoNewFirmware() {
	s.record("mark-no-new-firmware")
	s.AfterUpdate = false
}

func (s *RecordingStore) MarkAfterRollback() {
	s.record("mark-after-rollback")
	s.AfterRollback = true
}

func (s *RecordingStore) MarkNotAfterRollback() {
	s.record("mark-not-after-rollback")
	s.AfterRollback = false
}

func (s *RecordingStore) MarkShouldRollback() {
	s.record("mark-should-rollback")
	s.Rollback = true
}

func (s *RecordingStore) Commit() {
	s.record("commit")
	s.Rollback = false
}

func (s *RecordingStore) InitializeDownloadSlot() {
	s.record("initialize-download-slot")
	s.SlotValid = false
	s.FirmwareToSwap = false
	s.SlotLength = 0
}

// MarkSlotValid arms the swap path: a valid download slot is exactly what
// "has firmware to swap" means.
func (s *RecordingStore) MarkSlotValid(length uint32) {
	s.record("mark-slot-valid")
	s.SlotValid = true
	s.FirmwareToSwap = true
	s.SlotLength = length
}

func (s *RecordingStore) MarkSlotInvalid() {
	s.record("mark-slot-invalid")
	s.SlotValid = false
	s.FirmwareToSwap = false
}
