// Package flagstore is a file-backed StatusStore for hosted deployments
// and the simulator. The record is a fixed 16-byte binary block with a
// CRC-16 trailer; a torn or corrupt record loads as the zero state, which
// the boot core treats as "nothing pending". On-device deployments persist
// the same flags in a reserved flash sector instead.
package flagstore

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sigurn/crc16"

	"github.com/openfota/bootcore/internal/bootloader/core"
)

const (
	recordMagic   = 0x464F5441 // "FOTA"
	recordVersion = 1
	recordSize    = 16
)

// Flag bits of the persisted record.
const (
	flagShouldRollback = 1 << iota
	flagSlotValid
	flagAfterUpdate
	flagAfterRollback
)

var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// Store implements core.StatusStore over a single file. Every mutator
// rewrites the record through a temp-file rename, so a crash leaves either
// the old record or the new one, never a blend.
type Store struct {
	mu   sync.Mutex
	path string

	flags      uint8
	swapSize   uint32
	slotLength uint32
}

var _ core.StatusStore = (*Store)(nil)

// Open loads the record at path, treating a missing or corrupt file as the
// zero state.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read status record: %w", err)
	}

	s.decode(data)
	return s, nil
}

// decode accepts only a well-formed record; anything else is the zero state.
func (s *Store) decode(data []byte) {
	if len(data) != recordSize {
		return
	}
	if binary.LittleEndian.Uint32(data[0:4]) != recordMagic || data[4] != recordVersion {
		return
	}
	sum := crc16.Checksum(data[:recordSize-2], crcTable)
	if binary.LittleEndian.Uint16(data[recordSize-2:]) != sum {
		return
	}

	s.flags = data[5]
	s.swapSize = binary.LittleEndian.Uint32(data[6:10])
	s.slotLength = binary.LittleEndian.Uint32(data[10:14])
}

func (s *Store) encode() []byte {
	data := make([]byte, recordSize)
	binary.LittleEndian.PutUint32(data[0:4], recordMagic)
	data[4] = recordVersion
	data[5] = s.flags
	binary.LittleEndian.PutUint32(data[6:10], s.swapSize)
	binary.LittleEndian.PutUint32(data[10:14], s.slotLength)
	binary.LittleEndian.PutUint16(data[recordSize-2:], crc16.Checksum(data[:recordSize-2], crcTable))
	return data
}

// save persists the current record. Persistence failures are swallowed:
// the store's durability is best-effort by contract and the boot path has
// no recovery action for them.
func (s *Store) save() {
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, s.encode(), 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, s.path)
}

// Path returns the backing file location.
func (s *Store) Path() string { return filepath.Clean(s.path) }

func (s *Store) get(bit uint8) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flags&bit != 0
}

func (s *Store) set(bit uint8, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.flags |= bit
	} else {
		s.flags &^= bit
	}
	s.save()
}

func (s *Store) ShouldRollback() bool    { return s.get(flagShouldRollback) }
func (s *Store) HasFirmwareToSwap() bool { return s.get(flagSlotValid) }
func (s *Store) IsAfterUpdate() bool     { return s.get(flagAfterUpdate) }
func (s *Store) IsAfterRollback() bool   { return s.get(flagAfterRollback) }

func (s *Store) SwapSize() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.swapSize
}

func (s *Store) MarkHasNewFirmware()   { s.set(flagAfterUpdate, true) }
func (s *Store) MarkNoNewFirmware()    { s.set(flagAfterUpdate, false) }
func (s *Store) MarkAfterRollback()    { s.set(flagAfterRollback, true) }
func (s *Store) MarkNotAfterRollback() { s.set(flagAfterRollback, false) }
func (s *Store) MarkShouldRollback()   { s.set(flagShouldRollback, true) }
func (s *Store) Commit()               { s.set(flagShouldRollback, false) }

// InitializeDownloadSlot invalidates the staged image record. Erasing the
// staging flash itself is the recovery server's job; the store only tracks
// state.
func (s *Store) InitializeDownloadSlot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags &^= flagSlotValid
	s.slotLength = 0
	s.save()
}

// MarkSlotValid records the staged image length and adopts it as the swap
// size for the install that follows.
func (s *Store) MarkSlotValid(length uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags |= flagSlotValid
	s.slotLength = length
	s.swapSize = length
	s.save()
}

func (s *Store) MarkSlotInvalid() { s.set(flagSlotValid, false) }

// SlotLength returns the recorded staged-image length, zero when invalid.
func (s *Store) SlotLength() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flags&flagSlotValid == 0 {
		return 0
	}
	return s.slotLength
}
