// Package hal carries the reference implementations of the boot core's
// hardware ports: an in-memory sector-modeled flash, a scriptable loopback
// network device, a TCP-backed device for the simulator and a mock target.
// Real firmware links its own port implementations instead.
package hal

import (
	"fmt"
	"sync"

	"github.com/openfota/bootcore/internal/bootloader/core"
)

const erasedByte = 0xFF

// MemFlash models NOR-style flash: erase sets sectors to 0xFF, programming
// is only legal on erased bytes. The model is strict on purpose so tests
// catch ordering bugs the real driver would let slide.
type MemFlash struct {
	mu     sync.Mutex
	base   uint32
	sector uint32
	buf    []byte
}

var _ core.Flash = (*MemFlash)(nil)

func NewMemFlash(base, size, sector uint32) *MemFlash {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = erasedByte
	}
	return &MemFlash{base: base, sector: sector, buf: buf}
}

func (f *MemFlash) Read(addr uint32, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	off, err := f.offset(addr, uint32(len(p)))
	if err != nil {
		return err
	}
	copy(p, f.buf[off:off+uint32(len(p))])
	return nil
}

func (f *MemFlash) Erase(addr, length uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if addr%f.sector != 0 || length%f.sector != 0 {
		return fmt.Errorf("erase not sector-aligned: addr=%#x length=%#x sector=%#x", addr, length, f.sector)
	}
	off, err := f.offset(addr, length)
	if err != nil {
		return err
	}
	for i := off; i < off+length; i++ {
		f.buf[i] = erasedByte
	}
	return nil
}

func (f *MemFlash) Program(addr uint32, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	off, err := f.offset(addr, uint32(len(p)))
	if err != nil {
		return err
	}
	for i, b := range p {
		if f.buf[off+uint32(i)] != erasedByte {
			return fmt.Errorf("program over non-erased byte at %#x", addr+uint32(i))
		}
		f.buf[off+uint32(i)] = b
	}
	return nil
}

// Bytes returns a copy of [addr, addr+length) for test assertions and
// simulator snapshots.
func (f *MemFlash) Bytes(addr, length uint32) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	off, err := f.offset(addr, length)
	if err != nil {
		return nil
	}
	out := make([]byte, length)
	copy(out, f.buf[off:off+length])
	return out
}

// Load seeds [addr, addr+len(p)) without erase semantics, the way a factory
// image ends up in flash.
func (f *MemFlash) Load(addr uint32, p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	off, err := f.offset(addr, uint32(len(p)))
	if err != nil {
		return err
	}
	copy(f.buf[off:], p)
	return nil
}

func (f *MemFlash) offset(addr, length uint32) (uint32, error) {
	if addr < f.base || addr-f.base+length > uint32(len(f.buf)) {
		return 0, fmt.Errorf("flash access out of range: addr=%#x length=%#x", addr, length)
	}
	return addr - f.base, nil
}
