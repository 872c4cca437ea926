package hal

import (
	"bytes"
	"testing"
)

func TestMemFlashEraseProgramRead(t *testing.T) {
	f := NewMemFlash(0x1000, 0x2000, 0x1000)

	data := bytes.Repeat([]byte{0x5A}, 0x100)
	if err := f.Program(0x1000, data); err != nil {
		t.Fatalf("Program on fresh flash: %v", err)
	}

	got := make([]byte, 0x100)
	if err := f.Read(0x1000, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("read back %x, want %x", got[:4], data[:4])
	}

	// Reprogramming without an erase violates the NOR model.
	if err := f.Program(0x1000, data); err == nil {
		t.Errorf("Program over programmed bytes accepted")
	}

	if err := f.Erase(0x1000, 0x1000); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if err := f.Read(0x1000, got); err != nil {
		t.Fatalf("Read after erase: %v", err)
	}
	for _, b := range got {
		if b != 0xFF {
			t.Fatalf("erased byte reads %#x", b)
		}
	}
	if err := f.Program(0x1000, data); err != nil {
		t.Errorf("Program after erase: %v", err)
	}
}

func TestMemFlashRejectsBadAccesses(t *testing.T) {
	f := NewMemFlash(0x1000, 0x2000, 0x1000)

	if err := f.Erase(0x1100, 0x1000); err == nil {
		t.Errorf("unaligned erase address accepted")
	}
	if err := f.Erase(0x1000, 0x800); err == nil {
		t.Errorf("unaligned erase length accepted")
	}
	if err := f.Erase(0x0, 0x1000); err == nil {
		t.Errorf("erase below base accepted")
	}
	if err := f.Program(0x2F00, make([]byte, 0x200)); err == nil {
		t.Errorf("program past end accepted")
	}
	if err := f.Read(0x3000, make([]byte, 1)); err == nil {
		t.Errorf("read past end accepted")
	}
}

func TestMemFlashLoadBypassesEraseRule(t *testing.T) {
	f := NewMemFlash(0, 0x1000, 0x1000)

	img := []byte{1, 2, 3, 4}
	if err := f.Load(0x10, img); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := f.Load(0x10, []byte{9, 9, 9, 9}); err != nil {
		t.Fatalf("Load over loaded bytes: %v", err)
	}
	if got := f.Bytes(0x10, 4); !bytes.Equal(got, []byte{9, 9, 9, 9}) {
		t.Errorf("Bytes = %v after reload", got)
	}
}
