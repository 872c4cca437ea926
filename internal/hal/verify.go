package hal

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/openfota/bootcore/internal/bootloader/core"
)

// SlotVerifier checks a staged image whose final 32 bytes are the SHA-256
// digest of everything before them, the layout the image packer emits.
type SlotVerifier struct {
	flash  core.Flash
	layout core.Layout
}

var _ core.Verifier = (*SlotVerifier)(nil)

func NewSlotVerifier(flash core.Flash, layout core.Layout) *SlotVerifier {
	return &SlotVerifier{flash: flash, layout: layout}
}

func (v *SlotVerifier) Verify(length uint32) error {
	if length <= sha256.Size {
		return fmt.Errorf("image too short for digest trailer: %d bytes", length)
	}
	if length > v.layout.SwapCapacity {
		return fmt.Errorf("image length %d exceeds slot capacity %d", length, v.layout.SwapCapacity)
	}

	img := make([]byte, length)
	if err := v.flash.Read(v.layout.DownloadStart, img); err != nil {
		return fmt.Errorf("read download slot: %w", err)
	}

	payload := img[:length-sha256.Size]
	want := img[length-sha256.Size:]
	got := sha256.Sum256(payload)
	if !bytes.Equal(got[:], want) {
		return fmt.Errorf("firmware digest mismatch")
	}
	return nil
}

// AppendDigest suffixes payload with its SHA-256 digest, producing an image
// SlotVerifier accepts. Shared by tests and the simulator's seed images.
func AppendDigest(payload []byte) []byte {
	sum := sha256.Sum256(payload)
	return append(append([]byte(nil), payload...), sum[:]...)
}
