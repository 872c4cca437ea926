package app

import (
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newPackCommand builds the image packer: it pads a raw binary to an
// alignment-unit multiple and appends the SHA-256 trailer the upload
// verifier checks. The padding byte matches erased flash.
func newPackCommand() *cobra.Command {
	var (
		output    string
		alignUnit uint32
	)

	cmd := &cobra.Command{
		Use:   "pack <binary>",
		Short: "Pack a raw binary into an uploadable firmware image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read binary: %w", err)
			}
			if len(payload) == 0 {
				return fmt.Errorf("binary %s is empty", args[0])
			}

			image := packImage(payload, alignUnit)
			if err := os.WriteFile(output, image, 0o644); err != nil {
				return fmt.Errorf("write image: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "packed %d payload bytes into %s (%d bytes)\n",
				len(payload), output, len(image))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "firmware.img", "Output image path.")
	cmd.Flags().Uint32Var(&alignUnit, "align-unit", 0x100, "Flash write alignment the image is padded to.")
	return cmd
}

// packImage pads payload so that payload plus the 32-byte digest trailer is
// an exact alignUnit multiple, then appends the digest over the padded
// payload.
func packImage(payload []byte, alignUnit uint32) []byte {
	total := uint32(len(payload)) + sha256.Size
	if rem := total % alignUnit; rem != 0 {
		pad := alignUnit - rem
		padded := make([]byte, uint32(len(payload))+pad)
		copy(padded, payload)
		for i := len(payload); i < len(padded); i++ {
			padded[i] = 0xFF
		}
		payload = padded
	}

	sum := sha256.Sum256(payload)
	return append(append([]byte(nil), payload...), sum[:]...)
}
