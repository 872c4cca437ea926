// Package sim hosts the boot core on a development machine: flash becomes
// an in-memory model seeded from image files, the status flags live in a
// local file, and the recovery server listens on a real TCP port so a
// browser or curl can drive a full update cycle.
package sim

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"golang.org/x/sync/errgroup"

	"github.com/openfota/bootcore/internal/bootloader"
	"github.com/openfota/bootcore/internal/bootloader/core"
	"github.com/openfota/bootcore/internal/hal"
	"github.com/openfota/bootcore/pkg/flagstore"
)

// Config assembles one simulator run.
type Config struct {
	Layout core.Layout

	// StatusFile backs the persisted boot flags.
	StatusFile string

	// AppImage and StagedImage optionally seed the two slots from files.
	AppImage    string
	StagedImage string

	// ListenAddr is the recovery server's TCP address; DebugAddr serves
	// metrics and status.
	ListenAddr string
	DebugAddr  string

	// Recovery simulates the recovery button held at power-on.
	Recovery bool

	// Deferred switches the post-upload behavior from swap-and-boot to
	// stage-and-reboot.
	Deferred bool

	Log logr.Logger
}

// Simulator owns the assembled ports and the boot core instance.
type Simulator struct {
	cfg    Config
	flash  *hal.MemFlash
	store  *flagstore.Store
	target *Target
	dev    *hal.TCPDevice
	boot   *bootloader.Bootloader
	log    logr.Logger
}

// NewSimulator wires the simulated ports into a boot core.
func (cfg Config) NewSimulator() (*Simulator, error) {
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("flash layout: %w", err)
	}
	log := cfg.Log.WithName("sim")

	flash := hal.NewMemFlash(cfg.Layout.DownloadStart, cfg.Layout.SwapCapacity*2, cfg.Layout.SectorSize)
	if err := seedSlot(flash, cfg.Layout.AppStart, cfg.Layout.SwapCapacity, cfg.AppImage); err != nil {
		return nil, fmt.Errorf("seed application slot: %w", err)
	}
	if err := seedSlot(flash, cfg.Layout.DownloadStart, cfg.Layout.SwapCapacity, cfg.StagedImage); err != nil {
		return nil, fmt.Errorf("seed download slot: %w", err)
	}

	store, err := flagstore.Open(cfg.StatusFile)
	if err != nil {
		return nil, fmt.Errorf("open status store: %w", err)
	}

	target := NewTarget(deriveID(), cfg.Recovery, log)
	dev := &hal.TCPDevice{Addr: cfg.ListenAddr}

	mode := bootloader.InstallImmediate
	if cfg.Deferred {
		mode = bootloader.InstallDeferred
	}

	boot, err := bootloader.Config{
		Layout:      cfg.Layout,
		Flash:       flash,
		Store:       store,
		Target:      target,
		Net:         dev,
		Verifier:    hal.NewSlotVerifier(flash, cfg.Layout),
		Trigger:     bootloader.TriggerButton,
		InstallMode: mode,
		Log:         cfg.Log,
	}.NewBootloader()
	if err != nil {
		return nil, fmt.Errorf("assemble boot core: %w", err)
	}

	return &Simulator{
		cfg:    cfg,
		flash:  flash,
		store:  store,
		target: target,
		dev:    dev,
		boot:   boot,
		log:    log,
	}, nil
}

// Run executes one boot cycle with the debug server alongside. The debug
// server lives exactly as long as the cycle: once the core has jumped or
// reset, the simulator is done.
func (s *Simulator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)

	g.Go(func() error {
		err := newDebugServer(s.cfg.DebugAddr, s.store, s.log).run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// The recovery transport blocks in accept; closing it on cancel is
	// what actually unwinds the boot goroutine.
	g.Go(func() error {
		<-ctx.Done()
		s.dev.Close()
		return nil
	})

	g.Go(func() error {
		defer cancel()
		err := s.boot.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("boot cycle: %w", err)
		}
		s.report()
		return nil
	})

	return g.Wait()
}

// report summarizes where the cycle ended up.
func (s *Simulator) report() {
	switch {
	case s.target.JumpedTo != 0:
		vector := s.flash.Bytes(s.target.JumpedTo, 4)
		s.log.Info("cycle complete", "outcome", "booted", "vector", s.target.JumpedTo, "firstWords", fmt.Sprintf("%x", vector))
	case s.target.Resets > 0:
		s.log.Info("cycle complete", "outcome", "reset", "resets", s.target.Resets)
	default:
		s.log.Info("cycle complete", "outcome", "idle")
	}
}

// seedSlot loads an image file into a slot, leaving the slot erased when no
// path is given.
func seedSlot(flash *hal.MemFlash, start, capacity uint32, path string) error {
	if path == "" {
		return nil
	}
	img, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if uint32(len(img)) > capacity {
		return fmt.Errorf("image %s is %d bytes, slot holds %d", path, len(img), capacity)
	}
	return flash.Load(start, img)
}

// deriveID builds a stable pseudo board identifier from the hostname so the
// derived MAC stays the same across runs on one machine.
func deriveID() [8]byte {
	host, err := os.Hostname()
	if err != nil {
		host = "bootsim"
	}
	sum := sha256.Sum256([]byte(host))
	var id [8]byte
	copy(id[:], sum[:8])
	return id
}
