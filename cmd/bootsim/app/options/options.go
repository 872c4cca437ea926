package options

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/openfota/bootcore/internal/bootloader/core"
	"github.com/openfota/bootcore/internal/sim"
	"github.com/openfota/bootcore/pkg/log"
)

// Defaults mirror a 2 MiB part with 4 KiB sectors and a 256 KiB slot pair
// placed behind a 64 KiB boot region.
const (
	defaultFlashBase    = 0x10010000
	defaultSwapCapacity = 0x40000
	defaultSectorSize   = 0x1000
	defaultAlignUnit    = 0x100
)

// Options holds the bootsim command configuration.
type Options struct {
	StatusFile  string `json:"status-file" mapstructure:"status-file"`
	AppImage    string `json:"app-image" mapstructure:"app-image"`
	StagedImage string `json:"staged-image" mapstructure:"staged-image"`

	ListenAddr string `json:"listen-addr" mapstructure:"listen-addr"`
	DebugAddr  string `json:"debug-addr" mapstructure:"debug-addr"`

	Recovery    bool   `json:"recovery" mapstructure:"recovery"`
	InstallMode string `json:"install-mode" mapstructure:"install-mode"`

	SwapCapacity uint32 `json:"swap-capacity" mapstructure:"swap-capacity"`
	SectorSize   uint32 `json:"sector-size" mapstructure:"sector-size"`

	Log *log.Options `json:"log" mapstructure:"log"`
}

func NewOptions() *Options {
	return &Options{
		StatusFile:   "bootsim-status.bin",
		ListenAddr:   "127.0.0.1:8070",
		DebugAddr:    "127.0.0.1:9090",
		InstallMode:  "immediate",
		SwapCapacity: defaultSwapCapacity,
		SectorSize:   defaultSectorSize,
		Log:          log.NewOptions(),
	}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.StatusFile, "status-file", o.StatusFile, "File backing the persisted boot flags.")
	fs.StringVar(&o.AppImage, "app-image", o.AppImage, "Image file seeded into the application slot.")
	fs.StringVar(&o.StagedImage, "staged-image", o.StagedImage, "Image file seeded into the download slot.")
	fs.StringVar(&o.ListenAddr, "listen-addr", o.ListenAddr, "TCP address of the recovery server.")
	fs.StringVar(&o.DebugAddr, "debug-addr", o.DebugAddr, "Address of the metrics and status endpoint.")
	fs.BoolVar(&o.Recovery, "recovery", o.Recovery, "Simulate the recovery button held at power-on.")
	fs.StringVar(&o.InstallMode, "install-mode", o.InstallMode, "Post-upload behavior: 'immediate' or 'deferred'.")
	fs.Uint32Var(&o.SwapCapacity, "swap-capacity", o.SwapCapacity, "Slot capacity in bytes; must be a sector multiple.")
	fs.Uint32Var(&o.SectorSize, "sector-size", o.SectorSize, "Flash sector size in bytes.")

	o.Log.AddFlags(fs)
}

func (o *Options) Validate() []error {
	errs := []error{}

	switch o.InstallMode {
	case "immediate", "deferred":
	default:
		errs = append(errs, fmt.Errorf("invalid install-mode %q, expected 'immediate' or 'deferred'", o.InstallMode))
	}
	if o.StatusFile == "" {
		errs = append(errs, fmt.Errorf("status-file must not be empty"))
	}
	if err := o.layout().Validate(); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, o.Log.Validate()...)
	return errs
}

func (o *Options) layout() core.Layout {
	return core.Layout{
		DownloadStart: defaultFlashBase,
		AppStart:      defaultFlashBase + o.SwapCapacity,
		SwapCapacity:  o.SwapCapacity,
		SectorSize:    o.SectorSize,
		AlignUnit:     defaultAlignUnit,
		AppVector:     defaultFlashBase + o.SwapCapacity + defaultAlignUnit,
	}
}

// Config assembles the simulator configuration from the validated options.
func (o *Options) Config() (*sim.Config, error) {
	return &sim.Config{
		Layout:      o.layout(),
		StatusFile:  o.StatusFile,
		AppImage:    o.AppImage,
		StagedImage: o.StagedImage,
		ListenAddr:  o.ListenAddr,
		DebugAddr:   o.DebugAddr,
		Recovery:    o.Recovery,
		Deferred:    o.InstallMode == "deferred",
	}, nil
}
