package bootloader

import (
	"fmt"

	"github.com/go-logr/logr"

	"github.com/openfota/bootcore/internal/bootloader/core"
	"github.com/openfota/bootcore/internal/bootloader/swap"
	"github.com/openfota/bootcore/internal/recovery"
)

// Config is the compile-time wiring of one boot core instance. There is no
// runtime configuration surface on the device; deployments differ only in
// what they pass here.
type Config struct {
	Layout   core.Layout
	Flash    core.Flash
	Store    core.StatusStore
	Target   core.Target
	Net      core.NetDevice
	Verifier core.Verifier

	// Trigger selects the recovery-entry conditions. Zero means recovery is
	// reachable only through the button.
	Trigger Trigger

	// InstallMode selects the post-upload behavior of the recovery server.
	InstallMode InstallMode

	// RecoveryPort is the recovery server's TCP port. Zero means 80.
	RecoveryPort uint16

	// DHCPPolicy, ConnWait and UploadIdleWait bound every network wait.
	// Zero values take the stock budgets.
	DHCPPolicy     core.RetryPolicy
	ConnWait       core.WaitPolicy
	UploadIdleWait core.WaitPolicy

	Log logr.Logger
}

// NewBootloader validates cfg and wires the swap engine, the recovery
// server and the handoff together.
func (cfg Config) NewBootloader() (*Bootloader, error) {
	if err := cfg.Layout.Validate(); err != nil {
		return nil, fmt.Errorf("flash layout: %w", err)
	}
	if cfg.Flash == nil || cfg.Store == nil || cfg.Target == nil {
		return nil, fmt.Errorf("flash, store and target are required")
	}
	if (cfg.Net == nil) != (cfg.Verifier == nil) {
		return nil, fmt.Errorf("net device and verifier must be wired together")
	}

	if cfg.Trigger == 0 {
		cfg.Trigger = TriggerButton
	}
	if cfg.RecoveryPort == 0 {
		cfg.RecoveryPort = 80
	}
	if cfg.DHCPPolicy == (core.RetryPolicy{}) {
		cfg.DHCPPolicy = core.DefaultDHCPPolicy()
	}
	if cfg.ConnWait == (core.WaitPolicy{}) {
		cfg.ConnWait = core.DefaultConnWait()
	}
	if cfg.UploadIdleWait == (core.WaitPolicy{}) {
		cfg.UploadIdleWait = core.DefaultUploadIdleWait()
	}

	log := cfg.Log.WithName("bootloader")

	b := &Bootloader{
		layout:  cfg.Layout,
		store:   cfg.Store,
		target:  cfg.Target,
		trigger: cfg.Trigger,
		engine:  swap.NewEngine(cfg.Flash, cfg.Target, cfg.Layout, cfg.Log),
		log:     log,
	}
	b.handoff = NewHandoff(cfg.Target, cfg.Log)

	install := b.installImmediate
	if cfg.InstallMode == InstallDeferred {
		install = b.installDeferred
	}

	// Recovery needs a transport and a verifier; deployments that cannot
	// reach recovery (no network hardware) may leave both nil as long as
	// no trigger fires.
	if cfg.Net != nil && cfg.Verifier != nil {
		b.server = recovery.NewServer(recovery.Config{
			Port:     cfg.RecoveryPort,
			Layout:   cfg.Layout,
			Dev:      cfg.Net,
			Flash:    cfg.Flash,
			Store:    cfg.Store,
			Target:   cfg.Target,
			Verifier: cfg.Verifier,
			DHCP:     cfg.DHCPPolicy,
			ConnWait: cfg.ConnWait,
			IdleWait: cfg.UploadIdleWait,
			Install:  install,
			Log:      cfg.Log,
		})
	}

	return b, nil
}
