package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openfota/bootcore/cmd/bootsim/app/options"
	"github.com/openfota/bootcore/pkg/log"
)

const (
	commandName = "bootsim"
	commandDesc = `Bootsim runs one boot cycle of the dual-slot boot core against simulated
hardware: in-memory flash seeded from image files, file-backed status flags
and a recovery server on a local TCP port. Point a browser at the listen
address while in recovery mode to upload firmware the way a device operator
would.`
)

// NewSimCommand builds the bootsim root command.
func NewSimCommand() *cobra.Command {
	opts := options.NewOptions()
	var configFile string

	cmd := &cobra.Command{
		Use:          commandName,
		Short:        "Run one simulated boot cycle",
		Long:         commandDesc,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, configFile, opts); err != nil {
				return err
			}
			if errs := opts.Validate(); len(errs) > 0 {
				return fmt.Errorf("invalid configuration: %v", errs)
			}
			return run(opts)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to a bootsim configuration file.")
	opts.AddFlags(cmd.Flags())

	cmd.AddCommand(newPackCommand())
	return cmd
}

// loadConfig layers an optional config file and environment variables under
// the command-line flags.
func loadConfig(cmd *cobra.Command, configFile string, opts *options.Options) error {
	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file: %w", err)
		}
	}
	v.SetEnvPrefix("BOOTSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	if err := v.Unmarshal(opts); err != nil {
		return fmt.Errorf("unmarshal configuration: %w", err)
	}
	return nil
}

func run(opts *options.Options) error {
	log.Init(opts.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := opts.Config()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Log = log.Logr()

	simulator, err := cfg.NewSimulator()
	if err != nil {
		return fmt.Errorf("failed to create simulator: %w", err)
	}

	return simulator.Run(ctx)
}
