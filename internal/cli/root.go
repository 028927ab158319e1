// Package cli implements the roombooking command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/cmc-edu/room-booking/internal/config"
	"github.com/cmc-edu/room-booking/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format   string // "json" | "yaml" | "text"
	EnvFiles []string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the roombooking root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "roombooking",
		Short: "Campus room booking service",
		Long:  "Serve the room booking API and manage its reference data.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", []string{".env"}, "dotenv files to load before reading the environment")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))

	return cmd
}

// loadConfig reads configuration and builds the logger it describes.
func loadConfig(opts *RootOptions, logOut io.Writer) (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadWithEnvFiles(opts.EnvFiles...)
	if err != nil {
		return config.Config{}, nil, err
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(logOut, level, logging.Format(cfg.LogFormat))
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}
