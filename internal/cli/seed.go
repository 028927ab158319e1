package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/cmc-edu/room-booking/internal/application"
	"github.com/cmc-edu/room-booking/internal/seed"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill empty collections with reference data",
		Long: `Fill the configured store's empty collections with the reference dataset
and report what was inserted. With --dump the resulting store contents are
printed instead. Passwords are never printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, dump, cmd)
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "print the store contents after seeding")
	return cmd
}

func runSeed(opts *RootOptions, dump bool, cmd *cobra.Command) error {
	cfg, logger, err := loadConfig(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	data, err := loadDataset(cfg.SeedFile)
	if err != nil {
		return err
	}
	hasher := application.NewArgon2idHasher(application.DefaultArgon2idParams)
	res, err := seed.NewBootstrapper(store, data, hasher, logger).Ensure(ctx)
	if err != nil {
		return err
	}

	if !dump {
		return writeOutput(cmd.OutOrStdout(), opts.Format, res, fmt.Sprintf(
			"inserted %d users, %d rooms, %d bookings, %d slots\n",
			res.Users, res.Rooms, res.Bookings, res.Slots))
	}

	snap, err := seed.Snapshot(ctx, store)
	if err != nil {
		return err
	}
	format := opts.Format
	if format == "text" {
		format = "yaml"
	}
	return writeOutput(cmd.OutOrStdout(), format, snap, "")
}

func writeOutput(w io.Writer, format string, v any, text string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	_, err := io.WriteString(w, text)
	return err
}
