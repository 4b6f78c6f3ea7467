// Package cli implements attendctl, the operator command line for the
// attendance store.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/app"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/attendance"
	"github.com/mufid-dev-alt/office-attendance-track-backend/internal/config"
)

// Opener builds the service the commands operate on. The returned func
// releases it.
type Opener func(ctx context.Context) (*attendance.Service, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format string // "json" | "text"

	open    Opener
	svc     *attendance.Service
	release func()
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the attendctl root command. A nil open uses
// OpenFromConfig.
func NewRootCommand(open Opener) *cobra.Command {
	if open == nil {
		open = OpenFromConfig
	}
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:           "attendctl",
		Short:         "Operate the office attendance store",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			svc, release, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			opts.svc, opts.release = svc, release
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.release != nil {
				opts.release()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newUsersCommand(opts))
	cmd.AddCommand(newAttendanceCommand(opts))
	cmd.AddCommand(newPurgeExpiredCommand(opts))
	return cmd
}

// OpenFromConfig loads the environment configuration and opens the
// configured backends.
func OpenFromConfig(ctx context.Context) (*attendance.Service, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := app.NewLogger(cfg, nil)
	a, err := app.New(ctx, cfg, log, nil)
	if err != nil {
		return nil, nil, err
	}
	return a.Service, a.Close, nil
}

func (o *RootOptions) out(cmd *cobra.Command) *formatter {
	return &formatter{format: o.Format, w: cmd.OutOrStdout()}
}
