// Package commands implements the deltaglider CLI's subcommands.
// Adapted from the teacher's cmd/tv/commands idiom: a package-level App
// singleton built in PersistentPreRunE, which resolves config (with the
// persistent flags bound to viper inside config.Load) ahead of every
// command.
package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/beshu-tech/deltaglider/internal/app"
	"github.com/beshu-tech/deltaglider/internal/config"
	"github.com/beshu-tech/deltaglider/pkg/engine"
)

// DG is the dependency container every subcommand reads from, built
// once in the root command's PersistentPreRunE.
var DG *app.App

var cfgFile string

var errStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

// Style returns the style error output is rendered with.
func Style() lipgloss.Style { return errStyle }

// Root returns the deltaglider root command.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   "deltaglider",
		Short: "S3-compatible storage with automatic delta compression",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			built, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			DG = built
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or $HOME/.deltaglider/config.yaml)")
	root.PersistentFlags().Float64("max-ratio", 0.5, "max delta/original ratio before falling back to direct storage")
	root.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")

	root.AddCommand(
		putCmd(),
		getCmd(),
		cpCmd(),
		lsCmd(),
		rmCmd(),
		headCmd(),
		statsCmd(),
		analyzeCmd(),
		verifyCmd(),
		purgeGroupCmd(),
		purgeTempCmd(),
	)
	return root
}

func ctx() context.Context {
	return context.Background()
}

// ExitCodeFor maps an engine error to a process exit code, following
// spec.md §6's table (0 success, 3 auth/config, 4 object-not-found, 5
// integrity-failure, 6 store-error, 1 otherwise) and extending it for
// the group-teardown refusal a complete implementation also surfaces.
// Cobra's own argument-count validation (usage code 2) happens before
// any of these errors exist and isn't routed through this switch.
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, engine.ErrConfigError):
		return 3
	case errors.Is(err, engine.ErrObjectNotFound):
		return 4
	case errors.Is(err, engine.ErrIntegrityFailure),
		errors.Is(err, engine.ErrReferenceCorrupt),
		errors.Is(err, engine.ErrStorageInconsistency):
		return 5
	case errors.Is(err, engine.ErrTransientStore),
		errors.Is(err, engine.ErrPermanentStore):
		return 6
	case errors.Is(err, engine.ErrReferencedByDeltas):
		return 7
	default:
		return 1
	}
}
