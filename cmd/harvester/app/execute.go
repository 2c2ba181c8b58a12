package app

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/harvester/cmd/harvester/cmd/export"
	"github.com/agentstation/harvester/cmd/harvester/cmd/harvest"
	"github.com/agentstation/harvester/cmd/harvester/cmd/serve"
	"github.com/agentstation/harvester/cmd/harvester/cmd/validate"
	"github.com/agentstation/harvester/pkg/errors"
)

// Exit codes.
const (
	ExitError   = 1 // unexpected failure
	ExitConfig  = 2 // invalid configuration or input
	ExitLocked  = 3 // another run holds the source
	ExitPartial = 4 // run finished with unit faults
)

// Execute runs the CLI with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func (a *App) createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "harvester",
		Short:   "Harvest DCAT / Project Open Data catalogs",
		Version: a.version,
		Long: `Harvester pulls remote data.json catalogs into a local store, keeps each
record's identity stable across runs, and publishes the local catalog back
out as a conforming data.json document.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	rootCmd.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	rootCmd.AddGroup(&cobra.Group{ID: "management", Title: "Management Commands:"})

	rootCmd.PersistentFlags().StringVar(&a.config.ConfigFile, "config", a.config.ConfigFile, "config file (default is ./harvester.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringP("format", "o", "", "output format: table, json, yaml")
	rootCmd.PersistentFlags().String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")

	rootCmd.SetVersionTemplate("harvester {{.Version}}\n")

	a.registerCommands(rootCmd)
	return rootCmd
}

// setupCommand reloads the config file when --config names one and applies
// the global flags.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("config") {
		config, err := LoadConfig(a.config.ConfigFile)
		if err != nil {
			return err
		}
		a.config = config
	}

	a.config.UpdateFromFlags(
		mustGetBool(cmd, "verbose"),
		mustGetBool(cmd, "quiet"),
		mustGetBool(cmd, "no-color"),
		mustGetString(cmd, "format"),
		mustGetString(cmd, "log-level"),
	)

	logger := NewLogger(a.config)
	a.logger = &logger
	return nil
}

func (a *App) registerCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(harvest.NewCommand(a))
	rootCmd.AddCommand(export.NewCommand(a))
	rootCmd.AddCommand(serve.NewCommand(a))
	rootCmd.AddCommand(validate.NewCommand(a))
	rootCmd.AddCommand(a.newVersionCommand())
}

func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		GroupID: "management",
		Short:   "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("harvester %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	var partial *harvest.PartialError
	switch {
	case err == nil:
		return 0
	case errors.IsLocked(err):
		return ExitLocked
	case errors.As(err, &partial):
		return ExitPartial
	case errors.IsConfig(err), errors.IsValidationError(err), errors.IsSchemaViolation(err):
		return ExitConfig
	default:
		return ExitError
	}
}

// ExitOnError prints err and exits with its exit code.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(ExitCode(err))
	}
}

func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
