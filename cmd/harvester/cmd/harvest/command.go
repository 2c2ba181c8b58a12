// Package harvest implements the harvest command.
package harvest

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/harvester/internal/appcontext"
	"github.com/agentstation/harvester/internal/cmd/output"
	"github.com/agentstation/harvester/internal/cmd/table"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/sources"
	pkgsync "github.com/agentstation/harvester/pkg/sync"
)

// Flags holds the harvest command flags.
type Flags struct {
	DryRun      bool
	Timeout     time.Duration
	Concurrency int
	FailOnError bool
	URL         string
	OwnerOrg    string
}

// PartialError reports a run that finished with unit faults.
type PartialError struct {
	Failed int
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("harvest finished with %d failed record(s)", e.Failed)
}

// NewCommand creates the harvest command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "harvest [source...]",
		GroupID: "core",
		Short:   "Harvest configured sources into the local catalog",
		Long: `Harvest fetches each source's remote catalog, reconciles it against the
records harvested before, and creates, updates or withdraws local records.

Sources come from the sources file (sources.yaml by default). Pass source
IDs to harvest only those, or --url to harvest an ad-hoc catalog.`,
		Example: `  harvester harvest                         # Harvest every configured source
  harvester harvest epa noaa                # Harvest two sources
  harvester harvest --dry-run               # Show what would change
  harvester harvest adhoc --url https://agency.gov/data.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Execute(cmd, app, flags, args)
		},
	}

	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "reconcile and transform without writing")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "timeout per source run (default 30m)")
	cmd.Flags().IntVar(&flags.Concurrency, "concurrency", 0, "records materialized in parallel")
	cmd.Flags().BoolVar(&flags.FailOnError, "fail-on-error", false, "exit non-zero when any record fails")
	cmd.Flags().StringVar(&flags.URL, "url", "", "harvest this catalog URL as the single named source")
	cmd.Flags().StringVar(&flags.OwnerOrg, "owner-org", "", "owner organization of an ad-hoc source")

	return cmd
}

// Execute runs the harvest and prints the run summary.
func Execute(cmd *cobra.Command, app appcontext.Interface, flags *Flags, args []string) error {
	ctx := cmd.Context()
	logger := app.Logger()

	client, err := app.Harvester(ctx)
	if err != nil {
		return err
	}

	opts := []pkgsync.Option{pkgsync.WithDryRun(flags.DryRun)}
	if flags.Timeout > 0 {
		opts = append(opts, pkgsync.WithTimeout(flags.Timeout))
	}
	if flags.Concurrency > 0 {
		opts = append(opts, pkgsync.WithConcurrency(flags.Concurrency))
	}

	var results []*pkgsync.Result
	var runErr error
	switch {
	case flags.URL != "":
		if len(args) != 1 {
			return errors.NewValidationError("source", args, "--url needs exactly one source ID")
		}
		src := sources.Source{ID: sources.ID(args[0]), URL: flags.URL, OwnerOrg: flags.OwnerOrg}
		result, err := client.Harvest(ctx, src, opts...)
		if result != nil {
			results = append(results, result)
		}
		runErr = err
	default:
		ids := make([]sources.ID, 0, len(args))
		for _, arg := range args {
			id := sources.ID(arg)
			if _, ok := client.Sources().Get(id); !ok {
				return errors.NewNotFoundError("source", arg)
			}
			ids = append(ids, id)
		}
		if client.Sources().Len() == 0 {
			return errors.NewConfigError("sources", "no sources configured", nil)
		}
		results, runErr = client.HarvestAll(ctx, append(opts, pkgsync.WithSources(ids...))...)
	}

	format := output.DetectFormat(app.OutputFormat())
	formatter := output.NewFormatter(format)
	if err := formatter.Format(app.Out(), table.Runs(results)); err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		failed += r.Metadata.Stats.Failed
	}
	if faults := table.Faults(results); len(faults.Rows) > 0 && format == output.FormatTable {
		if err := formatter.Format(app.Out(), faults); err != nil {
			return err
		}
	}

	if runErr != nil {
		return runErr
	}
	if failed > 0 {
		logger.Warn().Int("failed", failed).Msg("Some records failed, they will be retried on the next run")
		if flags.FailOnError {
			return &PartialError{Failed: failed}
		}
	}
	return nil
}
