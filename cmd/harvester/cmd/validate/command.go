// Package validate implements the validate command.
package validate

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/harvester/internal/appcontext"
	"github.com/agentstation/harvester/internal/cmd/output"
	"github.com/agentstation/harvester/internal/cmd/table"
	"github.com/agentstation/harvester/pkg/dialect"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/schema"
	"github.com/agentstation/harvester/pkg/sources"
)

// Flags holds the validate command flags.
type Flags struct {
	Variant   string
	Direction string
}

// NewCommand creates the validate command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "validate <file>",
		GroupID: "management",
		Short:   "Validate a data.json document",
		Long: `Validate checks every dataset of a data.json document (or a bare array of
datasets) against the import or export schema of a dialect and prints each
violation with the dataset identifier. Use "-" to read stdin.`,
		Example: `  harvester validate data.json
  harvester validate --variant non-federal data.json
  harvester validate --direction export public/data.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return Execute(cmd, app, flags, args[0])
		},
	}

	cmd.Flags().StringVar(&flags.Variant, "variant", "federal", "dialect: federal or non-federal")
	cmd.Flags().StringVar(&flags.Direction, "direction", "import", "schema: import or export")

	return cmd
}

// Execute validates the document at path.
func Execute(cmd *cobra.Command, app appcontext.Interface, flags *Flags, path string) error {
	dir := schema.Direction(flags.Direction)
	if dir != schema.Import && dir != schema.Export {
		return errors.NewValidationError("direction", flags.Direction, "must be import or export")
	}
	variant := dialect.ParseVariant(flags.Variant)

	data, err := read(cmd, path)
	if err != nil {
		return err
	}
	remotes, err := sources.DecodeCatalog(data)
	if err != nil {
		return err
	}

	validator, err := app.Validator()
	if err != nil {
		return err
	}

	var faults []error
	for _, remote := range remotes {
		doc := remote
		if dir == schema.Import {
			doc = dialect.Normalize(remote, variant)
		}
		if err := validator.Check(doc, variant, dir); err != nil {
			faults = append(faults, err)
		}
	}

	app.Logger().Info().
		Int("datasets", len(remotes)).
		Int("invalid", len(faults)).
		Str("schema", schema.Key{Variant: variant, Direction: dir}.String()).
		Msg("Validation finished")

	if len(faults) == 0 {
		_, err := fmt.Fprintf(app.Out(), "%d dataset(s) valid\n", len(remotes))
		return err
	}

	formatter := output.NewFormatter(output.DetectFormat(app.OutputFormat()))
	if err := formatter.Format(app.Out(), table.Violations(faults)); err != nil {
		return err
	}
	return errors.NewValidationError("document", path,
		fmt.Sprintf("%d of %d dataset(s) invalid", len(faults), len(remotes)))
}

func read(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, errors.WrapIO("read", "stdin", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return data, nil
}
