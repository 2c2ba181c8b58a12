// Package export implements the export command.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentstation/harvester/internal/appcontext"
	"github.com/agentstation/harvester/internal/publish"
	"github.com/agentstation/harvester/pkg/errors"
)

// Flags holds the export command flags.
type Flags struct {
	Compact        bool
	FailOnRejected bool
	CreateBucket   bool
}

// NewCommand creates the export command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}

	cmd := &cobra.Command{
		Use:     "export [target]",
		GroupID: "core",
		Short:   "Export the local catalog as data.json",
		Long: `Export builds the data.json document of every active record and writes it
to stdout ("-", the default), a file path, or an S3-compatible bucket
(s3://bucket/key). Records that fail the export schema are left out and
reported on stderr.`,
		Example: `  harvester export > data.json
  harvester export public/data.json
  harvester export s3://open-data/agency/data.json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "-"
			if len(args) == 1 {
				target = args[0]
			}
			return Execute(cmd, app, flags, target)
		},
	}

	cmd.Flags().BoolVar(&flags.Compact, "compact", false, "write compact JSON")
	cmd.Flags().BoolVar(&flags.FailOnRejected, "fail-on-rejected", false, "fail when any record is rejected")
	cmd.Flags().BoolVar(&flags.CreateBucket, "create-bucket", false, "create the S3 bucket when missing")

	return cmd
}

// Execute builds the catalog and publishes it to target.
func Execute(cmd *cobra.Command, app appcontext.Interface, flags *Flags, target string) error {
	ctx := cmd.Context()
	logger := app.Logger()

	dest, err := publish.ParseTarget(target)
	if err != nil {
		return err
	}
	publisher, err := newPublisher(app, dest, flags)
	if err != nil {
		return err
	}

	client, err := app.Harvester(ctx)
	if err != nil {
		return err
	}

	catalog, errs := client.Export(ctx)
	for _, e := range errs {
		if errors.IsPersist(e) {
			return e
		}
		logger.Warn().Err(e).Msg("Record rejected from export")
	}

	var doc []byte
	if flags.Compact {
		doc, err = json.Marshal(catalog)
	} else {
		doc, err = json.MarshalIndent(catalog, "", "  ")
	}
	if err != nil {
		return errors.WrapParse("json", "", err)
	}
	doc = append(doc, '\n')

	location, err := publisher.Publish(ctx, doc)
	if err != nil {
		return err
	}

	logger.Info().
		Str("target", location).
		Int("datasets", len(catalog.Datasets)).
		Int("rejected", len(errs)).
		Msg("Catalog exported")

	if flags.FailOnRejected && len(errs) > 0 {
		return errors.NewValidationError("catalog", len(errs), fmt.Sprintf("%d record(s) rejected from export", len(errs)))
	}
	return nil
}

func newPublisher(app appcontext.Interface, dest publish.Target, flags *Flags) (publish.Publisher, error) {
	switch dest.Kind {
	case "file":
		return &publish.File{Path: dest.Path}, nil
	case "s3":
		cfg := app.S3Config()
		client, err := publish.NewMinioClient(cfg)
		if err != nil {
			return nil, err
		}
		return publish.NewS3(client, dest.Bucket, dest.Path, cfg.CreateBucket || flags.CreateBucket), nil
	default:
		return &publish.Writer{W: app.Out(), Name: "stdout"}, nil
	}
}
