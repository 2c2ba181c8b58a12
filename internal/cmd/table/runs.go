// Package table converts harvester results into tabular command output.
package table

import (
	"strconv"
	"strings"
	"time"

	"github.com/agentstation/harvester/internal/cmd/output"
	"github.com/agentstation/harvester/pkg/errors"
	pkgsync "github.com/agentstation/harvester/pkg/sync"
)

// Runs summarizes one row per harvest run.
func Runs(results []*pkgsync.Result) output.Table {
	t := output.Table{
		Headers:      []string{"Source", "Seen", "Created", "Updated", "Unchanged", "Withdrawn", "Failed", "Filtered", "Duration"},
		RightAligned: []int{1, 2, 3, 4, 5, 6, 7},
	}
	for _, r := range results {
		s := r.Metadata.Stats
		source := r.SourceID.String()
		if r.DryRun {
			source += " (dry run)"
		}
		t.Rows = append(t.Rows, []string{
			source,
			strconv.Itoa(s.Seen),
			strconv.Itoa(s.Created),
			strconv.Itoa(s.Updated),
			strconv.Itoa(s.Skipped),
			strconv.Itoa(s.Withdrawn),
			strconv.Itoa(s.Failed),
			strconv.Itoa(s.Filtered),
			r.Metadata.Duration.Round(time.Millisecond).String(),
		})
	}
	return t
}

// Faults lists every unit fault and reconcile diagnostic of the runs.
func Faults(results []*pkgsync.Result) output.Table {
	t := output.Table{Headers: []string{"Source", "Error"}}
	for _, r := range results {
		for _, err := range r.Errors() {
			t.Rows = append(t.Rows, []string{r.SourceID.String(), err.Error()})
		}
	}
	return t
}

// Violations lists schema violations, one row per violation.
func Violations(faults []error) output.Table {
	t := output.Table{Headers: []string{"Identifier", "Path", "Message"}}
	for _, err := range faults {
		var sv *errors.SchemaViolationError
		if !errors.As(err, &sv) {
			t.Rows = append(t.Rows, []string{"", "", err.Error()})
			continue
		}
		for _, v := range sv.Violations {
			path := v.Path
			if path == "" {
				path = "/"
			}
			t.Rows = append(t.Rows, []string{sv.Identifier, path, strings.TrimSpace(v.Message)})
		}
	}
	return t
}
