package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/agentstation/harvester/internal/server/response"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/sources"
	pkgsync "github.com/agentstation/harvester/pkg/sync"
)

// RunView is the JSON view of one harvest run.
type RunView struct {
	Source   string             `json:"source"`
	RunID    string             `json:"run_id"`
	DryRun   bool               `json:"dry_run"`
	Summary  string             `json:"summary"`
	Stats    pkgsync.Statistics `json:"stats"`
	Errors   []string           `json:"errors,omitempty"`
	Duration string             `json:"duration"`
}

// NewRunView builds the view of a run result.
func NewRunView(r *pkgsync.Result) RunView {
	v := RunView{
		Source:   r.SourceID.String(),
		RunID:    r.RunID,
		DryRun:   r.DryRun,
		Summary:  r.Summary(),
		Stats:    r.Metadata.Stats,
		Duration: r.Metadata.Duration.String(),
	}
	for _, err := range r.Errors() {
		v.Errors = append(v.Errors, err.Error())
	}
	return v
}

// HandleHarvest handles POST /harvest.
//
// Query parameters: source restricts the run to one source, dry_run=true
// reconciles and transforms without writing.
func (h *Handlers) HandleHarvest(w http.ResponseWriter, r *http.Request) {
	var opts []pkgsync.Option
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		dryRun, err := strconv.ParseBool(raw)
		if err != nil {
			response.BadRequest(w, "Invalid dry_run parameter", err.Error())
			return
		}
		opts = append(opts, pkgsync.WithDryRun(dryRun))
	}

	// A client disconnect must not abort a run halfway through its writes.
	ctx := context.WithoutCancel(r.Context())

	var results []*pkgsync.Result
	if id := r.URL.Query().Get("source"); id != "" {
		src, ok := h.client.Sources().Get(sources.ID(id))
		if !ok {
			response.ErrorFromType(w, errors.NewNotFoundError("source", id))
			return
		}
		result, err := h.client.Harvest(ctx, src, opts...)
		if err != nil {
			response.ErrorFromType(w, err)
			return
		}
		results = append(results, result)
	} else {
		var err error
		results, err = h.client.HarvestAll(ctx, opts...)
		if err != nil && len(results) == 0 {
			response.ErrorFromType(w, err)
			return
		}
	}

	views := make([]RunView, 0, len(results))
	for _, result := range results {
		views = append(views, NewRunView(result))
	}
	response.OK(w, map[string]any{"runs": views})
}
