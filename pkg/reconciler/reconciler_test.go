package reconciler_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/hasher"
	"github.com/agentstation/harvester/pkg/reconciler"
	"github.com/agentstation/harvester/pkg/records"
	"github.com/agentstation/harvester/pkg/sources"
)

func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newReconciler(t *testing.T, opts ...reconciler.Option) reconciler.Reconciler {
	t.Helper()
	opts = append([]reconciler.Option{reconciler.WithIDGenerator(sequence())}, opts...)
	r, err := reconciler.New(opts...)
	require.NoError(t, err)
	return r
}

func remote(id, title string) records.Remote {
	return records.Remote{"identifier": id, "title": title}
}

func hashOf(t *testing.T, r records.Remote, cfg sources.Config) string {
	t.Helper()
	h, err := hasher.New("").Hash(r, cfg.Raw)
	require.NoError(t, err)
	return h
}

func actions(result *reconciler.Result) map[string]reconciler.Action {
	out := make(map[string]reconciler.Action)
	for _, d := range result.Decisions {
		out[d.Identifier] = d.Action
	}
	return out
}

func TestReconcileCreatesUnseen(t *testing.T) {
	r := newReconciler(t)
	result, err := r.Reconcile(context.Background(),
		[]records.Remote{remote("a", "A"), remote("b", "B")}, reconciler.Index{}, sources.DefaultConfig())
	require.NoError(t, err)

	require.Len(t, result.Decisions, 2)
	assert.Equal(t, reconciler.ActionCreate, result.Decisions[0].Action)
	assert.Equal(t, "id-1", result.Decisions[0].RecordID)
	assert.Equal(t, "id-2", result.Decisions[1].RecordID)
	assert.Equal(t, 2, result.Metadata.Stats.Created)
	assert.NotEmpty(t, result.Decisions[0].Hash)
	assert.True(t, result.HasChanges())
	assert.Len(t, result.Pending(), 2)
}

func TestReconcileDefaultIDsAreOpaqueTokens(t *testing.T) {
	r, err := reconciler.New()
	require.NoError(t, err)
	result, err := r.Reconcile(context.Background(), []records.Remote{remote("a", "A")}, nil, sources.DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, result.Decisions[0].RecordID, 32)
}

func TestReconcileIdempotence(t *testing.T) {
	cfg, err := sources.ParseConfig("defaults:\n  accessLevel: public\n")
	require.NoError(t, err)
	snapshot := []records.Remote{remote("a", "A"), remote("b", "B")}

	r := newReconciler(t)
	first, err := r.Reconcile(context.Background(), snapshot, reconciler.Index{}, cfg)
	require.NoError(t, err)

	index := reconciler.Index{}
	for _, d := range first.Decisions {
		index[d.Identifier] = reconciler.IndexEntry{
			Record: &records.Record{ID: d.RecordID, State: records.StateActive},
			Hash:   d.Hash,
		}
	}

	second, err := r.Reconcile(context.Background(), snapshot, index, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Metadata.Stats.Skipped)
	assert.False(t, second.HasChanges())
	assert.Empty(t, second.Pending())
	for _, d := range second.Decisions {
		assert.Equal(t, reconciler.ActionSkip, d.Action)
	}
}

func TestReconcileUpdates(t *testing.T) {
	cfg := sources.DefaultConfig()
	old := remote("a", "A")
	index := reconciler.Index{
		"a": {Record: &records.Record{ID: "rec-a"}, Hash: hashOf(t, old, cfg), State: records.StateActive},
		"b": {Record: &records.Record{ID: "rec-b"}, Hash: hashOf(t, remote("b", "B"), cfg), State: records.StateDeleted},
	}

	r := newReconciler(t)
	result, err := r.Reconcile(context.Background(),
		[]records.Remote{remote("a", "A changed"), remote("b", "B")}, index, cfg)
	require.NoError(t, err)

	got := actions(result)
	assert.Equal(t, reconciler.ActionUpdate, got["a"])
	// unchanged content but tombstoned locally revives through update
	assert.Equal(t, reconciler.ActionUpdate, got["b"])
	assert.Equal(t, "rec-a", result.Decisions[0].RecordID)
	assert.Same(t, index["a"].Record, result.Decisions[0].Existing)
}

func TestReconcileConfigChangeForcesUpdate(t *testing.T) {
	old := sources.DefaultConfig()
	changed, _ := sources.ParseConfig("defaults:\n  accessLevel: public\n")
	rem := remote("a", "A")
	index := reconciler.Index{"a": {Record: &records.Record{ID: "rec-a"}, Hash: hashOf(t, rem, old)}}

	r := newReconciler(t)
	result, err := r.Reconcile(context.Background(), []records.Remote{rem}, index, changed)
	require.NoError(t, err)
	assert.Equal(t, reconciler.ActionUpdate, result.Decisions[0].Action)

	r = newReconciler(t, reconciler.WithHasherVersion("9.9.9"))
	result, err = r.Reconcile(context.Background(), []records.Remote{rem}, index, old)
	require.NoError(t, err)
	assert.Equal(t, reconciler.ActionUpdate, result.Decisions[0].Action)
	assert.Equal(t, "9.9.9", result.Metadata.Version)
}

func TestReconcileDuplicates(t *testing.T) {
	r := newReconciler(t)
	result, err := r.Reconcile(context.Background(),
		[]records.Remote{remote("dup", "First"), remote("x", "X"), remote("dup", "Second")},
		reconciler.Index{}, sources.DefaultConfig())
	require.NoError(t, err)

	dups := 0
	for _, d := range result.Decisions {
		if d.Identifier == "dup" {
			dups++
			assert.Equal(t, "First", d.Remote.Title())
		}
	}
	assert.Equal(t, 1, dups)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], errors.ErrDuplicateIdentifier)

	var de *errors.DuplicateIdentifierError
	require.True(t, errors.As(result.Errors[0], &de))
	assert.Equal(t, 2, de.Position)
	assert.Equal(t, 1, result.Metadata.Stats.Duplicates)
	assert.False(t, result.IsSuccess())
}

func TestReconcileWithdrawals(t *testing.T) {
	cfg := sources.DefaultConfig()
	index := reconciler.Index{
		"keep":    {Record: &records.Record{ID: "r1"}, Hash: hashOf(t, remote("keep", "K"), cfg)},
		"zgone":   {Record: &records.Record{ID: "r2"}},
		"agone":   {Record: &records.Record{ID: "r3"}},
		"already": {Record: &records.Record{ID: "r4", State: records.StateDeleted}},
	}

	r := newReconciler(t)
	result, err := r.Reconcile(context.Background(), []records.Remote{remote("keep", "K")}, index, cfg)
	require.NoError(t, err)

	withdrawn := result.Filter(reconciler.ActionWithdraw)
	require.Len(t, withdrawn, 2)
	assert.Equal(t, "agone", withdrawn[0].Identifier)
	assert.Equal(t, "zgone", withdrawn[1].Identifier)
	assert.Equal(t, "r3", withdrawn[0].RecordID)
	assert.Equal(t, -1, withdrawn[0].Position)
	assert.Nil(t, withdrawn[0].Remote)
	assert.Equal(t, reconciler.ActionSkip, actions(result)["keep"])
}

func TestReconcileEmptySnapshotWithdrawsNothing(t *testing.T) {
	index := reconciler.Index{"a": {Record: &records.Record{ID: "r1"}}}
	r := newReconciler(t)
	result, err := r.Reconcile(context.Background(), nil, index, sources.DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, result.Decisions)
	assert.NotEmpty(t, result.Warnings)
}

func TestReconcileFilters(t *testing.T) {
	cfg, err := sources.ParseConfig("filters:\n  accessLevel: [public]\n")
	require.NoError(t, err)

	pub := remote("pub", "Public")
	pub["accessLevel"] = "public"
	priv := remote("priv", "Private")
	priv["accessLevel"] = "non-public"
	index := reconciler.Index{"priv": {Record: &records.Record{ID: "r-priv"}}}

	r := newReconciler(t)
	result, err := r.Reconcile(context.Background(), []records.Remote{pub, priv}, index, cfg)
	require.NoError(t, err)

	got := actions(result)
	assert.Equal(t, reconciler.ActionCreate, got["pub"])
	// a filtered record is not an error and counts as absent
	assert.Equal(t, reconciler.ActionWithdraw, got["priv"])
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, result.Metadata.Stats.Filtered)
}

func TestReconcileNonFederalReadsFoldedKeys(t *testing.T) {
	cfg, err := sources.ParseConfig("validator_schema: non-federal\nfilters:\n  accessLevel: [public]\n")
	require.NoError(t, err)
	snapshot := []records.Remote{
		{"Identifier": "nf-1", "Title": "Mixed Case", "AccessLevel": "public"},
		{"IDENTIFIER": "nf-2", "Title": "Closed", "AccessLevel": "non-public"},
	}

	r := newReconciler(t)
	result, err := r.Reconcile(context.Background(), snapshot, reconciler.Index{
		"nf-2": {Record: &records.Record{ID: "rec-2"}, State: records.StateActive},
	}, cfg)
	require.NoError(t, err)

	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, result.Metadata.Stats.Created)
	assert.Equal(t, 1, result.Metadata.Stats.Filtered)
	assert.Equal(t, reconciler.ActionCreate, actions(result)["nf-1"])
	assert.Equal(t, reconciler.ActionWithdraw, actions(result)["nf-2"])
	assert.Equal(t, "nf-1", result.Decisions[0].Remote["Identifier"], "decision keeps the entry as received")

	// a federal source does not fold keys
	result, err = r.Reconcile(context.Background(), snapshot[:1], reconciler.Index{}, sources.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Metadata.Stats.Invalid)
}

func TestReconcileMissingIdentifier(t *testing.T) {
	r := newReconciler(t)
	result, err := r.Reconcile(context.Background(),
		[]records.Remote{{"title": "No ID"}, {"identifier": "   ", "title": "Blank"}, remote("ok", "OK")},
		reconciler.Index{}, sources.DefaultConfig())
	require.NoError(t, err)
	assert.Len(t, result.Decisions, 1)
	assert.Len(t, result.Errors, 2)
	assert.Equal(t, 2, result.Metadata.Stats.Invalid)
	assert.True(t, errors.IsValidationError(result.Errors[0]))
}

func TestReconcileCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newReconciler(t)
	_, err := r.Reconcile(ctx, []records.Remote{remote("a", "A")}, nil, sources.DefaultConfig())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsValidation(t *testing.T) {
	_, err := reconciler.New(reconciler.WithHasherVersion(""))
	assert.Error(t, err)
	_, err = reconciler.New(reconciler.WithIDGenerator(nil))
	assert.Error(t, err)
}

func TestSummary(t *testing.T) {
	r := newReconciler(t)
	result, err := r.Reconcile(context.Background(), []records.Remote{remote("a", "A")}, nil, sources.DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, result.Summary(), "1 to create")
	assert.False(t, result.Metadata.EndTime.IsZero())
}
