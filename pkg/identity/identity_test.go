package identity_test

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/identity"
)

type fakeIndex struct {
	owners map[string]string // name -> id
	err    error
}

func (f *fakeIndex) NameOwner(_ context.Context, name string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	id, ok := f.owners[name]
	return id, ok, nil
}

func (f *fakeIndex) NameOf(_ context.Context, id string) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	for name, owner := range f.owners {
		if owner == id {
			return name, true, nil
		}
	}
	return "", false, nil
}

func fixedSuffix() string { return "ab12c" }

func TestMunge(t *testing.T) {
	tests := []struct {
		title     string
		tombstone bool
		want      string
	}{
		{"Air Quality", false, "air-quality"},
		{"  Crème Brûlée Index  ", false, "creme-brulee-index"},
		{"snake_case__title", false, "snake-case-title"},
		{"---Weird!!!  Title---", false, "weird-title"},
		{"", false, "dataset"},
		{"!!!", false, "dataset"},
		{"Air Quality", true, "deleted-air-quality"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, identity.Munge(tt.title, tt.tombstone))
		})
	}
}

func TestMungeTruncates(t *testing.T) {
	name := identity.Munge(strings.Repeat("a", 80)+" "+strings.Repeat("b", 80), false)
	assert.Len(t, name, 90)
	assert.False(t, strings.HasSuffix(name, "-"))

	name = identity.Munge(strings.Repeat("a", 89)+" b", false)
	assert.Equal(t, strings.Repeat("a", 89), name)
}

func TestSlugFree(t *testing.T) {
	r := identity.New(&fakeIndex{owners: map[string]string{}})
	name, err := r.Slug(context.Background(), "Air Quality", "", false)
	require.NoError(t, err)
	assert.Equal(t, "air-quality", name)
}

func TestSlugOwnedBySelf(t *testing.T) {
	r := identity.New(&fakeIndex{owners: map[string]string{"air-quality": "rec-1"}})
	name, err := r.Slug(context.Background(), "Air Quality", "rec-1", false)
	require.NoError(t, err)
	assert.Equal(t, "air-quality", name)
}

func TestSlugCollisionOnCreateAppendsSuffix(t *testing.T) {
	r := identity.New(&fakeIndex{owners: map[string]string{"air-quality": "rec-1"}},
		identity.WithSuffixGenerator(fixedSuffix))
	name, err := r.Slug(context.Background(), "Air Quality", "", false)
	require.NoError(t, err)
	assert.Equal(t, "air-quality-ab12c", name)

	// default generator produces five characters
	r = identity.New(&fakeIndex{owners: map[string]string{"air-quality": "rec-1"}})
	name, err = r.Slug(context.Background(), "Air Quality", "", false)
	require.NoError(t, err)
	assert.Len(t, name, len("air-quality-")+5)
}

func TestSlugStableOnUpdateCollision(t *testing.T) {
	index := &fakeIndex{owners: map[string]string{
		"air-quality":       "rec-1",
		"air-quality-x9y8z": "rec-2",
	}}
	r := identity.New(index, identity.WithSuffixGenerator(fixedSuffix))

	for i := 0; i < 3; i++ {
		name, err := r.Slug(context.Background(), "Air Quality", "rec-2", false)
		require.NoError(t, err)
		assert.Equal(t, "air-quality-x9y8z", name)
	}
}

func TestSlugUpdateWithoutStoredName(t *testing.T) {
	r := identity.New(&fakeIndex{owners: map[string]string{"air-quality": "rec-1"}},
		identity.WithSuffixGenerator(fixedSuffix))
	name, err := r.Slug(context.Background(), "Air Quality", "rec-new", false)
	require.NoError(t, err)
	assert.Equal(t, "air-quality-ab12c", name)
}

func TestSlugStableOnTitleChange(t *testing.T) {
	r := identity.New(&fakeIndex{owners: map[string]string{"air-quality": "rec-1"}})

	for _, title := range []string{"Air Quality Index", "Water Quality", ""} {
		name, err := r.Slug(context.Background(), title, "rec-1", false)
		require.NoError(t, err)
		assert.Equal(t, "air-quality", name, title)
	}
}

func TestSlugRevivedTombstoneFollowsTitle(t *testing.T) {
	r := identity.New(&fakeIndex{owners: map[string]string{"deleted-air-quality": "rec-1"}})
	name, err := r.Slug(context.Background(), "Air Quality Index", "rec-1", false)
	require.NoError(t, err)
	assert.Equal(t, "air-quality-index", name)
}

func TestSlugTombstone(t *testing.T) {
	r := identity.New(&fakeIndex{owners: map[string]string{"air-quality": "rec-1"}})
	name, err := r.Slug(context.Background(), "Air Quality", "rec-1", true)
	require.NoError(t, err)
	assert.Equal(t, "deleted-air-quality", name)
}

func TestSlugIndexFailure(t *testing.T) {
	r := identity.New(&fakeIndex{err: stderrors.New("connection reset")})
	_, err := r.Slug(context.Background(), "Air Quality", "rec-1", false)
	require.Error(t, err)

	var ie *errors.IdentityError
	require.True(t, errors.As(err, &ie))
	assert.ErrorIs(t, err, errors.ErrIdentity)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestMungeTag(t *testing.T) {
	assert.Equal(t, "air-quality", identity.MungeTag(" Air Quality "))
	assert.Equal(t, "co2_levels", identity.MungeTag("CO2_Levels"))
	assert.Equal(t, "", identity.MungeTag("   "))
	assert.Equal(t, "ozone", identity.MungeTag("Ozône"))
}
