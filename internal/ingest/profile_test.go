package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultProfile(t *testing.T) {
	p := DefaultProfile()

	assert.Equal(t, "Tattoo", p.Query)
	assert.Len(t, p.ExcludedCategories, 8)
	assert.Empty(t, p.RequiredTypes)

	assert.True(t, p.Excludes("restaurant"))
	assert.True(t, p.Excludes("grocery_store"))
	// Uncategorized results are dropped too.
	assert.True(t, p.Excludes(""))
	assert.False(t, p.Excludes("tattoo_shop"))
}

func TestLoadProfile(t *testing.T) {
	path := writeProfile(t, `
profile:
  query: "Piercing"
  excluded_categories:
    - jewelry_store
  required_types:
    - body_art_service
    - art_studio
`)

	p, err := LoadProfile(path)
	require.NoError(t, err)

	assert.Equal(t, "Piercing", p.Query)
	assert.Equal(t, []string{"jewelry_store"}, p.ExcludedCategories)
	assert.Equal(t, []string{"body_art_service", "art_studio"}, p.RequiredTypes)
}

func TestLoadProfile_DefaultsUnsetFields(t *testing.T) {
	path := writeProfile(t, `
profile:
  required_types:
    - body_art_service
`)

	p, err := LoadProfile(path)
	require.NoError(t, err)

	def := DefaultProfile()
	assert.Equal(t, def.Query, p.Query)
	assert.Equal(t, def.ExcludedCategories, p.ExcludedCategories)
	assert.Equal(t, []string{"body_art_service"}, p.RequiredTypes)
}

func TestLoadProfile_EmptyExclusionListKept(t *testing.T) {
	// An explicit empty list disables exclusion filtering; only a missing
	// key falls back to the defaults.
	path := writeProfile(t, `
profile:
  query: "Tattoo"
  excluded_categories: []
`)

	p, err := LoadProfile(path)
	require.NoError(t, err)

	assert.Empty(t, p.ExcludedCategories)
	assert.False(t, p.Excludes("restaurant"))
}

func TestLoadProfile_MissingFile(t *testing.T) {
	_, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read profile")
}

func TestLoadProfile_Malformed(t *testing.T) {
	path := writeProfile(t, `profile: [not, a, mapping`)

	_, err := LoadProfile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse profile")
}

func TestProfile_MatchesTypes(t *testing.T) {
	open := Profile{}
	assert.True(t, open.MatchesTypes(nil))
	assert.True(t, open.MatchesTypes([]string{"anything"}))

	scoped := Profile{RequiredTypes: []string{"body_art_service", "art_studio"}}
	assert.True(t, scoped.MatchesTypes([]string{"point_of_interest", "art_studio"}))
	assert.False(t, scoped.MatchesTypes([]string{"point_of_interest", "store"}))
	assert.False(t, scoped.MatchesTypes(nil))
}
