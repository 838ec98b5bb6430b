package ingest

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profile defines what to search for and which results to keep.
type Profile struct {
	// Query is the text query sent with every rectangle search.
	Query string `yaml:"query"`
	// ExcludedCategories drops results whose primary category matches.
	// An empty entry drops uncategorized results.
	ExcludedCategories []string `yaml:"excluded_categories"`
	// RequiredTypes, when non-empty, keeps only results whose types
	// intersect it.
	RequiredTypes []string `yaml:"required_types"`
}

// DefaultProfile returns the tattoo-studio search profile used when no
// profile file is configured.
func DefaultProfile() Profile {
	return Profile{
		Query: "Tattoo",
		ExcludedCategories: []string{
			"grocery_store",
			"beauty_salon",
			"bakery",
			"",
			"barber_shop",
			"restaurant",
			"sporting_goods_store",
			"wholesaler",
		},
	}
}

// LoadProfile reads a search profile from a YAML file. Fields left unset
// fall back to the default profile.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, eris.Wrapf(err, "ingest: read profile %s", path)
	}

	// The YAML has a top-level "profile" key.
	var wrapper struct {
		Profile Profile `yaml:"profile"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Profile{}, eris.Wrapf(err, "ingest: parse profile %s", path)
	}

	p := wrapper.Profile
	def := DefaultProfile()
	if p.Query == "" {
		p.Query = def.Query
	}
	if p.ExcludedCategories == nil {
		p.ExcludedCategories = def.ExcludedCategories
	}
	return p, nil
}

// Excludes reports whether a primary category is filtered out.
func (p Profile) Excludes(category string) bool {
	for _, c := range p.ExcludedCategories {
		if c == category {
			return true
		}
	}
	return false
}

// MatchesTypes reports whether types intersects the profile's required
// set. An empty required set matches everything.
func (p Profile) MatchesTypes(types []string) bool {
	if len(p.RequiredTypes) == 0 {
		return true
	}
	for _, t := range types {
		for _, req := range p.RequiredTypes {
			if t == req {
				return true
			}
		}
	}
	return false
}
