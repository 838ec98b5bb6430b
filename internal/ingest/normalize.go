package ingest

import (
	"github.com/inkdex/ingest-cli/internal/model"
	"github.com/inkdex/ingest-cli/pkg/places"
)

// Address component types used by the places API.
const (
	compLocality = "locality"
	compCounty   = "administrative_area_level_2"
	compState    = "administrative_area_level_1"
	compCountry  = "country"
	compPostal   = "postal_code"
)

// Positional fallbacks for components that carry no matching type.
const (
	posCity    = 3
	posCounty  = 4
	posState   = 5
	posCountry = 6
	posPostal  = 7
)

const statusOperational = "OPERATIONAL"

// Normalize filters and maps raw places to locations. Returns the kept
// records and the number dropped. Deterministic: no I/O, no clock.
func Normalize(raw []places.Place, profile *Profile) ([]model.Location, int) {
	if profile == nil {
		p := DefaultProfile()
		profile = &p
	}

	var (
		kept    []model.Location
		dropped int
	)
	for _, p := range raw {
		loc, ok := normalizeOne(p, profile)
		if !ok {
			dropped++
			continue
		}
		kept = append(kept, loc)
	}
	return kept, dropped
}

func normalizeOne(p places.Place, profile *Profile) (model.Location, bool) {
	if p.ID == "" || p.DisplayName.Text == "" {
		return model.Location{}, false
	}
	if p.Location == nil {
		return model.Location{}, false
	}
	if p.Location.Latitude < -90 || p.Location.Latitude > 90 ||
		p.Location.Longitude < -180 || p.Location.Longitude > 180 {
		return model.Location{}, false
	}
	if profile.Excludes(p.PrimaryType) {
		return model.Location{}, false
	}
	if !profile.MatchesTypes(p.Types) {
		return model.Location{}, false
	}

	comps := p.AddressComponents
	return model.Location{
		ExternalID:  p.ID,
		Name:        p.DisplayName.Text,
		Category:    p.PrimaryType,
		Address:     p.FormattedAddress,
		City:        componentByType(comps, compLocality, posCity),
		County:      componentByType(comps, compCounty, posCounty),
		State:       componentByType(comps, compState, posState),
		CountryCode: componentByType(comps, compCountry, posCountry),
		PostalCode:  postalComponent(comps),
		IsOpen:      p.BusinessStatus == statusOperational,
		Lat:         p.Location.Latitude,
		Long:        p.Location.Longitude,
		WebsiteURI:  p.WebsiteURI,
	}, true
}

// componentByType returns the longText of the first component carrying the
// given type, falling back to the component at fallbackIdx.
func componentByType(comps []places.AddressComponent, typ string, fallbackIdx int) string {
	for _, c := range comps {
		for _, t := range c.Types {
			if t == typ {
				return c.LongText
			}
		}
	}
	if fallbackIdx < len(comps) {
		return comps[fallbackIdx].LongText
	}
	return ""
}

// postalComponent matches like componentByType but its positional fallback
// prefers shortText over longText.
func postalComponent(comps []places.AddressComponent) string {
	for _, c := range comps {
		for _, t := range c.Types {
			if t == compPostal {
				return c.LongText
			}
		}
	}
	if posPostal < len(comps) {
		if s := comps[posPostal].ShortText; s != "" {
			return s
		}
		return comps[posPostal].LongText
	}
	return ""
}
