package catalog

import (
	"fmt"
	"strings"
)

// Season is the broadcast season of a catalog item.
type Season string

const (
	SeasonWinter Season = "WINTER"
	SeasonSpring Season = "SPRING"
	SeasonSummer Season = "SUMMER"
	SeasonFall   Season = "FALL"
)

// Seasons lists the valid seasons in calendar order.
var Seasons = []Season{SeasonWinter, SeasonSpring, SeasonSummer, SeasonFall}

// ParseSeason accepts a season name in any letter case. The empty string
// parses to the empty Season, meaning "any season".
func ParseSeason(s string) (Season, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	season := Season(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Seasons {
		if season == known {
			return season, nil
		}
	}
	return "", fmt.Errorf("unknown season %q", s)
}

// FilterSet is an immutable snapshot of the browse filters.
//
// Every field's zero value means "no constraint", so an absent field and a
// defaulted field compare equal. FilterSet is comparable; use Equal to
// compare user input, which normalizes first.
type FilterSet struct {
	SearchQuery string `json:"query" koanf:"query" validate:"max=200"`
	Genre       string `json:"genre,omitempty" koanf:"genre" validate:"max=64"`
	MinScore    int    `json:"min_score,omitempty" koanf:"min_score" validate:"min=0,max=100"`
	MaxScore    int    `json:"max_score,omitempty" koanf:"max_score" validate:"min=0,max=100"`
	Season      Season `json:"season,omitempty" koanf:"season" validate:"omitempty,oneof=WINTER SPRING SUMMER FALL"`
	Year        int    `json:"year,omitempty" koanf:"year" validate:"omitempty,min=1900,max=2100"`
}

// Normalize returns a copy with surrounding whitespace trimmed and the
// season upper-cased.
func (f FilterSet) Normalize() FilterSet {
	f.SearchQuery = strings.TrimSpace(f.SearchQuery)
	f.Genre = strings.TrimSpace(f.Genre)
	f.Season = Season(strings.ToUpper(strings.TrimSpace(string(f.Season))))
	return f
}

// Equal reports whether two filter sets constrain the catalog identically.
func (f FilterSet) Equal(other FilterSet) bool {
	return f.Normalize() == other.Normalize()
}

// IsZero reports whether the filter set applies no constraint at all.
func (f FilterSet) IsZero() bool {
	return f.Normalize() == FilterSet{}
}

// String renders the active constraints for logs.
func (f FilterSet) String() string {
	f = f.Normalize()
	var parts []string
	if f.SearchQuery != "" {
		parts = append(parts, fmt.Sprintf("query=%q", f.SearchQuery))
	}
	if f.Genre != "" {
		parts = append(parts, "genre="+f.Genre)
	}
	if f.MinScore != 0 {
		parts = append(parts, fmt.Sprintf("min_score=%d", f.MinScore))
	}
	if f.MaxScore != 0 {
		parts = append(parts, fmt.Sprintf("max_score=%d", f.MaxScore))
	}
	if f.Season != "" {
		parts = append(parts, "season="+string(f.Season))
	}
	if f.Year != 0 {
		parts = append(parts, fmt.Sprintf("year=%d", f.Year))
	}
	if len(parts) == 0 {
		return "{}"
	}
	return "{" + strings.Join(parts, " ") + "}"
}
