package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// Query parameter names of the listing endpoint. The catalog API matches
// them byte for byte.
const (
	ParamGenre    = "genre"
	ParamMinScore = "min_score"
	ParamMaxScore = "max_score"
	ParamSeason   = "season"
	ParamYear     = "year"
	ParamQuery    = "query"
	ParamPage     = "page"
	ParamPerPage  = "per_page"
)

// MaxPerPage bounds the per_page parameter accepted by ParseQuery.
const MaxPerPage = 500

// ErrInvalidQuery is returned by ParseQuery for malformed parameters.
var ErrInvalidQuery = errors.New("invalid query parameters")

// Query encodes the filters for one listing request. page is the chunk
// index and perPage the chunk size; the display page never leaves the
// client. Unconstrained filters are omitted, the search query is always
// sent.
func (f FilterSet) Query(page, perPage int) url.Values {
	f = f.Normalize()
	v := url.Values{}
	if f.Genre != "" {
		v.Set(ParamGenre, f.Genre)
	}
	if f.MinScore != 0 {
		v.Set(ParamMinScore, strconv.Itoa(f.MinScore))
	}
	if f.MaxScore != 0 {
		v.Set(ParamMaxScore, strconv.Itoa(f.MaxScore))
	}
	if f.Season != "" {
		v.Set(ParamSeason, string(f.Season))
	}
	if f.Year != 0 {
		v.Set(ParamYear, strconv.Itoa(f.Year))
	}
	v.Set(ParamQuery, f.SearchQuery)
	v.Set(ParamPage, strconv.Itoa(page))
	v.Set(ParamPerPage, strconv.Itoa(perPage))
	return v
}

// ParseQuery is the inverse of FilterSet.Query. Missing page and per_page
// default to 1 and defaultPerPage. The returned filters are validated.
func ParseQuery(v url.Values, defaultPerPage int) (FilterSet, int, int, error) {
	allowed := map[string]bool{
		ParamGenre: true, ParamMinScore: true, ParamMaxScore: true, ParamSeason: true,
		ParamYear: true, ParamQuery: true, ParamPage: true, ParamPerPage: true,
	}
	for key := range v {
		if !allowed[key] {
			return FilterSet{}, 0, 0, fmt.Errorf("%w: unknown parameter %q", ErrInvalidQuery, key)
		}
	}

	var f FilterSet
	var err error
	f.SearchQuery = v.Get(ParamQuery)
	f.Genre = v.Get(ParamGenre)
	if f.Season, err = ParseSeason(v.Get(ParamSeason)); err != nil {
		return FilterSet{}, 0, 0, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if f.MinScore, err = optionalInt(v, ParamMinScore, 0); err != nil {
		return FilterSet{}, 0, 0, err
	}
	if f.MaxScore, err = optionalInt(v, ParamMaxScore, 0); err != nil {
		return FilterSet{}, 0, 0, err
	}
	if f.Year, err = optionalInt(v, ParamYear, 0); err != nil {
		return FilterSet{}, 0, 0, err
	}

	page, err := optionalInt(v, ParamPage, 1)
	if err != nil {
		return FilterSet{}, 0, 0, err
	}
	perPage, err := optionalInt(v, ParamPerPage, defaultPerPage)
	if err != nil {
		return FilterSet{}, 0, 0, err
	}
	if page < 1 {
		return FilterSet{}, 0, 0, fmt.Errorf("%w: page must be >= 1 (got %d)", ErrInvalidQuery, page)
	}
	if perPage < 1 || perPage > MaxPerPage {
		return FilterSet{}, 0, 0, fmt.Errorf("%w: per_page must be in 1..%d (got %d)", ErrInvalidQuery, MaxPerPage, perPage)
	}

	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return FilterSet{}, 0, 0, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return f, page, perPage, nil
}

func optionalInt(v url.Values, key string, def int) (int, error) {
	raw := v.Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidQuery, key)
	}
	return n, nil
}
