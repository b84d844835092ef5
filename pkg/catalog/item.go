// Package catalog defines the media catalog types shared by the browse
// core and its collaborators: catalog items, filter sets and the listing
// response returned by the catalog API.
package catalog

// Status is the airing or watch status reported for a catalog item.
type Status string

const (
	StatusFinished  Status = "FINISHED"
	StatusReleasing Status = "RELEASING"
	StatusWatching  Status = "watching"
	StatusCompleted Status = "completed"
	StatusPlanned   Status = "planned"
	StatusDropped   Status = "dropped"
	StatusPaused    Status = "paused"
)

// Title holds the normalized (lower-cased) titles used for search and the
// display variants shown to users.
type Title struct {
	Romaji         string `json:"romaji"`
	English        string `json:"english"`
	DisplayRomaji  string `json:"display_romaji"`
	DisplayEnglish string `json:"display_english"`
}

// CoverImage points at the item's poster.
type CoverImage struct {
	Large string `json:"large"`
}

// Item is one entry of the catalog as served by the listing endpoint.
type Item struct {
	ID           int         `json:"id"`
	Title        Title       `json:"title"`
	Description  string      `json:"description"`
	Genres       []string    `json:"genres"`
	AverageScore int         `json:"averageScore,omitempty"`
	Episodes     int         `json:"episodes,omitempty"`
	Duration     int         `json:"duration,omitempty"`
	Season       Season      `json:"season,omitempty"`
	SeasonYear   int         `json:"seasonYear,omitempty"`
	Status       Status      `json:"status,omitempty"`
	Source       string      `json:"source,omitempty"`
	Studios      []string    `json:"studios,omitempty"`
	CoverImage   *CoverImage `json:"coverImage,omitempty"`
}

// DisplayTitle returns the best title for presentation, preferring the
// English display title.
func (i Item) DisplayTitle() string {
	switch {
	case i.Title.DisplayEnglish != "":
		return i.Title.DisplayEnglish
	case i.Title.DisplayRomaji != "":
		return i.Title.DisplayRomaji
	case i.Title.English != "":
		return i.Title.English
	default:
		return i.Title.Romaji
	}
}

// Page is the listing response for one request of the catalog API.
// Page and PerPage echo the request; Total is the number of items matching
// the filters across all pages.
type Page struct {
	Results    []Item `json:"results"`
	Total      int    `json:"total"`
	Page       int    `json:"page"`
	PerPage    int    `json:"perPage"`
	TotalPages int    `json:"totalPages"`
}

// GenresResponse is the payload of the genres endpoint.
type GenresResponse struct {
	Genres []string `json:"genres"`
}
