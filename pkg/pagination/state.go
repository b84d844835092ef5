package pagination

import (
	"github.com/RaY8118/anime-recommendation/pkg/catalog"
	"github.com/RaY8118/anime-recommendation/pkg/window"
)

// Phase is the tag of the pagination state.
type Phase int

const (
	// PhaseIdle holds a chunk and shows one of its display pages.
	PhaseIdle Phase = iota

	// PhaseFetching waits for the chunk of Target.
	PhaseFetching

	// PhaseError means the fetch for Target failed. The last idle
	// position is kept as a fallback.
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFetching:
		return "fetching"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Chunk is one server-fetched batch of items. It is replaced wholesale on
// every chunk or filter change.
type Chunk struct {
	Items      []catalog.Item
	Total      int
	ChunkIndex int
	Filters    catalog.FilterSet
}

// Target is the position a pending or failed fetch is meant to land on.
type Target struct {
	Filters     catalog.FilterSet
	ChunkIndex  int
	DisplayPage int
}

// FetchRequest is a chunk fetch the caller must issue. Its (Filters,
// ChunkIndex) pair tags the eventual response.
type FetchRequest struct {
	// ID correlates the request with its response in logs.
	ID         string
	Filters    catalog.FilterSet
	ChunkIndex int
	ChunkSize  int
}

func (r FetchRequest) matches(t Target) bool {
	return r.ChunkIndex == t.ChunkIndex && r.Filters.Equal(t.Filters)
}

// State is the pagination state of one browse session.
//
// ChunkIndex, DisplayPage and Chunk describe the last committed idle
// position. While fetching or failed they stay visible as the fallback,
// and Target describes where the fetch is headed.
type State struct {
	Phase       Phase
	Filters     catalog.FilterSet
	ChunkIndex  int
	DisplayPage int
	Chunk       *Chunk
	Target      Target
	Err         error
}

// View is what a renderer needs to draw the current state.
type View struct {
	Phase   Phase
	Filters catalog.FilterSet

	// Items is the visible window. While a fetch runs it still shows the
	// last committed window.
	Items []catalog.Item

	Page       int
	TotalPages int
	Total      int

	HasNext     bool
	HasPrevious bool

	// Loading is set while a chunk fetch is in flight.
	Loading bool

	// Empty is set for an idle state whose filters match nothing.
	Empty bool

	// SuggestQuery is the search query to offer as a suggestion when Empty.
	SuggestQuery string

	Err error
}

// View renders s for geometry g.
func (s State) View(g window.Geometry) View {
	v := View{
		Phase:   s.Phase,
		Filters: s.Filters,
		Page:    s.DisplayPage,
		Loading: s.Phase == PhaseFetching,
		Err:     s.Err,
	}
	if s.Chunk == nil {
		return v
	}

	w := mustSlice(g, s.Chunk, s.ChunkIndex, s.DisplayPage)
	v.Items = w.Items
	v.Total = s.Chunk.Total
	v.TotalPages = window.TotalPages(s.Chunk.Total, g.DisplaySize)

	idle := s.Phase == PhaseIdle
	v.HasNext = idle && !window.IsLastPage(s.DisplayPage, g.DisplaySize, s.Chunk.Total)
	v.HasPrevious = idle && !(s.ChunkIndex == 1 && s.DisplayPage == 1)
	v.Empty = idle && s.Chunk.Total == 0
	if v.Empty {
		v.SuggestQuery = s.Filters.SearchQuery
	}
	return v
}

func mustSlice(g window.Geometry, c *Chunk, chunkIndex, page int) window.Window[catalog.Item] {
	w, err := window.Slice(g, c.Items, chunkIndex, page)
	if err != nil {
		panic(&InvariantViolation{ChunkIndex: chunkIndex, DisplayPage: page, Err: err})
	}
	return w
}
