package pagination

import (
	"fmt"

	"github.com/RaY8118/anime-recommendation/pkg/catalog"
	"github.com/RaY8118/anime-recommendation/pkg/window"
)

// Event is an input to Reduce.
type Event interface {
	eventName() string
}

// FiltersStabilized carries a debounced filter snapshot.
type FiltersStabilized struct {
	Filters catalog.FilterSet
}

// NextPage asks for the following display page.
type NextPage struct{}

// PreviousPage asks for the preceding display page.
type PreviousPage struct{}

// ChunkLoaded delivers the response to Request.
type ChunkLoaded struct {
	Request FetchRequest
	Items   []catalog.Item
	Total   int
}

// ChunkFailed delivers the failure of Request.
type ChunkFailed struct {
	Request FetchRequest
	Err     error
}

// Retry re-issues the fetch that failed.
type Retry struct{}

// Dismiss abandons a failed fetch and returns to the last idle position.
type Dismiss struct{}

func (FiltersStabilized) eventName() string { return "filters_stabilized" }
func (NextPage) eventName() string          { return "next" }
func (PreviousPage) eventName() string      { return "previous" }
func (ChunkLoaded) eventName() string       { return "chunk_loaded" }
func (ChunkFailed) eventName() string       { return "chunk_failed" }
func (Retry) eventName() string             { return "retry" }
func (Dismiss) eventName() string           { return "dismiss" }

// Result is the outcome of one transition.
type Result struct {
	State State

	// Fetch is the chunk fetch to issue, if any.
	Fetch *FetchRequest

	// Changed is false for no-ops and stale responses.
	Changed bool

	// Stale marks a response whose target is no longer current.
	Stale bool

	// Clamped marks a landing page moved back onto the items the chunk
	// actually holds.
	Clamped bool

	// Trimmed is the number of items dropped from a response that held
	// more than the chunk can.
	Trimmed int
}

// Start returns the state of a new session and the fetch for its first
// chunk.
func Start(g window.Geometry, filters catalog.FilterSet) Result {
	filters = filters.Normalize()
	s := State{Filters: filters, ChunkIndex: 1, DisplayPage: 1}
	return fetch(g, s, Target{Filters: filters, ChunkIndex: 1, DisplayPage: 1})
}

// Reduce applies ev to s. It is pure: it performs no I/O and the caller is
// responsible for issuing Result.Fetch and feeding its outcome back as
// ChunkLoaded or ChunkFailed.
func Reduce(g window.Geometry, s State, ev Event) Result {
	switch ev := ev.(type) {
	case FiltersStabilized:
		return reduceFilters(g, s, ev.Filters.Normalize())
	case NextPage:
		return reduceNext(g, s)
	case PreviousPage:
		return reducePrevious(g, s)
	case ChunkLoaded:
		return reduceLoaded(g, s, ev)
	case ChunkFailed:
		return reduceFailed(s, ev)
	case Retry:
		if s.Phase != PhaseError {
			return Result{State: s}
		}
		return fetch(g, s, s.Target)
	case Dismiss:
		if s.Phase != PhaseError || s.Chunk == nil {
			return Result{State: s}
		}
		s.Phase = PhaseIdle
		s.Target = Target{}
		s.Err = nil
		return Result{State: s, Changed: true}
	default:
		panic(fmt.Sprintf("pagination: unknown event %T", ev))
	}
}

func fetch(g window.Geometry, s State, t Target) Result {
	s.Phase = PhaseFetching
	s.Target = t
	s.Err = nil
	return Result{
		State: s,
		Fetch: &FetchRequest{
			Filters:    t.Filters,
			ChunkIndex: t.ChunkIndex,
			ChunkSize:  g.ChunkSize(),
		},
		Changed: true,
	}
}

func reduceFilters(g window.Geometry, s State, filters catalog.FilterSet) Result {
	if s.Filters.Equal(filters) {
		return Result{State: s}
	}
	s.Filters = filters
	s.ChunkIndex = 1
	s.DisplayPage = 1
	s.Chunk = nil
	return fetch(g, s, Target{Filters: filters, ChunkIndex: 1, DisplayPage: 1})
}

func reduceNext(g window.Geometry, s State) Result {
	if s.Phase != PhaseIdle || s.Chunk == nil {
		return Result{State: s}
	}
	if window.IsLastPage(s.DisplayPage, g.DisplaySize, s.Chunk.Total) {
		return Result{State: s}
	}

	w := mustSlice(g, s.Chunk, s.ChunkIndex, s.DisplayPage)
	if w.ExhaustedForward {
		next := s.ChunkIndex + 1
		return fetch(g, s, Target{Filters: s.Filters, ChunkIndex: next, DisplayPage: g.FirstPageOfChunk(next)})
	}

	s.DisplayPage++
	return Result{State: s, Changed: true}
}

func reducePrevious(g window.Geometry, s State) Result {
	if s.Phase != PhaseIdle || s.Chunk == nil {
		return Result{State: s}
	}
	if s.ChunkIndex == 1 && s.DisplayPage == 1 {
		return Result{State: s}
	}

	w := mustSlice(g, s.Chunk, s.ChunkIndex, s.DisplayPage)
	if w.ExhaustedBackward && s.ChunkIndex > 1 {
		prev := s.ChunkIndex - 1
		return fetch(g, s, Target{Filters: s.Filters, ChunkIndex: prev, DisplayPage: g.LastPageOfChunk(prev)})
	}

	s.DisplayPage--
	return Result{State: s, Changed: true}
}

func reduceLoaded(g window.Geometry, s State, ev ChunkLoaded) Result {
	if s.Phase != PhaseFetching || !ev.Request.matches(s.Target) {
		return Result{State: s, Stale: true}
	}

	t := s.Target
	total := max(ev.Total, 0)
	items := trimChunk(g, ev.Items, t.ChunkIndex, total)
	chunk := &Chunk{
		Items:      items,
		Total:      total,
		ChunkIndex: t.ChunkIndex,
		Filters:    t.Filters,
	}

	// Landing on the last page of a previous chunk assumes that chunk is
	// full. If it came back short, land on its last populated page.
	page := t.DisplayPage
	clamped := false
	if n := len(chunk.Items); n > 0 {
		lastHeld := g.FirstPageOfChunk(t.ChunkIndex) + (n-1)/g.DisplaySize
		if page > lastHeld {
			page = lastHeld
			clamped = true
		}
	}

	s.Phase = PhaseIdle
	s.ChunkIndex = t.ChunkIndex
	s.DisplayPage = page
	s.Chunk = chunk
	s.Target = Target{}
	s.Err = nil

	mustSlice(g, chunk, s.ChunkIndex, s.DisplayPage)
	return Result{State: s, Changed: true, Clamped: clamped, Trimmed: len(ev.Items) - len(items)}
}

// trimChunk caps items at the chunk size and at what total leaves for
// chunkIndex. A fetcher that ignores per_page must not push pages past the
// chunk.
func trimChunk(g window.Geometry, items []catalog.Item, chunkIndex, total int) []catalog.Item {
	limit := min(g.ChunkSize(), max(total-(chunkIndex-1)*g.ChunkSize(), 0))
	if len(items) <= limit {
		return items
	}
	return items[:limit:limit]
}

func reduceFailed(s State, ev ChunkFailed) Result {
	if s.Phase != PhaseFetching || !ev.Request.matches(s.Target) {
		return Result{State: s, Stale: true}
	}
	s.Phase = PhaseError
	s.Err = ev.Err
	return Result{State: s, Changed: true}
}
