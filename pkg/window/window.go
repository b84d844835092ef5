// Package window maps server-sized chunks onto client-sized display pages.
//
// The catalog API serves items in chunks of ChunkSize = DisplaySize *
// ChunksPerFetch. Display pages are numbered globally from 1; display page
// p lives in chunk ChunkForPage(p). Slice cuts the window for a display page
// out of the chunk that holds it and reports whether moving further forward
// or backward requires another chunk.
package window

import (
	"errors"
	"fmt"
)

// ErrInvariantViolation means a display page was sliced from a chunk that
// does not hold it. It indicates a caller bug, never bad input.
var ErrInvariantViolation = errors.New("window: display page outside held chunk")

// Geometry fixes the display page size and how many display pages one chunk
// fetch covers.
type Geometry struct {
	DisplaySize    int
	ChunksPerFetch int
}

// NewGeometry validates and returns a Geometry.
func NewGeometry(displaySize, chunksPerFetch int) (Geometry, error) {
	if displaySize <= 0 {
		return Geometry{}, fmt.Errorf("display size must be > 0 (got %d)", displaySize)
	}
	if chunksPerFetch <= 0 {
		return Geometry{}, fmt.Errorf("chunks per fetch must be > 0 (got %d)", chunksPerFetch)
	}
	return Geometry{DisplaySize: displaySize, ChunksPerFetch: chunksPerFetch}, nil
}

// ChunkSize is the per_page value sent to the catalog API.
func (g Geometry) ChunkSize() int {
	return g.DisplaySize * g.ChunksPerFetch
}

// PagesPerChunk is ceil(ChunkSize/DisplaySize). ChunkSize is an exact
// multiple of DisplaySize, so this always equals ChunksPerFetch.
func (g Geometry) PagesPerChunk() int {
	return ceilDiv(g.ChunkSize(), g.DisplaySize)
}

// ChunkForPage returns the chunk index holding a display page.
func (g Geometry) ChunkForPage(page int) int {
	return (page-1)/g.PagesPerChunk() + 1
}

// FirstPageOfChunk returns the first display page held by a chunk.
func (g Geometry) FirstPageOfChunk(chunkIndex int) int {
	return (chunkIndex-1)*g.PagesPerChunk() + 1
}

// LastPageOfChunk returns the last display page held by a full chunk.
func (g Geometry) LastPageOfChunk(chunkIndex int) int {
	return chunkIndex * g.PagesPerChunk()
}

// LocalStart is the offset of a display page inside a chunk.
func (g Geometry) LocalStart(chunkIndex, page int) int {
	return (page-1)*g.DisplaySize - (chunkIndex-1)*g.ChunkSize()
}

// Window is the slice of a chunk visible on one display page.
type Window[T any] struct {
	Items []T

	// ExhaustedForward means the next display page is not in this chunk.
	ExhaustedForward bool

	// ExhaustedBackward means the previous display page is not in this chunk.
	ExhaustedBackward bool

	// LocalStart is the offset of the first visible item within the chunk.
	LocalStart int
}

// Slice returns the window for display page page of chunk chunkIndex.
// items is the chunk's content in server order. The returned Items alias
// items.
func Slice[T any](g Geometry, items []T, chunkIndex, page int) (Window[T], error) {
	localStart := g.LocalStart(chunkIndex, page)
	if localStart < 0 || localStart >= g.ChunkSize() {
		return Window[T]{}, fmt.Errorf("%w: page %d, chunk %d, local start %d",
			ErrInvariantViolation, page, chunkIndex, localStart)
	}

	if len(items) == 0 {
		return Window[T]{ExhaustedForward: true, ExhaustedBackward: true, LocalStart: localStart}, nil
	}

	localEnd := localStart + g.DisplaySize
	start := min(localStart, len(items))
	end := min(localEnd, len(items))

	return Window[T]{
		Items:             items[start:end],
		ExhaustedForward:  localEnd >= len(items),
		ExhaustedBackward: localStart == 0,
		LocalStart:        localStart,
	}, nil
}

// TotalPages is the number of display pages for a server-reported total.
func TotalPages(total, displaySize int) int {
	if total <= 0 || displaySize <= 0 {
		return 0
	}
	return ceilDiv(total, displaySize)
}

// LastPageSize is the number of items on the final display page.
func LastPageSize(total, displaySize int) int {
	if total <= 0 || displaySize <= 0 {
		return 0
	}
	if rem := total % displaySize; rem != 0 {
		return rem
	}
	return displaySize
}

// IsLastPage reports whether page is the final display page for total.
func IsLastPage(page, displaySize, total int) bool {
	return page*displaySize >= total
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
