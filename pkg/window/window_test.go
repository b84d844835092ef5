package window

import (
	"errors"
	"testing"
)

func seq(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestNewGeometry(t *testing.T) {
	tests := []struct {
		name        string
		display     int
		perFetch    int
		expectError bool
	}{
		{"valid", 12, 3, false},
		{"single page chunks", 10, 1, false},
		{"zero display size", 0, 3, true},
		{"negative chunks per fetch", 12, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGeometry(tt.display, tt.perFetch)
			if (err != nil) != tt.expectError {
				t.Errorf("NewGeometry(%d, %d) error = %v, expectError %v", tt.display, tt.perFetch, err, tt.expectError)
			}
		})
	}
}

func TestGeometry_PagesPerChunkIsExact(t *testing.T) {
	for display := 1; display <= 50; display++ {
		for k := 1; k <= 8; k++ {
			g := Geometry{DisplaySize: display, ChunksPerFetch: k}
			if got := g.PagesPerChunk(); got != k {
				t.Fatalf("PagesPerChunk() for display=%d k=%d = %d, want %d", display, k, got, k)
			}
		}
	}
}

func TestGeometry_PageChunkMapping(t *testing.T) {
	g := Geometry{DisplaySize: 12, ChunksPerFetch: 3}

	tests := []struct {
		page  int
		chunk int
	}{
		{1, 1}, {3, 1}, {4, 2}, {6, 2}, {7, 3},
	}
	for _, tt := range tests {
		if got := g.ChunkForPage(tt.page); got != tt.chunk {
			t.Errorf("ChunkForPage(%d) = %d, want %d", tt.page, got, tt.chunk)
		}
	}

	if got := g.FirstPageOfChunk(2); got != 4 {
		t.Errorf("FirstPageOfChunk(2) = %d, want 4", got)
	}
	if got := g.LastPageOfChunk(1); got != 3 {
		t.Errorf("LastPageOfChunk(1) = %d, want 3", got)
	}
	if got := g.LocalStart(2, 5); got != 12 {
		t.Errorf("LocalStart(2, 5) = %d, want 12", got)
	}
}

func TestSlice(t *testing.T) {
	g := Geometry{DisplaySize: 12, ChunksPerFetch: 3}
	chunk1 := seq(1, 36)
	chunk2 := seq(37, 50)

	tests := []struct {
		name         string
		items        []int
		chunk        int
		page         int
		wantFirst    int
		wantLen      int
		wantForward  bool
		wantBackward bool
	}{
		{"first page", chunk1, 1, 1, 1, 12, false, true},
		{"middle page", chunk1, 1, 2, 13, 12, false, false},
		{"last page of full chunk", chunk1, 1, 3, 25, 12, true, false},
		{"first page of partial chunk", chunk2, 2, 4, 37, 12, false, true},
		{"partial last page", chunk2, 2, 5, 49, 2, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := Slice(g, tt.items, tt.chunk, tt.page)
			if err != nil {
				t.Fatalf("Slice() error: %v", err)
			}
			if len(w.Items) != tt.wantLen {
				t.Fatalf("len(Items) = %d, want %d", len(w.Items), tt.wantLen)
			}
			if w.Items[0] != tt.wantFirst {
				t.Errorf("Items[0] = %d, want %d", w.Items[0], tt.wantFirst)
			}
			if w.ExhaustedForward != tt.wantForward {
				t.Errorf("ExhaustedForward = %v, want %v", w.ExhaustedForward, tt.wantForward)
			}
			if w.ExhaustedBackward != tt.wantBackward {
				t.Errorf("ExhaustedBackward = %v, want %v", w.ExhaustedBackward, tt.wantBackward)
			}
		})
	}
}

func TestSlice_Empty(t *testing.T) {
	g := Geometry{DisplaySize: 12, ChunksPerFetch: 3}

	w, err := Slice[int](g, nil, 1, 1)
	if err != nil {
		t.Fatalf("Slice() error: %v", err)
	}
	if len(w.Items) != 0 {
		t.Errorf("Items = %v, want empty", w.Items)
	}
	if !w.ExhaustedForward || !w.ExhaustedBackward {
		t.Errorf("exhaustion = (%v, %v), want both true", w.ExhaustedForward, w.ExhaustedBackward)
	}
}

func TestSlice_PageBeyondPartialChunk(t *testing.T) {
	g := Geometry{DisplaySize: 12, ChunksPerFetch: 3}

	w, err := Slice(g, seq(1, 5), 1, 2)
	if err != nil {
		t.Fatalf("Slice() error: %v", err)
	}
	if len(w.Items) != 0 {
		t.Errorf("Items = %v, want empty", w.Items)
	}
	if !w.ExhaustedForward {
		t.Error("ExhaustedForward should be true past the end of the chunk")
	}
}

func TestSlice_InvariantViolation(t *testing.T) {
	g := Geometry{DisplaySize: 12, ChunksPerFetch: 3}

	tests := []struct {
		name  string
		chunk int
		page  int
	}{
		{"page before chunk", 2, 3},
		{"page after chunk", 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Slice(g, seq(1, 36), tt.chunk, tt.page)
			if !errors.Is(err, ErrInvariantViolation) {
				t.Errorf("Slice() error = %v, want ErrInvariantViolation", err)
			}
		})
	}
}

func TestTotalPagesAndLastPageSize(t *testing.T) {
	tests := []struct {
		total     int
		display   int
		wantPages int
		wantLast  int
	}{
		{0, 12, 0, 0},
		{50, 12, 5, 2},
		{48, 12, 4, 12},
		{1, 12, 1, 1},
		{36, 12, 3, 12},
	}

	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.display); got != tt.wantPages {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.display, got, tt.wantPages)
		}
		if got := LastPageSize(tt.total, tt.display); got != tt.wantLast {
			t.Errorf("LastPageSize(%d, %d) = %d, want %d", tt.total, tt.display, got, tt.wantLast)
		}
	}
}

func TestIsLastPage(t *testing.T) {
	if IsLastPage(4, 12, 50) {
		t.Error("page 4 of 50 items should not be last")
	}
	if !IsLastPage(5, 12, 50) {
		t.Error("page 5 of 50 items should be last")
	}
	if !IsLastPage(1, 12, 0) {
		t.Error("page 1 of an empty result should be last")
	}
}
