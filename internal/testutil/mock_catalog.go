// Package testutil provides testing utilities for the catalog client and
// the browse packages.
package testutil

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RaY8118/anime-recommendation/pkg/catalog"
	"github.com/goccy/go-json"
)

// MockResponse defines a canned response for a mock endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalog is an in-memory catalog API served over httptest. By default
// it filters and paginates Items like the real listing endpoint.
type MockCatalog struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	items    []catalog.Item
	failures []MockResponse
	maxAge   int

	// Tracking
	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
	LastQuery         string
}

// NewMockCatalog creates a mock catalog serving items.
func NewMockCatalog(items []catalog.Item) *MockCatalog {
	mock := &MockCatalog{
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
		items:    items,
		maxAge:   300,
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		mock.LastQuery = r.URL.RawQuery
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}

		var failure *MockResponse
		if len(mock.failures) > 0 {
			failure = &mock.failures[0]
			mock.failures = mock.failures[1:]
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if failure != nil {
			writeResponse(w, *failure)
			return
		}
		if exists {
			handler(w, r)
			return
		}
		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
	m.LastQuery = ""
}

// SetItems replaces the served catalog.
func (m *MockCatalog) SetItems(items []catalog.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = items
}

// SetMaxAge sets the Cache-Control max-age of listing responses. Zero
// sends no-cache.
func (m *MockCatalog) SetMaxAge(seconds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxAge = seconds
}

// FailNext queues responses returned, in order, before normal service
// resumes.
func (m *MockCatalog) FailNext(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, responses...)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockCatalog) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a simple response for a path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, resp)
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockCatalog) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetLastRequestHeader returns the headers of the last request.
func (m *MockCatalog) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

// GetLastQuery returns the raw query of the last request.
func (m *MockCatalog) GetLastQuery() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastQuery
}

func (m *MockCatalog) defaultHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	items := m.items
	maxAge := m.maxAge
	m.mu.RUnlock()

	var payload any
	switch r.URL.Path {
	case "/animes":
		filters, page, perPage, err := catalog.ParseQuery(r.URL.Query(), 20)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()}, 0)
			return
		}
		payload = Paginate(Filter(items, filters), page, perPage)
	case "/animes/genres":
		payload = catalog.GenresResponse{Genres: Genres(items)}
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"}, 0)
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	etag := etagFor(body)
	if r.Header.Get("If-None-Match") == etag {
		setCacheHeaders(w, etag, maxAge)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	setCacheHeaders(w, etag, maxAge)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-RateLimit-Limit", "100")
	w.Header().Set("X-RateLimit-Remaining", "99")
	w.Header().Set("X-RateLimit-Reset", "60")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Filter returns the items matching f, in catalog order.
func Filter(items []catalog.Item, f catalog.FilterSet) []catalog.Item {
	f = f.Normalize()
	query := strings.ToLower(f.SearchQuery)

	out := make([]catalog.Item, 0, len(items))
	for _, it := range items {
		if f.Genre != "" && !containsFold(it.Genres, f.Genre) {
			continue
		}
		if f.MinScore != 0 && it.AverageScore < f.MinScore {
			continue
		}
		if f.MaxScore != 0 && it.AverageScore > f.MaxScore {
			continue
		}
		if f.Season != "" && it.Season != f.Season {
			continue
		}
		if f.Year != 0 && it.SeasonYear != f.Year {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(it.Title.Romaji), query) &&
			!strings.Contains(strings.ToLower(it.Title.English), query) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// Paginate slices one listing page out of items.
func Paginate(items []catalog.Item, page, perPage int) catalog.Page {
	total := len(items)
	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)

	totalPages := 0
	if perPage > 0 {
		totalPages = (total + perPage - 1) / perPage
	}

	results := make([]catalog.Item, end-start)
	copy(results, items[start:end])
	return catalog.Page{
		Results:    results,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}
}

// Genres returns the distinct genres of items, sorted.
func Genres(items []catalog.Item) []string {
	seen := map[string]bool{}
	for _, it := range items {
		for _, g := range it.Genres {
			seen[g] = true
		}
	}
	out := make([]string, 0, len(seen))
	for g := range seen {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

var sampleGenres = []string{"Action", "Comedy", "Drama", "Fantasy", "Romance", "Sci-Fi"}

// GenerateItems builds n deterministic catalog items with ids 1..n. Genres,
// seasons, years and scores rotate so every filter has matches.
func GenerateItems(n int) []catalog.Item {
	items := make([]catalog.Item, n)
	for i := range items {
		id := i + 1
		title := fmt.Sprintf("Series %03d", id)
		items[i] = catalog.Item{
			ID: id,
			Title: catalog.Title{
				Romaji:         strings.ToLower(title),
				English:        strings.ToLower(title),
				DisplayRomaji:  title,
				DisplayEnglish: title,
			},
			Genres:       []string{sampleGenres[i%len(sampleGenres)]},
			AverageScore: 50 + (i*7)%50,
			Episodes:     12,
			Season:       catalog.Seasons[i%len(catalog.Seasons)],
			SeasonYear:   2000 + i%25,
			Status:       catalog.StatusFinished,
		}
	}
	return items
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"detail": "Internal server error"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response asking the
// client to wait retryAfter seconds.
func NewRateLimitResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"detail": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Retry-After":  strconv.Itoa(retryAfter),
		},
	}
}

// NewNotFoundResponse creates a 404 response with a FastAPI style detail.
func NewNotFoundResponse(detail string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf(`{"detail": %q}`, detail),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func writeResponse(w http.ResponseWriter, resp MockResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, maxAge int) {
	body, _ := json.Marshal(v)
	if maxAge > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", maxAge))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func setCacheHeaders(w http.ResponseWriter, etag string, maxAge int) {
	w.Header().Set("ETag", etag)
	if maxAge > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", maxAge))
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}
}

func etagFor(body []byte) string {
	h := fnv.New64a()
	h.Write(body)
	return fmt.Sprintf(`"%x"`, h.Sum64())
}

func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
