// Package browse wires filter debouncing to the pagination controller for
// one browse view.
package browse

import (
	"sync"
	"time"

	"github.com/RaY8118/anime-recommendation/pkg/catalog"
	"github.com/RaY8118/anime-recommendation/pkg/debounce"
	"github.com/RaY8118/anime-recommendation/pkg/logging"
	"github.com/RaY8118/anime-recommendation/pkg/pagination"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config holds browse session configuration.
type Config struct {
	Pagination pagination.Config

	// DebounceDelay is the quiet period before filter edits take effect.
	DebounceDelay time.Duration
}

// DefaultConfig returns the browse view defaults.
func DefaultConfig() Config {
	return Config{
		Pagination:    pagination.DefaultConfig(),
		DebounceDelay: debounce.DefaultDelay,
	}
}

// Session is one mounted browse view. Filter edits go through a debouncer;
// only stabilized filter sets reach the controller.
type Session struct {
	id        string
	ctrl      *pagination.Controller
	debouncer *debounce.Debouncer[catalog.FilterSet]
	logger    zerolog.Logger

	closeOnce sync.Once
}

// New creates a Session. onChange receives every new View and may be nil.
func New(fetcher pagination.ChunkFetcher, cfg Config, onChange func(pagination.View)) (*Session, error) {
	id := uuid.NewString()
	logger := logging.NewLogger(logging.ComponentBrowse).With().Str("session_id", id).Logger()

	ctrl, err := pagination.NewController(fetcher, cfg.Pagination, logger)
	if err != nil {
		return nil, err
	}
	if onChange != nil {
		ctrl.OnChange(onChange)
	}

	s := &Session{id: id, ctrl: ctrl, logger: logger}
	s.debouncer = debounce.New(cfg.DebounceDelay, s.stabilized)
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

// Start shows the first page for the initial filters.
func (s *Session) Start(initial catalog.FilterSet) {
	s.logger.Info().Str("filters", initial.String()).Msg("Browse session started")
	s.ctrl.Start(initial)
}

// SetFilters records a filter edit. It takes effect once edits pause for
// the debounce delay.
func (s *Session) SetFilters(f catalog.FilterSet) {
	s.debouncer.Submit(f)
}

// ApplyFiltersNow applies f without waiting for the debounce delay.
func (s *Session) ApplyFiltersNow(f catalog.FilterSet) {
	s.debouncer.Submit(f)
	s.debouncer.Flush()
}

// FiltersPending reports whether a filter edit is waiting to take effect.
func (s *Session) FiltersPending() bool {
	return s.debouncer.Pending()
}

// Next moves one display page forward.
func (s *Session) Next() { s.ctrl.Next() }

// Previous moves one display page back.
func (s *Session) Previous() { s.ctrl.Previous() }

// Retry re-issues a failed fetch.
func (s *Session) Retry() { s.ctrl.Retry() }

// Dismiss abandons a failed fetch.
func (s *Session) Dismiss() { s.ctrl.Dismiss() }

// View returns the current view.
func (s *Session) View() pagination.View {
	return s.ctrl.View()
}

// State returns the current pagination state.
func (s *Session) State() pagination.State {
	return s.ctrl.State()
}

// Close stops the debouncer, then the controller. Pending filter edits are
// dropped and in-flight fetches are cancelled.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.debouncer.Stop()
		s.ctrl.Close()
		s.logger.Info().Msg("Browse session closed")
	})
}

func (s *Session) stabilized(f catalog.FilterSet) {
	if err := f.Validate(); err != nil {
		s.logger.Warn().Err(err).Str("filters", f.String()).Msg("Ignoring invalid filters")
		return
	}
	s.logger.Debug().Str("filters", f.String()).Msg("Filters stabilized")
	s.ctrl.OnFiltersStabilized(f)
}
