package dashboard

import (
	"sync"
	"time"

	"github.com/sgcommute/travel-dashboard/internal/domain"
)

// State is the complete view state at one instant. Transitions replace the
// whole value; neither the struct nor the snapshots it points to are mutated
// in place. A nil snapshot means that slot has no data, either because it
// was never fetched or because its fetch failed.
type State struct {
	Loading bool
	Err     string

	Health  *domain.HealthStatus
	Weather *domain.WeatherSnapshot
	Alerts  *domain.RailAlertSnapshot

	SelectedLine  string
	Crowd         *domain.CrowdSnapshot
	CrowdForecast *domain.CrowdForecastSnapshot

	Bus *domain.BusArrivalsSnapshot

	// LastUpdated is the local time of the most recent applied fetch.
	LastUpdated time.Time
}

// Store holds the current State and serializes transitions. All updates go
// through Dispatch, so state flows one way: transition, then notification,
// then render from a fresh State() read.
type Store struct {
	mu      sync.RWMutex
	state   State
	updates chan struct{}
}

// NewStore creates a Store with the given initial state.
func NewStore(initial State) *Store {
	return &Store{
		state: initial,
		// Capacity one makes notifications coalesce: a slow consumer sees
		// the latest state instead of a backlog of intermediate ones.
		updates: make(chan struct{}, 1),
	}
}

// State returns the current state value.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch replaces the state with the transition's result and notifies
// subscribers. The transition runs under the store lock and must not block.
func (s *Store) Dispatch(transition func(State) State) State {
	s.mu.Lock()
	s.state = transition(s.state)
	next := s.state
	s.mu.Unlock()

	select {
	case s.updates <- struct{}{}:
	default:
	}
	return next
}

// Updates signals after every dispatched transition. Read the latest state
// with State after each signal.
func (s *Store) Updates() <-chan struct{} {
	return s.updates
}
