// Package dashboard owns the view state of the travel dashboard: one
// immutable State record, the Store that serializes transitions to it, and
// the ViewModel that orchestrates backend fetches into those transitions.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/sgcommute/travel-dashboard/internal/domain"
	"github.com/sgcommute/travel-dashboard/internal/observability"
)

// LoadErrorMessage is the single user-visible message shown when any part of
// the initial load fails. Which fetch failed is logged, never displayed.
const LoadErrorMessage = "Failed to load dashboard data."

// ErrUnknownLine is returned when a selection is not in the configured set.
var ErrUnknownLine = errors.New("unknown line code")

// Backend is the travel API surface the view-model reads from.
type Backend interface {
	FetchHealth(ctx context.Context) (domain.HealthStatus, error)
	FetchWeather(ctx context.Context) (domain.WeatherSnapshot, error)
	FetchRailAlerts(ctx context.Context) (domain.RailAlertSnapshot, error)
	FetchCrowd(ctx context.Context, line string) (domain.CrowdSnapshot, error)
	FetchCrowdForecast(ctx context.Context, line string) (domain.CrowdForecastSnapshot, error)
	FetchBusArrivals(ctx context.Context, stop, service string) (domain.BusArrivalsSnapshot, error)
}

// Options configures a ViewModel.
type Options struct {
	Lines       []string
	DefaultLine string

	// BusStop enables the bus arrivals card when non-empty. BusService
	// optionally narrows it to one service number.
	BusStop    string
	BusService string

	// Clock defaults to the real clock when nil.
	Clock clockwork.Clock
}

// ViewModel orchestrates the dashboard's fetches and owns its state. The
// initial triple fetch is all-or-nothing; the per-line crowd pair and the
// bus card are best-effort. Selections carry a generation counter so a
// result that lands after the line changed again is discarded instead of
// overwriting the newer selection's data.
type ViewModel struct {
	backend Backend
	store   *Store

	lines      []string
	busStop    string
	busService string

	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	gen         atomic.Uint64
	initialized atomic.Bool
}

// New creates a ViewModel with the default line selected and no data loaded.
func New(backend Backend, opts Options, logger *slog.Logger, metrics *observability.Metrics) *ViewModel {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &ViewModel{
		backend:    backend,
		store:      NewStore(State{SelectedLine: opts.DefaultLine}),
		lines:      slices.Clone(opts.Lines),
		busStop:    opts.BusStop,
		busService: opts.BusService,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// Initialize fetches health, weather, and rail alerts concurrently, joined
// all-or-nothing: one transition publishes either all three snapshots or a
// single error message with every slot cleared. Loading is true from entry
// until the join settles, then false, exactly once per call. On success the
// crowd pair for the current selection and the bus card refresh best-effort
// before Initialize returns.
func (vm *ViewModel) Initialize(ctx context.Context) {
	vm.store.Dispatch(func(s State) State {
		s.Loading = true
		s.Err = ""
		return s
	})

	var (
		health  domain.HealthStatus
		weather domain.WeatherSnapshot
		alerts  domain.RailAlertSnapshot
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if health, err = vm.backend.FetchHealth(gctx); err != nil {
			return fmt.Errorf("fetch health: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if weather, err = vm.backend.FetchWeather(gctx); err != nil {
			return fmt.Errorf("fetch weather: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if alerts, err = vm.backend.FetchRailAlerts(gctx); err != nil {
			return fmt.Errorf("fetch rail alerts: %w", err)
		}
		return nil
	})
	err := g.Wait()

	vm.store.Dispatch(func(s State) State {
		s.Loading = false
		if err != nil {
			s.Err = LoadErrorMessage
			s.Health, s.Weather, s.Alerts = nil, nil, nil
			return s
		}
		s.Err = ""
		s.Health = &health
		s.Weather = &weather
		s.Alerts = &alerts
		s.LastUpdated = vm.clock.Now()
		return s
	})

	if err != nil {
		vm.metrics.InitialLoads.WithLabelValues("error").Inc()
		vm.logger.Error("initial load failed", "error", err)
		return
	}

	vm.metrics.InitialLoads.WithLabelValues("success").Inc()
	vm.initialized.Store(true)
	vm.metrics.DashboardReady.Set(1)
	vm.logger.Info("initial load complete",
		"areas", len(weather.Areas),
		"alerts", len(alerts.Alerts),
		"line", vm.store.State().SelectedLine,
	)

	vm.refreshCrowd(ctx, vm.store.State().SelectedLine, vm.gen.Load())
	vm.refreshBus(ctx)
}

// SelectLine switches the selection and refreshes the crowd pair for it.
// The pair is best-effort: a failed fetch clears its slot so the card falls
// back to its no-data text, and the global error state never changes. The
// current crowd data is cleared immediately so a stale line is never shown
// under the new selection's heading.
func (vm *ViewModel) SelectLine(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !slices.Contains(vm.lines, code) {
		return fmt.Errorf("%w: %q", ErrUnknownLine, code)
	}

	gen := vm.gen.Add(1)
	vm.metrics.LineSelections.Inc()
	vm.store.Dispatch(func(s State) State {
		s.SelectedLine = code
		s.Crowd = nil
		s.CrowdForecast = nil
		return s
	})
	vm.logger.Debug("line selected", "line", code)

	vm.refreshCrowd(ctx, code, gen)
	return nil
}

// RankedStations derives the current crowd stations ordered by descending
// intensity. It never mutates the snapshot.
func (vm *ViewModel) RankedStations() []domain.CrowdStation {
	s := vm.store.State()
	if s.Crowd == nil {
		return nil
	}
	return domain.RankStations(s.Crowd.Stations)
}

// Snapshot returns the current view state.
func (vm *ViewModel) Snapshot() State {
	return vm.store.State()
}

// Updates signals after every state transition, for render loops.
func (vm *ViewModel) Updates() <-chan struct{} {
	return vm.store.Updates()
}

// Lines returns the configured line codes in display order.
func (vm *ViewModel) Lines() []string {
	return slices.Clone(vm.lines)
}

// CheckReadiness reports nil once the first initial load has succeeded.
func (vm *ViewModel) CheckReadiness(_ context.Context) error {
	if vm.initialized.Load() {
		return nil
	}
	if vm.store.State().Err != "" {
		return errors.New("last initial load failed")
	}
	return errors.New("initial load has not completed")
}

// refreshCrowd fetches the crowd pair for a line concurrently and applies
// the results only if gen is still the current generation at apply time.
// Fetch failures are logged and leave the failed slot empty.
func (vm *ViewModel) refreshCrowd(ctx context.Context, line string, gen uint64) {
	var (
		crowd       domain.CrowdSnapshot
		forecast    domain.CrowdForecastSnapshot
		crowdErr    error
		forecastErr error
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		crowd, crowdErr = vm.backend.FetchCrowd(ctx, line)
	}()
	go func() {
		defer wg.Done()
		forecast, forecastErr = vm.backend.FetchCrowdForecast(ctx, line)
	}()
	wg.Wait()

	if crowdErr != nil {
		vm.logger.Warn("crowd fetch failed", "line", line, "error", crowdErr)
	}
	if forecastErr != nil {
		vm.logger.Warn("crowd forecast fetch failed", "line", line, "error", forecastErr)
	}

	applied := false
	vm.store.Dispatch(func(s State) State {
		if gen != vm.gen.Load() {
			return s
		}
		applied = true
		s.Crowd = nil
		if crowdErr == nil {
			s.Crowd = &crowd
		}
		s.CrowdForecast = nil
		if forecastErr == nil {
			s.CrowdForecast = &forecast
		}
		s.LastUpdated = vm.clock.Now()
		return s
	})

	if !applied {
		vm.metrics.StaleDiscards.Inc()
		vm.logger.Debug("discarded stale crowd result", "line", line, "generation", gen)
	}
}

// refreshBus fetches bus arrivals best-effort when a stop is configured.
func (vm *ViewModel) refreshBus(ctx context.Context) {
	if vm.busStop == "" {
		return
	}

	snap, err := vm.backend.FetchBusArrivals(ctx, vm.busStop, vm.busService)
	if err != nil {
		vm.logger.Warn("bus arrivals fetch failed", "stop", vm.busStop, "error", err)
		vm.store.Dispatch(func(s State) State {
			s.Bus = nil
			return s
		})
		return
	}

	vm.store.Dispatch(func(s State) State {
		s.Bus = &snap
		s.LastUpdated = vm.clock.Now()
		return s
	})
}
