package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgcommute/travel-dashboard/internal/domain"
	"github.com/sgcommute/travel-dashboard/internal/observability"
)

var (
	errBackendDown = errors.New("backend down")
	testStart      = time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
)

// mockBackend returns canned data; individual fetches are overridable per test.
type mockBackend struct {
	healthFn   func(ctx context.Context) (domain.HealthStatus, error)
	weatherFn  func(ctx context.Context) (domain.WeatherSnapshot, error)
	alertsFn   func(ctx context.Context) (domain.RailAlertSnapshot, error)
	crowdFn    func(ctx context.Context, line string) (domain.CrowdSnapshot, error)
	forecastFn func(ctx context.Context, line string) (domain.CrowdForecastSnapshot, error)
	busFn      func(ctx context.Context, stop, service string) (domain.BusArrivalsSnapshot, error)
}

func (m *mockBackend) FetchHealth(ctx context.Context) (domain.HealthStatus, error) {
	if m.healthFn != nil {
		return m.healthFn(ctx)
	}
	return domain.HealthStatus{Status: "ok", TimeUTC: "2026-03-02T07:30:00Z"}, nil
}

func (m *mockBackend) FetchWeather(ctx context.Context) (domain.WeatherSnapshot, error) {
	if m.weatherFn != nil {
		return m.weatherFn(ctx)
	}
	return domain.WeatherSnapshot{
		UpdatedAt: "2026-03-02T07:30:00Z",
		Areas:     []domain.ForecastArea{{Name: "Tanjong Pagar", Forecast: "Sunny"}},
	}, nil
}

func (m *mockBackend) FetchRailAlerts(ctx context.Context) (domain.RailAlertSnapshot, error) {
	if m.alertsFn != nil {
		return m.alertsFn(ctx)
	}
	return domain.RailAlertSnapshot{
		OK:     true,
		Source: "LTA Datamall",
		Alerts: []domain.RailAlert{{Line: "NSL", Status: "No Service Alert"}},
	}, nil
}

func (m *mockBackend) FetchCrowd(ctx context.Context, line string) (domain.CrowdSnapshot, error) {
	if m.crowdFn != nil {
		return m.crowdFn(ctx, line)
	}
	return domain.CrowdSnapshot{
		OK:   true,
		Line: line,
		Stations: []domain.CrowdStation{
			{Station: "Yishun", CrowdLevel: "low"},
			{Station: "Orchard", CrowdLevel: "high"},
		},
	}, nil
}

func (m *mockBackend) FetchCrowdForecast(ctx context.Context, line string) (domain.CrowdForecastSnapshot, error) {
	if m.forecastFn != nil {
		return m.forecastFn(ctx, line)
	}
	return domain.CrowdForecastSnapshot{
		OK:       true,
		Line:     line,
		Forecast: []domain.CrowdForecastRow{{Station: "Orchard", TimeSlot: "0930", CrowdLevel: "low"}},
	}, nil
}

func (m *mockBackend) FetchBusArrivals(ctx context.Context, stop, service string) (domain.BusArrivalsSnapshot, error) {
	if m.busFn != nil {
		return m.busFn(ctx, stop, service)
	}
	return domain.BusArrivalsSnapshot{
		OK:          true,
		BusStopCode: stop,
		Services:    []domain.BusService{{ServiceNo: "15"}},
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{
		Lines:       []string{"NSL", "EWL", "CCL"},
		DefaultLine: "NSL",
		Clock:       clockwork.NewFakeClockAt(testStart),
	}
}

func newTestVM(b Backend) *ViewModel {
	return New(b, testOptions(), testLogger(), observability.NewMetricsForTesting())
}

func TestViewModel_Initialize_Success(t *testing.T) {
	var vm *ViewModel
	var loadingDuringFetch atomic.Bool
	b := &mockBackend{
		healthFn: func(context.Context) (domain.HealthStatus, error) {
			loadingDuringFetch.Store(vm.Snapshot().Loading)
			return domain.HealthStatus{Status: "ok"}, nil
		},
	}
	vm = newTestVM(b)

	vm.Initialize(context.Background())

	state := vm.Snapshot()
	assert.True(t, loadingDuringFetch.Load(), "loading must be on while fetches are in flight")
	assert.False(t, state.Loading)
	assert.Empty(t, state.Err)
	require.NotNil(t, state.Health)
	require.NotNil(t, state.Weather)
	require.NotNil(t, state.Alerts)
	assert.Equal(t, testStart, state.LastUpdated)
	assert.NoError(t, vm.CheckReadiness(context.Background()))

	select {
	case <-vm.Updates():
	default:
		t.Fatal("expected a pending update signal after initialize")
	}
}

func TestViewModel_Initialize_LoadsCrowdForDefaultLine(t *testing.T) {
	vm := newTestVM(&mockBackend{})

	vm.Initialize(context.Background())

	state := vm.Snapshot()
	assert.Equal(t, "NSL", state.SelectedLine)
	require.NotNil(t, state.Crowd)
	assert.Equal(t, "NSL", state.Crowd.Line)
	require.NotNil(t, state.CrowdForecast)
	assert.Equal(t, "NSL", state.CrowdForecast.Line)
}

func TestViewModel_Initialize_SingleFailureCollapsesToOneError(t *testing.T) {
	failHealth := func(m *mockBackend) {
		m.healthFn = func(context.Context) (domain.HealthStatus, error) {
			return domain.HealthStatus{}, errBackendDown
		}
	}
	failWeather := func(m *mockBackend) {
		m.weatherFn = func(context.Context) (domain.WeatherSnapshot, error) {
			return domain.WeatherSnapshot{}, errBackendDown
		}
	}
	failAlerts := func(m *mockBackend) {
		m.alertsFn = func(context.Context) (domain.RailAlertSnapshot, error) {
			return domain.RailAlertSnapshot{}, errBackendDown
		}
	}

	tests := []struct {
		name string
		fail func(*mockBackend)
	}{
		{"health fails", failHealth},
		{"weather fails", failWeather},
		{"alerts fails", failAlerts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var crowdCalls atomic.Int32
			b := &mockBackend{
				crowdFn: func(_ context.Context, line string) (domain.CrowdSnapshot, error) {
					crowdCalls.Add(1)
					return domain.CrowdSnapshot{OK: true, Line: line}, nil
				},
			}
			tt.fail(b)
			vm := newTestVM(b)

			vm.Initialize(context.Background())

			state := vm.Snapshot()
			assert.False(t, state.Loading)
			assert.Equal(t, LoadErrorMessage, state.Err)

			// Partial successes are suppressed, not displayed.
			assert.Nil(t, state.Health)
			assert.Nil(t, state.Weather)
			assert.Nil(t, state.Alerts)

			// The crowd pair is not fetched after a failed load.
			assert.Zero(t, crowdCalls.Load())
			assert.Error(t, vm.CheckReadiness(context.Background()))
		})
	}
}

func TestViewModel_Initialize_CrowdFailureIsNotGlobal(t *testing.T) {
	b := &mockBackend{
		crowdFn: func(context.Context, string) (domain.CrowdSnapshot, error) {
			return domain.CrowdSnapshot{}, errBackendDown
		},
	}
	vm := newTestVM(b)

	vm.Initialize(context.Background())

	state := vm.Snapshot()
	assert.Empty(t, state.Err)
	assert.Nil(t, state.Crowd)
	assert.Equal(t, []string{"No crowd data."}, domain.CrowdLines(state.Crowd))

	// The forecast half of the pair still lands.
	require.NotNil(t, state.CrowdForecast)
	assert.NoError(t, vm.CheckReadiness(context.Background()))
}

func TestViewModel_SelectLine_FetchesPairForLine(t *testing.T) {
	var mu sync.Mutex
	var crowdLines, forecastLines []string
	b := &mockBackend{
		crowdFn: func(_ context.Context, line string) (domain.CrowdSnapshot, error) {
			mu.Lock()
			crowdLines = append(crowdLines, line)
			mu.Unlock()
			return domain.CrowdSnapshot{OK: true, Line: line}, nil
		},
		forecastFn: func(_ context.Context, line string) (domain.CrowdForecastSnapshot, error) {
			mu.Lock()
			forecastLines = append(forecastLines, line)
			mu.Unlock()
			return domain.CrowdForecastSnapshot{OK: true, Line: line}, nil
		},
	}
	vm := newTestVM(b)

	require.NoError(t, vm.SelectLine(context.Background(), " ewl "))

	state := vm.Snapshot()
	assert.Equal(t, "EWL", state.SelectedLine)
	require.NotNil(t, state.Crowd)
	assert.Equal(t, "EWL", state.Crowd.Line)
	require.NotNil(t, state.CrowdForecast)
	assert.Equal(t, "EWL", state.CrowdForecast.Line)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"EWL"}, crowdLines)
	assert.Equal(t, []string{"EWL"}, forecastLines)
}

func TestViewModel_SelectLine_UnknownCode(t *testing.T) {
	var crowdCalls atomic.Int32
	b := &mockBackend{
		crowdFn: func(_ context.Context, line string) (domain.CrowdSnapshot, error) {
			crowdCalls.Add(1)
			return domain.CrowdSnapshot{OK: true, Line: line}, nil
		},
	}
	vm := newTestVM(b)

	err := vm.SelectLine(context.Background(), "XYZ")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownLine)
	assert.Equal(t, "NSL", vm.Snapshot().SelectedLine)
	assert.Zero(t, crowdCalls.Load())
}

func TestViewModel_SelectLine_FailuresAreSwallowed(t *testing.T) {
	b := &mockBackend{
		crowdFn: func(context.Context, string) (domain.CrowdSnapshot, error) {
			return domain.CrowdSnapshot{}, errBackendDown
		},
		forecastFn: func(context.Context, string) (domain.CrowdForecastSnapshot, error) {
			return domain.CrowdForecastSnapshot{}, errBackendDown
		},
	}
	vm := newTestVM(b)

	require.NoError(t, vm.SelectLine(context.Background(), "EWL"))

	state := vm.Snapshot()
	assert.Empty(t, state.Err)
	assert.Nil(t, state.Crowd)
	assert.Nil(t, state.CrowdForecast)
	assert.Equal(t, []string{"No crowd data."}, domain.CrowdLines(state.Crowd))
	assert.Equal(t, []string{"No forecast data."}, domain.ForecastLines(state.CrowdForecast))
}

func TestViewModel_SelectLine_ClearsPreviousLineData(t *testing.T) {
	var vm *ViewModel
	var clearedBeforeFetch atomic.Bool
	b := &mockBackend{
		crowdFn: func(_ context.Context, line string) (domain.CrowdSnapshot, error) {
			if line == "EWL" {
				clearedBeforeFetch.Store(vm.Snapshot().Crowd == nil)
			}
			return domain.CrowdSnapshot{OK: true, Line: line,
				Stations: []domain.CrowdStation{{Station: "Bugis", CrowdLevel: "moderate"}}}, nil
		},
	}
	vm = newTestVM(b)

	vm.Initialize(context.Background())
	require.NotNil(t, vm.Snapshot().Crowd)

	require.NoError(t, vm.SelectLine(context.Background(), "EWL"))
	assert.True(t, clearedBeforeFetch.Load(),
		"previous line's crowd data must be cleared before the new fetch lands")
}

func TestViewModel_StaleSelectionDiscarded(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	b := &mockBackend{
		crowdFn: func(_ context.Context, line string) (domain.CrowdSnapshot, error) {
			if line == "EWL" {
				close(started)
				<-release
			}
			return domain.CrowdSnapshot{OK: true, Line: line,
				Stations: []domain.CrowdStation{{Station: "Expo", CrowdLevel: "high"}}}, nil
		},
	}
	metrics := observability.NewMetricsForTesting()
	vm := New(b, testOptions(), testLogger(), metrics)

	done := make(chan error, 1)
	go func() {
		done <- vm.SelectLine(context.Background(), "EWL")
	}()
	<-started

	// A newer selection completes while EWL's crowd fetch is in flight.
	require.NoError(t, vm.SelectLine(context.Background(), "CCL"))
	require.NotNil(t, vm.Snapshot().Crowd)

	close(release)
	require.NoError(t, <-done)

	state := vm.Snapshot()
	assert.Equal(t, "CCL", state.SelectedLine)
	require.NotNil(t, state.Crowd)
	assert.Equal(t, "CCL", state.Crowd.Line, "stale EWL result must not overwrite CCL data")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StaleDiscards))
}

func TestViewModel_RankedStations(t *testing.T) {
	vm := newTestVM(&mockBackend{})

	assert.Nil(t, vm.RankedStations(), "no crowd snapshot yet")

	vm.Initialize(context.Background())

	ranked := vm.RankedStations()
	require.Len(t, ranked, 2)
	assert.Equal(t, "Orchard", ranked[0].Station)
	assert.Equal(t, "Yishun", ranked[1].Station)

	// Derivation does not touch the stored snapshot.
	state := vm.Snapshot()
	assert.Equal(t, "Yishun", state.Crowd.Stations[0].Station)
}

func TestViewModel_BusCard(t *testing.T) {
	t.Run("fetches when a stop is configured", func(t *testing.T) {
		var gotStop, gotService string
		b := &mockBackend{
			busFn: func(_ context.Context, stop, service string) (domain.BusArrivalsSnapshot, error) {
				gotStop, gotService = stop, service
				return domain.BusArrivalsSnapshot{OK: true, BusStopCode: stop}, nil
			},
		}
		opts := testOptions()
		opts.BusStop = "83139"
		opts.BusService = "15"
		vm := New(b, opts, testLogger(), observability.NewMetricsForTesting())

		vm.Initialize(context.Background())

		assert.Equal(t, "83139", gotStop)
		assert.Equal(t, "15", gotService)
		require.NotNil(t, vm.Snapshot().Bus)
		assert.Equal(t, "83139", vm.Snapshot().Bus.BusStopCode)
	})

	t.Run("failure clears the slot without a global error", func(t *testing.T) {
		b := &mockBackend{
			busFn: func(context.Context, string, string) (domain.BusArrivalsSnapshot, error) {
				return domain.BusArrivalsSnapshot{}, errBackendDown
			},
		}
		opts := testOptions()
		opts.BusStop = "83139"
		vm := New(b, opts, testLogger(), observability.NewMetricsForTesting())

		vm.Initialize(context.Background())

		state := vm.Snapshot()
		assert.Nil(t, state.Bus)
		assert.Empty(t, state.Err)
		assert.Equal(t, []string{"No bus data."}, domain.BusLines(state.Bus))
	})

	t.Run("skipped without a stop", func(t *testing.T) {
		var busCalls atomic.Int32
		b := &mockBackend{
			busFn: func(context.Context, string, string) (domain.BusArrivalsSnapshot, error) {
				busCalls.Add(1)
				return domain.BusArrivalsSnapshot{}, nil
			},
		}
		vm := newTestVM(b)

		vm.Initialize(context.Background())

		assert.Zero(t, busCalls.Load())
		assert.Nil(t, vm.Snapshot().Bus)
	})
}

func TestViewModel_CheckReadiness(t *testing.T) {
	t.Run("not ready before first load", func(t *testing.T) {
		vm := newTestVM(&mockBackend{})
		err := vm.CheckReadiness(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not completed")
	})

	t.Run("reports failed load", func(t *testing.T) {
		b := &mockBackend{
			healthFn: func(context.Context) (domain.HealthStatus, error) {
				return domain.HealthStatus{}, errBackendDown
			},
		}
		vm := newTestVM(b)
		vm.Initialize(context.Background())

		err := vm.CheckReadiness(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed")
	})

	t.Run("ready after success, sticky across later failures", func(t *testing.T) {
		var healthErr atomic.Bool
		b := &mockBackend{
			healthFn: func(context.Context) (domain.HealthStatus, error) {
				if healthErr.Load() {
					return domain.HealthStatus{}, errBackendDown
				}
				return domain.HealthStatus{Status: "ok"}, nil
			},
		}
		vm := newTestVM(b)

		vm.Initialize(context.Background())
		require.NoError(t, vm.CheckReadiness(context.Background()))

		healthErr.Store(true)
		vm.Initialize(context.Background())
		assert.Equal(t, LoadErrorMessage, vm.Snapshot().Err)
		assert.NoError(t, vm.CheckReadiness(context.Background()),
			"readiness means loaded at least once")
	})
}

func TestViewModel_Lines(t *testing.T) {
	vm := newTestVM(&mockBackend{})

	lines := vm.Lines()
	assert.Equal(t, []string{"NSL", "EWL", "CCL"}, lines)

	lines[0] = "XXX"
	assert.Equal(t, []string{"NSL", "EWL", "CCL"}, vm.Lines())
}
