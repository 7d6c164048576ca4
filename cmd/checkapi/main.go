// Command checkapi probes a running travel backend and verifies every
// endpoint the dashboard consumes: response shapes, ok flags, line echoes,
// and crowd levels the ranker recognizes. It goes through the same client
// the dashboard uses, so a passing check means the dashboard can render.
//
// Usage:
//
//	BACKEND_URL=http://localhost:8000 go run ./cmd/checkapi
//	go run ./cmd/checkapi -backend http://localhost:8000
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sgcommute/travel-dashboard/internal/adapter/travelapi"
	"github.com/sgcommute/travel-dashboard/internal/config"
	"github.com/sgcommute/travel-dashboard/internal/domain"
	"github.com/sgcommute/travel-dashboard/internal/observability"
)

// phase tracks pass/fail for one endpoint check.
type phase struct {
	name    string
	skipped string
	errors  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	backend := flag.String("backend", "", "backend base URL (overrides BACKEND_URL)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}
	if *backend != "" {
		cfg.BackendURL = *backend
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, cfg))
}

func run(ctx context.Context, cfg *config.Config) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	client := travelapi.NewClient(cfg.BackendURL, cfg.FetchTimeout, cfg.RateLimit, observability.NewMetrics(), logger)

	fmt.Println("=== Travel Backend Contract Check ===")
	fmt.Printf("Backend: %s\n", cfg.BackendURL)

	phases := []*phase{
		checkHealth(ctx, client),
		checkWeather(ctx, client),
		checkAlerts(ctx, client),
		checkCrowd(ctx, client, cfg.Lines),
		checkUnknownLine(ctx, client),
		checkBus(ctx, client, cfg.BusStop, cfg.BusService),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		switch {
		case p.skipped != "":
			status = fmt.Sprintf("\033[33mSKIP (%s)\033[0m", p.skipped)
		case !p.passed():
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-36s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll checks passed.")
		return 0
	}
	fmt.Println("\nContract check FAILED.")
	return 1
}

func checkHealth(ctx context.Context, c *travelapi.Client) *phase {
	p := &phase{name: "Health"}
	h, err := c.FetchHealth(ctx)
	if err != nil {
		p.errorf("fetch: %v", err)
		return p
	}
	if h.Status == "" {
		p.errorf("status field is empty")
	}
	return p
}

func checkWeather(ctx context.Context, c *travelapi.Client) *phase {
	p := &phase{name: "Weather forecast"}
	snap, err := c.FetchWeather(ctx)
	if err != nil {
		p.errorf("fetch: %v", err)
		return p
	}
	if len(snap.Areas) == 0 {
		p.errorf("no forecast areas returned")
	}
	for i, a := range snap.Areas {
		if a.Name == "" {
			p.errorf("area %d: empty name", i)
		}
		if a.Forecast == "" {
			p.errorf("area %d (%s): empty forecast", i, a.Name)
		}
	}
	return p
}

func checkAlerts(ctx context.Context, c *travelapi.Client) *phase {
	p := &phase{name: "Rail alerts"}
	snap, err := c.FetchRailAlerts(ctx)
	if err != nil {
		p.errorf("fetch: %v", err)
		return p
	}
	if !snap.OK && snap.Error == "" {
		p.errorf("ok=false with no error field")
	}
	for i, a := range snap.Alerts {
		if a.Line == "" {
			p.errorf("alert %d: empty line", i)
		}
		if a.Status == "" {
			p.errorf("alert %d (%s): empty status", i, a.Line)
		}
	}
	return p
}

func checkCrowd(ctx context.Context, c *travelapi.Client, lines []string) *phase {
	p := &phase{name: fmt.Sprintf("Crowd + forecast (%d lines)", len(lines))}
	for _, line := range lines {
		snap, err := c.FetchCrowd(ctx, line)
		if err != nil {
			p.errorf("%s: crowd fetch: %v", line, err)
			continue
		}
		if !snap.OK {
			p.errorf("%s: ok=false: %s", line, snap.Error)
			continue
		}
		if snap.Line != line {
			p.errorf("%s: response echoes line %q", line, snap.Line)
		}
		for _, st := range snap.Stations {
			if st.CrowdLevel != "" && domain.CrowdRank(st.CrowdLevel) == 0 {
				p.errorf("%s %s: crowd level %q not recognized by the ranker", line, st.StationCode, st.CrowdLevel)
			}
		}

		fc, err := c.FetchCrowdForecast(ctx, line)
		if err != nil {
			p.errorf("%s: forecast fetch: %v", line, err)
			continue
		}
		if fc.OK {
			for i, row := range fc.Forecast {
				if row.TimeSlot == "" {
					p.errorf("%s: forecast row %d missing time slot", line, i)
				}
			}
		}
	}
	return p
}

// checkUnknownLine verifies the backend degrades to an ok:false body for
// unsupported lines instead of an HTTP error, which is what lets the
// dashboard fall back to its no-data card.
func checkUnknownLine(ctx context.Context, c *travelapi.Client) *phase {
	p := &phase{name: "Unknown line degrades gracefully"}
	snap, err := c.FetchCrowd(ctx, "ZZZ")
	if err != nil {
		p.errorf("expected ok:false body, got: %v", err)
		return p
	}
	if snap.OK {
		p.errorf("backend accepted unknown line ZZZ")
	}
	return p
}

func checkBus(ctx context.Context, c *travelapi.Client, stop, service string) *phase {
	p := &phase{name: "Bus arrivals"}
	if stop == "" {
		p.skipped = "BUS_STOP not set"
		return p
	}

	snap, err := c.FetchBusArrivals(ctx, stop, service)
	if err != nil {
		p.errorf("fetch: %v", err)
		return p
	}
	if !snap.OK {
		p.errorf("ok=false: %s", snap.Error)
		return p
	}
	if snap.BusStopCode != stop {
		p.errorf("response echoes stop %q, requested %q", snap.BusStopCode, stop)
	}
	if service != "" {
		for i, svc := range snap.Services {
			if svc.ServiceNo != service {
				p.errorf("service %d: got %q, requested only %q", i, svc.ServiceNo, service)
			}
		}
	}
	return p
}
