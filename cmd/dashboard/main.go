package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/sgcommute/travel-dashboard/internal/adapter/ops"
	"github.com/sgcommute/travel-dashboard/internal/adapter/travelapi"
	"github.com/sgcommute/travel-dashboard/internal/config"
	"github.com/sgcommute/travel-dashboard/internal/dashboard"
	"github.com/sgcommute/travel-dashboard/internal/domain"
	"github.com/sgcommute/travel-dashboard/internal/observability"
)

func main() {
	lineFlag := flag.String("line", "", "initial MRT line code (overrides DEFAULT_LINE)")
	interactive := flag.Bool("interactive", false, "read line codes from stdin to switch the crowd cards")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if *lineFlag != "" {
		code := strings.ToUpper(strings.TrimSpace(*lineFlag))
		if !slices.Contains(cfg.Lines, code) {
			logger.Error("unknown line code", "line", code, "configured", cfg.Lines)
			os.Exit(1)
		}
		cfg.DefaultLine = code
	}

	client := travelapi.NewClient(cfg.BackendURL, cfg.FetchTimeout, cfg.RateLimit, metrics, logger)

	vm := dashboard.New(client, dashboard.Options{
		Lines:       cfg.Lines,
		DefaultLine: cfg.DefaultLine,
		BusStop:     cfg.BusStop,
		BusService:  cfg.BusService,
	}, logger, metrics)

	srv := ops.New(cfg.HTTPAddr, vm, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", "error", err)
		}
	}()

	vm.Initialize(ctx)

	// One-shot mode: render the settled state and exit.
	if cfg.RefreshInterval == 0 && !*interactive {
		render(os.Stdout, vm, cfg.BusStop)
		shutdown(srv, cfg.ShutdownTimeout, logger)
		if vm.Snapshot().Err != "" {
			os.Exit(1)
		}
		return
	}

	if *interactive {
		go readSelections(ctx, vm, logger)
	}

	var tick <-chan time.Time
	if cfg.RefreshInterval > 0 {
		ticker := time.NewTicker(cfg.RefreshInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	// The initial load left a pending update, so the loop renders the first
	// frame immediately. Later frames follow state changes, coalesced.
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			shutdown(srv, cfg.ShutdownTimeout, logger)
			return
		case <-tick:
			vm.Initialize(ctx)
		case <-vm.Updates():
			render(os.Stdout, vm, cfg.BusStop)
		}
	}
}

// readSelections feeds stdin line codes into the view-model until EOF.
func readSelections(ctx context.Context, vm *dashboard.ViewModel, logger *slog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		code := strings.TrimSpace(scanner.Text())
		if code == "" {
			continue
		}
		if err := vm.SelectLine(ctx, code); err != nil {
			logger.Warn("line selection rejected", "input", code, "error", err)
			fmt.Fprintf(os.Stderr, "unknown line %q (choose from %s)\n",
				code, strings.Join(vm.Lines(), ", "))
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Warn("stdin read error", "error", err)
	}
}

// render writes one dashboard frame to w. Loading frames are skipped so each
// refresh produces a single settled frame.
func render(w io.Writer, vm *dashboard.ViewModel, busStop string) {
	state := vm.Snapshot()
	if state.Loading {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "SG Travel Dashboard")
	if !state.LastUpdated.IsZero() {
		fmt.Fprintf(w, "Updated %s\n", state.LastUpdated.Format(time.Kitchen))
	}

	if state.Err != "" {
		fmt.Fprintln(w, state.Err)
		return
	}

	if state.Health != nil {
		fmt.Fprintf(w, "Backend: %s\n", state.Health.Status)
	}

	printCard(w, "Weather", domain.WeatherLines(state.Weather))
	printCard(w, "Rail Alerts", domain.AlertLines(state.Alerts))
	printCard(w, fmt.Sprintf("Station Crowd (%s)", state.SelectedLine), domain.CrowdLines(state.Crowd))
	printCard(w, fmt.Sprintf("Crowd Forecast (%s)", state.SelectedLine), domain.ForecastLines(state.CrowdForecast))
	if busStop != "" {
		printCard(w, fmt.Sprintf("Bus Arrivals (%s)", busStop), domain.BusLines(state.Bus))
	}
}

func printCard(w io.Writer, title string, lines []string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, title)
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

func shutdown(srv *ops.Server, timeout time.Duration, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}
}
