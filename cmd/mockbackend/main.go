// Command mockbackend serves the travel dashboard's backend API locally with
// representative Singapore data, so the dashboard can be developed and demoed
// without a real backend. Crowd levels and bus ETAs are generated once at
// startup from -seed, so repeated runs with the same seed serve identical
// data.
//
// Usage:
//
//	go run ./cmd/mockbackend -addr :8000 -seed 7
//	go run ./cmd/mockbackend -disrupt NSL
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/sgcommute/travel-dashboard/internal/domain"
)

var lineStations = map[string][]string{
	"NSL": {"Jurong East", "Woodlands", "Yishun", "Ang Mo Kio", "Bishan", "Orchard", "City Hall", "Marina Bay"},
	"EWL": {"Pasir Ris", "Tampines", "Bedok", "Paya Lebar", "Bugis", "Raffles Place", "Outram Park", "Boon Lay"},
	"NEL": {"HarbourFront", "Outram Park", "Chinatown", "Dhoby Ghaut", "Serangoon", "Hougang", "Punggol"},
	"CCL": {"Dhoby Ghaut", "Esplanade", "Promenade", "Paya Lebar", "Serangoon", "Bishan", "Botanic Gardens", "Buona Vista"},
	"DTL": {"Bukit Panjang", "Beauty World", "Little India", "Bugis", "Chinatown", "Bencoolen", "Expo"},
	"TEL": {"Woodlands North", "Caldecott", "Orchard Boulevard", "Outram Park", "Shenton Way", "Gardens by the Bay"},
}

var linePrefixes = map[string]string{
	"NSL": "NS", "EWL": "EW", "NEL": "NE", "CCL": "CC", "DTL": "DT", "TEL": "TE",
}

var weatherAreas = []string{
	"Ang Mo Kio", "Bedok", "Bishan", "Boon Lay", "Bukit Batok", "Bukit Merah",
	"Changi", "City", "Clementi", "Jurong East", "Kallang", "Pasir Ris",
	"Punggol", "Queenstown", "Sembawang", "Sengkang", "Serangoon", "Tampines",
	"Toa Payoh", "Tuas", "Woodlands", "Yishun",
}

var forecastTexts = []string{
	"Partly Cloudy (Day)", "Cloudy", "Fair (Day)", "Light Rain", "Showers", "Thundery Showers",
}

var timeSlots = []string{"07:30", "08:00", "08:30", "09:00"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	addr := flag.String("addr", ":8000", "listen address")
	seed := flag.Int64("seed", 1, "seed for generated crowd levels and bus ETAs")
	disrupt := flag.String("disrupt", "", "line code to report as disrupted (e.g. NSL)")
	flag.Parse()

	disrupted := strings.ToUpper(strings.TrimSpace(*disrupt))
	if disrupted != "" {
		if _, ok := lineStations[disrupted]; !ok {
			return fmt.Errorf("-disrupt %q: unknown line", *disrupt)
		}
	}

	s := newServer(rand.New(rand.NewSource(*seed)), clockwork.NewRealClock(), disrupted)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	log.Printf("mock backend listening on %s (seed=%d)", *addr, *seed)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// server holds the data generated at startup. Only timestamps change between
// requests.
type server struct {
	clock     clockwork.Clock
	disrupted string

	crowd     map[string][]domain.CrowdStation
	forecasts map[string][]domain.CrowdForecastRow
	weather   []domain.ForecastArea
	busETAs   []int
	supported []string
}

func newServer(rng *rand.Rand, clock clockwork.Clock, disrupted string) *server {
	s := &server{
		clock:     clock,
		disrupted: disrupted,
		crowd:     map[string][]domain.CrowdStation{},
		forecasts: map[string][]domain.CrowdForecastRow{},
	}

	for _, line := range []string{"NSL", "EWL", "NEL", "CCL", "DTL", "TEL"} {
		s.supported = append(s.supported, line)
		prefix := linePrefixes[line]
		for i, name := range lineStations[line] {
			code := fmt.Sprintf("%s%d", prefix, i+1)
			s.crowd[line] = append(s.crowd[line], domain.CrowdStation{
				StationCode: code,
				Station:     name,
				CrowdLevel:  pickLevel(rng),
			})
			for _, slot := range timeSlots {
				s.forecasts[line] = append(s.forecasts[line], domain.CrowdForecastRow{
					StationCode: code,
					Station:     name,
					TimeSlot:    slot,
					CrowdLevel:  pickLevel(rng),
				})
			}
		}
	}

	for _, area := range weatherAreas {
		s.weather = append(s.weather, domain.ForecastArea{
			Name:     area,
			Forecast: forecastTexts[rng.Intn(len(forecastTexts))],
		})
	}

	for range 3 {
		s.busETAs = append(s.busETAs, 1+rng.Intn(15))
	}

	return s
}

// pickLevel draws a crowd level with quiet stations more common than packed
// ones.
func pickLevel(rng *rand.Rand) string {
	switch v := rng.Float64(); {
	case v < 0.35:
		return "low"
	case v < 0.70:
		return "moderate"
	case v < 0.90:
		return "high"
	default:
		return "veryhigh"
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /weather", s.handleWeather)
	mux.HandleFunc("GET /mrt", s.handleAlerts)
	mux.HandleFunc("GET /mrt/crowd", s.handleCrowd)
	mux.HandleFunc("GET /mrt/crowd-forecast", s.handleCrowdForecast)
	mux.HandleFunc("GET /bus/arrivals", s.handleBusArrivals)
	return logRequests(mux)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL)
		next.ServeHTTP(w, r)
	})
}

func (s *server) now() string {
	return s.clock.Now().UTC().Format(time.RFC3339)
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, domain.HealthStatus{Status: "ok", TimeUTC: s.now()})
}

func (s *server) handleWeather(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, domain.WeatherSnapshot{
		UpdatedAt: s.now(),
		Areas:     s.weather,
	})
}

func (s *server) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	hasDisruption := s.disrupted != ""
	snap := domain.RailAlertSnapshot{
		OK:            true,
		Source:        "LTA Datamall",
		UpdatedAt:     s.now(),
		HasDisruption: &hasDisruption,
	}

	for _, line := range s.supported {
		if line == s.disrupted {
			prefix := linePrefixes[line]
			snap.Alerts = append(snap.Alerts, domain.RailAlert{
				Line:       line,
				Status:     "Disrupted",
				Message:    "Signal fault. Expect additional 20 mins travel time.",
				Timestamp:  s.now(),
				Direction:  "Both",
				Stations:   fmt.Sprintf("%s1-%s5", prefix, prefix),
				BusShuttle: "Available",
			})
			continue
		}
		snap.Alerts = append(snap.Alerts, domain.RailAlert{Line: line, Status: "No Service Alert"})
	}

	writeJSON(w, snap)
}

func (s *server) handleCrowd(w http.ResponseWriter, r *http.Request) {
	line := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("line")))
	stations, ok := s.crowd[line]
	if !ok {
		s.writeInvalidLine(w, line)
		return
	}

	now := s.now()
	out := make([]domain.CrowdStation, len(stations))
	copy(out, stations)
	for i := range out {
		out[i].LastUpdate = now
	}

	writeJSON(w, domain.CrowdSnapshot{
		OK:        true,
		Source:    "LTA Datamall",
		Line:      line,
		UpdatedAt: now,
		Stations:  out,
	})
}

func (s *server) handleCrowdForecast(w http.ResponseWriter, r *http.Request) {
	line := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("line")))
	rows, ok := s.forecasts[line]
	if !ok {
		s.writeInvalidLine(w, line)
		return
	}

	writeJSON(w, domain.CrowdForecastSnapshot{
		OK:        true,
		Source:    "LTA Datamall",
		Line:      line,
		UpdatedAt: s.now(),
		Forecast:  rows,
	})
}

func (s *server) handleBusArrivals(w http.ResponseWriter, r *http.Request) {
	stop := r.URL.Query().Get("stop")
	service := r.URL.Query().Get("service")
	if stop == "" {
		writeJSON(w, map[string]any{"ok": false, "error": "missing_stop"})
		return
	}

	services := []domain.BusService{
		{ServiceNo: "15", Operator: "GAS", Next: s.eta(s.busETAs[0]), Next2: s.eta(s.busETAs[0] + 8), Next3: s.eta(s.busETAs[0] + 16)},
		{ServiceNo: "66", Operator: "SBST", Next: s.eta(s.busETAs[1]), Next2: s.eta(s.busETAs[1] + 11)},
		{ServiceNo: "155", Operator: "SBST", Next: s.eta(s.busETAs[2])},
	}
	if service != "" {
		filtered := services[:0]
		for _, svc := range services {
			if svc.ServiceNo == service {
				filtered = append(filtered, svc)
			}
		}
		services = filtered
	}

	writeJSON(w, domain.BusArrivalsSnapshot{
		OK:          true,
		BusStopCode: stop,
		UpdatedAt:   s.now(),
		Services:    services,
	})
}

func (s *server) eta(minutes int) domain.BusETA {
	arrival := s.clock.Now().Add(time.Duration(minutes) * time.Minute)
	return domain.BusETA{
		EstimatedArrival: arrival.UTC().Format(time.RFC3339),
		ETAMin:           &minutes,
		Load:             "SEA",
		Type:             "DD",
	}
}

// writeInvalidLine mirrors the real backend: unsupported lines get an
// ok:false body with HTTP 200, not an HTTP error.
func (s *server) writeInvalidLine(w http.ResponseWriter, line string) {
	writeJSON(w, map[string]any{
		"ok":        false,
		"error":     "invalid_line",
		"line":      line,
		"supported": s.supported,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
