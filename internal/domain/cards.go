package domain

import (
	"fmt"
	"strings"
)

// Display caps per card. The backend returns every area and every forecast
// cell; the dashboard shows only the head of each list.
const (
	maxWeatherAreas = 12
	maxForecastRows = 20
	maxBusServices  = 10
)

// Fallback lines rendered when a card has nothing to show, either because
// the fetch failed (nil snapshot) or the backend returned an empty payload.
const (
	NoWeatherText  = "No weather data."
	NoAlertsText   = "No alerts."
	NoCrowdText    = "No crowd data."
	NoForecastText = "No forecast data."
	NoBusText      = "No bus data."
)

// unknownLabel substitutes for any display field the backend left null.
const unknownLabel = "Unknown"

// WeatherLines projects a weather snapshot to display lines, one per area,
// capped at the first twelve areas.
func WeatherLines(snap *WeatherSnapshot) []string {
	if snap == nil || len(snap.Areas) == 0 {
		return []string{NoWeatherText}
	}

	areas := snap.Areas
	if len(areas) > maxWeatherAreas {
		areas = areas[:maxWeatherAreas]
	}

	lines := make([]string, 0, len(areas))
	for _, a := range areas {
		lines = append(lines, fmt.Sprintf("• %s: %s", a.Name, a.Forecast))
	}
	return lines
}

// AlertLines projects a rail alert snapshot to display lines. Each alert
// renders its fields pipe-joined; optional fields are omitted entirely when
// absent rather than shown empty.
func AlertLines(snap *RailAlertSnapshot) []string {
	if snap == nil || len(snap.Alerts) == 0 {
		return []string{NoAlertsText}
	}

	lines := make([]string, 0, len(snap.Alerts))
	for _, a := range snap.Alerts {
		parts := []string{"Line: " + a.Line, "Status: " + a.Status}
		if a.Message != "" {
			parts = append(parts, "Message: "+a.Message)
		}
		if a.Timestamp != "" {
			parts = append(parts, "Time: "+a.Timestamp)
		}
		lines = append(lines, "• "+strings.Join(parts, " | "))
	}
	return lines
}

// CrowdLines ranks a crowd snapshot's stations by descending intensity and
// projects them to display lines.
func CrowdLines(snap *CrowdSnapshot) []string {
	if snap == nil || len(snap.Stations) == 0 {
		return []string{NoCrowdText}
	}

	ranked := RankStations(snap.Stations)
	lines := make([]string, 0, len(ranked))
	for _, s := range ranked {
		lines = append(lines, fmt.Sprintf("• %s: %s", stationLabel(s.Station, s.StationCode), levelLabel(s.CrowdLevel)))
	}
	return lines
}

// ForecastLines projects a crowd forecast snapshot to display lines, capped
// at the first twenty rows, in backend order.
func ForecastLines(snap *CrowdForecastSnapshot) []string {
	if snap == nil || len(snap.Forecast) == 0 {
		return []string{NoForecastText}
	}

	rows := snap.Forecast
	if len(rows) > maxForecastRows {
		rows = rows[:maxForecastRows]
	}

	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		slot := r.TimeSlot
		if slot == "" {
			slot = unknownLabel
		}
		lines = append(lines, fmt.Sprintf("• %s — %s: %s", slot, stationLabel(r.Station, r.StationCode), levelLabel(r.CrowdLevel)))
	}
	return lines
}

// BusLines projects a bus arrivals snapshot to display lines, one per
// service, capped at the first ten services.
func BusLines(snap *BusArrivalsSnapshot) []string {
	if snap == nil || len(snap.Services) == 0 {
		return []string{NoBusText}
	}

	services := snap.Services
	if len(services) > maxBusServices {
		services = services[:maxBusServices]
	}

	lines := make([]string, 0, len(services))
	for _, s := range services {
		label := "Svc " + s.ServiceNo
		if s.Operator != "" {
			label += " (" + s.Operator + ")"
		}
		lines = append(lines, fmt.Sprintf("• %s: %s / %s / %s", label, etaLabel(s.Next.ETAMin), etaLabel(s.Next2.ETAMin), etaLabel(s.Next3.ETAMin)))
	}
	return lines
}

// stationLabel prefers the display name, falls back to the station code,
// then to "Unknown".
func stationLabel(name, code string) string {
	if name != "" {
		return name
	}
	if code != "" {
		return code
	}
	return unknownLabel
}

func levelLabel(level string) string {
	if level == "" {
		return unknownLabel
	}
	return level
}

func etaLabel(min *int) string {
	if min == nil {
		return "?"
	}
	return fmt.Sprintf("%d min", *min)
}
