package domain

// HealthStatus reports backend liveness.
type HealthStatus struct {
	Status  string `json:"status"`
	TimeUTC string `json:"time_utc"`
}

// ForecastArea is one area's two-hour weather forecast.
type ForecastArea struct {
	Name     string `json:"name"`
	Forecast string `json:"forecast"`

	// LabelLocation is an opaque coordinate blob some upstream payloads
	// attach for map pins. Carried through untouched.
	LabelLocation map[string]any `json:"label_location,omitempty"`
}

// WeatherSnapshot holds the area forecasts, ordered by area name.
type WeatherSnapshot struct {
	UpdatedAt string         `json:"updated_at"`
	Areas     []ForecastArea `json:"areas"`
}

// RailAlert is one normalized train service alert. Everything except Line
// and Status is optional; the backend emits null for fields it could not
// extract, which decode to empty strings here.
type RailAlert struct {
	Line       string `json:"line"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	Direction  string `json:"direction,omitempty"`
	Stations   string `json:"stations,omitempty"`
	BusShuttle string `json:"bus_shuttle,omitempty"`
}

// RailAlertSnapshot is the full alert feed state at one point in time.
// HasDisruption is null when the backend could not reach LTA.
type RailAlertSnapshot struct {
	OK            bool        `json:"ok"`
	Source        string      `json:"source"`
	UpdatedAt     string      `json:"updated_at"`
	HasDisruption *bool       `json:"has_disruption"`
	Alerts        []RailAlert `json:"alerts"`
	Error         string      `json:"error,omitempty"`
}

// CrowdStation is one station's realtime crowd reading. All fields are
// optional; LTA occasionally returns rows with only a level.
type CrowdStation struct {
	StationCode string `json:"station_code,omitempty"`
	Station     string `json:"station,omitempty"`
	CrowdLevel  string `json:"crowd_level,omitempty"`
	LastUpdate  string `json:"last_update,omitempty"`
}

// CrowdSnapshot holds realtime crowd readings for one line.
type CrowdSnapshot struct {
	OK        bool           `json:"ok"`
	Source    string         `json:"source"`
	Line      string         `json:"line"`
	UpdatedAt string         `json:"updated_at"`
	Stations  []CrowdStation `json:"stations"`
	Error     string         `json:"error,omitempty"`
}

// CrowdForecastRow is one station/time-slot cell of the crowd forecast.
type CrowdForecastRow struct {
	StationCode string `json:"station_code,omitempty"`
	Station     string `json:"station,omitempty"`
	TimeSlot    string `json:"time_slot,omitempty"`
	CrowdLevel  string `json:"crowd_level,omitempty"`
}

// CrowdForecastSnapshot holds the crowd forecast table for one line.
type CrowdForecastSnapshot struct {
	OK        bool               `json:"ok"`
	Source    string             `json:"source"`
	Line      string             `json:"line"`
	UpdatedAt string             `json:"updated_at"`
	Forecast  []CrowdForecastRow `json:"forecast"`
	Error     string             `json:"error,omitempty"`
}

// BusETA is one upcoming arrival of a bus service. ETAMin is null when the
// arrival is not monitored or no further bus is scheduled.
type BusETA struct {
	OriginCode       string `json:"origin_code,omitempty"`
	DestinationCode  string `json:"destination_code,omitempty"`
	EstimatedArrival string `json:"estimated_arrival,omitempty"`
	ETAMin           *int   `json:"eta_min"`
	Load             string `json:"load,omitempty"`
	Feature          string `json:"feature,omitempty"`
	Type             string `json:"type,omitempty"`
}

// BusService groups the next three arrivals of one service at a stop.
type BusService struct {
	ServiceNo string `json:"service_no"`
	Operator  string `json:"operator,omitempty"`
	Next      BusETA `json:"next"`
	Next2     BusETA `json:"next2"`
	Next3     BusETA `json:"next3"`
}

// BusArrivalsSnapshot holds arrival ETAs for one bus stop.
type BusArrivalsSnapshot struct {
	OK          bool         `json:"ok"`
	BusStopCode string       `json:"bus_stop_code"`
	UpdatedAt   string       `json:"updated_at"`
	Services    []BusService `json:"services"`
	Error       string       `json:"error,omitempty"`
}
