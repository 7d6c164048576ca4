// Package domain models the Smart Travel Companion backend payloads and the
// pure transforms the dashboard applies to them.
//
// # Data Source
//
// The backend aggregates two Singapore government feeds and re-exposes them
// as plain JSON, no auth required:
//
//   - LTA Datamall: TrainServiceAlerts (rail alerts), PCDRealTime (station
//     crowd levels), PCDForecast (crowd forecast), BusArrival (bus ETAs).
//   - NEA: two-hour weather forecast by area.
//
// All dashboard data is read-only and transient; every fetch replaces the
// previous snapshot of the same kind wholesale.
//
// # Field Conventions
//
// Upstream payloads are loosely shaped, so the backend emits null for any
// field it could not extract. Those nulls decode to empty strings here, and
// the render layer substitutes "Unknown" where a display value is required.
//
// Crowd levels:
//
//	Categorical congestion labels. Recognized values, after lower-casing and
//	stripping ALL whitespace (including interior): "veryhigh", "high",
//	"moderate", "low". "Very High", " veryHigh " and "VERYHIGH" are all the
//	same level. Anything else, including absent values, ranks 0 and sorts
//	after the recognized levels. See [CrowdRank].
//
// Alert status:
//
//	Normalized server-side from LTA numeric codes: 0 and 1 become
//	"No Service Alert", 2 "Minor Disruption", 3 "Major Disruption". The
//	snapshot's HasDisruption field is null when the upstream call failed.
//
// Line codes:
//
//	Short uppercase identifiers (NSL, EWL, NEL, CCL, DTL, TEL, ...). The set
//	the dashboard offers is configuration data; the backend rejects codes it
//	does not support with an ok:false body.
//
// Timestamps:
//
//	Backend timestamps (updated_at, time_utc, last_update) are ISO-8601
//	strings displayed verbatim; the dashboard never parses them.
package domain
