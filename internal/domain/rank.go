package domain

import (
	"sort"
	"strings"
	"unicode"
)

// crowdRanks maps a normalized crowd level to its intensity rank.
// Unrecognized or missing levels rank 0 and sort last.
var crowdRanks = map[string]int{
	"veryhigh": 4,
	"high":     3,
	"moderate": 2,
	"low":      1,
}

// CrowdRank returns the intensity rank of a crowd level string. Lookup is
// insensitive to case and to any whitespace, interior included: "Very High",
// "VERYHIGH" and " veryHigh " all rank 4. Unrecognized values rank 0.
func CrowdRank(level string) int {
	return crowdRanks[normalizeCrowdLevel(level)]
}

// normalizeCrowdLevel strips every whitespace rune and lower-cases the rest.
func normalizeCrowdLevel(level string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, level)
	return strings.ToLower(stripped)
}

// RankStations returns a new slice ordered by descending crowd intensity.
// Stations with equal rank order by ascending display name, with unnamed
// stations after named ones. The sort is stable, so ranking is idempotent
// and never reorders stations the comparison considers equal. The input
// slice is not mutated.
func RankStations(stations []CrowdStation) []CrowdStation {
	ranked := make([]CrowdStation, len(stations))
	copy(ranked, stations)

	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := CrowdRank(ranked[i].CrowdLevel), CrowdRank(ranked[j].CrowdLevel)
		if ri != rj {
			return ri > rj
		}
		ni, nj := ranked[i].Station, ranked[j].Station
		if (ni == "") != (nj == "") {
			return nj == ""
		}
		return ni < nj
	})

	return ranked
}
