// Package emissions maps a location to the carbon intensity of its
// electricity grid.
//
// Offline mode uses a built-in table keyed by ISO 3166-1 alpha-3 code.
// Online mode first locates the host through a geolocation endpoint and then
// reads the same table; any failure degrades to the world average rather than
// aborting the measurement.
package emissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// WorldAverageGPerKWh is used when the location is unknown.
const WorldAverageGPerKWh = 475.0

// ErrUnknownCountry is returned for ISO-3 codes missing from the table.
var ErrUnknownCountry = errors.New("emissions: unknown country code")

// Intensity is the grid carbon intensity for one location.
type Intensity struct {
	ISO3      string
	Country   string
	GPerKWh   float64
	Estimated bool // world average fallback
}

// KgPerKWh returns the intensity in kg CO2eq per kWh.
func (i Intensity) KgPerKWh() float64 { return i.GPerKWh / 1000 }

// Emissions converts energy in kWh to kg CO2eq.
func (i Intensity) Emissions(kwh float64) float64 { return kwh * i.KgPerKWh() }

// Approximate annual grid averages, gCO2eq/kWh.
var table = map[string]Intensity{
	"ARG": {Country: "Argentina", GPerKWh: 354},
	"AUS": {Country: "Australia", GPerKWh: 549},
	"AUT": {Country: "Austria", GPerKWh: 158},
	"BEL": {Country: "Belgium", GPerKWh: 165},
	"BOL": {Country: "Bolivia", GPerKWh: 464},
	"BRA": {Country: "Brazil", GPerKWh: 98},
	"CAN": {Country: "Canada", GPerKWh: 128},
	"CHE": {Country: "Switzerland", GPerKWh: 46},
	"CHL": {Country: "Chile", GPerKWh: 291},
	"CHN": {Country: "China", GPerKWh: 582},
	"COL": {Country: "Colombia", GPerKWh: 164},
	"DEU": {Country: "Germany", GPerKWh: 381},
	"DNK": {Country: "Denmark", GPerKWh: 151},
	"ESP": {Country: "Spain", GPerKWh: 174},
	"FIN": {Country: "Finland", GPerKWh: 79},
	"FRA": {Country: "France", GPerKWh: 56},
	"GBR": {Country: "United Kingdom", GPerKWh: 238},
	"IND": {Country: "India", GPerKWh: 713},
	"IRL": {Country: "Ireland", GPerKWh: 346},
	"ITA": {Country: "Italy", GPerKWh: 372},
	"JPN": {Country: "Japan", GPerKWh: 485},
	"KOR": {Country: "South Korea", GPerKWh: 436},
	"MEX": {Country: "Mexico", GPerKWh: 423},
	"NLD": {Country: "Netherlands", GPerKWh: 328},
	"NOR": {Country: "Norway", GPerKWh: 30},
	"NZL": {Country: "New Zealand", GPerKWh: 112},
	"PER": {Country: "Peru", GPerKWh: 250},
	"POL": {Country: "Poland", GPerKWh: 662},
	"PRT": {Country: "Portugal", GPerKWh: 165},
	"PRY": {Country: "Paraguay", GPerKWh: 25},
	"RUS": {Country: "Russia", GPerKWh: 441},
	"SWE": {Country: "Sweden", GPerKWh: 41},
	"TUR": {Country: "Turkey", GPerKWh: 413},
	"URY": {Country: "Uruguay", GPerKWh: 128},
	"USA": {Country: "United States", GPerKWh: 369},
	"ZAF": {Country: "South Africa", GPerKWh: 709},
}

// Lookup returns the intensity for an ISO-3 code (case-insensitive).
func Lookup(iso3 string) (Intensity, error) {
	code := strings.ToUpper(strings.TrimSpace(iso3))
	in, ok := table[code]
	if !ok {
		return Intensity{}, fmt.Errorf("%w: %q", ErrUnknownCountry, iso3)
	}
	in.ISO3 = code
	return in, nil
}

// WorldAverage is the fallback used when the location cannot be resolved.
func WorldAverage() Intensity {
	return Intensity{Country: "World", GPerKWh: WorldAverageGPerKWh, Estimated: true}
}

// Countries lists the known ISO-3 codes in sorted order.
func Countries() []string {
	out := make([]string, 0, len(table))
	for code := range table {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
