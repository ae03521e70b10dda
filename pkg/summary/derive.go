package summary

import "github.com/ja7ad/carbonrun/pkg/system/util"

// Tree absorption rates in kg CO2 per year.
const (
	AdultTreeKgPerYear = 300.0
	YoungTreeKgPerYear = 30.0
)

// Decimal places of the derived fields.
const (
	TreesPrecision = 8
	HoursPrecision = 3
)

// Derive fills the trees-equivalent and compensation-hours fields from
// EmissionsKg and DurationS.
//
//   - no emissions: nothing is derived.
//   - trees = kg / 300.
//   - per hour = kg / (duration_s / 3600); young = 30 / per hour, adult = 300 / per hour.
//   - a zero or non-finite hourly rate, or a non-positive duration, leaves
//     both compensation fields absent instead of infinite.
//   - a quotient too large for a float64 leaves that field absent.
//
// Fields that cannot be derived are cleared so a reused Summary never keeps
// stale values.
func Derive(s *Summary) {
	s.TreesNeededPerYearEquiv = nil
	s.HoursCompensatedTreeYoung = nil
	s.HoursCompensatedTreeAdult = nil

	if s.EmissionsKg == nil || !util.Finite(*s.EmissionsKg) {
		return
	}
	kg := *s.EmissionsKg
	s.TreesNeededPerYearEquiv = finite(util.Round(kg/AdultTreeKgPerYear, TreesPrecision))

	perHour, ok := EmissionsPerHour(kg, s.DurationS)
	if !ok || perHour == 0 {
		return
	}
	s.HoursCompensatedTreeYoung = finite(util.Round(YoungTreeKgPerYear/perHour, HoursPrecision))
	s.HoursCompensatedTreeAdult = finite(util.Round(AdultTreeKgPerYear/perHour, HoursPrecision))
}

// finite is Float for finite v and nil otherwise.
func finite(v float64) *float64 {
	if !util.Finite(v) {
		return nil
	}
	return Float(v)
}

// EmissionsPerHour returns kg CO2eq per hour of run time, false when the
// duration cannot carry a rate.
func EmissionsPerHour(kg, durationS float64) (float64, bool) {
	if !(durationS > 0) || !util.Finite(durationS) {
		return 0, false
	}
	v := kg / (durationS / 3600.0)
	if !util.Finite(v) {
		return 0, false
	}
	return v, true
}
