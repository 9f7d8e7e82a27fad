// Package units provides shared constants and conversions for energy and
// momentum units. Values are carried internally in MeV (MeV/c for momenta).
package units

import "strings"

// Unit constants
const (
	MeV = "MeV"
	GeV = "GeV"
)

// perMeV is the size of one unit in MeV.
var perMeV = map[string]float64{
	MeV: 1,
	GeV: 1e3,
}

// ValidUnits contains all valid unit values
var ValidUnits = []string{MeV, GeV}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	_, ok := perMeV[unit]
	return ok
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ToMeV converts v expressed in unit to MeV. Unknown units are returned
// unchanged.
func ToMeV(v float64, unit string) float64 {
	if s, ok := perMeV[unit]; ok {
		return v * s
	}
	return v
}

// FromMeV converts v in MeV to unit. Unknown units are returned unchanged.
func FromMeV(v float64, unit string) float64 {
	if s, ok := perMeV[unit]; ok {
		return v / s
	}
	return v
}
