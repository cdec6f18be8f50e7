package weathercloud

import "strings"

// Unit is the temperature unit the upstream device reports in.
type Unit string

const (
	Celsius    Unit = "celsius"
	Fahrenheit Unit = "fahrenheit"
)

// ParseUnit maps a configured unit name onto a Unit. Unknown names fall back
// to Celsius and report false so the caller can warn about it.
func ParseUnit(s string) (Unit, bool) {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case Celsius, "":
		return Celsius, true
	case Fahrenheit:
		return Fahrenheit, true
	}
	return Celsius, false
}

// ToCelsius converts v, expressed in u, to degrees Celsius.
func ToCelsius(v float64, u Unit) float64 {
	if u == Fahrenheit {
		return (v - 32) / 1.8
	}
	return v
}

// ToFahrenheit converts a Celsius value to Fahrenheit.
func ToFahrenheit(c float64) float64 {
	return c*1.8 + 32
}
