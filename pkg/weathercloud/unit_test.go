package weathercloud

import (
	"math"
	"testing"
)

func TestToCelsius(t *testing.T) {
	if got := ToCelsius(32, Fahrenheit); got != 0 {
		t.Fatalf("ToCelsius(32, F) = %v, want 0", got)
	}
	if got := ToCelsius(98.6, Fahrenheit); math.Abs(got-37) > 1e-9 {
		t.Fatalf("ToCelsius(98.6, F) = %v, want 37", got)
	}
	for _, x := range []float64{-40, 0, 21.5, 100} {
		if got := ToCelsius(x, Celsius); got != x {
			t.Fatalf("ToCelsius(%v, C) = %v", x, got)
		}
	}
}

func TestCelsiusRoundTrip(t *testing.T) {
	for _, c := range []float64{-100, -17.5, 0, 0.1, 18, 21.5, 37, 99.9} {
		got := ToCelsius(ToFahrenheit(c), Fahrenheit)
		if math.Abs(got-c) > 1e-9 {
			t.Errorf("round trip of %v gave %v", c, got)
		}
	}
}

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in   string
		want Unit
		ok   bool
	}{
		{"celsius", Celsius, true},
		{"Fahrenheit", Fahrenheit, true},
		{"", Celsius, true},
		{"kelvin", Celsius, false},
	}
	for _, tt := range tests {
		got, ok := ParseUnit(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseUnit(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
