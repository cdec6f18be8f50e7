package weathercloud

import "time"

// CurrentTemperature is the only characteristic the sensor exposes.
const CurrentTemperature = "CurrentTemperature"

// Range accepted by the temperature characteristic, in Celsius.
const (
	MinTemperature = -100.0
	MaxTemperature = 100.0
)

type Source string

const (
	SourcePoll Source = "poll"
	SourcePush Source = "push"
)

// Reading is a single inside temperature measurement, normalised to Celsius.
type Reading struct {
	Celsius    float64
	CapturedAt time.Time
	DeviceCode string
	Source     Source
}

func (r Reading) InRange() bool {
	return r.Celsius >= MinTemperature && r.Celsius <= MaxTemperature
}

// Sink receives the outcome of every refresh cycle and every push.
type Sink interface {
	OnReading(Reading)
	OnError(error)
}

// SinkFuncs adapts plain functions to a Sink. Nil fields are skipped.
type SinkFuncs struct {
	Reading func(Reading)
	Error   func(error)
}

func (s SinkFuncs) OnReading(r Reading) {
	if s.Reading != nil {
		s.Reading(r)
	}
}

func (s SinkFuncs) OnError(err error) {
	if s.Error != nil {
		s.Error(err)
	}
}

// Observer is notified about every upstream attempt, e.g. to count them.
type Observer interface {
	LoginAttempt(err error)
	FetchAttempt(err error)
	CycleDone(elapsed time.Duration, err error)
}

type noopObserver struct{}

func (noopObserver) LoginAttempt(error)             {}
func (noopObserver) FetchAttempt(error)             {}
func (noopObserver) CycleDone(time.Duration, error) {}
