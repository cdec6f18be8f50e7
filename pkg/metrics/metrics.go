package metrics

import (
	"errors"
	"time"

	"github.com/nimdanitro/weathercloud-scraper-go/pkg/weathercloud"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weathercloud"

// Metrics counts upstream attempts. It satisfies weathercloud.Observer.
type Metrics struct {
	logins      *prometheus.CounterVec
	fetches     *prometheus.CounterVec
	cycleTiming *prometheus.SummaryVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "login_attempts_total",
				Help:      "Sign-in attempts by result.",
			},
			[]string{"result"},
		),
		fetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_attempts_total",
				Help:      "Device value requests by result.",
			},
			[]string{"result"},
		),
		cycleTiming: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Namespace: namespace,
				Name:      "refresh_duration_seconds",
				Help:      "Duration of refresh cycles.",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(m.logins, m.fetches, m.cycleTiming)
	return m
}

func (m *Metrics) LoginAttempt(err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
		var ae *weathercloud.AuthError
		if errors.As(err, &ae) && ae.StatusCode == 0 {
			result = "error"
		}
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) FetchAttempt(err error) {
	result := "ok"
	var fe *weathercloud.FetchError
	if errors.As(err, &fe) {
		switch fe.Kind {
		case weathercloud.TransportFailure:
			result = "transport"
		case weathercloud.UnexpectedStatus:
			result = "status"
		case weathercloud.MalformedResponse:
			result = "malformed"
		}
	} else if err != nil {
		result = "error"
	}
	m.fetches.WithLabelValues(result).Inc()
}

func (m *Metrics) CycleDone(elapsed time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.cycleTiming.WithLabelValues(result).Observe(elapsed.Seconds())
}
