package notify

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/nimdanitro/weathercloud-scraper-go/pkg/weathercloud"
	"go.uber.org/zap"
)

// Sensor is the part of the poller the HTTP surface needs.
type Sensor interface {
	RequestReading(ctx context.Context, now time.Time) (float64, bool, error)
	ApplyNotification(characteristic string, value float64, now time.Time) (weathercloud.Reading, error)
}

// Info describes the accessory.
type Info struct {
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	SerialNumber string `json:"serialNumber"`
	Firmware     string `json:"firmwareRevision"`
}

// Notification is the body of a push request. Value is a number or a
// string holding one.
type Notification struct {
	Characteristic string          `json:"characteristic"`
	Value          json.RawMessage `json:"value"`
}

type Server struct {
	sensor   Sensor
	id       string
	password string
	info     Info
	metrics  http.Handler
	log      *zap.Logger
	now      func() time.Time
}

type Option func(s *Server)

// WithNotification enables the push endpoint under /notification/{id}. An
// empty password disables authentication.
func WithNotification(id, password string) Option {
	return func(s *Server) {
		s.id = id
		s.password = password
	}
}

func WithInfo(i Info) Option {
	return func(s *Server) {
		s.info = i
	}
}

func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func New(sensor Sensor, opts ...Option) *Server {
	s := &Server{
		sensor: sensor,
		log:    zap.L(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.HandleFunc("/info", s.infoHandler).Methods(http.MethodGet)
	r.HandleFunc("/temperature", s.temperature).Methods(http.MethodGet)
	if s.id != "" {
		r.HandleFunc("/notification/{id}", s.notification).Methods(http.MethodPost)
	}
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) infoHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.info)
}

func (s *Server) temperature(w http.ResponseWriter, r *http.Request) {
	v, fromCache, err := s.sensor.RequestReading(r.Context(), s.now())
	if errors.Is(err, weathercloud.ErrNoValue) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"temperature": v,
		"fromCache":   fromCache,
	})
}

func (s *Server) notification(w http.ResponseWriter, r *http.Request) {
	if mux.Vars(r)["id"] != s.id {
		http.NotFound(w, r)
		return
	}
	if s.password != "" {
		_, pass, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(pass), []byte(s.password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="notification"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
	}

	var n Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil || n.Characteristic == "" || len(n.Value) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "characteristic and value are required"})
		return
	}
	value, err := weathercloud.ParseValue(n.Value)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	reading, err := s.sensor.ApplyNotification(n.Characteristic, value, s.now())
	if errors.Is(err, weathercloud.ErrUnknownCharacteristic) {
		s.log.Warn("encountered unknown characteristic when handling notification",
			zap.String("characteristic", n.Characteristic))
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"temperature": reading.Celsius})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
