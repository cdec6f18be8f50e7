package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/nimdanitro/weathercloud-scraper-go/pkg/weathercloud"
	"github.com/spf13/pflag"
)

const (
	DefaultCacheTTL = 60000
	DefaultListen   = ":8080"
)

// Config is the validated runtime configuration.
type Config struct {
	Name       string
	Login      string
	Password   string
	DeviceCode string

	Unit           weathercloud.Unit
	CacheTTL       time.Duration
	PollInterval   time.Duration
	RequestTimeout time.Duration
	BaseURL        string

	ListenAddr           string
	NotificationID       string
	NotificationPassword string
	PushResetsCache      bool

	Debug bool
}

// raw holds flag values before validation.
type raw struct {
	name, login, password, deviceCode string
	unit                              string
	cacheTTL, pollInterval            int64
	requestTimeout                    time.Duration
	baseURL, listen                   string
	notificationID, notificationPass  string
	pushResetsCache, debug            bool
}

// Load reads an optional .env file, then parses args. Every flag defaults to
// its WEATHERCLOUD_* environment variable. The returned warnings describe
// values that were replaced by defaults.
func Load(args []string, envFiles ...string) (*Config, []string, error) {
	// a missing .env file is fine
	_ = godotenv.Load(envFiles...)

	fs := pflag.NewFlagSet("weathercloud-scraper", pflag.ContinueOnError)
	var r raw
	fs.StringVar(&r.name, "name", env("NAME", "Inside Temperature"), "Accessory name")
	fs.StringVarP(&r.login, "login", "l", env("LOGIN", ""), "Weather Cloud login (e-mail or user name)")
	fs.StringVarP(&r.password, "password", "p", env("PASSWORD", ""), "Weather Cloud password")
	fs.StringVarP(&r.deviceCode, "device-code", "d", env("DEVICE_CODE", ""), "Code of the device to read")
	fs.StringVarP(&r.unit, "unit", "u", env("UNIT", string(weathercloud.Celsius)), "Unit the device reports in (celsius|fahrenheit)")
	fs.Int64Var(&r.cacheTTL, "cache-ttl", envInt("CACHE_TTL", DefaultCacheTTL), "Cache time-to-live in milliseconds, 0 or less caches forever")
	fs.Int64Var(&r.pollInterval, "poll-interval", envInt("POLL_INTERVAL", 0), "Poll interval in milliseconds, 0 disables periodic polling")
	fs.DurationVar(&r.requestTimeout, "request-timeout", envDuration("REQUEST_TIMEOUT", 30*time.Second), "Timeout of every upstream request")
	fs.StringVar(&r.baseURL, "base-url", env("BASE_URL", weathercloud.DefaultBaseURL), "Weather Cloud base URL")
	fs.StringVar(&r.listen, "listen", env("LISTEN", DefaultListen), "Address of the notification and metrics server, empty disables it")
	fs.StringVar(&r.notificationID, "notification-id", env("NOTIFICATION_ID", ""), "Id of the push notification endpoint")
	fs.StringVar(&r.notificationPass, "notification-password", env("NOTIFICATION_PASSWORD", ""), "Password of the push notification endpoint")
	fs.BoolVar(&r.pushResetsCache, "push-resets-cache", envBool("PUSH_RESETS_CACHE", false), "Treat pushed values as a fresh query")
	fs.BoolVar(&r.debug, "debug", envBool("DEBUG", false), "Enable debug logging")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return r.validate()
}

func (r raw) validate() (*Config, []string, error) {
	var errs []error
	if r.login == "" {
		errs = append(errs, errors.New("property 'login' is required"))
	}
	if r.password == "" {
		errs = append(errs, errors.New("property 'password' is required"))
	}
	if r.deviceCode == "" {
		errs = append(errs, errors.New("property 'deviceCode' is required"))
	}
	if r.pollInterval < 0 {
		errs = append(errs, fmt.Errorf("poll interval must not be negative, got %d", r.pollInterval))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, nil, err
	}

	var warnings []string
	unit, ok := weathercloud.ParseUnit(r.unit)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("%s is an unsupported temperature unit, using %s", r.unit, unit))
	}

	return &Config{
		Name:                 r.name,
		Login:                r.login,
		Password:             r.password,
		DeviceCode:           r.deviceCode,
		Unit:                 unit,
		CacheTTL:             time.Duration(r.cacheTTL) * time.Millisecond,
		PollInterval:         time.Duration(r.pollInterval) * time.Millisecond,
		RequestTimeout:       r.requestTimeout,
		BaseURL:              r.baseURL,
		ListenAddr:           r.listen,
		NotificationID:       r.notificationID,
		NotificationPassword: r.notificationPass,
		PushResetsCache:      r.pushResetsCache,
		Debug:                r.debug,
	}, warnings, nil
}

// Credentials returns the upstream credentials.
func (c *Config) Credentials() weathercloud.Credentials {
	return weathercloud.Credentials{
		Login:      c.Login,
		Password:   c.Password,
		DeviceCode: c.DeviceCode,
	}
}

func env(key, def string) string {
	if v := os.Getenv("WEATHERCLOUD_" + key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int64) int64 {
	if v, err := strconv.ParseInt(env(key, ""), 10, 64); err == nil {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(env(key, "")); err == nil {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(env(key, "")); err == nil {
		return v
	}
	return def
}
