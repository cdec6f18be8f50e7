package weathercloud

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) error {
		c.log = l
		return nil
	}
}

// WithBaseURL points the client at another upstream host, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) error {
		parsed, err := url.Parse(u)
		if err != nil {
			return err
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			return errors.New("base url needs a scheme and a host")
		}
		c.baseURL = strings.TrimRight(u, "/")
		return nil
	}
}

// WithHTTPClient replaces the underlying client. Its redirect policy is
// overridden.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("nil http client")
		}
		c.client = hc
		return nil
	}
}

func WithRateLimit(every time.Duration, burst int) Option {
	return func(c *Client) error {
		if every <= 0 {
			c.limit = rate.NewLimiter(rate.Inf, burst)
			return nil
		}
		c.limit = rate.NewLimiter(rate.Every(every), burst)
		return nil
	}
}

// WithTimeout bounds every single upstream request. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		c.timeout = d
		return nil
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) error {
		c.now = now
		return nil
	}
}

// WithLoginFields renames the sign-in form fields, for instance to
// "LoginForm[entity]" and "LoginForm[password]".
func WithLoginFields(entity, password string) Option {
	return func(c *Client) error {
		if entity == "" || password == "" {
			return errors.New("login field names must not be empty")
		}
		c.entityField = entity
		c.passwordField = password
		return nil
	}
}
