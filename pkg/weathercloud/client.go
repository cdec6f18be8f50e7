package weathercloud

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const DefaultBaseURL = "https://app.weathercloud.net"

// Client is the shared upstream transport for the sign-in flow and the device
// values endpoint. It never follows redirects: the sign-in result is the
// redirect itself.
type Client struct {
	baseURL string
	client  *http.Client
	limit   *rate.Limiter
	log     *zap.Logger
	timeout time.Duration
	now     func() time.Time

	entityField   string
	passwordField string
}

type Option func(c *Client) error

func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:       DefaultBaseURL,
		log:           zap.L(),
		limit:         rate.NewLimiter(rate.Every(5*time.Second), 4),
		client:        &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout:       30 * time.Second,
		now:           time.Now,
		entityField:   "entity",
		passwordField: "password",
	}

	// apply the options
	for _, o := range opts {
		err := o(c)
		if err != nil {
			return nil, err
		}
	}

	noRedirect := *c.client
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	c.client = &noRedirect

	return c, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	// apply the ratelimit
	if err := c.limit.Wait(req.Context()); err != nil {
		c.log.Error("cannot await rate limit", zap.Error(err))
		return nil, err
	}
	return c.client.Do(req)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}
