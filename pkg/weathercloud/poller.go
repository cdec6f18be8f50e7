package weathercloud

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const tracerName = "github.com/nimdanitro/weathercloud-scraper-go/pkg/weathercloud"

// Poller coordinates the cache, the session and the fetcher for one device.
// At most one refresh cycle runs at a time; concurrent Refresh calls share
// the result of the cycle in flight.
type Poller struct {
	creds    Credentials
	unit     Unit
	cache    *Cache
	sessions *SessionManager
	fetcher  *DataFetcher
	log      *zap.Logger
	now      func() time.Time
	sink     Sink
	obs      Observer
	tracer   trace.Tracer

	pushResetsCache bool

	group     singleflight.Group
	inFlight  atomic.Bool
	latest    atomic.Pointer[Reading]
	requested chan struct{}
}

type PollerOption func(p *Poller)

// WithUnit sets the unit the device reports in.
func WithUnit(u Unit) PollerOption {
	return func(p *Poller) {
		p.unit = u
	}
}

// WithCacheTTL sets the minimum interval between upstream queries. Zero or
// less keeps the first value forever.
func WithCacheTTL(ttl time.Duration) PollerOption {
	return func(p *Poller) {
		p.cache = NewCache(ttl)
	}
}

func WithSink(s Sink) PollerOption {
	return func(p *Poller) {
		p.sink = s
	}
}

func WithObserver(o Observer) PollerOption {
	return func(p *Poller) {
		p.obs = o
	}
}

// WithPushResetsCache makes pushed values count as a fresh query, which
// postpones the next upstream poll by a full TTL.
func WithPushResetsCache(b bool) PollerOption {
	return func(p *Poller) {
		p.pushResetsCache = b
	}
}

func NewPoller(c *Client, creds Credentials, opts ...PollerOption) (*Poller, error) {
	if creds.Login == "" || creds.Password == "" || creds.DeviceCode == "" {
		return nil, errors.New("login, password and device code are required")
	}

	p := &Poller{
		creds:     creds,
		unit:      Celsius,
		cache:     NewCache(time.Minute),
		sessions:  NewSessionManager(c),
		fetcher:   NewDataFetcher(c),
		log:       c.log.With(zap.String("deviceCode", creds.DeviceCode)),
		now:       c.now,
		sink:      SinkFuncs{},
		obs:       noopObserver{},
		tracer:    otel.Tracer(tracerName),
		requested: make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Latest returns the last known reading, from a poll or a push.
func (p *Poller) Latest() (Reading, bool) {
	r := p.latest.Load()
	if r == nil {
		return Reading{}, false
	}
	return *r, true
}

// Sessions exposes the session manager, mostly for inspection.
func (p *Poller) Sessions() *SessionManager {
	return p.sessions
}

// RequestReading never waits for the network. When the cache is fresh it
// returns the last value with fromCache set. Otherwise it starts a refresh
// cycle in the background, unless one is already running, and returns the
// previous value; the new value reaches the sink once fetched. Before any
// value was obtained it returns ErrNoValue.
func (p *Poller) RequestReading(ctx context.Context, now time.Time) (value float64, fromCache bool, err error) {
	return p.request(ctx, now, true)
}

// request serves now from the cache or starts a cycle. A manual request that
// starts a cycle restarts the Run interval.
func (p *Poller) request(ctx context.Context, now time.Time, manual bool) (float64, bool, error) {
	latest := p.latest.Load()
	if !p.cache.ShouldQuery(now) && latest != nil {
		p.log.Debug("returning cached value",
			zap.Float64("temperature", latest.Celsius),
			zap.Bool("infiniteCache", p.cache.IsInfinite()),
		)
		return latest.Celsius, true, nil
	}

	if manual {
		p.signalRequested()
	}
	p.startCycle(ctx)

	if latest == nil {
		return 0, false, ErrNoValue
	}
	return latest.Celsius, false, nil
}

func (p *Poller) startCycle(ctx context.Context) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.log.Debug("refresh already in flight")
		return
	}
	// the caller's cancellation must not abort a cycle once issued
	ctx = context.WithoutCancel(ctx)
	go func() {
		_, _ = p.Refresh(ctx)
	}()
}

// Refresh runs a refresh cycle and waits for it, ignoring the cache. Callers
// arriving while a cycle is in flight get that cycle's result.
func (p *Poller) Refresh(ctx context.Context) (Reading, error) {
	v, err, shared := p.group.Do(p.creds.DeviceCode, func() (any, error) {
		return p.runCycle(ctx)
	})
	if shared {
		p.log.Debug("joined refresh in flight")
	}
	r, _ := v.(Reading)
	return r, err
}

func (p *Poller) runCycle(ctx context.Context) (Reading, error) {
	id := uuid.NewString()
	ctx, span := p.tracer.Start(ctx, "weathercloud.refresh", trace.WithAttributes(
		attribute.String("cycle.id", id),
		attribute.String("device.code", p.creds.DeviceCode),
	))
	defer span.End()

	log := p.log.With(zap.String("cycle", id))
	start := p.now()

	var raw float64
	c := step(cycle{}, event{kind: eventStart, hasSession: p.sessions.Current() != nil})
	for !c.state.done() {
		switch c.state {
		case stateAwaitingLogin:
			_, err := p.sessions.Login(ctx, p.creds)
			p.obs.LoginAttempt(err)
			if err != nil {
				log.Warn("unable to sign in", zap.Error(err))
				c = step(c, event{kind: eventLoginFailed, err: err})
				continue
			}
			c = step(c, event{kind: eventLoginOK})

		case stateAwaitingFetch:
			v, err := p.fetcher.FetchReading(ctx, p.sessions.Current(), p.creds.DeviceCode)
			p.obs.FetchAttempt(err)
			if err != nil {
				log.Warn("unable to get data", zap.Error(err), zap.Bool("reusedSession", c.reused))
				c = step(c, event{kind: eventFetchFailed, err: err})
				var fe *FetchError
				if c.state == stateAwaitingLogin || (errors.As(err, &fe) && fe.Kind == UnexpectedStatus) {
					p.sessions.Invalidate()
				}
				continue
			}
			raw = v
			c = step(c, event{kind: eventFetchOK})

		default:
			panic(fmt.Sprintf("weathercloud: unexpected cycle state %s", c.state))
		}
	}

	elapsed := p.now().Sub(start)
	span.SetAttributes(attribute.Int("cycle.logins", c.logins), attribute.Int("cycle.fetches", c.fetches))

	if c.state == stateDoneFailure {
		err := &PollError{Logins: c.logins, Fetches: c.fetches, Err: c.err}
		span.RecordError(err)
		span.SetStatus(codes.Error, "refresh failed")
		p.obs.CycleDone(elapsed, err)
		log.Error("refresh failed", zap.Error(err))
		p.release()
		p.sink.OnError(err)
		return Reading{}, err
	}

	now := p.now()
	r := Reading{
		Celsius:    ToCelsius(raw, p.unit),
		CapturedAt: now,
		DeviceCode: p.creds.DeviceCode,
		Source:     SourcePoll,
	}
	p.cache.MarkQueried(now)
	p.latest.Store(&r)
	p.obs.CycleDone(elapsed, nil)

	log.Debug("temperature fetched",
		zap.Float64("temperature", r.Celsius),
		zap.Float64("raw", raw),
		zap.String("unit", string(p.unit)),
	)
	if !r.InRange() {
		log.Warn("temperature outside characteristic range", zap.Float64("temperature", r.Celsius))
	}
	p.release()
	p.sink.OnReading(r)
	return r, nil
}

// ApplyNotification applies an out-of-band push, bypassing polling. Only the
// CurrentTemperature characteristic is known; its value is converted from
// the configured unit like a polled one.
func (p *Poller) ApplyNotification(characteristic string, value float64, now time.Time) (Reading, error) {
	if characteristic != CurrentTemperature {
		return Reading{}, fmt.Errorf("%w: %q", ErrUnknownCharacteristic, characteristic)
	}

	r := Reading{
		Celsius:    ToCelsius(value, p.unit),
		CapturedAt: now,
		DeviceCode: p.creds.DeviceCode,
		Source:     SourcePush,
	}
	p.latest.Store(&r)
	if p.pushResetsCache {
		p.cache.MarkQueried(now)
	}

	p.log.Debug("applied pushed value",
		zap.String("characteristic", characteristic),
		zap.Float64("value", value),
		zap.Float64("temperature", r.Celsius),
	)
	p.sink.OnReading(r)
	return r, nil
}

// Run polls every interval until ctx is done. A manual RequestReading that
// misses the cache restarts the interval. A non-positive interval disables
// periodic polling and Run returns immediately.
func (p *Poller) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		p.log.Info("periodic polling disabled")
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.request(ctx, p.now(), false)

	for {
		select {
		case <-ticker.C:
			p.request(ctx, p.now(), false)
		case <-p.requested:
			ticker.Reset(interval)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// release ends the cycle before its outcome is delivered, so that a request
// made from the sink starts a new cycle instead of joining this one.
func (p *Poller) release() {
	p.group.Forget(p.creds.DeviceCode)
	p.inFlight.Store(false)
}

func (p *Poller) signalRequested() {
	select {
	case p.requested <- struct{}{}:
	default:
	}
}
