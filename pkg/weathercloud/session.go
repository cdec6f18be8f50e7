package weathercloud

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	landingPath = "/"
	signinPath  = "/signin"

	htmlAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// Credentials identify the account and the device to read.
type Credentials struct {
	Login      string
	Password   string
	DeviceCode string
}

// Session is the cookie set proving an authenticated connection. It is never
// modified after creation; a new login produces a new Session.
type Session struct {
	Cookies       Cookies
	EstablishedAt time.Time
}

// SessionManager owns the current Session and performs the sign-in flow.
type SessionManager struct {
	c       *Client
	current atomic.Pointer[Session]
}

func NewSessionManager(c *Client) *SessionManager {
	return &SessionManager{c: c}
}

// Current returns the established session or nil.
func (m *SessionManager) Current() *Session {
	return m.current.Load()
}

// Invalidate drops the current session so the next cycle logs in again.
func (m *SessionManager) Invalidate() {
	m.current.Store(nil)
}

// Login fetches the landing page cookies, then posts the credentials with
// them. Only a 302 answer counts as success. On success the new session
// replaces the current one; on failure the current one is left untouched.
func (m *SessionManager) Login(ctx context.Context, creds Credentials) (*Session, error) {
	initial, err := m.landingCookies(ctx)
	if err != nil {
		return nil, &AuthError{Err: fmt.Errorf("landing page: %w", err)}
	}

	ctx, cancel := m.c.withTimeout(ctx)
	defer cancel()

	m.c.log.Info("signing in", zap.String("login", creds.Login))
	form := url.Values{
		m.c.entityField:   {creds.Login},
		m.c.passwordField: {creds.Password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.c.baseURL+signinPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &AuthError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", htmlAccept)
	if initial.Len() > 0 {
		req.Header.Set("Cookie", initial.Header())
	}

	resp, err := m.c.do(req)
	if err != nil {
		m.c.log.Error("sign in request failed", zap.Error(err))
		return nil, &AuthError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusFound {
		m.c.log.Warn("redirect expected on sign in", zap.Int("status", resp.StatusCode))
		return nil, &AuthError{StatusCode: resp.StatusCode}
	}

	s := &Session{
		Cookies:       initial.Merge(ParseSetCookies(resp.Header.Values("Set-Cookie"))),
		EstablishedAt: m.c.now(),
	}
	m.current.Store(s)
	m.c.log.Debug("session established", zap.Int("cookies", s.Cookies.Len()))
	return s, nil
}

// landingCookies loads the landing page only for its Set-Cookie headers.
func (m *SessionManager) landingCookies(ctx context.Context) (Cookies, error) {
	ctx, cancel := m.c.withTimeout(ctx)
	defer cancel()

	m.c.log.Debug("loading landing page cookies")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.c.baseURL+landingPath, nil)
	if err != nil {
		return Cookies{}, err
	}

	resp, err := m.c.do(req)
	if err != nil {
		m.c.log.Error("landing page request failed", zap.Error(err))
		return Cookies{}, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	return ParseSetCookies(resp.Header.Values("Set-Cookie")), nil
}
