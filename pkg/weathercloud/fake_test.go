package weathercloud

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

type fakeResponse struct {
	status int
	body   string
}

// fakeCloud mimics the three upstream endpoints and records what it saw.
type fakeCloud struct {
	mu sync.Mutex

	deviceCode   string
	signinStatus int
	values       []fakeResponse
	fallback     fakeResponse
	// block, when set, holds device values requests until it is closed.
	block chan struct{}

	landingHits int
	signinHits  int
	valuesHits  int

	signinCookie string
	signinForm   url.Values
	valuesCookie string
	valuesHeader http.Header
}

func newFakeCloud(t *testing.T) (*fakeCloud, *httptest.Server) {
	t.Helper()
	f := &fakeCloud{
		deviceCode:   "3671694794",
		signinStatus: http.StatusFound,
		fallback:     fakeResponse{status: http.StatusOK, body: `{"tempin": 21.5, "temp": 4.2}`},
	}
	srv := httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeCloud) queueValues(rs ...fakeResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = append(f.values, rs...)
}

func (f *fakeCloud) hits() (landing, signin, values int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.landingHits, f.signinHits, f.valuesHits
}

type seenRequests struct {
	signinCookie string
	signinForm   url.Values
	valuesCookie string
	valuesHeader http.Header
}

func (f *fakeCloud) seen() seenRequests {
	f.mu.Lock()
	defer f.mu.Unlock()
	return seenRequests{
		signinCookie: f.signinCookie,
		signinForm:   f.signinForm,
		valuesCookie: f.valuesCookie,
		valuesHeader: f.valuesHeader,
	}
}

func (f *fakeCloud) serveHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/":
		f.mu.Lock()
		f.landingHits++
		f.mu.Unlock()
		w.Header().Add("Set-Cookie", "PHPSESSID=abc; path=/; HttpOnly")
		w.Header().Add("Set-Cookie", "YII_CSRF_TOKEN=tok; path=/")
		w.Write([]byte("<html></html>"))

	case r.Method == http.MethodPost && r.URL.Path == "/signin":
		_ = r.ParseForm()
		f.mu.Lock()
		f.signinHits++
		f.signinCookie = r.Header.Get("Cookie")
		f.signinForm = r.PostForm
		status := f.signinStatus
		f.mu.Unlock()
		if status == http.StatusFound {
			w.Header().Add("Set-Cookie", "PHPSESSID=def; path=/")
			w.Header().Add("Set-Cookie", "WEATHERCLOUD_SESSION=s1; path=/; HttpOnly")
			w.Header().Set("Location", "/dashboard")
		}
		w.WriteHeader(status)

	case r.Method == http.MethodGet && r.URL.Path == "/device/values":
		f.mu.Lock()
		f.valuesHits++
		f.valuesCookie = r.Header.Get("Cookie")
		f.valuesHeader = r.Header.Clone()
		resp := f.fallback
		if len(f.values) > 0 {
			resp, f.values = f.values[0], f.values[1:]
		}
		block := f.block
		code := f.deviceCode
		f.mu.Unlock()

		if block != nil {
			<-block
		}
		if r.URL.Query().Get("code") != code {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(resp.status)
		w.Write([]byte(resp.body))

	default:
		http.NotFound(w, r)
	}
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithBaseURL(baseURL),
		WithLogger(zaptest.NewLogger(t)),
		WithRateLimit(0, 1),
		WithTimeout(5 * time.Second),
	}, opts...)
	c, err := NewClient(opts...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

var testCreds = Credentials{Login: "martin@example.com", Password: "s3cret", DeviceCode: "3671694794"}
