package weathercloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	valuesPath = "/device/values"
	ajaxAccept = "application/json, text/javascript, */*; q=0.01"
)

// DataFetcher reads the device values with an established session. It only
// classifies failures; retrying is the poller's business.
type DataFetcher struct {
	c *Client
}

func NewDataFetcher(c *Client) *DataFetcher {
	return &DataFetcher{c: c}
}

// FetchReading returns the raw inside temperature, in whatever unit the
// device is configured for.
func (f *DataFetcher) FetchReading(ctx context.Context, s *Session, deviceCode string) (float64, error) {
	ctx, cancel := f.c.withTimeout(ctx)
	defer cancel()

	u := f.c.baseURL + valuesPath + "?" + url.Values{"code": {deviceCode}}.Encode()
	f.c.log.Debug("fetching device values", zap.String("deviceCode", deviceCode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, &FetchError{Kind: TransportFailure, Err: err}
	}
	req.Header.Set("Accept", ajaxAccept)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if s != nil {
		req.Header.Set("Cookie", s.Cookies.Header())
	}

	resp, err := f.c.do(req)
	if err != nil {
		f.c.log.Error("error fetching device values", zap.Error(err))
		return 0, &FetchError{Kind: TransportFailure, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, &FetchError{Kind: UnexpectedStatus, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, &FetchError{Kind: TransportFailure, Err: err}
	}

	v, err := decodeTempIn(body)
	if err != nil {
		f.c.log.Error("error decoding device values", zap.Error(err))
		return 0, &FetchError{Kind: MalformedResponse, StatusCode: resp.StatusCode, Err: err}
	}
	return v, nil
}

var errMissingTempIn = errors.New(`field "tempin" missing`)

// decodeTempIn extracts the tempin field, given either as a number or as a
// quoted number.
func decodeTempIn(body []byte) (float64, error) {
	var values map[string]json.RawMessage
	if err := json.Unmarshal(body, &values); err != nil {
		return 0, err
	}
	raw, ok := values["tempin"]
	if !ok || string(raw) == "null" {
		return 0, errMissingTempIn
	}

	return ParseValue(raw)
}

// ParseValue decodes a JSON number or a JSON string holding a number.
func ParseValue(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, errors.New("value is missing")
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("value %s is not a number", raw)
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
