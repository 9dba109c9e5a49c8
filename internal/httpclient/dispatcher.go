package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/metrics"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/rate"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/utils"
)

const maxErrorBody = 512

// Dispatcher sends one form-encoded POST and decodes the JSON reply.
// It has no notion of tokens or business success; it never retries.
type Dispatcher struct {
	logger  *zap.Logger
	rateMgr *rate.Manager
	http    *http.Client
}

// New creates a Dispatcher. A nil httpClient uses a client with the transport
// defaults; a nil rateMgr disables pacing.
func New(logger *zap.Logger, rateMgr *rate.Manager, httpClient *http.Client) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Dispatcher{
		logger:  logger,
		rateMgr: rateMgr,
		http:    httpClient,
	}
}

// Send POSTs params as an application/x-www-form-urlencoded body to rawURL,
// which must already carry its query string, and returns the decoded JSON value.
// Objects decode to map[string]any and numbers to json.Number.
func (d *Dispatcher) Send(ctx context.Context, rawURL string, params url.Values) (any, error) {
	masked := utils.MaskToken(rawURL)

	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		if err == nil {
			err = errors.New("url must be absolute http(s)")
		}
		return nil, &TransportError{URL: masked, Err: err}
	}
	endpoint := endpointLabel(u.Path)

	if err := d.rateMgr.Wait(ctx, u.Host); err != nil {
		return nil, &TransportError{URL: masked, Err: fmt.Errorf("rate limit wait: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, &TransportError{URL: masked, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := d.http.Do(req)
	metrics.ObserveDuration(metrics.AdminRequestDuration, start, endpoint)
	if err != nil {
		d.logger.Warn("dispatch.http_failed",
			zap.String("url", masked),
			zap.Error(err))
		metrics.IncAdminRequest(endpoint, "network_error")
		return nil, &TransportError{URL: masked, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncAdminRequest(endpoint, "read_error")
		return nil, &TransportError{URL: masked, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode >= 400 {
		d.logger.Warn("dispatch.http_error_status",
			zap.String("url", masked),
			zap.Int("status", resp.StatusCode),
			zap.Duration("latency", time.Since(start)))
		metrics.IncAdminRequest(endpoint, "http_error")
		msg := snippet(body)
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &TransportError{URL: masked, Status: resp.StatusCode, Err: errors.New(msg)}
	}

	out, err := decodeJSON(body)
	if err != nil {
		d.logger.Warn("dispatch.decode_failed",
			zap.String("url", masked),
			zap.Error(err),
			zap.String("body", snippet(body)))
		metrics.IncAdminRequest(endpoint, "decode_error")
		return nil, &TransportError{URL: masked, Status: resp.StatusCode, Err: fmt.Errorf("decode failed: %w", err)}
	}

	d.logger.Debug("dispatch.http_success",
		zap.String("url", masked),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))
	metrics.IncAdminRequest(endpoint, "ok")

	return out, nil
}

func decodeJSON(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty response body")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return out, nil
}

// endpointLabel keeps metric cardinality low: /arcgis/admin/services/a/b.MapServer/stop → "services".
func endpointLabel(path string) string {
	path = strings.TrimPrefix(path, "/arcgis/admin")
	path = strings.Trim(path, "/")
	if path == "" {
		return "root"
	}
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
