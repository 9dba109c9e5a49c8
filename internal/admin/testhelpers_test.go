package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/httpclient"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/model"
)

// fakeClock is a settable clock shared by the session and the fake server.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.Set(c.Now().Add(d))
}

// adminCall is one request received by the fake server.
type adminCall struct {
	Path  string // path below /arcgis/admin
	Token string
	Form  url.Values
}

// fakeAdmin is an httptest ArcGIS Server admin endpoint. generateToken issues
// tok-1, tok-2, ... valid for the requested expiration (or expiresAt, when set).
// Other paths require the current token and are answered by handlers.
type fakeAdmin struct {
	t     *testing.T
	srv   *httptest.Server
	clock *fakeClock

	mu        sync.Mutex
	calls     []adminCall
	issued    int
	current   string
	expiresAt func(now time.Time, minutes int) time.Time
	rejectAll bool
	handlers  map[string]func(form url.Values) any
}

func newFakeAdmin(t *testing.T, clock *fakeClock) *fakeAdmin {
	t.Helper()
	fa := &fakeAdmin{
		t:        t,
		clock:    clock,
		handlers: make(map[string]func(url.Values) any),
	}
	fa.srv = httptest.NewServer(http.HandlerFunc(fa.serve))
	t.Cleanup(fa.srv.Close)
	return fa
}

func (fa *fakeAdmin) handle(path string, fn func(form url.Values) any) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fa.handlers[path] = fn
}

// respond registers a fixed JSON response for path.
func (fa *fakeAdmin) respond(path string, body any) {
	fa.handle(path, func(url.Values) any { return body })
}

func (fa *fakeAdmin) serve(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	path := strings.TrimPrefix(r.URL.Path, "/arcgis/admin")

	fa.mu.Lock()
	fa.calls = append(fa.calls, adminCall{Path: path, Token: r.URL.Query().Get("token"), Form: r.PostForm})

	var body any
	switch {
	case path == "/generateToken":
		body = fa.issueLocked(r.PostForm)
	case r.URL.Query().Get("token") != fa.current || r.URL.Query().Get("f") != "json":
		body = map[string]any{"status": "error", "messages": []string{"Invalid token."}, "code": 498}
	default:
		if h, ok := fa.handlers[path]; ok {
			fa.mu.Unlock()
			body = h(r.PostForm)
			fa.mu.Lock()
		} else {
			body = map[string]any{"status": "error", "messages": []string{"Could not find resource " + path}, "code": 404}
		}
	}
	fa.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (fa *fakeAdmin) issueLocked(form url.Values) any {
	if fa.rejectAll || form.Get("password") != "s3cret" {
		return map[string]any{"status": "error", "messages": []string{"Unable to generate token.", "Invalid username or password."}}
	}
	minutes, _ := strconv.Atoi(form.Get("expiration"))
	now := fa.clock.Now()
	expires := now.Add(time.Duration(minutes) * time.Minute)
	if fa.expiresAt != nil {
		expires = fa.expiresAt(now, minutes)
	}
	fa.issued++
	fa.current = "tok-" + strconv.Itoa(fa.issued)
	return map[string]any{"token": fa.current, "expires": expires.UnixMilli()}
}

func (fa *fakeAdmin) paths() []string {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	out := make([]string, 0, len(fa.calls))
	for _, c := range fa.calls {
		out = append(out, c.Path)
	}
	return out
}

func (fa *fakeAdmin) lastCall(path string) adminCall {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	for i := len(fa.calls) - 1; i >= 0; i-- {
		if fa.calls[i].Path == path {
			return fa.calls[i]
		}
	}
	fa.t.Fatalf("no call to %s", path)
	return adminCall{}
}

func (fa *fakeAdmin) countCalls(path string) int {
	n := 0
	for _, p := range fa.paths() {
		if p == path {
			n++
		}
	}
	return n
}

func (fa *fakeAdmin) resetCalls() {
	fa.mu.Lock()
	fa.calls = nil
	fa.mu.Unlock()
}

func (fa *fakeAdmin) credentials() Credentials {
	u, _ := url.Parse(fa.srv.URL)
	host, portStr, _ := net.SplitHostPort(u.Host)
	port, _ := strconv.Atoi(portStr)
	return Credentials{Username: "admin", Password: "s3cret", Host: host, Port: port}
}

// recordingRecorder collects audit records in memory.
type recordingRecorder struct {
	mu      sync.Mutex
	actions []model.AdminAction
	err     error
}

func (r *recordingRecorder) RecordAction(_ context.Context, a model.AdminAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, a)
	return r.err
}

func (r *recordingRecorder) all() []model.AdminAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.AdminAction(nil), r.actions...)
}

// newTestSession opens a session against fa through the real dispatcher.
func newTestSession(t *testing.T, fa *fakeAdmin, rec Recorder) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), SessionConfig{
		Credentials: fa.credentials(),
		Dispatcher:  httpclient.New(zap.NewNop(), nil, fa.srv.Client()),
		Recorder:    rec,
		Now:         fa.clock.Now,
	})
	require.NoError(t, err)
	return s
}

// stubDispatcher returns scripted responses in order and records the URLs it was given.
type stubDispatcher struct {
	responses []stubResponse
	urls      []string
	params    []url.Values
}

type stubResponse struct {
	body any
	err  error
}

func (d *stubDispatcher) Send(_ context.Context, rawURL string, params url.Values) (any, error) {
	d.urls = append(d.urls, rawURL)
	d.params = append(d.params, params)
	if len(d.responses) == 0 {
		return nil, &httpclient.TransportError{URL: rawURL, Err: errNoStub}
	}
	r := d.responses[0]
	d.responses = d.responses[1:]
	return r.body, r.err
}

var errNoStub = errors.New("no scripted response")

func tokenResponse(value string, expires time.Time) stubResponse {
	return stubResponse{body: map[string]any{"token": value, "expires": json.Number(strconv.FormatInt(expires.UnixMilli(), 10))}}
}

func testCreds() Credentials {
	return Credentials{Username: "admin", Password: "s3cret", Host: "arcola", Port: 6080}
}
