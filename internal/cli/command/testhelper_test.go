package command

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

type adminCall struct {
	Path string
	Form url.Values
}

// mockAdmin is an httptest ArcGIS Server admin endpoint. generateToken accepts
// the password s3cret; other paths are answered from responses.
type mockAdmin struct {
	*httptest.Server
	host string
	port string

	mu        sync.Mutex
	calls     []adminCall
	responses map[string]any
}

func newMockAdmin(t *testing.T) *mockAdmin {
	t.Helper()
	return startMockAdmin(t, httptest.NewServer)
}

// newTLSMockAdmin serves over https with a self-signed certificate.
func newTLSMockAdmin(t *testing.T) *mockAdmin {
	t.Helper()
	return startMockAdmin(t, httptest.NewTLSServer)
}

func startMockAdmin(t *testing.T, start func(http.Handler) *httptest.Server) *mockAdmin {
	t.Helper()
	m := &mockAdmin{responses: make(map[string]any)}
	m.Server = start(http.HandlerFunc(m.serve))
	t.Cleanup(m.Close)

	u, err := url.Parse(m.URL)
	require.NoError(t, err)
	m.host, m.port, err = net.SplitHostPort(u.Host)
	require.NoError(t, err)
	return m
}

func (m *mockAdmin) respond(path string, body any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[path] = body
}

func (m *mockAdmin) serve(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	path := strings.TrimPrefix(r.URL.Path, "/arcgis/admin")

	m.mu.Lock()
	m.calls = append(m.calls, adminCall{Path: path, Form: r.PostForm})
	body, ok := m.responses[path]
	m.mu.Unlock()

	switch {
	case path == "/generateToken":
		if r.PostForm.Get("password") != "s3cret" {
			body = map[string]any{"status": "error", "messages": []string{"Invalid username or password."}}
		} else {
			body = map[string]any{"token": "tok-1", "expires": time.Now().Add(time.Hour).UnixMilli()}
		}
	case r.URL.Query().Get("token") != "tok-1":
		body = map[string]any{"status": "error", "messages": []string{"Invalid token."}, "code": 498}
	case !ok:
		body = map[string]any{"status": "error", "messages": []string{"Could not find resource " + path}, "code": 404}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func (m *mockAdmin) paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.calls))
	for _, c := range m.calls {
		out = append(out, c.Path)
	}
	return out
}

func (m *mockAdmin) lastForm(path string) url.Values {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.calls) - 1; i >= 0; i-- {
		if m.calls[i].Path == path {
			return m.calls[i].Form
		}
	}
	return nil
}

var success = map[string]any{"status": "success"}

// runApp runs agsadmin against m with valid credentials and returns stdout.
func runApp(t *testing.T, m *mockAdmin, args ...string) (string, error) {
	t.Helper()
	return runAppWithPassword(t, m, "s3cret", args...)
}

func runAppWithPassword(t *testing.T, m *mockAdmin, password string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NATS_URL", "")
	t.Setenv("DATABASE_URL", "")
	return runConfigured(t, App(), m, password, args...)
}

// runConfigured runs app against m; app carries its own flag defaults.
func runConfigured(t *testing.T, app *cli.App, m *mockAdmin, password string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Metadata = map[string]any{loggerKey: zap.NewNop()}

	full := []string{"agsadmin", "--host", m.host, "--port", m.port, "--username", "siteadmin", "--password", password}
	err := app.Run(append(full, args...))
	return out.String(), err
}
