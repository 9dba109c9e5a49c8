package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/metrics"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/model"
)

// DefaultExpiration is the token lifetime requested when none is configured.
const DefaultExpiration = 60 * time.Minute

// Dispatcher sends one form-encoded request and returns the decoded JSON body.
type Dispatcher interface {
	Send(ctx context.Context, rawURL string, params url.Values) (any, error)
}

// Recorder receives an audit record for every mutating operation.
type Recorder interface {
	RecordAction(ctx context.Context, action model.AdminAction) error
}

// SessionConfig configures NewSession.
type SessionConfig struct {
	Credentials Credentials
	Dispatcher  Dispatcher
	Expiration  time.Duration    // requested token lifetime; DefaultExpiration when zero
	Logger      *zap.Logger      // nil disables logging
	Recorder    Recorder         // optional audit sink
	Now         func() time.Time // clock; time.Now when nil
}

// Session is an authenticated connection to one ArcGIS Server site.
//
// All operations go through call, which holds mu across the token check and the
// request, so concurrent callers are serialized instead of racing on the token.
type Session struct {
	mu         sync.Mutex
	creds      Credentials
	adminURL   string
	dispatcher Dispatcher
	expiration time.Duration
	token      Token
	logger     *zap.Logger
	recorder   Recorder
	now        func() time.Time
}

// NewSession acquires a token and returns a ready session. It fails with an
// *AuthenticationError when the server does not issue a token.
func NewSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}
	if cfg.Dispatcher == nil {
		return nil, errors.New("admin: dispatcher is required")
	}

	s := &Session{
		creds:      cfg.Credentials,
		adminURL:   cfg.Credentials.AdminURL(),
		dispatcher: cfg.Dispatcher,
		expiration: cfg.Expiration,
		logger:     cfg.Logger,
		recorder:   cfg.Recorder,
		now:        cfg.Now,
	}
	if s.expiration <= 0 {
		s.expiration = DefaultExpiration
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}

	tok, err := s.acquire(ctx, "initial")
	if err != nil {
		return nil, err
	}
	if !tok.ValidAt(s.now()) {
		// Clock skew: keep the token but let the first call renew it.
		s.logger.Warn("admin.token_already_expired",
			zap.String("server", s.creds.Server()),
			zap.Time("expires", tok.Expires))
	}
	s.token = tok
	return s, nil
}

// Credentials returns the session's credentials.
func (s *Session) Credentials() Credentials {
	return s.creds
}

// AdminURL returns the base admin URL.
func (s *Session) AdminURL() string {
	return s.adminURL
}

// Token returns a copy of the current token.
func (s *Session) Token() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// EnsureToken renews the token if it has expired and reports whether it did.
func (s *Session) EnsureToken(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureToken(ctx)
}

// ensureToken must be called with mu held.
func (s *Session) ensureToken(ctx context.Context) (bool, error) {
	if s.token.ValidAt(s.now()) {
		return false, nil
	}

	tok, err := s.acquire(ctx, "renewal")
	if err != nil {
		return false, err
	}
	if !tok.ValidAt(s.now()) {
		metrics.IncTokenAcquisition("renewal", "expired")
		return false, &AuthenticationError{
			Messages: []string{fmt.Sprintf("server issued a token that expired at %s", tok.Expires.UTC().Format(time.RFC3339))},
		}
	}

	s.token = tok
	s.logger.Info("admin.token_renewed",
		zap.String("server", s.creds.Server()),
		zap.Time("expires", tok.Expires))
	return true, nil
}

// acquire calls generateToken with the stored credentials.
func (s *Session) acquire(ctx context.Context, reason string) (Token, error) {
	params := url.Values{}
	params.Set("username", s.creds.Username)
	params.Set("password", s.creds.Password)
	params.Set("expiration", strconv.Itoa(expirationMinutes(s.expiration)))
	params.Set("client", "requestip")
	params.Set("f", "json")

	raw, err := s.dispatcher.Send(ctx, s.adminURL+"/generateToken", params)
	if err != nil {
		metrics.IncTokenAcquisition(reason, "transport_error")
		s.logger.Error("admin.token_request_failed",
			zap.String("server", s.creds.Server()),
			zap.String("reason", reason),
			zap.Error(err))
		return Token{}, &AuthenticationError{Err: err}
	}

	obj, _ := raw.(map[string]any)
	value, _ := obj["token"].(string)
	if value == "" {
		metrics.IncTokenAcquisition(reason, "rejected")
		authErr := &AuthenticationError{Messages: messagesOf(raw)}
		s.logger.Error("admin.token_rejected",
			zap.String("server", s.creds.Server()),
			zap.String("user", s.creds.Username),
			zap.Strings("messages", authErr.Messages))
		return Token{}, authErr
	}

	expires, ok := epochMillis(obj["expires"])
	if !ok {
		// No usable expiry: assume the requested lifetime.
		expires = s.now().Add(s.expiration)
	}

	metrics.IncTokenAcquisition(reason, "ok")
	s.logger.Debug("admin.token_acquired",
		zap.String("server", s.creds.Server()),
		zap.String("reason", reason),
		zap.Time("expires", expires))
	return Token{Value: value, Expires: expires}, nil
}

// call is the guarded-access path shared by every operation: renew the token if
// needed, then dispatch to adminURL+path with the standard query.
func (s *Session) call(ctx context.Context, path string, params url.Values) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.ensureToken(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("f", "json")
	query.Set("token", s.token.Value)
	return s.dispatcher.Send(ctx, s.adminURL+path+"?"+query.Encode(), params)
}

// callChecked dispatches a mutating request and requires status == "success".
func (s *Session) callChecked(ctx context.Context, operation, path string, params url.Values) (Result, error) {
	raw, err := s.call(ctx, path, params)
	if err != nil {
		return Result{}, err
	}
	res := Classify(raw)
	return res, res.Err(operation)
}

// record sends an audit record for a mutating operation. Transport and
// authentication failures are recorded too, with the error text as message.
func (s *Session) record(ctx context.Context, operation, target string, opErr error) {
	if s.recorder == nil {
		return
	}

	action := model.AdminAction{
		ID:        uuid.New(),
		Server:    s.creds.Server(),
		User:      s.creds.Username,
		Operation: operation,
		Target:    target,
		Success:   opErr == nil,
		Timestamp: s.now().UTC(),
	}
	var be *BusinessError
	switch {
	case errors.As(opErr, &be):
		action.Messages = be.Messages
	case opErr != nil:
		action.Messages = []string{opErr.Error()}
	}

	if err := s.recorder.RecordAction(ctx, action); err != nil {
		s.logger.Warn("admin.audit_record_failed",
			zap.String("operation", operation),
			zap.String("target", target),
			zap.Error(err))
	}
}

func expirationMinutes(d time.Duration) int {
	m := int(d / time.Minute)
	if m < 1 {
		return 1
	}
	return m
}

// epochMillis reads an epoch-milliseconds value in any scalar JSON form.
func epochMillis(v any) (time.Time, bool) {
	var ms int64
	switch t := v.(type) {
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil {
				return time.Time{}, false
			}
			n = int64(f)
		}
		ms = n
	case float64:
		ms = int64(t)
	case string:
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		ms = n
	default:
		return time.Time{}, false
	}
	if ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
