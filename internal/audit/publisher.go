package audit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/metrics"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/model"
)

const (
	// EventAdminAction is the event type carried by audit envelopes.
	EventAdminAction = "arcgis.admin.action"
	eventVersion     = "1.0.0"
)

// JetStream is the subset of nats.JetStreamContext the publisher uses.
type JetStream interface {
	PublishMsg(msg *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
}

// conn is the part of *nats.Conn the publisher closes.
type conn interface {
	IsClosed() bool
	Drain() error
	Close()
}

// Publisher sends admin action envelopes to NATS JetStream.
type Publisher struct {
	nc      conn
	js      JetStream
	subject string
	source  string
	logger  *zap.Logger
}

// NewPublisher creates a Publisher on nc with JetStream enabled.
func NewPublisher(nc *nats.Conn, subject, source string, logger *zap.Logger) (*Publisher, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	p := NewPublisherWithJetStream(js, subject, source, logger)
	p.nc = nc
	return p, nil
}

// NewPublisherWithJetStream creates a Publisher on an existing JetStream context.
func NewPublisherWithJetStream(js JetStream, subject, source string, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{js: js, subject: subject, source: source, logger: logger}
}

// EnsureStream creates stream bound to the publisher's subject if it does not exist.
func (p *Publisher) EnsureStream(name string) error {
	_, err := p.js.StreamInfo(name)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return err
	}
	_, err = p.js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: []string{p.subject},
		Storage:  nats.FileStorage,
	})
	if err == nil {
		p.logger.Info("audit.stream_created",
			zap.String("stream", name),
			zap.String("subject", p.subject))
	}
	return err
}

// RecordAction wraps action in an envelope and publishes it.
func (p *Publisher) RecordAction(ctx context.Context, action model.AdminAction) error {
	payload, err := json.Marshal(action)
	if err != nil {
		metrics.IncAuditRecord("nats", "marshal_failed")
		return err
	}
	env := &model.Envelope{
		ID:            uuid.New(),
		CorrelationID: action.ID,
		Source:        p.source,
		Topic:         p.subject,
		EventType:     EventAdminAction,
		Version:       eventVersion,
		Timestamp:     time.Now().UTC(),
		Payload:       payload,
	}
	return p.PublishEnvelope(ctx, env)
}

// PublishEnvelope serializes env and publishes it on the configured subject.
func (p *Publisher) PublishEnvelope(_ context.Context, env *model.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("audit.marshal_failed",
			zap.String("event_type", env.EventType),
			zap.Error(err))
		metrics.IncAuditRecord("nats", "marshal_failed")
		return err
	}

	msg := &nats.Msg{
		Subject: p.subject,
		Data:    data,
		Header: nats.Header{
			"event_type":     []string{env.EventType},
			"correlation_id": []string{env.CorrelationID.String()},
			"source":         []string{p.source},
			"content_type":   []string{"application/json"},
		},
	}

	if _, err := p.js.PublishMsg(msg, nats.MsgId(env.ID.String())); err != nil {
		p.logger.Error("audit.publish_failed",
			zap.String("subject", p.subject),
			zap.String("event_type", env.EventType),
			zap.Error(err))
		metrics.IncAuditRecord("nats", "error")
		return err
	}

	p.logger.Debug("audit.publish_success",
		zap.String("subject", p.subject),
		zap.String("event_id", env.ID.String()))
	metrics.IncAuditRecord("nats", "ok")
	return nil
}

// Publish sends a raw JSON payload on subject, for notifications that are not
// admin actions.
func (p *Publisher) Publish(_ context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{"source": []string{p.source}},
	}
	if _, err := p.js.PublishMsg(msg); err != nil {
		p.logger.Warn("audit.raw_publish_failed",
			zap.String("subject", subject),
			zap.Error(err))
		return err
	}
	return nil
}

// Close drains the underlying connection, if the publisher owns one. A
// connection that cannot drain, such as one still reconnecting, is closed
// outright.
func (p *Publisher) Close() {
	if p.nc == nil || p.nc.IsClosed() {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("audit.drain_failed", zap.Error(err))
		p.nc.Close()
	}
}
