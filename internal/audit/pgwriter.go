package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/metrics"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/model"
)

// DBExecutor is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schemaDDL = `
	CREATE SCHEMA IF NOT EXISTS audit;
	CREATE TABLE IF NOT EXISTS audit.admin_action (
		id          UUID PRIMARY KEY,
		server      TEXT        NOT NULL,
		username    TEXT        NOT NULL,
		operation   TEXT        NOT NULL,
		target      TEXT        NOT NULL,
		success     BOOLEAN     NOT NULL,
		messages    TEXT[]      NOT NULL DEFAULT '{}',
		recorded_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS admin_action_server_time_idx
		ON audit.admin_action (server, recorded_at DESC);
`

const insertAction = `
	INSERT INTO audit.admin_action (
		id, server, username, operation, target, success, messages, recorded_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO NOTHING;
`

// PGWriter stores admin actions in audit.admin_action.
type PGWriter struct {
	db     DBExecutor
	logger *zap.Logger
}

// NewPGWriter constructs a writer on db.
func NewPGWriter(db DBExecutor, logger *zap.Logger) *PGWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGWriter{db: db, logger: logger}
}

// EnsureSchema creates the audit schema and table if missing.
func (w *PGWriter) EnsureSchema(ctx context.Context) error {
	_, err := w.db.Exec(ctx, schemaDDL)
	return err
}

// RecordAction inserts action. Re-inserting the same ID is a no-op.
func (w *PGWriter) RecordAction(ctx context.Context, action model.AdminAction) error {
	messages := action.Messages
	if messages == nil {
		messages = []string{}
	}

	_, err := w.db.Exec(ctx, insertAction,
		action.ID,
		action.Server,
		action.User,
		action.Operation,
		action.Target,
		action.Success,
		messages,
		action.Timestamp,
	)
	if err != nil {
		w.logger.Error("audit.pg_insert_failed",
			zap.String("operation", action.Operation),
			zap.String("target", action.Target),
			zap.Error(err))
		metrics.IncAuditRecord("postgres", "error")
		return err
	}

	w.logger.Debug("audit.pg_insert",
		zap.String("id", action.ID.String()),
		zap.String("operation", action.Operation))
	metrics.IncAuditRecord("postgres", "ok")
	return nil
}
