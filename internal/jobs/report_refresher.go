package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/metrics"
)

// SubjectReportRefreshed is published after every successful refresh.
const SubjectReportRefreshed = "evt.arcgis.report.refreshed.v1"

// Reporter builds a server report; *admin.Session satisfies it.
type Reporter interface {
	ServerInfo(ctx context.Context) (*admin.ServerReport, error)
}

// ReportSaver caches a report.
type ReportSaver interface {
	SaveReport(ctx context.Context, report *admin.ServerReport, ttl time.Duration) error
}

// EventPublisher sends a notification payload on a subject.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

// ReportRefresher periodically rebuilds the server report, caches it and
// emits a NATS event when the cache is updated.
type ReportRefresher struct {
	logger    *zap.Logger
	reporter  Reporter
	saver     ReportSaver
	publisher EventPublisher // optional
	interval  time.Duration
	ttl       time.Duration
	stopCh    chan struct{}
}

// NewReportRefresher constructs a background job that runs every interval and
// caches reports for ttl.
func NewReportRefresher(logger *zap.Logger, reporter Reporter, saver ReportSaver, pub EventPublisher, interval, ttl time.Duration) *ReportRefresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportRefresher{
		logger:    logger,
		reporter:  reporter,
		saver:     saver,
		publisher: pub,
		interval:  interval,
		ttl:       ttl,
		stopCh:    make(chan struct{}),
	}
}

// Start refreshes once immediately, then on every tick until stopped.
func (r *ReportRefresher) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("report_refresher.started", zap.Duration("interval", r.interval))
	_ = r.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			_ = r.RunOnce(ctx)
		case <-r.stopCh:
			r.logger.Info("report_refresher.stopped (manual stop)")
			return
		case <-ctx.Done():
			r.logger.Info("report_refresher.stopped (context canceled)")
			return
		}
	}
}

// Stop halts the refresher. It must be called at most once.
func (r *ReportRefresher) Stop() {
	close(r.stopCh)
}

// RunOnce executes one refresh cycle.
func (r *ReportRefresher) RunOnce(ctx context.Context) error {
	start := time.Now()

	report, err := r.reporter.ServerInfo(ctx)
	if err != nil {
		metrics.IncReportRefresh("report_failed")
		r.logger.Error("report_refresher.report_failed", zap.Error(err))
		return err
	}

	if err := r.saver.SaveReport(ctx, report, r.ttl); err != nil {
		metrics.IncReportRefresh("cache_failed")
		r.logger.Error("report_refresher.cache_failed",
			zap.String("server", report.Server),
			zap.Error(err))
		return err
	}
	metrics.IncReportRefresh("ok")

	if r.publisher != nil {
		event := map[string]any{
			"event":        SubjectReportRefreshed,
			"server":       report.Server,
			"version":      report.Version,
			"generated_at": report.GeneratedAt,
			"duration_ms":  time.Since(start).Milliseconds(),
		}
		if err := r.publisher.Publish(ctx, SubjectReportRefreshed, event); err != nil {
			r.logger.Warn("report_refresher.nats_publish_failed", zap.Error(err))
		}
	}

	r.logger.Info("report_refresher.success",
		zap.String("server", report.Server),
		zap.Duration("duration", time.Since(start)))
	return nil
}
