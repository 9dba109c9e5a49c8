package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/api"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/audit"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/jobs"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/store"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/config"
)

// ServeCommand keeps a session open, refreshes the server report into Redis
// and serves it with health and metrics endpoints.
func ServeCommand(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve cached server reports over HTTP",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "http-port",
				Usage: "Listen port for the report API [$AGSADMIN_PORT]",
				Value: cfg.Port,
			},
		},
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	cfg := Config(c)
	flags := ParseGlobalFlags(c)
	log := Logger(c)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The store owns the Postgres pool; the audit writer shares it.
	st, err := store.NewHybrid(store.RedisConfig{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPass,
	}, flags.DatabaseURL, pgPoolConfig(cfg), log)
	if err != nil {
		return fmt.Errorf("init report store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("store.close_failed", zap.Error(err))
		}
	}()

	var auditDB audit.DBExecutor
	if st.PG != nil {
		auditDB = st.PG
	}
	conn, err := connect(c, auditDB)
	if err != nil {
		return err
	}
	defer conn.Close()
	server := conn.Session.Credentials().Server()

	var pub jobs.EventPublisher
	if conn.Publisher != nil {
		pub = conn.Publisher
	}
	refresher := jobs.NewReportRefresher(log, conn.Session, st, pub, cfg.RefreshInterval, cfg.ReportTTL)
	go refresher.Start(ctx)

	app := fiber.New(fiber.Config{
		ReadTimeout:           cfg.HTTPReadTimeout,
		WriteTimeout:          cfg.HTTPWriteTimeout,
		IdleTimeout:           cfg.HTTPIdleTimeout,
		DisableStartupMessage: true,
	})
	api.RegisterRoutes(app, conn.NC, st, api.NewAdminHandler(log, conn.Session, st, server))

	addr := fmt.Sprintf(":%d", c.Int("http-port"))
	listenErr := make(chan error, 1)
	go func() {
		log.Info("serve.listening", zap.String("addr", addr), zap.String("server", server))
		listenErr <- app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
	case err := <-listenErr:
		refresher.Stop()
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	log.Info("serve.shutting_down", zap.String("server", server))
	refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Warn("fiber.shutdown_failed", zap.Error(err))
	}
	return nil
}
