package command

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/nats-io/nats.go"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/audit"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/httpclient"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/rate"
	internalsecrets "github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/secrets"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/store"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/config"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/secrets"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/utils"
)

const (
	credentialsFromEnv = "env"
	credentialsFromAWS = "aws"

	auditSource = "agsadmin"
)

// newSecretsProvider is replaced in tests.
var newSecretsProvider = func(ctx context.Context, region string) (secrets.Provider, error) {
	return secrets.NewAWSProvider(ctx, region)
}

// Connection is a signed-in session plus the audit sinks opened for it.
type Connection struct {
	Session   *admin.Session
	NC        *nats.Conn       // nil when NATS is not configured
	Publisher *audit.Publisher // nil when NATS is not configured

	closers []func()
}

// Close releases the audit sinks and the credential cache cleaner in reverse
// order of opening.
func (c *Connection) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Connect resolves credentials, opens the configured audit sinks and signs in.
// The caller must Close the returned connection.
func Connect(c *cli.Context) (*Connection, error) {
	return connect(c, nil)
}

// connect is Connect with an optional audit database. When auditDB is set the
// audit writer uses it and --database-url is not opened again.
func connect(c *cli.Context, auditDB audit.DBExecutor) (*Connection, error) {
	ctx := c.Context
	flags := ParseGlobalFlags(c)
	cfg := Config(c)
	log := Logger(c)

	conn := &Connection{}
	creds, err := conn.resolveCredentials(ctx, flags, cfg, log)
	if err != nil {
		conn.Close()
		return nil, err
	}

	recorder, err := conn.openAudit(ctx, flags, cfg, log, auditDB)
	if err != nil {
		conn.Close()
		return nil, err
	}

	dispatcher := httpclient.New(log,
		rate.NewManager(rate.Config{RequestsPerSecond: flags.RateLimitRPS, Burst: flags.RateLimitBurst}),
		newHTTPClient(flags),
	)

	session, err := admin.NewSession(ctx, admin.SessionConfig{
		Credentials: creds,
		Dispatcher:  dispatcher,
		Expiration:  flags.TokenExpiration,
		Logger:      log,
		Recorder:    recorder,
	})
	if err != nil {
		conn.Close()
		return nil, err
	}
	conn.Session = session
	return conn, nil
}

func newHTTPClient(flags *GlobalFlags) *http.Client {
	client := &http.Client{Timeout: flags.HTTPTimeout}
	if flags.Insecure {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // self-signed ArcGIS sites
		client.Transport = tr
	}
	return client
}

func (c *Connection) resolveCredentials(ctx context.Context, flags *GlobalFlags, cfg *config.Config, log *zap.Logger) (admin.Credentials, error) {
	switch flags.CredentialSource {
	case credentialsFromEnv, "":
		creds := admin.Credentials{
			Username: flags.Username,
			Password: flags.Password,
			Host:     flags.Host,
			Port:     flags.Port,
			Scheme:   flags.Scheme,
		}
		return creds, creds.Validate()
	case credentialsFromAWS:
		provider, err := newSecretsProvider(ctx, flags.AWSRegion)
		if err != nil {
			return admin.Credentials{}, err
		}
		resolver := internalsecrets.NewCredentialResolver(log, flags.Env, flags.Port, provider, c.credentialCache(cfg))
		return resolver.Resolve(ctx, flags.Host)
	default:
		return admin.Credentials{}, fmt.Errorf("unknown credential source %q (want env or aws)", flags.CredentialSource)
	}
}

// credentialCache returns a cache living cfg.CacheTTL per entry. Its cleaner
// runs every cfg.CleanupFreq until the connection is closed.
func (c *Connection) credentialCache(cfg *config.Config) *secrets.Cache[admin.Credentials] {
	cache := secrets.NewCache[admin.Credentials](cfg.CacheTTL)
	if cfg.CleanupFreq > 0 {
		stop := make(chan struct{})
		go cache.StartCleaner(cfg.CleanupFreq, stop)
		c.closers = append(c.closers, func() { close(stop) })
	}
	return cache
}

// pgPoolConfig maps the PG_* settings onto a pool config.
func pgPoolConfig(cfg *config.Config) store.PGPoolConfig {
	return store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}
}

// openAudit connects the NATS publisher and the Postgres writer when they are
// configured and returns their combined recorder, or nil when neither is.
// A non-nil db is used for the writer and stays owned by the caller.
func (c *Connection) openAudit(ctx context.Context, flags *GlobalFlags, cfg *config.Config, log *zap.Logger, db audit.DBExecutor) (admin.Recorder, error) {
	var sinks []admin.Recorder

	if flags.NATSURL != "" {
		nc, err := nats.Connect(flags.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("connect to NATS: %w", err)
		}
		pub, err := audit.NewPublisher(nc, flags.AuditSubject, auditSource, log)
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("init audit publisher: %w", err)
		}
		c.NC, c.Publisher = nc, pub
		c.closers = append(c.closers, pub.Close)

		if flags.AuditStream != "" {
			if err := pub.EnsureStream(flags.AuditStream); err != nil {
				log.Warn("audit.ensure_stream_failed",
					zap.String("stream", flags.AuditStream),
					zap.Error(err))
			}
		}
		sinks = append(sinks, pub)
	}

	if db == nil && flags.DatabaseURL != "" {
		pool, err := store.OpenPG(ctx, flags.DatabaseURL, pgPoolConfig(cfg))
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, pool.Close)
		log.Debug("audit.pg_opened", zap.String("dsn", utils.MaskDSN(flags.DatabaseURL)))
		db = pool
	}

	if db != nil {
		writer := audit.NewPGWriter(db, log)
		if err := writer.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure audit schema: %w", err)
		}
		sinks = append(sinks, writer)
	}

	return audit.Combine(sinks...), nil
}

// withSession connects, runs fn and closes the connection.
func withSession(c *cli.Context, fn func(s *admin.Session) error) error {
	conn, err := Connect(c)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn.Session)
}
