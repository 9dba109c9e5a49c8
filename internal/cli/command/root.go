// Package command provides the agsadmin command definitions.
//
// Every command signs in to one ArcGIS Server site with the global connection
// flags, runs a single admin operation and prints the result. The serve
// command keeps a session open and exposes read-only reports over HTTP.
package command

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/cli/output"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/config"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/logger"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/utils"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

const (
	loggerKey = "logger"
	configKey = "config"
)

// App creates the CLI application with defaults from the environment.
func App() *cli.App {
	return NewApp(config.Load())
}

// NewApp creates the CLI application. cfg supplies every flag default, so an
// environment variable and its flag never disagree.
func NewApp(cfg *config.Config) *cli.App {
	return &cli.App{
		Name:    "agsadmin",
		Usage:   "ArcGIS Server administration from the command line",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:   globalFlags(cfg),
		Commands: []*cli.Command{
			TokenCommand(),
			FoldersCommand(),
			ServicesCommand(),
			LogsCommand(),
			SecurityCommand(),
			InfoCommand(),
			ExportCommand(),
			ServeCommand(cfg),
		},
		Before: func(c *cli.Context) error {
			if c.App.Metadata == nil {
				c.App.Metadata = map[string]any{}
			}
			if _, ok := c.App.Metadata[loggerKey].(*zap.Logger); !ok {
				c.App.Metadata[loggerKey] = logger.L()
			}
			c.App.Metadata[configKey] = cfg
			_, err := output.ParseFormat(c.String("output"))
			return err
		},
	}
}

func globalFlags(cfg *config.Config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "host",
			Aliases: []string{"H"},
			Usage:   "ArcGIS Server host name [$AGS_HOST]",
			Value:   cfg.AGSHost,
		},
		&cli.IntFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "ArcGIS Server port [$AGS_PORT]",
			Value:   cfg.AGSPort,
		},
		&cli.StringFlag{
			Name:  "scheme",
			Usage: "http or https [$AGS_SCHEME]",
			Value: cfg.AGSScheme,
		},
		&cli.BoolFlag{
			Name:  "insecure",
			Usage: "Skip TLS certificate verification for self-signed sites [$AGS_TLS_INSECURE]",
			Value: cfg.TLSInsecure,
		},
		&cli.StringFlag{
			Name:    "username",
			Aliases: []string{"u"},
			Usage:   "Site administrator user name [$AGS_USERNAME]",
			Value:   cfg.AGSUsername,
		},
		&cli.StringFlag{
			Name:        "password",
			Usage:       "Site administrator password [$AGS_PASSWORD]",
			Value:       cfg.AGSPassword,
			DefaultText: maskSecret(cfg.AGSPassword),
		},
		&cli.DurationFlag{
			Name:  "token-expiration",
			Usage: "Requested token lifetime [$AGS_TOKEN_EXPIRATION]",
			Value: cfg.TokenExpiration,
		},
		&cli.DurationFlag{
			Name:  "http-timeout",
			Usage: "Per-request timeout, 0 waits indefinitely [$AGS_HTTP_TIMEOUT]",
			Value: cfg.HTTPTimeout,
		},
		&cli.IntFlag{
			Name:  "rate-limit-rps",
			Usage: "Maximum admin requests per second, 0 disables pacing [$AGS_RATE_LIMIT_RPS]",
			Value: cfg.RateLimitRPS,
		},
		&cli.IntFlag{
			Name:  "rate-limit-burst",
			Usage: "Burst allowed above the request rate [$AGS_RATE_LIMIT_BURST]",
			Value: cfg.RateLimitBurst,
		},
		&cli.StringFlag{
			Name:  "credential-source",
			Usage: "Where credentials come from: env or aws [$AGS_CREDENTIAL_SOURCE]",
			Value: cfg.CredentialSource,
		},
		&cli.StringFlag{
			Name:  "env",
			Usage: "Deployment environment used in secret names [$ENV]",
			Value: cfg.Env,
		},
		&cli.StringFlag{
			Name:  "aws-region",
			Usage: "AWS region for Secrets Manager [$AWS_REGION]",
			Value: cfg.AWSRegion,
		},
		&cli.StringFlag{
			Name:  "nats-url",
			Usage: "NATS server receiving audit events, empty disables [$NATS_URL]",
			Value: cfg.NATSURL,
		},
		&cli.StringFlag{
			Name:  "audit-subject",
			Usage: "Subject for audit events [$AUDIT_SUBJECT]",
			Value: cfg.AuditSubject,
		},
		&cli.StringFlag{
			Name:  "audit-stream",
			Usage: "JetStream stream for audit events, empty skips creation [$AUDIT_STREAM]",
			Value: cfg.AuditStream,
		},
		&cli.StringFlag{
			Name:        "database-url",
			Usage:       "Postgres DSN for the audit table, empty disables [$DATABASE_URL]",
			Value:       cfg.DatabaseURL,
			DefaultText: utils.MaskDSN(cfg.DatabaseURL),
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
	}
}

// maskSecret keeps a secret flag default out of --help.
func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	return "***"
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	// Site
	Host     string
	Port     int
	Scheme   string
	Insecure bool
	Username string
	Password string

	// Session
	TokenExpiration time.Duration
	HTTPTimeout     time.Duration
	RateLimitRPS    int
	RateLimitBurst  int

	// Credential lookup
	CredentialSource string
	Env              string
	AWSRegion        string

	// Audit sinks
	NATSURL      string
	AuditSubject string
	AuditStream  string
	DatabaseURL  string

	Output output.Format
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	format, _ := output.ParseFormat(c.String("output"))
	return &GlobalFlags{
		Host:             c.String("host"),
		Port:             c.Int("port"),
		Scheme:           c.String("scheme"),
		Insecure:         c.Bool("insecure"),
		Username:         c.String("username"),
		Password:         c.String("password"),
		TokenExpiration:  c.Duration("token-expiration"),
		HTTPTimeout:      c.Duration("http-timeout"),
		RateLimitRPS:     c.Int("rate-limit-rps"),
		RateLimitBurst:   c.Int("rate-limit-burst"),
		CredentialSource: c.String("credential-source"),
		Env:              c.String("env"),
		AWSRegion:        c.String("aws-region"),
		NATSURL:          c.String("nats-url"),
		AuditSubject:     c.String("audit-subject"),
		AuditStream:      c.String("audit-stream"),
		DatabaseURL:      c.String("database-url"),
		Output:           format,
	}
}

// Logger returns the application logger stored by Before.
func Logger(c *cli.Context) *zap.Logger {
	if l, ok := c.App.Metadata[loggerKey].(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// Config returns the configuration the app was built with.
func Config(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Load()
}

// render prints data with the selected formatter. In table mode text, when
// set, prints a human-readable report instead.
func render(c *cli.Context, data any, text func(w io.Writer)) error {
	flags := ParseGlobalFlags(c)
	if flags.Output == output.FormatTable && text != nil {
		text(c.App.Writer)
		return nil
	}
	return output.NewFormatter(flags.Output).Format(c.App.Writer, data)
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
