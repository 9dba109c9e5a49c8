package command

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/cli/report"
)

type tokenStatus struct {
	Server  string    `json:"server"`
	Expires time.Time `json:"expires"`
	Renewed bool      `json:"renewed"`
}

// TokenCommand signs in and reports the token lifetime.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Sign in and show when the token expires",
		Action: func(c *cli.Context) error {
			return withSession(c, func(s *admin.Session) error {
				renewed, err := s.EnsureToken(c.Context)
				if err != nil {
					return err
				}
				status := tokenStatus{
					Server:  s.Credentials().Server(),
					Expires: s.Token().Expires,
					Renewed: renewed,
				}
				return render(c, status, func(w io.Writer) {
					fmt.Fprintf(w, "Token for %s valid until %s\n",
						status.Server, status.Expires.Format(time.RFC3339))
				})
			})
		},
	}
}

// InfoCommand prints clusters, version, log level and license details.
func InfoCommand() *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show clusters, machines, version, log level and license",
		Action: func(c *cli.Context) error {
			return withSession(c, func(s *admin.Session) error {
				r, err := s.ServerInfo(c.Context)
				if err != nil {
					return err
				}
				return render(c, r, func(w io.Writer) { report.ServerInfo(w, r) })
			})
		},
	}
}

// ExportCommand backs up the site configuration.
func ExportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export the site configuration to a directory on the server",
		ArgsUsage: "LOCATION",
		Action: func(c *cli.Context) error {
			location := c.Args().First()
			if location == "" {
				return errors.New("export location is required")
			}
			return withSession(c, func(s *admin.Session) error {
				path, err := s.ExportSite(c.Context, location)
				if err != nil {
					return err
				}
				return render(c, map[string]string{"location": path}, func(w io.Writer) {
					fmt.Fprintf(w, "Exported site to %s\n", path)
				})
			})
		},
	}
}
