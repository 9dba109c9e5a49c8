package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
)

// LogsCommand returns the logs subcommand group.
func LogsCommand() *cli.Command {
	return &cli.Command{
		Name:  "logs",
		Usage: "Inspect and change server log settings",
		Subcommands: []*cli.Command{
			{
				Name:   "settings",
				Usage:  "Show the current log settings",
				Action: logsSettings,
			},
			{
				Name:  "modify",
				Usage: "Set the log level, optionally clearing the logs first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "level",
						Aliases:  []string{"l"},
						Usage:    "SEVERE, WARNING, INFO, FINE, VERBOSE or DEBUG",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "clear",
						Usage: "Delete existing log files before changing the level",
					},
				},
				Action: logsModify,
			},
		},
	}
}

func logsSettings(c *cli.Context) error {
	return withSession(c, func(s *admin.Session) error {
		settings, err := s.LogSettings(c.Context)
		if err != nil {
			return err
		}
		return render(c, settings, nil)
	})
}

func logsModify(c *cli.Context) error {
	level, err := admin.ParseLogLevel(c.String("level"))
	if err != nil {
		return err
	}
	clearLogs := c.Bool("clear")
	if c.NArg() > 0 {
		return errors.New("logs modify takes no arguments")
	}

	return withSession(c, func(s *admin.Session) error {
		cleared, err := s.ModifyLogs(c.Context, clearLogs, level)
		if err != nil {
			return err
		}
		return render(c, map[string]any{"cleared": cleared, "logLevel": level}, func(w io.Writer) {
			switch {
			case cleared:
				fmt.Fprintln(w, "Cleared log files")
			case clearLogs:
				fmt.Fprintln(w, "Could not clear log files")
			}
			fmt.Fprintf(w, "Successfully changed log level to %s\n", level)
		})
	})
}
