package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/cli/report"
)

type serviceRow struct {
	Service string `json:"service"`
	Folder  string `json:"folder"`
	Name    string `json:"name"`
	Type    string `json:"type"`
}

type outcomeRow struct {
	Service string `json:"service"`
	Action  string `json:"action"`
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
}

// ServicesCommand returns the services subcommand group.
func ServicesCommand() *cli.Command {
	return &cli.Command{
		Name:    "services",
		Aliases: []string{"svc"},
		Usage:   "List, rename, start, stop and delete services",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List services outside the System and Utilities folders",
				Action: servicesList,
			},
			{
				Name:      "rename",
				Usage:     "Rename a service",
				ArgsUsage: "[FOLDER//]NAME.TYPE NEW_NAME",
				Action:    servicesRename,
			},
			actionCommand(admin.ActionStart, "Start services"),
			actionCommand(admin.ActionStop, "Stop services"),
			actionCommand(admin.ActionDelete, "Delete services"),
		},
	}
}

func actionCommand(action admin.ServiceAction, usage string) *cli.Command {
	return &cli.Command{
		Name:      string(action),
		Usage:     usage,
		ArgsUsage: "[FOLDER//]NAME.TYPE...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Apply to every listed service",
			},
		},
		Action: func(c *cli.Context) error {
			return servicesApply(c, action)
		},
	}
}

func servicesList(c *cli.Context) error {
	return withSession(c, func(s *admin.Session) error {
		refs, err := s.ListServices(c.Context)
		if err != nil {
			return err
		}
		return render(c, serviceRows(refs), nil)
	})
}

func servicesRename(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("usage: services rename [FOLDER//]NAME.TYPE NEW_NAME")
	}
	ref, newName := c.Args().Get(0), c.Args().Get(1)

	return withSession(c, func(s *admin.Session) error {
		if err := s.RenameService(c.Context, ref, newName); err != nil {
			return err
		}
		return render(c, map[string]string{"service": ref, "newName": newName}, func(w io.Writer) {
			fmt.Fprintf(w, "Successfully renamed service to : %s\n", newName)
		})
	})
}

func servicesApply(c *cli.Context, action admin.ServiceAction) error {
	services := c.Args().Slice()
	all := c.Bool("all")
	switch {
	case all && len(services) > 0:
		return errors.New("--all cannot be combined with service names")
	case !all && len(services) == 0:
		return fmt.Errorf("no services given; name them or pass --all")
	}

	return withSession(c, func(s *admin.Session) error {
		if all {
			refs, err := s.ListServices(c.Context)
			if err != nil {
				return err
			}
			for _, r := range refs {
				services = append(services, r.String())
			}
		}

		outcomes := s.ApplyServiceAction(c.Context, action, services)

		failed := 0
		rows := make([]outcomeRow, 0, len(outcomes))
		for _, o := range outcomes {
			row := outcomeRow{Service: o.Service, Action: string(o.Action), OK: o.OK()}
			if !o.OK() {
				failed++
				row.Error = o.Err.Error()
			}
			rows = append(rows, row)
		}

		if err := render(c, rows, func(w io.Writer) { report.Outcomes(w, outcomes) }); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%s failed for %d of %d services", action, failed, len(outcomes))
		}
		return nil
	})
}

func serviceRows(refs []admin.ServiceRef) []serviceRow {
	rows := make([]serviceRow, 0, len(refs))
	for _, r := range refs {
		rows = append(rows, serviceRow{
			Service: r.String(),
			Folder:  r.Folder,
			Name:    r.Name,
			Type:    r.Type,
		})
	}
	return rows
}
