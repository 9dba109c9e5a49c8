package command

import (
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
)

// FoldersCommand returns the folders subcommand group.
func FoldersCommand() *cli.Command {
	return &cli.Command{
		Name:  "folders",
		Usage: "List and create service folders",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List folders under /services",
				Action: foldersList,
			},
			{
				Name:      "create",
				Usage:     "Create a folder",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Folder description",
					},
				},
				Action: foldersCreate,
			},
		},
	}
}

func foldersList(c *cli.Context) error {
	return withSession(c, func(s *admin.Session) error {
		folders, err := s.ListFolders(c.Context)
		if err != nil {
			return err
		}
		return render(c, folders, nil)
	})
}

func foldersCreate(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return errors.New("folder name is required")
	}

	return withSession(c, func(s *admin.Session) error {
		if err := s.CreateFolder(c.Context, name, c.String("description")); err != nil {
			return err
		}
		return render(c, map[string]string{"folder": name}, func(w io.Writer) {
			fmt.Fprintf(w, "Created folder: %s\n", name)
		})
	})
}
