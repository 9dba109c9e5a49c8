package command

import (
	"errors"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/cli/report"
)

// SecurityCommand returns the security subcommand group.
func SecurityCommand() *cli.Command {
	return &cli.Command{
		Name:    "security",
		Aliases: []string{"sec"},
		Usage:   "Security settings, roles and users",
		Subcommands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Show the security configuration",
				Action: securityConfig,
			},
			{
				Name:   "roles",
				Usage:  "List roles",
				Action: securityRoles,
			},
			{
				Name:   "users",
				Usage:  "List users",
				Action: securityUsers,
			},
			{
				Name:      "users-in-role",
				Usage:     "List the users assigned to a role",
				ArgsUsage: "ROLE",
				Action:    securityUsersInRole,
			},
			{
				Name:      "roles-for-user",
				Usage:     "List the roles assigned to a user",
				ArgsUsage: "USER",
				Action:    securityRolesForUser,
			},
		},
	}
}

func securityConfig(c *cli.Context) error {
	return withSession(c, func(s *admin.Session) error {
		cfg, err := s.SecurityConfig(c.Context)
		if err != nil {
			return err
		}
		return render(c, cfg, func(w io.Writer) { report.Security(w, cfg) })
	})
}

func securityRoles(c *cli.Context) error {
	return withSession(c, func(s *admin.Session) error {
		roles, err := s.ListRoles(c.Context)
		if err != nil {
			return err
		}
		return render(c, roles, func(w io.Writer) { report.Roles(w, roles) })
	})
}

func securityUsers(c *cli.Context) error {
	return withSession(c, func(s *admin.Session) error {
		users, err := s.ListUsers(c.Context)
		if err != nil {
			return err
		}
		return render(c, users, func(w io.Writer) { report.Users(w, users) })
	})
}

func securityUsersInRole(c *cli.Context) error {
	role := c.Args().First()
	if role == "" {
		return errors.New("role name is required")
	}
	return withSession(c, func(s *admin.Session) error {
		users, err := s.UsersInRole(c.Context, role)
		if err != nil {
			return err
		}
		return render(c, users, func(w io.Writer) { report.UsersInRole(w, role, users) })
	})
}

func securityRolesForUser(c *cli.Context) error {
	user := c.Args().First()
	if user == "" {
		return errors.New("user name is required")
	}
	return withSession(c, func(s *admin.Session) error {
		roles, err := s.RolesForUser(c.Context, user)
		if err != nil {
			return err
		}
		return render(c, roles, func(w io.Writer) { report.RolesForUser(w, user, roles) })
	})
}
