// Package report prints admin results as human-readable text.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
)

const rule = "*-----------------------------------------------*"

// Security prints the security settings tree. Nested objects are expanded one
// level below their key; deeper values are printed as-is.
func Security(w io.Writer, cfg map[string]any) {
	fmt.Fprint(w, "\n  ==Security settings==\n\n")
	for _, k := range sortedKeys(cfg) {
		nested, ok := cfg[k].(map[string]any)
		if !ok {
			fmt.Fprintf(w, "%-27s : %v\n", k, cfg[k])
			continue
		}
		fmt.Fprintf(w, "%s...\n", k)
		for _, sk := range sortedKeys(nested) {
			fmt.Fprintf(w, "%14s%-13s : %v\n", "", sk, nested[sk])
		}
	}
}

// ServerInfo prints the cluster, version, log level and license summary.
func ServerInfo(w io.Writer, r *admin.ServerReport) {
	var b strings.Builder
	b.WriteString(rule + "\n\n")

	if len(r.Clusters) == 0 {
		b.WriteString("No clusters found\n\n")
	}
	for _, c := range r.Clusters {
		fmt.Fprintf(&b, "Cluster: %s is %s\n", c.Name, c.ConfiguredState)
		if len(c.Machines) == 0 {
			b.WriteString("    No machines associated with cluster\n")
		}
		for _, m := range c.Machines {
			fmt.Fprintf(&b, "    Machine: %s is %s. (Platform: %s)\n", m.Name, m.ConfiguredState, m.Platform)
		}
	}

	fmt.Fprintf(&b, "\nVersion: %s\nBuild:   %s\n\n", r.Version, r.Build)
	fmt.Fprintf(&b, "Log level: %s\n\n", r.LogLevel)

	lic := r.License
	fmt.Fprintf(&b, "License is: %s / %s\n", lic.Edition, lic.Level)
	if lic.CanExpire {
		fmt.Fprintf(&b, "License set to expire: %s\n", lic.Expiration.Local().Format("2006-01-02"))
	} else {
		b.WriteString("License does not expire\n")
	}
	if len(lic.Extensions) == 0 {
		b.WriteString("No available extensions\n")
	} else {
		b.WriteString("Available Extensions........\n")
		for _, ext := range lic.Extensions {
			fmt.Fprintf(&b, "extension:  %s\n", ext)
		}
	}

	b.WriteString("\n" + rule + "\n")
	fmt.Fprint(w, b.String())
}

// Roles prints each role name followed by its description.
func Roles(w io.Writer, roles []admin.Role) {
	if len(roles) == 0 {
		fmt.Fprintln(w, "\nNo Roles found. Is security enabled?")
		return
	}
	fmt.Fprintln(w, "\n___Roles___")
	for _, r := range roles {
		fmt.Fprintln(w, r.Name)
		if r.Description != "" {
			fmt.Fprintf(w, " ... %s\n", r.Description)
		}
	}
}

// Users prints every attribute of every user.
func Users(w io.Writer, users []admin.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No Users found. Is security enabled?")
		return
	}
	fmt.Fprintln(w, "\n___Users___")
	for _, u := range users {
		for _, k := range u.FieldNames() {
			fmt.Fprintf(w, "%-11s : %s\n", k, u.Fields[k])
		}
	}
}

// UsersInRole prints the members of role.
func UsersInRole(w io.Writer, role string, users []string) {
	if len(users) == 0 {
		fmt.Fprintf(w, "No users found in '%s' role\n", role)
		return
	}
	fmt.Fprintf(w, "Found these users in '%s' role...\n", role)
	for _, u := range users {
		fmt.Fprintln(w, u)
	}
}

// RolesForUser prints the roles held by user.
func RolesForUser(w io.Writer, user string, roles []string) {
	if len(roles) == 0 {
		fmt.Fprintf(w, "No roles found for '%s'\n", user)
		return
	}
	fmt.Fprintf(w, "Found these roles for '%s'...\n", user)
	for _, r := range roles {
		fmt.Fprintln(w, r)
	}
}

// Outcomes prints one line per service and returns the number of failures.
func Outcomes(w io.Writer, outcomes []admin.ServiceOutcome) int {
	failed := 0
	for _, o := range outcomes {
		if o.OK() {
			fmt.Fprintf(w, "%s === %s\n", o.Service, o.Action)
			continue
		}
		failed++
		fmt.Fprintf(w, "%s === %s failed: %v\n", o.Service, o.Action, o.Err)
	}
	return failed
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
