package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
)

func TestSecurity_FlattensOneLevel(t *testing.T) {
	var buf bytes.Buffer
	Security(&buf, map[string]any{
		"sslEnabled":         false,
		"authenticationTier": "GIS_SERVER",
		"userStoreConfig": map[string]any{
			"type":       "BUILTIN",
			"properties": map[string]any{},
		},
	})

	assert.Equal(t,
		"\n  ==Security settings==\n\n"+
			"authenticationTier          : GIS_SERVER\n"+
			"sslEnabled                  : false\n"+
			"userStoreConfig...\n"+
			"              properties    : map[]\n"+
			"              type          : BUILTIN\n",
		buf.String())
}

func TestServerInfo(t *testing.T) {
	var buf bytes.Buffer
	ServerInfo(&buf, &admin.ServerReport{
		Clusters: []admin.ClusterInfo{
			{Name: "default", ConfiguredState: "START", Machines: []admin.MachineInfo{{Name: "ARCOLA.LOCAL", ConfiguredState: "START", Platform: "Windows"}}},
			{Name: "spare", ConfiguredState: "STOP"},
		},
		Version:  "10.2",
		Build:    "3142",
		LogLevel: "WARNING",
		License: admin.LicenseInfo{
			Edition:    "Advanced",
			Level:      "Enterprise",
			CanExpire:  true,
			Expiration: time.Date(2026, 12, 31, 12, 0, 0, 0, time.Local),
			Extensions: []string{"Spatial", "Network"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Cluster: default is START\n    Machine: ARCOLA.LOCAL is START. (Platform: Windows)\n")
	assert.Contains(t, out, "Cluster: spare is STOP\n    No machines associated with cluster\n")
	assert.Contains(t, out, "\nVersion: 10.2\nBuild:   3142\n\n")
	assert.Contains(t, out, "Log level: WARNING\n")
	assert.Contains(t, out, "License is: Advanced / Enterprise\nLicense set to expire: 2026-12-31\n")
	assert.Contains(t, out, "Available Extensions........\nextension:  Spatial\nextension:  Network\n")
}

func TestServerInfo_LicenseDateInLocalTime(t *testing.T) {
	orig := time.Local
	time.Local = time.FixedZone("PST", -8*60*60)
	t.Cleanup(func() { time.Local = orig })

	var buf bytes.Buffer
	ServerInfo(&buf, &admin.ServerReport{License: admin.LicenseInfo{
		Edition:    "Advanced",
		Level:      "Enterprise",
		CanExpire:  true,
		Expiration: time.Date(2027, 1, 1, 4, 0, 0, 0, time.UTC),
	}})

	assert.Contains(t, buf.String(), "License set to expire: 2026-12-31\n")
}

func TestServerInfo_Empty(t *testing.T) {
	var buf bytes.Buffer
	ServerInfo(&buf, &admin.ServerReport{License: admin.LicenseInfo{Edition: "Standard", Level: "Workgroup"}})

	out := buf.String()
	assert.Contains(t, out, "No clusters found\n")
	assert.Contains(t, out, "License does not expire\n")
	assert.Contains(t, out, "No available extensions\n")
}

func TestRolesAndUsers(t *testing.T) {
	var buf bytes.Buffer
	Roles(&buf, nil)
	assert.Equal(t, "\nNo Roles found. Is security enabled?\n", buf.String())

	buf.Reset()
	Roles(&buf, []admin.Role{{Name: "publishers", Description: "Can publish"}, {Name: "viewers"}})
	assert.Equal(t, "\n___Roles___\npublishers\n ... Can publish\nviewers\n", buf.String())

	buf.Reset()
	Users(&buf, []admin.User{})
	assert.Equal(t, "No Users found. Is security enabled?\n", buf.String())

	buf.Reset()
	Users(&buf, []admin.User{{Username: "jdoe", Fields: map[string]string{"username": "jdoe", "email": "j@x"}}})
	assert.Equal(t, "\n___Users___\nemail       : j@x\nusername    : jdoe\n", buf.String())
}

func TestMembership(t *testing.T) {
	var buf bytes.Buffer
	UsersInRole(&buf, "RestrictedPublishers", nil)
	assert.Equal(t, "No users found in 'RestrictedPublishers' role\n", buf.String())

	buf.Reset()
	UsersInRole(&buf, "publishers", []string{"kevin"})
	assert.Equal(t, "Found these users in 'publishers' role...\nkevin\n", buf.String())

	buf.Reset()
	RolesForUser(&buf, "kevin", nil)
	assert.Equal(t, "No roles found for 'kevin'\n", buf.String())

	buf.Reset()
	RolesForUser(&buf, "kevin", []string{"publishers"})
	assert.Equal(t, "Found these roles for 'kevin'...\npublishers\n", buf.String())
}

func TestOutcomes(t *testing.T) {
	var buf bytes.Buffer
	failed := Outcomes(&buf, []admin.ServiceOutcome{
		{Service: "A.MapServer", Action: admin.ActionStop},
		{Service: "B.MapServer", Action: admin.ActionStop, Err: errors.New("stop service: Service is busy.")},
	})
	assert.Equal(t, 1, failed)
	assert.Equal(t, "A.MapServer === stop\nB.MapServer === stop failed: stop service: Service is busy.\n", buf.String())
}
