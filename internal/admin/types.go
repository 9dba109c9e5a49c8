package admin

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Credentials identify one ArcGIS Server site and the administrator signing in to it.
type Credentials struct {
	Username string
	Password string
	Host     string
	Port     int
	Scheme   string // defaults to http
}

// Validate checks that every field needed for generateToken is present.
func (c Credentials) Validate() error {
	switch {
	case c.Username == "":
		return errors.New("credentials: username is required")
	case c.Password == "":
		return errors.New("credentials: password is required")
	case c.Host == "":
		return errors.New("credentials: host is required")
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("credentials: invalid port %d", c.Port)
	case c.Scheme != "" && c.Scheme != "http" && c.Scheme != "https":
		return fmt.Errorf("credentials: unsupported scheme %q", c.Scheme)
	}
	return nil
}

// Server returns host:port.
func (c Credentials) Server() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// AdminURL returns the base admin URL, e.g. http://arcola:6080/arcgis/admin.
func (c Credentials) AdminURL() string {
	scheme := c.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + c.Server() + "/arcgis/admin"
}

// Token is a bearer token and the instant it stops being valid.
// It is replaced as a whole, never field by field.
type Token struct {
	Value   string
	Expires time.Time
}

// ValidAt reports whether the token may be used at now. A token is valid
// strictly before its expiry.
func (t Token) ValidAt(now time.Time) bool {
	return t.Value != "" && now.Before(t.Expires)
}

// ServiceRef addresses a service as folder//name.type, or name.type at the root.
type ServiceRef struct {
	Folder string
	Name   string
	Type   string
}

// ParseServiceRef parses "[folder//]name.type".
func ParseServiceRef(s string) (ServiceRef, error) {
	var ref ServiceRef
	rest := s
	if i := strings.Index(s, "//"); i >= 0 {
		ref.Folder, rest = s[:i], s[i+2:]
		if ref.Folder == "" {
			return ServiceRef{}, fmt.Errorf("service %q: empty folder before //", s)
		}
	}

	dot := strings.LastIndex(rest, ".")
	if dot <= 0 || dot == len(rest)-1 {
		return ServiceRef{}, fmt.Errorf("service %q: expected [folder//]name.type", s)
	}
	ref.Name, ref.Type = rest[:dot], rest[dot+1:]
	if strings.Contains(ref.Name, "/") || strings.Contains(ref.Folder, "/") {
		return ServiceRef{}, fmt.Errorf("service %q: unexpected / in name", s)
	}
	return ref, nil
}

// String renders the reference in folder//name.type form.
func (r ServiceRef) String() string {
	if r.Folder == "" {
		return r.Name + "." + r.Type
	}
	return r.Folder + "//" + r.Name + "." + r.Type
}

// Path renders the reference as an escaped admin URL path below /services.
func (r ServiceRef) Path() string {
	svc := url.PathEscape(r.Name + "." + r.Type)
	if r.Folder == "" {
		return svc
	}
	return url.PathEscape(r.Folder) + "/" + svc
}

// ServiceAction is a lifecycle operation applied to services.
type ServiceAction string

const (
	ActionStart  ServiceAction = "start"
	ActionStop   ServiceAction = "stop"
	ActionDelete ServiceAction = "delete"
)

// ParseServiceAction accepts Start, Stop or Delete in any case.
func ParseServiceAction(s string) (ServiceAction, error) {
	switch a := ServiceAction(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionStart, ActionStop, ActionDelete:
		return a, nil
	default:
		return "", fmt.Errorf("unknown service action %q (want start, stop or delete)", s)
	}
}

// LogLevel is an ArcGIS Server log level.
type LogLevel string

const (
	LogSevere  LogLevel = "SEVERE"
	LogWarning LogLevel = "WARNING"
	LogInfo    LogLevel = "INFO"
	LogFine    LogLevel = "FINE"
	LogVerbose LogLevel = "VERBOSE"
	LogDebug   LogLevel = "DEBUG"
)

// ParseLogLevel accepts a known level in any case.
func ParseLogLevel(s string) (LogLevel, error) {
	switch l := LogLevel(strings.ToUpper(strings.TrimSpace(s))); l {
	case LogSevere, LogWarning, LogInfo, LogFine, LogVerbose, LogDebug:
		return l, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// ServiceOutcome is the result of one service in a bulk action.
type ServiceOutcome struct {
	Service string        `json:"service"`
	Action  ServiceAction `json:"action"`
	Err     error         `json:"-"`
}

// OK reports whether the server confirmed the action.
func (o ServiceOutcome) OK() bool {
	return o.Err == nil
}

// LogSettings are the server-wide log settings. Numeric fields keep the
// server's text form so they can be sent back unchanged.
type LogSettings struct {
	LogDir               string `json:"logDir"`
	LogLevel             string `json:"logLevel"`
	MaxErrorReportsCount string `json:"maxErrorReportsCount"`
	MaxLogFileAge        string `json:"maxLogFileAge"`
}

// Role is an entry from the role store.
type Role struct {
	Name        string `json:"rolename"`
	Description string `json:"description,omitempty"`
}

// User is an entry from the user store. Fields holds every attribute the
// server reported, including the ones mapped to named fields.
type User struct {
	Username    string            `json:"username"`
	FullName    string            `json:"fullname,omitempty"`
	Description string            `json:"description,omitempty"`
	Email       string            `json:"email,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

// ServerReport aggregates cluster, version, logging and license details.
type ServerReport struct {
	Server      string        `json:"server"`
	Clusters    []ClusterInfo `json:"clusters"`
	Version     string        `json:"version"`
	Build       string        `json:"build"`
	LogLevel    string        `json:"logLevel"`
	License     LicenseInfo   `json:"license"`
	GeneratedAt time.Time     `json:"generatedAt"`
}

// ClusterInfo describes one cluster and its machines.
type ClusterInfo struct {
	Name            string        `json:"name"`
	ConfiguredState string        `json:"configuredState"`
	Machines        []MachineInfo `json:"machines"`
}

// MachineInfo describes one machine in a cluster.
type MachineInfo struct {
	Name            string `json:"name"`
	ConfiguredState string `json:"configuredState"`
	Platform        string `json:"platform"`
}

// LicenseInfo summarizes /system/licenses.
type LicenseInfo struct {
	Edition    string    `json:"edition"`
	Level      string    `json:"level"`
	CanExpire  bool      `json:"canExpire"`
	Expiration time.Time `json:"expiration"`
	Extensions []string  `json:"extensions"`
}
