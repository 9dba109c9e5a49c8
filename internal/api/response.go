package api

import "github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"

// ReportResponse wraps a server report with where it came from ("cache" or "live").
type ReportResponse struct {
	Source string              `json:"source"`
	Report *admin.ServerReport `json:"report"`
}

type ServiceEntry struct {
	Service string `json:"service"`
	Folder  string `json:"folder,omitempty"`
	Name    string `json:"name"`
	Type    string `json:"type"`
}

type ServicesResponse struct {
	Server   string         `json:"server"`
	Services []ServiceEntry `json:"services"`
}

type FoldersResponse struct {
	Server  string   `json:"server"`
	Folders []string `json:"folders"`
}

// ErrorResponse is returned for any failed admin call.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Kind     string   `json:"kind,omitempty"` // business, authentication or transport
	Messages []string `json:"messages,omitempty"`
}
