package admin

import (
	"context"
	"net/url"
)

// ExportSite asks the server to back up the site into the directory at
// location and returns the path of the backup file the server reports.
func (s *Session) ExportSite(ctx context.Context, location string) (string, error) {
	const op = "export site"

	params := url.Values{}
	params.Set("location", location)

	res, err := s.callChecked(ctx, op, "/exportSite", params)
	if err == nil {
		var path string
		path, err = stringField(op, res.Payload(), "location")
		if err == nil {
			s.record(ctx, "export_site", path, nil)
			return path, nil
		}
	}
	s.record(ctx, "export_site", location, err)
	return "", err
}
