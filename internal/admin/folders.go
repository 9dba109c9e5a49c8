package admin

import (
	"context"
	"net/url"
)

// ListFolders returns every folder name reported under /services.
func (s *Session) ListFolders(ctx context.Context) ([]string, error) {
	const op = "list folders"

	raw, err := s.call(ctx, "/services", nil)
	if err != nil {
		return nil, err
	}
	obj, err := responseObject(op, raw)
	if err != nil {
		return nil, err
	}
	return stringList(op, obj, "folders")
}

// CreateFolder creates a folder. Creating a folder that already exists is a
// server-defined failure returned as *BusinessError.
func (s *Session) CreateFolder(ctx context.Context, name, description string) error {
	params := url.Values{}
	params.Set("folderName", name)
	params.Set("description", description)

	_, err := s.callChecked(ctx, "create folder", "/services/createFolder", params)
	s.record(ctx, "create_folder", name, err)
	return err
}
