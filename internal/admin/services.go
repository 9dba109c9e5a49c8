package admin

import (
	"context"
	"errors"
	"net/url"

	"go.uber.org/zap"
)

// reservedFolders are never listed or offered for bulk actions.
var reservedFolders = map[string]bool{
	"System":    true,
	"Utilities": true,
}

// RenameService renames the service addressed by ref ("[folder//]name.type").
// An unqualified reference addresses the root folder.
func (s *Session) RenameService(ctx context.Context, ref, newName string) error {
	svc, err := ParseServiceRef(ref)
	if err != nil {
		return err
	}

	params := url.Values{}
	params.Set("serviceName", svc.Name)
	params.Set("serviceType", svc.Type)
	params.Set("serviceNewName", newName)

	path := "/services/renameService"
	if svc.Folder != "" {
		path = "/services/" + url.PathEscape(svc.Folder) + "/renameService"
	}

	_, err = s.callChecked(ctx, "rename service", path, params)
	s.record(ctx, "rename_service", svc.String()+" -> "+newName, err)
	return err
}

// ListServices returns every service at the root and in each folder, except
// the reserved System and Utilities folders.
func (s *Session) ListServices(ctx context.Context) ([]ServiceRef, error) {
	const op = "list services"

	raw, err := s.call(ctx, "/services", nil)
	if err != nil {
		return nil, err
	}
	root, err := responseObject(op, raw)
	if err != nil {
		return nil, err
	}

	services, err := serviceRefs(op, root, "")
	if err != nil {
		return nil, err
	}

	folders, err := stringList(op, root, "folders")
	if err != nil {
		return nil, err
	}
	for _, folder := range folders {
		if reservedFolders[folder] {
			continue
		}
		raw, err := s.call(ctx, "/services/"+url.PathEscape(folder), nil)
		if err != nil {
			return nil, err
		}
		obj, err := responseObject(op, raw)
		if err != nil {
			return nil, err
		}
		refs, err := serviceRefs(op, obj, folder)
		if err != nil {
			return nil, err
		}
		services = append(services, refs...)
	}
	return services, nil
}

func serviceRefs(op string, obj map[string]any, folder string) ([]ServiceRef, error) {
	entries, err := objectList(op, obj, "services")
	if err != nil {
		return nil, err
	}
	refs := make([]ServiceRef, 0, len(entries))
	for _, e := range entries {
		name, err := stringField(op, e, "serviceName")
		if err != nil {
			return nil, err
		}
		typ, err := stringField(op, e, "type")
		if err != nil {
			return nil, err
		}
		refs = append(refs, ServiceRef{Folder: folder, Name: name, Type: typ})
	}
	return refs, nil
}

// ApplyServiceAction applies action to each service in order and returns one
// outcome per service. A business or transport failure on one service does not
// stop the others. The token is checked again before every service, so a long
// batch may renew it midway. An authentication failure or a canceled context
// ends the batch: the remaining services get that error without being attempted.
func (s *Session) ApplyServiceAction(ctx context.Context, action ServiceAction, services []string) []ServiceOutcome {
	outcomes := make([]ServiceOutcome, 0, len(services))
	var fatal error

	for _, service := range services {
		outcome := ServiceOutcome{Service: service, Action: action}

		switch {
		case fatal != nil:
			outcome.Err = fatal
		case ctx.Err() != nil:
			fatal = ctx.Err()
			outcome.Err = fatal
		default:
			outcome.Err = s.applyOne(ctx, action, service)
			var authErr *AuthenticationError
			if errors.As(outcome.Err, &authErr) {
				fatal = outcome.Err
			}
		}

		if outcome.Err != nil {
			s.logger.Warn("admin.service_action_failed",
				zap.String("service", service),
				zap.String("action", string(action)),
				zap.Error(outcome.Err))
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (s *Session) applyOne(ctx context.Context, action ServiceAction, service string) error {
	if _, err := ParseServiceAction(string(action)); err != nil {
		return err
	}
	ref, err := ParseServiceRef(service)
	if err != nil {
		return err
	}

	_, err = s.callChecked(ctx, string(action)+" service", "/services/"+ref.Path()+"/"+string(action), nil)
	s.record(ctx, string(action)+"_service", ref.String(), err)
	return err
}

// StartServices starts each service; see ApplyServiceAction.
func (s *Session) StartServices(ctx context.Context, services []string) []ServiceOutcome {
	return s.ApplyServiceAction(ctx, ActionStart, services)
}

// StopServices stops each service; see ApplyServiceAction.
func (s *Session) StopServices(ctx context.Context, services []string) []ServiceOutcome {
	return s.ApplyServiceAction(ctx, ActionStop, services)
}

// DeleteServices deletes each service; see ApplyServiceAction.
func (s *Session) DeleteServices(ctx context.Context, services []string) []ServiceOutcome {
	return s.ApplyServiceAction(ctx, ActionDelete, services)
}
