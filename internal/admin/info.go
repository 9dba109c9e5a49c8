package admin

import (
	"context"
	"net/url"
)

// ServerInfo builds a report from /clusters, /machines/<name>, /info,
// /logs/settings and /system/licenses. Sub-calls run in that order and the
// first failure aborts the report; no partial report is returned.
func (s *Session) ServerInfo(ctx context.Context) (*ServerReport, error) {
	const op = "server info"

	report := &ServerReport{Server: s.creds.Server()}

	clusters, err := s.clusters(ctx, op)
	if err != nil {
		return nil, err
	}
	report.Clusters = clusters

	raw, err := s.call(ctx, "/info", nil)
	if err != nil {
		return nil, err
	}
	info, err := responseObject(op, raw)
	if err != nil {
		return nil, err
	}
	if report.Version, err = stringField(op, info, "currentversion"); err != nil {
		return nil, err
	}
	if report.Build, err = stringField(op, info, "currentbuild"); err != nil {
		return nil, err
	}

	if report.LogLevel, err = s.logLevel(ctx, op); err != nil {
		return nil, err
	}

	if report.License, err = s.license(ctx, op); err != nil {
		return nil, err
	}

	report.GeneratedAt = s.now().UTC()
	return report, nil
}

func (s *Session) clusters(ctx context.Context, op string) ([]ClusterInfo, error) {
	raw, err := s.call(ctx, "/clusters", nil)
	if err != nil {
		return nil, err
	}
	obj, err := responseObject(op, raw)
	if err != nil {
		return nil, err
	}
	entries, err := objectList(op, obj, "clusters")
	if err != nil {
		return nil, err
	}

	clusters := make([]ClusterInfo, 0, len(entries))
	for _, e := range entries {
		var c ClusterInfo
		if c.Name, err = stringField(op, e, "clusterName"); err != nil {
			return nil, err
		}
		if c.ConfiguredState, err = stringField(op, e, "configuredState"); err != nil {
			return nil, err
		}
		names, err := stringList(op, e, "machineNames")
		if err != nil {
			return nil, err
		}
		c.Machines = make([]MachineInfo, 0, len(names))
		for _, name := range names {
			m, err := s.machine(ctx, op, name)
			if err != nil {
				return nil, err
			}
			c.Machines = append(c.Machines, m)
		}
		clusters = append(clusters, c)
	}
	return clusters, nil
}

func (s *Session) machine(ctx context.Context, op, name string) (MachineInfo, error) {
	raw, err := s.call(ctx, "/machines/"+url.PathEscape(name), nil)
	if err != nil {
		return MachineInfo{}, err
	}
	obj, err := responseObject(op, raw)
	if err != nil {
		return MachineInfo{}, err
	}

	m := MachineInfo{Name: name}
	if m.ConfiguredState, err = stringField(op, obj, "configuredState"); err != nil {
		return MachineInfo{}, err
	}
	if m.Platform, err = stringField(op, obj, "platform"); err != nil {
		return MachineInfo{}, err
	}
	return m, nil
}

// logLevel reads only settings.logLevel, so a server that omits the other log
// settings still produces a report.
func (s *Session) logLevel(ctx context.Context, op string) (string, error) {
	raw, err := s.call(ctx, "/logs/settings", nil)
	if err != nil {
		return "", err
	}
	obj, err := responseObject(op, raw)
	if err != nil {
		return "", err
	}
	settings, err := field[map[string]any](op, obj, "settings")
	if err != nil {
		return "", err
	}
	return stringField(op, settings, "logLevel")
}

func (s *Session) license(ctx context.Context, op string) (LicenseInfo, error) {
	raw, err := s.call(ctx, "/system/licenses", nil)
	if err != nil {
		return LicenseInfo{}, err
	}
	obj, err := responseObject(op, raw)
	if err != nil {
		return LicenseInfo{}, err
	}

	edition, err := field[map[string]any](op, obj, "edition")
	if err != nil {
		return LicenseInfo{}, err
	}
	level, err := field[map[string]any](op, obj, "level")
	if err != nil {
		return LicenseInfo{}, err
	}

	var lic LicenseInfo
	if lic.Edition, err = stringField(op, edition, "name"); err != nil {
		return LicenseInfo{}, err
	}
	if lic.Level, err = stringField(op, level, "name"); err != nil {
		return LicenseInfo{}, err
	}
	lic.CanExpire, _ = edition["canExpire"].(bool)
	if lic.CanExpire {
		exp, ok := epochMillis(edition["expiration"])
		if !ok {
			return LicenseInfo{}, missingKey(op, "edition.expiration", obj)
		}
		// Local time, so the printed date is the server operator's calendar day.
		lic.Expiration = exp.Local()
	}

	extensions, err := objectList(op, obj, "extensions")
	if err != nil {
		return LicenseInfo{}, err
	}
	lic.Extensions = make([]string, 0, len(extensions))
	for _, ext := range extensions {
		name, err := stringField(op, ext, "name")
		if err != nil {
			return LicenseInfo{}, err
		}
		lic.Extensions = append(lic.Extensions, name)
	}
	return lic, nil
}
