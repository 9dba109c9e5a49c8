package admin

import (
	"context"
	"errors"
	"net/url"

	"go.uber.org/zap"
)

// LogSettings returns the current server log settings.
func (s *Session) LogSettings(ctx context.Context) (LogSettings, error) {
	const op = "log settings"

	raw, err := s.call(ctx, "/logs/settings", nil)
	if err != nil {
		return LogSettings{}, err
	}
	obj, err := responseObject(op, raw)
	if err != nil {
		return LogSettings{}, err
	}
	settings, err := field[map[string]any](op, obj, "settings")
	if err != nil {
		return LogSettings{}, err
	}

	var ls LogSettings
	for key, dst := range map[string]*string{
		"logDir":               &ls.LogDir,
		"logLevel":             &ls.LogLevel,
		"maxErrorReportsCount": &ls.MaxErrorReportsCount,
		"maxLogFileAge":        &ls.MaxLogFileAge,
	} {
		if *dst, err = stringField(op, settings, key); err != nil {
			return LogSettings{}, err
		}
	}
	return ls, nil
}

// ModifyLogs optionally clears the logs, then sets the log level. The other
// settings are read first and sent back unchanged so the edit only touches the
// level. cleared reports whether the clean succeeded. A failed clean is logged
// and the level is still changed, unless it failed on authentication or the
// context is done.
func (s *Session) ModifyLogs(ctx context.Context, clearLogs bool, level LogLevel) (cleared bool, err error) {
	level, err = ParseLogLevel(string(level))
	if err != nil {
		return false, err
	}

	if clearLogs {
		_, cleanErr := s.callChecked(ctx, "clean logs", "/logs/clean", nil)
		s.record(ctx, "clean_logs", s.creds.Server(), cleanErr)

		var authErr *AuthenticationError
		switch {
		case cleanErr == nil:
			cleared = true
		case errors.As(cleanErr, &authErr), ctx.Err() != nil:
			return false, cleanErr
		default:
			s.logger.Warn("admin.clean_logs_failed",
				zap.String("server", s.creds.Server()),
				zap.Error(cleanErr))
		}
	}

	current, err := s.LogSettings(ctx)
	if err != nil {
		return cleared, err
	}

	params := url.Values{}
	params.Set("logDir", current.LogDir)
	params.Set("logLevel", string(level))
	params.Set("maxErrorReportsCount", current.MaxErrorReportsCount)
	params.Set("maxLogFileAge", current.MaxLogFileAge)

	_, err = s.callChecked(ctx, "edit log settings", "/logs/settings/edit", params)
	s.record(ctx, "edit_log_settings", string(level), err)
	return cleared, err
}
