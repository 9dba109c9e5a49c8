package audit

import (
	"context"
	"errors"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/model"
)

// Multi fans an action out to every sink. All sinks are attempted; their
// errors are joined.
type Multi []admin.Recorder

// RecordAction implements admin.Recorder.
func (m Multi) RecordAction(ctx context.Context, action model.AdminAction) error {
	var errs []error
	for _, r := range m {
		if err := r.RecordAction(ctx, action); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Combine returns a recorder for the non-nil sinks, or nil when there are none.
func Combine(sinks ...admin.Recorder) admin.Recorder {
	var m Multi
	for _, s := range sinks {
		if s != nil {
			m = append(m, s)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	default:
		return m
	}
}
