package output

import (
	"errors"

	"github.com/tkjaer/ifroute/internal/shared"
)

// Output interface for different output types
type Output interface {
	WriteReport(run *shared.ReportRun) error
	Close() error
}

// OutputManager manages multiple outputs
type OutputManager struct {
	outputs []Output
}

func (om *OutputManager) Register(o Output) {
	om.outputs = append(om.outputs, o)
}

// WriteReport hands run to every output, even if an earlier one fails.
func (om *OutputManager) WriteReport(run *shared.ReportRun) error {
	var errs []error
	for _, o := range om.outputs {
		errs = append(errs, o.WriteReport(run))
	}
	return errors.Join(errs...)
}

func (om *OutputManager) Close() error {
	var errs []error
	for _, o := range om.outputs {
		errs = append(errs, o.Close())
	}
	return errors.Join(errs...)
}
