package tasks

import (
	"github.com/infn-epics/epik8s-beamline-controller/internal/runtime"
)

// Имена поставляемых поведений.
const (
	ModuleMotorWatch = "motorwatch"
	ModuleDevScan    = "devscan"
)

// RegisterAll регистрирует все поставляемые поведения в реестре.
func RegisterAll(r *runtime.Registry) error {
	if err := r.Register(ModuleMotorWatch, func() runtime.Behavior { return NewMotorWatch() }); err != nil {
		return err
	}
	if err := r.Register(ModuleDevScan, func() runtime.Behavior { return NewDevScan() }); err != nil {
		return err
	}
	return nil
}
