// Package sim содержит симулированные устройства.
//
// Используется в тестах и при запуске контроллера без железа:
// конструкторы регистрируются под теми же группами, что и реальные
// драйверы (mot, diag, mag), с типом "sim" и как generic-fallback.
package sim

import (
	"github.com/infn-epics/epik8s-beamline-controller/internal/device"
)

// Register регистрирует симулированные конструкторы в реестре.
func Register(r *device.Registry) error {
	motor := func(req device.Request) (device.Handle, error) {
		return NewMotor(req), nil
	}
	sensor := func(req device.Request) (device.Handle, error) {
		return NewSensor(req), nil
	}

	pairs := []struct {
		group string
		typ   string
		ctor  device.Constructor
	}{
		{"mot", "sim", motor},
		{"mot", "generic", motor},
		{"diag", "sim", sensor},
		{"diag", "generic", sensor},
		{"mag", "sim", sensor},
	}

	for _, p := range pairs {
		if err := r.Register(p.group, p.typ, p.ctor); err != nil {
			return err
		}
	}
	return nil
}
