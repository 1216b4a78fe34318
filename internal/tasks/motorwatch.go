package tasks

import (
	"context"
	"errors"

	"github.com/infn-epics/epik8s-beamline-controller/internal/device"
	"github.com/infn-epics/epik8s-beamline-controller/internal/pv"
	"github.com/infn-epics/epik8s-beamline-controller/internal/runtime"
)

// MotorWatch отслеживает движение моторов.
//
// На каждой итерации опрашивает позицию и флаг движения каждого мотора,
// логирует переходы «встал/поехал» и обновляет выходные переменные
// {MOTOR}_POS и {MOTOR}_MOVING, если они объявлены в дескрипторе.
//
// Параметры:
//   - motor_names — список имён моторов; если пуст, берутся все
//     разрешённые устройства задачи, реализующие Movable.
type MotorWatch struct {
	runtime.BaseBehavior

	motors    map[string]device.Movable
	wasMoving map[string]bool
}

// NewMotorWatch создаёт поведение motorwatch.
func NewMotorWatch() *MotorWatch {
	return &MotorWatch{
		motors:    make(map[string]device.Movable),
		wasMoving: make(map[string]bool),
	}
}

// Initialize разрешает моторы из устройств задачи.
func (b *MotorWatch) Initialize(_ context.Context, t *runtime.Task) error {
	names := t.Params().StringSlice("motor_names")
	if len(names) == 0 {
		names = t.DeviceNames()
	}

	for _, name := range names {
		h, ok := t.Device(name)
		if !ok {
			t.Logger().Warn("motor device not resolved", "device", name)
			continue
		}
		m, ok := h.(device.Movable)
		if !ok {
			t.Logger().Warn("device is not movable", "device", name)
			continue
		}
		b.motors[name] = m
		b.wasMoving[name] = false
	}

	if len(b.motors) == 0 {
		t.Logger().Warn("no motor devices resolved")
	}
	t.Logger().Info("motorwatch initialized", "motors", len(b.motors))
	return nil
}

// RunIteration опрашивает все моторы.
func (b *MotorWatch) RunIteration(_ context.Context, t *runtime.Task) error {
	for name, m := range b.motors {
		moving := m.Moving()
		position := m.Position()

		switch {
		case moving && !b.wasMoving[name]:
			t.Logger().Info("motor started moving", "motor", name, "position", position)
		case !moving && b.wasMoving[name]:
			t.Logger().Info("motor stopped", "motor", name, "position", position)
		case moving:
			t.Logger().Debug("motor moving", "motor", name, "position", position)
		}
		b.wasMoving[name] = moving

		// Выходные переменные опциональны: обновляем только объявленные.
		setIfDeclared(t, name+"_POS", position)
		setIfDeclared(t, name+"_MOVING", moving)
	}
	return nil
}

// Cleanup логирует завершение наблюдения.
func (b *MotorWatch) Cleanup(_ context.Context, t *runtime.Task) error {
	t.Logger().Info("motorwatch stopped", "motors", len(b.motors))
	return nil
}

// setIfDeclared пишет переменную, молча пропуская необъявленные.
func setIfDeclared(t *runtime.Task, name string, value any) {
	if err := t.Set(name, value); err != nil && !errors.Is(err, pv.ErrNotFound) {
		t.Logger().Warn("variable update failed", "variable", name, "error", err)
	}
}
