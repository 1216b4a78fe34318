package tasks

import (
	"context"
	"fmt"

	"github.com/infn-epics/epik8s-beamline-controller/internal/device"
	"github.com/infn-epics/epik8s-beamline-controller/internal/runtime"
)

// DevScan периодически опрашивает читаемые устройства.
//
// На каждой итерации снимает показание каждого устройства и обновляет
// выходную переменную {DEVICE}_VAL, если она объявлена. Ошибка чтения
// одного устройства не прерывает опрос остальных; число сбоев итерации
// публикуется в {READ_ERRORS}, если переменная объявлена.
//
// В триггерном режиме поведение выполняет один проход на взвод RUN —
// удобно для снятия среза показаний по расписанию.
type DevScan struct {
	runtime.BaseBehavior

	readables map[string]device.Readable
}

// NewDevScan создаёт поведение devscan.
func NewDevScan() *DevScan {
	return &DevScan{readables: make(map[string]device.Readable)}
}

// Initialize разрешает читаемые устройства задачи.
func (b *DevScan) Initialize(_ context.Context, t *runtime.Task) error {
	names := t.Params().StringSlice("device_names")
	if len(names) == 0 {
		names = t.DeviceNames()
	}

	for _, name := range names {
		h, ok := t.Device(name)
		if !ok {
			t.Logger().Warn("scan device not resolved", "device", name)
			continue
		}
		r, ok := h.(device.Readable)
		if !ok {
			t.Logger().Warn("device is not readable", "device", name)
			continue
		}
		b.readables[name] = r
	}

	if len(b.readables) == 0 {
		return fmt.Errorf("devscan: no readable devices resolved")
	}
	t.Logger().Info("devscan initialized", "devices", len(b.readables))
	return nil
}

// RunIteration снимает показания всех устройств.
func (b *DevScan) RunIteration(ctx context.Context, t *runtime.Task) error {
	var failed int
	for name, r := range b.readables {
		value, err := r.Read(ctx)
		if err != nil {
			t.Logger().Warn("device read failed", "device", name, "error", err)
			failed++
			continue
		}
		setIfDeclared(t, name+"_VAL", value)
	}

	setIfDeclared(t, "READ_ERRORS", int64(failed))
	return nil
}

// Cleanup логирует завершение опроса.
func (b *DevScan) Cleanup(_ context.Context, t *runtime.Task) error {
	t.Logger().Info("devscan stopped", "devices", len(b.readables))
	return nil
}
