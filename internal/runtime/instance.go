package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/infn-epics/epik8s-beamline-controller/internal/device"
	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
	"github.com/infn-epics/epik8s-beamline-controller/internal/pv"
	"github.com/infn-epics/epik8s-beamline-controller/internal/telemetry"
)

// Task — экземпляр задачи: дескриптор, связанный со своим пространством
// имён переменных и разрешёнными устройствами.
//
// Создаётся оркестратором при старте, уничтожается при остановке.
// Ровно один экземпляр на дескриптор.
type Task struct {
	descriptor domain.TaskDescriptor
	ns         *pv.Namespace
	devices    map[string]device.Handle
	logger     *slog.Logger
}

// NewTask создаёт экземпляр задачи по дескриптору.
//
// Объявляет пять встроенных переменных и все переменные дескриптора,
// публикует их через publisher (если задан) и разрешает имена устройств
// против реестра. Неразрешённое имя устройства — не ошибка.
func NewTask(ctx context.Context, desc domain.TaskDescriptor, reg *device.Registry, publisher pv.Publisher, logger *slog.Logger) (*Task, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = telemetry.WithTask(logger, desc.Name)

	t := &Task{
		descriptor: desc,
		ns:         pv.NewNamespace(desc.Name),
		devices:    make(map[string]device.Handle),
		logger:     logger,
	}

	if err := t.declareBuiltins(); err != nil {
		return nil, err
	}

	for _, spec := range desc.Inputs {
		if _, err := t.ns.DeclareInput(spec); err != nil {
			return nil, fmt.Errorf("task %s: declare input: %w", desc.Name, err)
		}
	}
	for _, spec := range desc.Outputs {
		if _, err := t.ns.Declare(spec); err != nil {
			return nil, fmt.Errorf("task %s: declare output: %w", desc.Name, err)
		}
	}

	if publisher != nil {
		for _, name := range t.ns.Names() {
			v, _ := t.ns.Get(name)
			full := pv.FullName(desc.Name, name)
			if err := publisher.Publish(ctx, full, v.Spec()); err != nil {
				return nil, fmt.Errorf("task %s: publish %s: %w", desc.Name, name, err)
			}
		}
		t.ns.SubscribeAll(func(name string, value any) {
			publisher.PushUpdate(pv.FullName(desc.Name, name), value)
			telemetry.PublishedUpdates.Inc()
		})
	}

	for _, name := range desc.Devices {
		if reg == nil {
			break
		}
		h, ok := reg.Get(name)
		if !ok {
			// Отсутствие устройства допустимо: задача сама решает,
			// как жить без него.
			logger.Warn("device not resolved", "device", name)
			continue
		}
		t.devices[name] = h
	}

	logger.Info("task instance created",
		"module", desc.Module,
		"mode", desc.EffectiveMode(),
		"variables", t.ns.Len(),
		"devices", len(t.devices),
	)
	return t, nil
}

// declareBuiltins объявляет пять встроенных переменных.
// Внешним записям открыты только ENABLE и RUN; статусные переменные
// принадлежат рантайму.
func (t *Task) declareBuiltins() error {
	builtins := []struct {
		spec     domain.VariableSpec
		writable bool
	}{
		{domain.VariableSpec{Name: domain.BuiltinEnable, Type: domain.VarBool, Initial: true, States: []string{"Disabled", "Enabled"}}, true},
		{domain.VariableSpec{Name: domain.BuiltinStatus, Type: domain.VarString, Initial: string(domain.StateInit), States: domain.TaskStateNames()}, false},
		{domain.VariableSpec{Name: domain.BuiltinMessage, Type: domain.VarString, Initial: ""}, false},
		{domain.VariableSpec{Name: domain.BuiltinCycleCount, Type: domain.VarInt, Initial: int64(0)}, false},
		{domain.VariableSpec{Name: domain.BuiltinRun, Type: domain.VarBool, Initial: false}, true},
	}

	for _, b := range builtins {
		declare := t.ns.Declare
		if b.writable {
			declare = t.ns.DeclareInput
		}
		if _, err := declare(b.spec); err != nil {
			return fmt.Errorf("task %s: declare builtin: %w", t.descriptor.Name, err)
		}
	}
	return nil
}

// Name возвращает имя задачи.
func (t *Task) Name() string {
	return t.descriptor.Name
}

// Descriptor возвращает дескриптор задачи.
func (t *Task) Descriptor() domain.TaskDescriptor {
	return t.descriptor
}

// Params возвращает параметры задачи из конфигурации.
func (t *Task) Params() domain.Params {
	return t.descriptor.Parameters
}

// Namespace возвращает пространство имён переменных задачи.
func (t *Task) Namespace() *pv.Namespace {
	return t.ns
}

// Logger возвращает логгер задачи.
func (t *Task) Logger() *slog.Logger {
	return t.logger
}

// Get читает значение переменной.
func (t *Task) Get(name string) (any, error) {
	return t.ns.Read(name)
}

// Set записывает значение переменной изнутри задачи.
func (t *Task) Set(name string, value any) error {
	return t.ns.Write(name, value)
}

// SetMessage обновляет встроенную переменную MESSAGE.
func (t *Task) SetMessage(msg string) {
	// MESSAGE объявлена всегда, ошибка невозможна.
	_ = t.ns.Write(domain.BuiltinMessage, msg)
}

// Device возвращает устройство по имени.
// Второй результат false, если устройство не было разрешено.
func (t *Task) Device(name string) (device.Handle, bool) {
	h, ok := t.devices[name]
	return h, ok
}

// DeviceNames возвращает имена разрешённых устройств.
func (t *Task) DeviceNames() []string {
	names := make([]string, 0, len(t.devices))
	for name := range t.devices {
		names = append(names, name)
	}
	return names
}

// stopDevices останавливает все Stoppable-устройства задачи.
// Вызывается на cleanup-пути: освобождение должно быть детерминированным.
func (t *Task) stopDevices(ctx context.Context) {
	for name, h := range t.devices {
		s, ok := h.(device.Stoppable)
		if !ok {
			continue
		}
		if err := s.Stop(ctx); err != nil {
			t.logger.Warn("device stop failed", "device", name, "error", err)
		}
	}
}
