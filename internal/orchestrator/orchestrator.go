package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/infn-epics/epik8s-beamline-controller/internal/device"
	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
	"github.com/infn-epics/epik8s-beamline-controller/internal/pv"
	"github.com/infn-epics/epik8s-beamline-controller/internal/runtime"
)

// defaultStopTimeout — таймаут групповой остановки по умолчанию.
const defaultStopTimeout = 30 * time.Second

// LoadFailure — сбой загрузки одной задачи.
// Не останавливает загрузку остальных.
type LoadFailure struct {
	// Task — имя задачи из дескриптора.
	Task string

	// Err — причина сбоя.
	Err error
}

func (f LoadFailure) String() string {
	return fmt.Sprintf("task %s: %v", f.Task, f.Err)
}

// Config — конфигурация Orchestrator.
type Config struct {
	// Devices — построенный реестр устройств (опционально).
	Devices *device.Registry

	// Behaviors — реестр поведений задач (обязательно).
	Behaviors *runtime.Registry

	// Publisher — публикатор переменных (опционально; nil — автономный режим).
	Publisher pv.Publisher

	// Events — журнал событий жизненного цикла (опционально).
	Events runtime.EventSink

	// Clock — источник времени для рантаймов и таймаута остановки
	// (default: clockwork.NewRealClock()).
	Clock clockwork.Clock

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// Orchestrator загружает, запускает и останавливает задачи группой.
type Orchestrator struct {
	devices   *device.Registry
	behaviors *runtime.Registry
	publisher pv.Publisher
	events    runtime.EventSink
	clock     clockwork.Clock
	logger    *slog.Logger

	mu       sync.RWMutex
	runtimes map[string]*runtime.Runtime
	order    []string
	started  bool
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Orchestrator{
		devices:   cfg.Devices,
		behaviors: cfg.Behaviors,
		publisher: cfg.Publisher,
		events:    cfg.Events,
		clock:     clock,
		logger:    logger,
		runtimes:  make(map[string]*runtime.Runtime),
	}
}

// LoadAll создаёт экземпляры и рантаймы для всех дескрипторов.
//
// Сначала проверяется уникальность имён задач: дубликат — ошибка всей
// загрузки до создания каких-либо экземпляров. Дальше сбой одной задачи
// (валидация, неизвестное поведение, ошибка создания экземпляра) попадает
// в список failures, остальные задачи загружаются.
func (o *Orchestrator) LoadAll(ctx context.Context, descriptors []domain.TaskDescriptor) ([]LoadFailure, error) {
	names := make(map[string]bool, len(descriptors))
	for i := range descriptors {
		name := descriptors[i].Name
		if names[name] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTaskName, name)
		}
		names[name] = true
	}

	var failures []LoadFailure

	for i := range descriptors {
		desc := descriptors[i]

		if err := o.load(ctx, desc); err != nil {
			o.logger.Error("failed to load task",
				"task", desc.Name,
				"module", desc.Module,
				"error", err,
			)
			failures = append(failures, LoadFailure{Task: desc.Name, Err: err})
		}
	}

	o.mu.RLock()
	loaded := len(o.runtimes)
	o.mu.RUnlock()

	o.logger.Info("tasks loaded",
		"loaded", loaded,
		"failed", len(failures),
	)
	return failures, nil
}

// load загружает одну задачу.
func (o *Orchestrator) load(ctx context.Context, desc domain.TaskDescriptor) error {
	if err := desc.Validate(); err != nil {
		return err
	}

	behavior, err := o.behaviors.New(desc.Module)
	if err != nil {
		return err
	}

	task, err := runtime.NewTask(ctx, desc, o.devices, o.publisher, o.logger)
	if err != nil {
		return err
	}

	rt := runtime.New(runtime.Config{
		Task:     task,
		Behavior: behavior,
		Clock:    o.clock,
		Events:   o.events,
		Logger:   o.logger,
	})

	o.mu.Lock()
	o.runtimes[desc.Name] = rt
	o.order = append(o.order, desc.Name)
	o.mu.Unlock()
	return nil
}

// StartAll запускает рантаймы всех загруженных задач.
//
// Каждый рантайм — независимая горутина; сбой старта одной задачи
// логируется и не мешает остальным.
func (o *Orchestrator) StartAll(ctx context.Context) error {
	o.mu.Lock()
	if len(o.runtimes) == 0 {
		o.mu.Unlock()
		return ErrNotLoaded
	}
	o.started = true
	rts := o.snapshotLocked()
	o.mu.Unlock()

	var started int
	for _, rt := range rts {
		if err := rt.Start(ctx); err != nil {
			o.logger.Error("failed to start task", "task", rt.Name(), "error", err)
			continue
		}
		started++
	}

	o.logger.Info("tasks started", "started", started, "total", len(rts))
	return nil
}

// StopAll рассылает запрос остановки и ждёт завершения всех задач.
//
// Блокируется до перехода каждого рантайма в ENDED/ERROR либо до
// истечения timeout. Не успевшие рантаймы финализируются принудительно
// (cleanup best-effort) и возвращаются как не остановившиеся чисто.
func (o *Orchestrator) StopAll(ctx context.Context, timeout time.Duration) []string {
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}

	o.mu.RLock()
	rts := o.snapshotLocked()
	o.mu.RUnlock()

	o.logger.Info("stopping tasks", "count", len(rts), "timeout", timeout)

	for _, rt := range rts {
		rt.Stop()
	}

	deadline := o.clock.After(timeout)
	expired := false
	var timedOut []string

	for _, rt := range rts {
		if expired {
			select {
			case <-rt.Done():
			default:
				timedOut = append(timedOut, rt.Name())
			}
			continue
		}

		select {
		case <-rt.Done():
		case <-deadline:
			expired = true
			select {
			case <-rt.Done():
			default:
				timedOut = append(timedOut, rt.Name())
			}
		}
	}

	// Принудительная финализация зависших: итерацию не прервать,
	// но ресурсы задачи освобождаются.
	for _, name := range timedOut {
		o.logger.Warn("task failed clean shutdown", "task", name, "error", ErrShutdownTimeout)
		if rt, ok := o.runtime(name); ok {
			rt.ForceFinalize(ctx)
		}
	}

	o.logger.Info("tasks stopped",
		"clean", len(rts)-len(timedOut),
		"timed_out", len(timedOut),
	)
	return timedOut
}

// Status возвращает текущие состояния всех задач.
func (o *Orchestrator) Status() map[string]domain.TaskState {
	o.mu.RLock()
	defer o.mu.RUnlock()

	status := make(map[string]domain.TaskState, len(o.runtimes))
	for name, rt := range o.runtimes {
		status[name] = rt.State()
	}
	return status
}

// ExternalWrite маршрутизирует внешнюю запись переменной во владеющую задачу.
//
// name — полное имя {TASK_NAME}:{VARIABLE_NAME}. Запись применяется
// атомарно и доставляется в hook задачи до следующего чтения переменной.
func (o *Orchestrator) ExternalWrite(name string, value any) error {
	task, variable, ok := strings.Cut(name, ":")
	if !ok || task == "" || variable == "" {
		return fmt.Errorf("%w: %s", ErrInvalidVariableName, name)
	}

	rt, okTask := o.runtime(task)
	if !okTask {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, task)
	}

	return rt.Task().Namespace().ExternalWrite(variable, value)
}

// Runtime возвращает рантайм задачи по имени.
func (o *Orchestrator) Runtime(name string) (*runtime.Runtime, bool) {
	return o.runtime(name)
}

// TaskNames возвращает имена загруженных задач в порядке загрузки.
func (o *Orchestrator) TaskNames() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	names := make([]string, len(o.order))
	copy(names, o.order)
	return names
}

func (o *Orchestrator) runtime(name string) (*runtime.Runtime, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	rt, ok := o.runtimes[name]
	return rt, ok
}

// snapshotLocked возвращает рантаймы в порядке загрузки. Вызывается под o.mu.
func (o *Orchestrator) snapshotLocked() []*runtime.Runtime {
	rts := make([]*runtime.Runtime, 0, len(o.order))
	for _, name := range o.order {
		rts = append(rts, o.runtimes[name])
	}
	return rts
}
