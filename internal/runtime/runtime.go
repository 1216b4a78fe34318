package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
	"github.com/infn-epics/epik8s-beamline-controller/internal/telemetry"
)

// defaultInterval — пауза между итерациями, если update_rate не задан.
const defaultInterval = time.Second

// EventSink — приёмник событий жизненного цикла (журнал в БД).
// nil-sink допустим: журналирование выключено.
type EventSink interface {
	// RecordTransition фиксирует переход состояния задачи.
	RecordTransition(ctx context.Context, task string, from, to domain.TaskState, message string)

	// RecordFault фиксирует сбой поведения в фазе initialize/run/cleanup.
	RecordFault(ctx context.Context, task string, phase string, err error)
}

// Config — конфигурация Runtime.
type Config struct {
	// Task — экземпляр задачи (обязательно).
	Task *Task

	// Behavior — логика задачи (обязательно).
	Behavior Behavior

	// Interval — пауза между итерациями.
	// Если <= 0, берётся update_rate из параметров задачи, иначе секунда.
	Interval time.Duration

	// Clock — источник времени (default: clockwork.NewRealClock()).
	Clock clockwork.Clock

	// Events — журнал событий (опционально).
	Events EventSink

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// Runtime исполняет жизненный цикл одной задачи в собственной горутине.
type Runtime struct {
	task     *Task
	behavior Behavior
	mode     domain.TaskMode
	interval time.Duration
	clock    clockwork.Clock
	events   EventSink
	logger   *slog.Logger

	stateMu sync.RWMutex
	state   domain.TaskState

	started     bool
	startedMu   sync.Mutex
	stopOnce    sync.Once
	stopCh      chan struct{}
	done        chan struct{}
	cleanupOnce sync.Once
}

// New создаёт Runtime для задачи.
func New(cfg Config) *Runtime {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Task != nil {
		logger = telemetry.WithTask(logger, cfg.Task.Name())
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	interval := cfg.Interval
	if interval <= 0 && cfg.Task != nil {
		// update_rate в герцах, как в конфигурации задач.
		if rate := cfg.Task.Params().Float("update_rate", 0); rate > 0 {
			interval = time.Duration(float64(time.Second) / rate)
		}
	}
	if interval <= 0 {
		interval = defaultInterval
	}

	mode := domain.ModeContinuous
	if cfg.Task != nil {
		mode = cfg.Task.Descriptor().EffectiveMode()
	}

	return &Runtime{
		task:     cfg.Task,
		behavior: cfg.Behavior,
		mode:     mode,
		interval: interval,
		clock:    clock,
		events:   cfg.Events,
		logger:   logger,
		state:    domain.StateInit,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Name возвращает имя задачи.
func (r *Runtime) Name() string {
	return r.task.Name()
}

// Task возвращает экземпляр задачи.
func (r *Runtime) Task() *Task {
	return r.task
}

// State возвращает текущее состояние задачи.
func (r *Runtime) State() domain.TaskState {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.state
}

// Start запускает горутину жизненного цикла.
func (r *Runtime) Start(ctx context.Context) error {
	r.startedMu.Lock()
	defer r.startedMu.Unlock()

	if r.started {
		return ErrAlreadyStarted
	}
	r.started = true

	// Внешние записи доставляются в hook поведения строго из
	// горутины задачи (через Drain/Read внутри цикла).
	r.task.Namespace().SetHook(func(name string, value any) {
		telemetry.ExternalWrites.WithLabelValues(r.task.Name()).Inc()
		r.behavior.OnVariableWrite(name, value)
	})

	go r.loop(ctx)
	return nil
}

// Stop запрашивает кооперативную остановку.
// Возврат немедленный; завершение ожидается через Done().
func (r *Runtime) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopCh)
	})
}

// Done закрывается, когда горутина жизненного цикла завершилась.
func (r *Runtime) Done() <-chan struct{} {
	return r.done
}

// ForceFinalize выполняет cleanup best-effort, не дожидаясь горутины.
//
// Используется оркестратором по таймауту stopAll: зависшая итерация
// не получит преемпции, но ресурсы задачи будут освобождены.
func (r *Runtime) ForceFinalize(ctx context.Context) {
	r.finalize(ctx)
}

// loop — горутина жизненного цикла задачи.
func (r *Runtime) loop(ctx context.Context) {
	defer close(r.done)
	defer r.finalize(ctx)

	// Фаза initialize: сбой — ERROR без входа в цикл.
	if err := r.guard("initialize", func() error {
		return r.behavior.Initialize(ctx, r.task)
	}); err != nil {
		r.fail(ctx, "initialize", err)
		return
	}

	if r.stopRequested(ctx) {
		r.transition(ctx, domain.StateEnded, "stopped before run loop")
		return
	}

	r.transition(ctx, domain.StateRunning, "")

	// Для continuous-задач RUN — индикатор работающего цикла.
	if r.mode == domain.ModeContinuous {
		_ = r.task.Set(domain.BuiltinRun, true)
	}

	for {
		if err := r.iteration(ctx); err != nil {
			r.fail(ctx, "run", err)
			return
		}

		// Единственная штатная точка ожидания между итерациями.
		select {
		case <-ctx.Done():
			r.transition(ctx, domain.StateEnded, "context cancelled")
			return
		case <-r.stopCh:
			r.transition(ctx, domain.StateEnded, "stop requested")
			return
		case <-r.clock.After(r.interval):
		}
	}
}

// iteration выполняет одну итерацию цикла с ловлей паник.
func (r *Runtime) iteration(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic: %v", ErrFault, p)
		}
	}()

	// Доставляем накопленные внешние записи до чтения ENABLE:
	// контракт «до следующего чтения внутри цикла».
	r.task.Namespace().Drain()

	enabled, err := r.task.Namespace().ReadBool(domain.BuiltinEnable)
	if err != nil {
		return err
	}

	if !enabled {
		// Холостой цикл паузы.
		r.transition(ctx, domain.StatePaused, "")
		return nil
	}
	r.transition(ctx, domain.StateRunning, "")

	if r.mode == domain.ModeTriggered {
		run, err := r.task.Namespace().ReadBool(domain.BuiltinRun)
		if err != nil {
			return err
		}
		if !run {
			return nil
		}
		// Сбрасываем триггер до выполнения: повторный RUN во время
		// длинной итерации станет следующим триггером.
		if err := r.task.Set(domain.BuiltinRun, false); err != nil {
			return err
		}
	}

	if err := r.behavior.RunIteration(ctx, r.task); err != nil {
		return err
	}

	r.stepCycle()
	return nil
}

// stepCycle инкрементирует CYCLE_COUNT.
func (r *Runtime) stepCycle() {
	count, err := r.task.Namespace().ReadInt(domain.BuiltinCycleCount)
	if err != nil {
		return
	}
	_ = r.task.Set(domain.BuiltinCycleCount, count+1)
	telemetry.TaskCycles.WithLabelValues(r.task.Name()).Inc()
}

// guard выполняет фазу поведения, превращая панику в ошибку.
func (r *Runtime) guard(phase string, fn func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: panic in %s: %v", ErrFault, phase, p)
		}
	}()
	return fn()
}

// fail переводит задачу в ERROR, записывая причину в MESSAGE.
func (r *Runtime) fail(ctx context.Context, phase string, err error) {
	r.task.SetMessage(fmt.Sprintf("ERROR: %v", err))
	r.logger.Error("task fault", "phase", phase, "error", err)

	telemetry.TaskFaults.WithLabelValues(r.task.Name(), phase).Inc()
	if r.events != nil {
		r.events.RecordFault(ctx, r.task.Name(), phase, err)
	}

	r.transition(ctx, domain.StateError, err.Error())
}

// stopRequested проверяет, запрошена ли остановка.
func (r *Runtime) stopRequested(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

// transition переводит конечный автомат в состояние next.
//
// Недопустимые переходы игнорируются (терминальное состояние не
// перезаписывается). Новое состояние отражается в STATUS.
func (r *Runtime) transition(ctx context.Context, next domain.TaskState, message string) {
	r.stateMu.Lock()
	prev := r.state
	if prev == next || !prev.CanTransitionTo(next) {
		r.stateMu.Unlock()
		return
	}
	r.state = next
	r.stateMu.Unlock()

	_ = r.task.Set(domain.BuiltinStatus, string(next))

	r.logger.Info("task state transition",
		"from", prev,
		"to", next,
	)
	telemetry.TaskTransitions.WithLabelValues(r.task.Name(), string(next)).Inc()
	if r.events != nil {
		r.events.RecordTransition(ctx, r.task.Name(), prev, next, message)
	}
}

// finalize выполняет cleanup ровно один раз.
//
// Порядок: пользовательский Cleanup, затем остановка Stoppable-устройств
// и сброс индикатора RUN. Паника в Cleanup переводит задачу в ERROR,
// но не мешает освобождению устройств.
func (r *Runtime) finalize(ctx context.Context) {
	r.cleanupOnce.Do(func() {
		if err := r.guard("cleanup", func() error {
			return r.behavior.Cleanup(ctx, r.task)
		}); err != nil {
			r.logger.Error("cleanup failed", "error", err)
			telemetry.TaskFaults.WithLabelValues(r.task.Name(), "cleanup").Inc()
			if r.events != nil {
				r.events.RecordFault(ctx, r.task.Name(), "cleanup", err)
			}
			r.transition(ctx, domain.StateError, err.Error())
		}

		r.task.stopDevices(ctx)

		if r.mode == domain.ModeContinuous {
			_ = r.task.Set(domain.BuiltinRun, false)
		}

		r.logger.Info("task finalized", "state", r.State())
	})
}
