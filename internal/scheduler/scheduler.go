package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
	"github.com/infn-epics/epik8s-beamline-controller/internal/pv"
)

// TriggerFunc доставляет взвод триггера задаче.
// Обычно это Orchestrator.ExternalWrite.
type TriggerFunc func(name string, value any) error

// entry — одно расписание для одной задачи.
type entry struct {
	task    string
	expr    string
	nextDue time.Time
}

// Scheduler взводит RUN=true для триггерных задач по cron-расписанию.
type Scheduler struct {
	trigger  TriggerFunc
	clock    clockwork.Clock
	logger   *slog.Logger
	interval time.Duration

	mu      sync.Mutex
	entries []*entry

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// Config — конфигурация Scheduler.
type Config struct {
	// Trigger — куда писать RUN=true. Обязателен.
	Trigger TriggerFunc

	// Interval — период проверки расписаний (default: 1s).
	Interval time.Duration

	// Clock — источник времени (default: clockwork.NewRealClock()).
	Clock clockwork.Clock

	// Logger — логгер (default: slog.Default()).
	Logger *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}

	return &Scheduler{
		trigger:  cfg.Trigger,
		clock:    clock,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Add регистрирует расписание для задачи.
// Первое срабатывание вычисляется от текущего момента.
func (s *Scheduler) Add(task, cronExpr string) error {
	next, err := CalculateNext(cronExpr, s.clock.Now())
	if err != nil {
		return fmt.Errorf("add schedule for %s: %w", task, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, &entry{task: task, expr: cronExpr, nextDue: next})

	s.logger.Info("schedule registered",
		"task", task,
		"cron", cronExpr,
		"next_due", next,
	)
	return nil
}

// Len возвращает число зарегистрированных расписаний.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Start запускает цикл проверки расписаний в отдельной горутине.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case <-s.clock.After(s.interval):
				s.Tick(s.clock.Now())
			}
		}
	}()
}

// Stop останавливает цикл и дожидается его завершения.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// Tick обрабатывает все расписания с истекшим nextDue.
// Ошибка одного расписания не блокирует обработку остальных.
func (s *Scheduler) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.nextDue.After(now) {
			continue
		}
		s.fire(e, now)
	}
}

// fire взводит триггер и сдвигает nextDue.
// Вызывается под mu.
func (s *Scheduler) fire(e *entry, now time.Time) {
	name := pv.FullName(e.task, domain.BuiltinRun)
	if err := s.trigger(name, true); err != nil {
		// Задача могла ещё не стартовать или уже завершиться.
		s.logger.Warn("trigger delivery failed",
			"task", e.task,
			"error", err,
		)
	} else {
		s.logger.Debug("trigger fired", "task", e.task, "cron", e.expr)
	}

	next, err := CalculateNext(e.expr, now)
	if err != nil {
		// Выражение проверено в Add, сюда попасть не должны.
		s.logger.Error("failed to calculate next due",
			"task", e.task,
			"cron", e.expr,
			"error", err,
		)
		return
	}
	e.nextDue = next
}
