package repo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
)

// Типы событий журнала.
const (
	EventTransition    = "transition"
	EventFault         = "fault"
	EventDeviceWarning = "device_warning"
)

// Event — запись журнала жизненного цикла.
type Event struct {
	ID        uuid.UUID
	Task      string
	Type      string
	FromState string
	ToState   string
	Phase     string
	Message   string
	CreatedAt time.Time
}

// EventRepo пишет события жизненного цикла в таблицу task_events.
// Запись best-effort: ошибка БД логируется и не останавливает задачу.
type EventRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewEventRepo создаёт новый EventRepo.
func NewEventRepo(pool *pgxpool.Pool, logger *slog.Logger) *EventRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventRepo{pool: pool, logger: logger}
}

// RecordTransition фиксирует переход состояния задачи.
func (r *EventRepo) RecordTransition(ctx context.Context, task string, from, to domain.TaskState, message string) {
	r.insert(ctx, Event{
		Task:      task,
		Type:      EventTransition,
		FromState: string(from),
		ToState:   string(to),
		Message:   message,
	})
}

// RecordFault фиксирует сбой поведения в указанной фазе.
func (r *EventRepo) RecordFault(ctx context.Context, task string, phase string, err error) {
	r.insert(ctx, Event{
		Task:    task,
		Type:    EventFault,
		Phase:   phase,
		Message: err.Error(),
	})
}

// RecordDeviceWarning фиксирует предупреждение сборки устройств.
func (r *EventRepo) RecordDeviceWarning(ctx context.Context, device string, reason string) {
	r.insert(ctx, Event{
		Task:    device,
		Type:    EventDeviceWarning,
		Message: reason,
	})
}

func (r *EventRepo) insert(ctx context.Context, ev Event) {
	ev.ID = uuid.New()
	ev.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO task_events (id, task, type, from_state, to_state, phase, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		ev.ID,
		ev.Task,
		ev.Type,
		nullString(ev.FromState),
		nullString(ev.ToState),
		nullString(ev.Phase),
		ev.Message,
		ev.CreatedAt,
	)
	if err != nil {
		r.logger.Warn("event journal insert failed",
			"task", ev.Task,
			"type", ev.Type,
			"error", err,
		)
	}
}

// ListByTask возвращает последние события задачи, новые первыми.
func (r *EventRepo) ListByTask(ctx context.Context, task string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, task, type, from_state, to_state, phase, message, created_at
		FROM task_events
		WHERE task = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, task, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var fromState, toState, phase *string
		if err := rows.Scan(&ev.ID, &ev.Task, &ev.Type, &fromState, &toState, &phase, &ev.Message, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.FromState = deref(fromState)
		ev.ToState = deref(toState)
		ev.Phase = deref(phase)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
