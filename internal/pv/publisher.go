package pv

import (
	"context"

	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
)

// FullName возвращает внешнее имя переменной: {TASK_NAME}:{VARIABLE_NAME}.
func FullName(task, variable string) string {
	return task + ":" + variable
}

// Publisher — транспорт, делающий переменные видимыми снаружи.
//
// Движок вызывает Publish один раз при создании экземпляра задачи для
// каждой переменной и PushUpdate на каждое изменение значения. Обратные
// внешние записи транспорт доставляет сам через Orchestrator.ExternalWrite.
//
// Конкретная реализация (AMQP) — internal/bus. nil-публикатор допустим:
// контроллер работает автономно.
type Publisher interface {
	// Publish объявляет переменную наружу. name — полное имя
	// {TASK_NAME}:{VARIABLE_NAME}, spec несёт тип, начальное значение
	// и метаданные (unit, prec, границы, имена состояний).
	Publish(ctx context.Context, name string, spec domain.VariableSpec) error

	// PushUpdate отправляет наружу новое значение переменной.
	PushUpdate(name string, value any)
}
