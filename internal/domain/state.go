package domain

// TaskState — состояние жизненного цикла экземпляра задачи.
//
// Жизненный цикл:
//
//	INIT → RUNNING ⇄ PAUSED
//	RUNNING|PAUSED → ENDED (по запросу остановки)
//	любое → ERROR (необработанный сбой; терминально)
type TaskState string

const (
	// StateInit — экземпляр создан, initialize ещё не выполнен.
	StateInit TaskState = "INIT"

	// StateRunning — цикл выполняется, ENABLE=true.
	StateRunning TaskState = "RUNNING"

	// StatePaused — цикл крутится вхолостую, ENABLE=false.
	StatePaused TaskState = "PAUSED"

	// StateEnded — задача остановлена штатно. Терминально.
	StateEnded TaskState = "ENDED"

	// StateError — задача остановлена из-за сбоя. Терминально.
	StateError TaskState = "ERROR"
)

// TaskStates возвращает все состояния в порядке объявления.
// Порядок фиксирован: индекс состояния публикуется в STATUS.
func TaskStates() []TaskState {
	return []TaskState{StateInit, StateRunning, StatePaused, StateEnded, StateError}
}

// TaskStateNames возвращает имена состояний для мультистатусной переменной STATUS.
func TaskStateNames() []string {
	states := TaskStates()
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	return names
}

// IsTerminal возвращает true, если состояние финальное (цикл завершён).
func (s TaskState) IsTerminal() bool {
	switch s {
	case StateEnded, StateError:
		return true
	default:
		return false
	}
}

// CanTransitionTo проверяет допустимость перехода по конечному автомату.
//
// Переход в ERROR разрешён из любого нефинального состояния:
// сбой может случиться на initialize, в цикле и на cleanup.
func (s TaskState) CanTransitionTo(next TaskState) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StateError {
		return true
	}

	switch s {
	case StateInit:
		return next == StateRunning || next == StateEnded
	case StateRunning:
		return next == StatePaused || next == StateEnded
	case StatePaused:
		return next == StateRunning || next == StateEnded
	default:
		return false
	}
}
