package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrDuplicateTaskName — два дескриптора с одинаковым именем задачи.
	// Проверяется до создания каких-либо экземпляров.
	ErrDuplicateTaskName = errors.New("duplicate task name")

	// ErrTaskNotFound — задача с таким именем не загружена.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidVariableName — внешнее имя переменной не в формате TASK:VAR.
	ErrInvalidVariableName = errors.New("invalid variable name")

	// ErrShutdownTimeout — рантайм не остановился за отведённое время.
	ErrShutdownTimeout = errors.New("shutdown timeout")

	// ErrNotLoaded — StartAll до LoadAll.
	ErrNotLoaded = errors.New("no tasks loaded")
)
