package pv

import "errors"

// Ошибки пространства имён переменных.
var (
	// ErrNotFound — переменная не объявлена в этой задаче.
	ErrNotFound = errors.New("variable not found")

	// ErrTypeMismatch — значение несовместимо с типом переменной.
	ErrTypeMismatch = errors.New("variable type mismatch")

	// ErrDuplicateVariable — переменная с таким именем уже объявлена.
	ErrDuplicateVariable = errors.New("variable already declared")

	// ErrNotWritable — переменная не принимает внешние записи
	// (выход задачи или служебная переменная оркестратора).
	ErrNotWritable = errors.New("variable not externally writable")
)
