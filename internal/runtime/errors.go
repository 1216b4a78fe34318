package runtime

import "errors"

// Ошибки рантайма задач.
var (
	// ErrBehaviorNotFound — поведение не найдено в реестре.
	ErrBehaviorNotFound = errors.New("behavior not found")

	// ErrBehaviorRegistered — поведение с таким именем уже зарегистрировано.
	ErrBehaviorRegistered = errors.New("behavior already registered")

	// ErrAlreadyStarted — повторный Start рантайма.
	ErrAlreadyStarted = errors.New("runtime already started")

	// ErrFault — необработанный сбой поведения (паника, превращённая в ошибку).
	ErrFault = errors.New("runtime fault")
)
