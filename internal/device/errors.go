package device

import "errors"

// Ошибки реестра устройств.
var (
	// ErrConstructorRegistered — конструктор для (group, type) уже есть.
	ErrConstructorRegistered = errors.New("device constructor already registered")

	// ErrAlreadyBuilt — Register после Build запрещён.
	ErrAlreadyBuilt = errors.New("registry already built")

	// ErrConstruction — конструктор устройства вернул ошибку.
	ErrConstruction = errors.New("device construction failed")
)
