package device

import "context"

// Handle — базовый интерфейс устройства.
//
// Конкретные способности проверяются типовым утверждением:
//
//	if m, ok := h.(device.Movable); ok { ... }
type Handle interface {
	// Name возвращает имя устройства (ключ в реестре).
	Name() string

	// Group возвращает группу устройства (mot, diag, mag...).
	Group() string
}

// Movable — устройство с управляемым положением (моторы).
type Movable interface {
	Handle

	// Move начинает перемещение к заданной позиции.
	Move(ctx context.Context, position float64) error

	// Position возвращает текущую позицию.
	Position() float64

	// Moving сообщает, идёт ли перемещение.
	Moving() bool
}

// Readable — устройство с читаемым скалярным значением (датчики).
type Readable interface {
	Handle

	// Read возвращает текущее показание.
	Read(ctx context.Context) (float64, error)
}

// Stoppable — устройство, которое можно безопасно остановить.
// Вызывается при cleanup задач и остановке контроллера.
type Stoppable interface {
	// Stop останавливает текущую операцию устройства.
	Stop(ctx context.Context) error
}
