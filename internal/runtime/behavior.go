package runtime

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Behavior — пользовательская логика задачи.
//
// Движок агностичен к конкретным реализациям: поведение выбирается по
// полю module дескриптора через Registry. Все методы вызываются из
// горутины задачи; паники ловятся рантаймом и переводят задачу в ERROR.
type Behavior interface {
	// Initialize выполняется один раз до входа в цикл.
	// Ошибка переводит задачу в ERROR, цикл не стартует.
	Initialize(ctx context.Context, t *Task) error

	// RunIteration выполняет одну итерацию логики.
	// В continuous-режиме вызывается каждый enabled-тик,
	// в triggered-режиме — один раз на триггер RUN.
	RunIteration(ctx context.Context, t *Task) error

	// Cleanup выполняется ровно один раз при завершении (ENDED или ERROR).
	Cleanup(ctx context.Context, t *Task) error

	// OnVariableWrite вызывается при доставке внешней записи переменной.
	// Доставка происходит в горутине задачи до следующего чтения
	// этой переменной внутри цикла.
	OnVariableWrite(name string, value any)
}

// Factory создаёт новый экземпляр поведения.
// Каждая задача получает собственный экземпляр: поведения хранят состояние.
type Factory func() Behavior

// Registry — реестр поведений по имени module.
//
// Заполняется при сборке бинаря (tasks.RegisterAll) и передаётся
// оркестратору явно — без глобальной регистрации через init().
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry создаёт пустой реестр поведений.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register регистрирует фабрику поведения под именем module.
func (r *Registry) Register(module string, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[module]; exists {
		return fmt.Errorf("%w: %s", ErrBehaviorRegistered, module)
	}
	r.factories[module] = factory
	return nil
}

// New создаёт экземпляр поведения по имени module.
func (r *Registry) New(module string) (Behavior, error) {
	r.mu.RLock()
	factory, ok := r.factories[module]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBehaviorNotFound, module)
	}
	return factory(), nil
}

// Has проверяет, зарегистрировано ли поведение.
func (r *Registry) Has(module string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[module]
	return ok
}

// Modules возвращает отсортированный список зарегистрированных поведений.
func (r *Registry) Modules() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	modules := make([]string, 0, len(r.factories))
	for m := range r.factories {
		modules = append(modules, m)
	}
	sort.Strings(modules)
	return modules
}

// BaseBehavior — встраиваемая заготовка с no-op реализациями
// Cleanup и OnVariableWrite для простых поведений.
type BaseBehavior struct{}

// Cleanup ничего не делает.
func (BaseBehavior) Cleanup(ctx context.Context, t *Task) error { return nil }

// OnVariableWrite ничего не делает.
func (BaseBehavior) OnVariableWrite(name string, value any) {}
