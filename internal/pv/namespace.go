package pv

import (
	"fmt"
	"sync"

	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
)

// WriteHook — обработчик внешних записей, устанавливается рантаймом задачи.
// Вызывается строго из горутины владеющей задачи при доставке очереди.
type WriteHook func(name string, value any)

// Subscriber — подписчик на изменения значения переменной.
type Subscriber func(name string, value any)

// externalWrite — одна внешняя запись, ожидающая доставки в hook.
type externalWrite struct {
	name  string
	value any
}

// Namespace — пространство имён переменных одной задачи.
//
// Потокобезопасен: владеющая задача читает и пишет из своего цикла,
// внешние записи приходят из горутины consumer'а шины.
type Namespace struct {
	task string

	mu    sync.RWMutex
	vars  map[string]*Variable
	order []string

	// pending — очередь внешних записей, ещё не доставленных в hook.
	// Единый FIFO даёт per-variable порядок без межпеременных гарантий.
	pendingMu sync.Mutex
	pending   []externalWrite

	hookMu sync.RWMutex
	hook   WriteHook

	subMu   sync.RWMutex
	subs    map[string][]Subscriber
	allSubs []Subscriber
}

// NewNamespace создаёт пустое пространство имён для задачи.
func NewNamespace(task string) *Namespace {
	return &Namespace{
		task: task,
		vars: make(map[string]*Variable),
		subs: make(map[string][]Subscriber),
	}
}

// Task возвращает имя владеющей задачи.
func (ns *Namespace) Task() string {
	return ns.task
}

// Declare объявляет переменную, закрытую для внешних записей
// (выход задачи или служебная переменная).
// Повторное объявление имени — ErrDuplicateVariable.
func (ns *Namespace) Declare(spec domain.VariableSpec) (*Variable, error) {
	return ns.declare(spec, false)
}

// DeclareInput объявляет переменную, открытую для внешних записей.
func (ns *Namespace) DeclareInput(spec domain.VariableSpec) (*Variable, error) {
	return ns.declare(spec, true)
}

func (ns *Namespace) declare(spec domain.VariableSpec, writable bool) (*Variable, error) {
	v, err := newVariable(spec, writable)
	if err != nil {
		return nil, err
	}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	if _, exists := ns.vars[spec.Name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateVariable, spec.Name)
	}
	ns.vars[spec.Name] = v
	ns.order = append(ns.order, spec.Name)
	return v, nil
}

// Get возвращает переменную по имени.
func (ns *Namespace) Get(name string) (*Variable, bool) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	v, ok := ns.vars[name]
	return v, ok
}

// Names возвращает имена переменных в порядке объявления.
func (ns *Namespace) Names() []string {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	names := make([]string, len(ns.order))
	copy(names, ns.order)
	return names
}

// Len возвращает число объявленных переменных.
func (ns *Namespace) Len() int {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return len(ns.vars)
}

// Read возвращает текущее значение переменной.
//
// Перед чтением доставляет в hook все ожидающие внешние записи этой
// переменной: контракт «доставка до следующего чтения внутри цикла».
func (ns *Namespace) Read(name string) (any, error) {
	v, ok := ns.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s:%s", ErrNotFound, ns.task, name)
	}

	ns.deliverPending(name)
	return v.Value(), nil
}

// Write записывает значение изнутри задачи (выходы, встроенные переменные).
func (ns *Namespace) Write(name string, value any) error {
	v, ok := ns.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s:%s", ErrNotFound, ns.task, name)
	}

	coerced, err := v.set(value)
	if err != nil {
		return err
	}

	ns.notify(name, coerced)
	return nil
}

// ExternalWrite записывает значение по внешнему запросу.
//
// Принимаются только переменные, объявленные через DeclareInput;
// запись в выход или служебную переменную — ErrNotWritable.
// Значение применяется атомарно, а уведомление ставится в очередь
// для доставки в hook задачи.
func (ns *Namespace) ExternalWrite(name string, value any) error {
	v, ok := ns.Get(name)
	if !ok {
		return fmt.Errorf("%w: %s:%s", ErrNotFound, ns.task, name)
	}
	if !v.Writable() {
		return fmt.Errorf("%w: %s:%s", ErrNotWritable, ns.task, name)
	}

	coerced, err := v.set(value)
	if err != nil {
		return err
	}

	ns.pendingMu.Lock()
	ns.pending = append(ns.pending, externalWrite{name: name, value: coerced})
	ns.pendingMu.Unlock()

	ns.notify(name, coerced)
	return nil
}

// SetHook устанавливает обработчик внешних записей.
func (ns *Namespace) SetHook(hook WriteHook) {
	ns.hookMu.Lock()
	ns.hook = hook
	ns.hookMu.Unlock()
}

// Drain доставляет в hook все ожидающие внешние записи.
// Вызывается рантаймом в начале каждой итерации цикла.
func (ns *Namespace) Drain() {
	ns.deliverPending("")
}

// deliverPending доставляет ожидающие записи. Пустое имя — все записи,
// иначе только записи указанной переменной (с сохранением порядка остальных).
func (ns *Namespace) deliverPending(name string) {
	ns.hookMu.RLock()
	hook := ns.hook
	ns.hookMu.RUnlock()

	ns.pendingMu.Lock()
	if len(ns.pending) == 0 {
		ns.pendingMu.Unlock()
		return
	}

	var deliver, keep []externalWrite
	if name == "" {
		deliver = ns.pending
		ns.pending = nil
	} else {
		for _, w := range ns.pending {
			if w.name == name {
				deliver = append(deliver, w)
			} else {
				keep = append(keep, w)
			}
		}
		ns.pending = keep
	}
	ns.pendingMu.Unlock()

	if hook == nil {
		return
	}
	for _, w := range deliver {
		hook(w.name, w.value)
	}
}

// Subscribe подписывает на изменения одной переменной.
func (ns *Namespace) Subscribe(name string, sub Subscriber) {
	ns.subMu.Lock()
	ns.subs[name] = append(ns.subs[name], sub)
	ns.subMu.Unlock()
}

// SubscribeAll подписывает на изменения всех переменных.
// Используется для публикации значений наружу.
func (ns *Namespace) SubscribeAll(sub Subscriber) {
	ns.subMu.Lock()
	ns.allSubs = append(ns.allSubs, sub)
	ns.subMu.Unlock()
}

// notify уведомляет подписчиков об изменении значения.
func (ns *Namespace) notify(name string, value any) {
	ns.subMu.RLock()
	subs := ns.subs[name]
	all := ns.allSubs
	ns.subMu.RUnlock()

	for _, sub := range subs {
		sub(name, value)
	}
	for _, sub := range all {
		sub(name, value)
	}
}
