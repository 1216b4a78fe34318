package pv

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
)

// Variable — рантайм-экземпляр VariableSpec.
//
// Значение защищено собственным мьютексом: владеющая задача и путь
// доставки внешних записей могут обращаться к переменной конкурентно
// без внешней синхронизации.
type Variable struct {
	spec domain.VariableSpec

	// writable — переменная принимает внешние записи (вход задачи
	// либо ENABLE/RUN). Фиксируется при объявлении.
	writable bool

	mu        sync.RWMutex
	value     any
	updatedAt time.Time
	dirty     bool
}

func newVariable(spec domain.VariableSpec, writable bool) (*Variable, error) {
	v := &Variable{spec: spec, writable: writable}

	initial := spec.Initial
	if initial == nil {
		initial = zeroValue(spec.Type)
	}

	coerced, err := coerce(spec.Type, initial)
	if err != nil {
		return nil, fmt.Errorf("variable %s initial value: %w", spec.Name, err)
	}
	v.value = coerced
	return v, nil
}

// Name возвращает имя переменной.
func (v *Variable) Name() string {
	return v.spec.Name
}

// Spec возвращает описание переменной.
func (v *Variable) Spec() domain.VariableSpec {
	return v.spec
}

// Writable сообщает, принимает ли переменная внешние записи.
func (v *Variable) Writable() bool {
	return v.writable
}

// Value возвращает текущее значение.
func (v *Variable) Value() any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// UpdatedAt возвращает время последней записи.
func (v *Variable) UpdatedAt() time.Time {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.updatedAt
}

// set записывает значение с приведением типа.
// Возвращает ErrTypeMismatch без изменения состояния при несовместимом значении.
func (v *Variable) set(value any) (any, error) {
	coerced, err := coerce(v.spec.Type, value)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.value = coerced
	v.updatedAt = time.Now()
	v.dirty = true
	v.mu.Unlock()

	return coerced, nil
}

// ClearDirty снимает флаг изменения и возвращает его прежнее значение.
func (v *Variable) ClearDirty() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	was := v.dirty
	v.dirty = false
	return was
}

// zeroValue возвращает нулевое значение для типа переменной.
func zeroValue(t domain.VarType) any {
	switch t {
	case domain.VarInt:
		return int64(0)
	case domain.VarString:
		return ""
	case domain.VarBool:
		return false
	default:
		// float — тип по умолчанию, как в исходной конфигурации.
		return float64(0)
	}
}

// coerce приводит значение к типу переменной.
//
// Числовые послабления: int принимается во float-переменную, а float
// без дробной части — в int-переменную (JSON-декодер шины отдаёт все
// числа как float64). Всё остальное строго — несовпадение это
// ErrTypeMismatch.
func coerce(t domain.VarType, value any) (any, error) {
	switch t {
	case domain.VarFloat, "":
		switch n := value.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case domain.VarInt:
		switch n := value.(type) {
		case int64:
			return n, nil
		case int:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case float64:
			if n == math.Trunc(n) {
				return int64(n), nil
			}
		case float32:
			if f := float64(n); f == math.Trunc(f) {
				return int64(f), nil
			}
		}
	case domain.VarString:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case domain.VarBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %T into %s", ErrTypeMismatch, value, t)
}
