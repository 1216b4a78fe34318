package domain

import (
	"errors"
	"fmt"
)

// Ошибки валидации дескрипторов.
var (
	// ErrEmptyTaskName — у дескриптора нет имени.
	ErrEmptyTaskName = errors.New("task name is empty")

	// ErrEmptyModule — у дескриптора не указан module.
	ErrEmptyModule = errors.New("task module is empty")

	// ErrDuplicateVariableName — имя переменной повторяется в пределах задачи.
	ErrDuplicateVariableName = errors.New("duplicate variable name")

	// ErrReservedNameCollision — имя переменной совпадает со встроенной.
	ErrReservedNameCollision = errors.New("variable name collides with built-in")

	// ErrUnknownVarType — неизвестный тип переменной.
	ErrUnknownVarType = errors.New("unknown variable type")
)

// Validate проверяет корректность дескриптора задачи.
//
// Проверяется:
//   - наличие имени и module
//   - отсутствие коллизий с зарезервированными именами
//   - уникальность имён переменных среди inputs и outputs вместе
//   - известность типов переменных
func (d *TaskDescriptor) Validate() error {
	if d.Name == "" {
		return ErrEmptyTaskName
	}
	if d.Module == "" {
		return fmt.Errorf("task %s: %w", d.Name, ErrEmptyModule)
	}

	seen := make(map[string]bool, len(d.Inputs)+len(d.Outputs))

	check := func(spec *VariableSpec) error {
		if IsReservedName(spec.Name) {
			return fmt.Errorf("task %s, variable %s: %w", d.Name, spec.Name, ErrReservedNameCollision)
		}
		if seen[spec.Name] {
			return fmt.Errorf("task %s, variable %s: %w", d.Name, spec.Name, ErrDuplicateVariableName)
		}
		seen[spec.Name] = true

		switch spec.Type {
		case VarFloat, VarInt, VarString, VarBool:
		case "":
			// Тип по умолчанию — float, как в исходной конфигурации.
		default:
			return fmt.Errorf("task %s, variable %s: %w: %s", d.Name, spec.Name, ErrUnknownVarType, spec.Type)
		}
		return nil
	}

	for i := range d.Inputs {
		if err := check(&d.Inputs[i]); err != nil {
			return err
		}
	}
	for i := range d.Outputs {
		if err := check(&d.Outputs[i]); err != nil {
			return err
		}
	}
	return nil
}
