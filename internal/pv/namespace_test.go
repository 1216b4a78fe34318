package pv

import (
	"errors"
	"testing"

	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
)

func TestNamespace_Declare(t *testing.T) {
	ns := NewNamespace("T1")

	specs := []domain.VariableSpec{
		{Name: "IN1", Type: domain.VarFloat, Initial: 1.5},
		{Name: "COUNT", Type: domain.VarInt},
		{Name: "LABEL", Type: domain.VarString, Initial: "idle"},
		{Name: "FLAG", Type: domain.VarBool, Initial: true},
	}
	for _, spec := range specs {
		if _, err := ns.Declare(spec); err != nil {
			t.Fatalf("declare %s: %v", spec.Name, err)
		}
	}

	if ns.Len() != 4 {
		t.Errorf("expected 4 variables, got %d", ns.Len())
	}

	// Порядок объявления сохраняется
	names := ns.Names()
	if names[0] != "IN1" || names[3] != "FLAG" {
		t.Errorf("declaration order not preserved: %v", names)
	}

	// Нулевое значение для int без initial
	v, err := ns.Read("COUNT")
	if err != nil {
		t.Fatalf("read COUNT: %v", err)
	}
	if v != int64(0) {
		t.Errorf("expected int64(0), got %v (%T)", v, v)
	}
}

func TestNamespace_DeclareDuplicate(t *testing.T) {
	ns := NewNamespace("T1")

	if _, err := ns.Declare(domain.VariableSpec{Name: "X", Type: domain.VarFloat}); err != nil {
		t.Fatalf("first declare: %v", err)
	}
	_, err := ns.Declare(domain.VariableSpec{Name: "X", Type: domain.VarInt})
	if !errors.Is(err, ErrDuplicateVariable) {
		t.Errorf("expected ErrDuplicateVariable, got %v", err)
	}
}

func TestNamespace_ReadNotFound(t *testing.T) {
	ns := NewNamespace("T1")

	_, err := ns.Read("MISSING")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := ns.Write("MISSING", 1.0); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on write, got %v", err)
	}
	if err := ns.ExternalWrite("MISSING", 1.0); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on external write, got %v", err)
	}
}

func TestNamespace_TypeMismatchPreservesValue(t *testing.T) {
	ns := NewNamespace("T1")
	if _, err := ns.DeclareInput(domain.VariableSpec{Name: "POS", Type: domain.VarFloat, Initial: 3.5}); err != nil {
		t.Fatalf("declare: %v", err)
	}

	err := ns.ExternalWrite("POS", "not a number")
	if !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("expected ErrTypeMismatch, got %v", err)
	}

	// Прежнее значение не тронуто
	v, err := ns.Read("POS")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v != 3.5 {
		t.Errorf("expected 3.5 after rejected write, got %v", v)
	}
}

func TestNamespace_IntCoercedIntoFloat(t *testing.T) {
	ns := NewNamespace("T1")
	if _, err := ns.Declare(domain.VariableSpec{Name: "POS", Type: domain.VarFloat}); err != nil {
		t.Fatalf("declare: %v", err)
	}

	if err := ns.Write("POS", 7); err != nil {
		t.Fatalf("write int into float: %v", err)
	}
	v, _ := ns.Read("POS")
	if v != float64(7) {
		t.Errorf("expected float64(7), got %v (%T)", v, v)
	}
}

func TestNamespace_WholeFloatCoercedIntoInt(t *testing.T) {
	ns := NewNamespace("T1")
	if _, err := ns.DeclareInput(domain.VariableSpec{Name: "NSTEPS", Type: domain.VarInt}); err != nil {
		t.Fatalf("declare: %v", err)
	}

	// JSON-декодер шины отдаёт целые как float64
	if err := ns.ExternalWrite("NSTEPS", 7.0); err != nil {
		t.Fatalf("external write whole float into int: %v", err)
	}
	v, _ := ns.Read("NSTEPS")
	if v != int64(7) {
		t.Errorf("expected int64(7), got %v (%T)", v, v)
	}

	err := ns.ExternalWrite("NSTEPS", 7.5)
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch for fractional value, got %v", err)
	}
	if v, _ := ns.Read("NSTEPS"); v != int64(7) {
		t.Errorf("expected value intact after rejected write, got %v", v)
	}
}

func TestNamespace_ExternalWriteDeliveredBeforeRead(t *testing.T) {
	ns := NewNamespace("T1")
	if _, err := ns.DeclareInput(domain.VariableSpec{Name: "SP", Type: domain.VarFloat}); err != nil {
		t.Fatalf("declare: %v", err)
	}

	var delivered []any
	ns.SetHook(func(name string, value any) {
		delivered = append(delivered, value)
	})

	if err := ns.ExternalWrite("SP", 1.0); err != nil {
		t.Fatalf("external write: %v", err)
	}
	if err := ns.ExternalWrite("SP", 2.0); err != nil {
		t.Fatalf("external write: %v", err)
	}

	// До чтения hook не вызывался
	if len(delivered) != 0 {
		t.Fatalf("hook called before read: %v", delivered)
	}

	v, err := ns.Read("SP")
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	// Значение применено атомарно: читается последняя запись
	if v != 2.0 {
		t.Errorf("expected 2.0, got %v", v)
	}

	// Обе записи доставлены в порядке поступления
	if len(delivered) != 2 || delivered[0] != 1.0 || delivered[1] != 2.0 {
		t.Errorf("expected deliveries [1 2], got %v", delivered)
	}

	// Повторное чтение не доставляет ничего нового
	if _, err := ns.Read("SP"); err != nil {
		t.Fatalf("second read: %v", err)
	}
	if len(delivered) != 2 {
		t.Errorf("expected no new deliveries, got %v", delivered)
	}
}

func TestNamespace_ReadDeliversOnlyThatVariable(t *testing.T) {
	ns := NewNamespace("T1")
	for _, name := range []string{"A", "B"} {
		if _, err := ns.DeclareInput(domain.VariableSpec{Name: name, Type: domain.VarFloat}); err != nil {
			t.Fatalf("declare %s: %v", name, err)
		}
	}

	var delivered []string
	ns.SetHook(func(name string, value any) {
		delivered = append(delivered, name)
	})

	_ = ns.ExternalWrite("A", 1.0)
	_ = ns.ExternalWrite("B", 2.0)
	_ = ns.ExternalWrite("A", 3.0)

	if _, err := ns.Read("A"); err != nil {
		t.Fatalf("read A: %v", err)
	}
	if len(delivered) != 2 || delivered[0] != "A" || delivered[1] != "A" {
		t.Errorf("expected [A A] after reading A, got %v", delivered)
	}

	// Drain доставляет остаток
	ns.Drain()
	if len(delivered) != 3 || delivered[2] != "B" {
		t.Errorf("expected B delivered by drain, got %v", delivered)
	}
}

func TestNamespace_SubscribersNotified(t *testing.T) {
	ns := NewNamespace("T1")
	if _, err := ns.DeclareInput(domain.VariableSpec{Name: "SP", Type: domain.VarFloat}); err != nil {
		t.Fatalf("declare: %v", err)
	}

	var single, all []any
	ns.Subscribe("SP", func(_ string, value any) { single = append(single, value) })
	ns.SubscribeAll(func(_ string, value any) { all = append(all, value) })

	if err := ns.Write("SP", 4.2); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ns.ExternalWrite("SP", 5.0); err != nil {
		t.Fatalf("external write: %v", err)
	}

	if len(single) != 2 || len(all) != 2 {
		t.Errorf("expected 2 notifications each, got single=%v all=%v", single, all)
	}
}

func TestNamespace_ExternalWriteRejectedForOutputs(t *testing.T) {
	ns := NewNamespace("T1")
	if _, err := ns.Declare(domain.VariableSpec{Name: "OUT", Type: domain.VarFloat, Initial: 1.0}); err != nil {
		t.Fatalf("declare: %v", err)
	}

	err := ns.ExternalWrite("OUT", 99.0)
	if !errors.Is(err, ErrNotWritable) {
		t.Fatalf("expected ErrNotWritable, got %v", err)
	}
	if v, _ := ns.Read("OUT"); v != 1.0 {
		t.Errorf("expected output untouched, got %v", v)
	}

	// Изнутри задачи выход пишется как обычно
	if err := ns.Write("OUT", 2.0); err != nil {
		t.Fatalf("internal write: %v", err)
	}
}

func TestFullName(t *testing.T) {
	if got := FullName("MOTORS01", "ENABLE"); got != "MOTORS01:ENABLE" {
		t.Errorf("unexpected full name: %s", got)
	}
}
