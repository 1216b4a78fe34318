package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/infn-epics/epik8s-beamline-controller/internal/device"
	"github.com/infn-epics/epik8s-beamline-controller/internal/device/sim"
	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
	"github.com/infn-epics/epik8s-beamline-controller/internal/runtime"
)

func simRegistry(t *testing.T, specs []domain.DeviceSpec) *device.Registry {
	t.Helper()
	r := device.NewRegistry(nil)
	if err := sim.Register(r); err != nil {
		t.Fatalf("register sim: %v", err)
	}
	if _, warnings := r.Build(specs); len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	return r
}

func newTask(t *testing.T, desc domain.TaskDescriptor, reg *device.Registry) *runtime.Task {
	t.Helper()
	task, err := runtime.NewTask(context.Background(), desc, reg, nil, nil)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	return task
}

func TestRegisterAll(t *testing.T) {
	r := runtime.NewRegistry()
	if err := RegisterAll(r); err != nil {
		t.Fatalf("register all: %v", err)
	}

	for _, module := range []string{ModuleMotorWatch, ModuleDevScan} {
		if !r.Has(module) {
			t.Errorf("module %s not registered", module)
		}
	}

	// Повторная регистрация — ошибка дубликата
	if err := RegisterAll(r); err == nil {
		t.Error("expected duplicate registration error")
	}
}

func TestMotorWatch_TracksMovement(t *testing.T) {
	reg := simRegistry(t, []domain.DeviceSpec{
		{Name: "m1", Group: "mot", Type: "sim"},
	})
	desc := domain.TaskDescriptor{
		Name:   "MOTORS01",
		Module: ModuleMotorWatch,
		Outputs: []domain.VariableSpec{
			{Name: "m1_POS", Type: domain.VarFloat},
			{Name: "m1_MOVING", Type: domain.VarBool},
		},
		Devices: []string{"m1"},
	}
	task := newTask(t, desc, reg)

	b := NewMotorWatch()
	ctx := context.Background()
	if err := b.Initialize(ctx, task); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// Мотор стоит
	if err := b.RunIteration(ctx, task); err != nil {
		t.Fatalf("iteration: %v", err)
	}
	moving, err := task.Get("m1_MOVING")
	if err != nil {
		t.Fatalf("read m1_MOVING: %v", err)
	}
	if moving != false {
		t.Errorf("expected m1_MOVING=false, got %v", moving)
	}

	// Запускаем перемещение
	h, _ := task.Device("m1")
	motor := h.(device.Movable)
	if err := motor.Move(ctx, 1000); err != nil {
		t.Fatalf("move: %v", err)
	}

	if err := b.RunIteration(ctx, task); err != nil {
		t.Fatalf("iteration: %v", err)
	}
	moving, _ = task.Get("m1_MOVING")
	if moving != true {
		t.Errorf("expected m1_MOVING=true during move, got %v", moving)
	}
	pos, _ := task.Get("m1_POS")
	if _, ok := pos.(float64); !ok {
		t.Errorf("expected float position, got %T", pos)
	}

	if err := b.Cleanup(ctx, task); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
}

func TestMotorWatch_MissingOutputsTolerated(t *testing.T) {
	reg := simRegistry(t, []domain.DeviceSpec{
		{Name: "m1", Group: "mot", Type: "sim"},
	})
	// Дескриптор без выходных переменных — поведение работает, просто не публикует
	desc := domain.TaskDescriptor{
		Name:    "MOTORS01",
		Module:  ModuleMotorWatch,
		Devices: []string{"m1"},
	}
	task := newTask(t, desc, reg)

	b := NewMotorWatch()
	ctx := context.Background()
	if err := b.Initialize(ctx, task); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := b.RunIteration(ctx, task); err != nil {
		t.Fatalf("iteration: %v", err)
	}
}

func TestMotorWatch_NoMotorsIsNotFatal(t *testing.T) {
	desc := domain.TaskDescriptor{
		Name:    "MOTORS01",
		Module:  ModuleMotorWatch,
		Devices: []string{"ghost"},
	}
	task := newTask(t, desc, nil)

	b := NewMotorWatch()
	if err := b.Initialize(context.Background(), task); err != nil {
		t.Errorf("missing motors should not fail initialize: %v", err)
	}
}

func TestDevScan_SamplesReadables(t *testing.T) {
	reg := simRegistry(t, []domain.DeviceSpec{
		{Name: "bpm1", Group: "diag", Type: "sim"},
	})
	desc := domain.TaskDescriptor{
		Name:   "SCAN01",
		Module: ModuleDevScan,
		Outputs: []domain.VariableSpec{
			{Name: "bpm1_VAL", Type: domain.VarFloat},
			{Name: "READ_ERRORS", Type: domain.VarInt},
		},
		Devices: []string{"bpm1"},
	}
	task := newTask(t, desc, reg)

	b := NewDevScan()
	ctx := context.Background()
	if err := b.Initialize(ctx, task); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := b.RunIteration(ctx, task); err != nil {
		t.Fatalf("iteration: %v", err)
	}

	val, err := task.Get("bpm1_VAL")
	if err != nil {
		t.Fatalf("read bpm1_VAL: %v", err)
	}
	if _, ok := val.(float64); !ok {
		t.Errorf("expected float sample, got %T", val)
	}
	errCount, _ := task.Get("READ_ERRORS")
	if errCount != int64(0) {
		t.Errorf("expected READ_ERRORS=0, got %v", errCount)
	}
}

// brokenSensor всегда возвращает ошибку чтения.
type brokenSensor struct{}

func (brokenSensor) Name() string  { return "broken" }
func (brokenSensor) Group() string { return "diag" }
func (brokenSensor) Read(context.Context) (float64, error) {
	return 0, errors.New("sensor offline")
}

func TestDevScan_ReadErrorsCounted(t *testing.T) {
	reg := device.NewRegistry(nil)
	if err := reg.Register("diag", "broken", func(device.Request) (device.Handle, error) {
		return brokenSensor{}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, warnings := reg.Build([]domain.DeviceSpec{
		{Name: "broken", Group: "diag", Type: "broken"},
	}); len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	desc := domain.TaskDescriptor{
		Name:   "SCAN01",
		Module: ModuleDevScan,
		Outputs: []domain.VariableSpec{
			{Name: "READ_ERRORS", Type: domain.VarInt},
		},
		Devices: []string{"broken"},
	}
	task := newTask(t, desc, reg)

	b := NewDevScan()
	ctx := context.Background()
	if err := b.Initialize(ctx, task); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	// Ошибка чтения не фатальна, но считается
	if err := b.RunIteration(ctx, task); err != nil {
		t.Fatalf("iteration: %v", err)
	}
	errCount, _ := task.Get("READ_ERRORS")
	if errCount != int64(1) {
		t.Errorf("expected READ_ERRORS=1, got %v", errCount)
	}
}

func TestDevScan_NoReadablesFailsInitialize(t *testing.T) {
	desc := domain.TaskDescriptor{
		Name:    "SCAN01",
		Module:  ModuleDevScan,
		Devices: []string{"ghost"},
	}
	task := newTask(t, desc, nil)

	b := NewDevScan()
	if err := b.Initialize(context.Background(), task); err == nil {
		t.Error("expected error when no readable devices resolved")
	}
}
