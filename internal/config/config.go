package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
)

// Tasks — содержимое config.yaml.
type Tasks struct {
	Tasks []TaskEntry `yaml:"tasks"`
}

// TaskEntry — одна задача в config.yaml.
//
// Переменные объявляются в блоке pvs, как в конфигурации beamline:
//
//	tasks:
//	  - name: SCAN01
//	    module: devscan
//	    mode: triggered
//	    parameters:
//	      update_rate: 2
//	    pvs:
//	      inputs:
//	        - {name: SETPOINT, type: float, value: 0.0}
//	      outputs:
//	        - {name: READBACK, type: float, prec: 3}
//	    devices: [motor_m1]
type TaskEntry struct {
	Name       string        `yaml:"name"`
	Module     string        `yaml:"module"`
	Mode       string        `yaml:"mode"`
	Parameters domain.Params `yaml:"parameters"`
	PVs        struct {
		Inputs  []domain.VariableSpec `yaml:"inputs"`
		Outputs []domain.VariableSpec `yaml:"outputs"`
	} `yaml:"pvs"`
	Devices []string `yaml:"devices"`
}

// Descriptor собирает TaskDescriptor из записи конфигурации.
func (e *TaskEntry) Descriptor() domain.TaskDescriptor {
	return domain.TaskDescriptor{
		Name:       e.Name,
		Module:     e.Module,
		Mode:       domain.TaskMode(e.Mode),
		Parameters: e.Parameters,
		Inputs:     e.PVs.Inputs,
		Outputs:    e.PVs.Outputs,
		Devices:    e.Devices,
	}
}

// Values — содержимое values.yaml (конфигурация beamline).
type Values struct {
	Beamline  string `yaml:"beamline"`
	Namespace string `yaml:"namespace"`

	EPICSConfiguration struct {
		IOCs []domain.DeviceSpec `yaml:"iocs"`
	} `yaml:"epicsConfiguration"`
}

// Prefix возвращает пару {BEAMLINE}:{NAMESPACE} для внешних имён переменных.
// Имена приводятся к верхнему регистру; пустые поля получают значения
// по умолчанию BEAMLINE и DEFAULT.
func (v *Values) Prefix() string {
	beamline := v.Beamline
	if beamline == "" {
		beamline = "BEAMLINE"
	}
	namespace := v.Namespace
	if namespace == "" {
		namespace = "DEFAULT"
	}
	return strings.ToUpper(beamline) + ":" + strings.ToUpper(namespace)
}

// LoadTasks читает и парсит config.yaml.
func LoadTasks(path string) (*Tasks, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseTasks(data)
}

// ParseTasks парсит содержимое config.yaml.
func ParseTasks(data []byte) (*Tasks, error) {
	var cfg Tasks
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Descriptors возвращает дескрипторы всех задач конфигурации.
func (t *Tasks) Descriptors() []domain.TaskDescriptor {
	descriptors := make([]domain.TaskDescriptor, 0, len(t.Tasks))
	for i := range t.Tasks {
		descriptors = append(descriptors, t.Tasks[i].Descriptor())
	}
	return descriptors
}

// LoadValues читает и парсит values.yaml.
func LoadValues(path string) (*Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read values: %w", err)
	}
	return ParseValues(data)
}

// ParseValues парсит содержимое values.yaml.
func ParseValues(data []byte) (*Values, error) {
	var values Values
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse values: %w", err)
	}
	return &values, nil
}

// DeviceSpecs возвращает описания устройств из epicsConfiguration.iocs.
func (v *Values) DeviceSpecs() []domain.DeviceSpec {
	return v.EPICSConfiguration.IOCs
}
