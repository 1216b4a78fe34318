package config

import (
	"testing"

	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
)

const sampleConfig = `
tasks:
  - name: MOTORS01
    module: motorwatch
    parameters:
      update_rate: 2
      motor_names: [motioc_m1, motioc_m2]
    pvs:
      outputs:
        - name: motioc_m1_POS
          type: float
          prec: 3
          unit: mm
        - name: motioc_m1_MOVING
          type: bool
          states: [Stopped, Moving]
    devices: [motioc_m1, motioc_m2]
  - name: SCAN01
    module: devscan
    mode: triggered
    parameters:
      schedule: "*/5 * * * *"
    pvs:
      inputs:
        - name: SETPOINT
          type: float
          value: 1.5
`

const sampleValues = `
beamline: sparc
namespace: test
epicsConfiguration:
  iocs:
    - name: motioc
      devgroup: mot
      devtype: tml
      iocprefix: "SPARC:MOT"
      devices:
        - name: m1
        - name: m2
    - name: oldioc
      devgroup: diag
      devtype: bpm
      disable: true
`

func TestParseTasks(t *testing.T) {
	cfg, err := ParseTasks([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	descriptors := cfg.Descriptors()
	if len(descriptors) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(descriptors))
	}

	motors := descriptors[0]
	if motors.Name != "MOTORS01" || motors.Module != "motorwatch" {
		t.Errorf("unexpected descriptor: %+v", motors)
	}
	if motors.EffectiveMode() != domain.ModeContinuous {
		t.Errorf("expected continuous mode, got %s", motors.EffectiveMode())
	}
	if rate := motors.Parameters.Float("update_rate", 0); rate != 2 {
		t.Errorf("expected update_rate=2, got %v", rate)
	}
	if names := motors.Parameters.StringSlice("motor_names"); len(names) != 2 {
		t.Errorf("expected 2 motor names, got %v", names)
	}
	if len(motors.Outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(motors.Outputs))
	}
	out := motors.Outputs[0]
	if out.Name != "motioc_m1_POS" || out.Type != domain.VarFloat || out.Precision != 3 || out.Unit != "mm" {
		t.Errorf("unexpected output spec: %+v", out)
	}

	scan := descriptors[1]
	if scan.EffectiveMode() != domain.ModeTriggered {
		t.Errorf("expected triggered mode, got %s", scan.EffectiveMode())
	}
	if len(scan.Inputs) != 1 || scan.Inputs[0].Initial != 1.5 {
		t.Errorf("unexpected inputs: %+v", scan.Inputs)
	}
	if expr := scan.Parameters.String("schedule", ""); expr != "*/5 * * * *" {
		t.Errorf("unexpected schedule: %q", expr)
	}

	// Каждый дескриптор проходит валидацию
	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			t.Errorf("descriptor %s invalid: %v", d.Name, err)
		}
	}
}

func TestParseValues(t *testing.T) {
	values, err := ParseValues([]byte(sampleValues))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if got := values.Prefix(); got != "SPARC:TEST" {
		t.Errorf("expected prefix SPARC:TEST, got %s", got)
	}

	specs := values.DeviceSpecs()
	if len(specs) != 2 {
		t.Fatalf("expected 2 device specs, got %d", len(specs))
	}

	motioc := specs[0]
	if motioc.Name != "motioc" || motioc.Group != "mot" || motioc.Type != "tml" {
		t.Errorf("unexpected spec: %+v", motioc)
	}
	if motioc.Prefix != "SPARC:MOT" {
		t.Errorf("unexpected prefix: %s", motioc.Prefix)
	}
	if len(motioc.Devices) != 2 || motioc.Devices[0].Name != "m1" {
		t.Errorf("unexpected sub-devices: %+v", motioc.Devices)
	}

	if !specs[1].Disable {
		t.Error("oldioc should be disabled")
	}
}

func TestValues_PrefixDefaults(t *testing.T) {
	var values Values
	if got := values.Prefix(); got != "BEAMLINE:DEFAULT" {
		t.Errorf("expected BEAMLINE:DEFAULT, got %s", got)
	}
}

func TestParseTasks_Invalid(t *testing.T) {
	if _, err := ParseTasks([]byte("tasks: {not: a list}")); err == nil {
		t.Error("expected parse error for malformed tasks")
	}
}
