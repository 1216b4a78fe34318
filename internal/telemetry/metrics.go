package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики контроллера. Регистрируются в default registry и
// экспортируются через promhttp в основном бинаре.
var (
	// TaskTransitions — переходы состояний задач.
	TaskTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beamline_task_state_transitions_total",
		Help: "Number of task state machine transitions.",
	}, []string{"task", "state"})

	// TaskCycles — выполненные итерации задач.
	TaskCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beamline_task_cycles_total",
		Help: "Number of executed task iterations.",
	}, []string{"task"})

	// TaskFaults — сбои задач по фазам (initialize/run/cleanup).
	TaskFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beamline_task_faults_total",
		Help: "Number of contained task faults.",
	}, []string{"task", "phase"})

	// ExternalWrites — внешние записи переменных, доставленные задачам.
	ExternalWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "beamline_pv_external_writes_total",
		Help: "Number of external variable writes routed to tasks.",
	}, []string{"task"})

	// PublishedUpdates — значения переменных, отправленные наружу.
	PublishedUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beamline_pv_updates_published_total",
		Help: "Number of variable updates pushed to the publisher.",
	})

	// DeviceWarnings — предупреждения при построении реестра устройств.
	DeviceWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "beamline_device_build_warnings_total",
		Help: "Number of device construction warnings.",
	})
)
