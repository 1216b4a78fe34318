// Beamline Controller — выполняет задачи управления beamline.
//
// Контроллер:
//   - Загружает дескрипторы задач из config.yaml и устройства из values.yaml
//   - Запускает каждую задачу в собственной горутине
//   - Публикует переменные задач в RabbitMQ и принимает внешние записи
//   - Журналирует события жизненного цикла в PostgreSQL (опционально)
//
// Использование:
//
//	beamline-controller --config config.yaml --values values.yaml
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/infn-epics/epik8s-beamline-controller/internal/bus"
	"github.com/infn-epics/epik8s-beamline-controller/internal/config"
	"github.com/infn-epics/epik8s-beamline-controller/internal/device"
	"github.com/infn-epics/epik8s-beamline-controller/internal/device/sim"
	"github.com/infn-epics/epik8s-beamline-controller/internal/domain"
	"github.com/infn-epics/epik8s-beamline-controller/internal/orchestrator"
	"github.com/infn-epics/epik8s-beamline-controller/internal/pv"
	"github.com/infn-epics/epik8s-beamline-controller/internal/repo"
	"github.com/infn-epics/epik8s-beamline-controller/internal/runtime"
	"github.com/infn-epics/epik8s-beamline-controller/internal/scheduler"
	"github.com/infn-epics/epik8s-beamline-controller/internal/tasks"
	"github.com/infn-epics/epik8s-beamline-controller/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	var configPath string
	var valuesPath string
	var port string

	rootCmd := &cobra.Command{
		Use:           "beamline-controller",
		Short:         "Beamline Controller — task orchestration for beamline instruments",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), configPath, valuesPath, port)
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "config.yaml", "Path to task configuration")
	rootCmd.Flags().StringVar(&valuesPath, "values", "values.yaml", "Path to beamline values")
	rootCmd.Flags().StringVar(&port, "port", "8090", "HTTP port for /metrics and /healthz")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, valuesPath, port string) error {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting beamline-controller", "version", version)

	// Конфигурация
	cfg, err := config.LoadTasks(configPath)
	if err != nil {
		return err
	}
	values, err := config.LoadValues(valuesPath)
	if err != nil {
		return err
	}
	logger.Info("configuration loaded",
		"tasks", len(cfg.Tasks),
		"iocs", len(values.DeviceSpecs()),
		"prefix", values.Prefix(),
	)

	// PostgreSQL — журнал событий (опционально)
	var events runtime.EventSink
	var eventRepo *repo.EventRepo
	if os.Getenv("DB_URL") != "" {
		pool, err := repo.NewPool(ctx)
		if err != nil {
			logger.Warn("database not available, event journal disabled", "error", err)
		} else {
			defer pool.Close()
			eventRepo = repo.NewEventRepo(pool, logger)
			events = eventRepo
			logger.Info("database connected")
		}
	}

	// Реестр устройств
	devices := device.NewRegistry(logger)
	if err := sim.Register(devices); err != nil {
		return fmt.Errorf("register sim devices: %w", err)
	}
	_, warnings := devices.Build(values.DeviceSpecs())
	for _, w := range warnings {
		logger.Warn("device build warning", "warning", w.String())
		telemetry.DeviceWarnings.Inc()
		if eventRepo != nil {
			eventRepo.RecordDeviceWarning(ctx, w.Device, w.String())
		}
	}
	logger.Info("device registry built", "devices", devices.Len(), "warnings", len(warnings))

	// Реестр поведений
	behaviors := runtime.NewRegistry()
	if err := tasks.RegisterAll(behaviors); err != nil {
		return fmt.Errorf("register behaviors: %w", err)
	}

	// RabbitMQ — публикация переменных и внешние записи (опционально)
	var publisher *bus.Publisher
	var busConn *bus.Connection
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL != "" {
		busConn, err = bus.NewConnection(mqURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, running standalone", "error", err)
			busConn = nil
		} else {
			defer busConn.Close()
			logger.Info("RabbitMQ connected")

			if err := bus.SetupTopology(ctx, busConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			publisher = bus.NewPublisher(busConn, values.Prefix(), logger)
		}
	}

	// Оркестратор
	orch := orchestrator.New(orchestrator.Config{
		Devices:   devices,
		Behaviors: behaviors,
		Publisher: publisherOrNil(publisher),
		Events:    events,
		Logger:    logger,
	})

	failures, err := orch.LoadAll(ctx, cfg.Descriptors())
	if err != nil {
		return err
	}
	for _, f := range failures {
		logger.Error("task load failed", "task", f.Task, "error", f.Err)
	}

	if err := orch.StartAll(ctx); err != nil {
		return err
	}

	// Потребитель внешних записей
	if busConn != nil {
		consumer := bus.NewWriteConsumer(busConn, logger, bus.WriteConsumerConfig{
			Route:  orch.ExternalWrite,
			Prefix: values.Prefix(),
		})
		go func() {
			if err := consumer.Start(ctx); err != nil {
				logger.Error("write consumer stopped", "error", err)
			}
		}()
		defer consumer.Stop()
	}

	// Планировщик триггеров для триггерных задач с расписанием
	sched := scheduler.New(scheduler.Config{
		Trigger: orch.ExternalWrite,
		Logger:  logger,
	})
	for _, desc := range cfg.Descriptors() {
		if desc.EffectiveMode() != domain.ModeTriggered {
			continue
		}
		expr := desc.Parameters.String("schedule", "")
		if expr == "" {
			continue
		}
		if err := sched.Add(desc.Name, expr); err != nil {
			logger.Error("invalid schedule", "task", desc.Name, "error", err)
		}
	}
	if sched.Len() > 0 {
		sched.Start(ctx)
		defer sched.Stop()
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	if v := os.Getenv("CONTROLLER_PORT"); v != "" {
		port = v
	}
	go func() {
		logger.Info("listening", "addr", ":"+port)
		if err := http.ListenAndServe(":"+port, mux); err != nil {
			logger.Error("http server error", "error", err)
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutdown requested")

	// Останавливаем задачи с таймаутом; зависшие финализируются принудительно
	stopCtx := context.Background()
	if timedOut := orch.StopAll(stopCtx, shutdownTimeout); len(timedOut) > 0 {
		logger.Warn("tasks force-finalized after timeout", "tasks", timedOut)
	}
	logger.Info("beamline-controller stopped")
	return nil
}

// publisherOrNil возвращает typed-nil-безопасный pv.Publisher.
func publisherOrNil(p *bus.Publisher) pv.Publisher {
	if p == nil {
		return nil
	}
	return p
}
