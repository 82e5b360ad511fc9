// Package main is the entry point for the alpaca-console service.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/openskies/alpaca-console/internal/api"
	"github.com/openskies/alpaca-console/internal/config"
	"github.com/openskies/alpaca-console/internal/controller"
	"github.com/openskies/alpaca-console/internal/events"
	"github.com/openskies/alpaca-console/internal/store"
	"github.com/openskies/alpaca-console/pkg/healthcheck"
	"github.com/openskies/alpaca-console/pkg/mqtt"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file (optional)")
	listenAddress := flag.String("listen", "", "Override HTTP listen address")
	logLevel := flag.String("log-level", "", "Override log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}
	if *listenAddress != "" {
		cfg.Server.ListenAddress = *listenAddress
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer logger.Sync()

	logger.Info("Starting alpaca-console",
		zap.String("listen_address", cfg.Server.ListenAddress),
		zap.String("store_path", cfg.Store.Path),
		zap.Bool("mqtt_enabled", cfg.MQTT.Enabled))

	bus := events.NewBus(logger)
	ctrl := controller.New(bus, logger,
		controller.WithDefaultPollInterval(cfg.Controller.PollInterval))

	var st *store.Store
	if cfg.Store.Path != "" {
		st, err = store.Open(cfg.Store.Path, logger)
		if err != nil {
			logger.Fatal("Failed to open device store", zap.Error(err))
		}
		defer st.Close()

		records, err := st.ListDevices()
		if err != nil {
			logger.Fatal("Failed to load persisted devices", zap.Error(err))
		}
		for _, record := range records {
			if err := ctrl.AddDevice(record.Device()); err != nil {
				logger.Warn("Skipping persisted device",
					zap.String("device_id", record.ID),
					zap.Error(err))
			}
		}
		logger.Info("Restored persisted devices", zap.Int("count", len(records)))
	}

	if cfg.MQTT.Enabled {
		mqttClient, err := mqtt.NewClient(&cfg.MQTT.Config, logger)
		if err != nil {
			logger.Fatal("Failed to create MQTT client", zap.Error(err))
		}
		if err := mqttClient.Connect(); err != nil {
			logger.Fatal("Failed to connect to MQTT broker", zap.Error(err))
		}
		defer mqttClient.Disconnect()

		bridge := events.NewMQTTBridge(bus, mqttClient, "alpaca-console", logger)
		defer bridge.Close()
	}

	health := healthcheck.NewEngine(logger)
	health.Register(ctrl)

	server := api.NewServer(cfg.Server, ctrl, st, bus, health, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
		os.Exit(1)
	}
}

// buildLogger creates the process logger from the logging config.
func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = level

	return zapCfg.Build()
}
