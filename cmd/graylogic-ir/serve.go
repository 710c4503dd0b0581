package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/gray-logic-ir/internal/api"
	"github.com/nerrad567/gray-logic-ir/internal/audit"
	"github.com/nerrad567/gray-logic-ir/internal/bus"
	"github.com/nerrad567/gray-logic-ir/internal/capture"
	"github.com/nerrad567/gray-logic-ir/internal/command"
	"github.com/nerrad567/gray-logic-ir/internal/dispatch"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-ir/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-ir/internal/kvstore"
	"github.com/nerrad567/gray-logic-ir/internal/playback"
	"github.com/nerrad567/gray-logic-ir/internal/provisioning"
	"github.com/nerrad567/gray-logic-ir/internal/scheduler"
	"github.com/nerrad567/gray-logic-ir/internal/timing"
	"github.com/nerrad567/gray-logic-ir/internal/transceiver"
	"github.com/nerrad567/gray-logic-ir/migrations"
)

// errRestart tells main to re-execute the binary.
var errRestart = errors.New("restart requested")

const schedulerStopTimeout = 5 * time.Second

// serveCmd runs the bridge until interrupted.
func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the IR bridge",
		Action: func(c *cli.Context) error {
			log := logging.Default()
			log.Info("starting graylogic-ir",
				"version", version,
				"commit", commit,
				"build_date", date,
			)

			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			log.Info("configuration loaded", "path", c.String("config"))

			log = logging.New(cfg.Logging, version)
			log.Info("logger initialised",
				"level", cfg.Logging.Level,
				"format", cfg.Logging.Format,
			)

			return serve(c.Context, cfg, log)
		},
	}
}

// serve wires the stack and blocks until ctx ends or a reset asks for a
// restart.
//
// Parameters:
//   - parent: Cancelled on SIGINT/SIGTERM
//   - cfg: Validated configuration
//   - log: Configured logger
//
// Returns:
//   - error: errRestart after a reset, nil on clean shutdown, or a startup failure
func serve(parent context.Context, cfg *config.Config, log *logging.Logger) error {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS()); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	kv := kvstore.NewSQLite(db)
	store := command.NewStore(kv)
	store.SetLogger(log)
	if loadErr := store.Load(ctx); loadErr != nil {
		return fmt.Errorf("loading commands: %w", loadErr)
	}
	log.Info("command store loaded", "commands", store.Len())

	creds := provisioning.NewStore(kv)
	if c, credErr := creds.Load(ctx); credErr != nil {
		log.Warn("reading network credentials", "error", credErr)
	} else {
		log.Info("network credentials", "configured", c.Configured, "ssid", c.SSID)
	}

	dev, err := transceiver.Open(cfg.IR)
	if err != nil {
		return fmt.Errorf("opening transceiver: %w", err)
	}
	defer func() {
		if closeErr := dev.Close(); closeErr != nil {
			log.Error("error closing transceiver", "error", closeErr)
		}
	}()
	log.Info("transceiver opened", "driver", cfg.IR.Driver, "rx", cfg.IR.RXDevice, "tx", cfg.IR.TXDevice)

	guard := &transceiver.Guard{}
	learner := capture.NewEngine(dev, guard, store, timing.FromConfig(cfg.IR.Timing), nil)
	learner.SetLogger(log)
	sender := playback.NewEngine(dev, guard, store, playback.OptionsFromConfig(cfg.IR))

	recorder := audit.NewRecorder(audit.NewSQLiteRepository(db.DB), log)
	// Stopped explicitly so events emitted during shutdown are still written.
	recorder.Start(context.WithoutCancel(ctx))
	defer recorder.Stop()
	notifiers := []dispatch.Notifier{recorder}

	var hub *api.Hub
	if cfg.API.Enabled {
		hub = api.NewHub(cfg.WebSocket, log)
		notifiers = append(notifiers, hub)
	}

	influxClient, err := connectInflux(cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		notifiers = append(notifiers, outcomeRecorder{client: influxClient, deviceID: cfg.Site.DeviceID})
	}

	mqttClient, err := connectMQTT(cfg, log)
	if err != nil {
		return err
	}
	var mqttBus *bus.Bus
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		// mqttBus is assigned before the dispatcher loop starts emitting.
		notifiers = append(notifiers, dispatch.NotifierFunc(func(ev dispatch.Event) {
			mqttBus.Notify(ev)
		}))
	}

	disp := dispatch.New(dispatch.Deps{
		Store:           store,
		Capture:         learner,
		Playback:        sender,
		Credentials:     creds,
		Restarter:       provisioning.NewRestarter(cancel, provisioning.DefaultRestartDelay),
		Notifiers:       notifiers,
		Logger:          log,
		PollInterval:    cfg.IR.PollInterval(),
		LearnTimeout:    cfg.IR.LearnTimeout(),
		MaxLearnTimeout: cfg.IR.MaxLearnTimeout(),
	})

	if mqttClient != nil {
		mqttBus = bus.New(bus.Options{
			Client:     mqttClient,
			Topics:     mqttClient.Topics(),
			Dispatcher: disp,
			QoS:        mqttClient.QoS(),
			Logger:     log,
		})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return disp.Run(gctx)
	})

	if mqttBus != nil {
		if startErr := mqttBus.Start(gctx); startErr != nil {
			cancel(startErr)
			_ = g.Wait()
			return fmt.Errorf("starting MQTT bus: %w", startErr)
		}
		defer mqttBus.Stop()

		reporter := bus.NewHealthReporter(bus.HealthReporterConfig{
			DeviceID:  cfg.Site.DeviceID,
			Version:   version,
			Topic:     mqttClient.Topics().Health(),
			Interval:  time.Duration(cfg.MQTT.HealthInterval) * time.Second,
			Publisher: mqttClient,
			State:     disp,
		})
		reporter.SetLogger(log)
		if pubErr := reporter.PublishStarting(); pubErr != nil {
			log.Warn("publishing starting health", "error", pubErr)
		}
		reporter.Start(gctx)
		defer reporter.Stop()
	}

	if cfg.API.Enabled {
		srv, apiErr := startAPI(gctx, cfg, log, disp, hub, dev)
		if apiErr != nil {
			cancel(apiErr)
			_ = g.Wait()
			return apiErr
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	if len(cfg.Schedules) > 0 {
		sched := scheduler.New(disp, log)
		if addErr := sched.AddAll(cfg.Schedules); addErr != nil {
			cancel(addErr)
			_ = g.Wait()
			return fmt.Errorf("loading schedules: %w", addErr)
		}
		sched.Start()
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), schedulerStopTimeout)
			defer stopCancel()
			sched.Stop(stopCtx)
		}()
	}

	if checkErr := healthCheck(gctx, db, mqttClient, influxClient); checkErr != nil {
		cancel(checkErr)
		_ = g.Wait()
		return fmt.Errorf("health check failed: %w", checkErr)
	}
	log.Info("all health checks passed")
	log.Info("initialisation complete, waiting for shutdown signal")

	if waitErr := g.Wait(); waitErr != nil {
		return waitErr
	}

	if provisioning.IsRestart(ctx) {
		log.Info("restarting after reset")
		return errRestart
	}
	log.Info("shutdown signal received, cleaning up")
	return nil
}

// connectInflux returns nil when InfluxDB is disabled.
func connectInflux(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	if !cfg.InfluxDB.Enabled {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	client, err := influxdb.Connect(cfg.InfluxDB)
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// connectMQTT returns nil when MQTT is disabled.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}
	client, err := mqtt.Connect(cfg.MQTT, mqtt.NewTopics(cfg.Site.DeviceID))
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetLogger(log)
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"base_topic", client.Topics().Base(),
	)
	return client, nil
}

// startAPI binds the HTTP surface. The frame injection endpoint is only
// mounted for the simulated driver.
func startAPI(ctx context.Context, cfg *config.Config, log *logging.Logger, disp *dispatch.Dispatcher, hub *api.Hub, dev transceiver.Device) (*api.Server, error) {
	var injector api.FrameInjector
	if sim, ok := dev.(*transceiver.Simulated); ok {
		injector = sim
		log.Warn("simulated transceiver: frame injection endpoint enabled")
	}

	srv, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Logger:     log,
		Dispatcher: disp,
		Hub:        hub,
		Injector:   injector,
		Version:    version,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting API server: %w", err)
	}
	return srv, nil
}

// healthCheck verifies the infrastructure connections.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check (nil if disabled)
//   - influxClient: InfluxDB client to check (nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}
