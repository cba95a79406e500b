// Valve Bridge
//
// valvebridge pairs one valve controller (raw TCP) with one browser client
// (WebSocket). It hands out valve ids to controllers that ask for one and
// tells the browser when a controller arrives, leaves or speaks. A small
// HTTP server provides the login session, the valve list, status and
// Prometheus metrics.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nerrad567/valve-bridge/internal/api"
	"github.com/nerrad567/valve-bridge/internal/auth"
	"github.com/nerrad567/valve-bridge/internal/bridge"
	"github.com/nerrad567/valve-bridge/internal/infrastructure/config"
	"github.com/nerrad567/valve-bridge/internal/infrastructure/database"
	"github.com/nerrad567/valve-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/valve-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/valve-bridge/internal/infrastructure/metrics"
	"github.com/nerrad567/valve-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/valve-bridge/internal/transport"
	"github.com/nerrad567/valve-bridge/internal/ui"
	"github.com/nerrad567/valve-bridge/internal/valve"
	"github.com/nerrad567/valve-bridge/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// defaultConfigPath is read when present; without it defaults and
// environment variables apply.
const defaultConfigPath = "configs/config.yaml"

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default $VALVEBRIDGE_CONFIG or "+defaultConfigPath+" if present)")
	hash := flag.Bool("hash-password", false, "read a password from stdin, print its argon2id hash for the users file and exit")
	flag.Parse()

	if *hash {
		if err := hashPassword(os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, resolveConfigPath(*configPath)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context, configPath string) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting valve bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	checks := make(map[string]api.HealthChecker)

	// Valve store and registry
	store, closeStore, err := openValveStore(ctx, cfg, log, checks)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := valve.NewRegistry(store)
	registry.SetLogger(log.With("component", "valves"))
	log.Info("valve registry loaded",
		"backend", cfg.Store.Backend,
		"valves", registry.Load(ctx),
	)

	promMetrics := metrics.New(registry.Count)
	observers := []bridge.Observer{promMetrics}

	// MQTT (optional)
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log.With("component", "mqtt"))
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT connected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"topic_prefix", mqttClient.Topics().Prefix(),
		)

		observers = append(observers, newMQTTObserver(mqttClient, mqttClient.Topics(), log.With("component", "mqtt")))
		checks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		observers = append(observers, newInfluxObserver(influxClient))
		checks["influxdb"] = influxClient
	}

	// Login sessions
	if cfg.Auth.JWT.Secret == "" {
		log.Warn("no JWT secret configured, generating one; sessions end on restart")
	}
	sessions, err := auth.NewSessions(auth.Config{
		UsersFile: cfg.Auth.UsersFile,
		Secret:    cfg.Auth.JWT.Secret,
		TokenTTL:  time.Duration(cfg.Auth.JWT.TokenTTL) * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("creating sessions: %w", err)
	}
	sessions.SetLogger(log.With("component", "auth"))

	// Listeners
	deviceServer := transport.NewDeviceServer(transport.DeviceServerConfig{
		Addr:           cfg.DeviceAddr(),
		KeepAlive:      cfg.GetKeepAliveInterval(),
		WriteTimeout:   time.Duration(cfg.Device.WriteTimeout) * time.Second,
		MaxMessageSize: cfg.Device.MaxMessageSize,
	})
	deviceServer.SetLogger(log.With("component", "device"))

	clientServer := transport.NewClientServer(transport.ClientServerConfig{
		Addr:           cfg.ClientAddr(),
		Path:           cfg.Client.Path,
		MaxMessageSize: int64(cfg.Client.MaxMessageSize),
		PingInterval:   time.Duration(cfg.Client.PingInterval) * time.Second,
		PongTimeout:    time.Duration(cfg.Client.PongTimeout) * time.Second,
	})
	clientServer.SetLogger(log.With("component", "client"))

	if err := deviceServer.Start(ctx); err != nil {
		return fmt.Errorf("starting device listener: %w", err)
	}
	defer deviceServer.Close() //nolint:errcheck // Idempotent; errors logged on the ordered path

	if err := clientServer.Start(ctx); err != nil {
		return fmt.Errorf("starting client listener: %w", err)
	}
	defer clientServer.Close() //nolint:errcheck // Idempotent; errors logged on the ordered path

	// Bridge loop. It runs until both event channels are closed, so it
	// sees every event the listeners emit during shutdown.
	b := bridge.New(bridge.Options{
		Valves:         registry,
		Logger:         log.With("component", "bridge"),
		ForwardRawText: cfg.Bridge.ForwardRawText,
		Observers:      observers,
	})
	bridgeDone := make(chan struct{})
	go func() {
		defer close(bridgeDone)
		b.Run(context.WithoutCancel(ctx), deviceServer.Events(), clientServer.Events())
	}()

	// HTTP surface
	apiServer, err := api.New(api.Deps{
		Config:    cfg.HTTP,
		RateLimit: cfg.Auth.RateLimit,
		Logger:    log.With("component", "api"),
		Sessions:  sessions,
		Valves:    registry,
		Bridge:    b,
		Metrics:   promMetrics.Handler(),
		UI:        ui.Handler(cfg.HTTP.StaticDir),
		Checks:    checks,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer apiServer.Close() //nolint:errcheck // Idempotent; errors logged on the ordered path

	log.Info("initialisation complete, waiting for shutdown signal",
		"device_address", deviceServer.Addr().String(),
		"client_address", clientServer.Addr().String(),
		"http_address", apiServer.Addr().String(),
	)

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Ordered shutdown: HTTP, listeners, bridge loop. Deferred calls then
	// close InfluxDB, MQTT and the valve store in reverse order.
	if err := apiServer.Close(); err != nil {
		log.Error("error closing API server", "error", err)
	}
	if err := deviceServer.Close(); err != nil {
		log.Error("error closing device listener", "error", err)
	}
	if err := clientServer.Close(); err != nil {
		log.Error("error closing client listener", "error", err)
	}
	<-bridgeDone

	log.Info("valve bridge stopped")
	return nil
}

// openValveStore builds the configured store. The returned close function
// is always safe to call. The sqlite backend registers its health check.
func openValveStore(ctx context.Context, cfg *config.Config, log *logging.Logger, checks map[string]api.HealthChecker) (valve.Store, func(), error) {
	if cfg.Store.Backend != config.StoreBackendSQLite {
		log.Info("using JSON valve store", "path", cfg.Store.Path)
		return valve.NewFileStore(cfg.Store.Path), func() {}, nil
	}

	db, err := database.Open(database.Config{
		Path:        cfg.Store.Database.Path,
		WALMode:     cfg.Store.Database.WALMode,
		BusyTimeout: cfg.Store.Database.BusyTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	closeDB := func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}

	if err := db.Migrate(ctx, migrations.FS); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path())

	checks["database"] = db
	return valve.NewSQLiteStore(db.DB), closeDB, nil
}

// resolveConfigPath picks the config file: the flag, then
// VALVEBRIDGE_CONFIG, then defaultConfigPath when it exists. An empty
// result means defaults and environment only.
func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if path := os.Getenv("VALVEBRIDGE_CONFIG"); path != "" {
		return path
	}
	if _, err := os.Stat(defaultConfigPath); err == nil {
		return defaultConfigPath
	}
	return ""
}

// hashPassword reads one line from r and writes its argon2id hash to w.
func hashPassword(r io.Reader, w io.Writer) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return fmt.Errorf("empty password")
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, hashed)
	return err
}
