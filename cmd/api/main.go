package main

import (
	"expvar"
	"flag"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"microvmd.zzh.net/internal/config"
	"microvmd.zzh.net/internal/logging"
	"microvmd.zzh.net/internal/vmm"
)

// appConfig is the subset of daemon configuration the request path reads.
// It is replaced wholesale on config-file reload.
type appConfig struct {
	serverAddress string
	env           string
	instanceID    string
	apiTokenHash  string
	limiter       config.RateLimiter
}

// application holds the dependencies for our HTTP handlers, helpers, and
// middleware.
type application struct {
	cfgMu    sync.RWMutex
	config   appConfig
	logger   *slog.Logger
	logLevel *slog.LevelVar
	vmm      *vmm.VMM
	diag     *diagnostics
	wg       sync.WaitGroup
}

func main() {
	var cfgPath, cfgType, cfgName string

	flag.StringVar(&cfgPath, "config-path", ".", "Directory containing the config file")
	flag.StringVar(&cfgType, "config-type", "env", "Config file type")
	flag.StringVar(&cfgName, "config-name", "microvmd", "Config file name, without extension")
	flag.Parse()

	logLevel := new(slog.LevelVar)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	v := viper.New()

	var cfg config.Config
	err := config.LoadConfig(v, cfgPath, cfgType, cfgName, &cfg)
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	logLevel.Set(logging.ParseLevel(cfg.LogLevel))

	app := &application{
		logger:   logger,
		logLevel: logLevel,
		vmm:      vmm.New(cfg.InstanceID),
		diag:     newDiagnostics(),
	}
	app.applyConfig(cfg)

	config.WatchConfig(v, func(newCfg config.Config, e fsnotify.Event) {
		app.applyConfig(newCfg)
		app.logLevel.Set(logging.ParseLevel(newCfg.LogLevel))
		logger.Info("configuration reloaded", "file", e.Name)
	})

	expvar.Publish("missed_metrics_count", app.diag.emitter.MissedVar())
	expvar.NewString("vmm_version").Set(vmm.Version)

	err = app.serve()
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

// applyConfig swaps in a freshly loaded configuration.
func (app *application) applyConfig(cfg config.Config) {
	app.cfgMu.Lock()
	defer app.cfgMu.Unlock()

	app.config = appConfig{
		serverAddress: cfg.ServerAddress,
		env:           cfg.Env,
		instanceID:    cfg.InstanceID,
		apiTokenHash:  cfg.APITokenHash,
		limiter: config.RateLimiter{
			Rps:     cfg.LimiterRPS,
			Burst:   cfg.LimiterBurst,
			Enabled: cfg.LimiterEnabled,
		},
	}
}

// getConfig returns a consistent snapshot of the current configuration.
func (app *application) getConfig() appConfig {
	app.cfgMu.RLock()
	defer app.cfgMu.RUnlock()

	return app.config
}
