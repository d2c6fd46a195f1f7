package main

import (
	"log/slog"
	"net/http"
	"sync"

	"microvmd.zzh.net/internal/logging"
	"microvmd.zzh.net/internal/validator"
	"microvmd.zzh.net/internal/vmconfig"
)

// diagnostics owns the monitor's FIFO-backed output channels: the
// structured log destination set by PUT /logger and the metrics emitter
// fed by PUT /metrics.
type diagnostics struct {
	mu      sync.Mutex
	logDest *logging.Writer
	pipeLog *slog.Logger
	emitter *logging.Emitter
}

func newDiagnostics() *diagnostics {
	return &diagnostics{
		emitter: logging.NewEmitter(),
	}
}

// setLogDestination replaces the log FIFO writer, closing the previous one.
func (d *diagnostics) setLogDestination(w *logging.Writer, level *slog.LevelVar) *slog.Logger {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.logDest != nil {
		d.logDest.Close()
	}
	d.logDest = w
	d.pipeLog = logging.NewPipeLogger(w, level)

	return d.pipeLog
}

// logger returns the FIFO-backed logger, or nil if none is configured.
func (d *diagnostics) logger() *slog.Logger {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.pipeLog
}

// close releases the diagnostic writers on shutdown.
func (d *diagnostics) close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.logDest != nil {
		d.logDest.Close()
		d.logDest = nil
		d.pipeLog = nil
	}
	d.emitter.SetDestination(nil)
}

// diagLog returns the logger VMM lifecycle events should go to: the FIFO
// logger once PUT /logger has configured one, the process logger before.
func (app *application) diagLog() *slog.Logger {
	if pl := app.diag.logger(); pl != nil {
		return pl
	}
	return app.logger
}

func (app *application) putLoggerHandler(w http.ResponseWriter, r *http.Request) {
	var cfg vmconfig.LoggerConfig

	err := app.readJSON(w, r, &cfg)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()

	if vmconfig.ValidateLogger(v, cfg); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	// Construction failure (missing FIFO, wrong type, permissions) aborts
	// the apply; the previous destination, if any, stays in place.
	dest, err := logging.NewWriter(cfg.LogPath)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if cfg.Level != "" {
		app.logLevel.Set(logging.ParseLevel(cfg.Level))
	}

	pipeLog := app.diag.setLogDestination(dest, app.logLevel)
	pipeLog.Info("logger initialized", "instance_id", app.getConfig().instanceID)

	err = app.writeJSON(w, http.StatusCreated, envelope{"logger": cfg}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) putMetricsHandler(w http.ResponseWriter, r *http.Request) {
	var cfg vmconfig.MetricsConfig

	err := app.readJSON(w, r, &cfg)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()

	if vmconfig.ValidateMetrics(v, cfg); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	dest, err := logging.NewWriter(cfg.MetricsPath)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	app.diag.emitter.SetDestination(dest)

	err = app.writeJSON(w, http.StatusCreated, envelope{"metrics": cfg}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
