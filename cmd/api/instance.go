package main

import (
	"errors"
	"net/http"
	"time"

	"microvmd.zzh.net/internal/logging"
	"microvmd.zzh.net/internal/validator"
	"microvmd.zzh.net/internal/vmm"
)

func (app *application) instanceInfoHandler(w http.ResponseWriter, r *http.Request) {
	err := app.writeJSON(w, http.StatusOK, envelope{"instance": app.vmm.Info()}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) actionsHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ActionType string `json:"action_type"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()

	v.Check(validator.PermittedValue(input.ActionType, "InstanceStart", "FlushMetrics"),
		"action_type", "invalid action type")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	switch input.ActionType {
	case "InstanceStart":
		err = app.vmm.Start()
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		app.diagLog().Info("instance started", "id", app.getConfig().instanceID)

		// Emit a first metrics record for the boot, if a destination has
		// been configured.
		app.background(func() {
			err := app.flushMetrics()
			if err != nil && !errors.Is(err, logging.ErrNotConfigured) {
				app.logger.Error(err.Error())
			}
		})

	case "FlushMetrics":
		err = app.flushMetrics()
		if err != nil {
			switch {
			case errors.Is(err, logging.ErrNotConfigured):
				app.badRequestResponse(w, r, err)
			default:
				// Includes the would-block condition: the record was dropped
				// and counted, and the client is told the flush failed.
				app.serverErrorResponse(w, r, err)
			}
			return
		}
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"action": input.ActionType}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// flushMetrics emits one metrics record through the configured FIFO.
func (app *application) flushMetrics() error {
	record := envelope{
		"utc_timestamp_ms":     time.Now().UnixMilli(),
		"instance_id":          app.getConfig().instanceID,
		"vmm_version":          vmm.Version,
		"requests_received":    totalRequestsReceived.Value(),
		"responses_sent":       totalResponsesSent.Value(),
		"missed_metrics_count": app.diag.emitter.Missed(),
	}

	return app.diag.emitter.Emit(record)
}
