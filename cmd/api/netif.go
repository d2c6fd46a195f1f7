package main

import (
	"errors"
	"net/http"

	"microvmd.zzh.net/internal/validator"
	"microvmd.zzh.net/internal/vmconfig"
	"microvmd.zzh.net/internal/vmm"
)

func (app *application) putNetworkInterfaceHandler(w http.ResponseWriter, r *http.Request) {
	id := app.readIDParam(r)

	var cfg vmconfig.NetworkInterfaceConfig

	err := app.readJSON(w, r, &cfg)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()

	vmconfig.ValidateNetworkInterface(v, cfg)
	v.Check(cfg.IfaceID == id, "iface_id", "must match the id in the URL")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.vmm.UpsertNetworkInterface(cfg)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"network_interface": cfg}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// patchNetworkInterfaceHandler updates a device's rx and/or tx rate
// limiters while the microVM is running, with the same per-axis merge
// semantics as drives.
func (app *application) patchNetworkInterfaceHandler(w http.ResponseWriter, r *http.Request) {
	id := app.readIDParam(r)

	var input struct {
		IfaceID       string                      `json:"iface_id"`
		RxRateLimiter *vmconfig.RateLimiterConfig `json:"rx_rate_limiter"`
		TxRateLimiter *vmconfig.RateLimiterConfig `json:"tx_rate_limiter"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()

	v.Check(input.IfaceID == "" || input.IfaceID == id, "iface_id", "must match the id in the URL")
	v.Check(input.RxRateLimiter != nil || input.TxRateLimiter != nil,
		"rate_limiter", "at least one of rx_rate_limiter and tx_rate_limiter must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.vmm.PatchNetworkInterfaceRateLimiters(id, input.RxRateLimiter, input.TxRateLimiter)
	if err != nil {
		switch {
		case errors.Is(err, vmm.ErrNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, vmm.ErrNotRunning):
			app.badRequestResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	netif, err := app.vmm.NetworkInterface(id)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"network_interface": netif.Config}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
