package main

import (
	"net/http"

	"microvmd.zzh.net/internal/validator"
	"microvmd.zzh.net/internal/vmconfig"
)

func (app *application) putVsockHandler(w http.ResponseWriter, r *http.Request) {
	var cfg vmconfig.VsockDeviceConfig

	err := app.readJSON(w, r, &cfg)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()

	if vmconfig.ValidateVsockDevice(v, cfg); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.vmm.SetVsock(cfg)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"vsock": cfg}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
