package main

import (
	"net/http"

	"microvmd.zzh.net/internal/validator"
	"microvmd.zzh.net/internal/vmconfig"
)

func (app *application) putBootSourceHandler(w http.ResponseWriter, r *http.Request) {
	var cfg vmconfig.BootSourceConfig

	err := app.readJSON(w, r, &cfg)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()

	if vmconfig.ValidateBootSource(v, cfg); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.vmm.SetBootSource(cfg)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"boot_source": cfg}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
