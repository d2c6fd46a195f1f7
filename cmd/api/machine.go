package main

import (
	"net/http"

	"microvmd.zzh.net/internal/validator"
	"microvmd.zzh.net/internal/vmconfig"
)

func (app *application) getMachineConfigHandler(w http.ResponseWriter, r *http.Request) {
	cfg := app.vmm.MachineConfig()

	err := app.writeJSON(w, http.StatusOK, envelope{"machine_config": cfg}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) putMachineConfigHandler(w http.ResponseWriter, r *http.Request) {
	var cfg vmconfig.MachineConfig

	err := app.readJSON(w, r, &cfg)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()

	if vmconfig.ValidateMachineConfig(v, cfg); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.vmm.SetMachineConfig(cfg)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"machine_config": cfg}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
