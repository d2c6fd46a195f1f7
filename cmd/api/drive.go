package main

import (
	"errors"
	"net/http"

	"microvmd.zzh.net/internal/validator"
	"microvmd.zzh.net/internal/vmconfig"
	"microvmd.zzh.net/internal/vmm"
)

func (app *application) putDriveHandler(w http.ResponseWriter, r *http.Request) {
	id := app.readIDParam(r)

	var cfg vmconfig.DriveConfig

	err := app.readJSON(w, r, &cfg)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()

	vmconfig.ValidateDrive(v, cfg)
	v.Check(cfg.DriveID == id, "drive_id", "must match the id in the URL")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.vmm.UpsertDrive(cfg)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusCreated, envelope{"drive": cfg}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// patchDriveHandler updates a drive's rate limiter while the microVM is
// running. The patch merges per axis: a present bucket replaces the stored
// one wholesale, an absent bucket is left as it was.
func (app *application) patchDriveHandler(w http.ResponseWriter, r *http.Request) {
	id := app.readIDParam(r)

	var input struct {
		DriveID     string                      `json:"drive_id"`
		RateLimiter *vmconfig.RateLimiterConfig `json:"rate_limiter"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()

	v.Check(input.DriveID == "" || input.DriveID == id, "drive_id", "must match the id in the URL")
	v.Check(input.RateLimiter != nil, "rate_limiter", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err = app.vmm.PatchDriveRateLimiter(id, *input.RateLimiter)
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

	drive, err := app.vmm.Drive(id)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"drive": drive.Config}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
