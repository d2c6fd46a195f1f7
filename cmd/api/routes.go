package main

import (
	"expvar"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/", app.instanceInfoHandler)
	router.HandlerFunc(http.MethodPut, "/actions", app.actionsHandler)

	router.HandlerFunc(http.MethodPut, "/boot-source", app.putBootSourceHandler)

	router.HandlerFunc(http.MethodGet, "/machine-config", app.getMachineConfigHandler)
	router.HandlerFunc(http.MethodPut, "/machine-config", app.putMachineConfigHandler)

	router.HandlerFunc(http.MethodPut, "/drives/:id", app.putDriveHandler)
	router.HandlerFunc(http.MethodPatch, "/drives/:id", app.patchDriveHandler)

	router.HandlerFunc(http.MethodPut, "/network-interfaces/:id", app.putNetworkInterfaceHandler)
	router.HandlerFunc(http.MethodPatch, "/network-interfaces/:id", app.patchNetworkInterfaceHandler)

	router.HandlerFunc(http.MethodPut, "/vsock", app.putVsockHandler)

	router.HandlerFunc(http.MethodPut, "/logger", app.putLoggerHandler)
	router.HandlerFunc(http.MethodPut, "/metrics", app.putMetricsHandler)

	router.Handler(http.MethodGet, "/debug/vars", expvar.Handler())

	return app.metrics(app.recoverPanic(app.rateLimit(app.authenticate(router))))
}
