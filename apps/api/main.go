package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	dig_container "github.com/coinsforstudy/coins/apps/api/di/dig"
	echoapi "github.com/coinsforstudy/coins/apps/api/echo"
	"github.com/coinsforstudy/coins/core"
)

func main() {
	c := dig_container.New(core.NewConfig)
	if err := c.Invoke(run); err != nil {
		log.Fatal(errors.Wrap(err, "starting application"))
	}
}

func run(
	conf *core.Config,
	apiLogger core.Logger,
	dbLoggerParam dig_container.DBLoggerParam,
	db *sqlx.DB,
	mailSvc core.EmailService,
	server echoapi.Server,
	shutdown dig_container.ShutdownSignal,
) {
	// =========================================================================
	// Initialize App

	apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))

	if err := core.ParseEmailTemplates(); err != nil {
		apiLogger.Fatal(fmt.Sprintf("parsing email templates: %v", err), err)
	}

	dbLogger := dbLoggerParam.Logger
	defer func() {
		if err := db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()
	defer apiLogger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	serverErrors := make(chan error, 1)
	go func() {
		apiLogger.Info(fmt.Sprintf("API listening on %s", conf.Server.Host))
		serverErrors <- server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		apiLogger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-shutdown:
		apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
	}

	// flush pending expiry notices
	mailSvc.Wait()
}
