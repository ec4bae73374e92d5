package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/trezcool/alama/apps/api/echo"
	"github.com/trezcool/alama/apps/shared"
	"github.com/trezcool/alama/core"
	"github.com/trezcool/alama/services/logger"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(conf.RollbarToken != "" && !conf.Debug)
	defer logger.Close()

	deps, err := shared.Setup(context.Background(), conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up dependencies: %v", err), err)
	}
	defer func() {
		if err = deps.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	logger.Info(fmt.Sprintf("Application initializing : version %q, database %q, auth %q",
		conf.Build, conf.Database.Engine, conf.Auth.Provider))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(serverDeps(deps))
	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err := <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err := server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func serverDeps(d *shared.Deps) echoapi.ServerDeps {
	return echoapi.ServerDeps{
		Conf:       d.Conf,
		Logger:     d.Logger,
		Auth:       d.Auth,
		UserSvc:    d.UserSvc,
		MarkSvc:    d.MarkSvc,
		SubjectSvc: d.SubjectSvc,
		Reports:    d.Reports,
		Stats:      d.Stats,
		MailSvc:    d.MailSvc,
		Validate:   d.Validate,
		Translator: d.Translator,
	}
}
