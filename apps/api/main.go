package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	echoapi "github.com/langhour/tracker/apps/api/echo"
	"github.com/langhour/tracker/apps/container"
	"github.com/langhour/tracker/core"
	logsvc "github.com/langhour/tracker/services/logger"
	"github.com/langhour/tracker/storage/cache"
)

const setupTimeout = 30 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewLogger(conf)
	defer logger.Sync()

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), setupTimeout)
	defer cancelSetup()

	c, err := container.New(setupCtx, conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up dependencies: %v", err), err)
	}
	defer func() {
		if err = c.Close(); err != nil {
			logger.Error("closing dependencies", err)
		}
	}()
	if err = c.Migrate(); err != nil {
		logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	blocklist, closeBlocklist, err := cache.NewBlocklist(setupCtx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up token blocklist: %v", err), err)
	}
	defer func() { _ = closeBlocklist() }()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	if conf.Reminder.Enabled {
		if err = c.ReminderSvc.Start(); err != nil {
			logger.Fatal(fmt.Sprintf("starting reminders: %v", err), err)
		}
		logger.Info(fmt.Sprintf("monthly reminders scheduled, next run %s", c.ReminderSvc.NextRun().Format(time.RFC3339)))
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   c.Validate,
		Translator: c.Translator,
		Blocklist:  blocklist,
		Registry:   registry,
		UserSvc:    c.UserSvc,
		HoursSvc:   c.HoursSvc,
		ScoreSvc:   c.ScoreSvc,
		CourseSvc:  c.CourseSvc,
		MessageSvc: c.MessageSvc,
		FileSvc:    c.FileSvc,
		AuditSvc:   c.AuditSvc,
	})

	go func() {
		logger.Info("API listening on " + conf.Server.Host)
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
