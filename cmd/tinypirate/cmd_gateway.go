// Tiny Pirate - conversational agent dispatch core
// License: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tinypirate/tinypirate/pkg/bus"
	"github.com/tinypirate/tinypirate/pkg/capability"
	"github.com/tinypirate/tinypirate/pkg/command"
	"github.com/tinypirate/tinypirate/pkg/config"
	"github.com/tinypirate/tinypirate/pkg/dispatch"
	"github.com/tinypirate/tinypirate/pkg/eventlog"
	"github.com/tinypirate/tinypirate/pkg/gateway"
	"github.com/tinypirate/tinypirate/pkg/logger"
	"github.com/tinypirate/tinypirate/pkg/media"
	"github.com/tinypirate/tinypirate/pkg/ratelimit"
	"github.com/tinypirate/tinypirate/pkg/scheduler"
)

// gatewayRunner holds the initialized core components so the lifecycle
// can be driven from one place.
type gatewayRunner struct {
	cfg        *config.Config
	store      *eventlog.Store
	log        *eventlog.Log
	commandBus *bus.CommandBus
	loop       *dispatch.Loop
	schedules  *scheduler.Service
	server     *gateway.Server
	ctx        context.Context
	cancel     context.CancelFunc
}

// createGatewayRunner initializes all components without starting them.
func createGatewayRunner() (*gatewayRunner, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	applyLogConfig(cfg)

	store, err := eventlog.NewStore(cfg.ArchivePath())
	if err != nil {
		return nil, fmt.Errorf("error opening event archive: %w", err)
	}

	log := eventlog.NewLog(cfg.EventLog.Capacity)
	log.SetArchiver(store)
	if wm, err := store.HighWatermark(); err == nil {
		log.Resume(wm)
	}

	commandBus := bus.NewCommandBus(100)
	classifier := command.NewClassifier()
	resources := capability.NewResources()

	chat := capability.NewChat(nil)

	var scheds []*scheduler.Schedule
	for id, sc := range cfg.Schedules {
		scheds = append(scheds, scheduler.NewSchedule(
			id,
			time.Duration(sc.MinIntervalSeconds)*time.Second,
			time.Duration(sc.MaxIntervalSeconds)*time.Second,
			sc.Cron,
			sc.Prompt,
		))
	}
	schedules := scheduler.NewService(classifier, commandBus, scheds)

	regs := []dispatch.Registration{}
	for name, auto := range cfg.Automations {
		bridge := capability.NewHTTPBridge(name, auto.Endpoint, time.Duration(auto.TimeoutSeconds)*time.Second)
		resource := auto.Resource
		if resource == "" {
			resource = name
		}
		// Source-keyed, high priority: a command naming this capability
		// routes straight to it, never through a generic handler.
		regs = append(regs, dispatch.Registration{
			Name:       name,
			Match:      dispatch.MatchSource(name),
			Priority:   100,
			Capability: capability.NewExclusive(bridge, resource, resources),
		})
	}
	regs = append(regs, dispatch.Registration{
		Name:       "chat",
		Match:      dispatch.MatchKind(command.KindChat),
		Priority:   10,
		Capability: chat,
	})

	// System status capability: answers kind=system with live core state.
	regs = append(regs, dispatch.Registration{
		Name:     "system",
		Match:    dispatch.MatchKind(command.KindSystem),
		Priority: 50,
		Capability: capability.Func{CapName: "system", Fn: func(ctx context.Context, cmd command.Command) ([]eventlog.Draft, error) {
			var b strings.Builder
			b.WriteString("🏴‍☠️ Tiny Pirate status\n")
			fmt.Fprintf(&b, "events: %d pending commands: %d\n", log.Watermark(), commandBus.Pending())
			for _, snap := range schedules.Snapshots() {
				fmt.Fprintf(&b, "schedule %s: enabled=%v state=%s\n", snap.ID, snap.Enabled, snap.State)
			}
			return []eventlog.Draft{eventlog.Text(b.String())}, nil
		}},
	})

	dispatcher := dispatch.NewDispatcher(dispatch.NewRegistry(regs), chat, log, cfg.DispatchTimeout())
	loop := dispatch.NewLoop(dispatcher, commandBus, cfg.Dispatch.Workers)

	limiter := ratelimit.NewLimiter(cfg.RateLimits.MaxSubmitsPerMinute)
	mediaStore := media.NewFileStore()
	mediaDir := filepath.Join(cfg.DataPath(), "media")

	server := gateway.NewServer(cfg.Gateway, log, commandBus, classifier, schedules, limiter, mediaStore, mediaDir)
	server.SetArchive(store)

	ctx, cancel := context.WithCancel(context.Background())

	return &gatewayRunner{
		cfg:        cfg,
		store:      store,
		log:        log,
		commandBus: commandBus,
		loop:       loop,
		schedules:  schedules,
		server:     server,
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// run starts all services and blocks until the context is cancelled.
func (r *gatewayRunner) run() error {
	r.loop.Start(r.ctx)

	if err := r.schedules.Start(r.ctx); err != nil {
		return fmt.Errorf("error starting scheduler: %w", err)
	}
	for id, sc := range r.cfg.Schedules {
		if sc.Enabled {
			if err := r.schedules.SetSchedule(id, true, 0, 0); err != nil {
				logger.WarnCF("gateway", "failed to enable schedule", map[string]any{
					"schedule": id,
					"error":    err.Error(),
				})
			}
		}
	}

	if err := r.server.Start(); err != nil {
		return fmt.Errorf("error starting gateway server: %w", err)
	}

	fmt.Printf("✓ Gateway started on %s:%d\n", r.cfg.Gateway.Host, r.cfg.Gateway.Port)
	fmt.Println("Press Ctrl+C to stop")

	<-r.ctx.Done()
	return nil
}

// stop gracefully stops all services, newest consumer first.
func (r *gatewayRunner) stop() {
	logger.InfoC("gateway", "Shutting down...")
	fmt.Println("\nShutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	r.server.Stop(ctx)
	r.schedules.Stop()
	r.cancel()
	r.loop.Stop()
	r.commandBus.Close()
	r.store.Close()

	fmt.Println("✓ Gateway stopped")
	logger.InfoC("gateway", "Shutdown complete")
}

func applyLogConfig(cfg *config.Config) {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		logger.SetLevel(logger.DEBUG)
	case "warn":
		logger.SetLevel(logger.WARN)
	case "error":
		logger.SetLevel(logger.ERROR)
	default:
		logger.SetLevel(logger.INFO)
	}

	if cfg.Log.File != "" {
		if err := logger.EnableFileLogging(cfg.Log.File); err != nil {
			logger.WarnCF("gateway", "file logging unavailable", map[string]any{"error": err.Error()})
		}
	}
}

// gatewayCmd runs the dispatch core and gateway in the foreground.
func gatewayCmd() {
	debug := false
	for _, arg := range os.Args[2:] {
		if arg == "--debug" || arg == "-d" {
			debug = true
			break
		}
	}

	gateway.SetVersion(formatVersion())

	runner, err := createGatewayRunner()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if debug {
		logger.SetLevel(logger.DEBUG)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := runner.run(); err != nil {
			logger.ErrorCF("gateway", "Gateway error", map[string]any{"error": err.Error()})
			runner.stop()
			os.Exit(1)
		}
	}()

	<-sigChan
	runner.stop()
}
