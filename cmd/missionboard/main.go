package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"missionboard/internal/assign"
	"missionboard/internal/config"
	"missionboard/internal/httpapi"
	"missionboard/internal/observability"
	"missionboard/internal/oracle"
	"missionboard/internal/state"
	"missionboard/internal/syncer"
)

// hydrateTasks preloads the task mirror from the last run's snapshots before
// the sync client and engine start, so the dashboard is not empty while the
// first replay is in flight.
func hydrateTasks(ctx context.Context, snapshots state.SnapshotStore, tasks *state.TaskStore) {
	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := snapshots.ListTasks(loadCtx, 500)
	if err != nil {
		log.Printf("snapshot hydration failed: %v", err)
		return
	}
	log.Printf("hydrated %d task(s) from snapshots", tasks.Hydrate(rows))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	snapshots, err := state.NewSnapshotStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("snapshot store init failed: %v", err)
	}
	if snapshots != nil {
		defer snapshots.Close()
		log.Printf("task snapshots: postgres")
	} else {
		log.Printf("task snapshots: disabled")
	}

	stores := syncer.Stores{
		Tasks:        state.NewTaskStore(),
		Agents:       state.NewAgentStore(),
		Tickets:      state.NewTicketStore(),
		Approvals:    state.NewApprovalStore(),
		Interactions: state.NewInteractionStore(),
		Chat:         state.NewChatLog(),
		AgentLogs:    state.NewAgentLogBuffer(),
	}
	stores.Tasks.SetSnapshots(snapshots)
	if snapshots != nil {
		hydrateTasks(ctx, snapshots, stores.Tasks)
	}

	planner, err := oracle.NewPlanner(oracle.Config{
		Mode:    cfg.OracleMode,
		HTTPURL: cfg.OracleHTTPURL,
		Timeout: cfg.OracleTimeout,
	})
	if err != nil {
		log.Fatalf("planner init failed: %v", err)
	}

	cursor := syncer.NewCursor()
	dispatcher := syncer.NewDispatcher(cursor, stores, metrics)
	client := syncer.NewClient(syncer.Config{
		URL:                  cfg.SyncServerURL,
		ReconnectInterval:    cfg.ReconnectInterval,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
		HeartbeatInterval:    cfg.HeartbeatInterval,
	}, syncer.NewWebsocketDialer(), dispatcher, cursor, metrics)

	engine := assign.NewEngine(
		stores.Tasks,
		stores.Agents,
		planner,
		client,
		assign.ParseMode(cfg.AssignMode),
		cfg.OracleTimeout,
		metrics,
	)

	api := httpapi.New(cfg, client, engine, stores, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	go client.Run(runCtx)
	go engine.Run(runCtx)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
