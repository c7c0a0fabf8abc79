package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mt5-gateway/src/config"
	"mt5-gateway/src/helpers"
	"mt5-gateway/src/interfaces"
	"mt5-gateway/src/logger"
	"mt5-gateway/src/models"
	"mt5-gateway/src/server"
	"mt5-gateway/src/storage"
	"mt5-gateway/src/terminal"
	"mt5-gateway/src/terminal/bridge"
	"mt5-gateway/src/terminal/sim"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Optional .env for credentials
	godotenv.Load()

	// Load config from YAML file
	config, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	appLogger := logger.NewLogger(config.MConfig, config.Name)

	// 2. Setup Storage
	var db interfaces.IDatabase

	switch config.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(config.MConfig, appLogger)
	default:
		// Default to SQLite
		db, err = storage.NewAsyncSQLiteDB(config.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}
	defer db.Close()

	// 3. Terminal Registry
	//
	// The factory decides per terminal id how the terminal is reached:
	// a bridge agent when one is configured, the local simulator
	// otherwise.
	factory := func(id int64) interfaces.ITerminalAPI {
		if config.Bridge.Enabled {
			if url, ok := config.Bridge.AgentURLs[id]; ok {
				return bridge.NewClient(id, url, config.Bridge.RequestTimeout, config.Bridge.MaxRetries, appLogger)
			}
			appLogger.Warning("No bridge agent for terminal %d, using simulator", id)
		}
		return sim.NewSimTerminal(id)
	}

	registry := terminal.NewRegistry(factory, appLogger)

	// 4. Restore terminal definitions (config first, then store)
	for _, def := range config.Terminals {
		registry.Create(def.ID)
	}

	stored, err := db.ListTerminals()
	if err != nil {
		appLogger.Warning("Failed to load stored terminals: %v", err)
	}
	for _, def := range stored {
		registry.Create(def.ID)
	}

	appLogger.Info("Registry ready with %d terminals", len(registry.List()))

	// 5. Auto-initialize configured terminals
	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	for _, def := range config.Terminals {
		initializeConfigured(bootCtx, registry, def, appLogger)
	}
	bootCancel()

	// 6. Start Server
	srv := server.NewGatewayServer(config.MConfig, appLogger, registry, db)

	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Critical("Server failed: %v", err)
		}
	}()

	// 7. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("Shutting down...")
	srv.Stop()

	for _, info := range registry.List() {
		registry.Delete(info.ID)
	}

	appLogger.Info("Shutdown complete")
}

// -----------------------------------------------------------------------------

func initializeConfigured(ctx context.Context, registry *terminal.Registry, def models.MTerminalConfig, log *logger.Logger) {
	h, ok := registry.Get(def.ID)
	if !ok {
		return
	}

	err := helpers.RetryWithBackoff(ctx, log, fmt.Sprintf("terminal %d init", def.ID), 3, time.Second, func() error {
		return h.Initialize(ctx, def.TerminalPath)
	})
	if err != nil {
		log.Warning("Terminal %d initialization failed: %v", def.ID, err)
		return
	}

	// Credentials come from the environment, never the config file
	password := os.Getenv(fmt.Sprintf("TERMINAL_%d_PASSWORD", def.ID))
	if def.AccountID != 0 && password != "" {
		if _, err := h.Login(ctx, def.AccountID, password, def.Server); err != nil {
			log.Warning("Terminal %d login failed: %v", def.ID, err)
			return
		}
		log.Info("Terminal %d logged in to %s", def.ID, def.Server)
	}
}
