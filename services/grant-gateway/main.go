package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"grantchain/core/events"
	"grantchain/core/state"
	"grantchain/native/grant"
	"grantchain/observability/logging"
	"grantchain/storage"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "grant-gateway.toml", "path to the gateway configuration file")
	flag.Parse()

	logger := logging.Setup("grant-gateway", os.Getenv("GRANT_GATEWAY_ENV"))

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		logger.Error("load config", "error", err.Error())
		os.Exit(1)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		logger.Error("open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	mgr := state.NewManager(db)
	engine := grant.NewEngine()
	engine.SetState(mgr)
	engine.SetEmitter(logEmitter{logger: logger})

	server := NewServer(engine, mgr, logger, cfg.apiSecret, cfg.timestampSkew)
	srv := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: server,
	}

	go func() {
		logger.Info("grant gateway listening", "address", cfg.ListenAddress, "backend", cfg.Backend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen", "error", err.Error())
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down grant gateway")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", "error", err.Error())
	}
}

func openDatabase(cfg Config) (storage.Database, error) {
	switch cfg.Backend {
	case "bolt":
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		return storage.NewBoltDB(filepath.Join(cfg.DataDir, "state.db"))
	case "memory":
		return storage.NewMemDB(), nil
	default:
		return storage.NewLevelDB(cfg.DataDir)
	}
}

// logEmitter forwards engine events to the structured logger.
type logEmitter struct {
	logger *slog.Logger
}

func (l logEmitter) Emit(evt events.Event) {
	if l.logger == nil || evt == nil {
		return
	}
	args := make([]any, 0, 2*len(evt.Attributes()))
	for k, v := range evt.Attributes() {
		args = append(args, k, v)
	}
	l.logger.Info(evt.EventType(), args...)
}
