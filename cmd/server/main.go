package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/oarkflow/log"

	"github.com/oarkflow/script/pkg/config"
	"github.com/oarkflow/script/pkg/events"
	"github.com/oarkflow/script/pkg/fileutil"
	"github.com/oarkflow/script/pkg/server"
	"github.com/oarkflow/script/pkg/storage"
)

func loadConfig() (*config.Config, error) {
	path := os.Getenv("SCRIPT_CONFIG")
	if len(os.Args) > 1 {
		path = os.Args[1]
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func main() {
	logger := &log.DefaultLogger
	cfg, err := loadConfig()
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Address = ":" + port
	}
	cfg.Apply()

	store, err := storage.New(storage.Config{Path: cfg.Storage.Path})
	if err != nil {
		logger.Error().Err(err).Str("path", cfg.Storage.Path).Msg("failed to open storage")
		os.Exit(1)
	}
	defer store.Close()

	var transcript *fileutil.JSONAppender[storage.RunRecord]
	if cfg.History.Transcript != "" {
		transcript, err = fileutil.NewJSONAppender[storage.RunRecord](cfg.History.Transcript)
		if err != nil {
			logger.Error().Err(err).Str("path", cfg.History.Transcript).Msg("failed to open transcript")
			os.Exit(1)
		}
		defer transcript.Close()
	}

	bus := events.NewEventBus()
	bus.Subscribe(events.EventRunFailed, func(_ context.Context, e events.Event) error {
		logger.Warn().Str("session", e.Source).Str("code", payloadString(e, "code")).Msg(payloadString(e, "error"))
		return nil
	})

	srv := server.NewServer(server.Config{
		Version:        "1.0.0",
		RequestTimeout: cfg.Server.Timeout(),
		ContextOptions: cfg.ContextOptions(),
		Store:          store,
		Transcript:     transcript,
		Logger:         logger,
		Events:         bus,
		AccessLog:      true,
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		if err := srv.Shutdown(); err != nil {
			logger.Error().Err(err).Msg("shutdown failed")
		}
	}()

	if err := srv.Start(cfg.Server.Address); err != nil {
		logger.Error().Err(err).Msg("server stopped")
	}
}

func payloadString(e events.Event, key string) string {
	if v, ok := e.Payload[key].(string); ok {
		return v
	}
	return ""
}
