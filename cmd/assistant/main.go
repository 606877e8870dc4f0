// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command assistant starts the Telawat site assistant API server.
//
// The assistant answers visitor questions about the site's reciters and
// recitations. Each chat turn resolves the visitor's intent, retrieves
// matching catalog entries, and streams a grounded Arabic answer.
//
// Usage:
//
//	go run ./cmd/assistant
//	go run ./cmd/assistant -port 9090
//	go run ./cmd/assistant -config assistant.yaml
//
// Configuration:
//
//	ANTHROPIC_API_KEY / OPENAI_API_KEY - model provider credential (required)
//	LLM_PROVIDER - "anthropic" (default) or "openai"
//	TELAWAT_DB - path to the SQLite catalog; in-memory store when unset
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/assistant/health
//
//	# Chat (streams plain text)
//	curl -N -X POST http://localhost:8080/v1/assistant/chat \
//	  -H "Content-Type: application/json" \
//	  -d '{"messages":[{"role":"user","content":"أريد تلاوات المنشاوي"}]}'
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/telawat/assistant/services/assistant"
	"github.com/telawat/assistant/services/assistant/retrieval"
	"github.com/telawat/assistant/services/llm"
	"github.com/telawat/assistant/services/store/memory"
	"github.com/telawat/assistant/services/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	if *debug {
		gin.SetMode(gin.DebugMode)
		slog.SetLogLoggerLevel(slog.LevelDebug)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagation so upstream callers can correlate
	// their traces with ours.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	cfg, err := assistant.LoadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// A missing model credential is fatal: without it every turn fails.
	client, err := llm.NewClientFromEnv()
	if err != nil {
		slog.Error("Failed to initialize model client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, cleanup := openStore()

	orchestrator := assistant.NewOrchestrator(client, store, cfg, slog.Default())
	handlers := assistant.NewHandlers(orchestrator, slog.Default())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("telawat-assistant"))
	router.Use(assistant.RequestIDMiddleware())
	router.Use(assistant.AccessLogMiddleware(slog.Default()))
	if *debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	assistant.RegisterRoutes(v1, handlers, cfg.RateLimit)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(*port)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		slog.Info("Shutting down Telawat assistant server")
		cleanup()
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Starting Telawat assistant server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// openStore selects the catalog backend. TELAWAT_DB points at a SQLite
// database; without it the server runs on an empty in-memory catalog,
// which is only useful for development.
func openStore() (retrieval.Store, func()) {
	dsn := os.Getenv("TELAWAT_DB")
	if dsn == "" {
		slog.Warn("TELAWAT_DB not set, using empty in-memory catalog")
		return memory.NewStore(), func() {}
	}
	store, err := sqlite.Open(dsn)
	if err != nil {
		slog.Error("Failed to open catalog database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Catalog database opened", slog.String("path", dsn))
	return store, func() {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close catalog database", slog.String("error", err.Error()))
		}
	}
}

func printBanner(port int) {
	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                    TELAWAT ASSISTANT SERVER                       ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Conversational, catalog-grounded help for the Telawat site.      ║
║                                                                   ║
║  Quick Start:                                                     ║
║  ┌─────────────────────────────────────────────────────────────┐  ║
║  │ # Health check                                              │  ║
║  │ curl http://localhost:%d/v1/assistant/health           │  ║
║  │                                                             │  ║
║  │ # Chat (streams plain text)                                 │  ║
║  │ curl -N -X POST http://localhost:%d/v1/assistant/chat \│  ║
║  │   -H "Content-Type: application/json" \                     │  ║
║  │   -d '{"messages":[{"role":"user","content":"مرحبا"}]}'     │  ║
║  └─────────────────────────────────────────────────────────────┘  ║
║                                                                   ║
║  Endpoints:                                                       ║
║  ├── POST /v1/assistant/chat - one streamed chat turn             ║
║  ├── GET  /v1/assistant/health, /v1/assistant/ready               ║
║  └── GET  /metrics - Prometheus metrics                           ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, port, port)
}
