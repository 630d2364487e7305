// Package main provides the relay server binary: a websocket relay that
// pairs two clients per room and forwards game-action events between them.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/arcadehall/relay/internal/config"
	"github.com/arcadehall/relay/internal/frontend/ws"
	"github.com/arcadehall/relay/internal/game/relay"
	"github.com/arcadehall/relay/internal/game/room"
	"github.com/arcadehall/relay/internal/observability"
	"github.com/arcadehall/relay/internal/server"
	"github.com/arcadehall/relay/internal/web"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting relay server",
		zap.String("http_addr", cfg.HTTP.Addr()),
		zap.String("static_dir", cfg.HTTP.StaticDir),
	)

	registry := room.NewRegistry()
	metrics := observability.NewMetrics(registry.Count)

	hub := ws.NewHub(cfg.Relay, logger, metrics)
	rel := relay.New(registry, hub, logger, metrics)
	hub.Bind(rel)

	router := web.NewRouter(cfg.HTTP, logger, registry, metrics, hub)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
	}

	// Wire lifecycle
	lifecycle := server.NewLifecycle(logger)

	lifecycle.Add("http", &server.FuncService{
		StartFn: func() error {
			logger.Info("http server listening",
				zap.String("addr", cfg.HTTP.Addr()),
			)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
		StopFn: func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownGrace)
			defer cancel()
			_ = httpServer.Shutdown(shutdownCtx)
		},
	})

	if cfg.Relay.EmptyRoomSweep > 0 {
		quit := make(chan struct{})
		lifecycle.Add("room-sweep", &server.FuncService{
			StartFn: func() error {
				t := time.NewTicker(cfg.Relay.EmptyRoomSweep)
				defer t.Stop()
				for {
					select {
					case <-t.C:
						if removed := registry.SweepEmpty(); removed > 0 {
							logger.Warn("swept empty rooms left in registry",
								zap.Int("removed", removed),
							)
						}
					case <-quit:
						return nil
					}
				}
			},
			StopFn: func() {
				close(quit)
			},
		})
	}

	logger.Info("relay server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
