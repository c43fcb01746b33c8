package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brensch/snakegym/config"
	"github.com/brensch/snakegym/envserver"
	"github.com/brensch/snakegym/game"
	"github.com/brensch/snakegym/logging"
)

func main() {
	listen := flag.String("listen", config.EnvOr("LISTEN", "127.0.0.1:8090"), "Listen address")
	boardSize := flag.Int("board-size", config.EnvInt("BOARD_SIZE", game.DefaultBoardSize), "Board width and height")
	seed := flag.Int64("seed", config.EnvInt64("SEED", 0), "Initial food seed for each connection")
	stallLimit := flag.Int("stall-limit", config.EnvInt("STALL_LIMIT", 0), "Steps without food before the stall penalty (0 = board size squared)")
	idleTimeout := flag.Duration("idle-timeout", config.EnvDuration("IDLE_TIMEOUT", 5*time.Minute), "Close connections idle for this long")
	logFormat := flag.String("log-format", config.EnvOr("LOG_FORMAT", "pretty"), "Log format: pretty, json or text")
	logLevel := flag.String("log-level", config.EnvOr("LOG_LEVEL", "info"), "Log level")
	flag.Parse()

	logger, err := logging.New(os.Stderr, *logFormat, *logLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	if _, err := game.NewGame(game.Config{BoardSize: *boardSize}); err != nil {
		log.Fatalf("Invalid board size: %v", err)
	}

	server := envserver.New(envserver.Config{
		BoardSize:   *boardSize,
		Seed:        *seed,
		StallLimit:  *stallLimit,
		IdleTimeout: *idleTimeout,
	}, logger)

	srv := &http.Server{
		Addr:              *listen,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("env server listening", "addr", "ws://"+*listen+"/env", "board_size", *boardSize)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
