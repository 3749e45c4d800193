package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"quizblitz/internal/config"
	"quizblitz/internal/infra/memory"
	redisstore "quizblitz/internal/infra/redis"
	"quizblitz/internal/preview"
	transport "quizblitz/internal/transport/http"
)

const (
	defaultPinTTL   = 2 * time.Hour
	shutdownTimeout = 5 * time.Second
)

// newPreviewCmd builds the subcommand that serves an in-memory backend, so
// games can be hosted and joined on a LAN without the real service.
func newPreviewCmd(flags *globalFlags) *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Run an in-memory backend for local games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPreview(cmd.Context(), flags, port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "port to listen on (defaults to config or PORT)")
	return cmd
}

func runPreview(ctx context.Context, flags *globalFlags, portFlag string) error {
	cfg, err := flags.loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	port := portFlag
	if port == "" {
		port = cfg.Preview.Port
	}

	var pins preview.PinRegistry = memory.NewPinRegistry()
	if cfg.Redis.Addr != "" {
		client := newRedisClient(cfg)
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		pins = redisstore.NewPinRegistry(client, config.Duration(cfg.Preview.PinTTL, defaultPinTTL))
		log.Info("pins shared through redis", zap.String("addr", cfg.Redis.Addr))
	}

	service := preview.NewService(memory.NewQuizRepository(), memory.NewGameStore(), pins)
	hub := preview.NewHub()
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           transport.NewRouter(service, hub, log),
		ReadHeaderTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting preview backend", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down preview backend")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
