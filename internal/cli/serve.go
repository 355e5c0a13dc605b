package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"policyrag/internal/ingest"
	"policyrag/internal/server"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the query engine over HTTP",
	Long: `Load the documents directory and answer questions on POST /run.

Also serves GET /health, GET /documents and GET /metrics. With --watch the
corpus is rebuilt whenever a document file changes. With --grpc-health-addr a
gRPC health endpoint is served alongside.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP listen address")
	serveCmd.Flags().String("grpc-health-addr", "", "gRPC health listen address (empty disables)")
	serveCmd.Flags().Bool("watch", false, "reload documents when files change")
	serveCmd.Flags().Float64("rate-limit", 0, "requests per second per client (0 disables)")

	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.grpc_health_addr", serveCmd.Flags().Lookup("grpc-health-addr"))
	_ = viper.BindPFlag("documents.watch", serveCmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("server.rate_limit_rps", serveCmd.Flags().Lookup("rate-limit"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg, os.Stderr)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var health *server.GRPCHealth
	if cfg.Server.GRPCHealthAddr != "" {
		health = server.NewGRPCHealth(log)
	}

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", cfg.Documents.Dir, err)
	}

	srv := server.New(a.engine, server.Config{
		Addr:           cfg.Server.Addr,
		ReadTimeout:    cfg.Server.ReadTimeout(),
		WriteTimeout:   cfg.Server.WriteTimeout(),
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		MinConfidence:  cfg.Retrieval.MinConfidence,
	}, log, a.metrics, a.registry)

	var watcher *ingest.Watcher
	if cfg.Documents.Watch {
		watcher, err = ingest.NewWatcher(cfg.Documents.Dir, cfg.Documents.Pattern, ingest.DefaultDebounce, a.reload, log)
		if err != nil {
			return fmt.Errorf("watch %s: %w", cfg.Documents.Dir, err)
		}
		defer watcher.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)

	if health != nil {
		health.SetServing(true)
		g.Go(func() error { return health.ListenAndServe(cfg.Server.GRPCHealthAddr) })
	}

	if watcher != nil {
		g.Go(func() error {
			watcher.Run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		if health != nil {
			health.SetServing(false)
			health.Stop()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
