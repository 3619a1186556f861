package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/five82/galley/internal/fixture"
	"github.com/five82/galley/internal/logging"
	"github.com/five82/galley/internal/schema"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	var (
		addr    string
		token   string
		latency time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local ledger API seeded with sample data",
		Long: `serve starts an in-memory ledger API for every configured grid, seeded
with deterministic sample rows. Each grid answers in one of the response
shapes the real server has used over time, so the client's normalization is
exercised end to end.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := "info"
			if flags.verbose {
				level = "debug"
			}
			logger, err := logging.NewConsole(level)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			set, err := schema.Load(flags.schemaPath)
			if err != nil {
				return err
			}
			fx := fixture.New(set,
				fixture.WithToken(token),
				fixture.WithLatency(latency),
				fixture.WithLogger(logger),
			)
			return serve(cmd.Context(), addr, fx.Handler(), logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8750", "listen address")
	cmd.Flags().StringVar(&token, "token", "", "require this bearer token on /api routes")
	cmd.Flags().DurationVar(&latency, "latency", 0, "artificial delay per API request")
	return cmd
}

// serve runs handler on addr until ctx is cancelled, then shuts down
// gracefully.
func serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("ledger fixture listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
