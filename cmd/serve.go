package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/regform/internal/config"
	"github.com/zjrosen/regform/internal/log"
	"github.com/zjrosen/regform/internal/server"
	"github.com/zjrosen/regform/internal/server/metrics"
	"github.com/zjrosen/regform/internal/server/store"
	"github.com/zjrosen/regform/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the development registration backend",
	Long: `Run a local backend that implements the registration API on SQLite.

Endpoints:
  GET  /countries   country list
  GET  /register    all registrations
  POST /register    create a registration (409 on duplicate username)
  GET  /health      database health
  GET  /metrics     Prometheus metrics

An empty database is seeded with a default country list. With
server.countries_file set, that YAML file replaces the list at startup and
is reloaded whenever it changes.

Example:
  regform serve                      # listen on server.addr
  regform serve --addr :8080         # listen on port 8080
  regform serve --db :memory:        # throwaway database`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr string
	serveDB   string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "address to listen on (overrides server.addr)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "SQLite database path (overrides server.db_path)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	sc := cfg.Server
	if serveAddr != "" {
		sc.Addr = serveAddr
	}
	if serveDB != "" {
		sc.DBPath = serveDB
	}
	if err := config.ValidateServer(sc); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	cleanupLog, err := setupLogging("regform-serve")
	if err != nil {
		return err
	}
	defer cleanupLog()

	provider, err := setupTracing()
	if err != nil {
		return err
	}
	defer shutdownTracing(provider)

	st, err := store.Open(sc.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = st.Close() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seeded, err := st.SeedCountries(ctx, store.DefaultCountries)
	if err != nil {
		return fmt.Errorf("seeding countries: %w", err)
	}
	if seeded {
		log.Info(log.CatStore, "seeded default countries", "count", len(store.DefaultCountries))
	}

	handler := server.NewHandler(server.HandlerConfig{
		Store:             st,
		Pinger:            st,
		Metrics:           metrics.New(),
		Tracer:            provider.Tracer(),
		Limiter:           server.NewLimiter(sc.RateLimitRPS, sc.RateLimitBurst),
		UsernameMaxLength: cfg.Form.UsernameMaxLength,
	})
	srv, err := server.New(server.Config{
		Addr:          sc.Addr,
		Handler:       handler,
		Store:         st,
		CountriesFile: sc.CountriesFile,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	if err := srv.ReloadCountries(ctx); err != nil {
		return fmt.Errorf("loading %s: %w", sc.CountriesFile, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		return srv.WatchCountries(gctx, watcher.DefaultDebounce)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "regform backend listening on %s\n", srv.URL())
	_, _ = fmt.Fprintln(out, "Press Ctrl+C to stop")
	log.Info(log.CatServer, "backend started", "addr", srv.URL(), "db", sc.DBPath)

	if err := g.Wait(); err != nil {
		return fmt.Errorf("backend stopped: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "backend stopped")
	return nil
}
