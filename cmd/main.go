// cmd/main.go is the application entry point.
// It wires together all layers behind a small command-line interface:
// serve runs the HTTP API, migrate creates the schema, import loads an
// event file and report prints the money collected for an event.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/oneevent/internal/clock"
	"github.com/Shivanand-hulikatti/oneevent/internal/config"
	"github.com/Shivanand-hulikatti/oneevent/internal/database"
	"github.com/Shivanand-hulikatti/oneevent/internal/eventfile"
	"github.com/Shivanand-hulikatti/oneevent/internal/handler"
	"github.com/Shivanand-hulikatti/oneevent/internal/repository"
	"github.com/Shivanand-hulikatti/oneevent/internal/service"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries what every command needs once configuration is loaded.
type app struct {
	cfg *config.Config
	log *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:          "oneevent",
		Short:        "Event booking, eligibility and payment tracking",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			return nil
		},
	}

	cmd.AddCommand(a.serveCommand())
	cmd.AddCommand(a.migrateCommand())
	cmd.AddCommand(a.importCommand())
	cmd.AddCommand(a.reportCommand())
	return cmd
}

// openStore connects to PostgreSQL. The returned func closes the pool.
func (a *app) openStore(ctx context.Context) (*repository.Store, func(), error) {
	pool, err := database.NewPool(ctx, a.cfg.DB, a.log)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	a.log.Info("connected to PostgreSQL", slog.String("host", a.cfg.DB.Host), slog.String("db", a.cfg.DB.Name))
	return repository.NewStore(pool), pool.Close, nil
}

func (a *app) serveCommand() *cobra.Command {
	var (
		inMemory bool
		seed     string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			// ── 1. Storage ────────────────────────────────────────────────
			var store service.Store
			if inMemory {
				store = repository.NewMemory()
				a.log.Warn("using in-memory storage; data is lost on exit")
			} else {
				pg, closeStore, err := a.openStore(ctx)
				if err != nil {
					return err
				}
				defer closeStore()
				store = pg
			}

			// ── 2. Wire up layers ─────────────────────────────────────────
			svc := service.NewEventService(store, clock.System{}, a.log)
			if seed != "" {
				if err := importFile(ctx, svc, seed); err != nil {
					return err
				}
				a.log.Info("seeded event file", slog.String("path", seed))
			}
			router := handler.NewRouter(handler.NewEventHandler(svc), a.log, a.cfg.JWTSecret, store)

			// ── 3. Start server with graceful shutdown ────────────────────
			srv := &http.Server{
				Addr:         fmt.Sprintf(":%s", a.cfg.Port),
				Handler:      router,
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			serverErr := make(chan error, 1)
			go func() {
				a.log.Info("server listening", slog.String("addr", "http://localhost:"+a.cfg.Port))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
				close(serverErr)
			}()

			// Block until SIGINT or SIGTERM.
			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			select {
			case err, ok := <-serverErr:
				if ok {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-quit:
			}

			a.log.Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}
			a.log.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&inMemory, "in-memory", false, "keep data in process memory instead of PostgreSQL")
	cmd.Flags().StringVar(&seed, "seed", "", "event file to import at startup")
	return cmd
}

func (a *app) migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := database.NewPool(ctx, a.cfg.DB, a.log)
			if err != nil {
				return fmt.Errorf("database: %w", err)
			}
			defer pool.Close()

			if err := database.Migrate(ctx, pool); err != nil {
				return err
			}
			a.log.Info("schema up to date")
			return nil
		},
	}
}

func (a *app) importCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <event.yaml>...",
		Short: "Import events with their bookings from YAML files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := service.NewEventService(store, clock.System{}, a.log)
			for _, path := range args {
				if err := importFile(ctx, svc, path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s\n", path)
			}
			return nil
		},
	}
}

func (a *app) reportCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "report <event-id>",
		Short: "Print the money collected per organiser and category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, closeStore, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			svc := service.NewEventService(store, clock.System{}, a.log)
			e, sums, err := svc.Report(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(sums)
			}
			fmt.Fprintf(out, "%s\n\n", e)
			return sums.WriteTable(out, e.PriceCurrency)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func importFile(ctx context.Context, svc *service.EventService, path string) error {
	e, err := eventfile.Load(path)
	if err != nil {
		return err
	}
	if err := svc.ImportEvent(ctx, e); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	return nil
}
