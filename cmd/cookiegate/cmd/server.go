package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/tai/cookiegate/gate"
	"github.com/tai/cookiegate/store"
	bboltstore "github.com/tai/cookiegate/store/bbolt"
	memorystore "github.com/tai/cookiegate/store/memory"
	redisstore "github.com/tai/cookiegate/store/redis"
	"github.com/tai/cookiegate/web"
)

var (
	flagListen  string
	flagBackend string
	flagStore   string
	flagDataDir string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the authentication gate in front of a backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, secretEnclave, err := LoadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("listen") {
			cfg.Listen = flagListen
		}
		if cmd.Flags().Changed("backend") {
			cfg.Backend = flagBackend
		}
		if cmd.Flags().Changed("store") {
			if err := cfg.Store.UnmarshalText([]byte(flagStore)); err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("data-dir") {
			cfg.DataDir = flagDataDir
		}

		backendURL, err := url.Parse(cfg.Backend)
		if err != nil {
			return fmt.Errorf("parsing backend URL: %w", err)
		}

		secret, err := secretEnclave.Open()
		if err != nil {
			return fmt.Errorf("opening secret enclave: %w", err)
		}
		defer secret.Destroy()

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		g, err := gate.New(gate.Policy{
			CookieName:    cfg.CookieName,
			Secret:        secret.Bytes(),
			Scheme:        cfg.Scheme,
			Timeout:       cfg.Timeout,
			AuthURL:       cfg.AuthURL,
			CookieOptions: cfg.CookieOptions,
			Override:      cfg.Override,
		}, st, gate.WithLogger(logger), gate.WithMetrics(reg))
		if err != nil {
			return err
		}

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Mount("/_gate/admin", g.AdminRouter())
		r.Method(http.MethodGet, "/_gate/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

		if cfg.DemoLogon {
			logon, err := web.NewLogon(cfg.CookieName, secret.Bytes(), cfg.Scheme, cfg.CookieOptions)
			if err != nil {
				return err
			}
			r.Handle("/_gate/logon", logon)
		}

		proxy := httputil.NewSingleHostReverseProxy(backendURL)
		r.Handle("/*", g.Middleware(proxy))

		server := &http.Server{
			Addr:              cfg.Listen,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Listening on %s, proxying to %s (store: %s)...\n", cfg.Listen, cfg.Backend, cfg.Store)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// openStore builds the configured token store. Redis retention matches
// the token timeout so the backend reaps what the gate would refuse.
func openStore(cfg Config) (store.Store, error) {
	switch cfg.Store {
	case StoreBbolt:
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		st, err := bboltstore.NewStoreFromFile(cfg.DataDir+"/tokens.db", nil)
		if err != nil {
			return nil, fmt.Errorf("failed to open token store: %w", err)
		}
		return st, nil
	case StoreRedis:
		opt, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL: %w", err)
		}
		return redisstore.NewStore(goredis.NewClient(opt), cfg.RedisPrefix, cfg.Timeout), nil
	default:
		return memorystore.NewStore(memorystore.WithJanitor(time.Minute, cfg.Timeout)), nil
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().StringVarP(&flagListen, "listen", "l", ":8080", "Address to listen on")
	serverCmd.Flags().StringVarP(&flagBackend, "backend", "b", "http://127.0.0.1:3000", "Backend URL to proxy to")
	serverCmd.Flags().StringVar(&flagStore, "store", "memory", "Token store backend (memory, bbolt, redis)")
	serverCmd.Flags().StringVar(&flagDataDir, "data-dir", "./data", "Directory for persistent data")
}
