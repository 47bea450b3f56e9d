package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fakhrymubarak/weather-viewer/internal/app"
	"github.com/fakhrymubarak/weather-viewer/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	city := flag.String("city", "", "print the forecast for this city and exit")
	timeout := flag.Duration("timeout", 30*time.Second, "how long -city waits for the forecast")
	flag.Parse()

	log := config.GetLogger()
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, app.Options{})
	if err != nil {
		log.Errorw("Failed to initialize", "error", err)
		return 1
	}
	a.Start(ctx)
	defer a.Close()

	if *city != "" {
		return runOnce(ctx, a, *city, *timeout)
	}

	if err := serve(ctx, a); err != nil {
		log.Errorw("Server error", "error", err)
		return 1
	}
	return 0
}

func runOnce(ctx context.Context, a *app.App, city string, timeout time.Duration) int {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := a.RunOnce(ctx, city, os.Stdout); err != nil {
		config.GetLogger().Debugw("Forecast not shown", "city", city, "error", err)
		return 1
	}
	return 0
}

func newServer(handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort("", config.GetServerPort()),
		Handler:           handler,
		ReadHeaderTimeout: config.GetServerTimeoutDuration("read_header_timeout", 15*time.Second),
		ReadTimeout:       config.GetServerTimeoutDuration("read_timeout", 15*time.Second),
		WriteTimeout:      config.GetServerTimeoutDuration("write_timeout", 10*time.Second),
		IdleTimeout:       config.GetServerTimeoutDuration("idle_timeout", 30*time.Second),
	}
}

// serve runs the HTTP API until ctx is done, then shuts down gracefully.
func serve(ctx context.Context, a *app.App) error {
	log := config.GetLogger()
	srv := newServer(a.Router())

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("Weather viewer listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Infow("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetServerTimeoutDuration("shutdown_timeout", 10*time.Second))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Infow("Server stopped")
	return nil
}
