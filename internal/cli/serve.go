package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"missioncore/internal/adapters/httpapi"
)

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			a, err := loadApp(ctx, *configPath)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			ln, err := net.Listen("tcp", a.cfg.HTTP.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", a.cfg.HTTP.Addr, err)
			}
			return a.serve(ctx, ln)
		},
	}
}

// serve runs the API on ln until ctx is done, then drains in-flight requests
// within the configured shutdown timeout.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	gin.SetMode(ginMode(a.cfg.Log.Level))
	router, err := httpapi.NewRouter(a.service, httpapi.RouterOptions{Logger: a.log, Registry: a.registry})
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:      router,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", ln.Addr().String()).Info("http server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.WithField("grace", a.cfg.HTTP.ShutdownTimeout.String()).Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	started := time.Now()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	a.log.WithFields(logrus.Fields{"took_ms": time.Since(started).Milliseconds()}).Info("http server stopped")
	return nil
}

// ginMode keeps gin's route dump and debug warnings behind the debug log levels.
func ginMode(level string) string {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return gin.DebugMode
	default:
		return gin.ReleaseMode
	}
}
