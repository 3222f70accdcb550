package service

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Start serves handler on addr. The returned context is cancelled once the server
// has stopped, either because it failed or because ctx was cancelled and the
// server drained.
func Start(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) context.Context {
	done, cancel := context.WithCancel(context.Background())

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		defer cancel()
		logger.Info("starting service", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("service stopped", zap.Error(err))
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
		case <-done.Done():
			return
		}
		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	}()

	return done
}
