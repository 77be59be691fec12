// Package api serves a read-only view of a running bot over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rustyeddy/exbot/bot"
	"github.com/rustyeddy/exbot/orders"
)

const (
	ServiceName         = "exbot"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
	shutdownTimeout     = 5 * time.Second
)

// Source is the part of a bot the status server reads.
type Source interface {
	State() bot.State
	Orders() []orders.Order
}

// Handler handles status requests
type Handler struct {
	src    Source
	logger *slog.Logger
}

func NewHandler(src Source, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{src: src, logger: logger}
}

// SetupRoutes configures all API routes
func (h *Handler) SetupRoutes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(requestIDMiddleware())
	router.Use(logMiddleware(h.logger))
	router.Use(gin.Recovery())

	router.GET("/health", h.Health)
	router.GET("/status", h.Status)
	router.GET("/orders", h.Orders)
	return router
}

// Serve runs the server on addr until ctx is done.
func (h *Handler) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.SetupRoutes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		h.logger.Info("status server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}
