package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

const (
	readTimeout  = 15 * time.Second
	writeTimeout = 15 * time.Second
	idleTimeout  = 60 * time.Second
)

// listener owns one *http.Server. The API and the metrics endpoint each get their own.
type listener struct {
	name   string
	server *http.Server
	logger *slog.Logger
}

func newListener(name, host string, port int, logger *slog.Logger) *listener {
	return &listener{
		name:   name,
		logger: logger,
		server: &http.Server{
			Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
	}
}

// serve blocks until the listener is shut down. A clean shutdown returns nil.
func (l *listener) serve(handler http.Handler) error {
	l.server.Handler = handler
	l.logger.Info("listening", slog.String("listener", l.name), slog.String("addr", l.server.Addr))

	err := l.server.ListenAndServe()
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("%s listener failed: %w", l.name, err)
}

func (l *listener) shutdown(ctx context.Context) error {
	l.logger.Info("draining listener", slog.String("listener", l.name))
	return l.server.Shutdown(ctx)
}
