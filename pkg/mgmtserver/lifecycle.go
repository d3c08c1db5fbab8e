package mgmtserver

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/JailtonJunior94/logkit/pkg/observability"
)

// Start listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.observability.Logger().Error(ctx, "management server failed to listen", observability.Error(err))
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done or the server fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.observability.Logger().Info(ctx, "starting management server",
		observability.String("address", ln.Addr().String()),
		observability.String("service", s.config.ServiceName),
		observability.String("version", s.config.ServiceVersion),
	)

	serverErr := make(chan error, 1)

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		if !ok {
			return nil
		}
		s.observability.Logger().Error(ctx, "management server failed", observability.Error(err))
		return err
	case <-ctx.Done():
		s.observability.Logger().Info(ctx, "context cancelled, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.config.ShutdownTimeout)
	defer cancel()

	return s.Shutdown(shutdownCtx)
}

// Shutdown gracefully stops the server. Later calls are no-ops.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.observability.Logger().Info(ctx, "initiating graceful shutdown")

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.observability.Logger().Error(ctx, "error shutting down management server", observability.Error(err))
			shutdownErr = err
			return
		}

		s.observability.Logger().Info(ctx, "graceful shutdown completed")
	})

	return shutdownErr
}
