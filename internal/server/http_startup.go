package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

const shutdownTimeout = 30 * time.Second

// Start serves the API until ctx is cancelled, then drains in-flight
// requests for up to shutdownTimeout
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort(s.Host, s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.ReadTimeout,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	if err := s.configureTLS(srv); err != nil {
		return err
	}
	defer s.RateLimiter.Close()

	s.printBanner(srv)

	failed := make(chan error, 1)
	go func() {
		s.Logger.Info("Recruiter API listening", "address", srv.Addr, "tls", srv.TLSConfig != nil)
		failed <- s.listen(srv)
	}()

	select {
	case err := <-failed:
		return fmt.Errorf("server failed to start: %w", err)
	case <-ctx.Done():
		s.Logger.Info("Shutdown requested, draining requests", "timeout", shutdownTimeout.String())
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		s.Logger.LogError(err, "Drain timed out, closing remaining connections")
		return srv.Close()
	}
	s.Logger.Info("Recruiter API stopped")
	return nil
}

// listen blocks in ListenAndServe. Certificates are already in TLSConfig.
func (s *Server) listen(srv *http.Server) error {
	var err error
	if srv.TLSConfig != nil {
		err = srv.ListenAndServeTLS("", "")
	} else {
		err = srv.ListenAndServe()
	}
	if stderrors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
