package httpserver

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Start blocks serving the intake API. TLS and plain HTTP share one
// http.Server so the configured timeouts apply to both.
func (s *Server) Start() error {
	s.LogMetricsInitialization()

	server, err := s.httpServer()
	if err != nil {
		return err
	}

	entry := s.logger.WithFields(logrus.Fields{
		"addr":            server.Addr,
		"environment":     s.config.Environment,
		"tls":             server.TLSConfig != nil,
		"trusted_proxies": len(s.config.TrustedProxies),
	})
	entry.Info("Starting intake server")
	if server.TLSConfig == nil && s.config.Environment == "production" {
		entry.Warn("Running in HTTP mode - TLS certificates not configured")
	}
	return s.echo.StartServer(server)
}

func (s *Server) httpServer() (*http.Server, error) {
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
	if s.config.TLSCertFile == "" || s.config.TLSKeyFile == "" {
		return server, nil
	}
	cert, err := tls.LoadX509KeyPair(s.config.TLSCertFile, s.config.TLSKeyFile)
	if err != nil {
		return nil, fmt.Errorf("load TLS key pair: %w", err)
	}
	server.TLSConfig = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	return server, nil
}

// Shutdown drains in-flight signups before closing listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Draining intake server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) Echo() *echo.Echo {
	return s.echo
}
