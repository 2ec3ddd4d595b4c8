package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Signup bodies are tiny; anything larger is not a real form post.
const maxRequestBody = "16K"

const subscribePath = "/api/subscribe"

func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestID())
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: s.allowedOrigins(),
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))
	s.echo.Use(middleware.BodyLimit(maxRequestBody))

	s.echo.Use(s.middleware.Metrics.CollectHTTPMetrics())
	s.echo.Use(s.middleware.Logging.RequestLogging())
}

func (s *Server) allowedOrigins() []string {
	if s.config == nil || len(s.config.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return s.config.AllowedOrigins
}

// handleHTTPError keeps the subscribe endpoint on its {"error": ...} contract.
// An oversized signup body is reported like any other unparseable one.
func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code == http.StatusRequestEntityTooLarge && c.Path() == subscribePath {
		if err := c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidEmail}); err != nil && s.logger != nil {
			s.logger.WithError(err).Warn("Failed to write error response")
		}
		return
	}
	s.echo.DefaultHTTPErrorHandler(err, c)
}
