package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/fruitytales/questsite/internal/core/domain/subscriber"
)

// Response bodies are part of the public contract consumed by the site.
const (
	msgInvalidEmail    = "Invalid email address"
	msgAlreadyExists   = "Email already subscribed"
	msgInternalFailure = "Internal server error"
)

// Outcome labels for subscriptions_total.
const (
	outcomeSubscribed = "subscribed"
	outcomeInvalid    = "invalid"
	outcomeDuplicate  = "duplicate"
	outcomeError      = "error"
)

type subscribeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// subscribe handles POST /api/subscribe.
func (s *Server) subscribe(c echo.Context) error {
	var req subscriber.SubscribeRequest
	// Decode regardless of Content-Type; site forms always send JSON.
	if err := c.Echo().JSONSerializer.Deserialize(c, &req); err != nil {
		s.countSubscription("", outcomeInvalid)
		return c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidEmail})
	}

	res, err := s.subscriptionSvc.Subscribe(c.Request().Context(), &req)
	switch {
	case err == nil:
		s.countSubscription(req.NormalizedSource(), outcomeSubscribed)
		return c.JSON(http.StatusOK, subscribeResponse{Success: true, Message: res.Message})
	case errors.Is(err, subscriber.ErrInvalidEmail):
		s.countSubscription(req.NormalizedSource(), outcomeInvalid)
		return c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidEmail})
	case errors.Is(err, subscriber.ErrDuplicateEmail):
		s.countSubscription(req.NormalizedSource(), outcomeDuplicate)
		return c.JSON(http.StatusConflict, errorResponse{Error: msgAlreadyExists})
	default:
		s.countSubscription(req.NormalizedSource(), outcomeError)
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"source":     req.NormalizedSource(),
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
			}).WithError(err).Error("subscription error")
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: msgInternalFailure})
	}
}

// countSubscription folds unknown sources into "other" to bound label cardinality.
func (s *Server) countSubscription(source, outcome string) {
	switch source {
	case subscriber.SourceDefault, subscriber.SourceHeroSection, subscriber.SourceDemoPage, subscriber.SourceQuestModal:
	default:
		source = "other"
	}
	subscriptionsTotal.WithLabelValues(source, outcome).Inc()
}
