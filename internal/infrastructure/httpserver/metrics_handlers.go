package httpserver

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "The total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "The HTTP request latencies in seconds",
		},
		[]string{"method", "endpoint"},
	)

	subscriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscriptions_total",
			Help: "Signup attempts by UI source and outcome",
		},
		[]string{"source", "outcome"},
	)

	mailingNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailing_list_notifications_total",
			Help: "Mailing-list fan-out attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, subscriptionsTotal, mailingNotificationsTotal)
}

// GetRequestsTotal returns the requests total metric for middleware use
func GetRequestsTotal() *prometheus.CounterVec {
	return requestsTotal
}

// GetRequestDuration returns the request duration metric for middleware use
func GetRequestDuration() *prometheus.HistogramVec {
	return requestDuration
}

// GetMailingNotificationsTotal is handed to the mailing-list notifier.
func GetMailingNotificationsTotal() *prometheus.CounterVec {
	return mailingNotificationsTotal
}

// LogMetricsInitialization logs that metrics have been initialized
func (s *Server) LogMetricsInitialization() {
	if s.logger != nil {
		s.logger.WithFields(map[string]interface{}{
			"http_requests_total":              "Counter for HTTP requests by method, endpoint, status",
			"http_request_duration":            "Histogram for HTTP request duration by method, endpoint",
			"subscriptions_total":              "Counter for signups by source, outcome",
			"mailing_list_notifications_total": "Counter for provider fan-out by provider, outcome",
			"metrics_endpoint":                 "/metrics",
		}).Debug("Available Prometheus metrics")
	}
}

func (s *Server) metricsEndpoint(c echo.Context) error {
	promhttp.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}
