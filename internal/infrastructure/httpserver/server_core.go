package httpserver

import (
	"net"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/fruitytales/questsite/internal/core/ports"
	customMiddleware "github.com/fruitytales/questsite/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	// TrustedProxies lists CIDRs or bare IPs whose X-Forwarded-For is
	// honoured. Empty means the TCP peer is always the client.
	TrustedProxies []string
	Environment    string
}

type ServerDeps struct {
	SubscriptionService ports.SubscriptionService
	// RateLimiterService is optional; nil disables per-IP limiting.
	RateLimiterService ports.RateLimiterService
	HealthCheckers     []ports.HealthChecker
}

type Server struct {
	echo            *echo.Echo
	config          *ServerConfig
	logger          *logrus.Logger
	subscriptionSvc ports.SubscriptionService
	middleware      *customMiddleware.MiddlewareCollection
	healthCheckers  []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = ipExtractor(serverConfig, logger)

	server := &Server{
		echo:            e,
		config:          serverConfig,
		logger:          logger,
		subscriptionSvc: deps.SubscriptionService,
		healthCheckers:  deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.RateLimiterService,
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	e.HTTPErrorHandler = server.handleHTTPError

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// ipExtractor decides what RealIP returns, and so what the rate limiter keys
// on. Only the configured proxy ranges are trusted; loopback and private
// networks are not trusted implicitly.
func ipExtractor(cfg *ServerConfig, logger *logrus.Logger) echo.IPExtractor {
	if cfg == nil || len(cfg.TrustedProxies) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, raw := range cfg.TrustedProxies {
		ipNet, err := parseProxyRange(raw)
		if err != nil {
			if logger != nil {
				logger.WithError(err).WithField("proxy", raw).Warn("Ignoring invalid trusted proxy")
			}
			continue
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	if len(opts) == 3 {
		return echo.ExtractIPDirect()
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func parseProxyRange(raw string) (*net.IPNet, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "/") {
		ip := net.ParseIP(raw)
		if ip == nil {
			return nil, &net.ParseError{Type: "IP address", Text: raw}
		}
		if v4 := ip.To4(); v4 != nil {
			return &net.IPNet{IP: v4, Mask: net.CIDRMask(32, 32)}, nil
		}
		return &net.IPNet{IP: ip, Mask: net.CIDRMask(128, 128)}, nil
	}
	_, ipNet, err := net.ParseCIDR(raw)
	return ipNet, err
}
