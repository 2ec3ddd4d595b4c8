package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api")
	api.Use(s.middleware.RateLimit.Handler())
	api.POST("/subscribe", s.subscribe)
}
