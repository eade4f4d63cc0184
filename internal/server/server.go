// Package server hosts the admin HTTP surface next to the bot transport.
package server

import (
	"context"
	"fmt"
	"net/http"

	"invoicedrop/internal/handler"
	"invoicedrop/internal/middleware"
	"invoicedrop/pkg/logger"

	"github.com/gin-gonic/gin"
)

var (
	ProductionMode = "production"
	TestMode       = "test"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	logger     *logger.Logger
}

func New(mode, port string, l *logger.Logger) *Server {
	switch mode {
	case ProductionMode:
		gin.SetMode(gin.ReleaseMode)
	case TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: engine,
		},
		engine: engine,
		logger: l,
	}
}

func (s *Server) SetupRoutes(admin *handler.AdminHandler) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.LoggingMiddleware(s.logger))

	s.engine.GET("/healthz", admin.Health)

	api := s.engine.Group("/api/v1")
	{
		api.GET("/batches/:id/quota", admin.BatchQuota)
		api.GET("/users", admin.ListUsers)
		api.POST("/users", admin.AddUser)
		api.DELETE("/users/:id", admin.RemoveUser)
	}
}

func (s *Server) Start() error {
	s.logger.Infof("admin server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
