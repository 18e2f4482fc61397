// Package router provides the proxy service's route registration.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/maxpantech/mongodb-proxy-service/internal/proxy/handler"
)

// Register registers the proxy routes on the engine.
func Register(engine *gin.Engine, h *handler.ProxyHandler) {
	engine.GET("/health", h.Health)
	engine.GET("/status", h.Status)
	engine.POST("/connect", h.Connect)
	engine.POST("/query", h.Query)
	engine.GET("/collections/:connectionId", h.Collections)
	engine.DELETE("/disconnect/:connectionId", h.Disconnect)

	engine.NoRoute(handler.NoRoute)

	logger.Info("HTTP routes registered")
}
