// Package handler implements the HTTP handlers of the proxy service.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/maxpantech/mongodb-proxy-service/internal/pkg/httputils"
	"github.com/maxpantech/mongodb-proxy-service/internal/proxy/pool"
	"github.com/maxpantech/mongodb-proxy-service/internal/proxy/query"
	"github.com/maxpantech/mongodb-proxy-service/pkg/utils/errors"
	"github.com/maxpantech/mongodb-proxy-service/pkg/utils/response"
)

// Dispatcher executes one normalized operation against a live session.
type Dispatcher interface {
	Dispatch(ctx context.Context, target query.Target, req *query.Request) (*query.Result, error)
}

// ProxyHandler handles the proxy's HTTP requests.
type ProxyHandler struct {
	pool       *pool.Manager
	dispatcher Dispatcher
	startedAt  time.Time
}

// NewProxyHandler creates a new ProxyHandler.
func NewProxyHandler(mgr *pool.Manager, dispatcher Dispatcher) *ProxyHandler {
	return &ProxyHandler{
		pool:       mgr,
		dispatcher: dispatcher,
		startedAt:  time.Now(),
	}
}

// ConnectRequest is the request body for establishing a connection.
type ConnectRequest struct {
	ConnectionID string          `json:"connectionId" binding:"required"`
	MongoURL     string          `json:"mongoUrl" binding:"required"`
	Database     string          `json:"database" binding:"required"`
	TLSConfig    *pool.TLSConfig `json:"tlsConfig,omitempty"`
}

// Health reports service liveness.
func (h *ProxyHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status reports the active session count and uptime.
func (h *ProxyHandler) Status(c *gin.Context) {
	httputils.WriteResponse(c, nil, gin.H{
		"activeSessions": h.pool.Count(),
		"sessions":       h.pool.Stats(),
		"uptimeSeconds":  int64(time.Since(h.startedAt).Seconds()),
	})
}

// Connect establishes (or reuses) the session for a connection ID.
func (h *ProxyHandler) Connect(c *gin.Context) {
	var req ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrMissingParam.WithMessage(err.Error()), nil)
		return
	}

	reused, err := h.pool.Connect(c.Request.Context(), req.ConnectionID, req.MongoURL, req.Database, req.TLSConfig)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	message := "connected"
	if reused {
		message = "reusing existing connection"
	}
	resp := response.SuccessWithMessage(message)
	resp.Data = gin.H{"connectionId": req.ConnectionID}
	httputils.WriteEnvelope(c, resp)
}

// Query dispatches one operation through the caller's session.
func (h *ProxyHandler) Query(c *gin.Context) {
	var req query.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		httputils.WriteResponse(c, errors.ErrMissingParam.WithMessage(err.Error()), nil)
		return
	}

	sess, err := h.pool.Get(req.ConnectionID)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	res, err := h.dispatcher.Dispatch(c.Request.Context(), sess, &req)
	if err != nil {
		resp := response.Err(errors.FromError(err))
		if res != nil {
			resp.WithExecutionTime(res.Elapsed).WithDiagnostics(res.Diagnostics)
		}
		httputils.WriteEnvelope(c, resp)
		return
	}

	resp := response.Success(res.Data).
		WithExecutionTime(res.Elapsed).
		WithDiagnostics(res.Diagnostics)
	httputils.WriteEnvelope(c, resp)
}

// Collections lists the session database's collections with stats.
func (h *ProxyHandler) Collections(c *gin.Context) {
	key := c.Param("connectionId")

	sess, err := h.pool.Get(key)
	if err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}
	sess.Touch()

	infos, err := sess.ListCollections(c.Request.Context())
	if err != nil {
		httputils.WriteResponse(c, errors.ErrMongoUpstream.WithMessage(err.Error()), nil)
		return
	}

	httputils.WriteResponse(c, nil, gin.H{"collections": infos})
}

// Disconnect closes the session for a connection ID.
func (h *ProxyHandler) Disconnect(c *gin.Context) {
	key := c.Param("connectionId")

	if err := h.pool.Disconnect(c.Request.Context(), key); err != nil {
		httputils.WriteResponse(c, err, nil)
		return
	}

	httputils.WriteEnvelope(c, response.SuccessWithMessage("disconnected"))
}

// NoRoute answers unmatched routes with a structured 404.
func NoRoute(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success":   false,
		"error":     "route not found",
		"method":    c.Request.Method,
		"url":       c.Request.URL.Path,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
