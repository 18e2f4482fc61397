// Package proxy provides the MongoDB proxy service application.
package proxy

import (
	"fmt"

	"github.com/kart-io/logger"

	"github.com/maxpantech/mongodb-proxy-service/pkg/app"
)

const (
	appName        = "mongodb-proxy"
	appDescription = `MongoDB HTTP Proxy Service

A stateless HTTP gateway that lets constrained callers perform MongoDB
operations through simple request/response calls.

This server provides:
  - Pooled, TLS-capable MongoDB connections keyed by connection ID
  - Operation normalization and ObjectId/ISODate coercion
  - Background reaping of idle connections

Examples:
  # Start with default configuration
  mongodb-proxy

  # Start on a custom address
  mongodb-proxy --server.addr=:9000

  # Use a config file
  mongodb-proxy -c /etc/mongodb-proxy/mongodb-proxy.yaml

Configuration:
  Configuration can be provided via:
  - Command-line flags (highest priority)
  - Environment variables (prefix: MONGODB_PROXY_)
  - Configuration file (YAML)
  - Default values (lowest priority)`
)

// NewApp creates a new application instance.
func NewApp() *app.App {
	opts := NewOptions()

	return app.NewApp(
		app.WithName(appName),
		app.WithShortDescription("MongoDB HTTP proxy service"),
		app.WithDescription(appDescription),
		app.WithOptions(opts),
		app.WithRunFunc(func() error {
			return Run(opts)
		}),
	)
}

// Run runs the proxy service with the given options.
func Run(opts *Options) error {
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Flush() }()

	logger.Infow("Starting MongoDB proxy service",
		"app", appName,
		"addr", opts.Server.Addr,
		"reap_interval", opts.Pool.ReapInterval,
		"idle_ttl", opts.Pool.IdleTTL,
	)

	return NewServer(opts).Run()
}
