package mongodb

import (
	"fmt"
	"time"
)

// TLSOptions describes the TLS settings for a single connection.
// CAFile and CertFile point at PEM material already on disk; the proxy
// materializes caller-supplied inline PEM text before building these.
type TLSOptions struct {
	// Enabled turns TLS on for the connection.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Insecure skips certificate chain and hostname verification.
	Insecure bool `json:"insecure" mapstructure:"insecure"`

	// CAFile is the path to a CA bundle in PEM format.
	CAFile string `json:"ca-file" mapstructure:"ca-file"`

	// CertFile is the path to a client certificate and key, both in the
	// same PEM file.
	CertFile string `json:"cert-file" mapstructure:"cert-file"`
}

// Options defines configuration options for a MongoDB connection.
type Options struct {
	// Connection
	URI      string `json:"uri" mapstructure:"uri"`           // MongoDB URI (mongodb://...)
	Host     string `json:"host" mapstructure:"host"`         // Host (if not using URI)
	Port     int    `json:"port" mapstructure:"port"`         // Port (default 27017)
	Username string `json:"username" mapstructure:"username"` // Username
	Password string `json:"-" mapstructure:"password"`        // Password - excluded from JSON
	Database string `json:"database" mapstructure:"database"` // Database name

	// TLS
	TLS *TLSOptions `json:"tls,omitempty" mapstructure:"tls"`

	// Timeouts
	ConnectTimeout         time.Duration `json:"connect-timeout" mapstructure:"connect-timeout"`
	ServerSelectionTimeout time.Duration `json:"server-selection-timeout" mapstructure:"server-selection-timeout"`

	// Connection Pool
	MaxPoolSize uint64        `json:"max-pool-size" mapstructure:"max-pool-size"`
	MinPoolSize uint64        `json:"min-pool-size" mapstructure:"min-pool-size"`
	MaxIdleTime time.Duration `json:"max-idle-time" mapstructure:"max-idle-time"`
}

// NewOptions creates a new Options object with default values.
func NewOptions() *Options {
	return &Options{
		Host:                   "127.0.0.1",
		Port:                   27017,
		ConnectTimeout:         10 * time.Second,
		ServerSelectionTimeout: 10 * time.Second,
		MaxPoolSize:            10,
		MinPoolSize:            0,
		MaxIdleTime:            5 * time.Minute,
	}
}

// String returns a string representation with credentials redacted.
// Safe for logging and debugging.
func (o *Options) String() string {
	return fmt.Sprintf("MongoDB{host=%s, port=%d, database=%s, tls=%v}",
		o.Host, o.Port, o.Database, o.TLS != nil && o.TLS.Enabled)
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	// If URI is provided, minimal validation needed.
	if o.URI != "" {
		return nil
	}

	if o.Host == "" {
		return fmt.Errorf("host is required when URI is not provided")
	}
	if o.Port <= 0 || o.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	return nil
}
