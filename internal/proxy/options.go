package proxy

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/maxpantech/mongodb-proxy-service/internal/proxy/query"
	logopts "github.com/maxpantech/mongodb-proxy-service/pkg/options/logger"
)

// ServerOptions configures the HTTP listener.
type ServerOptions struct {
	Addr            string        `json:"addr" mapstructure:"addr"`
	ReadTimeout     time.Duration `json:"read-timeout" mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `json:"write-timeout" mapstructure:"write-timeout"`
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
	Mode            string        `json:"mode" mapstructure:"mode"` // gin mode: debug|release|test
}

// PoolOptions configures session pooling and idle reaping.
type PoolOptions struct {
	ReapInterval time.Duration `json:"reap-interval" mapstructure:"reap-interval"`
	IdleTTL      time.Duration `json:"idle-ttl" mapstructure:"idle-ttl"`
}

// Options holds all configurable options for the proxy service.
type Options struct {
	Server   *ServerOptions       `json:"server" mapstructure:"server"`
	Pool     *PoolOptions         `json:"pool" mapstructure:"pool"`
	Coercion query.CoercionConfig `json:"coercion" mapstructure:"coercion"`
	Log      *logopts.Options     `json:"log" mapstructure:"log"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Server: &ServerOptions{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    150 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Mode:            "release",
		},
		Pool: &PoolOptions{
			ReapInterval: 5 * time.Minute,
			IdleTTL:      30 * time.Minute,
		},
		Coercion: query.DefaultCoercionConfig(),
		Log:      logopts.NewOptions(),
	}
}

// AddFlags adds the proxy service flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Server.Addr, "server.addr", o.Server.Addr, "HTTP listen address")
	fs.DurationVar(&o.Server.ReadTimeout, "server.read-timeout", o.Server.ReadTimeout, "HTTP read timeout")
	fs.DurationVar(&o.Server.WriteTimeout, "server.write-timeout", o.Server.WriteTimeout, "HTTP write timeout")
	fs.DurationVar(&o.Server.ShutdownTimeout, "server.shutdown-timeout", o.Server.ShutdownTimeout, "Graceful shutdown timeout")
	fs.StringVar(&o.Server.Mode, "server.mode", o.Server.Mode, "Gin mode (debug|release|test)")

	fs.DurationVar(&o.Pool.ReapInterval, "pool.reap-interval", o.Pool.ReapInterval, "Idle reaper sweep interval")
	fs.DurationVar(&o.Pool.IdleTTL, "pool.idle-ttl", o.Pool.IdleTTL, "Idle threshold after which connections are evicted")

	fs.StringSliceVar(&o.Coercion.IDFields, "coercion.id-fields", o.Coercion.IDFields, "Field names whose bare hex values are coerced to ObjectIDs")
	fs.StringSliceVar(&o.Coercion.IDSuffixes, "coercion.id-suffixes", o.Coercion.IDSuffixes, "Field name suffixes treated as ObjectID references")
	fs.BoolVar(&o.Coercion.CoerceWrites, "coercion.coerce-writes", o.Coercion.CoerceWrites, "Apply coercion to insert documents")

	o.Log.AddFlags(fs)
}

// Complete fills in any fields not set that are required to have valid data.
func (o *Options) Complete() error {
	if o.Server == nil {
		o.Server = NewOptions().Server
	}
	if o.Pool == nil {
		o.Pool = NewOptions().Pool
	}
	return o.Log.Complete()
}

// Validate validates the options.
func (o *Options) Validate() error {
	if o.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if o.Pool.ReapInterval <= 0 {
		return fmt.Errorf("pool.reap-interval must be positive")
	}
	if o.Pool.IdleTTL <= 0 {
		return fmt.Errorf("pool.idle-ttl must be positive")
	}
	return o.Log.Validate()
}
