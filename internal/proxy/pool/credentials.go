package pool

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kart-io/logger"
)

// TLSConfig is the caller-supplied TLS section of a connect request.
// Certificates arrive as inline PEM text and are materialized to disk for
// the driver.
type TLSConfig struct {
	Enabled bool `json:"enabled"`

	// Insecure skips certificate verification.
	Insecure bool `json:"insecure,omitempty"`

	// CACert is an inline PEM CA bundle.
	CACert string `json:"caCert,omitempty"`

	// ClientCert is an inline PEM client certificate plus key.
	ClientCert string `json:"clientCert,omitempty"`
}

// Credentials is the TLS material written for one session. It is owned
// exclusively by that session and removed exactly once when the session is
// destroyed.
type Credentials struct {
	dir      string
	CAFile   string
	CertFile string

	removeOnce sync.Once
}

// WriteCredentials materializes the inline PEM material of cfg into a
// session-scoped temp directory. Returns nil when TLS is disabled or no
// inline material was supplied.
func WriteCredentials(key string, cfg *TLSConfig) (*Credentials, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	if cfg.CACert == "" && cfg.ClientCert == "" {
		return nil, nil
	}

	dir, err := os.MkdirTemp("", "mongodb-proxy-"+sanitizeKey(key)+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create credential dir: %w", err)
	}

	creds := &Credentials{dir: dir}

	if cfg.CACert != "" {
		creds.CAFile = filepath.Join(dir, "ca.pem")
		if err := os.WriteFile(creds.CAFile, []byte(cfg.CACert), 0o600); err != nil {
			creds.Remove()
			return nil, fmt.Errorf("failed to write CA bundle: %w", err)
		}
	}

	if cfg.ClientCert != "" {
		creds.CertFile = filepath.Join(dir, "client.pem")
		if err := os.WriteFile(creds.CertFile, []byte(cfg.ClientCert), 0o600); err != nil {
			creds.Remove()
			return nil, fmt.Errorf("failed to write client certificate: %w", err)
		}
	}

	return creds, nil
}

// Remove deletes the credential material. Safe to call more than once and
// tolerant of files already gone; individual deletion failures are logged
// and do not stop the rest of the cleanup.
func (c *Credentials) Remove() {
	if c == nil {
		return
	}
	c.removeOnce.Do(func() {
		for _, path := range []string{c.CAFile, c.CertFile} {
			if path == "" {
				continue
			}
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				logger.Warnw("Failed to remove credential file", "path", path, "error", err)
			}
		}
		if err := os.Remove(c.dir); err != nil && !os.IsNotExist(err) {
			logger.Warnw("Failed to remove credential dir", "dir", c.dir, "error", err)
		}
	})
}

// sanitizeKey makes a session key safe for use in a directory name.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, key)
}
