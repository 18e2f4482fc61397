package mongodb

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// LoadTLSConfig builds a *tls.Config from the TLS options.
// Returns nil when TLS is not enabled.
//
// The CA bundle, when present, replaces the system root pool. The client
// certificate file is expected to contain both the certificate and its key
// in PEM format, as delivered by the caller in one blob.
func LoadTLSConfig(opts *TLSOptions) (*tls.Config, error) {
	if opts == nil || !opts.Enabled {
		return nil, nil
	}

	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: opts.Insecure, //nolint:gosec // caller-requested verification bypass
	}

	if opts.CAFile != "" {
		pem, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA bundle %s", opts.CAFile)
		}
		cfg.RootCAs = pool
	}

	if opts.CertFile != "" {
		// Certificate and key live in the same PEM file.
		cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.CertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}
