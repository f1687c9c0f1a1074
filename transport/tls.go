package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-bankid/core"
)

// NewMTLSHTTPClient returns an http.Client presenting the relying party
// certificate. When CAFile is set only that CA is trusted for the server.
func NewMTLSHTTPClient(cfg core.TLSConfig, timeout time.Duration) (*http.Client, error) {
	certFile := strings.TrimSpace(cfg.CertFile)
	keyFile := strings.TrimSpace(cfg.KeyFile)
	if certFile == "" || keyFile == "" {
		return nil, &core.ConfigurationError{Field: "tls", Message: "cert_file and key_file are required"}
	}
	certificate, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("transport: load client certificate: %w", err)
	}
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{certificate},
		MinVersion:   tls.VersionTLS12,
	}

	if caFile := strings.TrimSpace(cfg.CAFile); caFile != "" {
		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("transport: read ca certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("transport: ca certificate %s contains no PEM certificates", caFile)
		}
		tlsConfig.RootCAs = pool
	}

	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("transport: default transport is not an *http.Transport")
	}
	transport := base.Clone()
	transport.TLSClientConfig = tlsConfig
	return &http.Client{Timeout: timeout, Transport: transport}, nil
}
