package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAPIBaseURL     = "https://appapi2.test.bankid.com"
	defaultPollInterval   = 2 * time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultTransactionTTL = 15 * time.Minute
)

type TLSConfig struct {
	CertFile string `koanf:"cert_file" mapstructure:"cert_file"`
	KeyFile  string `koanf:"key_file" mapstructure:"key_file"`
	CAFile   string `koanf:"ca_file" mapstructure:"ca_file"`
}

func (c TLSConfig) Enabled() bool {
	return strings.TrimSpace(c.CertFile) != "" || strings.TrimSpace(c.KeyFile) != ""
}

type Config struct {
	ServiceName       string        `koanf:"service_name" mapstructure:"service_name"`
	APIBaseURL        string        `koanf:"api_base_url" mapstructure:"api_base_url"`
	PollInterval      time.Duration `koanf:"poll_interval" mapstructure:"poll_interval"`
	RequestTimeout    time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
	TransactionTTL    time.Duration `koanf:"transaction_ttl" mapstructure:"transaction_ttl"`
	DefaultRetryAfter time.Duration `koanf:"default_retry_after" mapstructure:"default_retry_after"`
	TLS               TLSConfig     `koanf:"tls" mapstructure:"tls"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:       "bankid",
		APIBaseURL:        DefaultAPIBaseURL,
		PollInterval:      defaultPollInterval,
		RequestTimeout:    defaultRequestTimeout,
		TransactionTTL:    defaultTransactionTTL,
		DefaultRetryAfter: defaultRetryAfter,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return &ConfigurationError{Field: "service_name", Message: "service_name is required"}
	}
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return &ConfigurationError{Field: "api_base_url", Message: "api_base_url is required"}
	}
	parsed, err := url.Parse(strings.TrimSpace(c.APIBaseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &ConfigurationError{Field: "api_base_url", Message: fmt.Sprintf("invalid api_base_url %q", c.APIBaseURL)}
	}
	if c.PollInterval < 0 {
		return &ConfigurationError{Field: "poll_interval", Message: "poll_interval must not be negative"}
	}
	if c.DefaultRetryAfter < 0 {
		return &ConfigurationError{Field: "default_retry_after", Message: "default_retry_after must not be negative"}
	}
	if strings.TrimSpace(c.TLS.CertFile) != "" && strings.TrimSpace(c.TLS.KeyFile) == "" {
		return &ConfigurationError{Field: "tls.key_file", Message: "tls.key_file is required with tls.cert_file"}
	}
	if strings.TrimSpace(c.TLS.KeyFile) != "" && strings.TrimSpace(c.TLS.CertFile) == "" {
		return &ConfigurationError{Field: "tls.cert_file", Message: "tls.cert_file is required with tls.key_file"}
	}
	return nil
}
