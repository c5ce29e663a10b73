package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

// Environment variables with defaults
type ServerEnvironment struct {

	// http server settings
	Environment           string        `env:"ENVIRONMENT,default=dev"`
	Host                  string        `env:"HOST,default=0.0.0.0"`
	Port                  int           `env:"PORT,default=8080"`
	LogLevel              string        `env:"LOG_LEVEL,default=debug"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
	ReadTimeout           time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=15s"`
	IdleTimeout           time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	RateLimitRPS          int32         `env:"RATE_LIMIT_RPS,default=100"`
	RateLimitBurst        int32         `env:"RATE_LIMIT_BURST,default=200"`
	MaxRequestSize        int64         `env:"MAX_REQUEST_SIZE,default=1048576"`

	// token settings
	ContextIdentifier   string        `env:"CONTEXT_IDENTIFIER,default=HC1:"`
	Issuer              string        `env:"ISSUER,default=AT"`
	CertificateValidity time.Duration `env:"CERTIFICATE_VALIDITY,default=8760h"`

	// chain signing key. When both paths are empty a key is generated at startup.
	ChainAlgorithm string `env:"CHAIN_ALGORITHM,default=ES256"`
	ChainKeyPath   string `env:"CHAIN_KEY_PATH"`
	ChainCertPath  string `env:"CHAIN_CERT_PATH"`

	// trust list settings
	TrustListKeyPath         string        `env:"TRUST_LIST_KEY_PATH"`
	TrustListCertPath        string        `env:"TRUST_LIST_CERT_PATH"`
	TrustListExternalCerts   []string      `env:"TRUST_LIST_EXT_CERTS,separator=|"`
	TrustListValidity        time.Duration `env:"TRUST_LIST_VALIDITY,default=48h"`
	TrustListRefreshInterval time.Duration `env:"TRUST_LIST_REFRESH_INTERVAL,default=5m"`
	TrustListInitialDelay    time.Duration `env:"TRUST_LIST_INITIAL_DELAY,default=1m"`
	TrustListRefreshTimeout  time.Duration `env:"TRUST_LIST_REFRESH_TIMEOUT,default=30s"`

	// remote certificate gateways
	GatewayURLs    []string      `env:"GATEWAY_URLS,separator=|"`
	GatewayTimeout time.Duration `env:"GATEWAY_TIMEOUT,default=10s"`
}

var validEnvs = map[string]bool{
	"dev":     true,
	"test":    true,
	"prod":    true,
	"staging": true,
}

var validAlgorithms = map[string]bool{
	"ES256": true,
	"PS256": true,
	"EdDSA": true,
}

// NewServerConfig loads environment variables and returns a ServerEnvironment struct that contains the values
func NewServerConfig() (*ServerEnvironment, error) {
	var cfg ServerEnvironment

	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validateConfig checks the loaded values are usable
func validateConfig(cfg *ServerEnvironment) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}
	if !validEnvs[cfg.Environment] {
		return fmt.Errorf("invalid ENVIRONMENT: %s", cfg.Environment)
	}
	if cfg.MaxRequestSize < 1 {
		return fmt.Errorf("MAX_REQUEST_SIZE must be at least 1")
	}

	if cfg.ContextIdentifier == "" || !strings.HasSuffix(cfg.ContextIdentifier, ":") {
		return fmt.Errorf("CONTEXT_IDENTIFIER must end with ':', got %q", cfg.ContextIdentifier)
	}
	if cfg.CertificateValidity <= 0 {
		return fmt.Errorf("CERTIFICATE_VALIDITY must be positive")
	}
	if !validAlgorithms[cfg.ChainAlgorithm] {
		return fmt.Errorf("invalid CHAIN_ALGORITHM: %s", cfg.ChainAlgorithm)
	}

	if (cfg.ChainKeyPath == "") != (cfg.ChainCertPath == "") {
		return fmt.Errorf("CHAIN_KEY_PATH and CHAIN_CERT_PATH must be set together")
	}
	if (cfg.TrustListKeyPath == "") != (cfg.TrustListCertPath == "") {
		return fmt.Errorf("TRUST_LIST_KEY_PATH and TRUST_LIST_CERT_PATH must be set together")
	}

	if cfg.TrustListValidity <= 0 {
		return fmt.Errorf("TRUST_LIST_VALIDITY must be positive")
	}
	if cfg.TrustListRefreshInterval <= 0 {
		return fmt.Errorf("TRUST_LIST_REFRESH_INTERVAL must be positive")
	}
	if cfg.TrustListInitialDelay < 0 {
		return fmt.Errorf("TRUST_LIST_INITIAL_DELAY must be 0 or greater")
	}
	if cfg.TrustListRefreshTimeout <= 0 {
		return fmt.Errorf("TRUST_LIST_REFRESH_TIMEOUT must be positive")
	}

	for _, raw := range cfg.GatewayURLs {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid GATEWAY_URLS entry %q: %w", raw, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("GATEWAY_URLS entry %q must use http or https", raw)
		}
	}
	if len(cfg.GatewayURLs) > 0 && cfg.GatewayTimeout <= 0 {
		return fmt.Errorf("GATEWAY_TIMEOUT must be positive")
	}

	return nil
}
