package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ehn-dcc-development/hcert-service/internal/chain"
	"github.com/ehn-dcc-development/hcert-service/internal/config"
	"github.com/ehn-dcc-development/hcert-service/internal/conformance"
	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/gateway"
	"github.com/ehn-dcc-development/hcert-service/internal/trustlist"
)

// suiteAlgorithms are the key types the conformance suite produces correct tokens for
var suiteAlgorithms = []crypto.Algorithm{crypto.AlgorithmES256, crypto.AlgorithmPS256, crypto.AlgorithmEdDSA}

// Dependencies holds the components shared by the handlers
type Dependencies struct {
	// Chain signs with the chain key and verifies against the published trust list
	Chain     *chain.Chain
	TrustList *trustlist.Aggregator
	Suite     *conformance.Suite
	JWKS      jwk.Set

	Registry *prometheus.Registry
	Metrics  *Metrics
}

// NewDependencies loads or generates the signing keys and publishes the first trust list.
func NewDependencies(ctx context.Context, cfg *config.ServerEnvironment, logger *slog.Logger) (*Dependencies, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	chainKey, err := loadOrGenerateKeyPair(cfg.ChainKeyPath, cfg.ChainCertPath, crypto.Algorithm(cfg.ChainAlgorithm), "hcert chain", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chain key: %w", err)
	}
	trustListKey, err := loadOrGenerateKeyPair(cfg.TrustListKeyPath, cfg.TrustListCertPath, crypto.AlgorithmES256, "hcert trust list", logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize trust list key: %w", err)
	}

	var external []*crypto.Certificate
	if len(cfg.TrustListExternalCerts) > 0 {
		external, err = crypto.LoadCertificates(crypto.FileLoader{}, cfg.TrustListExternalCerts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load external certificates: %w", err)
		}
		logger.Info("external certificates loaded", slog.Int("count", len(external)))
	}

	remotes, err := gateway.NewConnectors(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway connectors: %w", err)
	}

	suiteProviders, err := conformanceProviders(chainKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create conformance keys: %w", err)
	}

	trustList, err := trustlist.NewAggregator(ctx, trustlist.Config{
		Signer:         trustListKey,
		Local:          suiteProviders,
		External:       external,
		Remotes:        remotes,
		Validity:       cfg.TrustListValidity,
		Interval:       cfg.TrustListRefreshInterval,
		InitialDelay:   cfg.TrustListInitialDelay,
		RefreshTimeout: cfg.TrustListRefreshTimeout,
	}, logger, trustlist.NewMetrics(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize trust list: %w", err)
	}

	envelope := chain.NewCWTEnvelopeCodec(cfg.Issuer, cfg.CertificateValidity)
	c, err := chain.New(chain.DefaultStages(chainKey, envelope, cfg.ContextIdentifier), trustList, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create chain: %w", err)
	}

	suite, err := conformance.NewSuite(suiteProviders, conformance.Options{
		Issuer:            cfg.Issuer,
		Validity:          cfg.CertificateValidity,
		ContextIdentifier: cfg.ContextIdentifier,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create conformance suite: %w", err)
	}

	jwks, err := crypto.KeyProvidersToJWKSet(chainKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK set: %w", err)
	}

	return &Dependencies{
		Chain:     c,
		TrustList: trustList,
		Suite:     suite,
		JWKS:      jwks,
		Registry:  registry,
		Metrics:   NewMetrics(registry),
	}, nil
}

// loadOrGenerateKeyPair loads the key pair from PEM files, or generates one when no paths are configured
func loadOrGenerateKeyPair(keyPath, certPath string, alg crypto.Algorithm, commonName string, logger *slog.Logger) (*crypto.KeyPair, error) {
	if keyPath != "" {
		kp, err := crypto.LoadKeyPair(crypto.FileLoader{}, keyPath, certPath)
		if err != nil {
			return nil, err
		}
		logger.Info("key pair loaded",
			slog.String("cert", certPath),
			slog.String("kid", kp.Certificate().KeyIDString()),
			slog.String("algorithm", string(kp.Algorithm())),
		)
		return kp, nil
	}

	kp, err := crypto.GenerateKeyPair(alg, crypto.CertificateOptions{CommonName: commonName})
	if err != nil {
		return nil, err
	}
	logger.Warn("no key configured, generated an in-memory key pair",
		slog.String("common_name", commonName),
		slog.String("kid", kp.Certificate().KeyIDString()),
		slog.String("algorithm", string(alg)),
	)
	return kp, nil
}

// conformanceProviders returns the chain key plus a fresh key for every other supported algorithm.
// Every returned key is published in the trust list.
func conformanceProviders(chainKey *crypto.KeyPair) ([]crypto.KeyProvider, error) {
	providers := []crypto.KeyProvider{chainKey}
	for _, alg := range suiteAlgorithms {
		if alg == chainKey.Algorithm() {
			continue
		}
		kp, err := crypto.GenerateKeyPair(alg, crypto.CertificateOptions{CommonName: "hcert conformance " + string(alg)})
		if err != nil {
			return nil, err
		}
		providers = append(providers, kp)
	}
	return providers, nil
}
