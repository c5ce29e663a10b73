package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ehn-dcc-development/hcert-service/internal/config"
	"github.com/ehn-dcc-development/hcert-service/internal/logger"
	"github.com/ehn-dcc-development/hcert-service/internal/server"
	"github.com/ehn-dcc-development/hcert-service/internal/version"
)

//	@title			hcert-server
//	@description	hcert-server creates and verifies electronic health certificates (HC1 tokens) and publishes a signed trust list
//	@description	of the certificates whose keys may sign them.
//	@description
//	@description	A token is built from the JSON claims in six stages:
//	@description	claims -> CBOR -> CWT -> COSE_Sign1 -> zlib -> Base45 -> `HC1:` prefix.
//	@description	The `/verify` endpoint reverses the chain and reports how far the token got,
//	@description	the `/testsuite` endpoint produces deliberately broken tokens to test other verifiers against.
//	@description
//	@description	## Common Error Responses
//	@description	All endpoints may return:
//	@description	- `413` Request body exceeds size limit
//	@description	- `429` Rate limit exceeded
//	@description	- `500` Internal server error
//	@description
//	@description	Individual endpoints document their specific errors.
//	@description
//	@description	## Request Limits
//	@description	All endpoints are protected by:
//	@description	- **Rate limiting**: Configurable requests per second (see env vars) - default 100 rps (set to 0 to disable)
//	@description	- **Request size limits**: Configurable (see env vars) - default 1MB
//	@description
//	@description	Check the X-Max-Request-Size response header for the configured limit.
//	@description
//	@description	## Trust list
//	@description	`/cert/listv2` and `/cert/sigv2` always come from the same snapshot when their `X-Trust-List-Id` headers match.
//	@description	The list is rebuilt on a fixed delay; if the remote gateways cannot be reached the previous list stays published.
//	@description
//	@license.name	Apache 2.0

//	@servers.url			http://localhost:8080
//	@servers.description	Development server

//	@accept		json
//	@produce	json

//	@tag.name			Tokens
//	@tag.description	Create, verify and test HC1 tokens

//	@tag.name			Trust List
//	@tag.description	Signed trust list and certificate lookup by kid

//	@tag.name			Common
//	@tag.description	Server API endpoints (jwks, health, readiness, version, etc.)

func main() {
	cmd := &cobra.Command{
		Use:   "hcert-server",
		Short: "Electronic health certificate service",
		Long:  `hcert-server encodes and verifies HC1 health certificate tokens and publishes a signed trust list`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	v := version.Get()
	cmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.NewServerConfig()
	if err != nil {
		log.Printf("failed to load configuration: %v", err.Error())
		os.Exit(1)
	}

	appLogger := logger.InitLogger(logger.ParseLogLevel(cfg.LogLevel), cfg.Environment)

	appLogger.Info("Configuration loaded",
		slog.String("ENVIRONMENT", cfg.Environment),
		slog.String("HOST", cfg.Host),
		slog.Int("PORT", cfg.Port),
		slog.String("LOG_LEVEL", cfg.LogLevel),
		slog.String("CONTEXT_IDENTIFIER", cfg.ContextIdentifier),
		slog.String("ISSUER", cfg.Issuer),
		slog.String("CHAIN_ALGORITHM", cfg.ChainAlgorithm),
		slog.String("CHAIN_CERT_PATH", cfg.ChainCertPath),
		slog.String("TRUST_LIST_CERT_PATH", cfg.TrustListCertPath),
		slog.Int("TRUST_LIST_EXT_CERTS", len(cfg.TrustListExternalCerts)),
		slog.Duration("TRUST_LIST_VALIDITY", cfg.TrustListValidity),
		slog.Duration("TRUST_LIST_REFRESH_INTERVAL", cfg.TrustListRefreshInterval),
		slog.String("GATEWAY_URLS", strings.Join(cfg.GatewayURLs, "|")),
	)

	appLogger.Info("Starting server", slog.String("version", version.Get().Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := server.NewDependencies(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to initialize dependencies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// republish the trust list in the background until shutdown
	go deps.TrustList.Run(ctx)

	server := server.NewServer(cfg, deps, appLogger)

	// start the server
	if err := server.Start(ctx); err != nil {
		appLogger.Error("Server error", slog.String("error", err.Error()))
		return err
	}

	appLogger.Info("server shutdown complete")
	return nil
}
