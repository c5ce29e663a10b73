//go:build integration

package integration

// Test environment setup and server lifecycle management.
//
// The integration tests start hcert-server in-process and run tests against it.
// Each test writes fresh chain and trust list keys to a temporary directory, starts a fake
// DGC gateway serving one document signer certificate and points the server at both.
//
// By default the server logs are not included in the test output, you can enable them with:
//
//	ENABLE_SERVER_LOGS=true go test -tags=integration -v ./test/integration
//

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ehn-dcc-development/hcert-service/internal/config"
	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/gateway"
	"github.com/ehn-dcc-development/hcert-service/internal/logger"
	"github.com/ehn-dcc-development/hcert-service/internal/server"
)

// testEnv provides access to the server and the key material it was configured with
type testEnv struct {
	baseURL string
	cfg     *config.ServerEnvironment

	chainKey     *crypto.KeyPair
	trustListKey *crypto.KeyPair

	// gatewayKey signs tokens a foreign issuer would produce; its certificate is served by the fake gateway
	gatewayKey *crypto.KeyPair

	// externalCert is loaded from TRUST_LIST_EXT_CERTS
	externalCert *crypto.Certificate

	// gatewayDown makes the fake gateway return 503
	gatewayDown *atomic.Bool

	shutdown func()
}

// startInProcessServer starts hcert-server in-process for testing
func startInProcessServer(t *testing.T) *testEnv {
	t.Helper()

	testEnv := &testEnv{gatewayDown: &atomic.Bool{}}

	t.Log("Starting in-process server...")

	keysDir := t.TempDir()
	testEnv.chainKey = writeKeyPair(t, keysDir, "chain", crypto.AlgorithmES256)
	testEnv.trustListKey = writeKeyPair(t, keysDir, "trustlist", crypto.AlgorithmES256)
	testEnv.gatewayKey = generateKeyPair(t, crypto.AlgorithmEdDSA, "gateway DSC")

	external := generateKeyPair(t, crypto.AlgorithmPS256, "external DSC")
	testEnv.externalCert = external.Certificate()
	if err := crypto.SaveCertificateToPEMFile(testEnv.externalCert, keysDir, "external.cert.pem"); err != nil {
		t.Fatalf("failed to write external certificate: %v", err)
	}

	gatewayServer := startFakeGateway(t, testEnv.gatewayKey.Certificate(), testEnv.gatewayDown)

	// server config
	var (
		host         = "localhost"
		port         = findFreePort(t)
		rateLimitRPS = 0
		environment  = "test"
		logLevel     = logger.ParseLogLevel("none")
	)

	enableServerLogs := false
	if os.Getenv("ENABLE_SERVER_LOGS") == "true" {
		enableServerLogs = true
		logLevel = logger.ParseLogLevel("debug")
	}

	// Set environment variables before calling NewServerConfig
	testEnvVars := map[string]string{
		"HOST":           host,
		"RATE_LIMIT_RPS": fmt.Sprintf("%d", rateLimitRPS),
		"ENVIRONMENT":    environment,
		"LOG_LEVEL":      logLevel.String(),
		"PORT":           fmt.Sprintf("%d", port),

		"CHAIN_KEY_PATH":              filepath.Join(keysDir, "chain.key.pem"),
		"CHAIN_CERT_PATH":             filepath.Join(keysDir, "chain.cert.pem"),
		"TRUST_LIST_KEY_PATH":         filepath.Join(keysDir, "trustlist.key.pem"),
		"TRUST_LIST_CERT_PATH":        filepath.Join(keysDir, "trustlist.cert.pem"),
		"TRUST_LIST_EXT_CERTS":        filepath.Join(keysDir, "external.cert.pem"),
		"TRUST_LIST_VALIDITY":         "1h",
		"TRUST_LIST_REFRESH_INTERVAL": "200ms",
		"TRUST_LIST_INITIAL_DELAY":    "200ms",
		"GATEWAY_URLS":                gatewayServer.URL,
		"GATEWAY_TIMEOUT":             "2s",
	}

	// Save original env vars and set test values
	originalEnvVars := make(map[string]string)
	for key, value := range testEnvVars {
		originalEnvVars[key] = os.Getenv(key)
		os.Setenv(key, value)
	}

	// Restore original environment variables when test completes
	t.Cleanup(func() {
		for key, original := range originalEnvVars {
			if original != "" {
				os.Setenv(key, original)
			} else {
				os.Unsetenv(key)
			}
		}
	})

	cfg, err := config.NewServerConfig()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel = logger.ParseLogLevel("none")
	if enableServerLogs {
		logLevel = logger.ParseLogLevel("debug")
	}
	appLogger := logger.InitLogger(logLevel, "test")

	// Create a cancellable context for server shutdown
	serverCtx, serverCancel := context.WithCancel(context.Background())

	deps, err := server.NewDependencies(serverCtx, cfg, appLogger)
	if err != nil {
		serverCancel()
		t.Fatalf("Failed to create dependencies: %v", err)
	}
	go deps.TrustList.Run(serverCtx)

	serverInstance := server.NewServer(cfg, deps, appLogger)

	// Start server
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := serverInstance.Start(serverCtx); err != nil {
			serverDone <- err
		}
	}()

	// Create shutdown function to be called by the test
	testEnv.shutdown = func() {
		t.Log("Stopping server...")

		// Cancel the server context to trigger graceful shutdown
		serverCancel()

		// Wait for server to shut down gracefully with timeout
		select {
		case err := <-serverDone:
			if err != nil {
				t.Logf("❌ Server shutdown with error: %v", err)
			} else {
				t.Log("✅ Server shut down gracefully")
			}
		case <-time.After(5 * time.Second):
			t.Log("⚠️ Server shutdown timeout")
		}
	}

	testEnv.baseURL = fmt.Sprintf("http://localhost:%d", port)
	testEnv.cfg = cfg

	// Wait for server to be ready
	if !waitForServer(t, testEnv.baseURL+"/health/ready", 30*time.Second) {
		t.Fatal("Server failed to start within timeout")
	}

	t.Logf("✅ Server started at %s", testEnv.baseURL)
	return testEnv
}

func generateKeyPair(t *testing.T, alg crypto.Algorithm, commonName string) *crypto.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair(alg, crypto.CertificateOptions{CommonName: commonName})
	if err != nil {
		t.Fatalf("failed to generate %s key pair: %v", alg, err)
	}
	return kp
}

// writeKeyPair generates a key pair and writes name.key.pem and name.cert.pem to dir
func writeKeyPair(t *testing.T, dir, name string, alg crypto.Algorithm) *crypto.KeyPair {
	t.Helper()

	key, err := crypto.GenerateSigningKey(alg)
	if err != nil {
		t.Fatalf("failed to generate %s key: %v", alg, err)
	}
	cert, err := crypto.CreateSelfSignedCertificate(key, crypto.CertificateOptions{CommonName: "integration " + name})
	if err != nil {
		t.Fatalf("failed to create certificate: %v", err)
	}
	if err := crypto.SavePrivateKeyToPEMFile(key, dir, name+".key.pem"); err != nil {
		t.Fatalf("failed to write private key: %v", err)
	}
	if err := crypto.SaveCertificateToPEMFile(cert, dir, name+".cert.pem"); err != nil {
		t.Fatalf("failed to write certificate: %v", err)
	}

	kp, err := crypto.NewKeyPair(key, cert)
	if err != nil {
		t.Fatalf("failed to create key pair: %v", err)
	}
	return kp
}

// startFakeGateway serves cert as the only DSC of a DGC style gateway trust list
func startFakeGateway(t *testing.T, cert *crypto.Certificate, down *atomic.Bool) *httptest.Server {
	t.Helper()

	items := []gateway.TrustListItem{
		{
			KeyID:           base64.StdEncoding.EncodeToString(cert.KeyID()),
			Timestamp:       time.Now().UTC(),
			Country:         "DE",
			CertificateType: "DSC",
			Thumbprint:      crypto.HexHash(cert.Raw()),
			RawData:         base64.StdEncoding.EncodeToString(cert.Raw()),
		},
		{
			KeyID:           "csca",
			Country:         "DE",
			CertificateType: "CSCA",
			RawData:         "ignored",
		},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		if r.URL.Path != "/trustList/DSC" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(items)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func findFreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.Port
}

func waitForServer(t *testing.T, url string, timeout time.Duration) bool {
	t.Helper()

	client := &http.Client{Timeout: 1 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}
