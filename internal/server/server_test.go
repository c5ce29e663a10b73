package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ehn-dcc-development/hcert-service/internal/config"
	"github.com/ehn-dcc-development/hcert-service/internal/conformance"
	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/dgc"
	"github.com/ehn-dcc-development/hcert-service/internal/server/handlers"
)

func newTestConfig() *config.ServerEnvironment {
	return &config.ServerEnvironment{
		Environment:              "test",
		Host:                     "127.0.0.1",
		Port:                     8080,
		ServerShutdownTimeout:    time.Second,
		RateLimitRPS:             0,
		MaxRequestSize:           1024 * 1024,
		ContextIdentifier:        "HC1:",
		Issuer:                   "AT",
		CertificateValidity:      time.Hour,
		ChainAlgorithm:           "ES256",
		TrustListValidity:        time.Hour,
		TrustListRefreshInterval: time.Minute,
		TrustListRefreshTimeout:  time.Second,
	}
}

func newTestServer(t *testing.T) (*Server, *Dependencies) {
	t.Helper()
	cfg := newTestConfig()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, err := NewDependencies(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("could not create dependencies: %v", err)
	}
	return NewServer(cfg, deps, log), deps
}

func TestRoutes(t *testing.T) {
	s, deps := newTestServer(t)
	kid := deps.TrustList.Current().Repository.Certificates()[0].KeyIDString()

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"liveness", http.MethodGet, "/health/live", "", http.StatusOK},
		{"readiness", http.MethodGet, "/health/ready", "", http.StatusOK},
		{"version", http.MethodGet, "/version", "", http.StatusOK},
		{"jwks", http.MethodGet, "/.well-known/jwks.json", "", http.StatusOK},
		{"trust list content", http.MethodGet, "/cert/listv2", "", http.StatusOK},
		{"trust list signature", http.MethodGet, "/cert/sigv2", "", http.StatusOK},
		{"certificate by kid", http.MethodGet, "/cert/" + kid, "", http.StatusOK},
		{"unknown kid", http.MethodGet, "/cert/AAAAAAAAAAA", "", http.StatusNotFound},
		{"sample token", http.MethodGet, "/qrc/vaccination", "", http.StatusOK},
		{"testsuite", http.MethodGet, "/testsuite", "", http.StatusOK},
		{"verify", http.MethodPost, "/verify", `{"token":"HC1:NCF"}`, http.StatusOK},
		{"unknown route", http.MethodGet, "/nope", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			s.Router().ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("got status %d, want %d: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Errorf("security headers not set")
			}
		})
	}
}

func TestJWKSContainsChainKey(t *testing.T) {
	s, deps := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/qrc/test", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	req = httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(rr.Body.String()))
	req.Header.Set("Content-Type", "text/plain")
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	var verified handlers.VerifyResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &verified); err != nil {
		t.Fatalf("could not decode verify response: %v", err)
	}
	if !verified.Valid {
		t.Fatalf("sample token did not verify against the trust list: %v", verified.Result.Errors)
	}

	if _, ok := deps.JWKS.LookupKeyID(verified.Result.KeyID); !ok {
		t.Errorf("kid %s of the chain key is not in the JWK set", verified.Result.KeyID)
	}
}

func TestSuiteGoodTokensVerifyAgainstTrustList(t *testing.T) {
	_, deps := newTestServer(t)

	report := deps.Suite.Run(dgc.MustParseSample("vaccination"))

	good := 0
	for _, c := range report.Cases {
		if c.Expect != conformance.ExpectGood {
			continue
		}
		good++
		t.Run(c.Name, func(t *testing.T) {
			if c.Token == "" {
				t.Fatalf("no token produced: %s", c.Error)
			}
			_, result := deps.Chain.Decode(c.Token)
			if !result.Accepted() {
				t.Fatalf("token not accepted by the service chain: %v", result.Errors)
			}
			kid, err := crypto.DecodeKeyID(result.KeyID)
			if err != nil {
				t.Fatalf("could not decode kid: %v", err)
			}
			if _, err := deps.TrustList.CertificateByKeyID(kid); err != nil {
				t.Errorf("kid %s is not published in the trust list: %v", result.KeyID, err)
			}
		})
	}
	if good == 0 {
		t.Fatal("suite has no GOOD cases")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	s.Router().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/qrc/recovery", nil))

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("got status %d, want 200", rr.Code)
	}

	body := rr.Body.String()
	for _, name := range []string{
		`hcert_http_requests_total{method="GET",route="/qrc/{sample}",status="200"} 1`,
		`hcert_tokens_total{operation="encode",outcome="ok"} 1`,
		"hcert_trustlist_certificates 3",
		"go_goroutines",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output does not contain %q", name)
		}
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	s, _ := newTestServer(t)
	s.config.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned an error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
