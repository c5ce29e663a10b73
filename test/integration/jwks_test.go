//go:build integration

package integration

import (
	"crypto/ecdsa"
	"io"
	"net/http"
	"testing"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

func TestJWKSEndpoint(t *testing.T) {

	testEnv := startInProcessServer(t)
	defer testEnv.shutdown()

	// the JWK set should hold exactly the configured chain key
	expectedKeyID := testEnv.chainKey.Certificate().KeyIDString()

	resp, err := http.Get(testEnv.baseURL + "/.well-known/jwks.json")
	if err != nil {
		t.Fatalf("failed to fetch JWKS endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	keySet, err := jwk.Parse(body)
	if err != nil {
		t.Fatalf("failed to parse JWK set: %v", err)
	}

	if keySet.Len() != 1 {
		t.Fatalf("expected 1 key in JWK set, got %d", keySet.Len())
	}

	key, ok := keySet.LookupKeyID(expectedKeyID)
	if !ok {
		t.Fatalf("key %s not found in JWK set", expectedKeyID)
	}

	if alg, ok := key.Algorithm(); !ok || alg.String() != "ES256" {
		t.Errorf("expected alg ES256, got %v", alg)
	}

	var rawKey any
	if err := jwk.Export(key, &rawKey); err != nil {
		t.Fatalf("failed to convert to raw key: %v", err)
	}
	if _, ok := rawKey.(*ecdsa.PublicKey); !ok {
		t.Errorf("expected an ECDSA public key, got %T", rawKey)
	}
}
