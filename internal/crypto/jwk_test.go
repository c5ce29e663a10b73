package crypto

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/lestrrat-go/jwx/v3/jwk"
)

func TestKeyProvidersToJWKSet(t *testing.T) {
	ec, err := GenerateKeyPair(AlgorithmES256, CertificateOptions{})
	if err != nil {
		t.Fatalf("could not generate key pair: %v", err)
	}
	rsaKP, err := GenerateKeyPair(AlgorithmPS256, CertificateOptions{})
	if err != nil {
		t.Fatalf("could not generate key pair: %v", err)
	}

	set, err := KeyProvidersToJWKSet(ec, rsaKP)
	if err != nil {
		t.Fatalf("could not build JWK set: %v", err)
	}
	if set.Len() != 2 {
		t.Fatalf("set has %d keys, want 2", set.Len())
	}

	raw, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("could not marshal set: %v", err)
	}
	if strings.Contains(string(raw), `"d"`) {
		t.Error("JWK set must not contain private key material")
	}

	parsed, err := jwk.Parse(raw)
	if err != nil {
		t.Fatalf("could not parse set: %v", err)
	}
	key, ok := parsed.LookupKeyID(ec.Certificate().KeyIDString())
	if !ok {
		t.Fatal("EC key not found by kid")
	}
	alg, ok := key.Algorithm()
	if !ok || alg.String() != "ES256" {
		t.Errorf("algorithm = %v, want ES256", alg)
	}
}

func TestJWKThumbprint(t *testing.T) {
	cert := newTestCertificate(t)

	first, err := JWKThumbprint(cert)
	if err != nil {
		t.Fatalf("could not compute thumbprint: %v", err)
	}
	second, err := JWKThumbprint(cert)
	if err != nil {
		t.Fatalf("could not compute thumbprint: %v", err)
	}
	if first != second || len(first) != 64 {
		t.Errorf("unexpected thumbprints %q %q", first, second)
	}
}
