package chain

import (
	"testing"

	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
)

func newTestKeyPair(t *testing.T, alg crypto.Algorithm) *crypto.KeyPair {
	t.Helper()
	kp, err := crypto.GenerateKeyPair(alg, crypto.CertificateOptions{CommonName: "chain test"})
	if err != nil {
		t.Fatalf("could not generate %s key pair: %v", alg, err)
	}
	return kp
}
