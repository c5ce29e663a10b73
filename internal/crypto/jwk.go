// JWK (JSON Web Key) export of signing certificates
//
// the public keys of the chain signing certificates are published via /.well-known/jwks.json
// so that verifiers that work with JOSE tooling can pick them up. The JWK kid is the
// URL-safe base64 form of the certificate kid.
// Reference: https://datatracker.ietf.org/doc/html/rfc7517

package crypto

import (
	"crypto"
	"encoding/hex"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// CertificateToJWK converts the public key of a certificate to JWK format
func CertificateToJWK(cert *Certificate) (jwk.Key, error) {
	if cert == nil {
		return nil, fmt.Errorf("certificate is nil")
	}

	alg, err := AlgorithmForKey(cert.PublicKey())
	if err != nil {
		return nil, err
	}

	key, err := jwk.Import(cert.PublicKey())
	if err != nil {
		return nil, fmt.Errorf("failed to create JWK from public key: %w", err)
	}

	if err := key.Set(jwk.KeyIDKey, cert.KeyIDString()); err != nil {
		return nil, fmt.Errorf("failed to set key ID: %w", err)
	}

	if err := key.Set(jwk.AlgorithmKey, jwaAlgorithm(alg)); err != nil {
		return nil, fmt.Errorf("failed to set algorithm: %w", err)
	}

	if err := key.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
		return nil, fmt.Errorf("failed to set key usage: %w", err)
	}

	return key, nil
}

// KeyProvidersToJWKSet builds a JWK set from the providers' certificates
func KeyProvidersToJWKSet(providers ...KeyProvider) (jwk.Set, error) {
	set := jwk.NewSet()
	for _, p := range providers {
		key, err := CertificateToJWK(p.Certificate())
		if err != nil {
			return nil, err
		}
		if err := set.AddKey(key); err != nil {
			return nil, fmt.Errorf("failed to add key to set: %w", err)
		}
	}
	return set, nil
}

// JWKThumbprint returns the hex RFC 7638 SHA-256 thumbprint of the certificate public key
func JWKThumbprint(cert *Certificate) (string, error) {
	key, err := jwk.Import(cert.PublicKey())
	if err != nil {
		return "", fmt.Errorf("failed to import key: %w", err)
	}

	thumbprint, err := key.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("failed to generate thumbprint: %w", err)
	}
	return hex.EncodeToString(thumbprint), nil
}

func jwaAlgorithm(alg Algorithm) jwa.SignatureAlgorithm {
	switch alg {
	case AlgorithmPS256:
		return jwa.PS256()
	case AlgorithmEdDSA:
		return jwa.EdDSA()
	default:
		return jwa.ES256()
	}
}
