// algorithm.go defines the signing algorithms supported for health certificate and trust list signatures
package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"fmt"

	"github.com/veraison/go-cose"
)

// Algorithm names a COSE signing algorithm
type Algorithm string

const (
	// AlgorithmES256: ECDSA P-256 with SHA-256 (the default for health certificates)
	AlgorithmES256 Algorithm = "ES256"

	// AlgorithmPS256: RSASSA-PSS with SHA-256
	AlgorithmPS256 Algorithm = "PS256"

	// AlgorithmEdDSA: EdDSA with Ed25519
	AlgorithmEdDSA Algorithm = "EdDSA"
)

// ParseAlgorithm validates an algorithm name
func ParseAlgorithm(name string) (Algorithm, error) {
	switch alg := Algorithm(name); alg {
	case AlgorithmES256, AlgorithmPS256, AlgorithmEdDSA:
		return alg, nil
	default:
		return "", NewValidationError(fmt.Sprintf("unsupported algorithm: %q", name))
	}
}

// COSE returns the COSE algorithm identifier
func (a Algorithm) COSE() (cose.Algorithm, error) {
	switch a {
	case AlgorithmES256:
		return cose.AlgorithmES256, nil
	case AlgorithmPS256:
		return cose.AlgorithmPS256, nil
	case AlgorithmEdDSA:
		return cose.AlgorithmEdDSA, nil
	default:
		return 0, NewValidationError(fmt.Sprintf("unsupported algorithm: %q", string(a)))
	}
}

// AlgorithmForKey returns the algorithm used with a private or public key
func AlgorithmForKey(key any) (Algorithm, error) {
	if signer, ok := key.(crypto.Signer); ok {
		key = signer.Public()
	}

	switch k := key.(type) {
	case *ecdsa.PublicKey:
		if k.Curve != elliptic.P256() {
			return "", NewValidationError(fmt.Sprintf("unsupported ECDSA curve: %s", k.Curve.Params().Name))
		}
		return AlgorithmES256, nil
	case *rsa.PublicKey:
		if k.N.BitLen() < 2048 {
			return "", NewValidationError(fmt.Sprintf("RSA key size %d is below the 2048 bit minimum", k.N.BitLen()))
		}
		return AlgorithmPS256, nil
	case ed25519.PublicKey:
		return AlgorithmEdDSA, nil
	default:
		return "", NewValidationError(fmt.Sprintf("unsupported key type: %T", key))
	}
}
