// this file contains functions to generate, save and load the private keys used to sign
// health certificates and trust lists.
//
// ES256 (ECDSA P-256) is the default key type for health certificates. RSA (PS256) and
// Ed25519 keys are also supported.
//
// PEM files are in PKCS#8 format (https://datatracker.ietf.org/doc/html/rfc5208)

package crypto

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// GenerateECKeyPair generates a new ECDSA P-256 private key
func GenerateECKeyPair() (*ecdsa.PrivateKey, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to generate EC key pair")
	}
	return privateKey, nil
}

// GenerateRSAKeyPair generates a new RSA private key. Only 2048, 3072 and 4096 bit keys are accepted.
func GenerateRSAKeyPair(bits int) (*rsa.PrivateKey, error) {
	switch bits {
	case 2048, 3072, 4096:
	default:
		return nil, NewKeyManagementError(fmt.Sprintf("invalid RSA key size %d (use 2048, 3072 or 4096)", bits))
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to generate RSA key pair")
	}
	return privateKey, nil
}

// GenerateEd25519KeyPair generates a new ED25519 private key
func GenerateEd25519KeyPair() (ed25519.PrivateKey, error) {
	_, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to generate Ed25519 key pair")
	}
	return privateKey, nil
}

// GenerateSigningKey generates a private key for the algorithm.
// PS256 keys are 2048 bit.
func GenerateSigningKey(alg Algorithm) (crypto.Signer, error) {
	switch alg {
	case AlgorithmES256:
		return GenerateECKeyPair()
	case AlgorithmPS256:
		return GenerateRSAKeyPair(2048)
	case AlgorithmEdDSA:
		return GenerateEd25519KeyPair()
	default:
		return nil, NewValidationError(fmt.Sprintf("unsupported algorithm: %q", string(alg)))
	}
}

// EncodePrivateKeyToPEM marshals a private key as a PKCS#8 PEM block
func EncodePrivateKeyToPEM(privateKey crypto.Signer) ([]byte, error) {
	privBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to marshal private key")
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: privBytes,
	}), nil
}

// ParsePrivateKeyPEM parses a PKCS#8 private key. Legacy "EC PRIVATE KEY" and
// "RSA PRIVATE KEY" blocks are accepted as well.
func ParsePrivateKeyPEM(pemData []byte) (crypto.Signer, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, NewKeyManagementError("failed to decode PEM block")
	}

	var key any
	var err error
	switch block.Type {
	case "PRIVATE KEY":
		key, err = x509.ParsePKCS8PrivateKey(block.Bytes)
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "RSA PRIVATE KEY":
		key, err = x509.ParsePKCS1PrivateKey(block.Bytes)
	default:
		return nil, NewKeyManagementError(fmt.Sprintf("PEM block is not a private key (type: %s)", block.Type))
	}
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to parse private key")
	}

	signer, ok := key.(crypto.Signer)
	if !ok {
		return nil, NewKeyManagementError(fmt.Sprintf("unsupported private key type: %T", key))
	}
	if _, err := AlgorithmForKey(signer); err != nil {
		return nil, WrapKeyManagementError(err, "private key cannot be used for signing")
	}
	return signer, nil
}

// SavePrivateKeyToPEMFile saves a private key to a PEM file in PKCS#8 format
// note the key is not encrypted
//
// Parameters:
//   - baseDir: The base directory to scope file access (e.g., "./keys")
//   - filename: The filename within the base directory (e.g., "private.pem")
func SavePrivateKeyToPEMFile(privateKey crypto.Signer, baseDir, filename string) error {
	pemData, err := EncodePrivateKeyToPEM(privateKey)
	if err != nil {
		return err
	}
	return writeScopedFile(baseDir, filename, pemData, 0600)
}

// writeScopedFile writes data to filename inside baseDir without following paths outside it
func writeScopedFile(baseDir, filename string, data []byte, perm os.FileMode) error {
	root, err := os.OpenRoot(baseDir)
	if err != nil {
		return fmt.Errorf("failed to open root directory %s: %w", baseDir, err)
	}
	defer root.Close()

	if err := root.WriteFile(filename, data, perm); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
