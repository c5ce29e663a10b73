package crypto

import (
	"crypto"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/veraison/go-cose"
)

// KeyProvider owns a private signing key and exactly one certificate for it.
// Private key material is never exposed.
type KeyProvider interface {
	Certificate() *Certificate
	KeyID() []byte
	Algorithm() Algorithm

	// Sign signs the COSE Sig_structure bytes and returns the signature in COSE encoding
	// (r||s for ECDSA). Signatures may be randomized.
	Sign(content []byte) ([]byte, error)
}

// KeyPair is a KeyProvider backed by an in-memory private key
type KeyPair struct {
	alg    Algorithm
	cert   *Certificate
	signer cose.Signer
}

// NewKeyPair binds a private key to its certificate.
// It fails when the certificate's public key does not belong to the private key.
func NewKeyPair(key crypto.Signer, cert *Certificate) (*KeyPair, error) {
	if key == nil || cert == nil {
		return nil, NewKeyManagementError("private key and certificate are required")
	}

	alg, err := AlgorithmForKey(key)
	if err != nil {
		return nil, WrapKeyManagementError(err, "unsupported signing key")
	}

	pub, ok := key.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(cert.PublicKey()) {
		return nil, NewCertificateError("certificate public key does not match the private key")
	}

	coseAlg, err := alg.COSE()
	if err != nil {
		return nil, err
	}
	signer, err := cose.NewSigner(coseAlg, key)
	if err != nil {
		return nil, WrapKeyManagementError(err, "failed to create COSE signer")
	}

	return &KeyPair{alg: alg, cert: cert, signer: signer}, nil
}

// GenerateKeyPair creates a fresh key and a self-signed certificate for it
func GenerateKeyPair(alg Algorithm, opts CertificateOptions) (*KeyPair, error) {
	key, err := GenerateSigningKey(alg)
	if err != nil {
		return nil, err
	}
	cert, err := CreateSelfSignedCertificate(key, opts)
	if err != nil {
		return nil, err
	}
	return NewKeyPair(key, cert)
}

// LoadKeyPair reads a PEM private key and a PEM certificate through the loader.
// If the certificate resource holds a chain the first certificate is used.
func LoadKeyPair(loader ResourceLoader, keyLocator, certLocator string) (*KeyPair, error) {
	keyPEM, err := loader.Read(keyLocator)
	if err != nil {
		return nil, err
	}
	key, err := ParsePrivateKeyPEM(keyPEM)
	if err != nil {
		return nil, WrapKeyManagementError(err, fmt.Sprintf("failed to load private key %s", keyLocator))
	}

	certs, err := LoadCertificates(loader, certLocator)
	if err != nil {
		return nil, WrapKeyManagementError(err, fmt.Sprintf("failed to load certificate %s", certLocator))
	}

	return NewKeyPair(key, certs[0])
}

func (k *KeyPair) Certificate() *Certificate { return k.cert }
func (k *KeyPair) KeyID() []byte             { return k.cert.KeyID() }
func (k *KeyPair) Algorithm() Algorithm      { return k.alg }

func (k *KeyPair) Sign(content []byte) ([]byte, error) {
	sig, err := k.signer.Sign(rand.Reader, content)
	if err != nil {
		return nil, WrapSignatureError(err, "failed to sign content")
	}
	return sig, nil
}

// COSESigner adapts a KeyProvider to the go-cose Signer interface
func COSESigner(p KeyProvider) (cose.Signer, error) {
	alg, err := p.Algorithm().COSE()
	if err != nil {
		return nil, err
	}
	return &providerSigner{provider: p, alg: alg}, nil
}

type providerSigner struct {
	provider KeyProvider
	alg      cose.Algorithm
}

func (s *providerSigner) Algorithm() cose.Algorithm { return s.alg }

func (s *providerSigner) Sign(_ io.Reader, content []byte) ([]byte, error) {
	return s.provider.Sign(content)
}

// NewVerifier returns a COSE verifier for the certificate's public key
func NewVerifier(alg cose.Algorithm, cert *Certificate) (cose.Verifier, error) {
	verifier, err := cose.NewVerifier(alg, cert.PublicKey())
	if err != nil {
		return nil, WrapSignatureError(err, fmt.Sprintf("certificate %s cannot verify %s signatures", cert.KeyIDString(), alg))
	}
	return verifier, nil
}
