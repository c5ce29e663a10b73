package crypto

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// KeyIDLength is the number of SHA-256 bytes used as kid
const KeyIDLength = 8

// Certificate is an immutable X.509 certificate identified by its DER bytes.
// The kid is derived from the DER bytes when the certificate is created.
type Certificate struct {
	raw  []byte
	x509 *x509.Certificate
	kid  []byte
}

// CalculateKeyID returns the kid of a DER encoded certificate: the first 8 bytes of its SHA-256 digest
func CalculateKeyID(der []byte) []byte {
	sum := sha256.Sum256(der)
	return bytes.Clone(sum[:KeyIDLength])
}

// NewCertificate parses a DER encoded certificate
func NewCertificate(der []byte) (*Certificate, error) {
	if len(der) == 0 {
		return nil, NewCertificateError("certificate is empty")
	}
	parsed, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, WrapCertificateError(err, "failed to parse certificate")
	}
	raw := bytes.Clone(der)
	return &Certificate{raw: raw, x509: parsed, kid: CalculateKeyID(raw)}, nil
}

// NewCertificateFromX509 wraps an already parsed certificate
func NewCertificateFromX509(cert *x509.Certificate) *Certificate {
	raw := bytes.Clone(cert.Raw)
	return &Certificate{raw: raw, x509: cert, kid: CalculateKeyID(raw)}
}

// Raw returns a copy of the DER bytes
func (c *Certificate) Raw() []byte { return bytes.Clone(c.raw) }

// KeyID returns a copy of the kid
func (c *Certificate) KeyID() []byte { return bytes.Clone(c.kid) }

// KeyIDString returns the kid in unpadded URL-safe base64, as used in /cert/{kid}
func (c *Certificate) KeyIDString() string { return EncodeKeyID(c.kid) }

func (c *Certificate) X509() *x509.Certificate { return c.x509 }

func (c *Certificate) PublicKey() crypto.PublicKey { return c.x509.PublicKey }

// Equal reports byte identity
func (c *Certificate) Equal(other *Certificate) bool {
	if c == nil || other == nil {
		return c == other
	}
	return bytes.Equal(c.raw, other.raw)
}

// PEM returns the certificate as a PEM block
func (c *Certificate) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.raw})
}

// ValidAt reports whether t is inside the certificate validity period
func (c *Certificate) ValidAt(t time.Time) bool {
	return !t.Before(c.x509.NotBefore) && !t.After(c.x509.NotAfter)
}

// EncodeKeyID encodes a kid in unpadded URL-safe base64
func EncodeKeyID(kid []byte) string {
	return base64.RawURLEncoding.EncodeToString(kid)
}

// DecodeKeyID decodes a URL-safe base64 kid with or without padding
func DecodeKeyID(s string) ([]byte, error) {
	kid, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, WrapValidationError(err, "kid is not valid URL-safe base64")
	}
	if len(kid) == 0 {
		return nil, NewValidationError("kid is empty")
	}
	return kid, nil
}

// CertificateOptions configures CreateSelfSignedCertificate
type CertificateOptions struct {
	CommonName   string
	Organization string
	Country      string
	Validity     time.Duration
}

// CreateSelfSignedCertificate issues a self-signed certificate for the key.
// Zero option values default to CN "hcert-service", country "AT" and one year validity.
func CreateSelfSignedCertificate(key crypto.Signer, opts CertificateOptions) (*Certificate, error) {
	if key == nil {
		return nil, NewKeyManagementError("private key is nil")
	}
	if opts.CommonName == "" {
		opts.CommonName = "hcert-service"
	}
	if opts.Country == "" {
		opts.Country = "AT"
	}
	if opts.Validity <= 0 {
		opts.Validity = 365 * 24 * time.Hour
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, WrapInternalError(err, "failed to generate serial number")
	}

	subject := pkix.Name{
		CommonName: opts.CommonName,
		Country:    []string{opts.Country},
	}
	if opts.Organization != "" {
		subject.Organization = []string{opts.Organization}
	}

	now := time.Now().UTC()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               subject,
		NotBefore:             now.Add(-time.Minute),
		NotAfter:              now.Add(opts.Validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		return nil, WrapCertificateError(err, "failed to create certificate")
	}
	return NewCertificate(der)
}

// SaveCertificateToPEMFile writes the certificate as PEM
//
// Parameters:
//   - baseDir: The base directory to scope file access (e.g., "./keys")
//   - filename: The filename within the base directory (e.g., "cert.pem")
func SaveCertificateToPEMFile(cert *Certificate, baseDir, filename string) error {
	if cert == nil {
		return fmt.Errorf("certificate is nil")
	}
	return writeScopedFile(baseDir, filename, cert.PEM(), 0644)
}
