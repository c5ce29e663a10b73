package crypto

import (
	"encoding/pem"
)

// ParseCertificatesPEM parses one or more X.509 certificates from PEM-encoded data.
// The certificates are returned in the order they appear in the PEM data.
// Non-certificate blocks are skipped.
func ParseCertificatesPEM(pemData []byte) ([]*Certificate, error) {
	var certs []*Certificate
	var block *pem.Block
	remaining := pemData

	for {
		block, remaining = pem.Decode(remaining)
		if block == nil {
			break
		}

		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := NewCertificate(block.Bytes)
		if err != nil {
			return nil, err
		}
		certs = append(certs, cert)
	}

	if len(certs) == 0 {
		return nil, NewValidationError("no certificates found in PEM data")
	}

	return certs, nil
}

// LoadCertificates reads every certificate from the PEM resources named by locators
func LoadCertificates(loader ResourceLoader, locators ...string) ([]*Certificate, error) {
	var certs []*Certificate
	for _, locator := range locators {
		pemData, err := loader.Read(locator)
		if err != nil {
			return nil, err
		}
		parsed, err := ParseCertificatesPEM(pemData)
		if err != nil {
			return nil, WrapCertificateError(err, "failed to load certificates from "+locator)
		}
		certs = append(certs, parsed...)
	}
	return certs, nil
}
