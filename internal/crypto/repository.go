package crypto

import "bytes"

// CertificateRepository resolves a kid to the certificates carrying it.
// Matches are returned in a stable order; callers use the first one.
type CertificateRepository interface {
	LoadCertificates(kid []byte) ([]*Certificate, error)
}

// PrefilledRepository is an immutable CertificateRepository over a fixed certificate set
type PrefilledRepository struct {
	certs []*Certificate
	byKid map[string][]*Certificate
}

// NewPrefilledRepository indexes the certificates by kid. Duplicate certificates are dropped.
func NewPrefilledRepository(certs ...*Certificate) *PrefilledRepository {
	unique := DedupeCertificates(certs)
	r := &PrefilledRepository{
		certs: unique,
		byKid: make(map[string][]*Certificate, len(unique)),
	}
	for _, c := range unique {
		key := string(c.kid)
		r.byKid[key] = append(r.byKid[key], c)
	}
	return r
}

func (r *PrefilledRepository) LoadCertificates(kid []byte) ([]*Certificate, error) {
	matches := r.byKid[string(kid)]
	if len(matches) == 0 {
		return nil, NewUnknownKeyIDError(kid)
	}
	return append([]*Certificate(nil), matches...), nil
}

// Certificates returns the certificates in insertion order
func (r *PrefilledRepository) Certificates() []*Certificate {
	return append([]*Certificate(nil), r.certs...)
}

// Collisions returns the kids shared by more than one distinct certificate
func (r *PrefilledRepository) Collisions() [][]byte {
	var kids [][]byte
	for _, c := range r.certs {
		matches := r.byKid[string(c.kid)]
		if len(matches) > 1 && matches[0] == c {
			kids = append(kids, c.KeyID())
		}
	}
	return kids
}

// DedupeCertificates removes certificates with identical DER bytes, keeping the first occurrence
func DedupeCertificates(certs []*Certificate) []*Certificate {
	unique := make([]*Certificate, 0, len(certs))
	seen := make(map[string]struct{}, len(certs))
	for _, c := range certs {
		if c == nil {
			continue
		}
		if _, ok := seen[string(c.raw)]; ok {
			continue
		}
		seen[string(c.raw)] = struct{}{}
		unique = append(unique, c)
	}
	return unique
}

// ContainsCertificate reports whether certs holds a certificate with the same bytes
func ContainsCertificate(certs []*Certificate, cert *Certificate) bool {
	for _, c := range certs {
		if bytes.Equal(c.raw, cert.raw) {
			return true
		}
	}
	return false
}
