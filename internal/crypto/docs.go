// Package crypto holds the key material used by the service: signing key providers,
// certificates and their kids, certificate repositories, PEM loading and JWK export.
//
// The kid of a certificate is the first 8 bytes of the SHA-256 digest of its DER encoding.
package crypto
