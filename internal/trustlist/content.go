package trustlist

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"github.com/ehn-dcc-development/hcert-service/internal/chain"
	"github.com/ehn-dcc-development/hcert-service/internal/codec"
	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
)

// Version is the trust list format produced by this package
const Version = 2

type contentEntry struct {
	KeyID       []byte `cbor:"i"`
	Certificate []byte `cbor:"c"`
}

type content struct {
	Certificates []contentEntry `cbor:"c"`
}

// signedHeader is the payload of the trust list signature
type signedHeader struct {
	Version     int    `cbor:"v"`
	ValidFrom   int64  `cbor:"f"`
	ValidUntil  int64  `cbor:"u"`
	ContentHash []byte `cbor:"h"`
}

// EncodeContent encodes the certificates sorted by kid. Equal kids keep DER byte order.
func EncodeContent(certs []*crypto.Certificate) ([]byte, error) {
	sorted := crypto.DedupeCertificates(certs)
	slices.SortStableFunc(sorted, func(a, b *crypto.Certificate) int {
		if c := bytes.Compare(a.KeyID(), b.KeyID()); c != 0 {
			return c
		}
		return bytes.Compare(a.Raw(), b.Raw())
	})

	c := content{Certificates: make([]contentEntry, 0, len(sorted))}
	for _, cert := range sorted {
		c.Certificates = append(c.Certificates, contentEntry{KeyID: cert.KeyID(), Certificate: cert.Raw()})
	}

	data, err := codec.Marshal(c)
	if err != nil {
		return nil, WrapInternalError(err, "failed to encode trust list content")
	}
	return data, nil
}

// DecodeContent parses trust list content. Entries whose kid does not match the certificate are rejected.
func DecodeContent(data []byte) ([]*crypto.Certificate, error) {
	var c content
	if err := codec.Unmarshal(data, &c); err != nil {
		return nil, WrapInvalidTrustListError(err, "failed to decode trust list content")
	}

	certs := make([]*crypto.Certificate, 0, len(c.Certificates))
	for i, e := range c.Certificates {
		cert, err := crypto.NewCertificate(e.Certificate)
		if err != nil {
			return nil, WrapInvalidTrustListError(err, fmt.Sprintf("entry %d is not a certificate", i))
		}
		if !bytes.Equal(cert.KeyID(), e.KeyID) {
			return nil, NewInvalidTrustListError(fmt.Sprintf("entry %d kid %s does not match certificate kid %s",
				i, crypto.EncodeKeyID(e.KeyID), cert.KeyIDString()))
		}
		certs = append(certs, cert)
	}
	return certs, nil
}

// EncodeSignature signs a header binding the content hash to a validity window
func EncodeSignature(signer crypto.KeyProvider, content []byte, validFrom time.Time, validity time.Duration) ([]byte, error) {
	header, err := codec.Marshal(signedHeader{
		Version:     Version,
		ValidFrom:   validFrom.Unix(),
		ValidUntil:  validFrom.Add(validity).Unix(),
		ContentHash: crypto.Hash(content),
	})
	if err != nil {
		return nil, WrapInternalError(err, "failed to encode trust list header")
	}

	sig, err := chain.NewCOSESignatureCodec(signer).Sign(header)
	if err != nil {
		return nil, WrapInternalError(err, "failed to sign trust list")
	}
	return sig, nil
}

// Verify checks a trust list signature against the anchors and returns the certificates of the content.
// The signature must verify, now must lie in the validity window and the content hash must match.
func Verify(signature, content []byte, anchors crypto.CertificateRepository, now time.Time) (*crypto.PrefilledRepository, error) {
	opened, err := chain.OpenSign1(signature, anchors)
	if err != nil {
		return nil, WrapInvalidTrustListError(err, "trust list signature is not COSE_Sign1")
	}
	if !opened.Verified {
		return nil, WrapInvalidTrustListError(opened.VerifyErr, "trust list signature does not verify")
	}

	var header signedHeader
	if err := codec.Unmarshal(opened.Payload, &header); err != nil {
		return nil, WrapInvalidTrustListError(err, "failed to decode trust list header")
	}
	if header.Version != Version {
		return nil, NewInvalidTrustListError(fmt.Sprintf("unsupported trust list version %d", header.Version))
	}
	if now.Before(time.Unix(header.ValidFrom, 0)) {
		return nil, NewInvalidTrustListError("trust list is not yet valid")
	}
	if !now.Before(time.Unix(header.ValidUntil, 0)) {
		return nil, NewInvalidTrustListError("trust list has expired")
	}
	if !bytes.Equal(header.ContentHash, crypto.Hash(content)) {
		return nil, NewInvalidTrustListError("trust list content does not match the signed hash")
	}

	certs, err := DecodeContent(content)
	if err != nil {
		return nil, err
	}
	return crypto.NewPrefilledRepository(certs...), nil
}
