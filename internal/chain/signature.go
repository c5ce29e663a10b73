package chain

import (
	"bytes"
	"crypto/rand"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
)

// SignedPayload is the outcome of opening a COSE_Sign1 structure.
// Payload is set even when the signature was not verified.
type SignedPayload struct {
	Payload        []byte
	KeyID          []byte
	KeyIDProtected bool
	KeyIDCollision bool
	Verified       bool

	// VerifyErr explains why Verified is false
	VerifyErr error
}

// COSESignatureCodec signs envelopes as tagged COSE_Sign1 messages
type COSESignatureCodec struct {
	signer      crypto.KeyProvider
	kid         []byte
	unprotected bool
	corrupt     bool
}

// NewCOSESignatureCodec puts the kid in the protected header
func NewCOSESignatureCodec(provider crypto.KeyProvider) *COSESignatureCodec {
	return &COSESignatureCodec{signer: provider, kid: provider.KeyID()}
}

// NewUnprotectedCOSESignatureCodec puts the kid in the unprotected header
func NewUnprotectedCOSESignatureCodec(provider crypto.KeyProvider) *COSESignatureCodec {
	c := NewCOSESignatureCodec(provider)
	c.unprotected = true
	return c
}

// NewFaultySignatureCodec produces well-formed COSE with a corrupted signature
func NewFaultySignatureCodec(provider crypto.KeyProvider) *COSESignatureCodec {
	c := NewCOSESignatureCodec(provider)
	c.corrupt = true
	return c
}

// NewNonVerifiableSignatureCodec signs with a throwaway key but claims the provider's kid
func NewNonVerifiableSignatureCodec(provider crypto.KeyProvider) (*COSESignatureCodec, error) {
	throwaway, err := crypto.GenerateKeyPair(provider.Algorithm(), crypto.CertificateOptions{CommonName: "non-verifiable"})
	if err != nil {
		return nil, err
	}
	return &COSESignatureCodec{signer: throwaway, kid: provider.KeyID()}, nil
}

func (c *COSESignatureCodec) Sign(envelope []byte) ([]byte, error) {
	signer, err := crypto.COSESigner(c.signer)
	if err != nil {
		return nil, WrapEncodeError(err, "failed to create COSE signer")
	}

	msg := cose.NewSign1Message()
	msg.Headers.Protected.SetAlgorithm(signer.Algorithm())
	if c.unprotected {
		msg.Headers.Unprotected[cose.HeaderLabelKeyID] = bytes.Clone(c.kid)
	} else {
		msg.Headers.Protected[cose.HeaderLabelKeyID] = bytes.Clone(c.kid)
	}
	msg.Payload = envelope

	if err := msg.Sign(rand.Reader, nil, signer); err != nil {
		return nil, WrapEncodeError(err, "failed to sign envelope")
	}
	if c.corrupt {
		msg.Signature[len(msg.Signature)-1] ^= 0xff
	}

	data, err := msg.MarshalCBOR()
	if err != nil {
		return nil, WrapEncodeError(err, "failed to encode COSE_Sign1")
	}
	return data, nil
}

func (c *COSESignatureCodec) Open(signed []byte, repository crypto.CertificateRepository) (*SignedPayload, error) {
	return OpenSign1(signed, repository)
}

// VerifyingSignatureCodec only opens COSE_Sign1 structures; Sign always fails
type VerifyingSignatureCodec struct{}

func (VerifyingSignatureCodec) Sign(envelope []byte) ([]byte, error) {
	return nil, NewEncodeError("chain has no signing key")
}

func (VerifyingSignatureCodec) Open(signed []byte, repository crypto.CertificateRepository) (*SignedPayload, error) {
	return OpenSign1(signed, repository)
}

// MalformedSignatureCodec skips signing and emits the envelope bytes as they are
type MalformedSignatureCodec struct{}

func (MalformedSignatureCodec) Sign(envelope []byte) ([]byte, error) { return bytes.Clone(envelope), nil }

func (MalformedSignatureCodec) Open(signed []byte, repository crypto.CertificateRepository) (*SignedPayload, error) {
	return OpenSign1(signed, repository)
}

// ParseSign1 decodes a tagged COSE_Sign1, falling back to the untagged form
func ParseSign1(signed []byte) (*cose.Sign1Message, error) {
	var msg cose.Sign1Message
	taggedErr := msg.UnmarshalCBOR(signed)
	if taggedErr == nil {
		return &msg, nil
	}

	var untagged cose.UntaggedSign1Message
	if err := untagged.UnmarshalCBOR(signed); err != nil {
		return nil, WrapStructuralDecodeError(taggedErr, "not a COSE_Sign1 structure")
	}
	m := cose.Sign1Message(untagged)
	return &m, nil
}

// OpenSign1 parses a COSE_Sign1 structure and verifies it against the repository.
// The kid is taken from the protected header, or from the unprotected header when absent there.
// Only a structurally invalid input returns an error.
func OpenSign1(signed []byte, repository crypto.CertificateRepository) (*SignedPayload, error) {
	msg, err := ParseSign1(signed)
	if err != nil {
		return nil, err
	}
	if msg.Payload == nil {
		return nil, NewStructuralDecodeError("COSE_Sign1 has a detached payload")
	}

	out := &SignedPayload{Payload: msg.Payload}

	kid, protected := keyIDFromHeaders(msg.Headers)
	if kid == nil {
		out.VerifyErr = NewSignatureVerificationError("COSE headers carry no kid")
		return out, nil
	}
	out.KeyID = kid
	out.KeyIDProtected = protected

	alg, err := msg.Headers.Protected.Algorithm()
	if err != nil {
		out.VerifyErr = WrapSignatureVerificationError(err, "COSE protected header carries no algorithm")
		return out, nil
	}

	if repository == nil {
		out.VerifyErr = NewSignatureVerificationError("no certificate repository configured")
		return out, nil
	}
	certs, err := repository.LoadCertificates(kid)
	if err != nil {
		out.VerifyErr = WrapSignatureVerificationError(err, "certificate lookup failed")
		return out, nil
	}
	out.KeyIDCollision = len(certs) > 1

	verifier, err := crypto.NewVerifier(alg, certs[0])
	if err != nil {
		out.VerifyErr = WrapSignatureVerificationError(err, "algorithm does not match certificate")
		return out, nil
	}
	if err := msg.Verify(nil, verifier); err != nil {
		out.VerifyErr = WrapSignatureVerificationError(err, fmt.Sprintf("signature does not verify with certificate %s", certs[0].KeyIDString()))
		return out, nil
	}

	out.Verified = true
	return out, nil
}

// keyIDFromHeaders returns the kid and whether it came from the protected header
func keyIDFromHeaders(h cose.Headers) ([]byte, bool) {
	if kid := headerKeyID(h.Protected); kid != nil {
		return kid, true
	}
	if kid := headerKeyID(h.Unprotected); kid != nil {
		return kid, false
	}
	return nil, false
}

func headerKeyID(header map[any]any) []byte {
	for label, value := range header {
		if !isLabel(label, cose.HeaderLabelKeyID) {
			continue
		}
		if kid, ok := value.([]byte); ok && len(kid) > 0 {
			return bytes.Clone(kid)
		}
	}
	return nil
}

func isLabel(label any, want int64) bool {
	switch l := label.(type) {
	case int64:
		return l == want
	case int:
		return int64(l) == want
	case uint64:
		return want >= 0 && l == uint64(want)
	default:
		return false
	}
}
