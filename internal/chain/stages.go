package chain

import (
	"errors"

	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/dgc"
)

// ClaimCodec converts the claims record to and from its CBOR form
type ClaimCodec interface {
	EncodeClaims(cert *dgc.HealthCertificate) ([]byte, error)
	DecodeClaims(data []byte) (*dgc.HealthCertificate, error)
}

// EnvelopeCodec wraps encoded claims in a CWT with issuer and validity metadata
type EnvelopeCodec interface {
	Wrap(claims []byte) ([]byte, error)
	Unwrap(envelope []byte) (*Envelope, error)
}

// SignatureCodec signs the envelope as COSE_Sign1 and opens signed structures.
// Open returns an error only when the input is not a COSE_Sign1 structure; verification
// failures are reported in the returned SignedPayload.
type SignatureCodec interface {
	Sign(envelope []byte) ([]byte, error)
	Open(signed []byte, repository crypto.CertificateRepository) (*SignedPayload, error)
}

// Compressor compresses signed bytes. Decompress returns ErrUncompressed for input without a zlib header.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// TextCodec turns bytes into the token alphabet and back
type TextCodec interface {
	Encode(data []byte) string
	Decode(text string) ([]byte, error)
}

// ContextPrefixer adds and strips the context identifier.
// Strip returns the remainder, the recognised identifier and whether it matched the expected one.
type ContextPrefixer interface {
	Prefix(text string) string
	Strip(token string) (remainder string, identifier string, matched bool)
}

// Stages is the ordered set of stage implementations a Chain runs
type Stages struct {
	Claims     ClaimCodec
	Envelope   EnvelopeCodec
	Signature  SignatureCodec
	Compressor Compressor
	Text       TextCodec
	Prefixer   ContextPrefixer
}

// DefaultStages returns the production stages signing with provider
func DefaultStages(provider crypto.KeyProvider, envelope *CWTEnvelopeCodec, contextIdentifier string) Stages {
	return Stages{
		Claims:     CBORClaimCodec{},
		Envelope:   envelope,
		Signature:  NewCOSESignatureCodec(provider),
		Compressor: ZlibCompressor{},
		Text:       Base45Codec{},
		Prefixer:   NewIdentifierPrefixer(contextIdentifier),
	}
}

// VerifierStages returns production stages for a chain that only decodes
func VerifierStages(contextIdentifier string) Stages {
	return Stages{
		Claims:     CBORClaimCodec{},
		Envelope:   NewCWTEnvelopeCodec("", 0),
		Signature:  VerifyingSignatureCodec{},
		Compressor: ZlibCompressor{},
		Text:       Base45Codec{},
		Prefixer:   NewIdentifierPrefixer(contextIdentifier),
	}
}

func (s Stages) validate() error {
	switch {
	case s.Claims == nil:
		return errors.New("chain: claim codec is required")
	case s.Envelope == nil:
		return errors.New("chain: envelope codec is required")
	case s.Signature == nil:
		return errors.New("chain: signature codec is required")
	case s.Compressor == nil:
		return errors.New("chain: compressor is required")
	case s.Text == nil:
		return errors.New("chain: text codec is required")
	case s.Prefixer == nil:
		return errors.New("chain: context prefixer is required")
	}
	return nil
}
