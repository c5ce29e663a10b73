// Package chain turns health certificate claims into HC1 tokens and back.
//
// Encoding runs six stages in a fixed order:
//
//	claims -> CBOR -> CWT envelope -> COSE_Sign1 -> zlib -> Base45 -> context identifier
//
// Decoding runs them in reverse and is best effort: it records in a VerificationResult how far
// the token got, and returns whatever claims could be recovered even when the signature does
// not verify. Every stage is an interface so the conformance suite can swap in faulty variants.
package chain

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/dgc"
)

// MaxTokenLength bounds the token size accepted by Decode
const MaxTokenLength = 64 * 1024

// Chain runs a configured set of stages.
// It holds no per-call state and is safe for concurrent use.
type Chain struct {
	stages     Stages
	repository crypto.CertificateRepository
	logger     *slog.Logger
}

// Result holds the token and every intermediate artifact of an Encode call
type Result struct {
	ClaimsCBOR []byte
	Envelope   []byte
	COSE       []byte
	Compressed []byte
	Base45     string
	Token      string
}

// New creates a chain. repository resolves kids during Decode and may be nil for encode-only chains.
func New(stages Stages, repository crypto.CertificateRepository, logger *slog.Logger) (*Chain, error) {
	if err := stages.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{stages: stages, repository: repository, logger: logger}, nil
}

// Encode runs every encode stage. Any stage failure aborts the call.
func (c *Chain) Encode(cert *dgc.HealthCertificate) (*Result, error) {
	claims, err := c.stages.Claims.EncodeClaims(cert)
	if err != nil {
		return nil, err
	}

	envelope, err := c.stages.Envelope.Wrap(claims)
	if err != nil {
		return nil, err
	}

	signed, err := c.stages.Signature.Sign(envelope)
	if err != nil {
		return nil, err
	}

	compressed, err := c.stages.Compressor.Compress(signed)
	if err != nil {
		return nil, err
	}

	text := c.stages.Text.Encode(compressed)

	return &Result{
		ClaimsCBOR: claims,
		Envelope:   envelope,
		COSE:       signed,
		Compressed: compressed,
		Base45:     text,
		Token:      c.stages.Prefixer.Prefix(text),
	}, nil
}

// Decode runs the decode stages as far as the token allows.
// The claims are returned whenever the envelope decodes, whether or not the signature verified.
func (c *Chain) Decode(token string) (*dgc.HealthCertificate, *VerificationResult) {
	result := &VerificationResult{}

	if len(token) > MaxTokenLength {
		result.addError(NewStructuralDecodeError(fmt.Sprintf("token exceeds %d bytes", MaxTokenLength)))
		return nil, result
	}

	text, identifier, matched := c.stages.Prefixer.Strip(token)
	if matched {
		result.ContextIdentifier = identifier
	} else if identifier != "" {
		result.UnexpectedContextIdentifier = identifier
		result.addError(fmt.Errorf("unexpected context identifier %q", identifier))
	} else {
		result.addError(errors.New("token carries no context identifier"))
	}

	compressed, err := c.stages.Text.Decode(text)
	if err != nil {
		result.addError(err)
		return nil, result
	}
	result.Base45Decoded = true

	signed, err := c.stages.Compressor.Decompress(compressed)
	switch {
	case errors.Is(err, ErrUncompressed):
		result.addError(err)
		signed = compressed
	case err != nil:
		result.addError(err)
		return nil, result
	default:
		result.ZlibDecoded = true
	}

	payload, err := c.stages.Signature.Open(signed, c.repository)
	if err != nil {
		result.addError(err)
		return nil, result
	}
	result.setKeyID(payload)
	if payload.KeyIDCollision {
		c.logger.Warn("kid shared by several certificates, using the first one",
			slog.String("kid", result.KeyID))
	}
	if payload.Verified {
		result.CoseVerified = true
	} else if payload.VerifyErr != nil {
		result.addError(payload.VerifyErr)
	}

	envelope, err := c.stages.Envelope.Unwrap(payload.Payload)
	if err != nil {
		result.addError(err)
		return nil, result
	}
	result.Issuer = envelope.Issuer
	result.IssuedAt = envelope.IssuedAt
	result.ExpiresAt = envelope.ExpiresAt

	cert, err := c.stages.Claims.DecodeClaims(envelope.Claims)
	if err != nil {
		result.addError(err)
		return nil, result
	}
	result.CborDecoded = true

	return cert, result
}
