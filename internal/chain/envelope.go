package chain

import (
	"math"
	"time"

	"github.com/ehn-dcc-development/hcert-service/internal/codec"
)

// The health certificate map sits under CWT claim -260; the EU DGC is key 1 inside it.
// Issuer (1), expiry (4) and issued-at (6) are the RFC 8392 claim keys.
const hcertKeyV1 = 1

// Envelope is a decoded CWT
type Envelope struct {
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Claims    []byte
}

type cwtEnvelope struct {
	Issuer    string                     `cbor:"1,keyasint,omitempty"`
	ExpiresAt int64                      `cbor:"4,keyasint,omitempty"`
	IssuedAt  int64                      `cbor:"6,keyasint,omitempty"`
	HCert     map[int64]codec.RawMessage `cbor:"-260,keyasint,omitempty"`
}

// decoded separately so float NumericDates from other issuers are accepted
type cwtEnvelopeIn struct {
	Issuer    string                     `cbor:"1,keyasint"`
	ExpiresAt any                        `cbor:"4,keyasint"`
	IssuedAt  any                        `cbor:"6,keyasint"`
	HCert     map[int64]codec.RawMessage `cbor:"-260,keyasint"`
}

// CWTEnvelopeCodec puts claims under claim key -260 with issuer, issued-at and expiry
type CWTEnvelopeCodec struct {
	issuer   string
	validity time.Duration
	claimKey int64
	now      func() time.Time
}

// NewCWTEnvelopeCodec creates the production envelope codec
func NewCWTEnvelopeCodec(issuer string, validity time.Duration) *CWTEnvelopeCodec {
	return &CWTEnvelopeCodec{
		issuer:   issuer,
		validity: validity,
		claimKey: hcertKeyV1,
		now:      time.Now,
	}
}

// NewFaultyEnvelopeCodec creates an envelope codec that stores the claims under the wrong key
func NewFaultyEnvelopeCodec(issuer string, validity time.Duration) *CWTEnvelopeCodec {
	c := NewCWTEnvelopeCodec(issuer, validity)
	c.claimKey = hcertKeyV1 + 1
	return c
}

// WithClock replaces the time source
func (c *CWTEnvelopeCodec) WithClock(now func() time.Time) *CWTEnvelopeCodec {
	copied := *c
	copied.now = now
	return &copied
}

func (c *CWTEnvelopeCodec) Wrap(claims []byte) ([]byte, error) {
	if err := codec.Valid(claims); err != nil {
		return nil, WrapEncodeError(err, "claims are not well-formed CBOR")
	}

	issuedAt := c.now().UTC()
	env := cwtEnvelope{
		Issuer:    c.issuer,
		IssuedAt:  issuedAt.Unix(),
		ExpiresAt: issuedAt.Add(c.validity).Unix(),
		HCert:     map[int64]codec.RawMessage{c.claimKey: claims},
	}

	data, err := codec.Marshal(env)
	if err != nil {
		return nil, WrapEncodeError(err, "failed to encode envelope")
	}
	return data, nil
}

func (c *CWTEnvelopeCodec) Unwrap(envelope []byte) (*Envelope, error) {
	return UnwrapCWT(envelope)
}

// UnwrapCWT decodes a CWT envelope and extracts the health certificate claims
func UnwrapCWT(envelope []byte) (*Envelope, error) {
	var in cwtEnvelopeIn
	if err := codec.Unmarshal(envelope, &in); err != nil {
		return nil, WrapClaimsDecodeError(err, "failed to decode CWT envelope")
	}

	claims, ok := in.HCert[hcertKeyV1]
	if !ok || len(claims) == 0 {
		return nil, NewClaimsDecodeError("CWT envelope carries no health certificate claim")
	}

	out := &Envelope{Issuer: in.Issuer, Claims: []byte(claims)}
	if t, ok := numericDate(in.IssuedAt); ok {
		out.IssuedAt = t
	}
	if t, ok := numericDate(in.ExpiresAt); ok {
		out.ExpiresAt = t
	}
	return out, nil
}

func numericDate(v any) (time.Time, bool) {
	switch n := v.(type) {
	case uint64:
		if n > math.MaxInt64 {
			return time.Time{}, false
		}
		return time.Unix(int64(n), 0).UTC(), true
	case int64:
		return time.Unix(n, 0).UTC(), true
	case float64:
		sec, frac := math.Modf(n)
		return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
	default:
		return time.Time{}, false
	}
}
