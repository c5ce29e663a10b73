package chain

import (
	"github.com/ehn-dcc-development/hcert-service/internal/codec"
	"github.com/ehn-dcc-development/hcert-service/internal/dgc"
)

// CBORClaimCodec encodes claims with deterministic CBOR
type CBORClaimCodec struct{}

func (CBORClaimCodec) EncodeClaims(cert *dgc.HealthCertificate) ([]byte, error) {
	if cert == nil {
		return nil, NewEncodeError("claims are nil")
	}
	data, err := codec.Marshal(cert)
	if err != nil {
		return nil, WrapEncodeError(err, "failed to encode claims")
	}
	return data, nil
}

func (CBORClaimCodec) DecodeClaims(data []byte) (*dgc.HealthCertificate, error) {
	var cert dgc.HealthCertificate
	if err := codec.Unmarshal(data, &cert); err != nil {
		return nil, WrapClaimsDecodeError(err, "failed to decode claims")
	}
	return &cert, nil
}

// FaultyClaimCodec emits well-formed CBOR that does not decode into the claims schema
type FaultyClaimCodec struct {
	CBORClaimCodec
}

func (FaultyClaimCodec) EncodeClaims(cert *dgc.HealthCertificate) ([]byte, error) {
	if cert == nil {
		return nil, NewEncodeError("claims are nil")
	}
	data, err := codec.Marshal([]any{cert.Version, cert.DateOfBirth, cert.Name.FamilyNameTransliterated})
	if err != nil {
		return nil, WrapEncodeError(err, "failed to encode claims")
	}
	return data, nil
}
