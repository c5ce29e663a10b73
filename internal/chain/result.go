package chain

import (
	"time"

	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
)

// VerificationResult records how far a token got through the decode chain.
// A fresh result is created for every Decode call.
type VerificationResult struct {
	// ContextIdentifier is the expected identifier when the token carried it, empty otherwise
	ContextIdentifier string `json:"contextIdentifier,omitempty"`
	Base45Decoded     bool   `json:"base45Decoded"`
	ZlibDecoded       bool   `json:"zlibDecoded"`
	CoseVerified      bool   `json:"coseVerified"`
	CborDecoded       bool   `json:"cborDecoded"`

	// UnexpectedContextIdentifier is a different identifier that was stripped from the token
	UnexpectedContextIdentifier string `json:"unexpectedContextIdentifier,omitempty"`

	KeyID          string    `json:"kid,omitempty"`
	KeyIDProtected bool      `json:"kidProtected"`
	KeyIDCollision bool      `json:"kidCollision,omitempty"`
	Issuer         string    `json:"issuer,omitempty"`
	IssuedAt       time.Time `json:"issuedAt,omitzero"`
	ExpiresAt      time.Time `json:"expiresAt,omitzero"`

	// Errors holds one message per stage that did not succeed
	Errors []string `json:"errors,omitempty"`
}

// Valid reports whether every stage succeeded and the expected context identifier was present
func (r *VerificationResult) Valid() bool {
	return r.ContextIdentifier != "" && r.Base45Decoded && r.ZlibDecoded && r.CoseVerified && r.CborDecoded
}

// Accepted reports whether the token was verified and its claims recovered.
// Tokens without compression, without a context identifier or with an unprotected kid are accepted;
// a token carrying a different context identifier is not.
func (r *VerificationResult) Accepted() bool {
	return r.UnexpectedContextIdentifier == "" && r.Base45Decoded && r.CoseVerified && r.CborDecoded
}

func (r *VerificationResult) addError(err error) {
	r.Errors = append(r.Errors, err.Error())
}

func (r *VerificationResult) setKeyID(p *SignedPayload) {
	if p.KeyID != nil {
		r.KeyID = crypto.EncodeKeyID(p.KeyID)
	}
	r.KeyIDProtected = p.KeyIDProtected
	r.KeyIDCollision = p.KeyIDCollision
}
