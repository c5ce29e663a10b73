// Package dgc defines the health certificate claims carried inside a token.
//
// Field names follow the EU digital green certificate JSON schema. The CBOR
// encoding uses the same keys so JSON input and CBOR claims map one to one.
package dgc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// HealthCertificate is the claims record carried by a token.
// A certificate holds vaccination, test or recovery entries (usually exactly one list is populated).
type HealthCertificate struct {
	Version      string        `json:"ver" cbor:"ver"`
	Name         Name          `json:"nam" cbor:"nam"`
	DateOfBirth  string        `json:"dob" cbor:"dob"`
	Vaccinations []Vaccination `json:"v,omitempty" cbor:"v,omitempty"`
	Tests        []Test        `json:"t,omitempty" cbor:"t,omitempty"`
	Recoveries   []Recovery    `json:"r,omitempty" cbor:"r,omitempty"`
}

type Name struct {
	FamilyName               string `json:"fn,omitempty" cbor:"fn,omitempty"`
	FamilyNameTransliterated string `json:"fnt" cbor:"fnt"`
	GivenName                string `json:"gn,omitempty" cbor:"gn,omitempty"`
	GivenNameTransliterated  string `json:"gnt,omitempty" cbor:"gnt,omitempty"`
}

type Vaccination struct {
	Target        string `json:"tg" cbor:"tg"`
	Vaccine       string `json:"vp" cbor:"vp"`
	Product       string `json:"mp" cbor:"mp"`
	Manufacturer  string `json:"ma" cbor:"ma"`
	DoseNumber    int    `json:"dn" cbor:"dn"`
	TotalDoses    int    `json:"sd" cbor:"sd"`
	Date          string `json:"dt" cbor:"dt"`
	Country       string `json:"co" cbor:"co"`
	Issuer        string `json:"is" cbor:"is"`
	CertificateID string `json:"ci" cbor:"ci"`
}

type Test struct {
	Target          string `json:"tg" cbor:"tg"`
	TestType        string `json:"tt" cbor:"tt"`
	Name            string `json:"nm,omitempty" cbor:"nm,omitempty"`
	Device          string `json:"ma,omitempty" cbor:"ma,omitempty"`
	SampleCollected string `json:"sc" cbor:"sc"`
	Result          string `json:"tr" cbor:"tr"`
	Facility        string `json:"tc,omitempty" cbor:"tc,omitempty"`
	Country         string `json:"co" cbor:"co"`
	Issuer          string `json:"is" cbor:"is"`
	CertificateID   string `json:"ci" cbor:"ci"`
}

type Recovery struct {
	Target        string `json:"tg" cbor:"tg"`
	FirstPositive string `json:"fr" cbor:"fr"`
	Country       string `json:"co" cbor:"co"`
	Issuer        string `json:"is" cbor:"is"`
	ValidFrom     string `json:"df" cbor:"df"`
	ValidUntil    string `json:"du" cbor:"du"`
	CertificateID string `json:"ci" cbor:"ci"`
}

// ParseJSON decodes a certificate from JSON. Unknown fields are ignored.
func ParseJSON(data []byte) (*HealthCertificate, error) {
	var cert HealthCertificate
	if err := json.Unmarshal(bytes.TrimSpace(data), &cert); err != nil {
		return nil, fmt.Errorf("failed to parse certificate JSON: %w", err)
	}
	if err := cert.Validate(); err != nil {
		return nil, err
	}
	return &cert, nil
}

// Validate checks the fields every certificate needs
func (c *HealthCertificate) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("certificate version (ver) is required")
	}
	if c.Name.FamilyNameTransliterated == "" {
		return fmt.Errorf("transliterated family name (nam.fnt) is required")
	}
	if c.DateOfBirth == "" {
		return fmt.Errorf("date of birth (dob) is required")
	}
	if len(c.Vaccinations)+len(c.Tests)+len(c.Recoveries) == 0 {
		return fmt.Errorf("certificate must contain a vaccination, test or recovery entry")
	}
	return nil
}

// CanonicalJSON returns the RFC 8785 canonical JSON form of the certificate
func (c *HealthCertificate) CanonicalJSON() ([]byte, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal certificate: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize certificate: %w", err)
	}
	return canonical, nil
}
