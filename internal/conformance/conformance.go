// Package conformance runs the test suite of deliberately broken chains.
//
// Each Variant replaces one stage of the production chain with a faulty implementation and
// states whether a verifier should accept the resulting token. Run encodes a claims record with
// every variant and decodes the tokens with the production verifier, so an implementation under
// test can be compared against the expected outcomes.
package conformance

import (
	"log/slog"
	"time"

	"github.com/ehn-dcc-development/hcert-service/internal/chain"
	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/dgc"
)

// Expectation is the outcome a conforming verifier reports for a token
type Expectation string

const (
	ExpectGood Expectation = "GOOD"
	ExpectFail Expectation = "FAIL"
)

// Variant is a named chain configuration with its expected outcome
type Variant struct {
	Name        string
	Description string
	Expect      Expectation
	Chain       *chain.Chain
}

// Case is the outcome of one variant
type Case struct {
	Name        string                    `json:"name"`
	Description string                    `json:"description"`
	Expect      Expectation               `json:"expect"`
	Outcome     Expectation               `json:"outcome"`
	Passed      bool                      `json:"passed"`
	Token       string                    `json:"token,omitempty"`
	Result      *chain.VerificationResult `json:"result,omitempty"`
	Error       string                    `json:"error,omitempty"`
}

// Report is the outcome of a full run
type Report struct {
	Cases  []Case `json:"cases"`
	Passed int    `json:"passed"`
	Failed int    `json:"failed"`
}

// Suite holds the variants and the verifier that decodes their tokens
type Suite struct {
	variants []Variant
	verifier *chain.Chain
	logger   *slog.Logger
}

// Options configures the stages shared by every variant
type Options struct {
	Issuer            string
	Validity          time.Duration
	ContextIdentifier string
}

func (o Options) envelope() *chain.CWTEnvelopeCodec {
	return chain.NewCWTEnvelopeCodec(o.Issuer, o.Validity)
}

// NewSuite builds the variants for the providers. The first provider signs the faulty variants;
// every provider also gets a correct variant. The verifier trusts the certificates of all providers.
func NewSuite(providers []crypto.KeyProvider, opts Options, logger *slog.Logger) (*Suite, error) {
	if len(providers) == 0 {
		return nil, crypto.NewKeyManagementError("conformance suite needs at least one key provider")
	}
	if logger == nil {
		logger = slog.Default()
	}

	certs := make([]*crypto.Certificate, 0, len(providers))
	for _, p := range providers {
		certs = append(certs, p.Certificate())
	}
	repository := crypto.NewPrefilledRepository(certs...)

	verifier, err := chain.New(chain.DefaultStages(providers[0], opts.envelope(), opts.ContextIdentifier), repository, logger)
	if err != nil {
		return nil, err
	}

	variants, err := buildVariants(providers, opts, repository, logger)
	if err != nil {
		return nil, err
	}

	return &Suite{variants: variants, verifier: verifier, logger: logger}, nil
}

// Variants returns the configured variants in run order
func (s *Suite) Variants() []Variant {
	return append([]Variant(nil), s.variants...)
}

// Run encodes cert with every variant and decodes the token with the verifier
func (s *Suite) Run(cert *dgc.HealthCertificate) *Report {
	report := &Report{Cases: make([]Case, 0, len(s.variants))}

	for _, v := range s.variants {
		c := Case{Name: v.Name, Description: v.Description, Expect: v.Expect, Outcome: ExpectFail}

		res, err := v.Chain.Encode(cert)
		if err != nil {
			c.Error = err.Error()
		} else {
			c.Token = res.Token
			_, c.Result = s.verifier.Decode(res.Token)
			if c.Result.Accepted() {
				c.Outcome = ExpectGood
			}
		}

		c.Passed = c.Outcome == c.Expect
		if c.Passed {
			report.Passed++
		} else {
			report.Failed++
			s.logger.Warn("conformance case did not match its expectation",
				slog.String("variant", v.Name),
				slog.String("expect", string(v.Expect)),
				slog.String("outcome", string(c.Outcome)),
			)
		}
		report.Cases = append(report.Cases, c)
	}

	return report
}
