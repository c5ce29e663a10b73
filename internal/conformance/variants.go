package conformance

import (
	"crypto/rsa"
	"fmt"
	"log/slog"

	"github.com/ehn-dcc-development/hcert-service/internal/chain"
	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
)

type variantSpec struct {
	name        string
	description string
	expect      Expectation
	modify      func(*chain.Stages)
}

func buildVariants(providers []crypto.KeyProvider, opts Options, repository crypto.CertificateRepository, logger *slog.Logger) ([]Variant, error) {
	primary := providers[0]

	nonVerifiable, err := chain.NewNonVerifiableSignatureCodec(primary)
	if err != nil {
		return nil, err
	}

	var specs []variantSpec
	for i, p := range providers {
		specs = append(specs, variantSpec{
			name:        fmt.Sprintf("correct-%d", i+1),
			description: fmt.Sprintf("%s key %s", keyDescription(p), p.Certificate().KeyIDString()),
			expect:      ExpectGood,
			modify:      func(s *chain.Stages) { s.Signature = chain.NewCOSESignatureCodec(p) },
		})
	}

	specs = append(specs,
		variantSpec{"faulty-cbor", "Claims that do not decode into the schema", ExpectFail,
			func(s *chain.Stages) { s.Claims = chain.FaultyClaimCodec{} }},
		variantSpec{"faulty-cwt", "Claims under the wrong CWT claim key", ExpectFail,
			func(s *chain.Stages) { s.Envelope = chain.NewFaultyEnvelopeCodec(opts.Issuer, opts.Validity) }},
		variantSpec{"non-verifiable-cose", "Signed by a key that is not in the trust list", ExpectFail,
			func(s *chain.Stages) { s.Signature = nonVerifiable }},
		variantSpec{"unprotected-cose", "KID in the unprotected header", ExpectGood,
			func(s *chain.Stages) { s.Signature = chain.NewUnprotectedCOSESignatureCodec(primary) }},
		variantSpec{"faulty-cose", "Valid COSE structure with a corrupted signature", ExpectFail,
			func(s *chain.Stages) { s.Signature = chain.NewFaultySignatureCodec(primary) }},
		variantSpec{"malformed-cose", "Not a COSE structure", ExpectFail,
			func(s *chain.Stages) { s.Signature = chain.MalformedSignatureCodec{} }},
		variantSpec{"faulty-context-identifier", "Context identifier HC2:", ExpectFail,
			func(s *chain.Stages) { s.Prefixer = chain.NewIdentifierPrefixer("HC2:") }},
		variantSpec{"noop-context-identifier", "No context identifier", ExpectGood,
			func(s *chain.Stages) { s.Prefixer = chain.NoopPrefixer{} }},
		variantSpec{"faulty-base45", "Characters outside the Base45 alphabet", ExpectFail,
			func(s *chain.Stages) { s.Text = chain.FaultyBase45Codec{} }},
		variantSpec{"faulty-compressor", "zlib stream with a broken checksum", ExpectFail,
			func(s *chain.Stages) { s.Compressor = chain.FaultyCompressor{} }},
		variantSpec{"noop-compressor", "No compression", ExpectGood,
			func(s *chain.Stages) { s.Compressor = chain.NoopCompressor{} }},
	)

	variants := make([]Variant, 0, len(specs))
	for _, spec := range specs {
		stages := chain.DefaultStages(primary, opts.envelope(), opts.ContextIdentifier)
		spec.modify(&stages)

		c, err := chain.New(stages, repository, logger)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", spec.name, err)
		}
		variants = append(variants, Variant{
			Name:        spec.name,
			Description: spec.description,
			Expect:      spec.expect,
			Chain:       c,
		})
	}
	return variants, nil
}

func keyDescription(p crypto.KeyProvider) string {
	if pub, ok := p.Certificate().PublicKey().(*rsa.PublicKey); ok {
		return fmt.Sprintf("%s (RSA %d)", p.Algorithm(), pub.N.BitLen())
	}
	return string(p.Algorithm())
}
