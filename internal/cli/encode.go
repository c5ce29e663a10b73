package cli

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehn-dcc-development/hcert-service/internal/chain"
	"github.com/ehn-dcc-development/hcert-service/internal/codec"
	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/dgc"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Encode a health certificate as an HC1 token",
	Long: `Encode JSON health certificate claims as a signed HC1 token and print it.

The claims are read from --claims (a file, or - for stdin) or taken from a built-in --sample.
Without --key and --cert a key pair is generated; use --write-cert to keep its certificate
so the token can be decoded later.

Example:
  hcert encode --sample vaccination --write-cert ./keys/chain.pem
  hcert encode --claims cert.json --key ./keys/chain.key --cert ./keys/chain.pem --verbose`,
	Args: cobra.NoArgs,
	RunE: runEncode,
}

var (
	encodeClaimsPath string
	encodeSample     string
	encodeKeyPath    string
	encodeCertPath   string
	encodeAlgorithm  string
	encodeIssuer     string
	encodeValidity   time.Duration
	encodeIdentifier string
	encodeVerbose    bool
	encodeWriteCert  string
)

func init() {
	encodeCmd.Flags().StringVar(&encodeClaimsPath, "claims", "", "JSON claims file, - for stdin")
	encodeCmd.Flags().StringVar(&encodeSample, "sample", "", "built-in sample: vaccination, recovery or test")
	encodeCmd.Flags().StringVar(&encodeKeyPath, "key", "", "PEM private key file")
	encodeCmd.Flags().StringVar(&encodeCertPath, "cert", "", "PEM certificate file for --key")
	encodeCmd.Flags().StringVar(&encodeAlgorithm, "alg", string(crypto.AlgorithmES256), "algorithm of a generated key (ES256, PS256, EdDSA)")
	encodeCmd.Flags().StringVar(&encodeIssuer, "issuer", "AT", "CWT issuer")
	encodeCmd.Flags().DurationVar(&encodeValidity, "validity", 365*24*time.Hour, "CWT validity")
	encodeCmd.Flags().StringVar(&encodeIdentifier, "context-identifier", chain.DefaultContextIdentifier, "token context identifier")
	encodeCmd.Flags().BoolVar(&encodeVerbose, "verbose", false, "print every encode stage as JSON")
	encodeCmd.Flags().StringVar(&encodeWriteCert, "write-cert", "", "write the certificate of a generated key to this PEM file")
	encodeCmd.MarkFlagsMutuallyExclusive("claims", "sample")
	encodeCmd.MarkFlagsOneRequired("claims", "sample")
	encodeCmd.MarkFlagsRequiredTogether("key", "cert")
}

// encodeOutput is printed by --verbose
type encodeOutput struct {
	KeyID      string `json:"kid"`
	Claims     string `json:"claims"`
	ClaimsCBOR string `json:"claimsCbor"`
	Diagnostic string `json:"envelopeDiagnostic"`
	Envelope   string `json:"envelope"`
	COSE       string `json:"cose"`
	Compressed string `json:"compressed"`
	Base45     string `json:"base45"`
	Token      string `json:"token"`
}

func runEncode(cmd *cobra.Command, args []string) error {
	cert, err := readClaims(cmd.InOrStdin(), encodeClaimsPath, encodeSample)
	if err != nil {
		return err
	}

	alg, err := crypto.ParseAlgorithm(encodeAlgorithm)
	if err != nil {
		return err
	}

	signer, err := loadSigner(encodeKeyPath, encodeCertPath, alg)
	if err != nil {
		return err
	}

	if encodeWriteCert != "" {
		dir, file := filepath.Split(encodeWriteCert)
		if dir == "" {
			dir = "."
		}
		if err := crypto.SaveCertificateToPEMFile(signer.Certificate(), dir, file); err != nil {
			return fmt.Errorf("failed to write certificate: %w", err)
		}
		appLogger.Info("certificate written", slog.String("path", encodeWriteCert))
	}

	envelope := chain.NewCWTEnvelopeCodec(encodeIssuer, encodeValidity)
	c, err := chain.New(chain.DefaultStages(signer, envelope, encodeIdentifier), nil, appLogger)
	if err != nil {
		return err
	}

	res, err := c.Encode(cert)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	out := cmd.OutOrStdout()
	if !encodeVerbose {
		_, err = fmt.Fprintln(out, res.Token)
		return err
	}

	canonical, err := cert.CanonicalJSON()
	if err != nil {
		return err
	}
	diagnostic, err := codec.Diagnose(res.Envelope)
	if err != nil {
		return fmt.Errorf("failed to diagnose envelope: %w", err)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(encodeOutput{
		KeyID:      signer.Certificate().KeyIDString(),
		Claims:     string(canonical),
		ClaimsCBOR: hex.EncodeToString(res.ClaimsCBOR),
		Diagnostic: diagnostic,
		Envelope:   hex.EncodeToString(res.Envelope),
		COSE:       hex.EncodeToString(res.COSE),
		Compressed: hex.EncodeToString(res.Compressed),
		Base45:     res.Base45,
		Token:      res.Token,
	})
}

// readClaims reads JSON claims from a file, stdin (path "-") or a built-in sample
func readClaims(stdin io.Reader, path, sample string) (*dgc.HealthCertificate, error) {
	if sample != "" {
		data, ok := dgc.Samples[sample]
		if !ok {
			return nil, fmt.Errorf("unknown sample %q", sample)
		}
		return dgc.ParseJSON([]byte(data))
	}

	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path) // #nosec G304 -- path is supplied by the CLI user
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read claims: %w", err)
	}
	return dgc.ParseJSON(data)
}

// loadSigner loads a key pair from PEM files or generates one when no files are given
func loadSigner(keyPath, certPath string, alg crypto.Algorithm) (*crypto.KeyPair, error) {
	if keyPath != "" {
		kp, err := crypto.LoadKeyPair(crypto.FileLoader{}, keyPath, certPath)
		if err != nil {
			return nil, err
		}
		appLogger.Debug("key pair loaded", slog.String("kid", kp.Certificate().KeyIDString()))
		return kp, nil
	}

	kp, err := crypto.GenerateKeyPair(alg, crypto.CertificateOptions{CommonName: "hcert cli"})
	if err != nil {
		return nil, err
	}
	appLogger.Warn("no key given, signing with a generated key",
		slog.String("kid", kp.Certificate().KeyIDString()),
		slog.String("algorithm", string(alg)),
	)
	return kp, nil
}
