package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehn-dcc-development/hcert-service/internal/chain"
	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/dgc"
	"github.com/ehn-dcc-development/hcert-service/internal/trustlist"
)

var decodeCmd = &cobra.Command{
	Use:   "decode [token]",
	Short: "Decode and verify an HC1 token",
	Long: `Decode an HC1 token and verify its signature.

The token is taken from the argument or read from stdin. Signatures are verified against
the --cert PEM files and, when given, the certificates of a verified trust list.
The result is printed as JSON; the command fails when the token is not accepted.

Example:
  hcert decode --cert ./keys/chain.pem "HC1:6BFOXN..."
  hcert decode --list listv2.cbor --signature sigv2.cose --anchor ./keys/trustlist.pem < token.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDecode,
}

var (
	decodeCerts      []string
	decodeList       string
	decodeSignature  string
	decodeAnchors    []string
	decodeIdentifier string
)

func init() {
	decodeCmd.Flags().StringSliceVar(&decodeCerts, "cert", nil, "trusted PEM certificate files")
	decodeCmd.Flags().StringVar(&decodeList, "list", "", "trust list content file (/cert/listv2)")
	decodeCmd.Flags().StringVar(&decodeSignature, "signature", "", "trust list signature file (/cert/sigv2)")
	decodeCmd.Flags().StringSliceVar(&decodeAnchors, "anchor", nil, "PEM certificates trusted to sign the trust list")
	decodeCmd.Flags().StringVar(&decodeIdentifier, "context-identifier", chain.DefaultContextIdentifier, "expected context identifier")
	decodeCmd.MarkFlagsRequiredTogether("list", "signature", "anchor")
}

// decodeOutput is the JSON printed by decode
type decodeOutput struct {
	Valid    bool                      `json:"valid"`
	Accepted bool                      `json:"accepted"`
	Result   *chain.VerificationResult `json:"result"`
	Claims   *dgc.HealthCertificate    `json:"claims,omitempty"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	token, err := readToken(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	repository, err := trustedCertificates(decodeCerts, decodeList, decodeSignature, decodeAnchors, time.Now())
	if err != nil {
		return err
	}

	c, err := chain.New(chain.VerifierStages(decodeIdentifier), repository, appLogger)
	if err != nil {
		return err
	}

	claims, result := c.Decode(token)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(decodeOutput{
		Valid:    result.Valid(),
		Accepted: result.Accepted(),
		Result:   result,
		Claims:   claims,
	}); err != nil {
		return err
	}

	if !result.Accepted() {
		return fmt.Errorf("token not accepted: %s", strings.Join(result.Errors, "; "))
	}
	return nil
}

func readToken(stdin io.Reader, args []string) (string, error) {
	if len(args) == 1 {
		return strings.TrimSpace(args[0]), nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, chain.MaxTokenLength+1))
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("no token given")
	}
	return token, nil
}

// trustedCertificates merges the --cert files with the certificates of a verified trust list
func trustedCertificates(certPaths []string, listPath, signaturePath string, anchorPaths []string, now time.Time) (*crypto.PrefilledRepository, error) {
	loader := crypto.FileLoader{}

	certs, err := crypto.LoadCertificates(loader, certPaths...)
	if err != nil {
		return nil, err
	}

	if listPath != "" {
		listed, err := verifyTrustListFiles(loader, listPath, signaturePath, anchorPaths, now)
		if err != nil {
			return nil, err
		}
		certs = append(certs, listed.Certificates()...)
	}

	return crypto.NewPrefilledRepository(crypto.DedupeCertificates(certs)...), nil
}

// verifyTrustListFiles reads a trust list content and signature and verifies them against the anchors
func verifyTrustListFiles(loader crypto.ResourceLoader, listPath, signaturePath string, anchorPaths []string, now time.Time) (*crypto.PrefilledRepository, error) {
	anchors, err := crypto.LoadCertificates(loader, anchorPaths...)
	if err != nil {
		return nil, err
	}
	content, err := loader.Read(listPath)
	if err != nil {
		return nil, err
	}
	signature, err := loader.Read(signaturePath)
	if err != nil {
		return nil, err
	}
	return trustlist.Verify(signature, content, crypto.NewPrefilledRepository(anchors...), now)
}
