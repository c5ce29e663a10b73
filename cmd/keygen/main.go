// keygen is a CLI tool for generating signing keys and self-signed certificates for the chain and trust list signers.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	hcrypto "github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/version"
)

// file naming convention - name.key.pem, name.cert.pem and name.public.jwk
const (
	privateKeyFileNameFormat  = "%s.key.pem"
	certificateFileNameFormat = "%s.cert.pem"
	publicJWKFileNameFormat   = "%s.public.jwk"
)

var (
	name       string
	outputDir  string
	algorithm  string
	commonName string
	country    string
	validity   time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "keygen",
		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
		Short:             "Signing key generator for hcert-server",
		Long:              "Generate ES256, PS256 or EdDSA signing keys with self-signed certificates for the token chain and the trust list",
	}

	v := version.Get()
	rootCmd.Version = fmt.Sprintf("%s (built %s, commit %s)", v.Version, v.BuildDate, v.GitCommit)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new key pair",
		Long: `Generate a new key pair and self-signed certificate.

The files can be used as CHAIN_KEY_PATH/CHAIN_CERT_PATH or TRUST_LIST_KEY_PATH/TRUST_LIST_CERT_PATH.

Example:
  keygen generate --name chain --alg ES256 --outputdir ./keys`,
		RunE: runGenerate,
	}

	generateCmd.Flags().StringVarP(&name, "name", "n", "", "File name prefix (e.g., chain) [required]")
	generateCmd.Flags().StringVarP(&algorithm, "alg", "a", string(hcrypto.AlgorithmES256), "Algorithm: ES256, PS256 or EdDSA")
	generateCmd.Flags().StringVarP(&outputDir, "outputdir", "o", "", "Output directory for generated keys [required]")
	generateCmd.Flags().StringVar(&commonName, "cn", "hcert-service", "Certificate common name")
	generateCmd.Flags().StringVar(&country, "country", "AT", "Certificate country")
	generateCmd.Flags().DurationVar(&validity, "validity", 2*365*24*time.Hour, "Certificate validity")
	generateCmd.MarkFlagRequired("name")
	generateCmd.MarkFlagRequired("outputdir")

	rootCmd.AddCommand(generateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	alg, err := hcrypto.ParseAlgorithm(algorithm)
	if err != nil {
		return fmt.Errorf("invalid algorithm: %s (must be ES256, PS256 or EdDSA)", algorithm)
	}
	if filepath.Base(name) != name {
		return fmt.Errorf("invalid name: %s (must not contain a path)", name)
	}

	// make the directory if it doesn't exist
	if _, err := os.Stat(outputDir); os.IsNotExist(err) {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	fmt.Printf("Generating %s key pair: %s\n", alg, name)

	key, err := hcrypto.GenerateSigningKey(alg)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}

	cert, err := hcrypto.CreateSelfSignedCertificate(key, hcrypto.CertificateOptions{
		CommonName: commonName,
		Country:    country,
		Validity:   validity,
	})
	if err != nil {
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	keyFile := fmt.Sprintf(privateKeyFileNameFormat, name)
	if err := hcrypto.SavePrivateKeyToPEMFile(key, outputDir, keyFile); err != nil {
		return fmt.Errorf("failed to save private key: %w", err)
	}
	fmt.Printf("✓ Private key: %s\n", filepath.Join(outputDir, keyFile))

	certFile := fmt.Sprintf(certificateFileNameFormat, name)
	if err := hcrypto.SaveCertificateToPEMFile(cert, outputDir, certFile); err != nil {
		return fmt.Errorf("failed to save certificate: %w", err)
	}
	fmt.Printf("✓ Certificate: %s (kid: %s)\n", filepath.Join(outputDir, certFile), cert.KeyIDString())

	publicJWK, err := hcrypto.CertificateToJWK(cert)
	if err != nil {
		return fmt.Errorf("failed to create JWK: %w", err)
	}
	jwkJSON, err := json.MarshalIndent(publicJWK, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JWK: %w", err)
	}
	jwkPath := filepath.Join(outputDir, fmt.Sprintf(publicJWKFileNameFormat, name))
	if err := os.WriteFile(jwkPath, jwkJSON, 0644); err != nil { // #nosec G306 -- public key
		return fmt.Errorf("failed to save JWK: %w", err)
	}
	fmt.Printf("✓ Public JWK:  %s\n", jwkPath)

	return nil
}
