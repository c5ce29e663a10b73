package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
)

var kidCmd = &cobra.Command{
	Use:   "kid <cert.pem>...",
	Short: "Print the kid of certificates",
	Long: `Print the kid (first 8 bytes of the SHA-256 of the DER certificate, URL-safe base64)
and the subject of every certificate in the PEM files.

Example:
  hcert kid ./keys/chain.pem`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		certs, err := crypto.LoadCertificates(crypto.FileLoader{}, args...)
		if err != nil {
			return err
		}
		for _, cert := range certs {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", cert.KeyIDString(), cert.X509().Subject); err != nil {
				return err
			}
		}
		return nil
	},
}
