package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/trustlist"
)

// trustListIDHeader is set by hcert-server on /cert/listv2 and /cert/sigv2
const trustListIDHeader = "X-Trust-List-Id"

var trustListCmd = &cobra.Command{
	Use:   "trustlist",
	Short: "Verify trust lists",
	Long:  `Verify trust lists published by hcert-server`,
}

var trustListVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a downloaded trust list",
	Long: `Verify a trust list content and signature against the anchor certificates
and print the kid and subject of every listed certificate.

Example:
  hcert trustlist verify --list listv2.cbor --signature sigv2.cose --anchor ./keys/trustlist.pem`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := verifyTrustListFiles(crypto.FileLoader{}, trustListContentPath, trustListSignaturePath, trustListAnchors, time.Now())
		if err != nil {
			return err
		}
		return printCertificates(cmd.OutOrStdout(), repo)
	},
}

var trustListFetchCmd = &cobra.Command{
	Use:   "fetch <server-url>",
	Short: "Download and verify the trust list of a server",
	Long: `Download /cert/listv2 and /cert/sigv2 from an hcert-server, check that both belong to
the same snapshot, verify them against the anchor certificates and print the listed certificates.

Example:
  hcert trustlist fetch http://localhost:8080 --anchor ./keys/trustlist.pem`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		anchors, err := crypto.LoadCertificates(crypto.FileLoader{}, trustListAnchors...)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), trustListTimeout)
		defer cancel()

		repo, err := fetchTrustList(ctx, &http.Client{}, args[0], crypto.NewPrefilledRepository(anchors...), time.Now())
		if err != nil {
			return err
		}
		return printCertificates(cmd.OutOrStdout(), repo)
	},
}

var (
	trustListContentPath   string
	trustListSignaturePath string
	trustListAnchors       []string
	trustListTimeout       time.Duration
)

func init() {
	trustListVerifyCmd.Flags().StringVar(&trustListContentPath, "list", "", "trust list content file (/cert/listv2) [required]")
	trustListVerifyCmd.Flags().StringVar(&trustListSignaturePath, "signature", "", "trust list signature file (/cert/sigv2) [required]")
	trustListVerifyCmd.MarkFlagRequired("list")
	trustListVerifyCmd.MarkFlagRequired("signature")

	trustListFetchCmd.Flags().DurationVar(&trustListTimeout, "timeout", 10*time.Second, "download timeout")

	for _, c := range []*cobra.Command{trustListVerifyCmd, trustListFetchCmd} {
		c.Flags().StringSliceVar(&trustListAnchors, "anchor", nil, "PEM certificates trusted to sign the trust list [required]")
		c.MarkFlagRequired("anchor")
		trustListCmd.AddCommand(c)
	}
}

// fetchTrustList downloads the content and signature of a server trust list and verifies them.
// The download is retried once when the two responses come from different snapshots.
func fetchTrustList(ctx context.Context, client *http.Client, baseURL string, anchors crypto.CertificateRepository, now time.Time) (*crypto.PrefilledRepository, error) {
	baseURL = strings.TrimRight(baseURL, "/")

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		content, contentID, err := download(ctx, client, baseURL+"/cert/listv2")
		if err != nil {
			return nil, err
		}
		signature, signatureID, err := download(ctx, client, baseURL+"/cert/sigv2")
		if err != nil {
			return nil, err
		}

		if contentID != signatureID {
			lastErr = fmt.Errorf("trust list content (%s) and signature (%s) come from different snapshots", contentID, signatureID)
			appLogger.Info("trust list changed during download, retrying", slog.String("error", lastErr.Error()))
			continue
		}
		appLogger.Debug("trust list downloaded", slog.String("id", contentID))

		return trustlist.Verify(signature, content, anchors, now)
	}
	return nil, lastErr
}

func download(ctx context.Context, client *http.Client, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	// #nosec G107 -- the URL is supplied by the CLI user
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%s returned status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, crypto.MaxResourceSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", url, err)
	}
	return body, resp.Header.Get(trustListIDHeader), nil
}

func printCertificates(w io.Writer, repo *crypto.PrefilledRepository) error {
	for _, cert := range repo.Certificates() {
		if _, err := fmt.Fprintf(w, "%s\t%s\n", cert.KeyIDString(), cert.X509().Subject); err != nil {
			return err
		}
	}
	return nil
}
