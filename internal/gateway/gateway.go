// Package gateway downloads document signer certificates from DGC style gateways.
//
// A Client implements trustlist.RemoteConnector: it calls
//
//	GET {baseURL}/trustList/DSC
//
// and returns the DER bytes of every certificate whose thumbprint matches its content.
//
// To add support for another gateway protocol:
//  1. Create a new type with Name and FetchCertificates methods
//  2. Return it from NewConnectors based on the configured URL
package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ehn-dcc-development/hcert-service/internal/config"
	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/trustlist"
)

// maxResponseSize bounds a gateway trust list response
const maxResponseSize = 16 * 1024 * 1024 // 16MB

// ErrUnexpectedStatus is returned for any non 200 gateway response
var ErrUnexpectedStatus = errors.New("gateway returned an unexpected status")

// TrustListItem is one entry of the gateway trust list response
type TrustListItem struct {
	KeyID           string    `json:"kid"`
	Timestamp       time.Time `json:"timestamp"`
	Country         string    `json:"country"`
	CertificateType string    `json:"certificateType"`

	// Thumbprint is the hex SHA-256 of the DER certificate
	Thumbprint string `json:"thumbprint"`

	// RawData is the standard base64 DER certificate
	RawData string `json:"rawData"`
}

// Client fetches document signer certificates from one gateway
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for baseURL. Requests are bounded by timeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse gateway URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("gateway URL must use http or https: %s", baseURL)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// NewConnectors creates a client for every configured gateway URL
func NewConnectors(cfg *config.ServerEnvironment, logger *slog.Logger) ([]trustlist.RemoteConnector, error) {
	connectors := make([]trustlist.RemoteConnector, 0, len(cfg.GatewayURLs))
	for _, raw := range cfg.GatewayURLs {
		c, err := NewClient(raw, cfg.GatewayTimeout, logger)
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, c)
	}
	return connectors, nil
}

func (c *Client) Name() string { return c.baseURL }

// FetchCertificates downloads the gateway trust list.
// Entries that are not DSC certificates are skipped; entries whose thumbprint does not match fail the fetch.
func (c *Client) FetchCertificates(ctx context.Context) ([][]byte, error) {
	items, err := c.fetchTrustList(ctx)
	if err != nil {
		return nil, err
	}

	certs := make([][]byte, 0, len(items))
	for _, item := range items {
		if item.CertificateType != "" && item.CertificateType != "DSC" {
			continue
		}
		der, err := base64.StdEncoding.DecodeString(item.RawData)
		if err != nil {
			return nil, fmt.Errorf("entry %s: invalid rawData: %w", item.KeyID, err)
		}
		if item.Thumbprint != "" && !crypto.VerifyHexHash(der, item.Thumbprint) {
			return nil, fmt.Errorf("entry %s: thumbprint does not match certificate", item.KeyID)
		}
		certs = append(certs, der)
	}

	c.logger.Debug("fetched gateway trust list",
		slog.String("gateway", c.baseURL),
		slog.Int("certificates", len(certs)),
	)
	return certs, nil
}

func (c *Client) fetchTrustList(ctx context.Context) ([]TrustListItem, error) {
	u, err := url.JoinPath(c.baseURL, "trustList", "DSC")
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	// #nosec G107 -- base URL comes from server config
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	var items []TrustListItem
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&items); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return items, nil
}
