//go:build integration

package integration

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/trustlist"
)

// getBody fetches url and returns the body and the trust list id header
func getBody(t *testing.T, url string, accept string) ([]byte, string, int) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("failed to call %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return body, resp.Header.Get("X-Trust-List-Id"), resp.StatusCode
}

func fetchVerifiedTrustList(t *testing.T, testEnv *testEnv) (*crypto.PrefilledRepository, string) {
	t.Helper()

	// the list is republished every 200ms, retry until content and signature come from the same snapshot
	for range 10 {
		content, contentID, _ := getBody(t, testEnv.baseURL+"/cert/listv2", "")
		signature, signatureID, _ := getBody(t, testEnv.baseURL+"/cert/sigv2", "")
		if contentID != signatureID {
			continue
		}

		anchors := crypto.NewPrefilledRepository(testEnv.trustListKey.Certificate())
		repo, err := trustlist.Verify(signature, content, anchors, time.Now())
		if err != nil {
			t.Fatalf("trust list does not verify: %v", err)
		}
		return repo, contentID
	}
	t.Fatal("could not download a matching content and signature pair")
	return nil, ""
}

func TestTrustListContainsEveryCertificateSource(t *testing.T) {
	testEnv := startInProcessServer(t)
	defer testEnv.shutdown()

	repo, _ := fetchVerifiedTrustList(t, testEnv)

	tests := []struct {
		name string
		cert *crypto.Certificate
	}{
		{"local chain key", testEnv.chainKey.Certificate()},
		{"external certificate", testEnv.externalCert},
		{"gateway certificate", testEnv.gatewayKey.Certificate()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certs, err := repo.LoadCertificates(tt.cert.KeyID())
			if err != nil {
				t.Fatalf("certificate not in trust list: %v", err)
			}
			if !certs[0].Equal(tt.cert) {
				t.Errorf("trust list holds a different certificate for kid %s", tt.cert.KeyIDString())
			}
		})
	}

	// chain key, two conformance keys, external and gateway certificates
	if got := len(repo.Certificates()); got != 5 {
		t.Errorf("expected 5 certificates in the trust list, got %d", got)
	}
}

func TestTrustListIsRepublished(t *testing.T) {
	testEnv := startInProcessServer(t)
	defer testEnv.shutdown()

	_, firstID := fetchVerifiedTrustList(t, testEnv)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		_, id, _ := getBody(t, testEnv.baseURL+"/cert/listv2", "")
		if id != firstID {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("trust list %s was not republished", firstID)
}

func TestTrustListSurvivesGatewayOutage(t *testing.T) {
	testEnv := startInProcessServer(t)
	defer testEnv.shutdown()

	_, firstID := fetchVerifiedTrustList(t, testEnv)
	testEnv.gatewayDown.Store(true)

	// several refreshes fail while the gateway is down
	time.Sleep(time.Second)

	repo, id := fetchVerifiedTrustList(t, testEnv)
	if id != firstID {
		t.Logf("trust list %s replaced by %s during the outage", firstID, id)
		t.Fatal("a failed refresh must keep the published trust list")
	}
	if _, err := repo.LoadCertificates(testEnv.gatewayKey.KeyID()); err != nil {
		t.Errorf("gateway certificate dropped during the outage: %v", err)
	}

	metrics, _, _ := getBody(t, testEnv.baseURL+"/metrics", "")
	if !containsLine(string(metrics), "hcert_trustlist_remote_fetch_failures_total") {
		t.Errorf("remote fetch failures are not exported")
	}
}

func TestCertificateByKeyID(t *testing.T) {
	testEnv := startInProcessServer(t)
	defer testEnv.shutdown()

	cert := testEnv.gatewayKey.Certificate()

	tests := []struct {
		name       string
		kid        string
		accept     string
		wantStatus int
		wantBody   string
	}{
		{"der", cert.KeyIDString(), "", http.StatusOK, string(cert.Raw())},
		{"base64", cert.KeyIDString(), "text/plain", http.StatusOK, base64.StdEncoding.EncodeToString(cert.Raw())},
		{"padded kid", base64.URLEncoding.EncodeToString(cert.KeyID()), "", http.StatusOK, string(cert.Raw())},
		{"unknown kid", "AAAAAAAAAAA", "", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _, status := getBody(t, fmt.Sprintf("%s/cert/%s", testEnv.baseURL, tt.kid), tt.accept)
			if status != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, status, body)
			}
			if tt.wantBody != "" && string(body) != tt.wantBody {
				t.Errorf("unexpected certificate body")
			}
		})
	}
}
