package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
	"github.com/ehn-dcc-development/hcert-service/internal/dgc"
	"github.com/ehn-dcc-development/hcert-service/internal/trustlist"
)

func TestReadClaims(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "claims.json")
	if err := os.WriteFile(path, []byte(dgc.SampleTest), 0600); err != nil {
		t.Fatalf("could not write claims: %v", err)
	}

	tests := []struct {
		name    string
		stdin   string
		path    string
		sample  string
		wantErr bool
	}{
		{name: "sample", sample: "vaccination"},
		{name: "file", path: path},
		{name: "stdin", path: "-", stdin: dgc.SampleRecovery},
		{name: "unknown sample", sample: "passport", wantErr: true},
		{name: "missing file", path: filepath.Join(dir, "missing.json"), wantErr: true},
		{name: "invalid stdin", path: "-", stdin: `{"ver":"1.2.1"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cert, err := readClaims(strings.NewReader(tt.stdin), tt.path, tt.sample)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("could not read claims: %v", err)
			}
			if cert.Name.FamilyNameTransliterated == "" {
				t.Errorf("claims are incomplete: %+v", cert)
			}
		})
	}
}

func TestReadToken(t *testing.T) {
	token, err := readToken(strings.NewReader(" HC1:ABC\n"), nil)
	if err != nil || token != "HC1:ABC" {
		t.Errorf("got %q, %v from stdin", token, err)
	}
	token, err = readToken(strings.NewReader(""), []string{"HC1:XYZ "})
	if err != nil || token != "HC1:XYZ" {
		t.Errorf("got %q, %v from args", token, err)
	}
	if _, err := readToken(strings.NewReader("  "), nil); err == nil {
		t.Error("expected an error for an empty token")
	}
}

func TestEncodeDecodeCommands(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "chain.pem")

	var encoded bytes.Buffer
	rootCmd.SetOut(&encoded)
	rootCmd.SetArgs([]string{"encode", "--sample", "vaccination", "--alg", "EdDSA", "--write-cert", certPath})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	token := strings.TrimSpace(encoded.String())
	if !strings.HasPrefix(token, "HC1:") {
		t.Fatalf("encode printed %q, want an HC1 token", token)
	}

	var decoded bytes.Buffer
	rootCmd.SetOut(&decoded)
	rootCmd.SetArgs([]string{"decode", "--cert", certPath, token})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("decode failed: %v\n%s", err, decoded.String())
	}

	var out decodeOutput
	if err := json.Unmarshal(decoded.Bytes(), &out); err != nil {
		t.Fatalf("could not parse decode output: %v", err)
	}
	if !out.Valid || !out.Accepted {
		t.Errorf("token did not verify: %v", out.Result.Errors)
	}
	if out.Claims == nil || out.Claims.DateOfBirth != "1998-02-26" {
		t.Errorf("claims not recovered: %+v", out.Claims)
	}

	var kids bytes.Buffer
	rootCmd.SetOut(&kids)
	rootCmd.SetArgs([]string{"kid", certPath})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("kid failed: %v", err)
	}
	if !strings.HasPrefix(kids.String(), out.Result.KeyID+"\t") {
		t.Errorf("kid printed %q, want it to start with %s", kids.String(), out.Result.KeyID)
	}
}

func TestDecodeCommandFailsWithoutTrustedCertificate(t *testing.T) {
	// flag values persist on the package level commands between tests
	decodeCerts = nil

	var encoded bytes.Buffer
	rootCmd.SetOut(&encoded)
	rootCmd.SetArgs([]string{"encode", "--sample", "test", "--alg", "ES256", "--write-cert", ""})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var decoded bytes.Buffer
	rootCmd.SetOut(&decoded)
	rootCmd.SetArgs([]string{"decode", strings.TrimSpace(encoded.String())})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected decode to fail without a trusted certificate")
	}

	var out decodeOutput
	if err := json.Unmarshal(decoded.Bytes(), &out); err != nil {
		t.Fatalf("could not parse decode output: %v", err)
	}
	if out.Result.CoseVerified || !out.Result.CborDecoded {
		t.Errorf("expected recovered claims without verification, got %+v", out.Result)
	}
}

func TestEncodeCommandVerbose(t *testing.T) {
	encodeWriteCert = ""
	t.Cleanup(func() {
		encodeVerbose = false
		encodeIssuer = "AT"
	})

	var encoded bytes.Buffer
	rootCmd.SetOut(&encoded)
	rootCmd.SetArgs([]string{"encode", "--sample", "recovery", "--alg", "PS256", "--issuer", "DE", "--verbose"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var out encodeOutput
	if err := json.Unmarshal(encoded.Bytes(), &out); err != nil {
		t.Fatalf("could not parse encode output: %v", err)
	}
	if !strings.HasPrefix(out.Token, "HC1:") || out.Token != "HC1:"+out.Base45 {
		t.Errorf("token %q does not match base45 %q", out.Token, out.Base45)
	}
	if !strings.Contains(out.Diagnostic, `1: "DE"`) || !strings.Contains(out.Diagnostic, "-260: {1: {") {
		t.Errorf("unexpected envelope diagnostic: %s", out.Diagnostic)
	}

	want, err := dgc.MustParseSample("recovery").CanonicalJSON()
	if err != nil {
		t.Fatalf("could not canonicalize sample: %v", err)
	}
	if out.Claims != string(want) {
		t.Errorf("got claims %s, want %s", out.Claims, want)
	}
}

func newTestAggregator(t *testing.T) (*trustlist.Aggregator, *crypto.KeyPair, *crypto.KeyPair) {
	t.Helper()
	signer, err := crypto.GenerateKeyPair(crypto.AlgorithmES256, crypto.CertificateOptions{CommonName: "trust list"})
	if err != nil {
		t.Fatalf("could not generate trust list key: %v", err)
	}
	local, err := crypto.GenerateKeyPair(crypto.AlgorithmES256, crypto.CertificateOptions{CommonName: "chain"})
	if err != nil {
		t.Fatalf("could not generate chain key: %v", err)
	}
	agg, err := trustlist.NewAggregator(context.Background(), trustlist.Config{
		Signer:         signer,
		Local:          []crypto.KeyProvider{local},
		Validity:       time.Hour,
		Interval:       time.Minute,
		RefreshTimeout: time.Second,
	}, nil, nil)
	if err != nil {
		t.Fatalf("could not create aggregator: %v", err)
	}
	return agg, signer, local
}

func TestVerifyTrustListFiles(t *testing.T) {
	agg, signer, local := newTestAggregator(t)
	dir := t.TempDir()

	snapshot := agg.Current()
	for name, data := range map[string][]byte{
		"listv2.cbor": snapshot.Content,
		"sigv2.cose":  snapshot.Signature,
		"anchor.pem":  signer.Certificate().PEM(),
		"other.pem":   local.Certificate().PEM(),
	} {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0600); err != nil {
			t.Fatalf("could not write %s: %v", name, err)
		}
	}

	tests := []struct {
		name    string
		anchor  string
		now     time.Time
		wantErr bool
	}{
		{name: "valid", anchor: "anchor.pem", now: time.Now()},
		{name: "wrong anchor", anchor: "other.pem", now: time.Now(), wantErr: true},
		{name: "expired", anchor: "anchor.pem", now: time.Now().Add(2 * time.Hour), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := trustedCertificates(nil,
				filepath.Join(dir, "listv2.cbor"), filepath.Join(dir, "sigv2.cose"),
				[]string{filepath.Join(dir, tt.anchor)}, tt.now)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("could not verify trust list: %v", err)
			}
			if _, err := repo.LoadCertificates(local.KeyID()); err != nil {
				t.Errorf("listed certificate not found: %v", err)
			}
		})
	}
}

func TestFetchTrustList(t *testing.T) {
	agg, signer, local := newTestAggregator(t)

	// the first signature download comes from a newer snapshot to force a retry
	var signatureCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snapshot := agg.Current()
		switch r.URL.Path {
		case "/cert/listv2":
			w.Header().Set(trustListIDHeader, snapshot.ID)
			_, _ = w.Write(snapshot.Content)
		case "/cert/sigv2":
			signatureCalls++
			id := snapshot.ID
			if signatureCalls == 1 {
				id = "newer"
			}
			w.Header().Set(trustListIDHeader, id)
			_, _ = w.Write(snapshot.Signature)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	repo, err := fetchTrustList(context.Background(), srv.Client(), srv.URL+"/",
		crypto.NewPrefilledRepository(signer.Certificate()), time.Now())
	if err != nil {
		t.Fatalf("could not fetch trust list: %v", err)
	}
	if signatureCalls != 2 {
		t.Errorf("got %d signature downloads, want 2", signatureCalls)
	}

	var out bytes.Buffer
	if err := printCertificates(&out, repo); err != nil {
		t.Fatalf("could not print certificates: %v", err)
	}
	if !strings.Contains(out.String(), local.Certificate().KeyIDString()) {
		t.Errorf("output %q does not list the chain certificate", out.String())
	}
}
