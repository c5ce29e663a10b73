package crypto

import (
	"bytes"
	"testing"
)

func TestPrefilledRepository(t *testing.T) {
	first := newTestCertificate(t)
	second := newTestCertificate(t)

	repo := NewPrefilledRepository(first, second, first)

	if got := len(repo.Certificates()); got != 2 {
		t.Fatalf("got %d certificates, want 2 after dedupe", got)
	}

	matches, err := repo.LoadCertificates(second.KeyID())
	if err != nil {
		t.Fatalf("could not load certificate: %v", err)
	}
	if len(matches) != 1 || !matches[0].Equal(second) {
		t.Errorf("unexpected matches: %v", matches)
	}

	_, err = repo.LoadCertificates([]byte("unknown!"))
	if !HasCode(err, ErrCodeUnknownKeyID) {
		t.Errorf("expected unknown kid error, got %v", err)
	}
	if len(repo.Collisions()) != 0 {
		t.Error("unexpected kid collisions")
	}
}

// two distinct certificates forced onto the same kid resolve first-match-wins and are reported
func TestPrefilledRepositoryCollision(t *testing.T) {
	first := newTestCertificate(t)
	second := newTestCertificate(t)
	clash := &Certificate{raw: second.raw, x509: second.x509, kid: first.KeyID()}

	repo := NewPrefilledRepository(first, clash)

	matches, err := repo.LoadCertificates(first.KeyID())
	if err != nil {
		t.Fatalf("could not load certificates: %v", err)
	}
	if len(matches) != 2 || !matches[0].Equal(first) {
		t.Errorf("expected first inserted certificate to win, got %d matches", len(matches))
	}

	collisions := repo.Collisions()
	if len(collisions) != 1 || !bytes.Equal(collisions[0], first.KeyID()) {
		t.Errorf("Collisions() = %x", collisions)
	}
}

func TestDedupeCertificates(t *testing.T) {
	first := newTestCertificate(t)
	copyOfFirst, err := NewCertificate(first.Raw())
	if err != nil {
		t.Fatalf("could not copy certificate: %v", err)
	}
	second := newTestCertificate(t)

	got := DedupeCertificates([]*Certificate{first, nil, second, copyOfFirst})
	if len(got) != 2 {
		t.Fatalf("got %d certificates, want 2", len(got))
	}
	if got[0] != first || got[1] != second {
		t.Error("dedupe should keep the first occurrence in order")
	}
	if !ContainsCertificate(got, copyOfFirst) {
		t.Error("ContainsCertificate should compare bytes")
	}
}
