// Package trustlist builds, signs and verifies trust lists of certificates.
//
// The Aggregator merges the certificates of local key providers, static external certificates and
// certificates fetched from remote connectors into a signed trust list. It republishes the list on a
// fixed delay; readers always see a content and signature pair from the same snapshot.
package trustlist

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ehn-dcc-development/hcert-service/internal/crypto"
)

// RemoteConnector fetches DER encoded certificates from a remote source
type RemoteConnector interface {
	Name() string
	FetchCertificates(ctx context.Context) ([][]byte, error)
}

// Snapshot is an immutable published trust list
type Snapshot struct {
	ID         string
	Content    []byte
	Signature  []byte
	CreatedAt  time.Time
	ValidUntil time.Time

	// Repository holds the certificates of Content
	Repository *crypto.PrefilledRepository
}

// Config configures an Aggregator
type Config struct {
	// Signer signs the trust list
	Signer crypto.KeyProvider

	// Local providers whose certificates are always trusted
	Local []crypto.KeyProvider

	// External certificates loaded once at startup
	External []*crypto.Certificate

	Remotes []RemoteConnector

	Validity       time.Duration
	Interval       time.Duration
	InitialDelay   time.Duration
	RefreshTimeout time.Duration

	// Now defaults to time.Now
	Now func() time.Time
}

// Aggregator publishes trust list snapshots. It is safe for concurrent use.
type Aggregator struct {
	cfg     Config
	current atomic.Pointer[Snapshot]

	// refreshMu keeps scheduled and manual refreshes from overlapping
	refreshMu sync.Mutex

	logger  *slog.Logger
	metrics *Metrics
}

// NewAggregator validates cfg and publishes the first snapshot before returning.
// If the remote connectors fail at startup the first snapshot holds the local and external certificates only.
func NewAggregator(ctx context.Context, cfg Config, logger *slog.Logger, metrics *Metrics) (*Aggregator, error) {
	if cfg.Signer == nil {
		return nil, crypto.NewKeyManagementError("trust list signer is required")
	}
	if cfg.Validity <= 0 || cfg.Interval <= 0 || cfg.RefreshTimeout <= 0 {
		return nil, fmt.Errorf("trust list validity, interval and refresh timeout must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &Aggregator{cfg: cfg, logger: logger, metrics: metrics}

	if err := a.Refresh(ctx); err != nil {
		if !HasCode(err, ErrCodeRemoteFetch) {
			return nil, err
		}
		a.logger.Warn("remote certificates unavailable at startup, publishing local certificates only",
			slog.String("error", err.Error()))

		snapshot, err := a.build(nil)
		if err != nil {
			return nil, err
		}
		a.publish(snapshot)
	}
	return a, nil
}

// Current returns the published snapshot
func (a *Aggregator) Current() *Snapshot {
	return a.current.Load()
}

// CurrentContent returns the content of the published snapshot
func (a *Aggregator) CurrentContent() []byte {
	return a.current.Load().Content
}

// CurrentSignature returns the signature of the published snapshot
func (a *Aggregator) CurrentSignature() []byte {
	return a.current.Load().Signature
}

// LoadCertificates resolves a kid against the published snapshot
func (a *Aggregator) LoadCertificates(kid []byte) ([]*crypto.Certificate, error) {
	return a.current.Load().Repository.LoadCertificates(kid)
}

// CertificateByKeyID returns the first certificate with the kid in the published snapshot
func (a *Aggregator) CertificateByKeyID(kid []byte) (*crypto.Certificate, error) {
	certs, err := a.LoadCertificates(kid)
	if err != nil {
		return nil, err
	}
	return certs[0], nil
}

// Refresh rebuilds and publishes the trust list.
// On error the previous snapshot stays published.
func (a *Aggregator) Refresh(ctx context.Context) (err error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	start := time.Now()
	defer func() { a.metrics.ObserveRefresh(start, err) }()

	ctx, cancel := context.WithTimeout(ctx, a.cfg.RefreshTimeout)
	defer cancel()

	remote, err := a.fetchRemote(ctx)
	if err != nil {
		return err
	}

	snapshot, err := a.build(remote)
	if err != nil {
		return err
	}
	a.publish(snapshot)
	return nil
}

// Run refreshes after InitialDelay and then with a fixed delay of Interval between refreshes,
// until ctx is cancelled. Refresh errors are logged and never stop the loop.
func (a *Aggregator) Run(ctx context.Context) {
	timer := time.NewTimer(a.cfg.InitialDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("trust list refresh stopped")
			return
		case <-timer.C:
		}

		if err := a.Refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.Warn("trust list refresh failed, keeping previous snapshot",
				slog.String("error", err.Error()),
				slog.String("snapshot_id", a.Current().ID),
			)
		}
		timer.Reset(a.cfg.Interval)
	}
}

// fetchRemote queries every connector concurrently. Any failure fails the whole fetch.
func (a *Aggregator) fetchRemote(ctx context.Context) ([]*crypto.Certificate, error) {
	if len(a.cfg.Remotes) == 0 {
		return nil, nil
	}

	results := make([][]*crypto.Certificate, len(a.cfg.Remotes))
	g, ctx := errgroup.WithContext(ctx)
	for i, remote := range a.cfg.Remotes {
		g.Go(func() error {
			raw, err := remote.FetchCertificates(ctx)
			if err != nil {
				a.metrics.IncrementRemoteFetchFailures()
				return WrapRemoteFetchError(err, fmt.Sprintf("connector %s failed", remote.Name()))
			}

			certs := make([]*crypto.Certificate, 0, len(raw))
			for _, der := range raw {
				cert, err := crypto.NewCertificate(der)
				if err != nil {
					a.metrics.IncrementRemoteFetchFailures()
					return WrapRemoteFetchError(err, fmt.Sprintf("connector %s returned an invalid certificate", remote.Name()))
				}
				certs = append(certs, cert)
			}
			results[i] = certs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []*crypto.Certificate
	for _, certs := range results {
		all = append(all, certs...)
	}
	return all, nil
}

// build merges local, external and remote certificates and signs the result
func (a *Aggregator) build(remote []*crypto.Certificate) (*Snapshot, error) {
	certs := make([]*crypto.Certificate, 0, len(a.cfg.Local)+len(a.cfg.External)+len(remote))
	for _, p := range a.cfg.Local {
		certs = append(certs, p.Certificate())
	}
	certs = append(certs, a.cfg.External...)
	certs = append(certs, remote...)
	certs = crypto.DedupeCertificates(certs)

	content, err := EncodeContent(certs)
	if err != nil {
		return nil, err
	}

	now := a.cfg.Now().UTC()
	signature, err := EncodeSignature(a.cfg.Signer, content, now, a.cfg.Validity)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		ID:         uuid.NewString(),
		Content:    content,
		Signature:  signature,
		CreatedAt:  now,
		ValidUntil: now.Add(a.cfg.Validity),
		Repository: crypto.NewPrefilledRepository(certs...),
	}, nil
}

func (a *Aggregator) publish(s *Snapshot) {
	a.current.Store(s)
	a.metrics.ObservePublished(s)

	for _, kid := range s.Repository.Collisions() {
		a.logger.Warn("kid shared by several certificates in the trust list",
			slog.String("kid", crypto.EncodeKeyID(kid)),
			slog.String("snapshot_id", s.ID),
		)
	}
	a.logger.Info("trust list published",
		slog.String("snapshot_id", s.ID),
		slog.Int("certificates", len(s.Repository.Certificates())),
		slog.Time("valid_until", s.ValidUntil),
	)
}
