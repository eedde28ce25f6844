package marketdata

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/harborline/dealdesk-cli/internal/config"
	"github.com/harborline/dealdesk-cli/internal/model"
)

// RateStore is the slice of the store the syncer writes to.
type RateStore interface {
	UpsertRates(ctx context.Context, rates []model.MarketRate) error
}

// Syncer pulls every configured rate feed and upserts the results.
type Syncer struct {
	store RateStore
	http  Fetcher
	ftp   Fetcher
	cfg   config.MarketConfig
}

// NewSyncer builds a Syncer with HTTP and FTP fetchers derived from the
// market configuration.
func NewSyncer(st RateStore, cfg config.MarketConfig) *Syncer {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	return &Syncer{
		store: st,
		http: NewHTTPFetcher(HTTPOptions{
			UserAgent:  cfg.UserAgent,
			Timeout:    timeout,
			MaxRetries: cfg.Retries,
			RatePerSec: cfg.RatePerSec,
			Burst:      cfg.Burst,
		}),
		ftp: NewFTPFetcher(FTPOptions{Timeout: timeout}),
		cfg: cfg,
	}
}

// SyncResult summarizes one sync run across all sources.
type SyncResult struct {
	Sources int `json:"sources"`
	Rates   int `json:"rates"`
	Skipped int `json:"skipped"`
}

// Sync fetches all configured sources concurrently and upserts their rates.
// Each source writes as soon as it parses, so a late failure keeps the rows
// already synced.
func (s *Syncer) Sync(ctx context.Context) (SyncResult, error) {
	if len(s.cfg.Sources) == 0 {
		zap.L().Info("marketdata: no sources configured")
		return SyncResult{}, nil
	}

	var rates, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)

	for _, src := range s.cfg.Sources {
		g.Go(func() error {
			n, bad, err := s.syncSource(gctx, src)
			if err != nil {
				return eris.Wrapf(err, "marketdata: sync %s", src.Name)
			}
			rates.Add(int64(n))
			skipped.Add(int64(bad))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{
		Sources: len(s.cfg.Sources),
		Rates:   int(rates.Load()),
		Skipped: int(skipped.Load()),
	}
	zap.L().Info("marketdata: sync complete",
		zap.Int("sources", result.Sources),
		zap.Int("rates", result.Rates),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func (s *Syncer) syncSource(ctx context.Context, src config.MarketSourceConfig) (int, int, error) {
	if src.Name == "" {
		return 0, 0, eris.New("source has no name")
	}
	if src.URL == "" {
		return 0, 0, eris.New("source has no url")
	}

	fetcher, err := s.fetcherFor(src.Kind)
	if err != nil {
		return 0, 0, err
	}

	body, err := fetcher.Fetch(ctx, src.URL)
	if err != nil {
		return 0, 0, err
	}
	defer body.Close() //nolint:errcheck

	rates, skipped, err := ParseRates(body, src.Name, time.Now().UTC())
	if err != nil {
		return 0, skipped, err
	}
	if len(rates) == 0 {
		zap.L().Warn("marketdata: source yielded no rates",
			zap.String("source", src.Name),
			zap.Int("skipped", skipped),
		)
		return 0, skipped, nil
	}

	if err := s.store.UpsertRates(ctx, rates); err != nil {
		return 0, skipped, eris.Wrap(err, "upsert rates")
	}

	zap.L().Info("marketdata: synced source",
		zap.String("source", src.Name),
		zap.Int("rates", len(rates)),
		zap.Int("skipped", skipped),
	)
	return len(rates), skipped, nil
}

func (s *Syncer) fetcherFor(kind string) (Fetcher, error) {
	switch kind {
	case "", "http", "https":
		return s.http, nil
	case "ftp":
		return s.ftp, nil
	default:
		return nil, eris.Errorf("unknown source kind %q", kind)
	}
}
