package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
)

// Lookup tiers, in the order they are tried.
const (
	TierCompetitor = "competitor"
	TierDomain     = "domain"
	TierEmpty      = "empty"
)

// ReasonNoCompetitors is reported when a project has nothing to judge.
const ReasonNoCompetitors = "No competitors found"

var (
	errLookupUnavailable = errors.New("evidence lookup not configured")
	errNoCompetitorID    = errors.New("competitor has no id")
	errNoDomain          = errors.New("competitor url has no domain")
)

// EvidenceLookup fetches recorded evidence from the evidence-collection collaborator.
type EvidenceLookup interface {
	SourcesByCompetitor(ctx context.Context, competitorID string) ([]models.EvidenceSource, error)
	SourcesByDomain(ctx context.Context, domain string) ([]models.EvidenceSource, error)
}

// FallbackRecorder is notified every time a lookup tier fails and the chain moves on.
type FallbackRecorder func(failedTier string)

// EvidenceOption customises an EvidenceChecker.
type EvidenceOption func(*EvidenceChecker)

// WithConcurrency bounds concurrent per-competitor lookups.
func WithConcurrency(n int) EvidenceOption {
	return func(c *EvidenceChecker) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithFallbackRecorder installs a hook observing lookup fallbacks.
func WithFallbackRecorder(fn FallbackRecorder) EvidenceOption {
	return func(c *EvidenceChecker) { c.onFallback = fn }
}

// WithClock overrides the time source used for decay.
func WithClock(now func() time.Time) EvidenceOption {
	return func(c *EvidenceChecker) {
		if now != nil {
			c.now = now
		}
	}
}

// EvidenceChecker judges whether a project's competitor evidence is sufficient and fresh.
type EvidenceChecker struct {
	logger      *slog.Logger
	lookup      EvidenceLookup
	thresholds  Thresholds
	concurrency int
	onFallback  FallbackRecorder
	now         func() time.Time
}

// NewEvidenceChecker constructs an EvidenceChecker. A nil lookup degrades every competitor to
// zero evidence.
func NewEvidenceChecker(logger *slog.Logger, lookup EvidenceLookup, thresholds Thresholds, opts ...EvidenceOption) *EvidenceChecker {
	if logger == nil {
		logger = slog.Default()
	}
	c := &EvidenceChecker{
		logger:      logger,
		lookup:      lookup,
		thresholds:  thresholds,
		concurrency: 4,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type competitorEvidence struct {
	sources     int
	sourceTypes int
	oldest      time.Time
	newest      time.Time
	tier        string
}

// Check evaluates evidence for the supplied competitors. Lookup failures never fail the
// check; only context cancellation is returned as an error.
func (c *EvidenceChecker) Check(ctx context.Context, competitors []models.Competitor) (models.EvidenceQualityCheck, error) {
	if len(competitors) == 0 {
		return models.EvidenceQualityCheck{
			Passes:      false,
			Confidence:  models.ConfidenceLow,
			DecayFactor: c.thresholds.MissingTimestamp,
			Reason:      ReasonNoCompetitors,
		}, nil
	}

	results := make([]competitorEvidence, len(competitors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, competitor := range competitors {
		i, competitor := i, competitor
		g.Go(func() error {
			sources, tier := c.resolveSources(gctx, competitor)
			results[i] = summarise(sources, tier)
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return models.EvidenceQualityCheck{}, fmt.Errorf("evidence check cancelled: %w", err)
	}

	var totalSources, totalTypes int
	var oldest, newest time.Time
	for _, r := range results {
		totalSources += r.sources
		totalTypes += r.sourceTypes
		if !r.oldest.IsZero() && (oldest.IsZero() || r.oldest.Before(oldest)) {
			oldest = r.oldest
		}
		if r.newest.After(newest) {
			newest = r.newest
		}
	}

	n := float64(len(competitors))
	avgTypes := float64(totalTypes) / n
	avgSources := float64(totalSources) / n

	typesOK := avgTypes >= c.thresholds.MinDistinctSourceTypes
	sourcesOK := avgSources >= c.thresholds.MinEvidenceSources

	check := models.EvidenceQualityCheck{
		Passes:               typesOK || sourcesOK,
		DistinctSourceTypes:  avgTypes,
		TotalEvidenceSources: avgSources,
		DecayFactor:          c.thresholds.DecayFactor(oldest, c.now()),
	}
	switch {
	case typesOK && sourcesOK:
		check.Confidence = models.ConfidenceHigh
	case check.Passes:
		check.Confidence = models.ConfidenceMedium
	default:
		check.Confidence = models.ConfidenceLow
		check.Reason = fmt.Sprintf("Insufficient evidence: %.2f source types and %.2f sources per competitor (need %.0f types or %.0f sources)",
			avgTypes, avgSources, c.thresholds.MinDistinctSourceTypes, c.thresholds.MinEvidenceSources)
	}

	c.logger.Debug("evidence quality checked",
		slog.Int("competitors", len(competitors)),
		slog.Float64("avg_source_types", avgTypes),
		slog.Float64("avg_sources", avgSources),
		slog.Float64("decay_factor", check.DecayFactor),
		slog.Time("oldest", oldest),
		slog.Time("newest", newest),
	)
	return check, nil
}

type lookupTier struct {
	name  string
	fetch func(ctx context.Context, competitor models.Competitor) ([]models.EvidenceSource, error)
}

func (c *EvidenceChecker) tiers() []lookupTier {
	return []lookupTier{
		{
			name: TierCompetitor,
			fetch: func(ctx context.Context, competitor models.Competitor) ([]models.EvidenceSource, error) {
				if c.lookup == nil {
					return nil, errLookupUnavailable
				}
				if competitor.ID == "" {
					return nil, errNoCompetitorID
				}
				return c.lookup.SourcesByCompetitor(ctx, competitor.ID)
			},
		},
		{
			name: TierDomain,
			fetch: func(ctx context.Context, competitor models.Competitor) ([]models.EvidenceSource, error) {
				if c.lookup == nil {
					return nil, errLookupUnavailable
				}
				domain := CompetitorDomain(competitor.URL)
				if domain == "" {
					return nil, errNoDomain
				}
				return c.lookup.SourcesByDomain(ctx, domain)
			},
		},
	}
}

// resolveSources walks the lookup chain and returns the first tier that succeeds. When every
// tier fails the competitor is judged on zero evidence.
func (c *EvidenceChecker) resolveSources(ctx context.Context, competitor models.Competitor) ([]models.EvidenceSource, string) {
	for _, tier := range c.tiers() {
		sources, err := tier.fetch(ctx, competitor)
		if err == nil {
			return sources, tier.name
		}
		c.logger.Warn("evidence lookup failed, falling back",
			slog.String("tier", tier.name),
			slog.String("competitor_id", competitor.ID),
			slog.Any("error", err),
		)
		if c.onFallback != nil {
			c.onFallback(tier.name)
		}
	}
	return nil, TierEmpty
}

func summarise(sources []models.EvidenceSource, tier string) competitorEvidence {
	out := competitorEvidence{sources: len(sources), tier: tier}
	types := make(map[models.SourceType]struct{}, len(sources))
	for _, src := range sources {
		types[src.SourceType] = struct{}{}
		if src.ExtractedAt.IsZero() {
			continue
		}
		if out.oldest.IsZero() || src.ExtractedAt.Before(out.oldest) {
			out.oldest = src.ExtractedAt
		}
		if src.ExtractedAt.After(out.newest) {
			out.newest = src.ExtractedAt
		}
	}
	out.sourceTypes = len(types)
	return out
}

// DecayFactor returns the freshness multiplier for evidence whose oldest extraction time is
// oldest. A zero oldest means no timestamps were recorded.
func (t Thresholds) DecayFactor(oldest, now time.Time) float64 {
	if oldest.IsZero() {
		return t.MissingTimestamp
	}
	return t.DecayForAge(now.Sub(oldest))
}

// DecayForAge is 1.0 inside the fresh window, falls linearly to 0.5 at the TTL and then
// decays exponentially toward zero with time constant 2×TTL.
func (t Thresholds) DecayForAge(age time.Duration) float64 {
	ttl := t.EvidenceTTL
	if ttl <= 0 {
		ttl = DefaultEvidenceTTL
	}
	if age <= t.FreshWindow {
		return 1.0
	}
	if age <= ttl {
		span := float64(ttl - t.FreshWindow)
		progress := float64(age-t.FreshWindow) / span
		return clamp(1.0-0.5*progress, 0, 1)
	}
	over := float64(age - ttl)
	return clamp(0.5*math.Exp(-over/(2*float64(ttl))), 0, 1)
}

// CompetitorDomain extracts the bare host from a competitor URL, without "www.".
func CompetitorDomain(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
