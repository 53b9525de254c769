package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/paulthebutcher/strat-os-phere-sub000/internal/cache"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/models"
	"github.com/paulthebutcher/strat-os-phere-sub000/internal/utils"
)

const evidenceCachePrefix = "guardrail:evidence:"

// EvidenceClient reads recorded evidence sources from the evidence-collection service.
type EvidenceClient struct {
	baseURL        string
	competitorPath string
	domainPath     string
	httpClient     *http.Client
	cache          cache.Provider
	ttl            time.Duration
	logger         *slog.Logger
}

// NewEvidenceClient constructs a client for the evidence service. ttl bounds how long lookup
// results are cached; zero disables caching.
func NewEvidenceClient(baseURL, competitorPath, domainPath string, timeout time.Duration, cacheProvider cache.Provider, ttl time.Duration, logger *slog.Logger) *EvidenceClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EvidenceClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		competitorPath: competitorPath,
		domainPath:     domainPath,
		httpClient:     &http.Client{Timeout: timeout},
		cache:          cacheProvider,
		ttl:            ttl,
		logger:         logger,
	}
}

// SourcesByCompetitor returns evidence recorded against a competitor id.
func (c *EvidenceClient) SourcesByCompetitor(ctx context.Context, competitorID string) ([]models.EvidenceSource, error) {
	sources, err := c.fetch(ctx, "competitor:"+competitorID, c.competitorPath, url.Values{"competitor_id": {competitorID}})
	if err != nil {
		return nil, utils.NewAppError("evidence.SourcesByCompetitor", "lookup by competitor failed", err)
	}
	return sources, nil
}

// SourcesByDomain returns evidence recorded against a bare competitor domain.
func (c *EvidenceClient) SourcesByDomain(ctx context.Context, domain string) ([]models.EvidenceSource, error) {
	sources, err := c.fetch(ctx, "domain:"+domain, c.domainPath, url.Values{"domain": {domain}})
	if err != nil {
		return nil, utils.NewAppError("evidence.SourcesByDomain", "lookup by domain failed", err)
	}
	return sources, nil
}

type sourcesResponse struct {
	Sources []struct {
		SourceType   string `json:"source_type"`
		ExtractedAt  string `json:"extracted_at"`
		CompetitorID string `json:"competitor_id"`
		Domain       string `json:"domain"`
		URL          string `json:"url"`
	} `json:"sources"`
}

func (c *EvidenceClient) fetch(ctx context.Context, key, p string, query url.Values) ([]models.EvidenceSource, error) {
	if c == nil {
		return nil, fmt.Errorf("evidence client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("evidence base URL not configured")
	}

	cacheKey := evidenceCachePrefix + key
	if c.ttl > 0 {
		var cached []models.EvidenceSource
		if err := cache.GetJSON(ctx, c.cache, cacheKey, &cached); err == nil {
			return cached, nil
		}
	}

	var response sourcesResponse
	if err := c.getJSON(ctx, c.resolvePath(p), query, &response); err != nil {
		return nil, err
	}

	sources := make([]models.EvidenceSource, 0, len(response.Sources))
	for _, s := range response.Sources {
		// unparseable timestamps count as missing, which the decay rule handles
		extractedAt, err := utils.ParseRFC3339(s.ExtractedAt)
		if err != nil {
			extractedAt = time.Time{}
		}
		sources = append(sources, models.EvidenceSource{
			SourceType:   models.SourceType(strings.ToLower(s.SourceType)),
			ExtractedAt:  extractedAt,
			CompetitorID: s.CompetitorID,
			Domain:       s.Domain,
			URL:          s.URL,
		})
	}

	if c.ttl > 0 {
		stored, err := cache.FillJSON(ctx, c.cache, cacheKey, sources, c.ttl)
		switch {
		case err != nil:
			c.logger.Debug("evidence cache write failed", slog.String("key", cacheKey), slog.Any("error", err))
		case !stored:
			c.logger.Debug("evidence cache already filled", slog.String("key", cacheKey))
		}
	}
	return sources, nil
}

func (c *EvidenceClient) resolvePath(p string) string {
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *EvidenceClient) getJSON(ctx context.Context, endpoint string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("evidence service returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
