// Package githubrelease resolves the latest Tasmota firmware release from
// the GitHub releases API.
package githubrelease

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"tasmofleet/internal/domain/release"
	sharedConfig "tasmofleet/internal/shared/config"
	"tasmofleet/internal/shared/logger"
)

const (
	// HTTP request timeout for the releases API
	requestTimeout = 10 * time.Second
	// Maximum response body size for the releases API (1MB; release notes
	// can be long)
	maxResponseSize = 1 << 20
)

// githubRelease is the subset of the GitHub release payload the updater
// reads.
type githubRelease struct {
	TagName     string `json:"tag_name"`
	PublishedAt string `json:"published_at"`
	Body        string `json:"body"`
	Assets      []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

// Resolver fetches the latest release descriptor and caches it in memory
// with a TTL so a fleet-wide run shares one fetch. Failures map to
// release.ErrUnavailable; the resolver never retries on its own.
type Resolver struct {
	apiURL         string
	releasePageURL string
	assetName      string
	cacheTTL       time.Duration

	httpClient *http.Client
	logger     logger.Interface

	// Cache
	mu       sync.RWMutex
	cached   *release.Info
	cachedAt time.Time
}

// NewResolver creates a release resolver from configuration.
func NewResolver(cfg *sharedConfig.ReleaseConfig, log logger.Interface) *Resolver {
	ttl := time.Duration(cfg.CacheTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Resolver{
		apiURL:         cfg.APIURL,
		releasePageURL: cfg.ReleasePageURL,
		assetName:      cfg.AssetName,
		cacheTTL:       ttl,
		httpClient:     &http.Client{Timeout: requestTimeout},
		logger:         log,
	}
}

// GetLatestRelease returns the latest known release, from cache when fresh.
func (r *Resolver) GetLatestRelease(ctx context.Context) (*release.Info, error) {
	now := time.Now()

	r.mu.RLock()
	if r.cached != nil && now.Sub(r.cachedAt) < r.cacheTTL {
		cached := r.cached
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	info, err := r.fetch(ctx)
	if err != nil {
		r.logger.Warnw("failed to fetch latest release", "error", err)
		return nil, fmt.Errorf("%w: %v", release.ErrUnavailable, err)
	}

	r.mu.Lock()
	r.cached = info
	r.cachedAt = now
	r.mu.Unlock()

	return info, nil
}

// Invalidate drops the cached release so the next call refetches.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.cached = nil
	r.mu.Unlock()
}

// fetch retrieves and parses the latest release from the API.
func (r *Resolver) fetch(ctx context.Context) (*release.Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var data githubRelease
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	version := strings.TrimPrefix(strings.TrimSpace(data.TagName), "v")
	if version == "" {
		// Never fabricate a version; report the release as unavailable.
		return nil, fmt.Errorf("release has no usable version tag")
	}

	info := &release.Info{
		Version:      version,
		ReleaseDate:  publishDate(data.PublishedAt),
		ReleaseNotes: data.Body,
		DownloadURL:  r.downloadURL(data),
		ReleaseURL:   r.releasePageURL,
	}

	r.logger.Infow("fetched latest firmware release",
		"version", info.Version,
		"published", info.ReleaseDate,
	)
	return info, nil
}

// downloadURL picks the configured asset, falling back to the first .bin
// asset published with the release.
func (r *Resolver) downloadURL(data githubRelease) string {
	want := strings.ToLower(r.assetName)
	for _, asset := range data.Assets {
		if strings.ToLower(asset.Name) == want {
			return asset.BrowserDownloadURL
		}
	}
	for _, asset := range data.Assets {
		if strings.HasSuffix(strings.ToLower(asset.Name), ".bin") {
			return asset.BrowserDownloadURL
		}
	}
	return ""
}

func publishDate(publishedAt string) string {
	if t, err := time.Parse(time.RFC3339, publishedAt); err == nil {
		return t.Format("2006-01-02")
	}
	// Tolerate odd timestamps; the date is informational only.
	if i := strings.Index(publishedAt, "T"); i > 0 {
		return publishedAt[:i]
	}
	return publishedAt
}
