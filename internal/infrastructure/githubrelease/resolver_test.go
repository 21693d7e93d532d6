package githubrelease

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasmofleet/internal/domain/release"
	sharedConfig "tasmofleet/internal/shared/config"
	"tasmofleet/internal/shared/logger"
)

const releasePayload = `{
	"tag_name": "v12.4.0",
	"published_at": "2026-07-15T09:30:00Z",
	"body": "## Changelog\n- fixes",
	"assets": [
		{"name": "tasmota-minimal.bin", "browser_download_url": "https://example.com/tasmota-minimal.bin"},
		{"name": "tasmota.bin", "browser_download_url": "https://example.com/tasmota.bin"}
	]
}`

func newResolver(t *testing.T, serverURL string) *Resolver {
	t.Helper()
	return NewResolver(&sharedConfig.ReleaseConfig{
		APIURL:          serverURL,
		ReleasePageURL:  "https://github.com/arendst/Tasmota/releases/",
		AssetName:       "tasmota.bin",
		CacheTTLMinutes: 30,
	}, logger.NewLogger())
}

func TestGetLatestRelease(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(releasePayload))
	}))
	defer server.Close()

	resolver := newResolver(t, server.URL)
	info, err := resolver.GetLatestRelease(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "12.4.0", info.Version)
	assert.Equal(t, "2026-07-15", info.ReleaseDate)
	assert.Equal(t, "https://example.com/tasmota.bin", info.DownloadURL)
	assert.Equal(t, "https://github.com/arendst/Tasmota/releases/", info.ReleaseURL)
	assert.Contains(t, info.ReleaseNotes, "Changelog")
	assert.True(t, info.Valid())
}

func TestGetLatestRelease_CachesWithinTTL(t *testing.T) {
	var fetches int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		w.Write([]byte(releasePayload))
	}))
	defer server.Close()

	resolver := newResolver(t, server.URL)

	for i := 0; i < 3; i++ {
		_, err := resolver.GetLatestRelease(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, fetches)

	resolver.Invalidate()
	_, err := resolver.GetLatestRelease(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fetches)
}

func TestGetLatestRelease_Unavailable(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
		},
		{
			name: "unparseable payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("rate limited"))
			},
		},
		{
			name: "empty version tag",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"tag_name": "", "assets": []}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			resolver := newResolver(t, server.URL)
			info, err := resolver.GetLatestRelease(context.Background())

			assert.Nil(t, info)
			assert.True(t, errors.Is(err, release.ErrUnavailable))
		})
	}
}

func TestDownloadURLFallsBackToFirstBin(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"tag_name": "v12.4.0",
			"published_at": "2026-07-15T09:30:00Z",
			"assets": [
				{"name": "tasmota32.bin", "browser_download_url": "https://example.com/tasmota32.bin"},
				{"name": "release-notes.md", "browser_download_url": "https://example.com/notes.md"}
			]
		}`))
	}))
	defer server.Close()

	resolver := newResolver(t, server.URL)
	info, err := resolver.GetLatestRelease(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "https://example.com/tasmota32.bin", info.DownloadURL)
}
