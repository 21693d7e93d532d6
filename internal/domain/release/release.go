// Package release defines the upstream firmware release descriptor.
package release

import "errors"

// ErrUnavailable is returned when the latest release cannot be determined:
// upstream unreachable, a broken payload, or a release with no usable
// version. Callers must treat it as "cannot determine update need", never
// as "up to date".
var ErrUnavailable = errors.New("latest release information unavailable")

// Info is the latest known upstream firmware release.
type Info struct {
	Version      string `json:"version"`
	ReleaseDate  string `json:"release_date"`
	ReleaseNotes string `json:"release_notes"`
	DownloadURL  string `json:"download_url"`
	// ReleaseURL points at the human-readable release page.
	ReleaseURL string `json:"release_url"`
}

// Valid reports whether the descriptor carries a trustworthy version. An
// empty version is never fabricated around; the release is unavailable.
func (i *Info) Valid() bool {
	return i != nil && i.Version != ""
}
