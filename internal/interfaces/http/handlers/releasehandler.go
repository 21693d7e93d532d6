package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasmofleet/internal/application/update/usecases"
	"tasmofleet/internal/shared/errors"
	"tasmofleet/internal/shared/logger"
	"tasmofleet/internal/shared/services/markdown"
	"tasmofleet/internal/shared/utils"
)

// ReleaseHandler serves the latest upstream firmware release.
type ReleaseHandler struct {
	resolver usecases.ReleaseResolver
	markdown markdown.Service
	logger   logger.Interface
}

func NewReleaseHandler(resolver usecases.ReleaseResolver, md markdown.Service, log logger.Interface) *ReleaseHandler {
	return &ReleaseHandler{
		resolver: resolver,
		markdown: md,
		logger:   log,
	}
}

type releaseDTO struct {
	Version      string `json:"version"`
	ReleaseDate  string `json:"release_date"`
	ReleaseNotes string `json:"release_notes"`
	NotesHTML    string `json:"notes_html,omitempty"`
	DownloadURL  string `json:"download_url"`
	ReleaseURL   string `json:"release_url"`
}

// GetLatest handles GET /api/releases/latest
func (h *ReleaseHandler) GetLatest(c *gin.Context) {
	rel, err := h.resolver.GetLatestRelease(c.Request.Context())
	if err != nil {
		h.logger.Warnw("failed to resolve latest release", "error", err)
		utils.ErrorResponseWithError(c, errors.NewUnavailableError("latest release information unavailable"))
		return
	}

	dto := releaseDTO{
		Version:      rel.Version,
		ReleaseDate:  rel.ReleaseDate,
		ReleaseNotes: rel.ReleaseNotes,
		DownloadURL:  rel.DownloadURL,
		ReleaseURL:   rel.ReleaseURL,
	}

	if rel.ReleaseNotes != "" {
		html, err := h.markdown.ToHTMLSanitized(rel.ReleaseNotes)
		if err != nil {
			// Raw notes are still served; rendering is best effort.
			h.logger.Warnw("failed to render release notes", "error", err)
		} else {
			dto.NotesHTML = html
		}
	}

	utils.SuccessResponse(c, http.StatusOK, "", dto)
}
