package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tasmofleet/internal/infrastructure/history"
	"tasmofleet/internal/shared/errors"
	"tasmofleet/internal/shared/logger"
	"tasmofleet/internal/shared/utils"
)

// HistoryHandler serves recorded fleet runs. A nil store means history is
// disabled in the configuration.
type HistoryHandler struct {
	store  *history.Store
	logger logger.Interface
}

func NewHistoryHandler(store *history.Store, log logger.Interface) *HistoryHandler {
	return &HistoryHandler{
		store:  store,
		logger: log,
	}
}

// ListRuns handles GET /api/history
func (h *HistoryHandler) ListRuns(c *gin.Context) {
	if h.store == nil {
		utils.ErrorResponseWithError(c, errors.NewNotFoundError("run history is disabled"))
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			utils.ErrorResponseWithError(c, errors.NewBadRequestError("limit must be a positive integer", raw))
			return
		}
		limit = parsed
	}

	runs, err := h.store.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		h.logger.Errorw("failed to list fleet runs", "error", err)
		utils.ErrorResponseWithError(c, errors.NewInternalError("failed to list fleet runs"))
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"runs":  runs,
		"count": len(runs),
	})
}
