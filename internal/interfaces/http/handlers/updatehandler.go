package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tasmofleet/internal/application/update/usecases"
	"tasmofleet/internal/domain/device"
	"tasmofleet/internal/infrastructure/devicestore"
	"tasmofleet/internal/infrastructure/history"
	"tasmofleet/internal/shared/errors"
	"tasmofleet/internal/shared/goroutine"
	"tasmofleet/internal/shared/logger"
	"tasmofleet/internal/shared/utils"
)

// UpdateHandler triggers single-device and fleet-wide update runs.
type UpdateHandler struct {
	store     *devicestore.Store
	resolver  usecases.ReleaseResolver
	reconcile *usecases.ReconcileDeviceUseCase
	fleet     *usecases.RunFleetUseCase
	history   *history.Store
	logger    logger.Interface

	recoveryTimeout time.Duration
	pollInterval    time.Duration
}

func NewUpdateHandler(
	store *devicestore.Store,
	resolver usecases.ReleaseResolver,
	reconcile *usecases.ReconcileDeviceUseCase,
	fleet *usecases.RunFleetUseCase,
	historyStore *history.Store,
	recoveryTimeout time.Duration,
	pollInterval time.Duration,
	log logger.Interface,
) *UpdateHandler {
	return &UpdateHandler{
		store:           store,
		resolver:        resolver,
		reconcile:       reconcile,
		fleet:           fleet,
		history:         historyStore,
		recoveryTimeout: recoveryTimeout,
		pollInterval:    pollInterval,
		logger:          log,
	}
}

type updateDeviceRequest struct {
	Address  string `json:"address" binding:"required"`
	Username string `json:"username"`
	Password string `json:"password"`
	Timeout  int    `json:"timeout"`

	CheckOnly   bool `json:"check_only"`
	ForceUpdate bool `json:"force"`
	DryRun      bool `json:"dry_run"`
}

// UpdateDevice handles POST /api/update. The target does not have to be in
// the devices file; ad-hoc addresses with inline credentials are accepted.
func (h *UpdateHandler) UpdateDevice(c *gin.Context) {
	var req updateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, errors.NewBadRequestError("invalid request body", err.Error()))
		return
	}

	d, err := h.targetDevice(req)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	rel, err := h.resolver.GetLatestRelease(c.Request.Context())
	if err != nil {
		h.logger.Warnw("latest release unavailable for device update", "device", d.Label(), "error", err)
		rel = nil
	}

	outcome := h.reconcile.Execute(c.Request.Context(), d, rel, usecases.ReconcileOptions{
		CheckOnly:       req.CheckOnly,
		ForceUpdate:     req.ForceUpdate,
		DryRun:          req.DryRun,
		RecoveryTimeout: h.recoveryTimeout,
		PollInterval:    h.pollInterval,
	})

	utils.SuccessResponse(c, http.StatusOK, "", outcome)
}

// targetDevice builds the device to act on. A configured record for the
// address is the base; request fields override its credentials and timeout.
func (h *UpdateHandler) targetDevice(req updateDeviceRequest) (device.Device, error) {
	d := device.Device{Address: req.Address}
	if err := d.Validate(); err != nil {
		return device.Device{}, err
	}

	devices, err := h.store.Load()
	if err != nil {
		h.logger.Errorw("failed to load devices", "error", err)
		return device.Device{}, errors.NewInternalError("failed to load device list")
	}
	for _, known := range devices {
		if known.Address == req.Address {
			d = known
			break
		}
	}

	if req.Username != "" {
		d.Username = req.Username
		d.Password = req.Password
	}
	if req.Timeout > 0 {
		d.TimeoutSeconds = req.Timeout
	}
	return d, nil
}

type updateFleetRequest struct {
	CheckOnly   bool `json:"check_only"`
	ForceUpdate bool `json:"force"`
	DryRun      bool `json:"dry_run"`
}

// UpdateFleet handles POST /api/update/all
func (h *UpdateHandler) UpdateFleet(c *gin.Context) {
	var req updateFleetRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponseWithError(c, errors.NewBadRequestError("invalid request body", err.Error()))
			return
		}
	}

	devices, err := h.store.Load()
	if err != nil {
		h.logger.Errorw("failed to load devices", "error", err)
		utils.ErrorResponseWithError(c, errors.NewInternalError("failed to load device list"))
		return
	}

	startedAt := time.Now()
	summary, err := h.fleet.Execute(c.Request.Context(), devices, usecases.RunFleetCommand{
		CheckOnly:   req.CheckOnly,
		ForceUpdate: req.ForceUpdate,
		DryRun:      req.DryRun,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	finishedAt := time.Now()

	if h.history != nil {
		// Recording must not delay or fail the response.
		goroutine.SafeGo(h.logger, "record-fleet-run", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := h.history.RecordRun(ctx, summary, req.CheckOnly, req.DryRun, startedAt, finishedAt); err != nil {
				h.logger.Warnw("failed to record fleet run", "error", err)
			}
		})
	}

	utils.SuccessResponse(c, http.StatusOK, "", summary)
}
