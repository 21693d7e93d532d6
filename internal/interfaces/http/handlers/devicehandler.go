package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasmofleet/internal/application/update/usecases"
	"tasmofleet/internal/domain/device"
	"tasmofleet/internal/infrastructure/devicestore"
	"tasmofleet/internal/shared/errors"
	"tasmofleet/internal/shared/logger"
	"tasmofleet/internal/shared/utils"
)

// DeviceHandler serves the configured device list and live per-device
// status lookups.
type DeviceHandler struct {
	store   *devicestore.Store
	gateway usecases.DeviceGateway
	logger  logger.Interface
}

func NewDeviceHandler(store *devicestore.Store, gateway usecases.DeviceGateway, log logger.Interface) *DeviceHandler {
	return &DeviceHandler{
		store:   store,
		gateway: gateway,
		logger:  log,
	}
}

// deviceDTO is a device record as exposed to the dashboard. Passwords are
// masked, never returned.
type deviceDTO struct {
	Address   string `json:"address"`
	Name      string `json:"name,omitempty"`
	DNSName   string `json:"dns_name,omitempty"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	Timeout   int    `json:"timeout,omitempty"`
	Simulated bool   `json:"simulated,omitempty"`
}

func toDeviceDTO(d device.Device) deviceDTO {
	return deviceDTO{
		Address:   d.Address,
		Name:      d.Name,
		DNSName:   devicestore.ResolveDNSName(d),
		Username:  d.Username,
		Password:  utils.MaskSecret(d.Password),
		Timeout:   d.TimeoutSeconds,
		Simulated: d.Simulated,
	}
}

// List handles GET /api/devices
func (h *DeviceHandler) List(c *gin.Context) {
	devices, err := h.store.Load()
	if err != nil {
		h.logger.Errorw("failed to load devices", "error", err)
		utils.ErrorResponseWithError(c, errors.NewInternalError("failed to load device list"))
		return
	}

	dtos := make([]deviceDTO, 0, len(devices))
	for _, d := range devices {
		dtos = append(dtos, toDeviceDTO(d))
	}

	utils.SuccessResponse(c, http.StatusOK, "", gin.H{
		"devices": dtos,
		"count":   len(dtos),
	})
}

// deviceStatusDTO combines the configured record with a live firmware probe.
type deviceStatusDTO struct {
	deviceDTO
	Firmware *device.FirmwareInfo `json:"firmware"`
}

// GetStatus handles GET /api/devices/:address
func (h *DeviceHandler) GetStatus(c *gin.Context) {
	address := c.Param("address")

	d, ok, err := h.findDevice(address)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}
	if !ok {
		utils.ErrorResponseWithError(c, errors.NewNotFoundError("device not configured", address))
		return
	}

	info, err := h.gateway.Probe(c.Request.Context(), d)
	if err != nil {
		h.logger.Warnw("device status probe failed", "device", d.Label(), "error", err)
		utils.ErrorResponseWithError(c, probeErrorToAppError(err))
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", deviceStatusDTO{
		deviceDTO: toDeviceDTO(d),
		Firmware:  info,
	})
}

func (h *DeviceHandler) findDevice(address string) (device.Device, bool, error) {
	devices, err := h.store.Load()
	if err != nil {
		h.logger.Errorw("failed to load devices", "error", err)
		return device.Device{}, false, errors.NewInternalError("failed to load device list")
	}
	for _, d := range devices {
		if d.Address == address {
			return d, true, nil
		}
	}
	return device.Device{}, false, nil
}

// probeErrorToAppError maps a probe failure to an HTTP-facing error. The
// device is upstream of this API, so its failures are gateway errors, not
// internal ones.
func probeErrorToAppError(err error) *errors.AppError {
	pe := device.AsProbeError(err)
	if pe == nil {
		return errors.NewInternalError("device probe failed")
	}
	switch pe.Kind {
	case device.ProbeUnreachable:
		return errors.NewUnavailableError(pe.Kind.Describe())
	default:
		return errors.NewBadGatewayError(pe.Kind.Describe())
	}
}
