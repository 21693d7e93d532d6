// Package tasmota talks to Tasmota devices over their local HTTP API.
package tasmota

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tasmofleet/internal/domain/device"
	"tasmofleet/internal/domain/release"
	"tasmofleet/internal/shared/logger"
)

const (
	// Tasmota console commands issued through the /cm endpoint.
	cmdFirmwareStatus = "Status 2"
	cmdUpgrade        = "Upgrade 1"

	// Reachability polls use a short timeout; these are LAN calls and a
	// rebooting device should fail fast.
	pingTimeout = 2 * time.Second

	// Status payloads are small; cap reads defensively.
	maxResponseSize = 256 << 10
)

// statusResponse is the subset of `Status 2` output the updater needs.
type statusResponse struct {
	StatusFWR *struct {
		Version string `json:"Version"`
		Core    string `json:"Core"`
		SDK     string `json:"SDK"`
	} `json:"StatusFWR"`
}

// Client issues status, upgrade, and reachability calls against real
// devices.
type Client struct {
	httpClient *http.Client
	pingClient *http.Client
	logger     logger.Interface
}

// NewClient creates a device HTTP client with the given probe timeout.
func NewClient(probeTimeout time.Duration, log logger.Interface) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: probeTimeout},
		pingClient: &http.Client{Timeout: pingTimeout},
		logger:     log,
	}
}

// Probe fetches the installed firmware snapshot via `Status 2`.
func (c *Client) Probe(ctx context.Context, d device.Device) (*device.FirmwareInfo, error) {
	req, err := c.commandRequest(ctx, d, cmdFirmwareStatus)
	if err != nil {
		return nil, device.NewProbeError(device.ProbeUnreachable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, device.NewProbeError(device.ProbeUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, device.NewProbeError(device.ProbeAuthFailed, fmt.Errorf("status code %d", resp.StatusCode))
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, device.NewProbeError(device.ProbeServerError, fmt.Errorf("status code %d", resp.StatusCode))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, device.NewProbeError(device.ProbeMalformedResponse, fmt.Errorf("unexpected status code %d", resp.StatusCode))
	}

	var status statusResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&status); err != nil {
		return nil, device.NewProbeError(device.ProbeMalformedResponse, err)
	}
	if status.StatusFWR == nil {
		return nil, device.NewProbeError(device.ProbeMalformedResponse, fmt.Errorf("StatusFWR missing from device response"))
	}

	info := device.NewFirmwareInfo(status.StatusFWR.Version, status.StatusFWR.Core, status.StatusFWR.SDK)
	c.logger.Debugw("probed device firmware",
		"device", d.Label(),
		"version", info.Version,
		"core", info.CoreVersion,
		"sdk", info.SDKVersion,
	)
	return info, nil
}

// SendUpgrade instructs the device to fetch and flash the latest release.
// The device reboots asynchronously after accepting the command.
func (c *Client) SendUpgrade(ctx context.Context, d device.Device, _ *release.Info) error {
	req, err := c.commandRequest(ctx, d, cmdUpgrade)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send upgrade command: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upgrade command rejected with status code %d", resp.StatusCode)
	}

	c.logger.Infow("upgrade command accepted", "device", d.Label())
	return nil
}

// Ping is the lightweight reachability check used while waiting for a
// device to come back after flashing.
func (c *Client) Ping(ctx context.Context, d device.Device) error {
	u := url.URL{Scheme: "http", Host: d.Address, Path: "/"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}

	resp, err := c.pingClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}
	return nil
}

// commandRequest builds a /cm request. Tasmota authenticates commands via
// user/password query parameters, not an Authorization header.
func (c *Client) commandRequest(ctx context.Context, d device.Device, command string) (*http.Request, error) {
	query := url.Values{"cmnd": {command}}
	if d.HasCredentials() {
		query.Set("user", d.Username)
		query.Set("password", d.Password)
	}
	u := url.URL{
		Scheme:   "http",
		Host:     d.Address,
		Path:     "/cm",
		RawQuery: query.Encode(),
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
}
