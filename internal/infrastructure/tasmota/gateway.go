package tasmota

import (
	"context"
	"time"

	"tasmofleet/internal/domain/device"
	"tasmofleet/internal/domain/release"
	"tasmofleet/internal/shared/logger"
)

// Gateway routes device calls to the real HTTP client or the simulator
// depending on each record's simulated flag. Both variants satisfy the
// same contract, so callers never need to know which one answered.
type Gateway struct {
	client    *Client
	simulator *Simulator
}

// NewGateway builds the device gateway used by the reconciliation engine.
func NewGateway(probeTimeout time.Duration, log logger.Interface) *Gateway {
	return &Gateway{
		client:    NewClient(probeTimeout, log),
		simulator: NewSimulator(log),
	}
}

func (g *Gateway) Probe(ctx context.Context, d device.Device) (*device.FirmwareInfo, error) {
	if d.Simulated {
		return g.simulator.Probe(ctx, d)
	}
	return g.client.Probe(ctx, d)
}

func (g *Gateway) SendUpgrade(ctx context.Context, d device.Device, rel *release.Info) error {
	if d.Simulated {
		return g.simulator.SendUpgrade(ctx, d, rel)
	}
	return g.client.SendUpgrade(ctx, d, rel)
}

func (g *Gateway) Ping(ctx context.Context, d device.Device) error {
	if d.Simulated {
		return g.simulator.Ping(ctx, d)
	}
	return g.client.Ping(ctx, d)
}
