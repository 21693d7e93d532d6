package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"tasmofleet/internal/domain/device"
	"tasmofleet/internal/domain/release"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Probe(ctx context.Context, d device.Device) (*device.FirmwareInfo, error) {
	args := m.Called(ctx, d)
	if info := args.Get(0); info != nil {
		return info.(*device.FirmwareInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockGateway) SendUpgrade(ctx context.Context, d device.Device, rel *release.Info) error {
	args := m.Called(ctx, d, rel)
	return args.Error(0)
}

func (m *mockGateway) Ping(ctx context.Context, d device.Device) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) GetLatestRelease(ctx context.Context) (*release.Info, error) {
	args := m.Called(ctx)
	if info := args.Get(0); info != nil {
		return info.(*release.Info), args.Error(1)
	}
	return nil, args.Error(1)
}

// fakeClock advances instantly on Sleep so recovery waits run without real
// time passing.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}
