package usecases

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tasmofleet/internal/domain/device"
	"tasmofleet/internal/domain/release"
	apperrors "tasmofleet/internal/shared/errors"
	"tasmofleet/internal/shared/logger"
)

func newFleetUC(gateway *mockGateway, resolver *mockResolver, concurrency int) *RunFleetUseCase {
	log := logger.NewLogger()
	reconcile := NewReconcileDeviceUseCase(gateway, newFakeClock(), log)
	return NewRunFleetUseCase(resolver, reconcile, concurrency, 60*time.Second, 5*time.Second, log)
}

func TestRunFleet_EmptyFleetIsRejected(t *testing.T) {
	uc := newFleetUC(new(mockGateway), new(mockResolver), 4)

	summary, err := uc.Execute(context.Background(), nil, RunFleetCommand{})

	require.Error(t, err)
	assert.Nil(t, summary)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
}

func TestRunFleet_CheckOnlyAggregates(t *testing.T) {
	devOld := device.Device{Address: "192.168.1.10", Name: "porch"}
	devCurrent := device.Device{Address: "192.168.1.11", Name: "garage"}

	gateway := new(mockGateway)
	gateway.On("Probe", mock.Anything, devOld).Return(firmware("12.3.1"), nil).Once()
	gateway.On("Probe", mock.Anything, devCurrent).Return(firmware("12.4.0"), nil).Once()

	resolver := new(mockResolver)
	resolver.On("GetLatestRelease", mock.Anything).Return(testRelease, nil).Once()

	uc := newFleetUC(gateway, resolver, 4)
	summary, err := uc.Execute(context.Background(), []device.Device{devOld, devCurrent}, RunFleetCommand{CheckOnly: true})

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 1, summary.NeedsUpdate)
	assert.Equal(t, 0, summary.Updated)

	// Outcomes follow the input order, not completion order.
	require.Len(t, summary.Outcomes, 2)
	assert.Equal(t, "192.168.1.10", summary.Outcomes[0].Address)
	assert.Equal(t, "192.168.1.11", summary.Outcomes[1].Address)
	assert.True(t, summary.Outcomes[0].NeedsUpdate)
	assert.False(t, summary.Outcomes[1].NeedsUpdate)

	gateway.AssertNotCalled(t, "SendUpgrade", mock.Anything, mock.Anything, mock.Anything)
	resolver.AssertNumberOfCalls(t, "GetLatestRelease", 1)
}

func TestRunFleet_OneUnreachableDeviceDoesNotAbortTheOthers(t *testing.T) {
	devA := device.Device{Address: "192.168.1.10"}
	devB := device.Device{Address: "192.168.1.11"}
	devC := device.Device{Address: "192.168.1.12"}

	gateway := new(mockGateway)
	gateway.On("Probe", mock.Anything, devA).Return(firmware("12.4.0"), nil).Once()
	gateway.On("Probe", mock.Anything, devB).
		Return(nil, device.NewProbeError(device.ProbeUnreachable, errors.New("connect: no route to host"))).Once()
	gateway.On("Probe", mock.Anything, devC).Return(firmware("12.4.0"), nil).Once()

	resolver := new(mockResolver)
	resolver.On("GetLatestRelease", mock.Anything).Return(testRelease, nil).Once()

	uc := newFleetUC(gateway, resolver, 2)
	summary, err := uc.Execute(context.Background(), []device.Device{devA, devB, devC}, RunFleetCommand{})

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 3, summary.Checked)

	assert.True(t, summary.Outcomes[0].Success)
	assert.False(t, summary.Outcomes[1].Success)
	assert.Contains(t, summary.Outcomes[1].Message, "device unreachable")
	assert.True(t, summary.Outcomes[2].Success)
}

func TestRunFleet_ReleaseUnavailableStillProbesEveryDevice(t *testing.T) {
	devA := device.Device{Address: "192.168.1.10"}
	devB := device.Device{Address: "192.168.1.11"}

	gateway := new(mockGateway)
	gateway.On("Probe", mock.Anything, devA).Return(firmware("12.3.1"), nil).Once()
	gateway.On("Probe", mock.Anything, devB).Return(firmware("12.4.0"), nil).Once()

	resolver := new(mockResolver)
	resolver.On("GetLatestRelease", mock.Anything).Return(nil, release.ErrUnavailable).Once()

	uc := newFleetUC(gateway, resolver, 4)
	summary, err := uc.Execute(context.Background(), []device.Device{devA, devB}, RunFleetCommand{})

	require.NoError(t, err)
	assert.Equal(t, 2, summary.Checked)
	assert.Equal(t, 0, summary.NeedsUpdate)
	for _, out := range summary.Outcomes {
		assert.False(t, out.Success)
		assert.Equal(t, "cannot determine latest version", out.Message)
		assert.NotEqual(t, device.UnknownVersion, out.CurrentVersion)
	}
	gateway.AssertNotCalled(t, "SendUpgrade", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunFleet_FullUpdateRun(t *testing.T) {
	devA := device.Device{Address: "192.168.1.10", Name: "porch"}
	devB := device.Device{Address: "192.168.1.11", Name: "garage"}

	gateway := new(mockGateway)
	// devA is behind and flashes cleanly.
	gateway.On("Probe", mock.Anything, devA).Return(firmware("9.5.0"), nil).Once()
	gateway.On("SendUpgrade", mock.Anything, devA, testRelease).Return(nil).Once()
	gateway.On("Ping", mock.Anything, devA).Return(errors.New("rebooting")).Once()
	gateway.On("Ping", mock.Anything, devA).Return(nil).Once()
	gateway.On("Probe", mock.Anything, devA).Return(firmware("12.4.0"), nil).Once()
	// devB is already current.
	gateway.On("Probe", mock.Anything, devB).Return(firmware("12.4.0"), nil).Once()

	resolver := new(mockResolver)
	resolver.On("GetLatestRelease", mock.Anything).Return(testRelease, nil).Once()

	uc := newFleetUC(gateway, resolver, 1)
	summary, err := uc.Execute(context.Background(), []device.Device{devA, devB}, RunFleetCommand{})

	require.NoError(t, err)
	assert.Equal(t, 1, summary.NeedsUpdate)
	assert.Equal(t, 1, summary.Updated)

	updated := summary.Outcomes[0]
	assert.True(t, updated.Success)
	assert.True(t, updated.NeedsUpdate)
	assert.True(t, updated.UpdateStarted)
	assert.True(t, updated.UpdateCompleted)
	assert.Equal(t, "12.4.0", updated.CurrentVersion)
	assert.Equal(t, "update successful", updated.Message)

	current := summary.Outcomes[1]
	assert.True(t, current.Success)
	assert.False(t, current.UpdateStarted)

	gateway.AssertNumberOfCalls(t, "SendUpgrade", 1)
}

type panicGateway struct {
	mockGateway
	panicOn string
}

func (g *panicGateway) Probe(ctx context.Context, d device.Device) (*device.FirmwareInfo, error) {
	if d.Address == g.panicOn {
		panic("probe exploded")
	}
	return g.mockGateway.Probe(ctx, d)
}

func TestRunFleet_PanicInOneDeviceBecomesFailedOutcome(t *testing.T) {
	devA := device.Device{Address: "192.168.1.10"}
	devB := device.Device{Address: "192.168.1.11"}

	gateway := &panicGateway{panicOn: devA.Address}
	gateway.On("Probe", mock.Anything, devB).Return(firmware("12.4.0"), nil).Once()

	resolver := new(mockResolver)
	resolver.On("GetLatestRelease", mock.Anything).Return(testRelease, nil).Once()

	log := logger.NewLogger()
	reconcile := NewReconcileDeviceUseCase(gateway, newFakeClock(), log)
	uc := NewRunFleetUseCase(resolver, reconcile, 1, 60*time.Second, 5*time.Second, log)

	summary, err := uc.Execute(context.Background(), []device.Device{devA, devB}, RunFleetCommand{})

	require.NoError(t, err)
	assert.False(t, summary.Outcomes[0].Success)
	assert.Equal(t, "internal error during reconciliation", summary.Outcomes[0].Message)
	assert.True(t, summary.Outcomes[1].Success)
}
