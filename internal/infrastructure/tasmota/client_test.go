package tasmota

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasmofleet/internal/domain/device"
	"tasmofleet/internal/domain/release"
	"tasmofleet/internal/shared/logger"
)

func testDevice(t *testing.T, server *httptest.Server) device.Device {
	t.Helper()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	return device.Device{Address: u.Host}
}

func TestClientProbe_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/cm", r.URL.Path)
		assert.Equal(t, "Status 2", r.URL.Query().Get("cmnd"))
		w.Write([]byte(`{"StatusFWR":{"Version":"12.4.0(tasmota)","Core":"2_7_4_9","SDK":"2.2.2-dev(38a443e)"}}`))
	}))
	defer server.Close()

	client := NewClient(2*time.Second, logger.NewLogger())
	info, err := client.Probe(context.Background(), testDevice(t, server))

	require.NoError(t, err)
	assert.Equal(t, "12.4.0(tasmota)", info.Version)
	assert.Equal(t, "2_7_4_9", info.CoreVersion)
	assert.Equal(t, "2.2.2-dev(38a443e)", info.SDKVersion)
	assert.False(t, info.IsMinimal)
}

func TestClientProbe_MinimalBuild(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"StatusFWR":{"Version":"12.4.0(minimal)"}}`))
	}))
	defer server.Close()

	client := NewClient(2*time.Second, logger.NewLogger())
	info, err := client.Probe(context.Background(), testDevice(t, server))

	require.NoError(t, err)
	assert.True(t, info.IsMinimal)
	assert.Equal(t, device.UnknownVersion, info.CoreVersion)
	assert.Equal(t, device.UnknownVersion, info.SDKVersion)
}

func TestClientProbe_ErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    device.ProbeErrorKind
	}{
		{
			name: "auth failed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
			want: device.ProbeAuthFailed,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			want: device.ProbeServerError,
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
			want: device.ProbeMalformedResponse,
		},
		{
			name: "missing StatusFWR",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"Status":{}}`))
			},
			want: device.ProbeMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(2*time.Second, logger.NewLogger())
			info, err := client.Probe(context.Background(), testDevice(t, server))

			assert.Nil(t, info)
			pe := device.AsProbeError(err)
			require.NotNil(t, pe)
			assert.Equal(t, tt.want, pe.Kind)
		})
	}
}

func TestClientProbe_Unreachable(t *testing.T) {
	client := NewClient(500*time.Millisecond, logger.NewLogger())
	// Reserved TEST-NET address, nothing listens there.
	_, err := client.Probe(context.Background(), device.Device{Address: "192.0.2.1:80"})

	pe := device.AsProbeError(err)
	require.NotNil(t, pe)
	assert.Equal(t, device.ProbeUnreachable, pe.Kind)
}

func TestClientProbe_CredentialsAsQueryParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user") != "admin" || r.URL.Query().Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"StatusFWR":{"Version":"12.4.0"}}`))
	}))
	defer server.Close()

	d := testDevice(t, server)
	d.Username = "admin"
	d.Password = "secret"

	client := NewClient(2*time.Second, logger.NewLogger())
	info, err := client.Probe(context.Background(), d)

	require.NoError(t, err)
	assert.Equal(t, "12.4.0", info.Version)
}

func TestClientSendUpgrade(t *testing.T) {
	var gotCommand string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCommand = r.URL.Query().Get("cmnd")
		w.Write([]byte(`{"Upgrade":"Version 12.4.0 from http://ota.tasmota.com/tasmota/release/tasmota.bin"}`))
	}))
	defer server.Close()

	client := NewClient(2*time.Second, logger.NewLogger())
	err := client.SendUpgrade(context.Background(), testDevice(t, server), nil)

	require.NoError(t, err)
	assert.Equal(t, "Upgrade 1", gotCommand)
}

func TestClientSendUpgrade_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(2*time.Second, logger.NewLogger())
	err := client.SendUpgrade(context.Background(), testDevice(t, server), nil)

	assert.Error(t, err)
}

func TestClientPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(2*time.Second, logger.NewLogger())
	assert.NoError(t, client.Ping(context.Background(), testDevice(t, server)))

	server.Close()
	assert.Error(t, client.Ping(context.Background(), testDevice(t, server)))
}

func TestGatewayRoutesSimulatedDevices(t *testing.T) {
	gw := NewGateway(2*time.Second, logger.NewLogger())

	d := device.Device{
		Address:   "sim-1",
		Simulated: true,
		SimulatedFirmware: &device.FirmwareInfo{
			Version: "9.5.0",
		},
	}

	info, err := gw.Probe(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, "9.5.0", info.Version)
}

func TestSimulatorUpgradeCycle(t *testing.T) {
	sim := NewSimulator(logger.NewLogger())
	ctx := context.Background()

	d := device.Device{
		Address:                "sim-1",
		Simulated:              true,
		SimulatedFirmware:      &device.FirmwareInfo{Version: "9.5.0"},
		SimulatedRecoveryPolls: 2,
	}

	require.NoError(t, sim.SendUpgrade(ctx, d, &release.Info{Version: "12.4.0"}))

	// Device is "flashing" for two polls, then comes back.
	assert.Error(t, sim.Ping(ctx, d))
	assert.Error(t, sim.Ping(ctx, d))
	assert.NoError(t, sim.Ping(ctx, d))

	info, err := sim.Probe(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "12.4.0", info.Version)
}
