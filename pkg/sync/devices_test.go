package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/engramhq/engram/pkg/crypto"
)

func testDevicePublicKeyPEM(t *testing.T) string {
	t.Helper()
	priv, err := crypto.GenerateDeviceKeyPair()
	require.NoError(t, err)
	pem, err := crypto.PublicKeyToPEM(&priv.PublicKey)
	require.NoError(t, err)
	return pem
}

func TestAuthorizeDeviceRequiresVaultKey(t *testing.T) {
	db := newTestDB(t)
	registry := NewDeviceRegistry("http://example.invalid", "", db, nil)
	registry.Connect()

	_, err := registry.AuthorizeDevice(context.Background(), "dev-1", nil, testDevicePublicKeyPEM(t))
	require.Error(t, err)
}

func TestAuthorizeDeviceRegistersLocallyAndRemotely(t *testing.T) {
	var received authorizeDeviceRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
	}))
	defer server.Close()

	db := newTestDB(t)
	vaultKey := make([]byte, 32)
	registry := NewDeviceRegistry(server.URL, "", db, vaultKey)
	registry.Connect()

	name := "laptop"
	device, err := registry.AuthorizeDevice(context.Background(), "dev-1", &name, testDevicePublicKeyPEM(t))
	require.NoError(t, err)
	require.Equal(t, "dev-1", device.ID)
	require.Equal(t, "dev-1", received.DeviceID)
	require.NotEmpty(t, received.WrappedVaultKey)

	devices, err := registry.ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.Equal(t, "laptop", *devices[0].Name)

	count, err := registry.DeviceCount(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestRevokeDeviceRemovesLocalRecord(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	db := newTestDB(t)
	vaultKey := make([]byte, 32)
	registry := NewDeviceRegistry(server.URL, "", db, vaultKey)
	registry.Connect()

	_, err := registry.AuthorizeDevice(context.Background(), "dev-1", nil, testDevicePublicKeyPEM(t))
	require.NoError(t, err)

	require.NoError(t, registry.RevokeDevice(context.Background(), "dev-1"))

	devices, err := registry.ListDevices(context.Background())
	require.NoError(t, err)
	require.Empty(t, devices)
}

func TestDeviceRegistryRequiresConnection(t *testing.T) {
	db := newTestDB(t)
	registry := NewDeviceRegistry("http://example.invalid", "", db, make([]byte, 32))

	_, err := registry.AuthorizeDevice(context.Background(), "dev-1", nil, testDevicePublicKeyPEM(t))
	require.Error(t, err)

	err = registry.RevokeDevice(context.Background(), "dev-1")
	require.Error(t, err)
}
