package mcp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"github.com/engramhq/engram/pkg/crypto"
	"github.com/engramhq/engram/pkg/dlp"
	"github.com/engramhq/engram/pkg/memory"
	"github.com/engramhq/engram/pkg/secrets"
	"github.com/engramhq/engram/pkg/storage"
	"github.com/engramhq/engram/pkg/types"
)

type fakeEmbedder struct{ status EmbeddingStatus }

func (f fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8}, nil
}

func (f fakeEmbedder) Status() EmbeddingStatus { return f.status }

type fakeDeviceRegistry struct {
	devices []types.Device
}

func (f *fakeDeviceRegistry) AuthorizeDevice(ctx context.Context, deviceID string, name *string, pem string) (*types.Device, error) {
	d := types.Device{ID: deviceID, Name: name, PublicKey: pem}
	f.devices = append(f.devices, d)
	return &d, nil
}

func (f *fakeDeviceRegistry) RevokeDevice(ctx context.Context, deviceID string) error {
	var kept []types.Device
	for _, d := range f.devices {
		if d.ID != deviceID {
			kept = append(kept, d)
		}
	}
	f.devices = kept
	return nil
}

func (f *fakeDeviceRegistry) ListDevices(ctx context.Context) ([]types.Device, error) {
	return f.devices, nil
}

func newTestServer(t *testing.T, withDevices bool, withVaultKey bool) *Server {
	t.Helper()
	db, err := storage.Open(context.Background(), filepath.Join(t.TempDir(), "mcp.db"), 8)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	masterKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	cryptoSvc, err := crypto.NewService(masterKey)
	require.NoError(t, err)

	memories := memory.New(db, dlp.New(), cryptoSvc)
	secretsStore := secrets.New(db, cryptoSvc, make([]byte, 32), nil)

	var devices DeviceRegistry
	if withDevices {
		devices = &fakeDeviceRegistry{}
	}

	var vaultKeyFn VaultKeyProvider
	if withVaultKey {
		vaultKeyFn = func() ([]byte, error) { return masterKey, nil }
	}

	return New(memories, secretsStore, devices, fakeEmbedder{status: EmbeddingReady}, vaultKeyFn)
}

func newRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

func TestSaveMemoryAndReadMemory(t *testing.T) {
	s := newTestServer(t, false, false)
	ctx := context.Background()

	result, err := s.saveMemory(ctx, newRequest(map[string]any{"content": "remember the deploy window is Friday"}))
	require.NoError(t, err)
	require.NotNil(t, result)

	readResult, err := s.readMemory(ctx, newRequest(map[string]any{"query": "deploy window"}))
	require.NoError(t, err)
	require.NotNil(t, readResult)
}

func TestReadMemoryEmptyReturnsNoneFoundMessage(t *testing.T) {
	s := newTestServer(t, false, false)
	result, err := s.readMemory(context.Background(), newRequest(map[string]any{"query": "anything"}))
	require.NoError(t, err)
	require.NotNil(t, result)
}

func TestDeleteMemoryNotFound(t *testing.T) {
	s := newTestServer(t, false, false)
	result, err := s.deleteMemory(context.Background(), newRequest(map[string]any{"id": "missing-id"}))
	require.NoError(t, err)
	require.NotNil(t, result)
}

func TestMemoryStatusReportsCountAndEmbeddingState(t *testing.T) {
	s := newTestServer(t, false, false)
	result, err := s.memoryStatus(context.Background(), newRequest(nil))
	require.NoError(t, err)
	require.NotNil(t, result)
}

func TestGetSecretWithoutVaultFails(t *testing.T) {
	s := newTestServer(t, false, false)
	s.secrets = nil
	_, err := s.getSecret(context.Background(), newRequest(map[string]any{"key": "API_KEY"}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "vault not initialized")
}

func TestSetAndGetSecretRoundTrip(t *testing.T) {
	s := newTestServer(t, false, false)
	ctx := context.Background()

	_, err := s.setSecret(ctx, newRequest(map[string]any{"key": "API_KEY", "value": "sk-ant-REDACTED"}))
	require.NoError(t, err)

	result, err := s.getSecret(ctx, newRequest(map[string]any{"key": "API_KEY"}))
	require.NoError(t, err)
	require.NotNil(t, result)
}

func TestAuthorizeDeviceWithoutRegistryFails(t *testing.T) {
	s := newTestServer(t, false, false)
	_, err := s.authorizeDevice(context.Background(), newRequest(map[string]any{"device_id": "dev-1", "public_key": "pem"}))
	require.Error(t, err)
}

func TestAuthorizeAndListAndRevokeDevice(t *testing.T) {
	s := newTestServer(t, true, false)
	ctx := context.Background()

	_, err := s.authorizeDevice(ctx, newRequest(map[string]any{"device_id": "dev-1", "public_key": "pem", "name": "laptop"}))
	require.NoError(t, err)

	listResult, err := s.listDevices(ctx, newRequest(nil))
	require.NoError(t, err)
	require.NotNil(t, listResult)

	_, err = s.revokeDevice(ctx, newRequest(map[string]any{"device_id": "dev-1"}))
	require.NoError(t, err)
}

func TestCreateRecoveryKitWithoutVaultKeyFails(t *testing.T) {
	s := newTestServer(t, false, false)
	_, err := s.createRecoveryKit(context.Background(), newRequest(map[string]any{"shares": float64(5), "threshold": float64(3)}))
	require.Error(t, err)
}

func TestCreateRecoveryKitSucceeds(t *testing.T) {
	s := newTestServer(t, false, true)
	result, err := s.createRecoveryKit(context.Background(), newRequest(map[string]any{"shares": float64(5), "threshold": float64(3)}))
	require.NoError(t, err)
	require.NotNil(t, result)
}

func TestWrapToolConvertsErrorToIsError(t *testing.T) {
	handler := wrapTool("Test", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return nil, errVaultNotInitialized
	})
	result, err := handler(context.Background(), newRequest(nil))
	require.NoError(t, err)
	require.True(t, result.IsError)
}

func TestWrapToolRecoversPanic(t *testing.T) {
	handler := wrapTool("Test", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		panic("boom")
	})
	result, err := handler(context.Background(), newRequest(nil))
	require.NoError(t, err)
	require.True(t, result.IsError)
}
