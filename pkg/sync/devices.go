package sync

import (
	"context"
	"database/sql"
	"encoding/base64"

	"github.com/engramhq/engram/pkg/crypto"
	"github.com/engramhq/engram/pkg/engerrors"
	"github.com/engramhq/engram/pkg/storage"
	"github.com/engramhq/engram/pkg/types"
)

type authorizeDeviceRequest struct {
	DeviceID        string `json:"deviceId"`
	WrappedVaultKey string `json:"wrappedVaultKey"`
}

// DeviceRegistry implements authorize_device/revoke_device/list_devices: it
// wraps the vault key under a device's RSA public key, registers the
// device both remotely and in the local devices table, and satisfies
// metrics.DeviceCounter for the Prometheus collector.
type DeviceRegistry struct {
	conn      connection
	transport *httpTransport
	db        *storage.DB
	vaultKey  []byte
}

// NewDeviceRegistry constructs a DeviceRegistry in the Disconnected state.
// vaultKey is the 32-byte VK; authorize_device refuses to run without one.
func NewDeviceRegistry(baseURL, token string, db *storage.DB, vaultKey []byte) *DeviceRegistry {
	return &DeviceRegistry{
		transport: newHTTPTransport(baseURL, token),
		db:        db,
		vaultKey:  vaultKey,
	}
}

func (r *DeviceRegistry) Connect()          { r.conn.connect() }
func (r *DeviceRegistry) Disconnect()       { r.conn.disconnect() }
func (r *DeviceRegistry) IsConnected() bool { return r.conn.isConnected() }

// AuthorizeDevice RSA-OAEP-wraps the vault key under the device's public
// key, registers the device with the remote server, and records it
// locally.
func (r *DeviceRegistry) AuthorizeDevice(ctx context.Context, deviceID string, name *string, devicePublicKeyPEM string) (*types.Device, error) {
	if err := r.conn.requireConnected("sync.devices.authorize"); err != nil {
		return nil, err
	}
	if len(r.vaultKey) == 0 {
		return nil, engerrors.New(engerrors.NotInitialized, "sync.devices.authorize")
	}

	wrapped, err := crypto.WrapVaultKeyForDevice(r.vaultKey, devicePublicKeyPEM)
	if err != nil {
		return nil, err
	}

	req := authorizeDeviceRequest{
		DeviceID:        deviceID,
		WrappedVaultKey: base64.StdEncoding.EncodeToString(wrapped),
	}
	if err := r.transport.do(ctx, "POST", "/api/devices/authorize", req, nil); err != nil {
		return nil, err
	}

	now := nowMillis()
	device := types.Device{
		ID:        deviceID,
		Name:      name,
		PublicKey: devicePublicKeyPEM,
		CreatedAt: now,
	}
	_, err = r.db.Conn().ExecContext(ctx,
		`INSERT INTO devices(id, name, public_key, created_at, last_sync_at) VALUES (?,?,?,?,NULL)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, public_key = excluded.public_key`,
		device.ID, device.Name, device.PublicKey, device.CreatedAt,
	)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "sync.devices.authorize", err)
	}
	return &device, nil
}

// RevokeDevice revokes a device remotely and removes its local record.
// Revocation has no intermediate state: the device row is deleted outright.
func (r *DeviceRegistry) RevokeDevice(ctx context.Context, deviceID string) error {
	if err := r.conn.requireConnected("sync.devices.revoke"); err != nil {
		return err
	}
	if err := r.transport.do(ctx, "POST", "/api/devices/"+deviceID+"/revoke", nil, nil); err != nil {
		return err
	}
	_, err := r.db.Conn().ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, deviceID)
	if err != nil {
		return engerrors.Wrap(engerrors.StorageError, "sync.devices.revoke", err)
	}
	return nil
}

// ListDevices returns every locally known authorized device, oldest first.
func (r *DeviceRegistry) ListDevices(ctx context.Context) ([]types.Device, error) {
	rows, err := r.db.Conn().QueryContext(ctx,
		`SELECT id, name, public_key, created_at, last_sync_at FROM devices ORDER BY created_at ASC`)
	if err != nil {
		return nil, engerrors.Wrap(engerrors.StorageError, "sync.devices.list", err)
	}
	defer rows.Close()

	var out []types.Device
	for rows.Next() {
		var (
			d          types.Device
			name       sql.NullString
			lastSyncAt sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &name, &d.PublicKey, &d.CreatedAt, &lastSyncAt); err != nil {
			return nil, engerrors.Wrap(engerrors.StorageError, "sync.devices.list", err)
		}
		if name.Valid {
			d.Name = &name.String
		}
		if lastSyncAt.Valid {
			d.LastSyncAt = &lastSyncAt.Int64
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeviceCount satisfies metrics.DeviceCounter.
func (r *DeviceRegistry) DeviceCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&count)
	if err != nil {
		return 0, engerrors.Wrap(engerrors.StorageError, "sync.devices.count", err)
	}
	return count, nil
}
