package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/engramhq/engram/pkg/crypto"
	"github.com/engramhq/engram/pkg/engerrors"
)

func (s *Server) requireDevices() error {
	if s.devices == nil {
		return engerrors.New(engerrors.NotInitialized, "mcp.devices")
	}
	return nil
}

func (s *Server) authorizeDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.requireDevices(); err != nil {
		return nil, err
	}
	deviceID := request.GetString("device_id", "")
	publicKey := request.GetString("public_key", "")

	var name *string
	if raw := request.GetString("name", ""); raw != "" {
		name = &raw
	}

	device, err := s.devices.AuthorizeDevice(ctx, deviceID, name, publicKey)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("Device %s has been authorized.", device.ID)), nil
}

func (s *Server) revokeDevice(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.requireDevices(); err != nil {
		return nil, err
	}
	deviceID := request.GetString("device_id", "")
	if err := s.devices.RevokeDevice(ctx, deviceID); err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(fmt.Sprintf("Device %s has been revoked.", deviceID)), nil
}

func (s *Server) listDevices(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.requireDevices(); err != nil {
		return nil, err
	}
	devices, err := s.devices.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return mcp.NewToolResultText("No devices authorized."), nil
	}

	var lines []string
	for i, d := range devices {
		name := d.ID
		if d.Name != nil && *d.Name != "" {
			name = *d.Name
		}
		lines = append(lines, fmt.Sprintf("%d. %s (%s)", i+1, name, d.ID))
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) createRecoveryKit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.vaultKey == nil {
		return nil, errVaultNotInitialized
	}
	vaultKey, err := s.vaultKey()
	if err != nil {
		return nil, err
	}

	shares := int(request.GetFloat("shares", 5))
	threshold := int(request.GetFloat("threshold", 3))

	kit, err := crypto.GenerateRecoveryKit(vaultKey, "user", shares, threshold)
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, share := range kit.Shares {
		lines = append(lines, fmt.Sprintf("Share %d: %s", share.Index, firstChars(share.Data, 20)+"…"))
	}
	lines = append(lines, fmt.Sprintf("\nStore each share separately. Any %d of %d shares recover the vault key.", kit.Threshold, kit.Total))

	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}
