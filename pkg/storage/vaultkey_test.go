package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadVaultKeyAbsentReturnsNil(t *testing.T) {
	db := openTestDB(t)
	key, err := db.LoadVaultKey(context.Background())
	require.NoError(t, err)
	require.Nil(t, key)
}

func TestSaveAndLoadVaultKeyRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	want := make([]byte, 32)
	for i := range want {
		want[i] = byte(i)
	}
	require.NoError(t, db.SaveVaultKey(ctx, want, 1000))

	got, err := db.LoadVaultKey(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestSaveVaultKeyOverwritesOnRotation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := make([]byte, 32)
	second := make([]byte, 32)
	for i := range second {
		second[i] = byte(255 - i)
	}

	require.NoError(t, db.SaveVaultKey(ctx, first, 1000))
	require.NoError(t, db.SaveVaultKey(ctx, second, 2000))

	got, err := db.LoadVaultKey(ctx)
	require.NoError(t, err)
	require.Equal(t, second, got)
}

func TestSaveVaultKeyRejectsWrongLength(t *testing.T) {
	db := openTestDB(t)
	err := db.SaveVaultKey(context.Background(), []byte("too-short"), 1000)
	require.Error(t, err)
}
