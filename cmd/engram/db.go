package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/engramhq/engram/pkg/config"
	"github.com/engramhq/engram/pkg/crypto"
	"github.com/engramhq/engram/pkg/dlp"
	"github.com/engramhq/engram/pkg/memory"
	"github.com/engramhq/engram/pkg/secrets"
	"github.com/engramhq/engram/pkg/storage"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Inspect and initialize the local Engram database",
}

var dbInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database file and apply its schema if not already present",
	RunE:  runDBInit,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print memory, secret, and device counts",
	RunE:  runDBStats,
}

func init() {
	dbCmd.AddCommand(dbInitCmd)
	dbCmd.AddCommand(dbStatsCmd)
}

func runDBInit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	db, err := storage.Open(ctx, cfg.DBPath, cfg.VectorDim)
	if err != nil {
		return err
	}
	defer db.Close()

	keyVault := newFileKeyVault(dataDirFor(cfg))
	if _, err := loadOrCreateMasterKey(keyVault); err != nil {
		return err
	}
	if _, err := loadOrCreateVaultKey(ctx, db); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "database ready at %s\n", cfg.DBPath)
	return nil
}

func runDBStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	db, err := storage.Open(ctx, cfg.DBPath, cfg.VectorDim)
	if err != nil {
		return err
	}
	defer db.Close()

	vaultKey, err := loadOrCreateVaultKey(ctx, db)
	if err != nil {
		return err
	}
	vaultSvc, err := crypto.NewService(vaultKey)
	if err != nil {
		return err
	}
	blindKey := deriveBlindKey(vaultKey)

	memories := memory.New(db, dlp.New(), vaultSvc)
	secretsStore := secrets.New(db, vaultSvc, blindKey, nil)

	memCount, err := memories.Count(ctx)
	if err != nil {
		return err
	}
	secretCount, err := secretsStore.Count(ctx)
	if err != nil {
		return err
	}

	var deviceCount int64
	if err := db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM devices`).Scan(&deviceCount); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "memories: %d\n", memCount)
	fmt.Fprintf(out, "secrets:  %d\n", secretCount)
	fmt.Fprintf(out, "devices:  %d\n", deviceCount)
	return nil
}

func dataDirFor(cfg config.Config) string {
	return filepath.Dir(cfg.DBPath)
}
