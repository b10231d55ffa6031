package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/engramhq/engram/pkg/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "engram",
	Short: "Engram - local-first, end-to-end-encrypted memory for AI assistants",
	Long: `Engram stores facts and credentials for an AI assistant in an
encrypted local database, retrieves them by semantic similarity over the
Model Context Protocol, and optionally mirrors them across a user's
authorized devices.`,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dbCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
