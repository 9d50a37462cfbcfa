package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	sqliteadapter "github.com/ericfisherdev/passpanel/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/passpanel/internal/application"
	"github.com/ericfisherdev/passpanel/internal/config"
)

var (
	exportOutput         string
	exportMasterPassword string
	importMode           string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all saved passwords as CSV",
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Load passwords from a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "file to write (default stdout)")
	exportCmd.Flags().StringVar(&exportMasterPassword, "master-password", "", "master password, required when one is set")
	importCmd.Flags().StringVar(&importMode, "mode", string(application.ImportMerge), "merge or replace")
	rootCmd.AddCommand(exportCmd, importCmd)
}

// openTransfer opens the configured database and builds a TransferService on it.
func openTransfer(cmd *cobra.Command) (*application.TransferService, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	db, err := openDB(cmd.Context(), cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := db.Close(); err != nil {
			slog.Error("error closing database", "error", err)
		}
	}

	gate := application.NewGateService(sqliteadapter.NewSettingRepo(db))
	return application.NewTransferService(sqliteadapter.NewCredentialRepo(db), gate), closeDB, nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	transfer, closeDB, err := openTransfer(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	out := cmd.OutOrStdout()
	if exportOutput != "" {
		file, err := os.OpenFile(exportOutput, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("create %s: %w", exportOutput, err)
		}
		defer file.Close()
		out = file
	}

	count, err := transfer.Export(cmd.Context(), out, exportMasterPassword)
	if err != nil {
		return err
	}

	if exportOutput != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d passwords to %s\n", count, exportOutput)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	mode, err := application.ParseImportMode(importMode)
	if err != nil {
		return err
	}

	transfer, closeDB, err := openTransfer(cmd)
	if err != nil {
		return err
	}
	defer closeDB()

	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open %s: %w", args[0], err)
	}
	defer file.Close()

	result, err := transfer.Import(cmd.Context(), file, mode)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d passwords, skipped %d (%s)\n", result.Imported, result.Skipped, mode)
	return nil
}
