package cmd

import (
	"fmt"

	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/internal/iocache"
	"github.com/spf13/cobra"
)

// recordsSetup loads minimal configuration needed for record store operations.
// This is used by commands that need record access without full shared setup.
func recordsSetup() error {
	backend, connStr, err := storeSetup("records-backend", "records-db-connect", contract.GetRecordsDBFilePath)
	if err != nil {
		return err
	}

	// Initialize the record store only (no run tracking for record commands)
	if err := iocache.InitStores(backend, connStr, "", ""); err != nil {
		return fmt.Errorf("failed to initialize record store: %w", err)
	}

	cfg.RecordsBackend = backend
	cfg.RecordsDBConnect = connStr

	return nil
}

// recordsSetupWrapper wraps recordsSetup to provide PreRunE for records commands.
func recordsSetupWrapper(_ *cobra.Command, _ []string) error {
	return recordsSetup()
}

// recordsCmd focused on record store management.
//
// Note: Records subcommands use minimal initialization (recordsSetup) instead of
// the full sharedSetup used by pipeline commands. This skips profile and policy
// validation for simple storage operations.
var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Manage the append-only store of source records",
	Long: `Manage the record store that 'ingest' writes and 'run' reads when no batch
files are given.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status - Show record counts, observation range and connection info
  clear  - Remove all repositories and source records

Examples:
  # Check record store status
  reposcout records status

  # Start over with an empty store
  reposcout records clear`,
}

// recordsClearCmd clears the record store.
var recordsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all repositories and source records",
	Long: `Delete all ingested repositories and source records from the configured backend.

WARNING: Source records are the only input history. This action cannot be undone.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the record tables

Examples:
  # Clear SQLite records (default)
  reposcout records clear

  # Clear MySQL records (set connection string via env variable)
  REPOSCOUT_RECORDS_BACKEND=mysql REPOSCOUT_RECORDS_DB_CONNECT="..." reposcout records clear`,
	PreRunE: recordsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// Close first so SQLite releases the file before it is removed
		iocache.CloseStores()
		if err := iocache.ClearRecords(cfg.RecordsBackend, cfg.RecordsDBConnect, cfg.RecordsDBConnect); err != nil {
			contract.LogFatal("Failed to clear records", err)
		}
		fmt.Println("Records cleared successfully.")
	},
}

// recordsStatusCmd shows record store status.
var recordsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display record store statistics and connection details",
	Long: `Show detailed information about the record store.

Displays:
- Backend type and connection status
- Number of repositories and source records
- Newest and oldest observation times
- Table size

Examples:
  # Check record store status
  reposcout records status`,
	PreRunE: recordsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetRecordStore()
		if store == nil {
			fmt.Println("Records Backend: none")
			return
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get record status", err)
		}
		iocache.PrintRecordStatus(status)
	},
}
