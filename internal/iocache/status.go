package iocache

import (
	"fmt"
	"slices"

	"github.com/huangsam/reposcout/schema"
)

// PrintRecordStatus prints record store status information.
func PrintRecordStatus(status schema.RecordStoreStatus) {
	fmt.Printf("Records Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Repositories: %d\n", status.Repositories)
	fmt.Printf("Source Records: %d\n", status.Records)
	if status.Records > 0 {
		fmt.Printf("Last Observed: %s\n", status.LastObserved.Format("2006-01-02 15:04:05"))
		fmt.Printf("Oldest Observed: %s\n", status.OldestObserved.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("Table Size: %d bytes\n", status.TableSizeBytes)
}

// PrintRunStatus prints run store status information.
func PrintRunStatus(status schema.RunStoreStatus) {
	fmt.Printf("Runs Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total Runs: %d\n", status.TotalRuns)
	if status.TotalRuns > 0 {
		fmt.Printf("Last Run ID: %d (%s)\n", status.LastRunID, status.LastRunUUID)
		fmt.Printf("Last Run: %s\n", status.LastRunTime.Format("2006-01-02 15:04:05"))
		fmt.Printf("Oldest Run: %s\n", status.OldestRunTime.Format("2006-01-02 15:04:05"))
		fmt.Printf("Total Repositories Processed: %d\n", status.TotalRepositories)
	}
	fmt.Println("Table Sizes:")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	for _, table := range tables {
		fmt.Printf("  %s: %d rows\n", table, status.TableSizes[table])
	}
}
