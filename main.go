// main is the entry point of the reposcout CLI.
package main

import (
	"github.com/huangsam/reposcout/cmd"
	"github.com/huangsam/reposcout/internal/contract"
	"github.com/huangsam/reposcout/internal/iocache"
)

func main() {
	err := cmd.Execute()

	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	iocache.CloseStores()

	if err != nil {
		contract.LogFatal("Command failed", err)
	}
}
