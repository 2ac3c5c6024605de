// Package main is the entry point of the brentcp CLI.
package main

import (
	"github.com/oilshock/brentcp/cmd"
	"github.com/oilshock/brentcp/internal/contract"
	"github.com/oilshock/brentcp/internal/iocache"
)

func main() {
	err := cmd.Execute()
	if stopErr := cmd.StopProfiling(); stopErr != nil {
		contract.LogWarn("Failed to stop profiling", stopErr)
	}
	iocache.CloseStores()
	if err != nil {
		contract.LogFatal("Error", err)
	}
}
