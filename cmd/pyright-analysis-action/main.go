package main

import (
	"os"

	"github.com/mjpieters/pyright-analysis-action/internal/cli"
	"github.com/mjpieters/pyright-analysis-action/internal/logging"
)

// main is the entry point for the pyright-analysis-action binary.
func main() {
	logger := logging.NewLogger(os.Stderr, logging.LevelInfo)
	if err := cli.Execute(os.Args[1:], logger); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}
