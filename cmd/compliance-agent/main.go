// cmd/compliance-agent/main.go
package main

import (
	"fmt"
	"os"

	"github.com/mwiater/compliance-agent/internal/appconfig"
	"github.com/mwiater/compliance-agent/internal/cli"
	"github.com/mwiater/compliance-agent/internal/logging"
)

var (
	loadConfig   = appconfig.Load
	initLogging  = func(path string) error { return logging.Init(path, nil) }
	closeLogging = logging.Close
	executeCmd   = cli.Execute
)

// main points logging at the configured file and hands off to the
// cobra root command. The exit code is 1 when the command fails.
func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	if err := initLogging(cfg.LogFilePath()); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open log file: %v\n", err)
	}
	defer func() {
		_ = closeLogging()
	}()

	return executeCmd()
}
