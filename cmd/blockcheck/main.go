// Command blockcheck decodes, validates and converts Ethereum blocks and
// execution payloads.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	version = "v0.1.0"
	commit  = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "blockcheck",
		Usage:   "decode, validate and convert Ethereum blocks",
		Version: fmt.Sprintf("%s (commit %s)", version, commit),
		Flags: []cli.Flag{
			networkFlag,
			chainConfigFlag,
			hardforkFlag,
			eipsFlag,
			verbosityFlag,
			metricsFlag,
		},
		Before: setup,
		After:  reportMetrics,
		Commands: []*cli.Command{
			decodeCommand,
			validateCommand,
			payloadCommand,
			depositsCommand,
		},
	}
}
