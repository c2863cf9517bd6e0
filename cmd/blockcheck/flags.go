package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/eth2030/ethblock/core/types"
	"github.com/eth2030/ethblock/log"
	"github.com/eth2030/ethblock/metrics"
	"github.com/eth2030/ethblock/params"
)

var (
	networkFlag = &cli.StringFlag{
		Name:  "network",
		Usage: "Chain to interpret blocks for (mainnet, sepolia, holesky, hoodi)",
		Value: "mainnet",
	}
	chainConfigFlag = &cli.StringFlag{
		Name:  "chainconfig",
		Usage: "Path to a chain config or genesis JSON file; overrides --network",
	}
	hardforkFlag = &cli.StringFlag{
		Name:  "hardfork",
		Usage: "Pin the hardfork instead of selecting it from the block number and timestamp",
	}
	eipsFlag = &cli.IntSliceFlag{
		Name:  "eips",
		Usage: "Activate additional EIPs (e.g. 7685,6800)",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Log level 0-5 (0=silent, 5=trace)",
		Value: 3,
	}
	metricsFlag = &cli.BoolFlag{
		Name:  "metrics",
		Usage: "Print the block engine counters on exit",
	}
)

func setup(c *cli.Context) error {
	log.SetDefault(log.NewTerminal(os.Stderr, log.VerbosityToLevel(c.Int(verbosityFlag.Name)), false))
	if c.Bool(metricsFlag.Name) {
		metrics.Enable()
	}
	return nil
}

func reportMetrics(c *cli.Context) error {
	if !c.Bool(metricsFlag.Name) {
		return nil
	}
	for _, s := range metrics.Snapshot() {
		fmt.Fprintf(c.App.ErrWriter, "%-32s %d\n", s.Name, s.Value)
	}
	return nil
}

// blockOptions builds the construction options selected by the global
// flags. Without --hardfork the fork follows each block.
func blockOptions(c *cli.Context) (types.BlockOptions, error) {
	config, err := params.NetworkConfig(c.String(networkFlag.Name))
	if path := c.String(chainConfigFlag.Name); path != "" {
		config, err = params.LoadChainConfig(path)
	}
	if err != nil {
		return types.BlockOptions{}, err
	}

	var opts []params.Option
	if name := c.String(hardforkFlag.Name); name != "" {
		fork, err := params.ParseHardfork(name)
		if err != nil {
			return types.BlockOptions{}, err
		}
		opts = append(opts, params.WithHardfork(fork))
	}
	if eips := c.IntSlice(eipsFlag.Name); len(eips) > 0 {
		opts = append(opts, params.WithEIPs(eips...))
	}
	common, err := params.NewCommon(config, opts...)
	if err != nil {
		return types.BlockOptions{}, err
	}
	return types.BlockOptions{
		Common:      common,
		SetHardfork: c.String(hardforkFlag.Name) == "",
	}, nil
}
