package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/eth2030/ethblock/core/types"
	"github.com/eth2030/ethblock/engine"
	"github.com/eth2030/ethblock/log"
)

var (
	decodeCommand = &cli.Command{
		Name:      "decode",
		Usage:     "Decode a hex RLP block and print it as JSON",
		ArgsUsage: "FILE",
		Action:    decodeBlock,
	}

	validateCommand = &cli.Command{
		Name:      "validate",
		Usage:     "Validate the body of a hex RLP block against its header",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "only-header", Usage: "Stop after the transaction checks"},
			&cli.BoolFlag{Name: "skip-txs", Usage: "Skip per-transaction validation"},
			&cli.StringFlag{Name: "parent", Usage: "Hex RLP parent header; enables blob gas checks"},
		},
		Action: validateBlock,
	}

	payloadCommand = &cli.Command{
		Name:      "payload",
		Usage:     "Build a block from an execution payload JSON file and check its hash",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "beacon", Usage: "Read the beacon API (snake_case) payload form"},
			&cli.StringFlag{Name: "bundle", Usage: "Blobs bundle JSON file to verify against the block"},
		},
		Action: buildPayload,
	}

	depositsCommand = &cli.Command{
		Name:      "deposits",
		Usage:     "List the deposit requests of a hex RLP block and verify their signatures",
		ArgsUsage: "FILE",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "fork-version", Usage: "Genesis fork version for the deposit domain", Value: "0x00000000"},
		},
		Action: listDeposits,
	}
)

func fileArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s: expected exactly one FILE argument", c.Command.Name)
	}
	return c.Args().First(), nil
}

// readHex reads a file holding a hex string, with or without 0x prefix.
func readHex(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := strings.TrimSpace(string(data))
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func loadBlock(c *cli.Context) (*types.Block, types.BlockOptions, error) {
	opts, err := blockOptions(c)
	if err != nil {
		return nil, opts, err
	}
	path, err := fileArg(c)
	if err != nil {
		return nil, opts, err
	}
	enc, err := readHex(path)
	if err != nil {
		return nil, opts, err
	}
	block, err := types.NewBlockFromRLP(enc, opts)
	if err != nil {
		return nil, opts, err
	}
	return block, opts, nil
}

func printJSON(c *cli.Context, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(out))
	return err
}

func decodeBlock(c *cli.Context) error {
	block, _, err := loadBlock(c)
	if err != nil {
		return err
	}
	return printJSON(c, block)
}

func validateBlock(c *cli.Context) error {
	block, opts, err := loadBlock(c)
	if err != nil {
		return err
	}
	if err := block.ValidateData(c.Context, c.Bool("only-header"), !c.Bool("skip-txs")); err != nil {
		return cli.Exit(err, 1)
	}
	if path := c.String("parent"); path != "" {
		enc, err := readHex(path)
		if err != nil {
			return err
		}
		parent, err := types.HeaderFromRLP(enc, types.HeaderOptions{
			Common:      opts.Common,
			SetHardfork: opts.SetHardfork,
		})
		if err != nil {
			return fmt.Errorf("parent header: %w", err)
		}
		if err := block.ValidateBlobTransactions(parent); err != nil {
			return cli.Exit(err, 1)
		}
		if err := reportBlobFees(c, block.Header(), block.Transactions()); err != nil {
			return err
		}
	}
	log.Info("Block valid", "number", block.Number(), "hash", block.Hash())
	_, err = fmt.Fprintf(c.App.Writer, "valid %s\n", block.ErrorStr())
	return err
}

// reportBlobFees prints the blob gas price of the block and of its child,
// and the blob fee paid by the block's blob transactions.
func reportBlobFees(c *cli.Context, header *types.Header, txs []*types.Transaction) error {
	if !header.IsActivatedEIP(4844) {
		return nil
	}
	price, err := header.BlobGasPrice()
	if err != nil {
		return err
	}
	var blobs int
	for _, tx := range txs {
		blobs += tx.NumBlobs()
	}
	fee, err := header.CalcDataFee(blobs)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "blob gas price=%v next=%v blobs=%d fee=%v\n",
		price, header.CalcNextBlobGasPrice(), blobs, fee)
	return err
}

func buildPayload(c *cli.Context) error {
	opts, err := blockOptions(c)
	if err != nil {
		return err
	}
	path, err := fileArg(c)
	if err != nil {
		return err
	}

	var block *types.Block
	if c.Bool("beacon") {
		var p engine.BeaconPayload
		if err := readJSON(path, &p); err != nil {
			return err
		}
		block, err = engine.BlockFromBeaconPayload(c.Context, &p, opts)
	} else {
		var p engine.ExecutionPayload
		if err := readJSON(path, &p); err != nil {
			return err
		}
		block, err = engine.BlockFromExecutionPayload(c.Context, &p, opts)
	}
	if err != nil {
		return cli.Exit(err, 1)
	}

	if path := c.String("bundle"); path != "" {
		var bundle engine.BlobsBundle
		if err := readJSON(path, &bundle); err != nil {
			return err
		}
		if err := bundle.Verify(block); err != nil {
			return cli.Exit(err, 1)
		}
		fmt.Fprintf(c.App.Writer, "blobs bundle verified (%d blobs)\n", len(bundle.Blobs))
	}
	_, err = fmt.Fprintf(c.App.Writer, "payload ok %s\n", block.ErrorStr())
	return err
}

type depositReport struct {
	Deposit *types.DepositRequest `json:"deposit"`
	Valid   bool                  `json:"valid"`
	Error   string                `json:"error,omitempty"`
}

func listDeposits(c *cli.Context) error {
	var fork [4]byte
	fv, err := hexutil.Decode(c.String("fork-version"))
	if err != nil || len(fv) != len(fork) {
		return fmt.Errorf("invalid --fork-version %q", c.String("fork-version"))
	}
	copy(fork[:], fv)

	block, _, err := loadBlock(c)
	if err != nil {
		return err
	}
	var reports []depositReport
	for _, r := range types.ClRequests(block.Requests()).FilterByType(types.DepositRequestType) {
		deposits, err := types.DecodeDepositRequests(r.Data())
		if err != nil {
			return err
		}
		for _, d := range deposits {
			rep := depositReport{Deposit: d, Valid: true}
			if err := d.VerifySignature(fork); err != nil {
				rep.Valid, rep.Error = false, err.Error()
			}
			reports = append(reports, rep)
		}
	}
	if reports == nil {
		reports = []depositReport{}
	}
	return printJSON(c, reports)
}
