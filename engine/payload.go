package engine

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/eth2030/ethblock/core/types"
	"github.com/eth2030/ethblock/log"
	"github.com/eth2030/ethblock/metrics"
	"github.com/eth2030/ethblock/params"
)

// BlockFromExecutionPayload builds a block from an execution payload and
// checks the payload's block hash against the hash of the rebuilt header.
//
// Transactions are decoded under opts.Common (re-targeted to the payload's
// number and timestamp when opts.SetHardfork is set). The transaction and
// withdrawal roots are derived from the payload lists, so a payload whose
// lists do not match its hash is rejected by the hash check.
func BlockFromExecutionPayload(ctx context.Context, p *ExecutionPayload, opts types.BlockOptions) (*types.Block, error) {
	block, err := blockFromExecutionPayload(ctx, p, opts)
	if err != nil {
		metrics.ConstructFailures.Inc(1)
		return nil, err
	}
	metrics.BlocksFromPayload.Inc(1)
	return block, nil
}

func blockFromExecutionPayload(ctx context.Context, p *ExecutionPayload, opts types.BlockOptions) (*types.Block, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}
	rules := params.DefaultCommon()
	if opts.Common != nil {
		rules = opts.Common.Copy()
	}
	if opts.SetHardfork {
		rules.SetHardforkBy(new(big.Int).SetUint64(uint64(p.BlockNumber)), uint64(p.Timestamp))
	}

	txs := make([]*types.Transaction, len(p.Transactions))
	for i, enc := range p.Transactions {
		tx, err := types.TransactionFromSerialized(enc, rules)
		if err != nil {
			return nil, fmt.Errorf("Invalid tx at index %d: %w", i, err)
		}
		txs[i] = tx
	}

	newTrie := opts.Trie
	if newTrie == nil {
		newTrie = types.NewListTrie
	}
	txRoot, err := types.TransactionsRoot(ctx, txs, newTrie())
	if err != nil {
		return nil, err
	}
	var withdrawalsRoot *common.Hash
	if p.Withdrawals != nil {
		root, err := types.WithdrawalsRoot(ctx, p.Withdrawals, newTrie())
		if err != nil {
			return nil, err
		}
		withdrawalsRoot = &root
	}

	witness, status, err := types.DecodeWitnessJSON(p.ExecutionWitness)
	if err != nil {
		return nil, err
	}
	block, err := types.NewBlockFromData(types.BlockData{
		Header:             payloadHeaderData(p, txRoot, withdrawalsRoot),
		Transactions:       txs,
		Withdrawals:        p.Withdrawals,
		ExecutionWitness:   witness,
		WitnessUnavailable: status == types.WitnessUnavailable,
	}, opts)
	if err != nil {
		return nil, err
	}
	if block.Common().IsActivatedEIP(6800) && status != types.WitnessPresent {
		return nil, fmt.Errorf("%w: Missing executionWitness for EIP-6800 activated executionPayload", types.ErrMissingWitness)
	}

	if hash := block.Hash(); hash != p.BlockHash {
		metrics.PayloadHashMismatch.Inc(1)
		log.Module("engine").Warn("Payload block hash mismatch", "number", uint64(p.BlockNumber),
			"expected", p.BlockHash, "computed", hash)
		return nil, fmt.Errorf("%w: Invalid blockHash, expected: %s, received: %s",
			types.ErrBlockHashMismatch, p.BlockHash.Hex(), hash.Hex())
	}
	log.Module("engine").Debug("Built block from payload", "number", block.Number(), "hash", p.BlockHash,
		"txs", len(txs))
	return block, nil
}
