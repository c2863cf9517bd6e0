package types

import (
	"fmt"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethmetrics "github.com/ethereum/go-ethereum/metrics"

	"github.com/eth2030/ethblock/metrics"
)

const maxBlockValues = 5

// BlockData is the structured input to NewBlockFromData.
type BlockData struct {
	Header       HeaderData
	Transactions []*Transaction
	UncleHeaders []HeaderData

	// Withdrawals nil means absent; it defaults to empty under EIP-4895.
	Withdrawals []*gethtypes.Withdrawal

	// Requests nil means absent; it defaults to empty under EIP-7685.
	Requests []*ClRequest

	// ExecutionWitness nil with WitnessUnavailable false means unset, which
	// defaults to an empty witness under EIP-6800.
	ExecutionWitness   *VerkleExecutionWitness
	WitnessUnavailable bool
}

func (d *BlockData) witnessStatus() WitnessStatus {
	switch {
	case d.ExecutionWitness != nil:
		return WitnessPresent
	case d.WitnessUnavailable:
		return WitnessUnavailable
	}
	return WitnessUnset
}

// built records the outcome of a builder in the construction metrics.
func built(b *Block, err error, counter *gethmetrics.Counter) (*Block, error) {
	if err != nil {
		metrics.ConstructFailures.Inc(1)
		return nil, err
	}
	counter.Inc(1)
	return b, nil
}

// NewBlockFromData builds a block from structured data. The header is
// built first and its activation context governs the rest of the block.
// Transactions are taken as given; withdrawals are copied.
func NewBlockFromData(data BlockData, opts BlockOptions) (*Block, error) {
	b, err := newBlockFromData(data, opts)
	return built(b, err, metrics.BlocksFromData)
}

func newBlockFromData(data BlockData, opts BlockOptions) (*Block, error) {
	header, err := NewHeader(data.Header, opts.headerOptions())
	if err != nil {
		return nil, err
	}
	uncleOpts := opts.uncleOptions(header)
	var uncles []*Header
	for i, ud := range data.UncleHeaders {
		u, err := NewHeader(ud, uncleOpts)
		if err != nil {
			return nil, fmt.Errorf("uncle %d: %w", i, err)
		}
		uncles = append(uncles, u)
	}
	var requests []*ClRequest
	if data.Requests != nil {
		requests = make([]*ClRequest, len(data.Requests))
		for i, r := range data.Requests {
			requests[i] = NewClRequest(r.typ, r.data)
		}
	}
	txs := append([]*Transaction(nil), data.Transactions...)
	return finalize(opts, header, txs, uncles, copyWithdrawals(data.Withdrawals),
		requests, data.ExecutionWitness.Copy(), data.witnessStatus())
}

// NewBlockFromRLP decodes an RLP-serialized block.
func NewBlockFromRLP(b []byte, opts BlockOptions) (*Block, error) {
	values, err := decodeValueList(b)
	if err != nil {
		metrics.ConstructFailures.Inc(1)
		return nil, fmt.Errorf("%w: Invalid serialized block input. Must be array: %v", ErrMalformedBlock, err)
	}
	block, err := newBlockFromValues(values, opts)
	return built(block, err, metrics.BlocksFromRLP)
}

// NewBlockFromValues builds a block from its decoded value list
//
//	[header, txs, uncles, withdrawals?, requests?, witness?]
//
// The witness slot is only accepted when the header activates EIP-6800.
func NewBlockFromValues(values []interface{}, opts BlockOptions) (*Block, error) {
	b, err := newBlockFromValues(values, opts)
	return built(b, err, metrics.BlocksFromValues)
}

func newBlockFromValues(values []interface{}, opts BlockOptions) (*Block, error) {
	if len(values) > maxBlockValues+1 {
		return nil, fmt.Errorf("%w. More values=%d than expected were received (at most %d)", ErrMalformedBlock, len(values), maxBlockValues)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: missing header", ErrMalformedBlock)
	}
	slot := func(i int) interface{} {
		if i < len(values) {
			return values[i]
		}
		return nil
	}

	headerValues, err := valueList(values[0], "header")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBlock, err)
	}
	header, err := HeaderFromValues(headerValues, opts.headerOptions())
	if err != nil {
		return nil, err
	}
	rules := header.rules
	if limit := maxBlockValues; len(values) > limit && !rules.IsActivatedEIP(6800) {
		return nil, fmt.Errorf("%w. More values=%d than expected were received (at most %d)", ErrMalformedBlock, len(values), limit)
	}

	withdrawalValues, withdrawalsIsList := slot(3).([]interface{})
	if rules.IsActivatedEIP(4895) && !withdrawalsIsList {
		return nil, fmt.Errorf("%w: Invalid serialized block input: EIP-4895 is active, and no withdrawals were provided as array", ErrMalformedBlock)
	}

	var txs []*Transaction
	if raw := slot(1); raw != nil {
		list, err := valueList(raw, "transactions")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBlock, err)
		}
		for i, item := range list {
			tx, err := TransactionFromBlockBody(item, rules)
			if err != nil {
				return nil, fmt.Errorf("Invalid tx at index %d: %w", i, err)
			}
			txs = append(txs, tx)
		}
	}

	var uncles []*Header
	if raw := slot(2); raw != nil {
		list, err := valueList(raw, "uncle headers")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedBlock, err)
		}
		uncleOpts := opts.uncleOptions(header)
		for i, item := range list {
			fields, err := valueList(item, "uncle header")
			if err != nil {
				return nil, fmt.Errorf("%w: uncle %d: %v", ErrMalformedBlock, i, err)
			}
			u, err := HeaderFromValues(fields, uncleOpts)
			if err != nil {
				return nil, fmt.Errorf("uncle %d: %w", i, err)
			}
			uncles = append(uncles, u)
		}
	}

	// An empty list in an inactive slot is only accepted as a placeholder
	// keeping later slots in position.
	var withdrawals []*gethtypes.Withdrawal
	if withdrawalsIsList {
		switch {
		case rules.IsActivatedEIP(4895):
			withdrawals = make([]*gethtypes.Withdrawal, 0, len(withdrawalValues))
			for i, item := range withdrawalValues {
				w, err := WithdrawalFromValues(item)
				if err != nil {
					return nil, fmt.Errorf("withdrawal %d: %w", i, err)
				}
				withdrawals = append(withdrawals, w)
			}
		case len(withdrawalValues) > 0 || len(values) <= 4:
			return nil, fmt.Errorf("%w: Cannot have a withdrawals field if EIP 4895 is not active", ErrEIPNotActive)
		}
	}

	var requests []*ClRequest
	requestValues, requestsIsList := slot(4).([]interface{})
	switch {
	case rules.IsActivatedEIP(7685):
		if !requestsIsList {
			return nil, fmt.Errorf("%w: Invalid serialized block input: EIP-7685 is active, and no requests were provided as array", ErrMalformedBlock)
		}
		requests = make([]*ClRequest, 0, len(requestValues))
		for i, item := range requestValues {
			b, err := valueBytes(item, "request")
			if err != nil {
				return nil, fmt.Errorf("%w: request %d: %v", ErrInvalidRequest, i, err)
			}
			r, err := ClRequestFromBytes(b)
			if err != nil {
				return nil, fmt.Errorf("request %d: %w", i, err)
			}
			requests = append(requests, r)
		}
	case slot(4) != nil && !(requestsIsList && len(requestValues) == 0 && len(values) > 5):
		return nil, fmt.Errorf("%w: Cannot have requests field if EIP 7685 is not active", ErrEIPNotActive)
	}

	// Bodies fetched over eth_ carry no witness; without one the witness
	// is recorded as unavailable rather than defaulted.
	var (
		witness *VerkleExecutionWitness
		status  WitnessStatus
	)
	if rules.IsActivatedEIP(6800) {
		switch raw := slot(5); {
		case raw != nil:
			enc, err := valueBytes(raw, "execution witness")
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
			}
			if witness, err = opts.codec().DecodeWitness(enc); err != nil {
				return nil, err
			}
			status = WitnessPresent
		case opts.ExecutionWitness != nil:
			witness, status = opts.ExecutionWitness.Copy(), WitnessPresent
		default:
			status = WitnessUnavailable
		}
	}

	return finalize(opts, header, txs, uncles, withdrawals, requests, witness, status)
}
