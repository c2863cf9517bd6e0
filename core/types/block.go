package types

import (
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/eth2030/ethblock/log"
	"github.com/eth2030/ethblock/params"
)

// BlockOptions controls block construction.
type BlockOptions struct {
	// Common is copied by the header; nil means params.DefaultCommon().
	Common *params.Common

	// SetHardfork selects the hardfork from the header's number and
	// timestamp. Uncle headers inherit it.
	SetHardfork bool

	// CalcDifficultyFromHeader applies to the block header only.
	CalcDifficultyFromHeader *Header

	SkipConsensusFormatValidation bool

	// ExecutionWitness is used by the value-array path when EIP-6800 is
	// active and the block carries no witness slot.
	ExecutionWitness *VerkleExecutionWitness

	// WitnessCodec encodes the trailing witness slot; nil means
	// JSONWitnessCodec.
	WitnessCodec WitnessCodec

	// Trie returns an empty trie for root derivation; nil means NewListTrie.
	Trie func() Trie
}

func (o BlockOptions) headerOptions() HeaderOptions {
	return HeaderOptions{
		Common:                        o.Common,
		SetHardfork:                   o.SetHardfork,
		CalcDifficultyFromHeader:      o.CalcDifficultyFromHeader,
		SkipConsensusFormatValidation: o.SkipConsensusFormatValidation,
	}
}

// uncleOptions builds uncles under the block header's activation context.
// The parent-derived difficulty belongs to the block header only.
func (o BlockOptions) uncleOptions(h *Header) HeaderOptions {
	return HeaderOptions{
		Common:                        h.rules,
		SetHardfork:                   o.SetHardfork,
		SkipConsensusFormatValidation: o.SkipConsensusFormatValidation,
	}
}

func (o BlockOptions) codec() WitnessCodec {
	if o.WitnessCodec != nil {
		return o.WitnessCodec
	}
	return JSONWitnessCodec{}
}

// Block is an immutable header plus body. Construct it with one of the
// NewBlockFrom* functions or engine.BlockFromExecutionPayload.
type Block struct {
	header        *Header
	transactions  []*Transaction
	uncles        []*Header
	withdrawals   []*gethtypes.Withdrawal // nil when EIP-4895 is inactive
	requests      []*ClRequest            // nil when EIP-7685 is inactive
	witness       *VerkleExecutionWitness
	witnessStatus WitnessStatus

	newTrie func() Trie
	codec   WitnessCodec

	// Derived roots, stored only once fully computed.
	txRoot          atomic.Pointer[common.Hash]
	withdrawalsRoot atomic.Pointer[common.Hash]
	requestsRoot    atomic.Pointer[common.Hash]
}

// finalize applies the EIP defaults and checks the invariants shared by
// every construction path. It is the only place a Block is created.
func finalize(opts BlockOptions, header *Header, txs []*Transaction, uncles []*Header,
	withdrawals []*gethtypes.Withdrawal, requests []*ClRequest,
	witness *VerkleExecutionWitness, status WitnessStatus) (*Block, error) {
	rules := header.rules
	b := &Block{
		header:        header,
		transactions:  txs,
		uncles:        uncles,
		withdrawals:   withdrawals,
		requests:      requests,
		witness:       witness,
		witnessStatus: status,
		newTrie:       opts.Trie,
		codec:         opts.codec(),
	}
	if b.transactions == nil {
		b.transactions = []*Transaction{}
	}
	if b.uncles == nil {
		b.uncles = []*Header{}
	}
	if withdrawals == nil && rules.IsActivatedEIP(4895) {
		b.withdrawals = []*gethtypes.Withdrawal{}
	}
	if requests == nil && rules.IsActivatedEIP(7685) {
		b.requests = []*ClRequest{}
	}
	// An unset witness gets the empty default; an unavailable one stays
	// unavailable.
	if rules.IsActivatedEIP(6800) && status == WitnessUnset {
		b.witness = DefaultExecutionWitness()
		b.witnessStatus = WitnessPresent
	}

	if len(uncles) > 0 {
		if err := b.ValidateUncles(); err != nil {
			return nil, err
		}
		switch rules.ConsensusType() {
		case params.PoA:
			return nil, b.errorf(ErrInvalidUncles, "Block initialization with uncleHeaders on a PoA network is not allowed")
		case params.PoS:
			return nil, b.errorf(ErrInvalidUncles, "Block initialization with uncleHeaders on a PoS network is not allowed")
		}
	}
	if !rules.IsActivatedEIP(4895) && withdrawals != nil {
		return nil, fmt.Errorf("%w: Cannot have a withdrawals field if EIP 4895 is not active", ErrEIPNotActive)
	}
	if !rules.IsActivatedEIP(6800) && status == WitnessPresent {
		return nil, fmt.Errorf("%w: Cannot have executionWitness field if EIP 6800 is not active", ErrEIPNotActive)
	}
	if !rules.IsActivatedEIP(7685) && requests != nil {
		return nil, fmt.Errorf("%w: Cannot have requests field if EIP 7685 is not active", ErrEIPNotActive)
	}
	if !ClRequests(requests).sorted() {
		return nil, ErrUnsortedRequests
	}

	log.Module("block").Trace("Block finalized", "number", header.Number, "hash", header.Hash(),
		"hf", rules.Hardfork(), "txs", len(b.transactions), "uncles", len(b.uncles))
	return b, nil
}

// Header returns a copy of the header.
func (b *Block) Header() *Header { return copyHeader(b.header) }

// Common returns a copy of the block's activation context.
func (b *Block) Common() *params.Common { return b.header.Common() }

// Number returns the block number.
func (b *Block) Number() uint64 { return b.header.Number.Uint64() }

// Transactions returns the transactions in block order. The slice is a
// copy; the transactions themselves are immutable.
func (b *Block) Transactions() []*Transaction {
	return append([]*Transaction(nil), b.transactions...)
}

// Uncles returns copies of the uncle headers.
func (b *Block) Uncles() []*Header {
	out := make([]*Header, len(b.uncles))
	for i, u := range b.uncles {
		out[i] = copyHeader(u)
	}
	return out
}

// Withdrawals returns a copy of the withdrawals, nil when the block has
// no withdrawals field.
func (b *Block) Withdrawals() []*gethtypes.Withdrawal { return copyWithdrawals(b.withdrawals) }

// Requests returns the consensus-layer requests, nil when the block has
// no requests field.
func (b *Block) Requests() []*ClRequest {
	if b.requests == nil {
		return nil
	}
	out := make([]*ClRequest, len(b.requests))
	for i, r := range b.requests {
		out[i] = NewClRequest(r.typ, r.data)
	}
	return out
}

// ExecutionWitness returns a copy of the witness and whether it is
// present, unavailable or was never set.
func (b *Block) ExecutionWitness() (*VerkleExecutionWitness, WitnessStatus) {
	return b.witness.Copy(), b.witnessStatus
}

// Hash returns the header hash.
func (b *Block) Hash() common.Hash { return b.header.Hash() }

// IsGenesis reports whether this is block zero.
func (b *Block) IsGenesis() bool { return b.header.IsGenesis() }

// Raw returns the block as nested byte strings and lists:
//
//	[header, txs, uncles, withdrawals?, requests?, witness?]
//
// Trailing slots are positional. An absent slot followed by a present one
// is written as an empty list.
func (b *Block) Raw() ([]interface{}, error) {
	txs := make([]interface{}, len(b.transactions))
	for i, tx := range b.transactions {
		raw, err := tx.Raw()
		if err != nil {
			return nil, fmt.Errorf("tx %d: %w", i, err)
		}
		txs[i] = raw
	}
	uncles := make([]interface{}, len(b.uncles))
	for i, u := range b.uncles {
		uncles[i] = u.Raw()
	}
	raw := []interface{}{b.header.Raw(), txs, uncles}

	var trailing [3]interface{}
	if b.withdrawals != nil {
		ws := make([]interface{}, len(b.withdrawals))
		for i, w := range b.withdrawals {
			ws[i] = WithdrawalRaw(w)
		}
		trailing[0] = ws
	}
	if b.requests != nil {
		rs := make([]interface{}, len(b.requests))
		for i, r := range b.requests {
			rs[i] = r.Serialize()
		}
		trailing[1] = rs
	}
	if b.witnessStatus == WitnessPresent {
		enc, err := b.codec.EncodeWitness(b.witness)
		if err != nil {
			return nil, err
		}
		trailing[2] = enc
	}
	last := -1
	for i, slot := range trailing {
		if slot != nil {
			last = i
		}
	}
	for i := 0; i <= last; i++ {
		if trailing[i] == nil {
			raw = append(raw, []interface{}{})
		} else {
			raw = append(raw, trailing[i])
		}
	}
	return raw, nil
}

// Serialize returns the RLP encoding of Raw.
func (b *Block) Serialize() ([]byte, error) {
	raw, err := b.Raw()
	if err != nil {
		return nil, err
	}
	return rlp.EncodeToBytes(raw)
}

// ErrorStr is a compact summary used to annotate errors.
func (b *Block) ErrorStr() string {
	baseFee := "none"
	if b.header.BaseFee != nil {
		baseFee = b.header.BaseFee.String()
	}
	return fmt.Sprintf("block number=%v hash=%s hf=%s baseFeePerGas=%s txs=%d uncles=%d",
		b.header.Number, b.Hash().Hex(), b.header.rules.Hardfork(), baseFee, len(b.transactions), len(b.uncles))
}

func (b *Block) errorf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s (%s)", kind, fmt.Sprintf(format, args...), b.ErrorStr())
}

// ValidateGasLimit checks the header gas limit against the parent block.
func (b *Block) ValidateGasLimit(parent *Block) error {
	return b.header.ValidateGasLimit(parent.header)
}

// EthashCanonicalDifficulty returns the difficulty this block must carry
// on top of parent.
func (b *Block) EthashCanonicalDifficulty(parent *Block) (*big.Int, error) {
	return b.header.EthashCanonicalDifficulty(parent.header)
}

func (b *Block) trie() Trie {
	if b.newTrie != nil {
		return b.newTrie()
	}
	return nil
}
