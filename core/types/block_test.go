package types

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/ethblock/params"
)

// pragueBlock builds a valid block on the default (Prague) rules with
// matching roots for the given body.
func pragueBlock(t *testing.T, txs []*Transaction, ws []*gethtypes.Withdrawal, reqs []*ClRequest) *Block {
	t.Helper()
	ctx := context.Background()
	txRoot, err := TransactionsRoot(ctx, txs, nil)
	require.NoError(t, err)
	wRoot, err := WithdrawalsRoot(ctx, ws, nil)
	require.NoError(t, err)
	rRoot, err := RequestsRoot(ctx, reqs, nil)
	require.NoError(t, err)

	b, err := NewBlockFromData(BlockData{
		Header: HeaderData{
			Number:           hexBig(1),
			GasLimit:         hexU64(30_000_000),
			TransactionsTrie: &txRoot,
			WithdrawalsRoot:  &wRoot,
			RequestsRoot:     &rRoot,
		},
		Transactions: txs,
		Withdrawals:  ws,
		Requests:     reqs,
	}, BlockOptions{})
	require.NoError(t, err)
	return b
}

func testRequests() []*ClRequest {
	return []*ClRequest{
		NewClRequest(DepositRequestType, make([]byte, DepositRequestSize)),
		NewClRequest(WithdrawalRequestType, make([]byte, WithdrawalRequestSize)),
		NewClRequest(ConsolidationRequestType, make([]byte, ConsolidationRequestSize)),
	}
}

func TestEmptyBlock(t *testing.T) {
	ctx := context.Background()
	b, err := NewBlockFromData(BlockData{Header: HeaderData{Number: hexBig(1)}}, BlockOptions{Common: mainnetAt(t, params.Paris)})
	require.NoError(t, err)

	ok, err := b.TransactionsTrieIsValid(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, b.UncleHashIsValid())
	assert.Nil(t, b.Withdrawals())
	assert.Nil(t, b.Requests())
	_, status := b.ExecutionWitness()
	assert.Equal(t, WitnessUnset, status)
	assert.NoError(t, b.ValidateData(ctx, false, true))

	_, err = b.WithdrawalsTrieIsValid(ctx)
	assert.ErrorIs(t, err, ErrEIPNotActive)
	_, err = b.RequestsTrieIsValid(ctx)
	assert.ErrorIs(t, err, ErrEIPNotActive)

	raw, err := b.Raw()
	require.NoError(t, err)
	assert.Len(t, raw, 3)
}

func TestBlockDefaultsUnderPrague(t *testing.T) {
	b, err := NewBlockFromData(BlockData{}, BlockOptions{})
	require.NoError(t, err)
	assert.NotNil(t, b.Withdrawals())
	assert.Empty(t, b.Withdrawals())
	assert.NotNil(t, b.Requests())
	assert.Empty(t, b.Requests())

	ctx := context.Background()
	ok, err := b.WithdrawalsTrieIsValid(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = b.RequestsTrieIsValid(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBlockRLPRoundTrip(t *testing.T) {
	ctx := context.Background()
	txs := []*Transaction{signedDynamicFeeTx(t, 0, 1_000_000_000), signedLegacyTx(t, 1, 1_000_000_000)}
	ws := []*gethtypes.Withdrawal{
		NewWithdrawal(0, 7, common.Address{0xaa}, 32_000_000_000),
		NewWithdrawal(1, 8, common.Address{0xbb}, 1),
	}
	b := pragueBlock(t, txs, ws, testRequests())
	require.NoError(t, b.ValidateData(ctx, false, true))

	raw, err := b.Raw()
	require.NoError(t, err)
	assert.Len(t, raw, 5)

	enc, err := b.Serialize()
	require.NoError(t, err)
	dec, err := NewBlockFromRLP(enc, BlockOptions{})
	require.NoError(t, err)

	assert.Equal(t, b.Hash(), dec.Hash())
	require.Len(t, dec.Transactions(), 2)
	assert.Equal(t, txs[0].Hash(), dec.Transactions()[0].Hash())
	assert.Equal(t, LegacyTxKind, dec.Transactions()[1].Kind())
	assert.Equal(t, ws, dec.Withdrawals())
	require.Len(t, dec.Requests(), 3)
	for i, r := range testRequests() {
		assert.Equal(t, r.Serialize(), dec.Requests()[i].Serialize())
	}
	require.NoError(t, dec.ValidateData(ctx, false, true))

	reenc, err := dec.Serialize()
	require.NoError(t, err)
	assert.Equal(t, enc, reenc)
}

func TestBlockFromRLPNotAList(t *testing.T) {
	enc, err := rlp.EncodeToBytes([]byte("not a block"))
	require.NoError(t, err)
	_, err = NewBlockFromRLP(enc, BlockOptions{})
	require.ErrorIs(t, err, ErrMalformedBlock)
	assert.Contains(t, err.Error(), "Must be array")
}

func TestBlockValuesArity(t *testing.T) {
	b := pragueBlock(t, nil, nil, nil)
	raw, err := b.Raw()
	require.NoError(t, err)

	_, err = NewBlockFromValues(append(raw, []byte{}, []byte{}), BlockOptions{})
	require.ErrorIs(t, err, ErrMalformedBlock)
	assert.Contains(t, err.Error(), "More values=7 than expected were received (at most 5)")

	// A witness slot is only accepted under EIP-6800.
	_, err = NewBlockFromValues(append(raw, []byte{}), BlockOptions{})
	require.ErrorIs(t, err, ErrMalformedBlock)
	assert.Contains(t, err.Error(), "More values=6 than expected were received (at most 5)")

	_, err = NewBlockFromValues(raw[:3], BlockOptions{})
	require.ErrorIs(t, err, ErrMalformedBlock)
	assert.Contains(t, err.Error(), "no withdrawals were provided")
}

func TestBlockFieldGating(t *testing.T) {
	london := mainnetAt(t, params.London)
	tests := []struct {
		name string
		data BlockData
	}{
		{"withdrawals", BlockData{Withdrawals: []*gethtypes.Withdrawal{}}},
		{"requests", BlockData{Requests: []*ClRequest{}}},
		{"witness", BlockData{ExecutionWitness: DefaultExecutionWitness()}},
	}
	for _, tt := range tests {
		tt.data.Header.Number = hexBig(1)
		_, err := NewBlockFromData(tt.data, BlockOptions{Common: london})
		assert.ErrorIs(t, err, ErrEIPNotActive, tt.name)
	}
}

func TestBlockUnsortedRequests(t *testing.T) {
	reqs := []*ClRequest{
		NewClRequest(WithdrawalRequestType, nil),
		NewClRequest(DepositRequestType, nil),
	}
	_, err := NewBlockFromData(BlockData{Requests: reqs}, BlockOptions{})
	assert.ErrorIs(t, err, ErrUnsortedRequests)

	// Repeated types are in order.
	reqs = []*ClRequest{
		NewClRequest(WithdrawalRequestType, nil),
		NewClRequest(WithdrawalRequestType, []byte{0x01}),
		NewClRequest(ConsolidationRequestType, nil),
	}
	b, err := NewBlockFromData(BlockData{Requests: reqs}, BlockOptions{})
	require.NoError(t, err)
	require.Len(t, b.Requests(), 3)
	assert.Equal(t, []byte{0x01}, b.Requests()[1].Data())
}

func TestBlockRequestsFromValues(t *testing.T) {
	b := pragueBlock(t, nil, nil, testRequests())
	raw, err := b.Raw()
	require.NoError(t, err)

	// Requests must be byte strings.
	bad := append([]interface{}(nil), raw...)
	bad[4] = []interface{}{[]interface{}{}}
	_, err = NewBlockFromValues(bad, BlockOptions{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	// Under Cancun a trailing requests list is rejected, empty or not.
	cancun := mainnetAt(t, params.Cancun)
	cb, err := NewBlockFromData(BlockData{Header: HeaderData{Number: hexBig(1)}}, BlockOptions{Common: cancun})
	require.NoError(t, err)
	craw, err := cb.Raw()
	require.NoError(t, err)
	require.Len(t, craw, 4)

	_, err = NewBlockFromValues(append(craw, []interface{}{}), BlockOptions{Common: cancun})
	assert.ErrorIs(t, err, ErrEIPNotActive)
	_, err = NewBlockFromValues(append(craw, []interface{}{[]byte{0x00}}), BlockOptions{Common: cancun})
	assert.ErrorIs(t, err, ErrEIPNotActive)
}

func TestBlockInactiveSlotPlaceholders(t *testing.T) {
	london := mainnetAt(t, params.London)
	b, err := NewBlockFromData(BlockData{Header: HeaderData{Number: hexBig(1)}}, BlockOptions{Common: london})
	require.NoError(t, err)
	raw, err := b.Raw()
	require.NoError(t, err)
	require.Len(t, raw, 3)

	// Nothing follows the withdrawals slot, so it cannot be a placeholder.
	_, err = NewBlockFromValues(append(raw, []interface{}{}), BlockOptions{Common: london})
	require.ErrorIs(t, err, ErrEIPNotActive)
	assert.Contains(t, err.Error(), "Cannot have a withdrawals field if EIP 4895 is not active")

	// With a witness after them, empty withdrawals and requests lists keep
	// the slots in position.
	stateless := mainnetAt(t, params.London, 6800)
	sb, err := NewBlockFromData(BlockData{Header: HeaderData{Number: hexBig(1)}}, BlockOptions{Common: stateless})
	require.NoError(t, err)
	sraw, err := sb.Raw()
	require.NoError(t, err)
	require.Len(t, sraw, 6)
	assert.Equal(t, []interface{}{}, sraw[3])
	assert.Equal(t, []interface{}{}, sraw[4])

	dec, err := NewBlockFromValues(sraw, BlockOptions{Common: stateless})
	require.NoError(t, err)
	assert.Nil(t, dec.Withdrawals())
	assert.Nil(t, dec.Requests())
	_, status := dec.ExecutionWitness()
	assert.Equal(t, WitnessPresent, status)
}

func londonHeader(t *testing.T, c *params.Common, number uint64, extra string) *Header {
	t.Helper()
	e := hexutil.Bytes(extra)
	h, err := NewHeader(HeaderData{Number: hexBig(number), ExtraData: &e}, HeaderOptions{Common: c})
	require.NoError(t, err)
	return h
}

func TestBlockUncles(t *testing.T) {
	ctx := context.Background()
	london := mainnetAt(t, params.London)

	uncle := londonHeader(t, london, 1, "uncle")
	uncleHash, err := rlpHash([]interface{}{uncle.Raw()})
	require.NoError(t, err)

	b, err := NewBlockFromData(BlockData{
		Header:       HeaderData{Number: hexBig(2), UncleHash: &uncleHash},
		UncleHeaders: []HeaderData{*uncle.ToJSON()},
	}, BlockOptions{Common: london})
	require.NoError(t, err)
	assert.True(t, b.UncleHashIsValid())
	assert.NoError(t, b.ValidateData(ctx, false, false))
	require.Len(t, b.Uncles(), 1)
	assert.Equal(t, uncle.Hash(), b.Uncles()[0].Hash())

	enc, err := b.Serialize()
	require.NoError(t, err)
	dec, err := NewBlockFromRLP(enc, BlockOptions{Common: london})
	require.NoError(t, err)
	assert.Equal(t, b.Hash(), dec.Hash())

	other := londonHeader(t, london, 1, "other")
	third := londonHeader(t, london, 1, "third")
	_, err = NewBlockFromData(BlockData{
		Header:       HeaderData{Number: hexBig(2)},
		UncleHeaders: []HeaderData{*uncle.ToJSON(), *other.ToJSON(), *third.ToJSON()},
	}, BlockOptions{Common: london})
	require.ErrorIs(t, err, ErrInvalidUncles)
	assert.Contains(t, err.Error(), "too many uncle headers")

	_, err = NewBlockFromData(BlockData{
		Header:       HeaderData{Number: hexBig(2)},
		UncleHeaders: []HeaderData{*uncle.ToJSON(), *uncle.ToJSON()},
	}, BlockOptions{Common: london})
	require.ErrorIs(t, err, ErrInvalidUncles)
	assert.Contains(t, err.Error(), "duplicate uncles")

	// Uncle hash mismatch is a validation error, not a construction one.
	b, err = NewBlockFromData(BlockData{
		Header:       HeaderData{Number: hexBig(2)},
		UncleHeaders: []HeaderData{*uncle.ToJSON()},
	}, BlockOptions{Common: london})
	require.NoError(t, err)
	err = b.ValidateData(ctx, false, false)
	require.ErrorIs(t, err, ErrTrieRootMismatch)
	assert.Contains(t, err.Error(), "invalid uncle hash")

	_, err = NewBlockFromData(BlockData{
		Header:       HeaderData{Number: hexBig(2)},
		UncleHeaders: []HeaderData{{Number: hexBig(1)}},
	}, BlockOptions{})
	require.ErrorIs(t, err, ErrInvalidUncles)
	assert.Contains(t, err.Error(), "PoS network")
}

func TestGenesisBlockSkipsUncleChecks(t *testing.T) {
	london := mainnetAt(t, params.London)
	uncle := londonHeader(t, london, 0, "uncle")
	other := londonHeader(t, london, 0, "other")

	tests := []struct {
		name   string
		uncles []*Header
	}{
		{"duplicate", []*Header{uncle, uncle}},
		{"three", []*Header{uncle, other, uncle}},
	}
	for _, tt := range tests {
		raws := make([]interface{}, len(tt.uncles))
		data := make([]HeaderData, len(tt.uncles))
		for i, u := range tt.uncles {
			raws[i] = u.Raw()
			data[i] = *u.ToJSON()
		}
		uncleHash, err := rlpHash(raws)
		require.NoError(t, err, tt.name)

		b, err := NewBlockFromData(BlockData{
			Header:       HeaderData{Number: hexBig(0), UncleHash: &uncleHash},
			UncleHeaders: data,
		}, BlockOptions{Common: london})
		require.NoError(t, err, tt.name)
		assert.True(t, b.IsGenesis(), tt.name)
		assert.NoError(t, b.ValidateUncles(), tt.name)
		assert.True(t, b.UncleHashIsValid(), tt.name)
		assert.Len(t, b.Uncles(), len(tt.uncles), tt.name)
	}
}

func TestBlockAccessorsReturnCopies(t *testing.T) {
	ws := []*gethtypes.Withdrawal{NewWithdrawal(0, 1, common.Address{0x01}, 5)}
	b := pragueBlock(t, nil, ws, nil)
	hash := b.Hash()

	h := b.Header()
	h.GasLimit = 1
	h.Extra = []byte("mutated")
	got := b.Withdrawals()
	got[0].Amount = 999
	ws[0].Amount = 1000

	assert.Equal(t, hash, b.Hash())
	assert.Equal(t, uint64(30_000_000), b.Header().GasLimit)
	assert.Equal(t, uint64(5), b.Withdrawals()[0].Amount)
}

func TestVerkleWitness(t *testing.T) {
	ctx := context.Background()
	verkle := mainnetAt(t, params.Verkle)

	b, err := NewBlockFromData(BlockData{Header: HeaderData{Number: hexBig(1)}}, BlockOptions{Common: verkle})
	require.NoError(t, err)
	w, status := b.ExecutionWitness()
	assert.Equal(t, WitnessPresent, status)
	assert.Equal(t, DefaultExecutionWitness(), w)
	assert.NoError(t, b.ValidateData(ctx, false, true))

	raw, err := b.Raw()
	require.NoError(t, err)
	assert.Len(t, raw, 6)

	enc, err := b.Serialize()
	require.NoError(t, err)
	dec, err := NewBlockFromRLP(enc, BlockOptions{Common: verkle})
	require.NoError(t, err)
	dw, status := dec.ExecutionWitness()
	assert.Equal(t, WitnessPresent, status)
	assert.Equal(t, w, dw)

	// A body without a witness slot marks the witness unavailable.
	dec, err = NewBlockFromValues(raw[:5], BlockOptions{Common: verkle})
	require.NoError(t, err)
	_, status = dec.ExecutionWitness()
	assert.Equal(t, WitnessUnavailable, status)
	err = dec.ValidateData(ctx, false, true)
	require.ErrorIs(t, err, ErrMissingWitness)
	assert.Contains(t, err.Error(), "stateless client needs executionWitness")

	dec, err = NewBlockFromValues(raw[:5], BlockOptions{Common: verkle, ExecutionWitness: w})
	require.NoError(t, err)
	_, status = dec.ExecutionWitness()
	assert.Equal(t, WitnessPresent, status)
}

func TestTransactionValidationErrors(t *testing.T) {
	ctx := context.Background()
	txs := []*Transaction{
		signedDynamicFeeTx(t, 0, 5),
		signedLegacyTx(t, 1, 5),
		signedDynamicFeeTx(t, 2, 1_000_000_000),
	}
	txRoot, err := TransactionsRoot(ctx, txs, nil)
	require.NoError(t, err)
	b, err := NewBlockFromData(BlockData{
		Header:       HeaderData{Number: hexBig(1), BaseFeePerGas: hexBig(100), TransactionsTrie: &txRoot},
		Transactions: txs,
	}, BlockOptions{})
	require.NoError(t, err)

	errs := b.TransactionsValidationErrors()
	require.Len(t, errs, 2)
	assert.Equal(t, "errors at tx 0: tx unable to pay base fee (EIP-1559 tx)", errs[0])
	assert.Equal(t, "errors at tx 1: tx unable to pay base fee (non EIP-1559 tx)", errs[1])
	assert.False(t, b.TransactionsAreValid())

	err = b.ValidateData(ctx, true, true)
	require.ErrorIs(t, err, ErrInvalidTransactions)
	assert.True(t, strings.Contains(err.Error(), "invalid transactions: errors at tx 0"))

	// Skipping transaction checks leaves only the structural ones.
	assert.NoError(t, b.ValidateData(ctx, false, false))
}

func TestUnsignedTransaction(t *testing.T) {
	ctx := context.Background()
	unsigned := NewTransaction(gethtypes.NewTx(&gethtypes.DynamicFeeTx{
		ChainID:   testChainID,
		GasTipCap: common.Big1,
		GasFeeCap: common.Big32,
		Gas:       21000,
		To:        &testTo,
	}))
	txs := []*Transaction{signedDynamicFeeTx(t, 0, 1_000_000_000), unsigned}
	txRoot, err := TransactionsRoot(ctx, txs, nil)
	require.NoError(t, err)
	b, err := NewBlockFromData(BlockData{
		Header:       HeaderData{Number: hexBig(1), TransactionsTrie: &txRoot},
		Transactions: txs,
	}, BlockOptions{})
	require.NoError(t, err)

	assert.NoError(t, b.ValidateData(ctx, true, true))
	err = b.ValidateData(ctx, false, true)
	require.ErrorIs(t, err, ErrUnsignedTransaction)
	assert.Contains(t, err.Error(), "transaction at index 1 is unsigned")
}

func TestTrieValidity(t *testing.T) {
	ctx := context.Background()
	txs := []*Transaction{signedDynamicFeeTx(t, 0, 1_000_000_000)}
	wrong := common.HexToHash("0xdead")
	b, err := NewBlockFromData(BlockData{
		Header:       HeaderData{Number: hexBig(1), TransactionsTrie: &wrong},
		Transactions: txs,
	}, BlockOptions{})
	require.NoError(t, err)

	err = b.ValidateData(ctx, false, true)
	require.ErrorIs(t, err, ErrTrieRootMismatch)
	assert.Contains(t, err.Error(), "invalid transaction trie")

	ws := []*gethtypes.Withdrawal{NewWithdrawal(0, 1, common.Address{0x01}, 5)}
	b, err = NewBlockFromData(BlockData{Header: HeaderData{Number: hexBig(1)}, Withdrawals: ws}, BlockOptions{})
	require.NoError(t, err)
	err = b.ValidateData(ctx, false, true)
	require.ErrorIs(t, err, ErrTrieRootMismatch)
	assert.Contains(t, err.Error(), "invalid withdrawals trie")

	b, err = NewBlockFromData(BlockData{Header: HeaderData{Number: hexBig(1)}, Requests: testRequests()}, BlockOptions{})
	require.NoError(t, err)
	ok, err := b.RequestsTrieIsValid(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTrieRootMemoization(t *testing.T) {
	txs := testTransactions(t, 4)
	want, err := TransactionsRoot(context.Background(), txs, nil)
	require.NoError(t, err)

	var built int
	b, err := NewBlockFromData(BlockData{
		Header:       HeaderData{Number: hexBig(1), TransactionsTrie: &want},
		Transactions: txs,
	}, BlockOptions{Trie: func() Trie {
		built++
		return newFullTrie()
	}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.TxTrieRoot(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, b.txRoot.Load(), "failed derivation must not be cached")

	root, err := b.TxTrieRoot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, root)
	root, err = b.TxTrieRoot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, root)
	assert.Equal(t, 2, built)
}

func TestBlobGasAccounting(t *testing.T) {
	c := mainnetAt(t, params.Cancun)
	parent, err := NewHeader(HeaderData{Number: hexBig(1)}, HeaderOptions{Common: c})
	require.NoError(t, err)

	txs := []*Transaction{signedBlobTx(t, 0, 1, 1_000_000_000), signedBlobTx(t, 1, 2, 1_000_000_000)}
	block := func(blobGasUsed, excess uint64, txs []*Transaction) *Block {
		txRoot, err := TransactionsRoot(context.Background(), txs, nil)
		require.NoError(t, err)
		b, err := NewBlockFromData(BlockData{
			Header: HeaderData{
				Number:           hexBig(2),
				TransactionsTrie: &txRoot,
				BlobGasUsed:      hexU64(blobGasUsed),
				ExcessBlobGas:    hexU64(excess),
			},
			Transactions: txs,
		}, BlockOptions{Common: c})
		require.NoError(t, err)
		return b
	}

	good := block(3*131072, 0, txs)
	assert.Empty(t, good.TransactionsValidationErrors())
	assert.NoError(t, good.ValidateBlobTransactions(parent))
	assert.NoError(t, good.ValidateData(context.Background(), false, true))

	wrong := block(2*131072, 0, txs)
	assert.Equal(t, []string{"invalid blobGasUsed expected=262144 actual=393216"}, wrong.TransactionsValidationErrors())
	assert.ErrorIs(t, wrong.ValidateBlobTransactions(parent), ErrBlobGasUsedMismatch)

	excess := block(3*131072, 131072, txs)
	assert.ErrorIs(t, excess.ValidateBlobTransactions(parent), ErrExcessBlobGasMismatch)

	cheap := block(131072, 0, []*Transaction{signedBlobTx(t, 0, 1, 0)})
	err = cheap.ValidateBlobTransactions(parent)
	require.ErrorIs(t, err, ErrBlobFeeTooLow)
	assert.Contains(t, err.Error(), "< than block blob gas price 1")

	// Seven blobs exceed the Cancun limit of six; the collector keeps going.
	heavy := []*Transaction{signedBlobTx(t, 0, 4, 1_000_000_000), signedBlobTx(t, 1, 3, 1_000_000_000)}
	over := block(7*131072, 0, heavy)
	errs := over.TransactionsValidationErrors()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "errors at tx 1: tx causes total blob gas of 917504 to exceed maximum blob gas per block of 786432")
	assert.ErrorIs(t, over.ValidateBlobTransactions(parent), ErrBlobGasLimit)

	// Nothing to check before Cancun.
	shanghai, err := NewBlockFromData(BlockData{Header: HeaderData{Number: hexBig(2)}}, BlockOptions{Common: mainnetAt(t, params.Shanghai)})
	require.NoError(t, err)
	assert.NoError(t, shanghai.ValidateBlobTransactions(parent))

	err = good.ValidateBlobTransactions(nil)
	require.ErrorIs(t, err, ErrMalformedBlock)
	assert.Contains(t, err.Error(), "nil parent header")
	assert.NoError(t, shanghai.ValidateBlobTransactions(nil))
}

func TestBlockJSONRoundTrip(t *testing.T) {
	txs := []*Transaction{signedDynamicFeeTx(t, 0, 1_000_000_000)}
	ws := []*gethtypes.Withdrawal{NewWithdrawal(3, 9, common.Address{0x09}, 12)}
	b := pragueBlock(t, txs, ws, testRequests())

	j, err := b.ToJSON()
	require.NoError(t, err)
	assert.Len(t, j.Transactions, 1)
	assert.NotNil(t, j.Header.RequestsRoot)
	assert.Nil(t, j.ExecutionWitness)

	enc, err := b.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(enc), `"requests":["0x00`)

	var back JSONBlock
	require.NoError(t, json.Unmarshal(enc, &back))
	data, err := back.BlockData()
	require.NoError(t, err)
	rebuilt, err := NewBlockFromData(data, BlockOptions{})
	require.NoError(t, err)
	assert.Equal(t, b.Hash(), rebuilt.Hash())
	assert.Equal(t, txs[0].Hash(), rebuilt.Transactions()[0].Hash())
	assert.Equal(t, ws, rebuilt.Withdrawals())
	assert.Len(t, rebuilt.Requests(), 3)
}

func TestBlockJSONWitnessNull(t *testing.T) {
	verkle := mainnetAt(t, params.Verkle)
	b, err := NewBlockFromData(BlockData{WitnessUnavailable: true}, BlockOptions{Common: verkle})
	require.NoError(t, err)

	enc, err := b.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(enc), `"executionWitness":null`)

	var back JSONBlock
	require.NoError(t, json.Unmarshal(enc, &back))
	data, err := back.BlockData()
	require.NoError(t, err)
	assert.True(t, data.WitnessUnavailable)
	assert.Nil(t, data.ExecutionWitness)
}
