package engine

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/ethblock/core/types"
	"github.com/eth2030/ethblock/params"
)

func TestExecutionPayloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := params.DefaultCommon()
	block := testBlock(t, c, []*types.Transaction{signedTx(t, 0), signedTx(t, 1)}, testWithdrawals())

	payload, err := ToExecutionPayload(block)
	require.NoError(t, err)
	assert.Equal(t, block.Hash(), payload.BlockHash)
	assert.Equal(t, hexutil.Uint64(testNumber), payload.BlockNumber)
	assert.Len(t, payload.Transactions, 2)
	assert.Len(t, payload.Withdrawals, 2)
	require.NotNil(t, payload.RequestsRoot)
	assert.Equal(t, types.EmptyRootHash, *payload.RequestsRoot)
	assert.Nil(t, payload.ExecutionWitness)

	back, err := BlockFromExecutionPayload(ctx, payload, types.BlockOptions{Common: c})
	require.NoError(t, err)
	assert.Equal(t, block.Hash(), back.Hash())
	assert.NoError(t, back.ValidateData(ctx, false, true))

	enc, err := back.Serialize()
	require.NoError(t, err)
	want, err := block.Serialize()
	require.NoError(t, err)
	assert.Equal(t, want, enc)
}

func TestExecutionPayloadJSON(t *testing.T) {
	block := testBlock(t, params.DefaultCommon(), []*types.Transaction{signedTx(t, 0)}, testWithdrawals())
	payload, err := ToExecutionPayload(block)
	require.NoError(t, err)

	enc, err := json.Marshal(payload)
	require.NoError(t, err)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(enc, &fields))
	assert.JSONEq(t, `"0x15752a0"`, string(fields["blockNumber"]))
	assert.JSONEq(t, `"0x0"`, string(fields["blobGasUsed"]))
	assert.Contains(t, fields, "parentBeaconBlockRoot")
	assert.NotContains(t, fields, "executionWitness")

	var dec ExecutionPayload
	require.NoError(t, json.Unmarshal(enc, &dec))
	back, err := BlockFromExecutionPayload(context.Background(), &dec, types.BlockOptions{})
	require.NoError(t, err)
	assert.Equal(t, block.Hash(), back.Hash())
}

func TestExecutionPayloadHashMismatch(t *testing.T) {
	block := testBlock(t, params.DefaultCommon(), []*types.Transaction{signedTx(t, 0)}, nil)
	payload, err := ToExecutionPayload(block)
	require.NoError(t, err)

	computed := payload.BlockHash
	payload.BlockHash = common.HexToHash("0xbad")
	_, err = BlockFromExecutionPayload(context.Background(), payload, types.BlockOptions{})
	require.ErrorIs(t, err, types.ErrBlockHashMismatch)
	assert.Contains(t, err.Error(), "Invalid blockHash, expected: "+payload.BlockHash.Hex()+", received: "+computed.Hex())

	// A body that no longer matches the header hash is caught the same way.
	payload.BlockHash = computed
	payload.Transactions = payload.Transactions[:0]
	_, err = BlockFromExecutionPayload(context.Background(), payload, types.BlockOptions{})
	assert.ErrorIs(t, err, types.ErrBlockHashMismatch)
}

func TestExecutionPayloadInvalidTx(t *testing.T) {
	block := testBlock(t, params.DefaultCommon(), nil, nil)
	payload, err := ToExecutionPayload(block)
	require.NoError(t, err)

	payload.Transactions = []hexutil.Bytes{{0x05, 0x01}}
	_, err = BlockFromExecutionPayload(context.Background(), payload, types.BlockOptions{})
	require.ErrorIs(t, err, types.ErrInvalidTransaction)
	assert.True(t, strings.HasPrefix(err.Error(), "Invalid tx at index 0: "), err.Error())
}

func TestExecutionPayloadTxTypeGating(t *testing.T) {
	shanghai := mainnetAt(t, params.Shanghai)
	block := testBlock(t, shanghai, []*types.Transaction{signedTx(t, 0)}, testWithdrawals())
	payload, err := ToExecutionPayload(block)
	require.NoError(t, err)
	assert.Nil(t, payload.BlobGasUsed)
	assert.Nil(t, payload.RequestsRoot)

	blob := signedBlobTx(t, 1, []common.Hash{{0x01}})
	enc, err := blob.Serialize()
	require.NoError(t, err)
	payload.Transactions = append(payload.Transactions, enc)
	_, err = BlockFromExecutionPayload(context.Background(), payload, types.BlockOptions{Common: shanghai})
	require.ErrorIs(t, err, types.ErrTxTypeNotActive)
	assert.Contains(t, err.Error(), "Invalid tx at index 1")
}

func TestExecutionPayloadSetHardfork(t *testing.T) {
	// Shanghai rules re-targeted by timestamp decode the Cancun-era payload.
	block := testBlock(t, params.DefaultCommon(), []*types.Transaction{signedTx(t, 0)}, testWithdrawals())
	payload, err := ToExecutionPayload(block)
	require.NoError(t, err)

	back, err := BlockFromExecutionPayload(context.Background(), payload, types.BlockOptions{
		Common:      mainnetAt(t, params.Shanghai),
		SetHardfork: true,
	})
	require.NoError(t, err)
	assert.Equal(t, params.Prague, back.Common().Hardfork())
	assert.Equal(t, block.Hash(), back.Hash())
}

func TestExecutionPayloadCancelled(t *testing.T) {
	block := testBlock(t, params.DefaultCommon(), []*types.Transaction{signedTx(t, 0)}, nil)
	payload, err := ToExecutionPayload(block)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = BlockFromExecutionPayload(ctx, payload, types.BlockOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecutionPayloadWitness(t *testing.T) {
	ctx := context.Background()
	verkle := mainnetAt(t, params.Verkle)
	block := testBlock(t, verkle, nil, nil)

	payload, err := ToExecutionPayload(block)
	require.NoError(t, err)
	require.NotNil(t, payload.ExecutionWitness)

	back, err := BlockFromExecutionPayload(ctx, payload, types.BlockOptions{Common: verkle})
	require.NoError(t, err)
	_, status := back.ExecutionWitness()
	assert.Equal(t, types.WitnessPresent, status)

	for _, witness := range []json.RawMessage{nil, json.RawMessage("null")} {
		payload.ExecutionWitness = witness
		_, err = BlockFromExecutionPayload(ctx, payload, types.BlockOptions{Common: verkle})
		require.ErrorIs(t, err, types.ErrMissingWitness)
		assert.Contains(t, err.Error(), "Missing executionWitness for EIP-6800 activated executionPayload")
	}
}

func TestToExecutionPayloadUnavailableWitness(t *testing.T) {
	verkle := mainnetAt(t, params.Verkle)
	block := testBlock(t, verkle, nil, nil)
	raw, err := block.Raw()
	require.NoError(t, err)

	bare, err := types.NewBlockFromValues(raw[:5], types.BlockOptions{Common: verkle})
	require.NoError(t, err)
	payload, err := ToExecutionPayload(bare)
	require.NoError(t, err)
	assert.Equal(t, json.RawMessage("null"), payload.ExecutionWitness)

	enc, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Contains(t, string(enc), `"executionWitness":null`)
}
