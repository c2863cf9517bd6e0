// Package engine converts between blocks and the payload shapes exchanged
// with the consensus layer: Engine API execution payloads, beacon-API
// execution payloads and EIP-4844 blobs bundles.
package engine

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// ExecutionPayload is the Engine API execution payload. Fork-dependent
// fields are pointers and absent when nil.
type ExecutionPayload struct {
	ParentHash    common.Hash     `json:"parentHash"`
	FeeRecipient  common.Address  `json:"feeRecipient"`
	StateRoot     common.Hash     `json:"stateRoot"`
	ReceiptsRoot  common.Hash     `json:"receiptsRoot"`
	LogsBloom     gethtypes.Bloom `json:"logsBloom"`
	PrevRandao    common.Hash     `json:"prevRandao"`
	BlockNumber   hexutil.Uint64  `json:"blockNumber"`
	GasLimit      hexutil.Uint64  `json:"gasLimit"`
	GasUsed       hexutil.Uint64  `json:"gasUsed"`
	Timestamp     hexutil.Uint64  `json:"timestamp"`
	ExtraData     hexutil.Bytes   `json:"extraData"`
	BaseFeePerGas *hexutil.Big    `json:"baseFeePerGas"`
	BlockHash     common.Hash     `json:"blockHash"`
	Transactions  []hexutil.Bytes `json:"transactions"`

	// Shanghai
	Withdrawals []*gethtypes.Withdrawal `json:"withdrawals,omitempty"`

	// Cancun
	BlobGasUsed           *hexutil.Uint64 `json:"blobGasUsed,omitempty"`
	ExcessBlobGas         *hexutil.Uint64 `json:"excessBlobGas,omitempty"`
	ParentBeaconBlockRoot *common.Hash    `json:"parentBeaconBlockRoot,omitempty"`

	// RequestsRoot null is treated as absent.
	RequestsRoot *common.Hash `json:"requestsRoot,omitempty"`

	// ExecutionWitness is the camelCase witness JSON; null means the
	// witness is unavailable.
	ExecutionWitness json.RawMessage `json:"executionWitness,omitempty"`
}

// BlobsBundle carries the blobs of a payload's blob transactions with their
// KZG commitments and proofs, in transaction order.
type BlobsBundle struct {
	Commitments []hexutil.Bytes `json:"commitments"`
	Proofs      []hexutil.Bytes `json:"proofs"`
	Blobs       []hexutil.Bytes `json:"blobs"`
}
