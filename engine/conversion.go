package engine

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/eth2030/ethblock/core/types"
)

// payloadHeaderData maps payload fields onto header input. The roots of
// the transaction and withdrawal lists are derived by the caller; the
// remaining header fields keep their post-merge defaults.
func payloadHeaderData(p *ExecutionPayload, txRoot common.Hash, withdrawalsRoot *common.Hash) types.HeaderData {
	var (
		parentHash  = p.ParentHash
		coinbase    = p.FeeRecipient
		stateRoot   = p.StateRoot
		receiptRoot = p.ReceiptsRoot
		bloom       = p.LogsBloom
		mixHash     = p.PrevRandao
		gasLimit    = p.GasLimit
		gasUsed     = p.GasUsed
		timestamp   = p.Timestamp
		extra       = hexutil.Bytes(common.CopyBytes(p.ExtraData))
	)
	d := types.HeaderData{
		ParentHash:       &parentHash,
		Coinbase:         &coinbase,
		StateRoot:        &stateRoot,
		TransactionsTrie: &txRoot,
		ReceiptTrie:      &receiptRoot,
		LogsBloom:        &bloom,
		Number:           (*hexutil.Big)(new(big.Int).SetUint64(uint64(p.BlockNumber))),
		GasLimit:         &gasLimit,
		GasUsed:          &gasUsed,
		Timestamp:        &timestamp,
		ExtraData:        &extra,
		MixHash:          &mixHash,
		WithdrawalsRoot:  withdrawalsRoot,
	}
	if p.BaseFeePerGas != nil {
		d.BaseFeePerGas = (*hexutil.Big)(new(big.Int).Set(p.BaseFeePerGas.ToInt()))
	}
	if p.BlobGasUsed != nil {
		v := *p.BlobGasUsed
		d.BlobGasUsed = &v
	}
	if p.ExcessBlobGas != nil {
		v := *p.ExcessBlobGas
		d.ExcessBlobGas = &v
	}
	if p.ParentBeaconBlockRoot != nil {
		v := *p.ParentBeaconBlockRoot
		d.ParentBeaconBlockRoot = &v
	}
	if p.RequestsRoot != nil {
		v := *p.RequestsRoot
		d.RequestsRoot = &v
	}
	return d
}

// ToExecutionPayload converts a block into an execution payload. The block
// hash is recomputed from the header; the witness keeps its status, so an
// unavailable witness is rendered as null.
func ToExecutionPayload(block *types.Block) (*ExecutionPayload, error) {
	h := block.Header()
	p := &ExecutionPayload{
		ParentHash:   h.ParentHash,
		FeeRecipient: h.Coinbase,
		StateRoot:    h.StateRoot,
		ReceiptsRoot: h.ReceiptRoot,
		LogsBloom:    h.Bloom,
		PrevRandao:   h.MixDigest,
		BlockNumber:  hexutil.Uint64(h.Number.Uint64()),
		GasLimit:     hexutil.Uint64(h.GasLimit),
		GasUsed:      hexutil.Uint64(h.GasUsed),
		Timestamp:    hexutil.Uint64(h.Time),
		ExtraData:    common.CopyBytes(h.Extra),
		Withdrawals:  block.Withdrawals(),

		BlobGasUsed:           (*hexutil.Uint64)(h.BlobGasUsed),
		ExcessBlobGas:         (*hexutil.Uint64)(h.ExcessBlobGas),
		ParentBeaconBlockRoot: h.ParentBeaconRoot,
		RequestsRoot:          h.RequestsRoot,
	}
	if h.BaseFee != nil {
		p.BaseFeePerGas = (*hexutil.Big)(h.BaseFee)
	}
	enc, err := h.Serialize()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	p.BlockHash = crypto.Keccak256Hash(enc)

	txs := block.Transactions()
	p.Transactions = make([]hexutil.Bytes, len(txs))
	for i, tx := range txs {
		enc, err := tx.Serialize()
		if err != nil {
			return nil, fmt.Errorf("%w: tx %d: %v", ErrInvalidPayload, i, err)
		}
		p.Transactions[i] = enc
	}

	witness, status := block.ExecutionWitness()
	raw, err := types.EncodeWitnessJSON(witness, status)
	if err != nil {
		return nil, err
	}
	p.ExecutionWitness = raw
	return p, nil
}
