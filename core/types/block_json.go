package types

import (
	"encoding/json"
	"fmt"

	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// JSONBlock is the JSON form of a block. Transactions use the JSON-RPC
// transaction shape and requests are hex-encoded type || data.
type JSONBlock struct {
	Header           *HeaderData             `json:"header"`
	Transactions     []*Transaction          `json:"transactions"`
	UncleHeaders     []*HeaderData           `json:"uncleHeaders"`
	Withdrawals      []*gethtypes.Withdrawal `json:"withdrawals,omitempty"`
	Requests         []*ClRequest            `json:"requests,omitempty"`
	ExecutionWitness json.RawMessage         `json:"executionWitness,omitempty"`
}

// ToJSON returns the block's JSON form. Withdrawals and requests appear
// only when the block has those fields.
func (b *Block) ToJSON() (*JSONBlock, error) {
	j := &JSONBlock{
		Header:       b.header.ToJSON(),
		Transactions: make([]*Transaction, len(b.transactions)),
		UncleHeaders: make([]*HeaderData, len(b.uncles)),
		Withdrawals:  b.Withdrawals(),
		Requests:     b.Requests(),
	}
	copy(j.Transactions, b.transactions)
	for i, u := range b.uncles {
		j.UncleHeaders[i] = u.ToJSON()
	}
	witness, err := EncodeWitnessJSON(b.witness, b.witnessStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
	}
	j.ExecutionWitness = witness
	return j, nil
}

// MarshalJSON encodes ToJSON.
func (b *Block) MarshalJSON() ([]byte, error) {
	j, err := b.ToJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(j)
}

// BlockData converts the JSON form back into builder input for
// NewBlockFromData.
func (j *JSONBlock) BlockData() (BlockData, error) {
	var d BlockData
	if j.Header != nil {
		d.Header = *j.Header
	}
	d.Transactions = j.Transactions
	for _, u := range j.UncleHeaders {
		if u == nil {
			return BlockData{}, fmt.Errorf("%w: null uncle header", ErrMalformedBlock)
		}
		d.UncleHeaders = append(d.UncleHeaders, *u)
	}
	d.Withdrawals = j.Withdrawals
	d.Requests = j.Requests

	witness, status, err := DecodeWitnessJSON(j.ExecutionWitness)
	if err != nil {
		return BlockData{}, err
	}
	d.ExecutionWitness = witness
	d.WitnessUnavailable = status == WitnessUnavailable
	return d, nil
}
