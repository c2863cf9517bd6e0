package types

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
)

// HeaderData is the input to NewHeader and the JSON form of a header. Nil
// fields are absent.
type HeaderData struct {
	ParentHash            *common.Hash          `json:"parentHash,omitempty"`
	UncleHash             *common.Hash          `json:"uncleHash,omitempty"`
	Coinbase              *common.Address       `json:"coinbase,omitempty"`
	StateRoot             *common.Hash          `json:"stateRoot,omitempty"`
	TransactionsTrie      *common.Hash          `json:"transactionsTrie,omitempty"`
	ReceiptTrie           *common.Hash          `json:"receiptTrie,omitempty"`
	LogsBloom             *gethtypes.Bloom      `json:"logsBloom,omitempty"`
	Difficulty            *hexutil.Big          `json:"difficulty,omitempty"`
	Number                *hexutil.Big          `json:"number,omitempty"`
	GasLimit              *hexutil.Uint64       `json:"gasLimit,omitempty"`
	GasUsed               *hexutil.Uint64       `json:"gasUsed,omitempty"`
	Timestamp             *hexutil.Uint64       `json:"timestamp,omitempty"`
	ExtraData             *hexutil.Bytes        `json:"extraData,omitempty"`
	MixHash               *common.Hash          `json:"mixHash,omitempty"`
	Nonce                 *gethtypes.BlockNonce `json:"nonce,omitempty"`
	BaseFeePerGas         *hexutil.Big          `json:"baseFeePerGas,omitempty"`
	WithdrawalsRoot       *common.Hash          `json:"withdrawalsRoot,omitempty"`
	BlobGasUsed           *hexutil.Uint64       `json:"blobGasUsed,omitempty"`
	ExcessBlobGas         *hexutil.Uint64       `json:"excessBlobGas,omitempty"`
	ParentBeaconBlockRoot *common.Hash          `json:"parentBeaconBlockRoot,omitempty"`
	RequestsRoot          *common.Hash          `json:"requestsRoot,omitempty"`
}

// applyBase copies the fork-independent fields present in d onto h.
func (d *HeaderData) applyBase(h *Header) {
	if d.ParentHash != nil {
		h.ParentHash = *d.ParentHash
	}
	if d.UncleHash != nil {
		h.UncleHash = *d.UncleHash
	}
	if d.Coinbase != nil {
		h.Coinbase = *d.Coinbase
	}
	if d.StateRoot != nil {
		h.StateRoot = *d.StateRoot
	}
	if d.TransactionsTrie != nil {
		h.TxRoot = *d.TransactionsTrie
	}
	if d.ReceiptTrie != nil {
		h.ReceiptRoot = *d.ReceiptTrie
	}
	if d.LogsBloom != nil {
		h.Bloom = *d.LogsBloom
	}
	if d.Difficulty != nil {
		h.Difficulty = new(big.Int).Set(d.Difficulty.ToInt())
	}
	if d.Number != nil {
		h.Number = new(big.Int).Set(d.Number.ToInt())
	}
	if d.GasLimit != nil {
		h.GasLimit = uint64(*d.GasLimit)
	}
	if d.GasUsed != nil {
		h.GasUsed = uint64(*d.GasUsed)
	}
	if d.Timestamp != nil {
		h.Time = uint64(*d.Timestamp)
	}
	if d.ExtraData != nil {
		h.Extra = common.CopyBytes(*d.ExtraData)
	}
	if d.MixHash != nil {
		h.MixDigest = *d.MixHash
	}
	if d.Nonce != nil {
		h.Nonce = *d.Nonce
	}
}

// headerDataFromValues maps a header value list onto HeaderData. Fields
// beyond the list's length stay absent.
func headerDataFromValues(values []interface{}) (HeaderData, error) {
	var (
		d   HeaderData
		raw = make([][]byte, len(values))
		err error
	)
	for i, v := range values {
		if raw[i], err = valueBytes(v, fmt.Sprintf("header field %d", i)); err != nil {
			return d, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
		}
	}
	hash := func(i int, name string) (*common.Hash, error) {
		h, err := bytesToHash(raw[i], name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
		}
		return &h, nil
	}
	quantity := func(i int, name string) (*hexutil.Uint64, error) {
		v, err := bytesToUint64(raw[i], name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
		}
		q := hexutil.Uint64(v)
		return &q, nil
	}
	bigInt := func(i int) *hexutil.Big {
		return (*hexutil.Big)(new(big.Int).SetBytes(raw[i]))
	}

	if d.ParentHash, err = hash(0, "parentHash"); err != nil {
		return d, err
	}
	if d.UncleHash, err = hash(1, "uncleHash"); err != nil {
		return d, err
	}
	coinbase, err := bytesToAddress(raw[2], "coinbase")
	if err != nil {
		return d, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	d.Coinbase = &coinbase
	if d.StateRoot, err = hash(3, "stateRoot"); err != nil {
		return d, err
	}
	if d.TransactionsTrie, err = hash(4, "transactionsTrie"); err != nil {
		return d, err
	}
	if d.ReceiptTrie, err = hash(5, "receiptTrie"); err != nil {
		return d, err
	}
	if len(raw[6]) != gethtypes.BloomByteLength {
		return d, fmt.Errorf("%w: logsBloom must be %d bytes, got %d", ErrMalformedHeader, gethtypes.BloomByteLength, len(raw[6]))
	}
	bloom := gethtypes.BytesToBloom(raw[6])
	d.LogsBloom = &bloom
	d.Difficulty = bigInt(7)
	d.Number = bigInt(8)
	if d.GasLimit, err = quantity(9, "gasLimit"); err != nil {
		return d, err
	}
	if d.GasUsed, err = quantity(10, "gasUsed"); err != nil {
		return d, err
	}
	if d.Timestamp, err = quantity(11, "timestamp"); err != nil {
		return d, err
	}
	extra := hexutil.Bytes(common.CopyBytes(raw[12]))
	d.ExtraData = &extra
	if d.MixHash, err = hash(13, "mixHash"); err != nil {
		return d, err
	}
	if len(raw[14]) != 8 {
		return d, fmt.Errorf("%w: nonce must be 8 bytes, got %d", ErrMalformedHeader, len(raw[14]))
	}
	var nonce gethtypes.BlockNonce
	copy(nonce[:], raw[14])
	d.Nonce = &nonce

	n := len(raw)
	if n > 15 {
		d.BaseFeePerGas = bigInt(15)
	}
	if n > 16 {
		if d.WithdrawalsRoot, err = hash(16, "withdrawalsRoot"); err != nil {
			return d, err
		}
	}
	if n > 17 {
		if d.BlobGasUsed, err = quantity(17, "blobGasUsed"); err != nil {
			return d, err
		}
	}
	if n > 18 {
		if d.ExcessBlobGas, err = quantity(18, "excessBlobGas"); err != nil {
			return d, err
		}
	}
	if n > 19 {
		if d.ParentBeaconBlockRoot, err = hash(19, "parentBeaconBlockRoot"); err != nil {
			return d, err
		}
	}
	if n > 20 {
		if d.RequestsRoot, err = hash(20, "requestsRoot"); err != nil {
			return d, err
		}
	}
	return d, nil
}

// ToJSON returns every base field plus the EIP fields active for h.
func (h *Header) ToJSON() *HeaderData {
	var (
		uncleHash   = h.UncleHash
		parentHash  = h.ParentHash
		coinbase    = h.Coinbase
		stateRoot   = h.StateRoot
		txRoot      = h.TxRoot
		receiptRoot = h.ReceiptRoot
		bloom       = h.Bloom
		gasLimit    = hexutil.Uint64(h.GasLimit)
		gasUsed     = hexutil.Uint64(h.GasUsed)
		timestamp   = hexutil.Uint64(h.Time)
		extra       = hexutil.Bytes(common.CopyBytes(h.Extra))
		mixHash     = h.MixDigest
		nonce       = h.Nonce
	)
	d := &HeaderData{
		ParentHash:       &parentHash,
		UncleHash:        &uncleHash,
		Coinbase:         &coinbase,
		StateRoot:        &stateRoot,
		TransactionsTrie: &txRoot,
		ReceiptTrie:      &receiptRoot,
		LogsBloom:        &bloom,
		Difficulty:       (*hexutil.Big)(copyBig(h.Difficulty)),
		Number:           (*hexutil.Big)(copyBig(h.Number)),
		GasLimit:         &gasLimit,
		GasUsed:          &gasUsed,
		Timestamp:        &timestamp,
		ExtraData:        &extra,
		MixHash:          &mixHash,
		Nonce:            &nonce,
		WithdrawalsRoot:  copyHashPtr(h.WithdrawalsRoot),
	}
	if h.rules.IsActivatedEIP(1559) {
		d.BaseFeePerGas = (*hexutil.Big)(copyBig(h.BaseFee))
	}
	if h.rules.IsActivatedEIP(4844) {
		d.BlobGasUsed = (*hexutil.Uint64)(copyUint64Ptr(h.BlobGasUsed))
		d.ExcessBlobGas = (*hexutil.Uint64)(copyUint64Ptr(h.ExcessBlobGas))
	}
	if h.rules.IsActivatedEIP(4788) {
		d.ParentBeaconBlockRoot = copyHashPtr(h.ParentBeaconRoot)
	}
	if h.rules.IsActivatedEIP(7685) {
		d.RequestsRoot = copyHashPtr(h.RequestsRoot)
	}
	return d
}

// MarshalJSON encodes ToJSON.
func (h *Header) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.ToJSON())
}
