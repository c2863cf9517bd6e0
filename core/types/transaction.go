package types

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	gethparams "github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/eth2030/ethblock/params"
)

// TxKind enumerates the transaction variants a block may carry.
type TxKind uint8

const (
	LegacyTxKind     TxKind = iota // pre-EIP-2718 transaction
	AccessListTxKind               // EIP-2930
	DynamicFeeTxKind               // EIP-1559
	BlobTxKind                     // EIP-4844
	SetCodeTxKind                  // EIP-7702
)

func (k TxKind) String() string {
	switch k {
	case LegacyTxKind:
		return "legacy"
	case AccessListTxKind:
		return "accessList"
	case DynamicFeeTxKind:
		return "dynamicFee"
	case BlobTxKind:
		return "blob"
	case SetCodeTxKind:
		return "setCode"
	}
	return fmt.Sprintf("TxKind(%d)", uint8(k))
}

// Capability is a protocol feature a transaction variant may support,
// named by the EIP that introduced it.
type Capability int

const (
	EIP155ReplayProtection  Capability = 155
	EIP1559FeeMarket        Capability = 1559
	EIP2718TypedTransaction Capability = 2718
	EIP2930AccessLists      Capability = 2930
	EIP4844Blobs            Capability = 4844
	EIP7702EOACode          Capability = 7702
)

var kindCapabilities = map[TxKind][]Capability{
	AccessListTxKind: {EIP155ReplayProtection, EIP2718TypedTransaction, EIP2930AccessLists},
	DynamicFeeTxKind: {EIP155ReplayProtection, EIP2718TypedTransaction, EIP2930AccessLists, EIP1559FeeMarket},
	BlobTxKind:       {EIP155ReplayProtection, EIP2718TypedTransaction, EIP2930AccessLists, EIP1559FeeMarket, EIP4844Blobs},
	SetCodeTxKind:    {EIP155ReplayProtection, EIP2718TypedTransaction, EIP2930AccessLists, EIP1559FeeMarket, EIP7702EOACode},
}

// kindEIP is the EIP that must be active for a block to carry the kind.
var kindEIP = map[TxKind]int{
	AccessListTxKind: 2930,
	DynamicFeeTxKind: 1559,
	BlobTxKind:       4844,
	SetCodeTxKind:    7702,
}

// Transaction is a decoded transaction of one of the TxKind variants.
type Transaction struct {
	inner *gethtypes.Transaction
	kind  TxKind
}

// NewTransaction wraps a go-ethereum transaction.
func NewTransaction(tx *gethtypes.Transaction) *Transaction {
	var kind TxKind
	switch tx.Type() {
	case gethtypes.AccessListTxType:
		kind = AccessListTxKind
	case gethtypes.DynamicFeeTxType:
		kind = DynamicFeeTxKind
	case gethtypes.BlobTxType:
		kind = BlobTxKind
	case gethtypes.SetCodeTxType:
		kind = SetCodeTxKind
	default:
		kind = LegacyTxKind
	}
	return &Transaction{inner: tx, kind: kind}
}

// TransactionFromSerialized decodes a transaction from its wire encoding,
// rejecting types that are not active under c.
func TransactionFromSerialized(b []byte, c *params.Common) (*Transaction, error) {
	tx := new(gethtypes.Transaction)
	if err := tx.UnmarshalBinary(b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	t := NewTransaction(tx)
	if eip, ok := kindEIP[t.kind]; ok && !c.IsActivatedEIP(eip) {
		return nil, fmt.Errorf("%w: %s transactions need EIP-%d", ErrTxTypeNotActive, t.kind, eip)
	}
	return t, nil
}

// TransactionFromBlockBody decodes a transaction as it appears in a
// decoded block body: typed transactions are byte strings, legacy ones are
// lists.
func TransactionFromBlockBody(raw interface{}, c *params.Common) (*Transaction, error) {
	switch v := raw.(type) {
	case []byte:
		return TransactionFromSerialized(v, c)
	case []interface{}:
		enc, err := rlp.EncodeToBytes(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
		}
		return TransactionFromSerialized(enc, c)
	}
	return nil, fmt.Errorf("%w: unexpected body element %T", ErrInvalidTransaction, raw)
}

// Inner returns the wrapped go-ethereum transaction.
func (tx *Transaction) Inner() *gethtypes.Transaction { return tx.inner }

// Kind returns the variant.
func (tx *Transaction) Kind() TxKind { return tx.kind }

// Type returns the EIP-2718 type byte.
func (tx *Transaction) Type() uint8 { return tx.inner.Type() }

// Hash returns the transaction hash.
func (tx *Transaction) Hash() common.Hash { return tx.inner.Hash() }

// Supports reports whether the variant has capability c.
func (tx *Transaction) Supports(c Capability) bool {
	if tx.kind == LegacyTxKind {
		return c == EIP155ReplayProtection && tx.inner.Protected()
	}
	for _, have := range kindCapabilities[tx.kind] {
		if have == c {
			return true
		}
	}
	return false
}

// Serialize returns the wire encoding: type || payload for typed
// transactions, the RLP list for legacy ones.
func (tx *Transaction) Serialize() ([]byte, error) {
	return tx.inner.MarshalBinary()
}

// Raw returns the form stored in a block body: the wire bytes of typed
// transactions or the RLP list of a legacy one.
func (tx *Transaction) Raw() (interface{}, error) {
	enc, err := tx.inner.MarshalBinary()
	if err != nil {
		return nil, err
	}
	if tx.kind == LegacyTxKind {
		return rlp.RawValue(enc), nil
	}
	return enc, nil
}

// IsSigned reports whether the transaction carries a signature.
func (tx *Transaction) IsSigned() bool {
	_, r, s := tx.inner.RawSignatureValues()
	return r != nil && s != nil && r.Sign() != 0 && s.Sign() != 0
}

// GasPrice returns the legacy gas price. For fee-market variants this is
// the fee cap.
func (tx *Transaction) GasPrice() *big.Int { return tx.inner.GasPrice() }

// MaxFeePerGas returns the EIP-1559 fee cap.
func (tx *Transaction) MaxFeePerGas() *big.Int { return tx.inner.GasFeeCap() }

// MaxPriorityFeePerGas returns the EIP-1559 tip cap.
func (tx *Transaction) MaxPriorityFeePerGas() *big.Int { return tx.inner.GasTipCap() }

// NumBlobs returns the number of blobs referenced by a blob transaction.
func (tx *Transaction) NumBlobs() int { return len(tx.inner.BlobHashes()) }

// MaxFeePerBlobGas returns the blob fee cap, or nil for non-blob variants.
func (tx *Transaction) MaxFeePerBlobGas() *big.Int { return tx.inner.BlobGasFeeCap() }

// BlobVersionedHashes returns the versioned hashes of a blob transaction.
func (tx *Transaction) BlobVersionedHashes() []common.Hash { return tx.inner.BlobHashes() }

// ValidationErrors returns every structural problem with the transaction
// under the rules of c. It never fails; an empty result means valid.
func (tx *Transaction) ValidationErrors(c *params.Common) []string {
	var errs []string

	if need := tx.intrinsicGas(c); tx.inner.Gas() < need {
		errs = append(errs, fmt.Sprintf("gasLimit is too low. given %d, need at least %d", tx.inner.Gas(), need))
	}
	if tx.inner.To() == nil && c.IsActivatedEIP(3860) {
		if size, limit := len(tx.inner.Data()), c.Param(params.MaxInitCodeSize); uint64(size) > limit {
			errs = append(errs, fmt.Sprintf("initcode exceeds max initcode size: %d > %d", size, limit))
		}
	}
	if tx.Supports(EIP1559FeeMarket) && tx.MaxFeePerGas().Cmp(tx.MaxPriorityFeePerGas()) < 0 {
		errs = append(errs, "maxFeePerGas cannot be less than maxPriorityFeePerGas (The total must be the larger of the two)")
	}
	switch tx.kind {
	case BlobTxKind:
		if tx.NumBlobs() == 0 {
			errs = append(errs, "tx should contain at least one blob")
		}
		for i, h := range tx.BlobVersionedHashes() {
			if h[0] != 0x01 {
				errs = append(errs, fmt.Sprintf("versioned hash %d does not start with KZG commitment version", i))
			}
		}
	case SetCodeTxKind:
		if len(tx.inner.SetCodeAuthorizations()) == 0 {
			errs = append(errs, "set code transaction must have at least one authorization")
		}
	}
	if tx.IsSigned() {
		signer := gethtypes.LatestSignerForChainID(c.ChainID())
		if _, err := gethtypes.Sender(signer, tx.inner); err != nil {
			errs = append(errs, fmt.Sprintf("invalid signature: %v", err))
		}
	}
	return errs
}

// intrinsicGas is the minimum gas the transaction must provide before
// execution starts.
func (tx *Transaction) intrinsicGas(c *params.Common) uint64 {
	data := tx.inner.Data()
	creation := tx.inner.To() == nil

	gas := gethparams.TxGas
	if creation && c.IsActivatedEIP(2) {
		gas = gethparams.TxGasContractCreation
	}
	nonZeroCost := gethparams.TxDataNonZeroGasFrontier
	if c.IsActivatedEIP(2028) {
		nonZeroCost = gethparams.TxDataNonZeroGasEIP2028
	}
	for _, b := range data {
		if b == 0 {
			gas += gethparams.TxDataZeroGas
		} else {
			gas += nonZeroCost
		}
	}
	for _, tuple := range tx.inner.AccessList() {
		gas += gethparams.TxAccessListAddressGas
		gas += uint64(len(tuple.StorageKeys)) * gethparams.TxAccessListStorageKeyGas
	}
	if creation && c.IsActivatedEIP(3860) {
		gas += uint64((len(data)+31)/32) * gethparams.InitCodeWordGas
	}
	gas += uint64(len(tx.inner.SetCodeAuthorizations())) * gethparams.CallNewAccountGas
	return gas
}

// MarshalJSON encodes the transaction in the JSON-RPC shape.
func (tx *Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(tx.inner)
}

// UnmarshalJSON decodes a JSON-RPC transaction object.
func (tx *Transaction) UnmarshalJSON(input []byte) error {
	inner := new(gethtypes.Transaction)
	if err := inner.UnmarshalJSON(input); err != nil {
		return err
	}
	*tx = *NewTransaction(inner)
	return nil
}
