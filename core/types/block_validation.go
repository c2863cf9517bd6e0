package types

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/eth2030/ethblock/log"
	"github.com/eth2030/ethblock/metrics"
	"github.com/eth2030/ethblock/params"
)

// TransactionsValidationErrors checks every transaction and returns all
// problems found; it never stops early. Blob gas over the block limit is
// reported but the loop continues.
func (b *Block) TransactionsValidationErrors() []string {
	var (
		rules          = b.header.rules
		errs           []string
		blobGasUsed    uint64
		blobGasLimit   = rules.Param(params.MaxBlobGasPerBlock)
		blobGasPerBlob = rules.Param(params.BlobGasPerBlob)
	)
	for i, tx := range b.transactions {
		txErrs := tx.ValidationErrors(rules)
		if rules.IsActivatedEIP(1559) {
			if tx.Supports(EIP1559FeeMarket) {
				if tx.MaxFeePerGas().Cmp(b.header.BaseFee) < 0 {
					txErrs = append(txErrs, "tx unable to pay base fee (EIP-1559 tx)")
				}
			} else if tx.GasPrice().Cmp(b.header.BaseFee) < 0 {
				txErrs = append(txErrs, "tx unable to pay base fee (non EIP-1559 tx)")
			}
		}
		if rules.IsActivatedEIP(4844) && tx.Kind() == BlobTxKind {
			blobGasUsed += uint64(tx.NumBlobs()) * blobGasPerBlob
			if blobGasUsed > blobGasLimit {
				txErrs = append(txErrs, fmt.Sprintf("tx causes total blob gas of %d to exceed maximum blob gas per block of %d", blobGasUsed, blobGasLimit))
			}
		}
		if len(txErrs) > 0 {
			errs = append(errs, fmt.Sprintf("errors at tx %d: %s", i, strings.Join(txErrs, ", ")))
		}
	}
	if rules.IsActivatedEIP(4844) {
		if b.header.BlobGasUsed == nil || *b.header.BlobGasUsed != blobGasUsed {
			errs = append(errs, fmt.Sprintf("invalid blobGasUsed expected=%s actual=%d", fmtUint64Ptr(b.header.BlobGasUsed), blobGasUsed))
		}
	}
	return errs
}

// TransactionsAreValid reports whether TransactionsValidationErrors is
// empty.
func (b *Block) TransactionsAreValid() bool {
	return len(b.TransactionsValidationErrors()) == 0
}

// TransactionsTrieIsValid compares the header's transactions root with the
// root derived from the block's transactions.
func (b *Block) TransactionsTrieIsValid(ctx context.Context) (bool, error) {
	if len(b.transactions) == 0 {
		return b.header.TxRoot == EmptyRootHash, nil
	}
	root, err := b.TxTrieRoot(ctx)
	if err != nil {
		return false, err
	}
	return root == b.header.TxRoot, nil
}

// TxTrieRoot derives the transactions root, memoizing it once computed.
func (b *Block) TxTrieRoot(ctx context.Context) (common.Hash, error) {
	return memoRoot(&b.txRoot, func() (common.Hash, error) {
		return TransactionsRoot(ctx, b.transactions, b.trie())
	})
}

// WithdrawalsTrieIsValid compares the header's withdrawals root with the
// root derived from the block's withdrawals. It requires EIP-4895.
func (b *Block) WithdrawalsTrieIsValid(ctx context.Context) (bool, error) {
	if !b.header.rules.IsActivatedEIP(4895) {
		return false, fmt.Errorf("%w: EIP 4895 is not activated", ErrEIPNotActive)
	}
	if len(b.withdrawals) == 0 {
		return hashPtrEqual(b.header.WithdrawalsRoot, EmptyRootHash), nil
	}
	root, err := memoRoot(&b.withdrawalsRoot, func() (common.Hash, error) {
		return WithdrawalsRoot(ctx, b.withdrawals, b.trie())
	})
	if err != nil {
		return false, err
	}
	return hashPtrEqual(b.header.WithdrawalsRoot, root), nil
}

// RequestsTrieIsValid compares the header's requests root with the root
// derived from the block's requests. It requires EIP-7685.
func (b *Block) RequestsTrieIsValid(ctx context.Context) (bool, error) {
	if !b.header.rules.IsActivatedEIP(7685) {
		return false, fmt.Errorf("%w: EIP 7685 is not activated", ErrEIPNotActive)
	}
	if len(b.requests) == 0 {
		return hashPtrEqual(b.header.RequestsRoot, EmptyRootHash), nil
	}
	root, err := memoRoot(&b.requestsRoot, func() (common.Hash, error) {
		return RequestsRoot(ctx, b.requests, b.trie())
	})
	if err != nil {
		return false, err
	}
	return hashPtrEqual(b.header.RequestsRoot, root), nil
}

// UncleHashIsValid compares the header's uncle hash with keccak256 of the
// RLP list of uncle headers.
func (b *Block) UncleHashIsValid() bool {
	if len(b.uncles) == 0 {
		return b.header.UncleHash == EmptyUncleHash
	}
	raws := make([]interface{}, len(b.uncles))
	for i, u := range b.uncles {
		raws[i] = u.Raw()
	}
	enc, err := rlp.EncodeToBytes(raws)
	if err != nil {
		return false
	}
	return keccak(enc) == b.header.UncleHash
}

// ValidateUncles enforces at most two uncles and no uncle counted twice.
// The genesis block is not checked.
func (b *Block) ValidateUncles() error {
	if b.IsGenesis() {
		return nil
	}
	if len(b.uncles) > 2 {
		return b.errorf(ErrInvalidUncles, "too many uncle headers")
	}
	seen := make(map[common.Hash]struct{}, len(b.uncles))
	for _, u := range b.uncles {
		h := u.Hash()
		if _, dup := seen[h]; dup {
			return b.errorf(ErrInvalidUncles, "duplicate uncles")
		}
		seen[h] = struct{}{}
	}
	return nil
}

// ValidateBlobTransactions checks the block's blob gas accounting against
// parent: the excess blob gas, every blob transaction's fee cap, the
// per-block limit and the declared blob gas used. It stops at the first
// violation. Without EIP-4844 it does nothing.
func (b *Block) ValidateBlobTransactions(parent *Header) error {
	rules := b.header.rules
	if !rules.IsActivatedEIP(4844) {
		return nil
	}
	if parent == nil {
		metrics.ValidateFailures.Inc(1)
		return fmt.Errorf("%w: nil parent header", ErrMalformedBlock)
	}
	err := b.validateBlobTransactions(parent)
	if err != nil {
		metrics.ValidateFailures.Inc(1)
	}
	return err
}

func (b *Block) validateBlobTransactions(parent *Header) error {
	var (
		rules          = b.header.rules
		blobGasLimit   = rules.Param(params.MaxBlobGasPerBlock)
		blobGasPerBlob = rules.Param(params.BlobGasPerBlob)
		blobGasUsed    uint64
	)
	expected := parent.CalcNextExcessBlobGas()
	if b.header.ExcessBlobGas == nil || *b.header.ExcessBlobGas != expected {
		return fmt.Errorf("%w: block excessBlobGas mismatch: have %s, want %d", ErrExcessBlobGasMismatch, fmtUint64Ptr(b.header.ExcessBlobGas), expected)
	}
	price, err := b.header.BlobGasPrice()
	if err != nil {
		return err
	}
	for _, tx := range b.transactions {
		if tx.Kind() != BlobTxKind {
			continue
		}
		if feeCap := tx.MaxFeePerBlobGas(); feeCap == nil || feeCap.Cmp(price) < 0 {
			return fmt.Errorf("%w: blob transaction maxFeePerBlobGas %v < than block blob gas price %v - %s", ErrBlobFeeTooLow, feeCap, price, b.ErrorStr())
		}
		blobGasUsed += uint64(len(tx.BlobVersionedHashes())) * blobGasPerBlob
		if blobGasUsed > blobGasLimit {
			return fmt.Errorf("%w: tx causes total blob gas of %d to exceed maximum blob gas per block of %d", ErrBlobGasLimit, blobGasUsed, blobGasLimit)
		}
	}
	if b.header.BlobGasUsed == nil || *b.header.BlobGasUsed != blobGasUsed {
		return fmt.Errorf("%w: block blobGasUsed mismatch: have %s, want %d", ErrBlobGasUsedMismatch, fmtUint64Ptr(b.header.BlobGasUsed), blobGasUsed)
	}
	return nil
}

// ValidateData checks everything verifiable without the parent block.
// With onlyHeader only the transaction contents are checked; verifyTxs
// false skips the transaction content and signature checks.
func (b *Block) ValidateData(ctx context.Context, onlyHeader, verifyTxs bool) error {
	err := b.validateData(ctx, onlyHeader, verifyTxs)
	if err != nil {
		metrics.ValidateFailures.Inc(1)
		log.Module("block").Debug("Block failed validation", "number", b.header.Number, "hash", b.Hash(), "err", err)
	}
	return err
}

func (b *Block) validateData(ctx context.Context, onlyHeader, verifyTxs bool) error {
	rules := b.header.rules
	if verifyTxs {
		if txErrs := b.TransactionsValidationErrors(); len(txErrs) > 0 {
			return b.errorf(ErrInvalidTransactions, "%s", strings.Join(txErrs, " "))
		}
	}
	if onlyHeader {
		return nil
	}
	if verifyTxs {
		for i, tx := range b.transactions {
			if !tx.IsSigned() {
				return b.errorf(ErrUnsignedTransaction, "invalid transactions: transaction at index %d is unsigned", i)
			}
		}
	}
	ok, err := b.TransactionsTrieIsValid(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return b.errorf(ErrTrieRootMismatch, "invalid transaction trie")
	}
	if !b.UncleHashIsValid() {
		return b.errorf(ErrTrieRootMismatch, "invalid uncle hash")
	}
	if rules.IsActivatedEIP(4895) {
		ok, err := b.WithdrawalsTrieIsValid(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return b.errorf(ErrTrieRootMismatch, "invalid withdrawals trie")
		}
	}
	if rules.IsActivatedEIP(6800) {
		switch b.witnessStatus {
		case WitnessUnset:
			return fmt.Errorf("%w: Invalid block: missing executionWitness", ErrMissingWitness)
		case WitnessUnavailable:
			return fmt.Errorf("%w: Invalid block: stateless client needs executionWitness", ErrMissingWitness)
		}
	}
	return nil
}

// memoRoot returns the cached root or computes and caches it. A failed or
// cancelled computation leaves the cache empty.
func memoRoot(slot interface {
	Load() *common.Hash
	CompareAndSwap(old, new *common.Hash) bool
}, compute func() (common.Hash, error)) (common.Hash, error) {
	if cached := slot.Load(); cached != nil {
		return *cached, nil
	}
	root, err := compute()
	if err != nil {
		return common.Hash{}, err
	}
	slot.CompareAndSwap(nil, &root)
	return root, nil
}

func hashPtrEqual(p *common.Hash, h common.Hash) bool {
	return p != nil && *p == h
}

func fmtUint64Ptr(v *uint64) string {
	if v == nil {
		return "none"
	}
	return new(big.Int).SetUint64(*v).String()
}
