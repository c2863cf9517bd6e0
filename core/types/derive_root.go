package types

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/ethereum/go-ethereum/trie"

	"github.com/eth2030/ethblock/metrics"
)

var (
	// EmptyRootHash is the root of an empty trie, keccak256(rlp("")).
	EmptyRootHash = gethtypes.EmptyRootHash

	// EmptyUncleHash is keccak256(rlp([])).
	EmptyUncleHash = gethtypes.EmptyUncleHash
)

// Trie is the part of a Merkle-Patricia trie needed to commit to an
// ordered list. Both *trie.Trie and *trie.StackTrie satisfy it, as does
// the value returned by NewListTrie.
type Trie interface {
	Update(key, value []byte) error
	Hash() common.Hash
}

// listTrie buffers key/value pairs and feeds them to a StackTrie in key
// order when hashed, so callers may insert in any order.
type listTrie struct {
	keys   [][]byte
	values [][]byte
}

// NewListTrie returns an empty in-memory Trie for list commitments.
func NewListTrie() Trie { return &listTrie{} }

func (t *listTrie) Update(key, value []byte) error {
	t.keys = append(t.keys, common.CopyBytes(key))
	t.values = append(t.values, common.CopyBytes(value))
	return nil
}

func (t *listTrie) Hash() common.Hash {
	order := make([]int, len(t.keys))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return bytes.Compare(t.keys[order[a]], t.keys[order[b]]) < 0
	})
	st := trie.NewStackTrie(nil)
	for n, i := range order {
		// A repeated key keeps the value inserted last.
		if n+1 < len(order) && bytes.Equal(t.keys[i], t.keys[order[n+1]]) {
			continue
		}
		// An empty value is a deletion.
		if len(t.values[i]) == 0 {
			continue
		}
		if err := st.Update(t.keys[i], t.values[i]); err != nil {
			// Keys are sorted and unique, which is all StackTrie requires.
			panic(fmt.Sprintf("stack trie update: %v", err))
		}
	}
	return st.Hash()
}

// DeriveRoot inserts rlp(i) -> encode(items[i]) for every item, in slice
// order, into t and returns the resulting root. A nil t uses NewListTrie.
// The trie is owned by the call until it returns.
func DeriveRoot[T any](ctx context.Context, items []T, encode func(T) ([]byte, error), t Trie) (common.Hash, error) {
	defer metrics.TrieRootTimer.UpdateSince(time.Now())

	if t == nil {
		t = NewListTrie()
	}
	var key []byte
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return common.Hash{}, err
		}
		value, err := encode(item)
		if err != nil {
			return common.Hash{}, fmt.Errorf("encoding item %d: %w", i, err)
		}
		key = rlp.AppendUint64(key[:0], uint64(i))
		if err := t.Update(common.CopyBytes(key), value); err != nil {
			return common.Hash{}, fmt.Errorf("trie update %d: %w", i, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	return t.Hash(), nil
}

// TransactionsRoot commits to txs by their wire encoding.
func TransactionsRoot(ctx context.Context, txs []*Transaction, t Trie) (common.Hash, error) {
	return DeriveRoot(ctx, txs, (*Transaction).Serialize, t)
}

// WithdrawalsRoot commits to withdrawals by rlp(raw).
func WithdrawalsRoot(ctx context.Context, ws []*gethtypes.Withdrawal, t Trie) (common.Hash, error) {
	return DeriveRoot(ctx, ws, SerializeWithdrawal, t)
}

// RequestsRoot commits to requests by type || data.
func RequestsRoot(ctx context.Context, reqs []*ClRequest, t Trie) (common.Hash, error) {
	return DeriveRoot(ctx, reqs, func(r *ClRequest) ([]byte, error) { return r.Serialize(), nil }, t)
}
