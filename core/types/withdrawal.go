package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
)

// NewWithdrawal builds an EIP-4895 withdrawal. amount is in Gwei.
func NewWithdrawal(index, validator uint64, address common.Address, amount uint64) *gethtypes.Withdrawal {
	return &gethtypes.Withdrawal{
		Index:     index,
		Validator: validator,
		Address:   address,
		Amount:    amount,
	}
}

// WithdrawalFromValues decodes [index, validatorIndex, address, amount].
func WithdrawalFromValues(v interface{}) (*gethtypes.Withdrawal, error) {
	fields, err := valueList(v, "withdrawal")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWithdrawal, err)
	}
	if len(fields) != 4 {
		return nil, fmt.Errorf("%w: expected 4 fields, got %d", ErrInvalidWithdrawal, len(fields))
	}
	var raw [4][]byte
	for i, f := range fields {
		if raw[i], err = valueBytes(f, "withdrawal field"); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidWithdrawal, err)
		}
	}
	index, err := bytesToUint64(raw[0], "index")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWithdrawal, err)
	}
	validator, err := bytesToUint64(raw[1], "validatorIndex")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWithdrawal, err)
	}
	address, err := bytesToAddress(raw[2], "address")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWithdrawal, err)
	}
	amount, err := bytesToUint64(raw[3], "amount")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWithdrawal, err)
	}
	return NewWithdrawal(index, validator, address, amount), nil
}

// WithdrawalRaw returns [index, validatorIndex, address, amount] with
// integers in minimal big-endian form.
func WithdrawalRaw(w *gethtypes.Withdrawal) []interface{} {
	return []interface{}{
		uintBytes(w.Index),
		uintBytes(w.Validator),
		w.Address.Bytes(),
		uintBytes(w.Amount),
	}
}

// SerializeWithdrawal returns rlp(WithdrawalRaw(w)).
func SerializeWithdrawal(w *gethtypes.Withdrawal) ([]byte, error) {
	return rlp.EncodeToBytes(WithdrawalRaw(w))
}

// copyWithdrawals deep-copies ws, preserving nil.
func copyWithdrawals(ws []*gethtypes.Withdrawal) []*gethtypes.Withdrawal {
	if ws == nil {
		return nil
	}
	out := make([]*gethtypes.Withdrawal, len(ws))
	for i, w := range ws {
		cpy := *w
		out[i] = &cpy
	}
	return out
}
