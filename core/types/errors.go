package types

import "errors"

// Block construction and validation errors. Messages returned to callers
// wrap one of these and usually end with the block's ErrorStr summary.
var (
	ErrMalformedBlock        = errors.New("invalid block")
	ErrMalformedHeader       = errors.New("invalid header")
	ErrEIPNotActive          = errors.New("EIP not active")
	ErrEIPFieldMissing       = errors.New("EIP field missing")
	ErrTrieRootMismatch      = errors.New("trie root mismatch")
	ErrBlockHashMismatch     = errors.New("block hash mismatch")
	ErrInvalidUncles         = errors.New("invalid uncle headers")
	ErrBlobGasLimit          = errors.New("blob gas limit exceeded")
	ErrBlobGasUsedMismatch   = errors.New("blob gas used mismatch")
	ErrExcessBlobGasMismatch = errors.New("excess blob gas mismatch")
	ErrBlobFeeTooLow         = errors.New("blob fee cap too low")
	ErrUnsortedRequests      = errors.New("requests are not sorted in ascending order")
	ErrMissingWitness        = errors.New("missing execution witness")
	ErrInvalidTransaction    = errors.New("invalid transaction")
	ErrInvalidTransactions   = errors.New("invalid transactions")
	ErrUnsignedTransaction   = errors.New("unsigned transaction")
	ErrTxTypeNotActive       = errors.New("transaction type not activated")
	ErrInvalidWithdrawal     = errors.New("invalid withdrawal")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrInvalidGasLimit       = errors.New("invalid gas limit")
	ErrInvalidWitness        = errors.New("invalid execution witness")
)
