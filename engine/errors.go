package engine

import "errors"

// Payload conversion errors. Block-level failures (bad transactions, hash
// mismatch, missing witness) wrap the core/types sentinels instead.
var (
	// ErrInvalidPayload is returned when a payload field cannot be mapped
	// onto a block.
	ErrInvalidPayload = errors.New("invalid execution payload")

	// ErrInvalidBeaconPayload is returned when a beacon payload quantity
	// is not a decimal integer in range.
	ErrInvalidBeaconPayload = errors.New("invalid beacon payload")
)

// Blob bundle errors.
var (
	ErrBlobBundleMismatch    = errors.New("blobs bundle: commitments/proofs/blobs length mismatch")
	ErrBlobCountMismatch     = errors.New("blobs bundle: blob count does not match block")
	ErrBlobInvalidSize       = errors.New("blobs bundle: invalid blob size")
	ErrCommitmentInvalidSize = errors.New("blobs bundle: invalid commitment size")
	ErrProofInvalidSize      = errors.New("blobs bundle: invalid proof size")
	ErrVersionedHashMismatch = errors.New("blobs bundle: versioned hash does not match commitment")
	ErrInvalidBlobProof      = errors.New("blobs bundle: invalid KZG proof")
	ErrKZGUnavailable        = errors.New("blobs bundle: KZG context unavailable")
)
