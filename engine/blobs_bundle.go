// blobs_bundle.go verifies EIP-4844 blobs bundles against the blob
// transactions of a block.
//
// The versioned hash of a commitment is SHA-256(commitment) with the first
// byte replaced by VersionedHashVersion. A bundle is valid for a block when
// its commitments hash, in order, to the versioned hashes of the block's
// blob transactions and every blob proof verifies.
package engine

import (
	"crypto/sha256"
	"fmt"
	"sync"

	goethkzg "github.com/crate-crypto/go-eth-kzg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/eth2030/ethblock/core/types"
	"github.com/eth2030/ethblock/log"
	"github.com/eth2030/ethblock/metrics"
)

// Blob bundle constants.
const (
	// BlobSize is the byte length of a single blob (128 KiB).
	BlobSize = 131072

	// KZGCommitmentSize is the byte length of a compressed KZG commitment (G1).
	KZGCommitmentSize = 48

	// KZGProofSize is the byte length of a compressed KZG proof (G1).
	KZGProofSize = 48

	// VersionedHashVersion is the version byte for KZG versioned hashes.
	VersionedHashVersion byte = 0x01
)

var (
	kzgOnce sync.Once
	kzgCtx  *goethkzg.Context
	kzgErr  error
)

// kzgContext loads the ceremony trusted setup on first use.
func kzgContext() (*goethkzg.Context, error) {
	kzgOnce.Do(func() {
		kzgCtx, kzgErr = goethkzg.NewContext4096Secure()
		if kzgErr != nil {
			kzgErr = fmt.Errorf("%w: %v", ErrKZGUnavailable, kzgErr)
		}
	})
	return kzgCtx, kzgErr
}

// VersionedHash returns the EIP-4844 versioned hash of a KZG commitment.
func VersionedHash(commitment []byte) common.Hash {
	h := sha256.Sum256(commitment)
	h[0] = VersionedHashVersion
	return common.Hash(h)
}

// NewBlobsBundle commits to blobs and computes their proofs.
func NewBlobsBundle(blobs [][]byte) (*BlobsBundle, error) {
	ctx, err := kzgContext()
	if err != nil {
		return nil, err
	}
	bundle := &BlobsBundle{
		Commitments: make([]hexutil.Bytes, len(blobs)),
		Proofs:      make([]hexutil.Bytes, len(blobs)),
		Blobs:       make([]hexutil.Bytes, len(blobs)),
	}
	for i, b := range blobs {
		if len(b) != BlobSize {
			return nil, fmt.Errorf("%w: blob %d: got %d, want %d", ErrBlobInvalidSize, i, len(b), BlobSize)
		}
		blob := new(goethkzg.Blob)
		copy(blob[:], b)
		comm, err := ctx.BlobToKZGCommitment(blob, 0)
		if err != nil {
			return nil, fmt.Errorf("blob %d: %w", i, err)
		}
		proof, err := ctx.ComputeBlobKZGProof(blob, comm, 0)
		if err != nil {
			return nil, fmt.Errorf("blob %d: %w", i, err)
		}
		bundle.Commitments[i] = comm[:]
		bundle.Proofs[i] = proof[:]
		bundle.Blobs[i] = common.CopyBytes(b)
	}
	return bundle, nil
}

// VersionedHashes returns the versioned hash of every commitment.
func (b *BlobsBundle) VersionedHashes() []common.Hash {
	out := make([]common.Hash, len(b.Commitments))
	for i, c := range b.Commitments {
		out[i] = VersionedHash(c)
	}
	return out
}

// Verify checks the bundle against the blob transactions of block: sizes,
// one entry per blob in transaction order, commitment to versioned hash
// binding and the batch of blob proofs.
func (b *BlobsBundle) Verify(block *types.Block) error {
	n := len(b.Blobs)
	if len(b.Commitments) != n || len(b.Proofs) != n {
		return fmt.Errorf("%w: commitments=%d proofs=%d blobs=%d", ErrBlobBundleMismatch, len(b.Commitments), len(b.Proofs), n)
	}
	var hashes []common.Hash
	for _, tx := range block.Transactions() {
		hashes = append(hashes, tx.BlobVersionedHashes()...)
	}
	if len(hashes) != n {
		return fmt.Errorf("%w: block has %d blobs, bundle has %d", ErrBlobCountMismatch, len(hashes), n)
	}
	if n == 0 {
		return nil
	}

	var (
		blobs  = make([]*goethkzg.Blob, n)
		comms  = make([]goethkzg.KZGCommitment, n)
		proofs = make([]goethkzg.KZGProof, n)
	)
	for i := 0; i < n; i++ {
		if len(b.Blobs[i]) != BlobSize {
			return fmt.Errorf("%w: blob %d: got %d, want %d", ErrBlobInvalidSize, i, len(b.Blobs[i]), BlobSize)
		}
		if len(b.Commitments[i]) != KZGCommitmentSize {
			return fmt.Errorf("%w: commitment %d: got %d, want %d", ErrCommitmentInvalidSize, i, len(b.Commitments[i]), KZGCommitmentSize)
		}
		if len(b.Proofs[i]) != KZGProofSize {
			return fmt.Errorf("%w: proof %d: got %d, want %d", ErrProofInvalidSize, i, len(b.Proofs[i]), KZGProofSize)
		}
		if got := VersionedHash(b.Commitments[i]); got != hashes[i] {
			return fmt.Errorf("%w: blob %d: tx has %s, commitment gives %s", ErrVersionedHashMismatch, i, hashes[i].Hex(), got.Hex())
		}
		blobs[i] = new(goethkzg.Blob)
		copy(blobs[i][:], b.Blobs[i])
		copy(comms[i][:], b.Commitments[i])
		copy(proofs[i][:], b.Proofs[i])
	}

	ctx, err := kzgContext()
	if err != nil {
		return err
	}
	if err := ctx.VerifyBlobKZGProofBatch(blobs, comms, proofs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBlobProof, err)
	}
	metrics.BlobBundlesVerified.Inc(1)
	log.Module("engine").Debug("Verified blobs bundle", "hash", block.Hash(), "blobs", n)
	return nil
}
