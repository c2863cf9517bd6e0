package types

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	blst "github.com/supranational/blst/bindings/go"
)

// Deposit signature errors.
var (
	ErrDepositPubkey    = errors.New("deposit: invalid BLS public key")
	ErrDepositSignature = errors.New("deposit: invalid BLS signature")
)

// blsDST is the proof-of-possession ciphersuite used for deposits.
var blsDST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_POP_")

// depositDomainType is DOMAIN_DEPOSIT from the consensus specs.
var depositDomainType = [4]byte{0x03, 0x00, 0x00, 0x00}

// DepositRequest is an EIP-6110 deposit. Record layout:
//
//	pubkey(48) || withdrawal_credentials(32) || amount(8, LE) || signature(96) || index(8, LE)
type DepositRequest struct {
	Pubkey                [48]byte
	WithdrawalCredentials common.Hash
	Amount                uint64 // Gwei
	Signature             [96]byte
	Index                 uint64
}

// DecodeDepositRequests splits a deposit payload into 192-byte records.
func DecodeDepositRequests(data []byte) ([]*DepositRequest, error) {
	if len(data)%DepositRequestSize != 0 {
		return nil, fmt.Errorf("%w: deposit payload length %d", ErrInvalidRequest, len(data))
	}
	out := make([]*DepositRequest, 0, len(data)/DepositRequestSize)
	for off := 0; off < len(data); off += DepositRequestSize {
		rec := data[off : off+DepositRequestSize]
		d := new(DepositRequest)
		copy(d.Pubkey[:], rec[0:48])
		copy(d.WithdrawalCredentials[:], rec[48:80])
		d.Amount = binary.LittleEndian.Uint64(rec[80:88])
		copy(d.Signature[:], rec[88:184])
		d.Index = binary.LittleEndian.Uint64(rec[184:192])
		out = append(out, d)
	}
	return out, nil
}

// Encode returns the 192-byte record.
func (d *DepositRequest) Encode() []byte {
	out := make([]byte, DepositRequestSize)
	copy(out[0:48], d.Pubkey[:])
	copy(out[48:80], d.WithdrawalCredentials[:])
	binary.LittleEndian.PutUint64(out[80:88], d.Amount)
	copy(out[88:184], d.Signature[:])
	binary.LittleEndian.PutUint64(out[184:192], d.Index)
	return out
}

// SigningRoot returns the message a depositor signs: the hash tree root
// of DepositMessage{pubkey, withdrawal_credentials, amount} bound to the
// deposit domain of the given genesis fork version.
func (d *DepositRequest) SigningRoot(genesisForkVersion [4]byte) common.Hash {
	var pkChunks [64]byte
	copy(pkChunks[:], d.Pubkey[:])
	pkRoot := sha256.Sum256(pkChunks[:])

	var amount [32]byte
	binary.LittleEndian.PutUint64(amount[:8], d.Amount)
	var zero [32]byte

	left := sha256Pair(pkRoot[:], d.WithdrawalCredentials[:])
	right := sha256Pair(amount[:], zero[:])
	messageRoot := sha256Pair(left[:], right[:])

	var version [32]byte
	copy(version[:], genesisForkVersion[:])
	forkDataRoot := sha256Pair(version[:], zero[:])

	var domain [32]byte
	copy(domain[:4], depositDomainType[:])
	copy(domain[4:], forkDataRoot[:28])

	return common.Hash(sha256Pair(messageRoot[:], domain[:]))
}

// VerifySignature checks the deposit's proof of possession.
func (d *DepositRequest) VerifySignature(genesisForkVersion [4]byte) error {
	pk := new(blst.P1Affine).Uncompress(d.Pubkey[:])
	if pk == nil || !pk.KeyValidate() {
		return ErrDepositPubkey
	}
	sig := new(blst.P2Affine).Uncompress(d.Signature[:])
	if sig == nil {
		return ErrDepositSignature
	}
	root := d.SigningRoot(genesisForkVersion)
	if !sig.Verify(true, pk, false, root[:], blsDST) {
		return ErrDepositSignature
	}
	return nil
}

type depositJSON struct {
	Pubkey                hexutil.Bytes  `json:"pubkey"`
	WithdrawalCredentials common.Hash    `json:"withdrawalCredentials"`
	Amount                hexutil.Uint64 `json:"amount"`
	Signature             hexutil.Bytes  `json:"signature"`
	Index                 hexutil.Uint64 `json:"index"`
}

// MarshalJSON encodes the deposit in the engine API shape.
func (d *DepositRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(depositJSON{
		Pubkey:                d.Pubkey[:],
		WithdrawalCredentials: d.WithdrawalCredentials,
		Amount:                hexutil.Uint64(d.Amount),
		Signature:             d.Signature[:],
		Index:                 hexutil.Uint64(d.Index),
	})
}

func sha256Pair(a, b []byte) [32]byte {
	h := sha256.New()
	h.Write(a)
	h.Write(b)
	var out [32]byte
	h.Sum(out[:0])
	return out
}
