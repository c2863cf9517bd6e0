package types

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Request types defined by EIP-7685.
const (
	DepositRequestType       byte = 0x00 // EIP-6110
	WithdrawalRequestType    byte = 0x01 // EIP-7002
	ConsolidationRequestType byte = 0x02 // EIP-7251
)

// Fixed sizes of the typed request records.
const (
	DepositRequestSize       = 48 + 32 + 8 + 96 + 8
	WithdrawalRequestSize    = 20 + 48 + 8
	ConsolidationRequestSize = 20 + 48 + 48
)

// ClRequest is a consensus-layer request carried by a block: a type byte
// and an opaque payload.
type ClRequest struct {
	typ  byte
	data []byte
}

// NewClRequest returns a request of the given type. data is copied.
func NewClRequest(typ byte, data []byte) *ClRequest {
	return &ClRequest{typ: typ, data: common.CopyBytes(data)}
}

// ClRequestFromBytes decodes type || data.
func ClRequestFromBytes(b []byte) (*ClRequest, error) {
	if len(b) < 1 {
		return nil, fmt.Errorf("%w: empty request", ErrInvalidRequest)
	}
	return NewClRequest(b[0], b[1:]), nil
}

// Type returns the request type byte.
func (r *ClRequest) Type() byte { return r.typ }

// Data returns a copy of the payload.
func (r *ClRequest) Data() []byte { return common.CopyBytes(r.data) }

// Serialize returns type || data.
func (r *ClRequest) Serialize() []byte {
	out := make([]byte, 1+len(r.data))
	out[0] = r.typ
	copy(out[1:], r.data)
	return out
}

// MarshalJSON encodes the serialized request as a hex string.
func (r *ClRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(hexutil.Bytes(r.Serialize()))
}

// UnmarshalJSON decodes a hex string holding type || data.
func (r *ClRequest) UnmarshalJSON(input []byte) error {
	var b hexutil.Bytes
	if err := json.Unmarshal(input, &b); err != nil {
		return err
	}
	dec, err := ClRequestFromBytes(b)
	if err != nil {
		return err
	}
	*r = *dec
	return nil
}

// ClRequests is an ordered request list.
type ClRequests []*ClRequest

// FilterByType returns the requests of the given type, in order.
func (rs ClRequests) FilterByType(typ byte) ClRequests {
	var out ClRequests
	for _, r := range rs {
		if r.typ == typ {
			out = append(out, r)
		}
	}
	return out
}

// sorted reports whether types never decrease.
func (rs ClRequests) sorted() bool {
	for i := 1; i < len(rs); i++ {
		if rs[i].typ < rs[i-1].typ {
			return false
		}
	}
	return true
}

// WithdrawalRequest is an EIP-7002 execution-triggered withdrawal.
type WithdrawalRequest struct {
	SourceAddress   common.Address `json:"sourceAddress"`
	ValidatorPubkey hexutil.Bytes  `json:"validatorPubkey"`
	Amount          hexutil.Uint64 `json:"amount"`
}

// DecodeWithdrawalRequests splits a payload into 76-byte records.
func DecodeWithdrawalRequests(data []byte) ([]*WithdrawalRequest, error) {
	if len(data)%WithdrawalRequestSize != 0 {
		return nil, fmt.Errorf("%w: withdrawal request payload length %d", ErrInvalidRequest, len(data))
	}
	out := make([]*WithdrawalRequest, 0, len(data)/WithdrawalRequestSize)
	for off := 0; off < len(data); off += WithdrawalRequestSize {
		rec := data[off : off+WithdrawalRequestSize]
		out = append(out, &WithdrawalRequest{
			SourceAddress:   common.BytesToAddress(rec[:20]),
			ValidatorPubkey: common.CopyBytes(rec[20:68]),
			Amount:          hexutil.Uint64(binary.BigEndian.Uint64(rec[68:76])),
		})
	}
	return out, nil
}

// ConsolidationRequest is an EIP-7251 validator consolidation.
type ConsolidationRequest struct {
	SourceAddress common.Address `json:"sourceAddress"`
	SourcePubkey  hexutil.Bytes  `json:"sourcePubkey"`
	TargetPubkey  hexutil.Bytes  `json:"targetPubkey"`
}

// DecodeConsolidationRequests splits a payload into 116-byte records.
func DecodeConsolidationRequests(data []byte) ([]*ConsolidationRequest, error) {
	if len(data)%ConsolidationRequestSize != 0 {
		return nil, fmt.Errorf("%w: consolidation request payload length %d", ErrInvalidRequest, len(data))
	}
	out := make([]*ConsolidationRequest, 0, len(data)/ConsolidationRequestSize)
	for off := 0; off < len(data); off += ConsolidationRequestSize {
		rec := data[off : off+ConsolidationRequestSize]
		out = append(out, &ConsolidationRequest{
			SourceAddress: common.BytesToAddress(rec[:20]),
			SourcePubkey:  common.CopyBytes(rec[20:68]),
			TargetPubkey:  common.CopyBytes(rec[68:116]),
		})
	}
	return out, nil
}
