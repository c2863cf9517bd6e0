package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"
)

// rlpHash returns keccak256(rlp(v)).
func rlpHash(v interface{}) (common.Hash, error) {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		return common.Hash{}, err
	}
	return keccak(enc), nil
}

func keccak(data []byte) (h common.Hash) {
	d := sha3.NewLegacyKeccak256()
	d.Write(data)
	d.Sum(h[:0])
	return h
}

// uintBytes is the minimal big-endian form of v; zero encodes as empty.
func uintBytes(v uint64) []byte {
	return new(big.Int).SetUint64(v).Bytes()
}

// bigBytes is the minimal big-endian form of v; nil and zero are empty.
func bigBytes(v *big.Int) []byte {
	if v == nil {
		return []byte{}
	}
	return v.Bytes()
}

// valueBytes asserts that a decoded RLP value is a byte string.
func valueBytes(v interface{}, field string) ([]byte, error) {
	b, ok := v.([]byte)
	if !ok {
		return nil, fmt.Errorf("%s: expected byte string, got %T", field, v)
	}
	return b, nil
}

// valueList asserts that a decoded RLP value is a list.
func valueList(v interface{}, field string) ([]interface{}, error) {
	l, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: expected list, got %T", field, v)
	}
	return l, nil
}

func bytesToUint64(b []byte, field string) (uint64, error) {
	if len(b) > 8 {
		return 0, fmt.Errorf("%s: %d bytes overflow uint64", field, len(b))
	}
	if len(b) > 0 && b[0] == 0 {
		return 0, fmt.Errorf("%s: non-canonical integer (leading zero bytes)", field)
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

func bytesToHash(b []byte, field string) (common.Hash, error) {
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("%s must be %d bytes, got %d", field, common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}

func bytesToAddress(b []byte, field string) (common.Address, error) {
	if len(b) != common.AddressLength {
		return common.Address{}, fmt.Errorf("%s must be %d bytes, got %d", field, common.AddressLength, len(b))
	}
	return common.BytesToAddress(b), nil
}

// decodeValueList decodes b, which must hold an RLP list, into nested
// byte strings and lists.
func decodeValueList(b []byte) ([]interface{}, error) {
	var values []interface{}
	if err := rlp.DecodeBytes(b, &values); err != nil {
		return nil, err
	}
	return values, nil
}

func encodeRaw(raw []interface{}) ([]byte, error) {
	return rlp.EncodeToBytes(raw)
}
