package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rlp"
)

// WitnessStatus distinguishes a witness that was never supplied from one
// explicitly recorded as unavailable.
type WitnessStatus uint8

const (
	WitnessUnset       WitnessStatus = iota // not supplied; a default applies
	WitnessUnavailable                      // known to be absent (JSON null)
	WitnessPresent
)

func (s WitnessStatus) String() string {
	switch s {
	case WitnessUnset:
		return "unset"
	case WitnessUnavailable:
		return "unavailable"
	case WitnessPresent:
		return "present"
	}
	return fmt.Sprintf("WitnessStatus(%d)", uint8(s))
}

// SuffixIndex is a leaf suffix within a verkle stem. JSON accepts a
// number, a decimal string or a 0x-prefixed hex string.
type SuffixIndex uint8

func (s *SuffixIndex) UnmarshalJSON(input []byte) error {
	str := strings.Trim(string(input), `"`)
	var (
		v   uint64
		err error
	)
	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		v, err = strconv.ParseUint(str[2:], 16, 8)
	} else {
		v, err = strconv.ParseUint(str, 10, 8)
	}
	if err != nil {
		return fmt.Errorf("invalid suffix %s: %w", input, err)
	}
	*s = SuffixIndex(v)
	return nil
}

// SuffixStateDiff is the pre and post value of one leaf. A nil value means
// the leaf is absent.
type SuffixStateDiff struct {
	Suffix       SuffixIndex    `json:"suffix"`
	CurrentValue *hexutil.Bytes `json:"currentValue"`
	NewValue     *hexutil.Bytes `json:"newValue"`
}

// StemStateDiff groups the leaf diffs under one stem.
type StemStateDiff struct {
	Stem        hexutil.Bytes     `json:"stem"`
	SuffixDiffs []SuffixStateDiff `json:"suffixDiffs"`
}

// IPAProof is the inner-product argument of a verkle multiproof.
type IPAProof struct {
	CL              []hexutil.Bytes `json:"cl"`
	CR              []hexutil.Bytes `json:"cr"`
	FinalEvaluation hexutil.Bytes   `json:"finalEvaluation"`
}

// VerkleProof is the multiproof over all touched stems.
type VerkleProof struct {
	CommitmentsByPath     []hexutil.Bytes `json:"commitmentsByPath"`
	D                     hexutil.Bytes   `json:"d"`
	DepthExtensionPresent hexutil.Bytes   `json:"depthExtensionPresent"`
	IPAProof              IPAProof        `json:"ipaProof"`
	OtherStems            []hexutil.Bytes `json:"otherStems"`
}

// VerkleExecutionWitness is the EIP-6800 stateless execution witness.
type VerkleExecutionWitness struct {
	StateDiff   []StemStateDiff `json:"stateDiff"`
	VerkleProof VerkleProof     `json:"verkleProof"`
}

// DefaultExecutionWitness returns a structurally empty witness.
func DefaultExecutionWitness() *VerkleExecutionWitness {
	return &VerkleExecutionWitness{
		StateDiff: []StemStateDiff{},
		VerkleProof: VerkleProof{
			CommitmentsByPath:     []hexutil.Bytes{},
			D:                     hexutil.Bytes{},
			DepthExtensionPresent: hexutil.Bytes{},
			IPAProof: IPAProof{
				CL:              []hexutil.Bytes{},
				CR:              []hexutil.Bytes{},
				FinalEvaluation: hexutil.Bytes{},
			},
			OtherStems: []hexutil.Bytes{},
		},
	}
}

// Copy returns a deep copy.
func (w *VerkleExecutionWitness) Copy() *VerkleExecutionWitness {
	if w == nil {
		return nil
	}
	cpy := &VerkleExecutionWitness{
		StateDiff: make([]StemStateDiff, len(w.StateDiff)),
		VerkleProof: VerkleProof{
			CommitmentsByPath:     copyByteList(w.VerkleProof.CommitmentsByPath),
			D:                     common.CopyBytes(w.VerkleProof.D),
			DepthExtensionPresent: common.CopyBytes(w.VerkleProof.DepthExtensionPresent),
			IPAProof: IPAProof{
				CL:              copyByteList(w.VerkleProof.IPAProof.CL),
				CR:              copyByteList(w.VerkleProof.IPAProof.CR),
				FinalEvaluation: common.CopyBytes(w.VerkleProof.IPAProof.FinalEvaluation),
			},
			OtherStems: copyByteList(w.VerkleProof.OtherStems),
		},
	}
	for i, sd := range w.StateDiff {
		diffs := make([]SuffixStateDiff, len(sd.SuffixDiffs))
		for j, d := range sd.SuffixDiffs {
			diffs[j] = SuffixStateDiff{
				Suffix:       d.Suffix,
				CurrentValue: copyOptBytes(d.CurrentValue),
				NewValue:     copyOptBytes(d.NewValue),
			}
		}
		cpy.StateDiff[i] = StemStateDiff{Stem: common.CopyBytes(sd.Stem), SuffixDiffs: diffs}
	}
	return cpy
}

func copyByteList(in []hexutil.Bytes) []hexutil.Bytes {
	if in == nil {
		return nil
	}
	out := make([]hexutil.Bytes, len(in))
	for i, b := range in {
		out[i] = common.CopyBytes(b)
	}
	return out
}

func copyOptBytes(b *hexutil.Bytes) *hexutil.Bytes {
	if b == nil {
		return nil
	}
	cpy := hexutil.Bytes(common.CopyBytes(*b))
	return &cpy
}

// WitnessCodec converts a witness to and from the bytes stored in a
// block's trailing witness slot.
type WitnessCodec interface {
	EncodeWitness(w *VerkleExecutionWitness) ([]byte, error)
	DecodeWitness(b []byte) (*VerkleExecutionWitness, error)
}

// JSONWitnessCodec stores the witness as an RLP string holding its JSON
// form.
type JSONWitnessCodec struct{}

func (JSONWitnessCodec) EncodeWitness(w *VerkleExecutionWitness) ([]byte, error) {
	j, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
	}
	return rlp.EncodeToBytes(j)
}

func (JSONWitnessCodec) DecodeWitness(b []byte) (*VerkleExecutionWitness, error) {
	var j []byte
	if err := rlp.DecodeBytes(b, &j); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
	}
	w := new(VerkleExecutionWitness)
	if err := json.Unmarshal(j, w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
	}
	return w, nil
}

// DecodeWitnessJSON interprets a JSON witness field: absent gives
// WitnessUnset, null gives WitnessUnavailable.
func DecodeWitnessJSON(raw json.RawMessage) (*VerkleExecutionWitness, WitnessStatus, error) {
	if len(raw) == 0 {
		return nil, WitnessUnset, nil
	}
	if string(raw) == "null" {
		return nil, WitnessUnavailable, nil
	}
	w := new(VerkleExecutionWitness)
	if err := json.Unmarshal(raw, w); err != nil {
		return nil, WitnessUnset, fmt.Errorf("%w: %v", ErrInvalidWitness, err)
	}
	return w, WitnessPresent, nil
}

// EncodeWitnessJSON is the inverse of DecodeWitnessJSON.
func EncodeWitnessJSON(w *VerkleExecutionWitness, status WitnessStatus) (json.RawMessage, error) {
	switch status {
	case WitnessUnavailable:
		return json.RawMessage("null"), nil
	case WitnessPresent:
		return json.Marshal(w)
	}
	return nil, nil
}
