package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"github.com/eth2030/ethblock/core/types"
)

// BeaconPayload is the execution payload as served by the beacon API:
// snake_case keys and decimal-string quantities.
type BeaconPayload struct {
	ParentHash            common.Hash         `json:"parent_hash"`
	FeeRecipient          common.Address      `json:"fee_recipient"`
	StateRoot             common.Hash         `json:"state_root"`
	ReceiptsRoot          common.Hash         `json:"receipts_root"`
	LogsBloom             gethtypes.Bloom     `json:"logs_bloom"`
	PrevRandao            common.Hash         `json:"prev_randao"`
	BlockNumber           string              `json:"block_number"`
	GasLimit              string              `json:"gas_limit"`
	GasUsed               string              `json:"gas_used"`
	Timestamp             string              `json:"timestamp"`
	ExtraData             hexutil.Bytes       `json:"extra_data"`
	BaseFeePerGas         string              `json:"base_fee_per_gas"`
	BlockHash             common.Hash         `json:"block_hash"`
	Transactions          []hexutil.Bytes     `json:"transactions"`
	Withdrawals           []*BeaconWithdrawal `json:"withdrawals,omitempty"`
	BlobGasUsed           *string             `json:"blob_gas_used,omitempty"`
	ExcessBlobGas         *string             `json:"excess_blob_gas,omitempty"`
	ParentBeaconBlockRoot *common.Hash        `json:"parent_beacon_block_root,omitempty"`
	RequestsRoot          *common.Hash        `json:"requests_root,omitempty"`

	// ExecutionWitness is accepted in snake_case or camelCase form.
	ExecutionWitness json.RawMessage `json:"execution_witness,omitempty"`
}

// BeaconWithdrawal is a beacon-API withdrawal.
type BeaconWithdrawal struct {
	Index          string         `json:"index"`
	ValidatorIndex string         `json:"validator_index"`
	Address        common.Address `json:"address"`
	Amount         string         `json:"amount"`
}

type beaconSuffixDiff struct {
	Suffix       types.SuffixIndex `json:"suffix"`
	CurrentValue *hexutil.Bytes    `json:"current_value"`
	NewValue     *hexutil.Bytes    `json:"new_value"`
}

type beaconStemDiff struct {
	Stem        hexutil.Bytes      `json:"stem"`
	SuffixDiffs []beaconSuffixDiff `json:"suffix_diffs"`
}

type beaconIPAProof struct {
	CL              []hexutil.Bytes `json:"cl"`
	CR              []hexutil.Bytes `json:"cr"`
	FinalEvaluation hexutil.Bytes   `json:"final_evaluation"`
}

type beaconVerkleProof struct {
	OtherStems            []hexutil.Bytes `json:"other_stems"`
	DepthExtensionPresent hexutil.Bytes   `json:"depth_extension_present"`
	CommitmentsByPath     []hexutil.Bytes `json:"commitments_by_path"`
	D                     hexutil.Bytes   `json:"d"`
	IPAProof              beaconIPAProof  `json:"ipa_proof"`
}

type beaconWitness struct {
	StateDiff   []beaconStemDiff   `json:"state_diff"`
	VerkleProof *beaconVerkleProof `json:"verkle_proof"`
}

// BlockFromBeaconPayload converts p to an execution payload and builds the
// block from it.
func BlockFromBeaconPayload(ctx context.Context, p *BeaconPayload, opts types.BlockOptions) (*types.Block, error) {
	payload, err := p.ExecutionPayload()
	if err != nil {
		return nil, err
	}
	return BlockFromExecutionPayload(ctx, payload, opts)
}

// ExecutionPayload converts the beacon form into an Engine API payload.
// A null witness is dropped, like an absent one.
func (p *BeaconPayload) ExecutionPayload() (*ExecutionPayload, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidBeaconPayload)
	}
	out := &ExecutionPayload{
		ParentHash:            p.ParentHash,
		FeeRecipient:          p.FeeRecipient,
		StateRoot:             p.StateRoot,
		ReceiptsRoot:          p.ReceiptsRoot,
		LogsBloom:             p.LogsBloom,
		PrevRandao:            p.PrevRandao,
		ExtraData:             p.ExtraData,
		BlockHash:             p.BlockHash,
		Transactions:          p.Transactions,
		ParentBeaconBlockRoot: p.ParentBeaconBlockRoot,
		RequestsRoot:          p.RequestsRoot,
	}
	if out.Transactions == nil {
		out.Transactions = []hexutil.Bytes{}
	}

	var err error
	quantities := []struct {
		name string
		in   string
		out  *hexutil.Uint64
	}{
		{"block_number", p.BlockNumber, &out.BlockNumber},
		{"gas_limit", p.GasLimit, &out.GasLimit},
		{"gas_used", p.GasUsed, &out.GasUsed},
		{"timestamp", p.Timestamp, &out.Timestamp},
	}
	for _, q := range quantities {
		v, err := parseDecimalUint64(q.name, q.in)
		if err != nil {
			return nil, err
		}
		*q.out = hexutil.Uint64(v)
	}
	if p.BaseFeePerGas != "" {
		fee, err := uint256.FromDecimal(p.BaseFeePerGas)
		if err != nil {
			return nil, fmt.Errorf("%w: base_fee_per_gas %q: %v", ErrInvalidBeaconPayload, p.BaseFeePerGas, err)
		}
		out.BaseFeePerGas = (*hexutil.Big)(fee.ToBig())
	}
	if p.BlobGasUsed != nil {
		if out.BlobGasUsed, err = parseDecimalQuantity("blob_gas_used", *p.BlobGasUsed); err != nil {
			return nil, err
		}
	}
	if p.ExcessBlobGas != nil {
		if out.ExcessBlobGas, err = parseDecimalQuantity("excess_blob_gas", *p.ExcessBlobGas); err != nil {
			return nil, err
		}
	}

	if p.Withdrawals != nil {
		out.Withdrawals = make([]*gethtypes.Withdrawal, len(p.Withdrawals))
		for i, w := range p.Withdrawals {
			if out.Withdrawals[i], err = w.withdrawal(); err != nil {
				return nil, fmt.Errorf("withdrawal %d: %w", i, err)
			}
		}
	}

	if len(p.ExecutionWitness) > 0 && string(p.ExecutionWitness) != "null" {
		witness, err := convertBeaconWitness(p.ExecutionWitness)
		if err != nil {
			return nil, err
		}
		if out.ExecutionWitness, err = json.Marshal(witness); err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidWitness, err)
		}
	}
	return out, nil
}

func (w *BeaconWithdrawal) withdrawal() (*gethtypes.Withdrawal, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: null withdrawal", ErrInvalidBeaconPayload)
	}
	index, err := parseDecimalUint64("index", w.Index)
	if err != nil {
		return nil, err
	}
	validator, err := parseDecimalUint64("validator_index", w.ValidatorIndex)
	if err != nil {
		return nil, err
	}
	amount, err := parseDecimalUint64("amount", w.Amount)
	if err != nil {
		return nil, err
	}
	return types.NewWithdrawal(index, validator, w.Address, amount), nil
}

// convertBeaconWitness accepts the snake_case witness, recognised by its
// verkle_proof key, or a witness already in camelCase form.
func convertBeaconWitness(raw json.RawMessage) (*types.VerkleExecutionWitness, error) {
	var snake beaconWitness
	if err := json.Unmarshal(raw, &snake); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidWitness, err)
	}
	if snake.VerkleProof == nil {
		w, _, err := types.DecodeWitnessJSON(raw)
		return w, err
	}

	w := types.DefaultExecutionWitness()
	for _, sd := range snake.StateDiff {
		diff := types.StemStateDiff{
			Stem:        sd.Stem,
			SuffixDiffs: make([]types.SuffixStateDiff, len(sd.SuffixDiffs)),
		}
		for i, s := range sd.SuffixDiffs {
			diff.SuffixDiffs[i] = types.SuffixStateDiff{
				Suffix:       s.Suffix,
				CurrentValue: s.CurrentValue,
				NewValue:     s.NewValue,
			}
		}
		w.StateDiff = append(w.StateDiff, diff)
	}
	vp := snake.VerkleProof
	w.VerkleProof = types.VerkleProof{
		CommitmentsByPath:     nonNilBytesList(vp.CommitmentsByPath),
		D:                     nonNilBytes(vp.D),
		DepthExtensionPresent: nonNilBytes(vp.DepthExtensionPresent),
		IPAProof: types.IPAProof{
			CL:              nonNilBytesList(vp.IPAProof.CL),
			CR:              nonNilBytesList(vp.IPAProof.CR),
			FinalEvaluation: nonNilBytes(vp.IPAProof.FinalEvaluation),
		},
		OtherStems: nonNilBytesList(vp.OtherStems),
	}
	return w, nil
}

func parseDecimalUint64(name, s string) (uint64, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %v", ErrInvalidBeaconPayload, name, s, err)
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%w: %s %s overflows uint64", ErrInvalidBeaconPayload, name, s)
	}
	return v.Uint64(), nil
}

func parseDecimalQuantity(name, s string) (*hexutil.Uint64, error) {
	v, err := parseDecimalUint64(name, s)
	if err != nil {
		return nil, err
	}
	q := hexutil.Uint64(v)
	return &q, nil
}

func nonNilBytes(b hexutil.Bytes) hexutil.Bytes {
	if b == nil {
		return hexutil.Bytes{}
	}
	return b
}

func nonNilBytesList(l []hexutil.Bytes) []hexutil.Bytes {
	if l == nil {
		return []hexutil.Bytes{}
	}
	return l
}
