package types

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/eth2030/ethblock/params"
)

const (
	defaultGasLimit = 0xffffffffffffff

	cliqueExtraVanity  = 32
	cliqueExtraSeal    = 65
	cliqueDefaultEpoch = 30000

	// Blocks after the DAO fork block that must carry daoExtraData.
	daoForceExtraRange = 9

	// Header value-array arity: 15 base fields plus up to six EIP fields.
	minHeaderValues = 15
	maxHeaderValues = 21
)

var daoExtraData = []byte("dao-hard-fork")

// Header is a block header bound to the activation context it was built
// under. Fields must not be modified once the header is constructed; the
// hash is cached on first use.
type Header struct {
	ParentHash  common.Hash
	UncleHash   common.Hash
	Coinbase    common.Address
	StateRoot   common.Hash
	TxRoot      common.Hash
	ReceiptRoot common.Hash
	Bloom       gethtypes.Bloom
	Difficulty  *big.Int
	Number      *big.Int
	GasLimit    uint64
	GasUsed     uint64
	Time        uint64
	Extra       []byte
	MixDigest   common.Hash
	Nonce       gethtypes.BlockNonce

	// EIP-1559
	BaseFee *big.Int

	// EIP-4895
	WithdrawalsRoot *common.Hash

	// EIP-4844
	BlobGasUsed   *uint64
	ExcessBlobGas *uint64

	// EIP-4788
	ParentBeaconRoot *common.Hash

	// EIP-7685
	RequestsRoot *common.Hash

	rules *params.Common
	hash  atomic.Pointer[common.Hash]
}

// HeaderOptions controls header construction.
type HeaderOptions struct {
	// Common is copied; nil means params.DefaultCommon().
	Common *params.Common

	// SetHardfork selects the hardfork from the header's number and
	// timestamp instead of using Common's current fork.
	SetHardfork bool

	// CalcDifficultyFromHeader, on ethash chains, replaces the difficulty
	// with the canonical difficulty relative to this parent.
	CalcDifficultyFromHeader *Header

	SkipConsensusFormatValidation bool
}

// NewHeader builds a header from data. Absent fields take their defaults,
// EIP-gated fields default according to the active EIPs, and supplying a
// gated field whose EIP is inactive is an error.
func NewHeader(data HeaderData, opts HeaderOptions) (*Header, error) {
	rules := params.DefaultCommon()
	if opts.Common != nil {
		rules = opts.Common.Copy()
	}
	h := &Header{
		UncleHash:   EmptyUncleHash,
		TxRoot:      EmptyRootHash,
		ReceiptRoot: EmptyRootHash,
		Difficulty:  new(big.Int),
		Number:      new(big.Int),
		GasLimit:    defaultGasLimit,
		Extra:       []byte{},
		rules:       rules,
	}
	data.applyBase(h)

	if opts.SetHardfork {
		rules.SetHardforkBy(h.Number, h.Time)
	}
	if err := h.applyForkFields(data, opts.CalcDifficultyFromHeader); err != nil {
		return nil, err
	}
	if err := h.validateFormat(); err != nil {
		return nil, err
	}
	if err := h.validateDAOExtraData(); err != nil {
		return nil, err
	}
	if opts.CalcDifficultyFromHeader != nil && rules.ConsensusAlgorithm() == params.Ethash {
		d, err := h.EthashCanonicalDifficulty(opts.CalcDifficultyFromHeader)
		if err != nil {
			return nil, err
		}
		h.Difficulty = d
	}
	if !opts.SkipConsensusFormatValidation {
		if err := h.validateConsensusFormat(); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// applyForkFields sets the EIP-gated fields from data or their fork
// defaults and rejects gated fields supplied while their EIP is inactive.
func (h *Header) applyForkFields(data HeaderData, parent *Header) error {
	rules := h.rules

	switch {
	case data.BaseFeePerGas != nil:
		h.BaseFee = new(big.Int).Set(data.BaseFeePerGas.ToInt())
	case rules.IsActivatedEIP(1559):
		if london := rules.HardforkBlock(params.London); london != nil && london.Cmp(h.Number) == 0 {
			h.BaseFee = new(big.Int).SetUint64(rules.Param(params.InitialBaseFee))
		} else {
			h.BaseFee = big.NewInt(7)
		}
	}
	switch {
	case data.WithdrawalsRoot != nil:
		h.WithdrawalsRoot = copyHashPtr(data.WithdrawalsRoot)
	case rules.IsActivatedEIP(4895):
		h.WithdrawalsRoot = copyHashPtr(&EmptyRootHash)
	}
	switch {
	case data.BlobGasUsed != nil:
		h.BlobGasUsed = newUint64(uint64(*data.BlobGasUsed))
	case rules.IsActivatedEIP(4844):
		h.BlobGasUsed = newUint64(0)
	}
	switch {
	case data.ExcessBlobGas != nil:
		h.ExcessBlobGas = newUint64(uint64(*data.ExcessBlobGas))
	case rules.IsActivatedEIP(4844) && parent != nil:
		h.ExcessBlobGas = newUint64(parent.CalcNextExcessBlobGas())
	case rules.IsActivatedEIP(4844):
		h.ExcessBlobGas = newUint64(0)
	}
	switch {
	case data.ParentBeaconBlockRoot != nil:
		h.ParentBeaconRoot = copyHashPtr(data.ParentBeaconBlockRoot)
	case rules.IsActivatedEIP(4788):
		h.ParentBeaconRoot = new(common.Hash)
	}
	switch {
	case data.RequestsRoot != nil:
		h.RequestsRoot = copyHashPtr(data.RequestsRoot)
	case rules.IsActivatedEIP(7685):
		h.RequestsRoot = copyHashPtr(&EmptyRootHash)
	}

	if !rules.IsActivatedEIP(1559) && h.BaseFee != nil {
		return fmt.Errorf("%w: A base fee for a block can only be set with EIP1559 being activated", ErrEIPNotActive)
	}
	if !rules.IsActivatedEIP(4895) && h.WithdrawalsRoot != nil {
		return fmt.Errorf("%w: A withdrawalsRoot for a header can only be provided with EIP4895 being activated", ErrEIPNotActive)
	}
	if !rules.IsActivatedEIP(4844) {
		if h.BlobGasUsed != nil {
			return fmt.Errorf("%w: blob gas used can only be provided with EIP4844 activated", ErrEIPNotActive)
		}
		if h.ExcessBlobGas != nil {
			return fmt.Errorf("%w: excess blob gas can only be provided with EIP4844 activated", ErrEIPNotActive)
		}
	}
	if !rules.IsActivatedEIP(4788) && h.ParentBeaconRoot != nil {
		return fmt.Errorf("%w: A parentBeaconBlockRoot for a header can only be provided with EIP4788 being activated", ErrEIPNotActive)
	}
	if !rules.IsActivatedEIP(7685) && h.RequestsRoot != nil {
		return fmt.Errorf("%w: requestsRoot can only be provided with EIP 7685 activated", ErrEIPNotActive)
	}
	return nil
}

// HeaderFromValues builds a header from its decoded RLP value list.
func HeaderFromValues(values []interface{}, opts HeaderOptions) (*Header, error) {
	if len(values) > maxHeaderValues {
		return nil, fmt.Errorf("%w. More values than expected were received: %d", ErrMalformedHeader, len(values))
	}
	if len(values) < minHeaderValues {
		return nil, fmt.Errorf("%w. Less values than expected were received: %d", ErrMalformedHeader, len(values))
	}
	data, err := headerDataFromValues(values)
	if err != nil {
		return nil, err
	}
	h, err := NewHeader(data, opts)
	if err != nil {
		return nil, err
	}
	rules := h.rules
	if rules.IsActivatedEIP(1559) && data.BaseFeePerGas == nil {
		if london := rules.HardforkBlock(params.London); london != nil && london.Cmp(h.Number) == 0 {
			return nil, fmt.Errorf("%w. baseFeePerGas should be provided", ErrMalformedHeader)
		}
	}
	if rules.IsActivatedEIP(4844) {
		if data.ExcessBlobGas == nil {
			return nil, fmt.Errorf("%w. excessBlobGas should be provided", ErrMalformedHeader)
		}
		if data.BlobGasUsed == nil {
			return nil, fmt.Errorf("%w. blobGasUsed should be provided", ErrMalformedHeader)
		}
	}
	if rules.IsActivatedEIP(4788) && data.ParentBeaconBlockRoot == nil {
		return nil, fmt.Errorf("%w. parentBeaconBlockRoot should be provided", ErrMalformedHeader)
	}
	if rules.IsActivatedEIP(7685) && data.RequestsRoot == nil {
		return nil, fmt.Errorf("%w. requestsRoot should be provided", ErrMalformedHeader)
	}
	return h, nil
}

// HeaderFromRLP decodes an RLP-serialized header.
func HeaderFromRLP(b []byte, opts HeaderOptions) (*Header, error) {
	values, err := decodeValueList(b)
	if err != nil {
		return nil, fmt.Errorf("Invalid serialized header input. Must be array: %w", err)
	}
	return HeaderFromValues(values, opts)
}

// Common returns a copy of the activation context.
func (h *Header) Common() *params.Common { return h.rules.Copy() }

// IsActivatedEIP reports whether eip is active for this header.
func (h *Header) IsActivatedEIP(eip int) bool { return h.rules.IsActivatedEIP(eip) }

// Hardfork returns the hardfork the header was built under.
func (h *Header) Hardfork() params.Hardfork { return h.rules.Hardfork() }

// ConsensusType returns the block-production regime of the header's fork.
func (h *Header) ConsensusType() params.ConsensusType { return h.rules.ConsensusType() }

// Param returns a protocol parameter at the header's fork.
func (h *Header) Param(p params.Param) uint64 { return h.rules.Param(p) }

// IsGenesis reports whether this is block zero.
func (h *Header) IsGenesis() bool { return h.Number.Sign() == 0 }

// PrevRandao returns the mix digest, which carries the beacon randomness
// after EIP-4399.
func (h *Header) PrevRandao() (common.Hash, error) {
	if !h.rules.IsActivatedEIP(4399) {
		return common.Hash{}, fmt.Errorf("%w: The prevRandao parameter can only be accessed when EIP-4399 is activated (%s)", ErrEIPNotActive, h.ErrorStr())
	}
	return h.MixDigest, nil
}

// Raw returns the header fields in RLP order. Integers are minimal
// big-endian byte strings; EIP fields are appended only when active.
func (h *Header) Raw() []interface{} {
	raw := []interface{}{
		h.ParentHash.Bytes(),
		h.UncleHash.Bytes(),
		h.Coinbase.Bytes(),
		h.StateRoot.Bytes(),
		h.TxRoot.Bytes(),
		h.ReceiptRoot.Bytes(),
		h.Bloom.Bytes(),
		bigBytes(h.Difficulty),
		bigBytes(h.Number),
		uintBytes(h.GasLimit),
		uintBytes(h.GasUsed),
		uintBytes(h.Time),
		common.CopyBytes(h.Extra),
		h.MixDigest.Bytes(),
		h.Nonce[:],
	}
	if h.rules.IsActivatedEIP(1559) {
		raw = append(raw, bigBytes(h.BaseFee))
	}
	if h.rules.IsActivatedEIP(4895) {
		raw = append(raw, hashPtrBytes(h.WithdrawalsRoot))
	}
	if h.rules.IsActivatedEIP(4844) {
		raw = append(raw, uintPtrBytes(h.BlobGasUsed), uintPtrBytes(h.ExcessBlobGas))
	}
	if h.rules.IsActivatedEIP(4788) {
		raw = append(raw, hashPtrBytes(h.ParentBeaconRoot))
	}
	if h.rules.IsActivatedEIP(7685) {
		raw = append(raw, hashPtrBytes(h.RequestsRoot))
	}
	return raw
}

// Serialize returns the RLP encoding of Raw.
func (h *Header) Serialize() ([]byte, error) {
	return encodeRaw(h.Raw())
}

// Hash returns keccak256(rlp(Raw)).
func (h *Header) Hash() common.Hash {
	if cached := h.hash.Load(); cached != nil {
		return *cached
	}
	hash, err := rlpHash(h.Raw())
	if err != nil {
		// Raw holds only byte strings, which always encode.
		panic(fmt.Sprintf("header rlp: %v", err))
	}
	h.hash.Store(&hash)
	return hash
}

// ErrorStr is a compact summary used to annotate errors.
func (h *Header) ErrorStr() string {
	baseFee := "none"
	if h.BaseFee != nil {
		baseFee = h.BaseFee.String()
	}
	return fmt.Sprintf("block header number=%v hash=%s hf=%s baseFeePerGas=%s", h.Number, h.Hash().Hex(), h.rules.Hardfork(), baseFee)
}

func (h *Header) errorf(kind error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s (%s)", kind, fmt.Sprintf(format, args...), h.ErrorStr())
}

// validateFormat checks the fork-independent field constraints.
func (h *Header) validateFormat() error {
	if h.GasUsed > h.GasLimit {
		return h.errorf(ErrMalformedHeader, "Invalid block: too much gas used. Used: %d, gas limit: %d", h.GasUsed, h.GasLimit)
	}
	if h.rules.IsActivatedEIP(1559) {
		if h.BaseFee == nil {
			return h.errorf(ErrMalformedHeader, "EIP1559 block has no base fee field")
		}
		london := h.rules.HardforkBlock(params.London)
		if london != nil && london.Sign() != 0 && london.Cmp(h.Number) == 0 {
			if h.BaseFee.Cmp(new(big.Int).SetUint64(h.rules.Param(params.InitialBaseFee))) != 0 {
				return h.errorf(ErrMalformedHeader, "Initial EIP1559 block does not have initial base fee")
			}
		}
	}
	if h.rules.IsActivatedEIP(4895) && h.WithdrawalsRoot == nil {
		return h.errorf(ErrMalformedHeader, "EIP4895 block has no withdrawalsRoot field")
	}
	if h.rules.IsActivatedEIP(4788) && h.ParentBeaconRoot == nil {
		return h.errorf(ErrMalformedHeader, "EIP4788 block has no parentBeaconBlockRoot field")
	}
	if h.rules.IsActivatedEIP(7685) && h.RequestsRoot == nil {
		return h.errorf(ErrMalformedHeader, "EIP7685 block has no requestsRoot field")
	}
	return nil
}

// validateDAOExtraData requires the pro-fork marker on the blocks right
// after the DAO fork.
func (h *Header) validateDAOExtraData() error {
	cfg := h.rules.Config()
	if !cfg.DAOForkSupport || cfg.DAOForkBlock == nil {
		return nil
	}
	drift := new(big.Int).Sub(h.Number, cfg.DAOForkBlock)
	if drift.Sign() < 0 || drift.Cmp(big.NewInt(daoForceExtraRange)) > 0 {
		return nil
	}
	if !bytes.Equal(h.Extra, daoExtraData) {
		return h.errorf(ErrMalformedHeader, "extraData should be 'dao-hard-fork', got %s (hex: %#x)", h.Extra, h.Extra)
	}
	return nil
}

// validateConsensusFormat checks the fields whose shape depends on the
// consensus algorithm.
func (h *Header) validateConsensusFormat() error {
	switch h.rules.ConsensusAlgorithm() {
	case params.Ethash:
		if h.Number.Sign() > 0 && uint64(len(h.Extra)) > h.rules.Param(params.MaxExtraDataSize) {
			return h.errorf(ErrMalformedHeader, "invalid amount of extra data")
		}
	case params.Clique:
		if err := h.validateCliqueFormat(); err != nil {
			return err
		}
	}
	if h.rules.ConsensusType() != params.PoS {
		return nil
	}
	var problems []string
	if h.UncleHash != EmptyUncleHash {
		problems = append(problems, fmt.Sprintf("uncleHash: %s (expected: %s)", h.UncleHash.Hex(), EmptyUncleHash.Hex()))
	}
	// The genesis block may carry a non-zero difficulty.
	if !h.IsGenesis() {
		if h.Difficulty.Sign() != 0 {
			problems = append(problems, fmt.Sprintf("difficulty: %v (expected: 0)", h.Difficulty))
		}
		if len(h.Extra) > 32 {
			problems = append(problems, fmt.Sprintf("extraData: %#x (cannot exceed 32 bytes length, received %d bytes)", h.Extra, len(h.Extra)))
		}
		if h.Nonce != (gethtypes.BlockNonce{}) {
			problems = append(problems, fmt.Sprintf("nonce: %#x (expected: 0x0000000000000000)", h.Nonce[:]))
		}
	}
	if len(problems) > 0 {
		return h.errorf(ErrMalformedHeader, "Invalid PoS block: %s", strings.Join(problems, ", "))
	}
	return nil
}

func (h *Header) validateCliqueFormat() error {
	minLength := cliqueExtraVanity + cliqueExtraSeal
	epoch := uint64(cliqueDefaultEpoch)
	if cfg := h.rules.Config().Clique; cfg != nil && cfg.Epoch != 0 {
		epoch = cfg.Epoch
	}
	epochTransition := new(big.Int).Mod(h.Number, new(big.Int).SetUint64(epoch)).Sign() == 0
	if !epochTransition {
		if len(h.Extra) != minLength {
			return h.errorf(ErrMalformedHeader, "extraData must be %d bytes on non-epoch transition blocks, received %d bytes", minLength, len(h.Extra))
		}
	} else {
		signerLength := len(h.Extra) - minLength
		if signerLength < 0 || signerLength%common.AddressLength != 0 {
			return h.errorf(ErrMalformedHeader, "invalid signer list length in extraData, received signer length of %d (not divisible by 20)", signerLength)
		}
		if h.Coinbase != (common.Address{}) {
			return h.errorf(ErrMalformedHeader, "coinbase must be filled with zeros on epoch transition blocks, received %s", h.Coinbase.Hex())
		}
	}
	if h.MixDigest != (common.Hash{}) {
		return h.errorf(ErrMalformedHeader, "mixHash must be filled with zeros, received %s", h.MixDigest.Hex())
	}
	return nil
}

// copyHeader returns a deep copy of h sharing its (read-only) rules.
func copyHeader(h *Header) *Header {
	cpy := &Header{
		ParentHash:       h.ParentHash,
		UncleHash:        h.UncleHash,
		Coinbase:         h.Coinbase,
		StateRoot:        h.StateRoot,
		TxRoot:           h.TxRoot,
		ReceiptRoot:      h.ReceiptRoot,
		Bloom:            h.Bloom,
		Difficulty:       copyBig(h.Difficulty),
		Number:           copyBig(h.Number),
		GasLimit:         h.GasLimit,
		GasUsed:          h.GasUsed,
		Time:             h.Time,
		Extra:            common.CopyBytes(h.Extra),
		MixDigest:        h.MixDigest,
		Nonce:            h.Nonce,
		BaseFee:          copyBig(h.BaseFee),
		WithdrawalsRoot:  copyHashPtr(h.WithdrawalsRoot),
		BlobGasUsed:      copyUint64Ptr(h.BlobGasUsed),
		ExcessBlobGas:    copyUint64Ptr(h.ExcessBlobGas),
		ParentBeaconRoot: copyHashPtr(h.ParentBeaconRoot),
		RequestsRoot:     copyHashPtr(h.RequestsRoot),
		rules:            h.rules,
	}
	if cached := h.hash.Load(); cached != nil {
		cpy.hash.Store(cached)
	}
	return cpy
}

func copyBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

func copyHashPtr(v *common.Hash) *common.Hash {
	if v == nil {
		return nil
	}
	cpy := *v
	return &cpy
}

func copyUint64Ptr(v *uint64) *uint64 {
	if v == nil {
		return nil
	}
	return newUint64(*v)
}

func newUint64(v uint64) *uint64 { return &v }

func hashPtrBytes(v *common.Hash) []byte {
	if v == nil {
		return []byte{}
	}
	return v.Bytes()
}

func uintPtrBytes(v *uint64) []byte {
	if v == nil {
		return []byte{}
	}
	return uintBytes(*v)
}
