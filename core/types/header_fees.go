package types

import (
	"fmt"
	"math/big"

	"github.com/eth2030/ethblock/params"
)

// CalcNextBaseFee returns the EIP-1559 base fee of the child of h.
func (h *Header) CalcNextBaseFee() (*big.Int, error) {
	if !h.rules.IsActivatedEIP(1559) {
		return nil, h.errorf(ErrEIPNotActive, "calcNextBaseFee() can only be called with EIP1559 being activated")
	}
	var (
		baseFee     = h.BaseFee
		target      = h.GasLimit / h.rules.Param(params.ElasticityMultiplier)
		denominator = new(big.Int).SetUint64(h.rules.Param(params.BaseFeeMaxChangeDenominator))
	)
	if target == h.GasUsed || target == 0 {
		return new(big.Int).Set(baseFee), nil
	}
	var delta uint64
	if h.GasUsed > target {
		delta = h.GasUsed - target
	} else {
		delta = target - h.GasUsed
	}
	change := new(big.Int).Mul(baseFee, new(big.Int).SetUint64(delta))
	change.Quo(change, new(big.Int).SetUint64(target))
	change.Quo(change, denominator)

	if h.GasUsed > target {
		if change.Cmp(big1) < 0 {
			change.Set(big1)
		}
		return change.Add(change, baseFee), nil
	}
	next := new(big.Int).Sub(baseFee, change)
	if next.Sign() < 0 {
		next.SetUint64(0)
	}
	return next, nil
}

var big1 = big.NewInt(1)

// BlobGasPrice returns the price per unit of blob gas in this block.
func (h *Header) BlobGasPrice() (*big.Int, error) {
	if h.ExcessBlobGas == nil {
		return nil, fmt.Errorf("%w: header must have excessBlobGas field populated", ErrEIPFieldMissing)
	}
	return h.blobGasPrice(*h.ExcessBlobGas), nil
}

func (h *Header) blobGasPrice(excess uint64) *big.Int {
	return fakeExponential(
		new(big.Int).SetUint64(h.rules.Param(params.MinBlobGasPrice)),
		new(big.Int).SetUint64(excess),
		new(big.Int).SetUint64(h.rules.Param(params.BlobGasPriceUpdateFraction)),
	)
}

// CalcDataFee returns the blob gas fee for numBlobs blobs at this block's
// blob gas price.
func (h *Header) CalcDataFee(numBlobs int) (*big.Int, error) {
	price, err := h.BlobGasPrice()
	if err != nil {
		return nil, err
	}
	used := new(big.Int).SetUint64(h.rules.Param(params.BlobGasPerBlob) * uint64(numBlobs))
	return used.Mul(used, price), nil
}

// CalcNextExcessBlobGas returns the excess blob gas of the child of h.
func (h *Header) CalcNextExcessBlobGas() uint64 {
	var consumed uint64
	if h.ExcessBlobGas != nil {
		consumed += *h.ExcessBlobGas
	}
	if h.BlobGasUsed != nil {
		consumed += *h.BlobGasUsed
	}
	target := h.rules.Param(params.TargetBlobGasPerBlock)
	if consumed <= target {
		return 0
	}
	return consumed - target
}

// CalcNextBlobGasPrice returns the blob gas price of the child of h.
func (h *Header) CalcNextBlobGasPrice() *big.Int {
	return h.blobGasPrice(h.CalcNextExcessBlobGas())
}

// fakeExponential approximates factor * e ** (numerator / denominator)
// using a Taylor expansion, as specified in EIP-4844.
func fakeExponential(factor, numerator, denominator *big.Int) *big.Int {
	var (
		output = new(big.Int)
		accum  = new(big.Int).Mul(factor, denominator)
		tmp    = new(big.Int)
		denom  = new(big.Int)
	)
	for i := int64(1); accum.Sign() > 0; i++ {
		output.Add(output, accum)
		tmp.Mul(accum, numerator)
		denom.Mul(denominator, big.NewInt(i))
		accum.Div(tmp, denom)
	}
	return output.Div(output, denominator)
}

// ValidateGasLimit checks that h's gas limit is within the bound the
// protocol allows relative to parent.
func (h *Header) ValidateGasLimit(parent *Header) error {
	parentGasLimit := parent.GasLimit
	// The London block targets half its limit, so the parent limit is
	// scaled up to keep the same target.
	if london := h.rules.HardforkBlock(params.London); london != nil && london.Sign() != 0 && london.Cmp(h.Number) == 0 {
		parentGasLimit *= h.rules.Param(params.ElasticityMultiplier)
	}
	var (
		bound  = parentGasLimit / h.rules.Param(params.GasLimitBoundDivisor)
		maxGas = parentGasLimit + bound
		minGas = parentGasLimit - bound
	)
	if h.GasLimit >= maxGas {
		return h.errorf(ErrInvalidGasLimit, "gas limit increased too much. Gas limit: %d, max gas limit: %d", h.GasLimit, maxGas)
	}
	if h.GasLimit <= minGas {
		return h.errorf(ErrInvalidGasLimit, "gas limit decreased too much. Gas limit: %d, min gas limit: %d", h.GasLimit, minGas)
	}
	if floor := h.rules.Param(params.MinGasLimit); h.GasLimit < floor {
		return h.errorf(ErrInvalidGasLimit, "gas limit decreased below minimum gas limit. Gas limit: %d, minimum gas limit: %d", h.GasLimit, floor)
	}
	return nil
}

// EthashCanonicalDifficulty returns the difficulty h must carry on top of
// parent under ethash.
func (h *Header) EthashCanonicalDifficulty(parent *Header) (*big.Int, error) {
	if h.rules.ConsensusType() != params.PoW {
		return nil, h.errorf(ErrMalformedHeader, "difficulty calculation is only supported on PoW chains")
	}
	if h.rules.ConsensusAlgorithm() != params.Ethash {
		return nil, h.errorf(ErrMalformedHeader, "difficulty calculation currently only supports the ethash algorithm")
	}
	var (
		rules     = h.rules
		elapsed   = new(big.Int).Sub(new(big.Int).SetUint64(h.Time), new(big.Int).SetUint64(parent.Time))
		parentDif = parent.Difficulty
		offset    = new(big.Int).Quo(parentDif, new(big.Int).SetUint64(rules.Param(params.DifficultyBoundDivisor)))
		num       = new(big.Int).Set(h.Number)
		cutoff    = big.NewInt(-99)
		dif       = new(big.Int)
	)
	switch {
	case rules.GteHardfork(params.Byzantium):
		// max((2 if len(parent.uncles) else 1) - (timestamp - parent.timestamp) // 9, -99)
		uncleAddend := int64(2)
		if parent.UncleHash == EmptyUncleHash {
			uncleAddend = 1
		}
		a := new(big.Int).Quo(elapsed, big.NewInt(9))
		a.Sub(big.NewInt(uncleAddend), a)
		if a.Cmp(cutoff) < 0 {
			a.Set(cutoff)
		}
		dif.Add(parentDif, a.Mul(offset, a))

		num.Sub(num, new(big.Int).SetUint64(rules.Param(params.DifficultyBombDelay)))
		if num.Sign() < 0 {
			num.SetUint64(0)
		}
	case rules.GteHardfork(params.Homestead):
		// max(1 - (timestamp - parent.timestamp) // 10, -99)
		a := new(big.Int).Quo(elapsed, big.NewInt(10))
		a.Sub(big1, a)
		if a.Cmp(cutoff) < 0 {
			a.Set(cutoff)
		}
		dif.Add(parentDif, a.Mul(offset, a))
	default:
		limit := new(big.Int).SetUint64(parent.Time + rules.Param(params.DurationLimit))
		if limit.Cmp(new(big.Int).SetUint64(h.Time)) > 0 {
			dif.Add(parentDif, offset)
		} else {
			dif.Sub(parentDif, offset)
		}
	}

	exp := new(big.Int).Quo(num, big.NewInt(100000))
	exp.Sub(exp, big.NewInt(2))
	if exp.Sign() >= 0 {
		dif.Add(dif, new(big.Int).Exp(big.NewInt(2), exp, nil))
	}
	if floor := new(big.Int).SetUint64(rules.Param(params.MinimumDifficulty)); dif.Cmp(floor) < 0 {
		dif.Set(floor)
	}
	return dif, nil
}
