package params

import gethparams "github.com/ethereum/go-ethereum/params"

// Param names a protocol parameter whose value may depend on the active
// hardfork.
type Param string

const (
	// Gas limit and difficulty.
	GasLimitBoundDivisor   Param = "gasLimitBoundDivisor"
	MinGasLimit            Param = "minGasLimit"
	MaxExtraDataSize       Param = "maxExtraDataSize"
	MinimumDifficulty      Param = "minimumDifficulty"
	DifficultyBoundDivisor Param = "difficultyBoundDivisor"
	DurationLimit          Param = "durationLimit"
	DifficultyBombDelay    Param = "difficultyBombDelay"

	// EIP-1559
	InitialBaseFee              Param = "initialBaseFee"
	BaseFeeMaxChangeDenominator Param = "baseFeeMaxChangeDenominator"
	ElasticityMultiplier        Param = "elasticityMultiplier"

	// EIP-4844 / EIP-7691
	BlobGasPerBlob             Param = "blobGasPerBlob"
	MaxBlobGasPerBlock         Param = "maxBlobGasPerBlock"
	TargetBlobGasPerBlock      Param = "targetBlobGasPerBlock"
	BlobGasPriceUpdateFraction Param = "blobGasPriceUpdateFraction"
	MinBlobGasPrice            Param = "minBlobGasPrice"

	// EIP-3860
	MaxInitCodeSize Param = "maxInitCodeSize"
)

const blobGasPerBlob = 1 << 17

// bombDelays are the ethash difficulty bomb offsets per fork.
var bombDelays = []struct {
	fork  Hardfork
	delay uint64
}{
	{GrayGlacier, 11_400_000},
	{ArrowGlacier, 10_700_000},
	{London, 9_700_000},
	{MuirGlacier, 9_000_000},
	{Constantinople, 5_000_000},
	{Byzantium, 3_000_000},
}

// Param returns the value of p at the current hardfork. Unknown names
// return zero.
func (c *Common) Param(p Param) uint64 {
	switch p {
	case GasLimitBoundDivisor:
		return gethparams.GasLimitBoundDivisor
	case MinGasLimit:
		return gethparams.MinGasLimit
	case MaxExtraDataSize:
		return gethparams.MaximumExtraDataSize
	case MinimumDifficulty:
		return 131072
	case DifficultyBoundDivisor:
		return 2048
	case DurationLimit:
		return 13
	case DifficultyBombDelay:
		for _, d := range bombDelays {
			if c.hardfork.Gte(d.fork) {
				return d.delay
			}
		}
		return 0
	case InitialBaseFee:
		return gethparams.InitialBaseFee
	case BaseFeeMaxChangeDenominator:
		return gethparams.DefaultBaseFeeChangeDenominator
	case ElasticityMultiplier:
		return gethparams.DefaultElasticityMultiplier
	case BlobGasPerBlob:
		return blobGasPerBlob
	case MaxBlobGasPerBlock:
		return uint64(c.blobConfig().Max) * blobGasPerBlob
	case TargetBlobGasPerBlock:
		return uint64(c.blobConfig().Target) * blobGasPerBlob
	case BlobGasPriceUpdateFraction:
		return c.blobConfig().UpdateFraction
	case MinBlobGasPrice:
		return 1
	case MaxInitCodeSize:
		return gethparams.MaxInitCodeSize
	}
	return 0
}

// blobConfig returns the blob schedule entry for the current fork, falling
// back to the protocol defaults when the chain config has none.
func (c *Common) blobConfig() *gethparams.BlobConfig {
	sched := c.config.BlobScheduleConfig
	if sched == nil {
		sched = &gethparams.BlobScheduleConfig{}
	}
	candidates := []struct {
		fork Hardfork
		cfg  *gethparams.BlobConfig
		def  *gethparams.BlobConfig
	}{
		{Verkle, sched.Verkle, nil},
		{Osaka, sched.Osaka, gethparams.DefaultOsakaBlobConfig},
		{Prague, sched.Prague, gethparams.DefaultPragueBlobConfig},
		{Cancun, sched.Cancun, gethparams.DefaultCancunBlobConfig},
	}
	for _, cand := range candidates {
		if !c.hardfork.Gte(cand.fork) {
			continue
		}
		if cand.cfg != nil {
			return cand.cfg
		}
		if cand.def != nil {
			return cand.def
		}
	}
	return gethparams.DefaultCancunBlobConfig
}
