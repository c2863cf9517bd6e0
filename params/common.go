// Package params holds the activation context shared by headers and blocks:
// which hardfork is in force, which EIPs that implies, the consensus type
// and the protocol parameters derived from them. Fork scheduling itself is
// read from a go-ethereum ChainConfig.
package params

import (
	"fmt"
	"math/big"
	"sort"

	gethparams "github.com/ethereum/go-ethereum/params"
)

// ConsensusType is the block-production regime.
type ConsensusType string

const (
	PoW ConsensusType = "pow"
	PoA ConsensusType = "poa"
	PoS ConsensusType = "pos"
)

// ConsensusAlgorithm is the sealing engine behind a ConsensusType.
type ConsensusAlgorithm string

const (
	Ethash ConsensusAlgorithm = "ethash"
	Clique ConsensusAlgorithm = "clique"
	Casper ConsensusAlgorithm = "casper"
)

// mergeBlocks records the first proof-of-stake block of networks whose
// chain config does not carry a MergeNetsplitBlock.
var mergeBlocks = map[uint64]uint64{
	1:        15_537_394,
	11155111: 1_735_371,
}

// Common is the activation context of a chain at a given hardfork. A
// Common is safe for concurrent reads; the Set* methods must only be used
// on a private copy.
type Common struct {
	config   *gethparams.ChainConfig
	hardfork Hardfork
	extra    []int
	active   map[int]struct{}
}

// Option configures a Common at construction.
type Option func(*Common) error

// WithHardfork pins the current hardfork.
func WithHardfork(h Hardfork) Option {
	return func(c *Common) error {
		if h.Index() < 0 {
			return errUnknownHardfork(string(h))
		}
		c.hardfork = h
		return nil
	}
}

// WithEIPs activates additional EIPs on top of those implied by the
// hardfork.
func WithEIPs(eips ...int) Option {
	return func(c *Common) error {
		for _, eip := range eips {
			if _, ok := eipFork(eip); !ok {
				return fmt.Errorf("%w: %d", ErrUnknownEIP, eip)
			}
		}
		c.extra = append(c.extra, eips...)
		return nil
	}
}

// NewCommon creates an activation context for config. Without
// WithHardfork, the latest fork the config schedules is used.
func NewCommon(config *gethparams.ChainConfig, opts ...Option) (*Common, error) {
	if config == nil {
		return nil, ErrNilChainConfig
	}
	c := &Common{config: config}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.hardfork == "" {
		c.hardfork = latestScheduled(config)
	}
	c.recompute()
	return c, nil
}

// DefaultCommon returns mainnet at Prague.
func DefaultCommon() *Common {
	c, _ := NewCommon(gethparams.MainnetChainConfig, WithHardfork(Prague))
	return c
}

func (c *Common) recompute() {
	c.active = eipsUpTo(c.hardfork)
	for _, eip := range c.extra {
		c.active[eip] = struct{}{}
	}
}

// Copy returns an independent copy sharing the (read-only) chain config.
func (c *Common) Copy() *Common {
	cpy := &Common{
		config:   c.config,
		hardfork: c.hardfork,
		extra:    append([]int(nil), c.extra...),
	}
	cpy.recompute()
	return cpy
}

// Config returns the underlying chain config.
func (c *Common) Config() *gethparams.ChainConfig { return c.config }

// ChainID returns the chain id, or zero if unset.
func (c *Common) ChainID() *big.Int {
	if c.config.ChainID == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(c.config.ChainID)
}

// Hardfork returns the current hardfork.
func (c *Common) Hardfork() Hardfork { return c.hardfork }

// SetHardfork switches the current hardfork.
func (c *Common) SetHardfork(h Hardfork) error {
	if h.Index() < 0 {
		return errUnknownHardfork(string(h))
	}
	c.hardfork = h
	c.recompute()
	return nil
}

// SetHardforkBy switches to the fork active at the given block number and
// timestamp and returns it.
func (c *Common) SetHardforkBy(number *big.Int, time uint64) Hardfork {
	h := c.HardforkFor(number, time)
	c.hardfork = h
	c.recompute()
	return h
}

// HardforkFor returns the latest fork active at number and time.
func (c *Common) HardforkFor(number *big.Int, time uint64) Hardfork {
	if number == nil {
		number = new(big.Int)
	}
	for i := len(hardforkOrder) - 1; i > 0; i-- {
		if c.forkActive(hardforkOrder[i], number, time) {
			return hardforkOrder[i]
		}
	}
	return Chainstart
}

func (c *Common) forkActive(h Hardfork, num *big.Int, time uint64) bool {
	cfg := c.config
	switch h {
	case Chainstart:
		return true
	case Homestead:
		return cfg.IsHomestead(num)
	case Dao:
		return cfg.DAOForkSupport && cfg.IsDAOFork(num)
	case TangerineWhistle:
		return cfg.IsEIP150(num)
	case SpuriousDragon:
		return cfg.IsEIP158(num)
	case Byzantium:
		return cfg.IsByzantium(num)
	case Constantinople:
		return cfg.IsConstantinople(num)
	case Petersburg:
		return cfg.IsPetersburg(num)
	case Istanbul:
		return cfg.IsIstanbul(num)
	case MuirGlacier:
		return cfg.IsMuirGlacier(num)
	case Berlin:
		return cfg.IsBerlin(num)
	case London:
		return cfg.IsLondon(num)
	case ArrowGlacier:
		return cfg.IsArrowGlacier(num)
	case GrayGlacier:
		return cfg.IsGrayGlacier(num)
	case Paris:
		return c.isMerged(num, time)
	case Shanghai:
		return cfg.IsShanghai(num, time)
	case Cancun:
		return cfg.IsCancun(num, time)
	case Prague:
		return cfg.IsPrague(num, time)
	case Osaka:
		return cfg.IsOsaka(num, time)
	case Verkle:
		return cfg.IsVerkle(num, time)
	}
	return false
}

func (c *Common) isMerged(num *big.Int, time uint64) bool {
	if !num.IsUint64() {
		return num.Sign() > 0
	}
	if c.config.IsPostMerge(num.Uint64(), time) {
		return true
	}
	if c.config.ChainID != nil && c.config.ChainID.IsUint64() {
		if block, ok := mergeBlocks[c.config.ChainID.Uint64()]; ok {
			return num.Uint64() >= block
		}
	}
	return false
}

// HardforkBlock returns the activation block of a block-scheduled fork, or
// nil for forks scheduled by timestamp or not scheduled at all.
func (c *Common) HardforkBlock(h Hardfork) *big.Int {
	cfg := c.config
	var b *big.Int
	switch h {
	case Chainstart:
		b = new(big.Int)
	case Homestead:
		b = cfg.HomesteadBlock
	case Dao:
		b = cfg.DAOForkBlock
	case TangerineWhistle:
		b = cfg.EIP150Block
	case SpuriousDragon:
		b = cfg.EIP158Block
	case Byzantium:
		b = cfg.ByzantiumBlock
	case Constantinople:
		b = cfg.ConstantinopleBlock
	case Petersburg:
		b = cfg.PetersburgBlock
	case Istanbul:
		b = cfg.IstanbulBlock
	case MuirGlacier:
		b = cfg.MuirGlacierBlock
	case Berlin:
		b = cfg.BerlinBlock
	case London:
		b = cfg.LondonBlock
	case ArrowGlacier:
		b = cfg.ArrowGlacierBlock
	case GrayGlacier:
		b = cfg.GrayGlacierBlock
	case Paris:
		if cfg.MergeNetsplitBlock != nil {
			b = cfg.MergeNetsplitBlock
		} else if cfg.ChainID != nil && cfg.ChainID.IsUint64() {
			if block, ok := mergeBlocks[cfg.ChainID.Uint64()]; ok {
				b = new(big.Int).SetUint64(block)
			}
		}
	}
	if b == nil {
		return nil
	}
	return new(big.Int).Set(b)
}

// IsActivatedEIP reports whether eip is in force.
func (c *Common) IsActivatedEIP(eip int) bool {
	_, ok := c.active[eip]
	return ok
}

// EIPs returns the active EIPs in ascending order.
func (c *Common) EIPs() []int {
	out := make([]int, 0, len(c.active))
	for eip := range c.active {
		out = append(out, eip)
	}
	sort.Ints(out)
	return out
}

// GteHardfork reports whether the current fork is at or after h.
func (c *Common) GteHardfork(h Hardfork) bool { return c.hardfork.Gte(h) }

// ConsensusType returns the block-production regime at the current fork.
func (c *Common) ConsensusType() ConsensusType {
	switch {
	case c.hardfork.Gte(Paris):
		return PoS
	case c.config.Clique != nil:
		return PoA
	default:
		return PoW
	}
}

// ConsensusAlgorithm returns the sealing engine at the current fork.
func (c *Common) ConsensusAlgorithm() ConsensusAlgorithm {
	switch c.ConsensusType() {
	case PoS:
		return Casper
	case PoA:
		return Clique
	default:
		return Ethash
	}
}

// latestScheduled returns the last fork config schedules at any height.
func latestScheduled(cfg *gethparams.ChainConfig) Hardfork {
	switch {
	case cfg.VerkleTime != nil:
		return Verkle
	case cfg.OsakaTime != nil:
		return Osaka
	case cfg.PragueTime != nil:
		return Prague
	case cfg.CancunTime != nil:
		return Cancun
	case cfg.ShanghaiTime != nil:
		return Shanghai
	case cfg.TerminalTotalDifficulty != nil && cfg.TerminalTotalDifficulty.Sign() == 0,
		cfg.MergeNetsplitBlock != nil:
		return Paris
	case cfg.GrayGlacierBlock != nil:
		return GrayGlacier
	case cfg.ArrowGlacierBlock != nil:
		return ArrowGlacier
	case cfg.LondonBlock != nil:
		return London
	case cfg.BerlinBlock != nil:
		return Berlin
	case cfg.IstanbulBlock != nil:
		return Istanbul
	case cfg.PetersburgBlock != nil:
		return Petersburg
	case cfg.ConstantinopleBlock != nil:
		return Constantinople
	case cfg.ByzantiumBlock != nil:
		return Byzantium
	case cfg.EIP158Block != nil:
		return SpuriousDragon
	case cfg.EIP150Block != nil:
		return TangerineWhistle
	case cfg.HomesteadBlock != nil:
		return Homestead
	}
	return Chainstart
}
