package params

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	gethparams "github.com/ethereum/go-ethereum/params"
)

// NetworkConfig returns the chain config of a named public network.
func NetworkConfig(name string) (*gethparams.ChainConfig, error) {
	switch strings.ToLower(name) {
	case "mainnet", "":
		return gethparams.MainnetChainConfig, nil
	case "sepolia":
		return gethparams.SepoliaChainConfig, nil
	case "holesky":
		return gethparams.HoleskyChainConfig, nil
	case "hoodi":
		return gethparams.HoodiChainConfig, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
}

// LoadChainConfig reads a chain config from path. The file may hold either
// a bare chain config or a genesis file with the config under "config".
func LoadChainConfig(path string) (*gethparams.ChainConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading chain config: %w", err)
	}
	return ParseChainConfig(data)
}

// ParseChainConfig decodes a chain config or genesis JSON document.
func ParseChainConfig(data []byte) (*gethparams.ChainConfig, error) {
	var genesis struct {
		Config *gethparams.ChainConfig `json:"config"`
	}
	if err := json.Unmarshal(data, &genesis); err != nil {
		return nil, fmt.Errorf("decoding chain config: %w", err)
	}
	if genesis.Config != nil {
		return genesis.Config, nil
	}
	cfg := new(gethparams.ChainConfig)
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decoding chain config: %w", err)
	}
	if cfg.ChainID == nil {
		return nil, fmt.Errorf("decoding chain config: %w", ErrNilChainConfig)
	}
	return cfg, nil
}
