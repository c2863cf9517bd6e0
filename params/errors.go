package params

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownHardfork = errors.New("unknown hardfork")
	ErrUnknownNetwork  = errors.New("unknown network")
	ErrNilChainConfig  = errors.New("nil chain config")
	ErrUnknownEIP      = errors.New("unsupported EIP")
	ErrUnknownParam    = errors.New("unknown protocol parameter")
)

func errUnknownHardfork(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownHardfork, name)
}
