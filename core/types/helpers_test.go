package types

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	gethparams "github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/ethblock/params"
)

var (
	testKey, _  = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	testChainID = big.NewInt(1)
	testTo      = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func mainnetAt(t *testing.T, fork params.Hardfork, eips ...int) *params.Common {
	t.Helper()
	opts := []params.Option{params.WithHardfork(fork)}
	if len(eips) > 0 {
		opts = append(opts, params.WithEIPs(eips...))
	}
	c, err := params.NewCommon(gethparams.MainnetChainConfig, opts...)
	require.NoError(t, err)
	return c
}

func hexBig(v uint64) *hexutil.Big { return (*hexutil.Big)(new(big.Int).SetUint64(v)) }
func hexU64(v uint64) *hexutil.Uint64 { q := hexutil.Uint64(v); return &q }
func hashRef(h common.Hash) *common.Hash { return &h }

func signedDynamicFeeTx(t *testing.T, nonce uint64, feeCap int64) *Transaction {
	t.Helper()
	tx, err := gethtypes.SignNewTx(testKey, gethtypes.LatestSignerForChainID(testChainID), &gethtypes.DynamicFeeTx{
		ChainID:   testChainID,
		Nonce:     nonce,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(feeCap),
		Gas:       21000,
		To:        &testTo,
		Value:     big.NewInt(1),
	})
	require.NoError(t, err)
	return NewTransaction(tx)
}

func signedLegacyTx(t *testing.T, nonce uint64, gasPrice int64) *Transaction {
	t.Helper()
	tx, err := gethtypes.SignNewTx(testKey, gethtypes.LatestSignerForChainID(testChainID), &gethtypes.LegacyTx{
		Nonce:    nonce,
		GasPrice: big.NewInt(gasPrice),
		Gas:      21000,
		To:       &testTo,
		Value:    big.NewInt(1),
	})
	require.NoError(t, err)
	return NewTransaction(tx)
}

func signedBlobTx(t *testing.T, nonce uint64, numBlobs int, blobFeeCap uint64) *Transaction {
	t.Helper()
	hashes := make([]common.Hash, numBlobs)
	for i := range hashes {
		hashes[i][0] = 0x01
		hashes[i][31] = byte(nonce<<4) | byte(i+1)
	}
	tx, err := gethtypes.SignNewTx(testKey, gethtypes.LatestSignerForChainID(testChainID), &gethtypes.BlobTx{
		ChainID:    uint256.MustFromBig(testChainID),
		Nonce:      nonce,
		GasTipCap:  uint256.NewInt(1),
		GasFeeCap:  uint256.NewInt(1_000_000_000),
		Gas:        21000,
		To:         testTo,
		Value:      uint256.NewInt(0),
		BlobFeeCap: uint256.NewInt(blobFeeCap),
		BlobHashes: hashes,
	})
	require.NoError(t, err)
	return NewTransaction(tx)
}
