package engine

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	gethparams "github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/eth2030/ethblock/core/types"
	"github.com/eth2030/ethblock/params"
)

var (
	testKey, _  = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	testChainID = big.NewInt(1)
	testTo      = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

// testNumber is a post-Prague mainnet block height.
const testNumber = 22_500_000

func mainnetAt(t *testing.T, fork params.Hardfork) *params.Common {
	t.Helper()
	c, err := params.NewCommon(gethparams.MainnetChainConfig, params.WithHardfork(fork))
	require.NoError(t, err)
	return c
}

func signedTx(t *testing.T, nonce uint64) *types.Transaction {
	t.Helper()
	tx, err := gethtypes.SignNewTx(testKey, gethtypes.LatestSignerForChainID(testChainID), &gethtypes.DynamicFeeTx{
		ChainID:   testChainID,
		Nonce:     nonce,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(1_000_000_000),
		Gas:       21000,
		To:        &testTo,
		Value:     big.NewInt(1),
	})
	require.NoError(t, err)
	return types.NewTransaction(tx)
}

func signedBlobTx(t *testing.T, nonce uint64, hashes []common.Hash) *types.Transaction {
	t.Helper()
	tx, err := gethtypes.SignNewTx(testKey, gethtypes.LatestSignerForChainID(testChainID), &gethtypes.BlobTx{
		ChainID:    uint256.MustFromBig(testChainID),
		Nonce:      nonce,
		GasTipCap:  uint256.NewInt(1),
		GasFeeCap:  uint256.NewInt(1_000_000_000),
		Gas:        21000,
		To:         testTo,
		Value:      uint256.NewInt(0),
		BlobFeeCap: uint256.NewInt(1),
		BlobHashes: hashes,
	})
	require.NoError(t, err)
	return types.NewTransaction(tx)
}

// testBlock builds a block under c whose header roots match its body.
func testBlock(t *testing.T, c *params.Common, txs []*types.Transaction, ws []*gethtypes.Withdrawal) *types.Block {
	t.Helper()
	ctx := context.Background()
	txRoot, err := types.TransactionsRoot(ctx, txs, nil)
	require.NoError(t, err)

	number := hexutil.Big(*big.NewInt(testNumber))
	gasLimit := hexutil.Uint64(30_000_000)
	timestamp := hexutil.Uint64(1_750_000_000)
	stateRoot := common.HexToHash("0x5a")
	data := types.BlockData{
		Header: types.HeaderData{
			Number:           &number,
			GasLimit:         &gasLimit,
			Timestamp:        &timestamp,
			StateRoot:        &stateRoot,
			TransactionsTrie: &txRoot,
		},
		Transactions: txs,
	}
	if c.IsActivatedEIP(4895) {
		wRoot, err := types.WithdrawalsRoot(ctx, ws, nil)
		require.NoError(t, err)
		data.Header.WithdrawalsRoot = &wRoot
		data.Withdrawals = ws
	}
	b, err := types.NewBlockFromData(data, types.BlockOptions{Common: c})
	require.NoError(t, err)
	return b
}

func testWithdrawals() []*gethtypes.Withdrawal {
	return []*gethtypes.Withdrawal{
		types.NewWithdrawal(0, 10, common.HexToAddress("0x01"), 1_000),
		types.NewWithdrawal(1, 11, common.HexToAddress("0x02"), 2_000),
	}
}
