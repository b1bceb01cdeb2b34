package evm

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// HeaderReader reads block headers.
type HeaderReader interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*ethtypes.Header, error)
}

// TransactionReader reads transactions by hash.
type TransactionReader interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *ethtypes.Transaction, isPending bool, err error)
}

func ChainID(client *ethclient.Client) (uint64, error) {
	cid, err := client.ChainID(context.Background())
	if err != nil {
		return 0, err
	}
	return cid.Uint64(), nil
}

// TxSender recovers the sender of a transaction. System transactions whose
// type the signer does not know yield an error.
func TxSender(ctx context.Context, client TransactionReader, chainID uint64, txHash common.Hash) (common.Address, error) {
	tx, _, err := client.TransactionByHash(ctx, txHash)
	if err != nil {
		return common.Address{}, err
	}
	signer := ethtypes.LatestSignerForChainID(new(big.Int).SetUint64(chainID))
	return ethtypes.Sender(signer, tx)
}

// BlockTimestamp returns the header time of block.
func BlockTimestamp(ctx context.Context, client HeaderReader, block uint64) (uint64, error) {
	header, err := client.HeaderByNumber(ctx, new(big.Int).SetUint64(block))
	if err != nil {
		return 0, err
	}
	return header.Time, nil
}
