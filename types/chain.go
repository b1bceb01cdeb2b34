package types

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type (
	TokenInfo struct {
		Symbol      string
		Name        string
		Decimals    uint8
		TotalSupply *big.Int
	}

	// ChainReader answers contract reads at a historical block. FetchToken
	// never fails: reverted reads come back as their defaults.
	ChainReader interface {
		FetchToken(ctx context.Context, token common.Address, block uint64) TokenInfo
		PairTotalSupply(ctx context.Context, pair common.Address, block uint64) (*big.Int, error)
	}

	// EventSink consumes decoded events strictly one at a time.
	EventSink interface {
		Handle(ctx context.Context, ev Event) error
	}
)

func DefaultTokenInfo() TokenInfo {
	return TokenInfo{
		Symbol:      UnknownTokenString,
		Name:        UnknownTokenString,
		Decimals:    DefaultTokenDecimals,
		TotalSupply: big.NewInt(0),
	}
}
