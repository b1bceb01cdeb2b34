package types

import (
	"math/big"

	"github.com/shopspring/decimal"
)

type (
	Token struct {
		ID             string              `json:"id"`
		Symbol         string              `json:"symbol"`
		Name           string              `json:"name"`
		Decimals       uint8               `json:"decimals"`
		TotalSupply    *big.Int            `json:"totalSupply"`
		TradeVolume    decimal.Decimal     `json:"tradeVolume"`
		TradeVolumeUSD decimal.Decimal     `json:"tradeVolumeUSD"`
		TxCount        uint64              `json:"txCount"`
		TotalLiquidity decimal.Decimal     `json:"totalLiquidity"`
		DerivedETH     decimal.NullDecimal `json:"derivedETH"`
		WhitelistPairs []string            `json:"whitelistPairs"`
	}

	Pair struct {
		ID                     string          `json:"id"`
		Token0                 string          `json:"token0"`
		Token1                 string          `json:"token1"`
		Reserve0               decimal.Decimal `json:"reserve0"`
		Reserve1               decimal.Decimal `json:"reserve1"`
		TotalSupply            decimal.Decimal `json:"totalSupply"`
		ReserveETH             decimal.Decimal `json:"reserveETH"`
		TrackedReserveETH      decimal.Decimal `json:"trackedReserveETH"`
		ReserveUSD             decimal.Decimal `json:"reserveUSD"`
		Token0Price            decimal.Decimal `json:"token0Price"`
		Token1Price            decimal.Decimal `json:"token1Price"`
		VolumeToken0           decimal.Decimal `json:"volumeToken0"`
		VolumeToken1           decimal.Decimal `json:"volumeToken1"`
		VolumeUSD              decimal.Decimal `json:"volumeUSD"`
		TxCount                uint64          `json:"txCount"`
		LiquidityProviderCount uint64          `json:"liquidityProviderCount"`
		CreatedAtTimestamp     uint64          `json:"createdAtTimestamp"`
		CreatedAtBlockNumber   uint64          `json:"createdAtBlockNumber"`
	}

	Bundle struct {
		ID       string          `json:"id"`
		ETHPrice decimal.Decimal `json:"ethPrice"`
	}

	Factory struct {
		ID                string          `json:"id"`
		PairCount         uint64          `json:"pairCount"`
		TotalVolumeUSD    decimal.Decimal `json:"totalVolumeUSD"`
		TotalLiquidityUSD decimal.Decimal `json:"totalLiquidityUSD"`
		TxCount           uint64          `json:"txCount"`
	}

	Transaction struct {
		ID          string   `json:"id"`
		BlockNumber uint64   `json:"blockNumber"`
		Timestamp   uint64   `json:"timestamp"`
		Mints       []string `json:"mints"`
		Burns       []string `json:"burns"`
		Swaps       []string `json:"swaps"`
	}

	Mint struct {
		ID          string          `json:"id"`
		Transaction string          `json:"transaction"`
		Pair        string          `json:"pair"`
		Timestamp   uint64          `json:"timestamp"`
		To          string          `json:"to"`
		Sender      string          `json:"sender"`
		Liquidity   decimal.Decimal `json:"liquidity"`
		Amount0     decimal.Decimal `json:"amount0"`
		Amount1     decimal.Decimal `json:"amount1"`
	}

	Burn struct {
		ID            string          `json:"id"`
		Transaction   string          `json:"transaction"`
		Pair          string          `json:"pair"`
		Timestamp     uint64          `json:"timestamp"`
		Liquidity     decimal.Decimal `json:"liquidity"`
		Sender        string          `json:"sender"`
		To            string          `json:"to"`
		Amount0       decimal.Decimal `json:"amount0"`
		Amount1       decimal.Decimal `json:"amount1"`
		NeedsComplete bool            `json:"needsComplete"`
	}

	Swap struct {
		ID          string          `json:"id"`
		Transaction string          `json:"transaction"`
		Pair        string          `json:"pair"`
		Timestamp   uint64          `json:"timestamp"`
		Sender      string          `json:"sender"`
		From        string          `json:"from"`
		To          string          `json:"to"`
		Amount0In   decimal.Decimal `json:"amount0In"`
		Amount1In   decimal.Decimal `json:"amount1In"`
		Amount0Out  decimal.Decimal `json:"amount0Out"`
		Amount1Out  decimal.Decimal `json:"amount1Out"`
		AmountUSD   decimal.Decimal `json:"amountUSD"`
	}
)

func NewBundle() *Bundle {
	return &Bundle{ID: BundleID, ETHPrice: decimal.Zero}
}

func NewFactory(id string) *Factory {
	return &Factory{
		ID:                id,
		TotalVolumeUSD:    decimal.Zero,
		TotalLiquidityUSD: decimal.Zero,
	}
}

func NewTransaction(id string, blockNumber, timestamp uint64) *Transaction {
	return &Transaction{
		ID:          id,
		BlockNumber: blockNumber,
		Timestamp:   timestamp,
		Mints:       []string{},
		Burns:       []string{},
		Swaps:       []string{},
	}
}
