package handler

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/meme-bots/go-v2-indexer/types"
	"github.com/meme-bots/go-v2-indexer/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (h *Handler) handlePairCreated(ctx context.Context, ev *types.PairCreatedEvent) error {
	factory, err := h.entities.FactoryOrDefault(ctx, h.cfg.FactoryID())
	if err != nil {
		return err
	}
	factory.PairCount++
	if err := h.entities.SaveFactory(ctx, factory); err != nil {
		return err
	}

	token0, err := h.loadOrCreateToken(ctx, ev.Token0, ev.BlockNumber)
	if err != nil {
		return err
	}
	token1, err := h.loadOrCreateToken(ctx, ev.Token1, ev.BlockNumber)
	if err != nil {
		return err
	}

	pair := &types.Pair{
		ID:                   types.ID(ev.Pair),
		Token0:               token0.ID,
		Token1:               token1.ID,
		Reserve0:             decimal.Zero,
		Reserve1:             decimal.Zero,
		TotalSupply:          decimal.Zero,
		ReserveETH:           decimal.Zero,
		TrackedReserveETH:    decimal.Zero,
		ReserveUSD:           decimal.Zero,
		Token0Price:          decimal.Zero,
		Token1Price:          decimal.Zero,
		VolumeToken0:         decimal.Zero,
		VolumeToken1:         decimal.Zero,
		VolumeUSD:            decimal.Zero,
		CreatedAtTimestamp:   ev.Timestamp,
		CreatedAtBlockNumber: ev.BlockNumber,
	}
	h.refreshTotalSupply(ctx, pair, ev.Pair, ev.BlockNumber)

	// A pair is a price source for a token when the other side is trusted.
	if h.cfg.IsWhitelisted(token1.ID) {
		token0.WhitelistPairs = append(token0.WhitelistPairs, pair.ID)
	}
	if h.cfg.IsWhitelisted(token0.ID) {
		token1.WhitelistPairs = append(token1.WhitelistPairs, pair.ID)
	}

	if _, err := h.entities.LoadBundle(ctx); errors.Is(err, types.ErrNotFound) {
		if err := h.entities.SaveBundle(ctx, types.NewBundle()); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if err := h.entities.SaveToken(ctx, token0); err != nil {
		return err
	}
	if err := h.entities.SaveToken(ctx, token1); err != nil {
		return err
	}
	if err := h.entities.SavePair(ctx, pair); err != nil {
		return err
	}

	if err := h.entities.AppendPairIndex(ctx, pair.ID); err != nil {
		return err
	}

	h.logger.Info("pair created",
		zap.String("pair", pair.ID),
		zap.String("token0", token0.Symbol),
		zap.String("token1", token1.Symbol),
		zap.Uint64("block", ev.BlockNumber),
	)
	return nil
}

func (h *Handler) loadOrCreateToken(ctx context.Context, address common.Address, block uint64) (*types.Token, error) {
	token, err := h.entities.LoadToken(ctx, types.ID(address))
	if err == nil || !errors.Is(err, types.ErrNotFound) {
		return token, err
	}

	info := h.chain.FetchToken(ctx, address, block)
	totalSupply := info.TotalSupply
	if totalSupply == nil {
		totalSupply = big.NewInt(0)
	}
	return &types.Token{
		ID:             types.ID(address),
		Symbol:         info.Symbol,
		Name:           info.Name,
		Decimals:       info.Decimals,
		TotalSupply:    totalSupply,
		TradeVolume:    decimal.Zero,
		TradeVolumeUSD: decimal.Zero,
		TotalLiquidity: decimal.Zero,
		DerivedETH:     decimal.NewNullDecimal(decimal.Zero),
		WhitelistPairs: []string{},
	}, nil
}

// refreshTotalSupply reads the pair's LP supply at block. A failed read keeps
// the stored value.
func (h *Handler) refreshTotalSupply(ctx context.Context, pair *types.Pair, address common.Address, block uint64) {
	supply, err := h.chain.PairTotalSupply(ctx, address, block)
	if err != nil {
		h.logger.Warn("pair totalSupply reverted, keeping stored value",
			zap.String("pair", pair.ID),
			zap.Uint64("block", block),
			zap.Error(err),
		)
		return
	}
	pair.TotalSupply = utils.ConvertTokenToDecimal(supply, types.PairDecimals)
}
