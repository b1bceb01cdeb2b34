package handler

import (
	"context"
	"errors"

	"github.com/meme-bots/go-v2-indexer/types"
	"github.com/meme-bots/go-v2-indexer/utils"
	"github.com/shopspring/decimal"
)

func (h *Handler) handleSwap(ctx context.Context, ev *types.SwapEvent) error {
	pair, token0, token1, err := h.entities.LoadPairTokens(ctx, ev.PairID())
	if err != nil {
		return err
	}

	amount0In := utils.ConvertTokenToDecimal(ev.Amount0In, token0.Decimals)
	amount1In := utils.ConvertTokenToDecimal(ev.Amount1In, token1.Decimals)
	amount0Out := utils.ConvertTokenToDecimal(ev.Amount0Out, token0.Decimals)
	amount1Out := utils.ConvertTokenToDecimal(ev.Amount1Out, token1.Decimals)

	amount0Total := amount0Out.Add(amount0In)
	amount1Total := amount1Out.Add(amount1In)

	amount0USD, amount1USD := decimal.Zero, decimal.Zero
	bundle, err := h.entities.LoadBundle(ctx)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return err
	}
	if bundle != nil && bundle.ETHPrice.IsPositive() {
		if token0.DerivedETH.Valid {
			amount0USD = amount0Total.Mul(token0.DerivedETH.Decimal).Mul(bundle.ETHPrice)
		}
		if token1.DerivedETH.Valid {
			amount1USD = amount1Total.Mul(token1.DerivedETH.Decimal).Mul(bundle.ETHPrice)
		}
	}
	trackedAmountUSD := TrackedAmountUSD(amount0USD, amount1USD)

	tx, err := h.loadOrCreateTransaction(ctx, &ev.EventMeta)
	if err != nil {
		return err
	}
	factory, err := h.entities.LoadFactory(ctx, h.cfg.FactoryID())
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return err
	}

	pair.VolumeToken0 = pair.VolumeToken0.Add(amount0Total)
	pair.VolumeToken1 = pair.VolumeToken1.Add(amount1Total)
	pair.VolumeUSD = pair.VolumeUSD.Add(trackedAmountUSD)
	pair.TxCount++
	if err := h.entities.SavePair(ctx, pair); err != nil {
		return err
	}

	token0.TradeVolume = token0.TradeVolume.Add(amount0Total)
	token0.TradeVolumeUSD = token0.TradeVolumeUSD.Add(amount0USD)
	token0.TxCount++
	token1.TradeVolume = token1.TradeVolume.Add(amount1Total)
	token1.TradeVolumeUSD = token1.TradeVolumeUSD.Add(amount1USD)
	token1.TxCount++
	if err := h.entities.SaveToken(ctx, token0); err != nil {
		return err
	}
	if err := h.entities.SaveToken(ctx, token1); err != nil {
		return err
	}

	swap := &types.Swap{
		ID:          recordID(tx.ID, len(tx.Swaps)),
		Transaction: tx.ID,
		Pair:        pair.ID,
		Timestamp:   tx.Timestamp,
		Sender:      types.ID(ev.Sender),
		From:        types.ID(ev.TxFrom),
		To:          types.ID(ev.To),
		Amount0In:   amount0In,
		Amount1In:   amount1In,
		Amount0Out:  amount0Out,
		Amount1Out:  amount1Out,
		AmountUSD:   trackedAmountUSD,
	}
	if err := h.entities.SaveSwap(ctx, swap); err != nil {
		return err
	}
	tx.Swaps = append(tx.Swaps, swap.ID)
	if err := h.entities.SaveTransaction(ctx, tx); err != nil {
		return err
	}

	if factory != nil {
		factory.TotalVolumeUSD = factory.TotalVolumeUSD.Add(swap.AmountUSD)
		factory.TxCount++
		if err := h.entities.SaveFactory(ctx, factory); err != nil {
			return err
		}
	}
	return nil
}

// TrackedAmountUSD counts a swap once: the mean of both legs when both are
// priced, the priced leg when only one is, zero otherwise.
func TrackedAmountUSD(amount0USD, amount1USD decimal.Decimal) decimal.Decimal {
	switch {
	case amount0USD.IsPositive() && amount1USD.IsPositive():
		return amount0USD.Add(amount1USD).Div(utils.TwoBD)
	case amount0USD.IsPositive():
		return amount0USD
	case amount1USD.IsPositive():
		return amount1USD
	}
	return decimal.Zero
}
