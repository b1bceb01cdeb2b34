package handler

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/meme-bots/go-v2-indexer/types"
	"github.com/meme-bots/go-v2-indexer/utils"
)

func (h *Handler) handleMint(ctx context.Context, ev *types.MintEvent) error {
	pair, token0, token1, err := h.entities.LoadPairTokens(ctx, ev.PairID())
	if err != nil {
		return err
	}
	tx, err := h.loadOrCreateTransaction(ctx, &ev.EventMeta)
	if err != nil {
		return err
	}

	pair.TxCount++
	h.refreshTotalSupply(ctx, pair, ev.Address, ev.BlockNumber)

	mint := &types.Mint{
		ID:          recordID(tx.ID, len(tx.Mints)),
		Transaction: tx.ID,
		Pair:        pair.ID,
		Timestamp:   tx.Timestamp,
		To:          types.ID(ev.Sender),
		Sender:      types.ID(ev.Sender),
		// Liquidity mirrors the deployed mappings: amount0 in token0 units.
		Liquidity: utils.ConvertTokenToDecimal(ev.Amount0, token0.Decimals),
		Amount0:   utils.ConvertTokenToDecimal(ev.Amount0, token0.Decimals),
		Amount1:   utils.ConvertTokenToDecimal(ev.Amount1, token1.Decimals),
	}
	if err := h.entities.SaveMint(ctx, mint); err != nil {
		return err
	}

	tx.Mints = append(tx.Mints, mint.ID)
	if err := h.entities.SaveTransaction(ctx, tx); err != nil {
		return err
	}
	return h.entities.SavePair(ctx, pair)
}

func (h *Handler) handleBurn(ctx context.Context, ev *types.BurnEvent) error {
	pair, token0, token1, err := h.entities.LoadPairTokens(ctx, ev.PairID())
	if err != nil {
		return err
	}
	tx, err := h.loadOrCreateTransaction(ctx, &ev.EventMeta)
	if err != nil {
		return err
	}

	pair.TxCount++
	h.refreshTotalSupply(ctx, pair, ev.Address, ev.BlockNumber)

	amount0 := utils.ConvertTokenToDecimal(ev.Amount0, token0.Decimals)
	burn := &types.Burn{
		ID:            recordID(tx.ID, len(tx.Burns)),
		Transaction:   tx.ID,
		Pair:          pair.ID,
		Timestamp:     tx.Timestamp,
		Liquidity:     amount0,
		Sender:        types.ID(ev.Sender),
		To:            types.ID(ev.To),
		Amount0:       amount0,
		Amount1:       utils.ConvertTokenToDecimal(ev.Amount1, token1.Decimals),
		NeedsComplete: false,
	}
	if err := h.entities.SaveBurn(ctx, burn); err != nil {
		return err
	}

	tx.Burns = append(tx.Burns, burn.ID)
	if err := h.entities.SaveTransaction(ctx, tx); err != nil {
		return err
	}
	return h.entities.SavePair(ctx, pair)
}

// handleTransfer tracks the number of liquidity providers from LP token
// mints and burns. The minimum liquidity lock of the first mint is skipped.
func (h *Handler) handleTransfer(ctx context.Context, ev *types.TransferEvent) error {
	fromZero := ev.From == (common.Address{})
	toZero := ev.To == (common.Address{})

	if (fromZero || toZero) && ev.Value != nil && ev.Value.Cmp(types.InitialLiquidityLock) == 0 {
		return nil
	}

	pair, err := h.entities.LoadPair(ctx, ev.PairID())
	if err != nil {
		return err
	}

	if fromZero {
		pair.LiquidityProviderCount++
	}
	if toZero && pair.LiquidityProviderCount > 0 {
		pair.LiquidityProviderCount--
	}

	return h.entities.SavePair(ctx, pair)
}
