package handler

import (
	"context"

	"github.com/meme-bots/go-v2-indexer/types"
	"github.com/meme-bots/go-v2-indexer/utils"
	"go.uber.org/zap"
)

// handleSync overwrites the pair reserves with the authoritative values from
// the event and re-prices everything that depends on them.
func (h *Handler) handleSync(ctx context.Context, ev *types.SyncEvent) error {
	pair, token0, token1, err := h.entities.LoadPairTokens(ctx, ev.PairID())
	if err != nil {
		return err
	}

	h.refreshTotalSupply(ctx, pair, ev.Address, ev.BlockNumber)

	pair.Reserve0 = utils.ConvertTokenToDecimal(ev.Reserve0, token0.Decimals)
	pair.Reserve1 = utils.ConvertTokenToDecimal(ev.Reserve1, token1.Decimals)
	pair.Token0Price = utils.SafeDiv(pair.Reserve1, pair.Reserve0)
	pair.Token1Price = utils.SafeDiv(pair.Reserve0, pair.Reserve1)

	if err := h.entities.SavePair(ctx, pair); err != nil {
		return err
	}

	if err := h.oracle.UpdatePrices(ctx, pair); err != nil {
		return err
	}

	if ce := h.logger.Check(zap.DebugLevel, "sync"); ce != nil {
		ce.Write(
			zap.String("pair", pair.ID),
			zap.String("token0Price", utils.AbbreviateDecimal(pair.Token0Price)),
			zap.String("token1Price", utils.AbbreviateDecimal(pair.Token1Price)),
			zap.String("reserveUSD", pair.ReserveUSD.StringFixed(2)),
		)
	}
	return nil
}
