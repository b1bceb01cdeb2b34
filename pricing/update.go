package pricing

import (
	"context"
	"errors"

	"github.com/meme-bots/go-v2-indexer/types"
	"github.com/meme-bots/go-v2-indexer/utils"
	"github.com/shopspring/decimal"
)

// UpdatePrices re-prices the base asset and both tokens of pair, then
// revalues the pair's reserves. Both derived values are computed from the
// state stored before this call; neither sees the other's new value.
func (o *Oracle) UpdatePrices(ctx context.Context, pair *types.Pair) error {
	bundle, err := o.entities.BundleOrDefault(ctx)
	if err != nil {
		return err
	}
	if bundle.ETHPrice, err = o.BaseAssetUSDPrice(ctx); err != nil {
		return err
	}
	if err := o.entities.SaveBundle(ctx, bundle); err != nil {
		return err
	}

	token0, err := o.entities.LoadToken(ctx, pair.Token0)
	if errors.Is(err, types.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	token1, err := o.entities.LoadToken(ctx, pair.Token1)
	if errors.Is(err, types.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	derived0, err := o.DerivedETH(ctx, token0)
	if err != nil {
		return err
	}
	derived1, err := o.DerivedETH(ctx, token1)
	if err != nil {
		return err
	}
	token0.DerivedETH = decimal.NewNullDecimal(derived0)
	token1.DerivedETH = decimal.NewNullDecimal(derived1)

	if err := o.entities.SaveToken(ctx, token0); err != nil {
		return err
	}
	if err := o.entities.SaveToken(ctx, token1); err != nil {
		return err
	}

	pair.ReserveETH = o.reserveETH(pair, token0, token1)
	pair.ReserveUSD = o.reserveUSD(pair, bundle.ETHPrice)
	pair.TrackedReserveETH = pair.ReserveETH

	return o.entities.SavePair(ctx, pair)
}

// reserveETH values the whole pool in base-asset units. A pool holding the
// base asset is valued at twice its base-asset side.
func (o *Oracle) reserveETH(pair *types.Pair, token0, token1 *types.Token) decimal.Decimal {
	switch o.baseAsset {
	case pair.Token0:
		return pair.Reserve0.Mul(utils.TwoBD)
	case pair.Token1:
		return pair.Reserve1.Mul(utils.TwoBD)
	}

	if !token0.DerivedETH.Valid || !token1.DerivedETH.Valid {
		return decimal.Zero
	}
	return pair.Reserve0.Mul(token0.DerivedETH.Decimal).
		Add(pair.Reserve1.Mul(token1.DerivedETH.Decimal))
}

func (o *Oracle) reserveUSD(pair *types.Pair, ethPrice decimal.Decimal) decimal.Decimal {
	if !ethPrice.IsPositive() {
		return decimal.Zero
	}
	if pair.ReserveETH.IsPositive() {
		return pair.ReserveETH.Mul(ethPrice)
	}

	if o.cfg.IsStablecoin(pair.Token0) {
		return pair.Reserve0.Mul(utils.TwoBD)
	}
	if o.cfg.IsStablecoin(pair.Token1) {
		return pair.Reserve1.Mul(utils.TwoBD)
	}
	return decimal.Zero
}
