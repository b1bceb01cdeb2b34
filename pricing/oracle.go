// Package pricing derives USD and base-asset valuations from stored pair
// reserves.
//
// The oracle is a greedy, single pass, liquidity weighted heuristic: for every
// token it picks the whitelist pair with the most base-asset liquidity and
// prices through it. Prices that go through a non base-asset counterpart use
// the counterpart's stored derived value, which is only as fresh as the last
// sync on one of the counterpart's pairs.
package pricing

import (
	"context"
	"errors"

	"github.com/meme-bots/go-v2-indexer/store"
	"github.com/meme-bots/go-v2-indexer/types"
	"github.com/meme-bots/go-v2-indexer/utils"
	"github.com/shopspring/decimal"
)

type Oracle struct {
	entities *store.Entities
	cfg      *types.Config

	baseAsset     string
	canonicalPair string
}

func NewOracle(entities *store.Entities, cfg *types.Config) *Oracle {
	return &Oracle{
		entities:      entities,
		cfg:           cfg,
		baseAsset:     cfg.BaseAsset(),
		canonicalPair: types.NormalizeID(cfg.CanonicalPair),
	}
}

// BaseAssetUSDPrice returns the USD price of the base asset. The canonical
// pair is trusted regardless of its depth; otherwise the deepest stablecoin
// pair above the liquidity floor wins.
func (o *Oracle) BaseAssetUSDPrice(ctx context.Context) (decimal.Decimal, error) {
	if o.canonicalPair != "" {
		pair, err := o.entities.LoadPair(ctx, o.canonicalPair)
		switch {
		case err == nil:
			if pair.Token0 == o.baseAsset {
				return pair.Token0Price, nil
			}
			if pair.Token1 == o.baseAsset {
				return pair.Token1Price, nil
			}
		case !errors.Is(err, types.ErrNotFound):
			return decimal.Zero, err
		}
	}

	base, err := o.entities.LoadToken(ctx, o.baseAsset)
	if errors.Is(err, types.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	largestLiquidityETH := decimal.Zero
	priceSoFar := decimal.Zero
	for _, id := range base.WhitelistPairs {
		pair, err := o.entities.LoadPair(ctx, id)
		if errors.Is(err, types.ErrNotFound) {
			continue
		}
		if err != nil {
			return decimal.Zero, err
		}

		stable0 := o.cfg.IsStablecoin(pair.Token0)
		stable1 := o.cfg.IsStablecoin(pair.Token1)
		if !stable0 && !stable1 {
			continue
		}

		reserveETH := decimal.Zero
		if pair.Token0 == o.baseAsset {
			reserveETH = pair.Reserve0
		} else if pair.Token1 == o.baseAsset {
			reserveETH = pair.Reserve1
		}

		if reserveETH.GreaterThan(largestLiquidityETH) && reserveETH.GreaterThan(o.cfg.MinimumLiquidityThresholdETH) {
			largestLiquidityETH = reserveETH
			if pair.Token0 == o.baseAsset && stable1 {
				priceSoFar = pair.Token0Price
			} else if pair.Token1 == o.baseAsset && stable0 {
				priceSoFar = pair.Token1Price
			}
		}
	}

	return priceSoFar, nil
}

// DerivedETH returns the value of token in base-asset units, or zero when no
// whitelist pair can price it. The liquidity floor of BaseAssetUSDPrice does
// not apply here.
func (o *Oracle) DerivedETH(ctx context.Context, token *types.Token) (decimal.Decimal, error) {
	if token.ID == o.baseAsset {
		return utils.OneBD, nil
	}

	if o.cfg.IsStablecoin(token.ID) {
		ethPrice, err := o.BaseAssetUSDPrice(ctx)
		if err != nil {
			return decimal.Zero, err
		}
		return utils.SafeDiv(utils.OneBD, ethPrice), nil
	}

	largestLiquidityETH := decimal.Zero
	priceSoFar := decimal.Zero
	for _, id := range token.WhitelistPairs {
		pair, err := o.entities.LoadPair(ctx, id)
		if errors.Is(err, types.ErrNotFound) {
			continue
		}
		if err != nil {
			return decimal.Zero, err
		}

		var (
			counterpart      string
			counterReserve   decimal.Decimal
			counterSpotPrice decimal.Decimal
		)
		switch token.ID {
		case pair.Token0:
			counterpart, counterReserve, counterSpotPrice = pair.Token1, pair.Reserve1, pair.Token1Price
		case pair.Token1:
			counterpart, counterReserve, counterSpotPrice = pair.Token0, pair.Reserve0, pair.Token0Price
		default:
			continue
		}

		if counterpart == o.baseAsset {
			if counterReserve.GreaterThan(largestLiquidityETH) {
				largestLiquidityETH = counterReserve
				priceSoFar = counterSpotPrice
			}
			continue
		}

		derived, err := o.storedDerivedETH(ctx, counterpart)
		if err != nil {
			return decimal.Zero, err
		}
		if !derived.GreaterThan(decimal.Zero) {
			continue
		}
		reserveETH := counterReserve.Mul(derived)
		if reserveETH.GreaterThan(largestLiquidityETH) {
			largestLiquidityETH = reserveETH
			priceSoFar = counterSpotPrice.Mul(derived)
		}
	}

	return priceSoFar, nil
}

// storedDerivedETH reads the last persisted derived value of a token, zero
// when the token is missing or unpriced.
func (o *Oracle) storedDerivedETH(ctx context.Context, id string) (decimal.Decimal, error) {
	token, err := o.entities.LoadToken(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	if !token.DerivedETH.Valid {
		return decimal.Zero, nil
	}
	return token.DerivedETH.Decimal, nil
}
