package handler

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/meme-bots/go-v2-indexer/pricing"
	"github.com/meme-bots/go-v2-indexer/store"
	"github.com/meme-bots/go-v2-indexer/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	factoryAddr = common.HexToAddress("0x8909Dc15e40173Ff4699343b6eB8132c65e18eC6")
	weth        = common.HexToAddress("0x4200000000000000000000000000000000000006")
	usdc        = common.HexToAddress("0x833589fcd6edb6e08f4c7c32d4f71b54bda02913")
	tokenA      = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenC      = common.HexToAddress("0x1000000000000000000000000000000000000003")

	pairAWETH = common.HexToAddress("0x2000000000000000000000000000000000000001")
	pairUSDC  = common.HexToAddress("0x2000000000000000000000000000000000000002")
	pairCUSDC = common.HexToAddress("0x2000000000000000000000000000000000000003")

	txHash1 = common.HexToHash("0xaa01")
	txHash2 = common.HexToHash("0xaa02")
)

type fakeChain struct {
	tokens    map[common.Address]types.TokenInfo
	supply    map[common.Address]*big.Int
	supplyErr error
	calls     int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		tokens: make(map[common.Address]types.TokenInfo),
		supply: make(map[common.Address]*big.Int),
	}
}

func (f *fakeChain) FetchToken(_ context.Context, token common.Address, _ uint64) types.TokenInfo {
	f.calls++
	if info, ok := f.tokens[token]; ok {
		return info
	}
	return types.DefaultTokenInfo()
}

func (f *fakeChain) PairTotalSupply(_ context.Context, pair common.Address, _ uint64) (*big.Int, error) {
	if f.supplyErr != nil {
		return nil, f.supplyErr
	}
	if s, ok := f.supply[pair]; ok {
		return s, nil
	}
	return big.NewInt(0), nil
}

type fixture struct {
	ctx      context.Context
	cfg      *types.Config
	kv       *store.Memory
	entities *store.Entities
	oracle   *pricing.Oracle
	chain    *fakeChain
	handler  *Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := types.DefaultConfig()
	cfg.CanonicalPair = ""
	kv := store.NewMemory()
	entities := store.NewEntities(kv)
	oracle := pricing.NewOracle(entities, &cfg)
	chain := newFakeChain()
	chain.tokens[usdc] = types.TokenInfo{Symbol: "USDC", Name: "USD Coin", Decimals: 18, TotalSupply: big.NewInt(1)}
	chain.tokens[weth] = types.TokenInfo{Symbol: "WETH", Name: "Wrapped Ether", Decimals: 18, TotalSupply: big.NewInt(1)}

	return &fixture{
		ctx:      context.Background(),
		cfg:      &cfg,
		kv:       kv,
		entities: entities,
		oracle:   oracle,
		chain:    chain,
		handler:  NewHandler(entities, oracle, chain, &cfg, zap.NewNop()),
	}
}

func (f *fixture) handle(t *testing.T, ev types.Event) {
	t.Helper()
	require.NoError(t, f.handler.Handle(f.ctx, ev))
}

func (f *fixture) createPair(t *testing.T, token0, token1, pair common.Address) {
	t.Helper()
	f.handle(t, &types.PairCreatedEvent{
		EventMeta: types.EventMeta{Address: factoryAddr, BlockNumber: 1, Timestamp: 100},
		Token0:    token0,
		Token1:    token1,
		Pair:      pair,
	})
}

func (f *fixture) sync(t *testing.T, pair common.Address, reserve0, reserve1 *big.Int) {
	t.Helper()
	f.handle(t, &types.SyncEvent{
		EventMeta: types.EventMeta{Address: pair, BlockNumber: 2, Timestamp: 200},
		Reserve0:  reserve0,
		Reserve1:  reserve1,
	})
}

func (f *fixture) pair(t *testing.T, pair common.Address) *types.Pair {
	t.Helper()
	p, err := f.entities.LoadPair(f.ctx, types.ID(pair))
	require.NoError(t, err)
	return p
}

func (f *fixture) token(t *testing.T, token common.Address) *types.Token {
	t.Helper()
	tk, err := f.entities.LoadToken(f.ctx, types.ID(token))
	require.NoError(t, err)
	return tk
}

// units returns n * 10^exp as a raw on-chain amount.
func units(n int64, exp int) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
}

func requireDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	want := decimal.RequireFromString(expected)
	require.True(t, want.Equal(actual), "expected %s, got %s", want, actual)
}

func TestPairCreated(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.chain.tokens[tokenA] = types.TokenInfo{Symbol: "AAA", Name: "Token A", Decimals: 18, TotalSupply: big.NewInt(42)}
	f.chain.supply[pairAWETH] = units(3, 18)

	f.createPair(t, tokenA, weth, pairAWETH)

	a := f.token(t, tokenA)
	require.Equal("AAA", a.Symbol)
	require.Equal(uint8(18), a.Decimals)
	require.Equal(int64(42), a.TotalSupply.Int64())
	require.True(a.DerivedETH.Valid)
	require.True(a.DerivedETH.Decimal.IsZero())
	require.Equal([]string{types.ID(pairAWETH)}, a.WhitelistPairs)

	w := f.token(t, weth)
	require.Empty(w.WhitelistPairs)

	p := f.pair(t, pairAWETH)
	require.Equal(types.ID(tokenA), p.Token0)
	require.Equal(types.ID(weth), p.Token1)
	require.Equal(uint64(1), p.CreatedAtBlockNumber)
	require.Equal(uint64(100), p.CreatedAtTimestamp)
	requireDecimal(t, "3", p.TotalSupply)

	factory, err := f.entities.LoadFactory(f.ctx, f.cfg.FactoryID())
	require.NoError(err)
	require.Equal(uint64(1), factory.PairCount)
	require.True(factory.TotalLiquidityUSD.IsZero())

	bundle, err := f.entities.LoadBundle(f.ctx)
	require.NoError(err)
	require.True(bundle.ETHPrice.IsZero())

	index, err := f.entities.PairIndex(f.ctx)
	require.NoError(err)
	require.Equal([]string{types.ID(pairAWETH)}, index)
}

func TestPairCreatedReusesExistingTokens(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	f.createPair(t, usdc, weth, pairUSDC)
	f.createPair(t, tokenA, weth, pairAWETH)

	// weth, usdc, tokenA: one metadata read each
	require.Equal(3, f.chain.calls)

	// both sides are trusted, so each lists the pair
	require.Equal([]string{types.ID(pairUSDC)}, f.token(t, usdc).WhitelistPairs)
	require.Equal([]string{types.ID(pairUSDC)}, f.token(t, weth).WhitelistPairs)

	factory, err := f.entities.LoadFactory(f.ctx, f.cfg.FactoryID())
	require.NoError(err)
	require.Equal(uint64(2), factory.PairCount)
}

func TestSyncScenarioWithoutStablecoin(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	f.createPair(t, tokenA, weth, pairAWETH)
	f.sync(t, pairAWETH, units(10, 18), units(2, 18))

	p := f.pair(t, pairAWETH)
	requireDecimal(t, "10", p.Reserve0)
	requireDecimal(t, "2", p.Reserve1)
	requireDecimal(t, "0.2", p.Token0Price)
	requireDecimal(t, "5", p.Token1Price)
	requireDecimal(t, "4", p.ReserveETH)
	requireDecimal(t, "4", p.TrackedReserveETH)
	requireDecimal(t, "0", p.ReserveUSD)

	bundle, err := f.entities.LoadBundle(f.ctx)
	require.NoError(err)
	require.True(bundle.ETHPrice.IsZero())

	// the direct branch takes the counterpart's spot price
	requireDecimal(t, "5", f.token(t, tokenA).DerivedETH.Decimal)
	requireDecimal(t, "1", f.token(t, weth).DerivedETH.Decimal)
}

func TestSyncZeroReserveGuardsDivision(t *testing.T) {
	f := newFixture(t)
	f.createPair(t, tokenA, weth, pairAWETH)

	f.sync(t, pairAWETH, big.NewInt(0), units(2, 18))
	p := f.pair(t, pairAWETH)
	requireDecimal(t, "0", p.Token0Price)
	requireDecimal(t, "0", p.Token1Price)

	f.sync(t, pairAWETH, units(2, 18), big.NewInt(0))
	p = f.pair(t, pairAWETH)
	requireDecimal(t, "0", p.Token0Price)
	requireDecimal(t, "0", p.Token1Price)
}

func TestSyncSpotPricesAreExactQuotients(t *testing.T) {
	tests := []struct {
		name               string
		reserve0, reserve1 *big.Int
		price0, price1     string
	}{
		{"even", units(4, 18), units(8, 18), "2", "0.5"},
		{"equal", units(7, 18), units(7, 18), "1", "1"},
		{"small", big.NewInt(1), big.NewInt(4), "4", "0.25"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.createPair(t, tokenA, weth, pairAWETH)
			f.sync(t, pairAWETH, tt.reserve0, tt.reserve1)

			p := f.pair(t, pairAWETH)
			requireDecimal(t, tt.price0, p.Token0Price)
			requireDecimal(t, tt.price1, p.Token1Price)
			require.True(t, p.Reserve1.Div(p.Reserve0).Equal(p.Token0Price))
		})
	}
}

func TestSyncKeepsTotalSupplyOnRevert(t *testing.T) {
	f := newFixture(t)
	f.chain.supply[pairAWETH] = units(5, 18)
	f.createPair(t, tokenA, weth, pairAWETH)

	f.chain.supplyErr = errors.New("execution reverted")
	f.sync(t, pairAWETH, units(1, 18), units(1, 18))

	requireDecimal(t, "5", f.pair(t, pairAWETH).TotalSupply)
}

func TestSyncPricesBaseAssetFromStablecoinPair(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	f.createPair(t, usdc, weth, pairUSDC)
	f.sync(t, pairUSDC, units(2000, 18), units(1, 18))

	bundle, err := f.entities.LoadBundle(f.ctx)
	require.NoError(err)
	requireDecimal(t, "2000", bundle.ETHPrice)

	requireDecimal(t, "0.0005", f.token(t, usdc).DerivedETH.Decimal)
	requireDecimal(t, "1", f.token(t, weth).DerivedETH.Decimal)

	p := f.pair(t, pairUSDC)
	requireDecimal(t, "2", p.ReserveETH)
	requireDecimal(t, "4000", p.ReserveUSD)
}

func TestSyncPricesThroughStablecoinCounterpart(t *testing.T) {
	f := newFixture(t)

	f.createPair(t, usdc, weth, pairUSDC)
	f.sync(t, pairUSDC, units(2000, 18), units(1, 18))

	f.createPair(t, tokenC, usdc, pairCUSDC)
	f.sync(t, pairCUSDC, units(100, 18), units(50, 18))

	// counterpart spot price (token1Price = 2) times stored derived usdc
	requireDecimal(t, "0.001", f.token(t, tokenC).DerivedETH.Decimal)

	p := f.pair(t, pairCUSDC)
	// 100 * 0.001 + 50 * 0.0005
	requireDecimal(t, "0.125", p.ReserveETH)
	requireDecimal(t, "250", p.ReserveUSD)
}

func TestSyncUsesStaleCounterpartValue(t *testing.T) {
	f := newFixture(t)

	// usdc has never been priced: its stored derived value is zero
	f.createPair(t, tokenC, usdc, pairCUSDC)
	f.sync(t, pairCUSDC, units(100, 18), units(50, 18))

	requireDecimal(t, "0", f.token(t, tokenC).DerivedETH.Decimal)
}

func TestSyncUnknownPairIsNoop(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	f.createPair(t, tokenA, weth, pairAWETH)
	before := f.kv.Len()

	f.sync(t, pairUSDC, units(1, 18), units(1, 18))

	require.Equal(before, f.kv.Len())
	_, err := f.entities.LoadPair(f.ctx, types.ID(pairUSDC))
	require.ErrorIs(err, types.ErrNotFound)
}

func TestSyncMissingTokenIsNoop(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)

	orphan := &types.Pair{ID: types.ID(pairUSDC), Token0: types.ID(usdc), Token1: types.ID(weth)}
	require.NoError(f.entities.SavePair(f.ctx, orphan))

	f.sync(t, pairUSDC, units(1, 18), units(1, 18))

	p := f.pair(t, pairUSDC)
	require.True(p.Reserve0.IsZero())
	_, err := f.entities.LoadBundle(f.ctx)
	require.ErrorIs(err, types.ErrNotFound)
}

func TestHandleUnknownEventType(t *testing.T) {
	f := newFixture(t)
	err := f.handler.Handle(f.ctx, &types.EventMeta{})
	require.ErrorIs(t, err, types.ErrUnknownEvent)
}
