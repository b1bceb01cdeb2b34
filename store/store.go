// Package store persists indexer entities as JSON documents in a key-value
// backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/meme-bots/go-v2-indexer/types"
)

// KV is the persistence substrate. Get returns types.ErrNotFound on a miss.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

const (
	prefixToken       = "token:"
	prefixPair        = "pair:"
	prefixBundle      = "bundle:"
	prefixFactory     = "factory:"
	prefixTransaction = "tx:"
	prefixMint        = "mint:"
	prefixBurn        = "burn:"
	prefixSwap        = "swap:"

	prefixPairIndex = "pairs:"

	keyCursor    = "cursor"
	keyPairCount = "pairs:count"
)

// Entities is the typed load/save layer over a KV.
type Entities struct {
	kv KV
}

func NewEntities(kv KV) *Entities {
	return &Entities{kv: kv}
}

func (e *Entities) load(ctx context.Context, key string, v any) error {
	data, err := e.kv.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return nil
}

func (e *Entities) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", key, err)
	}
	if err := e.kv.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (e *Entities) LoadToken(ctx context.Context, id string) (*types.Token, error) {
	var token types.Token
	if err := e.load(ctx, prefixToken+id, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (e *Entities) SaveToken(ctx context.Context, token *types.Token) error {
	return e.save(ctx, prefixToken+token.ID, token)
}

func (e *Entities) LoadPair(ctx context.Context, id string) (*types.Pair, error) {
	var pair types.Pair
	if err := e.load(ctx, prefixPair+id, &pair); err != nil {
		return nil, err
	}
	return &pair, nil
}

func (e *Entities) SavePair(ctx context.Context, pair *types.Pair) error {
	return e.save(ctx, prefixPair+pair.ID, pair)
}

// LoadPairTokens loads a pair and both of its tokens. Any missing entity
// yields types.ErrNotFound.
func (e *Entities) LoadPairTokens(ctx context.Context, id string) (*types.Pair, *types.Token, *types.Token, error) {
	pair, err := e.LoadPair(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	token0, err := e.LoadToken(ctx, pair.Token0)
	if err != nil {
		return nil, nil, nil, err
	}
	token1, err := e.LoadToken(ctx, pair.Token1)
	if err != nil {
		return nil, nil, nil, err
	}
	return pair, token0, token1, nil
}

func (e *Entities) LoadBundle(ctx context.Context) (*types.Bundle, error) {
	var bundle types.Bundle
	if err := e.load(ctx, prefixBundle+types.BundleID, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// BundleOrDefault returns the stored bundle or a fresh zero-priced one.
// The fresh bundle is not persisted.
func (e *Entities) BundleOrDefault(ctx context.Context) (*types.Bundle, error) {
	bundle, err := e.LoadBundle(ctx)
	if errors.Is(err, types.ErrNotFound) {
		return types.NewBundle(), nil
	}
	return bundle, err
}

func (e *Entities) SaveBundle(ctx context.Context, bundle *types.Bundle) error {
	return e.save(ctx, prefixBundle+bundle.ID, bundle)
}

func (e *Entities) LoadFactory(ctx context.Context, id string) (*types.Factory, error) {
	var factory types.Factory
	if err := e.load(ctx, prefixFactory+id, &factory); err != nil {
		return nil, err
	}
	return &factory, nil
}

// FactoryOrDefault returns the stored factory or a fresh empty one.
// The fresh factory is not persisted.
func (e *Entities) FactoryOrDefault(ctx context.Context, id string) (*types.Factory, error) {
	factory, err := e.LoadFactory(ctx, id)
	if errors.Is(err, types.ErrNotFound) {
		return types.NewFactory(id), nil
	}
	return factory, err
}

func (e *Entities) SaveFactory(ctx context.Context, factory *types.Factory) error {
	return e.save(ctx, prefixFactory+factory.ID, factory)
}

func (e *Entities) LoadTransaction(ctx context.Context, id string) (*types.Transaction, error) {
	var tx types.Transaction
	if err := e.load(ctx, prefixTransaction+id, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (e *Entities) SaveTransaction(ctx context.Context, tx *types.Transaction) error {
	return e.save(ctx, prefixTransaction+tx.ID, tx)
}

func (e *Entities) LoadMint(ctx context.Context, id string) (*types.Mint, error) {
	var mint types.Mint
	if err := e.load(ctx, prefixMint+id, &mint); err != nil {
		return nil, err
	}
	return &mint, nil
}

func (e *Entities) SaveMint(ctx context.Context, mint *types.Mint) error {
	return e.save(ctx, prefixMint+mint.ID, mint)
}

func (e *Entities) LoadBurn(ctx context.Context, id string) (*types.Burn, error) {
	var burn types.Burn
	if err := e.load(ctx, prefixBurn+id, &burn); err != nil {
		return nil, err
	}
	return &burn, nil
}

func (e *Entities) SaveBurn(ctx context.Context, burn *types.Burn) error {
	return e.save(ctx, prefixBurn+burn.ID, burn)
}

func (e *Entities) LoadSwap(ctx context.Context, id string) (*types.Swap, error) {
	var swap types.Swap
	if err := e.load(ctx, prefixSwap+id, &swap); err != nil {
		return nil, err
	}
	return &swap, nil
}

func (e *Entities) SaveSwap(ctx context.Context, swap *types.Swap) error {
	return e.save(ctx, prefixSwap+swap.ID, swap)
}

// Cursor is the last fully processed block, zero when nothing was indexed.
func (e *Entities) Cursor(ctx context.Context) (uint64, error) {
	var block uint64
	err := e.load(ctx, keyCursor, &block)
	if errors.Is(err, types.ErrNotFound) {
		return 0, nil
	}
	return block, err
}

func (e *Entities) SaveCursor(ctx context.Context, block uint64) error {
	return e.save(ctx, keyCursor, block)
}

// PairIndex lists the ids of all created pairs in creation order.
func (e *Entities) PairIndex(ctx context.Context) ([]string, error) {
	count, err := e.pairCount(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, count)
	for n := uint64(0); n < count; n++ {
		var id string
		if err := e.load(ctx, pairIndexKey(n), &id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// AppendPairIndex records id as the next created pair. Each call writes one
// entry plus the count, so the cost does not grow with the index.
func (e *Entities) AppendPairIndex(ctx context.Context, id string) error {
	count, err := e.pairCount(ctx)
	if err != nil {
		return err
	}
	if err := e.save(ctx, pairIndexKey(count), id); err != nil {
		return err
	}
	return e.save(ctx, keyPairCount, count+1)
}

func (e *Entities) pairCount(ctx context.Context) (uint64, error) {
	var count uint64
	err := e.load(ctx, keyPairCount, &count)
	if errors.Is(err, types.ErrNotFound) {
		return 0, nil
	}
	return count, err
}

func pairIndexKey(n uint64) string {
	return fmt.Sprintf("%s%d", prefixPairIndex, n)
}
