// Package handler applies decoded pair and factory events to the entity
// store. Events must be delivered one at a time in chain order; each call to
// Handle runs to completion before the next event is accepted.
package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/meme-bots/go-v2-indexer/pricing"
	"github.com/meme-bots/go-v2-indexer/store"
	"github.com/meme-bots/go-v2-indexer/types"
	"go.uber.org/zap"
)

type Handler struct {
	entities *store.Entities
	oracle   *pricing.Oracle
	chain    types.ChainReader
	cfg      *types.Config
	logger   *zap.Logger
}

var _ types.EventSink = (*Handler)(nil)

func NewHandler(
	entities *store.Entities,
	oracle *pricing.Oracle,
	chain types.ChainReader,
	cfg *types.Config,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		entities: entities,
		oracle:   oracle,
		chain:    chain,
		cfg:      cfg,
		logger:   logger,
	}
}

// Handle applies a single event. An event that references a pair or token
// the store has never seen is dropped and Handle returns nil; only
// persistence failures are returned.
func (h *Handler) Handle(ctx context.Context, ev types.Event) error {
	var err error
	switch e := ev.(type) {
	case *types.PairCreatedEvent:
		err = h.handlePairCreated(ctx, e)
	case *types.SyncEvent:
		err = h.handleSync(ctx, e)
	case *types.MintEvent:
		err = h.handleMint(ctx, e)
	case *types.BurnEvent:
		err = h.handleBurn(ctx, e)
	case *types.SwapEvent:
		err = h.handleSwap(ctx, e)
	case *types.TransferEvent:
		err = h.handleTransfer(ctx, e)
	default:
		return fmt.Errorf("%w: %T", types.ErrUnknownEvent, ev)
	}

	if errors.Is(err, types.ErrNotFound) {
		if ce := h.logger.Check(zap.DebugLevel, "event references unknown entity, dropped"); ce != nil {
			ce.Write(
				zap.String("type", fmt.Sprintf("%T", ev)),
				zap.Stringer("address", ev.Meta().Address),
				zap.Uint64("block", ev.Meta().BlockNumber),
				zap.String("event", spew.Sdump(ev)),
			)
		}
		return nil
	}
	return err
}

// loadOrCreateTransaction returns the transaction entity for the event,
// creating an empty one on first sight. The new entity is not persisted.
func (h *Handler) loadOrCreateTransaction(ctx context.Context, meta *types.EventMeta) (*types.Transaction, error) {
	tx, err := h.entities.LoadTransaction(ctx, meta.TxID())
	if errors.Is(err, types.ErrNotFound) {
		return types.NewTransaction(meta.TxID(), meta.BlockNumber, meta.Timestamp), nil
	}
	return tx, err
}

func recordID(txID string, index int) string {
	return fmt.Sprintf("%s-%d", txID, index)
}
