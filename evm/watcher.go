package evm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/meme-bots/go-v2-indexer/store"
	"github.com/meme-bots/go-v2-indexer/types"
	"github.com/meme-bots/go-v2-indexer/utils"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Pair addresses per eth_getLogs request.
const addressChunkSize = 500

type (
	watcherState uint8

	// LogClient is the part of the node API the watcher polls.
	LogClient interface {
		ethereum.BlockNumberReader
		HeaderReader
		TransactionReader
		FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error)
	}

	// Watcher polls factory and pair logs in block windows and feeds them,
	// in chain order, to a single sink from a single goroutine.
	Watcher struct {
		client   LogClient
		chainID  uint64
		cfg      *types.Config
		entities *store.Entities
		decoder  *Decoder
		sink     types.EventSink
		cache    *cache.Cache[[]byte]
		logger   *zap.Logger

		pairs   []common.Address
		pairSet map[common.Address]struct{}

		ctx          context.Context
		cancel       context.CancelFunc
		subprocesses utils.Subprocesses
		err          error

		stateMu sync.Mutex
		state   watcherState
	}
)

const (
	_ watcherState = iota
	watcherStatePending
	watcherStateOpen
	watcherStateClosed
)

// NewWatcher builds a watcher. readCache may be nil, in which case block
// timestamps and transaction senders are fetched every time.
func NewWatcher(
	client LogClient,
	chainID uint64,
	cfg *types.Config,
	entities *store.Entities,
	sink types.EventSink,
	readCache *cache.Cache[[]byte],
	logger *zap.Logger,
) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		client:       client,
		chainID:      chainID,
		cfg:          cfg,
		entities:     entities,
		decoder:      NewDecoder(common.HexToAddress(cfg.Factory)),
		sink:         sink,
		cache:        readCache,
		logger:       logger,
		pairSet:      make(map[common.Address]struct{}),
		ctx:          ctx,
		cancel:       cancel,
		subprocesses: utils.Subprocesses{},
		stateMu:      sync.Mutex{},
		state:        watcherStatePending,
	}
}

func (w *Watcher) Start() error {
	succeed := false
	defer func() {
		if !succeed {
			w.Close()
		}
	}()

	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	if w.state != watcherStatePending {
		return types.ErrWatcherStarted
	}

	ids, err := w.entities.PairIndex(w.ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		w.addPair(common.HexToAddress(id))
	}

	w.state = watcherStateOpen

	w.subprocesses.Go(func() {
		w.WatchLogs(w.cfg.PollInterval)
	})

	succeed = true
	return nil
}

func (w *Watcher) Close() error {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	if w.state != watcherStateOpen {
		return types.ErrWatcherNotOpen
	}

	w.state = watcherStateClosed
	w.cancel()
	w.subprocesses.Wait()
	return nil
}

// Err reports the error that stopped the watch loop, if any.
func (w *Watcher) Err() error {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()
	return w.err
}

func (w *Watcher) WatchLogs(interval time.Duration) {
	for {
		err := w.poll(w.ctx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			return
		case errors.Is(err, errSinkFailed):
			w.logger.Error("event processing halted", zap.Error(err))
			w.stateMu.Lock()
			w.err = err
			w.stateMu.Unlock()
			return
		default:
			w.logger.Warn("poll failed, retrying", zap.Error(err))
		}

		select {
		case <-time.After(interval):
		case <-w.ctx.Done():
			return
		}
	}
}

var errSinkFailed = errors.New("sink failed")

func (w *Watcher) poll(ctx context.Context) error {
	head, err := w.client.BlockNumber(ctx)
	if err != nil {
		return err
	}
	cursor, err := w.entities.Cursor(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", errSinkFailed, err)
	}

	from := cursor + 1
	if from < w.cfg.StartBlock {
		from = w.cfg.StartBlock
	}
	batch := lo.Max([]uint64{w.cfg.BlockBatchSize, 1})

	for from <= head {
		to := lo.Min([]uint64{from + batch - 1, head})
		count, err := w.ProcessRange(ctx, from, to)
		if err != nil {
			return err
		}
		if err := w.entities.SaveCursor(ctx, to); err != nil {
			return fmt.Errorf("%w: %v", errSinkFailed, err)
		}
		w.logger.Info("processed blocks",
			zap.Uint64("from", from),
			zap.Uint64("to", to),
			zap.Int("events", count),
		)
		from = to + 1
	}
	return nil
}

// ProcessRange delivers every tracked event in [from, to] to the sink and
// returns how many were delivered. Nothing is delivered until every event of
// the window is decoded and enriched, so an RPC failure leaves the window
// untouched and safe to retry. An error after the first delivery is wrapped
// in errSinkFailed.
func (w *Watcher) ProcessRange(ctx context.Context, from, to uint64) (int, error) {
	factoryLogs, err := w.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{w.decoder.factory},
		Topics:    [][]common.Hash{{TopicPairCreated}},
	})
	if err != nil {
		return 0, err
	}

	// Pairs created inside the window must be part of the pair log query.
	for _, log := range factoryLogs {
		ev, err := w.decoder.Decode(log)
		if err != nil {
			continue
		}
		if created, ok := ev.(*types.PairCreatedEvent); ok {
			w.addPair(created.Pair)
		}
	}

	logs := factoryLogs
	for _, chunk := range lo.Chunk(w.pairs, addressChunkSize) {
		pairLogs, err := w.client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(from),
			ToBlock:   new(big.Int).SetUint64(to),
			Addresses: chunk,
			Topics:    [][]common.Hash{PairTopics},
		})
		if err != nil {
			return 0, err
		}
		logs = append(logs, pairLogs...)
	}

	logs = lo.Filter(logs, func(l ethtypes.Log, _ int) bool { return !l.Removed })
	SortLogs(logs)

	events := make([]types.Event, 0, len(logs))
	for _, log := range logs {
		ev, err := w.decoder.Decode(log)
		if errors.Is(err, types.ErrUnknownEvent) {
			continue
		}
		if err != nil {
			w.logger.Warn("skipping undecodable log",
				zap.Stringer("address", log.Address),
				zap.Stringer("tx", log.TxHash),
				zap.Uint("index", log.Index),
				zap.Error(err),
			)
			continue
		}
		if err := w.enrich(ctx, ev); err != nil {
			return 0, err
		}
		events = append(events, ev)
	}

	for i, ev := range events {
		if err := w.sink.Handle(ctx, ev); err != nil {
			return i, fmt.Errorf("%w: %v", errSinkFailed, err)
		}
	}
	return len(events), nil
}

func (w *Watcher) addPair(pair common.Address) {
	if _, ok := w.pairSet[pair]; ok {
		return
	}
	w.pairSet[pair] = struct{}{}
	w.pairs = append(w.pairs, pair)
}

// enrich fills the provenance fields logs do not carry.
func (w *Watcher) enrich(ctx context.Context, ev types.Event) error {
	meta := ev.Meta()

	ts, err := w.blockTimestamp(ctx, meta.BlockNumber)
	if err != nil {
		return err
	}
	meta.Timestamp = ts

	if _, ok := ev.(*types.SwapEvent); ok {
		from, err := w.txSender(ctx, meta.TxHash)
		if err != nil {
			w.logger.Warn("cannot recover swap sender", zap.Stringer("tx", meta.TxHash), zap.Error(err))
		} else {
			meta.TxFrom = from
		}
	}
	return nil
}

func (w *Watcher) blockTimestamp(ctx context.Context, block uint64) (uint64, error) {
	key := fmt.Sprintf("ts:%d", block)
	if w.cache != nil {
		if cached, err := w.cache.Get(ctx, key); err == nil && len(cached) == 8 {
			return binary.BigEndian.Uint64(cached), nil
		}
	}

	ts, err := BlockTimestamp(ctx, w.client, block)
	if err != nil {
		return 0, err
	}
	if w.cache != nil {
		_ = w.cache.Set(ctx, key, binary.BigEndian.AppendUint64(nil, ts))
	}
	return ts, nil
}

func (w *Watcher) txSender(ctx context.Context, txHash common.Hash) (common.Address, error) {
	key := "from:" + txHash.Hex()
	if w.cache != nil {
		if cached, err := w.cache.Get(ctx, key); err == nil && len(cached) == common.AddressLength {
			return common.BytesToAddress(cached), nil
		}
	}

	from, err := TxSender(ctx, w.client, w.chainID, txHash)
	if err != nil {
		return common.Address{}, err
	}
	if w.cache != nil {
		_ = w.cache.Set(ctx, key, from.Bytes())
	}
	return from, nil
}

// SortLogs orders logs by chain position.
func SortLogs(logs []ethtypes.Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		if logs[i].BlockNumber != logs[j].BlockNumber {
			return logs[i].BlockNumber < logs[j].BlockNumber
		}
		if logs[i].TxIndex != logs[j].TxIndex {
			return logs[i].TxIndex < logs[j].TxIndex
		}
		return logs[i].Index < logs[j].Index
	})
}
