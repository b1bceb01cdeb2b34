package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/meme-bots/go-v2-indexer/store"
	"github.com/meme-bots/go-v2-indexer/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errUnavailable = errors.New("header not available")

// fakeNode serves a fixed set of logs and can fail header reads.
type fakeNode struct {
	mu          sync.Mutex
	head        uint64
	logs        []ethtypes.Log
	headerFails map[uint64]int
}

func (n *fakeNode) BlockNumber(context.Context) (uint64, error) {
	return n.head, nil
}

func (n *fakeNode) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]ethtypes.Log, error) {
	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	return lo.Filter(n.logs, func(l ethtypes.Log, _ int) bool {
		return l.BlockNumber >= from && l.BlockNumber <= to && lo.Contains(q.Addresses, l.Address)
	}), nil
}

func (n *fakeNode) HeaderByNumber(_ context.Context, number *big.Int) (*ethtypes.Header, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	block := number.Uint64()
	if n.headerFails[block] > 0 {
		n.headerFails[block]--
		return nil, errUnavailable
	}
	return &ethtypes.Header{Number: number, Time: block * 12}, nil
}

func (n *fakeNode) TransactionByHash(context.Context, common.Hash) (*ethtypes.Transaction, bool, error) {
	return nil, false, ethereum.NotFound
}

// recordingSink keeps the position of every delivered event.
type recordingSink struct {
	mu        sync.Mutex
	delivered []string
	times     []uint64
	failAt    int
}

func (s *recordingSink) Handle(_ context.Context, ev types.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && len(s.delivered)+1 == s.failAt {
		return errors.New("disk full")
	}
	meta := ev.Meta()
	s.delivered = append(s.delivered, fmt.Sprintf("%d/%d", meta.BlockNumber, meta.LogIndex))
	s.times = append(s.times, meta.Timestamp)
	return nil
}

func (s *recordingSink) positions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.delivered...)
}

func transferAt(t *testing.T, block uint64, index uint) ethtypes.Log {
	log := pairLog(t, "Transfer", []common.Address{testSender, testTo}, big.NewInt(10))
	log.BlockNumber = block
	log.TxIndex = 0
	log.Index = index
	return log
}

func newTestWatcher(t *testing.T, node *fakeNode, sink types.EventSink) (*Watcher, *store.Entities) {
	entities := store.NewEntities(store.NewMemory())
	cfg := &types.Config{
		Factory:        testFactory.Hex(),
		StartBlock:     1,
		BlockBatchSize: 10,
		PollInterval:   time.Millisecond,
	}
	w := NewWatcher(node, 8453, cfg, entities, sink, nil, zap.NewNop())
	w.addPair(testPair)
	return w, entities
}

func TestPollRetriesWindowWithoutRedelivery(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	node := &fakeNode{
		head:        2,
		logs:        []ethtypes.Log{transferAt(t, 2, 0), transferAt(t, 1, 0)},
		headerFails: map[uint64]int{2: 1},
	}
	sink := &recordingSink{}
	w, entities := newTestWatcher(t, node, sink)

	err := w.poll(ctx)
	require.ErrorIs(err, errUnavailable)
	require.NotErrorIs(err, errSinkFailed)
	require.Empty(sink.positions())
	cursor, err := entities.Cursor(ctx)
	require.NoError(err)
	require.Zero(cursor)

	require.NoError(w.poll(ctx))
	require.Equal([]string{"1/0", "2/0"}, sink.positions())
	require.Equal([]uint64{12, 24}, sink.times)
	cursor, err = entities.Cursor(ctx)
	require.NoError(err)
	require.Equal(uint64(2), cursor)

	// nothing new past the cursor
	require.NoError(w.poll(ctx))
	require.Len(sink.positions(), 2)
}

func TestPollSinkFailureIsFatal(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	node := &fakeNode{
		head: 2,
		logs: []ethtypes.Log{transferAt(t, 1, 0), transferAt(t, 2, 0)},
	}
	sink := &recordingSink{failAt: 2}
	w, entities := newTestWatcher(t, node, sink)

	err := w.poll(ctx)
	require.ErrorIs(err, errSinkFailed)
	require.Equal([]string{"1/0"}, sink.positions())
	cursor, err := entities.Cursor(ctx)
	require.NoError(err)
	require.Zero(cursor)
}

func TestProcessRangeSkipsForeignAndRemovedLogs(t *testing.T) {
	require := require.New(t)
	removed := transferAt(t, 1, 3)
	removed.Removed = true
	foreign := transferAt(t, 1, 4)
	foreign.Topics[0] = common.HexToHash("0x01")
	node := &fakeNode{
		head: 1,
		logs: []ethtypes.Log{transferAt(t, 1, 2), removed, foreign},
	}
	sink := &recordingSink{}
	w, _ := newTestWatcher(t, node, sink)

	count, err := w.ProcessRange(context.Background(), 1, 1)
	require.NoError(err)
	require.Equal(1, count)
	require.Equal([]string{"1/2"}, sink.positions())
}

func TestWatcherStopsOnSinkFailure(t *testing.T) {
	require := require.New(t)
	node := &fakeNode{
		head:        1,
		logs:        []ethtypes.Log{transferAt(t, 1, 0)},
		headerFails: map[uint64]int{1: 2},
	}
	sink := &recordingSink{failAt: 1}
	w, entities := newTestWatcher(t, node, sink)
	w.pairs, w.pairSet = nil, make(map[common.Address]struct{})
	require.NoError(entities.AppendPairIndex(context.Background(), types.ID(testPair)))

	require.NoError(w.Start())

	// header failures are retried, the sink failure is not
	require.Eventually(func() bool { return w.Err() != nil }, 5*time.Second, time.Millisecond)
	require.ErrorIs(w.Err(), errSinkFailed)
	require.Empty(sink.positions())

	require.NoError(w.Close())
	require.ErrorIs(w.Close(), types.ErrWatcherNotOpen)
}
