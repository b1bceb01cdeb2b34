package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/meme-bots/go-v2-indexer/types"
)

type decodeFunc func(log ethtypes.Log, meta types.EventMeta) (types.Event, error)

// Decoder turns raw factory and pair logs into typed events. Timestamp and
// TxFrom are left for the caller to fill.
type Decoder struct {
	factory  common.Address
	pair     *bind.BoundContract
	factoryC *bind.BoundContract
	handlers map[common.Hash]decodeFunc
}

var (
	TopicPairCreated = factoryABI.Events["PairCreated"].ID
	TopicSync        = pairABI.Events["Sync"].ID
	TopicMint        = pairABI.Events["Mint"].ID
	TopicBurn        = pairABI.Events["Burn"].ID
	TopicSwap        = pairABI.Events["Swap"].ID
	TopicTransfer    = pairABI.Events["Transfer"].ID

	PairTopics = []common.Hash{TopicSync, TopicMint, TopicBurn, TopicSwap, TopicTransfer}
)

func NewDecoder(factory common.Address) *Decoder {
	d := &Decoder{
		factory:  factory,
		pair:     bind.NewBoundContract(common.Address{}, pairABI, nil, nil, nil),
		factoryC: bind.NewBoundContract(factory, factoryABI, nil, nil, nil),
	}
	d.handlers = map[common.Hash]decodeFunc{
		TopicPairCreated: d.decodePairCreated,
		TopicSync:        d.decodeSync,
		TopicMint:        d.decodeMint,
		TopicBurn:        d.decodeBurn,
		TopicSwap:        d.decodeSwap,
		TopicTransfer:    d.decodeTransfer,
	}
	return d
}

// Decode returns types.ErrUnknownEvent for logs this indexer does not track.
func (d *Decoder) Decode(log ethtypes.Log) (types.Event, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("%w: no topics", types.ErrInvalidLog)
	}
	fn, ok := d.handlers[log.Topics[0]]
	if !ok {
		return nil, types.ErrUnknownEvent
	}
	if log.Topics[0] == TopicPairCreated && log.Address != d.factory {
		return nil, types.ErrUnknownEvent
	}

	meta := types.EventMeta{
		Address:     log.Address,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		TxIndex:     log.TxIndex,
		LogIndex:    log.Index,
	}
	ev, err := fn(log, meta)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidLog, err)
	}
	return ev, nil
}

func (d *Decoder) decodePairCreated(log ethtypes.Log, meta types.EventMeta) (types.Event, error) {
	var out struct {
		Token0 common.Address
		Token1 common.Address
		Pair   common.Address
		Index  *big.Int
	}
	if err := d.factoryC.UnpackLog(&out, "PairCreated", log); err != nil {
		return nil, err
	}
	return &types.PairCreatedEvent{EventMeta: meta, Token0: out.Token0, Token1: out.Token1, Pair: out.Pair}, nil
}

func (d *Decoder) decodeSync(log ethtypes.Log, meta types.EventMeta) (types.Event, error) {
	var out struct {
		Reserve0 *big.Int
		Reserve1 *big.Int
	}
	if err := d.pair.UnpackLog(&out, "Sync", log); err != nil {
		return nil, err
	}
	return &types.SyncEvent{EventMeta: meta, Reserve0: out.Reserve0, Reserve1: out.Reserve1}, nil
}

func (d *Decoder) decodeMint(log ethtypes.Log, meta types.EventMeta) (types.Event, error) {
	var out struct {
		Sender  common.Address
		Amount0 *big.Int
		Amount1 *big.Int
	}
	if err := d.pair.UnpackLog(&out, "Mint", log); err != nil {
		return nil, err
	}
	return &types.MintEvent{EventMeta: meta, Sender: out.Sender, Amount0: out.Amount0, Amount1: out.Amount1}, nil
}

func (d *Decoder) decodeBurn(log ethtypes.Log, meta types.EventMeta) (types.Event, error) {
	var out struct {
		Sender  common.Address
		Amount0 *big.Int
		Amount1 *big.Int
		To      common.Address
	}
	if err := d.pair.UnpackLog(&out, "Burn", log); err != nil {
		return nil, err
	}
	return &types.BurnEvent{EventMeta: meta, Sender: out.Sender, To: out.To, Amount0: out.Amount0, Amount1: out.Amount1}, nil
}

func (d *Decoder) decodeSwap(log ethtypes.Log, meta types.EventMeta) (types.Event, error) {
	var out struct {
		Sender     common.Address
		Amount0In  *big.Int
		Amount1In  *big.Int
		Amount0Out *big.Int
		Amount1Out *big.Int
		To         common.Address
	}
	if err := d.pair.UnpackLog(&out, "Swap", log); err != nil {
		return nil, err
	}
	return &types.SwapEvent{
		EventMeta:  meta,
		Sender:     out.Sender,
		To:         out.To,
		Amount0In:  out.Amount0In,
		Amount1In:  out.Amount1In,
		Amount0Out: out.Amount0Out,
		Amount1Out: out.Amount1Out,
	}, nil
}

func (d *Decoder) decodeTransfer(log ethtypes.Log, meta types.EventMeta) (types.Event, error) {
	var out struct {
		From  common.Address
		To    common.Address
		Value *big.Int
	}
	if err := d.pair.UnpackLog(&out, "Transfer", log); err != nil {
		return nil, err
	}
	return &types.TransferEvent{EventMeta: meta, From: out.From, To: out.To, Value: out.Value}, nil
}
