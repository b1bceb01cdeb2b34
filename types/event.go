package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type (
	// EventMeta is the chain provenance every event carries. Address is the
	// emitting contract: the factory for PairCreated, the pair otherwise.
	EventMeta struct {
		Address     common.Address
		BlockNumber uint64
		Timestamp   uint64
		TxHash      common.Hash
		TxIndex     uint
		LogIndex    uint
		TxFrom      common.Address
	}

	Event interface {
		Meta() *EventMeta
	}

	PairCreatedEvent struct {
		EventMeta
		Token0 common.Address
		Token1 common.Address
		Pair   common.Address
	}

	SyncEvent struct {
		EventMeta
		Reserve0 *big.Int
		Reserve1 *big.Int
	}

	MintEvent struct {
		EventMeta
		Sender  common.Address
		Amount0 *big.Int
		Amount1 *big.Int
	}

	BurnEvent struct {
		EventMeta
		Sender  common.Address
		To      common.Address
		Amount0 *big.Int
		Amount1 *big.Int
	}

	SwapEvent struct {
		EventMeta
		Sender     common.Address
		To         common.Address
		Amount0In  *big.Int
		Amount1In  *big.Int
		Amount0Out *big.Int
		Amount1Out *big.Int
	}

	TransferEvent struct {
		EventMeta
		From  common.Address
		To    common.Address
		Value *big.Int
	}
)

func (m *EventMeta) Meta() *EventMeta {
	return m
}

// TxID is the entity id of the owning transaction.
func (m *EventMeta) TxID() string {
	return m.TxHash.Hex()
}

// PairID is the entity id of the emitting contract.
func (m *EventMeta) PairID() string {
	return ID(m.Address)
}
