package utils

import (
	"math/big"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	OneBD = decimal.NewFromInt(1)
	TwoBD = decimal.NewFromInt(2)
)

// ConvertTokenToDecimal scales a raw on-chain amount by the token decimals.
func ConvertTokenToDecimal(amount *big.Int, decimals uint8) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	if decimals == 0 {
		return decimal.NewFromBigInt(amount, 0)
	}
	return decimal.NewFromBigInt(amount, 0-int32(decimals))
}

// SafeDiv returns a/b, or zero when b is zero.
func SafeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// IsNullEthValue reports the bytes32 value some tokens return for an unset
// symbol or name.
func IsNullEthValue(value string) bool {
	return value == "0x0000000000000000000000000000000000000000000000000000000000000001"
}

// Subprocesses tracks goroutines started on behalf of a long running object.
type Subprocesses struct {
	wg sync.WaitGroup
}

func (s *Subprocesses) Go(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Subprocesses) Wait() {
	s.wg.Wait()
}
