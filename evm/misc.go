package evm

import (
	"bytes"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SortAddresses orders two tokens the way the factory assigns token0 and
// token1.
func SortAddresses(tkn0, tkn1 common.Address) (common.Address, common.Address) {
	if bytes.Compare(tkn0.Bytes(), tkn1.Bytes()) > 0 {
		tkn0, tkn1 = tkn1, tkn0
	}
	return tkn0, tkn1
}

// CalculatePoolAddress derives the CREATE2 address of the pair for tokenA and
// tokenB.
func CalculatePoolAddress(tokenA, tokenB, factoryAddr common.Address, poolInitCodeStr string) (common.Address, error) {
	if !strings.HasPrefix(poolInitCodeStr, "0x") {
		poolInitCodeStr = "0x" + poolInitCodeStr
	}
	poolInitCode, err := hexutil.Decode(poolInitCodeStr)
	if err != nil {
		return common.Address{}, err
	}

	tkn0, tkn1 := SortAddresses(tokenA, tokenB)
	salt := crypto.Keccak256(tkn0.Bytes(), tkn1.Bytes())

	msg := []byte{0xff}
	msg = append(msg, factoryAddr.Bytes()...)
	msg = append(msg, salt...)
	msg = append(msg, poolInitCode...)
	return common.BytesToAddress(crypto.Keccak256(msg)[12:]), nil
}
