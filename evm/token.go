package evm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/forta-network/go-multicall"
	"github.com/forta-network/go-multicall/contracts/contract_multicall"
	"github.com/meme-bots/go-v2-indexer/types"
	"github.com/meme-bots/go-v2-indexer/utils"
	"go.uber.org/zap"
)

// Token getters batched by FetchToken, in result order.
var tokenMethods = []string{"symbol", "name", "decimals", "totalSupply"}

// ChainReader reads token metadata and pair supply at historical blocks.
type ChainReader struct {
	multicall *contract_multicall.MulticallCaller
	backend   bind.ContractCaller
	logger    *zap.Logger
}

var _ types.ChainReader = (*ChainReader)(nil)

// NewChainReader batches reads through the canonical Multicall3 deployment.
func NewChainReader(backend bind.ContractCaller, logger *zap.Logger) (*ChainReader, error) {
	caller, err := contract_multicall.NewMulticallCaller(common.HexToAddress(multicall.DefaultAddress), backend)
	if err != nil {
		return nil, err
	}
	return &ChainReader{
		multicall: caller,
		backend:   backend,
		logger:    logger,
	}, nil
}

func callOpts(ctx context.Context, block uint64) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx, BlockNumber: new(big.Int).SetUint64(block)}
}

// FetchToken reads symbol, name, decimals and totalSupply in one aggregate3
// call. Every result is checked and decoded on its own, so a getter that
// reverts or returns an unexpected type only loses its own field.
func (r *ChainReader) FetchToken(ctx context.Context, token common.Address, block uint64) types.TokenInfo {
	info := types.DefaultTokenInfo()
	results := r.readToken(ctx, token, block)

	symbol, ok := unpackString(results[0], "symbol")
	if !ok {
		symbol = r.fetchBytes32(ctx, token, "symbol", block)
	}
	info.Symbol = symbol

	name, ok := unpackString(results[1], "name")
	if !ok {
		name = r.fetchBytes32(ctx, token, "name", block)
	}
	info.Name = name

	if out, err := erc20ABI.Unpack("decimals", results[2]); err == nil && len(out) == 1 {
		if decimals, ok := out[0].(uint8); ok {
			info.Decimals = decimals
		}
	}
	if out, err := erc20ABI.Unpack("totalSupply", results[3]); err == nil && len(out) == 1 {
		if supply, ok := out[0].(*big.Int); ok && supply != nil {
			info.TotalSupply = supply
		}
	}
	return info
}

// readToken returns the raw return data of every token getter, nil for the
// ones that reverted. When the batch itself cannot run, for instance below
// the Multicall3 deployment block, each getter is called directly.
func (r *ChainReader) readToken(ctx context.Context, token common.Address, block uint64) [][]byte {
	calls := make([]contract_multicall.Multicall3Call3, 0, len(tokenMethods))
	for _, method := range tokenMethods {
		data, err := erc20ABI.Pack(method)
		if err != nil {
			panic(err)
		}
		calls = append(calls, contract_multicall.Multicall3Call3{
			Target:       token,
			AllowFailure: true,
			CallData:     data,
		})
	}

	out := make([][]byte, len(calls))
	results, err := r.multicall.Aggregate3(callOpts(ctx, block), calls)
	if err == nil && len(results) == len(calls) {
		for i, result := range results {
			if result.Success {
				out[i] = result.ReturnData
			}
		}
		return out
	}

	r.logger.Debug("token multicall unavailable, reading getters one by one",
		zap.Stringer("token", token),
		zap.Uint64("block", block),
		zap.Error(err),
	)
	for i, call := range calls {
		data, err := r.backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: call.CallData}, new(big.Int).SetUint64(block))
		if err == nil {
			out[i] = data
		}
	}
	return out
}

func unpackString(data []byte, method string) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	out, err := erc20ABI.Unpack(method, data)
	if err != nil || len(out) != 1 {
		return "", false
	}
	value, ok := out[0].(string)
	return value, ok
}

// fetchBytes32 reads a bytes32 flavoured string getter, returning "unknown"
// on revert or on the null value.
func (r *ChainReader) fetchBytes32(ctx context.Context, token common.Address, method string, block uint64) string {
	contract := bind.NewBoundContract(token, erc20Bytes32ABI, r.backend, nil, nil)

	var out []interface{}
	if err := contract.Call(callOpts(ctx, block), &out, method); err != nil || len(out) == 0 {
		return types.UnknownTokenString
	}
	value, ok := out[0].([32]byte)
	if !ok || utils.IsNullEthValue(hexutil.Encode(value[:])) {
		return types.UnknownTokenString
	}
	return utils.TrimSpace(string(value[:]))
}

func (r *ChainReader) PairTotalSupply(ctx context.Context, pair common.Address, block uint64) (*big.Int, error) {
	contract := bind.NewBoundContract(pair, pairABI, r.backend, nil, nil)

	var out []interface{}
	if err := contract.Call(callOpts(ctx, block), &out, "totalSupply"); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty totalSupply output for %s", pair.Hex())
	}
	supply, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected totalSupply output %T for %s", out[0], pair.Hex())
	}
	return supply, nil
}
