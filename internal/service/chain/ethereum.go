package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"

	"github.com/open-builders/giveaway-rules/internal/domain/rule"
)

const erc20ABIJSON = `[
{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

const etherDecimals = 18

var erc20ABI = mustABI(erc20ABIJSON)

func mustABI(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return a
}

// EVMBackend is the part of ethclient.Client used for reads.
type EVMBackend interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Ethereum reads native, ERC-20 and ERC-721 balances over JSON-RPC.
type Ethereum struct {
	backend EVMBackend
}

// DialEthereum connects to an Ethereum-compatible JSON-RPC endpoint.
func DialEthereum(ctx context.Context, rpcURL string) (*Ethereum, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial ethereum rpc: %w", err)
	}
	return NewEthereum(client), client, nil
}

func NewEthereum(backend EVMBackend) *Ethereum {
	return &Ethereum{backend: backend}
}

func parseEVMAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func (e *Ethereum) NativeBalance(ctx context.Context, owner string) (decimal.Decimal, error) {
	addr, err := parseEVMAddress(owner)
	if err != nil {
		return decimal.Zero, err
	}
	wei, err := e.backend.BalanceAt(ctx, addr, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance at %s: %w", owner, err)
	}
	return decimal.NewFromBigInt(wei, -etherDecimals), nil
}

func (e *Ethereum) TokenBalance(ctx context.Context, owner, token string) (decimal.Decimal, error) {
	ownerAddr, err := parseEVMAddress(owner)
	if err != nil {
		return decimal.Zero, err
	}
	tokenAddr, err := parseEVMAddress(token)
	if err != nil {
		return decimal.Zero, err
	}
	raw, err := e.balanceOf(ctx, tokenAddr, ownerAddr)
	if err != nil {
		return decimal.Zero, err
	}
	out, err := e.call(ctx, tokenAddr, "decimals")
	if err != nil {
		return decimal.Zero, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected decimals type %T", out[0])
	}
	return decimal.NewFromBigInt(raw, -int32(decimals)), nil
}

// FindNFT checks balanceOf on the ERC-721 collection. The wallet address is the match.
func (e *Ethereum) FindNFT(ctx context.Context, owner string, r rule.OwnNFTRule) (string, bool, error) {
	if r.CollectionAddress == "" {
		return "", false, ErrUnsupported
	}
	ownerAddr, err := parseEVMAddress(owner)
	if err != nil {
		return "", false, err
	}
	collection, err := parseEVMAddress(r.CollectionAddress)
	if err != nil {
		return "", false, err
	}
	n, err := e.balanceOf(ctx, collection, ownerAddr)
	if err != nil {
		return "", false, err
	}
	if n.Sign() <= 0 {
		return "", false, nil
	}
	return strings.ToLower(ownerAddr.Hex()), true, nil
}

func (e *Ethereum) balanceOf(ctx context.Context, contract, owner common.Address) (*big.Int, error) {
	out, err := e.call(ctx, contract, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	n, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf type %T", out[0])
	}
	return n, nil
}

func (e *Ethereum) call(ctx context.Context, contract common.Address, method string, args ...interface{}) ([]interface{}, error) {
	data, err := erc20ABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := e.backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, contract.Hex(), err)
	}
	out, err := erc20ABI.Unpack(method, res)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	return out, nil
}
