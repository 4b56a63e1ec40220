package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-builders/giveaway-rules/internal/domain/rule"
)

const (
	walletAddr = "0x1111111111111111111111111111111111111111"
	tokenAddr  = "0x2222222222222222222222222222222222222222"
	nftAddr    = "0x3333333333333333333333333333333333333333"
)

// fakeEVM answers balanceOf/decimals calls per contract.
type fakeEVM struct {
	native   *big.Int
	balances map[common.Address]*big.Int
	decimals uint8
	err      error
}

func (f *fakeEVM) BalanceAt(_ context.Context, _ common.Address, _ *big.Int) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.native, nil
}

func (f *fakeEVM) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	balanceOf := erc20ABI.Methods["balanceOf"]
	decimals := erc20ABI.Methods["decimals"]
	switch {
	case bytes.HasPrefix(msg.Data, balanceOf.ID):
		n, ok := f.balances[*msg.To]
		if !ok {
			n = big.NewInt(0)
		}
		return balanceOf.Outputs.Pack(n)
	case bytes.HasPrefix(msg.Data, decimals.ID):
		return decimals.Outputs.Pack(f.decimals)
	}
	return nil, errors.New("unexpected call")
}

func TestEthereumNativeBalance(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	e := NewEthereum(&fakeEVM{native: wei})

	bal, err := e.NativeBalance(context.Background(), walletAddr)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("1.5")), bal.String())

	_, err = e.NativeBalance(context.Background(), "not-an-address")
	require.Error(t, err)
}

func TestEthereumTokenBalance(t *testing.T) {
	e := NewEthereum(&fakeEVM{
		balances: map[common.Address]*big.Int{common.HexToAddress(tokenAddr): big.NewInt(2500000)},
		decimals: 6,
	})

	bal, err := e.TokenBalance(context.Background(), walletAddr, tokenAddr)
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("2.5")), bal.String())
}

func TestEthereumFindNFT(t *testing.T) {
	e := NewEthereum(&fakeEVM{
		balances: map[common.Address]*big.Int{common.HexToAddress(nftAddr): big.NewInt(1)},
	})

	match, found, err := e.FindNFT(context.Background(), walletAddr, rule.OwnNFTRule{Chain: rule.ChainEthereum, CollectionAddress: nftAddr})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, walletAddr, match)

	_, found, err = e.FindNFT(context.Background(), walletAddr, rule.OwnNFTRule{Chain: rule.ChainEthereum, CollectionAddress: tokenAddr})
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = e.FindNFT(context.Background(), walletAddr, rule.OwnNFTRule{Chain: rule.ChainEthereum, CreatorAddress: nftAddr})
	require.ErrorIs(t, err, ErrUnsupported)
}

func TestEthereumRPCError(t *testing.T) {
	e := NewEthereum(&fakeEVM{err: errors.New("connection refused")})

	_, err := e.TokenBalance(context.Background(), walletAddr, tokenAddr)
	require.ErrorContains(t, err, "connection refused")
}
