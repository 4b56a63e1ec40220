package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-builders/giveaway-rules/internal/domain/rule"
)

func newSolanaServer(t *testing.T, results map[string]string) *Solana {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		res, ok := results[req.Method]
		if !ok {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + res + `}`))
	}))
	t.Cleanup(srv.Close)
	return NewSolana(srv.URL, 0)
}

func TestSolanaNativeBalance(t *testing.T) {
	s := newSolanaServer(t, map[string]string{
		"getBalance": `{"context":{"slot":1},"value":2500000000}`,
	})

	bal, err := s.NativeBalance(context.Background(), "Owner111")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.RequireFromString("2.5")), bal.String())
}

func TestSolanaTokenBalanceSumsAccounts(t *testing.T) {
	s := newSolanaServer(t, map[string]string{
		"getTokenAccountsByOwner": `{"context":{"slot":1},"value":[
			{"account":{"data":{"parsed":{"info":{"tokenAmount":{"amount":"1500000","decimals":6}}}}}},
			{"account":{"data":{"parsed":{"info":{"tokenAmount":{"amount":"500000","decimals":6}}}}}}
		]}`,
	})

	bal, err := s.TokenBalance(context.Background(), "Owner111", "Mint111")
	require.NoError(t, err)
	assert.True(t, bal.Equal(decimal.NewFromInt(2)), bal.String())
}

func TestSolanaFindNFT(t *testing.T) {
	s := newSolanaServer(t, map[string]string{
		"getAssetsByOwner": `{"total":2,"items":[
			{"id":"mintA","grouping":[{"group_key":"collection","group_value":"CollX"}],"creators":[]},
			{"id":"mintB","grouping":[],"creators":[{"address":"CreatorY","verified":true}]}
		]}`,
	})

	match, found, err := s.FindNFT(context.Background(), "Owner111", rule.OwnNFTRule{Chain: rule.ChainSolana, CollectionAddress: "CollX"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "mintA", match)

	match, found, err = s.FindNFT(context.Background(), "Owner111", rule.OwnNFTRule{Chain: rule.ChainSolana, CreatorAddress: "CreatorY"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "mintB", match)

	_, found, err = s.FindNFT(context.Background(), "Owner111", rule.OwnNFTRule{Chain: rule.ChainSolana, CollectionAddress: "Other"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSolanaFindNFTReadsAllPages(t *testing.T) {
	pages := map[float64]string{
		1: `{"items":[{"id":"m1","grouping":[]},{"id":"m2","grouping":[]}]}`,
		2: `{"items":[{"id":"m3","grouping":[]},{"id":"mintX","grouping":[{"group_key":"collection","group_value":"CollX"}]}]}`,
		3: `{"items":[]}`,
	}
	var seen []float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Params struct {
				Page  float64 `json:"page"`
				Limit float64 `json:"limit"`
			} `json:"params"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(2), req.Params.Limit)
		seen = append(seen, req.Params.Page)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + pages[req.Params.Page] + `}`))
	}))
	t.Cleanup(srv.Close)
	s := NewSolana(srv.URL, 0)
	s.pageLimit = 2

	match, found, err := s.FindNFT(context.Background(), "Owner111", rule.OwnNFTRule{Chain: rule.ChainSolana, CollectionAddress: "CollX"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "mintX", match)
	assert.Equal(t, []float64{1, 2}, seen)

	seen = nil
	_, found, err = s.FindNFT(context.Background(), "Owner111", rule.OwnNFTRule{Chain: rule.ChainSolana, CollectionAddress: "Other"})
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, []float64{1, 2, 3}, seen)
}

func TestSolanaNativeBalanceAboveInt64(t *testing.T) {
	s := newSolanaServer(t, map[string]string{
		"getBalance": `{"context":{"slot":1},"value":18446744073709551615}`,
	})

	bal, err := s.NativeBalance(context.Background(), "Owner111")
	require.NoError(t, err)
	assert.Equal(t, "18446744073.709551615", bal.String())
}

func TestSolanaRPCError(t *testing.T) {
	s := newSolanaServer(t, map[string]string{})

	_, err := s.NativeBalance(context.Background(), "Owner111")
	require.ErrorContains(t, err, "Method not found")
}
