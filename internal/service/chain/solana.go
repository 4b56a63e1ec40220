package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/open-builders/giveaway-rules/internal/domain/rule"
)

const (
	lamportDecimals = 9
	dasPageLimit    = 1000
)

// Solana reads balances and NFTs over Solana JSON-RPC. NFT lookups use the DAS
// getAssetsByOwner extension offered by most RPC providers.
type Solana struct {
	rpcURL    string
	http      *resty.Client
	pageLimit int
}

func NewSolana(rpcURL string, timeout time.Duration) *Solana {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Solana{
		rpcURL:    rpcURL,
		http:      resty.New().SetTimeout(timeout).SetHeader("Content-Type", "application/json"),
		pageLimit: dasPageLimit,
	}
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      int         `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (s *Solana) call(ctx context.Context, method string, params interface{}, out interface{}) error {
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}).
		Post(s.rpcURL)
	if err != nil {
		return fmt.Errorf("solana %s: %w", method, err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("solana %s: http %d", method, resp.StatusCode())
	}
	var r rpcResponse
	if err := json.Unmarshal(resp.Body(), &r); err != nil {
		return fmt.Errorf("solana %s: decode: %w", method, err)
	}
	if r.Error != nil {
		return fmt.Errorf("solana %s: rpc error %d: %s", method, r.Error.Code, r.Error.Message)
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("solana %s: decode result: %w", method, err)
	}
	return nil
}

func (s *Solana) NativeBalance(ctx context.Context, owner string) (decimal.Decimal, error) {
	var out struct {
		Value uint64 `json:"value"`
	}
	if err := s.call(ctx, "getBalance", []interface{}{owner}, &out); err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromUint64(out.Value).Shift(-lamportDecimals), nil
}

func (s *Solana) TokenBalance(ctx context.Context, owner, mint string) (decimal.Decimal, error) {
	var out struct {
		Value []struct {
			Account struct {
				Data struct {
					Parsed struct {
						Info struct {
							TokenAmount struct {
								Amount   string `json:"amount"`
								Decimals int32  `json:"decimals"`
							} `json:"tokenAmount"`
						} `json:"info"`
					} `json:"parsed"`
				} `json:"data"`
			} `json:"account"`
		} `json:"value"`
	}
	params := []interface{}{
		owner,
		map[string]string{"mint": mint},
		map[string]string{"encoding": "jsonParsed"},
	}
	if err := s.call(ctx, "getTokenAccountsByOwner", params, &out); err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, v := range out.Value {
		amt := v.Account.Data.Parsed.Info.TokenAmount
		n, err := decimal.NewFromString(amt.Amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid token amount %q: %w", amt.Amount, err)
		}
		total = total.Add(n.Shift(-amt.Decimals))
	}
	return total, nil
}

type dasAsset struct {
	ID       string `json:"id"`
	Grouping []struct {
		GroupKey   string `json:"group_key"`
		GroupValue string `json:"group_value"`
	} `json:"grouping"`
	Creators []struct {
		Address  string `json:"address"`
		Verified bool   `json:"verified"`
	} `json:"creators"`
}

func (a dasAsset) matches(r rule.OwnNFTRule) bool {
	if r.CollectionAddress != "" {
		for _, g := range a.Grouping {
			if g.GroupKey == "collection" && g.GroupValue == r.CollectionAddress {
				return true
			}
		}
	}
	if r.CreatorAddress != "" {
		for _, c := range a.Creators {
			if c.Verified && c.Address == r.CreatorAddress {
				return true
			}
		}
	}
	return false
}

// FindNFT returns the mint of the first owned asset in the collection or by the creator.
// Pages are read until a match or a short page.
func (s *Solana) FindNFT(ctx context.Context, owner string, r rule.OwnNFTRule) (string, bool, error) {
	for page := 1; ; page++ {
		var out struct {
			Items []dasAsset `json:"items"`
		}
		params := map[string]interface{}{"ownerAddress": owner, "page": page, "limit": s.pageLimit}
		if err := s.call(ctx, "getAssetsByOwner", params, &out); err != nil {
			return "", false, err
		}
		for _, a := range out.Items {
			if a.matches(r) {
				return a.ID, true, nil
			}
		}
		if len(out.Items) < s.pageLimit {
			return "", false, nil
		}
	}
}
