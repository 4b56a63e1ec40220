package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/xssnick/tonutils-go/address"

	"github.com/open-builders/giveaway-rules/internal/domain/rule"
)

const nanoTONDecimals = 9

// TON implements balance and NFT checks via TonAPI HTTP.
type TON struct {
	http *resty.Client
}

// NewTON initializes a TonAPI-based reader.
func NewTON(baseURL, apiToken string, timeout time.Duration) *TON {
	if baseURL == "" {
		baseURL = "https://tonapi.io"
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if apiToken != "" {
		c.SetAuthToken(apiToken)
	}
	return &TON{http: c}
}

// parseTONAddress accepts both user-friendly and raw (workchain:hex) forms.
func parseTONAddress(s string) (*address.Address, error) {
	if strings.Contains(s, ":") {
		return address.ParseRawAddr(s)
	}
	return address.ParseAddr(s)
}

func sameTONAddress(a, b string) bool {
	pa, errA := parseTONAddress(a)
	pb, errB := parseTONAddress(b)
	if errA != nil || errB != nil {
		return strings.EqualFold(a, b)
	}
	return pa.StringRaw() == pb.StringRaw()
}

func (t *TON) get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	resp, err := t.http.R().SetContext(ctx).SetQueryParams(query).Get(path)
	if err != nil {
		return err
	}
	if resp.StatusCode() != 200 {
		return fmt.Errorf("tonapi http %d", resp.StatusCode())
	}
	return json.Unmarshal(resp.Body(), out)
}

// amount parses TonAPI integer amounts which arrive as either JSON numbers or strings.
func amount(raw json.RawMessage) (decimal.Decimal, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid balance format %q", s)
	}
	return d, nil
}

// NativeBalance returns the TON balance of owner.
func (t *TON) NativeBalance(ctx context.Context, owner string) (decimal.Decimal, error) {
	if _, err := parseTONAddress(owner); err != nil {
		return decimal.Zero, fmt.Errorf("invalid ton address %q: %w", owner, err)
	}
	var out struct {
		Balance json.RawMessage `json:"balance"`
	}
	if err := t.get(ctx, "/v2/accounts/"+owner, nil, &out); err != nil {
		return decimal.Zero, err
	}
	n, err := amount(out.Balance)
	if err != nil {
		return decimal.Zero, err
	}
	return n.Shift(-nanoTONDecimals), nil
}

// TokenBalance returns the jetton balance of owner for the jetton master.
func (t *TON) TokenBalance(ctx context.Context, owner, jettonMaster string) (decimal.Decimal, error) {
	if _, err := parseTONAddress(owner); err != nil {
		return decimal.Zero, fmt.Errorf("invalid ton address %q: %w", owner, err)
	}
	var out struct {
		Balances []struct {
			Balance json.RawMessage `json:"balance"`
			Jetton  struct {
				Address  string `json:"address"`
				Decimals int32  `json:"decimals"`
			} `json:"jetton"`
		} `json:"balances"`
	}
	if err := t.get(ctx, "/v2/accounts/"+owner+"/jettons", nil, &out); err != nil {
		return decimal.Zero, err
	}
	for _, b := range out.Balances {
		if !sameTONAddress(b.Jetton.Address, jettonMaster) {
			continue
		}
		n, err := amount(b.Balance)
		if err != nil {
			return decimal.Zero, err
		}
		return n.Shift(-b.Jetton.Decimals), nil
	}
	return decimal.Zero, nil
}

// FindNFT returns the address of an NFT item of the collection held by owner.
func (t *TON) FindNFT(ctx context.Context, owner string, r rule.OwnNFTRule) (string, bool, error) {
	if r.CollectionAddress == "" {
		return "", false, ErrUnsupported
	}
	var out struct {
		NFTItems []struct {
			Address string `json:"address"`
		} `json:"nft_items"`
	}
	query := map[string]string{"collection": r.CollectionAddress, "limit": "1"}
	if err := t.get(ctx, "/v2/accounts/"+owner+"/nfts", query, &out); err != nil {
		return "", false, err
	}
	if len(out.NFTItems) == 0 {
		return "", false, nil
	}
	return out.NFTItems[0].Address, true, nil
}
