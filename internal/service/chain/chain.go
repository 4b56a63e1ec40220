// Package chain reads balances and NFT ownership from blockchain RPC providers.
package chain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/open-builders/giveaway-rules/internal/domain/rule"
)

// ErrUnsupported is returned when a provider cannot answer a query kind.
var ErrUnsupported = errors.New("chain: unsupported query")

// BalanceReader reads balances in whole units (decimals applied).
type BalanceReader interface {
	NativeBalance(ctx context.Context, owner string) (decimal.Decimal, error)
	TokenBalance(ctx context.Context, owner, token string) (decimal.Decimal, error)
}

// NFTReader finds an NFT owned by owner matching the rule's collection or creator.
// match is the uniqueness token for the found asset.
type NFTReader interface {
	FindNFT(ctx context.Context, owner string, r rule.OwnNFTRule) (match string, found bool, err error)
}

// Registry maps chains to their readers. Lookups ignore case.
type Registry struct {
	balances map[rule.Chain]BalanceReader
	nfts     map[rule.Chain]NFTReader
}

func NewRegistry() *Registry {
	return &Registry{
		balances: make(map[rule.Chain]BalanceReader),
		nfts:     make(map[rule.Chain]NFTReader),
	}
}

// WithBalance registers a balance reader for c.
func (r *Registry) WithBalance(c rule.Chain, b BalanceReader) *Registry {
	r.balances[c.Normalize()] = b
	return r
}

// WithNFT registers an NFT reader for c.
func (r *Registry) WithNFT(c rule.Chain, n NFTReader) *Registry {
	r.nfts[c.Normalize()] = n
	return r
}

// Balance returns the balance reader for c.
func (r *Registry) Balance(c rule.Chain) (BalanceReader, bool) {
	b, ok := r.balances[c.Normalize()]
	return b, ok
}

// NFT returns the NFT reader for c.
func (r *Registry) NFT(c rule.Chain) (NFTReader, bool) {
	n, ok := r.nfts[c.Normalize()]
	return n, ok
}
