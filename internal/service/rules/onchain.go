package rules

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/open-builders/giveaway-rules/internal/common/logger"
	"github.com/open-builders/giveaway-rules/internal/domain/rule"
	"github.com/open-builders/giveaway-rules/internal/service/chain"
)

// MinimumBalanceChecker passes when any wallet on the rule's chain holds enough.
type MinimumBalanceChecker struct {
	chains *chain.Registry
	log    zerolog.Logger
}

func NewMinimumBalanceChecker(chains *chain.Registry) *MinimumBalanceChecker {
	return &MinimumBalanceChecker{chains: chains, log: logger.Component("balance_checker")}
}

func (c *MinimumBalanceChecker) Check(ctx context.Context, r rule.Rule, e *rule.Entrant) rule.Result {
	p := r.MinimumBalance
	if p == nil {
		return rule.Pass(r)
	}
	wallets := e.WalletsOn(p.Chain)
	if len(wallets) == 0 {
		return rule.Fail(r, fmt.Sprintf(msgNeedWallet, p.Chain))
	}
	reader, ok := c.chains.Balance(p.Chain)
	if !ok {
		return rule.Fail(r, fmt.Sprintf(msgChainUnsupported, p.Chain))
	}
	for _, w := range wallets {
		bal, err := c.balance(ctx, reader, w.Address, p)
		if err != nil {
			c.log.Warn().Err(err).Str("wallet", w.Address).Str("chain", string(p.Chain)).Msg("balance lookup failed")
			return rule.Fail(r, fmt.Sprintf(msgWalletCheck, w.Address))
		}
		if bal.GreaterThanOrEqual(p.MinAmount) {
			return rule.Pass(r)
		}
	}
	return rule.Fail(r, fmt.Sprintf(msgLowBalance, p.Chain, p.MinAmount.String()))
}

func (c *MinimumBalanceChecker) balance(ctx context.Context, reader chain.BalanceReader, owner string, p *rule.MinimumBalanceRule) (decimal.Decimal, error) {
	if p.IsNative() {
		return reader.NativeBalance(ctx, owner)
	}
	return reader.TokenBalance(ctx, owner, p.TokenAddress)
}

// OwnNFTChecker passes when any wallet on the rule's chain holds a matching NFT.
// The matched asset is reported as the uniqueness constraint.
type OwnNFTChecker struct {
	chains *chain.Registry
	log    zerolog.Logger
}

func NewOwnNFTChecker(chains *chain.Registry) *OwnNFTChecker {
	return &OwnNFTChecker{chains: chains, log: logger.Component("nft_checker")}
}

func (c *OwnNFTChecker) Check(ctx context.Context, r rule.Rule, e *rule.Entrant) rule.Result {
	p := r.OwnNFT
	if p == nil {
		return rule.Pass(r)
	}
	wallets := e.WalletsOn(p.Chain)
	if len(wallets) == 0 {
		return rule.Fail(r, fmt.Sprintf(msgNeedWallet, p.Chain))
	}
	reader, ok := c.chains.NFT(p.Chain)
	if !ok {
		return rule.Fail(r, fmt.Sprintf(msgChainUnsupported, p.Chain))
	}
	for _, w := range wallets {
		match, found, err := reader.FindNFT(ctx, w.Address, *p)
		if errors.Is(err, chain.ErrUnsupported) {
			return rule.Fail(r, fmt.Sprintf(msgChainUnsupported, p.Chain))
		}
		if err != nil {
			c.log.Warn().Err(err).Str("wallet", w.Address).Str("chain", string(p.Chain)).Msg("nft lookup failed")
			return rule.Fail(r, fmt.Sprintf(msgWalletCheck, w.Address))
		}
		if found {
			res := rule.Pass(r)
			res.UniqueConstraint = match
			return res
		}
	}
	return rule.Fail(r, fmt.Sprintf(msgNoNFT, p.Chain))
}
