package rules

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/open-builders/giveaway-rules/internal/common/logger"
	"github.com/open-builders/giveaway-rules/internal/domain/rule"
	"github.com/open-builders/giveaway-rules/internal/service/discord"
)

// TokenAPI is the OAuth part of the Discord client.
type TokenAPI interface {
	ProbeToken(ctx context.Context, accessToken string) (bool, error)
	RefreshToken(ctx context.Context, refreshToken string) (*discord.TokenPair, error)
}

// TokenRefresher keeps a linked Discord account's access token usable.
type TokenRefresher struct {
	api   TokenAPI
	store rule.TokenStore
	log   zerolog.Logger
}

func NewTokenRefresher(api TokenAPI, store rule.TokenStore) *TokenRefresher {
	return &TokenRefresher{api: api, store: store, log: logger.Component("token_refresher")}
}

// RefreshIfNeeded returns a new access token, or "" when the current one should be kept.
// Refresh failures are logged and reported as "".
func (t *TokenRefresher) RefreshIfNeeded(ctx context.Context, accessToken string, acc rule.LinkedAccount) string {
	ok, err := t.api.ProbeToken(ctx, accessToken)
	if err == nil && ok {
		return ""
	}
	if acc.RefreshToken == nil || *acc.RefreshToken == "" {
		t.log.Warn().Str("account_id", acc.ID).Msg("discord token rejected and no refresh token stored")
		return ""
	}

	pair, err := t.api.RefreshToken(ctx, *acc.RefreshToken)
	if err != nil {
		t.log.Warn().Err(err).Str("account_id", acc.ID).Msg("discord token refresh failed")
		return ""
	}
	refresh := pair.RefreshToken
	if refresh == "" {
		refresh = *acc.RefreshToken
	}
	if t.store != nil {
		if err := t.store.UpdateTokens(ctx, acc.ID, pair.AccessToken, refresh); err != nil {
			// The new token is valid for this pass even if it was not saved.
			t.log.Error().Err(err).Str("account_id", acc.ID).Msg("persist refreshed discord token")
		}
	}
	return pair.AccessToken
}
