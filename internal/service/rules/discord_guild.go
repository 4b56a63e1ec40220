package rules

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/open-builders/giveaway-rules/internal/common/logger"
	"github.com/open-builders/giveaway-rules/internal/domain/rule"
	"github.com/open-builders/giveaway-rules/internal/service/discord"
)

// DiscordGuildChecker verifies guild membership, first as the bot and then with the user's token.
type DiscordGuildChecker struct {
	api    DiscordAPI
	cache  GuildCache
	hasBot bool
	log    zerolog.Logger
}

// NewDiscordGuildChecker builds the checker. cache may be nil. With hasBot false the bot
// method is skipped.
func NewDiscordGuildChecker(api DiscordAPI, cache GuildCache, hasBot bool) *DiscordGuildChecker {
	return &DiscordGuildChecker{api: api, cache: cache, hasBot: hasBot, log: logger.Component("discord_guild_checker")}
}

func (c *DiscordGuildChecker) Check(ctx context.Context, r rule.Rule, e *rule.Entrant) rule.Result {
	p := r.DiscordGuild
	if p == nil {
		return rule.Pass(r)
	}
	acc := e.Account(rule.ProviderDiscord)
	if acc == nil {
		return rule.Fail(r, msgLinkDiscord)
	}
	label := guildLabel(p.GuildName, p.GuildID)

	if c.hasBot {
		res, fallback := c.botMethod(ctx, r, p, acc, label)
		if !fallback {
			return res
		}
	}
	return c.userMethod(ctx, r, p, acc, label)
}

// botMethod returns fallback=true when the bot cannot answer for this guild.
func (c *DiscordGuildChecker) botMethod(ctx context.Context, r rule.Rule, p *rule.DiscordGuildRule, acc *rule.LinkedAccount, label string) (rule.Result, bool) {
	m, err := c.api.GuildMember(ctx, p.GuildID, acc.ExternalID)
	if err != nil {
		c.log.Debug().Err(err).Str("guild_id", p.GuildID).Msg("bot lookup failed, using user token")
		return rule.Result{}, true
	}
	switch m.Outcome {
	case discord.OutcomeSuccess:
		return rule.Pass(r), false
	case discord.OutcomeNotMember:
		return rule.Fail(r, fmt.Sprintf(msgJoinGuild, label)), false
	default:
		c.log.Debug().Str("guild_id", p.GuildID).Stringer("outcome", m.Outcome).Msg("bot cannot see guild, using user token")
		return rule.Result{}, true
	}
}

func (c *DiscordGuildChecker) userMethod(ctx context.Context, r rule.Rule, p *rule.DiscordGuildRule, acc *rule.LinkedAccount, label string) rule.Result {
	// A cached list only answers positively; a miss may predate the user joining.
	if c.cache != nil {
		if ids, ok := c.cache.GetGuilds(ctx, acc.ExternalID); ok && (discord.GuildsLookup{GuildIDs: ids}).HasGuild(p.GuildID) {
			return rule.Pass(r)
		}
	}

	g, err := c.api.MyGuildsWithRetry(ctx, acc.AccessToken)
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", acc.UserID).Msg("user guild lookup failed")
		return rule.Fail(r, msgCouldNotCheck)
	}
	switch g.Outcome {
	case discord.OutcomeSuccess:
	case discord.OutcomeRateLimited:
		return rule.Fail(r, rateLimitedMessage(g.RetryAfter))
	case discord.OutcomeUnknownGuild:
		return rule.Fail(r, fmt.Sprintf(msgGuildMisconfig, label))
	default:
		return rule.Fail(r, msgInvalidToken)
	}
	if c.cache != nil {
		c.cache.SetGuilds(ctx, acc.ExternalID, g.GuildIDs)
	}
	if !g.HasGuild(p.GuildID) {
		return rule.Fail(r, fmt.Sprintf(msgJoinGuild, label))
	}
	return rule.Pass(r)
}
