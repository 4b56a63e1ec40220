package rules

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/open-builders/giveaway-rules/internal/common/logger"
	"github.com/open-builders/giveaway-rules/internal/domain/rule"
	"github.com/open-builders/giveaway-rules/internal/service/discord"
)

// DiscordRoleChecker verifies role requirements and reports the best qualifying multiplier.
type DiscordRoleChecker struct {
	api    DiscordAPI
	hasBot bool
	log    zerolog.Logger
}

func NewDiscordRoleChecker(api DiscordAPI, hasBot bool) *DiscordRoleChecker {
	return &DiscordRoleChecker{api: api, hasBot: hasBot, log: logger.Component("discord_role_checker")}
}

func (c *DiscordRoleChecker) Check(ctx context.Context, r rule.Rule, e *rule.Entrant) rule.Result {
	p := r.DiscordRole
	if p == nil {
		return rule.Pass(r)
	}
	acc := e.Account(rule.ProviderDiscord)
	if acc == nil {
		return rule.Fail(r, msgLinkDiscord)
	}
	label := guildLabel(p.GuildName, p.GuildID)

	if c.hasBot {
		roles, res, fallback := c.botMethod(ctx, r, p, acc, label)
		if !fallback {
			if res != nil {
				return *res
			}
			return qualify(r, p, roles, label)
		}
	}

	m, err := c.api.MyGuildMemberWithRetry(ctx, acc.AccessToken, p.GuildID)
	if err != nil {
		c.log.Warn().Err(err).Str("user_id", acc.UserID).Msg("user member lookup failed")
		return rule.Fail(r, msgCouldNotCheck)
	}
	switch m.Outcome {
	case discord.OutcomeSuccess:
		return qualify(r, p, m.Roles, label)
	case discord.OutcomeRateLimited:
		return rule.Fail(r, rateLimitedMessage(m.RetryAfter))
	case discord.OutcomeUnknownGuild, discord.OutcomeNotMember:
		// The user endpoint answers Unknown Guild when the caller is not a member.
		return rule.Fail(r, fmt.Sprintf(msgJoinGuild, label))
	default:
		return rule.Fail(r, msgInvalidToken)
	}
}

// botMethod returns the member's roles, or a terminal result, or fallback=true.
func (c *DiscordRoleChecker) botMethod(ctx context.Context, r rule.Rule, p *rule.DiscordRoleRule, acc *rule.LinkedAccount, label string) ([]string, *rule.Result, bool) {
	m, err := c.api.GuildMember(ctx, p.GuildID, acc.ExternalID)
	if err != nil {
		c.log.Debug().Err(err).Str("guild_id", p.GuildID).Msg("bot lookup failed, using user token")
		return nil, nil, true
	}
	switch m.Outcome {
	case discord.OutcomeSuccess:
		return m.Roles, nil, false
	case discord.OutcomeNotMember:
		res := rule.Fail(r, fmt.Sprintf(msgJoinGuild, label))
		return nil, &res, false
	default:
		c.log.Debug().Str("guild_id", p.GuildID).Stringer("outcome", m.Outcome).Msg("bot cannot see guild, using user token")
		return nil, nil, true
	}
}

// qualify picks the largest multiplier among configured roles the member satisfies.
func qualify(r rule.Rule, p *rule.DiscordRoleRule, held []string, label string) rule.Result {
	has := make(map[string]struct{}, len(held))
	for _, id := range held {
		has[id] = struct{}{}
	}
	best := -1
	for _, req := range p.Roles {
		_, ok := has[req.RoleID]
		if (ok && req.Kind == rule.RoleHave) || (!ok && req.Kind == rule.RoleDontHave) {
			if req.Multiplier > best {
				best = req.Multiplier
			}
		}
	}
	if best < 0 {
		return rule.Fail(r, fmt.Sprintf(msgMissingRoles, label))
	}
	res := rule.Pass(r)
	res.Multiplier = &best
	return res
}
