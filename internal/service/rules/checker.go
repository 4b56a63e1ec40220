package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/open-builders/giveaway-rules/internal/domain/rule"
	"github.com/open-builders/giveaway-rules/internal/service/discord"
)

// Checker evaluates one rule type against an entrant.
// Implementations never return Go errors: failures are carried in Result.Error.
type Checker interface {
	Check(ctx context.Context, r rule.Rule, e *rule.Entrant) rule.Result
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, r rule.Rule, e *rule.Entrant) rule.Result

func (f CheckerFunc) Check(ctx context.Context, r rule.Rule, e *rule.Entrant) rule.Result {
	return f(ctx, r, e)
}

// Skip passes every rule. Used for rule types that are not enforced.
var Skip = CheckerFunc(func(_ context.Context, r rule.Rule, _ *rule.Entrant) rule.Result {
	return rule.Pass(r)
})

// DiscordAPI is the subset of the Discord client the checkers rely on.
type DiscordAPI interface {
	GuildMember(ctx context.Context, guildID, userID string) (discord.MemberLookup, error)
	MyGuildsWithRetry(ctx context.Context, accessToken string) (discord.GuildsLookup, error)
	MyGuildMemberWithRetry(ctx context.Context, accessToken, guildID string) (discord.MemberLookup, error)
}

// GuildCache remembers guild lists fetched with a user's token.
type GuildCache interface {
	GetGuilds(ctx context.Context, discordUserID string) ([]string, bool)
	SetGuilds(ctx context.Context, discordUserID string, guildIDs []string)
}

// User-facing messages.
const (
	msgLinkDiscord      = "You must link your Discord account"
	msgConnectTwitter   = "You must connect your Twitter account"
	msgInvalidToken     = "Your Discord token is invalid, relinking your Discord account may help"
	msgCouldNotCheck    = "Could not check your Discord servers, relinking your Discord account may help"
	msgRuleCrashed      = "Could not evaluate this requirement, please try again later"
	msgUnknownRuleType  = "Unknown rule type %s"
	msgJoinGuild        = "You need to join the %s Discord server"
	msgGuildMisconfig   = "Could not find the %s Discord server, the giveaway may be misconfigured"
	msgMissingRoles     = "You do not have any of the required roles in %s"
	msgRateLimited      = "Discord is rate limiting us, please try again in %s"
	msgNeedWallet       = "You need a wallet on %s"
	msgChainUnsupported = "%s checks are not supported"
	msgWalletCheck      = "Could not check wallet %s"
	msgLowBalance       = "None of your %s wallets hold at least %s"
	msgNoNFT            = "None of your %s wallets hold a matching NFT"
)

func guildLabel(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

func rateLimitedMessage(wait time.Duration) string {
	if wait <= 0 {
		wait = time.Second
	}
	return fmt.Sprintf(msgRateLimited, wait.Round(time.Second))
}
