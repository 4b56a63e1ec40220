package rule

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Type enumerates supported entry rule kinds.
type Type string

const (
	TypeDiscordGuild      Type = "DISCORD_GUILD"
	TypeDiscordRole       Type = "DISCORD_ROLE"
	TypeTwitterFriendship Type = "TWITTER_FRIENDSHIP"
	TypeTwitterTweet      Type = "TWITTER_TWEET"
	TypeMinimumBalance    Type = "MINIMUM_BALANCE"
	TypeOwnNFT            Type = "OWN_NFT"
)

// RoleRequirementKind says whether a configured role must be held or absent.
type RoleRequirementKind string

const (
	RoleHave     RoleRequirementKind = "HAVE_ROLE"
	RoleDontHave RoleRequirementKind = "DONT_HAVE_ROLE"
)

// Relationship is a Twitter social-graph relation the entrant must have with a target account.
type Relationship string

const (
	RelationshipFollow          Relationship = "FOLLOW"
	RelationshipFollowedBy      Relationship = "FOLLOWED_BY"
	RelationshipNotificationsOn Relationship = "NOTIFICATIONS_ON"
)

// TweetAction is an interaction the entrant must have performed on a tweet.
type TweetAction string

const (
	TweetActionLike    TweetAction = "LIKE"
	TweetActionRetweet TweetAction = "RETWEET"
	TweetActionQuote   TweetAction = "QUOTE"
)

// NativeToken marks a minimum balance rule that targets the chain's native currency.
const NativeToken = "NATIVE"

// Rule is a single entry requirement. Exactly one payload matching Type is set.
type Rule struct {
	ID   string `json:"id,omitempty"`
	Type Type   `json:"type"`

	DiscordGuild      *DiscordGuildRule      `json:"discord_guild,omitempty"`
	DiscordRole       *DiscordRoleRule       `json:"discord_role,omitempty"`
	TwitterFriendship *TwitterFriendshipRule `json:"twitter_friendship,omitempty"`
	TwitterTweet      *TwitterTweetRule      `json:"twitter_tweet,omitempty"`
	MinimumBalance    *MinimumBalanceRule    `json:"minimum_balance,omitempty"`
	OwnNFT            *OwnNFTRule            `json:"own_nft,omitempty"`
}

// DiscordGuildRule requires membership in a Discord guild.
type DiscordGuildRule struct {
	GuildID   string `json:"guild_id"`
	GuildName string `json:"guild_name"`
}

// RoleRequirement is one configured role of a DiscordRoleRule.
type RoleRequirement struct {
	RoleID     string              `json:"role_id"`
	RoleName   string              `json:"role_name"`
	Kind       RoleRequirementKind `json:"type"`
	Multiplier int                 `json:"multiplier"`
}

// DiscordRoleRule passes when at least one configured role qualifies.
type DiscordRoleRule struct {
	GuildID   string            `json:"guild_id"`
	GuildName string            `json:"guild_name"`
	Roles     []RoleRequirement `json:"roles"`
}

// TwitterFriendshipRule requires relations with a Twitter account.
type TwitterFriendshipRule struct {
	Username      string         `json:"username"`
	Relationships []Relationship `json:"relationships"`
}

// TwitterTweetRule requires interactions with a tweet.
type TwitterTweetRule struct {
	TweetID string        `json:"tweet_id"`
	Actions []TweetAction `json:"actions"`
}

// MinimumBalanceRule requires a wallet on Chain holding at least MinAmount of TokenAddress.
// TokenAddress equal to NativeToken means the chain's native currency.
type MinimumBalanceRule struct {
	Chain        Chain           `json:"chain"`
	TokenAddress string          `json:"token_address"`
	MinAmount    decimal.Decimal `json:"min_amount"`
}

// IsNative reports whether the rule targets the native currency.
func (r MinimumBalanceRule) IsNative() bool {
	return r.TokenAddress == "" || r.TokenAddress == NativeToken
}

// OwnNFTRule requires a wallet on Chain holding an NFT of a collection or creator.
type OwnNFTRule struct {
	Chain             Chain  `json:"chain"`
	CollectionAddress string `json:"collection_address,omitempty"`
	CreatorAddress    string `json:"creator_address,omitempty"`
}

// IsDiscord reports whether evaluating the rule needs a Discord access token.
func (r Rule) IsDiscord() bool {
	return r.Type == TypeDiscordGuild || r.Type == TypeDiscordRole
}

// payloadCount returns how many payload fields are populated.
func (r Rule) payloadCount() int {
	n := 0
	for _, set := range []bool{
		r.DiscordGuild != nil,
		r.DiscordRole != nil,
		r.TwitterFriendship != nil,
		r.TwitterTweet != nil,
		r.MinimumBalance != nil,
		r.OwnNFT != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

// hasPayload reports whether the payload matching Type is populated.
func (r Rule) hasPayload() bool {
	switch r.Type {
	case TypeDiscordGuild:
		return r.DiscordGuild != nil
	case TypeDiscordRole:
		return r.DiscordRole != nil
	case TypeTwitterFriendship:
		return r.TwitterFriendship != nil
	case TypeTwitterTweet:
		return r.TwitterTweet != nil
	case TypeMinimumBalance:
		return r.MinimumBalance != nil
	case TypeOwnNFT:
		return r.OwnNFT != nil
	}
	return false
}

// Validate checks that Type matches the single populated payload and that the payload is usable.
func (r Rule) Validate() error {
	if !r.hasPayload() {
		return fmt.Errorf("rule type %s requires its payload", r.Type)
	}
	if r.payloadCount() != 1 {
		return fmt.Errorf("rule type %s must carry exactly one payload", r.Type)
	}
	switch r.Type {
	case TypeDiscordGuild:
		if r.DiscordGuild.GuildID == "" {
			return fmt.Errorf("discord_guild.guild_id is required")
		}
	case TypeDiscordRole:
		if r.DiscordRole.GuildID == "" {
			return fmt.Errorf("discord_role.guild_id is required")
		}
		if len(r.DiscordRole.Roles) == 0 {
			return fmt.Errorf("discord_role.roles must not be empty")
		}
		for i, role := range r.DiscordRole.Roles {
			if role.RoleID == "" {
				return fmt.Errorf("discord_role.roles[%d].role_id is required", i)
			}
			if role.Kind != RoleHave && role.Kind != RoleDontHave {
				return fmt.Errorf("discord_role.roles[%d].type %q is invalid", i, role.Kind)
			}
			if role.Multiplier < 0 {
				return fmt.Errorf("discord_role.roles[%d].multiplier must be >= 0", i)
			}
		}
	case TypeTwitterFriendship:
		if r.TwitterFriendship.Username == "" {
			return fmt.Errorf("twitter_friendship.username is required")
		}
	case TypeTwitterTweet:
		if r.TwitterTweet.TweetID == "" {
			return fmt.Errorf("twitter_tweet.tweet_id is required")
		}
	case TypeMinimumBalance:
		if !r.MinimumBalance.Chain.Valid() {
			return fmt.Errorf("minimum_balance.chain %q is invalid", r.MinimumBalance.Chain)
		}
		if r.MinimumBalance.MinAmount.IsNegative() {
			return fmt.Errorf("minimum_balance.min_amount must be >= 0")
		}
	case TypeOwnNFT:
		if !r.OwnNFT.Chain.Valid() {
			return fmt.Errorf("own_nft.chain %q is invalid", r.OwnNFT.Chain)
		}
		if r.OwnNFT.CollectionAddress == "" && r.OwnNFT.CreatorAddress == "" {
			return fmt.Errorf("own_nft requires collection_address or creator_address")
		}
		if r.OwnNFT.CollectionAddress == "" && r.OwnNFT.Chain != ChainSolana {
			return fmt.Errorf("own_nft.creator_address is only supported on %s", ChainSolana)
		}
	}
	return nil
}
