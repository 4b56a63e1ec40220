package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/open-builders/giveaway-rules/internal/common/logger"
	rplatform "github.com/open-builders/giveaway-rules/internal/platform/redis"
)

// GuildCache stores the guild ids a Discord user belongs to, as seen with their own token.
// Redis failures are logged and treated as a miss.
type GuildCache struct {
	client *rplatform.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewGuildCache(client *rplatform.Client, ttl time.Duration) *GuildCache {
	return &GuildCache{client: client, ttl: ttl, log: logger.Component("guild_cache")}
}

func (c *GuildCache) key(discordUserID string) string {
	return fmt.Sprintf("discord:guilds:%s", discordUserID)
}

// GetGuilds returns the cached guild ids, if any.
func (c *GuildCache) GetGuilds(ctx context.Context, discordUserID string) ([]string, bool) {
	v, err := c.client.Get(ctx, c.key(discordUserID)).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn().Err(err).Str("discord_user_id", discordUserID).Msg("read guild cache")
		}
		return nil, false
	}
	var ids []string
	if err := json.Unmarshal(v, &ids); err != nil {
		c.log.Warn().Err(err).Str("discord_user_id", discordUserID).Msg("decode guild cache")
		return nil, false
	}
	return ids, true
}

// SetGuilds stores ids with the configured TTL.
func (c *GuildCache) SetGuilds(ctx context.Context, discordUserID string, ids []string) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(discordUserID), b, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("discord_user_id", discordUserID).Msg("write guild cache")
	}
}
