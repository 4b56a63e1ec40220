package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/open-builders/giveaway-rules/internal/common/logger"
)

// Config configures the Discord REST client.
type Config struct {
	BaseURL           string
	BotToken          string
	ClientID          string
	ClientSecret      string
	Timeout           time.Duration
	RequestsPerSecond float64
	Retry             RetryPolicy
}

// Client is a minimal Discord REST client for membership checks and OAuth refresh.
type Client struct {
	http    *resty.Client
	cfg     Config
	limiter *rate.Limiter
	timer   Timer
	log     zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTimer replaces the timer used between rate-limit retries.
func WithTimer(t Timer) Option {
	return func(c *Client) { c.timer = t }
}

// NewClient builds a Discord client.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://discord.com/api/v10"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 40
	}
	c := &Client{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(cfg.RequestsPerSecond)+1),
		log:     logger.Component("discord"),
	}
	c.http = resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "giveaway-rules (https://github.com/open-builders, 1.0)").
		OnBeforeRequest(c.onRateLimit)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) onRateLimit(_ *resty.Client, r *resty.Request) error {
	return c.limiter.Wait(r.Context())
}

func (c *Client) bot(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetHeader("Authorization", "Bot "+c.cfg.BotToken)
}

func (c *Client) user(ctx context.Context, accessToken string) *resty.Request {
	return c.http.R().SetContext(ctx).SetHeader("Authorization", "Bearer "+accessToken)
}

// GuildMember fetches a guild member as the platform bot.
func (c *Client) GuildMember(ctx context.Context, guildID, userID string) (MemberLookup, error) {
	resp, err := c.bot(ctx).
		SetPathParams(map[string]string{"guild": guildID, "user": userID}).
		Get("/guilds/{guild}/members/{user}")
	if err != nil {
		return MemberLookup{}, fmt.Errorf("get guild member: %w", err)
	}
	return parseMember(resp.StatusCode(), resp.Body())
}

// MyGuilds lists guilds of the token owner.
func (c *Client) MyGuilds(ctx context.Context, accessToken string) (GuildsLookup, error) {
	resp, err := c.user(ctx, accessToken).Get("/users/@me/guilds")
	if err != nil {
		return GuildsLookup{}, fmt.Errorf("get my guilds: %w", err)
	}
	return parseGuilds(resp.StatusCode(), resp.Body())
}

// MyGuildMember fetches the token owner's member object in a guild.
func (c *Client) MyGuildMember(ctx context.Context, accessToken, guildID string) (MemberLookup, error) {
	resp, err := c.user(ctx, accessToken).
		SetPathParam("guild", guildID).
		Get("/users/@me/guilds/{guild}/member")
	if err != nil {
		return MemberLookup{}, fmt.Errorf("get my guild member: %w", err)
	}
	return parseMember(resp.StatusCode(), resp.Body())
}

// ProbeToken reports whether accessToken is currently accepted by Discord.
func (c *Client) ProbeToken(ctx context.Context, accessToken string) (bool, error) {
	resp, err := c.user(ctx, accessToken).Get("/users/@me/guilds")
	if err != nil {
		return false, fmt.Errorf("probe token: %w", err)
	}
	return resp.StatusCode() == http.StatusOK, nil
}

// TokenPair is a refreshed OAuth credential set.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error,omitempty"`
}

// RefreshToken performs an OAuth refresh-token grant.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	form := url.Values{
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(form.Encode()).
		Post("/oauth2/token")
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	var out TokenPair
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if out.AccessToken == "" {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("http %d", resp.StatusCode())
		}
		return nil, fmt.Errorf("refresh token rejected: %s", msg)
	}
	return &out, nil
}
