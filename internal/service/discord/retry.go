package discord

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Timer is the wait primitive used between retries.
type Timer = backoff.Timer

// RetryPolicy bounds how long user-method calls keep honouring retry_after.
type RetryPolicy struct {
	MaxRetries int
	MaxWait    time.Duration
}

var errRateLimited = errors.New("discord: rate limited")

// retryAfterBackOff waits exactly as long as Discord asked, within a total budget.
type retryAfterBackOff struct {
	next    time.Duration
	waited  time.Duration
	maxWait time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	if b.maxWait > 0 && b.waited+b.next > b.maxWait {
		return backoff.Stop
	}
	b.waited += b.next
	return b.next
}

func (b *retryAfterBackOff) Reset() { b.waited = 0 }

// retryRateLimited runs call until it is not rate limited or the policy is exhausted.
// The last response is always returned so callers can report the remaining wait.
func (c *Client) retryRateLimited(ctx context.Context, call func() (Response, error)) (Response, error) {
	ra := &retryAfterBackOff{maxWait: c.cfg.Retry.MaxWait}
	b := backoff.WithContext(backoff.WithMaxRetries(ra, uint64(c.cfg.Retry.MaxRetries)), ctx)

	var last Response
	op := func() error {
		r, err := call()
		if err != nil {
			return backoff.Permanent(err)
		}
		last = r
		if r.Outcome == OutcomeRateLimited {
			ra.next = r.RetryAfter
			return errRateLimited
		}
		return nil
	}
	notify := func(_ error, d time.Duration) {
		c.log.Warn().Dur("retry_after", d).Msg("Discord rate limited, waiting")
	}

	var err error
	if c.timer != nil {
		err = backoff.RetryNotifyWithTimer(op, b, notify, c.timer)
	} else {
		err = backoff.RetryNotify(op, b, notify)
	}
	if errors.Is(err, errRateLimited) {
		return last, nil
	}
	return last, err
}

// MyGuildsWithRetry is MyGuilds honouring retry_after within the retry policy.
func (c *Client) MyGuildsWithRetry(ctx context.Context, accessToken string) (GuildsLookup, error) {
	var out GuildsLookup
	_, err := c.retryRateLimited(ctx, func() (Response, error) {
		g, err := c.MyGuilds(ctx, accessToken)
		if err != nil {
			return Response{}, err
		}
		out = g
		return g.Response, nil
	})
	return out, err
}

// MyGuildMemberWithRetry is MyGuildMember honouring retry_after within the retry policy.
func (c *Client) MyGuildMemberWithRetry(ctx context.Context, accessToken, guildID string) (MemberLookup, error) {
	var out MemberLookup
	_, err := c.retryRateLimited(ctx, func() (Response, error) {
		m, err := c.MyGuildMember(ctx, accessToken, guildID)
		if err != nil {
			return Response{}, err
		}
		out = m
		return m.Response, nil
	})
	return out, err
}
