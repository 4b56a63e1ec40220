package rules

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/open-builders/giveaway-rules/internal/common/logger"
	"github.com/open-builders/giveaway-rules/internal/domain/rule"
	"github.com/open-builders/giveaway-rules/internal/service/chain"
)

const defaultConcurrency = 8

// Refresher renews a linked account's Discord token. An empty return keeps the current one.
type Refresher interface {
	RefreshIfNeeded(ctx context.Context, accessToken string, acc rule.LinkedAccount) string
}

// Engine fans a rule list out to checkers and reduces the results to a Verdict.
type Engine struct {
	checkers    map[rule.Type]Checker
	refresher   Refresher
	concurrency int
	log         zerolog.Logger
}

type Option func(*Engine)

// WithChecker registers c for rule type t, replacing any earlier registration.
func WithChecker(t rule.Type, c Checker) Option {
	return func(e *Engine) { e.checkers[t] = c }
}

func WithTokenRefresher(r Refresher) Option {
	return func(e *Engine) { e.refresher = r }
}

// Checkers describes the collaborators for the built-in rule types.
type Checkers struct {
	Discord    DiscordAPI
	GuildCache GuildCache
	HasBot     bool
	// Chains is nil when balance and NFT rules are not enforced.
	Chains *chain.Registry
}

// Standard registers a checker for every known rule type.
func Standard(c Checkers) []Option {
	opts := []Option{
		WithChecker(rule.TypeDiscordGuild, NewDiscordGuildChecker(c.Discord, c.GuildCache, c.HasBot)),
		WithChecker(rule.TypeDiscordRole, NewDiscordRoleChecker(c.Discord, c.HasBot)),
		WithChecker(rule.TypeTwitterFriendship, TwitterFriendshipChecker),
		WithChecker(rule.TypeTwitterTweet, TwitterTweetChecker),
	}
	if c.Chains != nil {
		return append(opts,
			WithChecker(rule.TypeMinimumBalance, NewMinimumBalanceChecker(c.Chains)),
			WithChecker(rule.TypeOwnNFT, NewOwnNFTChecker(c.Chains)),
		)
	}
	return append(opts,
		WithChecker(rule.TypeMinimumBalance, Skip),
		WithChecker(rule.TypeOwnNFT, Skip),
	)
}

// NewEngine builds an engine running at most concurrency checks at once.
func NewEngine(concurrency int, opts ...Option) *Engine {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	e := &Engine{
		checkers:    make(map[rule.Type]Checker),
		concurrency: concurrency,
		log:         logger.Component("rule_engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type evaluateOptions struct {
	types map[rule.Type]struct{}
}

type EvaluateOption func(*evaluateOptions)

// WithTypes restricts evaluation to rules of the given types.
func WithTypes(types ...rule.Type) EvaluateOption {
	return func(o *evaluateOptions) {
		if o.types == nil {
			o.types = make(map[rule.Type]struct{}, len(types))
		}
		for _, t := range types {
			o.types[t] = struct{}{}
		}
	}
}

func (o evaluateOptions) selected(rules []rule.Rule) []rule.Rule {
	if o.types == nil {
		return rules
	}
	out := make([]rule.Rule, 0, len(rules))
	for _, r := range rules {
		if _, ok := o.types[r.Type]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Evaluate checks every selected rule against entrant. entrant is not modified.
func (e *Engine) Evaluate(ctx context.Context, rules []rule.Rule, entrant *rule.Entrant, opts ...EvaluateOption) rule.Verdict {
	start := time.Now()
	v := rule.Verdict{EvaluationID: uuid.NewString(), Results: []rule.Result{}}
	if entrant == nil {
		v.ErrorMessage = "no entrant to evaluate"
		return v
	}

	var o evaluateOptions
	for _, opt := range opts {
		opt(&o)
	}
	selected := o.selected(rules)

	ent := entrant.Clone()
	e.refreshDiscordToken(ctx, selected, ent)

	results, failures := e.dispatch(ctx, selected, ent)

	v.Results = results
	v.ErrorMessage = strings.Join(failures, "; ")
	v.IsSuccess = v.ErrorMessage == ""
	var unique []string
	for _, res := range results {
		if !res.Passed() {
			v.IsSuccess = false
		}
		if res.UniqueConstraint != "" {
			unique = append(unique, res.UniqueConstraint)
		}
	}
	v.UniqueConstraints = strings.Join(unique, ",")

	e.log.Info().
		Str("evaluation_id", v.EvaluationID).
		Str("user_id", ent.UserID).
		Int("rules", len(selected)).
		Bool("success", v.IsSuccess).
		Dur("duration", time.Since(start)).
		Msg("rules evaluated")
	return v
}

// refreshDiscordToken runs before the fan-out so checkers only read the account.
func (e *Engine) refreshDiscordToken(ctx context.Context, rules []rule.Rule, ent *rule.Entrant) {
	if e.refresher == nil {
		return
	}
	acc := ent.Account(rule.ProviderDiscord)
	if acc == nil || acc.AccessToken == "" {
		return
	}
	for _, r := range rules {
		if r.IsDiscord() {
			if token := e.refresher.RefreshIfNeeded(ctx, acc.AccessToken, *acc); token != "" {
				acc.AccessToken = token
			}
			return
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, rules []rule.Rule, ent *rule.Entrant) ([]rule.Result, []string) {
	results := make([]rule.Result, len(rules))
	if len(rules) == 0 {
		return results, nil
	}

	var (
		mu       sync.Mutex
		failures []string
	)
	pool := workerpool.New(min(e.concurrency, len(rules)))
	for i, r := range rules {
		pool.Submit(func() {
			defer func() {
				if rec := recover(); rec != nil {
					e.log.Error().Str("rule_id", r.ID).Str("type", string(r.Type)).Interface("panic", rec).Msg("rule check panicked")
					results[i] = rule.Fail(r, msgRuleCrashed)
					mu.Lock()
					failures = append(failures, fmt.Sprintf("rule %s (%s): %v", r.ID, r.Type, rec))
					mu.Unlock()
				}
			}()
			results[i] = e.check(ctx, r, ent)
		})
	}
	pool.StopWait()
	return results, failures
}

func (e *Engine) check(ctx context.Context, r rule.Rule, ent *rule.Entrant) rule.Result {
	c, ok := e.checkers[r.Type]
	if !ok {
		return rule.Fail(r, fmt.Sprintf(msgUnknownRuleType, r.Type))
	}
	return c.Check(ctx, r, ent)
}
