package rules

import (
	"context"

	"github.com/open-builders/giveaway-rules/internal/domain/rule"
)

// TwitterFriendshipChecker only requires a linked Twitter account.
// TODO: verify FOLLOW/FOLLOWED_BY/NOTIFICATIONS_ON once product confirms these are enforced.
var TwitterFriendshipChecker = CheckerFunc(func(_ context.Context, r rule.Rule, e *rule.Entrant) rule.Result {
	if r.TwitterFriendship == nil {
		return rule.Pass(r)
	}
	return requireTwitter(r, e)
})

// TwitterTweetChecker only requires a linked Twitter account.
// TODO: verify LIKE/RETWEET/QUOTE once product confirms these are enforced.
var TwitterTweetChecker = CheckerFunc(func(_ context.Context, r rule.Rule, e *rule.Entrant) rule.Result {
	if r.TwitterTweet == nil {
		return rule.Pass(r)
	}
	return requireTwitter(r, e)
})

func requireTwitter(r rule.Rule, e *rule.Entrant) rule.Result {
	if e.Account(rule.ProviderTwitter) == nil {
		return rule.Fail(r, msgConnectTwitter)
	}
	return rule.Pass(r)
}
