package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/open-builders/giveaway-rules/internal/domain/rule"
)

// ownerTables maps owner kinds to the table holding the owning entity.
var ownerTables = map[rule.OwnerKind]string{
	rule.OwnerGiveaway:    "giveaways",
	rule.OwnerPresale:     "presales",
	rule.OwnerApplication: "applications",
}

// RuleRepository reads entry rules stored as typed JSONB payloads in entry_rules.
type RuleRepository struct {
	db *sql.DB
}

func NewRuleRepository(db *sql.DB) *RuleRepository { return &RuleRepository{db: db} }

// ListByOwner returns the owner's rules ordered by position.
func (r *RuleRepository) ListByOwner(ctx context.Context, owner rule.Owner) ([]rule.Rule, error) {
	table, ok := ownerTables[owner.Kind]
	if !ok {
		return nil, fmt.Errorf("unknown rule owner kind %q", owner.Kind)
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM `+table+` WHERE id = $1)`, owner.ID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check %s %s: %w", owner.Kind, owner.ID, err)
	}
	if !exists {
		return nil, rule.ErrNotFound
	}

	const q = `
SELECT id, type, payload
FROM entry_rules
WHERE owner_kind = $1 AND owner_id = $2
ORDER BY position ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, q, string(owner.Kind), owner.ID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	out := make([]rule.Rule, 0, 4)
	for rows.Next() {
		var (
			id, typ string
			payload []byte
		)
		if err := rows.Scan(&id, &typ, &payload); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rl, err := decodeRule(id, rule.Type(typ), payload)
		if err != nil {
			return nil, err
		}
		out = append(out, rl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return out, nil
}

// decodeRule fills the payload field matching typ. Unknown types are returned
// without a payload so the engine can report them.
func decodeRule(id string, typ rule.Type, payload []byte) (rule.Rule, error) {
	rl := rule.Rule{ID: id, Type: typ}
	if len(payload) == 0 {
		return rl, nil
	}
	var target any
	switch typ {
	case rule.TypeDiscordGuild:
		rl.DiscordGuild = &rule.DiscordGuildRule{}
		target = rl.DiscordGuild
	case rule.TypeDiscordRole:
		rl.DiscordRole = &rule.DiscordRoleRule{}
		target = rl.DiscordRole
	case rule.TypeTwitterFriendship:
		rl.TwitterFriendship = &rule.TwitterFriendshipRule{}
		target = rl.TwitterFriendship
	case rule.TypeTwitterTweet:
		rl.TwitterTweet = &rule.TwitterTweetRule{}
		target = rl.TwitterTweet
	case rule.TypeMinimumBalance:
		rl.MinimumBalance = &rule.MinimumBalanceRule{}
		target = rl.MinimumBalance
	case rule.TypeOwnNFT:
		rl.OwnNFT = &rule.OwnNFTRule{}
		target = rl.OwnNFT
	default:
		return rl, nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return rule.Rule{}, fmt.Errorf("decode rule %s payload: %w", id, err)
	}
	switch {
	case rl.MinimumBalance != nil:
		rl.MinimumBalance.Chain = rl.MinimumBalance.Chain.Normalize()
	case rl.OwnNFT != nil:
		rl.OwnNFT.Chain = rl.OwnNFT.Chain.Normalize()
	}
	return rl, nil
}
