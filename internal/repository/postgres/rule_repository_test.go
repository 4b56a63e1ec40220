package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-builders/giveaway-rules/internal/domain/rule"
)

func TestDecodeRule(t *testing.T) {
	r, err := decodeRule("r1", rule.TypeDiscordRole, []byte(`{
		"guild_id": "g1",
		"guild_name": "Builders",
		"roles": [{"role_id": "A", "role_name": "OG", "type": "HAVE_ROLE", "multiplier": 3}]
	}`))
	require.NoError(t, err)
	require.NotNil(t, r.DiscordRole)
	assert.Nil(t, r.DiscordGuild)
	assert.Equal(t, 3, r.DiscordRole.Roles[0].Multiplier)
	assert.Equal(t, rule.RoleHave, r.DiscordRole.Roles[0].Kind)

	r, err = decodeRule("r2", rule.TypeMinimumBalance, []byte(`{"chain":"ETHEREUM","token_address":"0xabc","min_amount":"12.5"}`))
	require.NoError(t, err)
	assert.Equal(t, "12.5", r.MinimumBalance.MinAmount.String())

	r, err = decodeRule("r2b", rule.TypeOwnNFT, []byte(`{"chain":"solana","collection_address":"CollX"}`))
	require.NoError(t, err)
	assert.Equal(t, rule.ChainSolana, r.OwnNFT.Chain)

	r, err = decodeRule("r3", "SOMETHING_ELSE", []byte(`{"x":1}`))
	require.NoError(t, err)
	assert.Equal(t, rule.Type("SOMETHING_ELSE"), r.Type)

	_, err = decodeRule("r4", rule.TypeOwnNFT, []byte(`{"chain":`))
	require.ErrorContains(t, err, "decode rule r4 payload")
}

func TestListByOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRuleRepository(db)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM presales WHERE id = \$1\)`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT id, type, payload\s+FROM entry_rules`).
		WithArgs("presale", "p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "type", "payload"}).
			AddRow("r1", "DISCORD_GUILD", []byte(`{"guild_id":"g1","guild_name":"Builders"}`)).
			AddRow("r2", "TWITTER_TWEET", []byte(`{"tweet_id":"99","actions":["LIKE"]}`)))

	rules, err := repo.ListByOwner(context.Background(), rule.Owner{Kind: rule.OwnerPresale, ID: "p1"})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "g1", rules[0].DiscordGuild.GuildID)
	assert.Equal(t, []rule.TweetAction{rule.TweetActionLike}, rules[1].TwitterTweet.Actions)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListByOwnerMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRuleRepository(db)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM giveaways`).
		WithArgs("g404").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err = repo.ListByOwner(context.Background(), rule.Owner{Kind: rule.OwnerGiveaway, ID: "g404"})
	require.ErrorIs(t, err, rule.ErrNotFound)

	_, err = repo.ListByOwner(context.Background(), rule.Owner{Kind: "raffle", ID: "x"})
	require.ErrorContains(t, err, "unknown rule owner kind")
	require.NoError(t, mock.ExpectationsWereMet())
}
