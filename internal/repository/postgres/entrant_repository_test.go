package postgres

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-builders/giveaway-rules/internal/domain/rule"
)

func TestGetEntrant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewEntrantRepository(db)

	mock.ExpectQuery(`SELECT id FROM users WHERE id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1"))
	mock.ExpectQuery(`FROM linked_accounts`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "provider", "external_id", "username", "access_token", "refresh_token"}).
			AddRow("a1", "u1", "DISCORD", "d-1", "entrant", "tok", "ref").
			AddRow("a2", "u1", "TWITTER", "t-1", "entrant", "", nil))
	mock.ExpectQuery(`FROM wallets`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "address", "chain", "is_default"}).
			AddRow("w1", "u1", "So1", "SOLANA", true))

	e, err := repo.GetEntrant(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, e.Accounts, 2)
	d := e.Account(rule.ProviderDiscord)
	require.NotNil(t, d)
	assert.Equal(t, "tok", d.AccessToken)
	require.NotNil(t, d.RefreshToken)
	assert.Equal(t, "ref", *d.RefreshToken)
	assert.Nil(t, e.Account(rule.ProviderTwitter).RefreshToken)
	assert.Equal(t, []rule.Wallet{{ID: "w1", UserID: "u1", Address: "So1", Chain: rule.ChainSolana, IsDefault: true}}, e.Wallets)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetEntrantUnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT id FROM users`).WithArgs("nobody").WillReturnError(sql.ErrNoRows)

	_, err = NewEntrantRepository(db).GetEntrant(context.Background(), "nobody")
	require.ErrorIs(t, err, rule.ErrNotFound)
}

func TestUpdateTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewEntrantRepository(db)

	mock.ExpectExec(`UPDATE linked_accounts SET access_token`).
		WithArgs("a1", "new", "ref2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE linked_accounts SET access_token`).
		WithArgs("gone", "new", "ref2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateTokens(context.Background(), "a1", "new", "ref2"))
	require.ErrorIs(t, repo.UpdateTokens(context.Background(), "gone", "new", "ref2"), rule.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
