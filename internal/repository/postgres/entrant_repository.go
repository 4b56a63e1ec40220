package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/open-builders/giveaway-rules/internal/domain/rule"
)

// EntrantRepository loads users with their linked accounts and wallets.
type EntrantRepository struct {
	db *sql.DB
}

func NewEntrantRepository(db *sql.DB) *EntrantRepository { return &EntrantRepository{db: db} }

// GetEntrant returns rule.ErrNotFound for unknown users.
func (r *EntrantRepository) GetEntrant(ctx context.Context, userID string) (*rule.Entrant, error) {
	var id string
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE id = $1`, userID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rule.ErrNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}

	accounts, err := r.accounts(ctx, id)
	if err != nil {
		return nil, err
	}
	wallets, err := r.wallets(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rule.Entrant{UserID: id, Accounts: accounts, Wallets: wallets}, nil
}

func (r *EntrantRepository) accounts(ctx context.Context, userID string) ([]rule.LinkedAccount, error) {
	const q = `
SELECT id, user_id, provider, external_id, COALESCE(username, ''), COALESCE(access_token, ''), refresh_token
FROM linked_accounts
WHERE user_id = $1
ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list linked accounts: %w", err)
	}
	defer rows.Close()

	var out []rule.LinkedAccount
	for rows.Next() {
		var (
			a       rule.LinkedAccount
			refresh sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.Provider, &a.ExternalID, &a.Username, &a.AccessToken, &refresh); err != nil {
			return nil, fmt.Errorf("scan linked account: %w", err)
		}
		if refresh.Valid {
			a.RefreshToken = &refresh.String
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *EntrantRepository) wallets(ctx context.Context, userID string) ([]rule.Wallet, error) {
	const q = `
SELECT id, user_id, address, chain, is_default
FROM wallets
WHERE user_id = $1
ORDER BY is_default DESC, created_at ASC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	var out []rule.Wallet
	for rows.Next() {
		var w rule.Wallet
		if err := rows.Scan(&w.ID, &w.UserID, &w.Address, &w.Chain, &w.IsDefault); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// UpdateTokens stores a refreshed OAuth token pair.
func (r *EntrantRepository) UpdateTokens(ctx context.Context, accountID, accessToken, refreshToken string) error {
	const q = `UPDATE linked_accounts SET access_token = $2, refresh_token = $3, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, accountID, accessToken, refreshToken)
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update tokens: %w", err)
	}
	if n == 0 {
		return rule.ErrNotFound
	}
	return nil
}
