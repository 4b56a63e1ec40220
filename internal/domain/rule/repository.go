package rule

import (
	"context"
	"errors"
)

// ErrNotFound is returned when an owner or user does not exist.
var ErrNotFound = errors.New("not found")

// OwnerKind is the kind of entity that carries entry rules.
type OwnerKind string

const (
	OwnerGiveaway    OwnerKind = "giveaway"
	OwnerPresale     OwnerKind = "presale"
	OwnerApplication OwnerKind = "application"
)

// Owner identifies an entity carrying an ordered rule list.
type Owner struct {
	Kind OwnerKind
	ID   string
}

// Repository loads rule definitions in their configured order.
// It returns ErrNotFound when the owner does not exist.
type Repository interface {
	ListByOwner(ctx context.Context, owner Owner) ([]Rule, error)
}

// EntrantRepository loads users with linked accounts and wallets.
// It returns ErrNotFound for unknown users.
type EntrantRepository interface {
	GetEntrant(ctx context.Context, userID string) (*Entrant, error)
}

// TokenStore persists refreshed OAuth credentials of a linked account.
type TokenStore interface {
	UpdateTokens(ctx context.Context, accountID, accessToken, refreshToken string) error
}
