package rule

import "strings"

// Provider is an external OAuth identity provider.
type Provider string

const (
	ProviderDiscord Provider = "DISCORD"
	ProviderTwitter Provider = "TWITTER"
)

// Chain identifies a blockchain network a wallet or rule belongs to.
type Chain string

const (
	ChainSolana   Chain = "SOLANA"
	ChainEthereum Chain = "ETHEREUM"
	ChainTON      Chain = "TON"
)

// Normalize returns c in the canonical upper-case form.
func (c Chain) Normalize() Chain {
	return Chain(strings.ToUpper(strings.TrimSpace(string(c))))
}

// Valid reports whether c is a known chain.
func (c Chain) Valid() bool {
	switch c {
	case ChainSolana, ChainEthereum, ChainTON:
		return true
	}
	return false
}

// LinkedAccount is a user's identity on an external OAuth provider.
type LinkedAccount struct {
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	Provider     Provider `json:"provider"`
	ExternalID   string   `json:"external_id"`
	Username     string   `json:"username"`
	AccessToken  string   `json:"-"`
	RefreshToken *string  `json:"-"`
}

// Wallet is an on-chain address owned by a user.
type Wallet struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Address   string `json:"address"`
	Chain     Chain  `json:"chain"`
	IsDefault bool   `json:"is_default"`
}

// Entrant is the user being checked along with linked accounts and wallets.
type Entrant struct {
	UserID   string          `json:"user_id"`
	Accounts []LinkedAccount `json:"accounts"`
	Wallets  []Wallet        `json:"wallets"`
}

// Account returns the first linked account for provider, or nil.
func (e *Entrant) Account(provider Provider) *LinkedAccount {
	if e == nil {
		return nil
	}
	for i := range e.Accounts {
		if e.Accounts[i].Provider == provider {
			return &e.Accounts[i]
		}
	}
	return nil
}

// WalletsOn returns wallets on chain, default wallet first.
func (e *Entrant) WalletsOn(chain Chain) []Wallet {
	if e == nil {
		return nil
	}
	chain = chain.Normalize()
	var out []Wallet
	for _, w := range e.Wallets {
		if w.Chain.Normalize() != chain {
			continue
		}
		if w.IsDefault {
			out = append([]Wallet{w}, out...)
		} else {
			out = append(out, w)
		}
	}
	return out
}

// Clone returns a copy whose accounts can be mutated without touching e.
func (e *Entrant) Clone() *Entrant {
	if e == nil {
		return nil
	}
	c := &Entrant{UserID: e.UserID}
	c.Accounts = append([]LinkedAccount(nil), e.Accounts...)
	c.Wallets = append([]Wallet(nil), e.Wallets...)
	return c
}
