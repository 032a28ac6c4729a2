package farm

import (
	"math/big"
)

// Transfer moves the asset between external accounts and ledger custody.
// Both calls resolve synchronously; a returned error means nothing moved.
type Transfer interface {
	// Pull moves amount from the account into ledger custody.
	Pull(asset string, from string, amount *big.Int) error
	// Push moves amount out of ledger custody to the account.
	Push(asset string, to string, amount *big.Int) error
}

// Authorizer gates administrative operations.
type Authorizer interface {
	IsAdministrator(account string) bool
}

// StaticAuthorizer authorizes a fixed set of administrator accounts.
type StaticAuthorizer struct {
	admins map[string]bool
}

func NewStaticAuthorizer(admins ...string) *StaticAuthorizer {
	m := make(map[string]bool, len(admins))
	for _, a := range admins {
		m[a] = true
	}
	return &StaticAuthorizer{admins: m}
}

func (a *StaticAuthorizer) IsAdministrator(account string) bool {
	return a.admins[account]
}

// EventListener receives ledger notifications. Listeners are invoked after
// the operation commits, outside the ledger lock.
type EventListener interface {
	OnRewardPaid(account string, amount *big.Int)
}
