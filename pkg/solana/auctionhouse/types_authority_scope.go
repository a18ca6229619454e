package auctionhouse

import (
	"strings"
)

// AuthorityScope is an operation a delegated auctioneer can be permitted to run
type AuthorityScope uint8

const (
	AuthorityScopeDeposit AuthorityScope = iota
	AuthorityScopeBuy
	AuthorityScopePublicBuy
	AuthorityScopeExecuteSale
	AuthorityScopeSell
	AuthorityScopeCancel
	AuthorityScopeWithdraw

	NumAuthorityScopes = 7
)

func (s AuthorityScope) String() string {
	switch s {
	case AuthorityScopeDeposit:
		return "deposit"
	case AuthorityScopeBuy:
		return "buy"
	case AuthorityScopePublicBuy:
		return "public_buy"
	case AuthorityScopeExecuteSale:
		return "execute_sale"
	case AuthorityScopeSell:
		return "sell"
	case AuthorityScopeCancel:
		return "cancel"
	case AuthorityScopeWithdraw:
		return "withdraw"
	}
	return "unknown"
}

// AuthorityScopes is a fixed size bitset where bit i grants AuthorityScope(i)
type AuthorityScopes uint8

const allAuthorityScopes = AuthorityScopes(1<<NumAuthorityScopes - 1)

func NewAuthorityScopes(scopes ...AuthorityScope) AuthorityScopes {
	var res AuthorityScopes
	for _, scope := range scopes {
		res = res.With(scope)
	}
	return res
}

func AllAuthorityScopes() AuthorityScopes {
	return allAuthorityScopes
}

func (s AuthorityScopes) Has(scope AuthorityScope) bool {
	if scope >= NumAuthorityScopes {
		return false
	}
	return s&(1<<scope) != 0
}

func (s AuthorityScopes) With(scope AuthorityScope) AuthorityScopes {
	if scope >= NumAuthorityScopes {
		return s
	}
	return s | 1<<scope
}

func (s AuthorityScopes) Without(scope AuthorityScope) AuthorityScopes {
	if scope >= NumAuthorityScopes {
		return s
	}
	return s &^ (1 << scope)
}

// Validate rejects bits outside of the defined scopes
func (s AuthorityScopes) Validate() error {
	if s&^allAuthorityScopes != 0 {
		return ErrInvalidInstructionData
	}
	return nil
}

func (s AuthorityScopes) List() []AuthorityScope {
	var res []AuthorityScope
	for i := AuthorityScope(0); i < NumAuthorityScopes; i++ {
		if s.Has(i) {
			res = append(res, i)
		}
	}
	return res
}

func (s AuthorityScopes) String() string {
	var names []string
	for _, scope := range s.List() {
		names = append(names, scope.String())
	}
	return "[" + strings.Join(names, ",") + "]"
}

// ParseAuthorityScope is the inverse of AuthorityScope.String
func ParseAuthorityScope(value string) (AuthorityScope, bool) {
	for i := AuthorityScope(0); i < NumAuthorityScopes; i++ {
		if i.String() == value {
			return i, true
		}
	}
	return 0, false
}
