package auctionhouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorityScopes(t *testing.T) {
	scopes := NewAuthorityScopes(AuthorityScopeBuy, AuthorityScopeSell)
	assert.True(t, scopes.Has(AuthorityScopeBuy))
	assert.True(t, scopes.Has(AuthorityScopeSell))
	assert.False(t, scopes.Has(AuthorityScopeDeposit))
	assert.False(t, scopes.Has(NumAuthorityScopes))
	assert.Equal(t, "[buy,sell]", scopes.String())

	scopes = scopes.Without(AuthorityScopeBuy).With(AuthorityScopeWithdraw)
	assert.Equal(t, []AuthorityScope{AuthorityScopeSell, AuthorityScopeWithdraw}, scopes.List())

	assert.Len(t, AllAuthorityScopes().List(), NumAuthorityScopes)
	assert.NoError(t, AllAuthorityScopes().Validate())
	assert.Equal(t, ErrInvalidInstructionData, AuthorityScopes(0x80).Validate())

	for i := AuthorityScope(0); i < NumAuthorityScopes; i++ {
		parsed, ok := ParseAuthorityScope(i.String())
		assert.True(t, ok)
		assert.Equal(t, i, parsed)
	}
	_, ok := ParseAuthorityScope("unknown")
	assert.False(t, ok)
}

func TestInstructionType_Variants(t *testing.T) {
	for direct, auctioneer := range auctioneerVariants {
		v, ok := direct.AuctioneerVariant()
		assert.True(t, ok)
		assert.Equal(t, auctioneer, v)

		assert.True(t, auctioneer.IsAuctioneerVariant())
		assert.False(t, direct.IsAuctioneerVariant())
		assert.Equal(t, direct, auctioneer.Direct())

		directScope, ok := direct.Scope()
		assert.True(t, ok)
		auctioneerScope, ok := auctioneer.Scope()
		assert.True(t, ok)
		assert.Equal(t, directScope, auctioneerScope)

		assert.Equal(t, "auctioneer_"+direct.String(), auctioneer.String())
	}

	_, ok := InstructionTypeCreateAuctionHouse.AuctioneerVariant()
	assert.False(t, ok)
	_, ok = InstructionTypeDelegateAuctioneer.Scope()
	assert.False(t, ok)
	assert.Equal(t, InstructionTypeWithdrawFromFee, InstructionTypeWithdrawFromFee.Direct())
}

func TestProgramErrors(t *testing.T) {
	err, ok := GetProgramError(ErrSelfTrade.Code)
	assert.True(t, ok)
	assert.Equal(t, ErrSelfTrade, err)
	assert.Contains(t, ErrSelfTrade.Error(), "SelfTrade")

	_, ok = GetProgramError(1)
	assert.False(t, ok)
}
