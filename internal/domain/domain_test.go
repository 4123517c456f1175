package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allRoles = []Role{RoleUser, RoleManager, RoleAdmin}

func TestHasPermission(t *testing.T) {
	t.Run("Should be reflexive", func(t *testing.T) {
		for _, r := range allRoles {
			assert.True(t, HasPermission(r, r), string(r))
		}
	})

	t.Run("Should let admin through every gate", func(t *testing.T) {
		for _, r := range allRoles {
			assert.True(t, HasPermission(RoleAdmin, r), string(r))
		}
	})

	t.Run("Should stop user at manager and admin gates", func(t *testing.T) {
		assert.False(t, HasPermission(RoleUser, RoleManager))
		assert.False(t, HasPermission(RoleUser, RoleAdmin))
		assert.False(t, HasPermission(RoleManager, RoleAdmin))
		assert.True(t, HasPermission(RoleManager, RoleUser))
	})

	t.Run("Should deny unknown roles", func(t *testing.T) {
		assert.False(t, HasPermission(Role("root"), RoleUser))
		assert.False(t, HasPermission(RoleAdmin, Role("")))
	})
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleManager, ParseRole("manager"))
	assert.Equal(t, RoleUser, ParseRole(""))
	assert.Equal(t, RoleUser, ParseRole("superuser"))
}

func TestEnums(t *testing.T) {
	for _, mt := range MarketplaceTypes {
		assert.True(t, mt.IsValid())
	}
	assert.False(t, MarketplaceType("ebay").IsValid())

	for _, s := range []IntegrationStatus{StatusActive, StatusInactive, StatusPending, StatusError} {
		assert.True(t, s.IsValid())
	}
	assert.False(t, IntegrationStatus("deleted").IsValid())
}

func TestParseIntegrationRef(t *testing.T) {
	want := IntegrationKey{UserID: "u-1", MarketplaceType: MarketplaceMercadoLivre, ID: "i-1"}

	t.Run("Should round trip the composite form", func(t *testing.T) {
		assert.Equal(t, "USER#u-1#MARKETPLACE#mercadolivre#i-1", want.String())

		got, err := ParseIntegrationRef(want.String())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("Should derive the key from an integration value", func(t *testing.T) {
		it := func() MarketplaceIntegration {
			return MarketplaceIntegration{ID: "i-1", UserID: "u-1", MarketplaceType: MarketplaceMercadoLivre}
		}
		assert.Equal(t, want, it().Key())
	})

	t.Run("Should accept the short form", func(t *testing.T) {
		got, err := ParseIntegrationRef("u-1:mercadolivre:i-1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	for _, bad := range []string{
		"i-1",
		"",
		"USER#u-1#MARKETPLACE#mercadolivre",
		"USER#u-1#STORE#mercadolivre#i-1",
		"USER#u-1#MARKETPLACE#ebay#i-1",
		"u-1::i-1",
		":mercadolivre:i-1",
	} {
		t.Run("Should reject "+bad, func(t *testing.T) {
			_, err := ParseIntegrationRef(bad)
			assert.ErrorIs(t, err, ErrInvalidIntegrationRef)
		})
	}
}

func TestUpdateUserInputIsEmpty(t *testing.T) {
	assert.True(t, UpdateUserInput{}.IsEmpty())
	active := false
	assert.False(t, UpdateUserInput{IsActive: &active}.IsEmpty())
}

func TestNewPage(t *testing.T) {
	t.Run("Should derive counts from the fetched items", func(t *testing.T) {
		p := NewPage([]int{1, 2, 3}, 2, 2, "tok")
		assert.Equal(t, 3, p.Total)
		assert.Equal(t, 2, p.TotalPages)
		assert.Equal(t, 2, p.Page)
		assert.Equal(t, "tok", p.NextToken)
	})

	t.Run("Should render an empty listing as an empty array", func(t *testing.T) {
		p := NewPage[int](nil, 1, 10, "")
		require.NotNil(t, p.Items)
		assert.Zero(t, p.Total)
		assert.Zero(t, p.TotalPages)
	})
}
