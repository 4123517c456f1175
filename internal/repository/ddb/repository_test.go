package ddb

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/internal/repository"
	appErrors "github.com/LsSens/backend-erp/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordedOp struct {
	operation string
	failed    bool
}

type recordingMetrics struct {
	ops []recordedOp
}

func (m *recordingMetrics) RecordDBOperation(operation string, _ time.Duration, err error) {
	m.ops = append(m.ops, recordedOp{operation: operation, failed: err != nil})
}

func testConfig() repository.Config {
	return repository.NewConfig("erp-users", "GSI1", "GSI2")
}

func newUser(id, email string) domain.User {
	return domain.User{
		ID:        id,
		Email:     email,
		Name:      "User " + id,
		Role:      domain.RoleUser,
		IsActive:  true,
		CreatedAt: "2025-01-01T00:00:00Z",
		UpdatedAt: "2025-01-01T00:00:00Z",
	}
}

func newIntegration(id, userID string, t domain.MarketplaceType, status domain.IntegrationStatus) domain.MarketplaceIntegration {
	return domain.MarketplaceIntegration{
		ID:              id,
		UserID:          userID,
		MarketplaceType: t,
		AccessToken:     "token-" + id,
		Status:          status,
		CreatedAt:       "2025-01-01T00:00:00Z",
		UpdatedAt:       "2025-01-01T00:00:00Z",
	}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Should create and read back a user", func(t *testing.T) {
		fake := newFakeDynamo()
		repo := NewUserRepository(fake, testConfig(), zap.NewNop(), nil)

		require.NoError(t, repo.Create(ctx, newUser("u-1", "a@x.com")))

		byID, err := repo.GetByID(ctx, "u-1")
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, "a@x.com", byID.Email)
		assert.Equal(t, domain.RoleUser, byID.Role)

		byEmail, err := repo.GetByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, "u-1", byEmail.ID)
	})

	t.Run("Should return nil for a missing user", func(t *testing.T) {
		repo := NewUserRepository(newFakeDynamo(), testConfig(), nil, nil)

		user, err := repo.GetByID(ctx, "nobody")
		assert.NoError(t, err)
		assert.Nil(t, user)

		user, err = repo.GetByEmail(ctx, "nobody@x.com")
		assert.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("Should reject a second user with the same email", func(t *testing.T) {
		fake := newFakeDynamo()
		repo := NewUserRepository(fake, testConfig(), zap.NewNop(), nil)

		require.NoError(t, repo.Create(ctx, newUser("u-1", "a@x.com")))
		err := repo.Create(ctx, newUser("u-2", "a@x.com"))

		require.Error(t, err)
		assert.True(t, appErrors.IsConflict(err))
		assert.Equal(t, "User with this email already exists", appErrors.GetAppError(err).Message)

		other, err := repo.GetByID(ctx, "u-2")
		require.NoError(t, err)
		assert.Nil(t, other)
	})

	t.Run("Should update only the supplied fields", func(t *testing.T) {
		fake := newFakeDynamo()
		repo := NewUserRepository(fake, testConfig(), zap.NewNop(), nil)
		require.NoError(t, repo.Create(ctx, newUser("u-1", "a@x.com")))

		role := domain.RoleManager
		updated, err := repo.Update(ctx, "u-1", repository.UserChanges{Role: &role, UpdatedAt: "2025-02-01T00:00:00Z"})
		require.NoError(t, err)

		assert.Equal(t, domain.RoleManager, updated.Role)
		assert.Equal(t, "User u-1", updated.Name)
		assert.True(t, updated.IsActive)
		assert.Equal(t, "2025-02-01T00:00:00Z", updated.UpdatedAt)
		assert.Equal(t, "2025-01-01T00:00:00Z", updated.CreatedAt)
	})

	t.Run("Should not create a user when updating a missing id", func(t *testing.T) {
		fake := newFakeDynamo()
		repo := NewUserRepository(fake, testConfig(), zap.NewNop(), nil)

		name := "Ghost"
		_, err := repo.Update(ctx, "ghost", repository.UserChanges{Name: &name, UpdatedAt: "2025-02-01T00:00:00Z"})

		require.Error(t, err)
		assert.True(t, appErrors.IsNotFound(err))
		assert.Equal(t, "User not found", appErrors.GetAppError(err).Message)
		assert.Empty(t, fake.items)
	})

	t.Run("Should refuse an update with no fields", func(t *testing.T) {
		fake := newFakeDynamo()
		repo := NewUserRepository(fake, testConfig(), zap.NewNop(), nil)

		_, err := repo.Update(ctx, "u-1", repository.UserChanges{})
		assert.ErrorIs(t, err, ErrEmptyUpdate)
		assert.Zero(t, fake.Calls("UpdateItem"))
	})

	t.Run("Should release the email on delete", func(t *testing.T) {
		fake := newFakeDynamo()
		repo := NewUserRepository(fake, testConfig(), zap.NewNop(), nil)
		user := newUser("u-1", "a@x.com")
		require.NoError(t, repo.Create(ctx, user))

		require.NoError(t, repo.Delete(ctx, user))
		assert.Empty(t, fake.items)

		assert.NoError(t, repo.Create(ctx, newUser("u-2", "a@x.com")))
	})

	t.Run("Should list only user items", func(t *testing.T) {
		fake := newFakeDynamo()
		users := NewUserRepository(fake, testConfig(), zap.NewNop(), nil)
		integrations := NewIntegrationRepository(fake, testConfig(), zap.NewNop(), nil)

		require.NoError(t, users.Create(ctx, newUser("u-1", "a@x.com")))
		require.NoError(t, users.Create(ctx, newUser("u-2", "b@x.com")))
		require.NoError(t, integrations.Create(ctx, newIntegration("i-1", "u-1", domain.MarketplaceMercadoLivre, domain.StatusActive)))

		page, err := users.List(ctx, 10, "")
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.Empty(t, page.NextToken)
	})

	t.Run("Should page through users with the continuation token", func(t *testing.T) {
		fake := newFakeDynamo()
		repo := NewUserRepository(fake, testConfig(), zap.NewNop(), nil)
		for i := 1; i <= 5; i++ {
			require.NoError(t, repo.Create(ctx, newUser(fmt.Sprintf("u-%d", i), fmt.Sprintf("%d@x.com", i))))
		}

		seen := map[string]bool{}
		token := ""
		for pages := 0; pages < 10; pages++ {
			page, err := repo.List(ctx, 2, token)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(page.Items), 2)
			for _, u := range page.Items {
				assert.False(t, seen[u.ID], "user %s listed twice", u.ID)
				seen[u.ID] = true
			}
			if page.NextToken == "" {
				break
			}
			token = page.NextToken
		}
		assert.Len(t, seen, 5)
	})

	t.Run("Should reject an invalid continuation token", func(t *testing.T) {
		fake := newFakeDynamo()
		repo := NewUserRepository(fake, testConfig(), zap.NewNop(), nil)

		_, err := repo.List(ctx, 10, "not a token")
		require.Error(t, err)
		assert.Equal(t, 400, appErrors.HTTPStatus(err))
		assert.Zero(t, fake.Calls("Scan"))
	})

	t.Run("Should wrap store failures and record them", func(t *testing.T) {
		fake := newFakeDynamo()
		metrics := &recordingMetrics{}
		repo := NewUserRepository(fake, testConfig(), zap.NewNop(), metrics)
		fake.SetError("GetItem", errInjected)

		_, err := repo.GetByID(ctx, "u-1")
		require.Error(t, err)
		assert.ErrorIs(t, err, errInjected)
		assert.False(t, appErrors.IsAppError(err))
		assert.Equal(t, []recordedOp{{operation: "GetUser", failed: true}}, metrics.ops)
	})
}

func TestIntegrationRepository(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (*fakeDynamo, *IntegrationRepository) {
		t.Helper()
		fake := newFakeDynamo()
		users := NewUserRepository(fake, testConfig(), zap.NewNop(), nil)
		repo := NewIntegrationRepository(fake, testConfig(), zap.NewNop(), nil)

		require.NoError(t, users.Create(ctx, newUser("u-1", "a@x.com")))
		require.NoError(t, users.Create(ctx, newUser("u-2", "b@x.com")))
		for _, m := range []domain.MarketplaceIntegration{
			newIntegration("i-1", "u-1", domain.MarketplaceMercadoLivre, domain.StatusActive),
			newIntegration("i-2", "u-1", domain.MarketplaceShopee, domain.StatusPending),
			newIntegration("i-3", "u-2", domain.MarketplaceMercadoLivre, domain.StatusError),
		} {
			require.NoError(t, repo.Create(ctx, m))
		}
		return fake, repo
	}

	t.Run("Should get an integration by its full key", func(t *testing.T) {
		_, repo := seed(t)

		got, err := repo.Get(ctx, domain.IntegrationKey{UserID: "u-1", MarketplaceType: domain.MarketplaceShopee, ID: "i-2"})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, domain.StatusPending, got.Status)

		missing, err := repo.Get(ctx, domain.IntegrationKey{UserID: "u-1", MarketplaceType: domain.MarketplaceAmazon, ID: "i-2"})
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("Should list an owner's integrations without the user item", func(t *testing.T) {
		_, repo := seed(t)

		items, err := repo.ListByUser(ctx, "u-1")
		require.NoError(t, err)
		require.Len(t, items, 2)
		for _, m := range items {
			assert.Equal(t, "u-1", m.UserID)
			assert.NotEmpty(t, m.MarketplaceType)
		}
	})

	t.Run("Should narrow an owner's integrations by type", func(t *testing.T) {
		_, repo := seed(t)

		items, err := repo.ListByUserAndType(ctx, "u-1", domain.MarketplaceShopee)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "i-2", items[0].ID)
	})

	t.Run("Should list a marketplace across owners", func(t *testing.T) {
		_, repo := seed(t)

		items, err := repo.ListByType(ctx, domain.MarketplaceMercadoLivre)
		require.NoError(t, err)
		ids := []string{}
		for _, m := range items {
			ids = append(ids, m.ID)
		}
		assert.ElementsMatch(t, []string{"i-1", "i-3"}, ids)
	})

	t.Run("Should find an integration by the status it was created with", func(t *testing.T) {
		_, repo := seed(t)

		for status, want := range map[domain.IntegrationStatus]string{
			domain.StatusActive:  "i-1",
			domain.StatusPending: "i-2",
			domain.StatusError:   "i-3",
		} {
			items, err := repo.ListByStatus(ctx, status)
			require.NoError(t, err)
			require.Len(t, items, 1, "status %s", status)
			assert.Equal(t, want, items[0].ID)
		}

		inactive, err := repo.ListByStatus(ctx, domain.StatusInactive)
		require.NoError(t, err)
		assert.Empty(t, inactive)
	})

	t.Run("Should move the status index with the status", func(t *testing.T) {
		_, repo := seed(t)
		key := domain.IntegrationKey{UserID: "u-1", MarketplaceType: domain.MarketplaceShopee, ID: "i-2"}

		status := domain.StatusActive
		indexKey := repository.StatusIndexKey(status)
		updated, err := repo.Update(ctx, key, repository.IntegrationChanges{
			Status:         &status,
			StatusIndexKey: &indexKey,
			UpdatedAt:      "2025-02-01T00:00:00Z",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.StatusActive, updated.Status)

		pending, err := repo.ListByStatus(ctx, domain.StatusPending)
		require.NoError(t, err)
		assert.Empty(t, pending)

		active, err := repo.ListByStatus(ctx, domain.StatusActive)
		require.NoError(t, err)
		assert.Len(t, active, 2)
	})

	t.Run("Should report a missing integration on update", func(t *testing.T) {
		fake, repo := seed(t)
		before := len(fake.items)

		token := "x"
		_, err := repo.Update(ctx,
			domain.IntegrationKey{UserID: "u-9", MarketplaceType: domain.MarketplaceAmazon, ID: "nope"},
			repository.IntegrationChanges{AccessToken: &token, UpdatedAt: "2025-02-01T00:00:00Z"})

		require.Error(t, err)
		assert.True(t, appErrors.IsNotFound(err))
		assert.Equal(t, "Marketplace integration not found", appErrors.GetAppError(err).Message)
		assert.Len(t, fake.items, before)
	})

	t.Run("Should scan only integration items", func(t *testing.T) {
		_, repo := seed(t)

		page, err := repo.List(ctx, 10, "")
		require.NoError(t, err)
		assert.Len(t, page.Items, 3)
	})

	t.Run("Should delete by key", func(t *testing.T) {
		_, repo := seed(t)
		key := domain.IntegrationKey{UserID: "u-2", MarketplaceType: domain.MarketplaceMercadoLivre, ID: "i-3"}

		require.NoError(t, repo.Delete(ctx, key))

		got, err := repo.Get(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Should wrap query failures", func(t *testing.T) {
		fake, repo := seed(t)
		fake.SetError("Query", errInjected)

		_, err := repo.ListByUser(ctx, "u-1")
		assert.ErrorIs(t, err, errInjected)
	})
}
