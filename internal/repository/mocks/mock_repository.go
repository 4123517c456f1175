// Package mocks provides in-memory implementations of the repository
// interfaces for service tests.
package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/LsSens/backend-erp/internal/domain"
	"github.com/LsSens/backend-erp/internal/repository"
	appErrors "github.com/LsSens/backend-erp/pkg/errors"
)

// failures holds per-method injected errors and call counts.
type failures struct {
	mu           sync.RWMutex
	shouldFailOn map[string]error
	calls        map[string]int
}

func (f *failures) init() {
	f.shouldFailOn = make(map[string]error)
	f.calls = make(map[string]int)
}

// SetError configures the mock to return err from method.
func (f *failures) SetError(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shouldFailOn[method] = err
}

// ClearErrors removes all configured errors.
func (f *failures) ClearErrors() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shouldFailOn = make(map[string]error)
}

// Calls reports how many times method was invoked.
func (f *failures) Calls(method string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls[method]
}

func (f *failures) enter(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	return f.shouldFailOn[method]
}

// MockUserRepository keeps users in a map keyed by id.
type MockUserRepository struct {
	failures
	users map[string]domain.User
}

var _ repository.UserRepository = (*MockUserRepository)(nil)

// NewMockUserRepository creates an empty user store.
func NewMockUserRepository() *MockUserRepository {
	m := &MockUserRepository{users: make(map[string]domain.User)}
	m.init()
	return m
}

// Seed stores users directly, bypassing uniqueness checks.
func (m *MockUserRepository) Seed(users ...domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range users {
		m.users[u.ID] = u
	}
}

// Len reports how many users are stored.
func (m *MockUserRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users)
}

func (m *MockUserRepository) Create(ctx context.Context, user domain.User) error {
	if err := m.enter("Create"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == user.Email {
			return appErrors.NewConflictError("User with this email already exists")
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if err := m.enter("GetByID"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := m.enter("GetByEmail"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, nil
}

// List returns every user ordered by id, ignoring the token.
func (m *MockUserRepository) List(ctx context.Context, limit int, token string) (repository.Page[domain.User], error) {
	if err := m.enter("List"); err != nil {
		return repository.Page[domain.User]{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		items = append(items, u)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return repository.Page[domain.User]{Items: items}, nil
}

func (m *MockUserRepository) Update(ctx context.Context, id string, changes repository.UserChanges) (*domain.User, error) {
	if err := m.enter("Update"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, appErrors.NewNotFoundError("User")
	}
	if changes.Name != nil {
		u.Name = *changes.Name
	}
	if changes.Role != nil {
		u.Role = *changes.Role
	}
	if changes.IsActive != nil {
		u.IsActive = *changes.IsActive
	}
	if changes.UpdatedAt != "" {
		u.UpdatedAt = changes.UpdatedAt
	}
	m.users[id] = u
	return &u, nil
}

func (m *MockUserRepository) Delete(ctx context.Context, user domain.User) error {
	if err := m.enter("Delete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, user.ID)
	return nil
}

// MockIntegrationRepository keeps integrations in a map keyed by their
// composite reference.
type MockIntegrationRepository struct {
	failures
	items map[string]domain.MarketplaceIntegration
}

var _ repository.IntegrationRepository = (*MockIntegrationRepository)(nil)

// NewMockIntegrationRepository creates an empty integration store.
func NewMockIntegrationRepository() *MockIntegrationRepository {
	m := &MockIntegrationRepository{items: make(map[string]domain.MarketplaceIntegration)}
	m.init()
	return m
}

// Seed stores integrations directly.
func (m *MockIntegrationRepository) Seed(items ...domain.MarketplaceIntegration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, it := range items {
		m.items[it.Key().String()] = it
	}
}

// Len reports how many integrations are stored.
func (m *MockIntegrationRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *MockIntegrationRepository) Create(ctx context.Context, integration domain.MarketplaceIntegration) error {
	if err := m.enter("Create"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[integration.Key().String()] = integration
	return nil
}

func (m *MockIntegrationRepository) Get(ctx context.Context, key domain.IntegrationKey) (*domain.MarketplaceIntegration, error) {
	if err := m.enter("Get"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.items[key.String()]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (m *MockIntegrationRepository) filter(method string, keep func(domain.MarketplaceIntegration) bool) ([]domain.MarketplaceIntegration, error) {
	if err := m.enter(method); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.MarketplaceIntegration
	for _, it := range m.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.Compare(out[i].Key().String(), out[j].Key().String()) < 0
	})
	return out, nil
}

func (m *MockIntegrationRepository) ListByUser(ctx context.Context, userID string) ([]domain.MarketplaceIntegration, error) {
	return m.filter("ListByUser", func(it domain.MarketplaceIntegration) bool {
		return it.UserID == userID
	})
}

func (m *MockIntegrationRepository) ListByUserAndType(ctx context.Context, userID string, marketplaceType domain.MarketplaceType) ([]domain.MarketplaceIntegration, error) {
	return m.filter("ListByUserAndType", func(it domain.MarketplaceIntegration) bool {
		return it.UserID == userID && it.MarketplaceType == marketplaceType
	})
}

func (m *MockIntegrationRepository) ListByType(ctx context.Context, marketplaceType domain.MarketplaceType) ([]domain.MarketplaceIntegration, error) {
	return m.filter("ListByType", func(it domain.MarketplaceIntegration) bool {
		return it.MarketplaceType == marketplaceType
	})
}

// ListByStatus matches on the stored status, the same value the GSI2 key
// would be derived from.
func (m *MockIntegrationRepository) ListByStatus(ctx context.Context, status domain.IntegrationStatus) ([]domain.MarketplaceIntegration, error) {
	return m.filter("ListByStatus", func(it domain.MarketplaceIntegration) bool {
		return it.Status == status
	})
}

func (m *MockIntegrationRepository) List(ctx context.Context, limit int, token string) (repository.Page[domain.MarketplaceIntegration], error) {
	items, err := m.filter("List", func(domain.MarketplaceIntegration) bool { return true })
	if err != nil {
		return repository.Page[domain.MarketplaceIntegration]{}, err
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return repository.Page[domain.MarketplaceIntegration]{Items: items}, nil
}

func (m *MockIntegrationRepository) Update(ctx context.Context, key domain.IntegrationKey, changes repository.IntegrationChanges) (*domain.MarketplaceIntegration, error) {
	if err := m.enter("Update"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key.String()]
	if !ok {
		return nil, appErrors.NewNotFoundError("Marketplace integration")
	}
	if changes.Status != nil && (changes.StatusIndexKey == nil || *changes.StatusIndexKey != repository.StatusIndexKey(*changes.Status)) {
		return nil, appErrors.NewInternalError("status changed without its index key")
	}
	if changes.AccessToken != nil {
		it.AccessToken = *changes.AccessToken
	}
	if changes.RefreshToken != nil {
		it.RefreshToken = *changes.RefreshToken
	}
	if changes.SellerID != nil {
		it.SellerID = *changes.SellerID
	}
	if changes.StoreName != nil {
		it.StoreName = *changes.StoreName
	}
	if changes.Status != nil {
		it.Status = *changes.Status
	}
	if changes.LastSyncAt != nil {
		it.LastSyncAt = *changes.LastSyncAt
	}
	if changes.ErrorMessage != nil {
		it.ErrorMessage = *changes.ErrorMessage
	}
	if changes.UpdatedAt != "" {
		it.UpdatedAt = changes.UpdatedAt
	}
	m.items[key.String()] = it
	return &it, nil
}

func (m *MockIntegrationRepository) Delete(ctx context.Context, key domain.IntegrationKey) error {
	if err := m.enter("Delete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key.String())
	return nil
}
