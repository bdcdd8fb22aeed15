package storage

import (
	"context"
	"fmt"
	"leads/internal/models"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage implements Storage with in-memory maps. Data is lost on
// restart; use it for development and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	users   map[string]*models.User // keyed by normalized email
	buyers  map[string]*models.Buyer
	history map[string][]*models.BuyerHistory // keyed by buyer ID
}

// NewMemoryStorage creates a new memory-based storage instance
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		users:   make(map[string]*models.User),
		buyers:  make(map[string]*models.Buyer),
		history: make(map[string][]*models.BuyerHistory),
	}
}

func (m *MemoryStorage) FindOrCreateUserByEmail(_ context.Context, email, name string) (*models.User, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[email]; ok {
		uc := *u
		return &uc, nil
	}
	u := &models.User{
		ID:        uuid.New().String(),
		Email:     email,
		Name:      models.DisplayNameFallback(name, email),
		CreatedAt: time.Now().UTC(),
	}
	m.users[email] = u
	uc := *u
	return &uc, nil
}

func (m *MemoryStorage) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[models.NormalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	uc := *u
	return &uc, nil
}

func (m *MemoryStorage) UpsertUser(_ context.Context, user *models.User) (*models.User, error) {
	email := models.NormalizeEmail(user.Email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.users[email]
	if !ok {
		stored = &models.User{
			ID:        user.ID,
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
		if stored.ID == "" {
			stored.ID = uuid.New().String()
		}
		m.users[email] = stored
	}
	stored.Name = models.DisplayNameFallback(user.Name, email)
	stored.IsAdmin = user.IsAdmin

	uc := *stored
	return &uc, nil
}

func (m *MemoryStorage) CreateBuyer(_ context.Context, buyer *models.Buyer, history *models.BuyerHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.buyers[buyer.ID]; exists {
		return fmt.Errorf("buyer %s: %w", buyer.ID, ErrConflict)
	}
	m.buyers[buyer.ID] = copyBuyer(buyer)
	if history != nil {
		hc := *history
		m.history[buyer.ID] = append(m.history[buyer.ID], &hc)
	}
	return nil
}

func (m *MemoryStorage) GetBuyer(_ context.Context, id string) (*models.Buyer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.buyers[id]
	if !ok {
		return nil, fmt.Errorf("buyer %s: %w", id, ErrNotFound)
	}
	return copyBuyer(b), nil
}

func (m *MemoryStorage) ListBuyers(_ context.Context, filter models.ListBuyersRequest) ([]*models.Buyer, int, error) {
	m.mu.RLock()
	matched := make([]*models.Buyer, 0, len(m.buyers))
	for _, b := range m.buyers {
		if matchesFilter(b, filter) {
			matched = append(matched, copyBuyer(b))
		}
	}
	m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	total := len(matched)
	start := min(filter.Offset(), total)
	end := total
	if filter.PageSize > 0 {
		end = min(start+filter.PageSize, total)
	}
	return matched[start:end], total, nil
}

func (m *MemoryStorage) BuyerHistory(_ context.Context, buyerID string) ([]*models.BuyerHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.history[buyerID]
	result := make([]*models.BuyerHistory, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		hc := *entries[i]
		result = append(result, &hc)
	}
	return result, nil
}

func (m *MemoryStorage) Ping(context.Context) error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func matchesFilter(b *models.Buyer, f models.ListBuyersRequest) bool {
	if f.City != "" && b.City != f.City {
		return false
	}
	if f.PropertyType != "" && b.PropertyType != f.PropertyType {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.Timeline != "" && b.Timeline != f.Timeline {
		return false
	}
	if f.Query == "" {
		return true
	}
	q := strings.ToLower(f.Query)
	containsFold := func(s *string) bool {
		return s != nil && strings.Contains(strings.ToLower(*s), q)
	}
	return strings.Contains(strings.ToLower(b.FullName), q) ||
		containsFold(b.Email) ||
		strings.Contains(b.Phone, f.Query) ||
		containsFold(b.Notes)
}

func copyBuyer(b *models.Buyer) *models.Buyer {
	bc := *b
	bc.Tags = slices.Clone(b.Tags)
	if bc.Tags == nil {
		bc.Tags = []string{}
	}
	return &bc
}
