// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite while keeping the same ordering and not-found semantics

package store

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/2389/wishlist/internal/wishlist"
	"github.com/google/uuid"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	items   map[string]*wishlist.Item // keyed by item ID
	clients map[string]*OAuthClient   // keyed by client ID
	codes   map[string]*AuthCode      // keyed by code hash
	refresh map[string]*RefreshToken  // keyed by token hash
	now     func() time.Time

	// Err, when set, is returned by every method. Used to exercise
	// storage-failure paths in transport tests.
	Err error
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		items:   make(map[string]*wishlist.Item),
		clients: make(map[string]*OAuthClient),
		codes:   make(map[string]*AuthCode),
		refresh: make(map[string]*RefreshToken),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

// ListItems returns matching items ordered like SQLiteStore.
func (m *MockStore) ListItems(ctx context.Context, filter wishlist.ListFilter) ([]*wishlist.Item, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := []*wishlist.Item{}
	for _, it := range m.items {
		if matches(it, filter) {
			items = append(items, it.Clone())
		}
	}

	desc := filter.Order != wishlist.OrderAsc
	slices.SortFunc(items, func(a, b *wishlist.Item) int {
		c := compareBy(a, b, filter.Sort)
		if desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return items, nil
}

func matches(it *wishlist.Item, f wishlist.ListFilter) bool {
	return (f.Timeframe == "" || it.Timeframe == f.Timeframe) &&
		(f.Category == "" || it.Category == f.Category) &&
		(f.Status == "" || it.Status == f.Status) &&
		(f.Priority == "" || it.Priority == f.Priority) &&
		(f.DesireType == "" || it.DesireType == f.DesireType)
}

// compareBy mirrors SQLite ordering: NULL budgets sort before any value and
// priority compares as text.
func compareBy(a, b *wishlist.Item, key wishlist.SortKey) int {
	switch key {
	case wishlist.SortName:
		return strings.Compare(a.Name, b.Name)
	case wishlist.SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case wishlist.SortPriority:
		return strings.Compare(string(a.Priority), string(b.Priority))
	case wishlist.SortBudget:
		switch {
		case a.Budget == nil && b.Budget == nil:
			return 0
		case a.Budget == nil:
			return -1
		case b.Budget == nil:
			return 1
		}
		return cmp.Compare(*a.Budget, *b.Budget)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

// GetItem retrieves an item by ID.
func (m *MockStore) GetItem(ctx context.Context, id string) (*wishlist.Item, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return it.Clone(), nil
}

// CreateItem stores a new item.
func (m *MockStore) CreateItem(ctx context.Context, in wishlist.CreateInput) (*wishlist.Item, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	it := wishlist.NewItem(in)
	it.ID = uuid.New().String()
	now := m.now()
	it.CreatedAt = now
	it.UpdatedAt = now
	m.items[it.ID] = it
	return it.Clone(), nil
}

// UpdateItem applies the supplied fields.
func (m *MockStore) UpdateItem(ctx context.Context, id string, in wishlist.UpdateInput) (*wishlist.Item, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	it.Apply(in)
	if now := m.now(); now.After(it.UpdatedAt) {
		it.UpdatedAt = now
	}
	return it.Clone(), nil
}

// DeleteItem removes an item.
func (m *MockStore) DeleteItem(ctx context.Context, id string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	return nil
}

// Summarize aggregates all items.
func (m *MockStore) Summarize(ctx context.Context) (*wishlist.Summary, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	summary := wishlist.NewSummary()
	for _, it := range m.items {
		summary.Add(it)
	}
	return summary, nil
}

// CreateClient registers a client.
func (m *MockStore) CreateClient(ctx context.Context, client *OAuthClient) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *client
	c.RedirectURIs = slices.Clone(client.RedirectURIs)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	m.clients[c.ID] = &c
	return nil
}

// GetClient retrieves a client.
func (m *MockStore) GetClient(ctx context.Context, id string) (*OAuthClient, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	cp.RedirectURIs = slices.Clone(c.RedirectURIs)
	return &cp, nil
}

// SaveAuthCode stores a code.
func (m *MockStore) SaveAuthCode(ctx context.Context, code *AuthCode) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *code
	m.codes[c.CodeHash] = &c
	return nil
}

// ConsumeAuthCode removes and returns a code.
func (m *MockStore) ConsumeAuthCode(ctx context.Context, codeHash string) (*AuthCode, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.codes[codeHash]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.codes, codeHash)
	if err := checkExpiry(c.ExpiresAt, m.now()); err != nil {
		return nil, err
	}
	return c, nil
}

// SaveRefreshToken stores a refresh token.
func (m *MockStore) SaveRefreshToken(ctx context.Context, token *RefreshToken) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t := *token
	m.refresh[t.TokenHash] = &t
	return nil
}

// ConsumeRefreshToken removes and returns a refresh token.
func (m *MockStore) ConsumeRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.refresh[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	delete(m.refresh, tokenHash)
	if err := checkExpiry(t.ExpiresAt, m.now()); err != nil {
		return nil, err
	}
	return t, nil
}

// Ping reports Err when set.
func (m *MockStore) Ping(ctx context.Context) error {
	return m.Err
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}

// Compile-time interface checks
var (
	_ Store      = (*MockStore)(nil)
	_ Store      = (*SQLiteStore)(nil)
	_ GrantStore = (*RedisGrantStore)(nil)
)
