// ABOUTME: Shared Store contract run against SQLiteStore and MockStore
// ABOUTME: Keeps the in-memory mock faithful to SQLite ordering, defaults and not-found semantics

package store

import (
	"context"
	"testing"
	"time"

	"github.com/2389/wishlist/internal/wishlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (m *MockStore) setNow(f func() time.Time) { m.now = f }

type contractStore interface {
	Store
	setNow(func() time.Time)
}

// fakeClock returns a clock that advances one second per call.
func fakeClock(start time.Time) func() time.Time {
	cur := start.Add(-time.Second)
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func ptr[T any](v T) *T { return &v }

func headphones() wishlist.CreateInput {
	return wishlist.CreateInput{
		Name:      "Headphones",
		Timeframe: wishlist.TimeframeShort,
		Category:  wishlist.CategoryGadgets,
		Priority:  wishlist.PriorityHigh,
	}
}

func runStoreContract(t *testing.T, newStore func(t *testing.T) contractStore) {
	ctx := context.Background()
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("create applies defaults", func(t *testing.T) {
		s := newStore(t)
		item, err := s.CreateItem(ctx, headphones())
		require.NoError(t, err)

		assert.NotEmpty(t, item.ID)
		assert.Equal(t, wishlist.StatusUnstarted, item.Status)
		assert.Equal(t, wishlist.DesireGeneralImage, item.DesireType)
		assert.Nil(t, item.Budget)
		assert.Nil(t, item.Memo)
		assert.Equal(t, item.CreatedAt, item.UpdatedAt)
	})

	t.Run("create assigns unique ids", func(t *testing.T) {
		s := newStore(t)
		seen := map[string]bool{}
		for i := 0; i < 20; i++ {
			item, err := s.CreateItem(ctx, headphones())
			require.NoError(t, err)
			assert.False(t, seen[item.ID], "duplicate id %s", item.ID)
			seen[item.ID] = true
		}
	})

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetItem(ctx, "does-not-exist")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("get round trip", func(t *testing.T) {
		s := newStore(t)
		in := headphones()
		in.Budget = ptr(int64(30000))
		in.Memo = ptr("noise cancelling")
		in.DesireType = wishlist.DesireSpecificProduct
		created, err := s.CreateItem(ctx, in)
		require.NoError(t, err)

		got, err := s.GetItem(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)
	})

	t.Run("update changes only supplied fields", func(t *testing.T) {
		s := newStore(t)
		s.setNow(fakeClock(start))
		in := headphones()
		in.Budget = ptr(int64(100))
		in.Memo = ptr("keep me")
		created, err := s.CreateItem(ctx, in)
		require.NoError(t, err)

		updated, err := s.UpdateItem(ctx, created.ID, wishlist.UpdateInput{
			Status: ptr(wishlist.StatusPurchased),
			Budget: wishlist.Null[int64](),
		})
		require.NoError(t, err)

		assert.Equal(t, wishlist.StatusPurchased, updated.Status)
		assert.Nil(t, updated.Budget)
		require.NotNil(t, updated.Memo)
		assert.Equal(t, "keep me", *updated.Memo)
		assert.Equal(t, created.Name, updated.Name)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

		got, err := s.GetItem(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, updated, got)
	})

	t.Run("update never moves updatedAt backwards", func(t *testing.T) {
		s := newStore(t)
		s.setNow(func() time.Time { return start })
		created, err := s.CreateItem(ctx, headphones())
		require.NoError(t, err)

		s.setNow(func() time.Time { return start.Add(-time.Hour) })
		updated, err := s.UpdateItem(ctx, created.ID, wishlist.UpdateInput{Name: ptr("Earbuds")})
		require.NoError(t, err)
		assert.Equal(t, created.UpdatedAt, updated.UpdatedAt)
	})

	t.Run("update missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.UpdateItem(ctx, "nope", wishlist.UpdateInput{Name: ptr("x")})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		created, err := s.CreateItem(ctx, headphones())
		require.NoError(t, err)

		require.NoError(t, s.DeleteItem(ctx, created.ID))
		_, err = s.GetItem(ctx, created.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, s.DeleteItem(ctx, created.ID), ErrNotFound)

		_, err = s.UpdateItem(ctx, created.ID, wishlist.UpdateInput{Name: ptr("ghost")})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list filters and sorts", func(t *testing.T) {
		s := newStore(t)
		s.setNow(fakeClock(start))

		mk := func(name string, cat wishlist.Category, budget *int64, pr wishlist.Priority) *wishlist.Item {
			item, err := s.CreateItem(ctx, wishlist.CreateInput{
				Name: name, Timeframe: wishlist.TimeframeMedium, Category: cat, Priority: pr, Budget: budget,
			})
			require.NoError(t, err)
			return item
		}
		watch := mk("Watch", wishlist.CategoryGadgets, ptr(int64(500)), wishlist.PriorityMedium)
		drone := mk("Drone", wishlist.CategoryGadgets, ptr(int64(200)), wishlist.PriorityHigh)
		lamp := mk("Lamp", wishlist.CategoryGadgets, nil, wishlist.PriorityLow)
		trip := mk("Trip", wishlist.CategoryExperiences, ptr(int64(900)), wishlist.PriorityHigh)

		all, err := s.ListItems(ctx, wishlist.ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{trip.ID, lamp.ID, drone.ID, watch.ID}, ids(all), "default is createdAt desc")

		gadgets, err := s.ListItems(ctx, wishlist.ListFilter{Category: wishlist.CategoryGadgets, Sort: wishlist.SortBudget, Order: wishlist.OrderAsc})
		require.NoError(t, err)
		assert.Equal(t, []string{lamp.ID, drone.ID, watch.ID}, ids(gadgets), "null budget first ascending")

		byBudgetDesc, err := s.ListItems(ctx, wishlist.ListFilter{Sort: wishlist.SortBudget, Order: wishlist.OrderDesc})
		require.NoError(t, err)
		assert.Equal(t, []string{trip.ID, watch.ID, drone.ID, lamp.ID}, ids(byBudgetDesc))

		byName, err := s.ListItems(ctx, wishlist.ListFilter{Sort: wishlist.SortName, Order: wishlist.OrderAsc})
		require.NoError(t, err)
		assert.Equal(t, []string{drone.ID, lamp.ID, trip.ID, watch.ID}, ids(byName))

		byPriority, err := s.ListItems(ctx, wishlist.ListFilter{Sort: wishlist.SortPriority, Order: wishlist.OrderAsc})
		require.NoError(t, err)
		require.Len(t, byPriority, 4)
		assert.Equal(t, wishlist.PriorityHigh, byPriority[0].Priority, "priority sorts as text")
		assert.Equal(t, wishlist.PriorityMedium, byPriority[3].Priority)

		highGadgets, err := s.ListItems(ctx, wishlist.ListFilter{Category: wishlist.CategoryGadgets, Priority: wishlist.PriorityHigh})
		require.NoError(t, err)
		assert.Equal(t, []string{drone.ID}, ids(highGadgets))

		none, err := s.ListItems(ctx, wishlist.ListFilter{Status: wishlist.StatusPurchased})
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("list ties broken by id", func(t *testing.T) {
		s := newStore(t)
		s.setNow(func() time.Time { return start })
		for i := 0; i < 5; i++ {
			_, err := s.CreateItem(ctx, headphones())
			require.NoError(t, err)
		}
		items, err := s.ListItems(ctx, wishlist.ListFilter{Sort: wishlist.SortCreatedAt, Order: wishlist.OrderDesc})
		require.NoError(t, err)
		got := ids(items)
		for i := 1; i < len(got); i++ {
			assert.Less(t, got[i-1], got[i])
		}
	})

	t.Run("summarize matches list", func(t *testing.T) {
		s := newStore(t)
		for _, in := range []wishlist.CreateInput{
			{Name: "a", Timeframe: wishlist.TimeframeShort, Category: wishlist.CategoryGadgets, Priority: wishlist.PriorityHigh, Budget: ptr(int64(100))},
			{Name: "b", Timeframe: wishlist.TimeframeShort, Category: wishlist.CategorySkills, Priority: wishlist.PriorityLow, Budget: ptr(int64(50))},
			{Name: "c", Timeframe: wishlist.TimeframeLong, Category: wishlist.CategoryGadgets, Priority: wishlist.PriorityHigh},
		} {
			_, err := s.CreateItem(ctx, in)
			require.NoError(t, err)
		}

		summary, err := s.Summarize(ctx)
		require.NoError(t, err)
		all, err := s.ListItems(ctx, wishlist.ListFilter{})
		require.NoError(t, err)
		assert.Equal(t, wishlist.Summarize(all), summary)
		assert.Equal(t, 3, summary.TotalItems)
		assert.Equal(t, int64(150), summary.TotalBudget)
		assert.NotContains(t, summary.ByTimeframe, "medium-term")
	})

	t.Run("summarize empty", func(t *testing.T) {
		s := newStore(t)
		summary, err := s.Summarize(ctx)
		require.NoError(t, err)
		assert.Zero(t, summary.TotalItems)
		assert.Empty(t, summary.ByStatus)
	})

	t.Run("clients", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetClient(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)

		client := &OAuthClient{ID: "client-1", Name: "Claude", RedirectURIs: []string{"https://claude.ai/api/mcp/auth_callback"}}
		require.NoError(t, s.CreateClient(ctx, client))

		got, err := s.GetClient(ctx, "client-1")
		require.NoError(t, err)
		assert.Equal(t, "Claude", got.Name)
		assert.True(t, got.Public())
		assert.True(t, got.HasRedirectURI("https://claude.ai/api/mcp/auth_callback"))
		assert.False(t, got.HasRedirectURI("https://claude.ai/other"))
	})

	t.Run("auth codes are single use", func(t *testing.T) {
		s := newStore(t)
		s.setNow(func() time.Time { return start })
		code := &AuthCode{
			CodeHash: "h1", ClientID: "c", RedirectURI: "https://claude.ai/cb", UserID: "owner",
			Scope: []string{"wishlist"}, CodeChallenge: "abc", CodeChallengeMethod: "S256",
			ExpiresAt: start.Add(10 * time.Minute),
		}
		require.NoError(t, s.SaveAuthCode(ctx, code))

		got, err := s.ConsumeAuthCode(ctx, "h1")
		require.NoError(t, err)
		assert.Equal(t, code, got)

		_, err = s.ConsumeAuthCode(ctx, "h1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("expired grants", func(t *testing.T) {
		s := newStore(t)
		s.setNow(func() time.Time { return start })
		require.NoError(t, s.SaveAuthCode(ctx, &AuthCode{CodeHash: "old", ClientID: "c", ExpiresAt: start.Add(-time.Second)}))
		require.NoError(t, s.SaveRefreshToken(ctx, &RefreshToken{TokenHash: "old", ClientID: "c", ExpiresAt: start}))

		_, err := s.ConsumeAuthCode(ctx, "old")
		assert.ErrorIs(t, err, ErrExpired)
		_, err = s.ConsumeAuthCode(ctx, "old")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.ConsumeRefreshToken(ctx, "old")
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("refresh tokens rotate", func(t *testing.T) {
		s := newStore(t)
		s.setNow(func() time.Time { return start })
		tok := &RefreshToken{TokenHash: "r1", ClientID: "c", UserID: "owner", Scope: []string{"wishlist"}, ExpiresAt: start.Add(time.Hour)}
		require.NoError(t, s.SaveRefreshToken(ctx, tok))

		got, err := s.ConsumeRefreshToken(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, tok, got)

		_, err = s.ConsumeRefreshToken(ctx, "r1")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func ids(items []*wishlist.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestMockStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) contractStore {
		return NewMockStore()
	})
}

func TestMockStore_Err(t *testing.T) {
	s := NewMockStore()
	s.Err = assert.AnError
	ctx := context.Background()

	_, err := s.ListItems(ctx, wishlist.ListFilter{})
	assert.ErrorIs(t, err, assert.AnError)
	assert.ErrorIs(t, s.Ping(ctx), assert.AnError)
	assert.ErrorIs(t, s.DeleteItem(ctx, "x"), assert.AnError)
}

func TestMockStore_ReturnsCopies(t *testing.T) {
	s := NewMockStore()
	ctx := context.Background()
	item, err := s.CreateItem(ctx, headphones())
	require.NoError(t, err)

	item.Name = "mutated"
	got, err := s.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Headphones", got.Name)
}
