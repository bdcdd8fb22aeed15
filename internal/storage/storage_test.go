package storage

import (
	"context"
	"fmt"
	"math"
	"leads/internal/models"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// baseTime is truncated to microseconds so every backend round-trips it.
var baseTime = time.Date(2026, 3, 1, 9, 30, 0, 123456000, time.UTC)

func strPtr(s string) *string { return &s }

func i64(v int64) *int64 { return &v }

func testBuyer(ownerID, name string, updatedAt time.Time) *models.Buyer {
	return &models.Buyer{
		ID:           uuid.New().String(),
		FullName:     name,
		Phone:        "9876543210",
		City:         models.CityChandigarh,
		PropertyType: models.PropertyPlot,
		Purpose:      "Buy",
		Timeline:     "0-3m",
		Source:       "Website",
		Status:       models.StatusNew,
		Tags:         []string{},
		OwnerID:      ownerID,
		CreatedAt:    updatedAt,
		UpdatedAt:    updatedAt,
	}
}

func testHistory(b *models.Buyer, changedBy string, at time.Time) *models.BuyerHistory {
	return &models.BuyerHistory{
		ID:        uuid.New().String(),
		BuyerID:   b.ID,
		ChangedBy: changedBy,
		ChangedAt: at,
		Diff:      map[string]any{"fullName": b.FullName},
	}
}

// runStorageContract exercises behavior every Storage implementation shares.
func runStorageContract(t *testing.T, newStorage func(t *testing.T) Storage) {
	ctx := context.Background()

	t.Run("FindOrCreateUserByEmail", func(t *testing.T) {
		s := newStorage(t)

		u, err := s.FindOrCreateUserByEmail(ctx, "  Alice@Example.com ", "Alice")
		require.NoError(t, err)
		assert.NotEmpty(t, u.ID)
		assert.Equal(t, "alice@example.com", u.Email)
		assert.Equal(t, "Alice", u.Name)
		assert.False(t, u.IsAdmin)

		again, err := s.FindOrCreateUserByEmail(ctx, "alice@example.com", "Someone Else")
		require.NoError(t, err)
		assert.Equal(t, u.ID, again.ID)
		assert.Equal(t, "Alice", again.Name, "existing users are not renamed")

		bob, err := s.FindOrCreateUserByEmail(ctx, "bob@example.com", "")
		require.NoError(t, err)
		assert.Equal(t, "bob", bob.Name)

		_, err = s.FindOrCreateUserByEmail(ctx, "   ", "Nobody")
		assert.Error(t, err)
	})

	t.Run("GetUserByEmail", func(t *testing.T) {
		s := newStorage(t)

		_, err := s.GetUserByEmail(ctx, "missing@example.com")
		assert.ErrorIs(t, err, ErrNotFound)

		created, err := s.FindOrCreateUserByEmail(ctx, "carol@example.com", "Carol")
		require.NoError(t, err)

		got, err := s.GetUserByEmail(ctx, "CAROL@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("UpsertUser", func(t *testing.T) {
		s := newStorage(t)

		u, err := s.UpsertUser(ctx, &models.User{Email: "admin@example.com", Name: "Admin", IsAdmin: true})
		require.NoError(t, err)
		assert.True(t, u.IsAdmin)

		updated, err := s.UpsertUser(ctx, &models.User{Email: "admin@example.com", Name: "Root", IsAdmin: false})
		require.NoError(t, err)
		assert.Equal(t, u.ID, updated.ID)
		assert.Equal(t, "Root", updated.Name)
		assert.False(t, updated.IsAdmin)
	})

	t.Run("CreateAndGetBuyer", func(t *testing.T) {
		s := newStorage(t)
		owner, err := s.FindOrCreateUserByEmail(ctx, "owner@example.com", "Owner")
		require.NoError(t, err)

		b := testBuyer(owner.ID, "Rajesh Kumar", baseTime)
		b.Email = strPtr("rajesh@example.com")
		b.PropertyType = models.PropertyApartment
		b.BHK = strPtr("3")
		b.BudgetMin = i64(5000000)
		b.BudgetMax = i64(7500000)
		b.Notes = strPtr("Prefers east facing")
		b.Tags = []string{"hot", "nri"}

		require.NoError(t, s.CreateBuyer(ctx, b, testHistory(b, owner.ID, baseTime)))

		got, err := s.GetBuyer(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b, got)

		err = s.CreateBuyer(ctx, b, nil)
		assert.ErrorIs(t, err, ErrConflict)

		_, err = s.GetBuyer(ctx, uuid.New().String())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("OptionalFieldsStayNil", func(t *testing.T) {
		s := newStorage(t)
		owner, err := s.FindOrCreateUserByEmail(ctx, "owner@example.com", "Owner")
		require.NoError(t, err)

		b := testBuyer(owner.ID, "Minimal Lead", baseTime)
		require.NoError(t, s.CreateBuyer(ctx, b, nil))

		got, err := s.GetBuyer(ctx, b.ID)
		require.NoError(t, err)
		assert.Nil(t, got.Email)
		assert.Nil(t, got.BHK)
		assert.Nil(t, got.BudgetMin)
		assert.Nil(t, got.BudgetMax)
		assert.Nil(t, got.Notes)
		assert.NotNil(t, got.Tags)
		assert.Empty(t, got.Tags)
	})

	t.Run("BuyerHistory", func(t *testing.T) {
		s := newStorage(t)
		owner, err := s.FindOrCreateUserByEmail(ctx, "owner@example.com", "Owner")
		require.NoError(t, err)

		b := testBuyer(owner.ID, "History Lead", baseTime)
		require.NoError(t, s.CreateBuyer(ctx, b, testHistory(b, owner.ID, baseTime)))

		entries, err := s.BuyerHistory(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, b.ID, entries[0].BuyerID)
		assert.Equal(t, owner.ID, entries[0].ChangedBy)
		assert.True(t, baseTime.Equal(entries[0].ChangedAt))
		assert.Equal(t, "History Lead", entries[0].Diff["fullName"])

		none, err := s.BuyerHistory(ctx, uuid.New().String())
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("ListBuyers", func(t *testing.T) {
		s := newStorage(t)
		owner, err := s.FindOrCreateUserByEmail(ctx, "owner@example.com", "Owner")
		require.NoError(t, err)

		for i := range 12 {
			b := testBuyer(owner.ID, fmt.Sprintf("Lead %02d", i), baseTime.Add(time.Duration(i)*time.Minute))
			if i%3 == 0 {
				b.City = models.CityMohali
			}
			if i == 7 {
				b.Notes = strPtr("Wants a corner PLOT near 100% park")
			}
			require.NoError(t, s.CreateBuyer(ctx, b, nil))
		}

		page, total, err := s.ListBuyers(ctx, models.ListBuyersRequest{Page: 1, PageSize: 5})
		require.NoError(t, err)
		assert.Equal(t, 12, total)
		require.Len(t, page, 5)
		assert.Equal(t, "Lead 11", page[0].FullName, "most recently updated first")
		assert.Equal(t, "Lead 07", page[4].FullName)

		last, total, err := s.ListBuyers(ctx, models.ListBuyersRequest{Page: 3, PageSize: 5})
		require.NoError(t, err)
		assert.Equal(t, 12, total)
		require.Len(t, last, 2)
		assert.Equal(t, "Lead 00", last[1].FullName)

		beyond, total, err := s.ListBuyers(ctx, models.ListBuyersRequest{Page: 9, PageSize: 5})
		require.NoError(t, err)
		assert.Equal(t, 12, total)
		assert.Empty(t, beyond)

		farPage := models.ListBuyersRequest{Page: math.MaxInt / 5, PageSize: 5}
		far, total, err := s.ListBuyers(ctx, farPage)
		require.NoError(t, err)
		assert.Equal(t, 12, total)
		assert.Empty(t, far)

		mohali, total, err := s.ListBuyers(ctx, models.ListBuyersRequest{City: models.CityMohali, Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		for _, b := range mohali {
			assert.Equal(t, models.CityMohali, b.City)
		}

		byNotes, total, err := s.ListBuyers(ctx, models.ListBuyersRequest{Query: "corner plot", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, byNotes, 1)
		assert.Equal(t, "Lead 07", byNotes[0].FullName)

		wildcard, total, err := s.ListBuyers(ctx, models.ListBuyersRequest{Query: "100%", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Len(t, wildcard, 1)

		_, total, err = s.ListBuyers(ctx, models.ListBuyersRequest{Query: "%", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 1, total, "wildcards in the query match literally")

		byName, total, err := s.ListBuyers(ctx, models.ListBuyersRequest{Query: "lead 1", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, byName, 2)

		byPhone, total, err := s.ListBuyers(ctx, models.ListBuyersRequest{Query: "98765", Page: 1, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, 12, total)
		assert.Len(t, byPhone, 10)

		_, total, err = s.ListBuyers(ctx, models.ListBuyersRequest{
			City: models.CityMohali, Status: models.StatusClosed, Page: 1, PageSize: 10,
		})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStorage(t)
		assert.NoError(t, s.Ping(ctx))
	})
}
