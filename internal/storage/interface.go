package storage

import (
	"context"
	"leads/internal/models"
)

// Storage defines persistence for users, buyer leads and buyer history.
// Implementations must be safe for concurrent use.
type Storage interface {
	// FindOrCreateUserByEmail returns the user with email, creating one named
	// name when none exists. An empty name falls back to the email local part.
	FindOrCreateUserByEmail(ctx context.Context, email, name string) (*models.User, error)

	// GetUserByEmail returns ErrNotFound when no user has email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// UpsertUser creates or updates the user keyed by email and returns the
	// stored record.
	UpsertUser(ctx context.Context, user *models.User) (*models.User, error)

	// CreateBuyer stores buyer together with its creation history entry.
	// Both are written or neither is.
	CreateBuyer(ctx context.Context, buyer *models.Buyer, history *models.BuyerHistory) error

	// GetBuyer returns ErrNotFound when no buyer has id.
	GetBuyer(ctx context.Context, id string) (*models.Buyer, error)

	// ListBuyers returns one page of buyers matching filter, most recently
	// updated first, and the total number of matches.
	ListBuyers(ctx context.Context, filter models.ListBuyersRequest) ([]*models.Buyer, int, error)

	// BuyerHistory returns history entries for a buyer, newest first.
	BuyerHistory(ctx context.Context, buyerID string) ([]*models.BuyerHistory, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close closes the storage connection and cleans up resources
	Close() error
}
