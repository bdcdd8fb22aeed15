package buyers

import (
	"context"
	"leads/internal/models"
)

// ServiceInterface defines the interface for buyer lead operations
type ServiceInterface interface {
	// Login finds or creates the user named in req and returns the identity
	// to embed in a session token.
	Login(ctx context.Context, req *models.LoginRequest) (*models.Identity, error)

	// ResolveOwner maps a verified identity to its stored user, creating the
	// user on first sight.
	ResolveOwner(ctx context.Context, id models.Identity) (*models.User, error)

	// CreateBuyer validates req and stores a buyer owned by owner, together
	// with a creation history entry attributed to changedBy.
	CreateBuyer(ctx context.Context, owner *models.User, changedBy string, req *models.CreateBuyerRequest) (*models.Buyer, error)

	// ListBuyers returns one page of buyers matching req.
	ListBuyers(ctx context.Context, req *models.ListBuyersRequest) (*models.ListBuyersResponse, error)

	// GetBuyer returns a buyer with its change history.
	GetBuyer(ctx context.Context, id string) (*models.BuyerDetailResponse, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
