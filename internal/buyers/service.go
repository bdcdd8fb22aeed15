package buyers

import (
	"context"
	"errors"
	"fmt"
	"leads/internal/models"
	"leads/internal/storage"
	"log/slog"
)

// Service handles buyer lead business logic on top of a storage backend
type Service struct {
	storage  storage.Storage
	pageSize int
}

// NewService creates a buyers service. pageSize is used when a list request
// does not ask for one.
func NewService(storage storage.Storage, pageSize int) *Service {
	if pageSize < 1 {
		pageSize = 10
	}
	return &Service{
		storage:  storage,
		pageSize: pageSize,
	}
}

// PageSize returns the default list page size.
func (s *Service) PageSize() int {
	return s.pageSize
}

// Login validates req, then finds or creates the user. The returned identity
// carries the stored name, which for an existing user may differ from
// req.Name.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.Identity, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, NewInvalidRequestError("name & email required", err)
	}

	user, err := s.storage.FindOrCreateUserByEmail(ctx, req.Email, req.Name)
	if err != nil {
		return nil, NewInternalError("failed to resolve user", err)
	}

	id := models.IdentityFromUser(user)
	return &id, nil
}

func (s *Service) ResolveOwner(ctx context.Context, id models.Identity) (*models.User, error) {
	user, err := s.storage.FindOrCreateUserByEmail(ctx, id.Email, id.Name)
	if err != nil {
		return nil, NewInternalError("failed to create user", err)
	}
	return user, nil
}

func (s *Service) CreateBuyer(ctx context.Context, owner *models.User, changedBy string, req *models.CreateBuyerRequest) (*models.Buyer, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		var verrs models.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, NewValidationError(verrs)
		}
		return nil, NewInvalidRequestError("invalid buyer", err)
	}

	if changedBy == "" {
		changedBy = owner.ID
	}

	buyer := models.NewBuyer(req, owner.ID)
	history := models.NewCreationHistory(buyer, req, changedBy)

	if err := s.storage.CreateBuyer(ctx, buyer, history); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, NewConflictError(fmt.Sprintf("buyer '%s' already exists", buyer.ID))
		}
		return nil, NewInternalError("failed to create buyer", err)
	}

	slog.Info("Buyer created", "buyer_id", buyer.ID, "owner_id", owner.ID, "city", buyer.City)
	return buyer, nil
}

// ListBuyers returns the requested page. Pages past the end are empty rather
// than an error.
func (s *Service) ListBuyers(ctx context.Context, req *models.ListBuyersRequest) (*models.ListBuyersResponse, error) {
	req.Normalize(s.pageSize)

	buyers, total, err := s.storage.ListBuyers(ctx, *req)
	if err != nil {
		return nil, NewInternalError("failed to fetch buyers", err)
	}
	if buyers == nil {
		buyers = []*models.Buyer{}
	}

	return &models.ListBuyersResponse{
		Buyers:   buyers,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

func (s *Service) GetBuyer(ctx context.Context, id string) (*models.BuyerDetailResponse, error) {
	buyer, err := s.storage.GetBuyer(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewBuyerNotFoundError(id)
		}
		return nil, NewInternalError("failed to get buyer", err)
	}

	history, err := s.storage.BuyerHistory(ctx, id)
	if err != nil {
		return nil, NewInternalError("failed to get buyer history", err)
	}

	return &models.BuyerDetailResponse{Buyer: buyer, History: history}, nil
}
