// Package seed loads demo users and a sample lead into an empty store.
package seed

import (
	"context"
	"fmt"
	"leads/internal/buyers"
	"leads/internal/models"
	"leads/internal/storage"
	"log/slog"
)

const (
	AdminEmail       = "alice@example.com"
	AgentEmail       = "bob@example.com"
	SampleBuyerEmail = "rajesh@example.com"
)

// Result reports what a seed run touched.
type Result struct {
	Admin        *models.User
	Agent        *models.User
	SampleBuyer  *models.Buyer // nil when the sample already existed
	BuyerSkipped bool
}

// Run upserts the demo users and creates the sample buyer unless a buyer with
// the sample email is already stored. Running it twice leaves one copy of each.
func Run(ctx context.Context, store storage.Storage, svc buyers.ServiceInterface) (*Result, error) {
	admin, err := store.UpsertUser(ctx, &models.User{Email: AdminEmail, Name: "Alice", IsAdmin: true})
	if err != nil {
		return nil, fmt.Errorf("failed to seed %s: %w", AdminEmail, err)
	}

	agent, err := store.FindOrCreateUserByEmail(ctx, AgentEmail, "Bob")
	if err != nil {
		return nil, fmt.Errorf("failed to seed %s: %w", AgentEmail, err)
	}

	res := &Result{Admin: admin, Agent: agent}

	existing, err := svc.ListBuyers(ctx, &models.ListBuyersRequest{Query: SampleBuyerEmail, Page: 1})
	if err != nil {
		return nil, fmt.Errorf("failed to check for sample buyer: %w", err)
	}
	if existing.Total > 0 {
		res.BuyerSkipped = true
		slog.Info("Sample buyer already present", "email", SampleBuyerEmail)
		return res, nil
	}

	buyer, err := svc.CreateBuyer(ctx, admin, admin.Email, sampleBuyer())
	if err != nil {
		return nil, fmt.Errorf("failed to seed sample buyer: %w", err)
	}
	res.SampleBuyer = buyer

	slog.Info("Seed data loaded",
		"admin", admin.Email,
		"agent", agent.Email,
		"buyer_id", buyer.ID,
	)
	return res, nil
}

func sampleBuyer() *models.CreateBuyerRequest {
	email := SampleBuyerEmail
	bhk := "2"
	notes := "Prefers East-facing units"
	budgetMin := int64(4000000)
	budgetMax := int64(6000000)

	return &models.CreateBuyerRequest{
		FullName:     "Rajesh Kumar",
		Email:        &email,
		Phone:        "9876543210",
		City:         models.CityChandigarh,
		PropertyType: models.PropertyApartment,
		BHK:          &bhk,
		Purpose:      "Buy",
		BudgetMin:    &budgetMin,
		BudgetMax:    &budgetMax,
		Timeline:     "3-6m",
		Source:       "Website",
		Notes:        &notes,
		Tags:         []string{"verified", "priority"},
	}
}
