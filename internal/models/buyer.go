// Package models - Buyer leads and their change history.
//
// Design Decisions:
// - Enumerations are stored as their display values, so the API, storage and
//   filters all speak the same strings
// - Optional fields are pointers so "absent" survives JSON and SQL round trips
// - Every write produces a BuyerHistory entry for auditing
package models

import (
	"time"

	"github.com/google/uuid"
)

// Cities served by the sales team.
const (
	CityChandigarh = "Chandigarh"
	CityMohali     = "Mohali"
	CityZirakpur   = "Zirakpur"
	CityPanchkula  = "Panchkula"
	CityOther      = "Other"
)

// Property types.
const (
	PropertyApartment = "Apartment"
	PropertyVilla     = "Villa"
	PropertyPlot      = "Plot"
	PropertyOffice    = "Office"
	PropertyRetail    = "Retail"
)

// Lead status values. New leads start in StatusNew.
const (
	StatusNew       = "New"
	StatusContacted = "Contacted"
	StatusQualified = "Qualified"
	StatusClosed    = "Closed"
	StatusLost      = "Lost"
)

var (
	Cities        = []string{CityChandigarh, CityMohali, CityZirakpur, CityPanchkula, CityOther}
	PropertyTypes = []string{PropertyApartment, PropertyVilla, PropertyPlot, PropertyOffice, PropertyRetail}
	BHKValues     = []string{"1", "2", "3", "4", "Studio"}
	Purposes      = []string{"Buy", "Rent"}
	Timelines     = []string{"0-3m", "3-6m", ">6m", "Exploring"}
	Sources       = []string{"Website", "Referral", "Walk-in", "Call", "Other"}
	Statuses      = []string{StatusNew, StatusContacted, StatusQualified, StatusClosed, StatusLost}
)

// Buyer is a single lead record owned by a user.
type Buyer struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Email        *string   `json:"email"`
	Phone        string    `json:"phone"`
	City         string    `json:"city"`
	PropertyType string    `json:"propertyType"`
	BHK          *string   `json:"bhk"`
	Purpose      string    `json:"purpose"`
	BudgetMin    *int64    `json:"budgetMin"`
	BudgetMax    *int64    `json:"budgetMax"`
	Timeline     string    `json:"timeline"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
	Notes        *string   `json:"notes"`
	Tags         []string  `json:"tags"`
	OwnerID      string    `json:"ownerId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// BuyerHistory records who changed a buyer and what changed.
type BuyerHistory struct {
	ID        string         `json:"id"`
	BuyerID   string         `json:"buyerId"`
	ChangedBy string         `json:"changedBy"`
	ChangedAt time.Time      `json:"changedAt"`
	Diff      map[string]any `json:"diff"`
}

// NewBuyer builds a buyer owned by ownerID from a validated request.
func NewBuyer(req *CreateBuyerRequest, ownerID string) *Buyer {
	now := time.Now().UTC()
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}
	return &Buyer{
		ID:           uuid.New().String(),
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		City:         req.City,
		PropertyType: req.PropertyType,
		BHK:          req.BHK,
		Purpose:      req.Purpose,
		BudgetMin:    req.BudgetMin,
		BudgetMax:    req.BudgetMax,
		Timeline:     req.Timeline,
		Source:       req.Source,
		Status:       StatusNew,
		Notes:        req.Notes,
		Tags:         tags,
		OwnerID:      ownerID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewCreationHistory records the creation of b by changedBy.
func NewCreationHistory(b *Buyer, req *CreateBuyerRequest, changedBy string) *BuyerHistory {
	return &BuyerHistory{
		ID:        uuid.New().String(),
		BuyerID:   b.ID,
		ChangedBy: changedBy,
		ChangedAt: b.CreatedAt,
		Diff:      map[string]any{"created": req},
	}
}
