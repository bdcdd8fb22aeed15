// Package models - API request types and input validation.
//
// Validation Philosophy:
// - Normalize first (trim strings, drop empty optionals), then validate
// - Report every failing field at once so forms can highlight all of them
package models

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10,15}$`)

// ValidationErrors maps a request field name to its validation message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, v[f]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// LoginRequest is the body of POST /api/auth.
type LoginRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r *LoginRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Name == "" || r.Email == "" {
		return errors.New("name & email required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}
	return nil
}

// CreateBuyerRequest is the body of POST /api/buyers.
type CreateBuyerRequest struct {
	FullName     string   `json:"fullName"`
	Email        *string  `json:"email,omitempty"`
	Phone        string   `json:"phone"`
	City         string   `json:"city"`
	PropertyType string   `json:"propertyType"`
	BHK          *string  `json:"bhk,omitempty"`
	Purpose      string   `json:"purpose"`
	BudgetMin    *int64   `json:"budgetMin,omitempty"`
	BudgetMax    *int64   `json:"budgetMax,omitempty"`
	Timeline     string   `json:"timeline"`
	Source       string   `json:"source"`
	Notes        *string  `json:"notes,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// Normalize trims strings and turns empty optional strings into nil.
func (r *CreateBuyerRequest) Normalize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.City = strings.TrimSpace(r.City)
	r.PropertyType = strings.TrimSpace(r.PropertyType)
	r.Purpose = strings.TrimSpace(r.Purpose)
	r.Timeline = strings.TrimSpace(r.Timeline)
	r.Source = strings.TrimSpace(r.Source)
	r.Email = trimOptional(r.Email)
	r.BHK = trimOptional(r.BHK)
	r.Notes = trimOptional(r.Notes)

	tags := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		if t = strings.TrimSpace(t); t != "" && !slices.Contains(tags, t) {
			tags = append(tags, t)
		}
	}
	r.Tags = tags
}

// Validate returns ValidationErrors describing every invalid field, or nil.
func (r *CreateBuyerRequest) Validate() error {
	errs := ValidationErrors{}

	if n := utf8.RuneCountInString(r.FullName); n < 2 || n > 80 {
		errs["fullName"] = "must be between 2 and 80 characters"
	}
	if r.Email != nil {
		if _, err := mail.ParseAddress(*r.Email); err != nil {
			errs["email"] = "must be a valid email address"
		}
	}
	if !phonePattern.MatchString(r.Phone) {
		errs["phone"] = "must be 10 to 15 digits"
	}
	checkEnum(errs, "city", r.City, Cities)
	checkEnum(errs, "propertyType", r.PropertyType, PropertyTypes)
	checkEnum(errs, "purpose", r.Purpose, Purposes)
	checkEnum(errs, "timeline", r.Timeline, Timelines)
	checkEnum(errs, "source", r.Source, Sources)

	if r.BHK != nil {
		checkEnum(errs, "bhk", *r.BHK, BHKValues)
	} else if r.PropertyType == PropertyApartment || r.PropertyType == PropertyVilla {
		errs["bhk"] = "bhk is required for Apartment and Villa"
	}

	if r.BudgetMin != nil && *r.BudgetMin <= 0 {
		errs["budgetMin"] = "must be a positive integer"
	}
	if r.BudgetMax != nil && *r.BudgetMax <= 0 {
		errs["budgetMax"] = "must be a positive integer"
	}
	if r.BudgetMin != nil && r.BudgetMax != nil && *r.BudgetMax < *r.BudgetMin {
		errs["budgetMax"] = "budgetMax must be >= budgetMin"
	}
	if r.Notes != nil && utf8.RuneCountInString(*r.Notes) > 1000 {
		errs["notes"] = "must be at most 1000 characters"
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ListBuyersRequest carries list filters and pagination. Zero values mean
// "no filter".
type ListBuyersRequest struct {
	City         string
	PropertyType string
	Status       string
	Timeline     string
	Query        string
	Page         int
	PageSize     int
}

// Normalize clamps pagination to sane values, falling back to pageSize.
func (r *ListBuyersRequest) Normalize(pageSize int) {
	r.City = strings.TrimSpace(r.City)
	r.PropertyType = strings.TrimSpace(r.PropertyType)
	r.Status = strings.TrimSpace(r.Status)
	r.Timeline = strings.TrimSpace(r.Timeline)
	r.Query = strings.TrimSpace(r.Query)
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = pageSize
	}
	// Pages past the last representable offset are simply empty.
	if r.PageSize > 0 && r.Page > math.MaxInt/r.PageSize {
		r.Page = math.MaxInt / r.PageSize
	}
}

// Offset returns the number of rows to skip for the requested page. It never
// overflows: offsets beyond math.MaxInt saturate.
func (r *ListBuyersRequest) Offset() int {
	if r.Page <= 1 || r.PageSize <= 0 {
		return 0
	}
	if r.Page-1 > math.MaxInt/r.PageSize {
		return math.MaxInt
	}
	return (r.Page - 1) * r.PageSize
}

func checkEnum(errs ValidationErrors, field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		errs[field] = fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", "))
	}
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
