package address

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no address matches.
var ErrNotFound = errors.New("address: not found")

// Address is an entry in a user's address book.
type Address struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"-"`
	ReceiverName string    `json:"receiverName"`
	Phone        string    `json:"phone"`
	Province     string    `json:"province"`
	City         string    `json:"city"`
	PostalCode   string    `json:"postalCode"`
	AddressLine  string    `json:"addressLine"`
	IsDefault    bool      `json:"isDefault"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Store is the persistence contract for address books.
type Store interface {
	CreateAddress(ctx context.Context, a *Address) error
	ListAddresses(ctx context.Context, userID uuid.UUID) ([]Address, error)
	GetAddress(ctx context.Context, id, userID uuid.UUID) (Address, error)
	UpdateAddress(ctx context.Context, a *Address) error
	DeleteAddress(ctx context.Context, id, userID uuid.UUID) error
	ClearDefault(ctx context.Context, userID uuid.UUID) error
}

// Input carries the mutable address fields from the API.
type Input struct {
	ReceiverName string `json:"receiverName" validate:"required,max=120"`
	Phone        string `json:"phone" validate:"required,max=32"`
	Province     string `json:"province" validate:"required,max=120"`
	City         string `json:"city" validate:"required,max=120"`
	PostalCode   string `json:"postalCode" validate:"required,max=12"`
	AddressLine  string `json:"addressLine" validate:"required,max=500"`
	IsDefault    bool   `json:"isDefault"`
}

func (in *Input) normalize() {
	in.ReceiverName = strings.TrimSpace(in.ReceiverName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Province = strings.TrimSpace(in.Province)
	in.City = strings.TrimSpace(in.City)
	in.PostalCode = strings.TrimSpace(in.PostalCode)
	in.AddressLine = strings.TrimSpace(in.AddressLine)
}

// Service implements address book operations on top of a Store.
type Service struct {
	Store Store
}

// Create adds an address; marking it default clears the previous default.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (Address, error) {
	in.normalize()
	if in.IsDefault {
		if err := s.Store.ClearDefault(ctx, userID); err != nil {
			return Address{}, err
		}
	}
	a := Address{
		ID:           uuid.New(),
		UserID:       userID,
		ReceiverName: in.ReceiverName,
		Phone:        in.Phone,
		Province:     in.Province,
		City:         in.City,
		PostalCode:   in.PostalCode,
		AddressLine:  in.AddressLine,
		IsDefault:    in.IsDefault,
	}
	if err := s.Store.CreateAddress(ctx, &a); err != nil {
		return Address{}, err
	}
	return a, nil
}

// List returns all addresses for the user, default first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]Address, error) {
	return s.Store.ListAddresses(ctx, userID)
}

// Update replaces the mutable fields of an existing address.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in Input) (Address, error) {
	in.normalize()
	a, err := s.Store.GetAddress(ctx, id, userID)
	if err != nil {
		return Address{}, err
	}
	if in.IsDefault && !a.IsDefault {
		if err := s.Store.ClearDefault(ctx, userID); err != nil {
			return Address{}, err
		}
	}
	a.ReceiverName = in.ReceiverName
	a.Phone = in.Phone
	a.Province = in.Province
	a.City = in.City
	a.PostalCode = in.PostalCode
	a.AddressLine = in.AddressLine
	a.IsDefault = in.IsDefault
	if err := s.Store.UpdateAddress(ctx, &a); err != nil {
		return Address{}, err
	}
	return a, nil
}

// Delete removes an address from the user's book.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.Store.DeleteAddress(ctx, id, userID)
}
