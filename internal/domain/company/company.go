package company

import (
	"context"
	"time"

	"placementcell/internal/common"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

type Company struct {
	ID           common.UUID `json:"id"`
	Name         string      `json:"name"`
	Industry     string      `json:"industry"`
	Website      string      `json:"website"`
	Description  string      `json:"description"`
	ContactName  string      `json:"contact_name"`
	ContactEmail string      `json:"contact_email"`
	ContactPhone string      `json:"contact_phone"`
	LogoPath     string      `json:"-"`
	HasLogo      bool        `json:"has_logo"`
	Status       Status      `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type Filter struct {
	Status Status
	Query  string
}

type Repository interface {
	Create(ctx context.Context, c Company) (*Company, error)
	Update(ctx context.Context, c Company) (*Company, error)
	Delete(ctx context.Context, id common.UUID) error
	GetByID(ctx context.Context, id common.UUID) (*Company, error)
	List(ctx context.Context, filter Filter, page common.Page) ([]Company, int, error)
	SetLogo(ctx context.Context, id common.UUID, path string) error
}
