package department

import (
	"context"
	"time"

	"placementcell/internal/common"
)

type Department struct {
	ID        common.UUID `json:"id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	CreatedAt time.Time   `json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, d Department) (*Department, error)
	GetByID(ctx context.Context, id common.UUID) (*Department, error)
	GetByCode(ctx context.Context, code string) (*Department, error)
	List(ctx context.Context) ([]Department, error)
}
