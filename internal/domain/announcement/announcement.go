package announcement

import (
	"context"
	"time"

	"placementcell/internal/common"
)

type Audience string

const (
	AudienceAll      Audience = "all"
	AudienceStudents Audience = "students"
	AudienceStaff    Audience = "staff"
)

type Announcement struct {
	ID             common.UUID  `json:"id"`
	Title          string       `json:"title"`
	Content        string       `json:"content"`
	Excerpt        string       `json:"excerpt"`
	Audience       Audience     `json:"audience"`
	DepartmentID   *common.UUID `json:"department_id,omitempty"`
	BatchYear      *int         `json:"batch_year,omitempty"`
	Pinned         bool         `json:"pinned"`
	AttachmentPath string       `json:"-"`
	AttachmentName string       `json:"attachment_name,omitempty"`
	CreatedBy      common.UUID  `json:"created_by"`
	ExpiresAt      *time.Time   `json:"expires_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// Viewer describes who is reading announcements; zero values mean "no restriction".
type Viewer struct {
	Staff        bool
	DepartmentID common.UUID
	BatchYear    int
	Now          time.Time
}

type Repository interface {
	Create(ctx context.Context, a Announcement) (*Announcement, error)
	Update(ctx context.Context, a Announcement) (*Announcement, error)
	Delete(ctx context.Context, id common.UUID) error
	GetByID(ctx context.Context, id common.UUID) (*Announcement, error)
	ListVisible(ctx context.Context, viewer Viewer, page common.Page) ([]Announcement, int, error)
	SetAttachment(ctx context.Context, id common.UUID, path, name string) error
}
