package common

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"
)

type UUID string

func NewUUID() UUID {
	return UUID(uuid.NewString())
}

func ParseUUID(value string) (UUID, error) {
	parsed, err := uuid.Parse(value)
	if err != nil {
		return "", err
	}
	return UUID(parsed.String()), nil
}

func (u UUID) String() string {
	return string(u)
}

func (u UUID) IsZero() bool {
	return u == ""
}

func (u UUID) Value() (driver.Value, error) {
	if u == "" {
		return nil, nil
	}
	return string(u), nil
}

func (u *UUID) Scan(src interface{}) error {
	switch value := src.(type) {
	case nil:
		*u = ""
	case string:
		*u = UUID(value)
	case []byte:
		if len(value) == 16 {
			parsed, err := uuid.FromBytes(value)
			if err != nil {
				return err
			}
			*u = UUID(parsed.String())
			return nil
		}
		*u = UUID(string(value))
	case [16]byte:
		*u = UUID(uuid.UUID(value).String())
	default:
		return fmt.Errorf("cannot scan %T into UUID", src)
	}
	return nil
}

// UUIDPtr returns nil for the zero UUID so optional foreign keys are stored as NULL.
func UUIDPtr(u UUID) *UUID {
	if u == "" {
		return nil
	}
	return &u
}
