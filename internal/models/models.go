package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles is stored as a JSON-encoded text column so the same model works
// against postgres and the in-memory sqlite used in tests.
type Roles []string

func (r Roles) Value() (driver.Value, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (r *Roles) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case string:
		return json.Unmarshal([]byte(v), r)
	case []byte:
		return json.Unmarshal(v, r)
	default:
		return fmt.Errorf("roles: cannot scan %T", src)
	}
}

func (r Roles) Contains(role string) bool {
	for _, have := range r {
		if have == role {
			return true
		}
	}
	return false
}

func DefaultRoles() Roles { return Roles{"user"} }

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"      json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"      json:"username"`
	Email        string    `gorm:"uniqueIndex;not null"      json:"email"`
	PasswordHash string    `gorm:"not null"                  json:"-"`
	Roles        Roles     `gorm:"type:text;not null"        json:"roles"`
	IsActive     bool      `gorm:"default:true"              json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime"            json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if len(u.Roles) == 0 {
		u.Roles = DefaultRoles()
	}
	return nil
}

// RefreshToken holds the single live refresh token for a user. The unique
// index on username backs the latest-wins rotation in the token store.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Token     string    `gorm:"not null"             json:"token"`
	CreatedAt time.Time `gorm:"autoCreateTime"       json:"created_at"`
}
