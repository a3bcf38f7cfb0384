package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/asoasiko/server/internal/utils/middleware"
)

// Role is the closed set of account roles. The stored role and the role
// carried in token claims share one definition.
type Role = middleware.Role

const (
	RoleAdmin    = middleware.RoleAdmin
	RoleSales    = middleware.RoleSales
	RoleCustomer = middleware.RoleCustomer
)

// User represents a registered account.
type User struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PhoneNumber  string    `json:"phone_number,omitempty" gorm:"column:phone_number"`
	PasswordHash string    `json:"-" gorm:"column:password_hash;not null"`
	Role         Role      `json:"role" gorm:"default:customer"`

	CreatedAt time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"column:updated_at"`
}

// TableName returns the database table name.
func (User) TableName() string {
	return "users"
}

// IsStaff returns true for accounts allowed to manage orders.
func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleSales
}
