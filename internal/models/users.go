package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role is the user's access level.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// IsAdmin compares case-insensitively; older rows may hold lowercase roles.
func (r Role) IsAdmin() bool {
	return strings.EqualFold(string(r), string(RoleAdmin))
}

// User maps the users table. Status=false means the account is disabled.
type User struct {
	Base
	Name                   string     `gorm:"not null" json:"name"`
	Email                  string     `gorm:"uniqueIndex;not null" json:"email"`
	Password               string     `gorm:"not null" json:"-"`
	Phone                  *string    `json:"phone"`
	ProfilePicture         *string    `json:"profilePicture"`
	Role                   Role       `gorm:"type:varchar(16);not null;default:'USER'" json:"role"`
	Status                 bool       `gorm:"not null;default:true" json:"status"`
	LastLogin              *time.Time `json:"lastLogin"`
	DefaultShippingAddress *uint      `json:"defaultShippingAddress"`
	DefaultBillingAddress  *uint      `json:"defaultBillingAddress"`

	Addresses []Address  `gorm:"constraint:OnDelete:CASCADE" json:"addresses,omitempty"`
	CartItems []CartItem `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Orders    []Order    `json:"-"`
}

// HashPassword returns the bcrypt hash of pw at the default cost.
func HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPassword reports whether pw is the password behind hash.
func CheckPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}
