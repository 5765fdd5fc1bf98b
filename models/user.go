package models

import (
	"gorm.io/gorm"

	"golang.org/x/crypto/bcrypt"
)

// User is an account row. Credential verification happens upstream of the
// entitlement core; this row backs token issuance and membership lookups.
type User struct {
	gorm.Model
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`
	Name         string `json:"name"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	// Grants the cross-tenant super-identity on issued tokens
	IsPlatformAdmin bool `gorm:"default:false" json:"is_platform_admin"`

	// Bumped to revoke all outstanding tokens for this user
	TokenVersion int `gorm:"default:0" json:"-"`
}

// SetPassword hashes and stores the password.
func (u *User) SetPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares a candidate password against the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}
