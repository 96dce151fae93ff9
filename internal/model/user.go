package model

import "time"

// FederatedSentinel is stored in place of a bcrypt hash for accounts
// created through Google sign-in. It can never match a real bcrypt
// comparison, so those accounts cannot be logged into locally.
const FederatedSentinel = "google"

// User represents an authenticated user in the system.
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsFederated reports whether the account was created via Google
// sign-in and carries no local password.
func (u *User) IsFederated() bool {
	return u.PasswordHash == FederatedSentinel
}
