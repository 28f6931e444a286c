package models

import (
	"time"
)

// User is a profile keyed by the id issued by the identity provider.
type User struct {
	ID          string `gorm:"primaryKey;type:varchar(128)" json:"id"`
	DisplayName string `gorm:"not null;default:''" json:"display_name"`
	// Username mirrors the UsernameClaim owned by this user.
	Username  string    `gorm:"not null;default:''" json:"username"`
	PhotoURL  string    `gorm:"not null;default:''" json:"photo_url"`
	Bio       string    `gorm:"type:text;not null;default:''" json:"bio"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// UsernameClaim is the uniqueness index for usernames: one row per
// lowercased name and at most one row per user. Claims are never released.
type UsernameClaim struct {
	Name      string    `gorm:"primaryKey;type:varchar(20)" json:"name"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_username_claims_user;type:varchar(128)" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (UsernameClaim) TableName() string {
	return "username_claims"
}
