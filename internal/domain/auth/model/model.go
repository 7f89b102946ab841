package model

import (
	"time"

	"github.com/google/uuid"
)

// User is an account. A non-nil ActivationToken means the email was never confirmed.
type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name            string    `gorm:"not null"`
	Email           string    `gorm:"uniqueIndex;not null"`
	Phone           string    `gorm:"uniqueIndex;not null"`
	PasswordHash    string    `gorm:"not null"`
	ActivationToken *string   `gorm:"uniqueIndex"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (User) TableName() string { return "users" }

func (u User) Activated() bool { return u.ActivationToken == nil }

// Session is the single refresh token currently honoured for an account.
type Session struct {
	UserID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	RefreshToken string    `gorm:"uniqueIndex;not null"`
	ExpiresAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time

	User *User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID"`
}

func (Session) TableName() string { return "sessions" }

type ResetToken struct {
	Token          string    `gorm:"primaryKey" json:"resetToken"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"userId"`
	ExpirationTime time.Time `gorm:"not null" json:"expirationTime"`
	CreatedAt      time.Time `json:"createdAt"`

	User *User `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"-"`
}

func (ResetToken) TableName() string { return "reset_tokens" }

// Expired reports whether the token is past its window at now.
func (r ResetToken) Expired(now time.Time) bool {
	return now.After(r.ExpirationTime)
}

// PublicUser is the account projection placed in token claims and responses.
type PublicUser struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Phone string    `json:"phone,omitempty"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone}
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	User         PublicUser
}
