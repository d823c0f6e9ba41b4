package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

const ProviderGoogle = "google"

// User is the single identity entity. Local accounts carry a password hash,
// OAuth-only accounts carry provider+oauth_id; a record never has neither.
type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email         string             `bson:"email"                    json:"email"`
	Name          string             `bson:"name"                     json:"name"`
	PasswordHash  string             `bson:"password_hash,omitempty"  json:"-"`
	OAuthProvider string             `bson:"oauth_provider,omitempty" json:"oauth_provider,omitempty"`
	OAuthID       string             `bson:"oauth_id,omitempty"       json:"oauth_id,omitempty"`
	Avatar        string             `bson:"avatar,omitempty"         json:"avatar,omitempty"`
	Role          Role               `bson:"role"                     json:"role"`
	IsActive      bool               `bson:"is_active"                json:"is_active"`
	CreatedAt     time.Time          `bson:"created_at"               json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"               json:"updated_at"`
}

// HasPassword reports whether password login is possible for this account.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// SanitizedUser is the client-facing view: no password hash, no internal flags.
type SanitizedUser struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Avatar        string    `json:"avatar,omitempty"`
	OAuthProvider string    `json:"oauth_provider,omitempty"`
	Role          Role      `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
}

func (u *User) Sanitize() SanitizedUser {
	return SanitizedUser{
		ID:            u.ID.Hex(),
		Email:         u.Email,
		Name:          u.Name,
		Avatar:        u.Avatar,
		OAuthProvider: u.OAuthProvider,
		Role:          u.Role,
		CreatedAt:     u.CreatedAt,
	}
}
