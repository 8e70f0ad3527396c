package models

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

type Status string

const (
	StatusActive              Status = "active"
	StatusInactive            Status = "inactive"
	StatusPendingVerification Status = "pending_verification"
)

// User is the account document stored in the users collection.
// A token field and its expiry are always both set or both cleared.
type User struct {
	ID         bson.ObjectID `bson:"_id,omitempty"`
	Email      string        `bson:"email"`
	PassHash   string        `bson:"hashed_password"`
	FullName   string        `bson:"full_name"`
	Role       Role          `bson:"role"`
	Status     Status        `bson:"status"`
	IsVerified bool          `bson:"is_verified"`

	VerificationToken          *string    `bson:"verification_token,omitempty"`
	VerificationTokenExpiresAt *time.Time `bson:"verification_token_expires_at,omitempty"`

	ResetPasswordToken          *string    `bson:"reset_password_token,omitempty"`
	ResetPasswordTokenExpiresAt *time.Time `bson:"reset_password_token_expires_at,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// View is the public account representation returned by the API.
// It never carries the password hash or any token.
type UserView struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       Role   `json:"role"`
	Status     Status `json:"status"`
	IsVerified bool   `json:"is_verified"`
}

func (u User) View() UserView {
	return UserView{
		ID:         u.ID.Hex(),
		Email:      u.Email,
		FullName:   u.FullName,
		Role:       u.Role,
		Status:     u.Status,
		IsVerified: u.IsVerified,
	}
}

// Message is an outbound email, either handed to the SMTP sender directly
// or published to the mail queue for cmd/mailsender.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	HTML    bool   `json:"html"`
}
