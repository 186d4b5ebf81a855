// Package model defines the documents persisted by the virtual file system.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActivated AccountStatus = "activated"
	AccountStatusDeleted   AccountStatus = "deleted"
)

// Role grants account-level privileges.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Account is a registered identity.
type Account struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"password_hash" json:"-"`
	Status       AccountStatus      `bson:"status" json:"status"`
	Role         Role               `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsActive reports whether the account can still authenticate.
func (a *Account) IsActive() bool {
	return a != nil && a.Status == AccountStatusActivated
}

// ActivationCode is a single-use registration voucher.
type ActivationCode struct {
	Code      string    `bson:"_id" json:"code"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// AccountLog is one audit entry for an RPC call.
type AccountLog struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Type      string             `bson:"type" json:"type"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	Address   string             `bson:"address" json:"address"`
	Username  string             `bson:"username" json:"username"`
	Success   bool               `bson:"success" json:"success"`
	Detail    string             `bson:"detail,omitempty" json:"detail,omitempty"`
}
