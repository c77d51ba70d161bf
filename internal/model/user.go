package model

import "time"

// Operator roles.  ADMIN manages contracts and payments; OPERATOR may
// schedule and reconcile spots against deals it has access to.
const (
	RoleAdmin    = "ADMIN"
	RoleOperator = "OPERATOR"
)

// User represents an operator account as stored in the `users` table.
// Account lifecycle (registration, password reset, profiles) is handled
// outside this service; rows are provisioned administratively and the
// service only authenticates against them.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – RoleAdmin or RoleOperator.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
