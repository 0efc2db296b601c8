package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	RoleRM    UserRole = "RM"
	RoleAdmin UserRole = "ADMIN"
	RoleStaff UserRole = "STAFF"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "ACTIVE"
	UserStatusInactive UserStatus = "INACTIVE"
)

func (s UserStatus) Valid() bool {
	return s == UserStatusActive || s == UserStatusInactive
}

// User is a staff member; relationship managers are users with RoleRM.
type User struct {
	ID             uuid.UUID
	Name           string
	Email          *string
	Role           UserRole
	Status         UserStatus
	Archived       bool
	CreatedAt      time.Time
	LastAssignedAt *time.Time
}

// EligibleForAssignment reports whether round-robin may pick this user.
func (u User) EligibleForAssignment() bool {
	return u.Role == RoleRM && u.Status == UserStatusActive && !u.Archived
}

// RMWorkload is an RM with counts of their non-archived leads. Open leaves
// out CLOSED leads.
type RMWorkload struct {
	User       User
	OpenLeads  int
	TotalLeads int
}
