package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user's position within an agency. Stored as text; the set
// is closed and validated at the handler layer.
type Role string

const (
	RoleAgencyOwner     Role = "AGENCY_OWNER"
	RoleAgencyAdmin     Role = "AGENCY_ADMIN"
	RoleSubAccountUser  Role = "SUBACCOUNT_USER"
	RoleSubAccountGuest Role = "SUBACCOUNT_GUEST"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAgencyOwner, RoleAgencyAdmin, RoleSubAccountUser, RoleSubAccountGuest:
		return true
	}
	return false
}

// InvitationStatus tracks the lifecycle of an Invitation. An accepted
// invitation is deleted, so PENDING is the only status a stored row
// normally carries; REVOKED exists for explicit withdrawal.
type InvitationStatus string

const (
	InvitationPending InvitationStatus = "PENDING"
	InvitationRevoked InvitationStatus = "REVOKED"
)

// Principal is the externally authenticated identity for the current
// request, as asserted by the identity provider's session token. It is
// not a database row; resolving it to a User is the identity
// resolver's job.
type Principal struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
}

// Name returns the display name the provider asserts, "First Last".
func (p Principal) Name() string {
	if p.FirstName == "" {
		return p.LastName
	}
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Agency is the tenant root. Every sub-account, team user, invitation
// and notification hangs off exactly one agency.
type Agency struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	CompanyEmail string    `json:"company_email"`
	CompanyPhone string    `json:"company_phone"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	ZipCode      string    `json:"zip_code"`
	State        string    `json:"state"`
	Country      string    `json:"country"`
	AgencyLogo   string    `json:"agency_logo"`
	Goal         int       `json:"goal"`
	WhiteLabel   bool      `json:"white_label"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SubAccount is a managed client account under one agency. AgencyID is
// set at creation and never reassigned.
type SubAccount struct {
	ID             uuid.UUID `json:"id"`
	AgencyID       uuid.UUID `json:"agency_id"`
	Name           string    `json:"name"`
	CompanyEmail   string    `json:"company_email"`
	CompanyPhone   string    `json:"company_phone"`
	Address        string    `json:"address"`
	City           string    `json:"city"`
	ZipCode        string    `json:"zip_code"`
	State          string    `json:"state"`
	Country        string    `json:"country"`
	SubAccountLogo string    `json:"sub_account_logo"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// User is the application-level identity.
//
// ID is a string, not a uuid: it is the identity provider's user id,
// assigned outside this system. Email is globally unique and is the
// key every resolver looks up by. AgencyID is nil for a principal who
// signed up but has not created or joined an agency yet.
type User struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	AvatarURL string     `json:"avatar_url"`
	Role      Role       `json:"role"`
	AgencyID  *uuid.UUID `json:"agency_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Permission is a per-user, per-sub-account access grant. At most one
// row exists per (email, sub_account_id) pair; toggles flip Access in
// place, rows are never deleted.
type Permission struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	SubAccountID uuid.UUID `json:"sub_account_id"`
	Access       bool      `json:"access"`
}

// PermissionWithSubAccount is a Permission joined with its sub-account,
// the shape the user-details surface renders.
type PermissionWithSubAccount struct {
	Permission
	SubAccount SubAccount `json:"sub_account"`
}

// Invitation is a pending offer to join an agency with a pre-assigned
// role. Email is unique while the row exists; acceptance deletes the
// row, which is the state machine's terminal transition.
//
// TokenHash is a bcrypt hash of the link token mailed to the invitee.
// The plaintext token is returned exactly once, at creation.
type Invitation struct {
	ID        uuid.UUID        `json:"id"`
	Email     string           `json:"email"`
	AgencyID  uuid.UUID        `json:"agency_id"`
	Role      Role             `json:"role"`
	Status    InvitationStatus `json:"status"`
	TokenHash string           `json:"-"`
	CreatedAt time.Time        `json:"created_at"`
}

// Notification is an append-only audit record. AgencyID is always set;
// SubAccountID only when the audited action was sub-account-scoped.
type Notification struct {
	ID           uuid.UUID  `json:"id"`
	Notification string     `json:"notification"`
	UserID       string     `json:"user_id"`
	AgencyID     uuid.UUID  `json:"agency_id"`
	SubAccountID *uuid.UUID `json:"sub_account_id"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NotificationWithUser is a Notification joined with its author, the
// shape the agency dashboard feed renders.
type NotificationWithUser struct {
	Notification
	User User `json:"user"`
}
