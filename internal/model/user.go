package model

import "time"

// Role is the closed set of account roles.  The value is stored as-is in
// the users.role column and embedded in access tokens.
type Role string

const (
    RoleCustomer Role = "customer"
    RoleProvider Role = "provider"
    RoleAdmin    Role = "admin"
)

// ParseRole converts a raw string (e.g. a JWT claim) into a Role.  The
// second result is false for anything outside the closed set.
func ParseRole(s string) (Role, bool) {
    switch r := Role(s); r {
    case RoleCustomer, RoleProvider, RoleAdmin:
        return r, true
    }
    return "", false
}

// ProviderStatus is the admin-controlled approval state of a provider
// application.  It only exists on accounts that carry a ProviderProfile.
type ProviderStatus string

const (
    ProviderPending  ProviderStatus = "pending"
    ProviderInQueue  ProviderStatus = "inqueue"
    ProviderApproved ProviderStatus = "approved"
    ProviderRejected ProviderStatus = "rejected"
)

// ParseProviderStatus validates a raw status value.
func ParseProviderStatus(s string) (ProviderStatus, bool) {
    switch st := ProviderStatus(s); st {
    case ProviderPending, ProviderInQueue, ProviderApproved, ProviderRejected:
        return st, true
    }
    return "", false
}

// Awaiting reports whether the application is still waiting for an admin
// decision.  Older rows may use "inqueue" instead of "pending".
func (s ProviderStatus) Awaiting() bool {
    return s == ProviderPending || s == ProviderInQueue
}

// StatusActive is reported for accounts without a provider application.
const StatusActive = "active"

// ProviderProfile holds the provider-only part of an account.  An account
// either has one (it applied to become a provider) or it does not; the
// approval status lives here so it cannot exist on a plain customer.
//
// Fields:
//  ServiceType – kind of work offered (e.g. "Plumbing").
//  Contact     – phone number or other contact handle.
//  Address     – service address.
//  Status      – approval state of the application.
type ProviderProfile struct {
    ServiceType string         `json:"serviceType"`
    Contact     string         `json:"contact"`
    Address     string         `json:"address"`
    Status      ProviderStatus `json:"status"`
}

// Account mirrors a row of the `users` table.
//
// Fields:
//  ID           – primary key identifier.
//  Name         – display name.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hash; never serialized.
//  Role         – customer, provider or admin.
//  Provider     – provider application; nil for accounts that never applied.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Account struct {
    ID           uint64           `json:"id"`
    Name         string           `json:"name"`
    Email        string           `json:"email"`
    PasswordHash string           `json:"-"`
    Role         Role             `json:"role"`
    Provider     *ProviderProfile `json:"provider,omitempty"`
    CreatedAt    time.Time        `json:"createdAt"`
    UpdatedAt    time.Time        `json:"updatedAt"`
}

// Status returns the approval status for provider accounts and "active"
// for everyone else.
func (a Account) Status() string {
    if a.Provider == nil {
        return StatusActive
    }
    return string(a.Provider.Status)
}

// IsApprovedProvider reports whether the account may act as a provider.
func (a Account) IsApprovedProvider() bool {
    return a.Role == RoleProvider && a.Provider != nil && a.Provider.Status == ProviderApproved
}

// AccountSummary is the public projection of an account used when
// bookings are expanded for display.
type AccountSummary struct {
    ID          uint64 `json:"id"`
    Name        string `json:"name"`
    Email       string `json:"email"`
    ServiceType string `json:"serviceType,omitempty"`
    Contact     string `json:"contact,omitempty"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA-256 hash of the raw token is stored.
type RefreshToken struct {
    ID        uint64
    UserID    uint64
    TokenHash string
    ExpiresAt time.Time
    RevokedAt *time.Time
    CreatedAt time.Time
}
