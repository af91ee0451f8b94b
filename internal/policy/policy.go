// Package policy holds the authorization rules of the marketplace: which
// role may do what, and which party of a booking may move it to which
// status.  Every controller entry point asks this package instead of
// comparing role strings inline.
package policy

import "github.com/iliyamo/home-services-marketplace/internal/model"

// Capability names an action guarded by role.
type Capability string

const (
    CreateBooking        Capability = "booking:create"
    ListOwnBookings      Capability = "booking:list:customer"
    ListProviderBookings Capability = "booking:list:provider"
    ListAllBookings      Capability = "booking:list:all"
    ReadAnyBooking       Capability = "booking:read:any"
    RequestProvider      Capability = "provider:request"
    DecideProvider       Capability = "provider:decide"
    ListApplications     Capability = "provider:list"
    ManageCategories     Capability = "category:manage"
    ManageServices       Capability = "service:manage"
    ManageAnyService     Capability = "service:manage:any"
)

var grants = map[model.Role]map[Capability]bool{
    model.RoleCustomer: {
        CreateBooking:   true,
        ListOwnBookings: true,
        RequestProvider: true,
    },
    model.RoleProvider: {
        ListProviderBookings: true,
        ManageServices:       true,
    },
    model.RoleAdmin: {
        ListAllBookings:  true,
        ReadAnyBooking:   true,
        DecideProvider:   true,
        ListApplications: true,
        ManageCategories: true,
        ManageServices:   true,
        ManageAnyService: true,
    },
}

// Allow reports whether role holds capability c.  Unknown roles hold
// nothing.
func Allow(role model.Role, c Capability) bool {
    return grants[role][c]
}
