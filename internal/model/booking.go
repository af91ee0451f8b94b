package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
    BookingPending   BookingStatus = "pending"
    BookingApproved  BookingStatus = "approved"
    BookingRejected  BookingStatus = "rejected"
    BookingCompleted BookingStatus = "completed"
    BookingCancelled BookingStatus = "cancelled"
)

// ParseBookingStatus validates a raw status value.
func ParseBookingStatus(s string) (BookingStatus, bool) {
    switch st := BookingStatus(s); st {
    case BookingPending, BookingApproved, BookingRejected, BookingCompleted, BookingCancelled:
        return st, true
    }
    return "", false
}

// Terminal reports whether no further transition is possible.
func (s BookingStatus) Terminal() bool {
    return s == BookingRejected || s == BookingCompleted || s == BookingCancelled
}

// Booking records a customer's request to a provider for a specific
// service at a specific time.
//
// Fields:
//  ID          – primary key identifier.
//  ServiceID   – booked service.
//  CustomerID  – account that created the booking.
//  ProviderID  – copied from the service at creation; never updated.
//  Status      – lifecycle state.
//  ScheduledAt – requested date/time, strictly in the future at creation.
//  TotalAmount – service base price at creation.
//  Notes       – optional free text from the customer.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Booking struct {
    ID          uint64          `json:"id"`
    ServiceID   uint64          `json:"serviceId"`
    CustomerID  uint64          `json:"customerId"`
    ProviderID  uint64          `json:"providerId"`
    Status      BookingStatus   `json:"status"`
    ScheduledAt time.Time       `json:"scheduledDate"`
    TotalAmount decimal.Decimal `json:"totalAmount"`
    Notes       string          `json:"notes,omitempty"`
    CreatedAt   time.Time       `json:"createdAt"`
    UpdatedAt   time.Time       `json:"updatedAt"`
}

// ServiceSummary is the projection of a service embedded in BookingDetail.
type ServiceSummary struct {
    ID        uint64          `json:"id"`
    Name      string          `json:"name"`
    BasePrice decimal.Decimal `json:"basePrice"`
    PriceUnit PriceUnit       `json:"priceUnit"`
}

// BookingDetail is a booking with its service, customer and provider
// expanded for display.
type BookingDetail struct {
    Booking
    Service  ServiceSummary `json:"service"`
    Customer AccountSummary `json:"customer"`
    Provider AccountSummary `json:"provider"`
}

// BookingFilter selects bookings for listing.  Zero IDs mean "any".
// Limit <= 0 returns every matching row.
type BookingFilter struct {
    CustomerID uint64
    ProviderID uint64
    Limit      int
    Offset     int
}
