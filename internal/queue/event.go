// Package queue defines the domain events exchanged over the message broker,
// the publisher that emits them and the consumer that records them.
package queue

import (
    "time"

    "github.com/google/uuid"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/home-services-marketplace/internal/model"
)

// EventType names a domain event.  It doubles as the AMQP message type.
type EventType string

const (
    EventBookingCreated       EventType = "booking.created"
    EventBookingStatusChanged EventType = "booking.status_changed"
    EventProviderRequested    EventType = "provider.requested"
    EventProviderApproved     EventType = "provider.approved"
    EventProviderRejected     EventType = "provider.rejected"
)

// Event is the single envelope published for every domain event.  Fields
// that do not apply to a given type are omitted from the JSON body.
type Event struct {
    ID             string           `json:"id"`
    Type           EventType        `json:"type"`
    OccurredAt     time.Time        `json:"occurredAt"`
    BookingID      uint64           `json:"bookingId,omitempty"`
    AccountID      uint64           `json:"accountId,omitempty"`
    ServiceID      uint64           `json:"serviceId,omitempty"`
    CustomerID     uint64           `json:"customerId,omitempty"`
    ProviderID     uint64           `json:"providerId,omitempty"`
    Status         string           `json:"status,omitempty"`
    PreviousStatus string           `json:"previousStatus,omitempty"`
    TotalAmount    *decimal.Decimal `json:"totalAmount,omitempty"`
    ScheduledDate  *time.Time       `json:"scheduledDate,omitempty"`
}

func newEvent(t EventType, at time.Time) Event {
    return Event{ID: uuid.NewString(), Type: t, OccurredAt: at.UTC()}
}

// BookingCreated builds the event for a freshly inserted booking.
func BookingCreated(b model.Booking, at time.Time) Event {
    ev := newEvent(EventBookingCreated, at)
    fillBooking(&ev, b)
    return ev
}

// BookingStatusChanged builds the event for a status transition.  b must
// already carry the new status.
func BookingStatusChanged(b model.Booking, previous model.BookingStatus, at time.Time) Event {
    ev := newEvent(EventBookingStatusChanged, at)
    fillBooking(&ev, b)
    ev.PreviousStatus = string(previous)
    return ev
}

// ProviderChanged builds a provider.* event for an account.
func ProviderChanged(t EventType, accountID uint64, status model.ProviderStatus, at time.Time) Event {
    ev := newEvent(t, at)
    ev.AccountID = accountID
    ev.Status = string(status)
    return ev
}

func fillBooking(ev *Event, b model.Booking) {
    amount := b.TotalAmount
    scheduled := b.ScheduledAt.UTC()
    ev.BookingID = b.ID
    ev.ServiceID = b.ServiceID
    ev.CustomerID = b.CustomerID
    ev.ProviderID = b.ProviderID
    ev.Status = string(b.Status)
    ev.TotalAmount = &amount
    ev.ScheduledDate = &scheduled
}
