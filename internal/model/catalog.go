package model

import (
    "time"

    "github.com/shopspring/decimal"
)

// Category groups services for catalog navigation.
type Category struct {
    ID          uint64    `json:"id"`
    Name        string    `json:"name"`
    Slug        string    `json:"slug"`
    Description string    `json:"description"`
    CreatedAt   time.Time `json:"createdAt"`
}

// PriceUnit describes what BasePrice is charged per.
type PriceUnit string

const (
    PriceFixed  PriceUnit = "fixed"
    PriceHourly PriceUnit = "hourly"
    PriceVisit  PriceUnit = "visit"
)

// ParsePriceUnit validates a raw unit.  An empty string maps to PriceFixed.
func ParsePriceUnit(s string) (PriceUnit, bool) {
    switch u := PriceUnit(s); u {
    case "":
        return PriceFixed, true
    case PriceFixed, PriceHourly, PriceVisit:
        return u, true
    }
    return "", false
}

// Service is an offering in the catalog.  It is soft-deleted through
// IsActive and never physically removed because bookings reference it.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name.
//  Description – free text.
//  CategoryID  – owning category (must exist).
//  BasePrice   – price per PriceUnit, never negative.
//  PriceUnit   – fixed, hourly or visit.
//  ProviderID  – provider offering the service; nil for admin-curated entries.
//  IsActive    – false once the service has been deleted.
type Service struct {
    ID          uint64          `json:"id"`
    Name        string          `json:"name"`
    Description string          `json:"description"`
    CategoryID  uint64          `json:"categoryId"`
    BasePrice   decimal.Decimal `json:"basePrice"`
    PriceUnit   PriceUnit       `json:"priceUnit"`
    ProviderID  *uint64         `json:"providerId,omitempty"`
    IsActive    bool            `json:"isActive"`
    CreatedAt   time.Time       `json:"createdAt"`
    UpdatedAt   time.Time       `json:"updatedAt"`
}

// ServiceFilter narrows catalog listings.  Zero values mean "any".
type ServiceFilter struct {
    CategoryID   uint64
    ProviderID   uint64
    Query        string
    ActiveOnly   bool
    // ApprovedOnly drops services whose provider is not approved.
    // Services without a provider are kept.
    ApprovedOnly bool
}
