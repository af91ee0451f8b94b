package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/home-services-marketplace/internal/model"
	"github.com/iliyamo/home-services-marketplace/internal/policy"
	"github.com/iliyamo/home-services-marketplace/internal/queue"
	"github.com/iliyamo/home-services-marketplace/internal/repository"
)

// CreateBookingInput is the payload of BookingService.Create.
type CreateBookingInput struct {
	ServiceID   uint64
	ScheduledAt time.Time
	Notes       string
}

// BookingService runs the booking lifecycle.
type BookingService struct {
	base
	bookings BookingStore
	services ServiceStore
	accounts AccountStore
}

func NewBookingService(bookings BookingStore, services ServiceStore, accounts AccountStore, events EventPublisher, log *zap.Logger) *BookingService {
	return &BookingService{
		base:     newBase(events, log),
		bookings: bookings,
		services: services,
		accounts: accounts,
	}
}

// Create books an active service for the calling customer.  The booking
// starts pending with the service's provider and base price copied in.
func (s *BookingService) Create(ctx context.Context, caller Caller, in CreateBookingInput) (model.BookingDetail, error) {
	if !policy.Allow(caller.Role, policy.CreateBooking) {
		return model.BookingDetail{}, Forbidden("only customers can create bookings")
	}
	if in.ServiceID == 0 {
		return model.BookingDetail{}, InvalidInput("serviceId is required")
	}

	svc, err := s.services.GetByID(ctx, in.ServiceID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !svc.IsActive) {
		return model.BookingDetail{}, NotFound("service not found")
	}
	if err != nil {
		return model.BookingDetail{}, s.internal("load service", err)
	}

	if in.ScheduledAt.IsZero() || !in.ScheduledAt.After(s.now()) {
		return model.BookingDetail{}, InvalidInput("scheduledDate must be a valid date in the future")
	}

	if _, err := s.accounts.GetByID(ctx, caller.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.BookingDetail{}, NotFound("customer not found")
		}
		return model.BookingDetail{}, s.internal("load customer", err)
	}

	if svc.ProviderID == nil {
		return model.BookingDetail{}, InvalidState("service has no provider")
	}
	approved, err := s.approvedProvider(ctx, s.accounts, *svc.ProviderID)
	if err != nil {
		return model.BookingDetail{}, err
	}
	if !approved {
		return model.BookingDetail{}, InvalidState("provider is not approved")
	}

	b := model.Booking{
		ServiceID:   svc.ID,
		CustomerID:  caller.ID,
		ProviderID:  *svc.ProviderID,
		Status:      model.BookingPending,
		ScheduledAt: in.ScheduledAt.UTC(),
		TotalAmount: svc.BasePrice,
		Notes:       in.Notes,
	}
	if err := s.bookings.Create(ctx, &b); err != nil {
		return model.BookingDetail{}, s.internal("create booking", err)
	}
	d, err := s.detail(ctx, b.ID)
	s.publish(ctx, queue.BookingCreated(b, s.now()))
	return d, err
}

// UpdateStatus moves a booking to target on behalf of one of its parties.
// The change is evaluated against the transition table and applied only
// if the booking still holds the status it was evaluated against.
func (s *BookingService) UpdateStatus(ctx context.Context, caller Caller, id uint64, target string) (model.BookingDetail, error) {
	to, ok := model.ParseBookingStatus(target)
	if !ok || !policy.IsUpdatable(to) {
		return model.BookingDetail{}, InvalidInput("invalid status value")
	}

	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.BookingDetail{}, NotFound("booking not found")
		}
		return model.BookingDetail{}, s.internal("load booking", err)
	}

	var actor policy.Actor
	switch caller.ID {
	case b.ProviderID:
		actor = policy.ActorProvider
	case b.CustomerID:
		actor = policy.ActorCustomer
	default:
		return model.BookingDetail{}, Forbidden("not authorized to update this booking")
	}

	switch policy.EvaluateTransition(b.Status, actor, to) {
	case policy.DeniedActor:
		return model.BookingDetail{}, Forbidden("only the provider can set status to " + string(to))
	case policy.DeniedState:
		return model.BookingDetail{}, InvalidState("cannot change status from " + string(b.Status) + " to " + string(to))
	}

	// approving and rejecting act as the provider; a provider whose own
	// application was rejected or is still awaiting a decision may not
	if actor == policy.ActorProvider && (to == model.BookingApproved || to == model.BookingRejected) {
		approved, err := s.approvedProvider(ctx, s.accounts, caller.ID)
		if err != nil {
			return model.BookingDetail{}, err
		}
		if !approved {
			return model.BookingDetail{}, Forbidden("provider is not approved")
		}
	}

	if err := s.bookings.UpdateStatus(ctx, b.ID, b.Status, to); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.BookingDetail{}, InvalidState("booking status changed concurrently")
		}
		return model.BookingDetail{}, s.internal("update booking status", err)
	}

	previous := b.Status
	b.Status = to
	d, err := s.detail(ctx, b.ID)
	s.publish(ctx, queue.BookingStatusChanged(b, previous, s.now()))
	return d, err
}

// Get returns a booking to one of its parties or to an admin.
func (s *BookingService) Get(ctx context.Context, caller Caller, id uint64) (model.BookingDetail, error) {
	d, err := s.bookings.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.BookingDetail{}, NotFound("booking not found")
		}
		return model.BookingDetail{}, s.internal("load booking", err)
	}
	if caller.ID != d.CustomerID && caller.ID != d.ProviderID && !policy.Allow(caller.Role, policy.ReadAnyBooking) {
		return model.BookingDetail{}, Forbidden("not authorized to view this booking")
	}
	return d, nil
}

// ListForCustomer returns the caller's own bookings, newest first.
func (s *BookingService) ListForCustomer(ctx context.Context, caller Caller, limit, offset int) ([]model.BookingDetail, error) {
	if !policy.Allow(caller.Role, policy.ListOwnBookings) {
		return nil, Forbidden("only customers have bookings")
	}
	return s.list(ctx, model.BookingFilter{CustomerID: caller.ID, Limit: limit, Offset: offset})
}

// ListForProvider returns bookings addressed to the calling provider.
func (s *BookingService) ListForProvider(ctx context.Context, caller Caller, limit, offset int) ([]model.BookingDetail, error) {
	if !policy.Allow(caller.Role, policy.ListProviderBookings) {
		return nil, Forbidden("only providers receive bookings")
	}
	return s.list(ctx, model.BookingFilter{ProviderID: caller.ID, Limit: limit, Offset: offset})
}

// ListAll returns every booking.  Admin only.
func (s *BookingService) ListAll(ctx context.Context, caller Caller, limit, offset int) ([]model.BookingDetail, error) {
	if !policy.Allow(caller.Role, policy.ListAllBookings) {
		return nil, Forbidden("admin only")
	}
	return s.list(ctx, model.BookingFilter{Limit: limit, Offset: offset})
}

func (s *BookingService) list(ctx context.Context, f model.BookingFilter) ([]model.BookingDetail, error) {
	if f.Limit < 0 || f.Offset < 0 {
		return nil, InvalidInput("limit and offset must not be negative")
	}
	out, err := s.bookings.ListDetails(ctx, f)
	if err != nil {
		return nil, s.internal("list bookings", err)
	}
	return out, nil
}


func (s *BookingService) detail(ctx context.Context, id uint64) (model.BookingDetail, error) {
	d, err := s.bookings.GetDetail(ctx, id)
	if err != nil {
		return model.BookingDetail{}, s.internal("load booking detail", err)
	}
	return d, nil
}
