// Package service holds the marketplace controllers.  Each operation checks
// capabilities and business rules before touching the store and reports
// failures as *Error.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/home-services-marketplace/internal/model"
	"github.com/iliyamo/home-services-marketplace/internal/queue"
	"github.com/iliyamo/home-services-marketplace/internal/repository"
)

// Caller is the authenticated identity performing an operation.
type Caller struct {
	ID   uint64
	Role model.Role
}

type AccountStore interface {
	GetByID(ctx context.Context, id uint64) (model.Account, error)
	RequestProvider(ctx context.Context, id uint64, p model.ProviderProfile) error
	SetProviderStatus(ctx context.Context, id uint64, status model.ProviderStatus) error
	ListProviders(ctx context.Context, status model.ProviderStatus) ([]model.Account, error)
}

type CategoryStore interface {
	Create(ctx context.Context, c *model.Category) error
	GetByID(ctx context.Context, id uint64) (model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
}

type ServiceStore interface {
	Create(ctx context.Context, s *model.Service) error
	GetByID(ctx context.Context, id uint64) (model.Service, error)
	Update(ctx context.Context, s *model.Service) error
	SetActive(ctx context.Context, id uint64, active bool) error
	List(ctx context.Context, f model.ServiceFilter) ([]model.Service, error)
}

type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
	GetDetail(ctx context.Context, id uint64) (model.BookingDetail, error)
	ListDetails(ctx context.Context, f model.BookingFilter) ([]model.BookingDetail, error)
	UpdateStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error
}

// EventPublisher emits domain events.  Failures never fail the operation
// that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// base carries the dependencies every controller shares.
type base struct {
	events EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

func newBase(events EventPublisher, log *zap.Logger) base {
	if events == nil {
		events = queue.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return base{events: events, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// publishTimeout bounds a single event publish.  The publish context is
// detached from the request, so a cancelled request does not abort it.
const publishTimeout = 5 * time.Second

func (b base) publish(ctx context.Context, ev queue.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := b.events.Publish(ctx, ev); err != nil {
		b.log.Warn("event publish failed",
			zap.String("event_id", ev.ID), zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

// approvedProvider reports whether account id may act as a provider.  A
// missing account is not approved.
func (b base) approvedProvider(ctx context.Context, accounts AccountStore, id uint64) (bool, error) {
	acct, err := accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, b.internal("load provider", err)
	}
	return acct.IsApprovedProvider(), nil
}

// internal logs err and returns the generic internal error.
func (b base) internal(op string, err error) error {
	b.log.Error(op+" failed", zap.Error(err))
	return Internal(err)
}
