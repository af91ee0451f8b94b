package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/home-services-marketplace/internal/model"
	"github.com/iliyamo/home-services-marketplace/internal/queue"
)

var now = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

const (
	customerID      uint64 = 1
	providerID      uint64 = 2
	otherCustomerID uint64 = 3
	adminID         uint64 = 9

	serviceID         uint64 = 10
	unownedServiceID  uint64 = 11
	inactiveServiceID uint64 = 12
)

var (
	customer      = Caller{ID: customerID, Role: model.RoleCustomer}
	provider      = Caller{ID: providerID, Role: model.RoleProvider}
	otherCustomer = Caller{ID: otherCustomerID, Role: model.RoleCustomer}
	admin         = Caller{ID: adminID, Role: model.RoleAdmin}
)

func ptr(v uint64) *uint64 { return &v }

func accountsFixture() *fakeAccounts {
	return newFakeAccounts(
		model.Account{ID: customerID, Name: "Cara", Role: model.RoleCustomer},
		model.Account{ID: providerID, Name: "Pete", Role: model.RoleProvider,
			Provider: &model.ProviderProfile{ServiceType: "Plumbing", Status: model.ProviderApproved}},
		model.Account{ID: otherCustomerID, Name: "Olga", Role: model.RoleCustomer},
		model.Account{ID: adminID, Name: "Root", Role: model.RoleAdmin},
	)
}

func servicesFixture() *fakeServices {
	return newFakeServices(
		model.Service{ID: serviceID, Name: "Leak repair", CategoryID: 1, ProviderID: ptr(providerID),
			BasePrice: decimal.NewFromInt(50), PriceUnit: model.PriceFixed, IsActive: true},
		model.Service{ID: unownedServiceID, Name: "Curated", CategoryID: 1,
			BasePrice: decimal.NewFromInt(20), PriceUnit: model.PriceFixed, IsActive: true},
		model.Service{ID: inactiveServiceID, Name: "Retired", CategoryID: 1, ProviderID: ptr(providerID),
			BasePrice: decimal.NewFromInt(10), PriceUnit: model.PriceFixed, IsActive: false},
	)
}

type bookingFixture struct {
	svc      *BookingService
	bookings *fakeBookings
	accounts *fakeAccounts
	services *fakeServices
	events   *recordingPublisher
}

func newBookingFixture(t *testing.T, existing ...model.Booking) bookingFixture {
	t.Helper()
	f := bookingFixture{
		bookings: newFakeBookings(existing...),
		accounts: accountsFixture(),
		services: servicesFixture(),
		events:   &recordingPublisher{},
	}
	f.svc = NewBookingService(f.bookings, f.services, f.accounts, f.events, zap.NewNop())
	f.svc.now = func() time.Time { return now }
	return f
}

func booking(id uint64, status model.BookingStatus) model.Booking {
	return model.Booking{
		ID: id, ServiceID: serviceID, CustomerID: customerID, ProviderID: providerID,
		Status: status, ScheduledAt: now.Add(24 * time.Hour), TotalAmount: decimal.NewFromInt(50),
		CreatedAt: now,
	}
}

func TestCreateBooking_ScenarioApproveThenCustomerForbidden(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, customer, CreateBookingInput{ServiceID: serviceID, ScheduledAt: now.Add(72 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, d.Status)
	assert.Equal(t, providerID, d.ProviderID)
	assert.Equal(t, customerID, d.CustomerID)
	assert.True(t, decimal.NewFromInt(50).Equal(d.TotalAmount))

	d, err = f.svc.UpdateStatus(ctx, provider, d.ID, "approved")
	require.NoError(t, err)
	assert.Equal(t, model.BookingApproved, d.Status)

	_, err = f.svc.UpdateStatus(ctx, customer, d.ID, "approved")
	assert.Equal(t, KindForbidden, KindOf(err))

	assert.Equal(t, []queue.EventType{queue.EventBookingCreated, queue.EventBookingStatusChanged}, f.events.types())
	assert.Equal(t, "pending", f.events.events[1].PreviousStatus)
}

func TestCreateBooking_Validation(t *testing.T) {
	future := now.Add(time.Hour)
	cases := []struct {
		name   string
		caller Caller
		in     CreateBookingInput
		kind   Kind
	}{
		{"provider cannot book", provider, CreateBookingInput{ServiceID: serviceID, ScheduledAt: future}, KindForbidden},
		{"admin cannot book", admin, CreateBookingInput{ServiceID: serviceID, ScheduledAt: future}, KindForbidden},
		{"missing service id", customer, CreateBookingInput{ScheduledAt: future}, KindInvalidInput},
		{"unknown service", customer, CreateBookingInput{ServiceID: 999, ScheduledAt: future}, KindNotFound},
		{"inactive service", customer, CreateBookingInput{ServiceID: inactiveServiceID, ScheduledAt: future}, KindNotFound},
		{"date equals now", customer, CreateBookingInput{ServiceID: serviceID, ScheduledAt: now}, KindInvalidInput},
		{"date in the past", customer, CreateBookingInput{ServiceID: serviceID, ScheduledAt: now.Add(-time.Minute)}, KindInvalidInput},
		{"zero date", customer, CreateBookingInput{ServiceID: serviceID}, KindInvalidInput},
		{"unknown customer", Caller{ID: 77, Role: model.RoleCustomer}, CreateBookingInput{ServiceID: serviceID, ScheduledAt: future}, KindNotFound},
		{"service without provider", customer, CreateBookingInput{ServiceID: unownedServiceID, ScheduledAt: future}, KindInvalidState},
		{"provider not approved", customer, CreateBookingInput{ServiceID: serviceID, ScheduledAt: future}, KindInvalidState},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newBookingFixture(t)
			if tc.name == "provider not approved" {
				setProviderStatus(t, f, model.ProviderPending)
			}
			_, err := f.svc.Create(context.Background(), tc.caller, tc.in)
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
			assert.Empty(t, f.bookings.rows, "no booking may be stored")
			assert.Empty(t, f.events.types())
		})
	}
}

func TestCreateBooking_NotFoundBeforeDateCheck(t *testing.T) {
	f := newBookingFixture(t)
	_, err := f.svc.Create(context.Background(), customer, CreateBookingInput{ServiceID: 999, ScheduledAt: now.Add(-time.Hour)})
	assert.Equal(t, KindNotFound, KindOf(err))

	// an unparseable date arrives as zero
	_, err = f.svc.Create(context.Background(), customer, CreateBookingInput{ServiceID: 999})
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestCreateBooking_StoreFailureIsInternal(t *testing.T) {
	f := newBookingFixture(t)
	f.services.err = errBoom
	_, err := f.svc.Create(context.Background(), customer, CreateBookingInput{ServiceID: serviceID, ScheduledAt: now.Add(time.Hour)})
	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, err, errBoom)
}

func TestCreateBooking_PublishFailureDoesNotFail(t *testing.T) {
	f := newBookingFixture(t)
	f.events.err = errBoom
	d, err := f.svc.Create(context.Background(), customer, CreateBookingInput{ServiceID: serviceID, ScheduledAt: now.Add(time.Hour)})
	require.NoError(t, err)
	assert.NotZero(t, d.ID)
}

func TestUpdateStatus_Transitions(t *testing.T) {
	cases := []struct {
		name   string
		from   model.BookingStatus
		caller Caller
		to     string
		kind   Kind
		ok     bool
	}{
		{"provider approves pending", model.BookingPending, provider, "approved", 0, true},
		{"provider rejects pending", model.BookingPending, provider, "rejected", 0, true},
		{"customer cancels pending", model.BookingPending, customer, "cancelled", 0, true},
		{"provider cancels pending", model.BookingPending, provider, "cancelled", 0, true},
		{"customer completes approved", model.BookingApproved, customer, "completed", 0, true},
		{"provider cancels approved", model.BookingApproved, provider, "cancelled", 0, true},
		{"customer approves", model.BookingPending, customer, "approved", KindForbidden, false},
		{"customer rejects", model.BookingPending, customer, "rejected", KindForbidden, false},
		{"stranger cancels", model.BookingPending, otherCustomer, "cancelled", KindForbidden, false},
		{"admin is not a party", model.BookingPending, admin, "cancelled", KindForbidden, false},
		{"complete pending", model.BookingPending, provider, "completed", KindInvalidState, false},
		{"reject approved", model.BookingApproved, provider, "rejected", KindInvalidState, false},
		{"cancelled is terminal", model.BookingCancelled, provider, "approved", KindInvalidState, false},
		{"completed is terminal", model.BookingCompleted, customer, "cancelled", KindInvalidState, false},
		{"rejected is terminal", model.BookingRejected, provider, "approved", KindInvalidState, false},
		{"pending is not a target", model.BookingPending, provider, "pending", KindInvalidInput, false},
		{"unknown target", model.BookingPending, provider, "done", KindInvalidInput, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newBookingFixture(t, booking(1, tc.from))
			d, err := f.svc.UpdateStatus(context.Background(), tc.caller, 1, tc.to)
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, model.BookingStatus(tc.to), d.Status)
				assert.Equal(t, providerID, d.ProviderID)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.kind, KindOf(err))
			assert.Equal(t, tc.from, f.bookings.rows[1].Status)
			assert.Empty(t, f.events.types())
		})
	}
}

func TestUpdateStatus_InvalidInputBeforeNotFound(t *testing.T) {
	f := newBookingFixture(t)
	_, err := f.svc.UpdateStatus(context.Background(), provider, 42, "bogus")
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = f.svc.UpdateStatus(context.Background(), provider, 42, "approved")
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestUpdateStatus_ConcurrentChangeIsInvalidState(t *testing.T) {
	f := newBookingFixture(t, booking(1, model.BookingPending))
	f.bookings.beforeUpdate = func(b *model.Booking) { b.Status = model.BookingCancelled }

	_, err := f.svc.UpdateStatus(context.Background(), provider, 1, "approved")
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Equal(t, model.BookingCancelled, f.bookings.rows[1].Status)
	assert.Empty(t, f.events.types())
}

func TestGetBooking(t *testing.T) {
	f := newBookingFixture(t, booking(1, model.BookingPending))
	ctx := context.Background()

	for _, c := range []Caller{customer, provider, admin} {
		d, err := f.svc.Get(ctx, c, 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), d.ID)
	}

	_, err := f.svc.Get(ctx, otherCustomer, 1)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = f.svc.Get(ctx, admin, 2)
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestListBookings(t *testing.T) {
	older := booking(1, model.BookingPending)
	newer := booking(2, model.BookingApproved)
	newer.CreatedAt = now.Add(time.Minute)
	foreign := booking(3, model.BookingPending)
	foreign.CustomerID = otherCustomerID
	foreign.CreatedAt = now.Add(2 * time.Minute)
	f := newBookingFixture(t, older, newer, foreign)
	ctx := context.Background()

	mine, err := f.svc.ListForCustomer(ctx, customer, 0, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, uint64(2), mine[0].ID)
	assert.Equal(t, uint64(1), mine[1].ID)

	page, err := f.svc.ListForCustomer(ctx, customer, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, uint64(1), page[0].ID)

	forProvider, err := f.svc.ListForProvider(ctx, provider, 0, 0)
	require.NoError(t, err)
	assert.Len(t, forProvider, 3)

	all, err := f.svc.ListAll(ctx, admin, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, uint64(3), all[0].ID)

	_, err = f.svc.ListForCustomer(ctx, provider, 0, 0)
	assert.Equal(t, KindForbidden, KindOf(err))
	_, err = f.svc.ListForProvider(ctx, customer, 0, 0)
	assert.Equal(t, KindForbidden, KindOf(err))
	_, err = f.svc.ListAll(ctx, customer, 0, 0)
	assert.Equal(t, KindForbidden, KindOf(err))
	_, err = f.svc.ListAll(ctx, admin, -1, 0)
	assert.Equal(t, KindInvalidInput, KindOf(err))
}

func setProviderStatus(t *testing.T, f bookingFixture, st model.ProviderStatus) {
	t.Helper()
	require.NoError(t, f.accounts.SetProviderStatus(context.Background(), providerID, st))
}

func TestRejectedProviderCannotTakeBookings(t *testing.T) {
	f := newBookingFixture(t, booking(1, model.BookingPending), booking(2, model.BookingApproved))
	ctx := context.Background()
	providers := NewProviderService(f.accounts, f.events, zap.NewNop())

	_, err := providers.Decide(ctx, admin, providerID, DecisionReject)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, customer, CreateBookingInput{ServiceID: serviceID, ScheduledAt: now.Add(time.Hour)})
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Len(t, f.bookings.rows, 2)

	for _, target := range []string{"approved", "rejected"} {
		_, err = f.svc.UpdateStatus(ctx, provider, 1, target)
		assert.Equal(t, KindForbidden, KindOf(err), target)
	}
	assert.Equal(t, model.BookingPending, f.bookings.rows[1].Status)

	// winding down existing work stays possible
	d, err := f.svc.UpdateStatus(ctx, provider, 2, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, model.BookingCancelled, d.Status)

	_, err = providers.Decide(ctx, admin, providerID, DecisionApprove)
	require.NoError(t, err)
	d, err = f.svc.UpdateStatus(ctx, provider, 1, "approved")
	require.NoError(t, err)
	assert.Equal(t, model.BookingApproved, d.Status)
}

func TestBookingProviderSurvivesServiceReassignment(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()

	d, err := f.svc.Create(ctx, customer, CreateBookingInput{ServiceID: serviceID, ScheduledAt: now.Add(time.Hour)})
	require.NoError(t, err)

	const newProviderID uint64 = 5
	f.accounts.rows[newProviderID] = model.Account{ID: newProviderID, Role: model.RoleProvider,
		Provider: &model.ProviderProfile{Status: model.ProviderApproved}}
	svc := f.services.rows[serviceID]
	svc.ProviderID = ptr(newProviderID)
	f.services.rows[serviceID] = svc

	got, err := f.svc.Get(ctx, customer, d.ID)
	require.NoError(t, err)
	assert.Equal(t, providerID, got.ProviderID)

	// the new owner of the service is not a party to the booking
	_, err = f.svc.UpdateStatus(ctx, Caller{ID: newProviderID, Role: model.RoleProvider}, d.ID, "approved")
	assert.Equal(t, KindForbidden, KindOf(err))

	got, err = f.svc.UpdateStatus(ctx, provider, d.ID, "approved")
	require.NoError(t, err)
	assert.Equal(t, providerID, got.ProviderID)
}

func TestEventsOutliveCancelledRequest(t *testing.T) {
	f := newBookingFixture(t, booking(1, model.BookingPending))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Create(ctx, customer, CreateBookingInput{ServiceID: serviceID, ScheduledAt: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, provider, 1, "approved")
	require.NoError(t, err)

	require.Len(t, f.events.ctxErrs, 2)
	for _, e := range f.events.ctxErrs {
		assert.NoError(t, e)
	}
}
