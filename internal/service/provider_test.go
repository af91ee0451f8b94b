package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/home-services-marketplace/internal/model"
	"github.com/iliyamo/home-services-marketplace/internal/queue"
)

func newProviderFixture(accts ...model.Account) (*ProviderService, *fakeAccounts, *recordingPublisher) {
	store := accountsFixture()
	for _, a := range accts {
		store.rows[a.ID] = a
	}
	pub := &recordingPublisher{}
	return NewProviderService(store, pub, zap.NewNop()), store, pub
}

func TestRequestProvider_Success(t *testing.T) {
	svc, store, pub := newProviderFixture()

	acct, err := svc.RequestProvider(context.Background(), customer, ProviderRequestInput{
		ServiceType: " Cleaning ", Contact: "555-0101", Address: "1 Main St",
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleProvider, acct.Role)
	require.NotNil(t, acct.Provider)
	assert.Equal(t, model.ProviderPending, acct.Provider.Status)
	assert.Equal(t, "Cleaning", acct.Provider.ServiceType)
	assert.Equal(t, "pending", store.rows[customerID].Status())
	assert.Equal(t, []queue.EventType{queue.EventProviderRequested}, pub.types())
	assert.Equal(t, customerID, pub.events[0].AccountID)
}

func TestRequestProvider_NoPayloadDefaultsToPending(t *testing.T) {
	svc, _, _ := newProviderFixture()

	acct, err := svc.RequestProvider(context.Background(), otherCustomer, ProviderRequestInput{})
	require.NoError(t, err)
	assert.Equal(t, model.ProviderPending, acct.Provider.Status)
	assert.Empty(t, acct.Provider.ServiceType)
}

func TestRequestProvider_Rejections(t *testing.T) {
	const inQueueID, rejectedID uint64 = 20, 21
	svc, _, pub := newProviderFixture(
		model.Account{ID: inQueueID, Role: model.RoleProvider,
			Provider: &model.ProviderProfile{Status: model.ProviderInQueue}},
		model.Account{ID: rejectedID, Role: model.RoleProvider,
			Provider: &model.ProviderProfile{Status: model.ProviderRejected}},
	)
	ctx := context.Background()

	_, err := svc.RequestProvider(ctx, provider, ProviderRequestInput{})
	require.Error(t, err)
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Contains(t, err.Error(), "already a provider")

	_, err = svc.RequestProvider(ctx, Caller{ID: inQueueID, Role: model.RoleProvider}, ProviderRequestInput{})
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Contains(t, err.Error(), "request already pending")

	_, err = svc.RequestProvider(ctx, Caller{ID: rejectedID, Role: model.RoleProvider}, ProviderRequestInput{})
	assert.Equal(t, KindInvalidState, KindOf(err))

	_, err = svc.RequestProvider(ctx, admin, ProviderRequestInput{})
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = svc.RequestProvider(ctx, Caller{ID: 404, Role: model.RoleCustomer}, ProviderRequestInput{})
	assert.Equal(t, KindNotFound, KindOf(err))

	assert.Empty(t, pub.types())
}

func TestRequestProvider_SecondRequestIsPending(t *testing.T) {
	svc, _, _ := newProviderFixture()
	ctx := context.Background()

	_, err := svc.RequestProvider(ctx, customer, ProviderRequestInput{ServiceType: "Garden"})
	require.NoError(t, err)

	// The token still says customer; the stored account decides.
	_, err = svc.RequestProvider(ctx, customer, ProviderRequestInput{ServiceType: "Garden"})
	assert.Equal(t, KindInvalidState, KindOf(err))
	assert.Contains(t, err.Error(), "request already pending")
}

func TestDecide(t *testing.T) {
	svc, store, pub := newProviderFixture()
	ctx := context.Background()

	_, err := svc.RequestProvider(ctx, customer, ProviderRequestInput{ServiceType: "Painting"})
	require.NoError(t, err)

	acct, err := svc.Decide(ctx, admin, customerID, DecisionApprove)
	require.NoError(t, err)
	assert.True(t, acct.IsApprovedProvider())

	acct, err = svc.Decide(ctx, admin, customerID, DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, model.ProviderRejected, store.rows[customerID].Provider.Status)
	assert.Equal(t, "rejected", acct.Status())

	assert.Equal(t, []queue.EventType{
		queue.EventProviderRequested, queue.EventProviderApproved, queue.EventProviderRejected,
	}, pub.types())
}

func TestDecide_Errors(t *testing.T) {
	svc, _, _ := newProviderFixture()
	ctx := context.Background()

	_, err := svc.Decide(ctx, customer, providerID, DecisionApprove)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = svc.Decide(ctx, admin, providerID, Decision("maybe"))
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = svc.Decide(ctx, admin, 404, DecisionApprove)
	assert.Equal(t, KindNotFound, KindOf(err))

	_, err = svc.Decide(ctx, admin, otherCustomerID, DecisionApprove)
	assert.Equal(t, KindInvalidState, KindOf(err))
}

func TestListApplications(t *testing.T) {
	svc, _, _ := newProviderFixture(model.Account{ID: 30, Role: model.RoleProvider,
		Provider: &model.ProviderProfile{Status: model.ProviderPending}})
	ctx := context.Background()

	all, err := svc.ListApplications(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := svc.ListApplications(ctx, admin, "pending")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, uint64(30), pending[0].ID)

	_, err = svc.ListApplications(ctx, admin, "sleeping")
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = svc.ListApplications(ctx, provider, "")
	assert.Equal(t, KindForbidden, KindOf(err))
}
