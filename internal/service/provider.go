package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/home-services-marketplace/internal/model"
	"github.com/iliyamo/home-services-marketplace/internal/policy"
	"github.com/iliyamo/home-services-marketplace/internal/queue"
	"github.com/iliyamo/home-services-marketplace/internal/repository"
)

// ProviderRequestInput carries the optional application details.
type ProviderRequestInput struct {
	ServiceType string
	Address     string
	Contact     string
}

// Decision is an admin verdict on a provider application.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ProviderService runs the provider application workflow.
type ProviderService struct {
	base
	accounts AccountStore
}

func NewProviderService(accounts AccountStore, events EventPublisher, log *zap.Logger) *ProviderService {
	return &ProviderService{base: newBase(events, log), accounts: accounts}
}

// RequestProvider files a provider application for the caller.  The
// account becomes a provider in pending status until an admin decides.
// State is read from the store, not from the token, since the role may
// have changed since the token was issued.
func (s *ProviderService) RequestProvider(ctx context.Context, caller Caller, in ProviderRequestInput) (model.Account, error) {
	acct, err := s.accounts.GetByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, NotFound("account not found")
		}
		return model.Account{}, s.internal("load account", err)
	}
	if acct.Provider != nil && acct.Provider.Status.Awaiting() {
		return model.Account{}, InvalidState("request already pending")
	}
	if acct.Role == model.RoleProvider {
		return model.Account{}, InvalidState("already a provider")
	}
	if !policy.Allow(acct.Role, policy.RequestProvider) {
		return model.Account{}, Forbidden("only customers can request provider status")
	}

	profile := model.ProviderProfile{
		ServiceType: strings.TrimSpace(in.ServiceType),
		Address:     strings.TrimSpace(in.Address),
		Contact:     strings.TrimSpace(in.Contact),
		Status:      model.ProviderPending,
	}
	if err := s.accounts.RequestProvider(ctx, acct.ID, profile); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Account{}, InvalidState("request already pending")
		}
		return model.Account{}, s.internal("request provider", err)
	}
	s.publish(ctx, queue.ProviderChanged(queue.EventProviderRequested, acct.ID, profile.Status, s.now()))

	return s.reload(ctx, acct.ID)
}

// Decide approves or rejects a provider application.  Re-deciding an
// already decided application is allowed and simply overwrites it.
func (s *ProviderService) Decide(ctx context.Context, caller Caller, accountID uint64, decision Decision) (model.Account, error) {
	if !policy.Allow(caller.Role, policy.DecideProvider) {
		return model.Account{}, Forbidden("admin only")
	}
	var (
		status model.ProviderStatus
		evType queue.EventType
	)
	switch decision {
	case DecisionApprove:
		status, evType = model.ProviderApproved, queue.EventProviderApproved
	case DecisionReject:
		status, evType = model.ProviderRejected, queue.EventProviderRejected
	default:
		return model.Account{}, InvalidInput("decision must be approve or reject")
	}

	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, NotFound("account not found")
		}
		return model.Account{}, s.internal("load account", err)
	}
	if acct.Provider == nil {
		return model.Account{}, InvalidState("account has no provider application")
	}

	if err := s.accounts.SetProviderStatus(ctx, acct.ID, status); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Account{}, NotFound("account not found")
		}
		return model.Account{}, s.internal("set provider status", err)
	}
	s.publish(ctx, queue.ProviderChanged(evType, acct.ID, status, s.now()))

	return s.reload(ctx, acct.ID)
}

// ListApplications returns provider applications, optionally filtered by
// status.
func (s *ProviderService) ListApplications(ctx context.Context, caller Caller, status string) ([]model.Account, error) {
	if !policy.Allow(caller.Role, policy.ListApplications) {
		return nil, Forbidden("admin only")
	}
	var filter model.ProviderStatus
	if status != "" {
		st, ok := model.ParseProviderStatus(status)
		if !ok {
			return nil, InvalidInput("invalid status filter")
		}
		filter = st
	}
	out, err := s.accounts.ListProviders(ctx, filter)
	if err != nil {
		return nil, s.internal("list providers", err)
	}
	return out, nil
}

func (s *ProviderService) reload(ctx context.Context, id uint64) (model.Account, error) {
	acct, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return model.Account{}, s.internal("reload account", err)
	}
	return acct, nil
}
