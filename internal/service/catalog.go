package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/home-services-marketplace/internal/model"
	"github.com/iliyamo/home-services-marketplace/internal/policy"
	"github.com/iliyamo/home-services-marketplace/internal/repository"
)

// CategoryInput is the payload for creating a category.
type CategoryInput struct {
	Name        string
	Description string
}

// ServiceInput is the payload for creating or updating a service.
// ProviderID is only honoured for admins on create.
type ServiceInput struct {
	Name        string
	Description string
	CategoryID  uint64
	BasePrice   decimal.Decimal
	PriceUnit   string
	ProviderID  *uint64
}

// ServiceQuery filters the public service listing.
type ServiceQuery struct {
	CategoryID uint64
	ProviderID uint64
	Q          string
}

// CatalogService manages categories and services.
type CatalogService struct {
	base
	categories CategoryStore
	services   ServiceStore
	accounts   AccountStore
}

func NewCatalogService(categories CategoryStore, services ServiceStore, accounts AccountStore, log *zap.Logger) *CatalogService {
	return &CatalogService{
		base:       newBase(nil, log),
		categories: categories,
		services:   services,
		accounts:   accounts,
	}
}

func (s *CatalogService) CreateCategory(ctx context.Context, caller Caller, in CategoryInput) (model.Category, error) {
	if !policy.Allow(caller.Role, policy.ManageCategories) {
		return model.Category{}, Forbidden("admin only")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Category{}, InvalidInput("name is required")
	}
	slug := Slugify(name)
	if slug == "" {
		return model.Category{}, InvalidInput("name must contain letters or digits")
	}
	c := model.Category{Name: name, Slug: slug, Description: strings.TrimSpace(in.Description)}
	if err := s.categories.Create(ctx, &c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Category{}, Conflict("category already exists")
		}
		return model.Category{}, s.internal("create category", err)
	}
	return c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	out, err := s.categories.List(ctx)
	if err != nil {
		return nil, s.internal("list categories", err)
	}
	return out, nil
}

// CreateService adds a service.  Approved providers always own what they
// create; admins may attach an approved provider or leave it unowned.
func (s *CatalogService) CreateService(ctx context.Context, caller Caller, in ServiceInput) (model.Service, error) {
	if !policy.Allow(caller.Role, policy.ManageServices) {
		return model.Service{}, Forbidden("only admins and providers can create services")
	}

	var owner *uint64
	if policy.Allow(caller.Role, policy.ManageAnyService) {
		if in.ProviderID != nil {
			ok, err := s.approvedProvider(ctx, s.accounts, *in.ProviderID)
			if err != nil {
				return model.Service{}, err
			}
			if !ok {
				return model.Service{}, InvalidInput("providerId must reference an approved provider")
			}
			id := *in.ProviderID
			owner = &id
		}
	} else {
		ok, err := s.approvedProvider(ctx, s.accounts, caller.ID)
		if err != nil {
			return model.Service{}, err
		}
		if !ok {
			return model.Service{}, Forbidden("provider is not approved")
		}
		id := caller.ID
		owner = &id
	}

	svc := model.Service{ProviderID: owner, IsActive: true}
	if err := s.apply(ctx, &svc, in); err != nil {
		return model.Service{}, err
	}
	if err := s.services.Create(ctx, &svc); err != nil {
		return model.Service{}, s.internal("create service", err)
	}
	return svc, nil
}

// UpdateService replaces the editable fields of a service.
func (s *CatalogService) UpdateService(ctx context.Context, caller Caller, id uint64, in ServiceInput) (model.Service, error) {
	svc, err := s.ownedService(ctx, caller, id)
	if err != nil {
		return model.Service{}, err
	}
	if err := s.apply(ctx, &svc, in); err != nil {
		return model.Service{}, err
	}
	if err := s.services.Update(ctx, &svc); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Service{}, NotFound("service not found")
		}
		return model.Service{}, s.internal("update service", err)
	}
	return svc, nil
}

// DeleteService deactivates a service.  Rows are kept because bookings
// reference them.
func (s *CatalogService) DeleteService(ctx context.Context, caller Caller, id uint64) error {
	svc, err := s.ownedService(ctx, caller, id)
	if err != nil {
		return err
	}
	if err := s.services.SetActive(ctx, svc.ID, false); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound("service not found")
		}
		return s.internal("delete service", err)
	}
	return nil
}

// ListServices returns active services matching q.  Services owned by a
// provider that is not approved are hidden.
func (s *CatalogService) ListServices(ctx context.Context, q ServiceQuery) ([]model.Service, error) {
	out, err := s.services.List(ctx, model.ServiceFilter{
		CategoryID:   q.CategoryID,
		ProviderID:   q.ProviderID,
		Query:        strings.TrimSpace(q.Q),
		ActiveOnly:   true,
		ApprovedOnly: true,
	})
	if err != nil {
		return nil, s.internal("list services", err)
	}
	return out, nil
}

// GetService returns an active service whose provider, if any, is approved.
func (s *CatalogService) GetService(ctx context.Context, id uint64) (model.Service, error) {
	svc, err := s.activeService(ctx, id)
	if err != nil {
		return model.Service{}, err
	}
	if svc.ProviderID != nil {
		ok, err := s.approvedProvider(ctx, s.accounts, *svc.ProviderID)
		if err != nil {
			return model.Service{}, err
		}
		if !ok {
			return model.Service{}, NotFound("service not found")
		}
	}
	return svc, nil
}

func (s *CatalogService) activeService(ctx context.Context, id uint64) (model.Service, error) {
	svc, err := s.services.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !svc.IsActive) {
		return model.Service{}, NotFound("service not found")
	}
	if err != nil {
		return model.Service{}, s.internal("load service", err)
	}
	return svc, nil
}

// ownedService loads an active service the caller may modify.
func (s *CatalogService) ownedService(ctx context.Context, caller Caller, id uint64) (model.Service, error) {
	if !policy.Allow(caller.Role, policy.ManageServices) {
		return model.Service{}, Forbidden("only admins and providers can modify services")
	}
	svc, err := s.activeService(ctx, id)
	if err != nil {
		return model.Service{}, err
	}
	if policy.Allow(caller.Role, policy.ManageAnyService) {
		return svc, nil
	}
	if svc.ProviderID == nil || *svc.ProviderID != caller.ID {
		return model.Service{}, Forbidden("not the owner of this service")
	}
	ok, err := s.approvedProvider(ctx, s.accounts, caller.ID)
	if err != nil {
		return model.Service{}, err
	}
	if !ok {
		return model.Service{}, Forbidden("provider is not approved")
	}
	return svc, nil
}

// apply validates in and copies it onto svc.
func (s *CatalogService) apply(ctx context.Context, svc *model.Service, in ServiceInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return InvalidInput("name is required")
	}
	if in.BasePrice.IsNegative() {
		return InvalidInput("basePrice must not be negative")
	}
	unit, ok := model.ParsePriceUnit(in.PriceUnit)
	if !ok {
		return InvalidInput("priceUnit must be fixed, hourly or visit")
	}
	if in.CategoryID == 0 {
		return InvalidInput("categoryId is required")
	}
	if _, err := s.categories.GetByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return InvalidInput("category does not exist")
		}
		return s.internal("load category", err)
	}
	svc.Name = name
	svc.Description = strings.TrimSpace(in.Description)
	svc.CategoryID = in.CategoryID
	svc.BasePrice = in.BasePrice.Round(2)
	svc.PriceUnit = unit
	return nil
}


// Slugify lower-cases name and joins runs of letters and digits with
// single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}
