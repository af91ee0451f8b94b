package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/home-services-marketplace/internal/model"
	"github.com/iliyamo/home-services-marketplace/internal/queue"
	"github.com/iliyamo/home-services-marketplace/internal/repository"
)

var errBoom = errors.New("boom")

type fakeAccounts struct {
	mu   sync.Mutex
	rows map[uint64]model.Account
	err  error
}

func newFakeAccounts(accts ...model.Account) *fakeAccounts {
	f := &fakeAccounts{rows: map[uint64]model.Account{}}
	for _, a := range accts {
		f.rows[a.ID] = a
	}
	return f
}

func (f *fakeAccounts) GetByID(_ context.Context, id uint64) (model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.Account{}, f.err
	}
	a, ok := f.rows[id]
	if !ok {
		return model.Account{}, repository.ErrNotFound
	}
	if a.Provider != nil {
		p := *a.Provider
		a.Provider = &p
	}
	return a, nil
}

func (f *fakeAccounts) RequestProvider(_ context.Context, id uint64, p model.ProviderProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok || a.Role != model.RoleCustomer || a.Provider != nil {
		return repository.ErrConflict
	}
	a.Role = model.RoleProvider
	a.Provider = &p
	f.rows[id] = a
	return nil
}

func (f *fakeAccounts) SetProviderStatus(_ context.Context, id uint64, status model.ProviderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok || a.Provider == nil {
		return repository.ErrNotFound
	}
	p := *a.Provider
	p.Status = status
	a.Provider = &p
	f.rows[id] = a
	return nil
}

func (f *fakeAccounts) ListProviders(_ context.Context, status model.ProviderStatus) ([]model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Account{}
	for _, a := range f.rows {
		if a.Provider == nil || (status != "" && a.Provider.Status != status) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type fakeCategories struct {
	rows   map[uint64]model.Category
	nextID uint64
}

func newFakeCategories(cats ...model.Category) *fakeCategories {
	f := &fakeCategories{rows: map[uint64]model.Category{}, nextID: 100}
	for _, c := range cats {
		f.rows[c.ID] = c
	}
	return f
}

func (f *fakeCategories) Create(_ context.Context, c *model.Category) error {
	for _, existing := range f.rows {
		if existing.Name == c.Name || existing.Slug == c.Slug {
			return repository.ErrConflict
		}
	}
	f.nextID++
	c.ID = f.nextID
	f.rows[c.ID] = *c
	return nil
}

func (f *fakeCategories) GetByID(_ context.Context, id uint64) (model.Category, error) {
	c, ok := f.rows[id]
	if !ok {
		return model.Category{}, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeCategories) List(context.Context) ([]model.Category, error) {
	out := []model.Category{}
	for _, c := range f.rows {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeServices struct {
	rows   map[uint64]model.Service
	nextID uint64
	err    error
	// accounts backs the ApprovedOnly filter when set
	accounts *fakeAccounts
}

func newFakeServices(svcs ...model.Service) *fakeServices {
	f := &fakeServices{rows: map[uint64]model.Service{}, nextID: 100}
	for _, s := range svcs {
		f.rows[s.ID] = s
	}
	return f
}

func (f *fakeServices) Create(_ context.Context, s *model.Service) error {
	f.nextID++
	s.ID = f.nextID
	f.rows[s.ID] = *s
	return nil
}

func (f *fakeServices) GetByID(_ context.Context, id uint64) (model.Service, error) {
	if f.err != nil {
		return model.Service{}, f.err
	}
	s, ok := f.rows[id]
	if !ok {
		return model.Service{}, repository.ErrNotFound
	}
	return s, nil
}

func (f *fakeServices) Update(_ context.Context, s *model.Service) error {
	cur, ok := f.rows[s.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Name, cur.Description, cur.CategoryID = s.Name, s.Description, s.CategoryID
	cur.BasePrice, cur.PriceUnit = s.BasePrice, s.PriceUnit
	f.rows[s.ID] = cur
	*s = cur
	return nil
}

func (f *fakeServices) SetActive(_ context.Context, id uint64, active bool) error {
	s, ok := f.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.IsActive = active
	f.rows[id] = s
	return nil
}

func (f *fakeServices) List(_ context.Context, flt model.ServiceFilter) ([]model.Service, error) {
	out := []model.Service{}
	for _, s := range f.rows {
		if flt.ActiveOnly && !s.IsActive {
			continue
		}
		if flt.CategoryID != 0 && s.CategoryID != flt.CategoryID {
			continue
		}
		if flt.ProviderID != 0 && (s.ProviderID == nil || *s.ProviderID != flt.ProviderID) {
			continue
		}
		if flt.ApprovedOnly && s.ProviderID != nil && f.accounts != nil {
			if a, err := f.accounts.GetByID(context.Background(), *s.ProviderID); err != nil || !a.IsApprovedProvider() {
				continue
			}
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

type fakeBookings struct {
	mu     sync.Mutex
	rows   map[uint64]model.Booking
	nextID uint64
	clock  time.Time
	// beforeUpdate runs inside UpdateStatus before the compare step so tests
	// can simulate a concurrent writer.
	beforeUpdate func(b *model.Booking)
}

func newFakeBookings(bs ...model.Booking) *fakeBookings {
	f := &fakeBookings{rows: map[uint64]model.Booking{}, nextID: 500, clock: now}
	for _, b := range bs {
		f.rows[b.ID] = b
	}
	return f
}

func (f *fakeBookings) Create(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.clock = f.clock.Add(time.Second)
	b.ID = f.nextID
	b.CreatedAt, b.UpdatedAt = f.clock, f.clock
	f.rows[b.ID] = *b
	return nil
}

func (f *fakeBookings) GetByID(_ context.Context, id uint64) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[id]
	if !ok {
		return model.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (f *fakeBookings) GetDetail(ctx context.Context, id uint64) (model.BookingDetail, error) {
	b, err := f.GetByID(ctx, id)
	if err != nil {
		return model.BookingDetail{}, err
	}
	return toDetail(b), nil
}

func (f *fakeBookings) ListDetails(_ context.Context, flt model.BookingFilter) ([]model.BookingDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.BookingDetail{}
	for _, b := range f.rows {
		if flt.CustomerID != 0 && b.CustomerID != flt.CustomerID {
			continue
		}
		if flt.ProviderID != 0 && b.ProviderID != flt.ProviderID {
			continue
		}
		out = append(out, toDetail(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if flt.Offset > len(out) {
		return []model.BookingDetail{}, nil
	}
	out = out[flt.Offset:]
	if flt.Limit > 0 && flt.Limit < len(out) {
		out = out[:flt.Limit]
	}
	return out, nil
}

func (f *fakeBookings) UpdateStatus(_ context.Context, id uint64, from, to model.BookingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.rows[id]
	if !ok {
		return repository.ErrConflict
	}
	if f.beforeUpdate != nil {
		f.beforeUpdate(&b)
	}
	if b.Status != from {
		f.rows[id] = b
		return repository.ErrConflict
	}
	b.Status = to
	f.rows[id] = b
	return nil
}

func toDetail(b model.Booking) model.BookingDetail {
	return model.BookingDetail{
		Booking:  b,
		Service:  model.ServiceSummary{ID: b.ServiceID},
		Customer: model.AccountSummary{ID: b.CustomerID},
		Provider: model.AccountSummary{ID: b.ProviderID},
	}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.Event
	err    error
	// ctxErrs holds ctx.Err() as seen by each Publish call
	ctxErrs []error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev queue.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []queue.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.EventType, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.Type)
	}
	return out
}
