package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "strings"

    "github.com/iliyamo/home-services-marketplace/internal/model"
)

// BookingRepo provides data access for bookings.  The provider_id column is
// written once on insert and never updated; status changes go through
// UpdateStatus, which is conditional on the previous status.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = "b.id, b.service_id, b.customer_id, b.provider_id, b.status, b.scheduled_at, b.total_amount, b.notes, b.created_at, b.updated_at"

// detailSelect joins the service and both parties.  Services and users are
// never physically removed, so inner joins are safe.
const detailSelect = `SELECT ` + bookingColumns + `,
       s.name, s.base_price, s.price_unit,
       cu.name, cu.email, cu.service_type, cu.contact,
       pu.name, pu.email, pu.service_type, pu.contact
  FROM bookings b
  JOIN services s ON s.id = b.service_id
  JOIN users cu   ON cu.id = b.customer_id
  JOIN users pu   ON pu.id = b.provider_id`

// Create inserts a booking and reads the row back to populate the
// generated ID and timestamps.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
    const q = `INSERT INTO bookings (service_id, customer_id, provider_id, status, scheduled_at, total_amount, notes)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
    res, err := r.db.ExecContext(ctx, q,
        b.ServiceID, b.CustomerID, b.ProviderID, string(b.Status),
        b.ScheduledAt.UTC(), b.TotalAmount, nullString(b.Notes))
    if err != nil {
        return fmt.Errorf("insert booking: %w", err)
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    created, err := r.GetByID(ctx, uint64(id))
    if err != nil {
        return err
    }
    *b = created
    return nil
}

// GetByID returns the bare booking row.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
    row := r.db.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings b WHERE b.id = ?", id)
    var b model.Booking
    if err := scanBooking(row, &b); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return model.Booking{}, ErrNotFound
        }
        return model.Booking{}, err
    }
    return b, nil
}

// GetDetail returns a booking with its service, customer and provider.
func (r *BookingRepo) GetDetail(ctx context.Context, id uint64) (model.BookingDetail, error) {
    row := r.db.QueryRowContext(ctx, detailSelect+" WHERE b.id = ?", id)
    d, err := scanDetail(row)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return model.BookingDetail{}, ErrNotFound
        }
        return model.BookingDetail{}, err
    }
    return d, nil
}

// ListDetails returns bookings matching the filter, newest first.
func (r *BookingRepo) ListDetails(ctx context.Context, f model.BookingFilter) ([]model.BookingDetail, error) {
    var (
        where []string
        args  []interface{}
    )
    if f.CustomerID != 0 {
        where = append(where, "b.customer_id = ?")
        args = append(args, f.CustomerID)
    }
    if f.ProviderID != 0 {
        where = append(where, "b.provider_id = ?")
        args = append(args, f.ProviderID)
    }
    q := detailSelect
    if len(where) > 0 {
        q += " WHERE " + strings.Join(where, " AND ")
    }
    q += " ORDER BY b.created_at DESC, b.id DESC"
    if f.Limit > 0 {
        q += " LIMIT ? OFFSET ?"
        args = append(args, f.Limit, max(f.Offset, 0))
    }

    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, fmt.Errorf("list bookings: %w", err)
    }
    defer rows.Close()
    out := make([]model.BookingDetail, 0)
    for rows.Next() {
        d, err := scanDetail(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, d)
    }
    return out, rows.Err()
}

// UpdateStatus moves a booking from one status to another.  The update
// only applies while the row still holds the expected status; when a
// concurrent writer got there first it returns ErrConflict.
func (r *BookingRepo) UpdateStatus(ctx context.Context, id uint64, from, to model.BookingStatus) error {
    res, err := r.db.ExecContext(ctx,
        "UPDATE bookings SET status = ? WHERE id = ? AND status = ?",
        string(to), id, string(from))
    if err != nil {
        return fmt.Errorf("update booking status: %w", err)
    }
    return expectOneRow(res, ErrConflict)
}

func scanBooking(sc rowScanner, b *model.Booking, extra ...interface{}) error {
    var (
        status string
        notes  sql.NullString
    )
    dest := []interface{}{
        &b.ID, &b.ServiceID, &b.CustomerID, &b.ProviderID, &status,
        &b.ScheduledAt, &b.TotalAmount, &notes, &b.CreatedAt, &b.UpdatedAt,
    }
    if err := sc.Scan(append(dest, extra...)...); err != nil {
        return err
    }
    b.Status = model.BookingStatus(status)
    b.Notes = notes.String
    return nil
}

func scanDetail(sc rowScanner) (model.BookingDetail, error) {
    var (
        d                    model.BookingDetail
        unit                 string
        custType, custPhone  sql.NullString
        provType, provPhone  sql.NullString
    )
    err := scanBooking(sc, &d.Booking,
        &d.Service.Name, &d.Service.BasePrice, &unit,
        &d.Customer.Name, &d.Customer.Email, &custType, &custPhone,
        &d.Provider.Name, &d.Provider.Email, &provType, &provPhone,
    )
    if err != nil {
        return model.BookingDetail{}, err
    }
    d.Service.ID = d.ServiceID
    d.Service.PriceUnit = model.PriceUnit(unit)
    d.Customer.ID = d.CustomerID
    d.Customer.ServiceType = custType.String
    d.Customer.Contact = custPhone.String
    d.Provider.ID = d.ProviderID
    d.Provider.ServiceType = provType.String
    d.Provider.Contact = provPhone.String
    return d, nil
}
