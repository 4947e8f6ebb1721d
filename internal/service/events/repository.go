package events

import (
	"context"

	"github.com/ignite/phish-tracker/internal/domain"
)

// Repository defines the data access contract for recorded events.
// Implementations must be safe for concurrent use.
type Repository interface {
	// WithinTx runs fn inside a single transaction. The transaction is
	// committed if fn returns nil and rolled back otherwise; it is always
	// released before WithinTx returns.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	// ListEvents returns events joined with their campaign name. Nil filter
	// fields are not applied.
	ListEvents(ctx context.Context, filter ListFilter) ([]domain.EventView, error)
}

// Tx is the set of operations available inside a WithinTx unit of work.
type Tx interface {
	// Campaign returns the campaign with the given id, or ErrCampaignNotFound.
	Campaign(ctx context.Context, id int64) (*domain.Campaign, error)

	// EmployeeByEmail returns the employee with the given email, or
	// ErrEmployeeNotFound.
	EmployeeByEmail(ctx context.Context, email string) (*domain.Employee, error)

	// InsertEvent appends e and sets e.ID to the store-assigned id.
	InsertEvent(ctx context.Context, e *domain.Event) error
}

// ListFilter holds the optional equality filters for ListEvents. Both
// filters are AND-ed when set.
type ListFilter struct {
	CampaignID *int64
	EmployeeID *int64
}
