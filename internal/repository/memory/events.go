// Package memory provides in-process implementations of the service
// repositories. They back unit tests and local runs without PostgreSQL.
package memory

import (
	"context"
	"sync"

	"github.com/ignite/phish-tracker/internal/domain"
	"github.com/ignite/phish-tracker/internal/service/events"
)

// EventRepo implements events.Repository in memory. Transactions are
// serialized: WithinTx holds the repository lock for its whole duration and
// inserted rows only become visible on commit.
type EventRepo struct {
	mu        sync.Mutex
	campaigns map[int64]domain.Campaign
	employees map[string]domain.Employee
	employeeIDs map[int64]bool
	events    []domain.Event
	lastID    int64
}

// NewEventRepo creates an empty in-memory event repository.
func NewEventRepo() *EventRepo {
	return &EventRepo{
		campaigns: make(map[int64]domain.Campaign),
		employees: make(map[string]domain.Employee),
		employeeIDs: make(map[int64]bool),
	}
}

// AddCampaign seeds a campaign.
func (r *EventRepo) AddCampaign(id int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaigns[id] = domain.Campaign{ID: id, Name: name}
}

// RenameCampaign changes a seeded campaign's display name.
func (r *EventRepo) RenameCampaign(id int64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.campaigns[id]; ok {
		c.Name = name
		r.campaigns[id] = c
	}
}

// AddEmployee seeds an employee.
func (r *EventRepo) AddEmployee(id int64, email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.employees[email] = domain.Employee{ID: id, Email: email}
	r.employeeIDs[id] = true
}

// Events returns a copy of every committed event in insertion order.
func (r *EventRepo) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *EventRepo) WithinTx(ctx context.Context, fn func(tx events.Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{repo: r}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	r.events = append(r.events, tx.staged...)
	return nil
}

func (r *EventRepo) ListEvents(_ context.Context, f events.ListFilter) ([]domain.EventView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []domain.EventView{}
	for _, e := range r.events {
		if f.CampaignID != nil && e.CampaignID != *f.CampaignID {
			continue
		}
		if f.EmployeeID != nil && e.EmployeeID != *f.EmployeeID {
			continue
		}
		c, ok := r.campaigns[e.CampaignID]
		if !ok {
			continue // inner join
		}
		out = append(out, domain.EventView{Event: e, CampaignName: c.Name})
	}
	return out, nil
}

// memTx runs with the repository lock held.
type memTx struct {
	repo   *EventRepo
	staged []domain.Event
}

func (t *memTx) Campaign(_ context.Context, id int64) (*domain.Campaign, error) {
	c, ok := t.repo.campaigns[id]
	if !ok {
		return nil, events.ErrCampaignNotFound
	}
	return &c, nil
}

func (t *memTx) EmployeeByEmail(_ context.Context, email string) (*domain.Employee, error) {
	e, ok := t.repo.employees[email]
	if !ok {
		return nil, events.ErrEmployeeNotFound
	}
	return &e, nil
}

// InsertEvent enforces the same foreign keys as the events table.
func (t *memTx) InsertEvent(_ context.Context, e *domain.Event) error {
	if _, ok := t.repo.campaigns[e.CampaignID]; !ok {
		return events.ErrCampaignNotFound
	}
	if !t.repo.employeeIDs[e.EmployeeID] {
		return events.ErrEmployeeNotFound
	}
	t.repo.lastID++
	e.ID = t.repo.lastID
	t.staged = append(t.staged, *e)
	return nil
}
