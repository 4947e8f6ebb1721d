package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/ignite/phish-tracker/internal/domain"
	"github.com/ignite/phish-tracker/internal/pkg/logger"
	"github.com/ignite/phish-tracker/internal/service/events"
)

const foreignKeyViolation = pq.ErrorCode("23503")

// Constraint names from migrations/001_phishing_events.sql.
const (
	fkEventsCampaign = "events_campaign_id_fkey"
	fkEventsEmployee = "events_employee_id_fkey"
)

// EventRepo implements events.Repository against PostgreSQL.
type EventRepo struct{ db *sql.DB }

// NewEventRepo creates a Postgres-backed event repository.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// WithinTx runs fn in a transaction. The deferred rollback also covers
// panics raised inside fn.
func (r *EventRepo) WithinTx(ctx context.Context, fn func(tx events.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			logger.Warn("rollback failed", "error", rbErr)
		}
	}()

	if err := fn(&eventTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (r *EventRepo) ListEvents(ctx context.Context, f events.ListFilter) ([]domain.EventView, error) {
	q := `
		SELECT e.id, e.email, e.ip, e.event_type, e.campaign_id, e.employee_id, c.name, e.timestamp
		FROM events e
		JOIN campaigns c ON c.id = e.campaign_id`

	var conds []string
	var args []interface{}
	if f.CampaignID != nil {
		args = append(args, *f.CampaignID)
		conds = append(conds, fmt.Sprintf("e.campaign_id = $%d", len(args)))
	}
	if f.EmployeeID != nil {
		args = append(args, *f.EmployeeID)
		conds = append(conds, fmt.Sprintf("e.employee_id = $%d", len(args)))
	}
	if len(conds) > 0 {
		q += "\n\t\tWHERE " + strings.Join(conds, " AND ")
	}
	q += "\n\t\tORDER BY e.id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := []domain.EventView{}
	for rows.Next() {
		var v domain.EventView
		if err := rows.Scan(
			&v.ID, &v.Email, &v.IP, &v.EventType, &v.CampaignID, &v.EmployeeID, &v.CampaignName, &v.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if !v.EventType.Valid() {
			return nil, fmt.Errorf("event %d: unknown event_type %q", v.ID, v.EventType)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return out, nil
}

type eventTx struct{ tx *sql.Tx }

func (t *eventTx) Campaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, name FROM campaigns WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name)
	if err == sql.ErrNoRows {
		return nil, events.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (t *eventTx) EmployeeByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	e := &domain.Employee{}
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, email FROM employees WHERE email = $1 LIMIT 1`, email,
	).Scan(&e.ID, &e.Email)
	if err == sql.ErrNoRows {
		return nil, events.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return e, nil
}

func (t *eventTx) InsertEvent(ctx context.Context, e *domain.Event) error {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO events (email, ip, event_type, campaign_id, employee_id, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, e.Email, e.IP, string(e.EventType), e.CampaignID, e.EmployeeID, e.Timestamp).Scan(&e.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation {
			switch pqErr.Constraint {
			case fkEventsCampaign:
				return events.ErrCampaignNotFound
			case fkEventsEmployee:
				return events.ErrEmployeeNotFound
			}
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}
