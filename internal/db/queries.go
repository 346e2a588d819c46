package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/kin/internal/contact"
	"github.com/hpungsan/kin/internal/errors"
)

// Querier is the subset of *sql.DB and *sql.Tx the counter queries need.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// EnsureCounter creates the record for id with zero counters if it does not exist.
func EnsureCounter(ctx context.Context, q Querier, id string) error {
	if id == "" {
		return errors.NewInvalidRequest("contact_id is required")
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO contact (contact_id) VALUES (?) ON CONFLICT(contact_id) DO NOTHING`, id)
	if err != nil {
		return errors.NewStorageFailure("ensure counter", err)
	}
	return nil
}

// GetCounters returns the record for id, zero-valued if absent. Never creates a row.
func GetCounters(ctx context.Context, q Querier, id string) (contact.Counters, error) {
	if id == "" {
		return contact.Counters{}, errors.NewInvalidRequest("contact_id is required")
	}
	c := contact.Counters{ContactID: id}
	err := q.QueryRowContext(ctx,
		`SELECT proposed_counter, engaged_counter FROM contact WHERE contact_id = ?`, id,
	).Scan(&c.Proposed, &c.Engaged)
	if err == sql.ErrNoRows {
		return c, nil
	}
	if err != nil {
		return contact.Counters{}, errors.NewStorageFailure("get counters", err)
	}
	return c, nil
}

// CounterExists reports whether a record for id exists.
func CounterExists(ctx context.Context, q Querier, id string) (bool, error) {
	var exists int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM contact WHERE contact_id = ? LIMIT 1`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewStorageFailure("check counter", err)
	}
	return true, nil
}

// IncrementProposed adds one to proposed_counter, creating the record if needed.
// Single statement: SQLite runs it as one implicit transaction.
func IncrementProposed(ctx context.Context, q Querier, id string) error {
	return increment(ctx, q, id, "proposed_counter", "increment proposed")
}

// IncrementEngaged adds one to engaged_counter, creating the record if needed.
func IncrementEngaged(ctx context.Context, q Querier, id string) error {
	return increment(ctx, q, id, "engaged_counter", "increment engaged")
}

func increment(ctx context.Context, q Querier, id, column, op string) error {
	if id == "" {
		return errors.NewInvalidRequest("contact_id is required")
	}
	// column is one of two constants above, never user input.
	query := `INSERT INTO contact (contact_id, ` + column + `) VALUES (?, 1)
		ON CONFLICT(contact_id) DO UPDATE SET ` + column + ` = ` + column + ` + 1`
	if _, err := q.ExecContext(ctx, query, id); err != nil {
		return errors.NewStorageFailure(op, err)
	}
	return nil
}

// SetCounters overwrites both counters for a record, creating it if needed.
func SetCounters(ctx context.Context, q Querier, c contact.Counters) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO contact (contact_id, proposed_counter, engaged_counter) VALUES (?, ?, ?)
		ON CONFLICT(contact_id) DO UPDATE SET
			proposed_counter = excluded.proposed_counter,
			engaged_counter = excluded.engaged_counter
	`, c.ContactID, c.Proposed, c.Engaged)
	if err != nil {
		return errors.NewStorageFailure("set counters", err)
	}
	return nil
}

// AddCounters adds c's counts onto the existing record, creating it if needed.
func AddCounters(ctx context.Context, q Querier, c contact.Counters) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO contact (contact_id, proposed_counter, engaged_counter) VALUES (?, ?, ?)
		ON CONFLICT(contact_id) DO UPDATE SET
			proposed_counter = proposed_counter + excluded.proposed_counter,
			engaged_counter = engaged_counter + excluded.engaged_counter
	`, c.ContactID, c.Proposed, c.Engaged)
	if err != nil {
		return errors.NewStorageFailure("add counters", err)
	}
	return nil
}

// ListCounters returns one page of records, most engaged first.
func ListCounters(ctx context.Context, q Querier, limit, offset int) ([]contact.Counters, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT contact_id, proposed_counter, engaged_counter
		FROM contact
		ORDER BY engaged_counter DESC, proposed_counter DESC, contact_id ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, errors.NewStorageFailure("list counters", err)
	}
	defer rows.Close()

	out := make([]contact.Counters, 0, limit)
	for rows.Next() {
		var c contact.Counters
		if err := rows.Scan(&c.ContactID, &c.Proposed, &c.Engaged); err != nil {
			return nil, errors.NewStorageFailure("list counters", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStorageFailure("list counters", err)
	}
	return out, nil
}

// CountCounters returns the number of stored records.
func CountCounters(ctx context.Context, q Querier) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM contact`).Scan(&n); err != nil {
		return 0, errors.NewStorageFailure("count counters", err)
	}
	return n, nil
}

// StreamForExport calls fn for every record in contact_id order.
// Iteration stops at the first error from fn or from the context.
func StreamForExport(ctx context.Context, q Querier, fn func(contact.Counters) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows, err := q.QueryContext(ctx, `
		SELECT contact_id, proposed_counter, engaged_counter
		FROM contact
		ORDER BY contact_id ASC
	`)
	if err != nil {
		return errors.NewStorageFailure("export counters", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		var c contact.Counters
		if err := rows.Scan(&c.ContactID, &c.Proposed, &c.Engaged); err != nil {
			return errors.NewStorageFailure("export counters", err)
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewStorageFailure("export counters", err)
	}
	return nil
}
