package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/kin/internal/db"
	"github.com/hpungsan/kin/internal/errors"
)

// CountersInput contains parameters for the Counters operation.
type CountersInput struct {
	ContactID string // required
}

// CountersOutput is one contact's counter record.
type CountersOutput struct {
	ContactID string  `json:"contact_id"`
	Proposed  int64   `json:"proposed"`
	Engaged   int64   `json:"engaged"`
	Ratio     float64 `json:"ratio"`
	Exists    bool    `json:"exists"`
}

// Counters reads a contact's counters. Unknown ids report zeros; no record is created.
func Counters(ctx context.Context, database *sql.DB, input CountersInput) (*CountersOutput, error) {
	id := strings.TrimSpace(input.ContactID)
	if id == "" {
		return nil, errors.NewInvalidRequest("contact_id is required")
	}

	c, err := db.GetCounters(ctx, database, id)
	if err != nil {
		return nil, err
	}
	exists, err := db.CounterExists(ctx, database, id)
	if err != nil {
		return nil, err
	}

	return &CountersOutput{
		ContactID: id,
		Proposed:  c.Proposed,
		Engaged:   c.Engaged,
		Ratio:     c.Ratio(),
		Exists:    exists,
	}, nil
}
