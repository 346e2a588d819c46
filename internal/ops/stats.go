package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/kin/internal/contact"
	"github.com/hpungsan/kin/internal/db"
	"github.com/hpungsan/kin/internal/errors"
)

// StatsInput contains parameters for the Stats operation.
type StatsInput struct {
	Limit  int // default 20, max 100
	Offset int
}

// StatsItem is one counter record joined with the address book.
type StatsItem struct {
	ContactID     string  `json:"contact_id"`
	DisplayName   string  `json:"display_name,omitempty"`
	InAddressBook bool    `json:"in_address_book"`
	Proposed      int64   `json:"proposed"`
	Engaged       int64   `json:"engaged"`
	Ratio         float64 `json:"ratio"`
}

// StatsOutput contains the result of the Stats operation.
type StatsOutput struct {
	Items      []StatsItem `json:"items"`
	Pagination Pagination  `json:"pagination"`
}

// Stats lists counter records, most engaged first.
// Records for contacts no longer in the address book are still listed.
func Stats(ctx context.Context, database *sql.DB, source contact.Source, input StatsInput) (*StatsOutput, error) {
	limit := clampLimit(input.Limit, DefaultStatsLimit, MaxStatsLimit)
	offset := clampOffset(input.Offset)

	total, err := db.CountCounters(ctx, database)
	if err != nil {
		return nil, err
	}
	page, err := db.ListCounters(ctx, database, limit, offset)
	if err != nil {
		return nil, err
	}

	names := map[string]string{}
	if source != nil {
		contacts, err := source.ListContacts(ctx)
		if err != nil {
			return nil, errors.NewContactSourceFailure(err)
		}
		for _, c := range contacts {
			names[c.ID] = c.DisplayName
		}
	}

	items := make([]StatsItem, 0, len(page))
	for _, c := range page {
		name, ok := names[c.ContactID]
		items = append(items, StatsItem{
			ContactID:     c.ContactID,
			DisplayName:   name,
			InAddressBook: ok,
			Proposed:      c.Proposed,
			Engaged:       c.Engaged,
			Ratio:         c.Ratio(),
		})
	}

	return &StatsOutput{
		Items: items,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(items) < total,
			Total:   total,
		},
	}, nil
}
