// Package selection picks the next contact to surface and records engagement.
//
// Selection is rejection sampling over the address book: draw a contact
// uniformly, draw a threshold uniformly from [0, 100], and accept when the
// contact's engaged/proposed ratio (as a percentage) reaches the threshold.
// Contacts the user engages with more often surface sooner; contacts never
// proposed survive only a threshold of zero.
package selection

import (
	"context"
	"crypto/rand"
	"log/slog"
	"time"

	"github.com/hpungsan/kin/internal/contact"
	"github.com/hpungsan/kin/internal/errors"
	"github.com/hpungsan/kin/internal/logging"
	"github.com/oklog/ulid/v2"
)

// DefaultMaxRounds caps the rejection loop.
const DefaultMaxRounds = 1000

// thresholdSpan draws thresholds from [0, 100] inclusive.
const thresholdSpan = 101

// CounterStore is what the engine reads and bumps. *db.Store implements it.
type CounterStore interface {
	GetCounters(ctx context.Context, contactID string) (proposed, engaged int64, err error)
	IncrementProposed(ctx context.Context, contactID string) error
}

// Selection is the outcome of one accepted cycle.
type Selection struct {
	CycleID   string          `json:"cycle_id"`
	Contact   contact.Contact `json:"contact"`
	Proposed  int64           `json:"proposed"`
	Engaged   int64           `json:"engaged"`
	Ratio     float64         `json:"ratio"`
	Threshold int             `json:"threshold"`
	Rounds    int             `json:"rounds"`
	Forced    bool            `json:"forced"`
}

// Engine runs selection cycles. Safe for concurrent use; it holds no counter state.
type Engine struct {
	source    contact.Source
	store     CounterStore
	rand      Rand
	maxRounds int
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand replaces the random source.
func WithRand(r Rand) Option {
	return func(e *Engine) {
		if r != nil {
			e.rand = r
		}
	}
}

// WithMaxRounds caps the rejection loop. Values <= 0 keep the default.
func WithMaxRounds(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRounds = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine builds an engine over an address book and a counter store.
func NewEngine(source contact.Source, store CounterStore, opts ...Option) *Engine {
	e := &Engine{
		source:    source,
		store:     store,
		rand:      defaultRand(),
		maxRounds: DefaultMaxRounds,
		logger:    logging.Discard(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Select picks the next contact, avoiding lastShown when another contact exists,
// and increments the winner's proposed counter.
//
// An empty address book returns NO_CONTACTS_AVAILABLE without touching the store.
// When MaxRounds draws are all rejected the last drawn contact is accepted and
// the selection is marked Forced.
func (e *Engine) Select(ctx context.Context, lastShown string) (*Selection, error) {
	all, err := e.source.ListContacts(ctx)
	if err != nil {
		return nil, errors.NewContactSourceFailure(err)
	}
	if len(all) == 0 {
		return nil, errors.NewNoContactsAvailable()
	}

	candidates := excluding(all, lastShown)
	cycleID := e.newCycleID()
	log := e.logger.With("cycle_id", cycleID)

	sel := &Selection{CycleID: cycleID}
	accepted := false
	for round := 1; round <= e.maxRounds; round++ {
		c := candidates[e.rand.IntN(len(candidates))]

		proposed, engaged, err := e.store.GetCounters(ctx, c.ID)
		if err != nil {
			return nil, asStorageFailure("get counters", err)
		}
		ratio := contact.Ratio(proposed, engaged)
		threshold := e.rand.IntN(thresholdSpan)

		log.Debug("selection round",
			"round", round,
			"contact_id", c.ID,
			"proposed", proposed,
			"engaged", engaged,
			"ratio", ratio,
			"threshold", threshold,
		)

		sel.Contact = c
		sel.Proposed = proposed
		sel.Engaged = engaged
		sel.Ratio = ratio
		sel.Threshold = threshold
		sel.Rounds = round

		if ratio*100 >= float64(threshold) {
			accepted = true
			break
		}
	}
	if !accepted {
		sel.Forced = true
		log.Warn("selection round cap reached, accepting last draw",
			"max_rounds", e.maxRounds,
			"contact_id", sel.Contact.ID,
		)
	}

	if err := e.store.IncrementProposed(ctx, sel.Contact.ID); err != nil {
		return nil, asStorageFailure("increment proposed", err)
	}

	log.Info("contact selected",
		"contact_id", sel.Contact.ID,
		"rounds", sel.Rounds,
		"ratio", sel.Ratio,
		"forced", sel.Forced,
	)
	return sel, nil
}

// excluding drops lastShown, or returns all when nothing would remain.
func excluding(all []contact.Contact, lastShown string) []contact.Contact {
	if lastShown == "" {
		return all
	}
	filtered := make([]contact.Contact, 0, len(all))
	for _, c := range all {
		if c.ID != lastShown {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return all
	}
	return filtered
}

func (e *Engine) newCycleID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(e.now()), entropy).String()
}

// asStorageFailure keeps store-classified errors and wraps anything else.
func asStorageFailure(op string, err error) error {
	if _, ok := err.(*errors.KinError); ok {
		return err
	}
	return errors.NewStorageFailure(op, err)
}
