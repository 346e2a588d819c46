package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/kin/internal/widget"
)

// EngageInput contains parameters for the Engage operation.
type EngageInput struct {
	Surface   string // default: "default"
	ContactID string // empty: nothing recorded, surface still refreshed
}

// EngageOutput contains the result of the Engage operation.
type EngageOutput struct {
	ContactID   string      `json:"contact_id,omitempty"`
	Recorded    bool        `json:"recorded"`
	Attempts    int         `json:"attempts"`
	RecordError string      `json:"record_error,omitempty"`
	Next        *NextOutput `json:"next"`
}

// Engage records that the user acted on a contact, then refreshes the surface.
// A failed engagement write is reported in RecordError, not as an error;
// the refresh still happens.
func Engage(ctx context.Context, host Host, input EngageInput) (*EngageOutput, error) {
	surface := strings.TrimSpace(input.Surface)
	if surface == "" {
		surface = widget.DefaultSurface
	}
	contactID := strings.TrimSpace(input.ContactID)

	res, err := host.Engage(ctx, surface, contactID)
	if err != nil {
		return nil, err
	}

	out := &EngageOutput{
		ContactID: contactID,
		Recorded:  res.Recorded,
		Attempts:  res.Attempts,
		Next:      nextOutput(surface, res.Next),
	}
	if res.RecordErr != nil {
		out.RecordError = res.RecordErr.Error()
	}
	return out, nil
}
